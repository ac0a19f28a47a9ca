// internal/intake/service.go
package intake

import (
	"origination-intake/internal/common/logger"
	"origination-intake/internal/disclosure"
	"origination-intake/internal/draft"
	"origination-intake/internal/guard"
)

// Service holds the shared collaborators and builds a Session per
// surface entry.
type Service struct {
	snapshots draft.SnapshotStore
	guard     *guard.Guard
	platform  PlatformAPI
	records   RecordStore
	indexer   SubmissionIndexer
	notifier  ConfirmationSender
	questions []disclosure.Question
	logger    logger.Logger
}

func NewService(
	snapshots draft.SnapshotStore,
	g *guard.Guard,
	platform PlatformAPI,
	recordStore RecordStore,
	indexer SubmissionIndexer,
	notifier ConfirmationSender,
	log logger.Logger,
) *Service {
	return &Service{
		snapshots: snapshots,
		guard:     g,
		platform:  platform,
		records:   recordStore,
		indexer:   indexer,
		notifier:  notifier,
		questions: FinanceDisclosures(),
		logger:    log,
	}
}

// FinanceDisclosures is the fixed question list for the finances
// screen. The overdue-liabilities follow-up only applies while the
// applicant reports outstanding business debt.
func FinanceDisclosures() []disclosure.Question {
	return []disclosure.Question{
		{Key: "hasBankruptcy"},
		{Key: "hasBusinessDebt"},
		{Key: "hasPendingLitigation"},
		{
			Key: "hasOverdueLiabilities",
			Condition: func(section map[string]interface{}) bool {
				debt, _ := section["hasBusinessDebt"].(bool)
				return debt
			},
		},
		{Key: "hasPriorAdvances"},
	}
}
