// internal/intake/session.go
package intake

import (
	"context"

	stderrors "origination-intake/internal/common/errors"
	"origination-intake/internal/common/logger"
	"origination-intake/internal/common/metrics"
	"origination-intake/internal/disclosure"
	"origination-intake/internal/draft"
	"origination-intake/internal/guard"
	"origination-intake/internal/models"
	"origination-intake/internal/notify"
	"origination-intake/internal/records"
	"origination-intake/internal/scoring"
)

// PlatformAPI is the upstream origination platform surface the session
// depends on.
type PlatformAPI interface {
	LoadCurrent(ctx context.Context, accountKey string) (*models.ApplicationDraft, error)
	Save(ctx context.Context, draft *models.ApplicationDraft) error
	Submit(ctx context.Context, draft *models.ApplicationDraft) error
}

// RecordStore persists accepted submissions.
type RecordStore interface {
	Insert(ctx context.Context, draft *models.ApplicationDraft, offer *scoring.Result) (*records.SubmissionRecord, error)
}

// SubmissionIndexer mirrors accepted submissions into the search index.
type SubmissionIndexer interface {
	IndexSubmission(ctx context.Context, record *records.SubmissionRecord) error
}

// ConfirmationSender notifies the applicant after acceptance.
type ConfirmationSender interface {
	SendConfirmation(ctx context.Context, recipient notify.Recipient, record *records.SubmissionRecord) *notify.Confirmation
}

// SubmitResult reports a completed submission.
type SubmitResult struct {
	Record       *records.SubmissionRecord `json:"record"`
	Confirmation *notify.Confirmation      `json:"confirmation,omitempty"`
}

// Session drives one applicant's pass through the intake surface: merge
// answers, keep the standing offer current, sequence the finance
// disclosures, and guard and execute save/submit against the platform.
type Session struct {
	accountKey  string
	store       *draft.Store
	sequencer   *disclosure.Sequencer
	platform    PlatformAPI
	records     RecordStore
	indexer     SubmissionIndexer
	notifier    ConfirmationSender
	logger      logger.Logger
	healedSlots []string
}

// Enter builds the session for one surface entry: restore the draft
// (healing orphaned file metadata, seeding from the platform when no
// local snapshot exists), run the guard, and mount the disclosure
// sequencer against the restored finances section. When the guard
// redirects, the session is still returned so the confirmation view
// can read the draft, but callers must not offer mutations.
func (s *Service) Enter(ctx context.Context, accountKey string, liveBinaryIDs []string) (*Session, guard.Decision, error) {
	store := draft.NewStore(accountKey, s.snapshots, s.logger)
	restored, healed, err := store.Load(ctx, liveBinaryIDs)
	if err != nil {
		return nil, "", err
	}
	if !restored {
		remote, loadErr := s.platform.LoadCurrent(ctx, accountKey)
		switch {
		case loadErr != nil:
			// Entry must not depend on the platform being up; the
			// draft starts fresh and the guard runs its own check.
			s.logger.Warn("could not fetch server-side draft", map[string]interface{}{
				"accountKey": accountKey,
				"error":      loadErr.Error(),
			})
		case remote != nil:
			if err := store.Adopt(ctx, remote); err != nil {
				return nil, "", err
			}
		}
	}

	current := store.Get()

	decision, state := s.guard.CheckAccess(ctx, accountKey, current.SubmittedLocally)

	session := &Session{
		accountKey:  accountKey,
		store:       store,
		sequencer:   disclosure.NewSequencer(s.questions, current.Sections[models.SectionFinances]),
		platform:    s.platform,
		records:     s.records,
		indexer:     s.indexer,
		notifier:    s.notifier,
		logger:      s.logger.WithFields(map[string]interface{}{"accountKey": accountKey}),
		healedSlots: healed,
	}

	session.logger.Info("surface entered", map[string]interface{}{
		"decision":    string(decision),
		"healedSlots": healed,
		"checkError":  state.LastCheckError,
	})
	return session, decision, nil
}

// Draft returns a copy of the current draft.
func (s *Session) Draft() *models.ApplicationDraft {
	return s.store.Get()
}

// HealedSlots names the diligence slots whose stale file metadata was
// reset on load, so the UI can show its one-time re-attach notice.
func (s *Session) HealedSlots() []string {
	return s.healedSlots
}

// MergeSection applies a partial-section patch and returns the
// recomputed standing offer, nil while it is not yet computable.
func (s *Session) MergeSection(ctx context.Context, section string, patch map[string]interface{}) (*scoring.Result, error) {
	if err := s.store.MergeSection(ctx, section, patch); err != nil {
		return nil, err
	}
	return s.Offer(), nil
}

// Offer computes the standing offer from the current draft. A nil
// result means "no offer yet", not a zero-dollar offer.
func (s *Session) Offer() *scoring.Result {
	result, err := scoring.Score(s.facts())
	if err != nil {
		metrics.OffersComputed.WithLabelValues("not_computable").Inc()
		return nil
	}
	metrics.OffersComputed.WithLabelValues("computed").Inc()
	return result
}

// facts projects the scoring inputs out of the draft sections. Numeric
// values arrive as float64 after a JSON round trip.
func (s *Session) facts() scoring.ApplicationFacts {
	current := s.store.Get()
	company := current.Sections[models.SectionCompany]
	ticketing := current.Sections[models.SectionTicketing]
	volume := current.Sections[models.SectionVolume]

	return scoring.ApplicationFacts{
		YearsInBusiness:        scoring.ParseYearsBand(stringValue(company, "yearsInBusinessBand")),
		EventCount:             intValue(volume, "eventCount"),
		RemittanceSource:       scoring.ParseRemittanceSource(stringValue(ticketing, "remittanceSource")),
		RemittanceFrequency:    scoring.ParseRemittanceFrequency(stringValue(ticketing, "remittanceFrequency")),
		GrossAnnualTicketSales: floatValue(volume, "grossAnnualTicketSales"),
	}
}

// VisibleDisclosures returns the indices of the finance disclosure
// questions currently visible and required.
func (s *Session) VisibleDisclosures() map[int]struct{} {
	return s.sequencer.VisibleIndices(s.financesSection())
}

// AnswerDisclosure merges one disclosure answer and advances the reveal
// cursor on a first visit.
func (s *Session) AnswerDisclosure(ctx context.Context, index int, patch map[string]interface{}) error {
	if err := s.store.MergeSection(ctx, models.SectionFinances, patch); err != nil {
		return err
	}
	s.sequencer.Advance(index, s.financesSection())
	return nil
}

func (s *Session) financesSection() map[string]interface{} {
	return s.store.Get().Sections[models.SectionFinances]
}

// ReplaceOwners swaps the ownership list wholesale.
func (s *Session) ReplaceOwners(ctx context.Context, owners []models.Owner) error {
	return s.store.ReplaceOwners(ctx, owners)
}

// SetFileSlot records file metadata for one diligence slot.
func (s *Session) SetFileSlot(ctx context.Context, slot string, infos []models.FileDescriptor) error {
	return s.store.SetFileSlot(ctx, slot, infos)
}

// SetStage moves the applicant to another stage.
func (s *Session) SetStage(ctx context.Context, stage int) error {
	return s.store.SetStage(ctx, stage)
}

// Reset clears the draft and its snapshot. A submitted application
// stays submitted: clearing the local flag would let the remote
// status check fail open into a second submit attempt.
func (s *Session) Reset(ctx context.Context) error {
	if s.store.Get().SubmittedLocally {
		return stderrors.NewAlreadySubmitted(s.accountKey)
	}
	return s.store.Reset(ctx)
}

// Save pushes the draft to the platform. Fail closed: an error means
// the save did not happen and local state is unchanged.
func (s *Session) Save(ctx context.Context) error {
	return s.platform.Save(ctx, s.store.Get())
}

// Submit asks the platform to accept the application. The local
// submitted flag and snapshot are persisted only after the platform
// accepts and before success is reported; record, index and
// confirmation follow and never gate the outcome.
func (s *Session) Submit(ctx context.Context) (*SubmitResult, error) {
	current := s.store.Get()
	if current.SubmittedLocally {
		metrics.Submissions.WithLabelValues("duplicate").Inc()
		return nil, stderrors.NewAlreadySubmitted(s.accountKey)
	}

	offer := s.Offer()

	if err := s.platform.Submit(ctx, current); err != nil {
		metrics.Submissions.WithLabelValues("rejected").Inc()
		return nil, err
	}

	if err := s.store.SetSubmittedLocally(ctx); err != nil {
		// The platform accepted, keep going: the remote check will
		// still redirect this account on the next entry.
		s.logger.Error("failed to persist submitted flag after acceptance", map[string]interface{}{
			"error": err.Error(),
		})
	}
	metrics.Submissions.WithLabelValues("accepted").Inc()

	record, err := s.records.Insert(ctx, s.store.Get(), offer)
	if err != nil {
		s.logger.Error("submission record insert failed", map[string]interface{}{
			"error": err.Error(),
		})
		return &SubmitResult{}, nil
	}

	if err := s.indexer.IndexSubmission(ctx, record); err != nil {
		s.logger.Warn("submission indexing failed", map[string]interface{}{
			"error":    err.Error(),
			"recordId": record.ID,
		})
	}

	confirmation := s.notifier.SendConfirmation(ctx, s.recipient(), record)

	return &SubmitResult{Record: record, Confirmation: confirmation}, nil
}

func (s *Session) recipient() notify.Recipient {
	personal := s.store.Get().Sections[models.SectionPersonal]
	return notify.Recipient{
		Email: stringValue(personal, "email"),
		Phone: stringValue(personal, "phone"),
	}
}

func stringValue(section map[string]interface{}, key string) string {
	if section == nil {
		return ""
	}
	v, _ := section[key].(string)
	return v
}

func floatValue(section map[string]interface{}, key string) float64 {
	if section == nil {
		return 0
	}
	switch v := section[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

func intValue(section map[string]interface{}, key string) int {
	return int(floatValue(section, key))
}
