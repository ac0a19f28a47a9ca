// internal/records/store.go
package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	stderrors "origination-intake/internal/common/errors"
	"origination-intake/internal/common/logger"
	"origination-intake/internal/models"
	"origination-intake/internal/scoring"
)

// SubmissionRecord is the durable row written when the platform accepts
// a submission.
type SubmissionRecord struct {
	ID          string  `json:"id"`
	AccountKey  string  `json:"accountKey"`
	RiskScore   float64 `json:"riskScore"`
	OfferAmount float64 `json:"offerAmount"`
	Status      string  `json:"status"`
	CreatedAt   string  `json:"createdAt"`
}

// Store persists accepted submissions to postgres. It also answers
// submitted-status queries, which makes it usable as a local status
// authority when the remote platform is fronted by this service.
type Store struct {
	db     *sql.DB
	logger logger.Logger
}

func NewStore(db *sql.DB, log logger.Logger) *Store {
	return &Store{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "submission-records"}),
	}
}

// Insert records an accepted submission. The draft is stored as a JSONB
// document alongside the offer that was standing when the applicant
// submitted. A second submission for the same account is rejected.
func (s *Store) Insert(ctx context.Context, draft *models.ApplicationDraft, offer *scoring.Result) (*SubmissionRecord, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM submissions
			WHERE account_key = $1 AND status = 'submitted'
		)`, draft.AccountKey).Scan(&exists)
	if err != nil {
		return nil, stderrors.NewRecordInsertFailed(fmt.Errorf("duplicate check failed: %w", err))
	}
	if exists {
		return nil, stderrors.NewDuplicateSubmission(draft.AccountKey)
	}

	recordID := uuid.New().String()
	createdAt := time.Now().UTC().Format(time.RFC3339)

	draftJSON, err := json.Marshal(draft)
	if err != nil {
		return nil, stderrors.NewRecordInsertFailed(fmt.Errorf("marshal draft: %w", err))
	}

	riskScore, offerAmount := 0.0, 0.0
	if offer != nil {
		riskScore = offer.TotalRiskScore
		offerAmount = offer.FinalAmount
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO submissions (
			id, account_key, draft, risk_score,
			offer_amount, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`,
		recordID,
		draft.AccountKey,
		draftJSON,
		riskScore,
		offerAmount,
		"submitted",
		createdAt,
	)
	if err != nil {
		return nil, stderrors.NewRecordInsertFailed(fmt.Errorf("insert failed: %w", err))
	}

	// Audit trail is non-critical, log and continue on failure.
	auditDetailsJSON, err := json.Marshal(map[string]interface{}{
		"accountKey":  draft.AccountKey,
		"riskScore":   riskScore,
		"offerAmount": offerAmount,
	})
	if err != nil {
		s.logger.Warn("failed to marshal audit log details", map[string]interface{}{
			"error": err.Error(),
		})
		auditDetailsJSON = []byte("{}")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_log (event_type, resource_type, resource_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		"submission_recorded",
		"submission",
		recordID,
		auditDetailsJSON,
		createdAt,
	)
	if err != nil {
		s.logger.Warn("audit log insert failed", map[string]interface{}{
			"error":    err.Error(),
			"recordId": recordID,
		})
	}

	s.logger.Info("submission recorded", map[string]interface{}{
		"recordId":    recordID,
		"accountKey":  draft.AccountKey,
		"riskScore":   riskScore,
		"offerAmount": offerAmount,
	})

	return &SubmissionRecord{
		ID:          recordID,
		AccountKey:  draft.AccountKey,
		RiskScore:   riskScore,
		OfferAmount: offerAmount,
		Status:      "submitted",
		CreatedAt:   createdAt,
	}, nil
}

// CheckStatus reports whether a submitted record exists for the
// account. The signature matches the guard's status collaborator.
func (s *Store) CheckStatus(ctx context.Context, accountKey string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM submissions
			WHERE account_key = $1 AND status = 'submitted'
		)`, accountKey).Scan(&exists)
	if err != nil {
		return false, stderrors.NewStatusCheckFailed(err)
	}
	return exists, nil
}

// Get loads a submission record by account key.
func (s *Store) Get(ctx context.Context, accountKey string) (*SubmissionRecord, error) {
	var rec SubmissionRecord
	err := s.db.QueryRowContext(ctx, `
		SELECT id, account_key, risk_score, offer_amount, status, created_at
		FROM submissions
		WHERE account_key = $1
		ORDER BY created_at DESC
		LIMIT 1`, accountKey).Scan(
		&rec.ID, &rec.AccountKey, &rec.RiskScore, &rec.OfferAmount, &rec.Status, &rec.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("load submission record: %w", err)
	}
	return &rec, nil
}
