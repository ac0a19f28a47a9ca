// internal/records/store_test.go
package records

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stderrors "origination-intake/internal/common/errors"
	"origination-intake/internal/common/logger"
	"origination-intake/internal/models"
	"origination-intake/internal/scoring"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestDraft() *models.ApplicationDraft {
	draft := models.NewDraft("acct-100")
	draft.Sections["company"] = map[string]interface{}{
		"legalName": "Sunrise Events LLC",
	}
	return draft
}

func createTestOffer() *scoring.Result {
	return &scoring.Result{
		TotalRiskScore: 16,
		RawAmount:      150_000,
		FinalAmount:    150_000,
	}
}

// ==========================
// Insert Tests
// ==========================

func TestStore_Insert_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("acct-100").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	mock.ExpectExec(`INSERT INTO submissions`).
		WithArgs(
			sqlmock.AnyArg(), // record ID (UUID)
			"acct-100",
			sqlmock.AnyArg(), // draft JSON
			16.0,
			150_000.0,
			"submitted",
			sqlmock.AnyArg(), // created_at
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	mock.ExpectExec(`INSERT INTO audit_log`).
		WithArgs(
			"submission_recorded",
			"submission",
			sqlmock.AnyArg(),
			sqlmock.AnyArg(),
			sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	store := NewStore(db, logger.NewTestLogger(t))
	rec, err := store.Insert(context.Background(), createTestDraft(), createTestOffer())

	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "acct-100", rec.AccountKey)
	assert.Equal(t, "submitted", rec.Status)

	_, err = time.Parse(time.RFC3339, rec.CreatedAt)
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Insert_DuplicateRejected(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("acct-100").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	store := NewStore(db, logger.NewTestLogger(t))
	rec, err := store.Insert(context.Background(), createTestDraft(), createTestOffer())

	require.Error(t, err)
	assert.Equal(t, stderrors.ErrCodeDuplicateSubmission, stderrors.CodeOf(err))
	assert.Nil(t, rec)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Insert_DuplicateCheckError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("acct-100").
		WillReturnError(errors.New("database connection failed"))

	store := NewStore(db, logger.NewTestLogger(t))
	rec, err := store.Insert(context.Background(), createTestDraft(), createTestOffer())

	require.Error(t, err)
	assert.Equal(t, stderrors.ErrCodeRecordInsertFailed, stderrors.CodeOf(err))
	assert.Contains(t, err.Error(), "duplicate check failed")
	assert.Nil(t, rec)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Insert_InsertError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("acct-100").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	mock.ExpectExec(`INSERT INTO submissions`).
		WillReturnError(errors.New("disk full"))

	store := NewStore(db, logger.NewTestLogger(t))
	rec, err := store.Insert(context.Background(), createTestDraft(), createTestOffer())

	require.Error(t, err)
	assert.Equal(t, stderrors.ErrCodeRecordInsertFailed, stderrors.CodeOf(err))
	assert.Nil(t, rec)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Insert_AuditFailureIsNonFatal(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("acct-100").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	mock.ExpectExec(`INSERT INTO submissions`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	mock.ExpectExec(`INSERT INTO audit_log`).
		WillReturnError(errors.New("audit table locked"))

	store := NewStore(db, logger.NewTestLogger(t))
	rec, err := store.Insert(context.Background(), createTestDraft(), createTestOffer())

	require.NoError(t, err)
	assert.NotNil(t, rec)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Insert_NilOfferRecordsZeros(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("acct-100").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	mock.ExpectExec(`INSERT INTO submissions`).
		WithArgs(
			sqlmock.AnyArg(),
			"acct-100",
			sqlmock.AnyArg(),
			0.0,
			0.0,
			"submitted",
			sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	mock.ExpectExec(`INSERT INTO audit_log`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	store := NewStore(db, logger.NewTestLogger(t))
	rec, err := store.Insert(context.Background(), createTestDraft(), nil)

	require.NoError(t, err)
	assert.Equal(t, 0.0, rec.OfferAmount)

	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// CheckStatus Tests
// ==========================

func TestStore_CheckStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("acct-100").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	store := NewStore(db, logger.NewTestLogger(t))
	submitted, err := store.CheckStatus(context.Background(), "acct-100")

	require.NoError(t, err)
	assert.True(t, submitted)
}

func TestStore_CheckStatus_QueryErrorSurfacesCode(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("acct-100").
		WillReturnError(errors.New("connection reset"))

	store := NewStore(db, logger.NewTestLogger(t))
	_, err = store.CheckStatus(context.Background(), "acct-100")

	require.Error(t, err)
	assert.Equal(t, stderrors.ErrCodeStatusCheckFailed, stderrors.CodeOf(err))
}

// ==========================
// Get Tests
// ==========================

func TestStore_Get_NoRecordReturnsNil(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT id, account_key`).
		WithArgs("acct-404").
		WillReturnRows(sqlmock.NewRows([]string{"id", "account_key", "risk_score", "offer_amount", "status", "created_at"}))

	store := NewStore(db, logger.NewTestLogger(t))
	rec, err := store.Get(context.Background(), "acct-404")

	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestStore_Get_ReturnsLatestRecord(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT id, account_key`).
		WithArgs("acct-100").
		WillReturnRows(sqlmock.NewRows([]string{"id", "account_key", "risk_score", "offer_amount", "status", "created_at"}).
			AddRow("rec-1", "acct-100", 16.0, 150_000.0, "submitted", "2026-08-30T12:00:00Z"))

	store := NewStore(db, logger.NewTestLogger(t))
	rec, err := store.Get(context.Background(), "acct-100")

	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "rec-1", rec.ID)
	assert.Equal(t, 150_000.0, rec.OfferAmount)
}
