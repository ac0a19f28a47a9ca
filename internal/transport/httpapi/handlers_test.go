// internal/transport/httpapi/handlers_test.go
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"origination-intake/internal/common/config"
	"origination-intake/internal/common/logger"
	"origination-intake/internal/draft"
	"origination-intake/internal/guard"
	"origination-intake/internal/intake"
	"origination-intake/internal/models"
	"origination-intake/internal/notify"
	"origination-intake/internal/records"
	"origination-intake/internal/scoring"
	"origination-intake/internal/search"
)

// ==========================
// Test Helper Functions
// ==========================

type stubPlatform struct {
	submitErr error
}

func (p *stubPlatform) LoadCurrent(_ context.Context, _ string) (*models.ApplicationDraft, error) {
	return nil, nil
}
func (p *stubPlatform) Save(_ context.Context, _ *models.ApplicationDraft) error { return nil }
func (p *stubPlatform) Submit(_ context.Context, _ *models.ApplicationDraft) error {
	return p.submitErr
}

type stubRecords struct {
	latest *records.SubmissionRecord
}

func (r *stubRecords) Insert(_ context.Context, d *models.ApplicationDraft, _ *scoring.Result) (*records.SubmissionRecord, error) {
	return &records.SubmissionRecord{ID: "rec-1", AccountKey: d.AccountKey, Status: "submitted"}, nil
}

func (r *stubRecords) Get(_ context.Context, _ string) (*records.SubmissionRecord, error) {
	return r.latest, nil
}

type stubFinder struct {
	docs []search.Document
}

func (f *stubFinder) FindByAccountKey(_ context.Context, _ string) ([]search.Document, error) {
	return f.docs, nil
}

type stubIndexer struct{}

func (i *stubIndexer) IndexSubmission(_ context.Context, _ *records.SubmissionRecord) error {
	return nil
}

type stubNotifier struct{}

func (n *stubNotifier) SendConfirmation(_ context.Context, _ notify.Recipient, _ *records.SubmissionRecord) *notify.Confirmation {
	return &notify.Confirmation{NotificationID: "note-1", Status: notify.StatusSent}
}

type stubChecker struct {
	submitted bool
}

func (s *stubChecker) CheckStatus(_ context.Context, _ string) (bool, error) {
	return s.submitted, nil
}

func newTestServer(t *testing.T, checker guard.StatusChecker) http.Handler {
	return newTestServerWithLookup(t, checker, &stubRecords{}, &stubFinder{})
}

func newTestServerWithLookup(t *testing.T, checker guard.StatusChecker, reader RecordReader, finder SubmissionFinder) http.Handler {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	snapshots := draft.NewRedisSnapshotStore(rdb)

	log := logger.NewTestLogger(t)
	g := guard.New(checker, config.GuardConfig{}, true, log)
	svc := intake.NewService(snapshots, g, &stubPlatform{}, &stubRecords{}, &stubIndexer{}, &stubNotifier{}, log)

	return NewServer(svc, reader, finder, nil, log).Router()
}

func doRequest(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(accountKeyHeader, "acct-100")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func enter(t *testing.T, router http.Handler) enterResponse {
	t.Helper()
	rec := doRequest(t, router, http.MethodGet, "/api/v1/application", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp enterResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

// ==========================
// Entry Tests
// ==========================

func TestEnter_RequiresAccountKey(t *testing.T) {
	router := newTestServer(t, &stubChecker{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/application", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEnter_ReturnsDraftAndDecision(t *testing.T) {
	router := newTestServer(t, &stubChecker{})

	resp := enter(t, router)

	assert.Equal(t, string(guard.Allow), resp.Decision)
	require.NotNil(t, resp.Draft)
	assert.Equal(t, "acct-100", resp.Draft.AccountKey)
	assert.Equal(t, models.StageBusiness, resp.Draft.CurrentStage)
}

func TestMutation_WithoutEntryIsRejected(t *testing.T) {
	router := newTestServer(t, &stubChecker{})

	rec := doRequest(t, router, http.MethodPatch, "/api/v1/application/sections/company",
		map[string]interface{}{"legalName": "Sunrise Events LLC"})

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestMutation_AfterRedirectIsForbidden(t *testing.T) {
	router := newTestServer(t, &stubChecker{submitted: true})

	resp := enter(t, router)
	require.Equal(t, string(guard.RedirectToConfirmation), resp.Decision)

	rec := doRequest(t, router, http.MethodPatch, "/api/v1/application/sections/company",
		map[string]interface{}{"legalName": "Sunrise Events LLC"})

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

// ==========================
// Section Merge Tests
// ==========================

func TestMergeSection_ValidPatch(t *testing.T) {
	router := newTestServer(t, &stubChecker{})
	enter(t, router)

	rec := doRequest(t, router, http.MethodPatch, "/api/v1/application/sections/company",
		map[string]interface{}{"legalName": "Sunrise Events LLC"})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	section := resp["section"].(map[string]interface{})
	assert.Equal(t, "Sunrise Events LLC", section["legalName"])
	assert.NotContains(t, resp, "offer")
}

func TestMergeSection_SchemaViolation(t *testing.T) {
	router := newTestServer(t, &stubChecker{})
	enter(t, router)

	rec := doRequest(t, router, http.MethodPatch, "/api/v1/application/sections/volume",
		map[string]interface{}{"eventCount": "twelve"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "VALIDATION_FAILED")
}

func TestMergeSection_UnknownSection(t *testing.T) {
	router := newTestServer(t, &stubChecker{})
	enter(t, router)

	rec := doRequest(t, router, http.MethodPatch, "/api/v1/application/sections/nonsense",
		map[string]interface{}{"a": 1})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "UNKNOWN_SECTION")
}

func TestMergeSection_CompleteFactsReturnOffer(t *testing.T) {
	router := newTestServer(t, &stubChecker{})
	enter(t, router)

	doRequest(t, router, http.MethodPatch, "/api/v1/application/sections/company",
		map[string]interface{}{"yearsInBusinessBand": "2-5 years"})
	doRequest(t, router, http.MethodPatch, "/api/v1/application/sections/ticketing",
		map[string]interface{}{"remittanceSource": "Payment processor", "remittanceFrequency": "Monthly"})
	rec := doRequest(t, router, http.MethodPatch, "/api/v1/application/sections/volume",
		map[string]interface{}{"eventCount": 12, "grossAnnualTicketSales": 3_000_000})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	offer := resp["offer"].(map[string]interface{})
	assert.Equal(t, 150_000.0, offer["finalAmount"])
}

// ==========================
// Offer and Disclosure Tests
// ==========================

func TestOffer_NotComputableIsNoContent(t *testing.T) {
	router := newTestServer(t, &stubChecker{})
	enter(t, router)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/application/offer", nil)

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestDisclosure_FreshDraftShowsFirstQuestion(t *testing.T) {
	router := newTestServer(t, &stubChecker{})
	enter(t, router)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/application/disclosure", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		VisibleIndices []int `json:"visibleIndices"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []int{0}, resp.VisibleIndices)
}

func TestDisclosure_AnswerAdvancesReveal(t *testing.T) {
	router := newTestServer(t, &stubChecker{})
	enter(t, router)

	rec := doRequest(t, router, http.MethodPatch,
		"/api/v1/application/sections/finances?disclosureIndex=0",
		map[string]interface{}{"hasBankruptcy": false})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/api/v1/application/disclosure", nil)
	var resp struct {
		VisibleIndices []int `json:"visibleIndices"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []int{0, 1}, resp.VisibleIndices)
}

// ==========================
// Owners and Files Tests
// ==========================

func TestReplaceOwners_Valid(t *testing.T) {
	router := newTestServer(t, &stubChecker{})
	enter(t, router)

	rec := doRequest(t, router, http.MethodPut, "/api/v1/application/owners",
		[]map[string]interface{}{
			{"firstName": "Jane", "lastName": "Doe", "ownershipPercent": 60},
			{"firstName": "Sam", "lastName": "Lee", "ownershipPercent": 40},
		})

	require.Equal(t, http.StatusOK, rec.Code)
	var owners []models.Owner
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &owners))
	assert.Len(t, owners, 2)
}

func TestReplaceOwners_InvalidPercent(t *testing.T) {
	router := newTestServer(t, &stubChecker{})
	enter(t, router)

	rec := doRequest(t, router, http.MethodPut, "/api/v1/application/owners",
		[]map[string]interface{}{
			{"firstName": "Jane", "lastName": "Doe", "ownershipPercent": 160},
		})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSetFileSlot_StoresMetadata(t *testing.T) {
	router := newTestServer(t, &stubChecker{})
	enter(t, router)

	rec := doRequest(t, router, http.MethodPut, "/api/v1/application/files/voidedCheck",
		[]map[string]interface{}{
			{"id": "bin-1", "name": "check.pdf", "sizeBytes": 1024, "mimeType": "application/pdf"},
		})

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

// ==========================
// Submit Tests
// ==========================

func TestSubmit_Success(t *testing.T) {
	router := newTestServer(t, &stubChecker{})
	enter(t, router)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/application/submit", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var result intake.SubmitResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.NotNil(t, result.Record)
	assert.Equal(t, "rec-1", result.Record.ID)
}

func TestSubmit_SecondAttemptConflicts(t *testing.T) {
	router := newTestServer(t, &stubChecker{})
	enter(t, router)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/application/submit", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, http.MethodPost, "/api/v1/application/submit", nil)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "ALREADY_SUBMITTED")
}

// ==========================
// Reset and Health Tests
// ==========================

func TestReset_ClearsSessionAndDraft(t *testing.T) {
	router := newTestServer(t, &stubChecker{})
	enter(t, router)

	doRequest(t, router, http.MethodPatch, "/api/v1/application/sections/company",
		map[string]interface{}{"legalName": "Sunrise Events LLC"})

	rec := doRequest(t, router, http.MethodPost, "/api/v1/application/reset", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// The session is gone until the surface is entered again.
	rec = doRequest(t, router, http.MethodGet, "/api/v1/application/offer", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	resp := enter(t, router)
	assert.Empty(t, resp.Draft.Sections[models.SectionCompany])
}

func TestReset_AfterRedirectIsForbidden(t *testing.T) {
	router := newTestServer(t, &stubChecker{submitted: true})
	resp := enter(t, router)
	require.Equal(t, string(guard.RedirectToConfirmation), resp.Decision)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/application/reset", nil)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "ALREADY_SUBMITTED")
}

func TestReset_AfterSubmitConflicts(t *testing.T) {
	router := newTestServer(t, &stubChecker{})
	enter(t, router)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/application/submit", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, http.MethodPost, "/api/v1/application/reset", nil)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "ALREADY_SUBMITTED")
}

// ==========================
// Operator Lookup Tests
// ==========================

func TestOperatorLookup_ReturnsRecordAndDocuments(t *testing.T) {
	reader := &stubRecords{latest: &records.SubmissionRecord{
		ID: "rec-9", AccountKey: "acct-100", Status: "submitted",
	}}
	finder := &stubFinder{docs: []search.Document{
		{RecordID: "rec-9", AccountKey: "acct-100", Status: "submitted"},
	}}
	router := newTestServerWithLookup(t, &stubChecker{}, reader, finder)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/operator/submissions?accountKey=acct-100", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Record    *records.SubmissionRecord `json:"record"`
		Documents []search.Document         `json:"documents"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Record)
	assert.Equal(t, "rec-9", resp.Record.ID)
	require.Len(t, resp.Documents, 1)
	assert.Equal(t, "rec-9", resp.Documents[0].RecordID)
}

func TestOperatorLookup_RequiresAccountKey(t *testing.T) {
	router := newTestServer(t, &stubChecker{})

	rec := doRequest(t, router, http.MethodGet, "/api/v1/operator/submissions", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "MISSING_ACCOUNT_KEY")
}

func TestOperatorLookup_NothingRecorded(t *testing.T) {
	router := newTestServerWithLookup(t, &stubChecker{}, &stubRecords{}, &stubFinder{})

	rec := doRequest(t, router, http.MethodGet, "/api/v1/operator/submissions?accountKey=acct-404", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "SUBMISSION_NOT_FOUND")
}

func TestOperatorLookup_WithoutSearchServesRecordOnly(t *testing.T) {
	reader := &stubRecords{latest: &records.SubmissionRecord{
		ID: "rec-3", AccountKey: "acct-100", Status: "submitted",
	}}
	router := newTestServerWithLookup(t, &stubChecker{}, reader, nil)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/operator/submissions?accountKey=acct-100", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "rec-3")
	assert.Contains(t, rec.Body.String(), `"documents":[]`)
}

func TestHealthz(t *testing.T) {
	router := newTestServer(t, &stubChecker{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}
