// internal/search/indexer_test.go
package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"origination-intake/internal/common/config"
	"origination-intake/internal/common/logger"
	"origination-intake/internal/records"
)

// ==========================
// Test Helper Functions
// ==========================

func newTestIndexer(t *testing.T, handler http.HandlerFunc) *Indexer {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{srv.URL},
	})
	require.NoError(t, err)

	cfg := config.SearchConfig{Enabled: true, Index: "submissions"}
	return NewIndexer(client, cfg, logger.NewTestLogger(t))
}

func createTestRecord() *records.SubmissionRecord {
	return &records.SubmissionRecord{
		ID:          "rec-1",
		AccountKey:  "acct-100",
		RiskScore:   16,
		OfferAmount: 150_000,
		Status:      "submitted",
		CreatedAt:   "2026-08-30T12:00:00Z",
	}
}

// ==========================
// IndexSubmission Tests
// ==========================

func TestIndexer_IndexSubmission(t *testing.T) {
	var gotPath string
	var gotDoc Document
	indexer := newTestIndexer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotDoc)
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result": "created"}`))
	})

	err := indexer.IndexSubmission(context.Background(), createTestRecord())

	require.NoError(t, err)
	assert.Equal(t, "/submissions/_doc/rec-1", gotPath)
	assert.Equal(t, "acct-100", gotDoc.AccountKey)
	assert.Equal(t, 150_000.0, gotDoc.OfferAmount)
}

func TestIndexer_IndexSubmission_ServerError(t *testing.T) {
	indexer := newTestIndexer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	err := indexer.IndexSubmission(context.Background(), createTestRecord())

	assert.Error(t, err)
}

func TestIndexer_DisabledIsNoOp(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)

	indexer := NewIndexer(client, config.SearchConfig{Enabled: false}, logger.NewTestLogger(t))

	require.NoError(t, indexer.IndexSubmission(context.Background(), createTestRecord()))

	docs, err := indexer.FindByAccountKey(context.Background(), "acct-100")
	require.NoError(t, err)
	assert.Nil(t, docs)
	assert.False(t, called)
}

// ==========================
// FindByAccountKey Tests
// ==========================

func TestIndexer_FindByAccountKey(t *testing.T) {
	indexer := newTestIndexer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/submissions/_search", r.URL.Path)
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		_, _ = w.Write([]byte(`{
			"hits": {
				"hits": [
					{"_source": {"recordId": "rec-2", "accountKey": "acct-100", "offerAmount": 250000}},
					{"_source": {"recordId": "rec-1", "accountKey": "acct-100", "offerAmount": 150000}}
				]
			}
		}`))
	})

	docs, err := indexer.FindByAccountKey(context.Background(), "acct-100")

	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "rec-2", docs[0].RecordID)
	assert.Equal(t, 250_000.0, docs[0].OfferAmount)
}
