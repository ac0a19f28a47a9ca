// internal/search/indexer.go
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"origination-intake/internal/common/config"
	"origination-intake/internal/common/logger"
	"origination-intake/internal/records"
)

// Indexer mirrors accepted submissions into Elasticsearch so operators
// can search them. Indexing is best-effort: the postgres record is the
// source of truth and a failed index write never fails the submission.
type Indexer struct {
	client *elasticsearch.Client
	config config.SearchConfig
	logger logger.Logger
}

// Document is the searchable projection of one accepted submission.
type Document struct {
	RecordID    string  `json:"recordId"`
	AccountKey  string  `json:"accountKey"`
	RiskScore   float64 `json:"riskScore"`
	OfferAmount float64 `json:"offerAmount"`
	Status      string  `json:"status"`
	CreatedAt   string  `json:"createdAt"`
}

func NewIndexer(client *elasticsearch.Client, cfg config.SearchConfig, log logger.Logger) *Indexer {
	return &Indexer{
		client: client,
		config: cfg,
		logger: log.WithFields(map[string]interface{}{"component": "submission-indexer"}),
	}
}

// IndexSubmission writes one submission document, keyed by record ID so
// retries are idempotent.
func (i *Indexer) IndexSubmission(ctx context.Context, record *records.SubmissionRecord) error {
	if !i.config.Enabled {
		return nil
	}

	doc := Document{
		RecordID:    record.ID,
		AccountKey:  record.AccountKey,
		RiskScore:   record.RiskScore,
		OfferAmount: record.OfferAmount,
		Status:      record.Status,
		CreatedAt:   record.CreatedAt,
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal submission document: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      i.config.Index,
		DocumentID: record.ID,
		Body:       bytes.NewReader(body),
		Refresh:    "false",
	}

	res, err := req.Do(ctx, i.client)
	if err != nil {
		return fmt.Errorf("index submission: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index submission: %s", res.Status())
	}

	i.logger.Debug("submission indexed", map[string]interface{}{
		"recordId":   record.ID,
		"accountKey": record.AccountKey,
		"index":      i.config.Index,
	})
	return nil
}

// FindByAccountKey returns indexed submission documents for one
// account, newest first.
func (i *Indexer) FindByAccountKey(ctx context.Context, accountKey string) ([]Document, error) {
	if !i.config.Enabled {
		return nil, nil
	}

	query := map[string]interface{}{
		"query": map[string]interface{}{
			"term": map[string]interface{}{
				"accountKey": accountKey,
			},
		},
		"sort": []map[string]interface{}{
			{"createdAt": map[string]interface{}{"order": "desc"}},
		},
	}

	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("marshal search query: %w", err)
	}

	req := esapi.SearchRequest{
		Index: []string{i.config.Index},
		Body:  bytes.NewReader(body),
	}

	res, err := req.Do(ctx, i.client)
	if err != nil {
		return nil, fmt.Errorf("search submissions: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search submissions: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source Document `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	docs := make([]Document, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		docs = append(docs, hit.Source)
	}
	return docs, nil
}
