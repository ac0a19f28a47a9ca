// internal/platform/client.go
package platform

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"origination-intake/internal/common/config"
	stderrors "origination-intake/internal/common/errors"
	commonhttp "origination-intake/internal/common/http"
	"origination-intake/internal/common/logger"
	"origination-intake/internal/models"
)

// Client talks to the upstream origination platform, which owns the
// server-side copy of the application. Transport errors are surfaced as
// transient failures and never interpreted: the caller decides whether
// to fail open (status checks) or closed (save and submit).
type Client struct {
	baseURL    string
	httpClient *commonhttp.Client
	logger     logger.Logger
}

type ackResponse struct {
	Accepted bool   `json:"accepted"`
	Message  string `json:"message,omitempty"`
}

func NewClient(cfg config.PlatformConfig, log logger.Logger) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: commonhttp.NewClient(time.Duration(cfg.Timeout)*time.Millisecond, cfg.APIKey),
		logger:     log.WithFields(map[string]interface{}{"component": "platform-client"}),
	}
}

// LoadCurrent fetches the platform's copy of the in-progress
// application. A 404 means no server-side draft exists yet and is not
// an error.
func (c *Client) LoadCurrent(ctx context.Context, accountKey string) (*models.ApplicationDraft, error) {
	url := fmt.Sprintf("%s/applications/%s", c.baseURL, accountKey)

	var draft models.ApplicationDraft
	status, err := c.httpClient.GetJSON(ctx, url, &draft)
	if status == http.StatusNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, stderrors.NewTransientRemoteFailure("loadCurrent", err)
	}
	return &draft, nil
}

// Save pushes the current draft to the platform.
func (c *Client) Save(ctx context.Context, draft *models.ApplicationDraft) error {
	url := fmt.Sprintf("%s/applications/%s", c.baseURL, draft.AccountKey)
	return c.postDraft(ctx, "save", http.MethodPut, url, draft)
}

// Submit asks the platform to accept the application as final. The
// caller must not set any local submitted state until this returns nil.
func (c *Client) Submit(ctx context.Context, draft *models.ApplicationDraft) error {
	url := fmt.Sprintf("%s/applications/%s/submit", c.baseURL, draft.AccountKey)
	return c.postDraft(ctx, "submit", http.MethodPost, url, draft)
}

func (c *Client) postDraft(ctx context.Context, operation, method, url string, draft *models.ApplicationDraft) error {
	var ack ackResponse
	if _, err := c.httpClient.SendJSON(ctx, method, url, draft, &ack); err != nil {
		return stderrors.NewTransientRemoteFailure(operation, err)
	}
	if !ack.Accepted {
		return stderrors.NewTransientRemoteFailure(operation,
			fmt.Errorf("platform did not accept %s: %s", operation, ack.Message))
	}

	c.logger.Debug("platform call accepted", map[string]interface{}{
		"operation":  operation,
		"accountKey": draft.AccountKey,
	})
	return nil
}
