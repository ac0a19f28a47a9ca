// internal/guard/status_client.go
package guard

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"origination-intake/internal/common/config"
	stderrors "origination-intake/internal/common/errors"
	commonhttp "origination-intake/internal/common/http"
)

// HTTPStatusChecker queries the origination platform's submission
// status endpoint.
type HTTPStatusChecker struct {
	baseURL    string
	httpClient *commonhttp.Client
}

type statusResponse struct {
	IsSubmitted bool `json:"isSubmitted"`
}

func NewHTTPStatusChecker(cfg config.PlatformConfig) *HTTPStatusChecker {
	return &HTTPStatusChecker{
		baseURL:    cfg.BaseURL,
		httpClient: commonhttp.NewClient(time.Duration(cfg.Timeout)*time.Millisecond, cfg.APIKey),
	}
}

func (c *HTTPStatusChecker) CheckStatus(ctx context.Context, accountKey string) (bool, error) {
	url := fmt.Sprintf("%s/applications/%s/status", c.baseURL, accountKey)

	var status statusResponse
	if _, err := c.httpClient.GetJSON(ctx, url, &status); err != nil {
		return false, stderrors.NewStatusCheckFailed(err)
	}
	return status.IsSubmitted, nil
}

// CachedStatusChecker fronts another checker with a short-lived redis
// cache. Only positive confirmations are cached: a submitted
// application never becomes unsubmitted, while a negative answer must
// stay fresh so a submission from another device is noticed.
type CachedStatusChecker struct {
	inner StatusChecker
	redis *redis.Client
	ttl   time.Duration
}

func NewCachedStatusChecker(inner StatusChecker, rdb *redis.Client, cfg config.GuardConfig) *CachedStatusChecker {
	return &CachedStatusChecker{
		inner: inner,
		redis: rdb,
		ttl:   time.Duration(cfg.StatusCacheTTL) * time.Millisecond,
	}
}

func (c *CachedStatusChecker) CheckStatus(ctx context.Context, accountKey string) (bool, error) {
	cacheKey := "intake:status:" + accountKey
	if val, err := c.redis.Get(ctx, cacheKey).Result(); err == nil {
		if submitted, parseErr := strconv.ParseBool(val); parseErr == nil && submitted {
			return true, nil
		}
	}

	submitted, err := c.inner.CheckStatus(ctx, accountKey)
	if err != nil {
		return false, err
	}
	if submitted {
		c.redis.Set(ctx, cacheKey, strconv.FormatBool(submitted), c.ttl)
	}
	return submitted, nil
}
