// Package identity consumes the external user service through the one narrow
// capability the core needs: resolve a user id to a display profile.
package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/voxsynq/realtime/internal/apperr"
	"github.com/voxsynq/realtime/internal/httpx"
	"github.com/voxsynq/realtime/internal/model"
)

// Resolver yields the profile behind a stable user id. A NotFound error means
// the identity does not exist; Unavailable means the lookup itself failed.
type Resolver interface {
	Resolve(ctx context.Context, userID string) (*model.Profile, error)
}

type Client struct {
	baseURL string
	http    *httpx.Client
	breaker *gobreaker.CircuitBreaker
	timeout time.Duration
	log     *zap.SugaredLogger
}

func NewClient(baseURL string, timeout time.Duration, log *zap.SugaredLogger) *Client {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "identity-service",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return &Client{
		baseURL: baseURL,
		http: httpx.NewClient(httpx.ClientConfig{
			Timeout:         timeout,
			RetryMaxElapsed: timeout,
			MaxIdleConns:    32,
			IdleConnTimeout: 90 * time.Second,
		}),
		breaker: cb,
		timeout: timeout,
		log:     log,
	}
}

func (c *Client) Resolve(ctx context.Context, userID string) (*model.Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/users/"+userID, nil)
		if err != nil {
			return nil, err
		}
		resp, err := c.http.DoWithRetry(ctx, req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusNotFound {
			return nil, apperr.NotFound("user not found: " + userID)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, apperr.Unavailable("identity lookup failed")
		}
		var p model.Profile
		if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
			return nil, err
		}
		return &p, nil
	})
	if err != nil {
		if apperr.IsCode(err, apperr.CodeNotFound) {
			return nil, err
		}
		c.log.Warnw("identity resolve failed", "user", userID, "err", err)
		return nil, apperr.Wrap(apperr.CodeUnavailable, "identity service unavailable", err)
	}
	return out.(*model.Profile), nil
}

// Placeholder is the degraded profile used when display enrichment fails but
// the operation itself must proceed.
func Placeholder(userID string) *model.Profile {
	return &model.Profile{ID: userID, Username: "unknown"}
}
