// Herald - Notification Pipeline and Delivery Workers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/herald

package recipients

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/herald/internal/broker"
	"github.com/tomtom215/herald/internal/config"
	"github.com/tomtom215/herald/internal/logging"
	"github.com/tomtom215/herald/internal/metrics"
	"github.com/tomtom215/herald/internal/models"
)

// ErrUnexpectedStatus is returned for any reply other than 200 OK.
var ErrUnexpectedStatus = errors.New("unexpected auth service status")

// maxResponseBytes bounds a user-info reply (100 users per batch).
const maxResponseBytes = 8 << 20

// Provider looks up recipients. Unknown ids are omitted from the result,
// which keeps the provider's order.
type Provider interface {
	Lookup(ctx context.Context, requestID string, userIDs []uuid.UUID) ([]models.UserInfo, error)
}

type lookupRequest struct {
	UserIDs []uuid.UUID `json:"user_ids"`
}

type lookupResponse struct {
	UsersInfo []models.UserInfo `json:"users_info"`
}

// Client is the HTTP Provider for the auth service.
type Client struct {
	endpoint   string
	secret     string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[[]models.UserInfo]
}

// NewClient creates a client from cfg. A nil httpClient gets one with
// cfg.Timeout.
func NewClient(cfg *config.RecipientsConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}

	return &Client{
		endpoint:   strings.TrimRight(cfg.URL, "/") + cfg.Path,
		secret:     cfg.Secret,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(limit, max(cfg.Burst, 1)),
		breaker:    broker.NewCircuitBreaker[[]models.UserInfo](broker.DefaultCircuitBreakerConfig("auth-userinfo")),
	}
}

// Lookup implements Provider.
func (c *Client) Lookup(ctx context.Context, requestID string, userIDs []uuid.UUID) ([]models.UserInfo, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	start := time.Now()
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("auth service rate limit: %w", err)
	}

	users, err := c.breaker.Execute(func() ([]models.UserInfo, error) {
		return c.do(ctx, requestID, userIDs)
	})
	metrics.RecordRecipientsLookup(time.Since(start), len(userIDs), len(users), err)
	if err != nil {
		return nil, broker.NewRetryableError("auth service lookup", err)
	}

	if len(users) < len(userIDs) {
		logging.Debug().
			Str("request_id", requestID).
			Int("requested", len(userIDs)).
			Int("resolved", len(users)).
			Msg("some recipients not found")
	}
	return users, nil
}

func (c *Client) do(ctx context.Context, requestID string, userIDs []uuid.UUID) ([]models.UserInfo, error) {
	body, err := json.Marshal(lookupRequest{UserIDs: userIDs})
	if err != nil {
		return nil, fmt.Errorf("encode user-info request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.secret)
	req.Header.Set("X-Request-Id", requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	var out lookupResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode user-info response: %w", err)
	}

	users := out.UsersInfo[:0]
	for _, u := range out.UsersInfo {
		if u.UserID == uuid.Nil {
			continue
		}
		users = append(users, u)
	}
	return users, nil
}
