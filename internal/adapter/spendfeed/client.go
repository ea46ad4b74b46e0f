// Package spendfeed pulls lifetime spend figures from the external spend
// aggregation service.
package spendfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dmarkhas/loyaltycore/internal/domain/model"
)

// TooManyRequestsError represents a rate limiting signal from the feed.
type TooManyRequestsError struct {
	RetryAfter time.Duration
}

func (e TooManyRequestsError) Error() string {
	return fmt.Sprintf("too many requests, retry after %s", e.RetryAfter)
}

// Client exposes operations to query the spend aggregation service.
type Client interface {
	Updates(ctx context.Context, since time.Time) ([]model.SpendUpdate, error)
}

// HTTPClient implements Client via HTTP API.
type HTTPClient struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *slog.Logger
}

// response mirrors one JSON entry from the spend feed.
type response struct {
	MemberID      string    `json:"member_id"`
	LifetimeSpend string    `json:"lifetime_spend"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewHTTPClient creates an HTTP spend feed client with default timeout.
func NewHTTPClient(baseURL string, logger *slog.Logger) (*HTTPClient, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse spend feed url: %w", err)
	}
	if !parsed.IsAbs() {
		return nil, fmt.Errorf("spend feed url must be absolute")
	}
	return &HTTPClient{
		baseURL: parsed,
		logger:  logger,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}, nil
}

// Updates fetches spend figures refreshed after the given watermark, sorted
// by update time ascending.
func (c *HTTPClient) Updates(ctx context.Context, since time.Time) ([]model.SpendUpdate, error) {
	endpoint := *c.baseURL
	endpoint.Path = path.Join(endpoint.Path, "/api/spend")
	query := endpoint.Query()
	query.Set("since", since.UTC().Format(time.RFC3339Nano))
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		var entries []response
		if err := json.Unmarshal(body, &entries); err != nil {
			return nil, err
		}
		updates := make([]model.SpendUpdate, 0, len(entries))
		for _, entry := range entries {
			spend, err := decimal.NewFromString(entry.LifetimeSpend)
			if err != nil {
				return nil, fmt.Errorf("member %q: invalid lifetime spend %q: %w", entry.MemberID, entry.LifetimeSpend, err)
			}
			updates = append(updates, model.SpendUpdate{
				MemberID:      entry.MemberID,
				LifetimeSpend: spend,
				UpdatedAt:     entry.UpdatedAt,
			})
		}
		return updates, nil
	case http.StatusNoContent:
		return nil, nil
	case http.StatusTooManyRequests:
		retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
		return nil, TooManyRequestsError{RetryAfter: retryAfter}
	default:
		body, _ := io.ReadAll(resp.Body)
		c.logger.Error("spend feed request failed", slog.Int("status", resp.StatusCode), slog.String("body", string(body)))
		return nil, fmt.Errorf("spend feed error: %s", resp.Status)
	}
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 5 * time.Second
	}
	if seconds, err := strconv.Atoi(header); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(header); err == nil {
		return time.Until(t)
	}
	return 5 * time.Second
}
