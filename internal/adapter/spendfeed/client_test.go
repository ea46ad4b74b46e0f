package spendfeed

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestNewHTTPClientValidatesURL(t *testing.T) {
	if _, err := NewHTTPClient("://bad-url", testLogger()); err == nil {
		t.Fatal("expected error for invalid url")
	}
	if _, err := NewHTTPClient("/relative", testLogger()); err == nil {
		t.Fatal("expected error for relative url")
	}
}

func TestUpdatesParsesEntries(t *testing.T) {
	since := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("since"); got != since.Format(time.RFC3339Nano) {
			t.Errorf("unexpected since parameter %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
            {"member_id":"m1","lifetime_spend":"1250.50","updated_at":"2025-06-01T10:00:00Z"},
            {"member_id":"m2","lifetime_spend":"90","updated_at":"2025-06-01T11:00:00Z"}
        ]`))
	}))
	defer srv.Close()

	client, err := NewHTTPClient(srv.URL, testLogger())
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	updates, err := client.Updates(context.Background(), since)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(updates) != 2 {
		t.Fatalf("expected 2 updates, got %d", len(updates))
	}
	if updates[0].MemberID != "m1" || !updates[0].LifetimeSpend.Equal(decimal.RequireFromString("1250.50")) {
		t.Fatalf("unexpected first update: %+v", updates[0])
	}
	if updates[1].UpdatedAt != time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC) {
		t.Fatalf("unexpected second update time: %v", updates[1].UpdatedAt)
	}
}

func TestUpdatesRejectsBadSpend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"member_id":"m1","lifetime_spend":"not-a-number","updated_at":"2025-06-01T10:00:00Z"}]`))
	}))
	defer srv.Close()

	client, err := NewHTTPClient(srv.URL, testLogger())
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	if _, err := client.Updates(context.Background(), time.Now()); err == nil {
		t.Fatal("expected error for invalid spend figure")
	}
}

func TestUpdatesHandlesSpecialStatuses(t *testing.T) {
	t.Run("no content", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))
		defer srv.Close()

		client, err := NewHTTPClient(srv.URL, testLogger())
		if err != nil {
			t.Fatalf("failed to create client: %v", err)
		}
		updates, err := client.Updates(context.Background(), time.Now())
		if err != nil || updates != nil {
			t.Fatalf("expected empty result, got %v err=%v", updates, err)
		}
	})

	t.Run("too many requests", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", "5")
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()

		client, err := NewHTTPClient(srv.URL, testLogger())
		if err != nil {
			t.Fatalf("failed to create client: %v", err)
		}
		_, err = client.Updates(context.Background(), time.Now())
		var tm TooManyRequestsError
		if !errors.As(err, &tm) {
			t.Fatalf("expected TooManyRequestsError, got %v", err)
		}
		if tm.RetryAfter != 5*time.Second {
			t.Fatalf("expected retry after 5s, got %v", tm.RetryAfter)
		}
	})
}

func TestUpdatesLogsErrorResponses(t *testing.T) {
	called := make(chan struct{}, 1)
	handler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
		if a.Key == slog.LevelKey && a.Value.Any() == slog.LevelError {
			select {
			case called <- struct{}{}:
			default:
			}
		}
		return a
	}})
	logger := slog.New(handler)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client, err := NewHTTPClient(srv.URL, logger)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	if _, err := client.Updates(context.Background(), time.Now()); err == nil {
		t.Fatal("expected error from server")
	}

	select {
	case <-called:
	case <-time.After(time.Second):
		t.Fatal("expected error log to be written")
	}
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Now()
	httpTime := now.Add(2 * time.Second).UTC().Format(http.TimeFormat)

	cases := []struct {
		name   string
		header string
		want   time.Duration
	}{
		{name: "empty", header: "", want: 5 * time.Second},
		{name: "seconds", header: "7", want: 7 * time.Second},
		{name: "http date", header: httpTime, want: 2 * time.Second},
		{name: "fallback", header: "bad", want: 5 * time.Second},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := parseRetryAfter(tc.header)
			if tc.header == httpTime {
				if got <= time.Second || got > 3*time.Second {
					t.Fatalf("unexpected retry duration %v", got)
				}
			} else if got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}
