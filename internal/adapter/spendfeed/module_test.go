package spendfeed

import (
	"io"
	"log/slog"
	"testing"

	"github.com/dmarkhas/loyaltycore/internal/config"
)

func TestNewClientUsesConfig(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	cfg := &config.Config{SpendFeedAddress: "http://example.com"}
	client, err := newClient(clientParams{Config: cfg, Logger: logger})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client == nil {
		t.Fatal("expected client instance")
	}
}

func TestNewClientWithoutAddress(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	client, err := newClient(clientParams{Config: &config.Config{}, Logger: logger})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client != nil {
		t.Fatal("expected nil client when feed is not configured")
	}
}
