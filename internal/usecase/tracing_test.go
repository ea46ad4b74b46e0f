package usecase

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	domainErrors "github.com/dmarkhas/loyaltycore/internal/domain/errors"
	"github.com/dmarkhas/loyaltycore/internal/domain/model"
	testhelpers "github.com/dmarkhas/loyaltycore/internal/test"
)

// The otel global delegates already-created tracers only to the first
// provider ever set, so all tracing tests share one provider and attach a
// per-test recorder as an extra span processor.
var testTracerProvider *sdktrace.TracerProvider

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	if testTracerProvider == nil {
		testTracerProvider = sdktrace.NewTracerProvider()
		otel.SetTracerProvider(testTracerProvider)
	}
	recorder := tracetest.NewSpanRecorder()
	testTracerProvider.RegisterSpanProcessor(recorder)
	t.Cleanup(func() { testTracerProvider.UnregisterSpanProcessor(recorder) })
	return recorder
}

func TestPointsMutationsEmitSpans(t *testing.T) {
	recorder := recordSpans(t)
	uc := newPointsUseCase(&testhelpers.LedgerRepositoryStub{Balance: 100}, nil, nil)

	future := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	if _, err := uc.Earn(context.Background(), "m1", 50, future, "ref"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	spans := recorder.Ended()
	if len(spans) != 1 || spans[0].Name() != "points.earn" {
		t.Fatalf("expected points.earn span, got %v", spans)
	}
	var memberAttr bool
	for _, attr := range spans[0].Attributes() {
		if attr.Key == attribute.Key("member.id") && attr.Value.AsString() == "m1" {
			memberAttr = true
		}
	}
	if !memberAttr {
		t.Fatalf("expected member.id attribute, got %v", spans[0].Attributes())
	}
	if spans[0].Status().Code != codes.Unset {
		t.Fatalf("unexpected status: %v", spans[0].Status())
	}
}

func TestFailedMutationMarksSpan(t *testing.T) {
	recorder := recordSpans(t)
	ledger := &testhelpers.LedgerRepositoryStub{
		AppendUseFn: func(context.Context, string, int64, string) (*model.PointsTransaction, error) {
			return nil, domainErrors.ErrInsufficientPoints
		},
	}
	uc := newPointsUseCase(ledger, nil, nil)

	if _, err := uc.Use(context.Background(), "m1", 999, ""); err == nil {
		t.Fatal("expected error")
	}

	spans := recorder.Ended()
	if len(spans) != 1 || spans[0].Name() != "points.use" {
		t.Fatalf("expected points.use span, got %v", spans)
	}
	if spans[0].Status().Code != codes.Error {
		t.Fatalf("expected error status, got %v", spans[0].Status())
	}
	if len(spans[0].Events()) == 0 {
		t.Fatal("expected the error recorded on the span")
	}
}
