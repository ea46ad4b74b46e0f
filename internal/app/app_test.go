package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/dmarkhas/loyaltycore/internal/config"
	testhelpers "github.com/dmarkhas/loyaltycore/internal/test"
	"github.com/dmarkhas/loyaltycore/internal/worker"
)

func testWorkers() (*worker.ExpiryReaper, *worker.Reconciler, *worker.TierSync) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	reaper := worker.NewExpiryReaper(&testhelpers.ExpiryFacadeStub{}, 10*time.Millisecond, 1, 1, logger)
	reconciler := worker.NewReconciler(&testhelpers.ReconcileFacadeStub{}, 10*time.Millisecond, 1, logger)
	tierSync := worker.NewTierSync(&testhelpers.TierSyncFacadeStub{}, 10*time.Millisecond, logger)
	return reaper, reconciler, tierSync
}

func TestNewHTTPServer(t *testing.T) {
	cfg := &config.Config{RunAddress: ":9999"}
	router := gin.New()
	server := newHTTPServer(serverParams{Config: cfg, Router: router})
	if server.Addr != ":9999" {
		t.Fatalf("expected address :9999, got %q", server.Addr)
	}
	if server.Handler != router {
		t.Fatalf("expected handler to be router")
	}
}

func TestWorkerConstructorsUseConfig(t *testing.T) {
	params := workerParams{
		Facade: &LoyaltyFacade{},
		Config: &config.Config{
			ReaperInterval:     15 * time.Second,
			ReaperBatchSize:    3,
			ReaperWorkers:      4,
			ReconcileInterval:  time.Minute,
			ReconcileBatchSize: 8,
			SpendPollInterval:  30 * time.Second,
		},
		Logger: slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
	if newExpiryReaper(params) == nil {
		t.Fatal("expected expiry reaper instance")
	}
	if newReconciler(params) == nil {
		t.Fatal("expected reconciler instance")
	}
	if newTierSync(params) == nil {
		t.Fatal("expected tier sync instance")
	}
}

func TestRegisterLifecycleStartStop(t *testing.T) {
	recorder := &testhelpers.LifecycleRecorder{}
	shutdowner := &testhelpers.ShutdownerStub{Called: make(chan struct{}, 1)}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	server := &http.Server{Addr: "127.0.0.1:0", Handler: http.NewServeMux()}
	reaper, reconciler, tierSync := testWorkers()
	cfg := &config.Config{ShutdownTimeout: 100 * time.Millisecond}

	registerLifecycle(lifecycleParams{
		Lifecycle:  recorder,
		Shutdowner: shutdowner,
		Logger:     logger,
		Server:     server,
		Facade:     &LoyaltyFacade{},
		Reaper:     reaper,
		Reconciler: reconciler,
		TierSync:   tierSync,
		Config:     cfg,
	})

	if len(recorder.Hooks) != 1 {
		t.Fatalf("expected one hook registered, got %d", len(recorder.Hooks))
	}

	hook := recorder.Hooks[0]
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := hook.OnStart(ctx); err != nil {
		t.Fatalf("on start failed: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = hook.OnStop(context.Background())
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected on stop to finish")
	}
}

func TestRegisterLifecycleShutdownOnServerError(t *testing.T) {
	recorder := &testhelpers.LifecycleRecorder{}
	shutdowner := &testhelpers.ShutdownerStub{Called: make(chan struct{}, 1)}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	server := &http.Server{Addr: "bad addr"}
	reaper, reconciler, tierSync := testWorkers()

	registerLifecycle(lifecycleParams{
		Lifecycle:  recorder,
		Shutdowner: shutdowner,
		Logger:     logger,
		Server:     server,
		Facade:     &LoyaltyFacade{},
		Reaper:     reaper,
		Reconciler: reconciler,
		TierSync:   tierSync,
		Config:     &config.Config{ShutdownTimeout: time.Second},
	})

	hook := recorder.Hooks[0]
	if err := hook.OnStart(context.Background()); err != nil {
		t.Fatalf("on start returned error: %v", err)
	}

	select {
	case <-shutdowner.Called:
	case <-time.After(time.Second):
		t.Fatal("expected shutdown to be triggered on server error")
	}

	_ = hook.OnStop(context.Background())
}

func TestExpiryFacadeStubRecording(t *testing.T) {
	facade := &testhelpers.ExpiryFacadeStub{}
	if _, err := facade.ExpireBatch(context.Background(), 7); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(facade.Expired) != 1 || facade.Expired[0] != 7 {
		t.Fatalf("expected expiry to be recorded, got %v", facade.Expired)
	}
}

func TestLifecycleRecorderAppend(t *testing.T) {
	recorder := &testhelpers.LifecycleRecorder{}
	hook := fx.Hook{}
	recorder.Append(hook)
	if len(recorder.Hooks) != 1 {
		t.Fatalf("expected hook to be appended")
	}
}

func TestShutdownerStub(t *testing.T) {
	shutdowner := &testhelpers.ShutdownerStub{Called: make(chan struct{}, 1)}
	if err := shutdowner.Shutdown(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	select {
	case <-shutdowner.Called:
	default:
		t.Fatal("expected shutdown notification")
	}
}
