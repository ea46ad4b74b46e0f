package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	domainErrors "github.com/dmarkhas/loyaltycore/internal/domain/errors"
)

// ReconcileFacade exposes the subset of application functionality required
// by the reconciler.
type ReconcileFacade interface {
	MembersForReconciliation(ctx context.Context, limit int) ([]string, error)
	ReconcileMember(ctx context.Context, memberID string) error
}

// Reconciler periodically cross-checks recently mutated members' ledgers
// against their balance snapshots and batch remainders.
type Reconciler struct {
	facade        ReconcileFacade
	sweepInterval time.Duration
	batchSize     int
	logger        *slog.Logger

	wg     sync.WaitGroup
	cancel context.CancelFunc
	mu     sync.Mutex
}

// NewReconciler constructs the reconciliation sweeper.
func NewReconciler(facade ReconcileFacade, sweepInterval time.Duration, batchSize int, logger *slog.Logger) *Reconciler {
	if batchSize <= 0 {
		batchSize = 1
	}
	return &Reconciler{
		facade:        facade,
		sweepInterval: sweepInterval,
		batchSize:     batchSize,
		logger:        logger,
	}
}

// Start launches background sweeping.
func (r *Reconciler) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	r.wg.Add(1)
	go r.run(runCtx)
}

// Stop waits for the sweeper to finish.
func (r *Reconciler) Stop() {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.mu.Unlock()

	r.wg.Wait()
}

func (r *Reconciler) run(ctx context.Context) {
	defer r.wg.Done()
	ticker := time.NewTicker(r.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

func (r *Reconciler) sweep(ctx context.Context) {
	members, err := r.facade.MembersForReconciliation(ctx, r.batchSize)
	if err != nil {
		r.logger.Error("fetch members for reconciliation failed", slog.String("error", err.Error()))
		return
	}

	for _, memberID := range members {
		if ctx.Err() != nil {
			return
		}
		err := r.facade.ReconcileMember(ctx, memberID)
		switch {
		case err == nil:
		case errors.Is(err, domainErrors.ErrConcurrentOperation):
			r.logger.Debug("member busy, skipping reconciliation", slog.String("member", memberID))
		case errors.Is(err, domainErrors.ErrDataIntegrity):
			r.logger.Error("ledger mismatch, member placed under hold", slog.String("member", memberID), slog.String("error", err.Error()))
		default:
			r.logger.Error("reconciliation failed", slog.String("member", memberID), slog.String("error", err.Error()))
		}
	}
}
