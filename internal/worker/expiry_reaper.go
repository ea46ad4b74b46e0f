package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	domainErrors "github.com/dmarkhas/loyaltycore/internal/domain/errors"
	"github.com/dmarkhas/loyaltycore/internal/domain/model"
)

// ExpiryFacade exposes the subset of application functionality required by
// the reaper.
type ExpiryFacade interface {
	ExpiredBatchCandidates(ctx context.Context, limit int) ([]model.PointsBatch, error)
	ExpireBatch(ctx context.Context, batchID int64) (*model.PointsTransaction, error)
}

// ExpiryReaper periodically sweeps overdue batches and retires them
// concurrently. Batches whose member is locked or on hold are skipped and
// picked up again on a later sweep, so restarts and races lose no work.
type ExpiryReaper struct {
	facade        ExpiryFacade
	sweepInterval time.Duration
	batchSize     int
	workers       int
	logger        *slog.Logger

	jobs   chan model.PointsBatch
	wg     sync.WaitGroup
	cancel context.CancelFunc
	mu     sync.Mutex
}

// NewExpiryReaper constructs the reaper worker pool.
func NewExpiryReaper(facade ExpiryFacade, sweepInterval time.Duration, batchSize, workers int, logger *slog.Logger) *ExpiryReaper {
	if workers <= 0 {
		workers = 1
	}
	if batchSize <= 0 {
		batchSize = 1
	}
	return &ExpiryReaper{
		facade:        facade,
		sweepInterval: sweepInterval,
		batchSize:     batchSize,
		workers:       workers,
		logger:        logger,
		jobs:          make(chan model.PointsBatch, batchSize*workers),
	}
}

// Start launches background sweeping.
func (r *ExpiryReaper) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	for i := 0; i < r.workers; i++ {
		r.wg.Add(1)
		go r.worker(runCtx)
	}

	r.wg.Add(1)
	go r.dispatch(runCtx)
}

// Stop waits for all workers to finish.
func (r *ExpiryReaper) Stop() {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.mu.Unlock()

	r.wg.Wait()
}

func (r *ExpiryReaper) dispatch(ctx context.Context) {
	defer r.wg.Done()
	defer close(r.jobs)
	ticker := time.NewTicker(r.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.fetchAndDispatch(ctx)
		}
	}
}

func (r *ExpiryReaper) fetchAndDispatch(ctx context.Context) {
	batches, err := r.facade.ExpiredBatchCandidates(ctx, r.batchSize)
	if err != nil {
		r.logger.Error("fetch expired batch candidates failed", slog.String("error", err.Error()))
		return
	}
	for _, batch := range batches {
		select {
		case <-ctx.Done():
			return
		case r.jobs <- batch:
		}
	}
}

func (r *ExpiryReaper) worker(ctx context.Context) {
	defer r.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case batch, ok := <-r.jobs:
			if !ok {
				return
			}
			r.handleBatch(ctx, batch)
		}
	}
}

func (r *ExpiryReaper) handleBatch(ctx context.Context, batch model.PointsBatch) {
	tx, err := r.facade.ExpireBatch(ctx, batch.ID)
	if err != nil {
		switch {
		case errors.Is(err, domainErrors.ErrConcurrentOperation):
			// member is busy; the batch stays due and the next sweep
			// picks it up
			r.logger.Debug("batch owner locked, skipping", slog.Int64("batch", batch.ID))
		case errors.Is(err, domainErrors.ErrIntegrityHold):
			r.logger.Warn("batch owner under integrity hold", slog.Int64("batch", batch.ID), slog.String("member", batch.MemberID))
		case errors.Is(err, domainErrors.ErrNotFound):
			r.logger.Warn("expired batch vanished", slog.Int64("batch", batch.ID))
		default:
			r.logger.Error("expire batch failed", slog.Int64("batch", batch.ID), slog.String("error", err.Error()))
		}
		return
	}
	if tx == nil {
		// another sweep already retired it
		return
	}
	r.logger.Info("batch expired",
		slog.Int64("batch", batch.ID),
		slog.String("member", tx.MemberID),
		slog.Int64("points", -tx.PointsDelta),
	)
}
