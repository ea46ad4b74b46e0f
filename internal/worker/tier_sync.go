package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dmarkhas/loyaltycore/internal/adapter/spendfeed"
	domainErrors "github.com/dmarkhas/loyaltycore/internal/domain/errors"
	"github.com/dmarkhas/loyaltycore/internal/domain/model"
)

// TierSyncFacade exposes the subset of application functionality required by
// the tier synchronizer.
type TierSyncFacade interface {
	SpendUpdates(ctx context.Context, since time.Time) ([]model.SpendUpdate, error)
	ApplySpend(ctx context.Context, memberID string, spend decimal.Decimal) (*model.Member, error)
}

// TierSync polls the spend feed and folds refreshed lifetime spend figures
// into tier evaluation. The watermark only advances past updates that were
// applied, so a contended member is retried on the next poll.
type TierSync struct {
	facade       TierSyncFacade
	pollInterval time.Duration
	logger       *slog.Logger

	watermark time.Time

	wg     sync.WaitGroup
	cancel context.CancelFunc
	mu     sync.Mutex
}

// NewTierSync constructs the spend feed poller.
func NewTierSync(facade TierSyncFacade, pollInterval time.Duration, logger *slog.Logger) *TierSync {
	return &TierSync{
		facade:       facade,
		pollInterval: pollInterval,
		logger:       logger,
	}
}

// Start launches background polling.
func (s *TierSync) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.run(runCtx)
}

// Stop waits for the poller to finish.
func (s *TierSync) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *TierSync) run(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.poll(ctx)
		}
	}
}

func (s *TierSync) poll(ctx context.Context) {
	updates, err := s.facade.SpendUpdates(ctx, s.watermark)
	if err != nil {
		var tm spendfeed.TooManyRequestsError
		if errors.As(err, &tm) {
			s.logger.Warn("spend feed rate limited", slog.Duration("retry_after", tm.RetryAfter))
			// honor the backoff but let Stop interrupt it
			timer := time.NewTimer(tm.RetryAfter)
			defer timer.Stop()
			select {
			case <-ctx.Done():
			case <-timer.C:
			}
			return
		}
		s.logger.Error("spend feed poll failed", slog.String("error", err.Error()))
		return
	}

	for _, update := range updates {
		if ctx.Err() != nil {
			return
		}
		if _, err := s.facade.ApplySpend(ctx, update.MemberID, update.LifetimeSpend); err != nil {
			if errors.Is(err, domainErrors.ErrConcurrentOperation) {
				s.logger.Debug("member busy, retrying spend update next poll", slog.String("member", update.MemberID))
			} else {
				s.logger.Error("apply spend update failed", slog.String("member", update.MemberID), slog.String("error", err.Error()))
			}
			return
		}
		if update.UpdatedAt.After(s.watermark) {
			s.watermark = update.UpdatedAt
		}
	}
}
