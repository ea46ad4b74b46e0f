package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmarkhas/loyaltycore/internal/config"
	domainErrors "github.com/dmarkhas/loyaltycore/internal/domain/errors"
	"github.com/dmarkhas/loyaltycore/internal/domain/model"
	"github.com/dmarkhas/loyaltycore/internal/domain/repository"
	"github.com/dmarkhas/loyaltycore/internal/events"
	"github.com/dmarkhas/loyaltycore/internal/lock"
	"github.com/dmarkhas/loyaltycore/internal/tiers"
)

// TierUseCase evaluates the tier ladder against lifetime spend. Automatic
// evaluation only moves members up; manual overrides may set any tier.
// Tier evaluation holds its own lock so it never contends with point
// mutations for the same member.
type TierUseCase struct {
	members   repository.MemberRepository
	changes   repository.TierChangeRepository
	ladder    *tiers.Set
	guard     lock.Guard
	publisher *events.Publisher
	lockTTL   time.Duration
}

// NewTierUseCase constructs TierUseCase.
func NewTierUseCase(members repository.MemberRepository, changes repository.TierChangeRepository, ladder *tiers.Set, guard lock.Guard, publisher *events.Publisher, cfg *config.Config) *TierUseCase {
	return &TierUseCase{
		members:   members,
		changes:   changes,
		ladder:    ladder,
		guard:     guard,
		publisher: publisher,
		lockTTL:   cfg.LockTTL,
	}
}

func (u *TierUseCase) withTierLock(ctx context.Context, memberID string, fn func() error) error {
	key := lock.TierKey(memberID)
	token, err := u.guard.Acquire(ctx, key, u.lockTTL)
	if err != nil {
		return err
	}
	defer func() {
		_ = u.guard.Release(ctx, key, token)
	}()
	return fn()
}

// ApplySpend folds a refreshed lifetime spend figure into the member
// projection and promotes the member when a higher tier's threshold is met.
// Spend figures arriving out of order cannot demote: the stored lifetime
// spend is monotonic and automatic evaluation is upgrade-only.
func (u *TierUseCase) ApplySpend(ctx context.Context, memberID string, spend decimal.Decimal) (_ *model.Member, err error) {
	ctx, span := tracer.Start(ctx, "tier.apply_spend", trace.WithAttributes(
		attribute.String("member.id", memberID),
	))
	defer func() { endSpan(span, err) }()

	var result *model.Member
	err = u.withTierLock(ctx, memberID, func() error {
		member, err := u.members.UpsertSpend(ctx, memberID, spend)
		if err != nil {
			return err
		}

		current := u.ladder.Base()
		if member.TierID != "" {
			if current, err = u.ladder.ByID(member.TierID); err != nil {
				return err
			}
		}

		target := u.ladder.Highest(member.LifetimeSpend)
		if target.Rank > current.Rank {
			record, err := u.changes.Transition(ctx, memberID, current.ID, target.ID, model.TierChangeReasonAutoUpgrade)
			if err != nil {
				return err
			}
			u.publisher.Publish(events.TierChangeEvent{
				MemberID:  memberID,
				OldTierID: current.ID,
				NewTierID: target.ID,
				Reason:    model.TierChangeReasonAutoUpgrade,
				ChangedAt: record.ChangedAt,
			})
			member.TierID = target.ID
		} else if member.TierID == "" {
			// first contact: pin the base tier without an audit record
			if err := u.members.SetTier(ctx, memberID, current.ID); err != nil {
				return err
			}
			member.TierID = current.ID
		}

		result = member
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SetTierManual applies an administrative tier override, up or down.
func (u *TierUseCase) SetTierManual(ctx context.Context, memberID, tierID string) (_ *model.TierChangeRecord, err error) {
	ctx, span := tracer.Start(ctx, "tier.set_manual", trace.WithAttributes(
		attribute.String("member.id", memberID),
		attribute.String("tier.id", tierID),
	))
	defer func() { endSpan(span, err) }()

	target, err := u.ladder.ByID(tierID)
	if err != nil {
		return nil, err
	}

	var result *model.TierChangeRecord
	err = u.withTierLock(ctx, memberID, func() error {
		oldTierID := u.ladder.Base().ID
		member, err := u.members.Get(ctx, memberID)
		switch {
		case err == nil:
			if member.TierID != "" {
				oldTierID = member.TierID
			}
		case errors.Is(err, domainErrors.ErrNotFound):
			// override may create the projection row
		default:
			return err
		}

		record, err := u.changes.Transition(ctx, memberID, oldTierID, target.ID, model.TierChangeReasonManual)
		if err != nil {
			return err
		}
		u.publisher.Publish(events.TierChangeEvent{
			MemberID:  memberID,
			OldTierID: oldTierID,
			NewTierID: target.ID,
			Reason:    model.TierChangeReasonManual,
			ChangedAt: record.ChangedAt,
		})
		result = record
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CurrentTier resolves the member's tier, defaulting to base when the
// projection predates tier evaluation.
func (u *TierUseCase) CurrentTier(ctx context.Context, memberID string) (model.Tier, *model.Member, error) {
	member, err := u.members.Get(ctx, memberID)
	if err != nil {
		return model.Tier{}, nil, err
	}
	if member.TierID == "" {
		return u.ladder.Base(), member, nil
	}
	tier, err := u.ladder.ByID(member.TierID)
	if err != nil {
		return model.Tier{}, nil, err
	}
	return tier, member, nil
}

// History returns the member's tier transition audit trail.
func (u *TierUseCase) History(ctx context.Context, memberID string) ([]model.TierChangeRecord, error) {
	return u.changes.ListByMember(ctx, memberID)
}

// Ladder exposes the configured tier ladder ordered by rank.
func (u *TierUseCase) Ladder() []model.Tier {
	return u.ladder.All()
}
