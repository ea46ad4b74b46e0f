package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dmarkhas/loyaltycore/internal/config"
	domainErrors "github.com/dmarkhas/loyaltycore/internal/domain/errors"
	"github.com/dmarkhas/loyaltycore/internal/domain/model"
	"github.com/dmarkhas/loyaltycore/internal/events"
	"github.com/dmarkhas/loyaltycore/internal/lock"
	testhelpers "github.com/dmarkhas/loyaltycore/internal/test"
	"github.com/dmarkhas/loyaltycore/internal/tiers"
)

func testLadder(t *testing.T) *tiers.Set {
	t.Helper()
	set, err := tiers.New([]model.Tier{
		{ID: "base", Name: "Base", Rank: 0, MinLifetimeSpend: decimal.Zero},
		{ID: "silver", Name: "Silver", Rank: 1, MinLifetimeSpend: decimal.NewFromInt(500)},
		{ID: "gold", Name: "Gold", Rank: 2, MinLifetimeSpend: decimal.NewFromInt(2000)},
	})
	if err != nil {
		t.Fatalf("failed to build ladder: %v", err)
	}
	return set
}

func newTierUseCase(t *testing.T, members *testhelpers.MemberRepositoryStub, changes *testhelpers.TierChangeRepositoryStub, guard *testhelpers.GuardStub) (*TierUseCase, *events.Publisher) {
	t.Helper()
	if members == nil {
		members = testhelpers.NewMemberRepositoryStub()
	}
	if changes == nil {
		changes = &testhelpers.TierChangeRepositoryStub{}
	}
	if guard == nil {
		guard = &testhelpers.GuardStub{}
	}
	changes.Members = members
	publisher := events.NewPublisher(slog.New(slog.NewJSONHandler(io.Discard, nil)))
	uc := NewTierUseCase(members, changes, testLadder(t), guard, publisher, &config.Config{LockTTL: time.Second})
	return uc, publisher
}

func TestTierUseCaseApplySpendPinsBaseTier(t *testing.T) {
	members := testhelpers.NewMemberRepositoryStub()
	changes := &testhelpers.TierChangeRepositoryStub{}
	uc, _ := newTierUseCase(t, members, changes, nil)

	member, err := uc.ApplySpend(context.Background(), "m1", decimal.NewFromInt(100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if member.TierID != "base" {
		t.Fatalf("expected base tier, got %q", member.TierID)
	}
	if len(changes.Records) != 0 {
		t.Fatalf("expected no audit record for initialization, got %v", changes.Records)
	}
}

func TestTierUseCaseApplySpendUpgrades(t *testing.T) {
	members := testhelpers.NewMemberRepositoryStub()
	members.Members["m1"] = &model.Member{ID: "m1", TierID: "base"}
	changes := &testhelpers.TierChangeRepositoryStub{}
	guard := &testhelpers.GuardStub{}
	uc, _ := newTierUseCase(t, members, changes, guard)

	member, err := uc.ApplySpend(context.Background(), "m1", decimal.NewFromInt(2500))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if member.TierID != "gold" {
		t.Fatalf("expected gold, got %q", member.TierID)
	}
	if len(changes.Records) != 1 || changes.Records[0].OldTierID != "base" || changes.Records[0].NewTierID != "gold" {
		t.Fatalf("unexpected audit records: %+v", changes.Records)
	}
	if changes.Records[0].Reason != model.TierChangeReasonAutoUpgrade {
		t.Fatalf("expected auto upgrade reason, got %q", changes.Records[0].Reason)
	}
	if guard.Acquired[0] != lock.TierKey("m1") {
		t.Fatalf("expected tier lock, got %v", guard.Acquired)
	}
}

func TestTierUseCaseApplySpendNeverDemotes(t *testing.T) {
	members := testhelpers.NewMemberRepositoryStub()
	members.Members["m1"] = &model.Member{ID: "m1", TierID: "gold", LifetimeSpend: decimal.NewFromInt(2500)}
	changes := &testhelpers.TierChangeRepositoryStub{}
	uc, _ := newTierUseCase(t, members, changes, nil)

	// a stale, lower figure must not move the member down
	member, err := uc.ApplySpend(context.Background(), "m1", decimal.NewFromInt(300))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if member.TierID != "gold" {
		t.Fatalf("expected gold retained, got %q", member.TierID)
	}
	if !member.LifetimeSpend.Equal(decimal.NewFromInt(2500)) {
		t.Fatalf("expected spend unchanged, got %s", member.LifetimeSpend)
	}
	if len(changes.Records) != 0 {
		t.Fatalf("expected no audit records, got %v", changes.Records)
	}
}

func TestTierUseCaseFailedTransitionLeavesTierUnchanged(t *testing.T) {
	members := testhelpers.NewMemberRepositoryStub()
	members.Members["m1"] = &model.Member{ID: "m1", TierID: "base"}
	changes := &testhelpers.TierChangeRepositoryStub{
		TransitionFn: func(context.Context, string, string, string, model.TierChangeReason) (*model.TierChangeRecord, error) {
			return nil, errors.New("audit insert failed")
		},
	}
	uc, _ := newTierUseCase(t, members, changes, nil)

	if _, err := uc.ApplySpend(context.Background(), "m1", decimal.NewFromInt(2500)); err == nil {
		t.Fatal("expected error")
	}
	if members.Members["m1"].TierID != "base" {
		t.Fatalf("expected tier untouched, got %q", members.Members["m1"].TierID)
	}
	// the tier column is only ever written through the transition
	if len(members.TierCalls) != 0 {
		t.Fatalf("expected no direct tier write, got %v", members.TierCalls)
	}
}

func TestTierUseCaseApplySpendContention(t *testing.T) {
	guard := &testhelpers.GuardStub{
		AcquireFn: func(context.Context, string, time.Duration) (lock.Token, error) {
			return "", domainErrors.ErrConcurrentOperation
		},
	}
	uc, _ := newTierUseCase(t, nil, nil, guard)

	if _, err := uc.ApplySpend(context.Background(), "m1", decimal.NewFromInt(100)); !errors.Is(err, domainErrors.ErrConcurrentOperation) {
		t.Fatalf("expected concurrent operation, got %v", err)
	}
}

func TestTierUseCaseSetTierManual(t *testing.T) {
	members := testhelpers.NewMemberRepositoryStub()
	members.Members["m1"] = &model.Member{ID: "m1", TierID: "gold"}
	changes := &testhelpers.TierChangeRepositoryStub{}
	uc, _ := newTierUseCase(t, members, changes, nil)

	// manual override may demote
	record, err := uc.SetTierManual(context.Background(), "m1", "silver")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.OldTierID != "gold" || record.NewTierID != "silver" || record.Reason != model.TierChangeReasonManual {
		t.Fatalf("unexpected record: %+v", record)
	}
	if members.Members["m1"].TierID != "silver" {
		t.Fatalf("expected silver persisted, got %q", members.Members["m1"].TierID)
	}

	if _, err := uc.SetTierManual(context.Background(), "m1", "platinum"); !errors.Is(err, domainErrors.ErrUnknownTier) {
		t.Fatalf("expected unknown tier, got %v", err)
	}
}

func TestTierUseCaseSetTierManualCreatesProjection(t *testing.T) {
	members := testhelpers.NewMemberRepositoryStub()
	changes := &testhelpers.TierChangeRepositoryStub{}
	uc, _ := newTierUseCase(t, members, changes, nil)

	record, err := uc.SetTierManual(context.Background(), "fresh", "silver")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.OldTierID != "base" {
		t.Fatalf("expected base as previous tier, got %q", record.OldTierID)
	}
}

func TestTierUseCaseCurrentTier(t *testing.T) {
	members := testhelpers.NewMemberRepositoryStub()
	members.Members["m1"] = &model.Member{ID: "m1", TierID: "silver"}
	members.Members["m2"] = &model.Member{ID: "m2"}
	uc, _ := newTierUseCase(t, members, nil, nil)

	tier, member, err := uc.CurrentTier(context.Background(), "m1")
	if err != nil || tier.ID != "silver" || member.ID != "m1" {
		t.Fatalf("unexpected result: tier=%+v member=%+v err=%v", tier, member, err)
	}

	tier, _, err = uc.CurrentTier(context.Background(), "m2")
	if err != nil || tier.ID != "base" {
		t.Fatalf("expected base fallback, got tier=%+v err=%v", tier, err)
	}

	if _, _, err := uc.CurrentTier(context.Background(), "missing"); !errors.Is(err, domainErrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestTierUseCaseHistoryAndLadder(t *testing.T) {
	changes := &testhelpers.TierChangeRepositoryStub{
		Records: []model.TierChangeRecord{
			{ID: 1, MemberID: "m1", OldTierID: "base", NewTierID: "silver"},
			{ID: 2, MemberID: "m2", OldTierID: "base", NewTierID: "gold"},
		},
	}
	uc, _ := newTierUseCase(t, nil, changes, nil)

	history, err := uc.History(context.Background(), "m1")
	if err != nil || len(history) != 1 || history[0].NewTierID != "silver" {
		t.Fatalf("unexpected history: %v err=%v", history, err)
	}

	ladder := uc.Ladder()
	if len(ladder) != 3 || ladder[0].ID != "base" || ladder[2].ID != "gold" {
		t.Fatalf("unexpected ladder: %v", ladder)
	}
}
