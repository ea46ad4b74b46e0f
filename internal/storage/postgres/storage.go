package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/dmarkhas/loyaltycore/internal/allocator"
	domainErrors "github.com/dmarkhas/loyaltycore/internal/domain/errors"
	"github.com/dmarkhas/loyaltycore/internal/domain/model"
	"github.com/dmarkhas/loyaltycore/internal/domain/repository"
)

// pgxPool is the pool surface the storage uses; pgxmock pools satisfy it in
// tests.
type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

var newPgxPool = func(ctx context.Context, cfg *pgxpool.Config) (pgxPool, error) {
	return pgxpool.NewWithConfig(ctx, cfg)
}

// Storage acts as repository facade backed by PostgreSQL. It owns every
// ledger row: batch mutation and transaction insert always commit in one
// database transaction.
type Storage struct {
	pool          pgxPool
	logger        *slog.Logger
	adjustHorizon time.Duration
	now           func() time.Time
}

type ledgerRepository struct {
	storage *Storage
}

type memberRepository struct {
	storage *Storage
}

type tierChangeRepository struct {
	storage *Storage
}

// New creates storage with schema initialization. adjustHorizon is the
// expiry assigned to batches created by positive adjustments.
func New(ctx context.Context, dsn string, adjustHorizon time.Duration, logger *slog.Logger) (*Storage, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	pool, err := newPgxPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	storage := &Storage{pool: pool, logger: logger, adjustHorizon: adjustHorizon, now: time.Now}
	if err := storage.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return storage, nil
}

// Close releases database resources.
func (s *Storage) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Factory methods for domain repositories.
func (s *Storage) Ledger() repository.LedgerRepository {
	return &ledgerRepository{storage: s}
}

func (s *Storage) Members() repository.MemberRepository {
	return &memberRepository{storage: s}
}

func (s *Storage) TierChanges() repository.TierChangeRepository {
	return &tierChangeRepository{storage: s}
}

func (s *Storage) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS members (
            id TEXT PRIMARY KEY,
            tier_id TEXT NOT NULL DEFAULT '',
            lifetime_spend NUMERIC NOT NULL DEFAULT 0,
            integrity_hold BOOLEAN NOT NULL DEFAULT FALSE,
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE TABLE IF NOT EXISTS points_batches (
            id BIGSERIAL PRIMARY KEY,
            member_id TEXT NOT NULL REFERENCES members(id),
            points_original BIGINT NOT NULL,
            points_remaining BIGINT NOT NULL,
            earned_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            expires_at TIMESTAMPTZ NOT NULL,
            status TEXT NOT NULL DEFAULT 'ACTIVE',
            CHECK (points_remaining >= 0 AND points_remaining <= points_original)
        )`,
		`CREATE TABLE IF NOT EXISTS points_transactions (
            id BIGSERIAL PRIMARY KEY,
            member_id TEXT NOT NULL REFERENCES members(id),
            kind TEXT NOT NULL,
            points_delta BIGINT NOT NULL,
            balance_after BIGINT NOT NULL,
            batch_refs JSONB NOT NULL DEFAULT '[]',
            reference TEXT NOT NULL DEFAULT '',
            reason TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE TABLE IF NOT EXISTS tier_changes (
            id BIGSERIAL PRIMARY KEY,
            member_id TEXT NOT NULL REFERENCES members(id),
            old_tier_id TEXT NOT NULL,
            new_tier_id TEXT NOT NULL,
            reason TEXT NOT NULL,
            changed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE TABLE IF NOT EXISTS member_locks (
            key TEXT PRIMARY KEY,
            token TEXT NOT NULL,
            expires_at TIMESTAMPTZ NOT NULL
        )`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_tx_earn_reference ON points_transactions(member_id, reference)
            WHERE kind = 'EARN' AND reference <> ''`,
		`CREATE INDEX IF NOT EXISTS idx_batches_member_status ON points_batches(member_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_batches_expiry ON points_batches(status, expires_at)`,
		`CREATE INDEX IF NOT EXISTS idx_tx_member ON points_transactions(member_id, id DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_tier_changes_member ON tier_changes(member_id, changed_at DESC)`,
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}

	return nil
}

// --- transaction-scoped helpers ---

// ensureMemberTx creates the member projection row on first contact and
// bumps updated_at on every subsequent mutation.
func (s *Storage) ensureMemberTx(ctx context.Context, tx pgx.Tx, memberID string) error {
	const query = `INSERT INTO members (id) VALUES ($1)
                   ON CONFLICT (id) DO UPDATE SET updated_at = NOW()`
	_, err := tx.Exec(ctx, query, memberID)
	return err
}

// checkHoldTx blocks the mutation when reconciliation flagged the member.
// The row lock also serializes against a concurrent reconciliation sweep.
func (s *Storage) checkHoldTx(ctx context.Context, tx pgx.Tx, memberID string) error {
	const query = `SELECT integrity_hold FROM members WHERE id=$1 FOR UPDATE`
	var hold bool
	if err := tx.QueryRow(ctx, query, memberID).Scan(&hold); err != nil {
		return err
	}
	if hold {
		return fmt.Errorf("member %q: %w", memberID, domainErrors.ErrIntegrityHold)
	}
	return nil
}

func (s *Storage) latestBalanceTx(ctx context.Context, tx pgx.Tx, memberID string) (int64, error) {
	const query = `SELECT balance_after FROM points_transactions WHERE member_id=$1 ORDER BY id DESC LIMIT 1`
	var balance int64
	err := tx.QueryRow(ctx, query, memberID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return balance, err
}

func (s *Storage) insertTransactionTx(ctx context.Context, tx pgx.Tx, t *model.PointsTransaction) error {
	refs := t.BatchRefs
	if refs == nil {
		refs = []model.BatchRef{}
	}
	encoded, err := json.Marshal(refs)
	if err != nil {
		return fmt.Errorf("encode batch refs: %w", err)
	}

	const query = `INSERT INTO points_transactions (member_id, kind, points_delta, balance_after, batch_refs, reference, reason)
                   VALUES ($1, $2, $3, $4, $5, $6, $7)
                   RETURNING id, created_at`
	return tx.QueryRow(ctx, query, t.MemberID, t.Kind, t.PointsDelta, t.BalanceAfter, encoded, t.Reference, t.Reason).
		Scan(&t.ID, &t.CreatedAt)
}

func (s *Storage) activeBatchesTx(ctx context.Context, tx pgx.Tx, memberID string) ([]model.PointsBatch, error) {
	const query = `SELECT id, member_id, points_original, points_remaining, earned_at, expires_at, status
                   FROM points_batches
                   WHERE member_id=$1 AND status='ACTIVE'
                   ORDER BY expires_at, earned_at, id
                   FOR UPDATE`
	rows, err := tx.Query(ctx, query, memberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBatches(rows)
}

// applyDrawsTx deducts planned draws from their batches, exhausting batches
// that hit zero.
func (s *Storage) applyDrawsTx(ctx context.Context, tx pgx.Tx, batches []model.PointsBatch, draws []allocator.Draw) error {
	remaining := make(map[int64]int64, len(batches))
	for _, b := range batches {
		remaining[b.ID] = b.PointsRemaining
	}

	const query = `UPDATE points_batches SET points_remaining=$2, status=$3 WHERE id=$1`
	for _, draw := range draws {
		left := remaining[draw.BatchID] - draw.Points
		status := model.BatchStatusActive
		if left == 0 {
			status = model.BatchStatusExhausted
		}
		if _, err := tx.Exec(ctx, query, draw.BatchID, left, status); err != nil {
			return err
		}
	}
	return nil
}

func (s *Storage) findEarnTx(ctx context.Context, memberID, reference string) (*model.PointsTransaction, error) {
	const query = `SELECT id, member_id, kind, points_delta, balance_after, batch_refs, reference, reason, created_at
                   FROM points_transactions
                   WHERE member_id=$1 AND reference=$2 AND kind='EARN'`
	return scanTransactionRow(s.pool.QueryRow(ctx, query, memberID, reference))
}

func scanTransactionRow(row pgx.Row) (*model.PointsTransaction, error) {
	var t model.PointsTransaction
	var refs []byte
	err := row.Scan(&t.ID, &t.MemberID, &t.Kind, &t.PointsDelta, &t.BalanceAfter, &refs, &t.Reference, &t.Reason, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(refs, &t.BatchRefs); err != nil {
		return nil, fmt.Errorf("decode batch refs: %w", err)
	}
	return &t, nil
}

// --- LedgerRepository implementation ---

func (r *ledgerRepository) AppendEarn(ctx context.Context, memberID string, points int64, expiresAt time.Time, reference string) (*model.PointsTransaction, error) {
	if points <= 0 {
		return nil, fmt.Errorf("earn %d points: %w", points, domainErrors.ErrInvalidAmount)
	}

	if reference != "" {
		if prior, err := r.storage.findEarnTx(ctx, memberID, reference); err == nil {
			return prior, domainErrors.ErrDuplicateReference
		} else if !errors.Is(err, domainErrors.ErrNotFound) {
			return nil, err
		}
	}

	var result *model.PointsTransaction
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		if err := r.storage.ensureMemberTx(ctx, tx, memberID); err != nil {
			return err
		}
		if err := r.storage.checkHoldTx(ctx, tx, memberID); err != nil {
			return err
		}

		prev, err := r.storage.latestBalanceTx(ctx, tx, memberID)
		if err != nil {
			return err
		}

		const insertBatch = `INSERT INTO points_batches (member_id, points_original, points_remaining, expires_at)
                             VALUES ($1, $2, $2, $3)
                             RETURNING id, earned_at`
		var batchID int64
		var earnedAt time.Time
		if err := tx.QueryRow(ctx, insertBatch, memberID, points, expiresAt).Scan(&batchID, &earnedAt); err != nil {
			return err
		}

		result = &model.PointsTransaction{
			MemberID:     memberID,
			Kind:         model.TransactionKindEarn,
			PointsDelta:  points,
			BalanceAfter: prev + points,
			BatchRefs:    []model.BatchRef{{BatchID: batchID, Points: points}},
			Reference:    reference,
		}
		return r.storage.insertTransactionTx(ctx, tx, result)
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			// lost the idempotence race; surface the winner
			prior, findErr := r.storage.findEarnTx(ctx, memberID, reference)
			if findErr != nil {
				return nil, findErr
			}
			return prior, domainErrors.ErrDuplicateReference
		}
		return nil, err
	}
	return result, nil
}

func (r *ledgerRepository) AppendUse(ctx context.Context, memberID string, points int64, reference string) (*model.PointsTransaction, error) {
	if points <= 0 {
		return nil, fmt.Errorf("use %d points: %w", points, domainErrors.ErrInvalidAmount)
	}

	var result *model.PointsTransaction
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		if err := r.storage.ensureMemberTx(ctx, tx, memberID); err != nil {
			return err
		}
		if err := r.storage.checkHoldTx(ctx, tx, memberID); err != nil {
			return err
		}

		batches, err := r.storage.activeBatchesTx(ctx, tx, memberID)
		if err != nil {
			return err
		}

		draws, err := allocator.Plan(batches, points, r.storage.now())
		if err != nil {
			return err
		}
		if err := r.storage.applyDrawsTx(ctx, tx, batches, draws); err != nil {
			return err
		}

		prev, err := r.storage.latestBalanceTx(ctx, tx, memberID)
		if err != nil {
			return err
		}

		refs := make([]model.BatchRef, 0, len(draws))
		for _, draw := range draws {
			refs = append(refs, model.BatchRef{BatchID: draw.BatchID, Points: draw.Points})
		}
		result = &model.PointsTransaction{
			MemberID:     memberID,
			Kind:         model.TransactionKindUse,
			PointsDelta:  -points,
			BalanceAfter: prev - points,
			BatchRefs:    refs,
			Reference:    reference,
		}
		return r.storage.insertTransactionTx(ctx, tx, result)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *ledgerRepository) AppendExpire(ctx context.Context, batchID int64) (*model.PointsTransaction, error) {
	var result *model.PointsTransaction
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		const selectBatch = `SELECT id, member_id, points_original, points_remaining, earned_at, expires_at, status
                             FROM points_batches WHERE id=$1 FOR UPDATE`
		var b model.PointsBatch
		err := tx.QueryRow(ctx, selectBatch, batchID).
			Scan(&b.ID, &b.MemberID, &b.PointsOriginal, &b.PointsRemaining, &b.EarnedAt, &b.ExpiresAt, &b.Status)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("batch %d: %w", batchID, domainErrors.ErrNotFound)
			}
			return err
		}

		// re-running over a swept or drained batch must be a no-op
		if b.Status != model.BatchStatusActive || b.PointsRemaining == 0 {
			return nil
		}

		if err := r.storage.ensureMemberTx(ctx, tx, b.MemberID); err != nil {
			return err
		}
		if err := r.storage.checkHoldTx(ctx, tx, b.MemberID); err != nil {
			return err
		}

		const updateBatch = `UPDATE points_batches SET points_remaining=0, status='EXPIRED' WHERE id=$1`
		if _, err := tx.Exec(ctx, updateBatch, batchID); err != nil {
			return err
		}

		prev, err := r.storage.latestBalanceTx(ctx, tx, b.MemberID)
		if err != nil {
			return err
		}

		result = &model.PointsTransaction{
			MemberID:     b.MemberID,
			Kind:         model.TransactionKindExpire,
			PointsDelta:  -b.PointsRemaining,
			BalanceAfter: prev - b.PointsRemaining,
			BatchRefs:    []model.BatchRef{{BatchID: b.ID, Points: b.PointsRemaining}},
		}
		return r.storage.insertTransactionTx(ctx, tx, result)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *ledgerRepository) AppendAdjust(ctx context.Context, memberID string, delta int64, reason string) (*model.PointsTransaction, error) {
	if delta == 0 {
		return nil, fmt.Errorf("adjust by zero: %w", domainErrors.ErrInvalidAmount)
	}

	var result *model.PointsTransaction
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		if err := r.storage.ensureMemberTx(ctx, tx, memberID); err != nil {
			return err
		}
		if err := r.storage.checkHoldTx(ctx, tx, memberID); err != nil {
			return err
		}

		var refs []model.BatchRef
		if delta > 0 {
			// credit corrections are backed by their own batch so the
			// ledger stays reconcilable against batch remainders
			expiresAt := r.storage.now().Add(r.storage.adjustHorizon)
			const insertBatch = `INSERT INTO points_batches (member_id, points_original, points_remaining, expires_at)
                                 VALUES ($1, $2, $2, $3)
                                 RETURNING id`
			var batchID int64
			if err := tx.QueryRow(ctx, insertBatch, memberID, delta, expiresAt).Scan(&batchID); err != nil {
				return err
			}
			refs = []model.BatchRef{{BatchID: batchID, Points: delta}}
		} else {
			batches, err := r.storage.activeBatchesTx(ctx, tx, memberID)
			if err != nil {
				return err
			}
			draws, err := allocator.Plan(batches, -delta, r.storage.now())
			if err != nil {
				return err
			}
			if err := r.storage.applyDrawsTx(ctx, tx, batches, draws); err != nil {
				return err
			}
			refs = make([]model.BatchRef, 0, len(draws))
			for _, draw := range draws {
				refs = append(refs, model.BatchRef{BatchID: draw.BatchID, Points: draw.Points})
			}
		}

		prev, err := r.storage.latestBalanceTx(ctx, tx, memberID)
		if err != nil {
			return err
		}

		result = &model.PointsTransaction{
			MemberID:     memberID,
			Kind:         model.TransactionKindAdjust,
			PointsDelta:  delta,
			BalanceAfter: prev + delta,
			BatchRefs:    refs,
			Reason:       reason,
		}
		return r.storage.insertTransactionTx(ctx, tx, result)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *ledgerRepository) GetActiveBatches(ctx context.Context, memberID string) ([]model.PointsBatch, error) {
	const query = `SELECT id, member_id, points_original, points_remaining, earned_at, expires_at, status
                   FROM points_batches
                   WHERE member_id=$1 AND status='ACTIVE'
                   ORDER BY expires_at, earned_at, id`
	rows, err := r.storage.pool.Query(ctx, query, memberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBatches(rows)
}

func (r *ledgerRepository) GetBalance(ctx context.Context, memberID string) (int64, error) {
	const query = `SELECT balance_after FROM points_transactions WHERE member_id=$1 ORDER BY id DESC LIMIT 1`
	var balance int64
	err := r.storage.pool.QueryRow(ctx, query, memberID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return balance, err
}

func (r *ledgerRepository) SumDeltas(ctx context.Context, memberID string) (int64, error) {
	const query = `SELECT COALESCE(SUM(points_delta), 0) FROM points_transactions WHERE member_id=$1`
	var sum int64
	err := r.storage.pool.QueryRow(ctx, query, memberID).Scan(&sum)
	return sum, err
}

func (r *ledgerRepository) ListTransactions(ctx context.Context, memberID string) ([]model.PointsTransaction, error) {
	const query = `SELECT id, member_id, kind, points_delta, balance_after, batch_refs, reference, reason, created_at
                   FROM points_transactions WHERE member_id=$1 ORDER BY id DESC`
	rows, err := r.storage.pool.Query(ctx, query, memberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.PointsTransaction
	for rows.Next() {
		var t model.PointsTransaction
		var refs []byte
		if err := rows.Scan(&t.ID, &t.MemberID, &t.Kind, &t.PointsDelta, &t.BalanceAfter, &refs, &t.Reference, &t.Reason, &t.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(refs, &t.BatchRefs); err != nil {
			return nil, fmt.Errorf("decode batch refs: %w", err)
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *ledgerRepository) GetBatch(ctx context.Context, batchID int64) (*model.PointsBatch, error) {
	const query = `SELECT id, member_id, points_original, points_remaining, earned_at, expires_at, status
                   FROM points_batches WHERE id=$1`
	var b model.PointsBatch
	err := r.storage.pool.QueryRow(ctx, query, batchID).
		Scan(&b.ID, &b.MemberID, &b.PointsOriginal, &b.PointsRemaining, &b.EarnedAt, &b.ExpiresAt, &b.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (r *ledgerRepository) SelectExpiredBatches(ctx context.Context, now time.Time, limit int) ([]model.PointsBatch, error) {
	const query = `SELECT id, member_id, points_original, points_remaining, earned_at, expires_at, status
                   FROM points_batches
                   WHERE status='ACTIVE' AND expires_at < $1 AND points_remaining > 0
                   ORDER BY expires_at
                   LIMIT $2`
	rows, err := r.storage.pool.Query(ctx, query, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBatches(rows)
}

func scanBatches(rows pgx.Rows) ([]model.PointsBatch, error) {
	var result []model.PointsBatch
	for rows.Next() {
		var b model.PointsBatch
		if err := rows.Scan(&b.ID, &b.MemberID, &b.PointsOriginal, &b.PointsRemaining, &b.EarnedAt, &b.ExpiresAt, &b.Status); err != nil {
			return nil, err
		}
		result = append(result, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// --- MemberRepository implementation ---

func (r *memberRepository) Get(ctx context.Context, id string) (*model.Member, error) {
	const query = `SELECT id, tier_id, lifetime_spend, integrity_hold, updated_at FROM members WHERE id=$1`
	var m model.Member
	err := r.storage.pool.QueryRow(ctx, query, id).
		Scan(&m.ID, &m.TierID, &m.LifetimeSpend, &m.IntegrityHold, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *memberRepository) UpsertSpend(ctx context.Context, id string, spend decimal.Decimal) (*model.Member, error) {
	const query = `INSERT INTO members (id, lifetime_spend) VALUES ($1, $2)
                   ON CONFLICT (id) DO UPDATE
                   SET lifetime_spend = GREATEST(members.lifetime_spend, EXCLUDED.lifetime_spend),
                       updated_at = NOW()
                   RETURNING id, tier_id, lifetime_spend, integrity_hold, updated_at`
	var m model.Member
	err := r.storage.pool.QueryRow(ctx, query, id, spend).
		Scan(&m.ID, &m.TierID, &m.LifetimeSpend, &m.IntegrityHold, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *memberRepository) SetTier(ctx context.Context, id string, tierID string) error {
	const query = `INSERT INTO members (id, tier_id) VALUES ($1, $2)
                   ON CONFLICT (id) DO UPDATE SET tier_id = EXCLUDED.tier_id, updated_at = NOW()`
	_, err := r.storage.pool.Exec(ctx, query, id, tierID)
	return err
}

func (r *memberRepository) SetIntegrityHold(ctx context.Context, id string, hold bool) error {
	const query = `UPDATE members SET integrity_hold=$2, updated_at=NOW() WHERE id=$1`
	tag, err := r.storage.pool.Exec(ctx, query, id, hold)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("member %q: %w", id, domainErrors.ErrNotFound)
	}
	return nil
}

func (r *memberRepository) ListRecentlyActive(ctx context.Context, limit int) ([]string, error) {
	const query = `SELECT id FROM members ORDER BY updated_at DESC LIMIT $1`
	rows, err := r.storage.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		result = append(result, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// --- TierChangeRepository implementation ---

func (r *tierChangeRepository) Transition(ctx context.Context, memberID, oldTierID, newTierID string, reason model.TierChangeReason) (*model.TierChangeRecord, error) {
	const setTier = `INSERT INTO members (id, tier_id) VALUES ($1, $2)
                   ON CONFLICT (id) DO UPDATE SET tier_id = EXCLUDED.tier_id, updated_at = NOW()`
	const appendChange = `INSERT INTO tier_changes (member_id, old_tier_id, new_tier_id, reason)
                   VALUES ($1, $2, $3, $4)
                   RETURNING id, changed_at`
	record := &model.TierChangeRecord{
		MemberID:  memberID,
		OldTierID: oldTierID,
		NewTierID: newTierID,
		Reason:    reason,
	}
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, setTier, memberID, newTierID); err != nil {
			return err
		}
		return tx.QueryRow(ctx, appendChange, memberID, oldTierID, newTierID, reason).
			Scan(&record.ID, &record.ChangedAt)
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (r *tierChangeRepository) ListByMember(ctx context.Context, memberID string) ([]model.TierChangeRecord, error) {
	const query = `SELECT id, member_id, old_tier_id, new_tier_id, reason, changed_at
                   FROM tier_changes WHERE member_id=$1 ORDER BY changed_at DESC, id DESC`
	rows, err := r.storage.pool.Query(ctx, query, memberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.TierChangeRecord
	for rows.Next() {
		var rec model.TierChangeRecord
		if err := rows.Scan(&rec.ID, &rec.MemberID, &rec.OldTierID, &rec.NewTierID, &rec.Reason, &rec.ChangedAt); err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// WithinTransaction executes function inside transaction boundary.
func (s *Storage) WithinTransaction(ctx context.Context, fn func(pgx.Tx) error) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	err = fn(tx)
	return err
}

// HealthCheck verifies database connectivity.
func (s *Storage) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.pool.Ping(ctx)
}

// Pool exposes raw connection pool for advanced use.
func (s *Storage) Pool() pgxPool {
	return s.pool
}

// Logger returns storage logger.
func (s *Storage) Logger() *slog.Logger {
	return s.logger
}
