package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	domainErrors "github.com/dmarkhas/loyaltycore/internal/domain/errors"
)

// lockPool is the subset of pgxpool.Pool the guard needs; pgxmock pools
// satisfy it in tests.
type lockPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresGuard implements Guard on top of the member_locks table for
// multi-process deployments. An expired row counts as free, so a crashed
// holder never wedges the key.
type PostgresGuard struct {
	pool lockPool
}

// NewPostgresGuard wraps an existing connection pool. The member_locks
// table is created by the storage schema initialization.
func NewPostgresGuard(pool lockPool) *PostgresGuard {
	return &PostgresGuard{pool: pool}
}

// Acquire inserts or steals the row when the previous holder expired.
func (g *PostgresGuard) Acquire(ctx context.Context, key string, ttl time.Duration) (Token, error) {
	const query = `INSERT INTO member_locks (key, token, expires_at)
                   VALUES ($1, $2, NOW() + $3)
                   ON CONFLICT (key) DO UPDATE
                   SET token = EXCLUDED.token, expires_at = EXCLUDED.expires_at
                   WHERE member_locks.expires_at <= NOW()
                   RETURNING token`

	token := Token(uuid.NewString())
	var stored string
	err := g.pool.QueryRow(ctx, query, key, string(token), ttl).Scan(&stored)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("lock %q: %w", key, domainErrors.ErrConcurrentOperation)
		}
		return "", fmt.Errorf("acquire lock %q: %w", key, err)
	}
	return Token(stored), nil
}

// Release deletes the row only when the fencing token still matches.
func (g *PostgresGuard) Release(ctx context.Context, key string, token Token) error {
	const query = `DELETE FROM member_locks WHERE key = $1 AND token = $2`

	tag, err := g.pool.Exec(ctx, query, key, string(token))
	if err != nil {
		return fmt.Errorf("release lock %q: %w", key, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("lock %q: %w", key, ErrNotHeld)
	}
	return nil
}
