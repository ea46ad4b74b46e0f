package lock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmockv3 "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	domainErrors "github.com/dmarkhas/loyaltycore/internal/domain/errors"
)

func newMockGuard(t *testing.T) (*PostgresGuard, pgxmockv3.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmockv3.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresGuard(mock), mock
}

func TestPostgresGuardAcquire(t *testing.T) {
	guard, mock := newMockGuard(t)

	mock.ExpectQuery("INSERT INTO member_locks").
		WithArgs("points:m-1", pgxmockv3.AnyArg(), 30*time.Second).
		WillReturnRows(pgxmockv3.NewRows([]string{"token"}).AddRow("tok-1"))

	token, err := guard.Acquire(context.Background(), PointsKey("m-1"), 30*time.Second)
	require.NoError(t, err)
	require.Equal(t, Token("tok-1"), token)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGuardAcquireContended(t *testing.T) {
	guard, mock := newMockGuard(t)

	mock.ExpectQuery("INSERT INTO member_locks").
		WithArgs("points:m-1", pgxmockv3.AnyArg(), time.Minute).
		WillReturnError(pgx.ErrNoRows)

	_, err := guard.Acquire(context.Background(), PointsKey("m-1"), time.Minute)
	require.ErrorIs(t, err, domainErrors.ErrConcurrentOperation)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGuardAcquireQueryError(t *testing.T) {
	guard, mock := newMockGuard(t)

	mock.ExpectQuery("INSERT INTO member_locks").
		WithArgs("k", pgxmockv3.AnyArg(), time.Minute).
		WillReturnError(errors.New("connection refused"))

	_, err := guard.Acquire(context.Background(), "k", time.Minute)
	require.Error(t, err)
	require.NotErrorIs(t, err, domainErrors.ErrConcurrentOperation)
}

func TestPostgresGuardRelease(t *testing.T) {
	guard, mock := newMockGuard(t)

	mock.ExpectExec("DELETE FROM member_locks").
		WithArgs("k", "tok-1").
		WillReturnResult(pgxmockv3.NewResult("DELETE", 1))

	require.NoError(t, guard.Release(context.Background(), "k", Token("tok-1")))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGuardReleaseStaleToken(t *testing.T) {
	guard, mock := newMockGuard(t)

	mock.ExpectExec("DELETE FROM member_locks").
		WithArgs("k", "stale").
		WillReturnResult(pgxmockv3.NewResult("DELETE", 0))

	err := guard.Release(context.Background(), "k", Token("stale"))
	require.ErrorIs(t, err, ErrNotHeld)
}

func TestPostgresGuardReleaseError(t *testing.T) {
	guard, mock := newMockGuard(t)

	mock.ExpectExec("DELETE FROM member_locks").
		WithArgs("k", "tok").
		WillReturnError(errors.New("connection refused"))

	require.Error(t, guard.Release(context.Background(), "k", Token("tok")))
}
