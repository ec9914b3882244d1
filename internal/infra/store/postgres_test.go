package store

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/19queue/internal/domain/errs"
	"github.com/osa030/19queue/internal/domain/queue"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db, DialectPostgres), mock
}

func TestPostgres_GetUserByEmail(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT ` + userColumns + ` FROM users WHERE email = $1`)).
		WithArgs("a@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "name", "image", "external_id", "role", "created_at", "updated_at"}).
			AddRow("u1", "a@example.com", "A", "", "", "admin", now.UnixMilli(), now.UnixMilli()))

	u, err := s.Queries().GetUserByEmail(context.Background(), "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
	assert.True(t, u.IsAdmin())
	assert.Equal(t, now, u.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_SetEntryPositionNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE queue_entries SET position = $1 WHERE id = $2`)).
		WithArgs(3, "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.Queries().SetEntryPosition(context.Background(), "missing", 3)
	assert.True(t, errors.Is(err, errs.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_InTxRepairCommits(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM queue_entries WHERE id = $1`)).
		WithArgs("e0").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE queue_entries SET position = $1 WHERE id = $2`)).
		WithArgs(0, "e1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.InTx(ctx, func(q *Queries) error {
		if err := q.DeleteEntry(ctx, "e0"); err != nil {
			return err
		}
		return q.SetEntryPosition(ctx, "e1", 0)
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_LockTakesAdvisoryLock(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`SELECT pg_advisory_xact_lock($1)`)).
		WithArgs(int64(LockQueue)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE queue_entries SET position = $1 WHERE id = $2`)).
		WithArgs(1, "e1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.InTx(ctx, func(q *Queries) error {
		if err := q.Lock(ctx, LockQueue); err != nil {
			return err
		}
		return q.SetEntryPosition(ctx, "e1", 1)
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_LockFailureRollsBack(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`SELECT pg_advisory_xact_lock($1)`)).
		WithArgs(int64(LockQueue)).
		WillReturnError(errors.New("canceling statement due to lock timeout"))
	mock.ExpectRollback()

	err := s.InTx(ctx, func(q *Queries) error {
		return q.Lock(ctx, LockQueue)
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "advisory lock")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_InTxRollsBackOnError(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM queue_entries WHERE id = $1`)).
		WithArgs("e0").
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := s.InTx(ctx, func(q *Queries) error {
		return q.DeleteEntry(ctx, "e0")
	})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_EnsureSettings(t *testing.T) {
	s, mock := newMockStore(t)

	defaults := queue.DefaultSettings()
	mock.ExpectExec(regexp.QuoteMeta(`ON CONFLICT (id) DO NOTHING`)).
		WithArgs(settingsKey, 50, false, 30, 3, int64(600000), "[]", false, false, "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	created, err := s.Queries().EnsureSettings(context.Background(), defaults)
	require.NoError(t, err)
	assert.False(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}
