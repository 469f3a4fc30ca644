package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPgxSessionStore(t *testing.T, now time.Time) (*PgxSessionStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err, "failed to create mock")
	t.Cleanup(mock.Close)

	store := NewSessionStore(mock, time.Hour)
	store.now = func() time.Time { return now }
	return store, mock
}

func TestPgxSessionStore_Create(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	store, mock := newTestPgxSessionStore(t, now)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO sessions (token_hash, user_id, expires_at) VALUES ($1, $2, $3)`)).
		WithArgs(pgxmock.AnyArg(), int64(7), now.Add(time.Hour)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	sess, err := store.Create(context.Background(), 7)
	require.NoError(t, err)
	assert.Len(t, sess.Token, 2*SessionTokenBytes)
	assert.Equal(t, int64(7), sess.UserID)
	assert.Equal(t, now.Add(time.Hour), sess.ExpiresAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgxSessionStore_CreateFailure(t *testing.T) {
	store, mock := newTestPgxSessionStore(t, time.Now())

	mock.ExpectExec(`INSERT INTO sessions`).
		WithArgs(pgxmock.AnyArg(), int64(7), pgxmock.AnyArg()).
		WillReturnError(errors.New("disk full"))

	sess, err := store.Create(context.Background(), 7)
	require.Error(t, err)
	assert.Nil(t, sess)
	assert.Contains(t, err.Error(), "disk full")
}

func TestPgxSessionStore_Get(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	selectSQL := regexp.QuoteMeta(`SELECT user_id, expires_at FROM sessions WHERE token_hash = $1 AND expires_at > $2`)

	t.Run("looks up by digest, never by raw token", func(t *testing.T) {
		store, mock := newTestPgxSessionStore(t, now)
		mock.ExpectQuery(selectSQL).
			WithArgs(hashSessionToken("tok"), now).
			WillReturnRows(pgxmock.NewRows([]string{"user_id", "expires_at"}).AddRow(int64(4), now.Add(time.Minute)))

		sess, err := store.Get(context.Background(), "tok")
		require.NoError(t, err)
		require.NotNil(t, sess)
		assert.Equal(t, int64(4), sess.UserID)
		assert.Equal(t, "tok", sess.Token)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown or expired token is absent", func(t *testing.T) {
		store, mock := newTestPgxSessionStore(t, now)
		mock.ExpectQuery(selectSQL).
			WithArgs(hashSessionToken("gone"), now).
			WillReturnRows(pgxmock.NewRows([]string{"user_id", "expires_at"}))

		sess, err := store.Get(context.Background(), "gone")
		require.NoError(t, err)
		assert.Nil(t, sess)
	})

	t.Run("store failure surfaces", func(t *testing.T) {
		store, mock := newTestPgxSessionStore(t, now)
		mock.ExpectQuery(selectSQL).
			WithArgs(hashSessionToken("tok"), now).
			WillReturnError(errors.New("timeout"))

		sess, err := store.Get(context.Background(), "tok")
		require.Error(t, err)
		assert.Nil(t, sess)
	})
}

func TestPgxSessionStore_DestroyAndPurge(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	store, mock := newTestPgxSessionStore(t, now)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM sessions WHERE token_hash = $1`)).
		WithArgs(hashSessionToken("tok")).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM sessions WHERE expires_at <= $1`)).
		WithArgs(now).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	require.NoError(t, store.Destroy(context.Background(), "tok"))

	n, err := store.PurgeExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
