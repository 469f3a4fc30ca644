package repository

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/duynhne/credential-service/internal/core/domain"
)

// SQLiteSessionStore implements domain.SessionStore using SQLite.
// Expiry is stored as unix seconds.
type SQLiteSessionStore struct {
	db        *sql.DB
	writeLock *sync.Mutex
	ttl       time.Duration
	now       Clock
}

var _ domain.SessionStore = (*SQLiteSessionStore)(nil)

// NewSQLiteSessionStore creates a session store over an initialized database.
func NewSQLiteSessionStore(db *sql.DB, writeLock *sync.Mutex, ttl time.Duration) *SQLiteSessionStore {
	return &SQLiteSessionStore{db: db, writeLock: writeLock, ttl: ttl, now: utcNow}
}

// Create implements domain.SessionStore.Create using SQLite.
func (s *SQLiteSessionStore) Create(ctx context.Context, userID int64) (*domain.Session, error) {
	token, digest, err := newSessionToken()
	if err != nil {
		return nil, err
	}

	expiresAt := s.now().Add(s.ttl).Truncate(time.Second)

	s.writeLock.Lock()
	defer s.writeLock.Unlock()

	if _, err := s.db.ExecContext(ctx,
		"INSERT INTO sessions (token_hash, user_id, expires_at) VALUES (?, ?, ?)",
		digest, userID, expiresAt.Unix(),
	); err != nil {
		return nil, oops.Code("SESSION_CREATE_FAILED").
			With("user_id", userID).
			Wrap(err)
	}

	return &domain.Session{Token: token, UserID: userID, ExpiresAt: expiresAt}, nil
}

// Get implements domain.SessionStore.Get using SQLite.
func (s *SQLiteSessionStore) Get(ctx context.Context, token string) (*domain.Session, error) {
	var (
		sess      = domain.Session{Token: token}
		expiresAt int64
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT user_id, expires_at FROM sessions WHERE token_hash = ? AND expires_at > ?",
		hashSessionToken(token), s.now().Unix(),
	).Scan(&sess.UserID, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, oops.Code("SESSION_GET_FAILED").Wrap(err)
	}

	sess.ExpiresAt = time.Unix(expiresAt, 0).UTC()
	return &sess, nil
}

// Destroy implements domain.SessionStore.Destroy using SQLite.
func (s *SQLiteSessionStore) Destroy(ctx context.Context, token string) error {
	s.writeLock.Lock()
	defer s.writeLock.Unlock()

	if _, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE token_hash = ?", hashSessionToken(token)); err != nil {
		return oops.Code("SESSION_DELETE_FAILED").Wrap(err)
	}
	return nil
}

// PurgeExpired implements domain.SessionStore.PurgeExpired using SQLite.
func (s *SQLiteSessionStore) PurgeExpired(ctx context.Context) (int64, error) {
	s.writeLock.Lock()
	defer s.writeLock.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at <= ?", s.now().Unix())
	if err != nil {
		return 0, oops.Code("SESSION_PURGE_FAILED").Wrap(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, oops.Code("SESSION_PURGE_FAILED").Wrap(err)
	}
	return n, nil
}
