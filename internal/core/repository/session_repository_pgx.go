package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/duynhne/credential-service/internal/core/domain"
)

// PgxSessionStore implements domain.SessionStore using PostgreSQL.
// Rows are keyed by the token digest; expired rows are invisible to Get
// and removed by PurgeExpired.
type PgxSessionStore struct {
	pool PgxPool
	ttl  time.Duration
	now  Clock
}

var _ domain.SessionStore = (*PgxSessionStore)(nil)

// NewSessionStore creates a new PgxSessionStore whose sessions live for ttl.
func NewSessionStore(pool PgxPool, ttl time.Duration) *PgxSessionStore {
	return &PgxSessionStore{pool: pool, ttl: ttl, now: utcNow}
}

// Create inserts a new session for the given user.
func (s *PgxSessionStore) Create(ctx context.Context, userID int64) (*domain.Session, error) {
	token, digest, err := newSessionToken()
	if err != nil {
		return nil, err
	}

	expiresAt := s.now().Add(s.ttl)
	query := `INSERT INTO sessions (token_hash, user_id, expires_at) VALUES ($1, $2, $3)`
	if _, err := s.pool.Exec(ctx, query, digest, userID, expiresAt); err != nil {
		return nil, oops.Code("SESSION_CREATE_FAILED").
			With("operation", "insert session").
			With("user_id", userID).
			Wrap(err)
	}

	return &domain.Session{Token: token, UserID: userID, ExpiresAt: expiresAt}, nil
}

// Get resolves a token to its session.
// Returns (nil, nil) when the token is unknown or expired.
func (s *PgxSessionStore) Get(ctx context.Context, token string) (*domain.Session, error) {
	query := `SELECT user_id, expires_at FROM sessions WHERE token_hash = $1 AND expires_at > $2`

	sess := domain.Session{Token: token}
	err := s.pool.QueryRow(ctx, query, hashSessionToken(token), s.now()).Scan(&sess.UserID, &sess.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, oops.Code("SESSION_GET_FAILED").
			With("operation", "get session by token hash").
			Wrap(err)
	}
	return &sess, nil
}

// Destroy removes the session for token.
func (s *PgxSessionStore) Destroy(ctx context.Context, token string) error {
	query := `DELETE FROM sessions WHERE token_hash = $1`
	if _, err := s.pool.Exec(ctx, query, hashSessionToken(token)); err != nil {
		return oops.Code("SESSION_DELETE_FAILED").
			With("operation", "delete session").
			Wrap(err)
	}
	return nil
}

// PurgeExpired deletes sessions past their expiry.
func (s *PgxSessionStore) PurgeExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM sessions WHERE expires_at <= $1`
	tag, err := s.pool.Exec(ctx, query, s.now())
	if err != nil {
		return 0, oops.Code("SESSION_PURGE_FAILED").
			With("operation", "delete expired sessions").
			Wrap(err)
	}
	return tag.RowsAffected(), nil
}
