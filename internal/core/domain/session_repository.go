package domain

import (
	"context"
	"time"
)

// Session links an opaque token to a user. Token is only populated on
// the value returned by SessionStore.Create; stores keep a digest of it.
type Session struct {
	Token     string
	UserID    int64
	ExpiresAt time.Time
}

// SessionStore defines the data-access contract for server-side sessions.
// Entries expire after the horizon the store was constructed with.
type SessionStore interface {
	// Create issues a new session for the given user.
	Create(ctx context.Context, userID int64) (*Session, error)

	// Get resolves a token to its session.
	// Returns (nil, nil) when the token is unknown or expired.
	Get(ctx context.Context, token string) (*Session, error)

	// Destroy removes the session for token. Unknown tokens are not an error.
	Destroy(ctx context.Context, token string) error

	// PurgeExpired removes expired sessions and returns how many were removed.
	PurgeExpired(ctx context.Context) (int64, error)
}
