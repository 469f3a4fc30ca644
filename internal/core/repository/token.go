package repository

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/samber/oops"
)

// SessionTokenBytes is the entropy of a session token (64 hex chars).
const SessionTokenBytes = 32

// newSessionToken returns a random token and the digest stored for it.
func newSessionToken() (token, digest string, err error) {
	b := make([]byte, SessionTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", "", oops.Code("SESSION_TOKEN_GENERATE_FAILED").
			With("requested_bytes", SessionTokenBytes).
			Wrap(err)
	}
	token = hex.EncodeToString(b)
	return token, hashSessionToken(token), nil
}

// hashSessionToken computes the SHA-256 digest under which a token is stored.
func hashSessionToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// Clock returns the current time. Stores take one so expiry is testable.
type Clock func() time.Time

func utcNow() time.Time { return time.Now().UTC() }
