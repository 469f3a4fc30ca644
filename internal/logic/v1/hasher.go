package v1

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// PasswordHasher hashes passwords and verifies them against stored digests.
type PasswordHasher interface {
	// Hash returns a salted digest of password, safe to store.
	Hash(ctx context.Context, password string) (string, error)

	// Verify reports whether password produced digest.
	// A mismatch is (false, nil); an error means the digest is unusable
	// or ctx ended while waiting for a hashing slot.
	Verify(ctx context.Context, digest, password string) (bool, error)
}

// Argon2Params are the argon2id cost parameters encoded into every digest.
type Argon2Params struct {
	Time      uint32
	MemoryKiB uint32
	Threads   uint8
	SaltLen   uint32
	KeyLen    uint32
}

// DefaultArgon2Params returns the OWASP-recommended argon2id parameters.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		Time:      1,
		MemoryKiB: 64 * 1024,
		Threads:   4,
		SaltLen:   16,
		KeyLen:    32,
	}
}

// Argon2idHasher implements PasswordHasher with argon2id, encoding digests
// in PHC string format. bcrypt digests are still verified so older
// records keep working; NeedsRehash reports them.
//
// Every hash or verify holds one slot of a weighted semaphore, bounding
// the memory argon2 can claim under load.
type Argon2idHasher struct {
	params Argon2Params
	slots  *semaphore.Weighted
}

var _ PasswordHasher = (*Argon2idHasher)(nil)

// NewArgon2idHasher creates a hasher allowing at most concurrency
// simultaneous computations.
func NewArgon2idHasher(params Argon2Params, concurrency int64) *Argon2idHasher {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Argon2idHasher{
		params: params,
		slots:  semaphore.NewWeighted(concurrency),
	}
}

// Hash produces an argon2id digest of password:
// $argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>
func (h *Argon2idHasher) Hash(ctx context.Context, password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, h.params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	if err := h.slots.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("acquire hash slot: %w", err)
	}
	key := argon2.IDKey([]byte(password), salt, h.params.Time, h.params.MemoryKiB, h.params.Threads, h.params.KeyLen)
	h.slots.Release(1)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.MemoryKiB,
		h.params.Time,
		h.params.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify checks password against an argon2id or bcrypt digest.
// Comparison is constant-time.
func (h *Argon2idHasher) Verify(ctx context.Context, digest, password string) (bool, error) {
	if isBcrypt(digest) {
		return h.verifyBcrypt(ctx, digest, password)
	}

	d, err := parseArgon2id(digest)
	if err != nil {
		return false, err
	}

	if err := h.slots.Acquire(ctx, 1); err != nil {
		return false, fmt.Errorf("acquire hash slot: %w", err)
	}
	computed := argon2.IDKey([]byte(password), d.salt, d.time, d.memory, d.threads, uint32(len(d.key)))
	h.slots.Release(1)

	return subtle.ConstantTimeCompare(computed, d.key) == 1, nil
}

// NeedsRehash reports whether digest was produced by another algorithm or
// with parameters other than the hasher's current ones.
func (h *Argon2idHasher) NeedsRehash(digest string) bool {
	d, err := parseArgon2id(digest)
	if err != nil {
		return true
	}
	return d.time != h.params.Time ||
		d.memory != h.params.MemoryKiB ||
		d.threads != h.params.Threads ||
		uint32(len(d.key)) != h.params.KeyLen
}

func (h *Argon2idHasher) verifyBcrypt(ctx context.Context, digest, password string) (bool, error) {
	if err := h.slots.Acquire(ctx, 1); err != nil {
		return false, fmt.Errorf("acquire hash slot: %w", err)
	}
	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(password))
	h.slots.Release(1)

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("%w: %v", ErrInvalidHash, err)
	}
}

func isBcrypt(digest string) bool {
	return strings.HasPrefix(digest, "$2a$") ||
		strings.HasPrefix(digest, "$2b$") ||
		strings.HasPrefix(digest, "$2y$")
}

type argon2Digest struct {
	time    uint32
	memory  uint32
	threads uint8
	salt    []byte
	key     []byte
}

func parseArgon2id(encoded string) (argon2Digest, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return argon2Digest{}, fmt.Errorf("%w: expected 6 segments, got %d", ErrInvalidHash, len(parts))
	}
	if parts[1] != "argon2id" {
		return argon2Digest{}, fmt.Errorf("%w: %q", ErrUnsupportedHash, parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return argon2Digest{}, fmt.Errorf("%w: version: %v", ErrInvalidHash, err)
	}
	if version != argon2.Version {
		return argon2Digest{}, fmt.Errorf("%w: version %d", ErrUnsupportedHash, version)
	}

	var memory, time, threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return argon2Digest{}, fmt.Errorf("%w: parameters: %v", ErrInvalidHash, err)
	}
	if threads == 0 || threads > 255 {
		return argon2Digest{}, fmt.Errorf("%w: threads value %d outside 1..255", ErrInvalidHash, threads)
	}
	if time == 0 || memory < 8*threads {
		return argon2Digest{}, fmt.Errorf("%w: cost parameters m=%d t=%d", ErrInvalidHash, memory, time)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return argon2Digest{}, fmt.Errorf("%w: salt: %v", ErrInvalidHash, err)
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return argon2Digest{}, fmt.Errorf("%w: key: %v", ErrInvalidHash, err)
	}
	if len(key) == 0 || len(key) > 1<<10 {
		return argon2Digest{}, fmt.Errorf("%w: key length %d", ErrInvalidHash, len(key))
	}

	return argon2Digest{
		time:    time,
		memory:  memory,
		threads: uint8(threads),
		salt:    salt,
		key:     key,
	}, nil
}
