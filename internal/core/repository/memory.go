package repository

import (
	"context"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/duynhne/credential-service/internal/core/domain"
)

// MemoryUserRepository is an in-process domain.UserRepository for
// development and tests. Username uniqueness is enforced under its lock.
type MemoryUserRepository struct {
	mu         sync.RWMutex
	nextID     int64
	byID       map[int64]domain.User
	byUsername map[string]int64
	now        Clock
}

var _ domain.UserRepository = (*MemoryUserRepository)(nil)

// NewMemoryUserRepository creates an empty in-memory user repository.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		byID:       make(map[int64]domain.User),
		byUsername: make(map[string]int64),
		now:        utcNow,
	}
}

// Create implements domain.UserRepository.Create in memory.
func (r *MemoryUserRepository) Create(_ context.Context, username, passwordHash string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byUsername[username]; exists {
		return nil, oops.Code("USER_USERNAME_TAKEN").
			With("username", username).
			Wrap(domain.ErrUsernameTaken)
	}

	r.nextID++
	user := domain.User{
		ID:           r.nextID,
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    r.now(),
	}
	r.byID[user.ID] = user
	r.byUsername[username] = user.ID
	return &user, nil
}

// GetByUsername implements domain.UserRepository.GetByUsername in memory.
func (r *MemoryUserRepository) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byUsername[username]
	if !ok {
		return nil, nil
	}
	user := r.byID[id]
	return &user, nil
}

// GetByID implements domain.UserRepository.GetByID in memory.
func (r *MemoryUserRepository) GetByID(_ context.Context, id int64) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

// Delete removes a user. Only used to model out-of-band removals.
func (r *MemoryUserRepository) Delete(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if user, ok := r.byID[id]; ok {
		delete(r.byUsername, user.Username)
		delete(r.byID, id)
	}
}

// Count returns the number of stored users.
func (r *MemoryUserRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

type memorySession struct {
	userID    int64
	expiresAt time.Time
}

// MemorySessionStore is an in-process domain.SessionStore keyed by token digest.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]memorySession
	ttl      time.Duration
	now      Clock
}

var _ domain.SessionStore = (*MemorySessionStore)(nil)

// NewMemorySessionStore creates an empty in-memory session store whose sessions live for ttl.
func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]memorySession),
		ttl:      ttl,
		now:      utcNow,
	}
}

// WithClock replaces the store's time source.
func (s *MemorySessionStore) WithClock(now Clock) *MemorySessionStore {
	s.now = now
	return s
}

// Create implements domain.SessionStore.Create in memory.
func (s *MemorySessionStore) Create(_ context.Context, userID int64) (*domain.Session, error) {
	token, digest, err := newSessionToken()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	expiresAt := s.now().Add(s.ttl)
	s.sessions[digest] = memorySession{userID: userID, expiresAt: expiresAt}
	return &domain.Session{Token: token, UserID: userID, ExpiresAt: expiresAt}, nil
}

// Get implements domain.SessionStore.Get in memory. Expired entries are dropped on read.
func (s *MemorySessionStore) Get(_ context.Context, token string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	digest := hashSessionToken(token)
	entry, ok := s.sessions[digest]
	if !ok {
		return nil, nil
	}
	if !s.now().Before(entry.expiresAt) {
		delete(s.sessions, digest)
		return nil, nil
	}
	return &domain.Session{Token: token, UserID: entry.userID, ExpiresAt: entry.expiresAt}, nil
}

// Destroy implements domain.SessionStore.Destroy in memory.
func (s *MemorySessionStore) Destroy(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, hashSessionToken(token))
	return nil
}

// PurgeExpired implements domain.SessionStore.PurgeExpired in memory.
func (s *MemorySessionStore) PurgeExpired(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var n int64
	for digest, entry := range s.sessions {
		if !now.Before(entry.expiresAt) {
			delete(s.sessions, digest)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored sessions, expired or not.
func (s *MemorySessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
