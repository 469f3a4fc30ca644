package v1

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duynhne/credential-service/internal/core/domain"
	"github.com/duynhne/credential-service/internal/core/repository"
)

var errStoreDown = errors.New("store unavailable")

// countingUsers records Create calls made against the wrapped repository.
type countingUsers struct {
	domain.UserRepository
	creates atomic.Int32
}

func (r *countingUsers) Create(ctx context.Context, username, passwordHash string) (*domain.User, error) {
	r.creates.Add(1)
	return r.UserRepository.Create(ctx, username, passwordHash)
}

type failingUsers struct {
	domain.UserRepository
}

func (failingUsers) Create(context.Context, string, string) (*domain.User, error) {
	return nil, errStoreDown
}

func (failingUsers) GetByUsername(context.Context, string) (*domain.User, error) {
	return nil, errStoreDown
}

func (failingUsers) GetByID(context.Context, int64) (*domain.User, error) {
	return nil, errStoreDown
}

type failingSessions struct {
	domain.SessionStore
}

func (failingSessions) Create(context.Context, int64) (*domain.Session, error) {
	return nil, errStoreDown
}

func (failingSessions) Get(context.Context, string) (*domain.Session, error) {
	return nil, errStoreDown
}

func (failingSessions) Destroy(context.Context, string) error {
	return errStoreDown
}

type fixture struct {
	users    *repository.MemoryUserRepository
	sessions *repository.MemorySessionStore
	svc      *AuthService
}

func newFixture() *fixture {
	users := repository.NewMemoryUserRepository()
	sessions := repository.NewMemorySessionStore(time.Hour)
	return &fixture{
		users:    users,
		sessions: sessions,
		svc:      NewAuthService(users, sessions, newTestHasher()),
	}
}

func creds(username, password string) domain.CredentialInput {
	return domain.CredentialInput{Username: username, Password: password}
}

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("creates user and session", func(t *testing.T) {
		f := newFixture()

		res, err := f.svc.Register(ctx, creds("alice", "secret123"))
		require.NoError(t, err)
		require.False(t, res.Failed())
		require.NotNil(t, res.User)
		require.NotNil(t, res.Session)

		assert.Equal(t, "alice", res.User.Username)
		assert.NotEqual(t, "secret123", res.User.PasswordHash)
		assert.Equal(t, res.User.ID, res.Session.UserID)
		assert.Equal(t, 1, f.users.Count())

		me, err := f.svc.Whoami(ctx, res.Session.Token)
		require.NoError(t, err)
		require.NotNil(t, me)
		assert.Equal(t, res.User.ID, me.ID)
	})

	t.Run("duplicate username is a field error", func(t *testing.T) {
		f := newFixture()

		_, err := f.svc.Register(ctx, creds("alice", "secret123"))
		require.NoError(t, err)

		res, err := f.svc.Register(ctx, creds("alice", "other-password"))
		require.NoError(t, err)
		assert.Nil(t, res.User)
		assert.Nil(t, res.Session)
		assert.Equal(t, []domain.FieldError{{Field: FieldUsername, Message: "username already taken"}}, res.Errors)
		assert.Equal(t, 1, f.users.Count())
		assert.Equal(t, 1, f.sessions.Len())
	})

	t.Run("invalid input never reaches the store", func(t *testing.T) {
		users := &countingUsers{UserRepository: repository.NewMemoryUserRepository()}
		sessions := repository.NewMemorySessionStore(time.Hour)
		svc := NewAuthService(users, sessions, newTestHasher())

		res, err := svc.Register(ctx, creds("ab", "xy"))
		require.NoError(t, err)
		assert.Len(t, res.Errors, 2)
		assert.Nil(t, res.User)
		assert.Zero(t, users.creates.Load())
		assert.Zero(t, sessions.Len())
	})

	t.Run("concurrent registrations of one name create one user", func(t *testing.T) {
		f := newFixture()

		const attempts = 16
		var (
			wg        sync.WaitGroup
			successes atomic.Int32
			conflicts atomic.Int32
		)
		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				res, err := f.svc.Register(ctx, creds("racer", "password"))
				if !assert.NoError(t, err) {
					return
				}
				if res.Failed() {
					conflicts.Add(1)
					return
				}
				successes.Add(1)
			}()
		}
		wg.Wait()

		assert.EqualValues(t, 1, successes.Load())
		assert.EqualValues(t, attempts-1, conflicts.Load())
		assert.Equal(t, 1, f.users.Count())
	})

	t.Run("store failure is an error", func(t *testing.T) {
		svc := NewAuthService(failingUsers{}, repository.NewMemorySessionStore(time.Hour), newTestHasher())

		res, err := svc.Register(ctx, creds("alice", "secret123"))
		assert.ErrorIs(t, err, errStoreDown)
		assert.Nil(t, res.User)
	})

	t.Run("session failure is an error", func(t *testing.T) {
		users := repository.NewMemoryUserRepository()
		svc := NewAuthService(users, failingSessions{}, newTestHasher())

		_, err := svc.Register(ctx, creds("alice", "secret123"))
		assert.ErrorIs(t, err, errStoreDown)
	})
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()

	f := newFixture()
	registered, err := f.svc.Register(ctx, creds("alice", "secret123"))
	require.NoError(t, err)
	require.False(t, registered.Failed())

	t.Run("unknown username", func(t *testing.T) {
		before := f.sessions.Len()

		res, err := f.svc.Login(ctx, creds("nobody", "secret123"))
		require.NoError(t, err)
		assert.Equal(t, []domain.FieldError{{Field: FieldUsername, Message: "this username does not exist"}}, res.Errors)
		assert.Nil(t, res.Session)
		assert.Equal(t, before, f.sessions.Len())
	})

	t.Run("wrong password", func(t *testing.T) {
		before := f.sessions.Len()

		res, err := f.svc.Login(ctx, creds("alice", "wrong"))
		require.NoError(t, err)
		assert.Equal(t, []domain.FieldError{{Field: FieldPassword, Message: "your password is incorrect"}}, res.Errors)
		assert.Nil(t, res.User)
		assert.Nil(t, res.Session)
		assert.Equal(t, before, f.sessions.Len())
	})

	t.Run("correct credentials open a new session", func(t *testing.T) {
		res, err := f.svc.Login(ctx, creds("alice", "secret123"))
		require.NoError(t, err)
		require.False(t, res.Failed())
		require.NotNil(t, res.Session)
		assert.NotEqual(t, registered.Session.Token, res.Session.Token)

		me, err := f.svc.Whoami(ctx, res.Session.Token)
		require.NoError(t, err)
		require.NotNil(t, me)
		assert.Equal(t, registered.User.ID, me.ID)
		assert.Equal(t, "alice", me.Username)
	})

	t.Run("store failure is an error", func(t *testing.T) {
		svc := NewAuthService(failingUsers{}, f.sessions, newTestHasher())

		_, err := svc.Login(ctx, creds("alice", "secret123"))
		assert.ErrorIs(t, err, errStoreDown)
	})

	t.Run("corrupt stored digest is an error", func(t *testing.T) {
		users := repository.NewMemoryUserRepository()
		_, err := users.Create(ctx, "mallory", "not-a-digest")
		require.NoError(t, err)
		svc := NewAuthService(users, repository.NewMemorySessionStore(time.Hour), newTestHasher())

		_, err = svc.Login(ctx, creds("mallory", "whatever"))
		assert.ErrorIs(t, err, ErrInvalidHash)
	})
}

func TestAuthService_Whoami(t *testing.T) {
	ctx := context.Background()

	t.Run("anonymous tokens", func(t *testing.T) {
		f := newFixture()
		for _, token := range []string{"", "garbage", "00112233445566778899aabbccddeeff"} {
			user, err := f.svc.Whoami(ctx, token)
			require.NoError(t, err)
			assert.Nil(t, user, "token %q", token)
		}
	})

	t.Run("expired session", func(t *testing.T) {
		now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		users := repository.NewMemoryUserRepository()
		sessions := repository.NewMemorySessionStore(time.Minute).WithClock(func() time.Time { return now })
		svc := NewAuthService(users, sessions, newTestHasher())

		res, err := svc.Register(ctx, creds("alice", "secret123"))
		require.NoError(t, err)

		now = now.Add(time.Minute)
		user, err := svc.Whoami(ctx, res.Session.Token)
		require.NoError(t, err)
		assert.Nil(t, user)
	})

	t.Run("session of a deleted user", func(t *testing.T) {
		f := newFixture()
		res, err := f.svc.Register(ctx, creds("alice", "secret123"))
		require.NoError(t, err)

		f.users.Delete(res.User.ID)

		user, err := f.svc.Whoami(ctx, res.Session.Token)
		require.NoError(t, err)
		assert.Nil(t, user)
	})

	t.Run("store failure is an error", func(t *testing.T) {
		svc := NewAuthService(repository.NewMemoryUserRepository(), failingSessions{}, newTestHasher())

		user, err := svc.Whoami(ctx, "token")
		assert.ErrorIs(t, err, errStoreDown)
		assert.Nil(t, user)
	})
}

func TestAuthService_Logout(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	res, err := f.svc.Register(ctx, creds("alice", "secret123"))
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(ctx, res.Session.Token))
	user, err := f.svc.Whoami(ctx, res.Session.Token)
	require.NoError(t, err)
	assert.Nil(t, user)

	assert.NoError(t, f.svc.Logout(ctx, ""))
	assert.NoError(t, f.svc.Logout(ctx, "unknown"))

	failing := NewAuthService(f.users, failingSessions{}, newTestHasher())
	assert.ErrorIs(t, failing.Logout(ctx, "token"), errStoreDown)
}
