package v1

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/duynhne/credential-service/internal/core/domain"
	"github.com/duynhne/credential-service/internal/logger"
	"github.com/duynhne/credential-service/middleware"
)

// Operation names used in spans and metrics.
const (
	OpRegister = "register"
	OpLogin    = "login"
	OpWhoami   = "whoami"
	OpLogout   = "logout"
	OpRevoke   = "revoke"
)

// AuthService implements registration, login and session lookup.
// It depends on repository interfaces (injected via constructor), holds
// no mutable state of its own and is safe for concurrent use.
type AuthService struct {
	users    domain.UserRepository
	sessions domain.SessionStore
	hasher   PasswordHasher
}

// NewAuthService creates a new AuthService with the given dependencies.
func NewAuthService(users domain.UserRepository, sessions domain.SessionStore, hasher PasswordHasher) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
	}
}

// Register validates input, creates the user and opens a session for it.
// Invalid input and taken usernames are reported as field errors; the
// store is not touched when validation fails.
func (s *AuthService) Register(ctx context.Context, input domain.CredentialInput) (domain.AuthResult, error) {
	ctx, span := middleware.StartSpan(ctx, "auth.register", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.String("username", input.Username),
	))
	defer span.End()

	if errs := ValidateCredentials(input); len(errs) > 0 {
		span.SetAttributes(attribute.Bool("registration.success", false))
		span.AddEvent("validation.failed")
		recordRejected(OpRegister, errs)
		return domain.FieldFailure(errs...), nil
	}

	passwordHash, err := s.hasher.Hash(ctx, input.Password)
	if err != nil {
		return s.fail(span, OpRegister, fmt.Errorf("hash password: %w", err))
	}

	// Uniqueness is decided by the store; no pre-check.
	user, err := s.users.Create(ctx, input.Username, passwordHash)
	if err != nil {
		if errors.Is(err, domain.ErrUsernameTaken) {
			span.SetAttributes(attribute.Bool("registration.success", false))
			span.AddEvent("username.conflict")
			recordRejected(OpRegister, []domain.FieldError{errUsernameTaken})
			return domain.FieldFailure(errUsernameTaken), nil
		}
		return s.fail(span, OpRegister, fmt.Errorf("create user %q: %w", input.Username, err))
	}

	sess, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		return s.fail(span, OpRegister, fmt.Errorf("create session for user %d: %w", user.ID, err))
	}

	span.SetAttributes(
		attribute.Int64("user.id", user.ID),
		attribute.Bool("registration.success", true),
	)
	span.AddEvent("user.registered")
	recordOutcome(OpRegister, outcomeSuccess)

	return domain.AuthResult{User: user, Session: sess}, nil
}

// Login checks credentials and opens a new session for the user.
// Unknown usernames and wrong passwords are reported as distinct field errors.
func (s *AuthService) Login(ctx context.Context, input domain.CredentialInput) (domain.AuthResult, error) {
	ctx, span := middleware.StartSpan(ctx, "auth.login", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.String("username", input.Username),
	))
	defer span.End()

	user, err := s.users.GetByUsername(ctx, input.Username)
	if err != nil {
		return s.fail(span, OpLogin, fmt.Errorf("query user %q: %w", input.Username, err))
	}
	if user == nil {
		span.SetAttributes(attribute.Bool("auth.success", false))
		span.AddEvent("authentication.failed")
		recordRejected(OpLogin, []domain.FieldError{errUnknownUsername})
		return domain.FieldFailure(errUnknownUsername), nil
	}

	ok, err := s.hasher.Verify(ctx, user.PasswordHash, input.Password)
	if err != nil {
		return s.fail(span, OpLogin, fmt.Errorf("verify password of user %d: %w", user.ID, err))
	}
	if !ok {
		span.SetAttributes(attribute.Bool("auth.success", false))
		span.AddEvent("authentication.failed")
		recordRejected(OpLogin, []domain.FieldError{errWrongPassword})
		return domain.FieldFailure(errWrongPassword), nil
	}

	if r, ok := s.hasher.(interface{ NeedsRehash(string) bool }); ok && r.NeedsRehash(user.PasswordHash) {
		span.AddEvent("password.rehash_needed")
		logger.FromContext(ctx).Debug().Int64("user_id", user.ID).Msg("Password hash uses outdated parameters")
	}

	sess, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		return s.fail(span, OpLogin, fmt.Errorf("create session for user %d: %w", user.ID, err))
	}

	span.SetAttributes(
		attribute.Int64("user.id", user.ID),
		attribute.Bool("auth.success", true),
	)
	span.AddEvent("user.authenticated")
	recordOutcome(OpLogin, outcomeSuccess)

	return domain.AuthResult{User: user, Session: sess}, nil
}

// Whoami resolves a session token to its user. An empty, unknown or
// expired token, or a session whose user no longer exists, yields
// (nil, nil): the caller is anonymous.
func (s *AuthService) Whoami(ctx context.Context, token string) (*domain.User, error) {
	ctx, span := middleware.StartSpan(ctx, "auth.whoami", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	if token == "" {
		span.SetAttributes(attribute.Bool("session.valid", false))
		recordOutcome(OpWhoami, outcomeAnonymous)
		return nil, nil
	}

	sess, err := s.sessions.Get(ctx, token)
	if err != nil {
		_, err = s.fail(span, OpWhoami, fmt.Errorf("query session: %w", err))
		return nil, err
	}
	if sess == nil {
		span.SetAttributes(attribute.Bool("session.valid", false))
		recordOutcome(OpWhoami, outcomeAnonymous)
		return nil, nil
	}

	user, err := s.users.GetByID(ctx, sess.UserID)
	if err != nil {
		_, err = s.fail(span, OpWhoami, fmt.Errorf("query user %d: %w", sess.UserID, err))
		return nil, err
	}
	if user == nil {
		span.SetAttributes(attribute.Bool("session.valid", false))
		span.AddEvent("session.orphaned")
		recordOutcome(OpWhoami, outcomeAnonymous)
		return nil, nil
	}

	span.SetAttributes(
		attribute.Int64("user.id", user.ID),
		attribute.Bool("session.valid", true),
	)
	recordOutcome(OpWhoami, outcomeSuccess)

	return user, nil
}

// Logout destroys the session behind token. Empty or unknown tokens are a no-op.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.endSession(ctx, OpLogout, token)
}

// Revoke destroys a session the caller is replacing with a new one.
// It is recorded apart from Logout.
func (s *AuthService) Revoke(ctx context.Context, token string) error {
	return s.endSession(ctx, OpRevoke, token)
}

func (s *AuthService) endSession(ctx context.Context, operation, token string) error {
	ctx, span := middleware.StartSpan(ctx, "auth."+operation, trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	if token == "" {
		recordOutcome(operation, outcomeAnonymous)
		return nil
	}

	if err := s.sessions.Destroy(ctx, token); err != nil {
		_, err = s.fail(span, operation, fmt.Errorf("destroy session: %w", err))
		return err
	}

	recordOutcome(operation, outcomeSuccess)
	return nil
}

func (s *AuthService) fail(span trace.Span, operation string, err error) (domain.AuthResult, error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, operation+" failed")
	recordOutcome(operation, outcomeError)
	return domain.AuthResult{}, err
}
