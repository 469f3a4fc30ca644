package domain

import "time"

// User is a persistent user record. The password hash never leaves the
// service in serialized form.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// CredentialInput carries the plaintext credentials of a single
// register or login call. It must never be persisted or logged.
type CredentialInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// FieldError describes one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// AuthResult is the outcome of register, login and whoami calls.
// Errors and User are mutually exclusive; both keys are always serialized.
// Session is set when the call established a new session and is never
// serialized: the boundary turns it into a cookie.
type AuthResult struct {
	Errors  []FieldError `json:"errors"`
	User    *User        `json:"user"`
	Session *Session     `json:"-"`
}

// Failed reports whether the result carries field errors.
func (r AuthResult) Failed() bool {
	return len(r.Errors) > 0
}

// FieldFailure builds a failed result from the given field errors.
func FieldFailure(errs ...FieldError) AuthResult {
	return AuthResult{Errors: errs}
}
