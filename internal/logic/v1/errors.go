// Package v1 provides credential and session business logic for API version 1.
//
// Error Handling:
// Expected outcomes (invalid input, taken username, unknown username,
// wrong password) are not Go errors. They are returned as
// domain.FieldError values inside domain.AuthResult.
//
// A returned error always means an unexpected failure (store unreachable,
// corrupt password hash, ...). Errors are wrapped with context using
// fmt.Errorf("%w") and the transport answers them with a generic server error.
//
// Example Usage:
//
//	res, err := svc.Login(ctx, input)
//	if err != nil {
//	    c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
//	    return
//	}
//	c.JSON(http.StatusOK, res) // res.Errors or res.User
package v1

import (
	"errors"

	"github.com/duynhne/credential-service/internal/core/domain"
)

// Sentinel errors for hashing. These are unexpected failures: they never
// describe a wrong password.
var (
	// ErrEmptyPassword indicates an attempt to hash an empty password.
	ErrEmptyPassword = errors.New("password cannot be empty")

	// ErrInvalidHash indicates a stored digest that cannot be parsed.
	ErrInvalidHash = errors.New("invalid password hash")

	// ErrUnsupportedHash indicates a stored digest of an unknown algorithm.
	ErrUnsupportedHash = errors.New("unsupported password hash algorithm")
)

// Field names reported in domain.FieldError.
const (
	FieldUsername = "username"
	FieldPassword = "password"
)

// Field errors returned by the service.
var (
	errUsernameTaken = domain.FieldError{
		Field:   FieldUsername,
		Message: "username already taken",
	}

	errUnknownUsername = domain.FieldError{
		Field:   FieldUsername,
		Message: "this username does not exist",
	}

	errWrongPassword = domain.FieldError{
		Field:   FieldPassword,
		Message: "your password is incorrect",
	}
)
