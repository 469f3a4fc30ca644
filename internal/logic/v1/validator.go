package v1

import (
	"unicode/utf8"

	"github.com/duynhne/credential-service/internal/core/domain"
)

// Minimum lengths are exclusive: a value must be longer than these.
const (
	MinUsernameLength = 2
	MinPasswordLength = 2
)

// The message text states 5 while the check enforces 2. Clients display
// these strings verbatim, so they are kept until the threshold is settled.
const (
	usernameTooShortMessage = "username must be of length greater than 5"
	passwordTooShortMessage = "password length must be greater than 5"
)

// ValidateCredentials checks the shape of a username/password pair and
// returns every violation found. An empty result means the input is valid.
// Length is counted in characters, not bytes.
func ValidateCredentials(input domain.CredentialInput) []domain.FieldError {
	var errs []domain.FieldError

	if utf8.RuneCountInString(input.Username) <= MinUsernameLength {
		errs = append(errs, domain.FieldError{Field: FieldUsername, Message: usernameTooShortMessage})
	}
	if utf8.RuneCountInString(input.Password) <= MinPasswordLength {
		errs = append(errs, domain.FieldError{Field: FieldPassword, Message: passwordTooShortMessage})
	}

	return errs
}
