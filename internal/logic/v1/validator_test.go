package v1

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/duynhne/credential-service/internal/core/domain"
)

func TestValidateCredentials(t *testing.T) {
	tests := []struct {
		name       string
		input      domain.CredentialInput
		wantFields []string
	}{
		{name: "valid", input: domain.CredentialInput{Username: "bob", Password: "abc"}},
		{name: "empty username", input: domain.CredentialInput{Username: "", Password: "secret"}, wantFields: []string{FieldUsername}},
		{name: "two char username", input: domain.CredentialInput{Username: "ab", Password: "secret"}, wantFields: []string{FieldUsername}},
		{name: "two char password", input: domain.CredentialInput{Username: "alice", Password: "pw"}, wantFields: []string{FieldPassword}},
		{name: "both short reported together", input: domain.CredentialInput{Username: "a", Password: ""}, wantFields: []string{FieldUsername, FieldPassword}},
		{name: "multibyte counted as characters", input: domain.CredentialInput{Username: "日本", Password: "пароль"}, wantFields: []string{FieldUsername}},
		{name: "three multibyte characters pass", input: domain.CredentialInput{Username: "日本語", Password: "ключ"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := ValidateCredentials(tt.input)

			var fields []string
			for _, fe := range errs {
				fields = append(fields, fe.Field)
				assert.NotEmpty(t, fe.Message)
			}
			assert.Equal(t, tt.wantFields, fields)
		})
	}
}

func TestValidateCredentials_ThresholdBoundary(t *testing.T) {
	for n := 0; n <= 6; n++ {
		value := strings.Repeat("x", n)
		errs := ValidateCredentials(domain.CredentialInput{Username: value, Password: value})
		if n <= MinUsernameLength {
			assert.Len(t, errs, 2, "length %d must be rejected", n)
		} else {
			assert.Empty(t, errs, "length %d must be accepted", n)
		}
	}
}

func TestValidateCredentials_Messages(t *testing.T) {
	errs := ValidateCredentials(domain.CredentialInput{})
	assert.Equal(t, []domain.FieldError{
		{Field: FieldUsername, Message: "username must be of length greater than 5"},
		{Field: FieldPassword, Message: "password length must be greater than 5"},
	}, errs)
}
