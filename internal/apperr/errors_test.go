package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFetchErrorUnwraps(t *testing.T) {
	base := errors.New("connection refused")
	err := fmt.Errorf("resolve: %w", &FetchError{Op: "permissions", Err: base})

	var fe *FetchError
	assert.True(t, errors.As(err, &fe))
	assert.ErrorIs(t, err, base)
	assert.Equal(t, "fetch permissions: connection refused", fe.Error())
}

func TestValidationErrorFieldMap(t *testing.T) {
	err := &ValidationError{Fields: []FieldError{
		{Field: "code", Message: "code is a required field"},
		{Field: "name", Message: "name must be at most 255 characters"},
	}}

	assert.Equal(t, map[string]string{
		"code": "code is a required field",
		"name": "name must be at most 255 characters",
	}, err.FieldMap())
	assert.Contains(t, err.Error(), "code: code is a required field")
}

func TestAuthErrorMessage(t *testing.T) {
	assert.Equal(t, "invalid credentials", (&AuthError{}).Error())
	assert.Equal(t, "auth: session revoked", (&AuthError{Reason: "session revoked"}).Error())
}
