package paedu_test

import (
	"errors"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"

	"github.com/alfredpaedu/paedu"
)

func TestIsTokenExpiredError(t *testing.T) {
	assert.True(t, paedu.IsTokenExpiredError(paedu.ErrTokenExpired))
	assert.True(t, paedu.IsTokenExpiredError(errors.New("token is expired by 1h")))
	assert.False(t, paedu.IsTokenExpiredError(paedu.ErrTokenMalformed))
	assert.False(t, paedu.IsTokenExpiredError(nil))
}

func TestIsMalformedError(t *testing.T) {
	assert.True(t, paedu.IsMalformedError(paedu.ErrTokenMalformed))
	assert.True(t, paedu.IsMalformedError(errors.New("token is malformed")))
	assert.True(t, paedu.IsMalformedError(errors.New("missing or malformed JWT")))
	assert.False(t, paedu.IsMalformedError(paedu.ErrTokenExpired))
	assert.False(t, paedu.IsMalformedError(nil))

	// wrapped errors keep their text code
	wrapped := goerrors.Wrap(errors.New("bad segment"), paedu.ErrTokenMalformed.Category, paedu.ErrTokenMalformed.Message).
		WithTextCode(paedu.ErrTokenMalformed.TextCode)
	assert.True(t, paedu.IsMalformedError(wrapped))
}

func TestIsDuplicateIdentifierError(t *testing.T) {
	assert.True(t, paedu.IsDuplicateIdentifierError(paedu.ErrDuplicateIdentifier))
	assert.False(t, paedu.IsDuplicateIdentifierError(paedu.ErrIdentityNotFound))
	assert.False(t, paedu.IsDuplicateIdentifierError(nil))
}

func TestIsIdentityNotFoundError(t *testing.T) {
	assert.True(t, paedu.IsIdentityNotFoundError(paedu.ErrIdentityNotFound))
	assert.True(t, paedu.IsIdentityNotFoundError(goerrors.New("gone", goerrors.CategoryNotFound)))
	assert.False(t, paedu.IsIdentityNotFoundError(paedu.ErrMismatchedHashAndPassword))
	assert.False(t, paedu.IsIdentityNotFoundError(nil))
}

func TestErrorTextCodes(t *testing.T) {
	assert.Equal(t, paedu.TextCodeTokenExpired, paedu.ErrTokenExpired.TextCode)
	assert.Equal(t, paedu.TextCodeTokenMalformed, paedu.ErrTokenMalformed.TextCode)
	assert.Equal(t, paedu.TextCodePurposeMismatch, paedu.ErrTokenPurposeMismatch.TextCode)
	assert.Equal(t, paedu.TextCodeDuplicateIdentifier, paedu.ErrDuplicateIdentifier.TextCode)
	assert.Equal(t, paedu.TextCodeInvalidCredentials, paedu.ErrMismatchedHashAndPassword.TextCode)
	assert.Equal(t, paedu.TextCodePermissionDenied, paedu.ErrPermissionDenied.TextCode)
	assert.Equal(t, paedu.TextCodeTooManyAttempts, paedu.ErrTooManyLoginAttempts.TextCode)
}
