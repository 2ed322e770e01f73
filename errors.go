package paedu

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes surfaced to API clients through the error payload.
const (
	TextCodeTokenExpired        = "AUTH_TOKEN_EXPIRED"
	TextCodeTokenMalformed      = "AUTH_TOKEN_MALFORMED"
	TextCodePurposeMismatch     = "AUTH_TOKEN_PURPOSE_MISMATCH"
	TextCodeDuplicateIdentifier = "DUPLICATE_IDENTIFIER"
	TextCodeInvalidCredentials  = "INVALID_CREDENTIALS"
	TextCodePermissionDenied    = "PERMISSION_DENIED"
	TextCodeIdentityNotFound    = "IDENTITY_NOT_FOUND"
	TextCodeTooManyAttempts     = "TOO_MANY_LOGIN_ATTEMPTS"
)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = goerrors.New("identity not found", goerrors.CategoryNotFound).
	WithCode(goerrors.CodeNotFound).
	WithTextCode(TextCodeIdentityNotFound)

// ErrTokenExpired marks tokens past their expiry instant
var ErrTokenExpired = goerrors.New("token has expired", goerrors.CategoryValidation).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeTokenExpired)

// ErrTokenMalformed covers bad signatures and undecodable payloads
var ErrTokenMalformed = goerrors.New("invalid or malformed token", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeTokenMalformed)

// ErrTokenPurposeMismatch is returned when a token minted for one flow is
// replayed against another
var ErrTokenPurposeMismatch = goerrors.New("token purpose mismatch", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodePurposeMismatch)

// ErrDuplicateIdentifier is returned when an email or username is already taken
var ErrDuplicateIdentifier = goerrors.New("email or username already registered", goerrors.CategoryConflict).
	WithTextCode(TextCodeDuplicateIdentifier)

// ErrMismatchedHashAndPassword is the credential failure error
var ErrMismatchedHashAndPassword = goerrors.New("invalid credentials", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeInvalidCredentials)

// ErrNoEmptyString rejects empty passwords before hashing
var ErrNoEmptyString = goerrors.New("password must not be empty", goerrors.CategoryValidation)

// ErrTooManyLoginAttempts is returned while an account is in cool down
var ErrTooManyLoginAttempts = goerrors.New("too many login attempts", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeTooManyAttempts)

// ErrPermissionDenied is returned when the caller's bitmask lacks a capability
var ErrPermissionDenied = goerrors.New("permission denied", goerrors.CategoryAuthz).
	WithCode(goerrors.CodeForbidden).
	WithTextCode(TextCodePermissionDenied)

// ErrUnableToDecodeSession unable to decode JWT claims into a session
var ErrUnableToDecodeSession = goerrors.New("unable to decode session", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if hasTextCode(err, TextCodeTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for undecodable tokens
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if hasTextCode(err, TextCodeTokenMalformed) {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

// IsDuplicateIdentifierError reports identifier collisions from registration
// or login change
func IsDuplicateIdentifierError(err error) bool {
	return hasTextCode(err, TextCodeDuplicateIdentifier)
}

// IsIdentityNotFoundError reports unresolved identifiers
func IsIdentityNotFoundError(err error) bool {
	if goerrors.IsNotFound(err) {
		return true
	}
	return hasTextCode(err, TextCodeIdentityNotFound)
}

func hasTextCode(err error, code string) bool {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.TextCode == code
	}
	return false
}
