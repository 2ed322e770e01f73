package paedu

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenPurpose tags a token with the single flow it can be redeemed in.
type TokenPurpose string

const (
	// PurposeAuth authenticates API requests
	PurposeAuth TokenPurpose = "auth"
	// PurposeConfirm confirms a freshly registered account
	PurposeConfirm TokenPurpose = "confirm"
	// PurposeReset authorizes a password change
	PurposeReset TokenPurpose = "reset"
	// PurposeLoginChange authorizes an email/username swap
	PurposeLoginChange TokenPurpose = "change_login"
)

// CapabilityClaims is the signed payload of every token the codec mints.
// Purpose binds the token to one lifecycle flow; NewLogin rides along only
// on login-change tokens.
type CapabilityClaims struct {
	jwt.RegisteredClaims
	Purpose  TokenPurpose `json:"purpose,omitempty"`
	UID      string       `json:"uid,omitempty"`
	Perms    Permission   `json:"perms,omitempty"`
	NewLogin string       `json:"new_login,omitempty"`
}

// Subject returns the subject claim
func (c *CapabilityClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// UserID returns the user ID
func (c *CapabilityClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.Subject()
}

// UserUUID parses the subject as a uuid.
func (c *CapabilityClaims) UserUUID() (uuid.UUID, error) {
	return uuid.Parse(c.UserID())
}

// Permissions returns the bitmask carried by the token.
func (c *CapabilityClaims) Permissions() Permission {
	return c.Perms
}

// Can reports whether the token bitmask contains every bit of perm.
func (c *CapabilityClaims) Can(perm Permission) bool {
	return c.Perms.Has(perm)
}

// IsAdmin reports whether the token carries the full admin bitmask.
func (c *CapabilityClaims) IsAdmin() bool {
	return c.Perms.IsAdmin()
}

// Expires returns the expiration time
func (c *CapabilityClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *CapabilityClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

func ensureTokenID(claims *jwt.RegisteredClaims) {
	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}
}
