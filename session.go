package paedu

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

var _ Session = &SessionObject{}

// SessionObject is the concrete Session built from redeemed auth claims.
type SessionObject struct {
	UserID         string     `json:"user_id,omitempty"`
	Audience       []string   `json:"audience,omitempty"`
	Issuer         string     `json:"issuer,omitempty"`
	IssuedAt       *time.Time `json:"issued_at,omitempty"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty"`
	Permissions    Permission `json:"permissions,omitempty"`
	TokenBased     bool       `json:"token_based,omitempty"`
}

func (s *SessionObject) GetUserID() string {
	return s.UserID
}

func (s *SessionObject) GetUserUUID() (uuid.UUID, error) {
	return uuid.Parse(s.UserID)
}

func (s *SessionObject) GetAudience() []string {
	return s.Audience
}

func (s *SessionObject) GetIssuer() string {
	return s.Issuer
}

func (s *SessionObject) GetIssuedAt() *time.Time {
	return s.IssuedAt
}

func (s *SessionObject) GetPermissions() Permission {
	return s.Permissions
}

// Can reports whether the session bitmask contains every bit of perm.
func (s *SessionObject) Can(perm Permission) bool {
	return s.Permissions.Has(perm)
}

// IsAdmin reports whether the session carries the full admin bitmask.
func (s *SessionObject) IsAdmin() bool {
	return s.Permissions.IsAdmin()
}

func (s SessionObject) String() string {
	issuedAt := "<nil>"
	if s.IssuedAt != nil {
		issuedAt = s.IssuedAt.Format(time.RFC1123)
	}
	return fmt.Sprintf(
		"user=%s aud=%v iss=%s iat=%s perms=%#x",
		s.UserID,
		s.Audience,
		s.Issuer,
		issuedAt,
		int(s.Permissions),
	)
}

// sessionFromClaims creates a SessionObject from redeemed capability claims.
func sessionFromClaims(claims *CapabilityClaims) (*SessionObject, error) {
	if claims == nil {
		return nil, ErrUnableToDecodeSession
	}

	var audience []string
	if claims.RegisteredClaims.Audience != nil {
		audience = append(audience, claims.RegisteredClaims.Audience...)
	}

	issuedAt := claims.IssuedAt()
	expiresAt := claims.Expires()

	return &SessionObject{
		UserID:         claims.UserID(),
		Audience:       audience,
		Issuer:         claims.RegisteredClaims.Issuer,
		IssuedAt:       &issuedAt,
		ExpirationDate: &expiresAt,
		Permissions:    claims.Perms,
		TokenBased:     true,
	}, nil
}
