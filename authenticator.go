package paedu

import (
	"context"
	"reflect"
	"time"
)

// Auther authenticates credentials and exchanges them for auth tokens.
type Auther struct {
	provider     CredentialVerifier
	codec        *Codec
	logger       Logger
	activitySink ActivitySink
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(provider CredentialVerifier, opts Config) *Auther {
	return &Auther{
		provider:     provider,
		codec:        NewTokenCodecFromConfig(opts),
		logger:       defLogger{},
		activitySink: noopActivitySink{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
		s.codec.logger = logger
	}
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// Codec returns the token codec used by this Authenticator
func (s *Auther) Codec() *Codec {
	return s.codec
}

// Login verifies the credentials and mints an auth-purpose token carrying
// the account's permission bitmask.
func (s *Auther) Login(ctx context.Context, identifier, password string) (string, error) {
	var err error
	var identity Identity

	if identity, err = s.provider.VerifyCredentials(ctx, identifier, password); err != nil {
		s.logger.Error("Login verify credentials error", "error", err)
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, "", map[string]any{
			"identifier": identifier,
			"error":      err.Error(),
		})
		return "", err
	}

	if identity == nil || reflect.ValueOf(identity).IsZero() {
		s.logger.Error("Login identity is nil or zero value")
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, "", map[string]any{
			"identifier": identifier,
			"error":      ErrIdentityNotFound.Error(),
		})
		return "", ErrIdentityNotFound
	}

	token, _, err := s.codec.Issue(PurposeAuth, identity.ID(), WithPermissions(identity.Permissions()))
	if err != nil {
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, identity.ID(), map[string]any{
			"identifier": identifier,
			"error":      err.Error(),
		})
		return "", err
	}

	s.emitAuthEvent(ctx, ActivityEventLoginSuccess, identity.ID(), map[string]any{
		"identifier": identifier,
	})

	return token, nil
}

// IdentityFromSession resolves the stored account behind a session.
func (s *Auther) IdentityFromSession(ctx context.Context, session Session) (Identity, error) {
	if session == nil {
		return nil, ErrUnableToDecodeSession
	}
	return s.provider.FindIdentityByIdentifier(ctx, session.GetUserID())
}

// SessionFromToken redeems an auth-purpose token into a session.
func (s Auther) SessionFromToken(raw string) (Session, error) {
	claims, err := s.codec.Redeem(raw, PurposeAuth)
	if err != nil {
		return nil, err
	}
	return sessionFromClaims(claims)
}

func (s *Auther) emitAuthEvent(ctx context.Context, eventType ActivityEventType, userID string, metadata map[string]any) {
	event := ActivityEvent{
		EventType:  eventType,
		UserID:     userID,
		Metadata:   metadata,
		OccurredAt: time.Now(),
	}

	if err := s.activitySink.Record(ctx, event); err != nil {
		s.logger.Error("failed to record auth activity", "error", err, "event", string(eventType))
	}
}
