package paedu

import (
	"context"

	"github.com/goliatone/go-router"
)

var userCtxKey = &contextKey{"user"}
var sessionCtxKey = &contextKey{"session"}

type contextKey struct {
	name string
}

// WithContext sets the User in the given context
func WithContext(r context.Context, user *User) context.Context {
	return context.WithValue(r, userCtxKey, user)
}

// FromContext finds the user from the context.
func FromContext(ctx context.Context) (*User, bool) {
	raw, ok := ctx.Value(userCtxKey).(*User)
	return raw, ok
}

// WithSessionContext sets the Session in the given context
func WithSessionContext(r context.Context, session Session) context.Context {
	return context.WithValue(r, sessionCtxKey, session)
}

// SessionFromContext extracts the Session from the standard context
func SessionFromContext(ctx context.Context) (Session, bool) {
	raw, ok := ctx.Value(sessionCtxKey).(Session)
	return raw, ok
}

// RouterSession extracts the Session stored in the router locals by the gate
func RouterSession(ctx router.Context, key string) (Session, bool) {
	if key == "" {
		key = "caller"
	}
	raw := ctx.Locals(key)
	if raw == nil {
		return nil, false
	}
	session, ok := raw.(Session)
	return session, ok
}

// Can checks a capability bit directly from the standard context.
func Can(ctx context.Context, perm Permission) bool {
	session, ok := SessionFromContext(ctx)
	if !ok {
		return false
	}
	return session.GetPermissions().Has(perm)
}

// CanFromRouter checks a capability bit directly from the router context.
func CanFromRouter(ctx router.Context, key string, perm Permission) bool {
	session, ok := RouterSession(ctx, key)
	if !ok {
		return false
	}
	return session.GetPermissions().Has(perm)
}
