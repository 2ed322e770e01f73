package paedu

import (
	"context"

	"github.com/goliatone/go-errors"
)

// AccountTracker is a store we can use to retrieve accounts
type AccountTracker interface {
	GetByIdentifier(ctx context.Context, identifier string) (*User, error)
	TrackAttemptedLogin(ctx context.Context, user *User) error
	TrackSucccessfulLogin(ctx context.Context, user *User) error
}

// CredentialStore resolves identifiers against the account store and
// checks passwords
type CredentialStore struct {
	store     AccountTracker
	Validator func(*User) error
	logger    Logger
}

// MaxLoginAttempts is the maximun number of attempts a user gets
// in a period
var MaxLoginAttempts = 5

// CoolDownPeriod is the period in which we enforce a cool down
var CoolDownPeriod = "24h"

// NewCredentialStore will create a new CredentialStore
func NewCredentialStore(store AccountTracker) *CredentialStore {
	return &CredentialStore{
		store:     store,
		logger:    defLogger{},
		Validator: defaultAccountValidator,
	}
}

func (u *CredentialStore) WithLogger(l Logger) *CredentialStore {
	if l != nil {
		u.logger = l
	}
	return u
}

func (u *CredentialStore) validate(user *User) error {
	if u.Validator != nil {
		return u.Validator(user)
	}
	return defaultAccountValidator(user)
}

// VerifyCredentials will find the user, compare to the password, and return
// the identity. An unknown identifier reports the same credential failure as
// a wrong password.
func (u CredentialStore) VerifyCredentials(ctx context.Context, identifier, password string) (Identity, error) {
	user, err := u.store.GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrMismatchedHashAndPassword
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user during verification")
	}

	if user == nil {
		return nil, ErrIdentityNotFound
	}

	if user.LoginAttemptAt != nil {
		expired, err := IsOutsideThresholdPeriod(*user.LoginAttemptAt, CoolDownPeriod)
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryInternal, "failed to calculate login attempt cooldown")
		}

		if expired {
			user.LoginAttempts = 0
		}
	}

	// too many attempts in the given window, cool off!
	if user.LoginAttempts > MaxLoginAttempts {
		return nil, ErrTooManyLoginAttempts
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		// increment the login_attempts counter and login_attempt_at
		if err2 := u.store.TrackAttemptedLogin(ctx, user); err2 != nil {
			return nil, errors.Wrap(err2, errors.CategoryInternal, "failed to track login attempt")
		}

		return nil, ErrMismatchedHashAndPassword
	}

	// reset the login_attempts counter and login_attempt_at
	if err := u.store.TrackSucccessfulLogin(ctx, user); err != nil {
		u.logger.Error("failed to track successful login", "error", err)
	}

	if err := u.validate(user); err != nil {
		return nil, err
	}

	return NewIdentityFromUser(user), nil
}

// FindIdentityByIdentifier resolves an identifier without checking a
// password. The gate uses it to decide between the password and token paths.
func (u CredentialStore) FindIdentityByIdentifier(ctx context.Context, identifier string) (Identity, error) {
	user, err := u.store.GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrIdentityNotFound
		}
		return nil, err
	}

	if user == nil {
		return nil, ErrIdentityNotFound
	}

	if err := u.validate(user); err != nil {
		return nil, err
	}

	return NewIdentityFromUser(user), nil
}

func defaultAccountValidator(u *User) error {
	if u.Permissions == PermNone {
		return errors.New("user has no capability bits", errors.CategoryAuth).
			WithTextCode("INVALID_PERMISSIONS").
			WithMetadata(map[string]any{"user_id": u.ID.String()})
	}
	return nil
}
