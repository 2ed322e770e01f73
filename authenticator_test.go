package paedu_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/alfredpaedu/paedu"
)

func TestAutherLoginIssuesAuthToken(t *testing.T) {
	ctx := context.Background()
	verifier := new(MockVerifier)
	sink := new(MockActivitySink)

	auther := paedu.NewAuthenticator(verifier, newTestConfig()).
		WithLogger(testLogger{}).
		WithActivitySink(sink)

	user := testUser(paedu.PermStudent | paedu.PermParent)
	identity := paedu.NewIdentityFromUser(user)

	verifier.On("VerifyCredentials", mock.Anything, user.Email, "password123").
		Return(identity, nil).Once()

	sink.On("Record", mock.Anything, mock.MatchedBy(func(evt paedu.ActivityEvent) bool {
		return evt.EventType == paedu.ActivityEventLoginSuccess &&
			evt.UserID == user.ID.String()
	})).Return(nil).Once()

	token, err := auther.Login(ctx, user.Email, "password123")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	// the minted token redeems as an auth session carrying the bitmask
	session, err := auther.SessionFromToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), session.GetUserID())
	assert.Equal(t, paedu.PermStudent|paedu.PermParent, session.GetPermissions())

	verifier.AssertExpectations(t)
	sink.AssertExpectations(t)
}

func TestAutherLoginFailureEmitsActivity(t *testing.T) {
	ctx := context.Background()
	verifier := new(MockVerifier)
	sink := new(MockActivitySink)

	auther := paedu.NewAuthenticator(verifier, newTestConfig()).
		WithLogger(testLogger{}).
		WithActivitySink(sink)

	verifier.On("VerifyCredentials", mock.Anything, "ghost", "nope").
		Return(nil, paedu.ErrMismatchedHashAndPassword).Once()

	sink.On("Record", mock.Anything, mock.MatchedBy(func(evt paedu.ActivityEvent) bool {
		return evt.EventType == paedu.ActivityEventLoginFailure &&
			evt.Metadata["identifier"] == "ghost"
	})).Return(nil).Once()

	token, err := auther.Login(ctx, "ghost", "nope")
	assert.ErrorIs(t, err, paedu.ErrMismatchedHashAndPassword)
	assert.Empty(t, token)

	verifier.AssertExpectations(t)
	sink.AssertExpectations(t)
}

func TestAutherSessionFromTokenRejectsOtherPurposes(t *testing.T) {
	verifier := new(MockVerifier)
	auther := paedu.NewAuthenticator(verifier, newTestConfig()).WithLogger(testLogger{})

	user := testUser(paedu.PermStudent)

	// confirmation tokens never authenticate requests
	confirm, _, err := auther.Codec().Issue(paedu.PurposeConfirm, user.ID.String())
	require.NoError(t, err)

	_, err = auther.SessionFromToken(confirm)
	assert.ErrorIs(t, err, paedu.ErrTokenPurposeMismatch)
}

func TestAutherIdentityFromSession(t *testing.T) {
	ctx := context.Background()
	verifier := new(MockVerifier)
	auther := paedu.NewAuthenticator(verifier, newTestConfig()).WithLogger(testLogger{})

	user := testUser(paedu.PermStudent)
	identity := paedu.NewIdentityFromUser(user)
	session := &paedu.SessionObject{UserID: user.ID.String()}

	verifier.On("FindIdentityByIdentifier", mock.Anything, user.ID.String()).
		Return(identity, nil).Once()

	got, err := auther.IdentityFromSession(ctx, session)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), got.ID())

	_, err = auther.IdentityFromSession(ctx, nil)
	assert.ErrorIs(t, err, paedu.ErrUnableToDecodeSession)

	verifier.AssertExpectations(t)
}
