package paedu_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/goliatone/go-repository-bun"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/alfredpaedu/paedu"
)

func TestInitializePasswordResetIssuesToken(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepositoryManager)
	users := new(MockUsers)
	sink := new(MockActivitySink)
	codec := newTestCodec()

	handler := paedu.NewInitializePasswordResetHandler(repo, codec).
		WithLogger(testLogger{}).
		WithActivitySink(sink)

	user := testUser(paedu.PermStudent)

	repo.On("Users").Return(users)
	users.On("GetByIdentifier", mock.Anything, user.Email, mock.Anything).
		Return(user, nil).Once()

	sink.On("Record", mock.Anything, mock.MatchedBy(func(evt paedu.ActivityEvent) bool {
		return evt.EventType == paedu.ActivityEventPasswordResetStart &&
			evt.UserID == user.ID.String()
	})).Return(nil).Once()

	var resp *paedu.InitializePasswordResetResponse
	err := handler.Execute(ctx, paedu.InitializePasswordResetMessage{
		Identifier: user.Email,
		OnResponse: func(r *paedu.InitializePasswordResetResponse) {
			resp = r
		},
	})
	require.NoError(t, err)
	require.NotNil(t, resp)

	assert.True(t, resp.Found)
	require.NotEmpty(t, resp.Token)

	claims, err := codec.Redeem(resp.Token, paedu.PurposeReset)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), claims.UserID())

	users.AssertExpectations(t)
	sink.AssertExpectations(t)
}

func TestInitializePasswordResetUnknownIdentifier(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepositoryManager)
	users := new(MockUsers)
	sink := new(MockActivitySink)
	codec := newTestCodec()

	handler := paedu.NewInitializePasswordResetHandler(repo, codec).
		WithLogger(testLogger{}).
		WithActivitySink(sink)

	repo.On("Users").Return(users)
	users.On("GetByIdentifier", mock.Anything, "nobody@example.com", mock.Anything).
		Return(nil, repository.NewRecordNotFound()).Once()

	var resp *paedu.InitializePasswordResetResponse
	err := handler.Execute(ctx, paedu.InitializePasswordResetMessage{
		Identifier: "nobody@example.com",
		OnResponse: func(r *paedu.InitializePasswordResetResponse) {
			resp = r
		},
	})

	// an unknown identifier is not an error, the caller decides what to
	// disclose
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.False(t, resp.Found)
	assert.Empty(t, resp.Token)

	users.AssertExpectations(t)
	sink.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
}

func TestFinalizePasswordResetSetsNewPassword(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepositoryManager)
	users := new(MockUsers)
	sink := new(MockActivitySink)
	codec := newTestCodec()

	handler := paedu.NewFinalizePasswordResetHandler(repo, codec).
		WithLogger(testLogger{}).
		WithActivitySink(sink)

	user := testUser(paedu.PermStudent)

	token, _, err := codec.Issue(paedu.PurposeReset, user.ID.String())
	require.NoError(t, err)

	repo.On("Users").Return(users)
	users.On("SetPasswordTx", mock.Anything, mock.Anything, user.ID, mock.MatchedBy(func(hash string) bool {
		return paedu.ComparePasswordAndHash("newPassword123", hash) == nil
	})).Return(nil).Once()

	repo.On("RunInTx", mock.Anything, (*sql.TxOptions)(nil), mock.Anything).
		Return(nil).
		Run(func(args mock.Arguments) {
			fn := args.Get(2).(func(context.Context, bun.Tx) error)
			var tx bun.Tx
			require.NoError(t, fn(args.Get(0).(context.Context), tx))
		}).Once()

	sink.On("Record", mock.Anything, mock.MatchedBy(func(evt paedu.ActivityEvent) bool {
		return evt.EventType == paedu.ActivityEventPasswordReset &&
			evt.UserID == user.ID.String()
	})).Return(nil).Once()

	var resp *paedu.FinalizePasswordResetResponse
	err = handler.Execute(ctx, paedu.FinalizePasswordResetMessage{
		Token:    token,
		Password: "newPassword123",
		OnResponse: func(r *paedu.FinalizePasswordResetResponse) {
			resp = r
		},
	})
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.True(t, resp.Success)
	assert.Equal(t, user.ID.String(), resp.UserID)

	repo.AssertExpectations(t)
	users.AssertExpectations(t)
	sink.AssertExpectations(t)
}

func TestFinalizePasswordResetRejectsOtherPurposes(t *testing.T) {
	repo := new(MockRepositoryManager)
	codec := newTestCodec()

	handler := paedu.NewFinalizePasswordResetHandler(repo, codec).
		WithLogger(testLogger{})

	user := testUser(paedu.PermStudent)
	authToken, _, err := codec.Issue(paedu.PurposeAuth, user.ID.String())
	require.NoError(t, err)

	err = handler.Execute(context.Background(), paedu.FinalizePasswordResetMessage{
		Token:    authToken,
		Password: "newPassword123",
	})
	assert.ErrorIs(t, err, paedu.ErrTokenPurposeMismatch)

	repo.AssertNotCalled(t, "RunInTx", mock.Anything, mock.Anything, mock.Anything)
}

func TestFinalizePasswordResetRejectsEmptyPassword(t *testing.T) {
	repo := new(MockRepositoryManager)
	codec := newTestCodec()

	handler := paedu.NewFinalizePasswordResetHandler(repo, codec).
		WithLogger(testLogger{})

	user := testUser(paedu.PermStudent)
	token, _, err := codec.Issue(paedu.PurposeReset, user.ID.String())
	require.NoError(t, err)

	err = handler.Execute(context.Background(), paedu.FinalizePasswordResetMessage{
		Token:    token,
		Password: "",
	})
	assert.Error(t, err)

	repo.AssertNotCalled(t, "RunInTx", mock.Anything, mock.Anything, mock.Anything)
}
