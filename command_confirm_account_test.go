package paedu_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/alfredpaedu/paedu"
)

func TestConfirmAccountHandlerConfirms(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepositoryManager)
	users := new(MockUsers)
	sink := new(MockActivitySink)
	codec := newTestCodec()

	handler := paedu.NewConfirmAccountHandler(repo, codec).
		WithLogger(testLogger{}).
		WithActivitySink(sink)

	user := testUser(paedu.PermStudent)
	user.Confirmed = false

	confirmed := *user
	confirmed.Confirmed = true

	token, _, err := codec.Issue(paedu.PurposeConfirm, user.ID.String())
	require.NoError(t, err)

	repo.On("Users").Return(users)
	users.On("GetByIDTx", mock.Anything, mock.Anything, user.ID.String(), mock.Anything).
		Return(user, nil).Once()
	users.On("ConfirmTx", mock.Anything, mock.Anything, user.ID).
		Return(&confirmed, nil).Once()

	repo.On("RunInTx", mock.Anything, (*sql.TxOptions)(nil), mock.Anything).
		Return(nil).
		Run(func(args mock.Arguments) {
			fn := args.Get(2).(func(context.Context, bun.Tx) error)
			var tx bun.Tx
			require.NoError(t, fn(args.Get(0).(context.Context), tx))
		}).Once()

	sink.On("Record", mock.Anything, mock.MatchedBy(func(evt paedu.ActivityEvent) bool {
		return evt.EventType == paedu.ActivityEventAccountConfirmed &&
			evt.UserID == user.ID.String()
	})).Return(nil).Once()

	var resp *paedu.ConfirmAccountResponse
	err = handler.Execute(ctx, paedu.ConfirmAccountMessage{
		Token: token,
		OnResponse: func(r *paedu.ConfirmAccountResponse) {
			resp = r
		},
	})
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.True(t, resp.User.Confirmed)
	assert.False(t, resp.AlreadyConfirmed)

	repo.AssertExpectations(t)
	users.AssertExpectations(t)
	sink.AssertExpectations(t)
}

func TestConfirmAccountHandlerIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepositoryManager)
	users := new(MockUsers)
	sink := new(MockActivitySink)
	codec := newTestCodec()

	handler := paedu.NewConfirmAccountHandler(repo, codec).
		WithLogger(testLogger{}).
		WithActivitySink(sink)

	user := testUser(paedu.PermStudent)
	user.Confirmed = true

	token, _, err := codec.Issue(paedu.PurposeConfirm, user.ID.String())
	require.NoError(t, err)

	repo.On("Users").Return(users)
	users.On("GetByIDTx", mock.Anything, mock.Anything, user.ID.String(), mock.Anything).
		Return(user, nil).Once()

	repo.On("RunInTx", mock.Anything, (*sql.TxOptions)(nil), mock.Anything).
		Return(nil).
		Run(func(args mock.Arguments) {
			fn := args.Get(2).(func(context.Context, bun.Tx) error)
			var tx bun.Tx
			require.NoError(t, fn(args.Get(0).(context.Context), tx))
		}).Once()

	var resp *paedu.ConfirmAccountResponse
	err = handler.Execute(ctx, paedu.ConfirmAccountMessage{
		Token: token,
		OnResponse: func(r *paedu.ConfirmAccountResponse) {
			resp = r
		},
	})
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.True(t, resp.AlreadyConfirmed)

	// no second write and no audit event on the repeat
	users.AssertNotCalled(t, "ConfirmTx", mock.Anything, mock.Anything, mock.Anything)
	sink.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
}

func TestConfirmAccountHandlerRejectsOtherPurposes(t *testing.T) {
	repo := new(MockRepositoryManager)
	codec := newTestCodec()

	handler := paedu.NewConfirmAccountHandler(repo, codec).
		WithLogger(testLogger{})

	user := testUser(paedu.PermStudent)

	authToken, _, err := codec.Issue(paedu.PurposeAuth, user.ID.String())
	require.NoError(t, err)

	err = handler.Execute(context.Background(), paedu.ConfirmAccountMessage{Token: authToken})
	assert.ErrorIs(t, err, paedu.ErrTokenPurposeMismatch)

	repo.AssertNotCalled(t, "RunInTx", mock.Anything, mock.Anything, mock.Anything)
}
