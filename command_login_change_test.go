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

func TestInitializeLoginChangeIssuesToken(t *testing.T) {
	ctx := context.Background()
	verifier := new(MockVerifier)
	codec := newTestCodec()

	handler := paedu.NewInitializeLoginChangeHandler(verifier, codec).
		WithLogger(testLogger{})

	user := testUser(paedu.PermStudent)
	identity := paedu.NewIdentityFromUser(user)

	verifier.On("VerifyCredentials", mock.Anything, user.Email, "password123").
		Return(identity, nil).Once()

	var resp *paedu.InitializeLoginChangeResponse
	err := handler.Execute(ctx, paedu.InitializeLoginChangeMessage{
		Identifier: user.Email,
		Password:   "password123",
		NewLogin:   "new.address@example.com",
		OnResponse: func(r *paedu.InitializeLoginChangeResponse) {
			resp = r
		},
	})
	require.NoError(t, err)
	require.NotNil(t, resp)
	require.NotEmpty(t, resp.Token)

	claims, err := codec.Redeem(resp.Token, paedu.PurposeLoginChange)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), claims.UserID())
	assert.Equal(t, "new.address@example.com", claims.NewLogin)

	verifier.AssertExpectations(t)
}

func TestInitializeLoginChangeRejectsInvalidNewLogin(t *testing.T) {
	verifier := new(MockVerifier)
	codec := newTestCodec()

	handler := paedu.NewInitializeLoginChangeHandler(verifier, codec).
		WithLogger(testLogger{})

	err := handler.Execute(context.Background(), paedu.InitializeLoginChangeMessage{
		Identifier: "pepe.rone@example.com",
		Password:   "password123",
		NewLogin:   "not valid at all!",
	})
	assert.Error(t, err)

	// the password is never checked for an unusable identifier
	verifier.AssertNotCalled(t, "VerifyCredentials", mock.Anything, mock.Anything, mock.Anything)
}

func TestInitializeLoginChangeBadPassword(t *testing.T) {
	verifier := new(MockVerifier)
	codec := newTestCodec()

	handler := paedu.NewInitializeLoginChangeHandler(verifier, codec).
		WithLogger(testLogger{})

	verifier.On("VerifyCredentials", mock.Anything, "pepe.rone", "wrong").
		Return(nil, paedu.ErrMismatchedHashAndPassword).Once()

	err := handler.Execute(context.Background(), paedu.InitializeLoginChangeMessage{
		Identifier: "pepe.rone",
		Password:   "wrong",
		NewLogin:   "fresh_name",
	})
	assert.ErrorIs(t, err, paedu.ErrMismatchedHashAndPassword)

	verifier.AssertExpectations(t)
}

func TestFinalizeLoginChangeSwapsEmail(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepositoryManager)
	users := new(MockUsers)
	sink := new(MockActivitySink)
	codec := newTestCodec()

	handler := paedu.NewFinalizeLoginChangeHandler(repo, codec).
		WithLogger(testLogger{}).
		WithActivitySink(sink)

	user := testUser(paedu.PermStudent)
	newLogin := "new.address@example.com"

	token, _, err := codec.Issue(paedu.PurposeLoginChange, user.ID.String(),
		paedu.WithNewLogin(newLogin))
	require.NoError(t, err)

	repo.On("Users").Return(users)
	users.On("GetByIDTx", mock.Anything, mock.Anything, user.ID.String(), mock.Anything).
		Return(user, nil).Once()
	users.On("GetByIdentifierTx", mock.Anything, mock.Anything, newLogin, mock.Anything).
		Return(nil, repository.NewRecordNotFound()).Once()
	users.On("UpdateTx", mock.Anything, mock.Anything, mock.MatchedBy(func(u *paedu.User) bool {
		return u.Email == newLogin && u.AvatarHash == paedu.EmailHash(newLogin)
	}), mock.Anything).Return(user, nil).Once()

	repo.On("RunInTx", mock.Anything, (*sql.TxOptions)(nil), mock.Anything).
		Return(nil).
		Run(func(args mock.Arguments) {
			fn := args.Get(2).(func(context.Context, bun.Tx) error)
			var tx bun.Tx
			require.NoError(t, fn(args.Get(0).(context.Context), tx))
		}).Once()

	sink.On("Record", mock.Anything, mock.MatchedBy(func(evt paedu.ActivityEvent) bool {
		return evt.EventType == paedu.ActivityEventLoginChanged &&
			evt.Metadata["new_login"] == newLogin
	})).Return(nil).Once()

	var resp *paedu.FinalizeLoginChangeResponse
	err = handler.Execute(ctx, paedu.FinalizeLoginChangeMessage{
		Token: token,
		OnResponse: func(r *paedu.FinalizeLoginChangeResponse) {
			resp = r
		},
	})
	require.NoError(t, err)
	require.NotNil(t, resp)
	require.NotNil(t, resp.User)

	repo.AssertExpectations(t)
	users.AssertExpectations(t)
	sink.AssertExpectations(t)
}

func TestFinalizeLoginChangeSwapsUsername(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepositoryManager)
	users := new(MockUsers)
	codec := newTestCodec()

	handler := paedu.NewFinalizeLoginChangeHandler(repo, codec).
		WithLogger(testLogger{})

	user := testUser(paedu.PermStudent)

	token, _, err := codec.Issue(paedu.PurposeLoginChange, user.ID.String(),
		paedu.WithNewLogin("fresh_name"))
	require.NoError(t, err)

	repo.On("Users").Return(users)
	users.On("GetByIDTx", mock.Anything, mock.Anything, user.ID.String(), mock.Anything).
		Return(user, nil).Once()
	users.On("GetByIdentifierTx", mock.Anything, mock.Anything, "fresh_name", mock.Anything).
		Return(nil, repository.NewRecordNotFound()).Once()
	users.On("UpdateTx", mock.Anything, mock.Anything, mock.MatchedBy(func(u *paedu.User) bool {
		return u.Username == "fresh_name"
	}), mock.Anything).Return(user, nil).Once()

	repo.On("RunInTx", mock.Anything, (*sql.TxOptions)(nil), mock.Anything).
		Return(nil).
		Run(func(args mock.Arguments) {
			fn := args.Get(2).(func(context.Context, bun.Tx) error)
			var tx bun.Tx
			require.NoError(t, fn(args.Get(0).(context.Context), tx))
		}).Once()

	err = handler.Execute(ctx, paedu.FinalizeLoginChangeMessage{Token: token})
	require.NoError(t, err)

	users.AssertExpectations(t)
}

func TestFinalizeLoginChangeCollisionDoesNotMutate(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepositoryManager)
	users := new(MockUsers)
	codec := newTestCodec()

	handler := paedu.NewFinalizeLoginChangeHandler(repo, codec).
		WithLogger(testLogger{})

	user := testUser(paedu.PermStudent)
	other := testUser(paedu.PermStudent)
	other.Email = "taken@example.com"

	token, _, err := codec.Issue(paedu.PurposeLoginChange, user.ID.String(),
		paedu.WithNewLogin(other.Email))
	require.NoError(t, err)

	repo.On("Users").Return(users)
	users.On("GetByIDTx", mock.Anything, mock.Anything, user.ID.String(), mock.Anything).
		Return(user, nil).Once()
	users.On("GetByIdentifierTx", mock.Anything, mock.Anything, other.Email, mock.Anything).
		Return(other, nil).Once()

	repo.On("RunInTx", mock.Anything, (*sql.TxOptions)(nil), mock.Anything).
		Return(paedu.ErrDuplicateIdentifier).
		Run(func(args mock.Arguments) {
			fn := args.Get(2).(func(context.Context, bun.Tx) error)
			var tx bun.Tx
			err := fn(args.Get(0).(context.Context), tx)
			require.ErrorIs(t, err, paedu.ErrDuplicateIdentifier)
		}).Once()

	err = handler.Execute(ctx, paedu.FinalizeLoginChangeMessage{Token: token})
	assert.True(t, paedu.IsDuplicateIdentifierError(err))

	users.AssertNotCalled(t, "UpdateTx", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestFinalizeLoginChangeRejectsTokenWithoutNewLogin(t *testing.T) {
	repo := new(MockRepositoryManager)
	codec := newTestCodec()

	handler := paedu.NewFinalizeLoginChangeHandler(repo, codec).
		WithLogger(testLogger{})

	user := testUser(paedu.PermStudent)
	token, _, err := codec.Issue(paedu.PurposeLoginChange, user.ID.String())
	require.NoError(t, err)

	err = handler.Execute(context.Background(), paedu.FinalizeLoginChangeMessage{Token: token})
	assert.ErrorIs(t, err, paedu.ErrTokenMalformed)

	repo.AssertNotCalled(t, "RunInTx", mock.Anything, mock.Anything, mock.Anything)
}
