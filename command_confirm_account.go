package paedu

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type ConfirmAccountMessage struct {
	Token      string `json:"token"`
	OnResponse func(resp *ConfirmAccountResponse)
}

func (e ConfirmAccountMessage) Type() string { return "user.confirm" }

type ConfirmAccountResponse struct {
	User             *User
	AlreadyConfirmed bool
}

// ConfirmAccountHandler redeems a confirmation token and marks the subject
// account confirmed. Redeeming for an already confirmed account succeeds
// without another write.
type ConfirmAccountHandler struct {
	repo   RepositoryManager
	codec  TokenCodec
	logger Logger
	sink   ActivitySink
}

func NewConfirmAccountHandler(repo RepositoryManager, codec TokenCodec) *ConfirmAccountHandler {
	return &ConfirmAccountHandler{
		repo:   repo,
		codec:  codec,
		logger: defLogger{},
		sink:   noopActivitySink{},
	}
}

func (h *ConfirmAccountHandler) WithLogger(l Logger) *ConfirmAccountHandler {
	if l != nil {
		h.logger = l
	}
	return h
}

func (h *ConfirmAccountHandler) WithActivitySink(sink ActivitySink) *ConfirmAccountHandler {
	h.sink = normalizeActivitySink(sink)
	return h
}

func (h *ConfirmAccountHandler) Execute(ctx context.Context, event ConfirmAccountMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account confirmation",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ConfirmAccountHandler) execute(ctx context.Context, event ConfirmAccountMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	claims, err := h.codec.Redeem(event.Token, PurposeConfirm)
	if err != nil {
		return err
	}

	subject, err := claims.UserUUID()
	if err != nil {
		return ErrTokenMalformed
	}

	resp := &ConfirmAccountResponse{}

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := h.repo.Users().GetByIDTx(ctx, tx, subject.String())
		if err != nil {
			if goerrors.IsNotFound(err) {
				return ErrIdentityNotFound
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for confirmation")
		}

		if user.Confirmed {
			resp.User = user
			resp.AlreadyConfirmed = true
			return nil
		}

		confirmed, err := h.repo.Users().ConfirmTx(ctx, tx, user.ID)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to confirm account")
		}

		resp.User = confirmed
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "account confirmation transaction failed")
	}

	if !resp.AlreadyConfirmed {
		h.recordActivity(ctx, subject.String())
	}

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}

func (h *ConfirmAccountHandler) recordActivity(ctx context.Context, userID string) {
	event := ActivityEvent{
		EventType:  ActivityEventAccountConfirmed,
		UserID:     userID,
		OccurredAt: time.Now(),
	}
	if err := h.sink.Record(ctx, event); err != nil {
		h.logger.Error("failed to record confirmation activity", "error", err)
	}
}
