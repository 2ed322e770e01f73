package paedu

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type FinalizePasswordResetMessage struct {
	Token      string `json:"token" doc:"Reset purpose token."`
	Password   string `json:"password" doc:"Replacement password."`
	OnResponse func(resp *FinalizePasswordResetResponse)
}

func (p FinalizePasswordResetMessage) Type() string { return "user.password_reset.finalize" }

type FinalizePasswordResetResponse struct {
	UserID  string
	Success bool
}

// FinalizePasswordResetHandler redeems a reset token and replaces the
// subject's password hash. Tokens of other purposes issued before the change
// stay valid.
type FinalizePasswordResetHandler struct {
	repo   RepositoryManager
	codec  TokenCodec
	logger Logger
	sink   ActivitySink
}

func NewFinalizePasswordResetHandler(repo RepositoryManager, codec TokenCodec) *FinalizePasswordResetHandler {
	return &FinalizePasswordResetHandler{
		repo:   repo,
		codec:  codec,
		logger: defLogger{},
		sink:   noopActivitySink{},
	}
}

func (h *FinalizePasswordResetHandler) WithLogger(l Logger) *FinalizePasswordResetHandler {
	if l != nil {
		h.logger = l
	}
	return h
}

func (h *FinalizePasswordResetHandler) WithActivitySink(sink ActivitySink) *FinalizePasswordResetHandler {
	h.sink = normalizeActivitySink(sink)
	return h
}

func (h *FinalizePasswordResetHandler) Execute(ctx context.Context, event FinalizePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset finalization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *FinalizePasswordResetHandler) execute(ctx context.Context, event FinalizePasswordResetMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	claims, err := h.codec.Redeem(event.Token, PurposeReset)
	if err != nil {
		return err
	}

	subject, err := claims.UserUUID()
	if err != nil {
		return ErrTokenMalformed
	}

	hash, err := HashPassword(event.Password)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := h.repo.Users().SetPasswordTx(ctx, tx, subject, hash); err != nil {
			if goerrors.IsNotFound(err) {
				return ErrIdentityNotFound
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update password")
		}
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "password reset transaction failed")
	}

	h.recordActivity(ctx, subject.String())

	if event.OnResponse != nil {
		event.OnResponse(&FinalizePasswordResetResponse{
			UserID:  subject.String(),
			Success: true,
		})
	}

	return nil
}

func (h *FinalizePasswordResetHandler) recordActivity(ctx context.Context, userID string) {
	event := ActivityEvent{
		EventType:  ActivityEventPasswordReset,
		UserID:     userID,
		OccurredAt: time.Now(),
	}
	if err := h.sink.Record(ctx, event); err != nil {
		h.logger.Error("failed to record password reset activity", "error", err)
	}
}
