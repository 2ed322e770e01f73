package paedu

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type FinalizeLoginChangeMessage struct {
	Token      string `json:"token" doc:"Login-change purpose token."`
	OnResponse func(resp *FinalizeLoginChangeResponse)
}

func (p FinalizeLoginChangeMessage) Type() string { return "user.login_change.finalize" }

type FinalizeLoginChangeResponse struct {
	User *User
}

// FinalizeLoginChangeHandler redeems a login-change token and swaps the
// subject's email or username, decided by the shape of the carried
// identifier. A collision with another account fails without mutating
// anything.
type FinalizeLoginChangeHandler struct {
	repo   RepositoryManager
	codec  TokenCodec
	logger Logger
	sink   ActivitySink
}

func NewFinalizeLoginChangeHandler(repo RepositoryManager, codec TokenCodec) *FinalizeLoginChangeHandler {
	return &FinalizeLoginChangeHandler{
		repo:   repo,
		codec:  codec,
		logger: defLogger{},
		sink:   noopActivitySink{},
	}
}

func (h *FinalizeLoginChangeHandler) WithLogger(l Logger) *FinalizeLoginChangeHandler {
	if l != nil {
		h.logger = l
	}
	return h
}

func (h *FinalizeLoginChangeHandler) WithActivitySink(sink ActivitySink) *FinalizeLoginChangeHandler {
	h.sink = normalizeActivitySink(sink)
	return h
}

func (h *FinalizeLoginChangeHandler) Execute(ctx context.Context, event FinalizeLoginChangeMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during login change finalization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *FinalizeLoginChangeHandler) execute(ctx context.Context, event FinalizeLoginChangeMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	claims, err := h.codec.Redeem(event.Token, PurposeLoginChange)
	if err != nil {
		return err
	}

	if claims.NewLogin == "" {
		return ErrTokenMalformed
	}

	subject, err := claims.UserUUID()
	if err != nil {
		return ErrTokenMalformed
	}

	resp := &FinalizeLoginChangeResponse{}
	newLogin := claims.NewLogin

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := h.repo.Users().GetByIDTx(ctx, tx, subject.String())
		if err != nil {
			if goerrors.IsNotFound(err) {
				return ErrIdentityNotFound
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for login change")
		}

		if taken, err := h.repo.Users().GetByIdentifierTx(ctx, tx, newLogin); err == nil {
			if taken.ID != user.ID {
				return ErrDuplicateIdentifier
			}
		} else if !repository.IsRecordNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check identifier availability")
		}

		if isEmail(newLogin) {
			user.Email = newLogin
			user.AvatarHash = EmailHash(newLogin)
		} else if ValidUsername(newLogin) {
			user.Username = newLogin
		} else {
			return goerrors.New("new login is neither a valid email nor username", goerrors.CategoryValidation).
				WithMetadata(map[string]any{"new_login": newLogin})
		}

		updated, err := h.repo.Users().UpdateTx(ctx, tx, user, repository.UpdateByID(user.ID.String()))
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update login")
		}

		resp.User = updated
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "login change transaction failed")
	}

	h.recordActivity(ctx, subject.String(), newLogin)

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}

func (h *FinalizeLoginChangeHandler) recordActivity(ctx context.Context, userID, newLogin string) {
	event := ActivityEvent{
		EventType:  ActivityEventLoginChanged,
		UserID:     userID,
		Metadata:   map[string]any{"new_login": newLogin},
		OccurredAt: time.Now(),
	}
	if err := h.sink.Record(ctx, event); err != nil {
		h.logger.Error("failed to record login change activity", "error", err)
	}
}
