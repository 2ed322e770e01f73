package paedu

import (
	"context"
	"fmt"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

type InitializePasswordResetMessage struct {
	Identifier string `json:"identifier" example:"pepe.rone@example.com" doc:"Account email or username."`
	OnResponse func(resp *InitializePasswordResetResponse)
}

func (p InitializePasswordResetMessage) Type() string { return "user.password_reset" }

type InitializePasswordResetResponse struct {
	Token     string
	ExpiresAt time.Time
	Found     bool
}

// InitializePasswordResetHandler issues a reset-purpose token for a known
// identifier. Unknown identifiers report Found=false instead of an error so
// callers decide what to disclose.
type InitializePasswordResetHandler struct {
	repo   RepositoryManager
	codec  TokenCodec
	logger Logger
	sink   ActivitySink
}

func NewInitializePasswordResetHandler(repo RepositoryManager, codec TokenCodec) *InitializePasswordResetHandler {
	return &InitializePasswordResetHandler{
		repo:   repo,
		codec:  codec,
		logger: defLogger{},
		sink:   noopActivitySink{},
	}
}

func (h *InitializePasswordResetHandler) WithLogger(l Logger) *InitializePasswordResetHandler {
	if l != nil {
		h.logger = l
	}
	return h
}

func (h *InitializePasswordResetHandler) WithActivitySink(sink ActivitySink) *InitializePasswordResetHandler {
	h.sink = normalizeActivitySink(sink)
	return h
}

func (h *InitializePasswordResetHandler) Execute(ctx context.Context, event InitializePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset initialization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *InitializePasswordResetHandler) execute(ctx context.Context, event InitializePasswordResetMessage) error {
	resp := &InitializePasswordResetResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	user, err := h.repo.Users().GetByIdentifier(ctx, event.Identifier)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			if event.OnResponse != nil {
				event.OnResponse(resp)
			}
			return nil
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for password reset")
	}

	token, expiresAt, err := h.codec.Issue(PurposeReset, user.ID.String())
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue password reset token")
	}

	go printEmailNotification(user.Email, "/change_password/"+token)

	h.recordActivity(ctx, user.ID.String())

	resp.Found = true
	resp.Token = token
	resp.ExpiresAt = expiresAt

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}

func (h *InitializePasswordResetHandler) recordActivity(ctx context.Context, userID string) {
	event := ActivityEvent{
		EventType:  ActivityEventPasswordResetStart,
		UserID:     userID,
		OccurredAt: time.Now(),
	}
	if err := h.sink.Record(ctx, event); err != nil {
		h.logger.Error("failed to record password reset activity", "error", err)
	}
}

func printEmailNotification(email, link string) {
	fmt.Println("====== SENDING EMAIL NOTIFICATION =======")
	fmt.Printf("to: %s\n", email)
	fmt.Printf("link: %s\n", link)
}
