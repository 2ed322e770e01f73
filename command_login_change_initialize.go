package paedu

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

type InitializeLoginChangeMessage struct {
	Identifier string `json:"identifier" doc:"Current email or username."`
	Password   string `json:"password" doc:"Current password, re-checked before issuing the token."`
	NewLogin   string `json:"new_login" doc:"Replacement email or username."`
	OnResponse func(resp *InitializeLoginChangeResponse)
}

func (p InitializeLoginChangeMessage) Type() string { return "user.login_change" }

type InitializeLoginChangeResponse struct {
	Token     string
	ExpiresAt time.Time
}

// InitializeLoginChangeHandler re-verifies the caller's password and issues
// a login-change token carrying the replacement identifier.
type InitializeLoginChangeHandler struct {
	provider CredentialVerifier
	codec    TokenCodec
	logger   Logger
}

func NewInitializeLoginChangeHandler(provider CredentialVerifier, codec TokenCodec) *InitializeLoginChangeHandler {
	return &InitializeLoginChangeHandler{
		provider: provider,
		codec:    codec,
		logger:   defLogger{},
	}
}

func (h *InitializeLoginChangeHandler) WithLogger(l Logger) *InitializeLoginChangeHandler {
	if l != nil {
		h.logger = l
	}
	return h
}

func (h *InitializeLoginChangeHandler) Execute(ctx context.Context, event InitializeLoginChangeMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during login change initialization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *InitializeLoginChangeHandler) execute(ctx context.Context, event InitializeLoginChangeMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if !isEmail(event.NewLogin) && !ValidUsername(event.NewLogin) {
		return goerrors.New("new login is neither a valid email nor username", goerrors.CategoryValidation).
			WithMetadata(map[string]any{"new_login": event.NewLogin})
	}

	identity, err := h.provider.VerifyCredentials(ctx, event.Identifier, event.Password)
	if err != nil {
		return err
	}

	token, expiresAt, err := h.codec.Issue(
		PurposeLoginChange,
		identity.ID(),
		WithNewLogin(event.NewLogin),
	)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue login change token")
	}

	go printEmailNotification(identity.Email(), "/change_login/"+token)

	if event.OnResponse != nil {
		event.OnResponse(&InitializeLoginChangeResponse{
			Token:     token,
			ExpiresAt: expiresAt,
		})
	}

	return nil
}
