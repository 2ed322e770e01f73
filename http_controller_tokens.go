package paedu

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-router"
)

// TokensController serves the token API: minting and redeeming the four
// token purposes over JSON.
type TokensController struct {
	Debug      bool
	Logger     Logger
	SessionKey string

	codec           TokenCodec
	confirm         *ConfirmAccountHandler
	resetInit       *InitializePasswordResetHandler
	resetFinalize   *FinalizePasswordResetHandler
	loginChangeInit *InitializeLoginChangeHandler
}

func NewTokensController(repo RepositoryManager, codec TokenCodec, verifier CredentialVerifier) *TokensController {
	return &TokensController{
		Logger:          defLogger{},
		SessionKey:      "caller",
		codec:           codec,
		confirm:         NewConfirmAccountHandler(repo, codec),
		resetInit:       NewInitializePasswordResetHandler(repo, codec),
		resetFinalize:   NewFinalizePasswordResetHandler(repo, codec),
		loginChangeInit: NewInitializeLoginChangeHandler(verifier, codec),
	}
}

func (c *TokensController) WithLogger(l Logger) *TokensController {
	if l != nil {
		c.Logger = l
		c.confirm.WithLogger(l)
		c.resetInit.WithLogger(l)
		c.resetFinalize.WithLogger(l)
		c.loginChangeInit.WithLogger(l)
	}
	return c
}

func (c *TokensController) WithActivitySink(sink ActivitySink) *TokensController {
	c.confirm.WithActivitySink(sink)
	c.resetInit.WithActivitySink(sink)
	c.resetFinalize.WithActivitySink(sink)
	return c
}

// RegisterRoutes mounts the token API. The confirmation and password
// change redemption routes plus the reset token mint are exempt in the
// gate policy; the rest require an authenticated caller.
func (c *TokensController) RegisterRoutes(group RouteRegistrar) {
	group.Get("/token", c.MintAuthToken)
	group.Get("/confirmation_token", c.MintConfirmationToken)
	group.Post("/confirm/:token", c.Confirm)
	group.Get("/login_change_token", c.MintLoginChangeToken)
	group.Get("/change_password_token", c.MintPasswordResetToken)
	group.Post("/change_password/:token", c.ChangePassword)
}

// MintAuthToken issues a fresh auth token. Callers that authenticated with
// a token cannot mint another one, only password callers can.
func (c *TokensController) MintAuthToken(ctx router.Context) error {
	session, err := CurrentSession(ctx, c.SessionKey)
	if err != nil {
		return RespondError(ctx, err)
	}

	if session.TokenBased {
		return RespondError(ctx, ErrMismatchedHashAndPassword)
	}

	token, expiresAt, err := c.codec.Issue(PurposeAuth, session.UserID, WithPermissions(session.Permissions))
	if err != nil {
		return RespondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"token":      token,
		"expires_at": expiresAt,
	})
}

// MintConfirmationToken issues a confirm token for the caller's own account.
func (c *TokensController) MintConfirmationToken(ctx router.Context) error {
	session, err := CurrentSession(ctx, c.SessionKey)
	if err != nil {
		return RespondError(ctx, err)
	}

	token, expiresAt, err := c.codec.Issue(PurposeConfirm, session.UserID)
	if err != nil {
		return RespondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"token":      token,
		"expires_at": expiresAt,
	})
}

// Confirm redeems a confirmation token. Redeeming twice succeeds.
func (c *TokensController) Confirm(ctx router.Context) error {
	var resp *ConfirmAccountResponse

	err := c.confirm.Execute(ctx.Context(), ConfirmAccountMessage{
		Token: ctx.Param("token"),
		OnResponse: func(r *ConfirmAccountResponse) {
			resp = r
		},
	})
	if err != nil {
		return RespondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"confirmed":         true,
		"already_confirmed": resp.AlreadyConfirmed,
	})
}

// LoginChangeTokenPayload carries the replacement identifier and the
// caller's password, re-checked before the token is issued.
type LoginChangeTokenPayload struct {
	NewLogin string `json:"new_login" form:"new_login"`
	Password string `json:"password" form:"password"`
}

func (r LoginChangeTokenPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.NewLogin, validation.Required, validation.Length(1, 64)),
		validation.Field(&r.Password, validation.Required),
	)
}

func (c *TokensController) MintLoginChangeToken(ctx router.Context) error {
	session, err := CurrentSession(ctx, c.SessionKey)
	if err != nil {
		return RespondError(ctx, err)
	}

	payload := new(LoginChangeTokenPayload)
	if err := ctx.Bind(payload); err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]any{
			"error": "failed to parse payload",
		})
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]any{
			"error": err.Error(),
		})
	}

	if c.Debug {
		debugPayload(c.Logger, "LOGIN CHANGE TOKEN", payload)
	}

	var resp *InitializeLoginChangeResponse
	err = c.loginChangeInit.Execute(ctx.Context(), InitializeLoginChangeMessage{
		Identifier: session.UserID,
		Password:   payload.Password,
		NewLogin:   payload.NewLogin,
		OnResponse: func(r *InitializeLoginChangeResponse) {
			resp = r
		},
	})
	if err != nil {
		return RespondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"token":      resp.Token,
		"expires_at": resp.ExpiresAt,
	})
}

// MintPasswordResetToken issues a reset token for a known identifier. The
// route is exempt so locked out users can reach it.
func (c *TokensController) MintPasswordResetToken(ctx router.Context) error {
	identifier := ctx.Query("identifier", "")
	if identifier == "" {
		return ctx.JSON(router.StatusBadRequest, map[string]any{
			"error": "identifier is required",
		})
	}

	var resp *InitializePasswordResetResponse
	err := c.resetInit.Execute(ctx.Context(), InitializePasswordResetMessage{
		Identifier: identifier,
		OnResponse: func(r *InitializePasswordResetResponse) {
			resp = r
		},
	})
	if err != nil {
		return RespondError(ctx, err)
	}

	if !resp.Found {
		return ctx.JSON(router.StatusBadRequest, map[string]any{
			"error": "user not found",
		})
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"token":      resp.Token,
		"expires_at": resp.ExpiresAt,
	})
}

// ChangePasswordPayload carries the replacement password for redemption.
type ChangePasswordPayload struct {
	Password        string `json:"password" form:"password"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password"`
}

func (r ChangePasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Password, validation.Required, validation.Length(10, 100)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

// ChangePassword redeems a reset token and replaces the password.
func (c *TokensController) ChangePassword(ctx router.Context) error {
	payload := new(ChangePasswordPayload)
	if err := ctx.Bind(payload); err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]any{
			"error": "failed to parse payload",
		})
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]any{
			"error": err.Error(),
		})
	}

	err := c.resetFinalize.Execute(ctx.Context(), FinalizePasswordResetMessage{
		Token:    ctx.Param("token"),
		Password: payload.Password,
	})
	if err != nil {
		return RespondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"success": true,
	})
}
