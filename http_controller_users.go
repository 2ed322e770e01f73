package paedu

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-router"
)

// UsersController serves the user API: registration, lookup, profile
// updates, and login change redemption.
type UsersController struct {
	Debug      bool
	Logger     Logger
	SessionKey string

	repo                RepositoryManager
	register            *RegisterUserHandler
	loginChangeFinalize *FinalizeLoginChangeHandler
}

func NewUsersController(repo RepositoryManager, codec TokenCodec, adminEmail string) *UsersController {
	return &UsersController{
		Logger:              defLogger{},
		SessionKey:          "caller",
		repo:                repo,
		register:            NewRegisterUserHandler(repo, codec, adminEmail),
		loginChangeFinalize: NewFinalizeLoginChangeHandler(repo, codec),
	}
}

func (c *UsersController) WithLogger(l Logger) *UsersController {
	if l != nil {
		c.Logger = l
		c.register.WithLogger(l)
		c.loginChangeFinalize.WithLogger(l)
	}
	return c
}

func (c *UsersController) WithActivitySink(sink ActivitySink) *UsersController {
	c.register.WithActivitySink(sink)
	c.loginChangeFinalize.WithActivitySink(sink)
	return c
}

// RegisterRoutes mounts the user API. Registration and login change
// redemption are exempt in the gate policy.
func (c *UsersController) RegisterRoutes(group RouteRegistrar) {
	group.Post("/register", c.Register)
	group.Get("/count", c.Count)
	group.Post("/change_login/:token", c.ChangeLogin)
	group.Put("/update", c.Update)
	group.Get("/secret_resource", c.SecretResource)
	group.Get("/:id", c.Show)
}

// RegisterPayload is the registration body.
type RegisterPayload struct {
	FirstName       string `json:"first_name" form:"first_name"`
	LastName        string `json:"last_name" form:"last_name"`
	Username        string `json:"username" form:"username"`
	Email           string `json:"email" form:"email"`
	Phone           string `json:"phone_number" form:"phone_number"`
	Password        string `json:"password" form:"password"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password"`
}

func (r RegisterPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Length(0, 64)),
		validation.Field(&r.LastName, validation.Length(0, 64)),
		validation.Field(&r.Username, validation.Length(0, 64), validation.Match(UsernamePattern)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 64), is.Email),
		validation.Field(&r.Phone, validation.By(ValidatePhoneNumber("US"))),
		validation.Field(&r.Password, validation.Required, validation.Length(10, 100)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

// Register creates an unconfirmed account and returns its confirmation
// token alongside the record.
func (c *UsersController) Register(ctx router.Context) error {
	payload := new(RegisterPayload)
	if err := ctx.Bind(payload); err != nil {
		c.Logger.Error("register user parse payload", "error", err)
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
		debugPayload(c.Logger, "USER REGISTER", payload)
	}

	var resp *RegisterUserResponse
	err := c.register.Execute(ctx.Context(), RegisterUserMessage{
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Username:  payload.Username,
		Email:     payload.Email,
		Phone:     payload.Phone,
		Password:  payload.Password,
		UseHashid: true,
		OnResponse: func(r *RegisterUserResponse) {
			resp = r
		},
	})
	if err != nil {
		return RespondError(ctx, err)
	}

	return ctx.JSON(router.StatusCreated, map[string]any{
		"user":               resp.User,
		"confirmation_token": resp.ConfirmToken,
		"expires_at":         resp.ExpiresAt,
	})
}

// Count returns the number of registered accounts.
func (c *UsersController) Count(ctx router.Context) error {
	total, err := c.repo.Users().Count(ctx.Context())
	if err != nil {
		return RespondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"count": total,
	})
}

// Show returns a single account by id.
func (c *UsersController) Show(ctx router.Context) error {
	user, err := c.repo.Users().GetByID(ctx.Context(), ctx.Param("id"))
	if err != nil {
		if goerrors.IsNotFound(err) {
			return RespondError(ctx, ErrIdentityNotFound)
		}
		return RespondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"user": user,
	})
}

// ChangeLogin redeems a login-change token.
func (c *UsersController) ChangeLogin(ctx router.Context) error {
	var resp *FinalizeLoginChangeResponse

	err := c.loginChangeFinalize.Execute(ctx.Context(), FinalizeLoginChangeMessage{
		Token: ctx.Param("token"),
		OnResponse: func(r *FinalizeLoginChangeResponse) {
			resp = r
		},
	})
	if err != nil {
		return RespondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"user": resp.User,
	})
}

// UpdatePayload carries profile fields. Email, username, and password
// only change through their token flows.
type UpdatePayload struct {
	FirstName  string `json:"first_name" form:"first_name"`
	LastName   string `json:"last_name" form:"last_name"`
	Phone      string `json:"phone_number" form:"phone_number"`
	Company    string `json:"company" form:"company"`
	Street     string `json:"street" form:"street"`
	City       string `json:"city" form:"city"`
	PostalCode string `json:"postal_code" form:"postal_code"`
	State      string `json:"state" form:"state"`
	Country    string `json:"country" form:"country"`
}

func (r UpdatePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Length(0, 64)),
		validation.Field(&r.LastName, validation.Length(0, 64)),
		validation.Field(&r.Phone, validation.By(ValidatePhoneNumber("US"))),
		validation.Field(&r.Company, validation.Length(0, 64)),
		validation.Field(&r.Street, validation.Length(0, 255)),
		validation.Field(&r.City, validation.Length(0, 64)),
		validation.Field(&r.PostalCode, validation.Length(0, 20)),
		validation.Field(&r.State, validation.Length(0, 50)),
		validation.Field(&r.Country, validation.Length(0, 20)),
	)
}

// Update edits the caller's own profile fields.
func (c *UsersController) Update(ctx router.Context) error {
	session, err := CurrentSession(ctx, c.SessionKey)
	if err != nil {
		return RespondError(ctx, err)
	}

	payload := new(UpdatePayload)
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

	user, err := c.repo.Users().GetByID(ctx.Context(), session.UserID)
	if err != nil {
		return RespondError(ctx, err)
	}

	user.FirstName = payload.FirstName
	user.LastName = payload.LastName
	user.Phone = payload.Phone
	user.Company = payload.Company
	user.Address = Address{
		Street:     payload.Street,
		City:       payload.City,
		PostalCode: payload.PostalCode,
		State:      payload.State,
		Country:    payload.Country,
	}

	updated, err := c.repo.Users().Update(ctx.Context(), user, repository.UpdateByID(user.ID.String()))
	if err != nil {
		return RespondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"user": updated,
	})
}

// SecretResource is the confirmed-account capability demo.
func (c *UsersController) SecretResource(ctx router.Context) error {
	session, err := CurrentSession(ctx, c.SessionKey)
	if err != nil {
		return RespondError(ctx, err)
	}

	user, err := c.repo.Users().GetByID(ctx.Context(), session.UserID)
	if err != nil {
		return RespondError(ctx, err)
	}

	if !user.Confirmed {
		return RespondError(ctx, ErrPermissionDenied)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"data": "Hello, " + user.FullName() + "! You can only see this after confirmation.",
	})
}
