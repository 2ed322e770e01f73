package paedu

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

// SuggestionsController serves the suggestion box: canned responses
// matched against a free text query. Creating entries is admin only.
type SuggestionsController struct {
	Debug      bool
	Logger     Logger
	SessionKey string

	repo RepositoryManager
}

func NewSuggestionsController(repo RepositoryManager) *SuggestionsController {
	return &SuggestionsController{
		Logger:     defLogger{},
		SessionKey: "caller",
		repo:       repo,
	}
}

func (c *SuggestionsController) WithLogger(l Logger) *SuggestionsController {
	if l != nil {
		c.Logger = l
	}
	return c
}

func (c *SuggestionsController) RegisterRoutes(group RouteRegistrar) {
	group.Get("/", c.Find)
	group.Post("/", c.Create)
}

// Find matches stored queries by substring against the q parameter.
func (c *SuggestionsController) Find(ctx router.Context) error {
	query := ctx.Query("q", "")
	if query == "" {
		return ctx.JSON(router.StatusBadRequest, map[string]any{
			"error": "q is required",
		})
	}

	records, err := c.repo.Suggestions().FindByQuery(ctx.Context(), query)
	if err != nil {
		return RespondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"suggestions": records,
	})
}

// SuggestionPayload is the create body.
type SuggestionPayload struct {
	Query     string   `json:"query" form:"query"`
	Responses []string `json:"responses" form:"responses"`
}

func (r SuggestionPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Query, validation.Required, validation.Length(1, 255)),
		validation.Field(&r.Responses, validation.Required),
	)
}

// Create stores a canned response. Admin callers only.
func (c *SuggestionsController) Create(ctx router.Context) error {
	session, err := CurrentSession(ctx, c.SessionKey)
	if err != nil {
		return RespondError(ctx, err)
	}

	if !session.IsAdmin() {
		return RespondError(ctx, ErrPermissionDenied)
	}

	payload := new(SuggestionPayload)
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

	suggestion := &Suggestion{
		ID:        uuid.New(),
		Query:     payload.Query,
		Responses: payload.Responses,
	}

	if suggestion, err = c.repo.Suggestions().Create(ctx.Context(), suggestion); err != nil {
		return RespondError(ctx, err)
	}

	return ctx.JSON(router.StatusCreated, map[string]any{
		"suggestion": suggestion,
	})
}
