package paedu

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ActivitiesController serves the school activity API: events anyone can
// browse and mark attendance on.
type ActivitiesController struct {
	Debug      bool
	Logger     Logger
	SessionKey string

	repo RepositoryManager
}

func NewActivitiesController(repo RepositoryManager) *ActivitiesController {
	return &ActivitiesController{
		Logger:     defLogger{},
		SessionKey: "caller",
		repo:       repo,
	}
}

func (c *ActivitiesController) WithLogger(l Logger) *ActivitiesController {
	if l != nil {
		c.Logger = l
	}
	return c
}

func (c *ActivitiesController) RegisterRoutes(group RouteRegistrar) {
	group.Post("/", c.Create)
	group.Get("/", c.List)
	group.Post("/:id/interested", c.Interested)
	group.Post("/:id/going", c.Going)
	group.Post("/:id/comments", c.Comment)
	group.Get("/:id/comments", c.Comments)
	group.Get("/:id", c.Show)
}

// ActivityPayload is the create body.
type ActivityPayload struct {
	Title       string     `json:"title" form:"title"`
	Description string     `json:"description" form:"description"`
	StartsAt    *time.Time `json:"starts_at" form:"starts_at"`
	Tags        string     `json:"tags" form:"tags"`
}

func (r ActivityPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required, validation.Length(1, 255)),
		validation.Field(&r.Description, validation.Length(0, 10000)),
	)
}

func (c *ActivitiesController) Create(ctx router.Context) error {
	session, err := CurrentSession(ctx, c.SessionKey)
	if err != nil {
		return RespondError(ctx, err)
	}

	authorID, err := session.GetUserUUID()
	if err != nil {
		return RespondError(ctx, ErrUnableToDecodeSession)
	}

	payload := new(ActivityPayload)
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

	activity := &Activity{
		ID:              uuid.New(),
		Title:           payload.Title,
		Description:     payload.Description,
		DescriptionHTML: RenderBody(payload.Description),
		AuthorID:        authorID,
		StartsAt:        payload.StartsAt,
	}

	err = c.repo.RunInTx(ctx.Context(), nil, func(txCtx context.Context, tx bun.Tx) error {
		tags, err := EnsureTagsTx(txCtx, tx, c.repo.Tags(), payload.Tags)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to register tags")
		}
		activity.Tags = tags

		if activity, err = c.repo.Activities().CreateTx(txCtx, tx, activity); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create activity")
		}
		return nil
	})
	if err != nil {
		return RespondError(ctx, err)
	}

	return ctx.JSON(router.StatusCreated, map[string]any{
		"activity": activity,
	})
}

// List returns activities ordered by start time, soonest first.
func (c *ActivitiesController) List(ctx router.Context) error {
	limit := ctx.QueryInt("limit", 20)
	offset := ctx.QueryInt("offset", 0)

	records, total, err := c.repo.Activities().List(ctx.Context(), limit, offset)
	if err != nil {
		return RespondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"activities": records,
		"total":      total,
	})
}

func (c *ActivitiesController) Show(ctx router.Context) error {
	activity, err := c.repo.Activities().GetByID(ctx.Context(), ctx.Param("id"))
	if err != nil {
		return RespondError(ctx, notFoundOr(err, "activity not found"))
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"activity": activity,
	})
}

// Interested adds the caller to the interested set. Repeating is a no-op.
func (c *ActivitiesController) Interested(ctx router.Context) error {
	return c.markAttendance(ctx, c.repo.Activities().MarkInterested)
}

// Going adds the caller to the going set. Repeating is a no-op.
func (c *ActivitiesController) Going(ctx router.Context) error {
	return c.markAttendance(ctx, c.repo.Activities().MarkGoing)
}

func (c *ActivitiesController) markAttendance(ctx router.Context, mark func(context.Context, uuid.UUID, uuid.UUID) (*Activity, error)) error {
	session, err := CurrentSession(ctx, c.SessionKey)
	if err != nil {
		return RespondError(ctx, err)
	}

	userID, err := session.GetUserUUID()
	if err != nil {
		return RespondError(ctx, ErrUnableToDecodeSession)
	}

	activityID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]any{
			"error": "invalid activity id",
		})
	}

	activity, err := mark(ctx.Context(), activityID, userID)
	if err != nil {
		return RespondError(ctx, notFoundOr(err, "activity not found"))
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"activity": activity,
	})
}

func (c *ActivitiesController) Comment(ctx router.Context) error {
	session, err := CurrentSession(ctx, c.SessionKey)
	if err != nil {
		return RespondError(ctx, err)
	}

	commenterID, err := session.GetUserUUID()
	if err != nil {
		return RespondError(ctx, ErrUnableToDecodeSession)
	}

	payload := new(CommentPayload)
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

	activity, err := c.repo.Activities().GetByID(ctx.Context(), ctx.Param("id"))
	if err != nil {
		return RespondError(ctx, notFoundOr(err, "activity not found"))
	}

	comment := &Comment{
		ID:          uuid.New(),
		Body:        payload.Body,
		BodyHTML:    RenderBody(payload.Body),
		CommenterID: commenterID,
		ParentID:    activity.ID,
		ParentKind:  CommentOnActivity,
	}

	if comment, err = c.repo.Comments().Create(ctx.Context(), comment); err != nil {
		return RespondError(ctx, err)
	}

	return ctx.JSON(router.StatusCreated, map[string]any{
		"comment": comment,
	})
}

func (c *ActivitiesController) Comments(ctx router.Context) error {
	activityID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]any{
			"error": "invalid activity id",
		})
	}

	records, err := c.repo.Comments().ListForParent(ctx.Context(), activityID, CommentOnActivity)
	if err != nil {
		return RespondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"comments": records,
	})
}
