package paedu

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// DiaryController serves the study diary API. Every route is scoped to
// the caller: entries never leak across authors.
type DiaryController struct {
	Debug      bool
	Logger     Logger
	SessionKey string

	repo RepositoryManager
}

func NewDiaryController(repo RepositoryManager) *DiaryController {
	return &DiaryController{
		Logger:     defLogger{},
		SessionKey: "caller",
		repo:       repo,
	}
}

func (c *DiaryController) WithLogger(l Logger) *DiaryController {
	if l != nil {
		c.Logger = l
	}
	return c
}

func (c *DiaryController) RegisterRoutes(group RouteRegistrar) {
	group.Post("/", c.Create)
	group.Get("/", c.List)
	group.Get("/:id", c.Show)
	group.Put("/:id", c.Update)
	group.Delete("/:id", c.Delete)
}

// DiaryPayload is the create/update body.
type DiaryPayload struct {
	Title           string   `json:"title" form:"title"`
	Description     string   `json:"description" form:"description"`
	Tags            string   `json:"tags" form:"tags"`
	StudyActivities []string `json:"study_activities" form:"study_activities"`
	StudyMinutes    int      `json:"study_minutes" form:"study_minutes"`
	OtherActivities []string `json:"other_activities" form:"other_activities"`
	OtherMinutes    int      `json:"other_minutes" form:"other_minutes"`
}

func (r DiaryPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required, validation.Length(1, 255)),
		validation.Field(&r.Description, validation.Length(0, 10000)),
		validation.Field(&r.StudyMinutes, validation.Min(0), validation.Max(24*60)),
		validation.Field(&r.OtherMinutes, validation.Min(0), validation.Max(24*60)),
	)
}

func (c *DiaryController) Create(ctx router.Context) error {
	session, err := CurrentSession(ctx, c.SessionKey)
	if err != nil {
		return RespondError(ctx, err)
	}

	authorID, err := session.GetUserUUID()
	if err != nil {
		return RespondError(ctx, ErrUnableToDecodeSession)
	}

	payload := new(DiaryPayload)
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

	entry := &Diary{
		ID:              uuid.New(),
		Title:           payload.Title,
		Description:     payload.Description,
		DescriptionHTML: RenderBody(payload.Description),
		AuthorID:        authorID,
		StudyActivities: payload.StudyActivities,
		StudyMinutes:    payload.StudyMinutes,
		OtherActivities: payload.OtherActivities,
		OtherMinutes:    payload.OtherMinutes,
	}

	err = c.repo.RunInTx(ctx.Context(), nil, func(txCtx context.Context, tx bun.Tx) error {
		tags, err := EnsureTagsTx(txCtx, tx, c.repo.Tags(), payload.Tags)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to register tags")
		}
		entry.Tags = tags

		if entry, err = c.repo.Diaries().CreateTx(txCtx, tx, entry); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create diary entry")
		}
		return nil
	})
	if err != nil {
		return RespondError(ctx, err)
	}

	return ctx.JSON(router.StatusCreated, map[string]any{
		"diary": entry,
	})
}

// List returns the caller's own entries newest first.
func (c *DiaryController) List(ctx router.Context) error {
	session, err := CurrentSession(ctx, c.SessionKey)
	if err != nil {
		return RespondError(ctx, err)
	}

	authorID, err := session.GetUserUUID()
	if err != nil {
		return RespondError(ctx, ErrUnableToDecodeSession)
	}

	limit := ctx.QueryInt("limit", 20)
	offset := ctx.QueryInt("offset", 0)

	records, total, err := c.repo.Diaries().ListByAuthor(ctx.Context(), authorID, limit, offset)
	if err != nil {
		return RespondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"diaries": records,
		"total":   total,
	})
}

func (c *DiaryController) Show(ctx router.Context) error {
	session, err := CurrentSession(ctx, c.SessionKey)
	if err != nil {
		return RespondError(ctx, err)
	}

	entry, err := c.loadOwn(ctx, session)
	if err != nil {
		return RespondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"diary": entry,
	})
}

func (c *DiaryController) Update(ctx router.Context) error {
	session, err := CurrentSession(ctx, c.SessionKey)
	if err != nil {
		return RespondError(ctx, err)
	}

	payload := new(DiaryPayload)
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

	var entry *Diary

	err = c.repo.RunInTx(ctx.Context(), nil, func(txCtx context.Context, tx bun.Tx) error {
		var err error
		entry, err = c.repo.Diaries().GetByIDTx(txCtx, tx, ctx.Param("id"))
		if err != nil {
			return notFoundOr(err, "diary entry not found")
		}

		if entry.AuthorID.String() != session.UserID {
			return ErrPermissionDenied
		}

		tags, err := EnsureTagsTx(txCtx, tx, c.repo.Tags(), payload.Tags)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to register tags")
		}

		entry.Title = payload.Title
		entry.Description = payload.Description
		entry.DescriptionHTML = RenderBody(payload.Description)
		entry.StudyActivities = payload.StudyActivities
		entry.StudyMinutes = payload.StudyMinutes
		entry.OtherActivities = payload.OtherActivities
		entry.OtherMinutes = payload.OtherMinutes
		if payload.Tags != "" {
			entry.Tags = tags
		}

		entry, err = c.repo.Diaries().UpdateTx(txCtx, tx, entry, repository.UpdateByID(entry.ID.String()))
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update diary entry")
		}
		return nil
	})
	if err != nil {
		return RespondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"diary": entry,
	})
}

func (c *DiaryController) Delete(ctx router.Context) error {
	session, err := CurrentSession(ctx, c.SessionKey)
	if err != nil {
		return RespondError(ctx, err)
	}

	entry, err := c.loadOwn(ctx, session)
	if err != nil {
		return RespondError(ctx, err)
	}

	authorID, err := session.GetUserUUID()
	if err != nil {
		return RespondError(ctx, ErrUnableToDecodeSession)
	}

	if err := c.repo.Diaries().DeleteByAuthor(ctx.Context(), entry.ID, authorID); err != nil {
		return RespondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"deleted": true,
	})
}

func (c *DiaryController) loadOwn(ctx router.Context, session *SessionObject) (*Diary, error) {
	entry, err := c.repo.Diaries().GetByID(ctx.Context(), ctx.Param("id"))
	if err != nil {
		return nil, notFoundOr(err, "diary entry not found")
	}

	if entry.AuthorID.String() != session.UserID {
		return nil, ErrPermissionDenied
	}

	return entry, nil
}
