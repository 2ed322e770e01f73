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

// PostsController serves the wall post API.
type PostsController struct {
	Debug      bool
	Logger     Logger
	SessionKey string

	repo RepositoryManager
}

func NewPostsController(repo RepositoryManager) *PostsController {
	return &PostsController{
		Logger:     defLogger{},
		SessionKey: "caller",
		repo:       repo,
	}
}

func (c *PostsController) WithLogger(l Logger) *PostsController {
	if l != nil {
		c.Logger = l
	}
	return c
}

func (c *PostsController) RegisterRoutes(group RouteRegistrar) {
	group.Post("/", c.Create)
	group.Get("/", c.List)
	group.Put("/:id", c.Update)
	group.Get("/:id", c.Show)
	group.Post("/:id/comments", c.Comment)
	group.Get("/:id/comments", c.Comments)
}

// PostPayload is the create/update body. Tags is a comma separated list.
type PostPayload struct {
	Body string `json:"body" form:"body"`
	Tags string `json:"tags" form:"tags"`
}

func (r PostPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Body, validation.Required, validation.Length(1, 10000)),
	)
}

func (c *PostsController) Create(ctx router.Context) error {
	session, err := CurrentSession(ctx, c.SessionKey)
	if err != nil {
		return RespondError(ctx, err)
	}

	authorID, err := session.GetUserUUID()
	if err != nil {
		return RespondError(ctx, ErrUnableToDecodeSession)
	}

	payload := new(PostPayload)
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

	post := &Post{
		ID:       uuid.New(),
		Body:     payload.Body,
		BodyHTML: RenderBody(payload.Body),
		AuthorID: authorID,
	}

	err = c.repo.RunInTx(ctx.Context(), nil, func(txCtx context.Context, tx bun.Tx) error {
		tags, err := EnsureTagsTx(txCtx, tx, c.repo.Tags(), payload.Tags)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to register tags")
		}
		post.Tags = tags

		if post, err = c.repo.Posts().CreateTx(txCtx, tx, post); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create post")
		}
		return nil
	})
	if err != nil {
		return RespondError(ctx, err)
	}

	return ctx.JSON(router.StatusCreated, map[string]any{
		"post": post,
	})
}

// List returns posts newest first, optionally scoped to one author.
func (c *PostsController) List(ctx router.Context) error {
	limit := ctx.QueryInt("limit", 20)
	offset := ctx.QueryInt("offset", 0)

	var records []*Post
	var total int
	var err error

	if author := ctx.Query("author", ""); author != "" {
		authorID, parseErr := uuid.Parse(author)
		if parseErr != nil {
			return ctx.JSON(router.StatusBadRequest, map[string]any{
				"error": "invalid author id",
			})
		}
		records, total, err = c.repo.Posts().ListByAuthor(ctx.Context(), authorID, limit, offset)
	} else {
		records, total, err = c.repo.Posts().List(ctx.Context(), limit, offset)
	}

	if err != nil {
		return RespondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"posts": records,
		"total": total,
	})
}

func (c *PostsController) Show(ctx router.Context) error {
	post, err := c.repo.Posts().GetByID(ctx.Context(), ctx.Param("id"))
	if err != nil {
		return RespondError(ctx, notFoundOr(err, "post not found"))
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"post": post,
	})
}

// Update edits a post. Only the author or an admin may edit.
func (c *PostsController) Update(ctx router.Context) error {
	session, err := CurrentSession(ctx, c.SessionKey)
	if err != nil {
		return RespondError(ctx, err)
	}

	payload := new(PostPayload)
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

	var post *Post

	err = c.repo.RunInTx(ctx.Context(), nil, func(txCtx context.Context, tx bun.Tx) error {
		var err error
		post, err = c.repo.Posts().GetByIDTx(txCtx, tx, ctx.Param("id"))
		if err != nil {
			return notFoundOr(err, "post not found")
		}

		if post.AuthorID.String() != session.UserID && !session.IsAdmin() {
			return ErrPermissionDenied
		}

		tags, err := EnsureTagsTx(txCtx, tx, c.repo.Tags(), payload.Tags)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to register tags")
		}

		post.Body = payload.Body
		post.BodyHTML = RenderBody(payload.Body)
		if payload.Tags != "" {
			post.Tags = tags
		}

		post, err = c.repo.Posts().UpdateTx(txCtx, tx, post, repository.UpdateByID(post.ID.String()))
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update post")
		}
		return nil
	})
	if err != nil {
		return RespondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"post": post,
	})
}

// CommentPayload is the comment body.
type CommentPayload struct {
	Body string `json:"body" form:"body"`
}

func (r CommentPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Body, validation.Required, validation.Length(1, 5000)),
	)
}

func (c *PostsController) Comment(ctx router.Context) error {
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

	post, err := c.repo.Posts().GetByID(ctx.Context(), ctx.Param("id"))
	if err != nil {
		return RespondError(ctx, notFoundOr(err, "post not found"))
	}

	comment := &Comment{
		ID:          uuid.New(),
		Body:        payload.Body,
		BodyHTML:    RenderBody(payload.Body),
		CommenterID: commenterID,
		ParentID:    post.ID,
		ParentKind:  CommentOnPost,
	}

	if comment, err = c.repo.Comments().Create(ctx.Context(), comment); err != nil {
		return RespondError(ctx, err)
	}

	return ctx.JSON(router.StatusCreated, map[string]any{
		"comment": comment,
	})
}

func (c *PostsController) Comments(ctx router.Context) error {
	postID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]any{
			"error": "invalid post id",
		})
	}

	records, err := c.repo.Comments().ListForParent(ctx.Context(), postID, CommentOnPost)
	if err != nil {
		return RespondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"comments": records,
	})
}

func notFoundOr(err error, msg string) error {
	if goerrors.IsNotFound(err) {
		return goerrors.New(msg, goerrors.CategoryNotFound).WithCode(goerrors.CodeNotFound)
	}
	return err
}
