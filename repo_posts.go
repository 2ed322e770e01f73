package paedu

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Posts interface {
	repository.Repository[*Post]

	List(ctx context.Context, limit, offset int) ([]*Post, int, error)
	ListByAuthor(ctx context.Context, authorID uuid.UUID, limit, offset int) ([]*Post, int, error)
}

type posts struct {
	repository.Repository[*Post]
	db *bun.DB
}

var _ Posts = (*posts)(nil)

func NewPostsRepository(db *bun.DB) Posts {
	repo := repository.NewRepository[*Post](db, repository.ModelHandlers[*Post]{
		NewRecord: func() *Post { return &Post{} },
		GetID: func(p *Post) uuid.UUID {
			if p == nil {
				return uuid.Nil
			}
			return p.ID
		},
		SetID: func(p *Post, id uuid.UUID) {
			if p != nil {
				p.ID = id
			}
		},
	})

	return &posts{
		Repository: repo,
		db:         db,
	}
}

// List returns posts newest first along with the total count.
func (r *posts) List(ctx context.Context, limit, offset int) ([]*Post, int, error) {
	return r.list(ctx, nil, limit, offset)
}

// ListByAuthor returns one author's posts newest first.
func (r *posts) ListByAuthor(ctx context.Context, authorID uuid.UUID, limit, offset int) ([]*Post, int, error) {
	return r.list(ctx, &authorID, limit, offset)
}

func (r *posts) list(ctx context.Context, authorID *uuid.UUID, limit, offset int) ([]*Post, int, error) {
	var records []*Post

	q := r.db.NewSelect().
		Model(&records).
		Relation("Author").
		Order("pst.created_at DESC")

	if authorID != nil {
		q = q.Where("?TableAlias.author_id = ?", authorID.String())
	}

	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}

	total, err := q.ScanAndCount(ctx)
	if err != nil {
		return nil, 0, err
	}

	return records, total, nil
}

type Comments interface {
	repository.Repository[*Comment]

	ListForParent(ctx context.Context, parentID uuid.UUID, kind CommentParent) ([]*Comment, error)
}

type comments struct {
	repository.Repository[*Comment]
	db *bun.DB
}

var _ Comments = (*comments)(nil)

func NewCommentsRepository(db *bun.DB) Comments {
	repo := repository.NewRepository[*Comment](db, repository.ModelHandlers[*Comment]{
		NewRecord: func() *Comment { return &Comment{} },
		GetID: func(c *Comment) uuid.UUID {
			if c == nil {
				return uuid.Nil
			}
			return c.ID
		},
		SetID: func(c *Comment, id uuid.UUID) {
			if c != nil {
				c.ID = id
			}
		},
	})

	return &comments{
		Repository: repo,
		db:         db,
	}
}

// ListForParent returns a record's comments oldest first.
func (r *comments) ListForParent(ctx context.Context, parentID uuid.UUID, kind CommentParent) ([]*Comment, error) {
	var records []*Comment

	err := r.db.NewSelect().
		Model(&records).
		Where("?TableAlias.parent_id = ?", parentID.String()).
		Where("?TableAlias.parent_kind = ?", string(kind)).
		Order("cmt.created_at ASC").
		Scan(ctx)

	if err != nil {
		return nil, err
	}

	return records, nil
}

type Tags interface {
	repository.Repository[*Tag]

	GetOrCreate(ctx context.Context, text string) (*Tag, error)
	GetOrCreateTx(ctx context.Context, tx bun.IDB, text string) (*Tag, error)
}

type tags struct {
	repository.Repository[*Tag]
	db *bun.DB
}

var _ Tags = (*tags)(nil)

func NewTagsRepository(db *bun.DB) Tags {
	repo := repository.NewRepository[*Tag](db, repository.ModelHandlers[*Tag]{
		NewRecord: func() *Tag { return &Tag{} },
		GetID: func(t *Tag) uuid.UUID {
			if t == nil {
				return uuid.Nil
			}
			return t.ID
		},
		SetID: func(t *Tag, id uuid.UUID) {
			if t != nil {
				t.ID = id
			}
		},
		GetIdentifier: func() string {
			return "text"
		},
	})

	return &tags{
		Repository: repo,
		db:         db,
	}
}

func (r *tags) GetOrCreate(ctx context.Context, text string) (*Tag, error) {
	return r.GetOrCreateTx(ctx, r.db, text)
}

func (r *tags) GetOrCreateTx(ctx context.Context, tx bun.IDB, text string) (*Tag, error) {
	record := &Tag{}

	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.text = ?", text).
		Limit(1).
		Scan(ctx)

	if err == nil {
		return record, nil
	}

	if !repository.IsRecordNotFound(err) {
		return nil, err
	}

	record = &Tag{
		ID:   uuid.New(),
		Text: text,
	}

	return r.Repository.CreateTx(ctx, tx, record)
}

// EnsureTagsTx registers every tag text, returning the normalized list.
func EnsureTagsTx(ctx context.Context, tx bun.IDB, repo Tags, raw string) ([]string, error) {
	texts := SplitTags(raw)
	for _, text := range texts {
		if _, err := repo.GetOrCreateTx(ctx, tx, text); err != nil {
			return nil, err
		}
	}
	return texts, nil
}
