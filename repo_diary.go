package paedu

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Diaries interface {
	repository.Repository[*Diary]

	ListByAuthor(ctx context.Context, authorID uuid.UUID, limit, offset int) ([]*Diary, int, error)
	DeleteByAuthor(ctx context.Context, id, authorID uuid.UUID) error
}

type diaries struct {
	repository.Repository[*Diary]
	db *bun.DB
}

var _ Diaries = (*diaries)(nil)

func NewDiariesRepository(db *bun.DB) Diaries {
	repo := repository.NewRepository[*Diary](db, repository.ModelHandlers[*Diary]{
		NewRecord: func() *Diary { return &Diary{} },
		GetID: func(d *Diary) uuid.UUID {
			if d == nil {
				return uuid.Nil
			}
			return d.ID
		},
		SetID: func(d *Diary, id uuid.UUID) {
			if d != nil {
				d.ID = id
			}
		},
	})

	return &diaries{
		Repository: repo,
		db:         db,
	}
}

// ListByAuthor returns one author's diary entries newest first. Diary
// entries are never listed across authors.
func (r *diaries) ListByAuthor(ctx context.Context, authorID uuid.UUID, limit, offset int) ([]*Diary, int, error) {
	var records []*Diary

	q := r.db.NewSelect().
		Model(&records).
		Where("?TableAlias.author_id = ?", authorID.String()).
		Order("dry.created_at DESC")

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

// DeleteByAuthor soft deletes one entry, scoped to its author.
func (r *diaries) DeleteByAuthor(ctx context.Context, id, authorID uuid.UUID) error {
	_, err := r.db.NewDelete().
		Model((*Diary)(nil)).
		Where("?TableAlias.id = ?", id.String()).
		Where("?TableAlias.author_id = ?", authorID.String()).
		Exec(ctx)

	return err
}
