package paedu

import (
	"context"
	"strings"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Suggestions interface {
	repository.Repository[*Suggestion]

	FindByQuery(ctx context.Context, query string) ([]*Suggestion, error)
}

type suggestions struct {
	repository.Repository[*Suggestion]
	db *bun.DB
}

var _ Suggestions = (*suggestions)(nil)

func NewSuggestionsRepository(db *bun.DB) Suggestions {
	repo := repository.NewRepository[*Suggestion](db, repository.ModelHandlers[*Suggestion]{
		NewRecord: func() *Suggestion { return &Suggestion{} },
		GetID: func(s *Suggestion) uuid.UUID {
			if s == nil {
				return uuid.Nil
			}
			return s.ID
		},
		SetID: func(s *Suggestion, id uuid.UUID) {
			if s != nil {
				s.ID = id
			}
		},
		GetIdentifier: func() string {
			return "query"
		},
	})

	return &suggestions{
		Repository: repo,
		db:         db,
	}
}

// FindByQuery matches stored queries by case insensitive substring.
func (r *suggestions) FindByQuery(ctx context.Context, query string) ([]*Suggestion, error) {
	var records []*Suggestion

	needle := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"

	err := r.db.NewSelect().
		Model(&records).
		Where("lower(?TableAlias.query) LIKE ?", needle).
		Order("sgn.created_at ASC").
		Scan(ctx)

	if err != nil {
		return nil, err
	}

	return records, nil
}
