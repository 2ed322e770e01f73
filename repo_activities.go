package paedu

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Activities interface {
	repository.Repository[*Activity]

	List(ctx context.Context, limit, offset int) ([]*Activity, int, error)
	MarkInterested(ctx context.Context, id, userID uuid.UUID) (*Activity, error)
	MarkInterestedTx(ctx context.Context, tx bun.IDB, id, userID uuid.UUID) (*Activity, error)
	MarkGoing(ctx context.Context, id, userID uuid.UUID) (*Activity, error)
	MarkGoingTx(ctx context.Context, tx bun.IDB, id, userID uuid.UUID) (*Activity, error)
}

type activities struct {
	repository.Repository[*Activity]
	db *bun.DB
}

var _ Activities = (*activities)(nil)

func NewActivitiesRepository(db *bun.DB) Activities {
	repo := repository.NewRepository[*Activity](db, repository.ModelHandlers[*Activity]{
		NewRecord: func() *Activity { return &Activity{} },
		GetID: func(a *Activity) uuid.UUID {
			if a == nil {
				return uuid.Nil
			}
			return a.ID
		},
		SetID: func(a *Activity, id uuid.UUID) {
			if a != nil {
				a.ID = id
			}
		},
	})

	return &activities{
		Repository: repo,
		db:         db,
	}
}

// List returns activities by start time, soonest first, then newest.
func (r *activities) List(ctx context.Context, limit, offset int) ([]*Activity, int, error) {
	var records []*Activity

	q := r.db.NewSelect().
		Model(&records).
		Order("act.starts_at ASC").
		Order("act.created_at DESC")

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

func (r *activities) MarkInterested(ctx context.Context, id, userID uuid.UUID) (*Activity, error) {
	return r.MarkInterestedTx(ctx, r.db, id, userID)
}

// MarkInterestedTx adds the user to the interested set. Marking twice is
// a no-op.
func (r *activities) MarkInterestedTx(ctx context.Context, tx bun.IDB, id, userID uuid.UUID) (*Activity, error) {
	return r.markAttendance(ctx, tx, id, userID, func(a *Activity, uid string) bool {
		list, changed := AppendUnique(a.Interested, uid)
		a.Interested = list
		return changed
	})
}

func (r *activities) MarkGoing(ctx context.Context, id, userID uuid.UUID) (*Activity, error) {
	return r.MarkGoingTx(ctx, r.db, id, userID)
}

// MarkGoingTx adds the user to the going set. Marking twice is a no-op.
func (r *activities) MarkGoingTx(ctx context.Context, tx bun.IDB, id, userID uuid.UUID) (*Activity, error) {
	return r.markAttendance(ctx, tx, id, userID, func(a *Activity, uid string) bool {
		list, changed := AppendUnique(a.Going, uid)
		a.Going = list
		return changed
	})
}

func (r *activities) markAttendance(ctx context.Context, tx bun.IDB, id, userID uuid.UUID, apply func(*Activity, string) bool) (*Activity, error) {
	record, err := r.Repository.GetByIDTx(ctx, tx, id.String())
	if err != nil {
		return nil, err
	}

	if !apply(record, userID.String()) {
		return record, nil
	}

	return r.Repository.UpdateTx(ctx, tx, record, repository.UpdateByID(id.String()))
}
