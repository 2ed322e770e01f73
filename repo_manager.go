package paedu

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	repository.Validator
	repository.TransactionManager
	Users() Users
	Posts() Posts
	Comments() Comments
	Tags() Tags
	Diaries() Diaries
	Activities() Activities
	Suggestions() Suggestions
}

type mngr struct {
	db          *bun.DB
	users       Users
	posts       Posts
	comments    Comments
	tags        Tags
	diaries     Diaries
	activities  Activities
	suggestions Suggestions
}

func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &mngr{
		db:          db,
		users:       NewUsersRepository(db),
		posts:       NewPostsRepository(db),
		comments:    NewCommentsRepository(db),
		tags:        NewTagsRepository(db),
		diaries:     NewDiariesRepository(db),
		activities:  NewActivitiesRepository(db),
		suggestions: NewSuggestionsRepository(db),
	}
}

func (m mngr) Validate() error {
	if m.users == nil {
		return errors.New("repository users should be initialized")
	}

	if m.posts == nil {
		return errors.New("repository posts should be initialized")
	}

	if m.comments == nil {
		return errors.New("repository comments should be initialized")
	}

	if m.tags == nil {
		return errors.New("repository tags should be initialized")
	}

	if m.diaries == nil {
		return errors.New("repository diaries should be initialized")
	}

	if m.activities == nil {
		return errors.New("repository activities should be initialized")
	}

	if m.suggestions == nil {
		return errors.New("repository suggestions should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Users() Users {
	return m.users
}

func (m mngr) Posts() Posts {
	return m.posts
}

func (m mngr) Comments() Comments {
	return m.comments
}

func (m mngr) Tags() Tags {
	return m.tags
}

func (m mngr) Diaries() Diaries {
	return m.diaries
}

func (m mngr) Activities() Activities {
	return m.activities
}

func (m mngr) Suggestions() Suggestions {
	return m.suggestions
}
