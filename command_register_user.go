package paedu

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

type RegisterUserMessage struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Password   string `json:"password"`
	UseHashid  bool
	OnResponse func(resp *RegisterUserResponse)
}

func (e RegisterUserMessage) Type() string { return "user.register" }

type RegisterUserResponse struct {
	User         *User
	ConfirmToken string
	ExpiresAt    time.Time
}

// RegisterUserHandler creates an unconfirmed account and mints its
// confirmation token.
type RegisterUserHandler struct {
	repo       RepositoryManager
	codec      TokenCodec
	adminEmail string
	logger     Logger
	sink       ActivitySink
}

func NewRegisterUserHandler(repo RepositoryManager, codec TokenCodec, adminEmail string) *RegisterUserHandler {
	return &RegisterUserHandler{
		repo:       repo,
		codec:      codec,
		adminEmail: adminEmail,
		logger:     defLogger{},
		sink:       noopActivitySink{},
	}
}

func (h *RegisterUserHandler) WithLogger(l Logger) *RegisterUserHandler {
	if l != nil {
		h.logger = l
	}
	return h
}

func (h *RegisterUserHandler) WithActivitySink(sink ActivitySink) *RegisterUserHandler {
	h.sink = normalizeActivitySink(sink)
	return h
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) error {
	user := &User{}
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	username := getUsername(event.Username, event.Email)
	if !ValidUsername(username) {
		return goerrors.New("invalid username", goerrors.CategoryValidation).
			WithMetadata(map[string]any{"username": username})
	}

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, identifier := range []string{event.Email, username} {
			if _, err := h.repo.Users().GetByIdentifierTx(ctx, tx, identifier); err == nil {
				return ErrDuplicateIdentifier
			} else if !repository.IsRecordNotFound(err) {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check identifier availability")
			}
		}

		hash, err := HashPassword(event.Password)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		user.PasswordHash = hash
		user.Email = event.Email
		user.Phone = event.Phone
		user.FirstName = event.FirstName
		user.LastName = event.LastName
		user.Username = username
		user.Confirmed = false
		user.Permissions = DefaultPermissions(event.Email, h.adminEmail)
		user.Role = DefaultRole(user.Permissions)
		if event.UseHashid {
			if id, err := hashid.NewUUID(event.Email); err == nil {
				user.ID = id
			}
		}

		if user, err = h.repo.Users().CreateTx(ctx, tx, user); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}

		return goerrors.Wrap(err, goerrors.CategoryInternal, "user registration transaction failed")
	}

	token, expiresAt, err := h.codec.Issue(PurposeConfirm, user.ID.String())
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue confirmation token")
	}

	go printEmailNotification(user.Email, "/confirm/"+token)

	h.recordActivity(ctx, ActivityEventUserRegistered, user.ID.String(), map[string]any{
		"email": user.Email,
	})

	if event.OnResponse != nil {
		event.OnResponse(&RegisterUserResponse{
			User:         user,
			ConfirmToken: token,
			ExpiresAt:    expiresAt,
		})
	}

	return nil
}

func (h *RegisterUserHandler) recordActivity(ctx context.Context, eventType ActivityEventType, userID string, metadata map[string]any) {
	event := ActivityEvent{
		EventType:  eventType,
		UserID:     userID,
		Metadata:   metadata,
		OccurredAt: time.Now(),
	}
	if err := h.sink.Record(ctx, event); err != nil {
		h.logger.Error("failed to record registration activity", "error", err)
	}
}

func getUsername(username, email string) string {
	if username != "" {
		return username
	}

	if strings.Contains(email, "@") {
		username = strings.Split(email, "@")[0]
	}

	return username
}
