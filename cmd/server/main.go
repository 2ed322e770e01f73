package main

import (
	"context"
	"database/sql"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	gconfig "github.com/goliatone/go-config/config"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-router"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/alfredpaedu/paedu"
	"github.com/alfredpaedu/paedu/cmd/server/config"
	"github.com/alfredpaedu/paedu/middleware/gate"
)

type App struct {
	config *gconfig.Container[*config.BaseConfig]
	bunDB  *bun.DB
	repo   paedu.RepositoryManager
	store  *paedu.CredentialStore
	codec  *paedu.Codec
	auth   paedu.Authenticator
	srv    router.Server[*fiber.App]
	logger *glog.BaseLogger
}

func (a *App) Config() *config.BaseConfig {
	return a.config.Raw()
}

func (a *App) GetLogger(name string) glog.Logger {
	return a.logger.GetLogger(name)
}

func main() {
	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Info),
		glog.WithName("paedu"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)

	cfg := gconfig.New(&config.BaseConfig{}).
		WithLogger(lgr.GetLogger("config"))

	ctx := context.Background()
	if err := cfg.Load(ctx); err != nil {
		panic(err)
	}

	app := &App{
		config: cfg,
		logger: lgr,
	}

	if err := WithPersistence(ctx, app); err != nil {
		panic(err)
	}

	if err := WithAuth(ctx, app); err != nil {
		panic(err)
	}

	if err := WithHTTPServer(ctx, app); err != nil {
		panic(err)
	}

	app.srv.Serve(app.Config().GetServer().GetAddress())

	WaitExitSignal()
}

func WithPersistence(ctx context.Context, app *App) error {
	pcfg := app.Config().GetPersistence()

	db, err := sql.Open(sqliteshim.ShimName, pcfg.GetDSN())
	if err != nil {
		return err
	}

	persistence.RegisterModel((*paedu.User)(nil))
	persistence.RegisterModel((*paedu.Tag)(nil))
	persistence.RegisterModel((*paedu.Post)(nil))
	persistence.RegisterModel((*paedu.Comment)(nil))
	persistence.RegisterModel((*paedu.Diary)(nil))
	persistence.RegisterModel((*paedu.Activity)(nil))
	persistence.RegisterModel((*paedu.Suggestion)(nil))

	client, err := persistence.New(pcfg, db, sqlitedialect.New())
	if err != nil {
		return err
	}

	client.SetLogger(app.GetLogger("persistence"))

	migrationsFS, err := fs.Sub(paedu.GetMigrationsFS(), "data/sql/migrations")
	if err != nil {
		return err
	}
	client.RegisterDialectMigrations(
		migrationsFS,
		persistence.WithDialectSourceLabel("data/sql/migrations"),
		persistence.WithValidationTargets("postgres", "sqlite"),
	)
	if err := client.ValidateDialects(ctx); err != nil {
		return err
	}

	if err := client.Migrate(ctx); err != nil {
		return err
	}

	app.bunDB = client.DB()
	app.repo = paedu.NewRepositoryManager(client.DB())

	return app.repo.Validate()
}

func WithAuth(ctx context.Context, app *App) error {
	acfg := app.Config().GetAuth()

	store := paedu.NewCredentialStore(app.repo.Users())
	store.WithLogger(app.GetLogger("auth:store"))

	codec := paedu.NewTokenCodecFromConfig(acfg,
		paedu.WithCodecLogger(app.GetLogger("auth:codec")),
	)

	authenticator := paedu.NewAuthenticator(store, acfg)
	authenticator.WithLogger(app.GetLogger("auth"))
	authenticator.WithActivitySink(activityLogger(app.GetLogger("activity")))

	app.store = store
	app.codec = codec
	app.auth = authenticator

	return nil
}

func WithHTTPServer(ctx context.Context, app *App) error {
	acfg := app.Config().GetAuth()
	gcfg := app.Config().GetGate()

	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath:  true,
			StrictRouting: false,
		}))
	})

	srv.Router().WithLogger(app.GetLogger("router"))

	policy := gate.Policy{
		Exempt:         map[string]bool{},
		ExemptPrefixes: gcfg.GetExemptPrefixes(),
	}
	for _, route := range gcfg.GetExemptRoutes() {
		policy.Exempt[route] = true
	}

	srv.Router().Use(gate.New(gate.Config{
		Policy:      policy,
		Verifier:    app.store,
		Codec:       app.codec,
		ContextKey:  acfg.GetContextKey(),
		TokenLookup: acfg.GetTokenLookup(),
		AuthScheme:  acfg.GetAuthScheme(),
		Logger:      app.GetLogger("gate"),
	}))

	sink := activityLogger(app.GetLogger("activity"))

	tokens := paedu.NewTokensController(app.repo, app.codec, app.store).
		WithLogger(app.GetLogger("http:tokens")).
		WithActivitySink(sink)
	tokens.SessionKey = acfg.GetContextKey()
	tokens.RegisterRoutes(srv.Router().Group("/api/v1/tokens"))

	users := paedu.NewUsersController(app.repo, app.codec, acfg.GetAdminEmail()).
		WithLogger(app.GetLogger("http:users")).
		WithActivitySink(sink)
	users.SessionKey = acfg.GetContextKey()
	users.RegisterRoutes(srv.Router().Group("/api/v1/users"))

	posts := paedu.NewPostsController(app.repo).
		WithLogger(app.GetLogger("http:posts"))
	posts.SessionKey = acfg.GetContextKey()
	posts.RegisterRoutes(srv.Router().Group("/api/v1/posts"))

	diary := paedu.NewDiaryController(app.repo).
		WithLogger(app.GetLogger("http:diary"))
	diary.SessionKey = acfg.GetContextKey()
	diary.RegisterRoutes(srv.Router().Group("/api/v1/diary"))

	activities := paedu.NewActivitiesController(app.repo).
		WithLogger(app.GetLogger("http:activities"))
	activities.SessionKey = acfg.GetContextKey()
	activities.RegisterRoutes(srv.Router().Group("/api/v1/activities"))

	suggestions := paedu.NewSuggestionsController(app.repo).
		WithLogger(app.GetLogger("http:suggestions"))
	suggestions.SessionKey = acfg.GetContextKey()
	suggestions.RegisterRoutes(srv.Router().Group("/api/v1/suggestions"))

	app.srv = srv

	return nil
}

// activityLogger adapts the structured logger into an account activity sink.
func activityLogger(lgr glog.Logger) paedu.ActivitySinkFunc {
	return func(ctx context.Context, event paedu.ActivityEvent) error {
		lgr.Info("account activity",
			"event", string(event.EventType),
			"user_id", event.UserID,
			"metadata", event.Metadata,
			"occurred_at", event.OccurredAt,
		)
		return nil
	}
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
