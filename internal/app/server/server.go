package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"selfeval/internal/domain/auth"
	"selfeval/internal/domain/catalog"
	"selfeval/internal/domain/notifications"
	"selfeval/internal/domain/reconcile"
	"selfeval/internal/domain/reports"
	"selfeval/internal/domain/responses"
	"selfeval/internal/domain/users"
	"selfeval/internal/platform/cache"
	"selfeval/internal/platform/config"
	"selfeval/internal/platform/db"
	"selfeval/internal/platform/docstore"
	"selfeval/internal/platform/docstore/memory"
	"selfeval/internal/platform/docstore/mongo"
	"selfeval/internal/platform/docstore/postgres"
	"selfeval/internal/platform/email"
	"selfeval/internal/platform/events"
	"selfeval/internal/platform/jobs"
	"selfeval/internal/platform/metrics"
	authhandler "selfeval/internal/transport/http/handlers/auth"
	cataloghandler "selfeval/internal/transport/http/handlers/catalog"
	formhandler "selfeval/internal/transport/http/handlers/form"
	notificationshandler "selfeval/internal/transport/http/handlers/notifications"
	reportshandler "selfeval/internal/transport/http/handlers/reports"
	responseshandler "selfeval/internal/transport/http/handlers/responses"
	reviewhandler "selfeval/internal/transport/http/handlers/review"
	usershandler "selfeval/internal/transport/http/handlers/users"
	"selfeval/internal/transport/http/middleware"
)

type App struct {
	Config  config.Config
	Docs    docstore.Store
	Bus     *events.Bus
	Metrics *metrics.Collector
	Users   *users.Service
	Jobs    *jobs.Service
	Router  http.Handler

	closers []func()
}

// New opens the configured backends, wires services and builds the router.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.JWTSecret == "" {
		slog.Warn("JWT_SECRET not set, using a random secret for this process")
		cfg.JWTSecret = uuid.NewString()
	}

	app := &App{Config: cfg, Bus: events.NewBus()}
	docs, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.Docs = docs
	app.closers = append(app.closers, docs.Close)

	c := app.openCache(ctx)
	if cfg.MetricsEnabled {
		app.Metrics = metrics.New()
		app.Bus.OnPublish(app.Metrics.EventPublished)
	}
	app.openForwarder()

	usersSvc := users.NewService(users.NewStore(docs), users.NewDirectory(cfg.AdminEmails, cfg.DeanEmails, cfg.LibraryEmails))
	app.Users = usersSvc
	catalogSvc := catalog.NewService(catalog.NewStore(docs), c, cfg.CacheTTL, app.Bus)
	catalogSvc.SeedFile = cfg.SeedCatalogFile
	responsesSvc := responses.NewService(responses.NewStore(docs), usersSvc, app.Bus)
	engine := reconcile.NewEngine(catalogSvc, responsesSvc, app.Bus)
	reportsSvc := reports.NewService(responsesSvc, usersSvc, c, cfg.CacheTTL)
	reportsSvc.Subscribe(app.Bus)
	app.startJobs()
	notificationsSvc := notifications.New(notifications.NewStore(docs), email.New(cfg))
	notificationsSvc.DefaultFrom = cfg.EmailFrom
	notificationsSvc.Dispatcher = app.Jobs
	notificationsSvc.Subscribe(app.Bus)
	if app.Metrics != nil {
		catalogSvc.OnCacheLookup = app.Metrics.CacheLookup
		reportsSvc.OnCacheLookup = app.Metrics.CacheLookup
		engine.OnSaveOutcome = app.Metrics.SaveOutcome
	}

	if cfg.RunSeed {
		if err := seed(ctx, cfg, usersSvc, catalogSvc); err != nil {
			app.Close()
			return nil, err
		}
	}

	var google authhandler.IdentityVerifier
	if cfg.GoogleClientID != "" {
		google = auth.NewGoogleVerifier(cfg.GoogleClientID)
	}
	var recorder middleware.RequestRecorder
	if app.Metrics != nil {
		recorder = app.Metrics
	}

	router := chi.NewRouter()
	if cfg.TrustProxy {
		router.Use(chimw.RealIP)
	}
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(recorder))
	router.Use(chimw.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Auth(cfg.JWTSecret))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := docs.Ping(ctx); err != nil {
			http.Error(w, "store not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	if app.Metrics != nil {
		router.Handle("/metrics", app.Metrics.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(c, cfg.RateLimitPerMinute, time.Minute))
		r.Use(middleware.SensitiveMutationRateLimit(c, cfg.RateLimitPerMinute, time.Minute))

		authHandler := authhandler.NewHandler(usersSvc, google, cfg.JWTSecret, cfg.TokenTTL)
		authHandler.RegisterPublicRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			authHandler.RegisterRoutes(r)
			cataloghandler.NewHandler(catalogSvc).RegisterRoutes(r)
			formhandler.NewHandler(engine).RegisterRoutes(r)
			responseshandler.NewHandler(responsesSvc).RegisterRoutes(r)
			reviewhandler.NewHandler(responsesSvc).RegisterRoutes(r)
			reportshandler.NewHandler(reportsSvc).RegisterRoutes(r)
			usershandler.NewHandler(usersSvc).RegisterRoutes(r)
			notificationshandler.NewHandler(notificationsSvc).RegisterRoutes(r)
		})
	})

	router.Mount("/", spaHandler{staticPath: cfg.FrontendDir, indexPath: "index.html"})
	app.Router = router
	return app, nil
}

// Close releases backends in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func openStore(ctx context.Context, cfg config.Config) (docstore.Store, error) {
	switch cfg.StoreBackend {
	case config.StoreBackendPostgres:
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("db connect: %w", err)
		}
		if cfg.RunMigrations {
			if err := db.Migrate(ctx, pool, cfg.MigrationsDir); err != nil {
				pool.Close()
				return nil, fmt.Errorf("migrations: %w", err)
			}
		}
		return postgres.New(pool), nil
	case config.StoreBackendMongo:
		store, err := mongo.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, fmt.Errorf("mongo connect: %w", err)
		}
		return store, nil
	default:
		slog.Warn("using in-memory document store, data is lost on restart")
		return memory.New(), nil
	}
}

func (a *App) startJobs() {
	ctx, cancel := context.WithCancel(context.Background())
	a.Jobs = jobs.New(256)
	if a.Metrics != nil {
		a.Jobs.OnRun = a.Metrics.JobRun
	}
	a.Jobs.Start(ctx, 2)
	a.closers = append(a.closers, func() {
		a.Jobs.Stop()
		cancel()
	})
}

func (a *App) openCache(ctx context.Context) cache.Store {
	if a.Config.RedisAddr == "" {
		return cache.NewMemory()
	}
	rc := cache.NewRedis(a.Config.RedisAddr, a.Config.RedisPassword, a.Config.RedisDB)
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rc.Ping(pingCtx); err != nil {
		slog.Warn("redis unavailable, falling back to in-process cache", "addr", a.Config.RedisAddr, "err", err)
		_ = rc.Close()
		return cache.NewMemory()
	}
	a.closers = append(a.closers, func() { _ = rc.Close() })
	return rc
}

func (a *App) openForwarder() {
	if a.Config.AMQPURL == "" {
		return
	}
	fwd, err := events.DialForwarder(a.Config.AMQPURL, a.Config.AMQPExchange)
	if err != nil {
		slog.Warn("event forwarder disabled", "err", err)
		return
	}
	a.Bus.Subscribe(fwd.Handle)
	a.closers = append(a.closers, func() { _ = fwd.Close() })
}

func seed(ctx context.Context, cfg config.Config, usersSvc *users.Service, catalogSvc *catalog.Service) error {
	if cfg.SeedAdminEmail != "" {
		if err := usersSvc.EnsureAdmin(ctx, cfg.SeedAdminEmail, cfg.SeedAdminPassword); err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
	}
	results, err := catalogSvc.SeedAll(ctx)
	if errors.Is(err, catalog.ErrNoSeedSource) || errors.Is(err, fs.ErrNotExist) {
		slog.Warn("catalog seed skipped", "file", cfg.SeedCatalogFile, "err", err)
		return nil
	}
	if err != nil {
		return fmt.Errorf("seed catalog: %w", err)
	}
	for _, res := range results {
		if res.Added > 0 {
			slog.Info("catalog seeded", "category", res.Category, "added", res.Added, "skipped", res.Skipped)
		}
	}
	return nil
}

// Run serves until SIGINT or SIGTERM.
func Run() error {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	srv := &http.Server{Addr: cfg.Addr, Handler: app.Router, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("selfeval server listening", "addr", cfg.Addr, "store", cfg.StoreBackend)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type spaHandler struct {
	staticPath string
	indexPath  string
}

func (h spaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	p := filepath.Join(h.staticPath, filepath.FromSlash(path.Clean("/"+r.URL.Path)))
	_, err := os.Stat(p)
	if err == nil {
		http.FileServer(http.Dir(h.staticPath)).ServeHTTP(w, r)
		return
	}

	if os.IsNotExist(err) {
		http.ServeFile(w, r, filepath.Join(h.staticPath, h.indexPath))
		return
	}

	http.NotFound(w, r)
}
