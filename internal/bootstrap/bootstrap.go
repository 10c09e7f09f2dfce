package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/invoice-hub-agent/internal/config"
	"github.com/kirillkom/invoice-hub-agent/internal/core/ports"
	"github.com/kirillkom/invoice-hub-agent/internal/core/usecase"
	"github.com/kirillkom/invoice-hub-agent/internal/infrastructure/backend"
	"github.com/kirillkom/invoice-hub-agent/internal/infrastructure/export/xlsx"
	"github.com/kirillkom/invoice-hub-agent/internal/infrastructure/extractor/pdftext"
	natsbus "github.com/kirillkom/invoice-hub-agent/internal/infrastructure/queue/nats"
	"github.com/kirillkom/invoice-hub-agent/internal/infrastructure/repository/sqlstore"
	"github.com/kirillkom/invoice-hub-agent/internal/infrastructure/resilience"
	"github.com/kirillkom/invoice-hub-agent/internal/infrastructure/session/filestore"
	"github.com/kirillkom/invoice-hub-agent/internal/infrastructure/session/redisstore"
	"github.com/kirillkom/invoice-hub-agent/internal/infrastructure/storage/localfs"
	miniostore "github.com/kirillkom/invoice-hub-agent/internal/infrastructure/storage/minio"
	"github.com/kirillkom/invoice-hub-agent/internal/observability/metrics"
)

type App struct {
	Config config.Config

	Backend    *backend.Client
	StatusBus  *natsbus.StatusBus
	Spool      *localfs.Storage
	Objects    ports.ObjectStorage
	Metrics    *metrics.HTTPServerMetrics
	Workflow   *metrics.WorkflowMetrics
	Status     *usecase.StatusStore
	Caches     *usecase.CacheRegistry
	Session    *usecase.SessionUseCase
	UserConfig *usecase.UserConfigUseCase
	Review     *usecase.ReviewUseCase
	Poller     *usecase.StatusPoller
	Uploads    *usecase.UploadUseCase
	Duplicates *usecase.DuplicateSequencer
	Drafts     *usecase.DraftPOUseCase

	closeFns []func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	app := &App{Config: cfg}
	ok := false
	defer func() {
		if !ok {
			app.Close()
		}
	}()

	if cfg.BackendValidateContract {
		doc, err := backend.LoadContract(ctx)
		if err != nil {
			return nil, fmt.Errorf("load backend contract: %w", err)
		}
		if err := backend.VerifyRoutes(doc, backend.Routes); err != nil {
			return nil, fmt.Errorf("verify backend contract: %w", err)
		}
	}

	store, err := app.openSessionStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init session store: %w", err)
	}

	objects, err := openObjectStorage(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}
	app.Objects = objects
	spool, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init upload spool: %w", err)
	}
	app.Spool = spool

	app.Metrics = metrics.NewHTTPServerMetrics(cfg.ServiceName)
	app.Workflow = metrics.NewWorkflowMetrics(cfg.ServiceName, app.Metrics.Registry())

	var publisher ports.StatusPublisher
	if cfg.NATSURL != "" {
		bus, err := natsbus.New(cfg.NATSURL, cfg.NATSSubject, natsbus.Options{
			ResilienceExecutor: resilience.NewExecutor(resilience.StatusEventsConfig()).WithObserver(app.Workflow),
		})
		if err != nil {
			return nil, fmt.Errorf("init status bus: %w", err)
		}
		app.StatusBus = bus
		app.closeFns = append(app.closeFns, bus.Close)
		publisher = bus
	}

	app.Status = usecase.NewStatusStore(publisher, app.Workflow)
	app.Caches = usecase.NewCacheRegistry()

	// The session use case needs the client and the client needs the token, so
	// the token func resolves the session lazily.
	var session *usecase.SessionUseCase
	resilienceCfg := resilience.DefaultConfig()
	resilienceCfg.RetryMaxAttempts = cfg.BackendRetryMaxAttempts
	resilienceCfg.BreakerEnabled = cfg.BackendBreakerEnabled
	app.Backend = backend.New(cfg.BackendURL, func(ctx context.Context) (string, error) {
		return session.Token(ctx)
	}, backend.Options{
		Timeout:       time.Duration(cfg.BackendTimeoutSeconds) * time.Second,
		UploadTimeout: time.Duration(cfg.BackendUploadTimeoutSeconds) * time.Second,
		Resilience:    resilienceCfg,
		Observer:      app.Workflow,
	})
	session = usecase.NewSessionUseCase(app.Backend, store, app.Status)
	app.Session = session

	app.UserConfig = usecase.NewUserConfigUseCase(app.Backend, store)
	app.Review = usecase.NewReviewUseCase(app.Backend, app.UserConfig)
	app.Poller = usecase.NewStatusPoller(app.Backend, app.Backend, app.Backend, store, app.Status, app.Workflow, usecase.PollerConfig{
		StatsInterval: time.Duration(cfg.StatsPollIntervalMS) * time.Millisecond,
		TaskInterval:  time.Duration(cfg.TaskPollIntervalMS) * time.Millisecond,
	})

	watcher := usecase.NewTaskWatcher(app.Backend, time.Duration(cfg.TaskPollIntervalMS)*time.Millisecond)
	app.Duplicates = usecase.NewDuplicateSequencer(app.Backend, watcher)
	app.Uploads = usecase.NewUploadUseCase(app.Backend, store, app.Status, app.Caches, watcher, app.Duplicates, app.Poller, app.Workflow)
	app.Drafts = usecase.NewDraftPOUseCase(app.Backend, objects, pdftext.NewInspector(), xlsx.NewDraftExporter())

	app.Caches.OnInvalidate(func(name string, version uint64) {
		slog.Debug("cache_invalidated", "cache", name, "version", version)
	})

	session.OnLogout(func(ctx context.Context) {
		app.Poller.Stop()
		app.Uploads.Reset()
		app.Drafts.Reset()
		app.UserConfig.Clear(ctx)
	})

	ok = true
	return app, nil
}

func (a *App) openSessionStore(ctx context.Context, cfg config.Config) (ports.SessionStore, error) {
	switch cfg.SessionDriver {
	case "redis":
		rdb, err := redisstore.Dial(ctx, cfg.SessionRedisURL)
		if err != nil {
			return nil, err
		}
		a.closeFns = append(a.closeFns, func() { _ = rdb.Close() })
		return redisstore.New(rdb, cfg.SessionNamespace, time.Duration(cfg.SessionTTLSeconds)*time.Second), nil
	case "sqlite", "postgres":
		driver := sqlstore.DriverSQLite
		if cfg.SessionDriver == "postgres" {
			driver = sqlstore.DriverPostgres
		}
		db, err := sqlstore.OpenDB(driver, cfg.SessionDSN)
		if err != nil {
			return nil, err
		}
		a.closeFns = append(a.closeFns, func() { _ = db.Close() })
		repo := sqlstore.NewSessionRepository(db, driver, cfg.SessionNamespace)
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("ensure session schema: %w", err)
		}
		return repo, nil
	default:
		return filestore.Open(cfg.SessionPath)
	}
}

func openObjectStorage(ctx context.Context, cfg config.Config) (ports.ObjectStorage, error) {
	if cfg.StorageDriver != "minio" {
		return localfs.New(cfg.StoragePath)
	}
	store, err := miniostore.New(miniostore.Config{
		Endpoint:  cfg.MinIOEndpoint,
		AccessKey: cfg.MinIOAccessKey,
		SecretKey: cfg.MinIOSecretKey,
		Bucket:    cfg.MinIOBucket,
		UseSSL:    cfg.MinIOUseSSL,
		Prefix:    cfg.MinIOPrefix,
	})
	if err != nil {
		return nil, err
	}
	if err := store.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	if a.Poller != nil {
		a.Poller.Stop()
	}
	for i := len(a.closeFns) - 1; i >= 0; i-- {
		a.closeFns[i]()
	}
	a.closeFns = nil
}
