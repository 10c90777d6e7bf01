package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	postorchestration "crosspost/contexts/publishing/post-orchestration-service"
	postgresadapter "crosspost/contexts/publishing/post-orchestration-service/adapters/postgres"
	"crosspost/contexts/publishing/post-orchestration-service/adapters/websites"
	"crosspost/contexts/publishing/post-orchestration-service/ports"
	"crosspost/internal/platform/config"
	"crosspost/internal/platform/db"
	"crosspost/internal/platform/httpserver"
	"crosspost/internal/platform/messaging"

	"golang.org/x/sync/errgroup"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

const shutdownTimeout = 30 * time.Second

// Runtime is the wired post orchestration module over a real database.
type Runtime struct {
	Config   config.Config
	Database *db.Database
	Module   postorchestration.Module
	Bus      *messaging.Kafka
	Logger   *slog.Logger
}

type APIApp struct {
	runtime *Runtime
	server  *httpserver.Server
	engine  Engine
	logger  *slog.Logger
}

type WorkerApp struct {
	runtime *Runtime
	engine  Engine
	logger  *slog.Logger
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")
	runtime, err := OpenRuntime(cfg, logger)
	if err != nil {
		return nil, err
	}
	return &APIApp{
		runtime: runtime,
		server:  httpserver.New(runtime.Module, logger, normalizeAddr(cfg.HTTPPort)),
		engine:  NewEngine(runtime.Module, cfg, logger),
		logger:  logger,
	}, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	runtime, err := OpenRuntime(cfg, logger)
	if err != nil {
		return nil, err
	}
	return &WorkerApp{
		runtime: runtime,
		engine:  NewEngine(runtime.Module, cfg, logger),
		logger:  logger,
	}, nil
}

// OpenRuntime connects the configured database and wires the module against it.
func OpenRuntime(cfg config.Config, logger *slog.Logger) (*Runtime, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(cfg.DSN()) == "" {
		if cfg.DBDriver == config.DriverSQLite {
			return nil, errors.New("SQLITE_PATH is required")
		}
		return nil, errors.New("POSTGRES_DSN is required")
	}

	database, err := db.Connect(cfg.DBDriver, cfg.DSN())
	if err != nil {
		return nil, err
	}
	if cfg.AutoMigrate {
		if err := postgresadapter.Migrate(context.Background(), database.DB); err != nil {
			_ = database.Close()
			return nil, err
		}
	}

	bus, err := messaging.NewKafka(cfg.KafkaBrokers, logger)
	if err != nil {
		_ = database.Close()
		return nil, err
	}

	var sites []ports.Website
	if cfg.EnableSimulatedWebsites {
		sites = simulatedWebsites()
	}

	repo := postgresadapter.NewRepository(database.DB, logger)
	module := postorchestration.NewModule(postorchestration.Dependencies{
		Records:     repo,
		Ledger:      repo,
		QueueRepo:   repo,
		Submissions: repo,
		Accounts:    repo,
		Websites:    websites.NewRegistry(logger, sites...),
		Resizer:     websites.DimensionResizer{},
		Publisher:   bus,
		Subscriber:  bus,
		Clock:       postgresadapter.SystemClock{},
		IDGen:       postgresadapter.UUIDGenerator{},
		Logger:      logger,
		StartPaused: cfg.QueueStartPaused,
	})

	return &Runtime{
		Config:   cfg,
		Database: database,
		Module:   module,
		Bus:      bus,
		Logger:   logger,
	}, nil
}

// Migrate applies the post orchestration schema.
func (r *Runtime) Migrate(ctx context.Context) error {
	return postgresadapter.Migrate(ctx, r.Database.DB)
}

// Recover re-admits attempts left RUNNING and ticks the queue until it drains.
func (r *Runtime) Recover(ctx context.Context) (int, error) {
	recovered, err := r.Module.Recovery.RunOnce(ctx)
	if err != nil {
		return recovered, err
	}
	return recovered, NewEngine(r.Module, r.Config, r.Logger).Drain(ctx)
}

func (r *Runtime) Close() error {
	if r == nil {
		return nil
	}
	return r.Database.Close()
}

// Run serves HTTP and drives the post queue until ctx is done.
func (a *APIApp) Run(ctx context.Context) error {
	a.logger.Info("api app started",
		"event", "bootstrap_api_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(a.server.Start)
	group.Go(func() error {
		return a.engine.Run(groupCtx)
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(groupCtx), shutdownTimeout)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})
	return group.Wait()
}

func (a *APIApp) Close() error {
	return a.runtime.Close()
}

func (w *WorkerApp) Run(ctx context.Context) error {
	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
	)
	return w.engine.Run(ctx)
}

func (w *WorkerApp) Close() error {
	return w.runtime.Close()
}

func simulatedWebsites() []ports.Website {
	return []ports.Website{
		websites.NewSimulated("gallery", websites.SimulatedOptions{
			Files:        true,
			BatchSize:    4,
			MaxDimension: 4096,
		}),
		websites.NewSimulated("microblog", websites.SimulatedOptions{
			Files:    true,
			Messages: true,
		}),
		websites.NewSimulated("journal", websites.SimulatedOptions{
			Messages: true,
		}),
	}
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}

func wrapStop(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("stop posting registry: %w", err)
}
