// Package app wires the configured stores, AI transport and batch machinery
// shared by the daemon and the command line tools.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/joseph-ayodele/snapcheck/internal/auth"
	"github.com/joseph-ayodele/snapcheck/internal/batch"
	"github.com/joseph-ayodele/snapcheck/internal/blob"
	"github.com/joseph-ayodele/snapcheck/internal/common"
	"github.com/joseph-ayodele/snapcheck/internal/events"
	"github.com/joseph-ayodele/snapcheck/internal/export"
	"github.com/joseph-ayodele/snapcheck/internal/imaging"
	"github.com/joseph-ayodele/snapcheck/internal/llm"
	"github.com/joseph-ayodele/snapcheck/internal/llm/gemini"
	"github.com/joseph-ayodele/snapcheck/internal/llm/openai"
	repo "github.com/joseph-ayodele/snapcheck/internal/repository"
	"github.com/joseph-ayodele/snapcheck/internal/server"
)

// Repos groups the document store repositories.
type Repos struct {
	Classes     repo.ClassRepository
	Activities  repo.ActivityRepository
	Roster      repo.RosterRepository
	Submissions repo.SubmissionRepository
}

// App is a fully wired process. Close releases everything Build opened.
type App struct {
	Config   *common.Config
	DB       *repo.DB
	Repos    Repos
	Blobs    *blob.FSStore
	AI       *llm.Service
	Provider *auth.StaticProvider
	Registry *prometheus.Registry
	Metrics  *batch.Metrics
	Manager  *batch.Manager
	Exporter *export.Service
	Logger   *slog.Logger

	closers []func() error
}

// Options adjust Build for tools that do not need every component.
type Options struct {
	InMemory bool // private SQLite database, nothing persisted
	NoEvents bool // skip Redis even when configured
}

// Build opens the database, the blob store, the AI transport and the event
// publisher, then assembles the batch manager around them.
func Build(ctx context.Context, cfg *common.Config, logger *slog.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, Logger: logger}

	dbCfg := cfg.Database
	if opts.InMemory {
		dbCfg.Driver, dbCfg.DSN = "sqlite", ""
		logger.Info("using in-memory database")
	}
	db, err := server.ConnectDB(ctx, dbCfg, logger)
	if err != nil {
		return nil, err
	}
	a.DB = db
	a.closers = append(a.closers, func() error { db.Close(); return nil })

	a.Repos = Repos{
		Classes:     repo.NewClassRepository(db, logger),
		Activities:  repo.NewActivityRepository(db, logger),
		Roster:      repo.NewRosterRepository(db, logger),
		Submissions: repo.NewSubmissionRepository(db, logger),
	}

	if a.Blobs, err = blob.NewFSStore(cfg.Blob.Root, cfg.Blob.BaseURL, logger); err != nil {
		a.Close()
		return nil, fmt.Errorf("open blob store: %w", err)
	}

	transport, err := NewTransport(ctx, cfg.LLM, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	if c, ok := transport.(interface{ Close() error }); ok {
		a.closers = append(a.closers, c.Close)
	}
	a.AI = llm.NewService(transport, logger)

	var notifier batch.Notifier = batch.NopNotifier{}
	if cfg.Redis.URL != "" && !opts.NoEvents {
		pub, err := events.Dial(ctx, cfg.Redis.URL, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		notifier = pub
		a.closers = append(a.closers, pub.Close)
	}

	a.Registry = prometheus.NewRegistry()
	a.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.Metrics = batch.NewMetrics(a.Registry)

	compressor := imaging.NewCompressor(imaging.Config{
		HeicConverter: cfg.Imaging.HeicConverter,
		MaxDimension:  cfg.Imaging.MaxDimension,
		MaxBytes:      cfg.Imaging.MaxBytes,
	}, logger)

	pipeline := batch.NewPipeline(compressor, a.AI, a.AI, a.AI, logger,
		batch.WithNotifier(notifier),
		batch.WithMetrics(a.Metrics),
		batch.WithStepTimeout(cfg.Batch.StepTimeout),
	)
	committer := batch.NewCommitter(a.Blobs, a.Repos.Submissions, notifier, a.Metrics, logger)

	a.Provider = auth.NewStaticProvider(cfg.Auth.Tokens, logger)
	resolver := batch.NewSetupResolver(a.Repos.Classes, a.Repos.Activities, a.Repos.Roster, logger)
	a.Manager = batch.NewManager(resolver, a.Provider, batch.Deps{
		Pipeline:  pipeline,
		Committer: committer,
		Metrics:   a.Metrics,
		Logger:    logger,
		QueueSize: cfg.Batch.QueueSize,
	}, cfg.Batch.IdleExpiry)
	a.closers = append(a.closers, func() error { a.Manager.CloseAll(); return nil })

	a.Exporter = export.NewService(a.Repos.Activities, a.Repos.Submissions, logger)
	logger.Info("app.build.ok", "llm", transport.Name(), "db", db.Dialect(), "events", cfg.Redis.URL != "" && !opts.NoEvents)
	return a, nil
}

// NewTransport returns the configured LLM provider.
func NewTransport(ctx context.Context, cfg common.LLMConfig, logger *slog.Logger) (llm.Transport, error) {
	switch cfg.Provider {
	case "gemini":
		c, err := gemini.NewClient(ctx, gemini.Config{
			APIKey:      cfg.GeminiAPIKey,
			ModelName:   cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		return c, nil
	case "openai", "":
		return openai.NewClient(openai.Config{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}, logger), nil
	default:
		return nil, common.NewAppError("CONFIG_ERROR", "unknown llm provider "+cfg.Provider, common.ErrInvalidInput)
	}
}

// BatchService builds the gRPC service over the wired components.
func (a *App) BatchService() *server.BatchService {
	return server.NewBatchService(server.ServiceDeps{
		Manager:     a.Manager,
		Activities:  a.Repos.Activities,
		Submissions: a.Repos.Submissions,
		Exporter:    a.Exporter,
		Grader:      a.AI,
		Annotator:   a.AI,
		Logger:      a.Logger,
	})
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
