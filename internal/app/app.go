package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"MemberSync/internal/batch"
	"MemberSync/internal/config"
	"MemberSync/internal/infrastructure/discord"
	"MemberSync/internal/infrastructure/progress"
	"MemberSync/internal/infrastructure/scheduler"
	"MemberSync/internal/infrastructure/storage"
	"MemberSync/internal/logging"
	"MemberSync/internal/metrics"
	"MemberSync/internal/ports"
	"MemberSync/internal/rank"
	"MemberSync/internal/usecase"
)

// Adapters are the driven collaborators of the application. Sink and
// Publisher are optional.
type Adapters struct {
	Store     ports.MemberStore
	Directory ports.Directory
	Sink      ports.ProgressSink
	Publisher ports.ReportPublisher
	Scheduler ports.Scheduler
	Closers   []func() error
}

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	adapters  Adapters
	registry  *prometheus.Registry
	jobs      *usecase.Jobs
	members   *usecase.Members
	sweeper   *usecase.Sweeper
	jobsIndex *usecase.Registry
}

// New opens the SQL store and the Discord session described by cfg.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	store, err := storage.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}

	session, err := discord.NewSession(cfg.Discord.Token)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	adapters := Adapters{
		Store:     store,
		Directory: discord.NewDirectory(session, cfg.Discord.GuildID, baseLogger.With("component", "discord")),
		Scheduler: scheduler.NewIntervalScheduler(cfg.Scheduler.Interval, cfg.Scheduler.Location()),
		Closers:   []func() error{store.Close},
	}
	if cfg.Discord.ProgressChannelID != "" {
		reporter := discord.NewChannelReporter(session, cfg.Discord.ProgressChannelID)
		adapters.Sink = reporter
		adapters.Publisher = reporter
	} else {
		adapters.Sink = progress.NewLogSink(baseLogger.With("component", "progress"), slog.LevelInfo)
	}

	return NewWithAdapters(cfg, baseLogger, adapters)
}

// NewWithAdapters builds the application around already constructed adapters.
func NewWithAdapters(cfg config.Config, baseLogger *slog.Logger, adapters Adapters) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}
	if adapters.Store == nil || adapters.Directory == nil {
		return nil, errors.New("app: store and directory are required")
	}

	resolver, err := rank.NewResolver(cfg.Ranks, rank.DefaultOverrides(cfg.Roles.Overrides()))
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	deps := usecase.Deps{
		Store:     adapters.Store,
		Directory: adapters.Directory,
		Resolver:  resolver,
		Roles: usecase.StageRoles{
			PreInitiate:  cfg.Roles.PreInitiate,
			PostInitiate: cfg.Roles.PostInitiate,
			Senior:       cfg.Roles.Senior,
		},
		Runner:   batch.NewRunner(baseLogger.With("component", "batch"), m),
		Throttle: cfg.Batch.Throttle(),
		Logger:   baseLogger.With("component", "jobs"),
	}

	jobs := usecase.NewJobs(deps)
	sweeper := usecase.NewSweeper(adapters.Scheduler, jobs, adapters.Sink, adapters.Publisher, m,
		baseLogger.With("component", "sweeper"))

	return &Application{
		cfg:       cfg,
		logger:    baseLogger,
		adapters:  adapters,
		registry:  registry,
		jobs:      jobs,
		members:   usecase.NewMembers(deps),
		sweeper:   sweeper,
		jobsIndex: jobs.Registry(),
	}, nil
}

// Jobs lists the runnable batch jobs.
func (a *Application) Jobs() *usecase.Registry {
	return a.jobsIndex
}

// Members exposes the single-member workflows.
func (a *Application) Members() *usecase.Members {
	return a.members
}

// RunJob executes a registered job and publishes its report when a publisher is configured.
func (a *Application) RunJob(ctx context.Context, name, input string) (*batch.Report, error) {
	spec, err := a.jobsIndex.Resolve(name)
	if err != nil {
		return nil, err
	}

	report, err := spec.Run(ctx, input, a.adapters.Sink)
	if err != nil {
		return nil, err
	}

	if a.adapters.Publisher != nil {
		attachment, _ := report.Attachment()
		if err := a.adapters.Publisher.PublishReport(ctx, name, report.Summary(), report.Clean(), attachment); err != nil {
			a.logger.Warn("publish report", "job", name, "error", err)
		}
	}
	return report, nil
}

// Serve runs the recurring structure sweep and the metrics endpoint until ctx is done.
func (a *Application) Serve(ctx context.Context) error {
	if err := a.sweeper.Start(ctx); err != nil {
		return fmt.Errorf("start sweeper: %w", err)
	}
	a.logger.Info("structure sweep scheduled", "interval", a.cfg.Scheduler.Interval,
		"timezone", a.cfg.Scheduler.Location().String())

	var server *http.Server
	errCh := make(chan error, 1)
	if a.cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
		server = &http.Server{Addr: a.cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			a.logger.Info("metrics listening", "addr", a.cfg.Metrics.Addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()
	}

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
		serveErr = fmt.Errorf("metrics server: %w", serveErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if server != nil {
		if err := server.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("metrics shutdown", "error", err)
		}
	}
	if err := a.sweeper.Stop(shutdownCtx); err != nil {
		a.logger.Warn("sweeper shutdown", "error", err)
	}
	return serveErr
}

// Close releases the adapters opened by New.
func (a *Application) Close() error {
	var errs []error
	for _, closeFn := range a.adapters.Closers {
		errs = append(errs, closeFn())
	}
	return errors.Join(errs...)
}

// WriteReport stores the markdown rendering of report at path. Clean reports are not written.
func WriteReport(path string, report *batch.Report) (bool, error) {
	body, ok := report.Attachment()
	if !ok || path == "" {
		return false, nil
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return false, fmt.Errorf("write report: %w", err)
	}
	return true, nil
}
