package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"ContentRefresher/internal/config"
	"ContentRefresher/internal/domain"
	"ContentRefresher/internal/infrastructure/ratelimit"
	"ContentRefresher/internal/infrastructure/scheduler"
	"ContentRefresher/internal/infrastructure/storage"
	"ContentRefresher/internal/infrastructure/telegram"
	"ContentRefresher/internal/infrastructure/webapi"
	"ContentRefresher/internal/logging"
	"ContentRefresher/internal/ports"
	"ContentRefresher/internal/quality"
	"ContentRefresher/internal/taxonomy"
	"ContentRefresher/internal/usecase"
)

const shutdownTimeout = 30 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	db        *sql.DB
	store     ports.ContentStore
	refresher *usecase.Refresher
}

// New opens the store and builds every adapter the refresh job needs.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	dialect, err := storage.DialectFor(cfg.Store.Driver)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfig, err)
	}
	dsn, err := cfg.Store.DSN()
	if err != nil {
		return nil, err
	}
	db, err := storage.Open(ctx, dialect, dsn)
	if err != nil {
		return nil, err
	}
	repo := storage.NewRepository(db, dialect)
	if err := repo.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	registry, err := taxonomy.NewRegistry(cfg.DomainTopics())
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", domain.ErrConfig, err)
	}

	timeout := cfg.APITimeout()
	search := webapi.NewSearchClient(webapi.Options{
		BaseURL: cfg.API.BaseURL,
		APIKey:  cfg.API.APIKey,
		Timeout: timeout,
		Limiter: ratelimit.New(cfg.RateLimits.Search),
		Logger:  baseLogger.With("component", "search"),
	})
	scrape := webapi.NewScrapeClient(webapi.Options{
		BaseURL: cfg.API.BaseURL,
		APIKey:  cfg.API.APIKey,
		Timeout: timeout,
		Limiter: ratelimit.New(cfg.RateLimits.Scrape),
		Logger:  baseLogger.With("component", "scrape"),
	}, cfg.API.ScrapeEngine)

	var notifier ports.Notifier
	if cfg.Notifications.Telegram.Enabled() {
		notifier = telegram.NewNotifier(cfg.Notifications.Telegram.BotToken, cfg.Notifications.Telegram.ChatID)
	}

	refresher := usecase.NewRefresher(usecase.RefresherDeps{
		Taxonomy:     registry,
		Search:       search,
		Scrape:       scrape,
		Store:        repo,
		Scorer:       quality.NewScorer(time.Now),
		ScopeLimiter: ratelimit.New(cfg.RateLimits.Scope),
		Notifier:     notifier,
		Logger:       baseLogger.With("component", "refresher"),
	}, usecase.RefreshOptions{
		AgeRanges:        cfg.DomainAgeRanges(),
		ScopeLimit:       cfg.Refresh.ScopeLimit,
		CandidateLimit:   cfg.Refresh.CandidateLimit,
		SearchLimit:      cfg.API.SearchLimit,
		Engine:           cfg.API.SearchEngine,
		Country:          cfg.API.Country,
		Language:         cfg.API.Language,
		MinContentLength: cfg.Refresh.MinContentLength,
		MinSnippetLength: cfg.Refresh.MinSnippetLength,
		Retention:        cfg.Store.Retention,
	})

	baseLogger.Info("application ready",
		"store", dialect.Driver,
		"topics", len(registry.Topics()),
		"test_mode", cfg.Refresh.TestMode,
		"api_timeout", timeout)

	return &Application{
		cfg:       cfg,
		logger:    baseLogger,
		db:        db,
		store:     repo,
		refresher: refresher,
	}, nil
}

// Refresh performs one full cycle: clean, run every scope, then the health check.
func (a *Application) Refresh(ctx context.Context) (usecase.RunSummary, error) {
	summary, err := a.refresher.Refresh(ctx)
	if err != nil {
		return summary, err
	}
	if a.cfg.Refresh.HealthCheck {
		if _, err := a.Health(ctx); err != nil {
			a.logger.Warn("health check failed", "error", err)
		}
	}
	return summary, nil
}

// Clean retires content older than the configured retention.
func (a *Application) Clean(ctx context.Context) (int, error) {
	return a.refresher.Clean(ctx)
}

// Purge hard-deletes retired rows created before now-olderThan.
func (a *Application) Purge(ctx context.Context, olderThan time.Duration) (int64, error) {
	filter := domain.ContentFilter{}
	if olderThan > 0 {
		filter.OlderThan = time.Now().Add(-olderThan)
	}
	n, err := a.store.DeleteWhere(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("purge retired content: %w", err)
	}
	a.logger.Info("purge done", "deleted", n, "older_than", olderThan)
	return n, nil
}

// Health counts active content.
func (a *Application) Health(ctx context.Context) (usecase.HealthReport, error) {
	return usecase.HealthCheck(ctx, a.store, a.logger.With("component", "health"))
}

// Serve refreshes once per scheduler interval until ctx is cancelled.
func (a *Application) Serve(ctx context.Context) error {
	driver := scheduler.NewIntervalScheduler(a.cfg.Scheduler.Interval)
	sched := usecase.NewScheduler(driver, a.refresher, a.logger.With("component", "scheduler"))
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("scheduler started",
		"interval", a.cfg.Scheduler.Interval,
		"timezone", a.cfg.Scheduler.Location().String())

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := sched.Stop(stopCtx); err != nil {
		return fmt.Errorf("stop scheduler: %w", err)
	}
	a.logger.Info("scheduler stopped")
	return nil
}

// Close releases the database handle.
func (a *Application) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}
