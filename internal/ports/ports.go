package ports

import (
	"context"
	"time"

	"ContentRefresher/internal/domain"
)

// SearchClient issues keyword searches; failures surface as an empty result.
type SearchClient interface {
	Search(ctx context.Context, q domain.SearchQuery) []domain.SearchHit
}

// ScrapeClient fetches the full content of one URL; ok is false on any failure.
type ScrapeClient interface {
	Scrape(ctx context.Context, url string) (domain.ScrapedPage, bool)
}

// ContentStore persists content rows and the refresh audit trail.
type ContentStore interface {
	ListActiveURLs(ctx context.Context, topic, ageRange string) (map[string]struct{}, error)
	InsertMany(ctx context.Context, items []domain.ContentItem) (int64, error)
	RetireWhere(ctx context.Context, filter domain.ContentFilter) (int64, error)
	DeleteWhere(ctx context.Context, filter domain.ContentFilter) (int64, error)
	AppendRefreshLog(ctx context.Context, entry domain.RefreshLogEntry) error
	NextRefreshCycle(ctx context.Context) (int, error)
	CountActive(ctx context.Context) (int64, error)
}

// Limiter blocks until the next call to a rate-limited resource is allowed.
type Limiter interface {
	Wait(ctx context.Context) error
}

// Notifier streams run summaries to Telegram or other channels.
type Notifier interface {
	PublishSummary(ctx context.Context, summary string) error
}

// Scheduler controls when refresh runs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
