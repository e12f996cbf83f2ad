package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"ContentRefresher/internal/domain"
	"ContentRefresher/internal/extract"
	"ContentRefresher/internal/ports"
	"ContentRefresher/internal/quality"
	"ContentRefresher/internal/taxonomy"
)

const (
	defaultMinContentLength = 100
	defaultMinSnippetLength = 50
)

// RefreshOptions parameterises a run. The test preset and the full run are
// the same code with different limits.
type RefreshOptions struct {
	AgeRanges        []domain.AgeRange
	ScopeLimit       int
	CandidateLimit   int
	SearchLimit      int
	Engine           string
	Country          string
	Language         string
	MinContentLength int
	MinSnippetLength int
	Retention        time.Duration
}

// RefresherDeps wires all driven adapters into the refresh orchestrator.
type RefresherDeps struct {
	Taxonomy     *taxonomy.Registry
	Search       ports.SearchClient
	Scrape       ports.ScrapeClient
	Store        ports.ContentStore
	Scorer       *quality.Scorer
	ScopeLimiter ports.Limiter
	Notifier     ports.Notifier
	Logger       *slog.Logger
	Now          func() time.Time
	NewRunID     func() string
}

// Refresher drives Search → Scrape → Score → Dedup → Store over every scope.
type Refresher struct {
	taxonomy     *taxonomy.Registry
	search       ports.SearchClient
	scrape       ports.ScrapeClient
	store        ports.ContentStore
	scorer       *quality.Scorer
	scopeLimiter ports.Limiter
	notifier     ports.Notifier
	logger       *slog.Logger
	now          func() time.Time
	newRunID     func() string
	opts         RefreshOptions
}

// NewRefresher constructs the orchestrator.
func NewRefresher(deps RefresherDeps, opts RefreshOptions) *Refresher {
	if opts.MinContentLength <= 0 {
		opts.MinContentLength = defaultMinContentLength
	}
	if opts.MinSnippetLength <= 0 {
		opts.MinSnippetLength = defaultMinSnippetLength
	}

	r := &Refresher{
		taxonomy:     deps.Taxonomy,
		search:       deps.Search,
		scrape:       deps.Scrape,
		store:        deps.Store,
		scorer:       deps.Scorer,
		scopeLimiter: deps.ScopeLimiter,
		notifier:     deps.Notifier,
		logger:       deps.Logger,
		now:          deps.Now,
		newRunID:     deps.NewRunID,
		opts:         opts,
	}
	if r.logger == nil {
		r.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.newRunID == nil {
		r.newRunID = uuid.NewString
	}
	if r.scorer == nil {
		r.scorer = quality.NewScorer(r.now)
	}
	return r
}

// RunSummary aggregates the outcome of one run.
type RunSummary struct {
	RunID           string
	RefreshCycle    int
	Scopes          int
	Succeeded       int
	Partial         int
	Failed          int
	ArticlesAdded   int
	ArticlesRemoved int
	Duration        time.Duration
}

// Status folds the scope counters into the status of the terminal log row.
func (s RunSummary) Status() domain.RefreshStatus {
	switch {
	case s.Failed == 0 && s.Partial == 0:
		return domain.StatusSuccess
	case s.Failed == s.Scopes && s.Scopes > 0:
		return domain.StatusFailed
	default:
		return domain.StatusPartial
	}
}

// String renders the console run summary.
func (s RunSummary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Content refresh cycle %d complete (run %s)\n", s.RefreshCycle, s.RunID)
	fmt.Fprintf(&b, "  scopes:     %d\n", s.Scopes)
	fmt.Fprintf(&b, "  successful: %d\n", s.Succeeded+s.Partial)
	fmt.Fprintf(&b, "  partial:    %d\n", s.Partial)
	fmt.Fprintf(&b, "  failed:     %d\n", s.Failed)
	fmt.Fprintf(&b, "  added:      %d\n", s.ArticlesAdded)
	fmt.Fprintf(&b, "  retired:    %d\n", s.ArticlesRemoved)
	fmt.Fprintf(&b, "  duration:   %s\n", s.Duration.Round(time.Second))
	return b.String()
}

// Refresh cleans stale content and then runs every scope.
func (r *Refresher) Refresh(ctx context.Context) (RunSummary, error) {
	removed, err := r.Clean(ctx)
	if err != nil {
		return RunSummary{}, err
	}
	return r.run(ctx, removed)
}

// Run processes every scope without a cleaning step.
func (r *Refresher) Run(ctx context.Context) (RunSummary, error) {
	return r.run(ctx, 0)
}

// Clean retires active content older than the retention window.
func (r *Refresher) Clean(ctx context.Context) (int, error) {
	if r.opts.Retention <= 0 {
		r.logger.Info("cleanup skipped", "reason", "no retention configured")
		return 0, nil
	}

	cutoff := r.now().Add(-r.opts.Retention)
	n, err := r.store.RetireWhere(ctx, domain.ContentFilter{OlderThan: cutoff})
	if err != nil {
		return 0, fmt.Errorf("cleanup stale content: %w", err)
	}
	r.logger.Info("cleanup done", "retired", n, "older_than", cutoff.Format(time.RFC3339))
	return int(n), nil
}

func (r *Refresher) run(ctx context.Context, removed int) (RunSummary, error) {
	start := r.now()
	summary := RunSummary{RunID: r.newRunID(), ArticlesRemoved: removed}

	cycle, err := r.store.NextRefreshCycle(ctx)
	if err != nil {
		return summary, fmt.Errorf("read refresh cycle: %w", err)
	}
	summary.RefreshCycle = cycle

	logger := r.logger.With("run_id", summary.RunID, "refresh_cycle", cycle)
	scopes := r.taxonomy.Scopes(r.opts.AgeRanges, r.opts.ScopeLimit)
	summary.Scopes = len(scopes)
	logger.Info("refresh started", "scopes", len(scopes), "candidate_limit", r.opts.CandidateLimit)

	state := &runState{first: true}
	for i, scope := range scopes {
		if err := ctx.Err(); err != nil {
			return summary, fmt.Errorf("refresh interrupted: %w", err)
		}

		scopeLogger := logger.With("topic", scope.Topic.Key, "age_range", scope.AgeKey())
		scopeLogger.Info("scope started", "index", i+1, "of", len(scopes))

		res := r.runScope(ctx, scope, cycle, state, scopeLogger)

		entry := domain.RefreshLogEntry{
			Topic:         scope.Topic.Key,
			AgeRange:      scope.AgeKey(),
			ArticlesAdded: res.added,
			Status:        res.status,
			RefreshCycle:  cycle,
			RefreshDate:   r.now(),
		}
		if res.err != nil {
			entry.ErrorMessage = res.err.Error()
		}
		if err := r.store.AppendRefreshLog(ctx, entry); err != nil {
			scopeLogger.Warn("append refresh log failed", "error", err)
		}

		summary.ArticlesAdded += res.added
		switch res.status {
		case domain.StatusFailed:
			summary.Failed++
			scopeLogger.Error("scope failed", "error", res.err)
		case domain.StatusPartial:
			summary.Partial++
			scopeLogger.Info("scope done", "status", res.status, "added", res.added, "degraded", res.degraded)
		default:
			summary.Succeeded++
			scopeLogger.Info("scope done", "status", res.status, "added", res.added)
		}
	}

	summary.Duration = r.now().Sub(start)

	complete := domain.RefreshLogEntry{
		Topic:           domain.SystemComplete,
		AgeRange:        domain.AllAges,
		ArticlesAdded:   summary.ArticlesAdded,
		ArticlesRemoved: summary.ArticlesRemoved,
		Status:          summary.Status(),
		ErrorMessage: fmt.Sprintf("scopes=%d successful=%d failed=%d",
			summary.Scopes, summary.Succeeded+summary.Partial, summary.Failed),
		RefreshCycle: cycle,
		RefreshDate:  r.now(),
	}
	if err := r.store.AppendRefreshLog(ctx, complete); err != nil {
		logger.Warn("append completion log failed", "error", err)
	}

	logger.Info("refresh complete",
		"added", summary.ArticlesAdded,
		"retired", summary.ArticlesRemoved,
		"successful", summary.Succeeded+summary.Partial,
		"failed", summary.Failed,
		"duration", summary.Duration.Round(time.Millisecond))

	if r.notifier != nil {
		if err := r.notifier.PublishSummary(ctx, summary.String()); err != nil {
			logger.Warn("publish summary failed", "error", err)
		}
	}

	return summary, nil
}

// runState is shared across scopes of one run.
type runState struct {
	first bool
}

type scopeResult struct {
	added    int
	degraded int
	status   domain.RefreshStatus
	err      error
}

// runScope isolates a scope: errors and panics become a failed result.
func (r *Refresher) runScope(ctx context.Context, scope domain.Scope, cycle int, state *runState, logger *slog.Logger) (res scopeResult) {
	defer func() {
		if rec := recover(); rec != nil {
			res = scopeResult{status: domain.StatusFailed, err: fmt.Errorf("unexpected panic: %v", rec)}
		}
	}()

	added, degraded, err := r.processScope(ctx, scope, cycle, state, logger)
	if err != nil {
		return scopeResult{added: added, degraded: degraded, status: domain.StatusFailed, err: err}
	}
	status := domain.StatusSuccess
	if degraded > 0 {
		status = domain.StatusPartial
	}
	return scopeResult{added: added, degraded: degraded, status: status}
}

func (r *Refresher) processScope(ctx context.Context, scope domain.Scope, cycle int, state *runState, logger *slog.Logger) (int, int, error) {
	existing, err := r.store.ListActiveURLs(ctx, scope.Topic.Key, scope.AgeKey())
	if err != nil {
		return 0, 0, fmt.Errorf("load existing urls: %w", err)
	}
	dedup := NewDeduplicator(existing)

	var (
		items      []domain.ContentItem
		candidates int
		degraded   int
		skipped    int
	)

queries:
	for _, query := range taxonomy.Queries(scope) {
		if !state.first && r.scopeLimiter != nil {
			if err := r.scopeLimiter.Wait(ctx); err != nil {
				return 0, degraded, fmt.Errorf("wait between queries: %w", err)
			}
		}
		state.first = false

		hits := r.search.Search(ctx, domain.SearchQuery{
			Query:    query,
			Engine:   r.opts.Engine,
			Limit:    r.opts.SearchLimit,
			Country:  r.opts.Country,
			Language: r.opts.Language,
		})
		logger.Debug("search results", "query", query, "hits", len(hits))

		for _, hit := range hits {
			if r.opts.CandidateLimit > 0 && candidates >= r.opts.CandidateLimit {
				break queries
			}
			if dedup.Seen(hit.URL) {
				skipped++
				continue
			}
			dedup.Mark(hit.URL)
			candidates++

			item, ok, fellBack := r.buildItem(ctx, scope, hit, cycle)
			if fellBack {
				degraded++
			}
			if ok {
				items = append(items, item)
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return 0, degraded, err
	}

	logger.Debug("scope candidates processed",
		"candidates", candidates, "duplicates", skipped, "accepted", len(items), "degraded", degraded)

	if len(items) == 0 {
		return 0, degraded, nil
	}

	n, err := r.store.InsertMany(ctx, items)
	if err != nil {
		return 0, degraded, fmt.Errorf("store %d articles: %w", len(items), err)
	}
	return int(n), degraded, nil
}

// buildItem scrapes and scores one candidate. fellBack is true when the full
// scrape was unusable, whether or not the snippet produced an item.
func (r *Refresher) buildItem(ctx context.Context, scope domain.Scope, hit domain.SearchHit, cycle int) (item domain.ContentItem, ok bool, fellBack bool) {
	trusted := scope.Topic.TrustedSources
	domainName := extract.Domain(hit.URL)

	base := domain.ContentItem{
		Topic:        scope.Topic.Key,
		AgeRange:     scope.AgeKey(),
		URL:          hit.URL,
		SourceDomain: domainName,
		Tags:         tags(scope, domainName),
		RefreshCycle: cycle,
		IsActive:     true,
	}

	page, scraped := r.scrape.Scrape(ctx, hit.URL)
	if scraped && utf8.RuneCountInString(strings.TrimSpace(page.Content)) > r.opts.MinContentLength {
		text := extract.PlainText(page.Content)
		published := page.PublishedDate
		if published.IsZero() {
			published = hit.PublishedDate
		}
		title := firstNonEmpty(page.Title, hit.Title)

		score := r.scorer.Score(quality.Article{
			URL:           hit.URL,
			Title:         title,
			Text:          text,
			Markup:        page.Content,
			PublishedDate: published,
		}, trusted)
		if !quality.Accept(score) {
			return domain.ContentItem{}, false, false
		}

		base.Title = title
		base.ContentSummary = extract.Summary(page.Content)
		base.PublicationDate = published
		base.ImageURL = extract.Image(page.Content)
		base.ReadingTime = extract.ReadingTime(extract.WordCount(text))
		base.Author = page.Author
		base.QualityScore = score
		return base, true, false
	}

	snippet := strings.TrimSpace(hit.Description)
	if utf8.RuneCountInString(snippet) <= r.opts.MinSnippetLength {
		return domain.ContentItem{}, false, true
	}

	score := r.scorer.ScoreFallback(hit.URL, trusted)
	if !quality.Accept(score) {
		return domain.ContentItem{}, false, true
	}

	base.Title = hit.Title
	base.ContentSummary = extract.Summary(snippet)
	base.PublicationDate = hit.PublishedDate
	base.ReadingTime = extract.ReadingTime(extract.WordCount(snippet))
	base.QualityScore = score
	return base, true, true
}

func tags(scope domain.Scope, sourceDomain string) []string {
	out := []string{scope.Topic.Key}
	if scope.AgeRange != "" {
		out = append(out, string(scope.AgeRange))
	}
	if sourceDomain != "" {
		out = append(out, sourceDomain)
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
