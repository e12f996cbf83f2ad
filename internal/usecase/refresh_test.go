package usecase

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ContentRefresher/internal/domain"
	"ContentRefresher/internal/infrastructure/ratelimit"
	"ContentRefresher/internal/taxonomy"
)

const (
	trustedURL   = "https://www.cdc.gov/sleep/infants"
	untrustedURL = "https://parenting-blog.example/sleep"
)

var longBody = strings.Repeat("Put the baby to sleep on their back every night. ", 20)

var longSnippet = "Guidance from pediatricians on safe sleep routines for infants and toddlers."

type harness struct {
	store    *fakeStore
	search   *fakeSearch
	scrape   *fakeScrape
	limiter  *countingLimiter
	notifier *recordingNotifier
}

func newHarness() *harness {
	return &harness{
		store:    newFakeStore(),
		search:   &fakeSearch{hits: make(map[string][]domain.SearchHit)},
		scrape:   &fakeScrape{pages: make(map[string]domain.ScrapedPage)},
		limiter:  &countingLimiter{},
		notifier: &recordingNotifier{},
	}
}

func (h *harness) refresher(t *testing.T, opts RefreshOptions) *Refresher {
	t.Helper()

	reg, err := taxonomy.NewRegistry([]domain.Topic{{
		Key:            "sleep_patterns",
		Label:          "Sleep Patterns",
		Queries:        []string{"baby sleep {age}"},
		TrustedSources: []string{"cdc.gov"},
	}})
	require.NoError(t, err)

	return NewRefresher(RefresherDeps{
		Taxonomy:     reg,
		Search:       h.search,
		Scrape:       h.scrape,
		Store:        h.store,
		ScopeLimiter: h.limiter,
		Notifier:     h.notifier,
		Now:          fixedClock,
		NewRunID:     func() string { return "run-1" },
	}, opts)
}

func hit(url, title, snippet string) domain.SearchHit {
	return domain.SearchHit{Title: title, URL: url, Description: snippet}
}

func TestRunWithNoResultsSucceeds(t *testing.T) {
	t.Parallel()

	h := newHarness()
	summary, err := h.refresher(t, RefreshOptions{}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.RefreshCycle)
	assert.Equal(t, 1, summary.Scopes)
	assert.Zero(t, summary.ArticlesAdded)
	assert.Equal(t, domain.StatusSuccess, summary.Status())

	require.Len(t, h.store.logs, 2)
	assert.Equal(t, domain.StatusSuccess, h.store.logs[0].Status)
	assert.Equal(t, domain.AllAges, h.store.logs[0].AgeRange)

	complete := h.store.logs[1]
	assert.Equal(t, domain.SystemComplete, complete.Topic)
	assert.Equal(t, domain.AllAges, complete.AgeRange)
	assert.Equal(t, "scopes=1 successful=1 failed=0", complete.ErrorMessage)
	assert.Equal(t, 1, complete.RefreshCycle)
}

func TestRunStoresScoredArticle(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.search.hits["baby sleep"] = []domain.SearchHit{hit(trustedURL, "Safe sleep", longSnippet)}
	h.scrape.pages[trustedURL] = domain.ScrapedPage{
		URL:           trustedURL,
		Title:         "Safe Sleep for Babies",
		Content:       longBody,
		Author:        "CDC",
		PublishedDate: fixedClock().AddDate(0, -2, 0),
	}

	summary, err := h.refresher(t, RefreshOptions{}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.ArticlesAdded)
	assert.Equal(t, domain.StatusSuccess, summary.Status())

	require.Len(t, h.store.items, 1)
	item := h.store.items[0]
	assert.Equal(t, "sleep_patterns", item.Topic)
	assert.Equal(t, domain.AllAges, item.AgeRange)
	assert.Equal(t, "Safe Sleep for Babies", item.Title)
	assert.Equal(t, "cdc.gov", item.SourceDomain)
	assert.Equal(t, "CDC", item.Author)
	assert.InDelta(t, 0.9, item.QualityScore, 1e-9)
	assert.Equal(t, 1, item.RefreshCycle)
	assert.True(t, item.IsActive)
	assert.GreaterOrEqual(t, item.ReadingTime, 1)
	assert.NotEmpty(t, item.ContentSummary)
	assert.Equal(t, []string{"sleep_patterns", "cdc.gov"}, item.Tags)

	assert.Equal(t, 1, h.store.logs[0].ArticlesAdded)
	require.Len(t, h.notifier.summaries, 1)
	assert.Contains(t, h.notifier.summaries[0], "added:      1")
}

func TestRunIsIdempotentForKnownURLs(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.search.hits["baby sleep"] = []domain.SearchHit{hit(trustedURL, "Safe sleep", longSnippet)}
	h.scrape.pages[trustedURL] = domain.ScrapedPage{Title: "Safe sleep", Content: longBody}
	r := h.refresher(t, RefreshOptions{})

	first, err := r.Run(context.Background())
	require.NoError(t, err)
	second, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, first.ArticlesAdded)
	assert.Zero(t, second.ArticlesAdded)
	assert.Equal(t, 2, second.RefreshCycle)
	assert.Len(t, h.scrape.calls, 1, "known URL is not scraped again")
	assert.Len(t, h.store.items, 1)
}

func TestRunDeduplicatesWithinScope(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.store.active[scopeKey("sleep_patterns", domain.AllAges)] = map[string]struct{}{"https://known.example/a": {}}
	h.search.hits["baby sleep"] = []domain.SearchHit{
		hit(trustedURL, "One", longSnippet),
		hit(trustedURL+"/", "One again", longSnippet),
		hit("https://KNOWN.example/a#top", "Known", longSnippet),
	}
	h.scrape.pages[trustedURL] = domain.ScrapedPage{Title: "One", Content: longBody}

	summary, err := h.refresher(t, RefreshOptions{}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.ArticlesAdded)
	assert.Equal(t, []string{trustedURL}, h.scrape.calls)
}

func TestScrapeFailureFallsBackToSnippet(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.search.hits["baby sleep"] = []domain.SearchHit{
		hit(trustedURL, "Trusted", longSnippet),
		hit(untrustedURL, "Untrusted", longSnippet),
	}

	summary, err := h.refresher(t, RefreshOptions{}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.ArticlesAdded)
	assert.Equal(t, 1, summary.Partial)
	assert.Equal(t, domain.StatusPartial, summary.Status())
	assert.Equal(t, domain.StatusPartial, h.store.logs[0].Status)

	scores := map[string]float64{}
	for _, it := range h.store.items {
		scores[it.URL] = it.QualityScore
		assert.Equal(t, longSnippet, it.ContentSummary)
	}
	assert.InDelta(t, 0.6, scores[trustedURL], 1e-9)
	assert.InDelta(t, 0.5, scores[untrustedURL], 1e-9)
}

func TestThinContentAndSnippetAreSkipped(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.search.hits["baby sleep"] = []domain.SearchHit{hit(trustedURL, "Thin", "too short")}
	h.scrape.pages[trustedURL] = domain.ScrapedPage{Content: "tiny page"}

	summary, err := h.refresher(t, RefreshOptions{}).Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.ArticlesAdded)
	assert.Empty(t, h.store.items)
	assert.Equal(t, domain.StatusPartial, h.store.logs[0].Status)
}

func TestLowScoringArticleIsDropped(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.search.hits["baby sleep"] = []domain.SearchHit{hit(untrustedURL, "x", longSnippet)}
	h.scrape.pages[untrustedURL] = domain.ScrapedPage{Title: "SHOCKING sleep trick!", Content: longBody}

	summary, err := h.refresher(t, RefreshOptions{}).Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.ArticlesAdded)
	assert.Equal(t, domain.StatusSuccess, summary.Status())
}

func TestStorageFailureFailsScopeButRunContinues(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.store.insertErr = errStoreDown
	for _, age := range []string{"0-1 months", "1-3 months"} {
		h.search.hits["baby sleep "+age] = []domain.SearchHit{hit(trustedURL, "Sleep", longSnippet)}
	}
	h.scrape.pages[trustedURL] = domain.ScrapedPage{Title: "Sleep", Content: longBody}

	summary, err := h.refresher(t, RefreshOptions{
		AgeRanges: []domain.AgeRange{"0-1_months", "1-3_months"},
	}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Failed)
	assert.Equal(t, domain.StatusFailed, summary.Status())
	logs := h.store.scopeLogs()
	require.Len(t, logs, 2)
	for _, entry := range logs {
		assert.Equal(t, domain.StatusFailed, entry.Status)
		assert.Contains(t, entry.ErrorMessage, "store down")
	}
	assert.Equal(t, domain.StatusFailed, h.store.logs[2].Status)
	assert.Equal(t, "scopes=2 successful=0 failed=2", h.store.logs[2].ErrorMessage)
}

func TestDedupSeedFailureFailsScope(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.store.listErr = errStoreDown

	summary, err := h.refresher(t, RefreshOptions{}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Empty(t, h.search.queries)
}

func TestPanicInScopeIsRecovered(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.search.panicQuery = "baby sleep 0-1 months"
	h.search.hits["baby sleep 1-3 months"] = []domain.SearchHit{hit(trustedURL, "Sleep", longSnippet)}
	h.scrape.pages[trustedURL] = domain.ScrapedPage{Title: "Sleep", Content: longBody}

	summary, err := h.refresher(t, RefreshOptions{
		AgeRanges: []domain.AgeRange{"0-1_months", "1-3_months"},
	}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 1, summary.ArticlesAdded)

	logs := h.store.scopeLogs()
	require.Len(t, logs, 2)
	assert.Equal(t, domain.StatusFailed, logs[0].Status)
	assert.Contains(t, logs[0].ErrorMessage, "search exploded")
	assert.Equal(t, domain.StatusSuccess, logs[1].Status)
	assert.Equal(t, domain.StatusPartial, h.store.logs[2].Status)
}

func TestRefreshCycleErrorIsFatal(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.store.cycleErr = errStoreDown

	_, err := h.refresher(t, RefreshOptions{}).Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errStoreDown)
	assert.Empty(t, h.store.logs)
	assert.Empty(t, h.search.queries)
}

func TestLogAppendFailureDoesNotAbortRun(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.store.logErr = errStoreDown

	summary, err := h.refresher(t, RefreshOptions{}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)
}

func TestCandidateAndScopeLimits(t *testing.T) {
	t.Parallel()

	h := newHarness()
	var hits []domain.SearchHit
	for i := range 10 {
		url := fmt.Sprintf("https://www.cdc.gov/sleep/%d", i)
		hits = append(hits, hit(url, "Sleep", longSnippet))
		h.scrape.pages[url] = domain.ScrapedPage{Title: "Sleep", Content: longBody}
	}
	h.search.hits["baby sleep 0-1 months"] = hits

	summary, err := h.refresher(t, RefreshOptions{
		AgeRanges:      []domain.AgeRange{"0-1_months", "1-3_months", "3-6_months"},
		ScopeLimit:     1,
		CandidateLimit: 5,
	}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Scopes)
	assert.Equal(t, 5, summary.ArticlesAdded)
	assert.Len(t, h.scrape.calls, 5)
	require.Len(t, h.search.queries, 1)
}

func TestSearchQueryCarriesOptions(t *testing.T) {
	t.Parallel()

	h := newHarness()
	_, err := h.refresher(t, RefreshOptions{
		AgeRanges:   []domain.AgeRange{"0-1_months"},
		SearchLimit: 7,
		Engine:      "google",
		Country:     "us",
		Language:    "en",
	}).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, h.search.queries, 1)
	assert.Equal(t, domain.SearchQuery{
		Query: "baby sleep 0-1 months", Engine: "google", Limit: 7, Country: "us", Language: "en",
	}, h.search.queries[0])
}

func TestScopeLimiterSpacesQueries(t *testing.T) {
	t.Parallel()

	h := newHarness()
	_, err := h.refresher(t, RefreshOptions{
		AgeRanges: []domain.AgeRange{"0-1_months", "1-3_months", "3-6_months"},
	}).Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, h.search.queries, 3)
	assert.Equal(t, 2, h.limiter.waits, "the first query of a run does not wait")
}

func TestCancelledRunStops(t *testing.T) {
	t.Parallel()

	h := newHarness()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.refresher(t, RefreshOptions{}).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, h.search.queries)
}

func TestCleanRetiresByRetention(t *testing.T) {
	t.Parallel()

	h := newHarness()
	n, err := h.refresher(t, RefreshOptions{Retention: 48 * time.Hour}).Clean(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	require.Len(t, h.store.retired, 1)
	assert.Equal(t, fixedClock().Add(-48*time.Hour), h.store.retired[0].OlderThan)
	assert.Empty(t, h.store.retired[0].Topic)

	h2 := newHarness()
	_, err = h2.refresher(t, RefreshOptions{}).Clean(context.Background())
	require.NoError(t, err)
	assert.Empty(t, h2.store.retired, "no retention configured")
}

func TestRefreshCleansBeforeRunning(t *testing.T) {
	t.Parallel()

	h := newHarness()
	summary, err := h.refresher(t, RefreshOptions{Retention: time.Hour}).Refresh(context.Background())
	require.NoError(t, err)
	assert.Len(t, h.store.retired, 1)
	assert.Equal(t, 1, summary.RefreshCycle)
}

func TestRunWithUnlimitedScopeLimiter(t *testing.T) {
	t.Parallel()

	reg, err := taxonomy.NewRegistry([]domain.Topic{{Key: "play_learning", Queries: []string{"baby games {age}"}}})
	require.NoError(t, err)
	store := newFakeStore()

	r := NewRefresher(RefresherDeps{
		Taxonomy:     reg,
		Search:       &fakeSearch{},
		Scrape:       &fakeScrape{},
		Store:        store,
		ScopeLimiter: ratelimit.Unlimited,
	}, RefreshOptions{AgeRanges: []domain.AgeRange{"0-1_months", "1-3_months"}})

	summary, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Succeeded)
	assert.NotEmpty(t, summary.RunID)
}

func TestRunSummaryStatus(t *testing.T) {
	t.Parallel()

	assert.Equal(t, domain.StatusSuccess, RunSummary{Scopes: 2, Succeeded: 2}.Status())
	assert.Equal(t, domain.StatusPartial, RunSummary{Scopes: 2, Succeeded: 1, Partial: 1}.Status())
	assert.Equal(t, domain.StatusPartial, RunSummary{Scopes: 2, Succeeded: 1, Failed: 1}.Status())
	assert.Equal(t, domain.StatusFailed, RunSummary{Scopes: 2, Failed: 2}.Status())
	assert.Equal(t, domain.StatusSuccess, RunSummary{}.Status())
}
