package usecase

import (
	"context"
	"errors"
	"time"

	"ContentRefresher/internal/domain"
)

var errStoreDown = errors.New("store down")

type fakeStore struct {
	active    map[string]map[string]struct{}
	items     []domain.ContentItem
	logs      []domain.RefreshLogEntry
	retired   []domain.ContentFilter
	cycle     int
	cycleErr  error
	listErr   error
	insertErr error
	logErr    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{active: make(map[string]map[string]struct{})}
}

func scopeKey(topic, ageRange string) string { return topic + "|" + ageRange }

func (s *fakeStore) ListActiveURLs(_ context.Context, topic, ageRange string) (map[string]struct{}, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make(map[string]struct{})
	for u := range s.active[scopeKey(topic, ageRange)] {
		out[u] = struct{}{}
	}
	return out, nil
}

func (s *fakeStore) InsertMany(_ context.Context, items []domain.ContentItem) (int64, error) {
	if s.insertErr != nil {
		return 0, s.insertErr
	}
	var n int64
	for _, it := range items {
		key := scopeKey(it.Topic, it.AgeRange)
		if s.active[key] == nil {
			s.active[key] = make(map[string]struct{})
		}
		if _, dup := s.active[key][it.URL]; dup {
			continue
		}
		s.active[key][it.URL] = struct{}{}
		s.items = append(s.items, it)
		n++
	}
	return n, nil
}

func (s *fakeStore) RetireWhere(_ context.Context, filter domain.ContentFilter) (int64, error) {
	s.retired = append(s.retired, filter)
	return 0, nil
}

func (s *fakeStore) DeleteWhere(context.Context, domain.ContentFilter) (int64, error) {
	return 0, nil
}

func (s *fakeStore) AppendRefreshLog(_ context.Context, entry domain.RefreshLogEntry) error {
	if s.logErr != nil {
		return s.logErr
	}
	s.logs = append(s.logs, entry)
	if entry.RefreshCycle > s.cycle {
		s.cycle = entry.RefreshCycle
	}
	return nil
}

func (s *fakeStore) NextRefreshCycle(context.Context) (int, error) {
	if s.cycleErr != nil {
		return 0, s.cycleErr
	}
	return s.cycle + 1, nil
}

func (s *fakeStore) CountActive(context.Context) (int64, error) {
	if s.listErr != nil {
		return 0, s.listErr
	}
	var n int64
	for _, urls := range s.active {
		n += int64(len(urls))
	}
	return n, nil
}

// scopeLogs drops the terminal SYSTEM_COMPLETE row.
func (s *fakeStore) scopeLogs() []domain.RefreshLogEntry {
	var out []domain.RefreshLogEntry
	for _, e := range s.logs {
		if e.Topic != domain.SystemComplete {
			out = append(out, e)
		}
	}
	return out
}

type fakeSearch struct {
	hits       map[string][]domain.SearchHit
	queries    []domain.SearchQuery
	panicQuery string
}

func (f *fakeSearch) Search(_ context.Context, q domain.SearchQuery) []domain.SearchHit {
	f.queries = append(f.queries, q)
	if f.panicQuery != "" && q.Query == f.panicQuery {
		panic("search exploded")
	}
	return f.hits[q.Query]
}

type fakeScrape struct {
	pages map[string]domain.ScrapedPage
	calls []string
}

func (f *fakeScrape) Scrape(_ context.Context, url string) (domain.ScrapedPage, bool) {
	f.calls = append(f.calls, url)
	page, ok := f.pages[url]
	return page, ok
}

type countingLimiter struct {
	waits int
}

func (c *countingLimiter) Wait(ctx context.Context) error {
	c.waits++
	return ctx.Err()
}

type recordingNotifier struct {
	summaries []string
}

func (n *recordingNotifier) PublishSummary(_ context.Context, summary string) error {
	n.summaries = append(n.summaries, summary)
	return nil
}

func fixedClock() time.Time {
	return time.Date(2026, time.October, 1, 9, 0, 0, 0, time.UTC)
}
