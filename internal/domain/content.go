package domain

import (
	"strings"
	"time"
)

// AllAges marks content that is not bound to a specific age range.
const AllAges = "all"

// SystemComplete is the topic recorded on the terminal refresh log row of a run.
const SystemComplete = "SYSTEM_COMPLETE"

// Topic is a fixed taxonomy entry with its search queries and trusted domains.
type Topic struct {
	Key            string
	Label          string
	Queries        []string
	TrustedSources []string
}

// AgeRange is an optional dimension bucket, e.g. "0-1_months".
type AgeRange string

// Label renders the range the way it reads inside a search query.
func (a AgeRange) Label() string {
	return strings.ReplaceAll(string(a), "_", " ")
}

// Scope is one iteration of the refresh loop.
type Scope struct {
	Topic    Topic
	AgeRange AgeRange
}

// AgeKey returns the persisted age_range value for the scope.
func (s Scope) AgeKey() string {
	if s.AgeRange == "" {
		return AllAges
	}
	return string(s.AgeRange)
}

// ContentItem is the persisted article record.
type ContentItem struct {
	ID              int64
	Topic           string
	AgeRange        string
	URL             string
	Title           string
	ContentSummary  string
	SourceDomain    string
	PublicationDate time.Time
	ImageURL        string
	ReadingTime     int
	Tags            []string
	Author          string
	QualityScore    float64
	RefreshCycle    int
	IsActive        bool
	CreatedAt       time.Time
}

// RefreshStatus enumerates the outcome of a scope attempt.
type RefreshStatus string

const (
	StatusSuccess RefreshStatus = "success"
	StatusPartial RefreshStatus = "partial"
	StatusFailed  RefreshStatus = "failed"
)

// RefreshLogEntry is an append-only audit row for a scope or a whole run.
type RefreshLogEntry struct {
	Topic           string
	AgeRange        string
	ArticlesAdded   int
	ArticlesRemoved int
	Status          RefreshStatus
	ErrorMessage    string
	RefreshCycle    int
	RefreshDate     time.Time
}

// ContentFilter scopes cleanup operations; zero fields match everything.
type ContentFilter struct {
	Topic     string
	AgeRange  string
	OlderThan time.Time
}
