// Package quality scores articles by source trust, length, recency and title heuristics.
package quality

import (
	"math"
	"net/url"
	"strings"
	"time"

	"ContentRefresher/internal/extract"
)

const (
	baseScore          = 0.5
	trustedBonus       = 0.3
	longBonus          = 0.2
	veryLongBonus      = 0.1
	punctuationPenalty = 0.1
	sensationalPenalty = 0.2
	imageBonus         = 0.1
	recencyBonus       = 0.1

	fallbackTrustedScore = 0.6
	fallbackScore        = 0.5

	longWords     = 500
	veryLongWords = 1000

	// MinAcceptedScore is the lowest score that is ever persisted.
	MinAcceptedScore = 0.4
)

var sensationalMarkers = []string{"AMAZING", "SHOCKING", "UNBELIEVABLE", "YOU WON'T BELIEVE", "MUST SEE"}

// Article is the input to a full score. Text is plain text used for the word
// count; Markup is searched for a qualifying image.
type Article struct {
	URL           string
	Title         string
	Text          string
	Markup        string
	PublishedDate time.Time
}

// Scorer computes bounded quality scores. The zero value uses wall-clock time.
type Scorer struct {
	now func() time.Time
}

// NewScorer builds a scorer reading the current time from now.
func NewScorer(now func() time.Time) *Scorer {
	return &Scorer{now: now}
}

// Score rates a fully scraped article in [0, 1].
func (s *Scorer) Score(a Article, trusted []string) float64 {
	score := baseScore

	if IsTrusted(a.URL, trusted) {
		score += trustedBonus
	}

	words := extract.WordCount(a.Text)
	if words > longWords {
		score += longBonus
	}
	if words > veryLongWords {
		score += veryLongBonus
	}

	if strings.ContainsAny(a.Title, "!?") {
		score -= punctuationPenalty
	}
	for _, marker := range sensationalMarkers {
		if strings.Contains(a.Title, marker) {
			score -= sensationalPenalty
			break
		}
	}

	if extract.Image(a.Markup) != "" {
		score += imageBonus
	}

	if !a.PublishedDate.IsZero() && a.PublishedDate.After(s.clock().AddDate(-1, 0, 0)) {
		score += recencyBonus
	}

	return clamp(score)
}

// ScoreFallback rates an article known only from its search snippet.
func (s *Scorer) ScoreFallback(rawURL string, trusted []string) float64 {
	if IsTrusted(rawURL, trusted) {
		return fallbackTrustedScore
	}
	return fallbackScore
}

// Accept reports whether score clears the storage bar.
func Accept(score float64) bool {
	return score >= MinAcceptedScore
}

// IsTrusted reports whether the URL host is a trusted domain or one of its subdomains.
func IsTrusted(rawURL string, trusted []string) bool {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	if host == "" {
		return false
	}
	for _, domain := range trusted {
		domain = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(domain)), "www.")
		if domain == "" {
			continue
		}
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

func (s *Scorer) clock() time.Time {
	if s == nil || s.now == nil {
		return time.Now()
	}
	return s.now()
}

// clamp bounds the score to [0, 1] and rounds away float noise so threshold
// comparisons are exact.
func clamp(score float64) float64 {
	score = math.Max(0, math.Min(1, score))
	return math.Round(score*1000) / 1000
}
