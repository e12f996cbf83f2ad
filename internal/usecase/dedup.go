package usecase

import (
	"net/url"
	"strings"
)

// Deduplicator tracks the URLs already seen for one scope: rows active in the
// store plus candidates handled earlier in the run.
type Deduplicator struct {
	seen map[string]struct{}
}

// NewDeduplicator seeds the set with URLs already persisted for the scope.
func NewDeduplicator(existing map[string]struct{}) *Deduplicator {
	d := &Deduplicator{seen: make(map[string]struct{}, len(existing))}
	for u := range existing {
		d.Mark(u)
	}
	return d
}

// Seen reports whether rawURL was already stored or processed.
func (d *Deduplicator) Seen(rawURL string) bool {
	_, ok := d.seen[dedupKey(rawURL)]
	return ok
}

// Mark records rawURL as processed.
func (d *Deduplicator) Mark(rawURL string) {
	d.seen[dedupKey(rawURL)] = struct{}{}
}

// Len returns the number of distinct URLs tracked.
func (d *Deduplicator) Len() int {
	return len(d.seen)
}

// dedupKey lowercases scheme and host, drops the fragment and a trailing slash.
func dedupKey(rawURL string) string {
	trimmed := strings.TrimSpace(rawURL)
	u, err := url.Parse(trimmed)
	if err != nil || u.Host == "" {
		return trimmed
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""
	return u.String()
}
