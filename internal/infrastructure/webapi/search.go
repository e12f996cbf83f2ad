package webapi

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"ContentRefresher/internal/domain"
	"ContentRefresher/internal/ports"
)

// suggestionSource marks synthetic entries the search API mixes into results.
const suggestionSource = "search suggestions"

// SearchClient implements ports.SearchClient.
type SearchClient struct {
	client
}

var _ ports.SearchClient = (*SearchClient)(nil)

// NewSearchClient builds a search client.
func NewSearchClient(opts Options) *SearchClient {
	return &SearchClient{client: newClient(opts)}
}

type searchRequest struct {
	Query    string `json:"query"`
	Engine   string `json:"engine,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Country  string `json:"country,omitempty"`
	Language string `json:"language,omitempty"`
}

type searchEntry struct {
	Title         string `json:"title"`
	URL           string `json:"url"`
	Description   string `json:"description"`
	Snippet       string `json:"snippet"`
	PublishedDate string `json:"publishedDate"`
	Date          string `json:"date"`
	Source        string `json:"source"`
}

// Search runs one query. Errors are logged and produce an empty result so the
// caller can continue with other queries.
func (s *SearchClient) Search(ctx context.Context, q domain.SearchQuery) []domain.SearchHit {
	hits, err := s.search(ctx, q)
	if err != nil {
		s.logger.Warn("search failed", "query", q.Query, "error", err)
		return nil
	}
	s.logger.Debug("search done", "query", q.Query, "hits", len(hits))
	return hits
}

func (s *SearchClient) search(ctx context.Context, q domain.SearchQuery) ([]domain.SearchHit, error) {
	data, err := s.post(ctx, "/search", searchRequest(q))
	if err != nil {
		return nil, err
	}

	var entries []searchEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: data is not a result array: %v", domain.ErrMalformedResponse, err)
	}

	hits := make([]domain.SearchHit, 0, len(entries))
	for _, e := range entries {
		link := strings.TrimSpace(e.URL)
		if link == "" {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(e.Source), suggestionSource) {
			continue
		}
		hits = append(hits, domain.SearchHit{
			Title:         strings.TrimSpace(e.Title),
			URL:           link,
			Description:   firstNonEmpty(e.Description, e.Snippet),
			PublishedDate: parseDate(e.PublishedDate, e.Date),
			Source:        e.Source,
		})
	}
	return hits, nil
}
