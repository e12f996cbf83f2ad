package webapi

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"ContentRefresher/internal/domain"
	"ContentRefresher/internal/ports"
)

// ScrapeClient implements ports.ScrapeClient.
type ScrapeClient struct {
	client
	engine string
}

var _ ports.ScrapeClient = (*ScrapeClient)(nil)

// NewScrapeClient builds a scrape client using the given engine.
func NewScrapeClient(opts Options, engine string) *ScrapeClient {
	return &ScrapeClient{client: newClient(opts), engine: engine}
}

type scrapeRequest struct {
	URL    string `json:"url"`
	Engine string `json:"engine,omitempty"`
}

type scrapePayload struct {
	URL           string `json:"url"`
	Title         string `json:"title"`
	Content       string `json:"content"`
	Text          string `json:"text"`
	Author        string `json:"author"`
	PublishedDate string `json:"publishedDate"`
	Date          string `json:"date"`
}

// Scrape fetches one page. ok is false on any failure; callers fall back to
// search metadata.
func (s *ScrapeClient) Scrape(ctx context.Context, url string) (domain.ScrapedPage, bool) {
	page, err := s.scrape(ctx, url)
	if err != nil {
		s.logger.Warn("scrape failed", "url", url, "error", err)
		return domain.ScrapedPage{}, false
	}
	return page, true
}

func (s *ScrapeClient) scrape(ctx context.Context, url string) (domain.ScrapedPage, error) {
	data, err := s.post(ctx, "/scrape", scrapeRequest{URL: url, Engine: s.engine})
	if err != nil {
		return domain.ScrapedPage{}, err
	}

	var payload scrapePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return domain.ScrapedPage{}, fmt.Errorf("%w: data is not an object: %v", domain.ErrMalformedResponse, err)
	}

	content := firstNonEmpty(payload.Content, payload.Text)
	if content == "" {
		return domain.ScrapedPage{}, fmt.Errorf("%w: empty body", domain.ErrThinContent)
	}

	return domain.ScrapedPage{
		URL:           firstNonEmpty(payload.URL, url),
		Title:         strings.TrimSpace(payload.Title),
		Content:       content,
		Author:        strings.TrimSpace(payload.Author),
		PublishedDate: parseDate(payload.PublishedDate, payload.Date),
	}, nil
}
