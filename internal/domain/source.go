package domain

import "time"

// SearchQuery carries the parameters of one keyword search.
type SearchQuery struct {
	Query    string
	Engine   string
	Limit    int
	Country  string
	Language string
}

// SearchHit is a validated candidate returned by the search API.
type SearchHit struct {
	Title         string
	URL           string
	Description   string
	PublishedDate time.Time
	Source        string
}

// ScrapedPage is the full content fetched for a single URL.
type ScrapedPage struct {
	URL           string
	Title         string
	Content       string
	Author        string
	PublishedDate time.Time
}
