// Package extract derives images, summaries and plain text from scraped markup.
package extract

import (
	"html"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"codeberg.org/readeck/go-readability/v2"
	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

const (
	minImageSize        = 200
	minParagraphLength  = 50
	maxSummaryLength    = 300
	wordsPerMinute      = 200
	minReadabilityChars = 200
)

var (
	markdownImageExpr = regexp.MustCompile(`!\[([^\]]*)\]\(\s*([^)\s]+)`)
	blockBreakExpr    = regexp.MustCompile(`(?i)</(p|div|h[1-6]|li|blockquote|section|article|tr)\s*>|<br\s*/?>`)
	paragraphExpr     = regexp.MustCompile(`\n\s*\n`)
	digitsExpr        = regexp.MustCompile(`^\s*(\d+)`)

	// Substrings in src, class or alt that mark decorative or ad images.
	rejectedImageMarkers = []string{
		"icon", "logo", "avatar", "sprite", "pixel", "spacer", "tracking",
		"advert", "/ads/", "doubleclick", "banner-ad", "sponsor",
	}
)

// Image returns the first content-worthy image URL in markup, or "" when none qualifies.
func Image(markup string) string {
	if strings.TrimSpace(markup) == "" {
		return ""
	}

	var found string
	if strings.Contains(markup, "<") {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
		if err == nil {
			doc.Find("img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
				src, _ := img.Attr("src")
				class, _ := img.Attr("class")
				alt, _ := img.Attr("alt")
				if isRejectedImage(src, class, alt) || !largeEnough(img) {
					return true
				}
				if normalized := normalizeImageURL(src); normalized != "" {
					found = normalized
					return false
				}
				return true
			})
		}
	}
	if found != "" {
		return found
	}

	for _, m := range markdownImageExpr.FindAllStringSubmatch(markup, -1) {
		alt, src := m[1], m[2]
		if isRejectedImage(src, "", alt) {
			continue
		}
		if normalized := normalizeImageURL(src); normalized != "" {
			return normalized
		}
	}
	return ""
}

func isRejectedImage(src, class, alt string) bool {
	if strings.TrimSpace(src) == "" {
		return true
	}
	haystack := strings.ToLower(src + " " + class + " " + alt)
	for _, marker := range rejectedImageMarkers {
		if strings.Contains(haystack, marker) {
			return true
		}
	}
	return false
}

// largeEnough accepts images whose declared width and height are unspecified or at least 200px.
func largeEnough(img *goquery.Selection) bool {
	for _, attr := range []string{"width", "height"} {
		raw, ok := img.Attr(attr)
		if !ok {
			continue
		}
		m := digitsExpr.FindStringSubmatch(raw)
		if m == nil {
			continue
		}
		if n, err := strconv.Atoi(m[1]); err == nil && n < minImageSize {
			return false
		}
	}
	return true
}

func normalizeImageURL(src string) string {
	src = strings.TrimSpace(src)
	switch {
	case strings.HasPrefix(src, "//"):
		src = "https:" + src
	case strings.HasPrefix(src, "/"):
		return ""
	}

	u, err := url.Parse(src)
	if err != nil || u.Host == "" {
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}

// Summary returns the first substantial paragraph of markup, truncated to 300 characters.
func Summary(markup string) string {
	text := stripMarkup(blockBreakExpr.ReplaceAllString(markup, "$0\n\n"))

	for _, para := range paragraphExpr.Split(text, -1) {
		para = normalizeWhitespace(para)
		if utf8.RuneCountInString(para) > minParagraphLength {
			return truncate(para, maxSummaryLength, "...")
		}
	}

	return truncate(normalizeWhitespace(text), maxSummaryLength, "")
}

// PlainText returns readable text for word counting. HTML goes through
// readability first and falls back to tag stripping.
func PlainText(markup string) string {
	trimmed := strings.TrimSpace(markup)
	if trimmed == "" {
		return ""
	}
	if !strings.Contains(trimmed, "<") {
		return normalizeWhitespace(trimmed)
	}

	article, err := readability.FromReader(strings.NewReader(trimmed), nil)
	if err == nil {
		var buf strings.Builder
		if err := article.RenderText(&buf); err == nil {
			text := normalizeWhitespace(buf.String())
			if len(text) >= minReadabilityChars {
				return text
			}
		}
	}

	return normalizeWhitespace(stripMarkup(trimmed))
}

// WordCount counts whitespace-separated words.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// ReadingTime estimates minutes to read the given number of words, never below one.
func ReadingTime(words int) int {
	minutes := (words + wordsPerMinute - 1) / wordsPerMinute
	if minutes < 1 {
		return 1
	}
	return minutes
}

// Domain returns the lowercase host of rawURL without a leading "www.".
func Domain(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

func stripMarkup(markup string) string {
	return html.UnescapeString(bluemonday.StrictPolicy().Sanitize(markup))
}

func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, limit int, ellipsis string) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:limit])) + ellipsis
}
