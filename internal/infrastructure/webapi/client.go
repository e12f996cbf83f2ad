// Package webapi talks to the third-party search and scrape API.
package webapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"ContentRefresher/internal/domain"
	"ContentRefresher/internal/ports"
)

const maxResponseBytes = 8 << 20

// Options configures one API client.
type Options struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	Limiter ports.Limiter
	Logger  *slog.Logger
}

// client holds the transport shared by the search and scrape clients.
type client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	limiter ports.Limiter
	logger  *slog.Logger
}

func newClient(opts Options) client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		apiKey:  opts.APIKey,
		http:    &http.Client{Timeout: timeout},
		limiter: opts.Limiter,
		logger:  logger,
	}
}

// envelope is the common {success, data} wrapper of every response.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// post waits for the limiter, sends payload to path and returns the validated data field.
func (c client) post(ctx context.Context, path string, payload any) (json.RawMessage, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: rate limiter: %v", domain.ErrTransport, err)
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", domain.ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: unexpected status %s: %s", domain.ErrTransport, resp.Status, snippet(raw))
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", domain.ErrMalformedResponse, err)
	}
	if !env.Success {
		return nil, fmt.Errorf("%w: success=false %s", domain.ErrMalformedResponse, env.Error)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil, fmt.Errorf("%w: missing data", domain.ErrMalformedResponse)
	}

	return env.Data, nil
}

func snippet(raw []byte) string {
	const max = 256
	s := strings.TrimSpace(string(raw))
	if len(s) > max {
		return s[:max]
	}
	return s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// parseDate accepts any of the formats upstream sources emit; unknown input yields the zero time.
func parseDate(values ...string) time.Time {
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || v == "null" {
			continue
		}
		if t, err := dateparse.ParseIn(v, time.UTC); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
