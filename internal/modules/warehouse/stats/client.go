package stats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

var ErrNotConfigured = errors.New("stats endpoint not configured")

// Fetcher returns the current spreadsheet document.
type Fetcher interface {
	Fetch(ctx context.Context) (Document, error)
}

// Client reads the statistics document from the spreadsheet web app.
type Client struct {
	url    string
	h      *http.Client
	logger *slog.Logger
}

func NewClient(url string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		url:    url,
		h:      &http.Client{Timeout: timeout},
		logger: logger.With("component", "stats-client"),
	}
}

func (c *Client) Fetch(ctx context.Context) (Document, error) {
	if c.url == "" {
		return Document{}, ErrNotConfigured
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return Document{}, fmt.Errorf("build stats request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.h.Do(req)
	if err != nil {
		return Document{}, fmt.Errorf("fetch stats: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Document{}, fmt.Errorf("stats endpoint returned %d: %s", resp.StatusCode, string(b))
	}

	var doc Document
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return Document{}, fmt.Errorf("decode stats: %w", err)
	}
	c.logger.Debug("stats fetched",
		"daily", len(doc.Daily),
		"monthly", len(doc.Monthly),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return doc, nil
}
