// Package fetcher retrieves rendered page HTML for the scanner. Backends are
// pluggable: nethttp for static documents, chromedp for pages that need a
// real browser to settle before scanning.
package fetcher

import (
	"context"
	"time"
)

// Renderer fetches one URL and returns the document HTML.
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)

	Close() error
}

// Config selects and tunes a renderer backend.
type Config struct {
	// Backend names a registered constructor ("nethttp" or "chromedp").
	Backend string

	// Timeout bounds a single fetch.
	Timeout time.Duration

	// IdleAfter is how long the network must stay quiet before a chromedp
	// render is considered settled.
	IdleAfter time.Duration

	// Headless controls browser visibility for the chromedp backend.
	Headless bool
}

// DefaultConfig returns sensible fetch defaults.
func DefaultConfig() *Config {
	return &Config{
		Backend:   "nethttp",
		Timeout:   30 * time.Second,
		IdleAfter: 2 * time.Second,
		Headless:  true,
	}
}
