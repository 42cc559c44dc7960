package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// NetHTTPRenderer fetches documents with a plain HTTP client. It sees only
// server-rendered markup; pages that assemble their DOM client-side need the
// chromedp backend.
type NetHTTPRenderer struct {
	client *http.Client
}

// NewNetHTTPRenderer returns a renderer bounded by timeout per request.
func NewNetHTTPRenderer(timeout time.Duration) *NetHTTPRenderer {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &NetHTTPRenderer{
		client: &http.Client{Timeout: timeout},
	}
}

// Render fetches the URL and returns the response body.
func (r *NetHTTPRenderer) Render(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request for %s: %w", url, err)
	}
	req.Header.Set("User-Agent", "kage-scanner/1.0")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("fetch %s: unexpected status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body of %s: %w", url, err)
	}
	return string(body), nil
}

// Close satisfies Renderer; the HTTP client holds no resources to release.
func (r *NetHTTPRenderer) Close() error {
	r.client.CloseIdleConnections()
	return nil
}
