package server

// StartScanRequest is the payload for submitting a page scan.
type StartScanRequest struct {
	URL string `json:"url" example:"https://shop.example.com/checkout"`

	// Backend overrides the renderer backend ("nethttp" or "chromedp").
	Backend string `json:"backend,omitempty" example:"chromedp"`

	// ScanDepth overrides the configured depth ("full" or "surface").
	ScanDepth string `json:"scan_depth,omitempty" example:"full"`

	// Workers overrides the analysis parallelism; 0 keeps the default.
	Workers int `json:"workers,omitempty" example:"4"`

	// ExcludeSelectors adds selectors whose matches are skipped.
	ExcludeSelectors []string `json:"exclude_selectors,omitempty" example:".cookie-banner"`
}

// CompareScansRequest names two stored scans to diff.
type CompareScansRequest struct {
	BaseID string `json:"base_id" example:"6e0c1a9e-8f3a-4b2f-9d7c-1a2b3c4d5e6f"`
	HeadID string `json:"head_id" example:"a1b2c3d4-e5f6-7a8b-9c0d-1e2f3a4b5c6d"`
}

// RuleInfo describes one registered detection rule.
type RuleInfo struct {
	ID       string `json:"id" example:"confirmshaming-text"`
	Name     string `json:"name" example:"Confirmshaming language"`
	Category string `json:"category" example:"confirmshaming"`
	Severity string `json:"severity" example:"medium"`
}

// ErrorResponse is a uniform error payload returned by the API.
type ErrorResponse struct {
	Error string `json:"error" example:"not found"`
}
