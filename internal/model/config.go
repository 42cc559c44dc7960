package model

// ScanDepth selects how aggressively the engine enumerates candidates.
type ScanDepth string

const (
	// ScanDepthFull enumerates interactive elements, suspicious classes and
	// manipulative-text matches.
	ScanDepthFull ScanDepth = "full"

	// ScanDepthSurface skips the manipulative-text enumeration pass and only
	// considers interactive and suspicious-class elements.
	ScanDepthSurface ScanDepth = "surface"
)

// Valid reports whether d is a known depth.
func (d ScanDepth) Valid() bool {
	return d == ScanDepthFull || d == ScanDepthSurface
}

// MarkerClass is the class the engine puts on its own highlight overlays.
// Elements carrying it are excluded from analysis by default so a scan never
// detects its own presentation artifacts.
const MarkerClass = "kage-marker"

// Config is the engine's process-wide configuration. Defaults are fixed at
// construction; UpdateConfig replaces fields explicitly.
type Config struct {
	// EnableRuleBased toggles signature rule evaluation.
	EnableRuleBased bool `json:"enable_rule_based"`

	// EnableAIBased toggles heuristic feature extraction and scoring.
	EnableAIBased bool `json:"enable_ai_based"`

	// MinConfidence is an advisory threshold for downstream consumers.
	// The engine computes and stores it but does not filter detections by it;
	// see report.FilterByMinConfidence for the explicit consumer-side hook.
	MinConfidence float64 `json:"min_confidence"`

	// ScanDepth is "full" or "surface".
	ScanDepth ScanDepth `json:"scan_depth"`

	// ExcludeSelectors lists CSS selectors whose matches are never analyzed.
	ExcludeSelectors []string `json:"exclude_selectors"`

	// Workers bounds parallel element analysis. 0 or 1 means sequential.
	Workers int `json:"workers,omitempty"`
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		EnableRuleBased:  true,
		EnableAIBased:    true,
		MinConfidence:    0.5,
		ScanDepth:        ScanDepthFull,
		ExcludeSelectors: []string{"." + MarkerClass},
	}
}
