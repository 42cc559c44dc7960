// Package model holds the value types shared across the detection core:
// severities, pattern categories, per-element verdicts and page reports.
// Everything here is plain data; decision logic lives in rules, features,
// heuristics and engine.
package model

import "time"

// Severity is the ordinal impact classification of a detection.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Rank returns an integer ordering for severities: high > medium > low.
// Unknown severities rank below low.
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// MaxSeverity returns the higher-ranked of a and b.
func MaxSeverity(a, b Severity) Severity {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// Category identifies one of the fixed dark-pattern taxonomies. The set is
// closed: rules may only use these ten values.
type Category string

const (
	CategoryUrgencyScarcity    Category = "urgency_scarcity"
	CategoryMisdirection       Category = "misdirection"
	CategorySneaking           Category = "sneaking"
	CategoryObstruction        Category = "obstruction"
	CategoryForcedAction       Category = "forced_action"
	CategorySocialProof        Category = "social_proof"
	CategoryVisualInterference Category = "visual_interference"
	CategoryConfirmshaming     Category = "confirmshaming"
	CategoryBaitAndSwitch      Category = "bait_and_switch"
	CategoryHiddenCosts        Category = "hidden_costs"
)

// categoryNames maps category identifiers to their canonical display names.
var categoryNames = map[Category]string{
	CategoryUrgencyScarcity:    "Urgency & Scarcity",
	CategoryMisdirection:       "Misdirection",
	CategorySneaking:           "Sneaking",
	CategoryObstruction:        "Obstruction",
	CategoryForcedAction:       "Forced Action",
	CategorySocialProof:        "Social Proof",
	CategoryVisualInterference: "Visual Interference",
	CategoryConfirmshaming:     "Confirmshaming",
	CategoryBaitAndSwitch:      "Bait and Switch",
	CategoryHiddenCosts:        "Hidden Costs",
}

// DisplayName returns the canonical human-readable name for the category.
// Unknown categories echo their raw identifier.
func (c Category) DisplayName() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return string(c)
}

// Valid reports whether c is one of the ten known categories.
func (c Category) Valid() bool {
	_, ok := categoryNames[c]
	return ok
}

// Categories returns all known categories in a stable order.
func Categories() []Category {
	return []Category{
		CategoryUrgencyScarcity,
		CategoryMisdirection,
		CategorySneaking,
		CategoryObstruction,
		CategoryForcedAction,
		CategorySocialProof,
		CategoryVisualInterference,
		CategoryConfirmshaming,
		CategoryBaitAndSwitch,
		CategoryHiddenCosts,
	}
}

// RuleMatch is produced per matching signature rule per element.
// Rule matches carry a fixed confidence: signature rules are treated as
// high-precision by construction.
type RuleMatch struct {
	RuleID     string   `json:"rule_id"`
	RuleName   string   `json:"rule_name"`
	Category   Category `json:"category"`
	Severity   Severity `json:"severity"`
	Confidence float64  `json:"confidence"`
}

// RuleMatchConfidence is the fixed confidence assigned to every rule match.
const RuleMatchConfidence = 0.9

// HeuristicVerdict is the output of the heuristic scorer for one element.
type HeuristicVerdict struct {
	IsDarkPattern bool `json:"is_dark_pattern"`

	// Confidence is the arithmetic mean of all triggered condition scores,
	// 0 when nothing triggered.
	Confidence float64 `json:"confidence"`

	// DetectedPatterns holds deduplicated pattern names of triggered conditions.
	DetectedPatterns []string `json:"detected_patterns,omitempty"`

	// Reasoning keeps one human-readable line per triggered condition, in
	// evaluation order. Duplicates across conditions are preserved.
	Reasoning []string `json:"reasoning,omitempty"`
}

// Rect is a bounding box in document coordinates.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ElementInfo is a lightweight snapshot of the analyzed element, taken at
// detection time so reports stay meaningful after the document changes.
type ElementInfo struct {
	Tag         string `json:"tag"`
	TextExcerpt string `json:"text_excerpt,omitempty"`

	// Path is a CSS-like locator from the document root (e.g. "body > div:nth-child(2) > button").
	Path string `json:"path,omitempty"`

	Box     Rect `json:"box"`
	Visible bool `json:"visible"`
}

// Detection is the fused per-element result.
// Invariant: Detected == (len(RuleMatches) > 0) || (Heuristic != nil && Heuristic.IsDarkPattern).
type Detection struct {
	Element         ElementInfo       `json:"element"`
	RuleMatches     []RuleMatch       `json:"rule_matches,omitempty"`
	Heuristic       *HeuristicVerdict `json:"heuristic,omitempty"`
	Detected        bool              `json:"detected"`
	Confidence      float64           `json:"confidence"`
	Severity        Severity          `json:"severity,omitempty"`
	Recommendations []string          `json:"recommendations,omitempty"`
}

// CategoryCount pairs a category with its detection count, for top-issue lists.
type CategoryCount struct {
	Category Category `json:"category"`
	Name     string   `json:"name"`
	Count    int      `json:"count"`
}

// Summary aggregates one scan's detections.
// Category counts derive from rule matches only; heuristic-only detections
// contribute to severity counts but carry no category.
type Summary struct {
	TotalDetections int              `json:"total_detections"`
	BySeverity      map[Severity]int `json:"by_severity"`
	ByCategory      map[Category]int `json:"by_category"`
	TopIssues       []CategoryCount  `json:"top_issues,omitempty"`
}

// ScanReport is the full result of a page scan.
type ScanReport struct {
	ID            string        `json:"id,omitempty"`
	URL           string        `json:"url,omitempty"`
	Timestamp     time.Time     `json:"timestamp"`
	Elapsed       time.Duration `json:"elapsed_ns"`
	TotalElements int           `json:"total_elements"`
	Detections    []Detection   `json:"detections"`
	Summary       Summary       `json:"summary"`
}
