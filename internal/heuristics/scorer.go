// Package heuristics maps extracted features to a weighted verdict. The
// scorer is deterministic: a fixed ordered table of independent conditions,
// each contributing a score, a pattern name and a human-readable reason.
package heuristics

import (
	"github.com/raysh454/kage/internal/features"
	"github.com/raysh454/kage/internal/model"
)

// DefaultSuspicionThreshold is the confidence at or above which a verdict is
// considered a dark pattern.
const DefaultSuspicionThreshold = 0.6

// condition is one row of the scoring table.
type condition struct {
	check   func(f *features.FeatureSet) bool
	score   float64
	pattern string
	reason  string
}

// conditionTable is evaluated in order; every satisfied row contributes.
var conditionTable = []condition{
	{
		check: func(f *features.FeatureSet) bool {
			return f.Text.HasNegativeLanguage && f.Text.SentimentScore < -0.3
		},
		score:   0.8,
		pattern: "manipulative-language",
		reason:  "Strongly negative wording aimed at the user's decision",
	},
	{
		check: func(f *features.FeatureSet) bool {
			return f.Text.HasUrgentLanguage && f.Text.HasNumericClaim
		},
		score:   0.7,
		pattern: "false-urgency",
		reason:  "Urgent wording combined with a numeric claim",
	},
	{
		check: func(f *features.FeatureSet) bool {
			return f.Visual.Opacity < 0.5 && f.Behavioral.Interactive
		},
		score:   0.85,
		pattern: "visual-obstruction",
		reason:  "Interactive element rendered nearly invisible",
	},
	{
		check: func(f *features.FeatureSet) bool {
			return f.Visual.ContrastRatio < 3 && f.Behavioral.Interactive
		},
		score:   0.75,
		pattern: "low-contrast-deception",
		reason:  "Interactive element with insufficient text contrast",
	},
	{
		check: func(f *features.FeatureSet) bool {
			return f.Visual.IsOverlay && f.Context.InModal
		},
		score:   0.65,
		pattern: "forced-interaction",
		reason:  "High z-index overlay inside a modal dialog",
	},
	{
		check: func(f *features.FeatureSet) bool {
			return f.Behavioral.HasPreselection && f.Behavioral.IsForm
		},
		score:   0.8,
		pattern: "sneaky-preselection",
		reason:  "Form option pre-selected on the user's behalf",
	},
	{
		check: func(f *features.FeatureSet) bool {
			return f.Behavioral.BlocksUserAction
		},
		score:   0.9,
		pattern: "forced-continuity",
		reason:  "Element positioned to block normal page interaction",
	},
	{
		check: func(f *features.FeatureSet) bool {
			return f.Behavioral.HasTimeConstraint && f.Text.HasUrgentLanguage
		},
		score:   0.85,
		pattern: "pressure-tactics",
		reason:  "Countdown or timer combined with urgent wording",
	},
	{
		check: func(f *features.FeatureSet) bool {
			return f.Context.InPopup && f.Context.AppearsOnLoad
		},
		score:   0.6,
		pattern: "intrusive-popup",
		reason:  "Popup presented without user interaction",
	},
}

// Scorer evaluates the condition table against feature sets. The only state
// is the configurable suspicion threshold.
type Scorer struct {
	threshold float64
}

// NewScorer returns a scorer with the default suspicion threshold.
func NewScorer() *Scorer {
	return &Scorer{threshold: DefaultSuspicionThreshold}
}

// SetThreshold updates the suspicion threshold, clamped to [0, 1].
func (s *Scorer) SetThreshold(t float64) {
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	s.threshold = t
}

// Threshold returns the current suspicion threshold.
func (s *Scorer) Threshold() float64 { return s.threshold }

// Score evaluates all conditions and aggregates a verdict. Confidence is the
// arithmetic mean of triggered scores (0 when none triggered); pattern names
// are deduplicated while reasoning lines keep evaluation order and may repeat.
func (s *Scorer) Score(f *features.FeatureSet) *model.HeuristicVerdict {
	v := &model.HeuristicVerdict{}
	if f == nil {
		return v
	}

	var sum float64
	var triggered int
	seen := map[string]struct{}{}

	for _, c := range conditionTable {
		if !c.check(f) {
			continue
		}
		sum += c.score
		triggered++
		if _, dup := seen[c.pattern]; !dup {
			seen[c.pattern] = struct{}{}
			v.DetectedPatterns = append(v.DetectedPatterns, c.pattern)
		}
		v.Reasoning = append(v.Reasoning, c.reason)
	}

	if triggered > 0 {
		v.Confidence = sum / float64(triggered)
	}
	v.IsDarkPattern = triggered > 0 && v.Confidence >= s.threshold
	return v
}
