package engine

import (
	"sort"
	"strings"

	"github.com/raysh454/kage/internal/model"
)

// Fusion weights. Terms present are summed directly with no renormalization
// when only one side contributes: the asymmetry deliberately favors
// rule-based precision over heuristic scoring.
const (
	ruleWeight      = 0.6
	heuristicWeight = 0.4
)

// fuseConfidence combines both classifiers into one confidence in [0, 1].
func fuseConfidence(matches []model.RuleMatch, verdict *model.HeuristicVerdict) float64 {
	var conf float64
	if len(matches) > 0 {
		var sum float64
		for _, m := range matches {
			sum += m.Confidence
		}
		conf += ruleWeight * (sum / float64(len(matches)))
	}
	if verdict != nil && verdict.IsDarkPattern {
		conf += heuristicWeight * verdict.Confidence
	}
	if conf > 1 {
		conf = 1
	}
	return conf
}

// fuseSeverity takes the highest rule severity when rules matched; otherwise
// it derives severity from the heuristic confidence.
func fuseSeverity(matches []model.RuleMatch, verdict *model.HeuristicVerdict) model.Severity {
	if len(matches) > 0 {
		sev := matches[0].Severity
		for _, m := range matches[1:] {
			sev = model.MaxSeverity(sev, m.Severity)
		}
		return sev
	}
	if verdict == nil || !verdict.IsDarkPattern {
		return ""
	}
	switch {
	case verdict.Confidence > 0.8:
		return model.SeverityHigh
	case verdict.Confidence > 0.6:
		return model.SeverityMedium
	default:
		return model.SeverityLow
	}
}

// categoryAdvice is static remediation advice per category.
var categoryAdvice = map[model.Category]string{
	model.CategoryUrgencyScarcity:    "Remove artificial countdowns and scarcity claims, or back them with real data",
	model.CategoryMisdirection:       "Make all options visually equal and label them by their actual effect",
	model.CategorySneaking:           "Require explicit opt-in for every add-on or subscription",
	model.CategoryObstruction:        "Make cancelling as easy as signing up",
	model.CategoryForcedAction:       "Let users complete their task without unrelated mandatory steps",
	model.CategorySocialProof:        "Show only verifiable activity and reviews",
	model.CategoryVisualInterference: "Render all controls with full opacity and accessible contrast",
	model.CategoryConfirmshaming:     "Use neutral language for decline options",
	model.CategoryBaitAndSwitch:      "Honor the advertised offer through the entire flow",
	model.CategoryHiddenCosts:        "Show the full price, fees included, up front",
}

// recommendations unions category advice with AI reasoning (prefixed as
// AI-sourced), deduplicated, category advice first.
func recommendations(matches []model.RuleMatch, verdict *model.HeuristicVerdict) []string {
	var out []string
	seen := map[string]struct{}{}

	appendUnique := func(s string) {
		if _, dup := seen[s]; dup {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	for _, m := range matches {
		if advice, ok := categoryAdvice[m.Category]; ok {
			appendUnique(advice)
		}
	}
	if verdict != nil && verdict.IsDarkPattern {
		for _, reason := range verdict.Reasoning {
			appendUnique("AI: " + reason)
		}
	}
	return out
}

// summarize aggregates detections into the page summary. Heuristic-only
// detections count toward severity totals but not category totals, since
// categories derive from rule matches only.
func summarize(detections []model.Detection) model.Summary {
	s := model.Summary{
		TotalDetections: len(detections),
		BySeverity:      map[model.Severity]int{},
		ByCategory:      map[model.Category]int{},
	}

	for _, d := range detections {
		if d.Severity != "" {
			s.BySeverity[d.Severity]++
		}
		cats := map[model.Category]struct{}{}
		for _, m := range d.RuleMatches {
			cats[m.Category] = struct{}{}
		}
		for c := range cats {
			s.ByCategory[c]++
		}
	}

	s.TopIssues = topCategories(s.ByCategory, 5)
	return s
}

// topCategories ranks categories by count descending, canonical order as the
// tiebreak for determinism.
func topCategories(byCategory map[model.Category]int, n int) []model.CategoryCount {
	var ranked []model.CategoryCount
	for _, c := range model.Categories() {
		if count := byCategory[c]; count > 0 {
			ranked = append(ranked, model.CategoryCount{
				Category: c,
				Name:     c.DisplayName(),
				Count:    count,
			})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return strings.Compare(string(ranked[i].Category), string(ranked[j].Category)) < 0
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
