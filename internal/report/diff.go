package report

import (
	"fmt"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/raysh454/kage/internal/model"
)

// DetectionChange is one detection that appeared or disappeared between two
// scans of the same page.
type DetectionChange struct {
	Kind      string          `json:"kind"` // "detection_added" | "detection_resolved"
	Detection model.Detection `json:"detection"`
}

// ReportDiff explains what changed between two scan reports.
type ReportDiff struct {
	BaseTotal int `json:"base_total"`
	HeadTotal int `json:"head_total"`

	// SeverityDeltas: severity -> (head count - base count).
	SeverityDeltas map[model.Severity]int `json:"severity_deltas"`

	Changes []DetectionChange `json:"changes,omitempty"`

	// TextDiff is a line-oriented human-readable diff of the two exports.
	TextDiff string `json:"text_diff,omitempty"`
}

// detectionKey identifies a detection across scans by its locator and the
// rules it matched; confidence and geometry may drift between renders.
func detectionKey(d model.Detection) string {
	key := d.Element.Path + "|" + d.Element.Tag
	for _, m := range d.RuleMatches {
		key += "|" + m.RuleID
	}
	if d.Heuristic != nil {
		for _, p := range d.Heuristic.DetectedPatterns {
			key += "|" + p
		}
	}
	return key
}

// Compare diffs two reports for the same page: structural new/resolved
// detections plus a textual diff of the exports.
func Compare(base, head *model.ScanReport) (*ReportDiff, error) {
	if base == nil || head == nil {
		return nil, fmt.Errorf("report: compare needs two reports")
	}

	diff := &ReportDiff{
		BaseTotal:      base.Summary.TotalDetections,
		HeadTotal:      head.Summary.TotalDetections,
		SeverityDeltas: map[model.Severity]int{},
	}

	for _, sev := range []model.Severity{model.SeverityHigh, model.SeverityMedium, model.SeverityLow} {
		delta := head.Summary.BySeverity[sev] - base.Summary.BySeverity[sev]
		if delta != 0 {
			diff.SeverityDeltas[sev] = delta
		}
	}

	baseKeys := map[string]struct{}{}
	for _, d := range base.Detections {
		baseKeys[detectionKey(d)] = struct{}{}
	}
	headKeys := map[string]struct{}{}
	for _, d := range head.Detections {
		key := detectionKey(d)
		headKeys[key] = struct{}{}
		if _, existed := baseKeys[key]; !existed {
			diff.Changes = append(diff.Changes, DetectionChange{Kind: "detection_added", Detection: d})
		}
	}
	for _, d := range base.Detections {
		if _, still := headKeys[detectionKey(d)]; !still {
			diff.Changes = append(diff.Changes, DetectionChange{Kind: "detection_resolved", Detection: d})
		}
	}

	baseText, err := Export(base)
	if err != nil {
		return nil, err
	}
	headText, err := Export(head)
	if err != nil {
		return nil, err
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(string(baseText), string(headText), true)
	dmp.DiffCleanupSemantic(diffs)
	diff.TextDiff = dmp.DiffPrettyText(diffs)

	return diff, nil
}
