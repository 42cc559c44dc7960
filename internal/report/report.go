// Package report turns scan results into structured text and back, and
// compares reports across scans. Export output is JSON chosen so the
// serialized subset round-trips exactly: parsing an export reproduces the
// detection count, severities and confidences of the in-memory report.
package report

import (
	"encoding/json"
	"fmt"

	"github.com/raysh454/kage/internal/model"
)

// Export serializes a scan report as indented JSON.
func Export(r *model.ScanReport) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("report: nil report")
	}
	out, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("report: marshal: %w", err)
	}
	return out, nil
}

// Parse reverses Export.
func Parse(data []byte) (*model.ScanReport, error) {
	var r model.ScanReport
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("report: parse: %w", err)
	}
	return &r, nil
}

// FilterByMinConfidence returns only detections at or above min. The engine
// itself never applies this filter — minConfidence is advisory and this is
// the explicit consumer-side hook.
func FilterByMinConfidence(r *model.ScanReport, min float64) []model.Detection {
	if r == nil {
		return nil
	}
	var out []model.Detection
	for _, d := range r.Detections {
		if d.Confidence >= min {
			out = append(out, d)
		}
	}
	return out
}
