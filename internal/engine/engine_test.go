package engine_test

import (
	"context"
	"math"
	"testing"

	"github.com/raysh454/kage/internal/docview"
	"github.com/raysh454/kage/internal/engine"
	"github.com/raysh454/kage/internal/model"
	"github.com/raysh454/kage/internal/rules"
	"github.com/raysh454/kage/internal/testutil"
)

func newEngine(t *testing.T, page string, cfg *model.Config) (*engine.Engine, *docview.HTMLView) {
	t.Helper()
	v, err := docview.ParseHTML(page)
	if err != nil {
		t.Fatalf("ParseHTML: %v", err)
	}
	logger := &testutil.DummyLogger{}
	return engine.New(v, rules.NewDefaultRegistry(logger), cfg, logger), v
}

func scan(t *testing.T, e *engine.Engine) *model.ScanReport {
	t.Helper()
	rep, err := e.ScanPage(context.Background())
	if err != nil {
		t.Fatalf("ScanPage: %v", err)
	}
	return rep
}

const confirmshamingPage = `<html><body>
  <div class="content">
    <button class="accept">Yes, sign me up</button>
    <a href="/decline" id="decline">No thanks, I hate saving money</a>
  </div>
</body></html>`

func TestScanPage_RuleDetection(t *testing.T) {
	e, _ := newEngine(t, confirmshamingPage, nil)
	rep := scan(t, e)

	var det *model.Detection
	for i := range rep.Detections {
		for _, m := range rep.Detections[i].RuleMatches {
			if m.RuleID == "confirmshaming" {
				det = &rep.Detections[i]
			}
		}
	}
	if det == nil {
		t.Fatalf("confirmshaming link not detected, got %+v", rep.Detections)
	}

	if det.Element.Tag != "a" {
		t.Errorf("detected tag = %s, want a", det.Element.Tag)
	}
	// Rule-only detection: 0.6 * 0.9.
	if math.Abs(det.Confidence-0.54) > 1e-9 {
		t.Errorf("confidence = %v, want 0.54", det.Confidence)
	}
	if det.Severity != model.SeverityMedium {
		t.Errorf("severity = %s, want medium", det.Severity)
	}
	if len(det.Recommendations) == 0 {
		t.Error("no recommendations on a detected element")
	}
}

func TestScanPage_HeuristicOnlyDetection(t *testing.T) {
	// Interactive via onclick so no builtin structural rule applies; the
	// near-invisible opacity is what the scorer reacts to.
	page := `<html><body>
	  <div onclick="toggle()" style="opacity: 0.2;">dismiss</div>
	</body></html>`

	e, _ := newEngine(t, page, nil)
	rep := scan(t, e)

	if len(rep.Detections) != 1 {
		t.Fatalf("detections = %d, want 1", len(rep.Detections))
	}
	det := rep.Detections[0]
	if len(det.RuleMatches) != 0 {
		t.Fatalf("unexpected rule matches %+v", det.RuleMatches)
	}
	if det.Heuristic == nil || !det.Heuristic.IsDarkPattern {
		t.Fatal("heuristic verdict missing or negative")
	}
	// Heuristic-only detection: 0.4 * 0.85.
	if math.Abs(det.Confidence-0.34) > 1e-9 {
		t.Errorf("confidence = %v, want 0.34", det.Confidence)
	}
	// 0.85 heuristic confidence maps to high severity.
	if det.Severity != model.SeverityHigh {
		t.Errorf("severity = %s, want high", det.Severity)
	}
}

func TestScanPage_CleanPage(t *testing.T) {
	e, _ := newEngine(t, `<html><body><p>Welcome to our documentation.</p></body></html>`, nil)
	rep := scan(t, e)

	if len(rep.Detections) != 0 {
		t.Fatalf("clean page produced detections: %+v", rep.Detections)
	}
	if rep.Summary.TotalDetections != 0 {
		t.Errorf("summary total = %d", rep.Summary.TotalDetections)
	}
	if len(rep.Summary.TopIssues) != 0 {
		t.Errorf("top issues on clean page: %+v", rep.Summary.TopIssues)
	}
	if rep.Detections == nil {
		t.Error("Detections must be non-nil for JSON round-trips")
	}
}

func TestScanPage_DetectedInvariant(t *testing.T) {
	e, _ := newEngine(t, confirmshamingPage, nil)
	rep := scan(t, e)

	for _, d := range rep.Detections {
		heuristicPositive := d.Heuristic != nil && d.Heuristic.IsDarkPattern
		if !d.Detected {
			t.Errorf("reported detection with Detected=false: %+v", d.Element)
		}
		if len(d.RuleMatches) == 0 && !heuristicPositive {
			t.Errorf("detection with neither rules nor heuristic: %+v", d.Element)
		}
		if d.Confidence < 0 || d.Confidence > 1 {
			t.Errorf("confidence out of range: %v", d.Confidence)
		}
	}
}

func TestScanPage_Idempotent(t *testing.T) {
	e, _ := newEngine(t, confirmshamingPage, nil)

	first := scan(t, e)
	second := scan(t, e)

	if len(first.Detections) != len(second.Detections) {
		t.Fatalf("detections changed across identical scans: %d vs %d",
			len(first.Detections), len(second.Detections))
	}
	for i := range first.Detections {
		if first.Detections[i].Confidence != second.Detections[i].Confidence {
			t.Errorf("confidence drifted at %d", i)
		}
	}
	if first.TotalElements != second.TotalElements {
		t.Errorf("candidate count drifted: %d vs %d", first.TotalElements, second.TotalElements)
	}
}

func TestScanPage_ParallelMatchesSequential(t *testing.T) {
	seq := model.DefaultConfig()
	e1, _ := newEngine(t, confirmshamingPage, &seq)

	par := model.DefaultConfig()
	par.Workers = 4
	e2, _ := newEngine(t, confirmshamingPage, &par)

	r1 := scan(t, e1)
	r2 := scan(t, e2)

	if len(r1.Detections) != len(r2.Detections) {
		t.Fatalf("parallel scan diverged: %d vs %d", len(r1.Detections), len(r2.Detections))
	}
	for i := range r1.Detections {
		if r1.Detections[i].Element.Path != r2.Detections[i].Element.Path {
			t.Errorf("detection order diverged at %d", i)
		}
	}
}

func TestScanPage_ExcludeSelectors(t *testing.T) {
	page := `<html><body>
	  <div class="cookie-banner"><a href="/d">No thanks, I hate saving money</a></div>
	</body></html>`

	cfg := model.DefaultConfig()
	cfg.ExcludeSelectors = append(cfg.ExcludeSelectors, ".cookie-banner, .cookie-banner *")
	e, _ := newEngine(t, page, &cfg)

	rep := scan(t, e)
	if len(rep.Detections) != 0 {
		t.Fatalf("excluded subtree still detected: %+v", rep.Detections)
	}
}

func TestScanPage_InvalidExcludeSelectorSkipped(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.ExcludeSelectors = append(cfg.ExcludeSelectors, "[broken")
	e, _ := newEngine(t, confirmshamingPage, &cfg)

	rep := scan(t, e)
	if len(rep.Detections) == 0 {
		t.Fatal("a broken exclusion selector must not abort the scan")
	}
}

func TestScanPage_SurfaceDepthSkipsTextPass(t *testing.T) {
	// The manipulative phrase lives in a plain <p>: only the full-depth text
	// pass would pick it up.
	page := `<html><body><p>Last chance! Don't miss out on this.</p></body></html>`

	full := model.DefaultConfig()
	eFull, _ := newEngine(t, page, &full)
	if rep := scan(t, eFull); rep.TotalElements == 0 {
		t.Fatal("full depth should enumerate the manipulative paragraph")
	}

	surface := model.DefaultConfig()
	surface.ScanDepth = model.ScanDepthSurface
	eSurf, _ := newEngine(t, page, &surface)
	if rep := scan(t, eSurf); rep.TotalElements != 0 {
		t.Fatalf("surface depth enumerated %d elements, want 0", rep.TotalElements)
	}
}

func TestScanPage_CategoryCounts(t *testing.T) {
	page := `<html><body>
	  <a href="/terms">A processing fee applies</a>
	  <a href="/billing">Additional fees may apply at checkout</a>
	  <a href="/d">No thanks, I hate saving money</a>
	</body></html>`

	e, _ := newEngine(t, page, nil)
	rep := scan(t, e)

	if got := rep.Summary.ByCategory[model.CategoryHiddenCosts]; got != 2 {
		t.Errorf("hidden_costs count = %d, want 2", got)
	}
	if got := rep.Summary.ByCategory[model.CategoryConfirmshaming]; got != 1 {
		t.Errorf("confirmshaming count = %d, want 1", got)
	}
	if len(rep.Summary.TopIssues) == 0 || rep.Summary.TopIssues[0].Category != model.CategoryHiddenCosts {
		t.Errorf("top issue = %+v, want hidden_costs first", rep.Summary.TopIssues)
	}
}

func TestAnalyzeElement(t *testing.T) {
	e, v := newEngine(t, confirmshamingPage, nil)

	links, _ := v.Query("#decline")
	det := e.AnalyzeElement(context.Background(), links[0])
	if det == nil {
		t.Fatal("AnalyzeElement returned nil for a confirmshaming link")
	}

	buttons, _ := v.Query(".accept")
	if got := e.AnalyzeElement(context.Background(), buttons[0]); got != nil {
		t.Fatalf("benign button reported as detection: %+v", got)
	}

	if got := e.AnalyzeElement(context.Background(), nil); got != nil {
		t.Fatalf("AnalyzeElement(nil) = %+v", got)
	}
}

func TestHighlightAndClear(t *testing.T) {
	e, v := newEngine(t, confirmshamingPage, nil)
	rep := scan(t, e)

	n := e.Highlight()
	if n != len(rep.Detections) {
		t.Fatalf("Highlight = %d, want %d", n, len(rep.Detections))
	}

	badges, err := v.Query("." + model.MarkerClass)
	if err != nil {
		t.Fatalf("Query(marker): %v", err)
	}
	if len(badges) != n {
		t.Errorf("markers in document = %d, want %d", len(badges), n)
	}

	links, _ := v.Query("#decline")
	if links[0].Style("outline") == "" {
		t.Error("detected element missing outline after Highlight")
	}

	e.ClearHighlights()
	badges, _ = v.Query("." + model.MarkerClass)
	if len(badges) != 0 {
		t.Errorf("markers remain after ClearHighlights: %d", len(badges))
	}
	if links[0].Style("outline") != "" {
		t.Error("outline remains after ClearHighlights")
	}
}

func TestUpdateConfig(t *testing.T) {
	e, _ := newEngine(t, confirmshamingPage, nil)

	bad := model.DefaultConfig()
	bad.ScanDepth = "recursive"
	if err := e.UpdateConfig(bad); err == nil {
		t.Fatal("invalid scan depth accepted")
	}

	ok := model.DefaultConfig()
	ok.ScanDepth = ""
	if err := e.UpdateConfig(ok); err != nil {
		t.Fatalf("empty scan depth rejected: %v", err)
	}
	if got := e.Config().ScanDepth; got != model.ScanDepthFull {
		t.Errorf("empty depth not defaulted to full: %s", got)
	}
}

func TestScanPage_DisabledClassifiers(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.EnableRuleBased = false
	cfg.EnableAIBased = false
	e, _ := newEngine(t, confirmshamingPage, &cfg)

	rep := scan(t, e)
	if len(rep.Detections) != 0 {
		t.Fatalf("both classifiers disabled but detections reported: %+v", rep.Detections)
	}
	if rep.TotalElements == 0 {
		t.Error("candidates should still be enumerated")
	}
}

func TestResultsAndStats(t *testing.T) {
	e, _ := newEngine(t, confirmshamingPage, nil)
	rep := scan(t, e)

	if got := e.Results(); len(got) != len(rep.Detections) {
		t.Errorf("Results = %d, want %d", len(got), len(rep.Detections))
	}
	if got := e.Stats(); got.TotalDetections != rep.Summary.TotalDetections {
		t.Errorf("Stats total = %d, want %d", got.TotalDetections, rep.Summary.TotalDetections)
	}
}
