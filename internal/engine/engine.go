// Package engine orchestrates detection: it enumerates candidate elements,
// runs signature rules and heuristic scoring per element, fuses both into one
// verdict and aggregates a page-level summary.
package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/raysh454/kage/internal/docview"
	"github.com/raysh454/kage/internal/features"
	"github.com/raysh454/kage/internal/heuristics"
	"github.com/raysh454/kage/internal/logging"
	"github.com/raysh454/kage/internal/model"
	"github.com/raysh454/kage/internal/rules"
)

// Engine is stateless across scans except for the last scan's results and the
// persistent configuration. A scan always starts by clearing prior results.
type Engine struct {
	view      docview.View
	registry  *rules.Registry
	extractor *features.Extractor
	scorer    *heuristics.Scorer
	logger    logging.Logger

	mu         sync.Mutex
	cfg        *model.Config
	results    []model.Detection
	resultRefs []docview.Element
	markers    []docview.Element
	highlights []docview.Element
}

// New constructs an engine over a document view. A nil registry gets the
// builtin rule bank; a nil config gets defaults.
func New(view docview.View, registry *rules.Registry, cfg *model.Config, logger logging.Logger) *Engine {
	if logger == nil {
		logger = logging.Nop()
	}
	logger = logger.With(logging.Field{Key: "component", Value: "engine"})
	if registry == nil {
		registry = rules.NewDefaultRegistry(logger)
	}
	if cfg == nil {
		def := model.DefaultConfig()
		cfg = &def
	}
	return &Engine{
		view:      view,
		registry:  registry,
		extractor: features.NewExtractor(view, logger),
		scorer:    heuristics.NewScorer(),
		logger:    logger,
		cfg:       cfg,
	}
}

// Registry exposes the rule registry so callers can append custom rules.
func (e *Engine) Registry() *rules.Registry { return e.registry }

// Config returns a copy of the current configuration.
func (e *Engine) Config() model.Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	cp := *e.cfg
	cp.ExcludeSelectors = append([]string(nil), e.cfg.ExcludeSelectors...)
	return cp
}

// UpdateConfig replaces the engine configuration. Invalid scan depths are
// rejected; everything else is taken as-is.
func (e *Engine) UpdateConfig(cfg model.Config) error {
	if cfg.ScanDepth == "" {
		cfg.ScanDepth = model.ScanDepthFull
	}
	if !cfg.ScanDepth.Valid() {
		return fmt.Errorf("engine: unknown scan depth %q", cfg.ScanDepth)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg = &cfg
	return nil
}

// SetSuspicionThreshold adjusts the heuristic scorer's threshold (clamped to [0,1]).
func (e *Engine) SetSuspicionThreshold(t float64) { e.scorer.SetThreshold(t) }

// SuspicionThreshold returns the scorer's current threshold.
func (e *Engine) SuspicionThreshold() float64 { return e.scorer.Threshold() }

// AnalyzeElement evaluates a single element and returns its detection, or nil
// when nothing was detected. Analysis is a pure function of current element
// state and configuration; repeated calls on an unchanged element yield
// identical verdicts.
func (e *Engine) AnalyzeElement(ctx context.Context, el docview.Element) *model.Detection {
	if el == nil {
		return nil
	}
	det := e.analyze(el)
	if !det.Detected {
		return nil
	}
	return det
}

// analyze produces the fused detection for one element, detected or not.
func (e *Engine) analyze(el docview.Element) *model.Detection {
	e.mu.Lock()
	cfg := e.cfg
	e.mu.Unlock()

	var matches []model.RuleMatch
	if cfg.EnableRuleBased {
		matches = e.registry.Evaluate(el)
	}

	var verdict *model.HeuristicVerdict
	if cfg.EnableAIBased {
		verdict = e.scorer.Score(e.extractor.Extract(el))
	}

	det := &model.Detection{
		Element:     snapshot(el),
		RuleMatches: matches,
		Heuristic:   verdict,
	}
	det.Detected = len(matches) > 0 || (verdict != nil && verdict.IsDarkPattern)
	if det.Detected {
		det.Confidence = fuseConfidence(matches, verdict)
		det.Severity = fuseSeverity(matches, verdict)
		det.Recommendations = recommendations(matches, verdict)
	}
	return det
}

// ScanPage enumerates candidates and analyzes each one. With Workers > 1 the
// per-element analyses fan out through a bounded errgroup; element analyses
// share no mutable state, so only the results accumulator needs the lock, and
// summary generation waits for the join.
func (e *Engine) ScanPage(ctx context.Context) (*model.ScanReport, error) {
	start := time.Now()

	e.mu.Lock()
	e.results = nil
	e.resultRefs = nil
	cfg := e.cfg
	e.mu.Unlock()

	candidates := e.enumerate(cfg)
	e.logger.Info("scan started",
		logging.Field{Key: "candidates", Value: len(candidates)},
		logging.Field{Key: "depth", Value: string(cfg.ScanDepth)})

	type outcome struct {
		det *model.Detection
		ref docview.Element
	}
	outcomes := make([]outcome, len(candidates))

	if cfg.Workers > 1 {
		g, _ := errgroup.WithContext(ctx)
		g.SetLimit(cfg.Workers)
		for i, el := range candidates {
			g.Go(func() error {
				outcomes[i] = outcome{det: e.analyze(el), ref: el}
				return nil
			})
		}
		// analyses never return errors; the join barrier is what matters
		_ = g.Wait()
	} else {
		for i, el := range candidates {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			outcomes[i] = outcome{det: e.analyze(el), ref: el}
		}
	}

	var detections []model.Detection
	var refs []docview.Element
	for _, o := range outcomes {
		if o.det != nil && o.det.Detected {
			detections = append(detections, *o.det)
			refs = append(refs, o.ref)
		}
	}

	report := &model.ScanReport{
		Timestamp:     start.UTC(),
		Elapsed:       time.Since(start),
		TotalElements: len(candidates),
		Detections:    detections,
		Summary:       summarize(detections),
	}
	if report.Detections == nil {
		report.Detections = []model.Detection{}
	}

	e.mu.Lock()
	e.results = detections
	e.resultRefs = refs
	e.mu.Unlock()

	e.logger.Info("scan finished",
		logging.Field{Key: "detections", Value: len(detections)},
		logging.Field{Key: "elapsed", Value: report.Elapsed.String()})
	return report, nil
}

// Results returns the last scan's detections.
func (e *Engine) Results() []model.Detection {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]model.Detection(nil), e.results...)
}

// Stats summarizes the last scan's detections.
func (e *Engine) Stats() model.Summary {
	e.mu.Lock()
	defer e.mu.Unlock()
	return summarize(e.results)
}

// Highlight outlines every detected element from the last scan and drops a
// severity badge next to it. Returns the number of highlighted elements.
// Purely presentational and fully reversible via ClearHighlights.
func (e *Engine) Highlight() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	count := 0
	for i, el := range e.resultRefs {
		if el == nil {
			continue
		}
		el.SetStyle("outline", outlineFor(e.results[i].Severity))
		el.SetStyle("outline-offset", "2px")
		e.highlights = append(e.highlights, el)
		if m := e.view.InsertMarker(el, string(e.results[i].Severity)); m != nil {
			e.markers = append(e.markers, m)
		}
		count++
	}
	return count
}

// ClearHighlights reverses Highlight.
func (e *Engine) ClearHighlights() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, el := range e.highlights {
		el.RemoveStyle("outline")
		el.RemoveStyle("outline-offset")
	}
	e.highlights = nil
	for _, m := range e.markers {
		e.view.Remove(m)
	}
	e.markers = nil
}

func outlineFor(s model.Severity) string {
	switch s {
	case model.SeverityHigh:
		return "3px solid #d32f2f"
	case model.SeverityMedium:
		return "3px solid #f57c00"
	default:
		return "3px solid #fbc02d"
	}
}

// snapshot captures element info at detection time so reports survive later
// document mutation.
func snapshot(el docview.Element) model.ElementInfo {
	text := el.Text()
	const excerptLen = 120
	if len(text) > excerptLen {
		text = text[:excerptLen] + "…"
	}
	visible := !strings.EqualFold(el.Style("display"), "none") &&
		!strings.EqualFold(el.Style("visibility"), "hidden")
	return model.ElementInfo{
		Tag:         el.Tag(),
		TextExcerpt: text,
		Path:        el.Path(),
		Box:         el.Box(),
		Visible:     visible,
	}
}
