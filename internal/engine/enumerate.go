package engine

import (
	"github.com/raysh454/kage/internal/docview"
	"github.com/raysh454/kage/internal/features"
	"github.com/raysh454/kage/internal/logging"
	"github.com/raysh454/kage/internal/model"
)

// interactiveSelectors pick up everything a user can act on.
var interactiveSelectors = []string{
	"a", "button", "input", "select", "textarea",
	"[onclick]", "[role=button]",
}

// suspiciousClassSelectors pick up containers whose class naming hints at
// dark-pattern plumbing.
var suspiciousClassSelectors = []string{
	"[class*=modal]", "[class*=popup]", "[class*=overlay]",
	"[class*=banner]", "[class*=urgent]", "[class*=countdown]",
	"[class*=timer]", "[class*=sponsored]",
}

// enumerate builds the candidate set: interactive elements, suspicious-class
// elements and (at full depth) the deepest elements whose text matches the
// manipulative-phrase bank. Candidates are deduplicated by identity, then
// elements matching any exclusion selector are dropped. Invalid selectors are
// logged and skipped, never fatal.
func (e *Engine) enumerate(cfg *model.Config) []docview.Element {
	if e.view == nil {
		return nil
	}

	var candidates []docview.Element
	seen := map[any]struct{}{}

	add := func(el docview.Element) {
		if _, dup := seen[el.Key()]; dup {
			return
		}
		seen[el.Key()] = struct{}{}
		candidates = append(candidates, el)
	}

	for _, sel := range append(append([]string{}, interactiveSelectors...), suspiciousClassSelectors...) {
		els, err := e.view.Query(sel)
		if err != nil {
			e.logger.Warn("candidate selector skipped",
				logging.Field{Key: "selector", Value: sel},
				logging.Field{Key: "error", Value: err.Error()})
			continue
		}
		for _, el := range els {
			add(el)
		}
	}

	if cfg.ScanDepth == model.ScanDepthFull {
		for _, el := range e.manipulativeTextElements() {
			add(el)
		}
	}

	excluded := e.excludedKeys(cfg)
	if len(excluded) == 0 {
		return candidates
	}
	kept := candidates[:0]
	for _, el := range candidates {
		if _, skip := excluded[el.Key()]; !skip {
			kept = append(kept, el)
		}
	}
	return kept
}

// manipulativeTextElements returns the deepest elements whose text content
// matches the phrase bank. Matching on the deepest container keeps ancestors
// like <body> out of the candidate set even though their aggregate text also
// matches.
func (e *Engine) manipulativeTextElements() []docview.Element {
	all, err := e.view.Query("*")
	if err != nil {
		e.logger.Warn("text enumeration failed", logging.Field{Key: "error", Value: err.Error()})
		return nil
	}

	var out []docview.Element
	for _, el := range all {
		if !features.HasManipulativeText(el.Text()) {
			continue
		}
		childMatches := false
		for _, c := range el.Children() {
			if features.HasManipulativeText(c.Text()) {
				childMatches = true
				break
			}
		}
		if !childMatches {
			out = append(out, el)
		}
	}
	return out
}

func (e *Engine) excludedKeys(cfg *model.Config) map[any]struct{} {
	excluded := map[any]struct{}{}
	for _, sel := range cfg.ExcludeSelectors {
		els, err := e.view.Query(sel)
		if err != nil {
			e.logger.Warn("exclusion selector skipped",
				logging.Field{Key: "selector", Value: sel},
				logging.Field{Key: "error", Value: err.Error()})
			continue
		}
		for _, el := range els {
			excluded[el.Key()] = struct{}{}
		}
	}
	return excluded
}
