// Package rules implements the signature side of detection: an ordered
// registry of named, categorized rules. Each rule pairs a list of text
// patterns with an optional structural predicate; either side matching is
// enough. Rules are high-precision by construction, so every match carries
// the same fixed confidence.
package rules

import (
	"errors"
	"fmt"
	"regexp"
	"sync"

	"github.com/raysh454/kage/internal/docview"
	"github.com/raysh454/kage/internal/logging"
	"github.com/raysh454/kage/internal/model"
)

var (
	// ErrDuplicateRule is returned when registering a rule whose ID is taken.
	// Duplicate IDs are rejected outright: rule identity feeds category counts,
	// so silent last-wins would corrupt summaries.
	ErrDuplicateRule = errors.New("rules: duplicate rule id")

	// ErrInvalidRule is returned for rules missing an ID or using an unknown
	// category or severity.
	ErrInvalidRule = errors.New("rules: invalid rule")
)

// StructuralPredicate inspects an element's structure (tag, attributes,
// style). Returning an error is treated as a non-match, never as a scan
// failure.
type StructuralPredicate func(el docview.Element) (bool, error)

// Rule is one detection signature. Immutable once registered.
type Rule struct {
	ID       string
	Name     string
	Category model.Category
	Severity model.Severity

	// Patterns are tried in order against the element's full text content.
	// The first hit matches the rule; remaining patterns are skipped.
	Patterns []*regexp.Regexp

	// Predicate is consulted only when no text pattern matched.
	Predicate StructuralPredicate
}

// Registry is an ordered, append-only collection of rules.
type Registry struct {
	mu     sync.RWMutex
	rules  []Rule
	ids    map[string]struct{}
	logger logging.Logger
}

// NewRegistry returns an empty registry.
func NewRegistry(logger logging.Logger) *Registry {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Registry{
		ids:    map[string]struct{}{},
		logger: logger.With(logging.Field{Key: "component", Value: "rules"}),
	}
}

// NewDefaultRegistry returns a registry preloaded with the builtin rule bank.
func NewDefaultRegistry(logger logging.Logger) *Registry {
	r := NewRegistry(logger)
	for _, rule := range builtinRules() {
		// Builtins are statically defined; a registration failure here is a
		// programming error, not a runtime condition.
		if err := r.Register(rule); err != nil {
			panic(fmt.Sprintf("rules: builtin registration failed: %v", err))
		}
	}
	return r
}

// Register appends a rule. The ID must be unique and the category and
// severity must come from the closed enums.
func (r *Registry) Register(rule Rule) error {
	if rule.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidRule)
	}
	if !rule.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidRule, rule.Category)
	}
	if rule.Severity.Rank() == 0 {
		return fmt.Errorf("%w: unknown severity %q", ErrInvalidRule, rule.Severity)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.ids[rule.ID]; taken {
		return fmt.Errorf("%w: %q", ErrDuplicateRule, rule.ID)
	}
	r.ids[rule.ID] = struct{}{}
	r.rules = append(r.rules, rule)
	return nil
}

// Rules returns a snapshot of the registered rules in registration order.
func (r *Registry) Rules() []Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Rule(nil), r.rules...)
}

// Len returns the number of registered rules.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rules)
}

// Evaluate runs every rule against the element and returns all matches, in
// rule order. An element may match multiple rules. Within one rule, the first
// satisfied condition short-circuits the rest of that rule's checks.
func (r *Registry) Evaluate(el docview.Element) []model.RuleMatch {
	if el == nil {
		return nil
	}

	text := el.Text()

	r.mu.RLock()
	rules := r.rules
	r.mu.RUnlock()

	var matches []model.RuleMatch
	for i := range rules {
		rule := &rules[i]
		if r.ruleMatches(rule, el, text) {
			matches = append(matches, model.RuleMatch{
				RuleID:     rule.ID,
				RuleName:   rule.Name,
				Category:   rule.Category,
				Severity:   rule.Severity,
				Confidence: model.RuleMatchConfidence,
			})
		}
	}
	return matches
}

// ruleMatches checks one rule: ANY text pattern first, then the structural
// predicate. Predicate errors and panics are logged and treated as non-match.
func (r *Registry) ruleMatches(rule *Rule, el docview.Element, text string) (matched bool) {
	for _, p := range rule.Patterns {
		if p != nil && p.MatchString(text) {
			return true
		}
	}

	if rule.Predicate == nil {
		return false
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Warn("structural predicate panicked",
				logging.Field{Key: "rule_id", Value: rule.ID},
				logging.Field{Key: "panic", Value: fmt.Sprint(rec)})
			matched = false
		}
	}()

	ok, err := rule.Predicate(el)
	if err != nil {
		r.logger.Warn("structural predicate failed",
			logging.Field{Key: "rule_id", Value: rule.ID},
			logging.Field{Key: "error", Value: err.Error()})
		return false
	}
	return ok
}
