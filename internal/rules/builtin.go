package rules

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/raysh454/kage/internal/docview"
	"github.com/raysh454/kage/internal/model"
)

// builtinRules is the signature bank shipped with the engine. Order matters
// only for deterministic match output; rules are evaluated independently.
func builtinRules() []Rule {
	return []Rule{
		{
			ID:       "confirmshaming",
			Name:     "Guilt-tripping decline option",
			Category: model.CategoryConfirmshaming,
			Severity: model.SeverityMedium,
			Patterns: compile(
				`(?i)i\s+hate`,
				`(?i)no\s+thanks,?\s+i\s+(don'?t|do\s+not)`,
				`(?i)i\s+(don'?t|do\s+not)\s+(care|want)\s+(about|to)`,
				`(?i)i'?d\s+rather\s+(pay\s+full\s+price|miss\s+out|stay\s+uninformed)`,
			),
		},
		{
			ID:       "preselection",
			Name:     "Pre-selected opt-in",
			Category: model.CategorySneaking,
			Severity: model.SeverityMedium,
			Predicate: func(el docview.Element) (bool, error) {
				if el.Tag() != "input" {
					return false, nil
				}
				typ, _ := el.Attr("type")
				typ = strings.ToLower(typ)
				if typ != "checkbox" && typ != "radio" {
					return false, nil
				}
				_, checked := el.Attr("checked")
				return checked, nil
			},
		},
		{
			ID:       "countdown-pressure",
			Name:     "Countdown or deadline pressure",
			Category: model.CategoryUrgencyScarcity,
			Severity: model.SeverityHigh,
			Patterns: compile(
				`(?i)(hurry|act\s+now|last\s+chance)`,
				`(?i)offer\s+(ends|expires)\s+(in|soon|today)`,
				`(?i)expires?\s+in\s+\d+`,
				`(?i)only\s+\d+\s+(left|remaining|in\s+stock)`,
				`(?i)limited\s+time\s+(offer|deal)?`,
			),
		},
		{
			ID:       "fake-scarcity",
			Name:     "Manufactured scarcity claim",
			Category: model.CategoryUrgencyScarcity,
			Severity: model.SeverityMedium,
			Patterns: compile(
				`(?i)\d+\s+(people|others|users)\s+(are\s+)?(viewing|looking\s+at)\s+this`,
				`(?i)selling\s+(out\s+)?fast`,
				`(?i)in\s+high\s+demand`,
			),
		},
		{
			ID:       "hidden-costs",
			Name:     "Costs revealed late",
			Category: model.CategoryHiddenCosts,
			Severity: model.SeverityHigh,
			Patterns: compile(
				`(?i)(additional|extra)\s+fees?\s+(may\s+)?appl(y|ies)`,
				`(?i)(processing|service|convenience)\s+fee`,
				`(?i)\+\s*(shipping|handling|taxes)`,
				`(?i)excludes?\s+(taxes|shipping)`,
			),
		},
		{
			ID:       "forced-continuity",
			Name:     "Trial rolling into paid subscription",
			Category: model.CategoryForcedAction,
			Severity: model.SeverityHigh,
			Patterns: compile(
				`(?i)free\s+trial.{0,60}(credit|debit)\s+card`,
				`(?i)auto[-\s]?renew`,
				`(?i)(subscription|membership)\s+(will\s+)?(continue|renew)s?\s+automatically`,
			),
		},
		{
			ID:       "roach-motel",
			Name:     "Easy in, hard out",
			Category: model.CategoryObstruction,
			Severity: model.SeverityHigh,
			Patterns: compile(
				`(?i)call\s+(us\s+)?to\s+cancel`,
				`(?i)contact\s+(support|customer\s+service|us)\s+to\s+(cancel|close|delete)`,
				`(?i)cancell?ation\s+requests?\s+(must|can\s+only)`,
			),
		},
		{
			ID:       "social-proof-pressure",
			Name:     "Activity-stream social pressure",
			Category: model.CategorySocialProof,
			Severity: model.SeverityLow,
			Patterns: compile(
				`(?i)\d+[,\d]*\s+people\s+(bought|purchased|booked|signed\s+up)`,
				`(?i)join\s+\d+[,\d]*\s+(happy\s+)?(users|members|customers)`,
				`(?i)someone\s+in\s+.{1,30}\s+just\s+(bought|ordered)`,
			),
		},
		{
			ID:       "disguised-ad",
			Name:     "Advertisement styled as content",
			Category: model.CategoryMisdirection,
			Severity: model.SeverityMedium,
			Predicate: func(el docview.Element) (bool, error) {
				tag := el.Tag()
				if tag != "a" && tag != "button" && tag != "div" {
					return false, nil
				}
				for _, c := range el.Classes() {
					c = strings.ToLower(c)
					if strings.Contains(c, "sponsored") || strings.Contains(c, "advert") {
						text := strings.ToLower(el.Text())
						return strings.Contains(text, "download") ||
							strings.Contains(text, "play") ||
							strings.Contains(text, "start"), nil
					}
				}
				return false, nil
			},
		},
		{
			ID:       "trick-question",
			Name:     "Negated or double-negative consent wording",
			Category: model.CategoryMisdirection,
			Severity: model.SeverityMedium,
			Patterns: compile(
				`(?i)uncheck\s+(the\s+box\s+)?(if\s+you\s+)?(to\s+)?opt\s+out`,
				`(?i)do\s+not\s+untick`,
				`(?i)check\s+(this|the)\s+box\s+if\s+you\s+(do\s+not|don'?t)`,
			),
		},
		{
			ID:       "low-visibility-control",
			Name:     "Interactive control rendered nearly invisible",
			Category: model.CategoryVisualInterference,
			Severity: model.SeverityMedium,
			Predicate: func(el docview.Element) (bool, error) {
				switch el.Tag() {
				case "a", "button", "input", "select":
				default:
					return false, nil
				}
				op := el.Style("opacity")
				if op == "" {
					return false, nil
				}
				return parseOpacity(op) < 0.4, nil
			},
		},
		{
			ID:       "bait-and-switch",
			Name:     "Advertised offer swapped at the last step",
			Category: model.CategoryBaitAndSwitch,
			Severity: model.SeverityMedium,
			Patterns: compile(
				`(?i)price\s+has\s+changed`,
				`(?i)no\s+longer\s+available.{0,60}instead`,
				`(?i)we'?ve\s+(updated|upgraded)\s+your\s+(order|selection)`,
			),
		},
		{
			ID:       "sneak-into-basket",
			Name:     "Item added without explicit consent",
			Category: model.CategorySneaking,
			Severity: model.SeverityHigh,
			Patterns: compile(
				`(?i)(added|we'?ve\s+added)\s+.{0,40}\s+to\s+your\s+(cart|basket|order)\s+automatically`,
				`(?i)automatically\s+added\s+to\s+(your\s+)?(cart|basket)`,
			),
		},
		{
			ID:       "nagging-interstitial",
			Name:     "Repeating blocking prompt",
			Category: model.CategoryForcedAction,
			Severity: model.SeverityMedium,
			Patterns: compile(
				`(?i)before\s+you\s+(go|leave|continue)`,
				`(?i)(sign\s+up|subscribe|register)\s+to\s+(continue|keep\s+reading|read\s+more)`,
			),
		},
	}
}

// compile turns pattern literals into regexps. Builtins are static, so
// MustCompile is acceptable here.
func compile(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(p))
	}
	return out
}

// parseOpacity treats unparseable values as fully opaque.
func parseOpacity(v string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 1
	}
	return f
}
