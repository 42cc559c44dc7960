package features

import (
	"math"
	"strconv"
	"strings"

	"github.com/raysh454/kage/internal/docview"
	"github.com/raysh454/kage/internal/logging"
)

// primaryActionSelectors locate the page's primary commercial actions, used
// for the proximity feature.
var primaryActionSelectors = []string{
	"button[type=submit]",
	"input[type=submit]",
	".checkout",
	".buy",
	".buy-now",
	".add-to-cart",
	".purchase",
}

// Extractor derives a FeatureSet from an element and its ancestry. It holds
// the document view for page-level lookups (primary actions) but keeps no
// per-scan state.
type Extractor struct {
	view   docview.View
	logger logging.Logger
}

// NewExtractor constructs an extractor bound to one document view.
func NewExtractor(view docview.View, logger logging.Logger) *Extractor {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Extractor{
		view:   view,
		logger: logger.With(logging.Field{Key: "component", Value: "features"}),
	}
}

// Extract computes all four feature groups. It never fails: missing or
// malformed style and geometry data degrade to neutral defaults.
func (x *Extractor) Extract(el docview.Element) *FeatureSet {
	if el == nil {
		return &FeatureSet{Visual: neutralVisual()}
	}
	text := el.Text()
	return &FeatureSet{
		Text:       x.textFeatures(text),
		Visual:     x.visualFeatures(el),
		Behavioral: x.behavioralFeatures(el, text),
		Context:    x.contextFeatures(el),
	}
}

func (x *Extractor) textFeatures(text string) TextFeatures {
	f := TextFeatures{Length: len(text)}
	if text == "" {
		return f
	}

	words := strings.Fields(strings.ToLower(text))
	var pos, neg, urgent int
	for _, w := range words {
		w = tokenStrip.ReplaceAllString(w, "")
		if w == "" {
			continue
		}
		if _, ok := negativeLexicon[w]; ok {
			neg++
		}
		if _, ok := positiveLexicon[w]; ok {
			pos++
		}
		if _, ok := urgencyLexicon[w]; ok {
			urgent++
		}
	}
	if len(words) > 0 {
		f.SentimentScore = float64(pos-neg) / float64(len(words))
	}
	f.HasNegativeLanguage = neg > 0
	f.HasUrgentLanguage = urgent > 0
	f.HasNumericClaim = digitRe.MatchString(text)

	for _, phrase := range manipulativePhrases {
		if phrase.MatchString(text) {
			f.HasManipulativePhrase = true
			f.ManipulativePenalty -= manipulativePhrasePenalty
		}
	}
	return f
}

func (x *Extractor) visualFeatures(el docview.Element) VisualFeatures {
	f := neutralVisual()

	if op := el.Style("opacity"); op != "" {
		if v, err := strconv.ParseFloat(strings.TrimSpace(op), 64); err == nil && v >= 0 && v <= 1 {
			f.Opacity = v
		}
	}
	if fs := el.Style("font-size"); fs != "" {
		if v := parsePx(fs); v > 0 {
			f.FontSize = v
		}
	}

	fg := el.Style("color")
	bg := effectiveBackground(el)
	f.ForegroundLuminance = luminance(fg)
	f.BackgroundLuminance = luminance(bg)
	if fg == "" {
		// No declared text color means no contrast evidence; scoring it as
		// deceptive would flag every unstyled element on the page.
		f.ContrastRatio = maxContrastRatio
	} else {
		f.ContrastRatio = contrastRatio(f.ForegroundLuminance, f.BackgroundLuminance)
	}

	f.ZIndex = parseZIndex(el.Style("z-index"))
	pos := strings.ToLower(el.Style("position"))
	positioned := pos == "fixed" || pos == "absolute"
	f.IsOverlay = positioned && f.ZIndex > 1000

	anim := el.Style("animation")
	trans := el.Style("transition")
	f.HasAnimation = (anim != "" && anim != "none") || (trans != "" && trans != "none")

	f.Visible = !strings.EqualFold(el.Style("display"), "none") &&
		!strings.EqualFold(el.Style("visibility"), "hidden") &&
		f.Opacity > 0

	return f
}

func (x *Extractor) behavioralFeatures(el docview.Element, text string) BehavioralFeatures {
	f := BehavioralFeatures{}

	f.Interactive = isInteractive(el)

	tag := el.Tag()
	f.IsForm = tag == "form" || hasAncestorTag(el, "form")

	f.HasPreselection = isPreselected(el) || subtreeHas(el, isPreselected)
	f.HasHiddenInputs = subtreeHas(el, func(c docview.Element) bool {
		typ, _ := c.Attr("type")
		return c.Tag() == "input" && strings.EqualFold(typ, "hidden")
	})

	f.HasTimeConstraint = countdownRe.MatchString(text) || subtreeHas(el, func(c docview.Element) bool {
		for _, cls := range c.Classes() {
			cls = strings.ToLower(cls)
			if strings.Contains(cls, "timer") || strings.Contains(cls, "countdown") {
				return true
			}
		}
		return false
	})

	// An element blocks user action when it is positioned over the page,
	// still receives pointer events, and sits above normal content.
	pos := strings.ToLower(el.Style("position"))
	positioned := pos == "fixed" || pos == "absolute"
	pe := strings.ToLower(el.Style("pointer-events"))
	f.BlocksUserAction = positioned && pe != "none" && parseZIndex(el.Style("z-index")) > 100

	if onclick, ok := el.Attr("onclick"); ok {
		lc := strings.ToLower(onclick)
		f.HasRedirection = strings.Contains(lc, "location") || strings.Contains(lc, "window.open")
	}

	return f
}

func (x *Extractor) contextFeatures(el docview.Element) ContextualFeatures {
	f := ContextualFeatures{}

	// Ancestor class walk terminates at the document root; no depth bound is
	// required beyond that.
	for p := el; p != nil; p = p.Parent() {
		for _, cls := range p.Classes() {
			cls = strings.ToLower(cls)
			if strings.Contains(cls, "modal") || strings.Contains(cls, "dialog") {
				f.InModal = true
			}
			if strings.Contains(cls, "popup") || strings.Contains(cls, "overlay") {
				f.InPopup = true
			}
			if strings.Contains(cls, "interstitial") || strings.Contains(cls, "splash") || strings.Contains(cls, "autoshow") {
				f.AppearsOnLoad = true
			}
		}
		if _, ok := p.Attr("data-show-on-load"); ok {
			f.AppearsOnLoad = true
		}
	}

	f.ProximityToAction = x.proximityToAction(el)
	return f
}

// proximityToAction finds the nearest primary-action element by Euclidean
// distance between top-left corners. Returns nil when the page has none.
func (x *Extractor) proximityToAction(el docview.Element) *float64 {
	if x.view == nil {
		return nil
	}

	box := el.Box()
	var nearest *float64
	for _, sel := range primaryActionSelectors {
		actions, err := x.view.Query(sel)
		if err != nil {
			x.logger.Warn("primary action selector failed",
				logging.Field{Key: "selector", Value: sel},
				logging.Field{Key: "error", Value: err.Error()})
			continue
		}
		for _, a := range actions {
			if a.Key() == el.Key() {
				continue
			}
			ab := a.Box()
			d := math.Hypot(ab.X-box.X, ab.Y-box.Y)
			if nearest == nil || d < *nearest {
				dist := d
				nearest = &dist
			}
		}
	}
	return nearest
}

func neutralVisual() VisualFeatures {
	return VisualFeatures{
		Opacity:             1,
		ForegroundLuminance: midGrayLuminance,
		BackgroundLuminance: midGrayLuminance,
		ContrastRatio:       maxContrastRatio,
		Visible:             true,
	}
}

func isInteractive(el docview.Element) bool {
	switch el.Tag() {
	case "a", "button", "input", "select", "textarea":
		return true
	}
	if _, ok := el.Attr("onclick"); ok {
		return true
	}
	role, _ := el.Attr("role")
	return strings.EqualFold(role, "button")
}

func isPreselected(el docview.Element) bool {
	if el.Tag() != "input" {
		return false
	}
	typ, _ := el.Attr("type")
	typ = strings.ToLower(typ)
	if typ != "checkbox" && typ != "radio" {
		return false
	}
	_, checked := el.Attr("checked")
	return checked
}

// effectiveBackground walks up from the element to the first ancestor that
// declares a background color. Transparent chains end as "" and luminance
// falls back to mid-gray.
func effectiveBackground(el docview.Element) string {
	for p := el; p != nil; p = p.Parent() {
		for _, prop := range []string{"background-color", "background"} {
			if v := p.Style(prop); v != "" && !strings.EqualFold(v, "transparent") {
				return v
			}
		}
	}
	return ""
}

func hasAncestorTag(el docview.Element, tag string) bool {
	for p := el.Parent(); p != nil; p = p.Parent() {
		if p.Tag() == tag {
			return true
		}
	}
	return false
}

// subtreeHas walks the element's descendants until pred matches.
func subtreeHas(el docview.Element, pred func(docview.Element) bool) bool {
	for _, c := range el.Children() {
		if pred(c) || subtreeHas(c, pred) {
			return true
		}
	}
	return false
}

func parsePx(v string) float64 {
	v = strings.TrimSuffix(strings.TrimSpace(v), "px")
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return f
}

func parseZIndex(v string) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0
	}
	return n
}
