package docview

import (
	"strconv"
	"strings"
)

// declaration is one "prop: value" pair from an inline style attribute.
// Order is preserved so style writes round-trip without reshuffling.
type declaration struct {
	prop  string
	value string
}

// parseInlineStyle splits a style attribute into declarations. Malformed
// segments (no colon, empty property) are dropped silently.
func parseInlineStyle(style string) []declaration {
	if style == "" {
		return nil
	}
	parts := strings.Split(style, ";")
	out := make([]declaration, 0, len(parts))
	for _, part := range parts {
		kv := strings.SplitN(part, ":", 2)
		if len(kv) != 2 {
			continue
		}
		prop := strings.ToLower(strings.TrimSpace(kv[0]))
		if prop == "" {
			continue
		}
		out = append(out, declaration{prop: prop, value: strings.TrimSpace(kv[1])})
	}
	return out
}

// serializeInlineStyle joins declarations back into a style attribute value.
func serializeInlineStyle(decls []declaration) string {
	if len(decls) == 0 {
		return ""
	}
	var b strings.Builder
	for i, d := range decls {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(d.prop)
		b.WriteString(": ")
		b.WriteString(d.value)
	}
	return b.String()
}

// styleValue returns the last declaration for prop, CSS cascade style.
func styleValue(decls []declaration, prop string) string {
	prop = strings.ToLower(prop)
	val := ""
	for _, d := range decls {
		if d.prop == prop {
			val = d.value
		}
	}
	return val
}

// parsePixels converts values like "120px", "120", "12.5px" to a float.
// Anything unparseable yields 0.
func parsePixels(v string) float64 {
	v = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(v), "px"))
	if v == "" {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return f
}
