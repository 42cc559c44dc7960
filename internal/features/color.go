package features

import (
	"strconv"
	"strings"
)

// midGrayLuminance is the fallback for colors that cannot be parsed.
const midGrayLuminance = 128.0

// maxContrastRatio is the ratio reported when no text color is declared at
// all; with zero evidence the element is assumed readable.
const maxContrastRatio = 21.0

// namedColors covers the handful of keywords that show up in real inline
// styles. Everything else falls back to mid-gray.
var namedColors = map[string][3]uint8{
	"black":  {0, 0, 0},
	"white":  {255, 255, 255},
	"red":    {255, 0, 0},
	"green":  {0, 128, 0},
	"blue":   {0, 0, 255},
	"yellow": {255, 255, 0},
	"gray":   {128, 128, 128},
	"grey":   {128, 128, 128},
	"orange": {255, 165, 0},
	"purple": {128, 0, 128},
}

// luminance computes the weighted-RGB luminance (0.299R + 0.587G + 0.114B)
// of a CSS color value, in [0, 255]. Un-parseable input yields mid-gray 128.
func luminance(cssColor string) float64 {
	r, g, b, ok := parseCSSColor(cssColor)
	if !ok {
		return midGrayLuminance
	}
	return 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
}

// contrastRatio is (lighter + 0.05) / (darker + 0.05) over luminances
// normalized to [0, 1], the standard approximate contrast formula.
func contrastRatio(lumA, lumB float64) float64 {
	a := lumA / 255
	b := lumB / 255
	if a < b {
		a, b = b, a
	}
	return (a + 0.05) / (b + 0.05)
}

// parseCSSColor handles #rgb, #rrggbb, rgb()/rgba() and a few named colors.
func parseCSSColor(v string) (r, g, b uint8, ok bool) {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return 0, 0, 0, false
	}

	if c, found := namedColors[v]; found {
		return c[0], c[1], c[2], true
	}

	if strings.HasPrefix(v, "#") {
		return parseHexColor(v[1:])
	}

	if strings.HasPrefix(v, "rgb(") || strings.HasPrefix(v, "rgba(") {
		inner := v[strings.Index(v, "(")+1:]
		inner = strings.TrimSuffix(inner, ")")
		parts := strings.Split(inner, ",")
		if len(parts) < 3 {
			return 0, 0, 0, false
		}
		var ch [3]uint8
		for i := 0; i < 3; i++ {
			n, err := strconv.Atoi(strings.TrimSpace(parts[i]))
			if err != nil || n < 0 || n > 255 {
				return 0, 0, 0, false
			}
			ch[i] = uint8(n)
		}
		return ch[0], ch[1], ch[2], true
	}

	return 0, 0, 0, false
}

func parseHexColor(hex string) (r, g, b uint8, ok bool) {
	switch len(hex) {
	case 3:
		expanded := make([]byte, 6)
		for i := 0; i < 3; i++ {
			expanded[2*i] = hex[i]
			expanded[2*i+1] = hex[i]
		}
		hex = string(expanded)
	case 6:
	default:
		return 0, 0, 0, false
	}

	n, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, 0, 0, false
	}
	return uint8(n >> 16), uint8(n >> 8 & 0xff), uint8(n & 0xff), true
}
