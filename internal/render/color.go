package render

import (
	"image/color"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// ParseColor parses a CSS hex color ("#rgb" or "#rrggbb") or "transparent".
// Anything else draws black.
func ParseColor(s string) color.RGBA {
	c, ok := LookupColor(s)
	if !ok {
		return color.RGBA{A: 0xff}
	}
	return c
}

// LookupColor is ParseColor that reports whether s was understood.
func LookupColor(s string) (color.RGBA, bool) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "transparent" {
		return color.RGBA{}, true
	}
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return color.RGBA{}, false
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 0xff}, true
}
