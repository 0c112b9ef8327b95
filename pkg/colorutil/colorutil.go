// Package colorutil provides shared color utilities for ink-hatch.
package colorutil

import (
	"image/color"
	"strconv"
	"strings"
)

// Common colors used by the exporters and mask sources.
var (
	Black = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// NormalizeHex lowercases a hex color and expands the short #rgb form to
// #rrggbb. Longer forms are cut to #rrggbb (an alpha suffix is dropped).
// Returns "" for anything that is not a hex color.
func NormalizeHex(c string) string {
	c = strings.ToLower(strings.TrimSpace(c))
	if !strings.HasPrefix(c, "#") {
		return ""
	}
	switch {
	case len(c) == 4:
		r, g, b := c[1], c[2], c[3]
		c = string([]byte{'#', r, r, g, g, b, b})
	case len(c) >= 7:
		c = c[:7]
	default:
		return ""
	}
	if _, err := strconv.ParseUint(c[1:], 16, 32); err != nil {
		return ""
	}
	return c
}
