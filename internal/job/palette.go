package job

import (
	"strconv"
	"strings"

	"ink-hatch/internal/hatch"
	"ink-hatch/pkg/colorutil"
)

// ParseAngles reads a comma-separated angle list. Blank and non-numeric
// entries are skipped, the rest folded into [0,180). An empty result is [0].
func ParseAngles(text string) []float64 {
	var angles []float64
	for _, field := range strings.Split(text, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			continue
		}
		angles = append(angles, v)
	}
	return hatch.NormalizeAngles(angles)
}

// FormatAngles is the inverse of ParseAngles for a normalized list.
func FormatAngles(angles []float64) string {
	parts := make([]string, len(angles))
	for i, a := range angles {
		parts[i] = hatch.FormatAngle(a)
	}
	return strings.Join(parts, ",")
}

// AutoAngle is the i-th angle of the start/step sequence.
func AutoAngle(start, step float64, i int) float64 {
	return hatch.NormalizeAngle(start + float64(i)*step)
}

// BuildPalette creates one enabled layer per fill color with default spacing
// and stroke, named L0, L1, ... and angled start, start+step, ...
func BuildPalette(colors []string, start, step float64) []LayerSpec {
	layers := make([]LayerSpec, 0, len(colors))
	for i, c := range colors {
		layers = append(layers, LayerSpec{
			Color:      colorutil.NormalizeHex(c),
			Enabled:    true,
			AnglesText: hatch.FormatAngle(AutoAngle(start, step, i)),
			SpacingMM:  DefaultSpacingMM,
			StrokeMM:   DefaultStrokeMM,
			Name:       LayerName(i),
		})
	}
	return layers
}

// RedistributeAngles resets every layer's angle text to the start/step
// sequence, keeping all other settings.
func RedistributeAngles(layers []LayerSpec, start, step float64) {
	for i := range layers {
		layers[i].AnglesText = hatch.FormatAngle(AutoAngle(start, step, i))
	}
}

// MergePalette keeps user settings for colors already configured and appends
// default layers for new colors. Layers for colors no longer present are
// dropped.
func MergePalette(existing []LayerSpec, colors []string, start, step float64) []LayerSpec {
	byColor := make(map[string]LayerSpec, len(existing))
	for _, l := range existing {
		if c := colorutil.NormalizeHex(l.Color); c != "" {
			byColor[c] = l
		}
	}

	fresh := BuildPalette(colors, start, step)
	for i, l := range fresh {
		if prev, ok := byColor[l.Color]; ok {
			prev.Color = l.Color
			fresh[i] = prev
		}
	}
	return fresh
}

// RasterLayer is the single layer used for bitmap sources.
func RasterLayer() LayerSpec {
	return LayerSpec{
		Enabled:    true,
		AnglesText: "0",
		SpacingMM:  DefaultSpacingMM,
		StrokeMM:   DefaultStrokeMM,
		Name:       RasterLayerName,
	}
}
