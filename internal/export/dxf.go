package export

import (
	"bufio"
	"io"
	"math"
	"strconv"
	"strings"

	"ink-hatch/internal/hatch"
)

// DXF constants.
const (
	// UnitsMillimeters is the $INSUNITS code for millimeters.
	UnitsMillimeters = 4

	// MaxLineWeight is the largest DXF lineweight, in hundredths of a mm.
	MaxLineWeight = 211
)

// LineWeight converts a stroke width in mm to a DXF lineweight, saturating
// at the representable range instead of failing.
func LineWeight(strokeMM float64) int {
	lw := int(math.Round(strokeMM * 100))
	return max(0, min(MaxLineWeight, lw))
}

var layerNameReplacer = strings.NewReplacer(
	"<", "_", ">", "_", "/", "_", `\`, "_", `"`, "_", ":", "_",
	";", "_", "?", "_", "*", "_", "|", "_", "=", "_", ",", "_", "`", "_",
)

// LayerName makes a label usable as a DXF layer name.
func LayerName(label string) string {
	name := layerNameReplacer.Replace(strings.TrimSpace(label))
	if name == "" {
		return "0"
	}
	return name
}

// ToDXF renders the document as a DXF group-code stream.
func ToDXF(doc *hatch.Document) string {
	var sb strings.Builder
	_ = WriteDXF(&sb, doc)
	return sb.String()
}

// WriteDXF streams a HEADER section declaring millimeter units and an
// ENTITIES section with one open LWPOLYLINE per polyline.
func WriteDXF(w io.Writer, doc *hatch.Document) error {
	d := dxfWriter{bw: bufio.NewWriter(w)}

	d.pair(0, "SECTION")
	d.pair(2, "HEADER")
	d.pair(9, "$INSUNITS")
	d.pair(70, strconv.Itoa(UnitsMillimeters))
	d.pair(0, "ENDSEC")

	d.pair(0, "SECTION")
	d.pair(2, "ENTITIES")
	for _, pl := range doc.Polylines {
		d.pair(0, "LWPOLYLINE")
		d.pair(8, LayerName(pl.Label))
		d.pair(90, strconv.Itoa(len(pl.Points)))
		d.pair(70, "0") // Open
		d.pair(370, strconv.Itoa(LineWeight(pl.StrokeWidthMM)))
		for _, p := range pl.Points {
			d.pair(10, formatCoord(p.X))
			d.pair(20, formatCoord(p.Y))
		}
	}
	d.pair(0, "ENDSEC")
	d.pair(0, "EOF")

	return d.bw.Flush()
}

type dxfWriter struct {
	bw *bufio.Writer
}

func (d dxfWriter) pair(code int, value string) {
	d.bw.WriteString(strconv.Itoa(code))
	d.bw.WriteByte('\n')
	d.bw.WriteString(value)
	d.bw.WriteByte('\n')
}

// formatCoord prints at most six decimals with trailing zeros trimmed.
func formatCoord(v float64) string {
	s := strconv.FormatFloat(v, 'f', 6, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	switch s {
	case "", "-", "-0":
		return "0"
	}
	return s
}
