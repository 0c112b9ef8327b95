// Package export serializes hatch documents for plotters, lasers and CAD.
package export

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"ink-hatch/internal/hatch"
)

// SVGOptions configures the vector drawing encoder.
type SVGOptions struct {
	Precision   int  // Decimal places for path coordinates and stroke widths
	GroupLayers bool // Wrap each label's paths in a <g id="label"> element
}

// DefaultSVGOptions returns the settings used by ToSVG.
func DefaultSVGOptions() SVGOptions {
	return SVGOptions{Precision: 3}
}

// ToSVG renders the document as a millimeter-sized SVG drawing whose user
// units are document millimeters.
func ToSVG(doc *hatch.Document) string {
	var sb strings.Builder
	_ = WriteSVG(&sb, doc, DefaultSVGOptions())
	return sb.String()
}

// WriteSVG streams the drawing to w. Each polyline becomes one stroked,
// unfilled path with round caps and joins.
func WriteSVG(w io.Writer, doc *hatch.Document, opts SVGOptions) error {
	bw := bufio.NewWriter(w)

	width := strconv.FormatFloat(doc.WidthMM, 'f', -1, 64)
	height := strconv.FormatFloat(doc.HeightMM, 'f', -1, 64)
	fmt.Fprintf(bw, `<svg xmlns="http://www.w3.org/2000/svg" width="%smm" height="%smm" viewBox="0 0 %s %s">`,
		width, height, width, height)
	bw.WriteByte('\n')

	open, grouped := "", false
	ids := make(map[string]int)
	for _, pl := range doc.Polylines {
		if opts.GroupLayers && (!grouped || pl.Label != open) {
			if grouped {
				bw.WriteString("</g>\n")
			}
			fmt.Fprintf(bw, "<g id=\"%s\">\n", xmlEscape(groupID(ids, pl.Label)))
			open, grouped = pl.Label, true
		}
		writePath(bw, pl, opts.Precision)
	}
	if grouped {
		bw.WriteString("</g>\n")
	}

	bw.WriteString("</svg>")
	return bw.Flush()
}

// groupID returns label, suffixed with _2, _3 and so on when a group with
// that id was already written. XML ids must be unique within the document.
func groupID(seen map[string]int, label string) string {
	seen[label]++
	id := label
	for n := seen[label]; n > 1; n++ {
		id = label + "_" + strconv.Itoa(n)
		if seen[id] == 0 {
			seen[id] = 1
			break
		}
	}
	return id
}

func writePath(bw *bufio.Writer, pl hatch.Polyline, prec int) {
	bw.WriteString(`<path d="M `)
	for i, p := range pl.Points {
		if i > 0 {
			bw.WriteString(" L ")
		}
		bw.WriteString(strconv.FormatFloat(p.X, 'f', prec, 64))
		bw.WriteByte(' ')
		bw.WriteString(strconv.FormatFloat(p.Y, 'f', prec, 64))
	}
	fmt.Fprintf(bw, `" stroke="black" stroke-width="%s" fill="none" stroke-linecap="round" stroke-linejoin="round"/>`,
		strconv.FormatFloat(pl.StrokeWidthMM, 'f', prec, 64))
	bw.WriteByte('\n')
}

var xmlReplacer = strings.NewReplacer(`&`, "&amp;", `<`, "&lt;", `>`, "&gt;", `"`, "&quot;", `'`, "&apos;")

func xmlEscape(s string) string {
	return xmlReplacer.Replace(s)
}
