package export

import (
	"image"
	"image/draw"
	"image/png"
	"io"
	"math"

	"ink-hatch/internal/hatch"
	"ink-hatch/pkg/colorutil"

	"github.com/srwiley/rasterx"
	"golang.org/x/image/math/fixed"
)

// PreviewOptions configures the raster preview.
type PreviewOptions struct {
	PxPerMM float64 // Raster resolution
	MaxDim  int     // Cap on the longer image side, in pixels
}

// DefaultPreviewOptions returns 4 px/mm capped at 2000 px.
func DefaultPreviewOptions() PreviewOptions {
	return PreviewOptions{PxPerMM: 4, MaxDim: 2000}
}

// RenderPreview strokes every polyline black on white, with round caps and
// joins at its stroke width.
func RenderPreview(doc *hatch.Document, opts PreviewOptions) *image.RGBA {
	scale := opts.PxPerMM
	if scale <= 0 {
		scale = DefaultPreviewOptions().PxPerMM
	}
	if opts.MaxDim > 0 {
		longest := math.Max(doc.WidthMM, doc.HeightMM) * scale
		if longest > float64(opts.MaxDim) {
			scale *= float64(opts.MaxDim) / longest
		}
	}

	w := max(1, int(math.Ceil(doc.WidthMM*scale)))
	h := max(1, int(math.Ceil(doc.HeightMM*scale)))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(colorutil.White), image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(w, h, img, img.Bounds())
	dasher := rasterx.NewDasher(w, h, scanner)
	dasher.SetColor(colorutil.Black)

	for _, pl := range doc.Polylines {
		if len(pl.Points) < 2 {
			continue
		}
		stroke := math.Max(pl.StrokeWidthMM*scale, 1)
		dasher.Clear()
		dasher.SetStroke(fixed.Int26_6(stroke*64), 0, rasterx.RoundCap, rasterx.RoundCap, rasterx.RoundGap, rasterx.Round, nil, 0)
		dasher.Start(rasterx.ToFixedP(pl.Points[0].X*scale, pl.Points[0].Y*scale))
		for _, p := range pl.Points[1:] {
			dasher.Line(rasterx.ToFixedP(p.X*scale, p.Y*scale))
		}
		dasher.Stop(false)
		dasher.Draw()
	}

	return img
}

// WritePreview encodes the preview as PNG.
func WritePreview(w io.Writer, doc *hatch.Document, opts PreviewOptions) error {
	return png.Encode(w, RenderPreview(doc, opts))
}
