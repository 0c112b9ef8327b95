package hatch

import (
	"math"

	"ink-hatch/pkg/geometry"

	"gonum.org/v1/gonum/floats"
)

// scanFrame is the rotated (u,v) frame of one hatch angle. u runs along the
// hatch lines, v across them.
type scanFrame struct {
	toScan geometry.AffineTransform // (x,y) -> (u,v), rotation by -theta
	toDoc  geometry.AffineTransform // (u,v) -> (x,y), rotation by +theta

	umin, umax float64
	vmin, vmax float64
}

// newScanFrame computes the padded u and v extents of the document under
// the rotation.
func newScanFrame(deg float64, frame geometry.Rect) scanFrame {
	theta := deg * math.Pi / 180
	f := scanFrame{
		toScan: geometry.Rotation(-theta),
		toDoc:  geometry.Rotation(theta),
	}

	var us, vs [4]float64
	for i, c := range frame.Corners() {
		p := f.toScan.Apply(c)
		us[i], vs[i] = p.X, p.Y
	}
	f.umin = floats.Min(us[:]) - coverPadMM
	f.umax = floats.Max(us[:]) + coverPadMM
	f.vmin = floats.Min(vs[:]) - coverPadMM
	f.vmax = floats.Max(vs[:]) + coverPadMM
	return f
}

// gridSteps returns the integer range [first, last] such that every k*step
// lies in [lo, hi]. Scanlines and samples sit on multiples of their step.
func gridSteps(lo, hi, step float64) (first, last int) {
	return int(math.Ceil(lo / step)), int(math.Floor(hi / step))
}

// sampler looks up a layer's mask at document coordinates.
type sampler struct {
	grid     Grid
	w, h     int
	pxX, pxY float64
	frame    geometry.Rect
}

func newSampler(g Grid, frame geometry.Rect) sampler {
	w, h := g.Dims()
	return sampler{
		grid:  g,
		w:     w,
		h:     h,
		pxX:   float64(w) / frame.Width,
		pxY:   float64(h) / frame.Height,
		frame: frame,
	}
}

// inked samples the nearest pixel. The document's far edges round to one
// past the last pixel and are pulled back onto it, so a full mask yields
// lines spanning the whole document, far edge included. Anything further
// out reads as unmasked.
func (s sampler) inked(p geometry.Point2D) bool {
	px := int(math.Round(p.X * s.pxX))
	py := int(math.Round(p.Y * s.pxY))
	if px == s.w {
		px = s.w - 1
	}
	if py == s.h {
		py = s.h - 1
	}
	return s.grid.At(px, py)
}

// sweep hatches one layer at one angle.
func sweep(l Layer, deg float64, frame geometry.Rect, samplesPerMM, mergeGap float64) []Polyline {
	sf := newScanFrame(deg, frame)
	smp := newSampler(l.Mask, frame)
	label := Label(l.Label, deg)
	step := 1 / samplesPerMM

	kFirst, kLast := gridSteps(sf.vmin, sf.vmax, l.Spacing)
	jFirst, jLast := gridSteps(sf.umin, sf.umax, step)

	var out []Polyline
	for k := kFirst; k <= kLast; k++ {
		v := float64(k) * l.Spacing
		runs := scanRuns(sf, smp, v, step, jFirst, jLast)
		for _, run := range mergeRuns(runs, mergeGap) {
			if len(run) < 2 {
				continue
			}
			out = append(out, Polyline{
				Label:         label,
				StrokeWidthMM: l.StrokeWidth,
				Points:        run,
			})
		}
	}
	return out
}

// scanRuns walks one scanline in increasing u and collects the runs of
// inked samples. Samples outside the document are skipped; runs of a single
// sample are dropped.
func scanRuns(sf scanFrame, smp sampler, v, step float64, jFirst, jLast int) [][]geometry.Point2D {
	var runs [][]geometry.Point2D
	var cur []geometry.Point2D

	closeRun := func() {
		if len(cur) >= 2 {
			runs = append(runs, cur)
		}
		cur = nil
	}

	for j := jFirst; j <= jLast; j++ {
		u := float64(j) * step
		p := sf.toDoc.Apply(geometry.Point2D{X: u, Y: v})
		if !smp.frame.ContainsTol(p, edgeTolMM) {
			continue
		}
		p = smp.frame.Clamp(p)

		if smp.inked(p) {
			cur = append(cur, p)
		} else if cur != nil {
			closeRun()
		}
	}
	closeRun()

	return runs
}

// mergeRuns joins consecutive runs whose gap (last point to next first
// point) is at most mergeGap. The comparison is inclusive.
func mergeRuns(runs [][]geometry.Point2D, mergeGap float64) [][]geometry.Point2D {
	if len(runs) == 0 {
		return nil
	}

	merged := make([][]geometry.Point2D, 0, len(runs))
	cur := runs[0]
	for _, next := range runs[1:] {
		gap := cur[len(cur)-1].Distance(next[0])
		if gap <= mergeGap {
			cur = append(cur, next...)
			continue
		}
		merged = append(merged, cur)
		cur = next
	}
	return append(merged, cur)
}
