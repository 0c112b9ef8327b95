// Package hatch turns binary ink masks into families of straight hatch
// polylines in document millimeters.
//
// For every layer and every angle a rotated scanline family is swept across
// the document. Samples along each scanline are looked up in the layer's mask
// (nearest pixel), contiguous inked samples become runs, and runs separated by
// no more than the merge gap are joined into one polyline.
package hatch

import (
	"math"
	"runtime"
	"strconv"
	"sync"

	"ink-hatch/pkg/geometry"
)

// Limits applied to request parameters.
const (
	// MinSamplesPerMM bounds the sweep cost; smaller positive densities are
	// raised to it.
	MinSamplesPerMM = 0.2

	// MinWidthMM is the smallest accepted document width.
	MinWidthMM = 0.01

	// coverPadMM pads the rotated document extents so every rotation is
	// fully covered.
	coverPadMM = 1.0

	// edgeTolMM absorbs rounding when testing samples against the document.
	edgeTolMM = 1e-9
)

// Grid is a read-only binary occupancy grid. Out-of-range lookups must
// report false.
type Grid interface {
	Dims() (width, height int)
	At(x, y int) bool
}

// Layer is one independently configured hatch fill.
type Layer struct {
	Mask        Grid
	Angles      []float64 // Degrees; folded into [0,180), empty means [0]
	Spacing     float64   // Scanline distance in mm, measured across the hatch
	StrokeWidth float64   // Stroke width in mm
	Label       string
}

// Request is one generation request. It is never modified by Hatch.
type Request struct {
	WidthMM      float64 // Document width
	SamplesPerMM float64 // Sampling density along each scanline
	MergeGapMM   float64 // Runs closer than this (inclusive) are joined

	// SourceWidth and SourceHeight give the pixel size that fixes the
	// document aspect ratio. Zero means the first layer's mask size.
	SourceWidth  int
	SourceHeight int

	Layers []Layer

	// Workers is the number of (layer, angle) sweeps run concurrently.
	// Zero uses GOMAXPROCS, one runs sequentially.
	Workers int
}

// Polyline is one open hatch stroke.
type Polyline struct {
	Label         string             `json:"label"`
	StrokeWidthMM float64            `json:"stroke_width_mm"`
	Points        []geometry.Point2D `json:"points"`
}

// Document is the engine output consumed by the exporters.
type Document struct {
	WidthMM   float64    `json:"width_mm"`
	HeightMM  float64    `json:"height_mm"`
	Polylines []Polyline `json:"polylines"`
}

// Frame returns the document rectangle [0,W]x[0,H].
func (d *Document) Frame() geometry.Rect {
	return geometry.NewRect(0, 0, d.WidthMM, d.HeightMM)
}

// FrameSize derives the document height from a pixel aspect ratio.
func FrameSize(widthMM float64, pxWidth, pxHeight int) geometry.Size {
	return geometry.NewSize(widthMM, widthMM*float64(pxHeight)/float64(pxWidth))
}

// task is one (layer, angle) sweep.
type task struct {
	layer int
	angle float64
}

// Hatch runs the engine. Output order is input layer order, then angle
// order, then scanline and sampling order; it does not depend on Workers.
func Hatch(req Request) (*Document, error) {
	samples, err := validate(req)
	if err != nil {
		return nil, err
	}

	pxW, pxH := req.SourceWidth, req.SourceHeight
	if pxW == 0 && pxH == 0 {
		if len(req.Layers) > 0 {
			pxW, pxH = req.Layers[0].Mask.Dims()
		} else {
			pxW, pxH = 1, 1
		}
	}
	size := FrameSize(req.WidthMM, pxW, pxH)
	doc := &Document{WidthMM: size.Width, HeightMM: size.Height}
	frame := doc.Frame()

	var tasks []task
	for i, l := range req.Layers {
		for _, a := range NormalizeAngles(l.Angles) {
			tasks = append(tasks, task{layer: i, angle: a})
		}
	}

	results := make([][]Polyline, len(tasks))
	run := func(i int) {
		t := tasks[i]
		results[i] = sweep(req.Layers[t.layer], t.angle, frame, samples, req.MergeGapMM)
	}

	workers := req.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(tasks) {
		workers = len(tasks)
	}

	if workers <= 1 {
		for i := range tasks {
			run(i)
		}
	} else {
		next := make(chan int)
		var wg sync.WaitGroup
		wg.Add(workers)
		for w := 0; w < workers; w++ {
			go func() {
				defer wg.Done()
				for i := range next {
					run(i)
				}
			}()
		}
		for i := range tasks {
			next <- i
		}
		close(next)
		wg.Wait()
	}

	for _, r := range results {
		doc.Polylines = append(doc.Polylines, r...)
	}
	return doc, nil
}

// validate checks every numeric parameter and returns the effective
// sampling density.
func validate(req Request) (float64, error) {
	if !finite(req.WidthMM) || req.WidthMM < MinWidthMM {
		return 0, invalid("widthMM", req.WidthMM, "must be at least 0.01mm")
	}
	if !finite(req.SamplesPerMM) || req.SamplesPerMM <= 0 {
		return 0, invalid("samplesPerMM", req.SamplesPerMM, "must be positive")
	}
	if !finite(req.MergeGapMM) || req.MergeGapMM < 0 {
		return 0, invalid("mergeGapMM", req.MergeGapMM, "must not be negative")
	}
	if req.SourceWidth < 0 || req.SourceHeight < 0 || (req.SourceWidth == 0) != (req.SourceHeight == 0) {
		return 0, invalid("sourceSize", float64(req.SourceWidth), "must give both dimensions")
	}

	for i, l := range req.Layers {
		field := func(name string) string {
			return "layers[" + strconv.Itoa(i) + "]." + name
		}
		if l.Mask == nil {
			return 0, invalid(field("mask"), 0, "is missing")
		}
		if w, h := l.Mask.Dims(); w < 1 || h < 1 {
			return 0, invalid(field("mask"), float64(w*h), "must have at least one pixel")
		}
		if !finite(l.Spacing) || l.Spacing <= 0 {
			return 0, invalid(field("spacing"), l.Spacing, "must be positive")
		}
		if !finite(l.StrokeWidth) || l.StrokeWidth <= 0 {
			return 0, invalid(field("strokeWidth"), l.StrokeWidth, "must be positive")
		}
		for j, a := range l.Angles {
			if !finite(a) {
				return 0, invalid(field("angles["+strconv.Itoa(j)+"]"), a, "must be a number")
			}
		}
	}

	return math.Max(req.SamplesPerMM, MinSamplesPerMM), nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
