package app

import (
	"fmt"
	"log"

	"ink-hatch/internal/hatch"
	"ink-hatch/internal/job"
	"ink-hatch/internal/mask"
)

// SourceOptions derives the mask source settings from a job.
func SourceOptions(f *job.File) (mask.SVGOptions, mask.BitmapOptions) {
	svgOpts := mask.SVGOptions{
		MaxDim:         f.MaxDim,
		AlphaThreshold: uint8(f.AlphaThreshold),
	}
	bmpOpts := mask.BitmapOptions{
		MaxDim:    f.MaxDim,
		Threshold: f.Threshold,
		Invert:    f.Invert,
		Despeckle: f.Despeckle,
	}
	return svgOpts, bmpOpts
}

// ResolveLayers returns the layer settings used for src.
//
// A vector source without configured layers gets the automatic palette of its
// fill colors. A bitmap source has exactly one layer: the first enabled
// colorless layer of the job, or the default RASTER layer.
func ResolveLayers(f *job.File, src mask.Source) []job.LayerSpec {
	if src.Kind() == mask.KindBitmap {
		for _, l := range f.EnabledLayers() {
			if l.Color == "" {
				return []job.LayerSpec{l}
			}
		}
		return []job.LayerSpec{job.RasterLayer()}
	}

	if len(f.Layers) == 0 {
		return job.BuildPalette(src.Colors(), f.AngleStart, f.AngleStep)
	}
	return f.Layers
}

// DocumentWidth is the job width, or the bitmap's physical width when the job
// asks for it and the file carries a resolution.
func DocumentWidth(f *job.File, src mask.Source) float64 {
	if f.WidthFromDPI {
		if bmp, ok := src.(*mask.BitmapSource); ok && bmp.WidthMM() > 0 {
			return bmp.WidthMM()
		}
	}
	return f.WidthMM
}

// BuildRequest produces one mask per enabled layer and assembles the engine
// request. The first layer whose mask cannot be produced aborts the request.
func BuildRequest(f *job.File, layers []job.LayerSpec, src mask.Source, workers int) (hatch.Request, error) {
	w, h := src.Size()
	req := hatch.Request{
		WidthMM:      DocumentWidth(f, src),
		SamplesPerMM: f.SamplesPerMM,
		MergeGapMM:   f.MergeGapMM,
		SourceWidth:  w,
		SourceHeight: h,
		Workers:      workers,
	}

	for _, spec := range layers {
		if !spec.Enabled {
			continue
		}
		m, err := src.Mask(spec.Color)
		if err != nil {
			return hatch.Request{}, fmt.Errorf("layer %s: %w", spec.Name, err)
		}
		log.Printf("Layer %s (%s): %dx%d mask, %.1f%% ink, angles %s",
			spec.Name, colorOrAll(spec.Color), m.Width, m.Height, m.Coverage()*100, job.FormatAngles(spec.Angles()))

		req.Layers = append(req.Layers, hatch.Layer{
			Mask:        m,
			Angles:      spec.Angles(),
			Spacing:     spec.SpacingMM,
			StrokeWidth: spec.StrokeMM,
			Label:       spec.Name,
		})
	}

	return req, nil
}

func colorOrAll(c string) string {
	if c == "" {
		return "all"
	}
	return c
}
