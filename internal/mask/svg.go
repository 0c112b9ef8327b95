package mask

import (
	"bytes"
	"fmt"
	"image"
	"math"
	"os"
	"regexp"
	"strconv"

	"ink-hatch/pkg/colorutil"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// DefaultMaxDim is the default pixel size of the longer raster side.
const DefaultMaxDim = 1800

var (
	fillAttrRe    = regexp.MustCompile(`fill\s*=\s*"(#[0-9a-fA-F]{3,6})"`)
	fillStyleRe   = regexp.MustCompile(`style\s*=\s*"[^"]*fill\s*:\s*(#[0-9a-fA-F]{3,6})`)
	fillDeclRe    = regexp.MustCompile(`(fill\s*:\s*)(#[0-9a-fA-F]{3,6})`)
	strokeAttrRe  = regexp.MustCompile(`stroke\s*=\s*"(#[0-9a-fA-F]{3,6}|[a-zA-Z]+)"`)
	strokeDeclRe  = regexp.MustCompile(`(stroke\s*:\s*)(#[0-9a-fA-F]{3,6}|[a-zA-Z]+)`)
	viewBoxAttrRe = regexp.MustCompile(`viewBox\s*=\s*"([\d.\-eE]+)\s+([\d.\-eE]+)\s+([\d.\-eE]+)\s+([\d.\-eE]+)"`)
)

// ExtractFillColors returns the unique hex fill colors used in an SVG
// document, normalized to lowercase #rrggbb, in first-seen order. Fill
// attributes are collected before style declarations.
func ExtractFillColors(svg []byte) []string {
	seen := make(map[string]bool)
	var colors []string

	add := func(matches [][][]byte) {
		for _, m := range matches {
			c := colorutil.NormalizeHex(string(m[1]))
			if c == "" || seen[c] {
				continue
			}
			seen[c] = true
			colors = append(colors, c)
		}
	}
	add(fillAttrRe.FindAllSubmatch(svg, -1))
	add(fillStyleRe.FindAllSubmatch(svg, -1))

	return colors
}

// IsolateColor rewrites an SVG document so that only fills of the target
// color remain, painted black. Every other hex fill and every stroke is set
// to none.
func IsolateColor(svg []byte, target string) []byte {
	target = colorutil.NormalizeHex(target)

	out := fillAttrRe.ReplaceAllFunc(svg, func(m []byte) []byte {
		c := fillAttrRe.FindSubmatch(m)[1]
		if colorutil.NormalizeHex(string(c)) == target {
			return []byte(`fill="#000000"`)
		}
		return []byte(`fill="none"`)
	})
	out = fillDeclRe.ReplaceAllFunc(out, func(m []byte) []byte {
		sub := fillDeclRe.FindSubmatch(m)
		if colorutil.NormalizeHex(string(sub[2])) == target {
			return append(append([]byte{}, sub[1]...), "#000000"...)
		}
		return append(append([]byte{}, sub[1]...), "none"...)
	})
	out = strokeAttrRe.ReplaceAll(out, []byte(`stroke="none"`))
	out = strokeDeclRe.ReplaceAll(out, []byte("${1}none"))

	return out
}

// RasterSize picks the raster dimensions for an SVG document. The longer
// viewBox side gets maxDim pixels and the other keeps the aspect ratio.
// Without a viewBox the raster is maxDim square.
func RasterSize(svg []byte, maxDim int) (width, height int) {
	if maxDim < 1 {
		maxDim = 1
	}
	m := viewBoxAttrRe.FindSubmatch(svg)
	if m == nil {
		return maxDim, maxDim
	}
	vbW, errW := strconv.ParseFloat(string(m[3]), 64)
	vbH, errH := strconv.ParseFloat(string(m[4]), 64)
	if errW != nil || errH != nil {
		return maxDim, maxDim
	}
	return fitRaster(vbW, vbH, maxDim)
}

func fitRaster(w, h float64, maxDim int) (int, int) {
	w = math.Max(1, w)
	h = math.Max(1, h)
	if w >= h {
		return maxDim, max(1, int(math.Round(float64(maxDim)*h/w)))
	}
	return max(1, int(math.Round(float64(maxDim)*w/h))), maxDim
}

// SVGOptions configures SVG rasterization.
type SVGOptions struct {
	MaxDim         int   // Pixel size of the longer raster side
	AlphaThreshold uint8 // Alpha a pixel must exceed to count as ink
}

// DefaultSVGOptions returns the defaults used by the CLI.
func DefaultSVGOptions() SVGOptions {
	return SVGOptions{
		MaxDim:         DefaultMaxDim,
		AlphaThreshold: DefaultAlphaThreshold,
	}
}

// SVGSource rasterizes a vector drawing into per-fill-color masks.
type SVGSource struct {
	data   []byte
	colors []string
	width  int
	height int
	opts   SVGOptions
}

// LoadSVG reads an SVG document from disk.
func LoadSVG(path string, opts SVGOptions) (*SVGSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read svg: %w", err)
	}
	return NewSVGSource(data, opts)
}

// NewSVGSource parses an SVG document and fixes its raster size.
func NewSVGSource(data []byte, opts SVGOptions) (*SVGSource, error) {
	if opts.MaxDim < 1 {
		opts.MaxDim = DefaultMaxDim
	}

	icon, err := oksvg.ReadIconStream(bytes.NewReader(data), oksvg.IgnoreErrorMode)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse svg: %v", ErrDecode, err)
	}

	s := &SVGSource{
		data:   data,
		colors: ExtractFillColors(data),
		opts:   opts,
	}
	if viewBoxAttrRe.Match(data) {
		s.width, s.height = RasterSize(data, opts.MaxDim)
	} else if icon.ViewBox.W > 0 && icon.ViewBox.H > 0 {
		s.width, s.height = fitRaster(icon.ViewBox.W, icon.ViewBox.H, opts.MaxDim)
	} else {
		s.width, s.height = opts.MaxDim, opts.MaxDim
	}

	return s, nil
}

// Kind implements Source.
func (s *SVGSource) Kind() Kind { return KindSVG }

// Colors implements Source.
func (s *SVGSource) Colors() []string {
	return append([]string(nil), s.colors...)
}

// Size implements Source.
func (s *SVGSource) Size() (int, int) { return s.width, s.height }

// Mask implements Source. An empty color rasterizes the drawing unchanged.
func (s *SVGSource) Mask(color string) (*Mask, error) {
	data := s.data
	if color != "" {
		c := colorutil.NormalizeHex(color)
		if !s.hasColor(c) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownColor, color)
		}
		data = IsolateColor(s.data, c)
	}

	img, err := rasterizeSVG(data, s.width, s.height)
	if err != nil {
		return nil, err
	}
	return FromAlpha(img, s.opts.AlphaThreshold), nil
}

func (s *SVGSource) hasColor(c string) bool {
	for _, have := range s.colors {
		if have == c {
			return true
		}
	}
	return false
}

// rasterizeSVG renders a document onto a transparent canvas, stretching the
// viewBox onto the full raster.
func rasterizeSVG(data []byte, width, height int) (*image.RGBA, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data), oksvg.IgnoreErrorMode)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse svg: %v", ErrDecode, err)
	}
	icon.SetTarget(0, 0, float64(width), float64(height))

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	scanner := rasterx.NewScannerGV(width, height, img, img.Bounds())
	raster := rasterx.NewDasher(width, height, scanner)
	icon.Draw(raster, 1.0)

	return img, nil
}
