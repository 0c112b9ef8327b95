package mask

import (
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"ink-hatch/pkg/colorutil"

	"gocv.io/x/gocv"
	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
)

// BitmapOptions configures how a raster image becomes an ink mask.
type BitmapOptions struct {
	MaxDim    int  // Longer side is downscaled to at most this many pixels
	Threshold int  // Gray level 0-255 separating ink from paper; <0 picks it with Otsu
	Invert    bool // Treat light pixels as ink instead of dark ones
	Despeckle int  // Morphological open kernel size in pixels (<2 disables)
}

// DefaultBitmapOptions returns the defaults used by the CLI.
func DefaultBitmapOptions() BitmapOptions {
	return BitmapOptions{
		MaxDim:    DefaultMaxDim,
		Threshold: -1,
	}
}

// BitmapSource turns a plain raster image into a single ink mask.
type BitmapSource struct {
	Path   string
	Format string
	DPI    float64 // From TIFF resolution tags, 0 when unknown

	mask    *Mask
	widthPx int // Before downscaling
}

// LoadBitmap decodes an image file and thresholds it into a mask.
func LoadBitmap(path string, opts BitmapOptions) (*BitmapSource, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	img, format, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode image: %v", ErrDecode, err)
	}

	src, err := NewBitmapSource(img, opts)
	if err != nil {
		return nil, err
	}
	src.Path = path
	src.Format = format

	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".tiff" || ext == ".tif" {
		if _, err := file.Seek(0, 0); err == nil {
			if dpi, err := ReadTIFFDPI(file); err == nil {
				src.DPI = dpi
			}
		}
	}

	return src, nil
}

// NewBitmapSource thresholds an already decoded image.
func NewBitmapSource(img image.Image, opts BitmapOptions) (*BitmapSource, error) {
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: image has no pixels", ErrDecode)
	}
	m, err := thresholdInk(Downscale(img, opts.MaxDim), opts)
	if err != nil {
		return nil, err
	}
	return &BitmapSource{mask: m, widthPx: img.Bounds().Dx()}, nil
}

// Kind implements Source.
func (s *BitmapSource) Kind() Kind { return KindBitmap }

// Colors implements Source. Bitmaps carry no fill palette.
func (s *BitmapSource) Colors() []string { return nil }

// Size implements Source.
func (s *BitmapSource) Size() (int, int) { return s.mask.Width, s.mask.Height }

// Mask implements Source. Only the empty color is accepted.
func (s *BitmapSource) Mask(color string) (*Mask, error) {
	if color != "" {
		return nil, fmt.Errorf("%w: %s (bitmap sources have no fill colors)", ErrUnknownColor, color)
	}
	return s.mask, nil
}

// WidthMM returns the physical width implied by the TIFF resolution, or 0.
func (s *BitmapSource) WidthMM() float64 {
	if s.DPI <= 0 {
		return 0
	}
	return float64(s.widthPx) / s.DPI * 25.4
}

// Downscale shrinks img so its longer side is at most maxDim pixels.
// Smaller images are returned unchanged.
func Downscale(img image.Image, maxDim int) image.Image {
	b := img.Bounds()
	longest := max(b.Dx(), b.Dy())
	if maxDim < 1 || longest <= maxDim {
		return img
	}

	scale := float64(maxDim) / float64(longest)
	w := max(1, int(float64(b.Dx())*scale))
	h := max(1, int(float64(b.Dy())*scale))

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}

// thresholdInk flattens the image on white paper and binarizes it.
func thresholdInk(img image.Image, opts BitmapOptions) (*Mask, error) {
	b := img.Bounds()
	flat := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(flat, flat.Bounds(), image.NewUniform(colorutil.White), image.Point{}, draw.Src)
	draw.Draw(flat, flat.Bounds(), img, b.Min, draw.Over)

	src, err := gocv.ImageToMatRGBA(flat)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to convert image: %v", ErrDecode, err)
	}
	defer src.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(src, &gray, gocv.ColorBGRAToGray)

	// Dark pixels are ink unless inverted
	typ := gocv.ThresholdBinaryInv
	if opts.Invert {
		typ = gocv.ThresholdBinary
	}
	thresh := float32(opts.Threshold)
	if opts.Threshold < 0 {
		typ |= gocv.ThresholdOtsu
		thresh = 0
	}

	bin := gocv.NewMat()
	defer bin.Close()
	gocv.Threshold(gray, &bin, thresh, 255, typ)

	if opts.Despeckle > 1 {
		kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(opts.Despeckle, opts.Despeckle))
		defer kernel.Close()
		gocv.MorphologyEx(bin, &bin, gocv.MorphOpen, kernel)
	}

	m := New(bin.Cols(), bin.Rows())
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			m.bits[y*m.Width+x] = bin.GetUCharAt(y, x) > 0
		}
	}
	return m, nil
}

// SupportedFormats returns the file extensions a source can be loaded from.
func SupportedFormats() []string {
	return []string{".svg", ".tiff", ".tif", ".png", ".jpg", ".jpeg", ".bmp"}
}

// IsSVG reports whether a path names an SVG document.
func IsSVG(path string) bool {
	return strings.ToLower(filepath.Ext(path)) == ".svg"
}

// IsSupportedFormat checks if the given path has a supported extension.
func IsSupportedFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range SupportedFormats() {
		if ext == format {
			return true
		}
	}
	return false
}

// Open loads a source by file extension.
func Open(path string, svgOpts SVGOptions, bmpOpts BitmapOptions) (Source, error) {
	if !IsSupportedFormat(path) {
		return nil, fmt.Errorf("%w: unsupported file type %q", ErrDecode, filepath.Ext(path))
	}
	if IsSVG(path) {
		src, err := LoadSVG(path, svgOpts)
		if err != nil {
			return nil, err
		}
		return src, nil
	}
	src, err := LoadBitmap(path, bmpOpts)
	if err != nil {
		return nil, err
	}
	return src, nil
}
