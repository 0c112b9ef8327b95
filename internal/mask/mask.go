// Package mask produces binary ink masks from SVG drawings and bitmaps.
package mask

import (
	"errors"
	"fmt"
	"image"
	"image/color"
)

// DefaultAlphaThreshold is the alpha level a rendered pixel must exceed to
// count as ink.
const DefaultAlphaThreshold = 10

var (
	// ErrDecode is returned when a source cannot be decoded or rasterized.
	ErrDecode = errors.New("source decode failure")

	// ErrUnknownColor is returned when a color is requested that the source
	// does not contain.
	ErrUnknownColor = errors.New("unknown fill color")
)

// Mask is a width x height binary occupancy grid in row-major order.
// Mask data is read-only once produced.
type Mask struct {
	Width  int
	Height int
	bits   []bool
}

// New creates an all-false mask.
func New(width, height int) *Mask {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Mask{
		Width:  width,
		Height: height,
		bits:   make([]bool, width*height),
	}
}

// Full creates an all-true mask.
func Full(width, height int) *Mask {
	m := New(width, height)
	for i := range m.bits {
		m.bits[i] = true
	}
	return m
}

// FromRows builds a mask from rows of '#' (ink) and any other character
// (empty). All rows must have the same length.
func FromRows(rows ...string) (*Mask, error) {
	if len(rows) == 0 {
		return New(0, 0), nil
	}
	m := New(len(rows[0]), len(rows))
	for y, row := range rows {
		if len(row) != m.Width {
			return nil, fmt.Errorf("row %d has %d columns, want %d", y, len(row), m.Width)
		}
		for x := 0; x < len(row); x++ {
			m.bits[y*m.Width+x] = row[x] == '#'
		}
	}
	return m, nil
}

// Empty reports whether the grid has no cells.
func (m *Mask) Empty() bool {
	return m == nil || m.Width == 0 || m.Height == 0
}

// Dims returns the grid size in pixels.
func (m *Mask) Dims() (width, height int) {
	if m == nil {
		return 0, 0
	}
	return m.Width, m.Height
}

// At reports whether the pixel is ink. Out-of-bounds pixels are never ink.
func (m *Mask) At(x, y int) bool {
	if x < 0 || x >= m.Width || y < 0 || y >= m.Height {
		return false
	}
	return m.bits[y*m.Width+x]
}

// Set marks or clears a pixel. Out-of-bounds writes are ignored.
func (m *Mask) Set(x, y int, v bool) {
	if x < 0 || x >= m.Width || y < 0 || y >= m.Height {
		return
	}
	m.bits[y*m.Width+x] = v
}

// Count returns the number of ink pixels.
func (m *Mask) Count() int {
	n := 0
	for _, b := range m.bits {
		if b {
			n++
		}
	}
	return n
}

// Coverage returns the fraction of ink pixels in [0,1].
func (m *Mask) Coverage() float64 {
	if m.Empty() {
		return 0
	}
	return float64(m.Count()) / float64(len(m.bits))
}

// FromAlpha marks every pixel whose alpha exceeds threshold (0-255).
func FromAlpha(img image.Image, threshold uint8) *Mask {
	b := img.Bounds()
	m := New(b.Dx(), b.Dy())

	// Fast path for the rasterizer's own output.
	if rgba, ok := img.(*image.RGBA); ok {
		for y := 0; y < m.Height; y++ {
			off := rgba.PixOffset(b.Min.X, b.Min.Y+y)
			row := rgba.Pix[off : off+m.Width*4]
			for x := 0; x < m.Width; x++ {
				m.bits[y*m.Width+x] = row[x*4+3] > threshold
			}
		}
		return m
	}

	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			_, _, _, a := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			m.bits[y*m.Width+x] = uint8(a>>8) > threshold
		}
	}
	return m
}

// Image renders the mask as a grayscale image, ink black on white.
func (m *Mask) Image() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			v := uint8(255)
			if m.bits[y*m.Width+x] {
				v = 0
			}
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return img
}
