package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"ink-hatch/internal/hatch"
)

// Target identifies an export format.
type Target int

const (
	TargetSVG     Target = iota // Millimeter-sized vector drawing
	TargetDXF                   // CAD polyline exchange
	TargetPNG                   // Raster preview
)

// Targets lists every export target in a stable order.
func Targets() []Target {
	return []Target{TargetSVG, TargetDXF, TargetPNG}
}

func (t Target) String() string {
	switch t {
	case TargetSVG:
		return "SVG"
	case TargetDXF:
		return "DXF"
	case TargetPNG:
		return "PNG"
	default:
		return "Unknown"
	}
}

// Extension returns the file extension, dot included.
func (t Target) Extension() string {
	switch t {
	case TargetSVG:
		return ".svg"
	case TargetDXF:
		return ".dxf"
	case TargetPNG:
		return ".png"
	default:
		return ""
	}
}

// ParseTarget accepts a format name or extension, case-insensitively.
func ParseTarget(s string) (Target, error) {
	s = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".")
	for _, t := range Targets() {
		if strings.ToLower(t.String()) == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown export target %q", s)
}

// TargetForPath picks the target from a file extension.
func TargetForPath(path string) (Target, error) {
	return ParseTarget(filepath.Ext(path))
}

// Options carries per-format settings.
type Options struct {
	SVG     SVGOptions
	Preview PreviewOptions
}

// DefaultOptions returns the default settings of every format.
func DefaultOptions() Options {
	return Options{SVG: DefaultSVGOptions(), Preview: DefaultPreviewOptions()}
}

// Encode writes the document in the target's format with default options.
func (t Target) Encode(w io.Writer, doc *hatch.Document) error {
	return t.EncodeWith(w, doc, DefaultOptions())
}

// EncodeWith writes the document in the target's format.
func (t Target) EncodeWith(w io.Writer, doc *hatch.Document, opts Options) error {
	switch t {
	case TargetSVG:
		return WriteSVG(w, doc, opts.SVG)
	case TargetDXF:
		return WriteDXF(w, doc)
	case TargetPNG:
		return WritePreview(w, doc, opts.Preview)
	default:
		return fmt.Errorf("unknown export target %d", int(t))
	}
}

// WriteFile encodes the document into path with default options.
func (t Target) WriteFile(path string, doc *hatch.Document) error {
	return t.WriteFileWith(path, doc, DefaultOptions())
}

// WriteFileWith encodes the document into path, creating parent directories.
func (t Target) WriteFileWith(path string, doc *hatch.Document, opts Options) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := t.EncodeWith(f, doc, opts); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", t, err)
	}
	return f.Close()
}
