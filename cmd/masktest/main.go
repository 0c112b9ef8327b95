// Command masktest produces the ink masks of a source and reports on them.
package main

import (
	"flag"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"ink-hatch/internal/mask"
)

func main() {
	inPath := flag.String("in", "", "Source drawing (SVG) or bitmap (TIFF, PNG, JPEG, BMP)")
	color := flag.String("color", "", "Fill color to isolate (default: every color, then the whole drawing)")
	maxDim := flag.Int("maxdim", mask.DefaultMaxDim, "Longer raster side in px")
	alpha := flag.Int("alpha", mask.DefaultAlphaThreshold, "SVG alpha threshold 0-254")
	threshold := flag.Int("threshold", -1, "Bitmap gray threshold 0-255 (-1 = Otsu)")
	invert := flag.Bool("invert", false, "Bitmap: light pixels are ink")
	despeckle := flag.Int("despeckle", 0, "Bitmap: morphological open kernel in px")
	dumpDir := flag.String("dump", "", "Write each mask as PNG into this directory")
	flag.Parse()

	if *inPath == "" {
		fmt.Println("Usage: masktest -in <path> [-color #rrggbb] [-maxdim 1800] [-dump dir]")
		os.Exit(1)
	}

	svgOpts := mask.SVGOptions{MaxDim: *maxDim, AlphaThreshold: uint8(max(0, min(254, *alpha)))}
	bmpOpts := mask.BitmapOptions{MaxDim: *maxDim, Threshold: *threshold, Invert: *invert, Despeckle: *despeckle}

	src, err := mask.Open(*inPath, svgOpts, bmpOpts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load source: %v\n", err)
		os.Exit(1)
	}

	w, h := src.Size()
	fmt.Printf("Loaded %s source: %dx%d pixels\n", src.Kind(), w, h)
	if bmp, ok := src.(*mask.BitmapSource); ok {
		fmt.Printf("Format: %s\n", bmp.Format)
		if bmp.DPI > 0 {
			fmt.Printf("DPI: %.0f (%.1f mm wide)\n", bmp.DPI, bmp.WidthMM())
		}
	}

	colors := src.Colors()
	fmt.Printf("Fill colors: %d\n", len(colors))

	selected := []string{*color}
	if *color == "" {
		selected = append(colors, "")
	}

	fmt.Printf("\n%-10s %10s %10s\n", "Color", "Ink px", "Coverage")
	for _, c := range selected {
		m, err := src.Mask(c)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Mask %s failed: %v\n", label(c), err)
			os.Exit(1)
		}
		fmt.Printf("%-10s %10d %9.2f%%\n", label(c), m.Count(), m.Coverage()*100)

		if *dumpDir != "" {
			if err := dump(m, *dumpDir, c); err != nil {
				fmt.Fprintf(os.Stderr, "Dump failed: %v\n", err)
				os.Exit(1)
			}
		}
	}
}

func label(c string) string {
	if c == "" {
		return "all"
	}
	return c
}

func dump(m *mask.Mask, dir, c string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	name := "mask_" + strings.TrimPrefix(label(c), "#") + ".png"
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return err
	}
	if err := png.Encode(f, m.Image()); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
