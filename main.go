// Package main provides the entry point for the ink-hatch command.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"

	"ink-hatch/internal/app"
	"ink-hatch/internal/hatch"
	"ink-hatch/internal/job"
	"ink-hatch/internal/prefs"
	"ink-hatch/internal/version"
)

const appTitle = "ink-hatch"

type options struct {
	jobPath  string
	input    string
	outputs  string
	saveJob  string
	workers  int
	watch    bool
	list     bool
	stats    bool
	version  bool
	noPrefs  bool
	group    bool
	dpiWidth bool

	widthMM    float64
	samples    float64
	gapMM      float64
	maxDim     int
	angleStart float64
	angleStep  float64
	angles     string
	spacingMM  float64
	strokeMM   float64
	threshold  int
	invert     bool
	despeckle  int

	set map[string]bool
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	appPrefs := prefs.Load()
	opts := parseFlags(appPrefs)

	if opts.version {
		fmt.Printf("%s %s\n", appTitle, version.String())
		return
	}
	if opts.jobPath == "" && opts.input == "" {
		fmt.Fprintln(os.Stderr, "Usage: ink-hatch -in <drawing.svg|scan.tif> [-out a.svg,a.dxf] or ink-hatch -job <job.json|.toml|.yaml>")
		flag.PrintDefaults()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if !opts.noPrefs && opts.jobPath == "" {
		rememberPrefs(appPrefs, opts)
	}
}

func parseFlags(p *prefs.Prefs) *options {
	o := &options{}
	flag.StringVar(&o.jobPath, "job", "", "Job file (JSON, TOML or YAML)")
	flag.StringVar(&o.input, "in", "", "Source drawing (SVG) or bitmap (TIFF, PNG, JPEG, BMP)")
	flag.StringVar(&o.outputs, "out", "", "Comma-separated output files; format from extension (.svg, .dxf, .png)")
	flag.StringVar(&o.saveJob, "save-job", "", "Write the effective job, palette included, to this file")
	flag.IntVar(&o.workers, "workers", 0, "Concurrent sweeps (0 = all CPUs)")
	flag.BoolVar(&o.watch, "watch", false, "Regenerate when the job or source changes")
	flag.BoolVar(&o.list, "list-colors", false, "Print the source's fill colors and exit")
	flag.BoolVar(&o.stats, "stats", false, "Print per-layer statistics")
	flag.BoolVar(&o.version, "version", false, "Print version and exit")
	flag.BoolVar(&o.noPrefs, "no-prefs", false, "Do not remember settings")
	flag.BoolVar(&o.group, "group", p.Bool(prefs.KeyGroupLayers, false), "Group SVG paths by layer")
	flag.BoolVar(&o.dpiWidth, "dpi-width", false, "Take the document width from TIFF resolution")

	flag.Float64Var(&o.widthMM, "width", p.Float(prefs.KeyWidthMM, job.DefaultWidthMM), "Document width in mm")
	flag.Float64Var(&o.samples, "samples", p.Float(prefs.KeySamplesPerMM, job.DefaultSamplesPerMM), "Samples per mm along each hatch line")
	flag.Float64Var(&o.gapMM, "gap", p.Float(prefs.KeyMergeGapMM, job.DefaultMergeGapMM), "Merge runs separated by at most this many mm")
	flag.IntVar(&o.maxDim, "maxdim", p.Int(prefs.KeyMaxDim, job.DefaultMaxDim), "Longer raster side in px")
	flag.Float64Var(&o.angleStart, "angle-start", p.Float(prefs.KeyAngleStart, job.DefaultAngleStart), "First palette angle")
	flag.Float64Var(&o.angleStep, "angle-step", p.Float(prefs.KeyAngleStep, job.DefaultAngleStep), "Angle increment between palette colors")
	flag.StringVar(&o.angles, "angles", "", "Comma-separated angles for every layer, e.g. 0,90")
	flag.Float64Var(&o.spacingMM, "spacing", p.Float(prefs.KeySpacingMM, job.DefaultSpacingMM), "Hatch spacing in mm for every layer")
	flag.Float64Var(&o.strokeMM, "stroke", p.Float(prefs.KeyStrokeMM, job.DefaultStrokeMM), "Stroke width in mm for every layer")
	flag.IntVar(&o.threshold, "threshold", -1, "Bitmap gray threshold 0-255 (-1 = Otsu)")
	flag.BoolVar(&o.invert, "invert", false, "Bitmap: light pixels are ink")
	flag.IntVar(&o.despeckle, "despeckle", 0, "Bitmap: morphological open kernel in px")
	flag.Parse()

	o.set = make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { o.set[f.Name] = true })
	return o
}

// override reports whether a flag value applies: always for jobs built from
// flags, only when given explicitly on top of a job file.
func (o *options) override(name string) bool {
	return o.jobPath == "" || o.set[name]
}

func run(ctx context.Context, o *options) error {
	state := app.NewState()
	state.Workers = o.workers
	state.ExportOptions.SVG.GroupLayers = o.group
	state.Tweak = o.tweakJob
	state.TweakLayer = o.tweakLayer

	if o.jobPath != "" {
		if err := state.LoadJob(o.jobPath); err != nil {
			return err
		}
	} else {
		name := strings.TrimSuffix(filepath.Base(o.input), filepath.Ext(o.input))
		if err := state.SetJob("", job.New(name)); err != nil {
			return err
		}
	}

	if o.jobPath == "" || o.set["in"] {
		state.SourcePath = o.input
	}
	state.OutputPaths = o.outputPaths()

	if err := state.LoadSource(); err != nil {
		return err
	}

	if o.list {
		listColors(state)
		return nil
	}

	if _, err := state.Run(ctx); err != nil {
		return err
	}
	if o.stats {
		printStats(state.Document, state.Stats)
	}
	if o.saveJob != "" {
		if err := saveJob(state, o.saveJob); err != nil {
			return err
		}
	}

	if o.watch {
		return state.Watch(ctx, app.DefaultDebounce)
	}
	return nil
}

func (o *options) outputPaths() []string {
	var paths []string
	for _, p := range strings.Split(o.outputs, ",") {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	if len(paths) == 0 && o.jobPath == "" {
		base := strings.TrimSuffix(o.input, filepath.Ext(o.input))
		paths = []string{base + "_hatch.svg", base + "_hatch.dxf"}
	}
	return paths
}

func (o *options) tweakJob(f *job.File) {
	if o.override("width") {
		f.WidthMM = o.widthMM
	}
	if o.override("samples") {
		f.SamplesPerMM = o.samples
	}
	if o.override("gap") {
		f.MergeGapMM = o.gapMM
	}
	if o.override("maxdim") {
		f.MaxDim = o.maxDim
	}
	if o.override("angle-start") {
		f.AngleStart = o.angleStart
	}
	if o.override("angle-step") {
		f.AngleStep = o.angleStep
	}
	if o.override("threshold") {
		f.Threshold = o.threshold
	}
	if o.override("invert") {
		f.Invert = o.invert
	}
	if o.override("despeckle") {
		f.Despeckle = o.despeckle
	}
	if o.override("dpi-width") {
		f.WidthFromDPI = o.dpiWidth
	}
	if o.override("angle-start") || o.override("angle-step") {
		job.RedistributeAngles(f.Layers, f.AngleStart, f.AngleStep)
	}
}

func (o *options) tweakLayer(l *job.LayerSpec) {
	if o.set["angles"] {
		l.AnglesText = o.angles
	}
	if o.override("spacing") {
		l.SpacingMM = o.spacingMM
	}
	if o.override("stroke") {
		l.StrokeMM = o.strokeMM
	}
}

func listColors(state *app.State) {
	src := state.Source
	w, h := src.Size()
	fmt.Printf("%s source: %dx%d px\n", src.Kind(), w, h)

	layers := state.Layers(src)
	if len(layers) == 0 {
		fmt.Println("No fill colors found")
		return
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LAYER\tCOLOR\tANGLES\tSPACING\tSTROKE\tENABLED")
	for _, l := range layers {
		c := l.Color
		if c == "" {
			c = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%.2f\t%v\n", l.Name, c, job.FormatAngles(l.Angles()), l.SpacingMM, l.StrokeMM, l.Enabled)
	}
	tw.Flush()
}

func printStats(doc *hatch.Document, stats []hatch.LabelStats) {
	b := hatch.Bounds(doc)
	fmt.Printf("Document %.2f x %.2f mm, ink within (%.2f, %.2f)-(%.2f, %.2f)\n",
		doc.WidthMM, doc.HeightMM, b.X, b.Y, b.X+b.Width, b.Y+b.Height)

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "LABEL\tPOLYLINES\tVERTICES\tLENGTH (mm)\t")
	var lines, verts int
	var length float64
	for _, s := range stats {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%.1f\t\n", s.Label, s.Polylines, s.Vertices, s.LengthMM)
		lines += s.Polylines
		verts += s.Vertices
		length += s.LengthMM
	}
	fmt.Fprintf(tw, "TOTAL\t%d\t%d\t%.1f\t\n", lines, verts, length)
	tw.Flush()
}

func saveJob(state *app.State, path string) error {
	f := *state.Job
	f.Layers = state.Layers(state.Source)
	if colors := state.Source.Colors(); len(colors) > 0 {
		// Sync the palette with the colors the source has now.
		f.Layers = job.MergePalette(f.Layers, colors, f.AngleStart, f.AngleStep)
	}
	if abs, err := filepath.Abs(state.ResolvedSourcePath()); err == nil {
		f.SetSource(path, abs)
	}
	f.Outputs = nil
	for _, out := range state.ResolvedOutputPaths() {
		if abs, err := filepath.Abs(out); err == nil {
			out = abs
		}
		if rel, err := filepath.Rel(filepath.Dir(path), out); err == nil {
			out = rel
		}
		f.Outputs = append(f.Outputs, out)
	}
	if err := f.Save(path); err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}
	log.Printf("Saved job %s", path)
	return nil
}

func rememberPrefs(p *prefs.Prefs, o *options) {
	for name, apply := range map[string]func(){
		"width":       func() { p.SetFloat(prefs.KeyWidthMM, o.widthMM) },
		"samples":     func() { p.SetFloat(prefs.KeySamplesPerMM, o.samples) },
		"gap":         func() { p.SetFloat(prefs.KeyMergeGapMM, o.gapMM) },
		"maxdim":      func() { p.SetInt(prefs.KeyMaxDim, o.maxDim) },
		"angle-start": func() { p.SetFloat(prefs.KeyAngleStart, o.angleStart) },
		"angle-step":  func() { p.SetFloat(prefs.KeyAngleStep, o.angleStep) },
		"spacing":     func() { p.SetFloat(prefs.KeySpacingMM, o.spacingMM) },
		"stroke":      func() { p.SetFloat(prefs.KeyStrokeMM, o.strokeMM) },
		"group":       func() { p.SetBool(prefs.KeyGroupLayers, o.group) },
	} {
		if o.set[name] {
			apply()
		}
	}
	if err := p.Save(); err != nil {
		log.Printf("Failed to save preferences to %s: %v", p.Path(), err)
	}
}
