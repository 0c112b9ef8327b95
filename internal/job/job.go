// Package job provides generation request files and their persistence.
package job

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ink-hatch/internal/hatch"
	"ink-hatch/pkg/colorutil"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Defaults for a new job.
const (
	DefaultWidthMM      = 200.0
	DefaultSamplesPerMM = 1.4
	DefaultMergeGapMM   = 0.25
	DefaultMaxDim       = 1800
	DefaultSpacingMM    = 0.9
	DefaultStrokeMM     = 0.28
	DefaultAngleStart   = 0.0
	DefaultAngleStep    = 45.0
	DefaultAlpha        = 10

	// RasterLayerName labels the single layer of a bitmap source.
	RasterLayerName = "RASTER"

	// MinMaxDim is the smallest accepted raster dimension.
	MinMaxDim = 256
)

// Format is a job file encoding.
type Format int

const (
	FormatJSON Format = iota
	FormatTOML
	FormatYAML
)

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "JSON"
	case FormatTOML:
		return "TOML"
	case FormatYAML:
		return "YAML"
	default:
		return "Unknown"
	}
}

// FormatForPath picks the encoding from the file extension.
func FormatForPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".hatch":
		return FormatJSON, nil
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return 0, fmt.Errorf("unsupported job file extension %q", filepath.Ext(path))
	}
}

// LayerSpec configures one hatch layer.
type LayerSpec struct {
	Color      string  `json:"color,omitempty" toml:"color,omitempty" yaml:"color,omitempty"`
	Enabled    bool    `json:"enabled" toml:"enabled" yaml:"enabled"`
	AnglesText string  `json:"angles" toml:"angles" yaml:"angles"`
	SpacingMM  float64 `json:"spacing_mm" toml:"spacing_mm" yaml:"spacing_mm"`
	StrokeMM   float64 `json:"stroke_mm" toml:"stroke_mm" yaml:"stroke_mm"`
	Name       string  `json:"name" toml:"name" yaml:"name"`
}

// Angles returns the parsed, folded angle list.
func (l LayerSpec) Angles() []float64 {
	return ParseAngles(l.AnglesText)
}

// File represents a hatch job file.
type File struct {
	Version  int       `json:"version" toml:"version" yaml:"version"`
	Name     string    `json:"name" toml:"name" yaml:"name"`
	Created  time.Time `json:"created" toml:"created" yaml:"created"`
	Modified time.Time `json:"modified" toml:"modified" yaml:"modified"`

	// Source path (relative to the job file)
	SourcePath string `json:"source" toml:"source" yaml:"source"`

	// Document and sampling
	WidthMM        float64 `json:"width_mm" toml:"width_mm" yaml:"width_mm"`
	SamplesPerMM   float64 `json:"samples_per_mm" toml:"samples_per_mm" yaml:"samples_per_mm"`
	MergeGapMM     float64 `json:"merge_gap_mm" toml:"merge_gap_mm" yaml:"merge_gap_mm"`
	MaxDim         int     `json:"max_dim" toml:"max_dim" yaml:"max_dim"`
	AlphaThreshold int     `json:"alpha_threshold" toml:"alpha_threshold" yaml:"alpha_threshold"`

	// Auto-angle palette
	AngleStart float64 `json:"angle_start" toml:"angle_start" yaml:"angle_start"`
	AngleStep  float64 `json:"angle_step" toml:"angle_step" yaml:"angle_step"`

	// Bitmap sources
	Invert       bool `json:"invert,omitempty" toml:"invert,omitempty" yaml:"invert,omitempty"`
	Despeckle    int  `json:"despeckle,omitempty" toml:"despeckle,omitempty" yaml:"despeckle,omitempty"` // Kernel px, <2 disables
	Threshold    int  `json:"threshold" toml:"threshold" yaml:"threshold"`                               // -1 selects Otsu
	WidthFromDPI bool `json:"width_from_dpi,omitempty" toml:"width_from_dpi,omitempty" yaml:"width_from_dpi,omitempty"`

	// Output paths (relative to the job file)
	Outputs []string `json:"outputs,omitempty" toml:"outputs,omitempty" yaml:"outputs,omitempty"`

	Layers []LayerSpec `json:"layers,omitempty" toml:"layers,omitempty" yaml:"layers,omitempty"`
}

// New creates a job with default settings.
func New(name string) *File {
	now := time.Now()
	return &File{
		Version:        1,
		Name:           name,
		Created:        now,
		Modified:       now,
		WidthMM:        DefaultWidthMM,
		SamplesPerMM:   DefaultSamplesPerMM,
		MergeGapMM:     DefaultMergeGapMM,
		MaxDim:         DefaultMaxDim,
		AlphaThreshold: DefaultAlpha,
		AngleStart:     DefaultAngleStart,
		AngleStep:      DefaultAngleStep,
		Threshold:      -1,
	}
}

// Load reads a job file, decoding by extension, and normalizes it.
func Load(path string) (*File, error) {
	format, err := FormatForPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	f, err := Decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return f, nil
}

// Decode parses job data. Fields missing from the data keep their defaults;
// values given out of range are rejected with a hatch.ParamError.
func Decode(data []byte, format Format) (*File, error) {
	f := New("")
	if err := unmarshal(data, format, f); err != nil {
		return nil, err
	}

	// Layer settings have no defaults to decode onto, so a zero spacing or
	// stroke is only an error when the data spells it out.
	var given layerFields
	if err := unmarshal(data, format, &given); err != nil {
		return nil, err
	}
	for i, l := range given.Layers {
		if l.SpacingMM != nil && *l.SpacingMM <= 0 {
			return nil, layerParam(i, "spacing_mm", *l.SpacingMM, "must be positive")
		}
		if l.StrokeMM != nil && *l.StrokeMM <= 0 {
			return nil, layerParam(i, "stroke_mm", *l.StrokeMM, "must be positive")
		}
	}

	if err := f.Validate(); err != nil {
		return nil, err
	}
	f.Normalize()
	return f, nil
}

// layerFields records which layer settings the data gives explicitly.
type layerFields struct {
	Layers []struct {
		SpacingMM *float64 `json:"spacing_mm" toml:"spacing_mm" yaml:"spacing_mm"`
		StrokeMM  *float64 `json:"stroke_mm" toml:"stroke_mm" yaml:"stroke_mm"`
	} `json:"layers" toml:"layers" yaml:"layers"`
}

func unmarshal(data []byte, format Format, v interface{}) error {
	switch format {
	case FormatJSON:
		return json.Unmarshal(data, v)
	case FormatTOML:
		_, err := toml.Decode(string(data), v)
		return err
	case FormatYAML:
		return yaml.Unmarshal(data, v)
	default:
		return fmt.Errorf("unknown job format %d", int(format))
	}
}

// Save writes the job in the format implied by the extension.
func (f *File) Save(path string) error {
	format, err := FormatForPath(path)
	if err != nil {
		return err
	}
	f.Modified = time.Now()

	data, err := f.Encode(format)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Encode serializes the job.
func (f *File) Encode(format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return json.MarshalIndent(f, "", "  ")
	case FormatTOML:
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(f); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case FormatYAML:
		return yaml.Marshal(f)
	default:
		return nil, fmt.Errorf("unknown job format %d", int(format))
	}
}

// Validate rejects generation parameters outside their accepted ranges.
// A zero layer spacing or stroke stands for the default and passes.
func (f *File) Validate() error {
	if !isFinite(f.WidthMM) || f.WidthMM <= 0 {
		return &hatch.ParamError{Field: "width_mm", Value: f.WidthMM, Reason: "must be positive"}
	}
	if !isFinite(f.SamplesPerMM) || f.SamplesPerMM <= 0 {
		return &hatch.ParamError{Field: "samples_per_mm", Value: f.SamplesPerMM, Reason: "must be positive"}
	}
	if !isFinite(f.MergeGapMM) || f.MergeGapMM < 0 {
		return &hatch.ParamError{Field: "merge_gap_mm", Value: f.MergeGapMM, Reason: "must not be negative"}
	}
	for i, l := range f.Layers {
		if !isFinite(l.SpacingMM) || l.SpacingMM < 0 {
			return layerParam(i, "spacing_mm", l.SpacingMM, "must be positive")
		}
		if !isFinite(l.StrokeMM) || l.StrokeMM < 0 {
			return layerParam(i, "stroke_mm", l.StrokeMM, "must be positive")
		}
	}
	return nil
}

func layerParam(i int, name string, v float64, reason string) error {
	return &hatch.ParamError{Field: fmt.Sprintf("layers[%d].%s", i, name), Value: v, Reason: reason}
}

// Normalize fills unset layer settings and clamps the raster and palette
// settings into their accepted ranges. Call Validate first; out-of-range
// generation parameters are left for it to reject.
func (f *File) Normalize() {
	if f.SamplesPerMM > 0 {
		f.SamplesPerMM = math.Max(hatch.MinSamplesPerMM, f.SamplesPerMM)
	}
	if f.MaxDim == 0 {
		f.MaxDim = DefaultMaxDim
	}
	f.MaxDim = max(MinMaxDim, f.MaxDim)
	f.AlphaThreshold = max(0, min(254, f.AlphaThreshold))
	f.Threshold = max(-1, min(255, f.Threshold))
	f.Despeckle = max(0, f.Despeckle)
	if !isFinite(f.AngleStart) {
		f.AngleStart = DefaultAngleStart
	}
	f.AngleStart = hatch.NormalizeAngle(f.AngleStart)
	if f.AngleStep < 1 || !isFinite(f.AngleStep) {
		f.AngleStep = 1
	}

	for i := range f.Layers {
		l := &f.Layers[i]
		l.Color = colorutil.NormalizeHex(l.Color)
		if l.SpacingMM == 0 {
			l.SpacingMM = DefaultSpacingMM
		}
		if l.StrokeMM == 0 {
			l.StrokeMM = DefaultStrokeMM
		}
		if strings.TrimSpace(l.Name) == "" {
			l.Name = LayerName(i)
		}
		if strings.TrimSpace(l.AnglesText) == "" {
			l.AnglesText = "0"
		}
	}
}

// EnabledLayers returns the layers that take part in generation.
func (f *File) EnabledLayers() []LayerSpec {
	var out []LayerSpec
	for _, l := range f.Layers {
		if l.Enabled {
			out = append(out, l)
		}
	}
	return out
}

// SetSource sets the source path (relative to the job file).
func (f *File) SetSource(jobPath, sourcePath string) {
	f.SourcePath = relativeTo(jobPath, sourcePath)
	f.Modified = time.Now()
}

// GetSourcePath returns the absolute path to the source drawing.
func (f *File) GetSourcePath(jobPath string) string {
	return resolve(jobPath, f.SourcePath)
}

// GetOutputPaths returns the output paths resolved against the job file.
// Without explicit outputs, a single SVG next to the job file is used.
func (f *File) GetOutputPaths(jobPath string) []string {
	if len(f.Outputs) == 0 {
		if jobPath == "" {
			return nil
		}
		base := jobPath[:len(jobPath)-len(filepath.Ext(jobPath))]
		return []string{base + ".svg"}
	}
	out := make([]string, len(f.Outputs))
	for i, p := range f.Outputs {
		out[i] = resolve(jobPath, p)
	}
	return out
}

// LayerName is the default name of the i-th layer.
func LayerName(i int) string {
	return fmt.Sprintf("L%d", i)
}

func relativeTo(jobPath, path string) string {
	if jobPath == "" {
		return path
	}
	rel, err := filepath.Rel(filepath.Dir(jobPath), path)
	if err != nil {
		return path
	}
	return rel
}

func resolve(jobPath, path string) string {
	if path == "" {
		return ""
	}
	if filepath.IsAbs(path) || jobPath == "" {
		return path
	}
	return filepath.Join(filepath.Dir(jobPath), path)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
