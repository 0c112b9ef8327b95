package job

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"ink-hatch/internal/hatch"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAngles(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want []float64
	}{
		{"0,45", []float64{0, 45}},
		{" 30 , , abc, 210", []float64{30, 30}},
		{"-30", []float64{150}},
		{"", []float64{0}},
		{"x,y", []float64{0}},
		{"180,360.5", []float64{0, 0.5}},
	} {
		assert.Equal(t, tc.want, ParseAngles(tc.in), tc.in)
	}
	assert.Equal(t, "0,22.5,150", FormatAngles([]float64{0, 22.5, 150}))
}

func TestBuildPalette(t *testing.T) {
	layers := BuildPalette([]string{"#FF0000", "#0f0", "#0000ff", "#123456", "#654321"}, 10, 45)
	require.Len(t, layers, 5)

	wantAngles := []string{"10", "55", "100", "145", "10"}
	for i, l := range layers {
		assert.True(t, l.Enabled)
		assert.Equal(t, LayerName(i), l.Name)
		assert.Equal(t, DefaultSpacingMM, l.SpacingMM)
		assert.Equal(t, DefaultStrokeMM, l.StrokeMM)
		assert.Equal(t, wantAngles[i], l.AnglesText)
	}
	assert.Equal(t, "#ff0000", layers[0].Color)
	assert.Equal(t, "#00ff00", layers[1].Color)

	layers[0].SpacingMM = 2
	RedistributeAngles(layers, 0, 90)
	assert.Equal(t, "0", layers[0].AnglesText)
	assert.Equal(t, "90", layers[1].AnglesText)
	assert.Equal(t, "0", layers[2].AnglesText)
	assert.Equal(t, 2.0, layers[0].SpacingMM)
}

func TestMergePalette(t *testing.T) {
	existing := []LayerSpec{
		{Color: "#ff0000", Enabled: false, AnglesText: "33", SpacingMM: 1.5, StrokeMM: 0.5, Name: "red"},
		{Color: "#00ff00", Enabled: true, AnglesText: "12", SpacingMM: 1, StrokeMM: 0.3, Name: "gone"},
	}
	merged := MergePalette(existing, []string{"#0000ff", "#F00"}, 0, 45)
	require.Len(t, merged, 2)
	assert.Equal(t, "L0", merged[0].Name)
	assert.Equal(t, "#0000ff", merged[0].Color)
	assert.Equal(t, "red", merged[1].Name)
	assert.Equal(t, "33", merged[1].AnglesText)
	assert.False(t, merged[1].Enabled)
}

func TestNormalize(t *testing.T) {
	f := &File{
		WidthMM:      80,
		SamplesPerMM: 0.05,
		MaxDim:       100,
		AngleStart:   -45,
		AngleStep:    0.5,
		Threshold:    -7,
		Layers: []LayerSpec{
			{Color: "#ABC", Enabled: true},
			{Color: "bogus", SpacingMM: 2, StrokeMM: 0.4, AnglesText: "15", Name: "keep"},
		},
	}
	require.NoError(t, f.Validate())
	f.Normalize()

	assert.Equal(t, 80.0, f.WidthMM)
	assert.Equal(t, 0.2, f.SamplesPerMM)
	assert.Equal(t, 0.0, f.MergeGapMM)
	assert.Equal(t, MinMaxDim, f.MaxDim)
	assert.Equal(t, 135.0, f.AngleStart)
	assert.Equal(t, 1.0, f.AngleStep)
	assert.Equal(t, -1, f.Threshold)

	l := f.Layers[0]
	assert.Equal(t, "#aabbcc", l.Color)
	assert.Equal(t, DefaultSpacingMM, l.SpacingMM)
	assert.Equal(t, DefaultStrokeMM, l.StrokeMM)
	assert.Equal(t, "L0", l.Name)
	assert.Equal(t, "0", l.AnglesText)

	assert.Equal(t, "", f.Layers[1].Color)
	assert.Equal(t, "keep", f.Layers[1].Name)

	enabled := f.EnabledLayers()
	require.Len(t, enabled, 1)
	assert.Equal(t, "L0", enabled[0].Name)
}

func sampleJob() *File {
	f := New("poster")
	f.SourcePath = "art/poster.svg"
	f.WidthMM = 150
	f.MergeGapMM = 0.5
	f.Outputs = []string{"out/poster.svg", "out/poster.dxf"}
	f.Layers = BuildPalette([]string{"#ff0000", "#0000ff"}, 0, 45)
	f.Layers[1].Enabled = false
	return f
}

func TestSaveLoadFormats(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"job.json", "job.toml", "job.yaml", "job.yml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			orig := sampleJob()
			require.NoError(t, orig.Save(path))

			loaded, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, "poster", loaded.Name)
			assert.Equal(t, "art/poster.svg", loaded.SourcePath)
			assert.Equal(t, 150.0, loaded.WidthMM)
			assert.Equal(t, 0.5, loaded.MergeGapMM)
			assert.Equal(t, DefaultSamplesPerMM, loaded.SamplesPerMM)
			assert.Equal(t, -1, loaded.Threshold)
			assert.Equal(t, orig.Outputs, loaded.Outputs)
			assert.Equal(t, orig.Layers, loaded.Layers)
		})
	}

	_, err := Load(filepath.Join(dir, "job.ini"))
	assert.Error(t, err)
}

func TestDecodeKeepsDefaults(t *testing.T) {
	f, err := Decode([]byte(`
source = "a.svg"

[[layers]]
color = "#00F"
enabled = true
angles = "0, 90"
`), FormatTOML)
	require.NoError(t, err)
	assert.Equal(t, DefaultWidthMM, f.WidthMM)
	assert.Equal(t, DefaultMergeGapMM, f.MergeGapMM)
	assert.Equal(t, DefaultMaxDim, f.MaxDim)
	require.Len(t, f.Layers, 1)
	assert.Equal(t, "#0000ff", f.Layers[0].Color)
	assert.Equal(t, []float64{0, 90}, f.Layers[0].Angles())

	f, err = Decode([]byte("samples_per_mm: 3\nlayers:\n  - enabled: true\n    spacing_mm: 1.2\n"), FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, 3.0, f.SamplesPerMM)
	assert.Equal(t, 1.2, f.Layers[0].SpacingMM)

	_, err = Decode([]byte("{not json"), FormatJSON)
	assert.Error(t, err)
}

func TestDecodeRejectsInvalid(t *testing.T) {
	for _, tc := range []struct {
		name   string
		data   string
		format Format
		field  string
	}{
		{"negative width", `{"width_mm": -50}`, FormatJSON, "width_mm"},
		{"zero width", `{"width_mm": 0}`, FormatJSON, "width_mm"},
		{"negative samples", `{"samples_per_mm": -1}`, FormatJSON, "samples_per_mm"},
		{"zero samples", "samples_per_mm = 0.0\n", FormatTOML, "samples_per_mm"},
		{"negative gap", "merge_gap_mm: -3\n", FormatYAML, "merge_gap_mm"},
		{"nan gap", "merge_gap_mm = nan\n", FormatTOML, "merge_gap_mm"},
		{"negative spacing", `{"layers": [{"enabled": true, "spacing_mm": -2}]}`, FormatJSON, "layers[0].spacing_mm"},
		{"zero spacing", "layers:\n  - enabled: true\n  - spacing_mm: 0\n", FormatYAML, "layers[1].spacing_mm"},
		{"negative stroke", "[[layers]]\nstroke_mm = -1.0\n", FormatTOML, "layers[0].stroke_mm"},
		{"zero stroke", `{"layers": [{"stroke_mm": 0}]}`, FormatJSON, "layers[0].stroke_mm"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f, err := Decode([]byte(tc.data), tc.format)
			assert.Nil(t, f)
			require.Error(t, err)
			assert.True(t, errors.Is(err, hatch.ErrInvalidParameter), err.Error())

			var pe *hatch.ParamError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, tc.field, pe.Field)
		})
	}
}

func TestValidate(t *testing.T) {
	f := New("")
	f.Layers = []LayerSpec{{Enabled: true}}
	assert.NoError(t, f.Validate(), "unset layer settings take defaults")

	f.Layers[0].StrokeMM = math.Inf(1)
	assert.True(t, errors.Is(f.Validate(), hatch.ErrInvalidParameter))

	f.Layers[0].StrokeMM = 0.3
	f.WidthMM = math.NaN()
	assert.True(t, errors.Is(f.Validate(), hatch.ErrInvalidParameter))
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"width_mm": -50, "layers": [{"spacing_mm": -2}]}`), 0o644))

	_, err := Load(path)
	assert.True(t, errors.Is(err, hatch.ErrInvalidParameter))
	assert.Contains(t, err.Error(), "bad.json")
}

func TestPaths(t *testing.T) {
	dir := t.TempDir()
	jobPath := filepath.Join(dir, "jobs", "poster.yaml")
	require.NoError(t, os.MkdirAll(filepath.Dir(jobPath), 0o755))

	f := New("poster")
	f.SetSource(jobPath, filepath.Join(dir, "art", "poster.svg"))
	assert.Equal(t, filepath.Join("..", "art", "poster.svg"), f.SourcePath)
	assert.Equal(t, filepath.Join(dir, "art", "poster.svg"), f.GetSourcePath(jobPath))

	assert.Equal(t, []string{filepath.Join(dir, "jobs", "poster.svg")}, f.GetOutputPaths(jobPath))

	f.Outputs = []string{"out.dxf", "/abs/out.png"}
	assert.Equal(t, []string{filepath.Join(dir, "jobs", "out.dxf"), "/abs/out.png"}, f.GetOutputPaths(jobPath))
}

func TestFormatForPath(t *testing.T) {
	got, err := FormatForPath("a/b.YML")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, got)

	got, err = FormatForPath("b.hatch")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, got)
}
