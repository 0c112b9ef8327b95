package hatch

import (
	"errors"
	"math"
	"testing"

	"ink-hatch/internal/mask"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullLayer(w, h int, spacing float64, angles ...float64) Layer {
	return Layer{
		Mask:        mask.Full(w, h),
		Angles:      angles,
		Spacing:     spacing,
		StrokeWidth: 0.3,
		Label:       "L0",
	}
}

func TestNormalizeAngle(t *testing.T) {
	for _, a := range []float64{0, 45, 179.999, 180, 181, 360, -1, -0.0001, -180, -725.5, 1e9, 22.5} {
		n := NormalizeAngle(a)
		assert.GreaterOrEqual(t, n, 0.0, "angle %v", a)
		assert.Less(t, n, 180.0, "angle %v", a)
		assert.Equal(t, n, NormalizeAngle(n), "not idempotent for %v", a)
	}

	assert.Equal(t, 45.0, NormalizeAngle(225))
	assert.Equal(t, 135.0, NormalizeAngle(-45))
	assert.Equal(t, 0.0, NormalizeAngle(180))
}

func TestNormalizeAnglesEmpty(t *testing.T) {
	assert.Equal(t, []float64{0}, NormalizeAngles(nil))
	assert.Equal(t, []float64{10, 170}, NormalizeAngles([]float64{190, -10}))
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "L0_45deg", Label("L0", 45))
	assert.Equal(t, "RED_22.5deg", Label("RED", 22.5))
	assert.Equal(t, "A_0deg", Label("A", 0))
}

func TestHatchRoundTrip(t *testing.T) {
	doc, err := Hatch(Request{
		WidthMM:      100,
		SamplesPerMM: 2,
		MergeGapMM:   0,
		Layers:       []Layer{fullLayer(100, 100, 10, 0)},
	})
	require.NoError(t, err)

	assert.Equal(t, 100.0, doc.WidthMM)
	assert.Equal(t, 100.0, doc.HeightMM)
	require.Len(t, doc.Polylines, 11)

	for i, pl := range doc.Polylines {
		assert.Equal(t, "L0_0deg", pl.Label)
		assert.Equal(t, 0.3, pl.StrokeWidthMM)
		require.Len(t, pl.Points, 201, "polyline %d", i)
		assert.Equal(t, 0.0, pl.Points[0].X)
		assert.Equal(t, 100.0, pl.Points[200].X)
		assert.Equal(t, float64(i*10), pl.Points[0].Y)
		for j := 1; j < len(pl.Points); j++ {
			assert.InDelta(t, 0.5, pl.Points[j].X-pl.Points[j-1].X, 1e-9)
		}
	}
}

func TestHatchFullMaskGridLaw(t *testing.T) {
	cases := []struct {
		name    string
		pxW     int
		pxH     int
		widthMM float64
		spacing float64
	}{
		{"square", 50, 50, 50, 5},
		{"wide", 120, 40, 60, 7},
		{"fine", 64, 48, 32, 0.9},
		{"tall", 30, 90, 20, 4},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			const samples = 4.0
			doc, err := Hatch(Request{
				WidthMM:      tc.widthMM,
				SamplesPerMM: samples,
				Layers:       []Layer{fullLayer(tc.pxW, tc.pxH, tc.spacing, 0)},
			})
			require.NoError(t, err)

			want := int(math.Floor(doc.HeightMM/tc.spacing)) + 1
			require.Len(t, doc.Polylines, want)
			for _, pl := range doc.Polylines {
				first, last := pl.Points[0], pl.Points[len(pl.Points)-1]
				assert.InDelta(t, 0, first.X, 1/samples)
				assert.InDelta(t, doc.WidthMM, last.X, 1/samples)
				assert.Equal(t, first.Y, last.Y)
			}
		})
	}
}

func TestHatchVertical(t *testing.T) {
	doc, err := Hatch(Request{
		WidthMM:      10,
		SamplesPerMM: 1,
		Layers:       []Layer{fullLayer(10, 10, 5, 90)},
	})
	require.NoError(t, err)
	require.Len(t, doc.Polylines, 3)

	// v = -x, so scanlines run from the right edge to the left.
	for i, wantX := range []float64{10, 5, 0} {
		pl := doc.Polylines[i]
		assert.Equal(t, "L0_90deg", pl.Label)
		require.Len(t, pl.Points, 11)
		for j, p := range pl.Points {
			assert.InDelta(t, wantX, p.X, 1e-9)
			assert.InDelta(t, float64(j), p.Y, 1e-9)
		}
	}
}

func TestHatchContainment(t *testing.T) {
	layer := fullLayer(80, 50, 1.3, 0, 17, 30, 45, 90, 135, 179.5)
	doc, err := Hatch(Request{
		WidthMM:      80,
		SamplesPerMM: 3,
		MergeGapMM:   0.25,
		Layers:       []Layer{layer},
	})
	require.NoError(t, err)
	require.NotEmpty(t, doc.Polylines)

	frame := doc.Frame()
	for _, pl := range doc.Polylines {
		require.GreaterOrEqual(t, len(pl.Points), 2)
		for _, p := range pl.Points {
			require.True(t, frame.ContainsTol(p, 1e-6), "%s: point %+v outside %+v", pl.Label, p, frame)
		}
	}
}

func TestHatchMonotonicAlongScanline(t *testing.T) {
	const deg = 30.0
	doc, err := Hatch(Request{
		WidthMM:      40,
		SamplesPerMM: 2,
		Layers:       []Layer{fullLayer(40, 40, 2, deg)},
	})
	require.NoError(t, err)

	dir := [2]float64{math.Cos(deg * math.Pi / 180), math.Sin(deg * math.Pi / 180)}
	for _, pl := range doc.Polylines {
		for j := 1; j < len(pl.Points); j++ {
			d := (pl.Points[j].X-pl.Points[j-1].X)*dir[0] + (pl.Points[j].Y-pl.Points[j-1].Y)*dir[1]
			require.Greater(t, d, 0.0)
		}
	}
}

func TestHatchDeterministic(t *testing.T) {
	m, err := mask.FromRows(
		"..####....",
		".######...",
		"##..####..",
		"##...####.",
		".#######..",
		"...###....",
	)
	require.NoError(t, err)

	req := Request{
		WidthMM:      25,
		SamplesPerMM: 5,
		MergeGapMM:   0.5,
		Layers: []Layer{
			{Mask: m, Angles: []float64{0, 45, 100}, Spacing: 0.7, StrokeWidth: 0.2, Label: "A"},
			{Mask: m, Angles: []float64{-30}, Spacing: 1.1, StrokeWidth: 0.4, Label: "B"},
		},
	}

	sequential := req
	sequential.Workers = 1
	want, err := Hatch(sequential)
	require.NoError(t, err)

	for _, workers := range []int{0, 2, 8} {
		req.Workers = workers
		got, err := Hatch(req)
		require.NoError(t, err)
		require.Equal(t, want, got, "workers=%d", workers)
	}

	// Layer order, then angle order.
	var labels []string
	for _, pl := range want.Polylines {
		if len(labels) == 0 || labels[len(labels)-1] != pl.Label {
			labels = append(labels, pl.Label)
		}
	}
	assert.Equal(t, []string{"A_0deg", "A_45deg", "A_100deg", "B_150deg"}, labels)
}

func TestHatchEmptyMask(t *testing.T) {
	doc, err := Hatch(Request{
		WidthMM:      50,
		SamplesPerMM: 2,
		Layers: []Layer{{
			Mask:        mask.New(40, 30),
			Angles:      []float64{0, 45, 90, 135},
			Spacing:     1,
			StrokeWidth: 0.3,
			Label:       "EMPTY",
		}},
	})
	require.NoError(t, err)
	assert.Empty(t, doc.Polylines)
	assert.InDelta(t, 37.5, doc.HeightMM, 1e-12)
}

func TestHatchNoLayers(t *testing.T) {
	doc, err := Hatch(Request{WidthMM: 20, SamplesPerMM: 1, SourceWidth: 200, SourceHeight: 100})
	require.NoError(t, err)
	assert.Empty(t, doc.Polylines)
	assert.Equal(t, 10.0, doc.HeightMM)
}

func TestHatchEmptyAnglesDefaultToZero(t *testing.T) {
	doc, err := Hatch(Request{
		WidthMM:      10,
		SamplesPerMM: 1,
		Layers:       []Layer{fullLayer(10, 10, 5)},
	})
	require.NoError(t, err)
	require.Len(t, doc.Polylines, 3)
	assert.Equal(t, "L0_0deg", doc.Polylines[0].Label)
}

func TestHatchFoldsAngles(t *testing.T) {
	folded, err := Hatch(Request{WidthMM: 30, SamplesPerMM: 2, Layers: []Layer{fullLayer(30, 20, 1.5, 225)}})
	require.NoError(t, err)
	plain, err := Hatch(Request{WidthMM: 30, SamplesPerMM: 2, Layers: []Layer{fullLayer(30, 20, 1.5, 45)}})
	require.NoError(t, err)

	assert.Equal(t, plain, folded)
	assert.Equal(t, "L0_45deg", folded.Polylines[0].Label)
}

// gapMask is one row of 100 pixels with columns 40-49 empty. At 1 px/mm and
// one sample per mm the two runs end at x=39 and start at x=50.
func gapMask(t *testing.T) *mask.Mask {
	t.Helper()
	m := mask.Full(100, 1)
	for x := 40; x < 50; x++ {
		m.Set(x, 0, false)
	}
	return m
}

func TestHatchMergeInclusive(t *testing.T) {
	cases := []struct {
		gap       float64
		wantLines int
	}{
		{0, 2},
		{10.999, 2},
		{11, 1},
		{25, 1},
	}

	for _, tc := range cases {
		doc, err := Hatch(Request{
			WidthMM:      100,
			SamplesPerMM: 1,
			MergeGapMM:   tc.gap,
			Layers: []Layer{{
				Mask: gapMask(t), Angles: []float64{0}, Spacing: 10, StrokeWidth: 0.3, Label: "G",
			}},
		})
		require.NoError(t, err)
		require.Len(t, doc.Polylines, tc.wantLines, "gap %v", tc.gap)

		if tc.wantLines == 1 {
			assert.Len(t, doc.Polylines[0].Points, 91)
		} else {
			assert.Len(t, doc.Polylines[0].Points, 40)
			assert.Len(t, doc.Polylines[1].Points, 51)
			assert.Equal(t, 39.0, doc.Polylines[0].Points[39].X)
			assert.Equal(t, 50.0, doc.Polylines[1].Points[0].X)
		}
	}
}

func TestHatchDropsSingleSampleRuns(t *testing.T) {
	m := mask.New(10, 1)
	m.Set(5, 0, true)

	doc, err := Hatch(Request{
		WidthMM:      10,
		SamplesPerMM: 1,
		Layers:       []Layer{{Mask: m, Spacing: 1, StrokeWidth: 0.3, Label: "S"}},
	})
	require.NoError(t, err)
	assert.Empty(t, doc.Polylines)
}

func TestHatchClampsSamplingDensity(t *testing.T) {
	doc, err := Hatch(Request{
		WidthMM:      100,
		SamplesPerMM: 0.01,
		Layers:       []Layer{fullLayer(100, 100, 50, 0)},
	})
	require.NoError(t, err)
	require.NotEmpty(t, doc.Polylines)
	// 0.2 samples/mm means one sample every 5mm.
	assert.Len(t, doc.Polylines[0].Points, 21)
}

func TestHatchRejectsInvalidParameters(t *testing.T) {
	good := func() Request {
		return Request{
			WidthMM:      10,
			SamplesPerMM: 1,
			MergeGapMM:   0,
			Layers:       []Layer{fullLayer(10, 10, 1, 0)},
		}
	}

	cases := []struct {
		name   string
		mutate func(*Request)
		field  string
	}{
		{"zero width", func(r *Request) { r.WidthMM = 0 }, "widthMM"},
		{"NaN width", func(r *Request) { r.WidthMM = math.NaN() }, "widthMM"},
		{"zero samples", func(r *Request) { r.SamplesPerMM = 0 }, "samplesPerMM"},
		{"negative samples", func(r *Request) { r.SamplesPerMM = -2 }, "samplesPerMM"},
		{"negative gap", func(r *Request) { r.MergeGapMM = -0.1 }, "mergeGapMM"},
		{"half source size", func(r *Request) { r.SourceWidth = 10 }, "sourceSize"},
		{"zero spacing", func(r *Request) { r.Layers[0].Spacing = 0 }, "layers[0].spacing"},
		{"inf spacing", func(r *Request) { r.Layers[0].Spacing = math.Inf(1) }, "layers[0].spacing"},
		{"zero stroke", func(r *Request) { r.Layers[0].StrokeWidth = 0 }, "layers[0].strokeWidth"},
		{"nil mask", func(r *Request) { r.Layers[0].Mask = nil }, "layers[0].mask"},
		{"empty mask", func(r *Request) { r.Layers[0].Mask = mask.New(0, 5) }, "layers[0].mask"},
		{"NaN angle", func(r *Request) { r.Layers[0].Angles = []float64{0, math.NaN()} }, "layers[0].angles[1]"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := good()
			tc.mutate(&req)
			doc, err := Hatch(req)
			require.Error(t, err)
			assert.Nil(t, doc)
			assert.True(t, errors.Is(err, ErrInvalidParameter))

			var pe *ParamError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, tc.field, pe.Field)
		})
	}
}

func TestSummarize(t *testing.T) {
	doc, err := Hatch(Request{
		WidthMM:      100,
		SamplesPerMM: 2,
		Layers:       []Layer{fullLayer(100, 100, 10, 0, 90)},
	})
	require.NoError(t, err)

	stats := Summarize(doc)
	require.Len(t, stats, 2)
	assert.Equal(t, "L0_0deg", stats[0].Label)
	assert.Equal(t, 11, stats[0].Polylines)
	assert.Equal(t, 11*201, stats[0].Vertices)
	assert.InDelta(t, 1100, stats[0].LengthMM, 1e-6)
	assert.Equal(t, "L0_90deg", stats[1].Label)

	b := Bounds(doc)
	assert.InDelta(t, 100, b.Width, 1e-9)
	assert.InDelta(t, 100, b.Height, 1e-9)
}
