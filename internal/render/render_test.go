package render

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arvelk/muflow/internal/config"
	"github.com/arvelk/muflow/internal/dataset"
)

func testOptions() Options {
	return Options{
		XRange:   config.Range{Min: -math.Pi, Max: math.Pi},
		YRange:   config.Range{Min: -math.Pi, Max: math.Pi},
		ColorMap: "gray",
		Width:    160,
		Height:   160,
		BoxRatio: 1.0,
	}
}

func rampMatrix(rows, cols int) *dataset.Matrix {
	m := &dataset.Matrix{Rows: rows, Cols: cols, Min: 0, Max: float64(rows*cols - 1)}
	for i := 0; i < rows*cols; i++ {
		m.Data = append(m.Data, float64(i))
	}
	return m
}

func TestRenderSizeAndDeterminism(t *testing.T) {
	m := rampMatrix(4, 6)
	o := testOptions()

	a, err := Render(m, o)
	require.NoError(t, err)
	require.Equal(t, o.Width, a.Bounds().Dx())
	require.Equal(t, o.Height, a.Bounds().Dy())

	b, err := Render(m, o)
	require.NoError(t, err)
	require.Equal(t, a.Pix, b.Pix, "render must be a pure function of (matrix, options)")
}

func TestRenderUnknownColormap(t *testing.T) {
	o := testOptions()
	o.ColorMap = "plasma"

	_, err := Render(rampMatrix(2, 2), o)
	require.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestRenderNonFiniteMargin(t *testing.T) {
	o := testOptions()
	o.Margins.Value = math.NaN()

	_, err := Render(rampMatrix(2, 2), o)
	require.ErrorIs(t, err, config.ErrInvalidConfig)

	o = testOptions()
	o.Margins.X = math.Inf(-1)
	_, err = Render(rampMatrix(2, 2), o)
	require.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestRenderValueExtremesMapToGradientEnds(t *testing.T) {
	// Left column low, right column high; gray colormap, no margins:
	// the data area should run from near-black to near-white.
	m := &dataset.Matrix{Rows: 2, Cols: 2, Data: []float64{0, 1, 0, 1}, Min: 0, Max: 1}
	o := testOptions()

	img, err := Render(m, o)
	require.NoError(t, err)

	box := plotBox(o)
	y := (box.Min.Y + box.Max.Y) / 2
	left := img.RGBAAt(box.Min.X+5, y)
	right := img.RGBAAt(box.Max.X-6, y)
	require.Less(t, int(left.R), 30, "low values should be dark")
	require.Greater(t, int(right.R), 225, "high values should be bright")
}

func TestRenderHighQualityInterpolates(t *testing.T) {
	m := &dataset.Matrix{Rows: 2, Cols: 2, Data: []float64{0, 1, 0, 1}, Min: 0, Max: 1}
	o := testOptions()
	o.HighQuality = true

	img, err := Render(m, o)
	require.NoError(t, err)

	box := plotBox(o)
	center := img.RGBAAt((box.Min.X+box.Max.X)/2, (box.Min.Y+box.Max.Y)/2)
	require.Greater(t, int(center.R), 80, "midpoint should be blended, not black")
	require.Less(t, int(center.R), 180, "midpoint should be blended, not white")
}

func TestRenderAllPreservesOrder(t *testing.T) {
	seq := make(dataset.Sequence, 16)
	for i := range seq {
		seq[i] = rampMatrix(3, 3+i)
	}
	o := testOptions()
	o.Workers = 4

	parallel, err := RenderAll(context.Background(), seq, o)
	require.NoError(t, err)
	require.Len(t, parallel, len(seq))

	for i, m := range seq {
		want, err := Render(m, o)
		require.NoError(t, err)
		require.Equal(t, want.Pix, parallel[i].Pix, "frame %d out of order", i)
	}
}

func TestRenderAllPropagatesInvalidConfig(t *testing.T) {
	o := testOptions()
	o.ColorMap = "nope"

	_, err := RenderAll(context.Background(), dataset.Sequence{rampMatrix(2, 2)}, o)
	require.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestRenderAllCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	seq := make(dataset.Sequence, 64)
	for i := range seq {
		seq[i] = rampMatrix(8, 8)
	}
	o := testOptions()
	o.Workers = 1

	_, err := RenderAll(ctx, seq, o)
	require.ErrorIs(t, err, context.Canceled)
}

func TestPlotBoxRespectsRatio(t *testing.T) {
	o := testOptions()
	o.Width = 400
	o.Height = 200
	o.BoxRatio = 1.0

	box := plotBox(o)
	require.Equal(t, box.Dx(), box.Dy())
	require.GreaterOrEqual(t, box.Min.X, padLeft)
	require.GreaterOrEqual(t, box.Min.Y, padTop)
}
