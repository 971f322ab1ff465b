// Package render turns parsed matrices into styled density-plot frames.
package render

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"
	"runtime"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/arvelk/muflow/internal/config"
	"github.com/arvelk/muflow/internal/dataset"
)

// Layout margins around the plot box, in pixels.
const (
	padLeft   = 48
	padRight  = 16
	padTop    = 24
	padBottom = 36
	tickLen   = 5
)

var (
	background = color.RGBA{255, 255, 255, 255}
	frameColor = color.RGBA{40, 40, 40, 255}
	textColor  = color.RGBA{20, 20, 20, 255}
)

// Options is the full rendering configuration for one run. It is a pure
// value: the same matrix and options always produce the same frame.
type Options struct {
	XRange, YRange config.Range
	Margins        config.Margins
	ColorMap       string
	Width, Height  int
	FrameTicks     bool
	XLabel, YLabel string
	Title          string
	BoxRatio       float64
	HighQuality    bool

	// Workers bounds RenderAll's parallelism; 0 means NumCPU.
	Workers int
}

// FromConfig derives rendering options from the run configuration.
func FromConfig(cfg *config.Config) Options {
	return Options{
		XRange:      cfg.KRange,
		YRange:      cfg.KRange,
		Margins:     cfg.Margins,
		ColorMap:    cfg.ColorMap,
		Width:       cfg.ImageWidth,
		Height:      cfg.ImageHeight,
		FrameTicks:  cfg.FrameTicks,
		XLabel:      cfg.XLabel,
		YLabel:      cfg.YLabel,
		Title:       cfg.Title,
		BoxRatio:    cfg.BoxRatio,
		HighQuality: cfg.HighQuality,
	}
}

func (o Options) Validate() error {
	for _, v := range []struct {
		name string
		val  float64
	}{
		{"x margin", o.Margins.X},
		{"y margin", o.Margins.Y},
		{"value margin", o.Margins.Value},
		{"x range min", o.XRange.Min},
		{"x range max", o.XRange.Max},
		{"y range min", o.YRange.Min},
		{"y range max", o.YRange.Max},
	} {
		if math.IsNaN(v.val) || math.IsInf(v.val, 0) {
			return fmt.Errorf("%w: %s is not finite", config.ErrInvalidConfig, v.name)
		}
	}
	if o.Width <= 0 || o.Height <= 0 {
		return fmt.Errorf("%w: frame size must be positive, got %dx%d",
			config.ErrInvalidConfig, o.Width, o.Height)
	}
	if _, err := GradientByName(o.ColorMap); err != nil {
		return err
	}
	return nil
}

// Render draws one matrix as a density plot. Pure function of its inputs:
// no I/O, no shared state, safe to call concurrently.
func Render(m *dataset.Matrix, o Options) (*image.RGBA, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}
	grad, err := GradientByName(o.ColorMap)
	if err != nil {
		return nil, err
	}

	xr := o.XRange.Expanded(o.Margins.X)
	yr := o.YRange.Expanded(o.Margins.Y)
	vr := config.Range{Min: m.Min, Max: m.Max}.Expanded(o.Margins.Value)
	vspan := vr.Span()
	if vspan == 0 {
		vspan = 1
	}

	img := image.NewRGBA(image.Rect(0, 0, o.Width, o.Height))
	fill(img, background)

	box := plotBox(o)

	// Pixel rectangle covered by the raw data range inside the plot box.
	dataX0 := box.Min.X + int(axisFrac(o.XRange.Min, xr)*float64(box.Dx()))
	dataX1 := box.Min.X + int(axisFrac(o.XRange.Max, xr)*float64(box.Dx()))
	dataY0 := box.Max.Y - int(axisFrac(o.YRange.Max, yr)*float64(box.Dy()))
	dataY1 := box.Max.Y - int(axisFrac(o.YRange.Min, yr)*float64(box.Dy()))

	xDenom := float64(maxInt(dataX1-dataX0-1, 1))
	yDenom := float64(maxInt(dataY1-dataY0-1, 1))

	// A contracted axis range puts the data rectangle partly outside the
	// plot box; the loop stays inside the box while sampling positions are
	// taken relative to the full rectangle.
	for py := maxInt(dataY0, box.Min.Y); py < minInt(dataY1, box.Max.Y); py++ {
		// Row 0 maps to the bottom of the box (ascending y).
		v := float64(dataY1-1-py) / yDenom
		for px := maxInt(dataX0, box.Min.X); px < minInt(dataX1, box.Max.X); px++ {
			u := float64(px-dataX0) / xDenom
			var val float64
			if o.HighQuality {
				val = m.SampleBilinear(u, v)
			} else {
				val = m.SampleNearest(u, v)
			}
			t := (val - vr.Min) / vspan
			img.SetRGBA(px, py, grad.RGBA(t))
		}
	}

	drawFrame(img, box)
	if o.FrameTicks {
		drawTicks(img, box, xr, yr)
	}
	drawLabels(img, box, o)
	return img, nil
}

// RenderAll renders a whole sequence through a bounded worker pool,
// collecting frames positionally so the output order is the sequence order
// regardless of completion order.
func RenderAll(ctx context.Context, seq dataset.Sequence, o Options) ([]*image.RGBA, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}

	workers := o.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(seq) {
		workers = len(seq)
	}

	out := make([]*image.RGBA, len(seq))
	errs := make([]error, len(seq))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				out[i], errs[i] = Render(seq[i], o)
			}
		}()
	}

	var ctxErr error
feed:
	for i := range seq {
		select {
		case jobs <- i:
		case <-ctx.Done():
			ctxErr = ctx.Err()
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if ctxErr != nil {
		return nil, ctxErr
	}
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// axisFrac maps a value to its fractional position within r.
func axisFrac(v float64, r config.Range) float64 {
	span := r.Span()
	if span == 0 {
		return 0
	}
	return (v - r.Min) / span
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// plotBox fits the plot rectangle inside the label padding, honoring the
// configured box aspect ratio (height over width).
func plotBox(o Options) image.Rectangle {
	availW := o.Width - padLeft - padRight
	availH := o.Height - padTop - padBottom
	if availW < 1 {
		availW = 1
	}
	if availH < 1 {
		availH = 1
	}

	w, h := availW, availH
	if o.BoxRatio > 0 {
		if float64(availW)*o.BoxRatio <= float64(availH) {
			h = int(float64(availW) * o.BoxRatio)
		} else {
			w = int(float64(availH) / o.BoxRatio)
		}
	}

	x0 := padLeft + (availW-w)/2
	y0 := padTop + (availH-h)/2
	return image.Rect(x0, y0, x0+w, y0+h)
}

func fill(img *image.RGBA, c color.RGBA) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			img.SetRGBA(x, y, c)
		}
	}
}

func drawFrame(img *image.RGBA, box image.Rectangle) {
	for x := box.Min.X; x < box.Max.X; x++ {
		img.SetRGBA(x, box.Min.Y, frameColor)
		img.SetRGBA(x, box.Max.Y-1, frameColor)
	}
	for y := box.Min.Y; y < box.Max.Y; y++ {
		img.SetRGBA(box.Min.X, y, frameColor)
		img.SetRGBA(box.Max.X-1, y, frameColor)
	}
}

// tick positions at -pi, 0, pi; momentum axes are always plotted against
// these marks.
var piTicks = []struct {
	v     float64
	label string
}{
	{-math.Pi, "-pi"},
	{0, "0"},
	{math.Pi, "pi"},
}

func drawTicks(img *image.RGBA, box image.Rectangle, xr, yr config.Range) {
	for _, tk := range piTicks {
		if f := axisFrac(tk.v, xr); f >= 0 && f <= 1 {
			px := box.Min.X + int(f*float64(box.Dx()-1))
			for dy := 0; dy < tickLen; dy++ {
				img.SetRGBA(px, box.Max.Y-1-dy, frameColor)
			}
			drawText(img, px-4*len(tk.label)+4, box.Max.Y+14, tk.label)
		}
		if f := axisFrac(tk.v, yr); f >= 0 && f <= 1 {
			py := box.Max.Y - 1 - int(f*float64(box.Dy()-1))
			for dx := 0; dx < tickLen; dx++ {
				img.SetRGBA(box.Min.X+dx, py, frameColor)
			}
			drawText(img, box.Min.X-8*len(tk.label)-6, py+4, tk.label)
		}
	}
}

func drawLabels(img *image.RGBA, box image.Rectangle, o Options) {
	if o.Title != "" {
		drawText(img, (box.Min.X+box.Max.X)/2-4*len(o.Title), box.Min.Y-8, o.Title)
	}
	if o.XLabel != "" {
		drawText(img, (box.Min.X+box.Max.X)/2-4*len(o.XLabel), box.Max.Y+30, o.XLabel)
	}
	if o.YLabel != "" {
		drawText(img, 4, box.Min.Y-8, o.YLabel)
	}
}

func drawText(img *image.RGBA, x, y int, s string) {
	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(textColor),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}
