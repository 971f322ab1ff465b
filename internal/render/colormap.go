package render

import (
	"fmt"
	"image/color"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/arvelk/muflow/internal/config"
)

// Gradient maps a normalized value in [0,1] to a color by blending between
// fixed stops in CIE-Luv space, which keeps the ramp perceptually even.
type Gradient struct {
	Name  string
	stops []gradientStop
}

type gradientStop struct {
	pos float64
	col colorful.Color
}

var gradients = map[string]*Gradient{
	"thermal": {
		Name: "thermal",
		stops: []gradientStop{
			{0.0, mustHex("#03051a")},
			{0.25, mustHex("#3f1b44")},
			{0.5, mustHex("#a3195b")},
			{0.75, mustHex("#f66b4d")},
			{1.0, mustHex("#fdf5c8")},
		},
	},
	"viridis": {
		Name: "viridis",
		stops: []gradientStop{
			{0.0, mustHex("#440154")},
			{0.25, mustHex("#3b528b")},
			{0.5, mustHex("#21918c")},
			{0.75, mustHex("#5ec962")},
			{1.0, mustHex("#fde725")},
		},
	},
	"gray": {
		Name: "gray",
		stops: []gradientStop{
			{0.0, mustHex("#000000")},
			{1.0, mustHex("#ffffff")},
		},
	},
}

func mustHex(s string) colorful.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		panic(err)
	}
	return c
}

// GradientByName looks up a colormap; unknown names are a configuration
// error.
func GradientByName(name string) (*Gradient, error) {
	g, ok := gradients[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown colormap %q", config.ErrInvalidConfig, name)
	}
	return g, nil
}

// At returns the gradient color for t, clamped to [0,1].
func (g *Gradient) At(t float64) colorful.Color {
	if t <= g.stops[0].pos {
		return g.stops[0].col
	}
	last := g.stops[len(g.stops)-1]
	if t >= last.pos {
		return last.col
	}
	for i := 0; i < len(g.stops)-1; i++ {
		lo, hi := g.stops[i], g.stops[i+1]
		if t <= hi.pos {
			frac := (t - lo.pos) / (hi.pos - lo.pos)
			return lo.col.BlendLuv(hi.col, frac).Clamped()
		}
	}
	return last.col
}

// RGBA returns the gradient color for t as a premultiplied stdlib color.
func (g *Gradient) RGBA(t float64) color.RGBA {
	r, gr, b := g.At(t).RGB255()
	return color.RGBA{R: r, G: gr, B: b, A: 255}
}

// Palette samples n colors evenly across the gradient, for GIF encoding.
func (g *Gradient) Palette(n int) color.Palette {
	if n < 2 {
		n = 2
	}
	pal := make(color.Palette, n)
	for i := 0; i < n; i++ {
		pal[i] = g.RGBA(float64(i) / float64(n-1))
	}
	return pal
}

// PlotPalette is the gradient palette plus the plot chrome colors, so
// quantized frames keep a clean background, frame and labels.
func PlotPalette(g *Gradient) color.Palette {
	pal := g.Palette(250)
	return append(pal, background, frameColor, textColor)
}
