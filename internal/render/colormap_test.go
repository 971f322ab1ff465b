package render

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arvelk/muflow/internal/config"
)

func TestGradientByName(t *testing.T) {
	for _, name := range []string{"thermal", "viridis", "gray"} {
		g, err := GradientByName(name)
		require.NoError(t, err)
		require.Equal(t, name, g.Name)
	}

	_, err := GradientByName("jet")
	require.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestGrayGradientEndpoints(t *testing.T) {
	g, err := GradientByName("gray")
	require.NoError(t, err)

	lo := g.RGBA(0)
	hi := g.RGBA(1)
	require.Equal(t, uint8(0), lo.R)
	require.Equal(t, uint8(0), lo.G)
	require.Equal(t, uint8(0), lo.B)
	require.Equal(t, uint8(255), hi.R)
	require.Equal(t, uint8(255), hi.G)
	require.Equal(t, uint8(255), hi.B)
}

func TestGradientClampsOutOfRange(t *testing.T) {
	g, err := GradientByName("thermal")
	require.NoError(t, err)

	require.Equal(t, g.RGBA(0), g.RGBA(-2))
	require.Equal(t, g.RGBA(1), g.RGBA(3.5))
}

func TestGrayGradientMonotonic(t *testing.T) {
	g, err := GradientByName("gray")
	require.NoError(t, err)

	prev := -1
	for i := 0; i <= 20; i++ {
		c := g.RGBA(float64(i) / 20)
		if int(c.R) < prev {
			t.Fatalf("gray ramp not monotonic at step %d: %d < %d", i, c.R, prev)
		}
		prev = int(c.R)
	}
}

func TestPalette(t *testing.T) {
	g, err := GradientByName("viridis")
	require.NoError(t, err)

	pal := g.Palette(64)
	require.Len(t, pal, 64)
	require.Equal(t, g.RGBA(0), pal[0])
	require.Equal(t, g.RGBA(1), pal[63])

	// GIF palettes cap at 256 entries; the plot palette must fit.
	require.LessOrEqual(t, len(PlotPalette(g)), 256)
}
