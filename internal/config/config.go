package config

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig marks rendering configuration the pipeline cannot act on
// (non-finite margins or ranges, unknown colormap, zero-sized output).
var ErrInvalidConfig = errors.New("invalid configuration")

const (
	DefaultMuRes    = 51
	DefaultKRes     = 101
	DefaultWidth    = 20
	DefaultBoundary = "infinite"
	DefaultT        = 1.0
	DefaultT2       = 0.0
	DefaultDelayCS  = 4
)

// Range is a closed numeric interval, used for plot axes.
type Range struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

func (r Range) Span() float64 { return r.Max - r.Min }

// Expanded scales both endpoints by 1+f. A positive fraction pushes the
// limits outward proportionally, a negative one pulls them in; with f=-0.05
// a value range [0, 0.5] becomes [0, 0.475].
func (r Range) Expanded(f float64) Range {
	return Range{Min: r.Min * (1 + f), Max: r.Max * (1 + f)}
}

// Margins holds the per-axis margin fractions applied to plot ranges.
// Value applies to the color-mapped axis and is typically negative,
// cropping the extremes of the data.
type Margins struct {
	X     float64 `yaml:"x"`
	Y     float64 `yaml:"y"`
	Value float64 `yaml:"value"`
}

// Config collects every knob of one run: the parameters that identify the
// input folder, and the rendering/export settings. Constructed once at
// start and treated as immutable afterwards.
type Config struct {
	// Scan parameters; these determine the input folder name.
	MuRes    int     `yaml:"mu_res"`
	KRes     int     `yaml:"k_res"`
	Width    int     `yaml:"width"`
	Boundary string  `yaml:"boundary"`
	T        float64 `yaml:"t"`
	T2       float64 `yaml:"t2"`

	// Band selects the subfolder written by the simulation stage:
	// "pos" / "neg" for the two eigenvalue bands, "berry" for curvature.
	Band string `yaml:"band"`

	// Rendering.
	KRange      Range   `yaml:"k_range"`
	Margins     Margins `yaml:"margins"`
	ColorMap    string  `yaml:"colormap"`
	ImageWidth  int     `yaml:"image_width"`
	ImageHeight int     `yaml:"image_height"`
	FrameTicks  bool    `yaml:"frame_ticks"`
	XLabel      string  `yaml:"x_label"`
	YLabel      string  `yaml:"y_label"`
	Title       string  `yaml:"title"`
	BoxRatio    float64 `yaml:"box_ratio"`
	HighQuality bool    `yaml:"high_quality"`

	// Output.
	ExportGIF     bool   `yaml:"export_gif"`
	ShowAnimation bool   `yaml:"show_animation"`
	DelayCS       int    `yaml:"delay_cs"`
	OutputPath    string `yaml:"output_path"`
}

func DefaultConfig() *Config {
	kMax := 4.0 / 3.0 * math.Pi
	return &Config{
		MuRes:    DefaultMuRes,
		KRes:     DefaultKRes,
		Width:    DefaultWidth,
		Boundary: DefaultBoundary,
		T:        DefaultT,
		T2:       DefaultT2,
		Band:     "pos",
		KRange:   Range{Min: -kMax, Max: kMax},
		Margins:  Margins{X: 0.1, Y: 0.1, Value: -0.05},
		ColorMap: "thermal",

		ImageWidth:  480,
		ImageHeight: 480,
		FrameTicks:  true,
		XLabel:      "k_x",
		YLabel:      "k_y",
		BoxRatio:    1.0,

		ExportGIF:  true,
		DelayCS:    DefaultDelayCS,
		OutputPath: "spectrum.gif",
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// FolderName derives the input folder written by the simulation stage from
// the scan parameters. The format is fixed by the producer side:
// muRes{r1}_kRes{r2}_width{w}_boundary{b}_t{t}_t2{t2}, couplings with two
// decimals.
func (c *Config) FolderName() string {
	return fmt.Sprintf("muRes%d_kRes%d_width%d_boundary%s_t%.2f_t2%.2f",
		c.MuRes, c.KRes, c.Width, c.Boundary, c.T, c.T2)
}

func (c *Config) Validate() error {
	for _, v := range []struct {
		name string
		val  float64
	}{
		{"margins.x", c.Margins.X},
		{"margins.y", c.Margins.Y},
		{"margins.value", c.Margins.Value},
		{"k_range.min", c.KRange.Min},
		{"k_range.max", c.KRange.Max},
		{"box_ratio", c.BoxRatio},
	} {
		if math.IsNaN(v.val) || math.IsInf(v.val, 0) {
			return fmt.Errorf("%w: %s is not finite", ErrInvalidConfig, v.name)
		}
	}
	if c.KRange.Min >= c.KRange.Max {
		return fmt.Errorf("%w: k_range must be increasing, got [%g, %g]",
			ErrInvalidConfig, c.KRange.Min, c.KRange.Max)
	}
	if c.ImageWidth <= 0 || c.ImageHeight <= 0 {
		return fmt.Errorf("%w: image size must be positive, got %dx%d",
			ErrInvalidConfig, c.ImageWidth, c.ImageHeight)
	}
	if c.BoxRatio <= 0 {
		return fmt.Errorf("%w: box_ratio must be positive, got %g",
			ErrInvalidConfig, c.BoxRatio)
	}
	if c.DelayCS < 0 {
		return fmt.Errorf("%w: delay_cs must be non-negative, got %d",
			ErrInvalidConfig, c.DelayCS)
	}
	return nil
}
