package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/arvelk/muflow/internal/config"
	"github.com/arvelk/muflow/internal/dataset"
	"github.com/arvelk/muflow/internal/export"
	"github.com/arvelk/muflow/internal/frames"
	"github.com/arvelk/muflow/internal/render"
	"github.com/arvelk/muflow/internal/viz"
)

var (
	dataDir    string
	configFile string
	verbose    bool

	band     string
	out      string
	colormap string
	delayCS  int
	hq       bool
	show     bool
	noGIF    bool
	muRes    int
	kRes     int
	width    int
	boundary string
	tVal     float64
	t2Val    float64
	workers  int
)

var logger *slog.Logger

func main() {
	rootCmd := &cobra.Command{
		Use:   "muflow",
		Short: "animate Haldane-model spectra across chemical potential",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			logger = slog.New(tint.NewHandler(os.Stderr, &tint.Options{
				Level:      level,
				TimeFormat: time.Kitchen,
			}))
			slog.SetDefault(logger)
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "data", "base data directory")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	renderCmd := &cobra.Command{
		Use:   "render [dir]",
		Short: "render a scan directory into an animated gif",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runRender,
	}
	addScanFlags(renderCmd)
	renderCmd.Flags().StringVar(&out, "out", "", "output gif path")
	renderCmd.Flags().StringVar(&colormap, "colormap", "", "colormap name (thermal, viridis, gray)")
	renderCmd.Flags().IntVar(&delayCS, "delay", config.DefaultDelayCS, "frame delay (centiseconds)")
	renderCmd.Flags().BoolVar(&hq, "hq", false, "high quality rendering (bilinear sampling)")
	renderCmd.Flags().BoolVar(&show, "show", false, "preview the animation in the terminal")
	renderCmd.Flags().BoolVar(&noGIF, "no-gif", false, "skip writing the gif")
	renderCmd.Flags().IntVar(&workers, "workers", 0, "render workers (0 = all cpus)")

	framesCmd := &cobra.Command{
		Use:   "frames [dir]",
		Short: "list the sorted frame files of a scan",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runFrames,
	}
	addScanFlags(framesCmd)

	statsCmd := &cobra.Command{
		Use:   "stats [dir]",
		Short: "plot per-frame value extremes across the scan",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runStats,
	}
	addScanFlags(statsCmd)

	showCmd := &cobra.Command{
		Use:   "show [dir]",
		Short: "render and preview the animation in the terminal",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runShow,
	}
	addScanFlags(showCmd)
	showCmd.Flags().StringVar(&colormap, "colormap", "", "colormap name")
	showCmd.Flags().BoolVar(&hq, "hq", false, "high quality rendering")

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "configuration helpers",
	}
	configInitCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "write the default config file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "muflow.yaml"
			if len(args) > 0 {
				path = args[0]
			}
			if err := config.Save(path, config.DefaultConfig()); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", path)
			return nil
		},
	}
	configCmd.AddCommand(configInitCmd)

	rootCmd.AddCommand(renderCmd, framesCmd, statsCmd, showCmd, configCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addScanFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&band, "band", "", "data band: pos, neg or berry")
	cmd.Flags().IntVar(&muRes, "mu-res", config.DefaultMuRes, "chemical potential resolution")
	cmd.Flags().IntVar(&kRes, "k-res", config.DefaultKRes, "momentum resolution")
	cmd.Flags().IntVar(&width, "width", config.DefaultWidth, "system width")
	cmd.Flags().StringVar(&boundary, "boundary", config.DefaultBoundary, "boundary condition tag")
	cmd.Flags().Float64Var(&tVal, "t", config.DefaultT, "nearest-neighbor coupling")
	cmd.Flags().Float64Var(&t2Val, "t2", config.DefaultT2, "next-nearest-neighbor coupling")
}

// loadConfig builds the run configuration: defaults, then the config file,
// then explicit CLI flags, in increasing precedence.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flagOverrides := map[string]func(){
		"band":     func() { cfg.Band = band },
		"mu-res":   func() { cfg.MuRes = muRes },
		"k-res":    func() { cfg.KRes = kRes },
		"width":    func() { cfg.Width = width },
		"boundary": func() { cfg.Boundary = boundary },
		"t":        func() { cfg.T = tVal },
		"t2":       func() { cfg.T2 = t2Val },
		"out":      func() { cfg.OutputPath = out },
		"colormap": func() { cfg.ColorMap = colormap },
		"delay":    func() { cfg.DelayCS = delayCS },
		"hq":       func() { cfg.HighQuality = hq },
		"show":     func() { cfg.ShowAnimation = show },
		"no-gif":   func() { cfg.ExportGIF = !noGIF },
	}
	for name, apply := range flagOverrides {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			apply()
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// scanDir resolves the input directory: an explicit argument wins,
// otherwise it is derived from the scan parameters the way the simulation
// stage lays out its output: <data>/<folder>/<band>.
func scanDir(cfg *config.Config, args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return filepath.Join(dataDir, cfg.FolderName(), cfg.Band)
}

func importSequence(cfg *config.Config, args []string) (frames.List, dataset.Sequence, error) {
	dir := scanDir(cfg, args)
	logger.Debug("scanning", "dir", dir)

	list, err := frames.NewLibrary().Scan(dir)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("found frames", "count", len(list), "dir", dir)

	seq, err := dataset.NewImporter().ImportAll(list)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("imported matrices", "count", len(seq),
		"shape", fmt.Sprintf("%dx%d", seq[0].Rows, seq[0].Cols))
	return list, seq, nil
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	_, seq, err := importSequence(cfg, args)
	if err != nil {
		return err
	}

	opts := render.FromConfig(cfg)
	opts.Workers = workers

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	rendered, err := render.RenderAll(ctx, seq, opts)
	if err != nil {
		return err
	}
	logger.Info("rendered frames", "count", len(rendered), "elapsed", time.Since(start))

	if cfg.ExportGIF {
		grad, err := render.GradientByName(cfg.ColorMap)
		if err != nil {
			return err
		}
		if err := export.GIF(rendered, render.PlotPalette(grad), cfg.OutputPath, cfg.DelayCS); err != nil {
			return err
		}
		logger.Info("wrote animation", "path", cfg.OutputPath)
	}

	if cfg.ShowAnimation {
		return viz.Show(rendered, time.Duration(cfg.DelayCS)*10*time.Millisecond)
	}
	return nil
}

func runFrames(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	list, err := frames.NewLibrary().Scan(scanDir(cfg, args))
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "POS\tNAME\tKEY")
	for i, src := range list {
		keys := make([]string, len(src.Key))
		for j, k := range src.Key {
			keys[j] = fmt.Sprintf("%g", k)
		}
		fmt.Fprintf(w, "%d\t%s\t[%s]\n", i, src.Name, strings.Join(keys, ", "))
	}
	return w.Flush()
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	_, seq, err := importSequence(cfg, args)
	if err != nil {
		return err
	}

	mins := make([]float64, len(seq))
	maxs := make([]float64, len(seq))
	for i, m := range seq {
		mins[i] = m.Min
		maxs[i] = m.Max
	}

	lo, hi := seq.MinMax()
	fmt.Printf("frames: %d  shape: %dx%d  range: [%g, %g]\n\n",
		len(seq), seq[0].Rows, seq[0].Cols, lo, hi)

	// Sequence order is highest µ first; the x axis runs the same way.
	fmt.Println(asciigraph.Plot(maxs,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption("per-frame max (sequence order)"),
	))
	fmt.Println()
	fmt.Println(asciigraph.Plot(mins,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption("per-frame min (sequence order)"),
	))
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	_, seq, err := importSequence(cfg, args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rendered, err := render.RenderAll(ctx, seq, render.FromConfig(cfg))
	if err != nil {
		return err
	}
	return viz.Show(rendered, time.Duration(cfg.DelayCS)*10*time.Millisecond)
}
