package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"maps"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/tether/internal/automation"
	"github.com/san-kum/tether/internal/config"
	"github.com/san-kum/tether/internal/export"
	"github.com/san-kum/tether/internal/sim"
	"github.com/san-kum/tether/internal/storage"
	"github.com/san-kum/tether/internal/viz"
	"github.com/spf13/cobra"
)

var (
	settings   string
	dataDir    string
	verbosity  int
	configFile string
	duration   float64
	substep    float64
	iterations int
	noCollide  bool
	noSave     bool
	output     string
	numRuns    int
	theme      string
	sweepSeg   int
	sweepMin   float64
	sweepMax   float64
	sweepSteps int
)

// main registers the commands and runs the preset menu when no subcommand
// is given.
func main() {
	rootCmd := &cobra.Command{
		Use:               "tether",
		Short:             "cable and rope simulation",
		PersistentPreRunE: applySettings,
		RunE: func(cmd *cobra.Command, args []string) error {
			viz.SetTheme(theme)
			return viz.RunInteractive(newLogger())
		},
	}

	rootCmd.PersistentFlags().StringVar(&settings, "settings", config.DefaultSettingsPath(), "user settings file (ini)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".tether", "data directory")
	rootCmd.PersistentFlags().StringVar(&theme, "theme", "cyberpunk", fmt.Sprintf("color theme %v", viz.ThemeNames()))
	rootCmd.PersistentFlags().IntVarP(&verbosity, "verbose", "v", 0, "log verbosity")

	runCmd := &cobra.Command{
		Use:   "run [preset]",
		Short: "settle a scene and store the result",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runScene,
	}
	sceneFlags(runCmd)
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot the height profile of every cable in a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run particles to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")

	svgCmd := &cobra.Command{
		Use:   "svg [run_id]",
		Short: "draw a run from the side as SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	svgCmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list scene presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tCABLES\tCOLLIDERS")
			for _, name := range config.ListPresets() {
				s := config.GetPreset(name)
				colliders := len(s.World.Planes) + len(s.World.Spheres) + len(s.World.Boxes)
				fmt.Fprintf(w, "%s\t%d\t%d\n", name, len(s.Cables), colliders)
			}
			return w.Flush()
		},
	}

	liveCmd := &cobra.Command{
		Use:   "live [preset]",
		Short: "edit and watch a scene in realtime",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	sceneFlags(liveCmd)

	benchCmd := &cobra.Command{
		Use:   "bench [preset]",
		Short: "time parallel reruns of every cable and check they agree",
		Args:  cobra.MaximumNArgs(1),
		RunE:  benchScene,
	}
	sceneFlags(benchCmd)
	benchCmd.Flags().IntVar(&numRuns, "runs", 4, "parallel runs per cable")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "apply a scripted sequence of edits",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep [preset]",
		Short: "settle a scene for a range of slack values",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSweep,
	}
	sceneFlags(sweepCmd)
	sweepCmd.Flags().IntVar(&sweepSeg, "segment", 0, "segment to change")
	sweepCmd.Flags().Float64Var(&sweepMin, "min", 0, "smallest slack")
	sweepCmd.Flags().Float64Var(&sweepMax, "max", 200, "largest slack")
	sweepCmd.Flags().IntVar(&sweepSteps, "steps", 5, "number of runs")

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, exportCSVCmd, exportJSONCmd, svgCmd, presetsCmd, liveCmd, benchCmd, scenarioCmd, sweepCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// applySettings fills in every persistent flag the user did not set from
// the settings file.
func applySettings(cmd *cobra.Command, args []string) error {
	s, err := config.LoadSettings(settings)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	flags := cmd.Flags()
	if s.Data != "" && !flags.Changed("data") {
		dataDir = s.Data
	}
	if s.Theme != "" && !flags.Changed("theme") {
		theme = s.Theme
	}
	if s.Verbose != 0 && !flags.Changed("verbose") {
		verbosity = s.Verbose
	}
	return nil
}

func newLogger() logr.Logger {
	return funcr.New(func(prefix, args string) {
		if prefix != "" {
			fmt.Fprintln(os.Stderr, prefix, args)
		} else {
			fmt.Fprintln(os.Stderr, args)
		}
	}, funcr.Options{Verbosity: verbosity})
}

func sceneFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "scene file path (yaml)")
	cmd.Flags().Float64Var(&duration, "time", sim.DefaultSimulationDuration, "simulated seconds")
	cmd.Flags().Float64Var(&substep, "substep", sim.DefaultSubstep, "substep length in seconds")
	cmd.Flags().IntVar(&iterations, "iterations", sim.DefaultIterations, "constraint iterations per substep")
	cmd.Flags().BoolVar(&noCollide, "no-collision", false, "disable collision")
}

// loadScene picks the scene from --config, a preset argument or the
// default, in that order. Flags the user set override the file.
func loadScene(cmd *cobra.Command, args []string) (*config.Scene, error) {
	var s *config.Scene
	switch {
	case configFile != "":
		var err error
		if s, err = config.Load(configFile); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	case len(args) > 0:
		if s = config.GetPreset(args[0]); s == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", args[0], config.ListPresets())
		}
	default:
		s = config.DefaultScene()
	}

	flags := cmd.Flags()
	if flags.Changed("time") {
		s.Options.SimulationDuration = duration
	}
	if flags.Changed("substep") {
		s.Options.Substep = substep
	}
	if flags.Changed("iterations") {
		s.Options.Iterations = iterations
	}
	if noCollide {
		s.Options.EnableCollision = false
	}
	return s, s.Validate()
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func runScene(cmd *cobra.Command, args []string) error {
	log := newLogger()
	cfg, err := loadScene(cmd, args)
	if err != nil {
		return err
	}
	scene, err := cfg.Build(log)
	if err != nil {
		return err
	}
	defer scene.Release()

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("settling %s (%d cables)...\n", cfg.Name, len(cfg.Cables))
	start := time.Now()
	if err := scene.SimulateAll(ctx, true); err != nil {
		return err
	}
	elapsed := time.Since(start)

	run := storage.Run{Scene: cfg.Name, Options: cfg.Options}
	for _, c := range scene.Ordered() {
		run.Cables = append(run.Cables, storage.CableRun{Name: c.Name(), Model: c.Model(), Metrics: c.Metrics()})
	}

	fmt.Printf("completed in %v\n", elapsed)
	if !noSave {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err := st.Save(run)
		if err != nil {
			return err
		}
		fmt.Printf("run id: %s\n", runID)
	}

	for _, cr := range run.Cables {
		fmt.Printf("\n%s: %d particles\n", cr.Name, cr.Model.NumParticles())
		for _, name := range sortedKeys(cr.Metrics) {
			fmt.Printf("  %s: %.6f\n", name, cr.Metrics[name])
		}
	}
	return nil
}

func sortedKeys(m map[string]float64) []string {
	return slices.Sorted(maps.Keys(m))
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCENE\tTIME\tDURATION\tSUBSTEP\tCABLES\tPARTICLES")

	for _, run := range runs {
		particles := 0
		for _, c := range run.Cables {
			particles += c.Particles
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2fs\t%.4fs\t%d\t%d\n",
			run.ID,
			run.Scene,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Options.SimulationDuration,
			run.Options.Substep,
			len(run.Cables),
			particles,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	records, err := st.LoadParticles(runID)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("scene: %s\n\n", meta.Scene)

	for _, name := range storage.Cables(records) {
		chain := storage.Chain(records, name)
		heights := make([]float64, len(chain))
		for i, p := range chain {
			heights[i] = p.Z()
		}
		graph := asciigraph.Plot(heights,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("%s: height along the cable", name)),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	for _, c := range meta.Cables {
		if len(c.Metrics) == 0 {
			continue
		}
		fmt.Printf("%s:", c.Name)
		for _, k := range sortedKeys(c.Metrics) {
			fmt.Printf("  %s=%.4f", k, c.Metrics[k])
		}
		fmt.Println()
	}
	return nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	records, err := st.LoadParticles(args[0])
	if err != nil {
		return err
	}

	w := csv.NewWriter(os.Stdout)
	defer w.Flush()

	if err := w.Write([]string{"cable", "index", "x", "y", "z"}); err != nil {
		return err
	}
	for _, name := range storage.Cables(records) {
		for i, p := range storage.Chain(records, name) {
			row := []string{
				name,
				strconv.Itoa(i),
				strconv.FormatFloat(p.X(), 'f', 6, 64),
				strconv.FormatFloat(p.Y(), 'f', 6, 64),
				strconv.FormatFloat(p.Z(), 'f', 6, 64),
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}
	return w.Error()
}

func exportJSON(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	records, err := st.LoadParticles(args[0])
	if err != nil {
		return err
	}

	data := export.FromRun(meta, records)
	if output != "" {
		return export.ExportJSON(output, data)
	}
	return export.WriteJSON(os.Stdout, data)
}

func exportSVG(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	records, err := st.LoadParticles(args[0])
	if err != nil {
		return err
	}

	out := os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	return export.SideView(out, export.ChainsFromRecords(records), export.DefaultSVGOptions())
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadScene(cmd, args)
	if err != nil {
		return err
	}
	// Log lines would tear the alt screen.
	scene, err := cfg.Build(logr.Discard())
	if err != nil {
		return err
	}
	defer scene.Release()

	viz.SetTheme(theme)
	return viz.RunLive(scene, cfg.Name)
}

func benchScene(cmd *cobra.Command, args []string) error {
	log := newLogger()
	cfg, err := loadScene(cmd, args)
	if err != nil {
		return err
	}
	scene, err := cfg.Build(log)
	if err != nil {
		return err
	}
	defer scene.Release()

	ctx, cancel := signalContext()
	defer cancel()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CABLE\tRUNS\tSUBSTEPS\tTIME\tPER RUN\tDETERMINISTIC")

	for _, c := range scene.Ordered() {
		start := time.Now()
		runs, err := c.Ensemble(numRuns).Run(ctx, 0)
		if err != nil {
			return fmt.Errorf("%s: %w", c.Name(), err)
		}
		elapsed := time.Since(start)

		substeps := 0
		for _, r := range runs {
			substeps += r.Result.Substeps
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%v\t%v\t%v\n",
			c.Name(), len(runs), substeps, elapsed, elapsed/time.Duration(max(len(runs), 1)), sim.Deterministic(runs))

		// Later cables collide against this one.
		if err := c.InvalidateAndResimulate(true); err != nil {
			return err
		}
	}
	return w.Flush()
}

func runScenario(cmd *cobra.Command, args []string) error {
	log := newLogger()
	scenario, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	cfg, err := scenario.LoadScene()
	if err != nil {
		return err
	}
	scene, err := cfg.Build(log)
	if err != nil {
		return err
	}
	defer scene.Release()

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("scenario %s on %s\n", scenario.Name, cfg.Name)
	results, err := automation.Run(ctx, scene, scenario, log)
	for _, r := range results {
		var parts []string
		for _, c := range scene.Ordered() {
			if segs, ok := r.Segments[c.Name()]; ok {
				parts = append(parts, fmt.Sprintf("%s%v", c.Name(), segs))
			}
		}
		fmt.Printf("%3d  %-13s runs=%d  %s\n", r.Step, r.Action, r.Runs, strings.Join(parts, " "))
	}
	return err
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadScene(cmd, args)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	name := ""
	if len(cfg.Cables) > 0 {
		name = cfg.Cables[0].Name
	}
	results, err := automation.RunSweep(ctx, &automation.SlackSweep{
		Scene:    cfg,
		Cable:    name,
		Segment:  sweepSeg,
		SlackMin: sweepMin,
		SlackMax: sweepMax,
		NumSteps: sweepSteps,
	}, newLogger())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SLACK\tLENGTH\tSAG\tSTRETCH")
	sags := make([]float64, len(results))
	for i, r := range results {
		fmt.Fprintf(w, "%.1f\t%.2f\t%.2f\t%.4f\n", r.Slack, r.Length, r.Sag, r.Stretch)
		sags[i] = r.Sag
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if len(sags) > 1 {
		fmt.Println(asciigraph.Plot(sags, asciigraph.Height(8), asciigraph.Caption("sag vs slack")))
	}
	return nil
}
