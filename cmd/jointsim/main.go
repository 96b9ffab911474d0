package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/go-logr/logr"
	"github.com/san-kum/jointsim/internal/analysis"
	"github.com/san-kum/jointsim/internal/config"
	"github.com/san-kum/jointsim/internal/dynamo"
	"github.com/san-kum/jointsim/internal/export"
	"github.com/san-kum/jointsim/internal/logging"
	"github.com/san-kum/jointsim/internal/metrics"
	"github.com/san-kum/jointsim/internal/optim"
	"github.com/san-kum/jointsim/internal/storage"
	"github.com/san-kum/jointsim/internal/telemetry"
	"github.com/san-kum/jointsim/internal/viz"
	"github.com/san-kum/jointsim/internal/world"
	"github.com/spf13/cobra"
)

var (
	dataDir     string
	verbosity   int
	development bool
	theme       string

	preset      string
	configFile  string
	dt          float64
	duration    float64
	substeps    int
	iterations  int
	workers     int
	noWarmStart bool
	checkpoint  bool
	metricsFile string
	sampleEvery int

	outFile      string
	svgFile      string
	renderOut    string
	sweepDamping []float64
	tuneDamping  []float64
	stiffnesses  []float64
	tuneMetric   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "jointsim",
		Short:         "damped spring joint simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".jointsim", "data directory")
	rootCmd.PersistentFlags().IntVarP(&verbosity, "verbosity", "v", logging.DEFAULT, "log verbosity")
	rootCmd.PersistentFlags().BoolVar(&development, "dev", false, "human readable logs")
	rootCmd.PersistentFlags().StringVar(&theme, "theme", viz.Themes[0].Name, "color theme")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a scene and store the result",
		RunE:  runScene,
	}
	sceneFlags(runCmd)
	runCmd.Flags().BoolVar(&checkpoint, "checkpoint", false, "store the final world for resume")
	runCmd.Flags().StringVar(&metricsFile, "metrics-file", "", "write solver metrics in Prometheus text format")
	runCmd.Flags().IntVar(&sampleEvery, "sample-every", 1, "record every n-th step")

	resumeCmd := &cobra.Command{
		Use:   "resume [run_id]",
		Short: "continue a checkpointed run",
		Args:  cobra.ExactArgs(1),
		RunE:  resumeRun,
	}
	resumeCmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "additional duration")
	resumeCmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	resumeCmd.Flags().StringVar(&metricsFile, "metrics-file", "", "write solver metrics in Prometheus text format")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot separations and energy of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&svgFile, "svg", "", "also write the first spring's separation as SVG")

	renderCmd := &cobra.Command{
		Use:   "render [run_id]",
		Short: "draw the checkpointed world of a run as SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  renderRun,
	}
	renderCmd.Flags().StringVarP(&renderOut, "out", "o", "world.svg", "output file")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "frequency analysis",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list built-in scenes",
		RunE:  listPresets,
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "run a scene once per damping value in parallel",
		RunE:  runSweep,
	}
	sceneFlags(sweepCmd)
	sweepCmd.Flags().Float64SliceVar(&sweepDamping, "damping", []float64{0, 0.5, 1, 2, 4}, "damping values")

	tuneCmd := &cobra.Command{
		Use:   "tune",
		Short: "grid search stiffness and damping for the lowest metric",
		RunE:  tuneScene,
	}
	sceneFlags(tuneCmd)
	tuneCmd.Flags().Float64SliceVar(&tuneDamping, "damping", []float64{0, 1, 2, 4}, "damping values")
	tuneCmd.Flags().Float64SliceVar(&stiffnesses, "stiffness", []float64{10, 25, 50}, "stiffness values")
	tuneCmd.Flags().StringVar(&tuneMetric, "metric", "peak_deviation", "metric to minimize")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "run a scene with live visualization",
		RunE:  runLive,
	}
	sceneFlags(liveCmd)

	rootCmd.AddCommand(runCmd, resumeCmd, listCmd, plotCmd, renderCmd, analyzeCmd, exportCmd, presetsCmd, sweepCmd, tuneCmd, liveCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func sceneFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&preset, "preset", "", "built-in scene")
	cmd.Flags().StringVar(&configFile, "config", "", "scene file path (yaml)")
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	cmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration")
	cmd.Flags().IntVar(&substeps, "substeps", config.DefaultSubsteps, "substeps per step")
	cmd.Flags().IntVar(&iterations, "iterations", 0, "solver iterations per substep")
	cmd.Flags().IntVar(&workers, "workers", 0, "parallel island workers")
	cmd.Flags().BoolVar(&noWarmStart, "no-warm-start", false, "disable warm starting")
}

// setup returns a context carrying the logger that is canceled on interrupt.
func setup() (context.Context, context.CancelFunc, logr.Logger, error) {
	log, err := logging.New(verbosity, development)
	if err != nil {
		return nil, nil, logr.Discard(), fmt.Errorf("logger: %w", err)
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	return logging.IntoContext(ctx, log), cancel, log, nil
}

// loadScene resolves the scene from --config, then --preset, then the
// default, and applies flags the user set explicitly.
func loadScene(cmd *cobra.Command) (*config.Scene, string, error) {
	var (
		scene *config.Scene
		name  string
	)
	switch {
	case configFile != "":
		s, err := config.Load(configFile)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load config: %w", err)
		}
		scene, name = s, s.Name
		if name == "" {
			name = configFile
		}
	case preset != "":
		scene = config.GetPreset(preset)
		if scene == nil {
			return nil, "", fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
		name = preset
	default:
		scene, name = config.DefaultScene(), "oscillator"
	}

	flags := cmd.Flags()
	if flags.Changed("dt") {
		scene.Dt = dt
	}
	if flags.Changed("time") {
		scene.Duration = duration
	}
	if flags.Changed("substeps") {
		scene.Substeps = substeps
	}
	if flags.Changed("iterations") {
		scene.Solver.Iterations = iterations
	}
	if flags.Changed("workers") {
		scene.Solver.Workers = workers
	}
	if flags.Changed("no-warm-start") {
		scene.Solver.WarmStarting = !noWarmStart
	}
	if err := scene.Validate(); err != nil {
		return nil, "", err
	}
	return scene, name, nil
}

func newSimulator(rec *telemetry.Recorder) *dynamo.Simulator {
	sim := dynamo.New()
	sim.AddMetric(metrics.NewEnergy())
	sim.AddMetric(metrics.NewEnergyDrift())
	sim.AddMetric(metrics.NewPeakDeviation(0))
	sim.AddMetric(metrics.NewLimitViolation())
	sim.AddMetric(metrics.NewStability(0.01))
	if rec != nil {
		sim.AddObserver(rec)
	}
	return sim
}

func runScene(cmd *cobra.Command, args []string) error {
	ctx, cancel, log, err := setup()
	if err != nil {
		return err
	}
	defer cancel()

	scene, name, err := loadScene(cmd)
	if err != nil {
		return err
	}
	w, _, err := scene.Build(world.WithLogger(log))
	if err != nil {
		return fmt.Errorf("build scene: %w", err)
	}

	rc := scene.RunConfig()
	if cmd.Flags().Changed("sample-every") {
		rc.SampleEvery = sampleEvery
	}
	return execute(ctx, log, name, w, rc)
}

func resumeRun(cmd *cobra.Command, args []string) error {
	ctx, cancel, log, err := setup()
	if err != nil {
		return err
	}
	defer cancel()

	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	w, err := st.LoadCheckpoint(args[0], world.WithLogger(log))
	if err != nil {
		return err
	}
	checkpoint = true

	rc := dynamo.DefaultConfig()
	rc.Dt = meta.Dt
	if cmd.Flags().Changed("dt") {
		rc.Dt = dt
	}
	rc.Duration = duration
	log.Info("Resuming run", "from", meta.ID, "time", w.Time())
	return execute(ctx, log, meta.Scene, w, rc)
}

// execute runs w, stores the result and prints a summary.
func execute(ctx context.Context, log logr.Logger, name string, w *world.World, rc dynamo.Config) error {
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	rec := telemetry.NewRecorder()
	result, err := newSimulator(rec).Run(ctx, w, rc)
	var simErr *dynamo.SimulationError
	if err != nil && !(errors.As(err, &simErr) && errors.Is(err, dynamo.ErrContextCanceled)) {
		return err
	}
	if err != nil {
		log.Info("Run interrupted, storing partial result", "step", simErr.Step)
	}

	id, serr := st.Save(name, rc, w, result)
	if serr != nil {
		return fmt.Errorf("save run: %w", serr)
	}
	if checkpoint {
		if err := st.SaveCheckpoint(id, w); err != nil {
			return fmt.Errorf("save checkpoint: %w", err)
		}
	}
	if metricsFile != "" {
		if err := rec.WriteFile(metricsFile); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	for _, e := range result.Errors {
		log.Error(e, "Run ended early")
	}

	t := viz.GetTheme(theme)
	rows := [][]string{
		{"run", id},
		{"scene", name},
		{"steps", strconv.Itoa(result.StepsTaken)},
		{"sim time", fmt.Sprintf("%.3fs", w.Time())},
		{"energy drift", fmt.Sprintf("%.4g", result.EnergyDrift)},
	}
	for _, k := range sortedKeys(result.Metrics) {
		rows = append(rows, []string{k, fmt.Sprintf("%.4g", result.Metrics[k])})
	}
	if vals, err := rec.Values(); err == nil {
		for _, k := range []string{"jointsim_solver_islands", "jointsim_solver_batches", "jointsim_solver_single_joints"} {
			rows = append(rows, []string{strings.TrimPrefix(k, "jointsim_solver_"), fmt.Sprintf("%g", vals[k])})
		}
	}
	fmt.Println(viz.Table(t, []string{"field", "value"}, rows))
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := storage.New(dataDir).List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs")
		return nil
	}
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			r.ID,
			r.Scene,
			r.Timestamp.Format("2006-01-02 15:04:05"),
			strconv.Itoa(r.Joints),
			strconv.Itoa(r.Steps),
			fmt.Sprintf("%.4g", r.EnergyDrift),
		})
	}
	fmt.Println(viz.Table(viz.GetTheme(theme), []string{"id", "scene", "time", "joints", "steps", "drift"}, rows))
	return nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	samples, err := st.LoadSamples(args[0])
	if err != nil {
		return err
	}
	if len(samples.Times) == 0 {
		return fmt.Errorf("run %s has no samples", args[0])
	}

	var series [][]float64
	if len(samples.Separations) > 0 {
		for i := range samples.Separations[0] {
			series = append(series, viz.Downsample(samples.Series(i), 80))
		}
	}
	fmt.Println(viz.PlotMany(series, viz.PlotOptions{Height: 12, Width: 80, Caption: "spring separation"}))
	fmt.Println()
	fmt.Println(viz.Plot(viz.Downsample(samples.Energies, 80), viz.PlotOptions{Height: 8, Width: 80, Caption: "total energy"}))

	if svgFile != "" && len(series) > 0 {
		svg := export.SeriesToSVG(samples.Times, samples.Series(0), 800, 300, "#00ccff")
		if err := os.WriteFile(svgFile, []byte(svg), 0644); err != nil {
			return err
		}
	}
	return nil
}

func renderRun(cmd *cobra.Command, args []string) error {
	w, err := storage.New(dataDir).LoadCheckpoint(args[0])
	if err != nil {
		return err
	}
	return os.WriteFile(renderOut, []byte(export.WorldToSVG(w, 800, 600)), 0644)
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	samples, err := st.LoadSamples(args[0])
	if err != nil {
		return err
	}
	if len(samples.Times) < 2 {
		return fmt.Errorf("run %s has too few samples", args[0])
	}
	sampleDt := samples.Times[1] - samples.Times[0]

	var rows [][]string
	cols := 0
	if len(samples.Separations) > 0 {
		cols = len(samples.Separations[0])
	}
	for i := 0; i < cols; i++ {
		x := samples.Series(i)
		freq, err := analysis.DominantFrequency(x, sampleDt)
		if err != nil {
			return fmt.Errorf("spring %d: %w", i, err)
		}
		rows = append(rows, []string{
			strconv.Itoa(i),
			fmt.Sprintf("%.4f", freq),
			fmt.Sprintf("%.4f", analysis.DampingRatio(x, mean(x))),
			viz.Sparkline(x, 30),
		})
	}
	fmt.Printf("run %s (%s), sample interval %.4gs\n", meta.ID, meta.Scene, sampleDt)
	fmt.Println(viz.Table(viz.GetTheme(theme), []string{"spring", "freq (Hz)", "zeta", "separation"}, rows))
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	out := os.Stdout
	if outFile != "" {
		f, err := os.Create(outFile)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	return storage.New(dataDir).ExportSamples(out, args[0])
}

func listPresets(cmd *cobra.Command, args []string) error {
	var rows [][]string
	for _, name := range config.ListPresets() {
		s := config.GetPreset(name)
		rows = append(rows, []string{name, strconv.Itoa(len(s.Bodies)), strconv.Itoa(len(s.Joints)), s.Description})
	}
	fmt.Println(viz.Table(viz.GetTheme(theme), []string{"name", "bodies", "joints", "description"}, rows))
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	ctx, cancel, log, err := setup()
	if err != nil {
		return err
	}
	defer cancel()

	scene, name, err := loadScene(cmd)
	if err != nil {
		return err
	}
	if len(sweepDamping) == 0 {
		return errors.New("no damping values")
	}

	build := func(run int) (*world.World, error) {
		w, _, err := scene.Build()
		if err != nil {
			return nil, err
		}
		_, springs := w.Joints().Springs()
		for _, s := range springs {
			if err := s.SetDamping(sweepDamping[run]); err != nil {
				return nil, err
			}
		}
		return w, nil
	}
	log.V(logging.VERBOSE).Info("Starting sweep", "scene", name, "runs", len(sweepDamping))

	results, err := dynamo.NewEnsemble(len(sweepDamping), build, func() *dynamo.Simulator {
		return newSimulator(nil)
	}).Run(ctx, scene.RunConfig())
	if err != nil {
		return err
	}

	rows := make([][]string, len(results))
	for i, r := range results {
		rows[i] = []string{
			fmt.Sprintf("%g", sweepDamping[i]),
			fmt.Sprintf("%.4f", r.Metrics["peak_deviation"]),
			fmt.Sprintf("%.4g", r.EnergyDrift),
			fmt.Sprintf("%.4f", r.Metrics["stability"]),
			viz.ProgressBar(r.Metrics["stability"], 20),
		}
	}
	fmt.Printf("damping sweep of %s\n", name)
	fmt.Println(viz.Table(viz.GetTheme(theme), []string{"damping", "peak dev", "drift", "stable", ""}, rows))
	return nil
}

func tuneScene(cmd *cobra.Command, args []string) error {
	ctx, cancel, log, err := setup()
	if err != nil {
		return err
	}
	defer cancel()

	scene, name, err := loadScene(cmd)
	if err != nil {
		return err
	}

	build := func(params map[string]float64) (*world.World, error) {
		w, _, err := scene.Build()
		if err != nil {
			return nil, err
		}
		_, springs := w.Joints().Springs()
		for _, s := range springs {
			if err := s.SetStiffness(params["stiffness"]); err != nil {
				return nil, err
			}
			if err := s.SetDamping(params["damping"]); err != nil {
				return nil, err
			}
		}
		return w, nil
	}

	g := optim.NewGridSearch([]string{"stiffness", "damping"}, [][]float64{stiffnesses, tuneDamping}, scene.Solver.Workers)
	log.V(logging.VERBOSE).Info("Starting grid search", "scene", name, "metric", tuneMetric)
	points, err := g.Search(ctx, build, func() *dynamo.Simulator { return newSimulator(nil) }, scene.RunConfig(), tuneMetric)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(points))
	for _, p := range points {
		value := fmt.Sprintf("%.4g", p.Value)
		if p.Err != nil {
			value = p.Err.Error()
		}
		rows = append(rows, []string{fmt.Sprintf("%g", p.Params["stiffness"]), fmt.Sprintf("%g", p.Params["damping"]), value})
	}
	fmt.Printf("grid search of %s by %s\n", name, tuneMetric)
	fmt.Println(viz.Table(viz.GetTheme(theme), []string{"stiffness", "damping", tuneMetric}, rows))
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	scene, name, err := loadScene(cmd)
	if err != nil {
		return err
	}
	w, _, err := scene.Build()
	if err != nil {
		return err
	}
	m, err := viz.NewModel(name, w, scene.Dt)
	if err != nil {
		return err
	}
	return viz.Run(m)
}
