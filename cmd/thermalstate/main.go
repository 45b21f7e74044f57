package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/san-kum/thermalstate/internal/analysis"
	"github.com/san-kum/thermalstate/internal/config"
	"github.com/san-kum/thermalstate/internal/dynamo"
	"github.com/san-kum/thermalstate/internal/experiment"
	"github.com/san-kum/thermalstate/internal/export"
	"github.com/san-kum/thermalstate/internal/logging"
	"github.com/san-kum/thermalstate/internal/render"
	"github.com/san-kum/thermalstate/internal/server"
	"github.com/san-kum/thermalstate/internal/thermal"
	"github.com/san-kum/thermalstate/internal/tui"
)

var (
	logLevel   string
	logFormat  string
	configFile string
	preset     string

	ambient     float64
	setpoint    float64
	start       int
	integrator  string
	dt          float64
	initialMass float64

	output    string
	withGrids bool
	snapshots bool
	live      bool
	noCharts  bool

	sweepFrom  float64
	sweepTo    float64
	sweepStep  float64
	sweepLimit int
	bestMetric string

	addr string

	logger *slog.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "thermalstate",
		Short: "thermal state master equation for a hybrid heating system",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if logFormat == "json" {
				logger = logging.NewJSONLogger(logLevel, os.Stderr)
			} else {
				logger = logging.NewLogger(logLevel, os.Stderr)
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			return tui.Run(cfg)
		},
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "", "use preset configuration")
	rootCmd.PersistentFlags().Float64Var(&ambient, "ta", config.DefaultAmbient, "ambient temperature")
	rootCmd.PersistentFlags().Float64Var(&setpoint, "tset", config.DefaultSetpoint, "thermostat setpoint")
	rootCmd.PersistentFlags().IntVar(&start, "tstart", config.DefaultStart, "initial indoor temperature bin")
	rootCmd.PersistentFlags().StringVar(&integrator, "integrator", config.DefaultIntegrator, "integrator (rk45, rk4, euler)")
	rootCmd.PersistentFlags().Float64Var(&dt, "dt", config.DefaultDt, "step for fixed-step integrators")
	rootCmd.PersistentFlags().Float64Var(&initialMass, "mass", thermal.DefaultInitialMass, "initial probability mass")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the model and print summary charts",
		Args:  cobra.NoArgs,
		RunE:  runModel,
	}
	runCmd.Flags().BoolVar(&live, "live", false, "print every output sample while integrating")
	runCmd.Flags().BoolVar(&noCharts, "no-charts", false, "skip the ascii charts")

	plotCmd := &cobra.Command{
		Use:   "plot",
		Short: "render the state and distribution charts",
		Args:  cobra.NoArgs,
		RunE:  plotModel,
	}
	plotCmd.Flags().StringVarP(&output, "output", "o", "", "write a png to this path instead of the terminal")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv",
		Short: "export the trajectory to CSV",
		Args:  cobra.NoArgs,
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	exportCSVCmd.Flags().BoolVar(&snapshots, "snapshots", false, "export display snapshots instead of full grids")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json",
		Short: "export the trajectory to JSON",
		Args:  cobra.NoArgs,
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	exportJSONCmd.Flags().BoolVar(&withGrids, "grids", false, "include full grids")

	sweepCmd := &cobra.Command{
		Use:   "sweep [start|ambient|setpoint]",
		Short: "run the model over a range of one parameter in parallel",
		Args:  cobra.ExactArgs(1),
		RunE:  sweepModel,
	}
	sweepCmd.Flags().Float64Var(&sweepFrom, "from", 10, "first value")
	sweepCmd.Flags().Float64Var(&sweepTo, "to", 30, "last value")
	sweepCmd.Flags().Float64Var(&sweepStep, "step", 1, "value step")
	sweepCmd.Flags().IntVar(&sweepLimit, "parallel", 0, "concurrent runs (default GOMAXPROCS)")
	sweepCmd.Flags().StringVar(&bestMetric, "best", "", "report the value minimizing this metric")

	compareCmd := &cobra.Command{
		Use:   "compare [integrator1] [integrator2] ...",
		Short: "compare integrators on the same model",
		Args:  cobra.MinimumNArgs(1),
		RunE:  compareIntegrators,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tTA\tTSET\tTSTART\tSLOPE")
			for _, name := range config.ListPresets() {
				p := config.GetPreset(name)
				fmt.Fprintf(w, "%s\t%g\t%g\t%d\t%g\n", name, p.Ambient, p.Setpoint, p.Start, p.Curve.Slope)
			}
			return w.Flush()
		},
	}

	tuiCmd := &cobra.Command{
		Use:   "tui",
		Short: "interactive slider view",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			return tui.Run(cfg)
		},
	}

	steadyCmd := &cobra.Command{
		Use:   "steady",
		Short: "stationary distribution and relaxation rate of the generator",
		Args:  cobra.NoArgs,
		RunE:  steadyState,
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "serve the model over HTTP",
		Args:  cobra.NoArgs,
		RunE:  serve,
	}
	serveCmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")

	rootCmd.AddCommand(runCmd, plotCmd, exportCSVCmd, exportJSONCmd, sweepCmd, compareCmd, presetsCmd, steadyCmd, tuiCmd, serveCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveConfig layers defaults, preset, config file and explicitly set
// flags, in that order.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("ta") {
		cfg.Ambient = ambient
	}
	if flags.Changed("tset") {
		cfg.Setpoint = setpoint
	}
	if flags.Changed("tstart") {
		cfg.Start = start
	}
	if flags.Changed("integrator") {
		cfg.Integrator = integrator
	}
	if flags.Changed("dt") {
		cfg.Dt = dt
	}
	if flags.Changed("mass") {
		cfg.InitialMass = initialMass
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newExperiment(cfg *config.Config, observers ...dynamo.Observer) (*experiment.Experiment, error) {
	exp := experiment.New(cfg, logger)
	for _, o := range observers {
		exp.AddObserver(o)
	}
	if err := exp.Setup(experiment.NewRegistry()); err != nil {
		return nil, err
	}
	return exp, nil
}

func execute(cmd *cobra.Command, observers ...dynamo.Observer) (*config.Config, *thermal.Trajectory, error) {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	exp, err := newExperiment(cfg, observers...)
	if err != nil {
		return nil, nil, err
	}
	traj, err := exp.Run(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	return cfg, traj, nil
}

func runModel(cmd *cobra.Command, args []string) error {
	var observers []dynamo.Observer
	if live {
		observers = append(observers, tui.NewLiveRenderer(os.Stdout, 0))
	}

	begin := time.Now()
	cfg, traj, err := execute(cmd, observers...)
	if err != nil {
		return err
	}
	elapsed := time.Since(begin)

	fmt.Printf("ta=%g tset=%g tstart=%d integrator=%s\n", cfg.Ambient, cfg.Setpoint, cfg.Start, cfg.Integrator)
	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("steps: %d (rejected %d)\n", traj.Steps, traj.Rejected)
	fmt.Println("\nmetrics:")
	printMetrics(traj.Metrics)

	if noCharts {
		return nil
	}
	printCharts(traj.DisplaySnapshots())
	return nil
}

func printMetrics(metrics map[string]float64) {
	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %s: %.6g\n", name, metrics[name])
	}
}

func printCharts(snaps []thermal.Snapshot) {
	opts := render.DefaultOptions()
	fmt.Println()
	fmt.Println(render.StateChart(snaps, opts))
	fmt.Println()
	fmt.Println(render.DistributionChart(snaps, opts))
}

func plotModel(cmd *cobra.Command, args []string) error {
	_, traj, err := execute(cmd)
	if err != nil {
		return err
	}
	snaps := traj.DisplaySnapshots()

	if output == "" {
		printCharts(snaps)
		return nil
	}
	if err := render.SavePNG(output, snaps); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", output)
	return nil
}

func openOutput() (*os.File, func() error, error) {
	if output == "" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(output)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	_, traj, err := execute(cmd)
	if err != nil {
		return err
	}

	f, closeFn, err := openOutput()
	if err != nil {
		return err
	}
	if snapshots {
		err = export.WriteSnapshotsCSV(f, traj.DisplaySnapshots())
	} else {
		err = export.WriteCSV(f, traj)
	}
	if cerr := closeFn(); err == nil {
		err = cerr
	}
	return err
}

func exportJSON(cmd *cobra.Command, args []string) error {
	cfg, traj, err := execute(cmd)
	if err != nil {
		return err
	}

	run := export.Run{
		ID:         uuid.New().String(),
		Ambient:    cfg.Ambient,
		Setpoint:   cfg.Setpoint,
		Start:      cfg.Start,
		Integrator: cfg.Integrator,
	}

	f, closeFn, err := openOutput()
	if err != nil {
		return err
	}
	err = export.WriteJSON(f, export.NewExportData(run, traj, withGrids))
	if cerr := closeFn(); err == nil {
		err = cerr
	}
	return err
}

func sweepModel(cmd *cobra.Command, args []string) error {
	param := args[0]
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	values := experiment.Range(sweepFrom, sweepTo, sweepStep)
	if len(values) == 0 {
		return fmt.Errorf("empty sweep range [%g, %g] step %g", sweepFrom, sweepTo, sweepStep)
	}
	sweep, err := experiment.NewSweep(param, values, sweepLimit)
	if err != nil {
		return err
	}

	logger.Debug("sweep", "param", param, "points", len(values))
	begin := time.Now()
	points, err := sweep.Run(cmd.Context(), cfg, experiment.NewRegistry())
	if err != nil {
		return err
	}

	fmt.Printf("sweep over %s (%d runs in %v)\n\n", param, len(points), time.Since(begin))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.ToUpper(param)+"\tMEAN_BIN\tHEAT_PUMP\tFOSSIL\tMASS\tSTEPS")
	for _, p := range points {
		m := p.Metrics
		fmt.Fprintf(w, "%g\t%.3f\t%.3f\t%.3f\t%.6f\t%d\n",
			p.Value, m["mean_bin"], m["heat_pump_duty"], m["fossil_duty"], m["total_mass"], p.Steps)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if bestMetric != "" {
		best, ok := experiment.Best(points, bestMetric)
		if !ok {
			return fmt.Errorf("no run reported metric %s", bestMetric)
		}
		fmt.Printf("\nbest %s: %s=%g (%.6g)\n", bestMetric, param, best.Value, best.Metrics[bestMetric])
	}
	return nil
}

func compareIntegrators(cmd *cobra.Command, args []string) error {
	base, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	fmt.Printf("comparing integrators (ta=%g tset=%g tstart=%d dt=%.4f)\n\n", base.Ambient, base.Setpoint, base.Start, base.Dt)
	fmt.Printf("%-10s  %-12s  %-12s  %-12s  %-8s  %-10s\n", "integrator", "mean_bin", "mass_drift", "max_diff", "steps", "time_ms")
	fmt.Println(strings.Repeat("-", 72))

	var reference thermal.Grid
	for _, name := range args {
		cfg := base.Clone()
		cfg.Integrator = name

		exp, err := newExperiment(cfg)
		if err != nil {
			fmt.Printf("%-10s  error: %v\n", name, err)
			continue
		}

		begin := time.Now()
		traj, err := exp.Run(cmd.Context())
		elapsed := time.Since(begin)
		if err != nil {
			fmt.Printf("%-10s  error: %v\n", name, err)
			continue
		}

		final := traj.Final()
		if reference == nil {
			reference = final
		}
		diff := dynamo.State(final).Sub(dynamo.State(reference)).Norm()

		fmt.Printf("%-10s  %12.6f  %12.2e  %12.2e  %8d  %10.2f\n",
			name, traj.Metrics["mean_bin"], traj.Metrics["mass_drift"], diff, traj.Steps,
			float64(elapsed.Microseconds())/1000)
	}
	return nil
}

func steadyState(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	exp, err := newExperiment(cfg)
	if err != nil {
		return err
	}
	model := exp.Model()

	q := analysis.GeneratorMatrix(model.Generator())
	p, err := analysis.Stationary(q, cfg.InitialMass)
	if err != nil {
		return err
	}
	gap, err := analysis.RelaxationRate(q, 1e-9)
	if err != nil {
		return err
	}
	traj, err := exp.Run(cmd.Context())
	if err != nil {
		return err
	}

	stationary := thermal.Grid(p)
	state := stationary.DeviceState()
	fmt.Printf("ta=%g tset=%g\n\n", cfg.Ambient, cfg.Setpoint)
	fmt.Println("stationary device state:")
	for _, qd := range thermal.AllQuadrants {
		fmt.Printf("  %s: %.6f\n", qd, state[qd])
	}
	fmt.Printf("stationary mean bin: %.3f\n", stationary.MeanBin())
	fmt.Printf("relaxation rate: %.6g (time constant %.3g)\n", gap, 1/gap)
	fmt.Printf("distance at t=%g: %.3e\n", traj.Times[len(traj.Times)-1], analysis.Distance(traj.Final(), p))

	fmt.Println()
	fmt.Println(render.SeriesChart(stationary.Distribution(), "stationary temperature distribution", render.DefaultOptions()))
	return nil
}

func serve(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg, logger, server.WithAccessLog(os.Stderr))
	return srv.ListenAndServe(ctx, addr)
}
