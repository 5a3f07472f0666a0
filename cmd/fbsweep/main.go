package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/san-kum/fbsweep/internal/config"
	"github.com/san-kum/fbsweep/internal/dynamo"
	"github.com/san-kum/fbsweep/internal/export"
	"github.com/san-kum/fbsweep/internal/metrics"
	"github.com/san-kum/fbsweep/internal/optim"
	"github.com/san-kum/fbsweep/internal/problems"
	"github.com/san-kum/fbsweep/internal/storage"
	"github.com/san-kum/fbsweep/internal/sweep"
	"github.com/san-kum/fbsweep/internal/tui"
	"github.com/san-kum/fbsweep/internal/viz"
	"github.com/spf13/cobra"
)

var (
	dataDir    string
	configFile string
	preset     string
	finalTime  float64
	step       float64
	tolerance  float64
	relaxation float64
	maxIter    int
	seed       int64
	x0         []float64
	theta      []float64
	params     map[string]string
	showPlot   bool
	noSave     bool
	numRuns    int
	outFile    string
	benchRuns  int
	gridSpecs  []string
	minimize   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "fbsweep",
		Short:        "forward-backward sweep optimal control solver",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".fbsweep", "data directory")

	solveCmd := &cobra.Command{
		Use:   "solve [problem]",
		Short: "solve a problem and save the run",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSolve,
	}
	addSolveFlags(solveCmd)
	solveCmd.Flags().BoolVar(&showPlot, "plot", false, "print terminal plots of the solution")
	solveCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")
	solveCmd.Flags().IntVar(&numRuns, "runs", 1, "solve from this many random initial guesses and report the spread")

	watchCmd := &cobra.Command{
		Use:   "watch [problem]",
		Short: "solve with a live view of the iteration margins",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runWatch,
	}
	addSolveFlags(watchCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a stored run in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	renderCmd := &cobra.Command{
		Use:   "render [run_id]",
		Short: "render a stored run to a PNG or SVG file",
		Args:  cobra.ExactArgs(1),
		RunE:  renderRun,
	}
	renderCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (.png or .svg), defaults to <run_id>.png")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run trajectories to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	problemsCmd := &cobra.Command{
		Use:   "problems",
		Short: "list built-in problems",
		RunE:  listProblems,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [problem]",
		Short: "list available presets for a problem",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			presets := config.ListPresets(args[0])
			if len(presets) == 0 {
				fmt.Printf("no presets for problem: %s\n", args[0])
				return nil
			}
			fmt.Printf("presets for %s:\n", args[0])
			for _, p := range presets {
				fmt.Printf("  %s\n", p)
			}
			return nil
		},
	}

	compareCmd := &cobra.Command{
		Use:   "compare [problem] [relaxation1] [relaxation2] ...",
		Short: "compare relaxation factors on the same problem",
		Args:  cobra.MinimumNArgs(2),
		RunE:  compareRelaxation,
	}
	addSolveFlags(compareCmd)

	benchCmd := &cobra.Command{
		Use:   "bench [problem]",
		Short: "benchmark repeated solves",
		Args:  cobra.MaximumNArgs(1),
		RunE:  benchProblem,
	}
	addSolveFlags(benchCmd)
	benchCmd.Flags().IntVar(&benchRuns, "n", 10, "number of solves")

	tuneCmd := &cobra.Command{
		Use:   "tune [problem]",
		Short: "grid-search sweep settings or parameters",
		Args:  cobra.MaximumNArgs(1),
		RunE:  tuneProblem,
	}
	addSolveFlags(tuneCmd)
	tuneCmd.Flags().StringArrayVar(&gridSpecs, "grid", nil, "name=v1,v2,... (repeatable)")
	tuneCmd.Flags().StringVar(&minimize, "minimize", "iterations", "score: iterations or a metric name")

	rootCmd.AddCommand(solveCmd, watchCmd, listCmd, plotCmd, renderCmd, exportJSONCmd, exportCSVCmd, problemsCmd, presetsCmd, compareCmd, benchCmd, tuneCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addSolveFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	cmd.Flags().Float64Var(&finalTime, "time", 0, "final time T (default: problem horizon)")
	cmd.Flags().Float64Var(&step, "step", sweep.DefaultStep, "requested grid step")
	cmd.Flags().Float64Var(&tolerance, "tol", sweep.DefaultTolerance, "relative convergence tolerance")
	cmd.Flags().Float64Var(&relaxation, "relax", sweep.DefaultRelaxation, "weight of the new control candidate")
	cmd.Flags().IntVar(&maxIter, "max-iter", sweep.DefaultMaxIterations, "iteration cap")
	cmd.Flags().Int64Var(&seed, "seed", 0, "initial guess seed")
	cmd.Flags().Float64SliceVar(&x0, "x0", nil, "initial state")
	cmd.Flags().Float64SliceVar(&theta, "theta", nil, "terminal adjoint values for the free indices")
	cmd.Flags().StringToStringVar(&params, "param", nil, "problem parameter name=value")
}

// resolvedRun is a fully configured solve.
type resolvedRun struct {
	cfg    *config.Config
	def    problems.Definition
	solver *sweep.Solver
	opts   sweep.SolveOptions
}

// resolve merges preset, config file and flags, in increasing precedence.
func resolve(cmd *cobra.Command, args []string) (*resolvedRun, error) {
	cfg := config.DefaultConfig()
	if len(args) > 0 {
		cfg.Problem = args[0]
	}

	if preset != "" {
		p := config.GetPreset(cfg.Problem, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(cfg.Problem))
		}
		c := *p
		cfg = &c
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		if len(args) > 0 {
			loaded.Problem = args[0]
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("time") {
		cfg.FinalTime = finalTime
	}
	if flags.Changed("step") {
		cfg.Step = step
	}
	if flags.Changed("tol") {
		cfg.Tolerance = tolerance
	}
	if flags.Changed("relax") {
		cfg.Relaxation = relaxation
	}
	if flags.Changed("max-iter") {
		cfg.MaxIterations = maxIter
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("x0") {
		cfg.X0 = x0
	}
	if flags.Changed("theta") {
		cfg.Theta = theta
	}
	if flags.Changed("param") {
		merged := make(map[string]float64, len(cfg.Params)+len(params))
		for name, v := range cfg.Params {
			merged[name] = v
		}
		cfg.Params = merged
		for name, raw := range params {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("param %s: %w", name, err)
			}
			cfg.Params[name] = v
		}
	}

	def, err := problems.NewRegistry().Get(cfg.Problem)
	if err != nil {
		return nil, err
	}
	cfg.Apply(def)

	sc, opts, err := cfg.Build(def)
	if err != nil {
		return nil, err
	}
	solver, err := sweep.New(def.Problem, sc)
	if err != nil {
		return nil, err
	}
	return &resolvedRun{cfg: cfg, def: def, solver: solver, opts: opts}, nil
}

func (r *resolvedRun) solve(ctx context.Context) (*sweep.Result, error) {
	return r.solver.Solve(ctx, r.cfg.InitState(), r.cfg.FinalTime, r.cfg.ProblemParams(), r.opts)
}

func (r *resolvedRun) metadata(values map[string]float64) storage.RunMetadata {
	return storage.RunMetadata{
		Problem:          r.cfg.Problem,
		FinalTime:        r.cfg.FinalTime,
		Step:             r.cfg.Step,
		Tolerance:        r.cfg.Tolerance,
		Relaxation:       r.cfg.Relaxation,
		MaxIterations:    r.cfg.MaxIterations,
		Seed:             r.cfg.Seed,
		X0:               r.cfg.X0,
		FreeAdjointFinal: r.cfg.FreeAdjointFinal,
		Theta:            r.cfg.Theta,
		Params:           r.cfg.Params,
		Metrics:          values,
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func runSolve(cmd *cobra.Command, args []string) error {
	run, err := resolve(cmd, args)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	if numRuns > 1 {
		return runEnsemble(ctx, run)
	}

	fmt.Printf("solving %s...\n", run.cfg.Problem)
	start := time.Now()
	result, solveErr := run.solve(ctx)
	elapsed := time.Since(start)

	if result == nil {
		return solveErr
	}
	return report(run, result, elapsed, solveErr)
}

// report prints the outcome, stores the run and returns the solve error, if
// any, so a non-converged run still exits non-zero.
func report(run *resolvedRun, result *sweep.Result, elapsed time.Duration, solveErr error) error {
	fmt.Println(viz.Status(result.Converged))
	printSummary(result, elapsed)

	values := metrics.Evaluate(result, metrics.Default(run.def.Problem, run.cfg.ProblemParams())...)
	fmt.Println("\nmetrics:")
	for _, name := range sortedKeys(values) {
		fmt.Printf("  %s: %.6f\n", name, values[name])
	}

	if showPlot {
		fmt.Println()
		fmt.Print(viz.Panels(result.States, result.Controls, result.Adjoints, viz.DefaultPlotOptions()))
	}

	if !noSave {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err := st.Save(run.metadata(values), result)
		if err != nil {
			return err
		}
		fmt.Printf("run id: %s\n", runID)
	}

	if errors.Is(solveErr, dynamo.ErrNotConverged) {
		fmt.Fprintf(os.Stderr, "warning: %v\n", solveErr)
	}
	return solveErr
}

func printSummary(result *sweep.Result, elapsed time.Duration) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "iterations\t%d\n", result.Iterations)
	fmt.Fprintf(w, "margin\t%.3e\n", result.Margin)
	fmt.Fprintf(w, "grid points\t%d\n", len(result.Times))
	fmt.Fprintf(w, "elapsed\t%v\n", elapsed)

	last := len(result.Times) - 1
	if last >= 0 {
		fmt.Fprintf(w, "x(T)\t%s\n", formatVector(result.States[last]))
		fmt.Fprintf(w, "u(0)\t%s\n", formatVector(result.Controls[0]))
		fmt.Fprintf(w, "lambda(0)\t%s\n", formatVector(result.Adjoints[0]))
	}
	w.Flush()
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func formatVector(v []float64) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = strconv.FormatFloat(x, 'g', 6, 64)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func runEnsemble(ctx context.Context, run *resolvedRun) error {
	ens := sweep.NewEnsemble(run.def.Problem, run.solver.Config(), numRuns, run.cfg.Seed)

	fmt.Printf("solving %s from %d initial guesses...\n", run.cfg.Problem, numRuns)
	start := time.Now()
	results, err := ens.Run(ctx, run.cfg.InitState(), run.cfg.FinalTime, run.cfg.ProblemParams(), run.opts)
	elapsed := time.Since(start)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SEED\tITER\tMARGIN\tCONVERGED")
	for i, r := range results {
		fmt.Fprintf(w, "%d\t%d\t%.3e\t%v\n", run.cfg.Seed+int64(i), r.Iterations, r.Margin, r.Converged)
	}
	w.Flush()

	fmt.Printf("control spread: %.3e\n", sweep.Spread(results))
	return report(run, results[0], elapsed, nil)
}

func runWatch(cmd *cobra.Command, args []string) error {
	run, err := resolve(cmd, args)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	result, solveErr := tui.Run(ctx, run.cfg.Problem, run.solver, run.solve)
	if result == nil {
		return solveErr
	}
	return report(run, result, 0, solveErr)
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
	fmt.Fprintln(w, "ID\tPROBLEM\tTIME\tT\tSTEP\tITER\tCONVERGED")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%.4g\t%d\t%v\n",
			run.ID,
			run.Problem,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.FinalTime,
			run.Step,
			run.Iterations,
			run.Converged,
		)
	}

	return w.Flush()
}

func loadRun(runID string) (*storage.RunMetadata, *storage.Trajectories, error) {
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	traj, err := st.LoadTrajectories(runID)
	if err != nil {
		return nil, nil, err
	}
	if len(traj.Times) == 0 {
		return nil, nil, fmt.Errorf("no data in run %s", runID)
	}
	return meta, traj, nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	meta, traj, err := loadRun(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("problem: %s\n", meta.Problem)
	fmt.Printf("samples: %d\n\n", len(traj.Times))
	fmt.Print(viz.Panels(traj.States, traj.Controls, traj.Adjoints, viz.DefaultPlotOptions()))
	return nil
}

func renderRun(cmd *cobra.Command, args []string) error {
	meta, traj, err := loadRun(args[0])
	if err != nil {
		return err
	}

	path := outFile
	if path == "" {
		path = meta.ID + ".png"
	}
	opts := export.DefaultOptions()
	opts.Title = fmt.Sprintf("%s (T=%g, %d iterations)", meta.Problem, meta.FinalTime, meta.Iterations)
	if err := export.RenderFile(path, traj.Times, traj.States, traj.Controls, traj.Adjoints, opts); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	meta, traj, err := loadRun(args[0])
	if err != nil {
		return err
	}
	return storage.ExportJSON(os.Stdout, *meta, traj)
}

func exportCSV(cmd *cobra.Command, args []string) error {
	_, traj, err := loadRun(args[0])
	if err != nil {
		return err
	}

	w := csv.NewWriter(os.Stdout)
	if err := w.Write(storage.Header(traj.States.Width(), traj.Controls.Width())); err != nil {
		return err
	}
	for i, t := range traj.Times {
		row := []string{strconv.FormatFloat(t, 'f', 6, 64)}
		for _, tr := range []dynamo.Trajectory{traj.States, traj.Controls, traj.Adjoints} {
			for _, val := range tr[i] {
				row = append(row, strconv.FormatFloat(val, 'f', 6, 64))
			}
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func listProblems(cmd *cobra.Command, args []string) error {
	reg := problems.NewRegistry()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSTATES\tCONTROLS\tDESCRIPTION")
	for _, name := range reg.List() {
		def, err := reg.Get(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\n", def.Name, def.NumStates, def.NumControls, def.Description)
	}
	return w.Flush()
}

func compareRelaxation(cmd *cobra.Command, args []string) error {
	run, err := resolve(cmd, args[:1])
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("comparing relaxation factors for %s (step=%.4g, tol=%.1e)\n\n", run.cfg.Problem, run.cfg.Step, run.cfg.Tolerance)
	fmt.Printf("%-10s  %-10s  %-12s  %-10s\n", "relax", "iter", "margin", "time_ms")
	fmt.Println(strings.Repeat("-", 48))

	for _, raw := range args[1:] {
		coef, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			fmt.Printf("%-10s  error: %v\n", raw, err)
			continue
		}

		sc := run.solver.Config()
		sc.Relaxation = coef
		s, err := sweep.New(run.def.Problem, sc)
		if err != nil {
			fmt.Printf("%-10s  error: %v\n", raw, err)
			continue
		}

		start := time.Now()
		result, err := s.Solve(ctx, run.cfg.InitState(), run.cfg.FinalTime, run.cfg.ProblemParams(), run.opts)
		elapsed := time.Since(start)
		if result == nil {
			fmt.Printf("%-10s  error: %v\n", raw, err)
			continue
		}

		fmt.Printf("%-10.3g  %10d  %12.3e  %10.2f\n", coef, result.Iterations, result.Margin, float64(elapsed.Microseconds())/1000)
	}

	return nil
}

func benchProblem(cmd *cobra.Command, args []string) error {
	run, err := resolve(cmd, args)
	if err != nil {
		return err
	}
	if benchRuns < 1 {
		return fmt.Errorf("number of solves must be positive, got %d", benchRuns)
	}

	ctx, cancel := signalContext()
	defer cancel()

	var total time.Duration
	iterations := 0
	for i := 0; i < benchRuns; i++ {
		start := time.Now()
		result, err := run.solve(ctx)
		if err != nil {
			return err
		}
		total += time.Since(start)
		iterations += result.Iterations
	}

	perSolve := total / time.Duration(benchRuns)
	perIter := total / time.Duration(iterations)
	fmt.Printf("problem: %s\n", run.cfg.Problem)
	fmt.Printf("solves: %d\n", benchRuns)
	fmt.Printf("per solve: %v\n", perSolve)
	fmt.Printf("per iteration: %v\n", perIter)
	fmt.Printf("iterations/solve: %.1f\n", float64(iterations)/float64(benchRuns))
	return nil
}

func parseGrid(specs []string) ([]string, [][]float64, error) {
	names := make([]string, 0, len(specs))
	ranges := make([][]float64, 0, len(specs))
	for _, spec := range specs {
		name, list, ok := strings.Cut(spec, "=")
		if !ok || name == "" {
			return nil, nil, fmt.Errorf("grid %q: expected name=v1,v2,...", spec)
		}
		var values []float64
		for _, raw := range strings.Split(list, ",") {
			v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
			if err != nil {
				return nil, nil, fmt.Errorf("grid %s: %w", name, err)
			}
			values = append(values, v)
		}
		names = append(names, name)
		ranges = append(ranges, values)
	}
	return names, ranges, nil
}

func tuneProblem(cmd *cobra.Command, args []string) error {
	run, err := resolve(cmd, args)
	if err != nil {
		return err
	}
	names, ranges, err := parseGrid(gridSpecs)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		return fmt.Errorf("at least one --grid is required")
	}

	ctx, cancel := signalContext()
	defer cancel()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "POINT\tITER\t%s\n", strings.ToUpper(minimize))

	eval := func(ctx context.Context, point map[string]float64) (float64, error) {
		cfg := run.cfg.Clone()
		for name, v := range point {
			cfg.SetValue(name, v)
		}
		sc, opts, err := cfg.Build(run.def)
		if err != nil {
			return 0, err
		}
		s, err := sweep.New(run.def.Problem, sc)
		if err != nil {
			return 0, err
		}
		result, err := s.Solve(ctx, cfg.InitState(), cfg.FinalTime, cfg.ProblemParams(), opts)
		if err != nil {
			fmt.Fprintf(w, "%v\t-\t%v\n", point, err)
			return 0, err
		}

		score := float64(result.Iterations)
		if minimize != "iterations" {
			values := metrics.Evaluate(result, metrics.Default(run.def.Problem, cfg.ProblemParams())...)
			v, ok := values[minimize]
			if !ok {
				return 0, fmt.Errorf("unknown score %q", minimize)
			}
			score = v
		}
		fmt.Fprintf(w, "%v\t%d\t%.6g\n", point, result.Iterations, score)
		return score, nil
	}

	best, score, err := optim.NewGridSearch(names, ranges).Search(ctx, eval)
	w.Flush()
	if err != nil {
		return err
	}
	fmt.Printf("\nbest: %v (%s %.6g)\n", best, minimize, score)
	return nil
}
