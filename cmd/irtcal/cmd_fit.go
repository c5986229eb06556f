package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/spboyer/irtcal/internal/cache"
	"github.com/spboyer/irtcal/internal/dataset"
	"github.com/spboyer/irtcal/internal/estimation"
	"github.com/spboyer/irtcal/internal/models"
	"github.com/spboyer/irtcal/internal/projectconfig"
	"github.com/spboyer/irtcal/internal/reporting"
	"github.com/spboyer/irtcal/internal/spinner"
)

type fitOptions struct {
	inputFormat string
	format      string
	output      string
	strict      bool
	interpret   bool
	abilities   string
	verbose     bool
	useCache    bool
	cacheDir    string

	workers          int
	maxIterations    int
	quadraturePoints int
	halfWidth        float64
	learningRate     float64
	tolerance        float64
	timeBudget       time.Duration
	returnPolicy     string
}

func newFitCommand() *cobra.Command {
	var opts fitOptions

	cmd := &cobra.Command{
		Use:   "fit <dataset>",
		Short: "Calibrate item parameters and score examinees",
		Long: `Calibrate a dichotomous response dataset under the 2PL model.

The dataset may be a local file, "-" for standard input, or an Azure Blob
Storage URL. Files ending in .gz or .zst are decompressed. The layout is
taken from the extension unless --input-format is given.

Settings come from .irtcal.yaml (searched upward from the working
directory); flags override them.

Stopping at the iteration cap or time budget still prints a report. With
--strict the command then exits with status 1.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return fitCommandE(cmd, args[0], &opts)
		},
	}

	defaults := estimation.DefaultConfig()
	f := cmd.Flags()
	f.StringVar(&opts.inputFormat, "input-format", projectconfig.DefaultInputFormat, "Dataset layout: auto, triples, csv, matrix or yaml")
	f.StringVarP(&opts.format, "format", "f", projectconfig.DefaultOutputFormat, "Report format: text, markdown, html, json, yaml or junit")
	f.StringVarP(&opts.output, "output", "o", "", "Write the report to this file instead of stdout")
	f.BoolVar(&opts.strict, "strict", false, "Exit with status 1 when estimation does not converge")
	f.BoolVar(&opts.interpret, "interpret", false, "Add plain-language labels to the report")
	f.StringVar(&opts.abilities, "abilities", projectconfig.DefaultAbilities, "Ability estimates to report: mle, eap, both or none")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "Print progress for every EM iteration")
	f.BoolVar(&opts.useCache, "cache", false, "Reuse a converged calibration of the same data and settings")
	f.StringVar(&opts.cacheDir, "cache-dir", cache.DefaultDir, "Directory for cached calibrations")
	f.IntVar(&opts.workers, "workers", defaults.Workers, "Goroutines used by each estimation phase")
	f.IntVar(&opts.maxIterations, "max-iterations", defaults.MaxIterations, "Maximum EM iterations")
	f.IntVar(&opts.quadraturePoints, "quadrature-points", defaults.QuadraturePoints, "Number of ability grid nodes")
	f.Float64Var(&opts.halfWidth, "half-width", defaults.HalfWidth, "Ability grid spans [-half-width, half-width]")
	f.Float64Var(&opts.learningRate, "learning-rate", defaults.LearningRate, "Gradient-ascent step size")
	f.Float64Var(&opts.tolerance, "tolerance", defaults.ConvergenceTolerance, "Log-likelihood improvement needed to continue")
	f.DurationVar(&opts.timeBudget, "time-budget", 0, "Stop estimation after this long (0 for no limit)")
	f.StringVar(&opts.returnPolicy, "return-policy", string(defaults.ReturnPolicy), "Model returned on convergence: best_confirmed or last_update")

	return cmd
}

func fitCommandE(cmd *cobra.Command, location string, opts *fitOptions) error {
	pc, err := projectconfig.Load(".")
	if err != nil {
		return err
	}
	applyFitFlags(cmd.Flags(), pc, opts)

	cfg, err := pc.EstimatorConfig()
	if err != nil {
		return err
	}
	inFormat, err := dataset.ParseFormat(pc.Input.Format)
	if err != nil {
		return err
	}
	outFormat, err := reporting.ParseFormat(pc.Output.Format)
	if err != nil {
		return err
	}
	wantMLE, wantEAP, err := reporting.ParseAbilityMode(pc.Output.Abilities)
	if err != nil {
		return err
	}

	est, err := estimation.NewEstimator(cfg)
	if err != nil {
		return err
	}
	if opts.verbose {
		est.OnProgress(newProgressListener(cmd.ErrOrStderr()))
	}
	stopSpinner := startSpinner(cmd.ErrOrStderr(), est, opts.verbose)
	defer stopSpinner()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	table, err := dataset.NewLoader().WithStdin(cmd.InOrStdin()).Load(ctx, location, inFormat)
	if err != nil {
		return err
	}

	fit, err := calibrate(ctx, est, table.Dataset, opts)
	if err != nil {
		return fmt.Errorf("calibrating %s: %w", location, err)
	}

	in := reporting.Input{
		Table:     table,
		Config:    cfg,
		Fit:       fit,
		Interpret: *pc.Output.Interpret,
	}
	if wantMLE {
		if in.Abilities, err = est.EstimateAbilities(ctx, fit.Model, table.Dataset); err != nil {
			return fmt.Errorf("scoring examinees: %w", err)
		}
	}
	if wantEAP {
		if in.Posterior, err = est.EstimatePosterior(ctx, fit.Model, table.Dataset); err != nil {
			return fmt.Errorf("scoring examinees: %w", err)
		}
	}

	stopSpinner()

	report := reporting.BuildReport(in)
	if err := writeOutput(cmd, opts.output, func(w io.Writer) error {
		return reporting.Write(w, report, outFormat)
	}); err != nil {
		return err
	}

	if opts.strict {
		return fit.Err()
	}
	return nil
}

// calibrate runs the EM fit, going through the result cache when --cache
// is set.
func calibrate(ctx context.Context, est *estimation.Estimator, d *models.Dataset, opts *fitOptions) (*models.FitResult, error) {
	if !opts.useCache {
		return est.Fit(ctx, d)
	}

	store := cache.New(opts.cacheDir)
	key, err := cache.Key(d, est.Config())
	if err != nil {
		return nil, fmt.Errorf("computing cache key: %w", err)
	}
	if fit, ok := store.Get(key); ok {
		slog.Info("using cached calibration", "key", key[:12], "dir", opts.cacheDir)
		return fit, nil
	}

	fit, err := est.Fit(ctx, d)
	if err != nil {
		return nil, err
	}
	if err := store.Put(key, fit); err != nil {
		slog.Warn("could not cache calibration", "error", err)
	}
	return fit, nil
}

// applyFitFlags overlays explicitly set flags onto the project config.
func applyFitFlags(flags *pflag.FlagSet, pc *projectconfig.ProjectConfig, opts *fitOptions) {
	e := &pc.Estimation
	if flags.Changed("workers") {
		e.Workers = opts.workers
	}
	if flags.Changed("max-iterations") {
		e.MaxIterations = opts.maxIterations
	}
	if flags.Changed("quadrature-points") {
		e.QuadraturePoints = opts.quadraturePoints
	}
	if flags.Changed("half-width") {
		e.HalfWidth = opts.halfWidth
	}
	if flags.Changed("learning-rate") {
		e.LearningRate = opts.learningRate
	}
	if flags.Changed("tolerance") {
		e.ConvergenceTolerance = opts.tolerance
	}
	if flags.Changed("time-budget") {
		e.TimeBudget = opts.timeBudget.String()
		if opts.timeBudget == 0 {
			e.TimeBudget = ""
		}
	}
	if flags.Changed("return-policy") {
		e.ReturnPolicy = opts.returnPolicy
	}
	applyOutputFlags(flags, pc, opts.inputFormat, opts.format, opts.interpret)
	if flags.Changed("abilities") {
		pc.Output.Abilities = opts.abilities
	}
}

// applyOutputFlags handles the flags fit and describe share.
func applyOutputFlags(flags *pflag.FlagSet, pc *projectconfig.ProjectConfig, inputFormat, format string, interpret bool) {
	if flags.Changed("input-format") {
		pc.Input.Format = inputFormat
	}
	if flags.Changed("format") {
		pc.Output.Format = format
	}
	if flags.Changed("interpret") {
		pc.Output.Interpret = &interpret
	}
}

// writeOutput sends a report to stdout or, when path is set, to a file.
func writeOutput(cmd *cobra.Command, path string, write func(io.Writer) error) error {
	if path == "" || path == "-" {
		return write(cmd.OutOrStdout())
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	if err := write(f); err != nil {
		f.Close() //nolint:errcheck
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing output file: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Report written to %s\n", path) //nolint:errcheck
	return nil
}

// startSpinner shows the current EM iteration when w is a terminal and
// --verbose is off. The returned func may be called more than once.
func startSpinner(w io.Writer, est *estimation.Estimator, verbose bool) func() {
	f, ok := w.(*os.File)
	if verbose || !ok || !term.IsTerminal(int(f.Fd())) {
		return func() {}
	}
	sp := spinner.Start(w, "Calibrating")
	est.OnProgress(func(event estimation.ProgressEvent) {
		switch event.EventType {
		case estimation.EventIterationComplete:
			sp.Update(fmt.Sprintf("Calibrating: iteration %d/%d", event.Iteration, event.MaxIterations))
		case estimation.EventFitComplete:
			sp.Update("Scoring examinees")
		}
	})
	return sp.Stop
}

func newProgressListener(w io.Writer) estimation.ProgressListener {
	return func(event estimation.ProgressEvent) {
		switch event.EventType {
		case estimation.EventFitStart:
			fmt.Fprintf(w, "Starting EM (max %d iterations)...\n", event.MaxIterations) //nolint:errcheck
		case estimation.EventIterationComplete:
			if s := event.Summary; s != nil {
				mark := " "
				if s.Improved {
					mark = "+"
				}
				fmt.Fprintf(w, "  [%d/%d] %s loglik %.6f (marginal %.6f)\n", //nolint:errcheck
					event.Iteration, event.MaxIterations, mark, s.LogLikelihood, s.MarginalLogLikelihood)
			}
		case estimation.EventFitComplete:
			fmt.Fprintf(w, "EM finished: %s after %d iterations\n\n", event.Status, event.Iteration) //nolint:errcheck
		}
	}
}

