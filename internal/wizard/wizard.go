// Package wizard collects a project configuration interactively.
package wizard

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/spboyer/irtcal/internal/estimation"
	"github.com/spboyer/irtcal/internal/projectconfig"
	"github.com/spboyer/irtcal/internal/reporting"
)

// Answers holds the raw form values. Numbers stay strings until apply.
type Answers struct {
	QuadraturePoints string
	MaxIterations    string
	Workers          string
	TimeBudget       string
	ReturnPolicy     string
	OutputFormat     string
	Abilities        string
	Interpret        bool
}

// answersFrom seeds the form with the values already in cfg.
func answersFrom(cfg *projectconfig.ProjectConfig) Answers {
	a := Answers{
		QuadraturePoints: strconv.Itoa(cfg.Estimation.QuadraturePoints),
		MaxIterations:    strconv.Itoa(cfg.Estimation.MaxIterations),
		Workers:          strconv.Itoa(cfg.Estimation.Workers),
		TimeBudget:       cfg.Estimation.TimeBudget,
		ReturnPolicy:     cfg.Estimation.ReturnPolicy,
		OutputFormat:     cfg.Output.Format,
		Abilities:        cfg.Output.Abilities,
	}
	if cfg.Output.Interpret != nil {
		a.Interpret = *cfg.Output.Interpret
	}
	return a
}

// apply validates the answers and writes them onto a copy of base.
func (a Answers) apply(base *projectconfig.ProjectConfig) (*projectconfig.ProjectConfig, error) {
	cfg := *base
	var err error
	if cfg.Estimation.QuadraturePoints, err = parseCount(a.QuadraturePoints, 2); err != nil {
		return nil, fmt.Errorf("quadrature points: %w", err)
	}
	if cfg.Estimation.MaxIterations, err = parseCount(a.MaxIterations, 1); err != nil {
		return nil, fmt.Errorf("max iterations: %w", err)
	}
	if cfg.Estimation.Workers, err = parseCount(a.Workers, 1); err != nil {
		return nil, fmt.Errorf("workers: %w", err)
	}
	if err := validateDuration(a.TimeBudget); err != nil {
		return nil, fmt.Errorf("time budget: %w", err)
	}
	cfg.Estimation.TimeBudget = strings.TrimSpace(a.TimeBudget)

	switch estimation.ReturnPolicy(a.ReturnPolicy) {
	case estimation.ReturnBestConfirmed, estimation.ReturnLastUpdate:
		cfg.Estimation.ReturnPolicy = a.ReturnPolicy
	default:
		return nil, fmt.Errorf("unknown return policy %q", a.ReturnPolicy)
	}
	if _, err := reporting.ParseFormat(a.OutputFormat); err != nil {
		return nil, err
	}
	cfg.Output.Format = a.OutputFormat
	if _, _, err := reporting.ParseAbilityMode(a.Abilities); err != nil {
		return nil, err
	}
	cfg.Output.Abilities = a.Abilities
	interpret := a.Interpret
	cfg.Output.Interpret = &interpret

	return &cfg, nil
}

// RunInitWizard asks for the common settings, starting from base, and
// returns the resulting configuration.
func RunInitWizard(in io.Reader, out io.Writer, base *projectconfig.ProjectConfig) (*projectconfig.ProjectConfig, error) {
	a := answersFrom(base)

	formatOptions := make([]huh.Option[string], len(reporting.Formats))
	for i, f := range reporting.Formats {
		formatOptions[i] = huh.NewOption(string(f), string(f))
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Quadrature points").
				Description("Nodes on the ability grid").
				Value(&a.QuadraturePoints).
				Validate(func(s string) error {
					_, err := parseCount(s, 2)
					return err
				}),
			huh.NewInput().
				Title("Max EM iterations").
				Value(&a.MaxIterations).
				Validate(func(s string) error {
					_, err := parseCount(s, 1)
					return err
				}),
			huh.NewInput().
				Title("Workers").
				Description("Goroutines used for the E-step and M-step").
				Value(&a.Workers).
				Validate(func(s string) error {
					_, err := parseCount(s, 1)
					return err
				}),
			huh.NewInput().
				Title("Time budget").
				Description("A duration such as 30s; leave empty for none").
				Value(&a.TimeBudget).
				Validate(validateDuration),
			huh.NewSelect[string]().
				Title("Return policy").
				Options(
					huh.NewOption("best confirmed", string(estimation.ReturnBestConfirmed)),
					huh.NewOption("last update", string(estimation.ReturnLastUpdate)),
				).
				Value(&a.ReturnPolicy),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Report format").
				Options(formatOptions...).
				Value(&a.OutputFormat),
			huh.NewSelect[string]().
				Title("Ability estimates").
				Options(huh.NewOptions("mle", "eap", "both", "none")...).
				Value(&a.Abilities),
			huh.NewConfirm().
				Title("Add plain-language interpretation?").
				Value(&a.Interpret),
		),
	).
		WithInput(in).
		WithOutput(out)

	// Use accessible mode for non-TTY input (e.g., tests, piped input).
	if f, ok := in.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
		form = form.WithAccessible(true)
	}

	if err := form.Run(); err != nil {
		return nil, fmt.Errorf("wizard failed: %w", err)
	}
	return a.apply(base)
}

func parseCount(s string, least int) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%q is not a whole number", s)
	}
	if n < least {
		return 0, fmt.Errorf("must be at least %d", least)
	}
	return n, nil
}

func validateDuration(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("%q is not a duration", s)
	}
	if d < 0 {
		return fmt.Errorf("must not be negative")
	}
	return nil
}
