// Package projectconfig provides the ProjectConfig struct and loader for
// .irtcal.yaml project-level configuration files.
package projectconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/spboyer/irtcal/internal/estimation"
	"github.com/spboyer/irtcal/internal/irt"
	"github.com/spboyer/irtcal/internal/quadrature"
	"github.com/spboyer/irtcal/internal/validation"
)

// FileName is the project config file looked up by Load.
const FileName = ".irtcal.yaml"

// Default values for the input and output sections. Estimation defaults come
// from estimation.DefaultConfig.
const (
	DefaultInputFormat  = "auto"
	DefaultOutputFormat = "text"
	DefaultAbilities    = "mle"
)

// ErrInvalidConfig is returned when .irtcal.yaml fails schema validation.
var ErrInvalidConfig = errors.New("invalid project config")

// EstimationConfig mirrors estimation.Config in file form.
type EstimationConfig struct {
	QuadraturePoints     int     `yaml:"quadrature_points,omitempty"`
	HalfWidth            float64 `yaml:"half_width,omitempty"`
	LearningRate         float64 `yaml:"learning_rate,omitempty"`
	StepTolerance        float64 `yaml:"step_tolerance,omitempty"`
	ConvergenceTolerance float64 `yaml:"convergence_tolerance,omitempty"`
	MaxIterations        int     `yaml:"max_iterations,omitempty"`
	MaxStepIterations    int     `yaml:"max_step_iterations,omitempty"`
	MaxAbility           float64 `yaml:"max_ability,omitempty"`
	ProbabilityFloor     float64 `yaml:"probability_floor,omitempty"`
	ReturnPolicy         string  `yaml:"return_policy,omitempty"`
	Workers              int     `yaml:"workers,omitempty"`
	// TimeBudget is a time.ParseDuration string; empty means no budget.
	TimeBudget string `yaml:"time_budget,omitempty"`
}

// InputConfig holds dataset reading settings.
type InputConfig struct {
	Format string `yaml:"format,omitempty"`
}

// OutputConfig holds report settings.
type OutputConfig struct {
	Format    string `yaml:"format,omitempty"`
	Interpret *bool  `yaml:"interpret,omitempty"`
	// Abilities selects mle, eap, both or none.
	Abilities string `yaml:"abilities,omitempty"`
}

// ProjectConfig is the top-level configuration loaded from .irtcal.yaml.
type ProjectConfig struct {
	Estimation EstimationConfig `yaml:"estimation,omitempty"`
	Input      InputConfig      `yaml:"input,omitempty"`
	Output     OutputConfig     `yaml:"output,omitempty"`
}

// New returns a ProjectConfig with all hard-coded defaults populated.
func New() *ProjectConfig {
	return &ProjectConfig{
		Estimation: EstimationConfig{
			QuadraturePoints:     quadrature.DefaultPoints,
			HalfWidth:            quadrature.DefaultHalfWidth,
			LearningRate:         estimation.DefaultLearningRate,
			StepTolerance:        estimation.DefaultStepTolerance,
			ConvergenceTolerance: estimation.DefaultConvergenceTolerance,
			MaxIterations:        estimation.DefaultMaxIterations,
			MaxStepIterations:    estimation.DefaultMaxStepIterations,
			MaxAbility:           estimation.DefaultMaxAbsAbility,
			ProbabilityFloor:     irt.DefaultProbabilityFloor,
			ReturnPolicy:         string(estimation.DefaultReturnPolicy),
			Workers:              estimation.DefaultWorkers,
		},
		Input: InputConfig{
			Format: DefaultInputFormat,
		},
		Output: OutputConfig{
			Format:    DefaultOutputFormat,
			Interpret: boolPtr(false),
			Abilities: DefaultAbilities,
		},
	}
}

// Load finds .irtcal.yaml by walking up from startDir (max 10 levels),
// validates it against the config schema, and fills in missing fields with
// defaults. If no config file is found, returns defaults with a nil error.
func Load(startDir string) (*ProjectConfig, error) {
	cfg := New()

	data, err := findConfigFile(startDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("loading %s: %w", FileName, err)
	}

	if errs := validation.ValidateConfigBytes(data); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(errs, "; "))
	}

	var fileCfg ProjectConfig
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", FileName, err)
	}

	mergeConfig(cfg, &fileCfg)
	return cfg, nil
}

// Write marshals cfg to path, creating or truncating it.
func Write(path string, cfg *ProjectConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", FileName, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %q: %w", path, err)
	}
	return nil
}

// EstimatorConfig converts the estimation section into an estimation.Config.
// The result is not validated; call Validate on it.
func (p *ProjectConfig) EstimatorConfig() (estimation.Config, error) {
	e := p.Estimation
	cfg := estimation.Config{
		QuadraturePoints:     e.QuadraturePoints,
		HalfWidth:            e.HalfWidth,
		LearningRate:         e.LearningRate,
		StepTolerance:        e.StepTolerance,
		ConvergenceTolerance: e.ConvergenceTolerance,
		MaxIterations:        e.MaxIterations,
		MaxStepIterations:    e.MaxStepIterations,
		MaxAbsAbility:        e.MaxAbility,
		ProbabilityFloor:     e.ProbabilityFloor,
		ReturnPolicy:         estimation.ReturnPolicy(e.ReturnPolicy),
		Workers:              e.Workers,
	}
	if e.TimeBudget != "" {
		d, err := time.ParseDuration(e.TimeBudget)
		if err != nil {
			return estimation.Config{}, fmt.Errorf("%w: time_budget: %v", ErrInvalidConfig, err)
		}
		cfg.TimeBudget = d
	}
	return cfg, nil
}

// findConfigFile walks up from dir looking for .irtcal.yaml (max 10 levels).
// Returns os.ErrNotExist if no config file is found.
func findConfigFile(dir string) ([]byte, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path %q: %w", dir, err)
	}
	dir = absDir

	for i := 0; i < 10; i++ {
		p := filepath.Join(dir, FileName)
		data, err := os.ReadFile(p)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading %q: %w", p, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break // reached filesystem root
		}
		dir = parent
	}
	return nil, os.ErrNotExist
}

// mergeConfig overlays non-zero values from src onto dst.
func mergeConfig(dst, src *ProjectConfig) {
	// Estimation
	se, de := &src.Estimation, &dst.Estimation
	if se.QuadraturePoints != 0 {
		de.QuadraturePoints = se.QuadraturePoints
	}
	if se.HalfWidth != 0 {
		de.HalfWidth = se.HalfWidth
	}
	if se.LearningRate != 0 {
		de.LearningRate = se.LearningRate
	}
	if se.StepTolerance != 0 {
		de.StepTolerance = se.StepTolerance
	}
	if se.ConvergenceTolerance != 0 {
		de.ConvergenceTolerance = se.ConvergenceTolerance
	}
	if se.MaxIterations != 0 {
		de.MaxIterations = se.MaxIterations
	}
	if se.MaxStepIterations != 0 {
		de.MaxStepIterations = se.MaxStepIterations
	}
	if se.MaxAbility != 0 {
		de.MaxAbility = se.MaxAbility
	}
	if se.ProbabilityFloor != 0 {
		de.ProbabilityFloor = se.ProbabilityFloor
	}
	if se.ReturnPolicy != "" {
		de.ReturnPolicy = se.ReturnPolicy
	}
	if se.Workers != 0 {
		de.Workers = se.Workers
	}
	if se.TimeBudget != "" {
		de.TimeBudget = se.TimeBudget
	}

	// Input
	if src.Input.Format != "" {
		dst.Input.Format = src.Input.Format
	}

	// Output
	if src.Output.Format != "" {
		dst.Output.Format = src.Output.Format
	}
	if src.Output.Interpret != nil {
		dst.Output.Interpret = src.Output.Interpret
	}
	if src.Output.Abilities != "" {
		dst.Output.Abilities = src.Output.Abilities
	}
}

func boolPtr(b bool) *bool {
	return &b
}
