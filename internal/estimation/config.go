package estimation

import (
	"fmt"
	"math"
	"time"

	"github.com/spboyer/irtcal/internal/irt"
	"github.com/spboyer/irtcal/internal/quadrature"
)

// ReturnPolicy picks which model Fit returns once the log-likelihood stops
// improving.
type ReturnPolicy string

const (
	// ReturnBestConfirmed returns the model from before the final,
	// non-improving M-step: the one that earned the last confirmed
	// log-likelihood.
	ReturnBestConfirmed ReturnPolicy = "best_confirmed"
	// ReturnLastUpdate returns the model after the final M-step.
	ReturnLastUpdate ReturnPolicy = "last_update"
)

// Default values for Config. DefaultConfig is the only place that should
// read them.
const (
	DefaultLearningRate         = 0.001
	DefaultStepTolerance        = 1e-7
	DefaultConvergenceTolerance = 1e-7
	DefaultMaxIterations        = 500
	DefaultMaxStepIterations    = 10000
	DefaultMaxAbsAbility        = 6.0
	DefaultWorkers              = 1
	DefaultReturnPolicy         = ReturnBestConfirmed
)

// Config holds every numeric knob of the estimator.
type Config struct {
	// QuadraturePoints is the number of ability nodes (Q).
	QuadraturePoints int
	// HalfWidth bounds the grid to [-HalfWidth, HalfWidth].
	HalfWidth float64
	// LearningRate is the fixed gradient-ascent step (alpha).
	LearningRate float64
	// StepTolerance is how much a proposed step must improve its objective
	// to be accepted, for both item and ability fitting.
	StepTolerance float64
	// ConvergenceTolerance is how much the total log-likelihood must grow
	// for the EM loop to keep going.
	ConvergenceTolerance float64
	// MaxIterations caps EM iterations.
	MaxIterations int
	// MaxStepIterations caps accepted steps per item per iteration and per
	// examinee in ability estimation.
	MaxStepIterations int
	// MaxAbsAbility bounds ability estimates to [-MaxAbsAbility, MaxAbsAbility].
	MaxAbsAbility float64
	// ProbabilityFloor clamps probabilities before every log.
	ProbabilityFloor float64
	ReturnPolicy     ReturnPolicy
	// Workers bounds the goroutines used per phase.
	Workers int
	// TimeBudget stops the EM loop after this long; zero means no budget.
	TimeBudget time.Duration
}

// DefaultConfig returns the standard settings: a 100-node grid over [-3, 3],
// alpha 0.001 and 1e-7 tolerances.
func DefaultConfig() Config {
	return Config{
		QuadraturePoints:     quadrature.DefaultPoints,
		HalfWidth:            quadrature.DefaultHalfWidth,
		LearningRate:         DefaultLearningRate,
		StepTolerance:        DefaultStepTolerance,
		ConvergenceTolerance: DefaultConvergenceTolerance,
		MaxIterations:        DefaultMaxIterations,
		MaxStepIterations:    DefaultMaxStepIterations,
		MaxAbsAbility:        DefaultMaxAbsAbility,
		ProbabilityFloor:     irt.DefaultProbabilityFloor,
		ReturnPolicy:         DefaultReturnPolicy,
		Workers:              DefaultWorkers,
	}
}

// Validate reports the first out-of-range field.
func (c Config) Validate() error {
	switch {
	case c.QuadraturePoints < 2:
		return fmt.Errorf("%w: quadrature points must be >= 2, got %d", ErrInvalidConfig, c.QuadraturePoints)
	case !positiveFinite(c.HalfWidth):
		return fmt.Errorf("%w: half-width must be positive, got %v", ErrInvalidConfig, c.HalfWidth)
	case !positiveFinite(c.LearningRate):
		return fmt.Errorf("%w: learning rate must be positive, got %v", ErrInvalidConfig, c.LearningRate)
	case c.StepTolerance < 0 || math.IsNaN(c.StepTolerance):
		return fmt.Errorf("%w: step tolerance must be >= 0, got %v", ErrInvalidConfig, c.StepTolerance)
	case c.ConvergenceTolerance < 0 || math.IsNaN(c.ConvergenceTolerance):
		return fmt.Errorf("%w: convergence tolerance must be >= 0, got %v", ErrInvalidConfig, c.ConvergenceTolerance)
	case c.MaxIterations < 1:
		return fmt.Errorf("%w: max iterations must be >= 1, got %d", ErrInvalidConfig, c.MaxIterations)
	case c.MaxStepIterations < 1:
		return fmt.Errorf("%w: max step iterations must be >= 1, got %d", ErrInvalidConfig, c.MaxStepIterations)
	case !positiveFinite(c.MaxAbsAbility):
		return fmt.Errorf("%w: max ability must be positive, got %v", ErrInvalidConfig, c.MaxAbsAbility)
	case !(c.ProbabilityFloor > 0 && c.ProbabilityFloor < 0.5):
		return fmt.Errorf("%w: probability floor must be in (0, 0.5), got %v", ErrInvalidConfig, c.ProbabilityFloor)
	case c.ReturnPolicy != ReturnBestConfirmed && c.ReturnPolicy != ReturnLastUpdate:
		return fmt.Errorf("%w: unknown return policy %q", ErrInvalidConfig, c.ReturnPolicy)
	case c.Workers < 1:
		return fmt.Errorf("%w: workers must be >= 1, got %d", ErrInvalidConfig, c.Workers)
	case c.TimeBudget < 0:
		return fmt.Errorf("%w: time budget must be >= 0, got %v", ErrInvalidConfig, c.TimeBudget)
	}
	return nil
}

func (c Config) grid() (*quadrature.Grid, error) {
	return quadrature.New(c.QuadraturePoints, c.HalfWidth)
}

func positiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}
