package models

import (
	"fmt"
	"time"
)

// FitStatus says why an estimation loop stopped.
type FitStatus string

const (
	// StatusConverged means the improvement fell below tolerance.
	StatusConverged FitStatus = "converged"
	// StatusMaxIterations means the iteration cap was hit first.
	StatusMaxIterations FitStatus = "max_iterations"
	// StatusTimeBudget means the wall-clock budget ran out first.
	StatusTimeBudget FitStatus = "time_budget"
)

// Converged reports whether the status is StatusConverged.
func (s FitStatus) Converged() bool {
	return s == StatusConverged
}

// IterationSummary describes one EM iteration.
type IterationSummary struct {
	Iteration int `json:"iteration" yaml:"iteration"`
	// LogLikelihood is the summed expected complete-data log-likelihood
	// over all items after the M-step.
	LogLikelihood float64 `json:"log_likelihood" yaml:"log_likelihood"`
	// MarginalLogLikelihood is the observed-data log-likelihood of the
	// parameters going into this iteration, integrated over the grid.
	MarginalLogLikelihood float64 `json:"marginal_log_likelihood" yaml:"marginal_log_likelihood"`
	Improvement           float64 `json:"improvement" yaml:"improvement"`
	Improved              bool    `json:"improved" yaml:"improved"`
	// Steps is the number of accepted gradient steps over all items.
	Steps      int   `json:"steps" yaml:"steps"`
	DurationMs int64 `json:"duration_ms" yaml:"duration_ms"`
}

// FitResult is what the EM estimator hands back.
type FitResult struct {
	Model         *Model             `json:"model" yaml:"model"`
	Status        FitStatus          `json:"status" yaml:"status"`
	Iterations    int                `json:"iterations" yaml:"iterations"`
	LogLikelihood float64            `json:"log_likelihood" yaml:"log_likelihood"`
	History       []IterationSummary `json:"history" yaml:"history"`
	Warnings      []string           `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Duration      time.Duration      `json:"duration" yaml:"duration"`
}

// Err returns a *NotConvergedError when the fit stopped early, nil otherwise.
func (r *FitResult) Err() error {
	if r.Status.Converged() {
		return nil
	}
	return &NotConvergedError{Status: r.Status, Iterations: r.Iterations}
}

// NotConvergedError reports that the best model found so far was returned
// without meeting the convergence tolerance.
type NotConvergedError struct {
	Status     FitStatus
	Iterations int
}

func (e *NotConvergedError) Error() string {
	return fmt.Sprintf("estimation did not converge after %d iterations (%s)", e.Iterations, e.Status)
}

// AbilityStatus says how a single ability estimate ended.
type AbilityStatus string

const (
	AbilityConverged     AbilityStatus = "converged"
	AbilityBounded       AbilityStatus = "bounded"
	AbilityMaxIterations AbilityStatus = "max_iterations"
	AbilityNoResponses   AbilityStatus = "no_responses"
)

// AbilityEstimate is the maximum-likelihood ability of one examinee.
type AbilityEstimate struct {
	Examinee int     `json:"examinee" yaml:"examinee"`
	Ability  float64 `json:"ability" yaml:"ability"`
	// StdError is 1/sqrt(test information) at Ability, or 0 when the
	// information vanishes.
	StdError      float64       `json:"std_error" yaml:"std_error"`
	LogLikelihood float64       `json:"log_likelihood" yaml:"log_likelihood"`
	Steps         int           `json:"steps" yaml:"steps"`
	Status        AbilityStatus `json:"status" yaml:"status"`
}

// PosteriorEstimate is the expected-a-posteriori ability of one examinee.
type PosteriorEstimate struct {
	Examinee int     `json:"examinee" yaml:"examinee"`
	Mean     float64 `json:"mean" yaml:"mean"`
	StdDev   float64 `json:"std_dev" yaml:"std_dev"`
}
