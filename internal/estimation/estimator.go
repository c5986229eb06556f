// Package estimation fits 2PL item parameters by marginal maximum likelihood
// with an EM loop over a fixed quadrature grid, then scores examinees
// against the fitted items.
package estimation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/spboyer/irtcal/internal/models"
)

// ProgressListener receives progress updates.
type ProgressListener func(event ProgressEvent)

// EventType represents the type of progress event.
type EventType string

// Progress event types.
const (
	EventFitStart          EventType = "fit_start"
	EventIterationComplete EventType = "iteration_complete"
	EventFitComplete       EventType = "fit_complete"
)

// ProgressEvent represents a progress update.
type ProgressEvent struct {
	EventType     EventType
	Iteration     int
	MaxIterations int
	Summary       *models.IterationSummary
	Status        models.FitStatus
}

// Estimator runs EM calibration and ability scoring with a fixed Config.
type Estimator struct {
	cfg Config

	progressMu sync.Mutex
	listeners  []ProgressListener
}

// NewEstimator validates cfg and returns an estimator.
func NewEstimator(cfg Config) (*Estimator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Estimator{cfg: cfg}, nil
}

// Config returns the estimator's settings.
func (e *Estimator) Config() Config {
	return e.cfg
}

// OnProgress registers a progress listener
func (e *Estimator) OnProgress(listener ProgressListener) {
	e.progressMu.Lock()
	defer e.progressMu.Unlock()
	e.listeners = append(e.listeners, listener)
}

func (e *Estimator) notifyProgress(event ProgressEvent) {
	e.progressMu.Lock()
	listeners := make([]ProgressListener, len(e.listeners))
	copy(listeners, e.listeners)
	e.progressMu.Unlock()

	for _, listener := range listeners {
		listener(event)
	}
}

// Fit runs EM until the total expected log-likelihood stops improving by
// more than ConvergenceTolerance, MaxIterations is reached, or TimeBudget
// runs out. The last two still return the best model so far, with a
// non-converged Status and a warning; only invalid input, numerical
// failure, or cancellation of ctx produce an error.
//
// Which model comes back on convergence is set by Config.ReturnPolicy.
func (e *Estimator) Fit(ctx context.Context, d *models.Dataset) (*models.FitResult, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if d.Examinees == 0 || d.Items == 0 {
		return nil, fmt.Errorf("%w: need at least one examinee and one item, got %d and %d",
			models.ErrInvalidInput, d.Examinees, d.Items)
	}

	start := time.Now()
	runCtx := ctx
	if e.cfg.TimeBudget > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.cfg.TimeBudget)
		defer cancel()
	}

	groups := d.ByExaminee()
	model := models.NewModel(d.Items)
	likelihood := math.Inf(-1)

	result := &models.FitResult{Status: models.StatusMaxIterations}

	e.notifyProgress(ProgressEvent{EventType: EventFitStart, MaxIterations: e.cfg.MaxIterations})
	slog.Debug("EM start", "examinees", d.Examinees, "items", d.Items,
		"responses", len(d.Responses), "nodes", e.cfg.QuadraturePoints)

loop:
	for iter := 1; iter <= e.cfg.MaxIterations; iter++ {
		iterStart := time.Now()

		updated, summary, err := e.iterate(runCtx, model, groups)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if errors.Is(err, context.DeadlineExceeded) {
				result.Status = models.StatusTimeBudget
				break loop
			}
			return nil, fmt.Errorf("iteration %d: %w", iter, err)
		}

		summary.Iteration = iter
		if !math.IsInf(likelihood, -1) {
			summary.Improvement = summary.LogLikelihood - likelihood
		}
		summary.Improved = summary.LogLikelihood > likelihood+e.cfg.ConvergenceTolerance
		summary.DurationMs = time.Since(iterStart).Milliseconds()
		result.History = append(result.History, *summary)
		result.Iterations = iter

		slog.Debug("EM iteration", "iteration", iter, "log_likelihood", summary.LogLikelihood,
			"marginal", summary.MarginalLogLikelihood, "improvement", summary.Improvement, "steps", summary.Steps)
		e.notifyProgress(ProgressEvent{
			EventType:     EventIterationComplete,
			Iteration:     iter,
			MaxIterations: e.cfg.MaxIterations,
			Summary:       summary,
		})

		if !summary.Improved {
			result.Status = models.StatusConverged
			if e.cfg.ReturnPolicy == ReturnLastUpdate {
				model = updated
				likelihood = summary.LogLikelihood
			}
			break
		}
		model = updated
		likelihood = summary.LogLikelihood
	}

	result.Model = model
	result.LogLikelihood = likelihood
	result.Duration = time.Since(start)

	switch result.Status {
	case models.StatusMaxIterations:
		msg := fmt.Sprintf("EM stopped at the iteration cap (%d) before converging; returning the last improving model", e.cfg.MaxIterations)
		result.Warnings = append(result.Warnings, msg)
		slog.Warn(msg)
	case models.StatusTimeBudget:
		msg := fmt.Sprintf("EM stopped after the %v time budget at iteration %d; returning the last improving model", e.cfg.TimeBudget, result.Iterations)
		result.Warnings = append(result.Warnings, msg)
		slog.Warn(msg)
	}

	e.notifyProgress(ProgressEvent{
		EventType:     EventFitComplete,
		Iteration:     result.Iterations,
		MaxIterations: e.cfg.MaxIterations,
		Status:        result.Status,
	})
	return result, nil
}

// iterate runs one E-step and one M-step. m is left untouched; the refit
// parameters come back in a new model.
func (e *Estimator) iterate(ctx context.Context, m *models.Model, groups [][]models.Response) (*models.Model, *models.IterationSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	grid, err := e.cfg.grid()
	if err != nil {
		return nil, nil, err
	}

	stats, err := eStep(ctx, e.cfg, grid, m, groups)
	if err != nil {
		return nil, nil, fmt.Errorf("E-step: %w", err)
	}

	fits, err := mStep(ctx, e.cfg, grid, stats, m)
	if err != nil {
		return nil, nil, fmt.Errorf("M-step: %w", err)
	}

	updated := m.Clone()
	summary := &models.IterationSummary{MarginalLogLikelihood: stats.marginal}
	capped := 0
	for j, fit := range fits {
		updated.SetItem(j, fit.params)
		summary.LogLikelihood += fit.objective
		summary.Steps += fit.steps
		if fit.capped {
			capped++
		}
	}
	if capped > 0 {
		slog.Debug("item step cap reached", "items", capped, "cap", e.cfg.MaxStepIterations)
	}
	return updated, summary, nil
}
