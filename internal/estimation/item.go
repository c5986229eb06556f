package estimation

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/spboyer/irtcal/internal/irt"
	"github.com/spboyer/irtcal/internal/models"
	"github.com/spboyer/irtcal/internal/quadrature"
)

// itemFit is the outcome of maximizing one item's objective.
type itemFit struct {
	params    models.ItemParams
	objective float64
	steps     int
	capped    bool
}

// itemObjective is the expected complete-data log-likelihood of one item:
//
//	Σ_q r_q·log(p_q) + s_q·log(1-p_q)
func itemObjective(nodes, r, s []float64, p models.ItemParams, floor float64) float64 {
	lf := 0.0
	for q, node := range nodes {
		prob := irt.ProbabilityBase(node, p.Difficulty, p.Discrimination)
		lf += r[q]*irt.LogOutcome(prob, true, floor) + s[q]*irt.LogOutcome(prob, false, floor)
	}
	return lf
}

// itemGradient returns ∂/∂difficulty and ∂/∂discrimination of itemObjective.
func itemGradient(nodes, r, s []float64, p models.ItemParams) (gradDiff, gradDisc float64) {
	for q, node := range nodes {
		prob := irt.ProbabilityBase(node, p.Difficulty, p.Discrimination)
		resid := r[q]*(1.0-prob) - s[q]*prob
		gradDiff += resid * (-irt.D * p.Discrimination)
		gradDisc += resid * (irt.D * (node - p.Difficulty))
	}
	return gradDiff, gradDisc
}

// optimizeItem hill-climbs one item from start with a fixed step. A step is
// kept only if it raises the objective by more than StepTolerance; the first
// rejected step ends the climb.
func optimizeItem(cfg Config, nodes, r, s []float64, start models.ItemParams) itemFit {
	fit := itemFit{
		params:    start,
		objective: itemObjective(nodes, r, s, start, cfg.ProbabilityFloor),
	}
	for {
		if fit.steps >= cfg.MaxStepIterations {
			fit.capped = true
			return fit
		}
		gradDiff, gradDisc := itemGradient(nodes, r, s, fit.params)
		next := models.ItemParams{
			Difficulty:     fit.params.Difficulty + cfg.LearningRate*gradDiff,
			Discrimination: fit.params.Discrimination + cfg.LearningRate*gradDisc,
		}
		lf := itemObjective(nodes, r, s, next, cfg.ProbabilityFloor)
		if !(lf > fit.objective+cfg.StepTolerance) {
			return fit
		}
		fit.params = next
		fit.objective = lf
		fit.steps++
	}
}

// mStep refits every item against the sufficient statistics. Items are
// independent given r and s, so they run concurrently.
func mStep(ctx context.Context, cfg Config, grid *quadrature.Grid, stats *eStepResult, m *models.Model) ([]itemFit, error) {
	fits := make([]itemFit, m.ItemCount())

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for j := range fits {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r := mat.Col(nil, j, stats.r)
			s := mat.Col(nil, j, stats.s)
			fit := optimizeItem(cfg, grid.Nodes, r, s, m.Item(j))
			if math.IsNaN(fit.objective) || math.IsInf(fit.objective, 0) {
				return fmt.Errorf("item %d: %w: objective is %v", j, ErrNumericalInstability, fit.objective)
			}
			fits[j] = fit
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return fits, nil
}
