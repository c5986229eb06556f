package estimation

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/spboyer/irtcal/internal/irt"
	"github.com/spboyer/irtcal/internal/models"
	"github.com/spboyer/irtcal/internal/quadrature"
)

// chunkSize is the number of examinees per E-step task. Partial sums are
// reduced in chunk order, so the result does not depend on Workers.
const chunkSize = 64

// eStepResult is rebuilt from scratch every iteration.
type eStepResult struct {
	// posterior is examinees × Q; every row sums to 1.
	posterior *mat.Dense
	// r and s are Q × items: posterior mass behind correct (r) and
	// incorrect (s) responses at each node.
	r, s *mat.Dense
	// marginal is Σ_i log Σ_q P(x_i|θ_q)·π_q with π normalized to sum 1.
	marginal float64
}

type chunkResult struct {
	r, s     *mat.Dense
	marginal float64
}

// eStep computes each examinee's posterior over grid nodes under m and
// aggregates it into per-item sufficient statistics.
func eStep(ctx context.Context, cfg Config, grid *quadrature.Grid, m *models.Model, groups [][]models.Response) (*eStepResult, error) {
	nq := grid.Len()
	items := m.ItemCount()

	logPrior := make([]float64, nq)
	for q, w := range grid.Weights {
		logPrior[q] = math.Log(w)
	}
	logPriorMass := math.Log(floats.Sum(grid.Weights))

	res := &eStepResult{
		posterior: mat.NewDense(len(groups), nq, nil),
		r:         mat.NewDense(nq, items, nil),
		s:         mat.NewDense(nq, items, nil),
	}

	chunks := (len(groups) + chunkSize - 1) / chunkSize
	partials := make([]chunkResult, chunks)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for c := range chunks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			lo := c * chunkSize
			hi := min(lo+chunkSize, len(groups))
			part := chunkResult{
				r: mat.NewDense(nq, items, nil),
				s: mat.NewDense(nq, items, nil),
			}
			for i := lo; i < hi; i++ {
				row := res.posterior.RawRowView(i)
				lse, err := posteriorRow(row, cfg, grid, logPrior, m, groups[i])
				if err != nil {
					return fmt.Errorf("examinee %d: %w", i, err)
				}
				part.marginal += lse - logPriorMass
				accumulate(part.r, part.s, row, groups[i])
			}
			partials[c] = part
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, part := range partials {
		res.r.Add(res.r, part.r)
		res.s.Add(res.s, part.s)
		res.marginal += part.marginal
	}
	return res, nil
}

// posteriorRow fills row with the normalized posterior of one examinee and
// returns the log of the unnormalized mass. Weights are formed in log space
// and shifted by their maximum, so a long pattern cannot underflow every node.
func posteriorRow(row []float64, cfg Config, grid *quadrature.Grid, logPrior []float64, m *models.Model, responses []models.Response) (float64, error) {
	for q, node := range grid.Nodes {
		row[q] = irt.PatternLogLikelihood(node, m, responses, cfg.ProbabilityFloor) + logPrior[q]
	}
	lse := floats.LogSumExp(row)
	if math.IsNaN(lse) || math.IsInf(lse, 0) {
		return 0, fmt.Errorf("%w: posterior log-mass is %v", ErrNumericalInstability, lse)
	}
	for q := range row {
		row[q] = math.Exp(row[q] - lse)
	}
	sum := floats.Sum(row)
	if !(sum > 0) || math.IsInf(sum, 0) {
		return 0, fmt.Errorf("%w: posterior mass is %v", ErrNumericalInstability, sum)
	}
	floats.Scale(1/sum, row)
	return lse, nil
}

// accumulate adds one examinee's posterior row into the r or s column of
// every item they answered.
func accumulate(r, s *mat.Dense, row []float64, responses []models.Response) {
	for _, resp := range responses {
		target := s
		if resp.Correct {
			target = r
		}
		for q, w := range row {
			target.Set(q, resp.Item, target.At(q, resp.Item)+w)
		}
	}
}
