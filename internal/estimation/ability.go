package estimation

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/spboyer/irtcal/internal/irt"
	"github.com/spboyer/irtcal/internal/models"
)

// EstimateAbilities returns the maximum-likelihood ability of every examinee
// with the item parameters in m held fixed. It uses the same fixed-step,
// accept-if-improving climb as the item optimizer, starting from 0.
//
// All-correct and all-incorrect patterns have no finite maximum. Their climb
// usually ends at MaxStepIterations with status AbilityMaxIterations; the
// ±MaxAbsAbility clamp (status AbilityBounded) catches larger step sizes.
func (e *Estimator) EstimateAbilities(ctx context.Context, m *models.Model, d *models.Dataset) ([]models.AbilityEstimate, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if m.ItemCount() != d.Items {
		return nil, fmt.Errorf("%w: model has %d items, dataset has %d", models.ErrInvalidInput, m.ItemCount(), d.Items)
	}

	groups := d.ByExaminee()
	out := make([]models.AbilityEstimate, len(groups))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)
	for lo := 0; lo < len(groups); lo += chunkSize {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for i := lo; i < min(lo+chunkSize, len(groups)); i++ {
				est := estimateAbility(e.cfg, m, groups[i])
				if math.IsNaN(est.Ability) || math.IsNaN(est.LogLikelihood) {
					return fmt.Errorf("examinee %d: %w: ability is %v", i, ErrNumericalInstability, est.Ability)
				}
				est.Examinee = i
				out[i] = est
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// abilityGradient is d/dθ of the pattern log-likelihood: Σ D·a·(x - p).
func abilityGradient(ability float64, m *models.Model, responses []models.Response) float64 {
	grad := 0.0
	for _, r := range responses {
		item := m.Item(r.Item)
		p := irt.ProbabilityBase(ability, item.Difficulty, item.Discrimination)
		grad += irt.D * item.Discrimination * (float64(r.Outcome()) - p)
	}
	return grad
}

func estimateAbility(cfg Config, m *models.Model, responses []models.Response) models.AbilityEstimate {
	if len(responses) == 0 {
		return models.AbilityEstimate{Status: models.AbilityNoResponses}
	}

	est := models.AbilityEstimate{
		LogLikelihood: irt.PatternLogLikelihood(0, m, responses, cfg.ProbabilityFloor),
		Status:        models.AbilityConverged,
	}
	for {
		if est.Steps >= cfg.MaxStepIterations {
			est.Status = models.AbilityMaxIterations
			break
		}
		next := est.Ability + cfg.LearningRate*abilityGradient(est.Ability, m, responses)
		bounded := math.Abs(next) >= cfg.MaxAbsAbility
		if bounded {
			next = math.Copysign(cfg.MaxAbsAbility, next)
		}
		ll := irt.PatternLogLikelihood(next, m, responses, cfg.ProbabilityFloor)
		if !(ll > est.LogLikelihood+cfg.StepTolerance) {
			break
		}
		est.Ability = next
		est.LogLikelihood = ll
		est.Steps++
		if bounded {
			est.Status = models.AbilityBounded
			break
		}
	}

	info := 0.0
	for _, r := range responses {
		info += irt.ItemInformation(est.Ability, m.Item(r.Item))
	}
	if info > 0 {
		est.StdError = 1 / math.Sqrt(info)
	}
	return est
}

// EstimatePosterior returns each examinee's expected-a-posteriori ability and
// posterior standard deviation under m, from one E-step over the grid.
func (e *Estimator) EstimatePosterior(ctx context.Context, m *models.Model, d *models.Dataset) ([]models.PosteriorEstimate, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if m.ItemCount() != d.Items || d.Items == 0 {
		return nil, fmt.Errorf("%w: model has %d items, dataset has %d", models.ErrInvalidInput, m.ItemCount(), d.Items)
	}
	if d.Examinees == 0 {
		return nil, nil
	}

	grid, err := e.cfg.grid()
	if err != nil {
		return nil, err
	}
	stats, err := eStep(ctx, e.cfg, grid, m, d.ByExaminee())
	if err != nil {
		return nil, err
	}

	out := make([]models.PosteriorEstimate, d.Examinees)
	for i := range out {
		row := stats.posterior.RawRowView(i)
		mean, sq := 0.0, 0.0
		for q, w := range row {
			mean += w * grid.Nodes[q]
			sq += w * grid.Nodes[q] * grid.Nodes[q]
		}
		out[i] = models.PosteriorEstimate{
			Examinee: i,
			Mean:     mean,
			StdDev:   math.Sqrt(math.Max(sq-mean*mean, 0)),
		}
	}
	return out, nil
}
