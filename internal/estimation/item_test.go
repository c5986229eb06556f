package estimation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spboyer/irtcal/internal/models"
)

func itemStats(t *testing.T) (nodes, r, s []float64) {
	t.Helper()
	cfg := testConfig()
	grid, err := cfg.grid()
	require.NoError(t, err)
	r = make([]float64, grid.Len())
	s = make([]float64, grid.Len())
	for q, node := range grid.Nodes {
		// More correct mass at high ability, more incorrect mass at low.
		r[q] = grid.Weights[q] * (1.5 + node)
		s[q] = grid.Weights[q] * (1.5 - node/2)
		if r[q] < 0 {
			r[q] = 0
		}
	}
	return grid.Nodes, r, s
}

func TestItemGradient_MatchesFiniteDifference(t *testing.T) {
	nodes, r, s := itemStats(t)
	floor := testConfig().ProbabilityFloor
	p := models.ItemParams{Discrimination: 0.9, Difficulty: 0.2}

	gradDiff, gradDisc := itemGradient(nodes, r, s, p)

	const h = 1e-6
	obj := func(p models.ItemParams) float64 { return itemObjective(nodes, r, s, p, floor) }
	numDiff := (obj(models.ItemParams{Discrimination: p.Discrimination, Difficulty: p.Difficulty + h}) -
		obj(models.ItemParams{Discrimination: p.Discrimination, Difficulty: p.Difficulty - h})) / (2 * h)
	numDisc := (obj(models.ItemParams{Discrimination: p.Discrimination + h, Difficulty: p.Difficulty}) -
		obj(models.ItemParams{Discrimination: p.Discrimination - h, Difficulty: p.Difficulty})) / (2 * h)

	assert.InDelta(t, numDiff, gradDiff, 1e-5)
	assert.InDelta(t, numDisc, gradDisc, 1e-5)
}

func TestOptimizeItem_OnlyKeepsImprovingSteps(t *testing.T) {
	nodes, r, s := itemStats(t)
	cfg := testConfig()
	start := models.ItemParams{Discrimination: 1, Difficulty: 0}
	startObj := itemObjective(nodes, r, s, start, cfg.ProbabilityFloor)

	fit := optimizeItem(cfg, nodes, r, s, start)

	require.Greater(t, fit.steps, 0)
	assert.Greater(t, fit.objective, startObj+cfg.StepTolerance)
	assert.Equal(t, itemObjective(nodes, r, s, fit.params, cfg.ProbabilityFloor), fit.objective,
		"reported objective must be the objective of the kept parameters")

	// The climb stopped because the next proposal did not clear the tolerance.
	if !fit.capped {
		gd, ga := itemGradient(nodes, r, s, fit.params)
		next := models.ItemParams{
			Difficulty:     fit.params.Difficulty + cfg.LearningRate*gd,
			Discrimination: fit.params.Discrimination + cfg.LearningRate*ga,
		}
		assert.LessOrEqual(t, itemObjective(nodes, r, s, next, cfg.ProbabilityFloor), fit.objective+cfg.StepTolerance)
	}
}

func TestOptimizeItem_StepCap(t *testing.T) {
	nodes, r, s := itemStats(t)
	cfg := testConfig()
	cfg.MaxStepIterations = 3

	fit := optimizeItem(cfg, nodes, r, s, models.ItemParams{Discrimination: 1, Difficulty: 0})
	assert.True(t, fit.capped)
	assert.Equal(t, 3, fit.steps)
}

func TestOptimizeItem_NoDataStaysPut(t *testing.T) {
	nodes, _, _ := itemStats(t)
	zeros := make([]float64, len(nodes))
	start := models.ItemParams{Discrimination: 1.3, Difficulty: -0.2}

	fit := optimizeItem(testConfig(), nodes, zeros, zeros, start)
	assert.Equal(t, start, fit.params)
	assert.Equal(t, 0, fit.steps)
	assert.Equal(t, 0.0, fit.objective)
}

func TestMStep_ItemsIndependent(t *testing.T) {
	cfg := testConfig()
	d := simulatedDataset(t, 120, simulatedItems, 3)
	grid, err := cfg.grid()
	require.NoError(t, err)
	m := models.NewModel(d.Items)

	stats, err := eStep(context.Background(), cfg, grid, m, d.ByExaminee())
	require.NoError(t, err)

	all, err := mStep(context.Background(), cfg, grid, stats, m)
	require.NoError(t, err)
	require.Len(t, all, d.Items)

	cfg.Workers = 4
	parallel, err := mStep(context.Background(), cfg, grid, stats, m)
	require.NoError(t, err)
	assert.Equal(t, all, parallel)

	// The easiest simulated item should come out easier than the hardest.
	assert.Less(t, all[0].params.Difficulty, all[4].params.Difficulty)
}
