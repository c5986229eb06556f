package estimation

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spboyer/irtcal/internal/irt"
	"github.com/spboyer/irtcal/internal/models"
)

// testConfig shrinks the grid and caps so tests stay fast.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.QuadraturePoints = 21
	cfg.MaxIterations = 200
	cfg.MaxStepIterations = 2000
	return cfg
}

func newTestEstimator(t *testing.T, cfg Config) *Estimator {
	t.Helper()
	e, err := NewEstimator(cfg)
	require.NoError(t, err)
	return e
}

// scenarioDataset is 4 examinees on 2 items; item 0 is answered correctly
// three times, item 1 once.
func scenarioDataset(t *testing.T) *models.Dataset {
	t.Helper()
	d, err := models.NewDataset(4, 2, []models.Response{
		{Examinee: 0, Item: 0, Correct: true},
		{Examinee: 0, Item: 1, Correct: true},
		{Examinee: 1, Item: 0, Correct: true},
		{Examinee: 1, Item: 1, Correct: false},
		{Examinee: 2, Item: 0, Correct: false},
		{Examinee: 2, Item: 1, Correct: false},
		{Examinee: 3, Item: 0, Correct: true},
		{Examinee: 3, Item: 1, Correct: false},
	})
	require.NoError(t, err)
	return d
}

// simulatedDataset draws complete 2PL responses for examinees with
// standard-normal abilities.
func simulatedDataset(t *testing.T, examinees int, items []models.ItemParams, seed int64) *models.Dataset {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	var responses []models.Response
	for i := range examinees {
		theta := rng.NormFloat64()
		for j, item := range items {
			p := irt.ProbabilityBase(theta, item.Difficulty, item.Discrimination)
			responses = append(responses, models.Response{Examinee: i, Item: j, Correct: rng.Float64() < p})
		}
	}
	d, err := models.NewDataset(examinees, len(items), responses)
	require.NoError(t, err)
	return d
}

var simulatedItems = []models.ItemParams{
	{Discrimination: 1.0, Difficulty: -1.0},
	{Discrimination: 1.4, Difficulty: -0.3},
	{Discrimination: 0.8, Difficulty: 0.0},
	{Discrimination: 1.2, Difficulty: 0.5},
	{Discrimination: 0.9, Difficulty: 1.2},
}
