package reporting

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spboyer/irtcal/internal/dataset"
	"github.com/spboyer/irtcal/internal/estimation"
	"github.com/spboyer/irtcal/internal/models"
)

// newTestInput has four items: a clean one, a weakly discriminating one, one
// everybody got right and one nobody answered. Examinee 2 answered nothing.
func newTestInput(t *testing.T, interpret bool) Input {
	t.Helper()
	d, err := models.NewDataset(3, 4, []models.Response{
		{Examinee: 0, Item: 0, Correct: true},
		{Examinee: 0, Item: 1, Correct: false},
		{Examinee: 0, Item: 2, Correct: true},
		{Examinee: 1, Item: 0, Correct: false},
		{Examinee: 1, Item: 1, Correct: true},
		{Examinee: 1, Item: 2, Correct: true},
	})
	require.NoError(t, err)

	return Input{
		Table: &dataset.Table{
			Dataset:   d,
			ItemNames: []string{"alpha", "beta", "gamma", "delta"},
			Source:    "fixture.csv",
		},
		Config: estimation.DefaultConfig(),
		Fit: &models.FitResult{
			Model: &models.Model{
				Discrimination: []float64{1.2, 0.2, 2.0, 1.0},
				Difficulty:     []float64{-0.5, 0.4, -4.0, 0.0},
			},
			Status:        models.StatusMaxIterations,
			Iterations:    2,
			LogLikelihood: -10.5,
			History: []models.IterationSummary{
				{Iteration: 1, LogLikelihood: -11, MarginalLogLikelihood: -12.5},
				{Iteration: 2, LogLikelihood: -10.5, MarginalLogLikelihood: -12.25, Improvement: 0.5, Improved: true},
			},
			Warnings: []string{"stopped at the iteration cap"},
			Duration: 1500 * time.Millisecond,
		},
		Abilities: []models.AbilityEstimate{
			{Examinee: 0, Ability: 1.5, StdError: 0.8, Status: models.AbilityConverged, Steps: 40},
			{Examinee: 1, Ability: -0.2, StdError: 0.9, Status: models.AbilityConverged, Steps: 12},
			{Examinee: 2, Status: models.AbilityNoResponses},
		},
		Posterior: []models.PosteriorEstimate{
			{Examinee: 0, Mean: 0.7, StdDev: 0.6},
			{Examinee: 1, Mean: -0.1, StdDev: 0.6},
			{Examinee: 2, Mean: 0, StdDev: 1},
		},
		Interpret: interpret,
	}
}

func TestBuildReport(t *testing.T) {
	r := BuildReport(newTestInput(t, false))

	assert.Equal(t, "fixture.csv", r.Source)
	assert.Equal(t, 3, r.Examinees)
	assert.Equal(t, 4, r.Items)
	assert.Equal(t, 6, r.Responses)
	assert.Equal(t, "max_iterations", r.Fit.Status)
	assert.False(t, r.Fit.Converged)
	assert.Equal(t, Float(-12.25), r.Fit.MarginalLogLikelihood)
	assert.Equal(t, int64(1500), r.Fit.DurationMs)
	assert.Equal(t, 100, r.Settings.QuadraturePoints)
	assert.Equal(t, "best_confirmed", r.Settings.ReturnPolicy)

	require.Len(t, r.ItemRows, 4)
	assert.Equal(t, "alpha", r.ItemRows[0].Name)
	assert.Empty(t, r.ItemRows[0].Flags)
	assert.Equal(t, Float(0.5), r.ItemRows[0].PValue)
	assert.Equal(t, []string{FlagLowDiscrim}, r.ItemRows[1].Flags)
	assert.Equal(t, []string{FlagAllCorrect, FlagOutsideGrid}, r.ItemRows[2].Flags)
	assert.Equal(t, []string{FlagNoResponses}, r.ItemRows[3].Flags)
	assert.True(t, math.IsNaN(float64(r.ItemRows[3].PValue)))
	assert.Empty(t, r.ItemRows[0].DiscriminationLabel, "labels only when interpreting")

	require.Len(t, r.Abilities, 3)
	assert.Equal(t, 2, r.Abilities[0].Score)
	assert.Equal(t, 3, r.Abilities[0].Answered)
	require.NotNil(t, r.Abilities[0].MLE)
	require.NotNil(t, r.Abilities[0].EAP)
	assert.Equal(t, Float(1.5), r.Abilities[0].MLE.Ability)
	assert.Equal(t, Float(0.7), r.Abilities[0].EAP.Mean)
	assert.Equal(t, "no_responses", r.Abilities[2].MLE.Status)
}

func TestBuildReport_Interpret(t *testing.T) {
	r := BuildReport(newTestInput(t, true))

	assert.True(t, r.Interpreted)
	assert.Equal(t, "Moderate", r.ItemRows[0].DiscriminationLabel)
	assert.Equal(t, "Medium", r.ItemRows[0].DifficultyLabel)
	assert.Equal(t, "Very low", r.ItemRows[1].DiscriminationLabel)
	assert.Equal(t, "Very easy", r.ItemRows[2].DifficultyLabel)
	assert.Equal(t, "Above average", r.Abilities[0].Label)
	assert.Equal(t, "Average", r.Abilities[2].Label, "falls back to the posterior mean")
}

func TestBuildReport_NoAbilities(t *testing.T) {
	in := newTestInput(t, false)
	in.Abilities, in.Posterior = nil, nil

	r := BuildReport(in)
	assert.Nil(t, r.Abilities)
}

func TestItemFlags(t *testing.T) {
	tests := []struct {
		name    string
		params  models.ItemParams
		correct int
		total   int
		want    []string
	}{
		{"clean", models.ItemParams{Discrimination: 1, Difficulty: 0}, 3, 5, nil},
		{"no responses", models.ItemParams{Discrimination: -1, Difficulty: 9}, 0, 0, []string{FlagNoResponses}},
		{"all incorrect", models.ItemParams{Discrimination: 1, Difficulty: 2}, 0, 4, []string{FlagAllIncorrect}},
		{"all correct past grid edge", models.ItemParams{Discrimination: 2.7, Difficulty: -4.06}, 100, 100, []string{FlagAllCorrect, FlagOutsideGrid}},
		{"all incorrect past grid edge", models.ItemParams{Discrimination: 2.75, Difficulty: 3.99}, 0, 100, []string{FlagAllIncorrect, FlagOutsideGrid}},
		{"negative", models.ItemParams{Discrimination: -0.4, Difficulty: 0}, 2, 4, []string{FlagNegative}},
		{"low and outside", models.ItemParams{Discrimination: 0.1, Difficulty: 3.5}, 1, 4, []string{FlagLowDiscrim, FlagOutsideGrid}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, itemFlags(tt.params, tt.correct, tt.total, 3))
		})
	}
}

func TestFloat_MarshalJSON(t *testing.T) {
	data, err := json.Marshal([]Float{1.25, Float(math.NaN()), Float(math.Inf(1)), Float(math.Inf(-1))})
	require.NoError(t, err)
	assert.JSONEq(t, `[1.25, null, null, null]`, string(data))
}

func TestParseAbilityMode(t *testing.T) {
	tests := []struct {
		in       string
		mle, eap bool
	}{
		{"", true, false},
		{"mle", true, false},
		{"eap", false, true},
		{"both", true, true},
		{"none", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			mle, eap, err := ParseAbilityMode(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.mle, mle)
			assert.Equal(t, tt.eap, eap)
		})
	}

	_, _, err := ParseAbilityMode("all")
	assert.EqualError(t, err, `unknown abilities "all"`)
}
