package wizard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spboyer/irtcal/internal/projectconfig"
)

func TestAnswersFrom_Defaults(t *testing.T) {
	a := answersFrom(projectconfig.New())

	assert.Equal(t, "100", a.QuadraturePoints)
	assert.Equal(t, "best_confirmed", a.ReturnPolicy)
	assert.Equal(t, "text", a.OutputFormat)
	assert.Equal(t, "mle", a.Abilities)
	assert.False(t, a.Interpret)
}

func TestApply_RoundTripsDefaults(t *testing.T) {
	base := projectconfig.New()
	cfg, err := answersFrom(base).apply(base)
	require.NoError(t, err)

	assert.Equal(t, base.Estimation, cfg.Estimation)
	assert.Equal(t, base.Output.Format, cfg.Output.Format)
	require.NotNil(t, cfg.Output.Interpret)
	assert.False(t, *cfg.Output.Interpret)
}

func TestApply_Overrides(t *testing.T) {
	base := projectconfig.New()
	a := answersFrom(base)
	a.QuadraturePoints = " 41 "
	a.MaxIterations = "250"
	a.Workers = "4"
	a.TimeBudget = "90s"
	a.ReturnPolicy = "last_update"
	a.OutputFormat = "markdown"
	a.Abilities = "both"
	a.Interpret = true

	cfg, err := a.apply(base)
	require.NoError(t, err)

	assert.Equal(t, 41, cfg.Estimation.QuadraturePoints)
	assert.Equal(t, 250, cfg.Estimation.MaxIterations)
	assert.Equal(t, 4, cfg.Estimation.Workers)
	assert.Equal(t, "90s", cfg.Estimation.TimeBudget)
	assert.Equal(t, "last_update", cfg.Estimation.ReturnPolicy)
	assert.Equal(t, "markdown", cfg.Output.Format)
	assert.Equal(t, "both", cfg.Output.Abilities)
	assert.True(t, *cfg.Output.Interpret)

	// base is untouched
	assert.Equal(t, 100, base.Estimation.QuadraturePoints)
	assert.False(t, *base.Output.Interpret)

	ec, err := cfg.EstimatorConfig()
	require.NoError(t, err)
	require.NoError(t, ec.Validate())
}

func TestApply_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Answers)
		errMsg string
	}{
		{"one quadrature point", func(a *Answers) { a.QuadraturePoints = "1" }, "quadrature points: must be at least 2"},
		{"non-numeric iterations", func(a *Answers) { a.MaxIterations = "many" }, `max iterations: "many" is not a whole number`},
		{"zero workers", func(a *Answers) { a.Workers = "0" }, "workers: must be at least 1"},
		{"bad budget", func(a *Answers) { a.TimeBudget = "soon" }, `time budget: "soon" is not a duration`},
		{"negative budget", func(a *Answers) { a.TimeBudget = "-1s" }, "time budget: must not be negative"},
		{"bad policy", func(a *Answers) { a.ReturnPolicy = "first" }, `unknown return policy "first"`},
		{"bad format", func(a *Answers) { a.OutputFormat = "pdf" }, `unknown format "pdf"`},
		{"bad abilities", func(a *Answers) { a.Abilities = "all" }, `unknown abilities "all"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := projectconfig.New()
			a := answersFrom(base)
			tt.mutate(&a)
			_, err := a.apply(base)
			assert.EqualError(t, err, tt.errMsg)
		})
	}
}

func TestValidateDuration(t *testing.T) {
	assert.NoError(t, validateDuration(""))
	assert.NoError(t, validateDuration("  "))
	assert.NoError(t, validateDuration("1m30s"))
	assert.Error(t, validateDuration("10"))
}
