// Package reporting turns a calibration run into text, markdown, HTML,
// JSON, YAML or JUnit reports.
package reporting

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/spboyer/irtcal/internal/dataset"
	"github.com/spboyer/irtcal/internal/estimation"
	"github.com/spboyer/irtcal/internal/models"
)

// Float is a float64 that encodes NaN and ±Inf as JSON null.
type Float float64

// MarshalJSON implements json.Marshaler.
func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

// Item flags.
const (
	FlagNoResponses  = "no_responses"
	FlagAllCorrect   = "all_correct"
	FlagAllIncorrect = "all_incorrect"
	FlagNegative     = "negative_discrimination"
	FlagLowDiscrim   = "low_discrimination"
	FlagOutsideGrid  = "difficulty_outside_grid"
)

// lowDiscrimination is the upper edge of Baker's "very low" band.
const lowDiscrimination = 0.35

// FitSummary describes how estimation ended.
type FitSummary struct {
	Status        string `json:"status" yaml:"status"`
	Converged     bool   `json:"converged" yaml:"converged"`
	Iterations    int    `json:"iterations" yaml:"iterations"`
	LogLikelihood Float  `json:"log_likelihood" yaml:"log_likelihood"`
	// MarginalLogLikelihood is taken from the last iteration.
	MarginalLogLikelihood Float `json:"marginal_log_likelihood" yaml:"marginal_log_likelihood"`
	DurationMs            int64 `json:"duration_ms" yaml:"duration_ms"`
}

// Settings echoes the estimator configuration that produced the report.
type Settings struct {
	QuadraturePoints     int     `json:"quadrature_points" yaml:"quadrature_points"`
	HalfWidth            float64 `json:"half_width" yaml:"half_width"`
	LearningRate         float64 `json:"learning_rate" yaml:"learning_rate"`
	ConvergenceTolerance float64 `json:"convergence_tolerance" yaml:"convergence_tolerance"`
	MaxIterations        int     `json:"max_iterations" yaml:"max_iterations"`
	MaxAbility           float64 `json:"max_ability" yaml:"max_ability"`
	ReturnPolicy         string  `json:"return_policy" yaml:"return_policy"`
	Workers              int     `json:"workers" yaml:"workers"`
}

// ItemRow is one calibrated item.
type ItemRow struct {
	Item                int      `json:"item" yaml:"item"`
	Name                string   `json:"name" yaml:"name"`
	Discrimination      Float    `json:"discrimination" yaml:"discrimination"`
	Difficulty          Float    `json:"difficulty" yaml:"difficulty"`
	Answered            int      `json:"answered" yaml:"answered"`
	Correct             int      `json:"correct" yaml:"correct"`
	PValue              Float    `json:"p_value" yaml:"p_value"`
	Flags               []string `json:"flags,omitempty" yaml:"flags,omitempty"`
	DiscriminationLabel string   `json:"discrimination_label,omitempty" yaml:"discrimination_label,omitempty"`
	DifficultyLabel     string   `json:"difficulty_label,omitempty" yaml:"difficulty_label,omitempty"`
}

// MLEAbility is the maximum-likelihood ability of one examinee.
type MLEAbility struct {
	Ability  Float  `json:"ability" yaml:"ability"`
	StdError Float  `json:"std_error" yaml:"std_error"`
	Status   string `json:"status" yaml:"status"`
	Steps    int    `json:"steps" yaml:"steps"`
}

// EAPAbility is the posterior mean and deviation of one examinee.
type EAPAbility struct {
	Mean   Float `json:"mean" yaml:"mean"`
	StdDev Float `json:"std_dev" yaml:"std_dev"`
}

// AbilityRow is one examinee.
type AbilityRow struct {
	Examinee int         `json:"examinee" yaml:"examinee"`
	Name     string      `json:"name" yaml:"name"`
	Score    int         `json:"score" yaml:"score"`
	Answered int         `json:"answered" yaml:"answered"`
	MLE      *MLEAbility `json:"mle,omitempty" yaml:"mle,omitempty"`
	EAP      *EAPAbility `json:"eap,omitempty" yaml:"eap,omitempty"`
	Label    string      `json:"label,omitempty" yaml:"label,omitempty"`
}

// Report is everything a fit produces, ready for any writer.
type Report struct {
	Source    string                    `json:"source,omitempty" yaml:"source,omitempty"`
	Examinees int                       `json:"examinees" yaml:"examinees"`
	Items     int                       `json:"items" yaml:"items"`
	Responses int                       `json:"responses" yaml:"responses"`
	Fit       FitSummary                `json:"fit" yaml:"fit"`
	Settings  Settings                  `json:"settings" yaml:"settings"`
	ItemRows  []ItemRow                 `json:"item_params" yaml:"item_params"`
	Abilities []AbilityRow              `json:"abilities,omitempty" yaml:"abilities,omitempty"`
	Warnings  []string                  `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	History   []models.IterationSummary `json:"history,omitempty" yaml:"history,omitempty"`
	// Interpreted is set when labels were filled in.
	Interpreted bool `json:"interpreted" yaml:"interpreted"`
}

// Input gathers what BuildReport needs. Abilities and Posterior may be nil.
type Input struct {
	Table     *dataset.Table
	Config    estimation.Config
	Fit       *models.FitResult
	Abilities []models.AbilityEstimate
	Posterior []models.PosteriorEstimate
	Interpret bool
}

// BuildReport assembles a Report from a finished fit.
func BuildReport(in Input) *Report {
	d := in.Table.Dataset
	r := &Report{
		Source:    in.Table.Source,
		Examinees: d.Examinees,
		Items:     d.Items,
		Responses: len(d.Responses),
		Fit: FitSummary{
			Status:        string(in.Fit.Status),
			Converged:     in.Fit.Status.Converged(),
			Iterations:    in.Fit.Iterations,
			LogLikelihood: Float(in.Fit.LogLikelihood),
			DurationMs:    in.Fit.Duration.Milliseconds(),
		},
		Settings: Settings{
			QuadraturePoints:     in.Config.QuadraturePoints,
			HalfWidth:            in.Config.HalfWidth,
			LearningRate:         in.Config.LearningRate,
			ConvergenceTolerance: in.Config.ConvergenceTolerance,
			MaxIterations:        in.Config.MaxIterations,
			MaxAbility:           in.Config.MaxAbsAbility,
			ReturnPolicy:         string(in.Config.ReturnPolicy),
			Workers:              in.Config.Workers,
		},
		Warnings:    in.Fit.Warnings,
		History:     in.Fit.History,
		Interpreted: in.Interpret,
	}
	if n := len(in.Fit.History); n > 0 {
		r.Fit.MarginalLogLikelihood = Float(in.Fit.History[n-1].MarginalLogLikelihood)
	}

	correct, total := d.ItemCounts()
	for j := range d.Items {
		p := in.Fit.Model.Item(j)
		row := ItemRow{
			Item:           j,
			Name:           in.Table.ItemName(j),
			Discrimination: Float(p.Discrimination),
			Difficulty:     Float(p.Difficulty),
			Answered:       total[j],
			Correct:        correct[j],
			PValue:         Float(math.NaN()),
			Flags:          itemFlags(p, correct[j], total[j], in.Config.HalfWidth),
		}
		if total[j] > 0 {
			row.PValue = Float(float64(correct[j]) / float64(total[j]))
		}
		if in.Interpret {
			row.DiscriminationLabel = InterpretDiscrimination(p.Discrimination)
			row.DifficultyLabel = InterpretDifficulty(p.Difficulty)
		}
		r.ItemRows = append(r.ItemRows, row)
	}

	if in.Abilities != nil || in.Posterior != nil {
		scores, answered := d.RawScores()
		r.Abilities = make([]AbilityRow, d.Examinees)
		for i := range r.Abilities {
			r.Abilities[i] = AbilityRow{
				Examinee: i,
				Name:     in.Table.ExamineeName(i),
				Score:    scores[i],
				Answered: answered[i],
			}
		}
		for _, a := range in.Abilities {
			r.Abilities[a.Examinee].MLE = &MLEAbility{
				Ability:  Float(a.Ability),
				StdError: Float(a.StdError),
				Status:   string(a.Status),
				Steps:    a.Steps,
			}
			if in.Interpret && a.Status != models.AbilityNoResponses {
				r.Abilities[a.Examinee].Label = InterpretAbility(a.Ability)
			}
		}
		for _, p := range in.Posterior {
			r.Abilities[p.Examinee].EAP = &EAPAbility{Mean: Float(p.Mean), StdDev: Float(p.StdDev)}
			if in.Interpret && r.Abilities[p.Examinee].Label == "" {
				r.Abilities[p.Examinee].Label = InterpretAbility(p.Mean)
			}
		}
	}
	return r
}

// itemFlags lists the quality problems of one calibrated item.
func itemFlags(p models.ItemParams, correct, total int, halfWidth float64) []string {
	var flags []string
	switch {
	case total == 0:
		return []string{FlagNoResponses}
	case correct == total:
		flags = append(flags, FlagAllCorrect)
	case correct == 0:
		flags = append(flags, FlagAllIncorrect)
	}
	switch {
	case p.Discrimination < 0:
		flags = append(flags, FlagNegative)
	case p.Discrimination < lowDiscrimination:
		flags = append(flags, FlagLowDiscrim)
	}
	if math.Abs(p.Difficulty) > halfWidth {
		flags = append(flags, FlagOutsideGrid)
	}
	return flags
}

// ParseAbilityMode checks an abilities selector: mle, eap, both or none.
func ParseAbilityMode(s string) (mle, eap bool, err error) {
	switch s {
	case "", "mle":
		return true, false, nil
	case "eap":
		return false, true, nil
	case "both":
		return true, true, nil
	case "none":
		return false, false, nil
	}
	return false, false, &UnknownOptionError{Kind: "abilities", Value: s}
}

// UnknownOptionError reports an unrecognized format or selector.
type UnknownOptionError struct {
	Kind  string
	Value string
}

func (e *UnknownOptionError) Error() string {
	return fmt.Sprintf("unknown %s %q", e.Kind, e.Value)
}
