// Package irt holds the two-parameter logistic response model. Every function
// here is pure: nothing reads or writes estimator state.
package irt

import (
	"math"

	"github.com/spboyer/irtcal/internal/models"
)

// D scales the logistic curve so it tracks the normal ogive.
const D = 1.7

// DefaultProbabilityFloor keeps probabilities away from 0 and 1 before a log.
const DefaultProbabilityFloor = 1e-9

// ProbabilityBase returns P(correct) for an examinee of the given ability on
// an item with the given difficulty and discrimination.
//
//	p = 1 / (1 + exp(-D·a·(θ - b)))
func ProbabilityBase(ability, difficulty, discrimination float64) float64 {
	return 1.0 / (1.0 + math.Exp(-D*discrimination*(ability-difficulty)))
}

// ResponseProbability returns the probability of the observed outcome: p for
// a correct response, 1-p otherwise.
func ResponseProbability(ability float64, item models.ItemParams, correct bool) float64 {
	p := ProbabilityBase(ability, item.Difficulty, item.Discrimination)
	if correct {
		return p
	}
	return 1.0 - p
}

// PatternProbability multiplies ResponseProbability over responses, using
// local independence given ability. It underflows for long patterns; the
// estimator works with PatternLogLikelihood instead.
func PatternProbability(ability float64, m *models.Model, responses []models.Response) float64 {
	prob := 1.0
	for _, r := range responses {
		prob *= ResponseProbability(ability, m.Item(r.Item), r.Correct)
	}
	return prob
}

// Clamp limits p to [floor, 1-floor].
func Clamp(p, floor float64) float64 {
	if p < floor {
		return floor
	}
	if p > 1.0-floor {
		return 1.0 - floor
	}
	return p
}

// LogOutcome is log P(outcome) for a base probability p, clamped first.
func LogOutcome(p float64, correct bool, floor float64) float64 {
	p = Clamp(p, floor)
	if correct {
		return math.Log(p)
	}
	return math.Log(1.0 - p)
}

// PatternLogLikelihood is the log of PatternProbability with clamping.
func PatternLogLikelihood(ability float64, m *models.Model, responses []models.Response, floor float64) float64 {
	ll := 0.0
	for _, r := range responses {
		item := m.Item(r.Item)
		ll += LogOutcome(ProbabilityBase(ability, item.Difficulty, item.Discrimination), r.Correct, floor)
	}
	return ll
}

// ItemInformation is the Fisher information an item carries at ability:
// D²·a²·p·(1-p).
func ItemInformation(ability float64, item models.ItemParams) float64 {
	p := ProbabilityBase(ability, item.Difficulty, item.Discrimination)
	return D * D * item.Discrimination * item.Discrimination * p * (1.0 - p)
}
