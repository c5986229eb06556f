// Package quadrature builds the fixed ability grid used to integrate over the
// latent-ability prior.
package quadrature

import (
	"fmt"
	"math"
)

const (
	// DefaultPoints is the number of nodes in the grid.
	DefaultPoints = 100
	// DefaultHalfWidth bounds the grid to [-3, 3].
	DefaultHalfWidth = 3.0
)

var invSqrt2Pi = 1.0 / math.Sqrt(2.0*math.Pi)

// Grid is a set of evenly spaced ability nodes with the standard-normal
// density evaluated at each.
type Grid struct {
	Nodes   []float64
	Weights []float64
}

// New returns points nodes spread evenly over [-halfWidth, halfWidth], in
// ascending order. It is cheap and deterministic, so callers rebuild it
// whenever they need one.
func New(points int, halfWidth float64) (*Grid, error) {
	if points < 2 {
		return nil, fmt.Errorf("quadrature: need at least 2 points, got %d", points)
	}
	if !(halfWidth > 0) || math.IsInf(halfWidth, 0) {
		return nil, fmt.Errorf("quadrature: half-width must be positive and finite, got %v", halfWidth)
	}

	g := &Grid{
		Nodes:   make([]float64, points),
		Weights: make([]float64, points),
	}
	last := float64(points - 1)
	for q := range points {
		// Blend the endpoints so the grid is exactly symmetric around 0.
		x := (-halfWidth*(last-float64(q)) + halfWidth*float64(q)) / last
		g.Nodes[q] = x
		g.Weights[q] = NormalDensity(x)
	}
	return g, nil
}

// Len returns the number of nodes.
func (g *Grid) Len() int {
	return len(g.Nodes)
}

// NormalDensity is the standard-normal pdf exp(-x²/2)/√(2π).
func NormalDensity(x float64) float64 {
	return math.Exp(-0.5*x*x) * invSqrt2Pi
}
