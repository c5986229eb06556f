package statistics

import (
	"math/rand"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// ConfidenceInterval holds the result of a bootstrap confidence interval computation.
type ConfidenceInterval struct {
	Lower           float64 `json:"lower" yaml:"lower"`
	Upper           float64 `json:"upper" yaml:"upper"`
	Mean            float64 `json:"mean" yaml:"mean"`
	ConfidenceLevel float64 `json:"confidence_level" yaml:"confidence_level"`
	NumBootstraps   int     `json:"num_bootstraps" yaml:"num_bootstraps"`
}

// DefaultBootstrapIterations is the number of bootstrap resamples.
const DefaultBootstrapIterations = 10000

// BootstrapCI computes a percentile bootstrap confidence interval for the mean
// of scores. confidenceLevel should be in (0, 1), e.g. 0.95. Fewer than 2
// data points give a degenerate interval at the mean.
func BootstrapCI(scores []float64, confidenceLevel float64) ConfidenceInterval {
	return BootstrapCIWithSeed(scores, confidenceLevel, -1)
}

// BootstrapCIWithSeed is like BootstrapCI but accepts a seed for reproducibility.
// A negative seed uses a non-deterministic source.
func BootstrapCIWithSeed(scores []float64, confidenceLevel float64, seed int64) ConfidenceInterval {
	n := len(scores)
	if n < 2 {
		m := 0.0
		if n == 1 {
			m = scores[0]
		}
		return ConfidenceInterval{Lower: m, Upper: m, Mean: m, ConfidenceLevel: confidenceLevel}
	}

	if seed < 0 {
		seed = rand.Int63()
	}
	rng := rand.New(rand.NewSource(seed))

	iters := DefaultBootstrapIterations
	bootMeans := make([]float64, iters)
	sample := make([]float64, n)
	for i := range bootMeans {
		for j := range sample {
			sample[j] = scores[rng.Intn(n)]
		}
		bootMeans[i] = stat.Mean(sample, nil)
	}
	slices.Sort(bootMeans)

	alpha := 1 - confidenceLevel
	return ConfidenceInterval{
		Lower:           stat.Quantile(alpha/2, stat.Empirical, bootMeans, nil),
		Upper:           stat.Quantile(1-alpha/2, stat.Empirical, bootMeans, nil),
		Mean:            stat.Mean(scores, nil),
		ConfidenceLevel: confidenceLevel,
		NumBootstraps:   iters,
	}
}
