// Package statistics computes classical test theory summaries of a response
// dataset: item difficulty (p-values), item-rest correlations, Cronbach's
// alpha and a bootstrap interval for the mean score.
package statistics

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/spboyer/irtcal/internal/models"
)

// ItemStats describes one item. PointBiserial and AlphaIfDeleted are NaN
// when they are undefined (no variance, or too few complete cases).
type ItemStats struct {
	Item     int `json:"item" yaml:"item"`
	Answered int `json:"answered" yaml:"answered"`
	Correct  int `json:"correct" yaml:"correct"`
	// PValue is the proportion correct among examinees who answered.
	PValue float64 `json:"p_value" yaml:"p_value"`
	// PointBiserial correlates the item with the rest score (the total
	// without this item) over examinees who answered it.
	PointBiserial  float64 `json:"point_biserial" yaml:"point_biserial"`
	AlphaIfDeleted float64 `json:"alpha_if_deleted" yaml:"alpha_if_deleted"`
}

// Summary is the classical description of a dataset.
type Summary struct {
	Examinees int `json:"examinees" yaml:"examinees"`
	Items     int `json:"items" yaml:"items"`
	Responses int `json:"responses" yaml:"responses"`
	// Density is Responses / (Examinees * Items).
	Density float64 `json:"density" yaml:"density"`
	// CompleteCases counts examinees who answered every item; Alpha uses
	// only them.
	CompleteCases int     `json:"complete_cases" yaml:"complete_cases"`
	Alpha         float64 `json:"alpha" yaml:"alpha"`
	// Score statistics are over proportion-correct scores of examinees
	// with at least one response.
	MeanScore float64            `json:"mean_score" yaml:"mean_score"`
	SDScore   float64            `json:"sd_score" yaml:"sd_score"`
	ScoreCI   ConfidenceInterval `json:"score_ci" yaml:"score_ci"`
	ItemStats []ItemStats        `json:"item_stats" yaml:"item_stats"`
}

// Options tunes Describe.
type Options struct {
	ConfidenceLevel float64
	// Seed for the bootstrap; negative is non-deterministic.
	Seed int64
}

// DefaultOptions gives a 95% interval with a random seed.
func DefaultOptions() Options {
	return Options{ConfidenceLevel: 0.95, Seed: -1}
}

// Describe computes the classical summary of d.
func Describe(d *models.Dataset, opts Options) Summary {
	s := Summary{
		Examinees: d.Examinees,
		Items:     d.Items,
		Responses: len(d.Responses),
		Alpha:     math.NaN(),
		ItemStats: make([]ItemStats, d.Items),
	}
	if d.Examinees > 0 && d.Items > 0 {
		s.Density = float64(s.Responses) / (float64(d.Examinees) * float64(d.Items))
	}

	// answers[i][j] is 1/0, or -1 when examinee i skipped item j.
	answers := make([][]int8, d.Examinees)
	for i := range answers {
		answers[i] = make([]int8, d.Items)
		for j := range answers[i] {
			answers[i][j] = -1
		}
	}
	for _, r := range d.Responses {
		answers[r.Examinee][r.Item] = int8(r.Outcome())
	}
	correct, answered := d.RawScores()

	var scores []float64
	for i := range answers {
		if answered[i] > 0 {
			scores = append(scores, float64(correct[i])/float64(answered[i]))
		}
	}
	if len(scores) > 0 {
		s.MeanScore, s.SDScore = stat.MeanStdDev(scores, nil)
		if len(scores) < 2 {
			s.SDScore = 0
		}
	}
	s.ScoreCI = BootstrapCIWithSeed(scores, opts.ConfidenceLevel, opts.Seed)

	itemCorrect, itemTotal := d.ItemCounts()
	for j := range s.ItemStats {
		st := ItemStats{
			Item:          j,
			Answered:      itemTotal[j],
			Correct:       itemCorrect[j],
			PValue:        math.NaN(),
			PointBiserial: math.NaN(),
		}
		if itemTotal[j] > 0 {
			st.PValue = float64(itemCorrect[j]) / float64(itemTotal[j])
		}
		var x, rest []float64
		for i, row := range answers {
			if row[j] < 0 {
				continue
			}
			x = append(x, float64(row[j]))
			rest = append(rest, float64(correct[i]-int(row[j])))
		}
		if len(x) >= 2 {
			st.PointBiserial = stat.Correlation(x, rest, nil)
		}
		s.ItemStats[j] = st
	}

	var complete [][]int8
	for _, row := range answers {
		if !containsMissing(row) {
			complete = append(complete, row)
		}
	}
	s.CompleteCases = len(complete)
	s.Alpha = cronbachAlpha(complete, -1)
	for j := range s.ItemStats {
		s.ItemStats[j].AlphaIfDeleted = cronbachAlpha(complete, j)
	}
	return s
}

// cronbachAlpha computes alpha over complete rows, leaving out column skip
// (-1 keeps all columns). It is NaN with fewer than 2 items or rows, or when
// total scores do not vary.
func cronbachAlpha(rows [][]int8, skip int) float64 {
	if len(rows) < 2 {
		return math.NaN()
	}
	k := len(rows[0])
	if skip >= 0 {
		k--
	}
	if k < 2 {
		return math.NaN()
	}

	col := make([]float64, len(rows))
	totals := make([]float64, len(rows))
	itemVar := 0.0
	for j := range rows[0] {
		if j == skip {
			continue
		}
		for i, row := range rows {
			col[i] = float64(row[j])
			totals[i] += col[i]
		}
		itemVar += stat.Variance(col, nil)
	}
	totalVar := stat.Variance(totals, nil)
	if totalVar == 0 {
		return math.NaN()
	}
	return float64(k) / float64(k-1) * (1 - itemVar/totalVar)
}

func containsMissing(row []int8) bool {
	for _, v := range row {
		if v < 0 {
			return true
		}
	}
	return false
}
