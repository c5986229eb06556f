package reporting

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/spboyer/irtcal/internal/dataset"
	"github.com/spboyer/irtcal/internal/statistics"
)

// DescribeItem is one item's classical statistics.
type DescribeItem struct {
	Item           int    `json:"item" yaml:"item"`
	Name           string `json:"name" yaml:"name"`
	Answered       int    `json:"answered" yaml:"answered"`
	Correct        int    `json:"correct" yaml:"correct"`
	PValue         Float  `json:"p_value" yaml:"p_value"`
	PointBiserial  Float  `json:"point_biserial" yaml:"point_biserial"`
	AlphaIfDeleted Float  `json:"alpha_if_deleted" yaml:"alpha_if_deleted"`
}

// DescribeReport is the classical description of a dataset.
type DescribeReport struct {
	Source        string                        `json:"source,omitempty" yaml:"source,omitempty"`
	Examinees     int                           `json:"examinees" yaml:"examinees"`
	Items         int                           `json:"items" yaml:"items"`
	Responses     int                           `json:"responses" yaml:"responses"`
	Density       Float                         `json:"density" yaml:"density"`
	CompleteCases int                           `json:"complete_cases" yaml:"complete_cases"`
	Alpha         Float                         `json:"alpha" yaml:"alpha"`
	AlphaLabel    string                        `json:"alpha_label,omitempty" yaml:"alpha_label,omitempty"`
	MeanScore     Float                         `json:"mean_score" yaml:"mean_score"`
	SDScore       Float                         `json:"sd_score" yaml:"sd_score"`
	ScoreCI       statistics.ConfidenceInterval `json:"score_ci" yaml:"score_ci"`
	ItemStats     []DescribeItem                `json:"item_stats" yaml:"item_stats"`
}

// BuildDescribeReport labels a statistics.Summary with the table's names.
func BuildDescribeReport(t *dataset.Table, s statistics.Summary, interpret bool) *DescribeReport {
	r := &DescribeReport{
		Source:        t.Source,
		Examinees:     s.Examinees,
		Items:         s.Items,
		Responses:     s.Responses,
		Density:       Float(s.Density),
		CompleteCases: s.CompleteCases,
		Alpha:         Float(s.Alpha),
		MeanScore:     Float(s.MeanScore),
		SDScore:       Float(s.SDScore),
		ScoreCI:       s.ScoreCI,
	}
	if interpret {
		r.AlphaLabel = InterpretReliability(s.Alpha)
	}
	for _, it := range s.ItemStats {
		r.ItemStats = append(r.ItemStats, DescribeItem{
			Item:           it.Item,
			Name:           t.ItemName(it.Item),
			Answered:       it.Answered,
			Correct:        it.Correct,
			PValue:         Float(it.PValue),
			PointBiserial:  Float(it.PointBiserial),
			AlphaIfDeleted: Float(it.AlphaIfDeleted),
		})
	}
	return r
}

// InterpretReliability labels Cronbach's alpha with George and Mallery's
// rule of thumb.
func InterpretReliability(alpha float64) string {
	switch {
	case math.IsNaN(alpha):
		return "Undefined"
	case alpha >= 0.9:
		return "Excellent"
	case alpha >= 0.8:
		return "Good"
	case alpha >= 0.7:
		return "Acceptable"
	case alpha >= 0.6:
		return "Questionable"
	case alpha >= 0.5:
		return "Poor"
	default:
		return "Unacceptable"
	}
}

func writeDescribeText(w io.Writer, r *DescribeReport) error {
	var b strings.Builder
	if r.Source != "" {
		fmt.Fprintf(&b, "Dataset:      %s\n", r.Source)
	}
	fmt.Fprintf(&b, "Shape:        %s examinees, %s items, %s responses (density %s)\n",
		count(r.Examinees), count(r.Items), count(r.Responses), num(r.Density, 3))
	fmt.Fprintf(&b, "Mean score:   %s (sd %s, %.0f%% CI %s to %s)\n",
		num(r.MeanScore, 3), num(r.SDScore, 3), r.ScoreCI.ConfidenceLevel*100,
		num(Float(r.ScoreCI.Lower), 3), num(Float(r.ScoreCI.Upper), 3))
	fmt.Fprintf(&b, "Alpha:        %s over %s complete cases", num(r.Alpha, 3), count(r.CompleteCases))
	if r.AlphaLabel != "" {
		fmt.Fprintf(&b, " (%s)", r.AlphaLabel)
	}
	b.WriteString("\n\n")
	if _, err := io.WriteString(w, b.String()); err != nil {
		return err
	}

	t := &textTable{
		header: []string{"Item", "n", "p", "r_pbis", "alpha-if-deleted"},
		right:  []bool{false, true, true, true, true},
	}
	for _, it := range r.ItemStats {
		t.add(it.Name, count(it.Answered), num(it.PValue, 3), num(it.PointBiserial, 3), num(it.AlphaIfDeleted, 3))
	}
	return t.write(w)
}
