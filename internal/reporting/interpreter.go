package reporting

import (
	"fmt"
	"math"
	"strings"
)

// InterpretDiscrimination labels a discrimination parameter using Baker's
// verbal bands.
func InterpretDiscrimination(a float64) string {
	switch {
	case math.IsNaN(a):
		return "Undefined"
	case math.IsInf(a, 1):
		return "Perfect"
	case a < 0:
		return "Negative (reverses ability order)"
	case a < 0.01:
		return "None"
	case a < 0.35:
		return "Very low"
	case a < 0.65:
		return "Low"
	case a < 1.35:
		return "Moderate"
	case a < 1.70:
		return "High"
	default:
		return "Very high"
	}
}

// InterpretDifficulty labels a difficulty parameter on the ability scale.
func InterpretDifficulty(b float64) string {
	switch {
	case math.IsNaN(b):
		return "Undefined"
	case b < -2:
		return "Very easy"
	case b < -0.5:
		return "Easy"
	case b <= 0.5:
		return "Medium"
	case b <= 2:
		return "Hard"
	default:
		return "Very hard"
	}
}

// InterpretAbility labels an ability estimate relative to the N(0,1) prior.
func InterpretAbility(theta float64) string {
	switch {
	case math.IsNaN(theta):
		return "Undefined"
	case theta < -2:
		return "Well below average"
	case theta < -1:
		return "Below average"
	case theta <= 1:
		return "Average"
	case theta <= 2:
		return "Above average"
	default:
		return "Well above average"
	}
}

// InterpretFit explains how estimation ended.
func InterpretFit(f FitSummary) string {
	switch f.Status {
	case "converged":
		return fmt.Sprintf("Converged after %d iterations.", f.Iterations)
	case "max_iterations":
		return fmt.Sprintf("Stopped at the iteration cap (%d iterations) before converging. Parameters are the best found so far; consider raising max iterations.", f.Iterations)
	case "time_budget":
		return fmt.Sprintf("Stopped when the time budget ran out after %d iterations. Parameters are the best found so far.", f.Iterations)
	}
	return fmt.Sprintf("Stopped with status %q after %d iterations.", f.Status, f.Iterations)
}

var flagExplanations = map[string]string{
	FlagNoResponses:  "nobody answered it",
	FlagAllCorrect:   "everyone answered it correctly",
	FlagAllIncorrect: "nobody answered it correctly",
	FlagNegative:     "higher ability predicts a wrong answer",
	FlagLowDiscrim:   "it barely separates examinees",
	FlagOutsideGrid:  "its difficulty lies outside the ability grid",
}

// InterpretFlags turns item flags into one sentence.
func InterpretFlags(flags []string) string {
	if len(flags) == 0 {
		return "No problems found."
	}
	parts := make([]string, len(flags))
	for i, f := range flags {
		if e, ok := flagExplanations[f]; ok {
			parts[i] = e
		} else {
			parts[i] = f
		}
	}
	return "Review: " + strings.Join(parts, "; ") + "."
}

// FormatSummaryReport produces a plain-language reading of a Report.
func FormatSummaryReport(r *Report) string {
	var b strings.Builder

	b.WriteString("=== Interpretation ===\n\n")
	fmt.Fprintf(&b, "Estimation: %s\n", InterpretFit(r.Fit))

	flagged := 0
	for _, it := range r.ItemRows {
		if len(it.Flags) > 0 {
			flagged++
		}
	}
	fmt.Fprintf(&b, "Items:      %d calibrated, %d flagged for review\n", len(r.ItemRows), flagged)

	if len(r.ItemRows) > 0 {
		b.WriteString("\nPer-Item Interpretation:\n")
		for _, it := range r.ItemRows {
			icon := "✓"
			if len(it.Flags) > 0 {
				icon = "✗"
			}
			fmt.Fprintf(&b, "  %s %s: %s discrimination, %s\n", icon, it.Name,
				strings.ToLower(InterpretDiscrimination(float64(it.Discrimination))),
				strings.ToLower(InterpretDifficulty(float64(it.Difficulty))))
			if len(it.Flags) > 0 {
				fmt.Fprintf(&b, "    %s\n", InterpretFlags(it.Flags))
			}
		}
	}

	return b.String()
}
