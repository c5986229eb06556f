package reporting

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

func markdownReport(r *Report) string {
	var b strings.Builder
	b.WriteString("# Calibration report\n\n")
	if r.Source != "" {
		fmt.Fprintf(&b, "- **Dataset:** `%s`\n", r.Source)
	}
	fmt.Fprintf(&b, "- **Shape:** %s examinees, %s items, %s responses\n", count(r.Examinees), count(r.Items), count(r.Responses))
	fmt.Fprintf(&b, "- **Status:** %s after %s iterations\n", r.Fit.Status, count(r.Fit.Iterations))
	fmt.Fprintf(&b, "- **Log-likelihood:** %s (marginal %s)\n", num(r.Fit.LogLikelihood, 4), num(r.Fit.MarginalLogLikelihood, 4))
	fmt.Fprintf(&b, "- **Grid:** %d nodes on [-%g, %g], return policy `%s`\n\n",
		r.Settings.QuadraturePoints, r.Settings.HalfWidth, r.Settings.HalfWidth, r.Settings.ReturnPolicy)

	b.WriteString("## Items\n\n")
	header := []string{"Item", "a", "b", "p", "n"}
	if r.Interpreted {
		header = append(header, "Discrimination", "Difficulty")
	}
	header = append(header, "Flags")
	mdRow(&b, header)
	mdRule(&b, len(header))
	for _, it := range r.ItemRows {
		cells := []string{mdEscape(it.Name), num(it.Discrimination, 3), num(it.Difficulty, 3), num(it.PValue, 3), count(it.Answered)}
		if r.Interpreted {
			cells = append(cells, it.DiscriminationLabel, it.DifficultyLabel)
		}
		mdRow(&b, append(cells, strings.Join(it.Flags, ", ")))
	}

	if len(r.Abilities) > 0 {
		b.WriteString("\n## Abilities\n\n")
		t := abilityTable(r)
		mdRow(&b, t.header)
		mdRule(&b, len(t.header))
		for _, row := range t.rows {
			row[0] = mdEscape(row[0])
			mdRow(&b, row)
		}
	}

	if len(r.Warnings) > 0 {
		b.WriteString("\n## Warnings\n\n")
		for _, w := range r.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}

	if r.Interpreted {
		b.WriteString("\n## Interpretation\n\n")
		fmt.Fprintf(&b, "%s\n\n", InterpretFit(r.Fit))
		for _, it := range r.ItemRows {
			if len(it.Flags) > 0 {
				fmt.Fprintf(&b, "- **%s:** %s\n", mdEscape(it.Name), InterpretFlags(it.Flags))
			}
		}
	}
	return b.String()
}

func markdownDescribe(r *DescribeReport) string {
	var b strings.Builder
	b.WriteString("# Dataset description\n\n")
	if r.Source != "" {
		fmt.Fprintf(&b, "- **Dataset:** `%s`\n", r.Source)
	}
	fmt.Fprintf(&b, "- **Shape:** %s examinees, %s items, %s responses (density %s)\n",
		count(r.Examinees), count(r.Items), count(r.Responses), num(r.Density, 3))
	fmt.Fprintf(&b, "- **Mean score:** %s (sd %s, CI %s to %s)\n",
		num(r.MeanScore, 3), num(r.SDScore, 3), num(Float(r.ScoreCI.Lower), 3), num(Float(r.ScoreCI.Upper), 3))
	fmt.Fprintf(&b, "- **Cronbach's alpha:** %s over %s complete cases", num(r.Alpha, 3), count(r.CompleteCases))
	if r.AlphaLabel != "" {
		fmt.Fprintf(&b, " (%s)", r.AlphaLabel)
	}
	b.WriteString("\n\n## Items\n\n")

	header := []string{"Item", "n", "p", "r_pbis", "alpha-if-deleted"}
	mdRow(&b, header)
	mdRule(&b, len(header))
	for _, it := range r.ItemStats {
		mdRow(&b, []string{mdEscape(it.Name), count(it.Answered), num(it.PValue, 3), num(it.PointBiserial, 3), num(it.AlphaIfDeleted, 3)})
	}
	return b.String()
}

func mdRow(b *strings.Builder, cells []string) {
	b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
}

func mdRule(b *strings.Builder, n int) {
	b.WriteString("|" + strings.Repeat(" --- |", n) + "\n")
}

func mdEscape(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// writeHTML renders markdown into a standalone HTML page.
func writeHTML(w io.Writer, title, markdown string) error {
	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	var body bytes.Buffer
	if err := md.Convert([]byte(markdown), &body); err != nil {
		return fmt.Errorf("rendering html report: %w", err)
	}
	_, err := fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { font-family: system-ui, sans-serif; margin: 2rem auto; max-width: 60rem; }
table { border-collapse: collapse; }
th, td { border: 1px solid #ccc; padding: 0.25rem 0.6rem; text-align: right; }
th:first-child, td:first-child { text-align: left; }
</style>
</head>
<body>
%s</body>
</html>
`, html.EscapeString(title), body.String())
	return err
}
