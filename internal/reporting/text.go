package reporting

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
)

// textTable lays out columns by terminal display width.
type textTable struct {
	header []string
	// right marks numeric columns, which are right-aligned.
	right []bool
	rows  [][]string
}

func (t *textTable) add(cells ...string) {
	t.rows = append(t.rows, cells)
}

func (t *textTable) write(w io.Writer) error {
	widths := make([]int, len(t.header))
	for _, row := range append([][]string{t.header}, t.rows...) {
		for i, c := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(c))
		}
	}

	var b strings.Builder
	line := func(cells []string) {
		for i, c := range cells {
			if i > 0 {
				b.WriteString("  ")
			}
			if t.right[i] {
				b.WriteString(padLeft(c, widths[i]))
			} else if i < len(cells)-1 {
				b.WriteString(padRight(c, widths[i]))
			} else {
				b.WriteString(c)
			}
		}
		b.WriteString("\n")
	}
	line(t.header)
	sep := make([]string, len(t.header))
	for i, wd := range widths {
		sep[i] = strings.Repeat("─", wd)
	}
	line(sep)
	for _, row := range t.rows {
		line(row)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// padRight pads s with spaces so its terminal display width reaches width.
func padRight(s string, width int) string {
	sw := runewidth.StringWidth(s)
	if sw >= width {
		return s
	}
	return s + strings.Repeat(" ", width-sw)
}

func padLeft(s string, width int) string {
	sw := runewidth.StringWidth(s)
	if sw >= width {
		return s
	}
	return strings.Repeat(" ", width-sw) + s
}

func writeText(w io.Writer, r *Report) error {
	var b strings.Builder
	if r.Source != "" {
		fmt.Fprintf(&b, "Dataset:        %s\n", r.Source)
	}
	fmt.Fprintf(&b, "Shape:          %s examinees, %s items, %s responses\n", count(r.Examinees), count(r.Items), count(r.Responses))
	fmt.Fprintf(&b, "Status:         %s after %s iterations (%v)\n", r.Fit.Status, count(r.Fit.Iterations),
		(time.Duration(r.Fit.DurationMs) * time.Millisecond).String())
	fmt.Fprintf(&b, "Log-likelihood: %s (marginal %s)\n\n", num(r.Fit.LogLikelihood, 4), num(r.Fit.MarginalLogLikelihood, 4))
	if _, err := io.WriteString(w, b.String()); err != nil {
		return err
	}

	items := &textTable{
		header: []string{"Item", "a", "b", "p", "n"},
		right:  []bool{false, true, true, true, true},
	}
	if r.Interpreted {
		items.header = append(items.header, "Discrimination", "Difficulty")
		items.right = append(items.right, false, false)
	}
	items.header = append(items.header, "Flags")
	items.right = append(items.right, false)
	for _, it := range r.ItemRows {
		cells := []string{it.Name, num(it.Discrimination, 3), num(it.Difficulty, 3), num(it.PValue, 3), count(it.Answered)}
		if r.Interpreted {
			cells = append(cells, it.DiscriminationLabel, it.DifficultyLabel)
		}
		items.add(append(cells, strings.Join(it.Flags, ","))...)
	}
	if err := items.write(w); err != nil {
		return err
	}

	if len(r.Abilities) > 0 {
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
		if err := abilityTable(r).write(w); err != nil {
			return err
		}
	}

	if len(r.Warnings) > 0 {
		var wb strings.Builder
		wb.WriteString("\nWarnings:\n")
		for _, msg := range r.Warnings {
			fmt.Fprintf(&wb, "  ⚠ %s\n", msg)
		}
		if _, err := io.WriteString(w, wb.String()); err != nil {
			return err
		}
	}

	if r.Interpreted {
		if _, err := io.WriteString(w, "\n"+FormatSummaryReport(r)); err != nil {
			return err
		}
	}
	return nil
}

func abilityTable(r *Report) *textTable {
	hasMLE, hasEAP := false, false
	for _, a := range r.Abilities {
		hasMLE = hasMLE || a.MLE != nil
		hasEAP = hasEAP || a.EAP != nil
	}

	t := &textTable{header: []string{"Examinee", "Score"}, right: []bool{false, true}}
	if hasMLE {
		t.header = append(t.header, "Ability", "SE", "Status")
		t.right = append(t.right, true, true, false)
	}
	if hasEAP {
		t.header = append(t.header, "EAP", "PSD")
		t.right = append(t.right, true, true)
	}
	if r.Interpreted {
		t.header = append(t.header, "Level")
		t.right = append(t.right, false)
	}

	for _, a := range r.Abilities {
		cells := []string{a.Name, fmt.Sprintf("%d/%d", a.Score, a.Answered)}
		if hasMLE {
			if a.MLE != nil {
				cells = append(cells, num(a.MLE.Ability, 3), num(a.MLE.StdError, 3), a.MLE.Status)
			} else {
				cells = append(cells, "-", "-", "-")
			}
		}
		if hasEAP {
			if a.EAP != nil {
				cells = append(cells, num(a.EAP.Mean, 3), num(a.EAP.StdDev, 3))
			} else {
				cells = append(cells, "-", "-")
			}
		}
		if r.Interpreted {
			cells = append(cells, a.Label)
		}
		t.add(cells...)
	}
	return t
}
