package dataset

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spboyer/irtcal/internal/models"
)

// parseMatrix reads a wide 0/1 matrix with one examinee per line. A line is
// either a run of characters ("1101.0") or fields separated by whitespace or
// commas ("1 1 0 . 1"). '.' marks a missing response; blank lines and lines
// starting with '#' are skipped. Every row must have the same width.
func parseMatrix(r io.Reader) (*Table, error) {
	var (
		responses []models.Response
		width     = -1
		examinee  int
	)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for line := 1; sc.Scan(); line++ {
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		cells := matrixCells(text)
		if width < 0 {
			width = len(cells)
		}
		if len(cells) != width {
			return nil, fmt.Errorf("%w: matrix: line %d has %d items, expected %d", models.ErrInvalidInput, line, len(cells), width)
		}
		for item, cell := range cells {
			correct, ok, err := parseCell(cell)
			if err != nil {
				return nil, fmt.Errorf("%w: matrix: line %d, item %d: %v", models.ErrInvalidInput, line, item, err)
			}
			if ok {
				responses = append(responses, models.Response{Examinee: examinee, Item: item, Correct: correct})
			}
		}
		examinee++
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("matrix: %w", err)
	}

	d, err := models.NewDataset(examinee, max(width, 0), responses)
	if err != nil {
		return nil, fmt.Errorf("matrix: %w", err)
	}
	return &Table{Dataset: d, Format: FormatMatrix}, nil
}

func matrixCells(line string) []string {
	if strings.ContainsAny(line, " \t,") {
		return strings.FieldsFunc(line, func(r rune) bool {
			return r == ' ' || r == '\t' || r == ','
		})
	}
	return strings.Split(line, "")
}
