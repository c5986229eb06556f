package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/go-viper/mapstructure/v2"

	"github.com/spboyer/irtcal/internal/models"
)

// Row represents a single CSV row with column name to value mapping.
type Row map[string]string

// responseColumns are accepted names for the outcome column of a long CSV.
var responseColumns = []string{"correct", "response", "outcome", "score"}

// examineeLabelColumns mark the first column of a wide CSV as a row label.
var examineeLabelColumns = []string{"examinee", "id", "examinee_id", "name"}

// ReadCSV reads CSV from r. The first row is the header; names are trimmed
// and lower-cased. Rows are returned in file order.
func ReadCSV(r io.Reader) (headers []string, rows []Row, err error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.Comment = '#'
	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: csv: %v", models.ErrInvalidInput, err)
	}

	if len(records) == 0 {
		return nil, nil, fmt.Errorf("%w: csv: empty (no header row)", models.ErrInvalidInput)
	}

	headers = make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = strings.ToLower(strings.TrimSpace(h))
	}
	rows = make([]Row, 0, len(records)-1)

	for _, record := range records[1:] {
		row := make(Row, len(headers))
		for j, h := range headers {
			row[h] = strings.TrimSpace(record[j])
		}
		rows = append(rows, row)
	}

	return headers, rows, nil
}

// parseCSV reads a long (examinee,item,response) or wide (one column per item)
// CSV, deciding by the header.
func parseCSV(r io.Reader) (*Table, error) {
	headers, rows, err := ReadCSV(r)
	if err != nil {
		return nil, err
	}
	if col, ok := longResponseColumn(headers); ok {
		return parseLong(rows, col)
	}
	return parseWide(headers, rows)
}

func longResponseColumn(headers []string) (string, bool) {
	if !slices.Contains(headers, "examinee") || !slices.Contains(headers, "item") {
		return "", false
	}
	for _, c := range responseColumns {
		if slices.Contains(headers, c) {
			return c, true
		}
	}
	return "", false
}

// parseLong decodes each row into a models.Response. Counts are one past the
// largest index seen. Rows with a blank or "." outcome are missing data.
func parseLong(rows []Row, responseCol string) (*Table, error) {
	responses := make([]models.Response, 0, len(rows))
	examinees, items := 0, 0
	for i, row := range rows {
		outcome := row[responseCol]
		if outcome == "" || outcome == "." {
			continue
		}

		var resp models.Response
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			ErrorUnused:      true,
			Result:           &resp,
		})
		if err != nil {
			return nil, fmt.Errorf("csv: %w", err)
		}
		input := map[string]any{
			"examinee": row["examinee"],
			"item":     row["item"],
			"correct":  outcome,
		}
		if err := dec.Decode(input); err != nil {
			return nil, fmt.Errorf("%w: csv: row %d: %v", models.ErrInvalidInput, i+2, err)
		}
		examinees = max(examinees, resp.Examinee+1)
		items = max(items, resp.Item+1)
		responses = append(responses, resp)
	}

	d, err := models.NewDataset(examinees, items, responses)
	if err != nil {
		return nil, fmt.Errorf("csv: %w", err)
	}
	return &Table{Dataset: d, Format: FormatCSV}, nil
}

// parseWide reads one row per examinee and one column per item. An optional
// leading label column names the examinees.
func parseWide(headers []string, rows []Row) (*Table, error) {
	itemCols := headers
	var labelCol string
	if len(headers) > 0 && slices.Contains(examineeLabelColumns, headers[0]) {
		labelCol, itemCols = headers[0], headers[1:]
	}
	if len(itemCols) == 0 {
		return nil, fmt.Errorf("%w: csv: no item columns", models.ErrInvalidInput)
	}

	t := &Table{Format: FormatCSV, ItemNames: slices.Clone(itemCols)}
	var responses []models.Response
	for i, row := range rows {
		if labelCol != "" {
			t.ExamineeNames = append(t.ExamineeNames, row[labelCol])
		}
		for j, col := range itemCols {
			correct, ok, err := parseCell(row[col])
			if err != nil {
				return nil, fmt.Errorf("%w: csv: row %d, column %q: %v", models.ErrInvalidInput, i+2, col, err)
			}
			if ok {
				responses = append(responses, models.Response{Examinee: i, Item: j, Correct: correct})
			}
		}
	}

	d, err := models.NewDataset(len(rows), len(itemCols), responses)
	if err != nil {
		return nil, fmt.Errorf("csv: %w", err)
	}
	t.Dataset = d
	return t, nil
}

// parseCell reads one matrix cell: "1" or "0", or blank/"." for missing.
func parseCell(s string) (correct, ok bool, err error) {
	switch s {
	case "1":
		return true, true, nil
	case "0":
		return false, true, nil
	case "", ".":
		return false, false, nil
	}
	return false, false, fmt.Errorf("cell %q is not 0, 1 or missing", s)
}
