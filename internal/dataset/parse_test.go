package dataset

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spboyer/irtcal/internal/models"
)

func TestParseTriples(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantResp  int
		wantShape [2]int
		wantErr   string
	}{
		{
			name:      "single line",
			input:     "2 2 1 0 0 1 1 0 0",
			wantResp:  2,
			wantShape: [2]int{2, 1},
		},
		{
			name:      "comments and newlines",
			input:     "# header\n1 1 1 # one response\n0 0 1\n",
			wantResp:  1,
			wantShape: [2]int{1, 1},
		},
		{
			name:      "zero responses",
			input:     "0 3 2",
			wantShape: [2]int{3, 2},
		},
		{
			name:    "truncated",
			input:   "2 2 2 0 0 1 1 1",
			wantErr: "unexpected end of input reading outcome of response 1",
		},
		{
			name:    "trailing data",
			input:   "1 1 1 0 0 1 7",
			wantErr: "unexpected \"7\" after 1 responses",
		},
		{
			name:    "bad outcome",
			input:   "1 1 1 0 0 2",
			wantErr: "outcome 2 is not 0 or 1",
		},
		{
			name:    "not an integer",
			input:   "1 1 1\n0 x 1",
			wantErr: "line 2: item of response 0 \"x\" is not an integer",
		},
		{
			name:    "index out of range",
			input:   "1 1 1 0 1 1",
			wantErr: "item 1 out of range [0, 1)",
		},
		{
			name:    "negative examinee count",
			input:   "0 -1 2",
			wantErr: "examinee count -1 is negative",
		},
		{
			name:    "negative response count",
			input:   "-1 1 1",
			wantErr: "response count -1 is negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, err := Parse(strings.NewReader(tt.input), FormatTriples)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.ErrorIs(t, err, models.ErrInvalidInput)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, tbl.Dataset.Responses, tt.wantResp)
			assert.Equal(t, tt.wantShape, [2]int{tbl.Dataset.Examinees, tbl.Dataset.Items})
			assert.Equal(t, FormatTriples, tbl.Format)
		})
	}
}

func TestParseTriples_Values(t *testing.T) {
	tbl, err := Parse(strings.NewReader("3 2 2\n0 0 1\n1 1 0\n0 1 1\n"), FormatTriples)
	require.NoError(t, err)
	assert.Equal(t, []models.Response{
		{Examinee: 0, Item: 0, Correct: true},
		{Examinee: 1, Item: 1, Correct: false},
		{Examinee: 0, Item: 1, Correct: true},
	}, tbl.Dataset.Responses)
}

func TestParseCSV_Long(t *testing.T) {
	input := "Examinee, Item, Response\n0,0,1\n0,1,0\n1,0,true\n1,1,\n2,1,.\n"
	tbl, err := Parse(strings.NewReader(input), FormatCSV)
	require.NoError(t, err)

	assert.Equal(t, 2, tbl.Dataset.Examinees, "rows with missing outcome do not count")
	assert.Equal(t, 2, tbl.Dataset.Items)
	assert.Equal(t, []models.Response{
		{Examinee: 0, Item: 0, Correct: true},
		{Examinee: 0, Item: 1, Correct: false},
		{Examinee: 1, Item: 0, Correct: true},
	}, tbl.Dataset.Responses)
	assert.Empty(t, tbl.ItemNames)
}

func TestParseCSV_LongErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{name: "non-numeric index", input: "examinee,item,correct\na,0,1\n", wantErr: "row 2"},
		{name: "bad outcome", input: "examinee,item,correct\n0,0,maybe\n", wantErr: "row 2"},
		{name: "negative index", input: "examinee,item,correct\n0,-1,1\n", wantErr: "out of range"},
		{name: "ragged row", input: "examinee,item,correct\n0,0\n", wantErr: "wrong number of fields"},
		{name: "empty", input: "", wantErr: "empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.input), FormatCSV)
			require.Error(t, err)
			assert.ErrorIs(t, err, models.ErrInvalidInput)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseCSV_Wide(t *testing.T) {
	input := "id,algebra,geometry,calculus\nann,1,0,1\nbob,1,,0\ncai,.,1,1\n"
	tbl, err := Parse(strings.NewReader(input), FormatCSV)
	require.NoError(t, err)

	assert.Equal(t, 3, tbl.Dataset.Examinees)
	assert.Equal(t, 3, tbl.Dataset.Items)
	assert.Len(t, tbl.Dataset.Responses, 7)
	assert.Equal(t, []string{"algebra", "geometry", "calculus"}, tbl.ItemNames)
	assert.Equal(t, []string{"ann", "bob", "cai"}, tbl.ExamineeNames)
	assert.Equal(t, "geometry", tbl.ItemName(1))
	assert.Equal(t, "bob", tbl.ExamineeName(1))

	correct, total := tbl.Dataset.ItemCounts()
	assert.Equal(t, []int{2, 1, 2}, correct)
	assert.Equal(t, []int{2, 2, 3}, total)
}

func TestParseCSV_WideWithoutLabels(t *testing.T) {
	tbl, err := Parse(strings.NewReader("q1,q2\n1,0\n0,0\n"), FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, []string{"q1", "q2"}, tbl.ItemNames)
	assert.Empty(t, tbl.ExamineeNames)
	assert.Equal(t, "1", tbl.ExamineeName(1))

	_, err = Parse(strings.NewReader("q1,q2\n1,2\n"), FormatCSV)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `column "q2"`)
}

func TestParseMatrix(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantResp  int
		wantShape [2]int
		wantErr   string
	}{
		{name: "packed", input: "110\n0.1\n", wantResp: 5, wantShape: [2]int{2, 3}},
		{name: "spaced", input: "1 1 0\n0 . 1\n", wantResp: 5, wantShape: [2]int{2, 3}},
		{name: "commas and comments", input: "# items a b\n1,0\n\n0,0\n", wantResp: 4, wantShape: [2]int{2, 2}},
		{name: "empty", input: "", wantShape: [2]int{0, 0}},
		{name: "ragged", input: "110\n01\n", wantErr: "line 2 has 2 items, expected 3"},
		{name: "bad cell", input: "1x0\n", wantErr: `cell "x"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, err := Parse(strings.NewReader(tt.input), FormatMatrix)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.ErrorIs(t, err, models.ErrInvalidInput)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, tbl.Dataset.Responses, tt.wantResp)
			assert.Equal(t, tt.wantShape, [2]int{tbl.Dataset.Examinees, tbl.Dataset.Items})
		})
	}
}

func TestParseDocument(t *testing.T) {
	yamlDoc := `examinees: 2
items: 2
item_names: [q1, q2]
responses:
  - {examinee: 0, item: 0, correct: true}
  - {examinee: 1, item: 1, correct: false}
`
	tbl, err := Parse(strings.NewReader(yamlDoc), FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, []string{"q1", "q2"}, tbl.ItemNames)
	assert.Equal(t, []models.Response{
		{Examinee: 0, Item: 0, Correct: true},
		{Examinee: 1, Item: 1, Correct: false},
	}, tbl.Dataset.Responses)

	jsonDoc := `{"examinees": 1, "items": 1, "responses": [{"examinee": 0, "item": 0, "correct": false}]}`
	tbl, err = Parse(strings.NewReader(jsonDoc), FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, 1, tbl.Dataset.Examinees)
	assert.Equal(t, "item0", tbl.ItemName(0))
}

func TestParseDocument_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{name: "schema", input: "examinees: 1\nitems: 1\nresponses:\n  - {examinee: 0, item: 0, correct: 1}\n", wantErr: "/responses/0/correct"},
		{name: "missing counts", input: "responses: []\n", wantErr: "examinees"},
		{name: "names mismatch", input: "examinees: 1\nitems: 2\nitem_names: [a]\nresponses: []\n", wantErr: "1 item names for 2 items"},
		{name: "out of range", input: "examinees: 1\nitems: 1\nresponses:\n  - {examinee: 1, item: 0, correct: true}\n", wantErr: "examinee 1 out of range"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.input), FormatYAML)
			require.Error(t, err)
			assert.ErrorIs(t, err, models.ErrInvalidInput)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		location string
		want     Format
	}{
		{"responses.txt", FormatTriples},
		{"responses", FormatTriples},
		{"data/Responses.CSV", FormatCSV},
		{"data/responses.csv.gz", FormatCSV},
		{"set.yaml.zst", FormatYAML},
		{"set.json", FormatYAML},
		{"set.yml", FormatYAML},
		{"grid.matrix", FormatMatrix},
		{"grid.mat.gz", FormatMatrix},
		{"https://acct.blob.core.windows.net/data/run1.csv?sv=2024&sig=abc", FormatCSV},
	}
	for _, tt := range tests {
		t.Run(tt.location, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectFormat(tt.location))
		})
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("matrix")
	require.NoError(t, err)
	assert.Equal(t, FormatMatrix, f)

	_, err = ParseFormat("xlsx")
	assert.Error(t, err)
}
