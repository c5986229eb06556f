// Package dataset reads response datasets from local files, stdin or Azure
// Blob Storage. Four layouts are understood (triples, CSV, matrix and
// YAML/JSON) and gzip or zstd compression is removed transparently.
package dataset

import (
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/spboyer/irtcal/internal/models"
)

// Format names a dataset layout.
type Format string

const (
	// FormatAuto picks the layout from the file extension.
	FormatAuto Format = "auto"
	// FormatTriples is "count examinees items" followed by
	// (examinee, item, outcome) triples.
	FormatTriples Format = "triples"
	// FormatCSV is either long (examinee,item,response columns) or wide
	// (one column per item), decided by the header row.
	FormatCSV Format = "csv"
	// FormatMatrix is a header-less 0/1 matrix, one examinee per line.
	FormatMatrix Format = "matrix"
	// FormatYAML is a YAML or JSON document with counts and a response list.
	FormatYAML Format = "yaml"
)

// Formats lists every accepted format name.
var Formats = []Format{FormatAuto, FormatTriples, FormatCSV, FormatMatrix, FormatYAML}

// ParseFormat checks a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	for _, f := range Formats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown input format %q", s)
}

// Table is a loaded dataset plus the labels its source carried.
type Table struct {
	Dataset *models.Dataset
	// ItemNames and ExamineeNames are empty when the layout has no labels.
	ItemNames     []string
	ExamineeNames []string
	Format        Format
	Source        string
}

// ItemName returns the label of item j, or "item<j>" when there is none.
func (t *Table) ItemName(j int) string {
	if j < len(t.ItemNames) && t.ItemNames[j] != "" {
		return t.ItemNames[j]
	}
	return fmt.Sprintf("item%d", j)
}

// ExamineeName returns the label of examinee i, or its index.
func (t *Table) ExamineeName(i int) string {
	if i < len(t.ExamineeNames) && t.ExamineeNames[i] != "" {
		return t.ExamineeNames[i]
	}
	return fmt.Sprintf("%d", i)
}

// DetectFormat guesses the layout from a path or URL, ignoring a trailing
// .gz or .zst. Unknown extensions are read as triples.
func DetectFormat(location string) Format {
	name := location
	if u, err := url.Parse(location); err == nil && u.Scheme != "" && u.Host != "" {
		name = u.Path
	}
	name = strings.ToLower(name)
	for _, ext := range []string{".gz", ".zst", ".zstd"} {
		name = strings.TrimSuffix(name, ext)
	}
	switch path.Ext(name) {
	case ".csv":
		return FormatCSV
	case ".yaml", ".yml", ".json":
		return FormatYAML
	case ".mat", ".matrix":
		return FormatMatrix
	}
	return FormatTriples
}

// Parse reads a dataset of the given layout from r, decompressing it first
// if needed. FormatAuto is read as triples.
func Parse(r io.Reader, format Format) (*Table, error) {
	rc, err := decompress(r)
	if err != nil {
		return nil, err
	}
	defer rc.Close() //nolint:errcheck

	switch format {
	case FormatAuto, FormatTriples:
		return parseTriples(rc)
	case FormatCSV:
		return parseCSV(rc)
	case FormatMatrix:
		return parseMatrix(rc)
	case FormatYAML:
		return parseDocument(rc)
	}
	return nil, fmt.Errorf("unknown input format %q", format)
}
