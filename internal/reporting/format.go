package reporting

import (
	"encoding/json"
	"fmt"
	"io"
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
	"gopkg.in/yaml.v3"
)

// Format names a report layout.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatJUnit    Format = "junit"
)

// Formats lists every report format.
var Formats = []Format{FormatText, FormatMarkdown, FormatHTML, FormatJSON, FormatYAML, FormatJUnit}

// ParseFormat checks a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	for _, f := range Formats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", &UnknownOptionError{Kind: "format", Value: s}
}

// printer formats counts and likelihoods with digit grouping.
var printer = message.NewPrinter(language.English)

// Write renders a fit report.
func Write(w io.Writer, r *Report, f Format) error {
	switch f {
	case FormatText:
		return writeText(w, r)
	case FormatMarkdown:
		_, err := io.WriteString(w, markdownReport(r))
		return err
	case FormatHTML:
		return writeHTML(w, "Calibration report", markdownReport(r))
	case FormatJSON:
		return writeJSON(w, r)
	case FormatYAML:
		return writeYAML(w, r)
	case FormatJUnit:
		return WriteJUnitXML(w, ConvertToJUnit(r))
	}
	return &UnknownOptionError{Kind: "format", Value: string(f)}
}

// WriteDescribe renders a classical statistics report. JUnit is not
// supported for it.
func WriteDescribe(w io.Writer, r *DescribeReport, f Format) error {
	switch f {
	case FormatText:
		return writeDescribeText(w, r)
	case FormatMarkdown:
		_, err := io.WriteString(w, markdownDescribe(r))
		return err
	case FormatHTML:
		return writeHTML(w, "Dataset description", markdownDescribe(r))
	case FormatJSON:
		return writeJSON(w, r)
	case FormatYAML:
		return writeYAML(w, r)
	}
	return fmt.Errorf("format %q is not available for describe", f)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding json report: %w", err)
	}
	return nil
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding yaml report: %w", err)
	}
	return enc.Close()
}

// num formats a float for tables: fixed decimals, "-" for NaN.
func num(f Float, decimals int) string {
	v := float64(f)
	switch {
	case math.IsNaN(v):
		return "-"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	return printer.Sprint(number.Decimal(v, number.Scale(decimals)))
}

// count formats an integer with digit grouping.
func count(n int) string {
	return printer.Sprintf("%d", n)
}
