package reporting

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// JUnit XML schema types

// JUnitTestSuites is the top-level container.
type JUnitTestSuites struct {
	XMLName    xml.Name         `xml:"testsuites"`
	Tests      int              `xml:"tests,attr"`
	Failures   int              `xml:"failures,attr"`
	Errors     int              `xml:"errors,attr"`
	Time       float64          `xml:"time,attr"`
	TestSuites []JUnitTestSuite `xml:"testsuite"`
}

// JUnitTestSuite maps to one calibration run.
type JUnitTestSuite struct {
	XMLName    xml.Name        `xml:"testsuite"`
	Name       string          `xml:"name,attr"`
	Tests      int             `xml:"tests,attr"`
	Failures   int             `xml:"failures,attr"`
	Errors     int             `xml:"errors,attr"`
	Skipped    int             `xml:"skipped,attr"`
	Time       float64         `xml:"time,attr"`
	Properties []JUnitProperty `xml:"properties>property,omitempty"`
	TestCases  []JUnitTestCase `xml:"testcase"`
}

// JUnitTestCase maps to one item, or to the convergence check.
type JUnitTestCase struct {
	XMLName   xml.Name      `xml:"testcase"`
	Name      string        `xml:"name,attr"`
	Classname string        `xml:"classname,attr"`
	Time      float64       `xml:"time,attr"`
	Failure   *JUnitFailure `xml:"failure,omitempty"`
	Skipped   *JUnitSkipped `xml:"skipped,omitempty"`
}

// JUnitFailure represents a failed quality check.
type JUnitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

// JUnitSkipped marks a check that could not run.
type JUnitSkipped struct {
	Message string `xml:"message,attr,omitempty"`
}

// JUnitProperty is a key-value metadata entry.
type JUnitProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// ConvertToJUnit turns a report into a quality gate: one test case for
// convergence and one per item, failing when the item carries flags.
func ConvertToJUnit(r *Report) *JUnitTestSuites {
	durationSec := float64(r.Fit.DurationMs) / 1000.0
	name := r.Source
	if name == "" {
		name = "calibration"
	}

	suite := JUnitTestSuite{
		Name: name,
		Time: durationSec,
		Properties: []JUnitProperty{
			{Name: "examinees", Value: fmt.Sprint(r.Examinees)},
			{Name: "items", Value: fmt.Sprint(r.Items)},
			{Name: "iterations", Value: fmt.Sprint(r.Fit.Iterations)},
			{Name: "log_likelihood", Value: num(r.Fit.LogLikelihood, 4)},
			{Name: "return_policy", Value: r.Settings.ReturnPolicy},
		},
	}

	conv := JUnitTestCase{Name: "convergence", Classname: "estimation", Time: durationSec}
	if !r.Fit.Converged {
		conv.Failure = &JUnitFailure{
			Message: fmt.Sprintf("status=%s iterations=%d", r.Fit.Status, r.Fit.Iterations),
			Type:    "NotConverged",
			Body:    InterpretFit(r.Fit),
		}
	}
	suite.TestCases = append(suite.TestCases, conv)

	for _, it := range r.ItemRows {
		suite.TestCases = append(suite.TestCases, convertItem(it))
	}

	for _, tc := range suite.TestCases {
		suite.Tests++
		switch {
		case tc.Failure != nil:
			suite.Failures++
		case tc.Skipped != nil:
			suite.Skipped++
		}
	}

	return &JUnitTestSuites{
		Tests:      suite.Tests,
		Failures:   suite.Failures,
		Time:       durationSec,
		TestSuites: []JUnitTestSuite{suite},
	}
}

func convertItem(it ItemRow) JUnitTestCase {
	tc := JUnitTestCase{Name: it.Name, Classname: "items"}
	switch {
	case len(it.Flags) == 1 && it.Flags[0] == FlagNoResponses:
		tc.Skipped = &JUnitSkipped{Message: "no responses"}
	case len(it.Flags) > 0:
		tc.Failure = &JUnitFailure{
			Message: fmt.Sprintf("%s: a=%s b=%s", it.Name, num(it.Discrimination, 3), num(it.Difficulty, 3)),
			Type:    "ItemQuality",
			Body:    formatFlags(it.Flags),
		}
	}
	return tc
}

func formatFlags(flags []string) string {
	var b strings.Builder
	for _, f := range flags {
		fmt.Fprintf(&b, "[FLAG] %s: %s\n", f, flagExplanations[f])
	}
	return b.String()
}

// WriteJUnitXML writes JUnit XML with the standard header.
func WriteJUnitXML(w io.Writer, suites *JUnitTestSuites) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(suites); err != nil {
		return fmt.Errorf("encoding junit report: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}
