package reporting

import (
	"encoding/xml"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spboyer/tuneval/internal/models"
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

// JUnitTestSuite maps to one evaluation run.
type JUnitTestSuite struct {
	XMLName    xml.Name        `xml:"testsuite"`
	Name       string          `xml:"name,attr"`
	Tests      int             `xml:"tests,attr"`
	Failures   int             `xml:"failures,attr"`
	Errors     int             `xml:"errors,attr"`
	Skipped    int             `xml:"skipped,attr"`
	Time       float64         `xml:"time,attr"`
	Timestamp  string          `xml:"timestamp,attr"`
	Properties []JUnitProperty `xml:"properties>property,omitempty"`
	TestCases  []JUnitTestCase `xml:"testcase"`
}

// JUnitTestCase maps to one evaluation sample.
type JUnitTestCase struct {
	XMLName   xml.Name      `xml:"testcase"`
	Name      string        `xml:"name,attr"`
	Classname string        `xml:"classname,attr"`
	Time      float64       `xml:"time,attr"`
	Failure   *JUnitFailure `xml:"failure,omitempty"`
	Error     *JUnitError   `xml:"error,omitempty"`
	Skipped   *JUnitSkipped `xml:"skipped,omitempty"`
}

// JUnitFailure represents a test assertion failure.
type JUnitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

// JUnitError represents an unexpected error during test execution.
type JUnitError struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

// JUnitSkipped marks a test as skipped.
type JUnitSkipped struct {
	Message string `xml:"message,attr,omitempty"`
}

// JUnitProperty is a key-value metadata entry.
type JUnitProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// ConvertToJUnit converts an EvaluationOutcome to JUnit XML format. Each
// sample is a test case that fails when its ROUGE-1 recall is below the
// recall threshold. Missed corpus thresholds add one more failing case.
func ConvertToJUnit(outcome *models.EvaluationOutcome) *JUnitTestSuites {
	durationSec := float64(outcome.DurationMs) / 1000.0
	classname := outcome.Model.DisplayName
	if classname == "" {
		classname = outcome.Model.Name
	}

	suite := JUnitTestSuite{
		Name:      "tuneval " + outcome.RunID,
		Time:      durationSec,
		Timestamp: outcome.Timestamp.Format(time.RFC3339),
		Properties: []JUnitProperty{
			{Name: "run_id", Value: outcome.RunID},
			{Name: "model", Value: outcome.Model.Target()},
			{Name: "base_model", Value: outcome.Setup.BaseModel},
		},
	}
	if outcome.Scores != nil {
		suite.Properties = append(suite.Properties,
			JUnitProperty{Name: "precision_overlap", Value: fmt.Sprintf("%.4f", outcome.Scores.PrecisionOverlap)},
			JUnitProperty{Name: "recall_overlap", Value: fmt.Sprintf("%.4f", outcome.Scores.RecallOverlap)},
		)
	}

	var perSample []float64
	if outcome.Scores != nil {
		perSample = outcome.Scores.ROUGE.PerSampleRecall
	}
	minRecall := outcome.Thresholds.RecallOverlap

	for i, s := range outcome.Samples {
		tc := JUnitTestCase{
			Name:      fmt.Sprintf("sample-%03d %s", i+1, truncate(firstLine(s.Input), 60)),
			Classname: classname,
		}
		if i < len(perSample) && minRecall > 0 && perSample[i] < minRecall {
			tc.Failure = &JUnitFailure{
				Message: fmt.Sprintf("rouge1 recall %.2f below %.2f", perSample[i], minRecall),
				Type:    "RecallBelowThreshold",
				Body:    fmt.Sprintf("candidate:\n%s\n\nreference:\n%s\n", s.Candidate, s.Reference),
			}
			suite.Failures++
		}
		suite.TestCases = append(suite.TestCases, tc)
	}

	if len(outcome.Failures) > 0 {
		suite.TestCases = append(suite.TestCases, JUnitTestCase{
			Name:      "thresholds",
			Classname: classname,
			Failure: &JUnitFailure{
				Message: strings.Join(outcome.Failures, "; "),
				Type:    "ThresholdFailure",
			},
		})
		suite.Failures++
	}

	if outcome.Counts.Failed > 0 {
		suite.TestCases = append(suite.TestCases, JUnitTestCase{
			Name:      "predictions",
			Classname: classname,
			Error: &JUnitError{
				Message: fmt.Sprintf("%d prediction(s) failed and were skipped", outcome.Counts.Failed),
				Type:    "PredictionError",
			},
		})
		suite.Errors++
	}

	suite.Tests = len(suite.TestCases)

	return &JUnitTestSuites{
		Tests:      suite.Tests,
		Failures:   suite.Failures,
		Errors:     suite.Errors,
		Time:       durationSec,
		TestSuites: []JUnitTestSuite{suite},
	}
}

// WriteJUnitXML writes JUnit XML to the specified file path.
func WriteJUnitXML(outcome *models.EvaluationOutcome, path string) error {
	suites := ConvertToJUnit(outcome)

	data, err := xml.MarshalIndent(suites, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JUnit XML: %w", err)
	}

	output := append([]byte(xml.Header), data...)
	return os.WriteFile(path, output, 0644)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// truncate shortens s to maxLen runes, replacing the last rune with "…" if needed.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-1]) + "…"
}
