package orchestration

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spboyer/tuneval/internal/models"
	"github.com/spboyer/tuneval/internal/reporting"
)

// Report file names written by WriteReports.
const (
	OutcomeFileName  = "outcome.json"
	JUnitFileName    = "junit.xml"
	MarkdownFileName = "summary.md"
	HTMLFileName     = "summary.html"
)

// WriteReports writes the outcome in every report format to
// <dir>/<run id>/ and returns the paths written. With compress the JSON
// outcome is gzipped.
func WriteReports(outcome *models.EvaluationOutcome, dir string, compress bool) ([]string, error) {
	runDir := filepath.Join(dir, outcome.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", runDir, err)
	}

	outcomePath := filepath.Join(runDir, OutcomeFileName)
	if compress {
		outcomePath += ".gz"
	}
	if err := reporting.WriteOutcome(outcome, outcomePath); err != nil {
		return nil, err
	}

	junitPath := filepath.Join(runDir, JUnitFileName)
	if err := reporting.WriteJUnitXML(outcome, junitPath); err != nil {
		return nil, err
	}

	mdPath := filepath.Join(runDir, MarkdownFileName)
	if err := os.WriteFile(mdPath, []byte(reporting.Markdown(outcome)), 0o644); err != nil {
		return nil, fmt.Errorf("writing %s: %w", mdPath, err)
	}

	html, err := reporting.HTML(outcome)
	if err != nil {
		return nil, err
	}
	htmlPath := filepath.Join(runDir, HTMLFileName)
	if err := os.WriteFile(htmlPath, html, 0o644); err != nil {
		return nil, fmt.Errorf("writing %s: %w", htmlPath, err)
	}

	return []string{outcomePath, junitPath, mdPath, htmlPath}, nil
}
