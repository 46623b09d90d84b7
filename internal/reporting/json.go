package reporting

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/spboyer/tuneval/internal/models"
)

// WriteOutcome writes outcome as indented JSON. Paths ending in .gz are
// gzip-compressed.
func WriteOutcome(outcome *models.EvaluationOutcome, path string) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()

	var w io.Writer = f
	if strings.HasSuffix(path, ".gz") {
		zw := gzip.NewWriter(f)
		defer func() {
			if cerr := zw.Close(); err == nil && cerr != nil {
				err = cerr
			}
		}()
		w = zw
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(outcome); err != nil {
		return fmt.Errorf("encoding outcome: %w", err)
	}
	return nil
}

// ReadOutcome reads a file written by WriteOutcome.
func ReadOutcome(path string) (*models.EvaluationOutcome, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		defer zr.Close() //nolint:errcheck
		r = zr
	}

	var outcome models.EvaluationOutcome
	if err := json.NewDecoder(r).Decode(&outcome); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return &outcome, nil
}
