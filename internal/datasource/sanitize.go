package datasource

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/spboyer/tuneval/internal/models"
)

// Sanitizer reduces HTML post bodies to plain text.
type Sanitizer struct {
	policy *bluemonday.Policy
}

var (
	spaceRun    = regexp.MustCompile(`[ \t]{2,}`)
	spaceAround = regexp.MustCompile(`[ \t]*\n[ \t]*`)
)

// NewSanitizer returns a Sanitizer that removes every element. Stripped
// tags leave a space behind so adjacent blocks don't run together.
func NewSanitizer() *Sanitizer {
	p := bluemonday.StrictPolicy()
	p.AddSpaceWhenStrippingTag(true)
	return &Sanitizer{policy: p}
}

// Text strips markup, unescapes entities, collapses runs of spaces and trims
// surrounding space. Newlines inside the text are kept.
func (s *Sanitizer) Text(in string) string {
	out := spaceRun.ReplaceAllString(s.policy.Sanitize(in), " ")
	out = spaceAround.ReplaceAllString(out, "\n")
	return strings.TrimSpace(html.UnescapeString(out))
}

// Record sanitizes both fields of r.
func (s *Sanitizer) Record(r models.Record) models.Record {
	return models.Record{InputText: s.Text(r.InputText), OutputText: s.Text(r.OutputText)}
}

type sanitizingSource struct {
	Source
	sanitizer *Sanitizer
	logger    *slog.Logger
}

func (s *sanitizingSource) Fetch(ctx context.Context, q Query) ([]models.Record, error) {
	records, err := s.Source.Fetch(ctx, q)
	if err != nil {
		return nil, err
	}

	out := records[:0]
	dropped := 0
	for _, r := range records {
		clean := s.sanitizer.Record(r)
		if clean.InputText == "" || clean.OutputText == "" {
			dropped++
			continue
		}
		out = append(out, clean)
	}
	if dropped > 0 {
		logger := s.logger
		if logger == nil {
			logger = slog.Default()
		}
		logger.Info("dropped records with no text after sanitizing", "dropped", dropped, "kept", len(out))
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: every record was empty after sanitizing", ErrDataSourceUnavailable)
	}
	return out, nil
}
