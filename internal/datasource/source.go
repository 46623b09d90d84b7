// Package datasource fetches question/answer records from tabular sources.
package datasource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spboyer/tuneval/internal/models"
)

// ErrDataSourceUnavailable is returned when a source cannot be queried or
// yields no records. Callers must not split or serialize after it.
var ErrDataSourceUnavailable = errors.New("data source unavailable")

// DefaultLimit caps the number of rows a Query returns.
const DefaultLimit = 1000

// Drivers accepted by Open.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverCSV      = "csv"
)

// Query selects accepted answers for tagged questions.
type Query struct {
	// Tag is matched as a substring of the question's tags column. Empty
	// matches every question.
	Tag string
	// MinCreationDate bounds the answer creation date from below. The zero
	// value disables the bound.
	MinCreationDate time.Time
	// Limit caps the row count; zero means DefaultLimit.
	Limit int
}

func (q Query) limit() int {
	if q.Limit <= 0 {
		return DefaultLimit
	}
	return q.Limit
}

// Source produces records for a query.
type Source interface {
	Fetch(ctx context.Context, q Query) ([]models.Record, error)
	Close() error
}

// Config selects and configures a Source.
type Config struct {
	Driver         string
	DSN            string
	Path           string
	QuestionsTable string
	AnswersTable   string
	SanitizeHTML   bool
	Logger         *slog.Logger
}

// Open returns the Source for cfg.Driver. When SanitizeHTML is set, the
// source strips markup from every record it returns.
func Open(cfg Config) (Source, error) {
	var (
		src Source
		err error
	)
	switch cfg.Driver {
	case DriverPostgres, DriverSQLite:
		src, err = OpenSQL(cfg.Driver, cfg.DSN, Tables{Questions: cfg.QuestionsTable, Answers: cfg.AnswersTable})
	case DriverCSV:
		src = NewCSVSource(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown datasource driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if cfg.SanitizeHTML {
		src = &sanitizingSource{Source: src, sanitizer: NewSanitizer(), logger: cfg.Logger}
	}
	return src, nil
}
