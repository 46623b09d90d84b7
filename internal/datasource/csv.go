package datasource

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/spboyer/tuneval/internal/models"
)

// Row represents a single CSV row with column name to value mapping.
type Row map[string]string

// LoadCSV reads a CSV file and returns rows as maps of column to value.
// The first row is treated as headers (column names).
func LoadCSV(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csv: open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv: parse %s: %w", path, err)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("csv: %s is empty (no header row)", path)
	}

	headers := records[0]
	for i, h := range headers {
		headers[i] = strings.TrimSpace(h)
	}
	rows := make([]Row, 0, len(records)-1)

	for i, record := range records[1:] {
		if len(record) != len(headers) {
			return nil, fmt.Errorf("csv: row %d has %d columns, expected %d", i+2, len(record), len(headers))
		}
		row := make(Row, len(headers))
		for j, h := range headers {
			row[h] = record[j]
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// CSVSource reads records from a local export. The header must name either
// input_text and output_text, or title, body and answer.
type CSVSource struct {
	path string
}

// NewCSVSource returns a Source over the CSV file at path.
func NewCSVSource(path string) *CSVSource {
	return &CSVSource{path: path}
}

// Fetch loads the file and applies q.Limit. Tag and date filtering are
// expected to have happened when the export was made.
func (s *CSVSource) Fetch(ctx context.Context, q Query) ([]models.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.path == "" {
		return nil, fmt.Errorf("%w: csv path is empty", ErrDataSourceUnavailable)
	}

	rows, err := LoadCSV(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDataSourceUnavailable, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s has no data rows", ErrDataSourceUnavailable, s.path)
	}

	toRecord, err := recordMapper(rows[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDataSourceUnavailable, s.path, err)
	}

	n := min(len(rows), q.limit())
	records := make([]models.Record, 0, n)
	for _, row := range rows[:n] {
		records = append(records, toRecord(row))
	}
	return records, nil
}

// Close is a no-op.
func (s *CSVSource) Close() error { return nil }

func recordMapper(sample Row) (func(Row) models.Record, error) {
	has := func(cols ...string) bool {
		for _, c := range cols {
			if _, ok := sample[c]; !ok {
				return false
			}
		}
		return true
	}

	switch {
	case has("input_text", "output_text"):
		return func(r Row) models.Record {
			return models.Record{InputText: r["input_text"], OutputText: r["output_text"]}
		}, nil
	case has("title", "body", "answer"):
		return func(r Row) models.Record {
			return models.Record{InputText: r["title"] + " " + r["body"], OutputText: r["answer"]}
		}, nil
	default:
		return nil, fmt.Errorf("csv header needs input_text,output_text or title,body,answer")
	}
}
