package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	_ "github.com/lib/pq" // postgres driver
	"github.com/spboyer/tuneval/internal/models"
	_ "modernc.org/sqlite" // pure-Go sqlite driver
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Tables names the two tables the query joins. Questions needs the columns
// title, body, tags and accepted_answer_id; Answers needs id, body and
// creation_date.
type Tables struct {
	Questions string
	Answers   string
}

// SQLSource queries a questions table joined with its accepted answers.
type SQLSource struct {
	db      *sql.DB
	dialect string
	tables  Tables
}

// OpenSQL opens a database/sql handle for driver ("postgres" or "sqlite").
func OpenSQL(driver, dsn string, tables Tables) (*SQLSource, error) {
	if dsn == "" {
		return nil, fmt.Errorf("datasource: dsn is required for %s", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %w", ErrDataSourceUnavailable, driver, err)
	}
	src, err := NewSQLSource(db, driver, tables)
	if err != nil {
		db.Close() //nolint:errcheck
		return nil, err
	}
	return src, nil
}

// NewSQLSource wraps an existing handle. dialect selects the placeholder
// style and parameter encoding.
func NewSQLSource(db *sql.DB, dialect string, tables Tables) (*SQLSource, error) {
	if dialect != DriverPostgres && dialect != DriverSQLite {
		return nil, fmt.Errorf("datasource: unsupported sql dialect %q", dialect)
	}
	for _, name := range []string{tables.Questions, tables.Answers} {
		if !identRe.MatchString(name) {
			return nil, fmt.Errorf("datasource: invalid table name %q", name)
		}
	}
	return &SQLSource{db: db, dialect: dialect, tables: tables}, nil
}

// Fetch runs the read-only query and returns one record per row.
func (s *SQLSource) Fetch(ctx context.Context, q Query) ([]models.Record, error) {
	query, args := s.buildQuery(q)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %w", ErrDataSourceUnavailable, err)
	}
	defer rows.Close() //nolint:errcheck

	var records []models.Record
	for rows.Next() {
		var r models.Record
		if err := rows.Scan(&r.InputText, &r.OutputText); err != nil {
			return nil, fmt.Errorf("%w: scan: %w", ErrDataSourceUnavailable, err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: rows: %w", ErrDataSourceUnavailable, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: query returned no rows", ErrDataSourceUnavailable)
	}
	return records, nil
}

// Close releases the database handle.
func (s *SQLSource) Close() error {
	return s.db.Close()
}

func (s *SQLSource) buildQuery(q Query) (string, []any) {
	var (
		where []string
		args  []any
	)
	next := func(v any) string {
		args = append(args, v)
		if s.dialect == DriverPostgres {
			return fmt.Sprintf("$%d", len(args))
		}
		return "?"
	}

	if q.Tag != "" {
		where = append(where, fmt.Sprintf("q.tags LIKE '%%' || CAST(%s AS TEXT) || '%%'", next(q.Tag)))
	}
	if !q.MinCreationDate.IsZero() {
		where = append(where, "a.creation_date >= "+next(s.timeArg(q.MinCreationDate)))
	}

	var b strings.Builder
	b.WriteString("SELECT COALESCE(q.title, '') || ' ' || COALESCE(q.body, '') AS input_text, ")
	b.WriteString("COALESCE(a.body, '') AS output_text ")
	fmt.Fprintf(&b, "FROM %s q JOIN %s a ON q.accepted_answer_id = a.id", s.tables.Questions, s.tables.Answers)
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString(" LIMIT " + next(q.limit()))
	return b.String(), args
}

// timeArg encodes t for comparison against creation_date. SQLite stores
// dates as text, so the bound is sent in the same sortable layout.
func (s *SQLSource) timeArg(t time.Time) any {
	if s.dialect == DriverSQLite {
		return t.UTC().Format(time.DateTime)
	}
	return t
}
