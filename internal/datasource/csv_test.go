package datasource

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spboyer/tuneval/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoadCSV(t *testing.T) {
	tests := []struct {
		name     string
		csv      string
		wantRows int
		wantCols int
		wantErr  string
	}{
		{
			name:     "happy path 2 rows 2 columns",
			csv:      "input_text,output_text\nHow do I sort?,Use sorted()\nWhat is a dict?,A hash map\n",
			wantRows: 2,
			wantCols: 2,
		},
		{
			name:     "headers only",
			csv:      "title,body,answer\n",
			wantRows: 0,
		},
		{
			name:    "mismatched column count",
			csv:     "input_text,output_text\nok,fine\nbad\n",
			wantErr: "wrong number of fields",
		},
		{
			name:    "empty file",
			csv:     "",
			wantErr: "no header row",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeCSV(t, t.TempDir(), "test.csv", tt.csv)

			rows, err := LoadCSV(path)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Len(t, rows, tt.wantRows)
			if tt.wantRows > 0 {
				assert.Len(t, rows[0], tt.wantCols)
			}
		})
	}
}

func TestLoadCSV_MissingFile(t *testing.T) {
	_, err := LoadCSV("/nonexistent/path/data.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "csv: open")
}

func TestCSVSource_Fetch(t *testing.T) {
	ctx := context.Background()

	t.Run("input/output columns", func(t *testing.T) {
		path := writeCSV(t, t.TempDir(), "qa.csv", "input_text,output_text\n\"multi\nline\",\"say \"\"hi\"\"\"\nq2,a2\nq3,a3\n")

		got, err := NewCSVSource(path).Fetch(ctx, Query{Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, []models.Record{
			{InputText: "multi\nline", OutputText: `say "hi"`},
			{InputText: "q2", OutputText: "a2"},
		}, got)
	})

	t.Run("title body answer columns", func(t *testing.T) {
		path := writeCSV(t, t.TempDir(), "posts.csv", "title,body,answer,score\nSort list,How do I sort?,Use sorted(),10\n")

		got, err := NewCSVSource(path).Fetch(ctx, Query{})
		require.NoError(t, err)
		assert.Equal(t, []models.Record{{InputText: "Sort list How do I sort?", OutputText: "Use sorted()"}}, got)
	})

	t.Run("unknown header", func(t *testing.T) {
		path := writeCSV(t, t.TempDir(), "bad.csv", "question,reply\nq,a\n")

		_, err := NewCSVSource(path).Fetch(ctx, Query{})
		require.ErrorIs(t, err, ErrDataSourceUnavailable)
		assert.Contains(t, err.Error(), "csv header")
	})

	t.Run("no rows", func(t *testing.T) {
		path := writeCSV(t, t.TempDir(), "empty.csv", "input_text,output_text\n")

		_, err := NewCSVSource(path).Fetch(ctx, Query{})
		require.ErrorIs(t, err, ErrDataSourceUnavailable)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := NewCSVSource(filepath.Join(t.TempDir(), "nope.csv")).Fetch(ctx, Query{})
		require.ErrorIs(t, err, ErrDataSourceUnavailable)
	})
}
