package dataset

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/spboyer/tuneval/internal/models"
	"github.com/spboyer/tuneval/internal/validation"
)

// ErrSerialization is matched by every SerializationError.
var ErrSerialization = errors.New("dataset: record cannot be serialized")

// SerializationError reports the record and field that could not be
// encoded. WriteJSONL stops at the first one.
type SerializationError struct {
	Index int
	Field string
	Err   error
}

func (e *SerializationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("dataset: record %d field %s: %v", e.Index, e.Field, e.Err)
	}
	return fmt.Sprintf("dataset: record %d field %s is not valid UTF-8", e.Index, e.Field)
}

func (e *SerializationError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrSerialization, e.Err}
	}
	return []error{ErrSerialization}
}

// maxLineSize bounds one JSONL line when reading.
const maxLineSize = 16 * 1024 * 1024

// EncodeRecord returns the JSON line for r without the trailing newline.
// HTML characters are not escaped.
func EncodeRecord(r models.Record) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// WriteJSONL writes one JSON object per record, newline-terminated and in
// slice order. Every record is encoded before anything is written, so a
// field that is not valid UTF-8 aborts with a *SerializationError and
// leaves w untouched.
func WriteJSONL(w io.Writer, records []models.Record) error {
	var buf bytes.Buffer
	for i, r := range records {
		line, err := encodeChecked(i, r)
		if err != nil {
			return err
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	if _, err := buf.WriteTo(w); err != nil {
		return fmt.Errorf("dataset: writing records: %w", err)
	}
	return nil
}

func encodeChecked(i int, r models.Record) ([]byte, error) {
	if !utf8.ValidString(r.InputText) {
		return nil, &SerializationError{Index: i, Field: "input_text"}
	}
	if !utf8.ValidString(r.OutputText) {
		return nil, &SerializationError{Index: i, Field: "output_text"}
	}

	line, err := EncodeRecord(r)
	if err != nil {
		return nil, &SerializationError{Index: i, Field: "record", Err: err}
	}
	if errs := validation.ValidateRecordLine(line); len(errs) > 0 {
		return nil, &SerializationError{Index: i, Field: "record", Err: errors.New(strings.Join(errs, "; "))}
	}
	return line, nil
}

// ReadJSONL decodes one record per non-blank line. Each line must match
// the record schema.
func ReadJSONL(r io.Reader) ([]models.Record, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var records []models.Record
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if errs := validation.ValidateRecordLine(line); len(errs) > 0 {
			return nil, fmt.Errorf("dataset: line %d: %s", lineNo, strings.Join(errs, "; "))
		}
		var rec models.Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("dataset: line %d: %w", lineNo, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("dataset: reading: %w", err)
	}
	return records, nil
}

// WriteJSONLFile writes records to path, creating parent directories. On
// any error the partial file is removed.
func WriteJSONLFile(path string, records []models.Record) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("dataset: creating directory for %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("dataset: creating %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("dataset: closing %s: %w", path, cerr)
		}
		if err != nil {
			os.Remove(path) //nolint:errcheck
		}
	}()

	return WriteJSONL(f, records)
}

// ReadJSONLFile reads the records stored at path.
func ReadJSONLFile(path string) ([]models.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: opening %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	records, err := ReadJSONL(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}
