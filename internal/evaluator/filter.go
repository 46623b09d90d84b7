package evaluator

import (
	"unicode/utf8"

	"github.com/spboyer/tuneval/internal/models"
)

// Defaults for Filter.
const (
	DefaultInputCharLimit = 10000
	DefaultRowLimit       = 60
)

// FilterResult is the output of Filter.
type FilterResult struct {
	Records []models.Record
	// TooLong counts inputs dropped for exceeding the character limit.
	TooLong int
}

// Filter drops records whose input is longer than charLimit characters
// (runes, not bytes) and keeps the first rowLimit of the rest, preserving
// order. Non-positive limits fall back to the defaults.
func Filter(records []models.Record, charLimit, rowLimit int) FilterResult {
	if charLimit <= 0 {
		charLimit = DefaultInputCharLimit
	}
	if rowLimit <= 0 {
		rowLimit = DefaultRowLimit
	}

	var res FilterResult
	for _, r := range records {
		if utf8.RuneCountInString(r.InputText) > charLimit {
			res.TooLong++
			continue
		}
		if len(res.Records) < rowLimit {
			res.Records = append(res.Records, r)
		}
	}
	return res
}
