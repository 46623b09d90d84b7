package reporting

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/spboyer/tuneval/internal/models"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// WriteTable prints the headline numbers of outcome as an aligned table.
func WriteTable(w io.Writer, outcome *models.EvaluationOutcome) {
	rows := [][2]string{
		{"Model", outcome.Model.Target()},
		{"Status", string(outcome.Status)},
	}
	if s := outcome.Scores; s != nil {
		rows = append(rows,
			[2]string{"Precision overlap", printer.Sprintf("%.4f", s.PrecisionOverlap)},
			[2]string{"Recall overlap", printer.Sprintf("%.4f", s.RecallOverlap)},
			[2]string{"ROUGE-L", printer.Sprintf("%.4f", s.ROUGE.RougeL)},
		)
	}
	c := outcome.Counts
	rows = append(rows,
		[2]string{"Inputs", printer.Sprintf("%d", c.Inputs)},
		[2]string{"Scored samples", printer.Sprintf("%d", c.Generated)},
		[2]string{"Empty / failed", printer.Sprintf("%d / %d", c.EmptyResponse, c.Failed)},
	)

	width := 0
	for _, r := range rows {
		width = max(width, runewidth.StringWidth(r[0]))
	}
	fmt.Fprintln(w, strings.Repeat("─", width+2+24)) //nolint:errcheck
	for _, r := range rows {
		fmt.Fprintf(w, "%s  %s\n", padRight(r[0], width), r[1]) //nolint:errcheck
	}
	fmt.Fprintln(w, strings.Repeat("─", width+2+24)) //nolint:errcheck
}

// padRight pads s with spaces so its terminal display width reaches width.
func padRight(s string, width int) string {
	sw := runewidth.StringWidth(s)
	if sw >= width {
		return s
	}
	return s + strings.Repeat(" ", width-sw)
}
