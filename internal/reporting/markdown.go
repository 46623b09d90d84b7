package reporting

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/spboyer/tuneval/internal/models"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// maxMarkdownSamples bounds the sample table in the summary.
const maxMarkdownSamples = 20

// Markdown renders a summary of outcome for PR comments and job summaries.
func Markdown(outcome *models.EvaluationOutcome) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Evaluation %s\n\n", outcome.RunID)
	fmt.Fprintf(&b, "- **Model:** `%s`\n", outcome.Model.Target())
	if outcome.Setup.BaseModel != "" {
		fmt.Fprintf(&b, "- **Base model:** `%s`\n", outcome.Setup.BaseModel)
	}
	fmt.Fprintf(&b, "- **Status:** %s\n", outcome.Status)
	fmt.Fprintf(&b, "- **Duration:** %v\n\n", time.Duration(outcome.DurationMs)*time.Millisecond)

	if s := outcome.Scores; s != nil {
		b.WriteString("## Scores\n\n")
		b.WriteString("| Metric | Value |\n|---|---|\n")
		fmt.Fprintf(&b, "| Precision overlap (BLEU-%d) | %.4f |\n", s.BLEU.MaxOrder, s.PrecisionOverlap)
		fmt.Fprintf(&b, "| Recall overlap (ROUGE-1 recall) | %.4f |\n", s.RecallOverlap)
		fmt.Fprintf(&b, "| ROUGE-1 F | %.4f |\n", s.ROUGE.Rouge1)
		fmt.Fprintf(&b, "| ROUGE-2 F | %.4f |\n", s.ROUGE.Rouge2)
		fmt.Fprintf(&b, "| ROUGE-L F | %.4f |\n", s.ROUGE.RougeL)
		fmt.Fprintf(&b, "| Brevity penalty | %.4f |\n", s.BLEU.BrevityPenalty)
		if ci := s.RecallCI; ci != nil {
			fmt.Fprintf(&b, "| Recall %.0f%% CI | %.4f – %.4f |\n", ci.ConfidenceLevel*100, ci.Lower, ci.Upper)
		}
		b.WriteString("\n")
	}

	c := outcome.Counts
	b.WriteString("## Inputs\n\n")
	b.WriteString("| Inputs | Too long | Retained | Generated | Empty | Failed | Cached |\n|---|---|---|---|---|---|---|\n")
	fmt.Fprintf(&b, "| %d | %d | %d | %d | %d | %d | %d |\n\n", c.Inputs, c.TooLong, c.Retained, c.Generated, c.EmptyResponse, c.Failed, c.Cached)

	if len(outcome.Failures) > 0 {
		b.WriteString("## Threshold failures\n\n")
		for _, f := range outcome.Failures {
			fmt.Fprintf(&b, "- %s\n", f)
		}
		b.WriteString("\n")
	}

	if len(outcome.Samples) > 0 {
		var perSample []float64
		if outcome.Scores != nil {
			perSample = outcome.Scores.ROUGE.PerSampleRecall
		}

		b.WriteString("## Samples\n\n")
		b.WriteString("| # | Input | ROUGE-1 recall |\n|---|---|---|\n")
		for i, s := range outcome.Samples {
			if i == maxMarkdownSamples {
				fmt.Fprintf(&b, "\n_%d more not shown._\n", len(outcome.Samples)-maxMarkdownSamples)
				break
			}
			recall := "n/a"
			if i < len(perSample) {
				recall = fmt.Sprintf("%.2f", perSample[i])
			}
			fmt.Fprintf(&b, "| %d | %s | %s |\n", i+1, escapeCell(truncate(firstLine(s.Input), 80)), recall)
		}
	}

	return b.String()
}

// HTML renders Markdown(outcome) as a standalone HTML document.
func HTML(outcome *models.EvaluationOutcome) ([]byte, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))

	var body bytes.Buffer
	if err := md.Convert([]byte(Markdown(outcome)), &body); err != nil {
		return nil, fmt.Errorf("rendering markdown: %w", err)
	}

	var out bytes.Buffer
	out.WriteString("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>tuneval ")
	out.WriteString(escapeHTMLText(outcome.RunID))
	out.WriteString("</title></head><body>\n")
	out.Write(body.Bytes())
	out.WriteString("</body></html>\n")
	return out.Bytes(), nil
}

func escapeCell(s string) string {
	return strings.NewReplacer("|", `\|`, "<", "&lt;", ">", "&gt;").Replace(s)
}

func escapeHTMLText(s string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;").Replace(s)
}
