package records

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/dtnitsch/llm-web-digest/models"
)

// Column widths in terminal cells. Summaries and titles are often CJK, so
// widths are measured with runewidth rather than len.
const (
	idWidth      = 6
	dateWidth    = 10
	titleWidth   = 30
	urlWidth     = 40
	keywordWidth = 30
)

func cell(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	return runewidth.FillRight(runewidth.Truncate(s, width, "…"), width)
}

// writeTable prints records as fixed-width columns.
func writeTable(w io.Writer, records []models.Record) {
	fmt.Fprintf(w, "%s %s %s %s %s\n",
		cell("ID", idWidth), cell("Date", dateWidth), cell("Title", titleWidth),
		cell("URL", urlWidth), cell("Keywords", keywordWidth))
	fmt.Fprintln(w, strings.Repeat("-", idWidth+dateWidth+titleWidth+urlWidth+keywordWidth+4))

	for _, r := range records {
		fmt.Fprintf(w, "%s %s %s %s %s\n",
			cell(fmt.Sprint(r.ID), idWidth),
			cell(r.Date, dateWidth),
			cell(r.Title, titleWidth),
			cell(r.URL, urlWidth),
			cell(r.Keywords, keywordWidth),
		)
	}
}

// writeDetail prints every field of one record.
func writeDetail(w io.Writer, r models.Record) {
	title := r.Title
	if title == "" {
		title = "(untitled)"
	}
	fmt.Fprintf(w, "Record %d\n", r.ID)
	fmt.Fprintf(w, "Title:     %s\n", title)
	fmt.Fprintf(w, "URL:       %s\n", r.URL)
	fmt.Fprintf(w, "Captured:  %s (%s)\n", r.Date, r.Timestamp)
	fmt.Fprintf(w, "Keywords:  %s\n", r.Keywords)
	fmt.Fprintf(w, "\nSummary:\n%s\n", r.Summary)
	if r.Notes != "" {
		fmt.Fprintf(w, "\nNotes:\n%s\n", r.Notes)
	}
}
