// Package export writes stored records as a spreadsheet-friendly CSV file.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/dtnitsch/llm-web-digest/models"
	"github.com/dtnitsch/llm-web-digest/pkg/storage"
)

const (
	// LayoutDigest is date, summary, keywords, url, notes.
	LayoutDigest = "digest"
	// LayoutTitled leads with the title and keeps notes last.
	LayoutTitled = "titled"

	untitled = "未命名文章"
)

// utf8BOM lets spreadsheet applications detect the encoding.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var headers = map[string][]string{
	LayoutDigest: {"日期", "要点", "关键词", "原始网址", "备注"},
	LayoutTitled: {"标题", "URL", "日期", "摘要", "关键词", "备注"},
}

// Header returns the header row for layout.
func Header(layout string) ([]string, error) {
	h, ok := headers[layout]
	if !ok {
		return nil, fmt.Errorf("unknown export layout %q (want %s or %s)", layout, LayoutDigest, LayoutTitled)
	}
	return h, nil
}

func row(layout string, r models.Record) []string {
	if layout == LayoutTitled {
		title := r.Title
		if strings.TrimSpace(title) == "" {
			title = untitled
		}
		return []string{title, r.URL, r.Date, r.Summary, r.Keywords, r.Notes}
	}
	return []string{r.Date, r.Summary, r.Keywords, r.URL, r.Notes}
}

// WriteCSV writes the BOM, a header row and one row per record, newest first.
// The input slice is not reordered.
func WriteCSV(w io.Writer, records []models.Record, layout string) error {
	header, err := Header(layout)
	if err != nil {
		return err
	}

	sorted := make([]models.Record, len(records))
	copy(sorted, records)
	models.SortNewestFirst(sorted)

	if _, err := w.Write(utf8BOM); err != nil {
		return fmt.Errorf("failed to write BOM: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, r := range sorted {
		if err := cw.Write(row(layout, r)); err != nil {
			return fmt.Errorf("failed to write record %d: %w", r.ID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}

// FileName returns 知识收藏_YYYYMMDD_HHMM.csv for now.
func FileName(now time.Time) string {
	return fmt.Sprintf("知识收藏_%s.csv", now.Format("20060102_1504"))
}

// ExportFile writes records to dir/FileName(now) and returns the path.
func ExportFile(dir string, records []models.Record, layout string, now time.Time) (string, error) {
	var buf strings.Builder
	if err := WriteCSV(&buf, records, layout); err != nil {
		return "", err
	}

	path := filepath.Join(dir, FileName(now))
	if err := storage.SaveFile(path, []byte(buf.String()), 0o644); err != nil {
		return "", fmt.Errorf("failed to export records: %w", err)
	}
	return path, nil
}
