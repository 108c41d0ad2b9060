package models

import "time"

// Page is the cleaned text snapshot of a single web page.
type Page struct {
	URL        string    `json:"url"`
	Title      string    `json:"title"`
	Text       string    `json:"text"`
	CapturedAt time.Time `json:"captured_at"`
}

// Analysis is the structured digest returned by the summarization model.
type Analysis struct {
	Title    string   `json:"title"`
	Summary  string   `json:"summary"`
	Keywords []string `json:"keywords"`
}

// SyncDocument is the handle of a document created in the knowledge base.
type SyncDocument struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
	// Raw holds the decoded response body for callers that need more fields.
	Raw map[string]any `json:"-"`
}
