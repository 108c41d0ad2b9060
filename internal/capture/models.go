package capture

// ResultOutput is the printed outcome of one URL.
type ResultOutput struct {
	URL        string   `yaml:"url"`
	Status     string   `yaml:"status"`
	RecordID   int64    `yaml:"record_id,omitempty"`
	Title      string   `yaml:"title,omitempty"`
	Summary    string   `yaml:"summary,omitempty"`
	Keywords   []string `yaml:"keywords,omitempty"`
	SyncStatus string   `yaml:"sync,omitempty"`
	DocumentID string   `yaml:"document_id,omitempty"`
	Error      string   `yaml:"error,omitempty"`
	ErrorType  string   `yaml:"error_type,omitempty"`
}

// FinalOutput is the YAML document printed to stdout after a capture run.
type FinalOutput struct {
	Status  string         `yaml:"status"`
	Results []ResultOutput `yaml:"results"`
	Stats   Stats          `yaml:"stats"`
}

// Stats summarizes the run.
type Stats struct {
	TotalURLs        int     `yaml:"total_urls"`
	Successful       int     `yaml:"successful"`
	Failed           int     `yaml:"failed"`
	Synced           int     `yaml:"synced"`
	TotalTimeSeconds float64 `yaml:"total_time_seconds"`
}
