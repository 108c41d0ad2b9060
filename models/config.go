// Package models defines data structures for capture, analysis and storage.
package models

import "time"

// CaptureConfig holds runtime configuration for capture operations.
// All values come from CLI flags, not the settings file.
type CaptureConfig struct {
	URLs        []string
	WorkerCount int
	Source      string // http, browser, file
	HTMLFile    string
	Extractor   string // selectors, readability
	Timeout     time.Duration
}
