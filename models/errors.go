package models

import (
	"errors"
	"fmt"
)

// ErrNoContent is the cause carried by ExtractionError when a page yields no text.
var ErrNoContent = errors.New("no extractable content")

// ConfigError reports a missing or invalid required setting.
type ConfigError struct {
	Key string
	Msg string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: %s: %s", e.Key, e.Msg)
}

// ExtractionError reports that no text could be extracted from a page.
type ExtractionError struct {
	URL string
	Err error
}

func (e *ExtractionError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("extraction error: %v", e.Err)
	}
	return fmt.Sprintf("extraction error for %s: %v", e.URL, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// FetchError reports that a page could not be loaded from its source.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to load page %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// APIError reports a non-success HTTP status from an external API.
type APIError struct {
	API        string // "analysis" or "sync"
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s api error (status %d): %s", e.API, e.StatusCode, e.Message)
}

// ResponseParseError reports a model reply that could not be decoded as JSON.
type ResponseParseError struct {
	Reason string
	Raw    string
}

func (e *ResponseParseError) Error() string {
	return fmt.Sprintf("failed to parse model response: %s", e.Reason)
}

// ResponseShapeError reports a decoded reply missing required fields.
type ResponseShapeError struct {
	Field  string
	Reason string
}

func (e *ResponseShapeError) Error() string {
	return fmt.Sprintf("unexpected model response shape: %s %s", e.Field, e.Reason)
}

// PersistenceError reports a record store open, read or write failure.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("record store %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// SyncError reports a knowledge-base forwarding failure. Always non-fatal.
type SyncError struct {
	Err error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("knowledge sync failed: %v", e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }
