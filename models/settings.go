package models

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Settings keys as they appear in the settings file and on the command line.
const (
	KeyAnalysisAPIKey = "analysis_api_key"
	KeySyncAPIURL     = "sync_api_url"
	KeySyncAPIKey     = "sync_api_key"
	KeySyncDatasetID  = "sync_dataset_id"
)

// SettingsKeys lists every settings key in display order.
var SettingsKeys = []string{KeyAnalysisAPIKey, KeySyncAPIURL, KeySyncAPIKey, KeySyncDatasetID}

// Settings holds the four user-managed configuration values.
// Only AnalysisAPIKey is required to run a capture; the three sync values
// enable knowledge-base forwarding when all are present.
type Settings struct {
	AnalysisAPIKey string `yaml:"analysis_api_key" validate:"omitempty,printascii"`
	SyncAPIURL     string `yaml:"sync_api_url" validate:"omitempty,url"`
	SyncAPIKey     string `yaml:"sync_api_key" validate:"omitempty,printascii"`
	SyncDatasetID  string `yaml:"sync_dataset_id" validate:"omitempty,printascii"`
}

var settingsValidator = validator.New(validator.WithRequiredStructEnabled())

// IsPipelineReady reports whether a capture may start.
func (s Settings) IsPipelineReady() bool {
	return strings.TrimSpace(s.AnalysisAPIKey) != ""
}

// IsSyncConfigured reports whether all knowledge-base settings are present.
func (s Settings) IsSyncConfigured() bool {
	return strings.TrimSpace(s.SyncAPIURL) != "" &&
		strings.TrimSpace(s.SyncAPIKey) != "" &&
		strings.TrimSpace(s.SyncDatasetID) != ""
}

// IsEmpty reports whether no value is set at all.
func (s Settings) IsEmpty() bool {
	return s.AnalysisAPIKey == "" && s.SyncAPIURL == "" && s.SyncAPIKey == "" && s.SyncDatasetID == ""
}

// Validate checks the format of the values that are set.
func (s Settings) Validate() error {
	if err := settingsValidator.Struct(s); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	return nil
}

// Get returns the value stored under key.
func (s Settings) Get(key string) (string, error) {
	switch key {
	case KeyAnalysisAPIKey:
		return s.AnalysisAPIKey, nil
	case KeySyncAPIURL:
		return s.SyncAPIURL, nil
	case KeySyncAPIKey:
		return s.SyncAPIKey, nil
	case KeySyncDatasetID:
		return s.SyncDatasetID, nil
	}
	return "", fmt.Errorf("unknown settings key: %s", key)
}

// Set stores value under key. Values are trimmed.
func (s *Settings) Set(key, value string) error {
	value = strings.TrimSpace(value)
	switch key {
	case KeyAnalysisAPIKey:
		s.AnalysisAPIKey = value
	case KeySyncAPIURL:
		s.SyncAPIURL = value
	case KeySyncAPIKey:
		s.SyncAPIKey = value
	case KeySyncDatasetID:
		s.SyncDatasetID = value
	default:
		return fmt.Errorf("unknown settings key: %s", key)
	}
	return nil
}

// Masked returns a copy with secrets shortened for display.
func (s Settings) Masked() Settings {
	s.AnalysisAPIKey = mask(s.AnalysisAPIKey)
	s.SyncAPIKey = mask(s.SyncAPIKey)
	return s
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return strings.Repeat("*", len(secret))
	}
	return secret[:4] + strings.Repeat("*", len(secret)-8) + secret[len(secret)-4:]
}
