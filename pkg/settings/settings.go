// Package settings persists the user-managed API settings as a YAML file.
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dtnitsch/llm-web-digest/models"
	"github.com/dtnitsch/llm-web-digest/pkg/storage"
)

const (
	AppDirName      = "llm-web-digest"
	DefaultFileName = "settings.yaml"
)

// ErrEmptySettings is returned by Save when no value is set at all.
var ErrEmptySettings = errors.New("refusing to save empty settings")

// envOverrides maps settings keys to environment variables consulted on Load.
var envOverrides = map[string]string{
	models.KeyAnalysisAPIKey: "LWD_ANALYSIS_API_KEY",
	models.KeySyncAPIURL:     "LWD_SYNC_API_URL",
	models.KeySyncAPIKey:     "LWD_SYNC_API_KEY",
	models.KeySyncDatasetID:  "LWD_SYNC_DATASET_ID",
}

// EnvVar returns the environment variable that overrides key.
func EnvVar(key string) string {
	return envOverrides[key]
}

// Store reads and writes one settings file.
type Store struct {
	path   string
	getenv func(string) string
}

// DefaultPath returns settings.yaml inside the user config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(dir, AppDirName, DefaultFileName), nil
}

// New returns a Store for path. Environment overrides are read with os.Getenv.
func New(path string) *Store {
	return &Store{path: path, getenv: os.Getenv}
}

// Path returns the settings file location.
func (s *Store) Path() string {
	return s.path
}

// Load returns the stored settings with environment overrides applied.
// A missing file yields empty settings.
func (s *Store) Load() (models.Settings, error) {
	stored, err := s.LoadFile()
	if err != nil {
		return models.Settings{}, err
	}
	for _, key := range models.SettingsKeys {
		if v := strings.TrimSpace(s.getenv(envOverrides[key])); v != "" {
			_ = stored.Set(key, v) // keys come from SettingsKeys
		}
	}
	return stored, nil
}

// LoadFile returns only what is in the file, ignoring the environment.
func (s *Store) LoadFile() (models.Settings, error) {
	var stored models.Settings
	data, err := storage.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return stored, nil
	}
	if err != nil {
		return stored, fmt.Errorf("failed to load settings: %w", err)
	}
	if err := yaml.Unmarshal(data, &stored); err != nil {
		return models.Settings{}, fmt.Errorf("failed to parse settings file %s: %w", s.path, err)
	}
	return stored, nil
}

// Save replaces the settings file. It refuses an all-empty settings value
// and values that fail validation.
func (s *Store) Save(settings models.Settings) error {
	if settings.IsEmpty() {
		return ErrEmptySettings
	}
	if err := settings.Validate(); err != nil {
		return err
	}

	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := storage.SaveFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// Get returns one effective value (file plus environment).
func (s *Store) Get(key string) (string, error) {
	current, err := s.Load()
	if err != nil {
		return "", err
	}
	return current.Get(key)
}

// Set updates one key in the file and leaves the others untouched.
// Environment overrides are not written back.
func (s *Store) Set(key, value string) error {
	current, err := s.LoadFile()
	if err != nil {
		return err
	}
	if err := current.Set(key, value); err != nil {
		return err
	}
	return s.Save(current)
}
