package common

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/llm-web-digest/pkg/db"
	"github.com/dtnitsch/llm-web-digest/pkg/logging"
	"github.com/dtnitsch/llm-web-digest/pkg/metrics"
	"github.com/dtnitsch/llm-web-digest/pkg/settings"
)

const envKey = "lwd.env"

// Env is built once per invocation from the global flags.
type Env struct {
	Logger  *slog.Logger
	Metrics *metrics.Metrics

	closeLog func() error
}

// Setup is the App.Before hook.
func Setup(c *cli.Context) error {
	logger, closeLog, err := logging.New(os.Stderr, logging.Options{
		Quiet:   c.Bool("quiet"),
		Verbose: c.Bool("verbose"),
		LogFile: c.String("log-file"),
	})
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	if c.App.Metadata == nil {
		c.App.Metadata = map[string]any{}
	}
	c.App.Metadata[envKey] = &Env{Logger: logger, Metrics: metrics.New(), closeLog: closeLog}
	return nil
}

// Teardown is the App.After hook. It writes --metrics-file and closes the
// log file.
func Teardown(c *cli.Context) error {
	env := FromContext(c)
	var metricsErr error
	if path := c.String("metrics-file"); path != "" {
		metricsErr = env.Metrics.WriteFile(path)
	}
	if err := env.closeLog(); err != nil && metricsErr == nil {
		return fmt.Errorf("failed to close log file: %w", err)
	}
	return metricsErr
}

// FromContext returns the Env created by Setup, or a stderr-only Env when the
// command runs without the hook (tests).
func FromContext(c *cli.Context) *Env {
	if env, ok := c.App.Metadata[envKey].(*Env); ok {
		return env
	}
	return &Env{
		Logger:   slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})),
		Metrics:  metrics.New(),
		closeLog: func() error { return nil },
	}
}

// DBPath returns --db or the default database location.
func DBPath(c *cli.Context) (string, error) {
	if p := c.String("db"); p != "" {
		return p, nil
	}
	return db.DefaultPath()
}

// SettingsPath returns --settings or the default settings file location.
func SettingsPath(c *cli.Context) (string, error) {
	if p := c.String("settings"); p != "" {
		return p, nil
	}
	return settings.DefaultPath()
}

// OpenStore connects to the record store selected by the global flags.
func OpenStore(c *cli.Context, logger *slog.Logger) (*db.Store, error) {
	path, err := DBPath(c)
	if err != nil {
		return nil, err
	}
	return db.Connect(Context(c), path, logger)
}

// OpenSettings returns the settings store selected by the global flags.
func OpenSettings(c *cli.Context) (*settings.Store, error) {
	path, err := SettingsPath(c)
	if err != nil {
		return nil, err
	}
	return settings.New(path), nil
}

// Context returns the command context, never nil.
func Context(c *cli.Context) context.Context {
	if c.Context != nil {
		return c.Context
	}
	return context.Background()
}
