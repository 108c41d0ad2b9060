package settings

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/dtnitsch/llm-web-digest/internal/common"
	"github.com/dtnitsch/llm-web-digest/models"
	settingspkg "github.com/dtnitsch/llm-web-digest/pkg/settings"
)

// flagNames maps settings keys to the flags accepted by 'settings save'.
var flagNames = map[string]string{
	models.KeyAnalysisAPIKey: "analysis-api-key",
	models.KeySyncAPIURL:     "sync-api-url",
	models.KeySyncAPIKey:     "sync-api-key",
	models.KeySyncDatasetID:  "sync-dataset-id",
}

// FlagName returns the 'settings save' flag for key.
func FlagName(key string) string {
	return flagNames[key]
}

func ShowAction(c *cli.Context) error {
	store, err := common.OpenSettings(c)
	if err != nil {
		return err
	}
	current, err := store.Load()
	if err != nil {
		return err
	}
	if !c.Bool("reveal") {
		current = current.Masked()
	}
	return writeSettings(os.Stdout, store.Path(), current)
}

func writeSettings(w io.Writer, path string, s models.Settings) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	fmt.Fprintf(w, "# %s\n", path)
	if _, err := w.Write(data); err != nil {
		return err
	}
	fmt.Fprintf(w, "# pipeline ready: %t, knowledge sync: %t\n", s.IsPipelineReady(), s.IsSyncConfigured())
	return nil
}

func SetAction(c *cli.Context) error {
	if c.NArg() != 2 {
		return cli.Exit("usage: lwd settings set <key> <value>", 2)
	}
	key, value := c.Args().Get(0), c.Args().Get(1)

	store, err := common.OpenSettings(c)
	if err != nil {
		return err
	}
	if err := store.Set(key, value); err != nil {
		return err
	}
	common.FromContext(c).Logger.Info("setting updated", "key", key, "path", store.Path())
	fmt.Printf("Saved %s\n", key)
	return nil
}

// SaveAction replaces the whole settings file from flags, like the settings
// form does: unset flags clear their value.
func SaveAction(c *cli.Context) error {
	var next models.Settings
	for _, key := range models.SettingsKeys {
		if err := next.Set(key, c.String(flagNames[key])); err != nil {
			return err
		}
	}

	store, err := common.OpenSettings(c)
	if err != nil {
		return err
	}
	if err := store.Save(next); err != nil {
		if errors.Is(err, settingspkg.ErrEmptySettings) {
			return cli.Exit("nothing to save: pass at least one value", 2)
		}
		return err
	}
	fmt.Printf("Settings saved to %s\n", store.Path())
	return nil
}
