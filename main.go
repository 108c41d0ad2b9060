package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/llm-web-digest/internal/capture"
	"github.com/dtnitsch/llm-web-digest/internal/common"
	"github.com/dtnitsch/llm-web-digest/internal/records"
	"github.com/dtnitsch/llm-web-digest/internal/settings"
	"github.com/dtnitsch/llm-web-digest/models"
	"github.com/dtnitsch/llm-web-digest/pkg/export"
	"github.com/dtnitsch/llm-web-digest/pkg/extractor"
	"github.com/dtnitsch/llm-web-digest/pkg/fetcher"
	"github.com/dtnitsch/llm-web-digest/pkg/help"
	"github.com/dtnitsch/llm-web-digest/pkg/kbsync"
	"github.com/dtnitsch/llm-web-digest/pkg/pipeline"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(exitCode(newApp().RunContext(ctx, os.Args)))
}

// exitCode prints err and maps it to the process exit code: 0 success,
// 1 partial failure, 2 complete failure or usage error.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var ec cli.ExitCoder
	if errors.As(err, &ec) {
		if msg := err.Error(); msg != "" {
			fmt.Fprintln(os.Stderr, "Error:", msg)
		}
		return ec.ExitCode()
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
	return 2
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "lwd",
		Usage: "Capture web pages, digest them with an LLM and keep the results",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "db", Usage: "record database path (default: user config dir)"},
			&cli.StringFlag{Name: "settings", Usage: "settings file path (default: user config dir)"},
			&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "only log errors"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "log debug details"},
			&cli.StringFlag{Name: "log-file", Usage: "also write JSON logs to this file (rotated)"},
			&cli.StringFlag{Name: "metrics-file", Usage: "write Prometheus metrics to this file on exit"},
		},
		Before: common.Setup,
		After:  common.Teardown,
		// Exit codes are handled in main so After still runs on failure.
		ExitErrHandler: func(*cli.Context, error) {},
		Commands: []*cli.Command{
			captureCommand(),
			recordsCommand(),
			settingsCommand(),
			{
				Name:  "quickstart",
				Usage: "Print a quick start guide",
				Action: func(c *cli.Context) error {
					fmt.Print(help.ColdstartYAML)
					return nil
				},
			},
		},
	}
}

func captureCommand() *cli.Command {
	return &cli.Command{
		Name:      "capture",
		Usage:     "Extract, analyze and store one or more pages",
		UsageText: `lwd capture --url "https://example.com/post" [--url ...]`,
		Action:    capture.CaptureAction,
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "url", Aliases: []string{"u"}, Usage: "page URL (repeatable or comma-separated)", Required: true},
			&cli.StringFlag{Name: "source", Value: fetcher.SourceHTTP, Usage: "page source: http, browser or file"},
			&cli.StringFlag{Name: "html-file", Usage: "HTML snapshot for --source file (takes a single --url)"},
			&cli.BoolFlag{Name: "show-browser", Usage: "run the browser source with a visible window"},
			&cli.StringFlag{Name: "extractor", Value: extractor.StrategySelectors, Usage: "text extraction: selectors or readability"},
			&cli.IntFlag{Name: "workers", Value: pipeline.DefaultWorkers, Usage: "concurrent captures"},
			&cli.DurationFlag{Name: "timeout", Value: 30 * time.Second, Usage: "page load and sync request timeout"},
			&cli.DurationFlag{Name: "analysis-timeout", Value: 2 * time.Minute, Usage: "analysis request timeout"},
			&cli.StringFlag{Name: "model", Usage: "analysis model identifier"},
			&cli.StringFlag{Name: "analysis-url", Usage: "analysis API base URL"},
			&cli.BoolFlag{Name: "no-language-hint", Usage: "do not ask for the digest in the page language"},
			&cli.StringFlag{Name: "sync-layout", Value: kbsync.LayoutCreateByText, Usage: "knowledge base request layout: create-by-text or documents"},
			&cli.StringFlag{Name: "format", Value: "yaml", Usage: "output: yaml or none"},
		},
	}
}

func recordsCommand() *cli.Command {
	formatFlag := func() cli.Flag {
		return &cli.StringFlag{Name: "format", Value: "table", Usage: "output: table or yaml"}
	}
	return &cli.Command{
		Name:  "records",
		Usage: "Browse, annotate, export and clear stored records",
		Subcommands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List records, newest first",
				Action: records.ListAction,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "search", Aliases: []string{"s"}, Usage: "case-insensitive text filter"},
					&cli.StringFlag{Name: "url", Usage: "only records captured from this URL"},
					&cli.StringFlag{Name: "date", Usage: "only records captured on this date (" + models.DateLayout + ")"},
					&cli.IntFlag{Name: "limit", Usage: "maximum records to show"},
					formatFlag(),
				},
			},
			{
				Name:      "show",
				Usage:     "Show one record",
				ArgsUsage: "<id>",
				Action:    records.ShowAction,
				Flags:     []cli.Flag{formatFlag()},
			},
			{
				Name:      "notes",
				Usage:     "Replace the notes of a record",
				ArgsUsage: "<id> <text>",
				Action:    records.NotesAction,
			},
			{
				Name:   "keywords",
				Usage:  "Tally keywords across all records",
				Action: records.KeywordsAction,
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "top", Value: 20, Usage: "number of keywords (0 for all)"},
					&cli.StringFlag{Name: "format", Value: "text", Usage: "output: text or yaml"},
				},
			},
			{
				Name:   "export",
				Usage:  "Export all records to a CSV file",
				Action: records.ExportAction,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "dir", Value: ".", Usage: "output directory"},
					&cli.StringFlag{Name: "layout", Value: export.LayoutDigest, Usage: "columns: digest or titled"},
				},
			},
			{
				Name:   "clear",
				Usage:  "Delete all records",
				Action: records.ClearAction,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "yes", Usage: "confirm deletion"},
				},
			},
		},
	}
}

func settingsCommand() *cli.Command {
	saveFlags := make([]cli.Flag, 0, len(models.SettingsKeys))
	for _, key := range models.SettingsKeys {
		saveFlags = append(saveFlags, &cli.StringFlag{Name: settings.FlagName(key), Usage: key})
	}

	return &cli.Command{
		Name:  "settings",
		Usage: "Manage API settings",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Print the effective settings (secrets masked)",
				Action: settings.ShowAction,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "reveal", Usage: "print secrets in full"},
				},
			},
			{
				Name:      "set",
				Usage:     "Set one value",
				ArgsUsage: "<key> <value>",
				Action:    settings.SetAction,
			},
			{
				Name:   "save",
				Usage:  "Replace all settings at once",
				Action: settings.SaveAction,
				Flags:  saveFlags,
			},
		},
	}
}
