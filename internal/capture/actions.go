package capture

import (
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"time"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/dtnitsch/llm-web-digest/internal/common"
	"github.com/dtnitsch/llm-web-digest/models"
	"github.com/dtnitsch/llm-web-digest/pkg/analysis"
	"github.com/dtnitsch/llm-web-digest/pkg/extractor"
	"github.com/dtnitsch/llm-web-digest/pkg/fetcher"
	"github.com/dtnitsch/llm-web-digest/pkg/kbsync"
	"github.com/dtnitsch/llm-web-digest/pkg/pipeline"
)

func CaptureAction(c *cli.Context) error {
	env := common.FromContext(c)
	logger := env.Logger
	ctx := common.Context(c)
	startTime := time.Now()

	// Initialize runtime config from CLI flags
	config := &models.CaptureConfig{
		URLs:        common.SplitURLs(c.StringSlice("url")),
		WorkerCount: c.Int("workers"),
		Source:      c.String("source"),
		HTMLFile:    c.String("html-file"),
		Extractor:   c.String("extractor"),
		Timeout:     c.Duration("timeout"),
	}
	if len(config.URLs) == 0 {
		return cli.Exit("no URLs given; use --url", 2)
	}

	urls, invalid := common.SanitizeAndValidateURLs(config.URLs)
	if len(invalid) > 0 {
		fmt.Fprintln(os.Stderr, "Error: invalid URLs (must be http or https):")
		for _, u := range invalid {
			fmt.Fprintf(os.Stderr, "  - %s\n", u)
		}
		return cli.Exit("", 2)
	}
	// A snapshot holds one page.
	if config.Source == fetcher.SourceFile && len(urls) > 1 {
		return cli.Exit(fmt.Sprintf("--source file captures one page; got %d URLs", len(urls)), 2)
	}

	settingsStore, err := common.OpenSettings(c)
	if err != nil {
		return err
	}
	current, err := settingsStore.Load()
	if err != nil {
		return err
	}
	// Checked here as well as in the pipeline so nothing is opened or fetched.
	if !current.IsPipelineReady() {
		return cli.Exit(fmt.Sprintf("analysis API key is not set; run 'lwd settings set %s <key>' or set %s",
			models.KeyAnalysisAPIKey, "LWD_ANALYSIS_API_KEY"), 2)
	}

	source, err := fetcher.NewSource(config.Source, fetcher.Options{
		Timeout:  config.Timeout,
		HTMLFile: config.HTMLFile,
		Headless: !c.Bool("show-browser"),
	})
	if err != nil {
		return err
	}
	ext, err := extractor.New(config.Extractor)
	if err != nil {
		return err
	}
	syncLayout := c.String("sync-layout")
	if syncLayout != kbsync.LayoutCreateByText && syncLayout != kbsync.LayoutDocuments {
		return fmt.Errorf("unknown sync layout: %s", syncLayout)
	}

	store, err := common.OpenStore(c, logger)
	if err != nil {
		return err
	}

	analyzerOpts := []analysis.Option{
		analysis.WithLogger(logger),
		analysis.WithHTTPClient(&http.Client{Timeout: c.Duration("analysis-timeout")}),
		analysis.WithLanguageHint(!c.Bool("no-language-hint")),
	}
	if m := c.String("model"); m != "" {
		analyzerOpts = append(analyzerOpts, analysis.WithModel(m))
	}
	if u := c.String("analysis-url"); u != "" {
		analyzerOpts = append(analyzerOpts, analysis.WithBaseURL(u))
	}

	opts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithObserver(pipeline.MetricsObserver(env.Metrics)),
		pipeline.WithSyncer(func(s models.Settings) (pipeline.Syncer, error) {
			client, err := kbsync.NewFromSettings(s,
				kbsync.WithLayout(syncLayout),
				kbsync.WithHTTPClient(&http.Client{Timeout: config.Timeout}),
			)
			if err != nil {
				return nil, err
			}
			return client, nil
		}),
	}
	if !c.Bool("quiet") {
		opts = append(opts, pipeline.WithObserver(pipeline.ProgressObserver(os.Stderr)))
	}

	p := pipeline.New(source, ext, analysis.New(analyzerOpts...), store, settingsStore, opts...)

	logger.Info("starting capture", "urls", len(urls), "workers", config.WorkerCount, "source", config.Source)
	outcomes := p.RunBatch(ctx, urls, config.WorkerCount)

	finalOutput := buildOutput(outcomes, time.Since(startTime))
	if err := writeOutput(os.Stdout, c.String("format"), finalOutput); err != nil {
		return err
	}

	switch finalOutput.Status {
	case "failed":
		if len(outcomes) == 1 {
			return cli.Exit(outcomes[0].Err.Error(), 2)
		}
		return cli.Exit("all captures failed", 2)
	case "partial":
		return cli.Exit(fmt.Sprintf("%d of %d captures failed", finalOutput.Stats.Failed, finalOutput.Stats.TotalURLs), 1)
	}
	return nil
}

func buildOutput(outcomes []pipeline.Outcome, elapsed time.Duration) *FinalOutput {
	out := &FinalOutput{Results: make([]ResultOutput, 0, len(outcomes))}
	for _, o := range outcomes {
		if o.Err != nil {
			out.Stats.Failed++
			out.Results = append(out.Results, ResultOutput{
				URL:       o.URL,
				Status:    "failed",
				Error:     o.Err.Error(),
				ErrorType: ErrorType(o.Err),
			})
			continue
		}

		out.Stats.Successful++
		if o.Result.SyncStatus == pipeline.SyncSynced {
			out.Stats.Synced++
		}
		rec := o.Result.Record
		out.Results = append(out.Results, ResultOutput{
			URL:        o.URL,
			Status:     "success",
			RecordID:   rec.ID,
			Title:      rec.Title,
			Summary:    rec.Summary,
			Keywords:   models.SplitKeywords(rec.Keywords),
			SyncStatus: string(o.Result.SyncStatus),
			DocumentID: o.Result.SyncDocument.ID,
		})
	}

	out.Stats.TotalURLs = len(outcomes)
	out.Stats.TotalTimeSeconds = math.Round(elapsed.Seconds()*100) / 100

	switch {
	case out.Stats.Failed == 0:
		out.Status = "success"
	case out.Stats.Successful == 0:
		out.Status = "failed"
	default:
		out.Status = "partial"
	}
	return out
}

// ErrorType classifies a capture error for the output document.
func ErrorType(err error) string {
	var (
		cfgErr   *models.ConfigError
		exErr    *models.ExtractionError
		apiErr   *models.APIError
		parseErr *models.ResponseParseError
		shapeErr *models.ResponseShapeError
		pErr     *models.PersistenceError
		fetchErr *models.FetchError
	)
	switch {
	case errors.As(err, &cfgErr):
		return "config_error"
	case errors.As(err, &exErr):
		return "extraction_error"
	case errors.As(err, &apiErr):
		return "api_error"
	case errors.As(err, &parseErr):
		return "response_parse_error"
	case errors.As(err, &shapeErr):
		return "response_shape_error"
	case errors.As(err, &pErr):
		return "persistence_error"
	case errors.As(err, &fetchErr):
		return "fetch_error"
	}
	return "unknown_error"
}

func writeOutput(w io.Writer, format string, out *FinalOutput) error {
	switch format {
	case "", "yaml":
		data, err := yaml.Marshal(out)
		if err != nil {
			return fmt.Errorf("failed to marshal output: %w", err)
		}
		_, err = w.Write(data)
		return err
	case "none":
		return nil
	}
	return fmt.Errorf("unknown output format: %s", format)
}
