// Package pipeline runs one capture: extract the page text, analyze it,
// persist the record and optionally forward the text to the knowledge base.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"github.com/dtnitsch/llm-web-digest/models"
	"github.com/dtnitsch/llm-web-digest/pkg/extractor"
)

// State is a step of the capture state machine.
type State string

const (
	StateIdle       State = "idle"
	StateExtracting State = "extracting"
	StateAnalyzing  State = "analyzing"
	StatePersisting State = "persisting"
	StateSyncing    State = "syncing"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// SyncStatus reports what happened to the optional knowledge-base step.
type SyncStatus string

const (
	SyncSynced        SyncStatus = "synced"
	SyncNotConfigured SyncStatus = "not-configured"
	SyncFailed        SyncStatus = "failed"
)

// Source yields the DOM of the page to capture.
type Source interface {
	Document(ctx context.Context, rawURL string) (*goquery.Document, error)
}

// Analyzer turns page text into a digest.
type Analyzer interface {
	Analyze(ctx context.Context, content, apiKey, pageURL string) (models.Analysis, error)
}

// RecordSaver persists a record and returns its id.
type RecordSaver interface {
	Save(ctx context.Context, rec models.Record) (int64, error)
}

// SettingsLoader returns the current settings. Called once per run.
type SettingsLoader interface {
	Load() (models.Settings, error)
}

// Syncer forwards page text to the knowledge base.
type Syncer interface {
	Sync(ctx context.Context, content, title, pageURL string) (models.SyncDocument, error)
}

// SyncerFactory builds a Syncer from settings that passed IsSyncConfigured.
type SyncerFactory func(models.Settings) (Syncer, error)

// Result is the outcome of a successful run.
type Result struct {
	CaptureID  string
	Page       models.Page
	Record     models.Record
	SyncStatus SyncStatus
	// SyncDocument is set only when SyncStatus is SyncSynced.
	SyncDocument models.SyncDocument
	Elapsed      time.Duration
}

// Pipeline wires the collaborators of a capture. It is safe for concurrent
// use as long as the collaborators are.
type Pipeline struct {
	source    Source
	extractor extractor.Extractor
	analyzer  Analyzer
	store     RecordSaver
	settings  SettingsLoader
	newSyncer SyncerFactory
	observers []Observer
	logger    *slog.Logger
	now       func() time.Time
}

type Option func(*Pipeline)

func WithSyncer(f SyncerFactory) Option     { return func(p *Pipeline) { p.newSyncer = f } }
func WithObserver(o Observer) Option        { return func(p *Pipeline) { p.observers = append(p.observers, o) } }
func WithLogger(l *slog.Logger) Option      { return func(p *Pipeline) { p.logger = l } }
func WithClock(now func() time.Time) Option { return func(p *Pipeline) { p.now = now } }

// New builds a pipeline. Without WithSyncer the sync step is always
// reported as not configured.
func New(source Source, ext extractor.Extractor, analyzer Analyzer, store RecordSaver, settings SettingsLoader, opts ...Option) *Pipeline {
	p := &Pipeline{
		source:    source,
		extractor: ext,
		analyzer:  analyzer,
		store:     store,
		settings:  settings,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// run tracks the state of one capture and notifies observers.
type run struct {
	p       *Pipeline
	id      string
	url     string
	state   State
	started time.Time
	logger  *slog.Logger
}

func (r *run) enter(next State, err error, status SyncStatus) {
	ev := Event{
		CaptureID:  r.id,
		URL:        r.url,
		From:       r.state,
		To:         next,
		Err:        err,
		SyncStatus: status,
		Elapsed:    r.p.now().Sub(r.started),
	}
	r.state = next
	r.logger.Debug("capture state", "from", ev.From, "to", ev.To)
	for _, o := range r.p.observers {
		o.Observe(ev)
	}
}

func (r *run) fail(err error) error {
	r.logger.Error("capture failed", "stage", r.state, "error", err)
	r.enter(StateFailed, err, "")
	return err
}

// Run captures one page. Errors from extraction, analysis and persistence are
// returned as produced so callers can match them with errors.As. A sync
// failure never fails the run; it is reported as SyncFailed.
func (p *Pipeline) Run(ctx context.Context, pageURL string) (Result, error) {
	r := &run{
		p:       p,
		id:      uuid.NewString(),
		url:     pageURL,
		state:   StateIdle,
		started: p.now(),
	}
	r.logger = p.logger.With("capture_id", r.id, "url", pageURL)

	settings, err := p.settings.Load()
	if err != nil {
		return Result{}, fmt.Errorf("failed to load settings: %w", err)
	}
	if !settings.IsPipelineReady() {
		return Result{}, &models.ConfigError{Key: models.KeyAnalysisAPIKey, Msg: "analysis API key is not set"}
	}

	r.enter(StateExtracting, nil, "")
	doc, err := p.source.Document(ctx, pageURL)
	if err != nil {
		return Result{}, r.fail(&models.FetchError{URL: pageURL, Err: err})
	}
	text, err := p.extractor.Extract(doc)
	if err != nil {
		return Result{}, r.fail(err)
	}
	capturedAt := p.now()
	page := models.Page{
		URL:        pageURL,
		Title:      extractor.Title(doc),
		Text:       text,
		CapturedAt: capturedAt,
	}
	r.logger.Info("page extracted", "chars", len([]rune(text)))

	r.enter(StateAnalyzing, nil, "")
	analysis, err := p.analyzer.Analyze(ctx, text, settings.AnalysisAPIKey, pageURL)
	if err != nil {
		return Result{}, r.fail(err)
	}

	r.enter(StatePersisting, nil, "")
	rec := BuildRecord(page, analysis)
	id, err := p.store.Save(ctx, rec)
	if err != nil {
		return Result{}, r.fail(err)
	}
	rec.ID = id
	r.logger.Info("record saved", "record_id", id)

	res := Result{
		CaptureID:  r.id,
		Page:       page,
		Record:     rec,
		SyncStatus: SyncNotConfigured,
	}

	if settings.IsSyncConfigured() && p.newSyncer != nil {
		r.enter(StateSyncing, nil, "")
		res.SyncDocument, res.SyncStatus = p.sync(ctx, r.logger, settings, page, rec.Title)
	}

	res.Elapsed = p.now().Sub(r.started)
	r.enter(StateDone, nil, res.SyncStatus)
	return res, nil
}

func (p *Pipeline) sync(ctx context.Context, logger *slog.Logger, settings models.Settings, page models.Page, title string) (models.SyncDocument, SyncStatus) {
	syncer, err := p.newSyncer(settings)
	if err != nil {
		logger.Warn("knowledge sync unavailable", "error", err)
		return models.SyncDocument{}, SyncFailed
	}
	doc, err := syncer.Sync(ctx, page.Text, title, page.URL)
	if err != nil {
		logger.Warn("knowledge sync failed", "error", err)
		return models.SyncDocument{}, SyncFailed
	}
	logger.Info("knowledge sync complete", "document_id", doc.ID, "document_name", doc.Name)
	return doc, SyncSynced
}

// BuildRecord combines the page snapshot and its analysis into a new record.
// The title falls back to the page <title>.
func BuildRecord(page models.Page, analysis models.Analysis) models.Record {
	title := analysis.Title
	if title == "" {
		title = page.Title
	}
	return models.Record{
		Title:     title,
		URL:       page.URL,
		Date:      page.CapturedAt.Format(models.DateLayout),
		Timestamp: page.CapturedAt.UTC().Format(models.TimestampLayout),
		Summary:   analysis.Summary,
		Keywords:  models.JoinKeywords(analysis.Keywords),
		Notes:     "",
	}
}
