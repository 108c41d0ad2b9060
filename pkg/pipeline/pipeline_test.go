package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/dtnitsch/llm-web-digest/models"
	"github.com/dtnitsch/llm-web-digest/pkg/analysis"
	"github.com/dtnitsch/llm-web-digest/pkg/db"
	"github.com/dtnitsch/llm-web-digest/pkg/extractor"
	"github.com/dtnitsch/llm-web-digest/pkg/kbsync"
	"github.com/dtnitsch/llm-web-digest/pkg/metrics"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var fixedNow = time.Date(2024, 3, 5, 10, 30, 0, 123_000_000, time.UTC)

func clock() time.Time { return fixedNow }

type fakeSource struct {
	pages map[string]string
	calls atomic.Int32
}

func (f *fakeSource) Document(_ context.Context, rawURL string) (*goquery.Document, error) {
	f.calls.Add(1)
	html, ok := f.pages[rawURL]
	if !ok {
		return nil, fmt.Errorf("failed to fetch HTML, status code: %d", http.StatusNotFound)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	doc.Url, _ = url.Parse(rawURL)
	return doc, nil
}

type fakeAnalyzer struct {
	fn    func(content, apiKey, pageURL string) (models.Analysis, error)
	calls atomic.Int32
}

func (f *fakeAnalyzer) Analyze(_ context.Context, content, apiKey, pageURL string) (models.Analysis, error) {
	f.calls.Add(1)
	return f.fn(content, apiKey, pageURL)
}

type fakeStore struct {
	mu      sync.Mutex
	records []models.Record
	err     error
}

func (f *fakeStore) Save(_ context.Context, rec models.Record) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	rec.ID = int64(len(f.records) + 1)
	f.records = append(f.records, rec)
	return rec.ID, nil
}

type staticSettings models.Settings

func (s staticSettings) Load() (models.Settings, error) { return models.Settings(s), nil }

type fakeSyncer struct {
	err   error
	calls atomic.Int32
}

func (f *fakeSyncer) Sync(_ context.Context, content, title, pageURL string) (models.SyncDocument, error) {
	f.calls.Add(1)
	if f.err != nil {
		return models.SyncDocument{}, &models.SyncError{Err: f.err}
	}
	return models.SyncDocument{ID: "doc-1", Name: title + "_1"}, nil
}

// recorder collects the transitions of every run.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Observe(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) states() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []State
	for _, ev := range r.events {
		out = append(out, ev.To)
	}
	return out
}

var readySettings = staticSettings{AnalysisAPIKey: "sk-test"}

var syncSettings = staticSettings{
	AnalysisAPIKey: "sk-test",
	SyncAPIURL:     "https://kb.example/v1",
	SyncAPIKey:     "kb-key",
	SyncDatasetID:  "ds-1",
}

func okAnalyzer() *fakeAnalyzer {
	return &fakeAnalyzer{fn: func(string, string, string) (models.Analysis, error) {
		return models.Analysis{Title: "T", Summary: "S", Keywords: []string{"a", "b"}}, nil
	}}
}

func selectorExtractor() extractor.Extractor {
	return &extractor.SelectorExtractor{Selectors: extractor.MainContentSelectors}
}

func TestRun_EndToEnd(t *testing.T) {
	ctx := context.Background()
	store, err := db.Connect(ctx, filepath.Join(t.TempDir(), "records.db"), nil)
	require.NoError(t, err)

	source := &fakeSource{pages: map[string]string{
		"https://example.com/post": "<html><head><title>Page</title></head><body>  Hello\n\nWorld  </body></html>",
	}}
	analyzer := &fakeAnalyzer{fn: func(content, apiKey, pageURL string) (models.Analysis, error) {
		assert.Equal(t, "Hello World", content)
		assert.Equal(t, "sk-test", apiKey)
		assert.Equal(t, "https://example.com/post", pageURL)
		return models.Analysis{Title: "T", Summary: "S", Keywords: []string{"a", "b"}}, nil
	}}
	rec := &recorder{}

	p := New(source, selectorExtractor(), analyzer, store, readySettings, WithClock(clock), WithObserver(rec))
	res, err := p.Run(ctx, "https://example.com/post")
	require.NoError(t, err)

	want := models.Record{
		ID:        res.Record.ID,
		Title:     "T",
		URL:       "https://example.com/post",
		Date:      "2024/03/05",
		Timestamp: "2024-03-05T10:30:00.123Z",
		Summary:   "S",
		Keywords:  "a, b",
	}
	if diff := cmp.Diff(want, res.Record); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}
	assert.NotZero(t, res.Record.ID)
	assert.Equal(t, SyncNotConfigured, res.SyncStatus)
	assert.NotEmpty(t, res.CaptureID)
	assert.Equal(t, "Page", res.Page.Title)

	stored, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	if diff := cmp.Diff(res.Record, stored[0]); diff != "" {
		t.Errorf("stored record mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, []State{StateExtracting, StateAnalyzing, StatePersisting, StateDone}, rec.states())
}

func TestRun_NotReadyFailsBeforeIO(t *testing.T) {
	source := &fakeSource{}
	analyzer := okAnalyzer()
	store := &fakeStore{}
	rec := &recorder{}

	p := New(source, selectorExtractor(), analyzer, store, staticSettings{SyncAPIURL: "https://kb.example"}, WithObserver(rec))
	_, err := p.Run(context.Background(), "https://example.com")

	var cfgErr *models.ConfigError
	require.True(t, errors.As(err, &cfgErr), "got %v", err)
	assert.Equal(t, models.KeyAnalysisAPIKey, cfgErr.Key)
	assert.Zero(t, source.calls.Load())
	assert.Zero(t, analyzer.calls.Load())
	assert.Empty(t, store.records)
	assert.Empty(t, rec.states())
}

func TestRun_StepFailures(t *testing.T) {
	const pageURL = "https://example.com/a"
	page := map[string]string{pageURL: "<html><body><p>text</p></body></html>"}

	tests := []struct {
		name       string
		pages      map[string]string
		analyzeErr error
		storeErr   error
		failedFrom State
		wantSaved  bool
		check      func(t *testing.T, err error)
	}{
		{
			name:       "page unavailable",
			pages:      map[string]string{},
			failedFrom: StateExtracting,
			check: func(t *testing.T, err error) {
				var fetchErr *models.FetchError
				require.True(t, errors.As(err, &fetchErr))
				assert.Equal(t, pageURL, fetchErr.URL)
				assert.Contains(t, err.Error(), "status code: 404")
			},
		},
		{
			name:       "no extractable content",
			pages:      map[string]string{pageURL: "<html><body>  <script>x()</script> </body></html>"},
			failedFrom: StateExtracting,
			check: func(t *testing.T, err error) {
				var exErr *models.ExtractionError
				assert.True(t, errors.As(err, &exErr))
				assert.ErrorIs(t, err, models.ErrNoContent)
			},
		},
		{
			name:       "analysis api error",
			pages:      page,
			analyzeErr: &models.APIError{API: "analysis", StatusCode: 401, Message: "Invalid token"},
			failedFrom: StateAnalyzing,
			check: func(t *testing.T, err error) {
				var apiErr *models.APIError
				require.True(t, errors.As(err, &apiErr))
				assert.Equal(t, 401, apiErr.StatusCode)
			},
		},
		{
			name:       "unusable reply",
			pages:      page,
			analyzeErr: &models.ResponseShapeError{Field: "summary", Reason: "is missing"},
			failedFrom: StateAnalyzing,
			check: func(t *testing.T, err error) {
				var shapeErr *models.ResponseShapeError
				assert.True(t, errors.As(err, &shapeErr))
			},
		},
		{
			name:       "store failure",
			pages:      page,
			storeErr:   &models.PersistenceError{Op: "save", Err: errors.New("disk full")},
			failedFrom: StatePersisting,
			check: func(t *testing.T, err error) {
				var pErr *models.PersistenceError
				assert.True(t, errors.As(err, &pErr))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analyzer := &fakeAnalyzer{fn: func(string, string, string) (models.Analysis, error) {
				if tt.analyzeErr != nil {
					return models.Analysis{}, tt.analyzeErr
				}
				return models.Analysis{Summary: "S"}, nil
			}}
			store := &fakeStore{err: tt.storeErr}
			syncer := &fakeSyncer{}
			rec := &recorder{}

			p := New(&fakeSource{pages: tt.pages}, selectorExtractor(), analyzer, store, syncSettings,
				WithObserver(rec),
				WithSyncer(func(models.Settings) (Syncer, error) { return syncer, nil }),
			)
			_, err := p.Run(context.Background(), pageURL)
			require.Error(t, err)
			tt.check(t, err)

			states := rec.states()
			require.NotEmpty(t, states)
			assert.Equal(t, StateFailed, states[len(states)-1])
			last := rec.events[len(rec.events)-1]
			assert.Equal(t, tt.failedFrom, last.From)
			assert.Equal(t, err, last.Err)

			assert.Empty(t, store.records)
			assert.Zero(t, syncer.calls.Load(), "sync must not run after a failure")
		})
	}
}

func TestRun_SyncOutcomes(t *testing.T) {
	const pageURL = "https://example.com/a"
	pages := map[string]string{pageURL: "<html><body><article>Body text</article></body></html>"}

	tests := []struct {
		name       string
		settings   staticSettings
		syncer     *fakeSyncer
		factoryErr error
		want       SyncStatus
		wantCalls  int32
	}{
		{"not configured", readySettings, &fakeSyncer{}, nil, SyncNotConfigured, 0},
		{"synced", syncSettings, &fakeSyncer{}, nil, SyncSynced, 1},
		{"sync api down", syncSettings, &fakeSyncer{err: errors.New("connection refused")}, nil, SyncFailed, 1},
		{"client rejected", syncSettings, &fakeSyncer{}, &models.ConfigError{Key: "sync", Msg: "bad"}, SyncFailed, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{}
			rec := &recorder{}
			factory := func(models.Settings) (Syncer, error) {
				if tt.factoryErr != nil {
					return nil, tt.factoryErr
				}
				return tt.syncer, nil
			}

			p := New(&fakeSource{pages: pages}, selectorExtractor(), okAnalyzer(), store, tt.settings,
				WithSyncer(factory), WithObserver(rec), WithClock(clock))
			res, err := p.Run(context.Background(), pageURL)

			require.NoError(t, err, "sync outcome must never fail the capture")
			assert.Equal(t, tt.want, res.SyncStatus)
			assert.Equal(t, tt.wantCalls, tt.syncer.calls.Load())
			require.Len(t, store.records, 1)

			states := rec.states()
			assert.Equal(t, StateDone, states[len(states)-1])
			assert.Equal(t, tt.want, rec.events[len(rec.events)-1].SyncStatus)
			if tt.want == SyncSynced {
				assert.Equal(t, "doc-1", res.SyncDocument.ID)
				assert.Contains(t, states, StateSyncing)
			}
		})
	}
}

func TestBuildRecord_TitleFallback(t *testing.T) {
	page := models.Page{URL: "https://e.com", Title: "Page Title", CapturedAt: fixedNow}

	got := BuildRecord(page, models.Analysis{Summary: "S"})
	assert.Equal(t, "Page Title", got.Title)
	assert.Equal(t, "", got.Keywords)

	got = BuildRecord(page, models.Analysis{Title: "Model Title", Summary: "S", Keywords: []string{"x"}})
	assert.Equal(t, "Model Title", got.Title)
	assert.Equal(t, "x", got.Keywords)
}

func TestRunBatch(t *testing.T) {
	pages := map[string]string{}
	var urls []string
	for i := 0; i < 6; i++ {
		u := fmt.Sprintf("https://example.com/%d", i)
		urls = append(urls, u)
		if i != 3 {
			pages[u] = fmt.Sprintf("<html><body><main>page %d</main></body></html>", i)
		}
	}

	var inFlight, peak atomic.Int32
	analyzer := &fakeAnalyzer{fn: func(content, _, _ string) (models.Analysis, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		return models.Analysis{Summary: content}, nil
	}}
	store := &fakeStore{}

	p := New(&fakeSource{pages: pages}, selectorExtractor(), analyzer, store, readySettings)
	outcomes := p.RunBatch(context.Background(), urls, 2)

	require.Len(t, outcomes, len(urls))
	for i, o := range outcomes {
		assert.Equal(t, urls[i], o.URL)
		if i == 3 {
			assert.Error(t, o.Err)
			continue
		}
		require.NoError(t, o.Err)
		assert.Equal(t, fmt.Sprintf("page %d", i), o.Result.Record.Summary)
	}
	assert.Len(t, Failed(outcomes), 1)
	assert.Len(t, store.records, 5)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestRun_AgainstHTTPServices(t *testing.T) {
	ctx := context.Background()

	chat := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reply := "```json\n{\"title\":\"\",\"summary\":\"Short digest\",\"keywords\":[\"go\",\"sqlite\"]}\n```"
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"role": "assistant", "content": reply}}},
		})
	}))
	defer chat.Close()

	var syncedText string
	kb := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		syncedText, _ = body["text"].(string)
		fmt.Fprint(w, `{"document":{"id":"doc-7"}}`)
	}))
	defer kb.Close()

	store, err := db.Connect(ctx, filepath.Join(t.TempDir(), "records.db"), nil)
	require.NoError(t, err)

	settings := syncSettings
	settings.SyncAPIURL = kb.URL
	m := metrics.New()

	p := New(
		&fakeSource{pages: map[string]string{"https://blog.example/x": "<html><head><title>Blog</title></head><body><div class=\"post-content\">Go and SQLite</div></body></html>"}},
		selectorExtractor(),
		analysis.New(analysis.WithBaseURL(chat.URL), analysis.WithLanguageHint(false)),
		store,
		settings,
		WithClock(clock),
		WithObserver(MetricsObserver(m)),
		WithSyncer(func(s models.Settings) (Syncer, error) {
			c, err := kbsync.NewFromSettings(s, kbsync.WithClock(clock))
			if err != nil {
				return nil, err
			}
			return c, nil
		}),
	)

	res, err := p.Run(ctx, "https://blog.example/x")
	require.NoError(t, err)
	assert.Equal(t, "Blog", res.Record.Title)
	assert.Equal(t, "go, sqlite", res.Record.Keywords)
	assert.Equal(t, SyncSynced, res.SyncStatus)
	assert.Equal(t, "doc-7", res.SyncDocument.ID)
	assert.Equal(t, "标题: Blog\nURL: https://blog.example/x\n\nGo and SQLite", syncedText)

	path := filepath.Join(t.TempDir(), "lwd.prom")
	require.NoError(t, m.WriteFile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `lwd_captures_total{state="done"} 1`)
	assert.Contains(t, string(data), `lwd_sync_total{status="synced"} 1`)
}

func TestProgressObserver(t *testing.T) {
	var buf strings.Builder
	o := ProgressObserver(&buf)
	o.Observe(Event{CaptureID: "0123456789abcdef", URL: "https://e.com", From: StateIdle, To: StateExtracting})
	o.Observe(Event{CaptureID: "0123456789abcdef", URL: "https://e.com", From: StateAnalyzing, To: StateFailed, Err: errors.New("boom")})

	assert.Equal(t,
		"[01234567] https://e.com: extracting\n[01234567] https://e.com: failed during analyzing: boom\n",
		buf.String())
}
