package pipeline

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dtnitsch/llm-web-digest/pkg/metrics"
)

// Event is one state transition of a capture.
type Event struct {
	CaptureID  string
	URL        string
	From       State
	To         State
	Err        error      // set when To is StateFailed
	SyncStatus SyncStatus // set when To is StateDone
	Elapsed    time.Duration
}

// Observer receives state transitions. RunBatch calls observers from several
// goroutines, so implementations must be safe for concurrent use.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(ev Event) { f(ev) }

// MetricsObserver records final states, failing stages and sync outcomes.
func MetricsObserver(m *metrics.Metrics) Observer {
	return ObserverFunc(func(ev Event) {
		switch ev.To {
		case StateFailed:
			m.StageFailed(string(ev.From))
			m.CaptureFinished(string(StateFailed), ev.Elapsed)
		case StateDone:
			m.SyncFinished(string(ev.SyncStatus))
			m.CaptureFinished(string(StateDone), ev.Elapsed)
		}
	})
}

// ProgressObserver prints one line per transition, e.g.
// "[3f2a9c1e] https://example.com: analyzing".
func ProgressObserver(w io.Writer) Observer {
	var mu sync.Mutex
	return ObserverFunc(func(ev Event) {
		mu.Lock()
		defer mu.Unlock()

		id := ev.CaptureID
		if len(id) > 8 {
			id = id[:8]
		}
		switch ev.To {
		case StateFailed:
			fmt.Fprintf(w, "[%s] %s: failed during %s: %v\n", id, ev.URL, ev.From, ev.Err)
		case StateDone:
			fmt.Fprintf(w, "[%s] %s: done in %s (sync: %s)\n", id, ev.URL, ev.Elapsed.Round(time.Millisecond), ev.SyncStatus)
		default:
			fmt.Fprintf(w, "[%s] %s: %s\n", id, ev.URL, ev.To)
		}
	})
}
