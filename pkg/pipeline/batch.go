package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DefaultWorkers bounds RunBatch when the caller passes zero.
const DefaultWorkers = 4

// Outcome is the result of one URL in a batch. Exactly one of Result and Err
// is meaningful.
type Outcome struct {
	URL    string
	Result Result
	Err    error
}

// RunBatch captures every URL with at most workers runs in flight. Runs are
// independent: a failure is recorded in its Outcome and does not cancel the
// others. Outcomes are returned in input order.
func (p *Pipeline) RunBatch(ctx context.Context, urls []string, workers int) []Outcome {
	if workers <= 0 {
		workers = DefaultWorkers
	}

	outcomes := make([]Outcome, len(urls))
	var g errgroup.Group
	g.SetLimit(workers)

	for i, u := range urls {
		i, u := i, u
		g.Go(func() error {
			res, err := p.Run(ctx, u)
			outcomes[i] = Outcome{URL: u, Result: res, Err: err}
			return nil
		})
	}
	_ = g.Wait() // workers never return an error

	return outcomes
}

// Failed returns the outcomes that ended in an error.
func Failed(outcomes []Outcome) []Outcome {
	var failed []Outcome
	for _, o := range outcomes {
		if o.Err != nil {
			failed = append(failed, o)
		}
	}
	return failed
}
