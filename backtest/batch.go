package backtest

import (
	"sync"

	"github.com/quantlab/backsim/market"
)

// FeedFunc lazily opens the bar feed for one run. Feeds are single-use, so
// every run in a batch needs an independent one.
type FeedFunc func() (market.Feed, error)

// BatchRun pairs a run configuration with its own feed source.
type BatchRun struct {
	Name   string
	Config RunConfig
	Feed   FeedFunc
}

// BatchResult is the outcome of one run in a batch.
type BatchResult struct {
	Name   string
	Result *Result
	Err    error
}

// RunBatch executes independent runs concurrently, one goroutine per run.
// Runs share nothing: each owns its portfolio, risk engine, and feed, so no
// synchronization beyond the final gather is needed. Results come back in
// input order.
func RunBatch(runs []BatchRun) []BatchResult {
	results := make([]BatchResult, len(runs))

	var wg sync.WaitGroup
	for i, br := range runs {
		wg.Add(1)
		go func(i int, br BatchRun) {
			defer wg.Done()
			results[i].Name = br.Name

			feed, err := br.Feed()
			if err != nil {
				results[i].Err = err
				return
			}
			results[i].Result, results[i].Err = Run(br.Config, feed)
		}(i, br)
	}
	wg.Wait()

	return results
}
