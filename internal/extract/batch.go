package extract

import (
	"context"
	"sync"

	"github.com/hurttlocker/distill/internal/facttype"
	"github.com/hurttlocker/distill/internal/retrieve"
	"github.com/hurttlocker/distill/internal/store"
)

// Request is one (scope, fact type) unit of batch work.
type Request struct {
	Scope    retrieve.Scope
	FactType facttype.FactType
}

// BatchReport summarizes a batch run. Failures are recorded per request;
// one failing pair never aborts sibling work.
type BatchReport struct {
	Requested int
	Succeeded int
	Results   []*store.ExtractionResult
	Failures  []*FactError
}

// Runner fans extraction requests out over a bounded worker pool. Model
// calls dominate the cost, so concurrency is capped to avoid overwhelming
// the model backend.
type Runner struct {
	orchestrator *Orchestrator
	results      store.Store // nil skips persistence
	concurrency  int
}

// NewRunner creates a batch runner. st may be nil to skip persisting
// results (dry runs, evaluation).
func NewRunner(o *Orchestrator, st store.Store, concurrency int) *Runner {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Runner{orchestrator: o, results: st, concurrency: concurrency}
}

// Run processes every request and returns the aggregate report.
// Cancelling ctx stops issuing new model calls promptly; requests already
// dispatched complete or fail out naturally and are recorded either way.
func (r *Runner) Run(ctx context.Context, requests []Request) *BatchReport {
	report := &BatchReport{Requested: len(requests)}

	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, r.concurrency)

	for _, req := range requests {
		select {
		case <-ctx.Done():
			mu.Lock()
			report.Failures = append(report.Failures, &FactError{
				Scope:    req.Scope,
				FactType: req.FactType,
				Err:      ctx.Err(),
			})
			mu.Unlock()
			continue
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(req Request) {
			defer wg.Done()
			defer func() { <-sem }()

			result, err := r.orchestrator.ExtractFact(ctx, req.Scope, req.FactType)

			if err == nil && r.results != nil {
				if saveErr := r.results.SaveResult(ctx, result); saveErr != nil {
					err = &FactError{Scope: req.Scope, FactType: req.FactType, Err: saveErr}
				}
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if fe, ok := err.(*FactError); ok {
					report.Failures = append(report.Failures, fe)
				} else {
					report.Failures = append(report.Failures, &FactError{
						Scope:    req.Scope,
						FactType: req.FactType,
						Err:      err,
					})
				}
				return
			}
			report.Succeeded++
			report.Results = append(report.Results, result)
		}(req)
	}

	wg.Wait()
	return report
}
