// Package batch applies an array of independent operations with
// partial-failure semantics: one item's failure never aborts or rolls back
// any other item's effect, and the caller always receives a full accounting
// of per-item outcomes.
package batch

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Failure records one failed item together with its original input, so the
// caller can correlate the outcome even when results arrive out of order.
type Failure[In any] struct {
	Input  In     `json:"input"`
	Reason string `json:"reason"`
}

// Outcome aggregates the per-item results of a batch run. Total always
// equals the input length; SuccessCount + ErrorCount == Total.
type Outcome[In, Out any] struct {
	Results      []Out         `json:"results"`
	Errors       []Failure[In] `json:"errors"`
	Total        int           `json:"total"`
	SuccessCount int           `json:"success_count"`
	ErrorCount   int           `json:"error_count"`
}

// Run applies fn to every item, dispatching up to workers items
// concurrently. Items are independent: there is no atomicity across the
// batch. If ctx is canceled mid-run, items not yet started are recorded as
// failures, but results of already-completed items are kept.
//
// Callers are expected to reject an empty item slice at validation time
// before reaching this function; Run itself returns an empty outcome.
func Run[In, Out any](ctx context.Context, items []In, workers int, fn func(context.Context, In) (Out, error)) Outcome[In, Out] {
	outcome := Outcome[In, Out]{
		Results: []Out{},
		Errors:  []Failure[In]{},
		Total:   len(items),
	}

	if workers < 1 {
		workers = 1
	}

	var group errgroup.Group
	group.SetLimit(workers)

	results := make(chan Out, len(items))
	failures := make(chan Failure[In], len(items))

	for _, item := range items {
		item := item
		group.Go(func() error {
			// Skip work the client is no longer waiting for.
			if err := ctx.Err(); err != nil {
				failures <- Failure[In]{Input: item, Reason: err.Error()}
				return nil
			}
			out, err := fn(ctx, item)
			if err != nil {
				failures <- Failure[In]{Input: item, Reason: err.Error()}
				return nil
			}
			results <- out
			return nil
		})
	}

	// Workers never return errors; failures travel through the channel.
	_ = group.Wait()
	close(results)
	close(failures)

	for out := range results {
		outcome.Results = append(outcome.Results, out)
	}
	for failure := range failures {
		outcome.Errors = append(outcome.Errors, failure)
	}

	outcome.SuccessCount = len(outcome.Results)
	outcome.ErrorCount = len(outcome.Errors)
	return outcome
}
