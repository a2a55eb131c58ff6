// Package fanout applies a function to every element of a slice with
// bounded concurrency while keeping results in input order.
package fanout

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"
)

// ItemError is the failure of one element.
type ItemError struct {
	Index int
	Err   error
}

func (e ItemError) Error() string {
	return fmt.Sprintf("item %d: %v", e.Index, e.Err)
}

func (e ItemError) Unwrap() error { return e.Err }

// Errors collects every failed element, sorted by index.
type Errors []ItemError

func (e *Errors) Error() string {
	msgs := make([]string, len(*e))
	for i, ie := range *e {
		msgs[i] = ie.Error()
	}
	return fmt.Sprintf("%d of the items failed: %s", len(*e), strings.Join(msgs, "; "))
}

// Unwrap exposes the per-item errors to errors.Is and errors.As.
func (e *Errors) Unwrap() []error {
	out := make([]error, len(*e))
	for i, ie := range *e {
		out[i] = ie
	}
	return out
}

// Map calls fn on every item with at most limit calls in flight and returns
// the results in input order. limit <= 0 means runtime.NumCPU().
//
// A failing item does not cancel its siblings. When any item fails Map
// returns the partial results together with an *Errors. Items that have not
// started when ctx is done fail with the context error without calling fn.
func Map[T, R any](ctx context.Context, items []T, limit int, fn func(ctx context.Context, i int, item T) (R, error)) ([]R, error) {
	if limit <= 0 {
		limit = runtime.NumCPU()
	}

	results := make([]R, len(items))
	errs := make([]error, len(items))

	var g errgroup.Group
	g.SetLimit(limit)
	for i, item := range items {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			r, err := fn(ctx, i, item)
			if err != nil {
				errs[i] = err
				return nil
			}
			results[i] = r
			return nil
		})
	}
	_ = g.Wait()

	var failed Errors
	for i, err := range errs {
		if err != nil {
			failed = append(failed, ItemError{Index: i, Err: err})
		}
	}
	if len(failed) > 0 {
		return results, &failed
	}
	return results, nil
}
