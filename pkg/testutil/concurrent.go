package testutil

import (
	"errors"
	"sync"
	"sync/atomic"

	"badgeworks/pkg/platform/sentinel"
)

// ConcurrentResult tracks outcomes of concurrent test operations.
type ConcurrentResult struct {
	Successes     int32
	Errors        int32
	AlreadyIssued int32
	NotFounds     int32
}

// Total returns the total number of operations executed.
func (r *ConcurrentResult) Total() int32 {
	return r.Successes + r.Errors + r.AlreadyIssued + r.NotFounds
}

// RunConcurrent executes fn in parallel goroutines and collects results.
// Errors are categorized as already-issued, not-found, or generic. Callers
// that use tagged outcomes instead of errors should return sentinel.ErrAlreadyIssued.
func RunConcurrent(goroutines int, fn func(idx int) error) *ConcurrentResult {
	var wg sync.WaitGroup
	var successes, errs, issued, notFounds atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			err := fn(idx)
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, sentinel.ErrAlreadyIssued):
				issued.Add(1)
			case errors.Is(err, sentinel.ErrNotFound):
				notFounds.Add(1)
			default:
				errs.Add(1)
			}
		}(i)
	}

	wg.Wait()

	return &ConcurrentResult{
		Successes:     successes.Load(),
		Errors:        errs.Load(),
		AlreadyIssued: issued.Load(),
		NotFounds:     notFounds.Load(),
	}
}
