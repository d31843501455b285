// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package asyncrt

import (
	"context"
	"sync/atomic"
)

// ControlFlow is the value a [ForEach] callback returns to direct iteration.
type ControlFlow int

const (
	// Continue proceeds to the next yielded value.
	Continue ControlFlow = iota
	// Break stops iteration without draining the generator further.
	Break
)

// WaitAll inline-starts every future (§4.6), counting down a shared atomic
// as each completes, and returns once all have settled. Results are
// returned in call order regardless of completion order; once every future
// has settled, the first error encountered (in call order) is returned. If
// ctx is done first, WaitAll returns ctx.Err() at once without waiting for
// the remaining futures.
func WaitAll[T any](ctx context.Context, futures ...*OneShotFuture[T]) ([]T, error) {
	results := make([]T, len(futures))
	errs := make([]error, len(futures))

	var remaining atomic.Int64
	remaining.Store(int64(len(futures)))
	done := make(chan struct{})

	if len(futures) == 0 {
		close(done)
	}

	for i, f := range futures {
		i, f := i, f
		go func() {
			v, err := f.Await(ctx)
			results[i] = v
			errs[i] = err
			if remaining.Add(-1) == 0 {
				close(done)
			}
		}()
	}

	select {
	case <-done:
	case <-ctx.Done():
		return results, ctx.Err()
	}

	for _, err := range errs {
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

// WaitAllSlice is WaitAll's dynamic, homogeneous-slice variant, built over a
// latch of size len(futures)+1 as §4.6 describes for the vector overload.
func WaitAllSlice[T any](ctx context.Context, engine *Engine, thread ThreadId, futures []*OneShotFuture[T]) ([]T, error) {
	results := make([]T, len(futures))
	errs := make([]error, len(futures))
	latch := NewLatch(int64(len(futures)) + 1)

	for i, f := range futures {
		i, f := i, f
		go func() {
			v, err := f.Await(ctx)
			results[i] = v
			errs[i] = err
			latch.CountDown(engine, 1)
		}()
	}
	latch.CountDown(engine, 1)

	Await(latch.Wait(thread))

	for _, err := range errs {
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

// FirstOf races every future against the others (§4.6): each runs to
// completion in its own goroutine, the first to settle wins via a
// CAS-claimed shared slot, and every other result is dropped silently on
// arrival. Cancellation of the losing futures is not guaranteed.
func FirstOf[T any](ctx context.Context, futures ...*OneShotFuture[T]) (T, error) {
	var claimed atomic.Bool
	done := make(chan struct{})
	var result T
	var resultErr error

	for _, f := range futures {
		f := f
		go func() {
			v, err := f.Await(ctx)
			if claimed.CompareAndSwap(false, true) {
				result, resultErr = v, err
				close(done)
			}
		}()
	}

	select {
	case <-done:
		return result, resultErr
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// ForEach drives gen to completion, invoking f on each yielded value. f
// returning Break stops iteration early without draining gen further;
// Continue (or a nil error with no control value) proceeds to the next
// yield. The returned error is either an error returned by f (after which
// gen is force-completed) or gen's own terminal error.
func ForEach[T any](ctx context.Context, gen *GeneratorFuture[T], f func(T) (ControlFlow, error)) error {
	for {
		value, complete, err := gen.Next(ctx)
		if err != nil {
			if err == ErrGeneratorComplete {
				return nil
			}
			return err
		}
		if complete {
			return nil
		}
		ctrl, err := f(value)
		if err != nil {
			gen.ForceComplete()
			return err
		}
		if ctrl == Break {
			gen.ForceComplete()
			return nil
		}
	}
}
