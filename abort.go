// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build linux || darwin

package asyncrt

import (
	"sync"
	"sync/atomic"
	"time"
)

// AbortSignal is a cooperative cancellation object: a task holding one polls
// Aborted or registers OnAbort, but is never preempted. One AbortController
// produces exactly one AbortSignal via Signal.
type AbortSignal struct { //nolint:govet // betteralign:ignore
	handlers []func(reason any)
	reason   any
	mu       sync.RWMutex
	aborted  bool
}

func newAbortSignal() *AbortSignal {
	return &AbortSignal{}
}

// Aborted reports whether the signal has fired.
func (s *AbortSignal) Aborted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.aborted
}

// Reason returns the abort reason, or nil if the signal hasn't fired.
func (s *AbortSignal) Reason() any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reason
}

// OnAbort registers handler to run when the signal fires. If the signal has
// already fired, handler runs immediately, synchronously, before OnAbort
// returns.
func (s *AbortSignal) OnAbort(handler func(reason any)) {
	if handler == nil {
		return
	}

	s.mu.Lock()
	if s.aborted {
		reason := s.reason
		s.mu.Unlock()
		handler(reason)
		return
	}

	s.handlers = append(s.handlers, handler)
	s.mu.Unlock()
}

// ThrowIfAborted returns an *AbortError if the signal has fired, nil
// otherwise.
func (s *AbortSignal) ThrowIfAborted() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.aborted {
		return &AbortError{Reason: s.reason}
	}
	return nil
}

// CancelPause wires the signal to a still-pending [PausePack]: when the
// signal fires (or immediately, if it already has), the pack is cancelled
// via [CancelEvent] using code. Returns a function that detaches the
// handler, for callers whose wait resolves by some other means first.
func (s *AbortSignal) CancelPause(pack *PausePack, code int) (detach func()) {
	var cancelOnce atomic.Bool
	var detached atomic.Bool
	handler := func(reason any) {
		if detached.Load() {
			return
		}
		CancelEvent(pack, &cancelOnce, code)
	}
	s.OnAbort(handler)
	return func() { detached.Store(true) }
}

func (s *AbortSignal) abort(reason any) {
	s.mu.Lock()

	if s.aborted {
		s.mu.Unlock()
		return
	}

	s.aborted = true
	s.reason = reason

	handlers := make([]func(reason any), len(s.handlers))
	copy(handlers, s.handlers)
	s.handlers = nil
	s.mu.Unlock()

	for _, handler := range handlers {
		handler(reason)
	}
}

// AbortController owns one AbortSignal and can fire it.
type AbortController struct {
	signal *AbortSignal
}

// NewAbortController constructs a controller with a fresh, unfired signal.
func NewAbortController() *AbortController {
	return &AbortController{signal: newAbortSignal()}
}

// Signal returns the controller's signal. Always the same instance.
func (c *AbortController) Signal() *AbortSignal {
	return c.signal
}

// Abort fires the controller's signal with reason, running every registered
// handler. A nil reason is replaced with a default AbortError. Subsequent
// calls are no-ops; the first reason wins.
func (c *AbortController) Abort(reason any) {
	if reason == nil {
		reason = &AbortError{Reason: "aborted"}
	}
	c.signal.abort(reason)
}

// AbortError is the reason an aborted operation reports when it has none of
// its own.
type AbortError struct {
	Reason any
}

func (e *AbortError) Error() string {
	switch r := e.Reason.(type) {
	case nil:
		return "asyncrt: operation aborted"
	case string:
		return "asyncrt: aborted: " + r
	case error:
		return "asyncrt: aborted: " + r.Error()
	default:
		return "asyncrt: operation aborted"
	}
}

// Is lets errors.Is match any *AbortError regardless of reason.
func (e *AbortError) Is(target error) bool {
	_, ok := target.(*AbortError)
	return ok
}

// Unwrap exposes Reason when it is itself an error, for errors.As chains.
func (e *AbortError) Unwrap() error {
	if err, ok := e.Reason.(error); ok {
		return err
	}
	return nil
}

// AbortTimeout constructs a controller that fires on its own after delay,
// scheduled via [Engine.DelayedResume] on thread.
func AbortTimeout(engine *Engine, thread ThreadId, delay time.Duration) (*AbortController, error) {
	controller := NewAbortController()

	err := engine.DelayedResume(func() {
		controller.Abort(&AbortError{Reason: "timeout"})
	}, engine.Now().Add(delay), thread)
	if err != nil {
		return nil, err
	}

	return controller, nil
}

// AbortAny returns a signal that fires as soon as any of signals fires,
// carrying that signal's reason. A nil or empty input yields a signal that
// never fires on its own.
func AbortAny(signals []*AbortSignal) *AbortSignal {
	composite := newAbortSignal()

	if len(signals) == 0 {
		return composite
	}

	for _, sig := range signals {
		if sig != nil && sig.Aborted() {
			composite.abort(sig.Reason())
			return composite
		}
	}

	var once sync.Once
	for _, sig := range signals {
		if sig == nil {
			continue
		}
		sig.OnAbort(func(reason any) {
			once.Do(func() { composite.abort(reason) })
		})
	}

	return composite
}
