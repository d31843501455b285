// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package asyncrt

import "sync"

// Barrier synchronizes a fixed-size working set of arrivals per phase
// (§4.5): every arrival joins the current phase's working set; once the set
// reaches expected entries, an optional completion step runs once, then the
// whole set is released and a fresh phase begins.
//
// ArriveAndDrop counts as an arrival in the current phase and records the
// drop in a separate drops counter: the drop is recorded immediately, but
// it is only subtracted from expected when the phase in flight releases, so
// a late arriver to the in-flight phase is never short-changed by a drop
// that logically belongs to the following phase.
type Barrier struct {
	mu       sync.Mutex
	expected int
	drops    int
	arrived  []*PausePack

	completion       func()
	completionThread ThreadId
}

// NewBarrier returns a Barrier requiring n arrivals per phase. completion,
// if non-nil, runs once per phase (pinned to completionThread) before that
// phase's arrivals are released.
func NewBarrier(n int, completion func(), completionThread ThreadId) *Barrier {
	return &Barrier{expected: n, completion: completion, completionThread: completionThread}
}

// Arrive joins the current phase's working set and returns an awaitable
// that resolves once that phase completes. Does not wait by itself --
// callers that want to block immediately should [Await] the result, which
// is what ArriveAndWait does.
func (b *Barrier) Arrive(engine *Engine, thread ThreadId) Awaitable {
	return Pause(func(pack *PausePack) {
		pack.Target = thread
		b.arrive(engine, pack)
	})
}

// ArriveAndWait joins the current phase and blocks the calling task until
// it releases.
func (b *Barrier) ArriveAndWait(engine *Engine, thread ThreadId) {
	Await(b.Arrive(engine, thread))
}

// ArriveAndDrop joins the current phase like Arrive, and additionally
// reduces the expected arrival count by one starting with the *next*
// phase (§5, §9).
func (b *Barrier) ArriveAndDrop(engine *Engine, thread ThreadId) Awaitable {
	b.mu.Lock()
	b.drops++
	b.mu.Unlock()
	return b.Arrive(engine, thread)
}

func (b *Barrier) arrive(engine *Engine, pack *PausePack) {
	b.mu.Lock()
	b.arrived = append(b.arrived, pack)
	ready := len(b.arrived) >= b.expected
	var group []*PausePack
	if ready {
		group = b.arrived
		b.arrived = nil
		if b.drops > 0 {
			b.expected -= b.drops
			if b.expected < 1 {
				b.expected = 1
			}
			b.drops = 0
		}
	}
	b.mu.Unlock()

	if !ready {
		return
	}

	release := func() {
		for _, p := range group {
			_ = engine.Execute(p.Continuation, p.Target)
		}
	}
	if b.completion == nil {
		release()
		return
	}
	_ = engine.Execute(func() {
		b.completion()
		release()
	}, b.completionThread)
}

// Expected reports the arrival count required for the current phase to
// release.
func (b *Barrier) Expected() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.expected
}
