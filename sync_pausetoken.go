// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package asyncrt

import "sync"

// PauseToken is a single reusable gate (§4.5): Wait completes immediately
// while the token is unpaused, or parks the caller until Unpause runs.
// Unpause drains every queued waiter; Pause resets the gate for subsequent
// waiters without disturbing anything already released.
type PauseToken struct {
	mu      sync.Mutex
	paused  bool
	waiters []*PausePack
}

// NewPauseToken returns a token starting in the given paused state.
func NewPauseToken(paused bool) *PauseToken {
	return &PauseToken{paused: paused}
}

// Paused reports the token's current state.
func (t *PauseToken) Paused() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.paused
}

// Wait returns an awaitable that resolves immediately if the token is
// unpaused, parking the caller otherwise.
func (t *PauseToken) Wait(thread ThreadId) Awaitable {
	return Pause(func(pack *PausePack) {
		t.mu.Lock()
		if !t.paused {
			t.mu.Unlock()
			pack.Continuation()
			return
		}
		pack.Target = thread
		t.waiters = append(t.waiters, pack)
		t.mu.Unlock()
	})
}

// Unpause drains every currently queued waiter, resuming each on engine at
// its requested thread, and leaves the token unpaused for future Wait
// calls until Pause runs again.
func (t *PauseToken) Unpause(engine *Engine) {
	t.mu.Lock()
	t.paused = false
	waiters := t.waiters
	t.waiters = nil
	t.mu.Unlock()
	for _, w := range waiters {
		_ = engine.Execute(w.Continuation, w.Target)
	}
}

// Pause resets the gate back to paused. Only affects Wait calls made
// after this call returns.
func (t *PauseToken) Pause() {
	t.mu.Lock()
	t.paused = true
	t.mu.Unlock()
}
