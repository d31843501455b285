// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package asyncrt

import "sync"

// Mutex is a cross-task binary lock (§4.5) built over the pause-pack
// suspension contract rather than an OS mutex: Lock suspends the calling
// task instead of blocking its goroutine's worker thread. Release transfers
// ownership directly to the oldest waiter ("lock transfer"), so a newly
// woken waiter never needs to retry acquisition.
type Mutex struct {
	mu      sync.Mutex
	locked  bool
	waiters []*PausePack
}

// NewMutex returns an unlocked Mutex.
func NewMutex() *Mutex { return &Mutex{} }

// Lock returns an awaitable that resumes once the caller owns the mutex. If
// the mutex is currently free, the awaitable resolves inline without
// suspending (§4.1's fast path).
func (m *Mutex) Lock(thread ThreadId) Awaitable {
	return Pause(func(pack *PausePack) {
		m.mu.Lock()
		if !m.locked {
			m.locked = true
			m.mu.Unlock()
			pack.Continuation()
			return
		}
		pack.Target = thread
		m.waiters = append(m.waiters, pack)
		m.mu.Unlock()
	})
}

// TryLock attempts a non-blocking acquire. Reports whether it succeeded.
func (m *Mutex) TryLock() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locked {
		return false
	}
	m.locked = true
	return true
}

// Unlock releases the mutex. If waiters are queued, ownership transfers
// directly to the oldest one, which is resumed on engine at its requested
// thread; otherwise the mutex becomes free.
func (m *Mutex) Unlock(engine *Engine) {
	m.mu.Lock()
	if len(m.waiters) == 0 {
		m.locked = false
		m.mu.Unlock()
		return
	}
	next := m.waiters[0]
	m.waiters = m.waiters[1:]
	m.mu.Unlock()
	_ = engine.Execute(next.Continuation, next.Target)
}

// Guard acquires the mutex and returns a release function, for RAII-style
// `defer g()` usage mirroring the scoped-guard pattern over the binary
// semaphore described in §4.5.
func (m *Mutex) Guard(engine *Engine, thread ThreadId) func() {
	Await(m.Lock(thread))
	return func() { m.Unlock(engine) }
}
