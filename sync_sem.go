// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package asyncrt

import "sync"

// Semaphore is a counting semaphore over the pause-pack suspension contract
// (§4.5): Acquire suspends the calling task rather than blocking a worker
// thread when no permit is immediately available. At quiescence, the total
// number of successful Acquire calls equals the total number of Release
// calls (§8's "semaphore conservation").
type Semaphore struct {
	mu      sync.Mutex
	count   int
	waiters []*PausePack
}

// NewSemaphore returns a Semaphore initialized with n permits.
func NewSemaphore(n int) *Semaphore {
	return &Semaphore{count: n}
}

// Acquire returns an awaitable that resumes once a permit is available,
// decrementing the count. Resolves inline if a permit is immediately free.
func (s *Semaphore) Acquire(thread ThreadId) Awaitable {
	return Pause(func(pack *PausePack) {
		s.mu.Lock()
		if s.count > 0 {
			s.count--
			s.mu.Unlock()
			pack.Continuation()
			return
		}
		pack.Target = thread
		s.waiters = append(s.waiters, pack)
		s.mu.Unlock()
	})
}

// TryAcquire attempts a non-blocking permit grab. Reports whether it
// succeeded.
func (s *Semaphore) TryAcquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.count <= 0 {
		return false
	}
	s.count--
	return true
}

// Release returns one permit, transferring it directly to the oldest
// waiter if any are queued, or incrementing the free count otherwise.
func (s *Semaphore) Release(engine *Engine) {
	s.mu.Lock()
	if len(s.waiters) == 0 {
		s.count++
		s.mu.Unlock()
		return
	}
	next := s.waiters[0]
	s.waiters = s.waiters[1:]
	s.mu.Unlock()
	_ = engine.Execute(next.Continuation, next.Target)
}

// Available reports the number of permits currently free (not reflecting
// queued waiters).
func (s *Semaphore) Available() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}
