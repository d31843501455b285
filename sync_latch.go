// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package asyncrt

import "sync"

// Latch is an atomic count paired with a [PauseToken] (§4.5): CountDown
// decrements the count; the first transition to <= 0 unpauses the token,
// releasing every current and future waiter. Reaching zero is one-shot --
// the count never resets and the token never re-pauses.
type Latch struct {
	mu    sync.Mutex
	count int64
	token *PauseToken
}

// NewLatch returns a Latch requiring n count-downs before it opens. n <= 0
// opens immediately.
func NewLatch(n int64) *Latch {
	return &Latch{count: n, token: NewPauseToken(n > 0)}
}

// CountDown decrements the count by n (at least 1), unpausing every waiter
// the first time the count reaches zero or below.
func (l *Latch) CountDown(engine *Engine, n int64) {
	if n <= 0 {
		n = 1
	}
	l.mu.Lock()
	l.count -= n
	done := l.count <= 0
	l.mu.Unlock()
	if done {
		l.token.Unpause(engine)
	}
}

// Wait returns an awaitable that resolves once the latch has opened.
func (l *Latch) Wait(thread ThreadId) Awaitable {
	return l.token.Wait(thread)
}

// Count reports the current count, which may go negative if CountDown is
// called more times than strictly necessary to open the latch.
func (l *Latch) Count() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}
