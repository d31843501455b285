// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package asyncrt

import "sync"

// fixedBufferPool is the engine-wide pool of registered I/O buffers (§6):
// a fixed number of fixed-size byte slices that netio collaborators may
// claim for the lifetime of one read_fixed/write_fixed style operation and
// must release exactly once, via a [VisitorFuture] deferred hook.
type fixedBufferPool struct {
	mu      sync.Mutex
	free    []int
	buffers [][]byte
}

func newFixedBufferPool(count, size int) *fixedBufferPool {
	p := &fixedBufferPool{
		free:    make([]int, count),
		buffers: make([][]byte, count),
	}
	for i := range p.buffers {
		p.buffers[i] = make([]byte, size)
		p.free[i] = i
	}
	return p
}

// Claim removes and returns one buffer's index and backing slice. ok is
// false if the pool is exhausted.
func (p *fixedBufferPool) Claim() (idx int, buf []byte, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.free) == 0 {
		return 0, nil, false
	}
	idx = p.free[len(p.free)-1]
	p.free = p.free[:len(p.free)-1]
	return idx, p.buffers[idx], true
}

// Release returns a previously claimed buffer to the pool.
func (p *fixedBufferPool) Release(idx int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.free = append(p.free, idx)
}

// Len reports the total number of buffers in the pool, claimed or free.
func (p *fixedBufferPool) Len() int { return len(p.buffers) }
