// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package asyncrt

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"
)

// ThreadMode controls how [EngineConfig.Threads] is interpreted against
// runtime.NumCPU (§3).
type ThreadMode int

const (
	// ThreadModeExact requires exactly EngineConfig.Threads workers.
	ThreadModeExact ThreadMode = iota
	// ThreadModeAtLeast requires at least EngineConfig.Threads workers,
	// rounding up to runtime.NumCPU if it is larger.
	ThreadModeAtLeast
	// ThreadModeAny ignores EngineConfig.Threads and uses runtime.NumCPU.
	ThreadModeAny
)

// EngineConfig configures [NewEngine].
type EngineConfig struct {
	// Threads is the worker thread count, interpreted per Mode.
	Threads int
	// Mode governs how Threads is resolved against runtime.NumCPU.
	Mode ThreadMode
	// Affinity, if true, pins each worker's OS thread to a CPU core via
	// sched_setaffinity, starting at AffinityOffset.
	Affinity       bool
	AffinityOffset int
	// RingQueueDepth sizes each worker's submission ring (advisory; the
	// ChunkedIngress queue grows regardless).
	RingQueueDepth int
	// FixedBuffers configures the shared fixed-buffer pool used by I/O
	// collaborators that opt into registered buffers (§6).
	FixedBufferCount int
	FixedBufferSize  int
	// Logger receives structured log entries (§1). Defaults to DefaultLogger.
	Logger Logger
	// Metrics, if non-nil, receives queue-depth and latency samples (§5
	// supplemented feature).
	Metrics *Metrics
}

func (c EngineConfig) resolveThreadCount() int {
	n := runtime.NumCPU()
	switch c.Mode {
	case ThreadModeExact:
		if c.Threads > 0 {
			return c.Threads
		}
		return n
	case ThreadModeAtLeast:
		if c.Threads > n {
			return c.Threads
		}
		return n
	default: // ThreadModeAny
		return n
	}
}

// Engine owns a pinned pool of worker threads, the process-wide signal
// dispatcher binding, and the shared registry used to reject outstanding
// completions at shutdown (§3, §4.2, §4.3, §5).
type Engine struct {
	cfg     EngineConfig
	workers []*worker
	log     Logger
	metrics *Metrics
	epoch   time.Time

	registry *registry

	detachedN  atomic.Int64
	fixedPool  *fixedBufferPool
	started    atomic.Bool
	stopped    atomic.Bool
	nextThread atomic.Uint64

	signalMu sync.Mutex
	signal   *signalDispatcher
}

// NewEngine constructs an Engine without starting its workers.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Logger == nil {
		cfg.Logger = NewDefaultLogger(LevelInfo)
	}
	if cfg.FixedBufferCount <= 0 {
		cfg.FixedBufferCount = 1000
	}
	if cfg.FixedBufferSize <= 0 {
		cfg.FixedBufferSize = 32767
	}

	n := cfg.resolveThreadCount()
	if n <= 0 {
		return nil, ErrInvalidThreadCount
	}

	e := &Engine{
		cfg:      cfg,
		log:      cfg.Logger,
		metrics:  cfg.Metrics,
		epoch:    time.Now(),
		registry: newRegistry(),
		fixedPool: newFixedBufferPool(cfg.FixedBufferCount, cfg.FixedBufferSize),
	}

	e.workers = make([]*worker, n)
	for i := range e.workers {
		w, err := newWorker(ThreadId(i), e)
		if err != nil {
			for j := 0; j < i; j++ {
				e.workers[j].closeFDs()
			}
			return nil, fmt.Errorf("asyncrt: creating worker %d: %w", i, err)
		}
		e.workers[i] = w
	}

	return e, nil
}

// Start launches every worker's loop goroutine, pinned to its own OS thread.
// Start must be called at most once.
func (e *Engine) Start(ctx context.Context) error {
	if !e.started.CompareAndSwap(false, true) {
		return ErrEngineAlreadyRunning
	}
	for i, w := range e.workers {
		idx := i
		wk := w
		go func() {
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()
			if e.cfg.Affinity {
				var set unix.CPUSet
				set.Zero()
				set.Set(e.cfg.AffinityOffset + idx)
				_ = unix.SchedSetaffinity(0, &set)
			}
			_ = wk.run(ctx)
		}()
	}
	return nil
}

// Stop requests every worker to shut down gracefully, rejects every
// still-pending completion tracked by the registry, and blocks until ctx
// expires or every worker has drained (§5).
func (e *Engine) Stop(ctx context.Context) error {
	if !e.stopped.CompareAndSwap(false, true) {
		return ErrEngineNotRunning
	}
	var firstErr error
	for _, w := range e.workers {
		if err := w.shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	e.signalMu.Lock()
	e.signal.stop()
	e.signalMu.Unlock()
	e.registry.RejectAll(ErrEngineNotRunning)
	return firstErr
}

// ThreadCount returns the number of worker threads.
func (e *Engine) ThreadCount() int { return len(e.workers) }

// Now returns the current Order on the engine's monotonic clock.
func (e *Engine) Now() Order { return OrderFromTime(time.Now(), e.epoch) }

// Epoch returns the time.Time that Order(0) would convert to, i.e. the
// engine's creation time. Exposed for Order.Time/OrderFromTime conversions.
func (e *Engine) Epoch() time.Time { return e.epoch }

// CurrentThread reports the ThreadId of the calling goroutine's worker, or
// AnyThread if the caller is not running on any worker's loop goroutine.
func (e *Engine) CurrentThread() ThreadId {
	gid := getGoroutineID()
	for _, w := range e.workers {
		if w.loopGoroutineID.Load() == gid {
			return w.id
		}
	}
	return AnyThread
}

// resolveThread picks a concrete worker for thread, load-balancing across
// the shortest external queue when thread is AnyThread (§3).
func (e *Engine) resolveThread(thread ThreadId) *worker {
	if thread != AnyThread && int(thread) < len(e.workers) {
		return e.workers[thread]
	}
	best := e.workers[0]
	bestLen := best.externalLen()
	for _, w := range e.workers[1:] {
		if l := w.externalLen(); l < bestLen {
			best, bestLen = w, l
		}
	}
	return best
}

// Resume schedules fn to run on thread's external queue as soon as that
// worker reaches it (§4.1). Use [AnyThread] to load-balance.
func (e *Engine) Resume(fn func(), thread ThreadId) error {
	return e.resolveThread(thread).submitExternal(fn)
}

// ThreadResume is Resume with load-balanced placement.
func (e *Engine) ThreadResume(fn func()) error {
	return e.Resume(fn, AnyThread)
}

// DelayedResume schedules fn to run on thread at order: immediately (via
// the internal priority queue) if order has already elapsed, otherwise via
// the worker's timer heap (§4.3).
func (e *Engine) DelayedResume(fn func(), order Order, thread ThreadId) error {
	w := e.resolveThread(thread)
	if order <= e.Now() {
		return w.submitInternal(fn)
	}
	return w.scheduleAt(order, fn)
}

// Execute submits fn to thread's internal (priority) queue, bypassing the
// external queue's fairness budget. Producers (I/O completions, timer
// fires, synchronization primitives) use this to resume a waiter with
// minimal latency (§4.2).
func (e *Engine) Execute(fn func(), thread ThreadId) error {
	return e.resolveThread(thread).submitInternal(fn)
}

// RegisterFD registers fd for readiness notifications on thread's poller
// (§4 C10's descriptor-notifier fallback path), invoking cb from that
// worker's loop goroutine whenever events fire.
func (e *Engine) RegisterFD(thread ThreadId, fd int, events IOEvents, cb IOCallback) error {
	return e.resolveThread(thread).poller.RegisterFD(fd, events, cb)
}

// UnregisterFD removes fd from thread's poller.
func (e *Engine) UnregisterFD(thread ThreadId, fd int) error {
	return e.resolveThread(thread).poller.UnregisterFD(fd)
}

// ModifyFD updates the event mask fd is registered for on thread's poller.
func (e *Engine) ModifyFD(thread ThreadId, fd int, events IOEvents) error {
	return e.resolveThread(thread).poller.ModifyFD(fd, events)
}

// trackDetached adjusts the outstanding-detached-task counter; delta is +1
// at launch and -1 at terminal return. Used only for observability -- a
// detached task's lifetime is never awaited by the engine (§4.1).
func (e *Engine) trackDetached(delta int) {
	e.detachedN.Add(int64(delta))
}

// DetachedCount reports the number of currently running [Detached] tasks.
func (e *Engine) DetachedCount() int64 { return e.detachedN.Load() }

// logger returns the engine's configured structured logger.
func (e *Engine) logger() Logger { return e.log }
