// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package asyncrt

import (
	"container/heap"
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// pendingTimer is one entry in a worker's timer heap: fn runs once order has
// elapsed on that worker's loop goroutine.
type pendingTimer struct {
	when Order
	fn   func()
}

type timerHeap []pendingTimer

func (h timerHeap) Len() int            { return len(h) }
func (h timerHeap) Less(i, j int) bool  { return h[i].when < h[j].when }
func (h timerHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *timerHeap) Push(x any)         { *h = append(*h, x.(pendingTimer)) }
func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// worker is one engine thread's event loop: an epoll reactor plus a
// chunked-queue task scheduler and a timerfd-backed timer heap, pinned to
// its own OS thread for the lifetime of the engine (§3, §4.2, §4.3).
//
// The external queue is FIFO task submission from any goroutine (Resume);
// the internal queue is a priority lane producers use to resume a waiter
// with minimal latency (Execute) -- timer fires, I/O completions, and
// synchronization hand-offs all land there.
type worker struct { // betteralign:ignore
	id     ThreadId
	engine *Engine

	state *FastState

	external   *ChunkedIngress
	externalMu sync.Mutex
	internal   *ChunkedIngress
	internalMu sync.Mutex

	timers   timerHeap
	timersMu sync.Mutex
	timerFd  int

	poller FastPoller

	wakeFd        int
	wakeUpPending atomic.Uint32

	loopGoroutineID atomic.Uint64
	loopDone        chan struct{}
	stopOnce        sync.Once
	closeOnce       sync.Once
}

func newWorker(id ThreadId, engine *Engine) (*worker, error) {
	wakeFd, _, err := createWakeFd(0, EFD_CLOEXEC|EFD_NONBLOCK)
	if err != nil {
		return nil, err
	}

	timerFd, err := unix.TimerfdCreate(unix.CLOCK_MONOTONIC, unix.TFD_CLOEXEC|unix.TFD_NONBLOCK)
	if err != nil {
		_ = unix.Close(wakeFd)
		return nil, err
	}

	w := &worker{
		id:       id,
		engine:   engine,
		state:    NewFastState(),
		external: NewChunkedIngress(),
		internal: NewChunkedIngress(),
		wakeFd:   wakeFd,
		timerFd:  timerFd,
		loopDone: make(chan struct{}),
	}

	if err := w.poller.Init(); err != nil {
		_ = unix.Close(wakeFd)
		_ = unix.Close(timerFd)
		return nil, err
	}
	if err := w.poller.RegisterFD(wakeFd, EventRead, func(IOEvents) { w.drainWakeFd() }); err != nil {
		_ = w.poller.Close()
		_ = unix.Close(wakeFd)
		_ = unix.Close(timerFd)
		return nil, err
	}
	if err := w.poller.RegisterFD(timerFd, EventRead, func(IOEvents) { w.drainTimerFd() }); err != nil {
		_ = w.poller.Close()
		_ = unix.Close(wakeFd)
		_ = unix.Close(timerFd)
		return nil, err
	}

	return w, nil
}

// run is the worker's loop goroutine body. It returns when ctx is cancelled
// or shutdown completes.
func (w *worker) run(ctx context.Context) error {
	w.loopGoroutineID.Store(getGoroutineID())
	defer w.loopGoroutineID.Store(0)
	defer close(w.loopDone)

	w.state.TryTransition(StateAwake, StateRunning)

	ctxDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			w.wake()
		case <-ctxDone:
		}
	}()
	defer close(ctxDone)

	for {
		select {
		case <-ctx.Done():
			w.drainAll()
			w.state.Store(StateTerminated)
			w.closeFDs()
			return ctx.Err()
		default:
		}

		if w.state.Load() == StateTerminating {
			w.drainAll()
			w.state.Store(StateTerminated)
			w.closeFDs()
			return nil
		}

		w.tick()
	}
}

func (w *worker) tick() {
	if m := w.engine.metrics; m != nil {
		m.Queue.UpdateIngress(w.externalLen())
		w.internalMu.Lock()
		internalLen := w.internal.Length()
		w.internalMu.Unlock()
		m.Queue.UpdateInternal(internalLen)
	}

	w.processInternal()
	w.processExternal()
	w.rearmTimer()

	timeout := 1000
	w.state.TryTransition(StateRunning, StateSleeping)
	_, err := w.poller.PollIO(timeout)
	w.state.TryTransition(StateSleeping, StateRunning)
	if err != nil {
		w.engine.logger().Log(LogEntry{Level: LevelError, Category: "poll", LoopID: int64(w.id), Message: "poll failed", Err: err})
	}
}

func (w *worker) processInternal() {
	for {
		w.internalMu.Lock()
		fn, ok := w.internal.Pop()
		w.internalMu.Unlock()
		if !ok {
			return
		}
		w.safeExecute(fn)
	}
}

func (w *worker) processExternal() {
	const budget = 1024
	for i := 0; i < budget; i++ {
		w.externalMu.Lock()
		fn, ok := w.external.Pop()
		w.externalMu.Unlock()
		if !ok {
			return
		}
		w.safeExecute(fn)
	}
}

func (w *worker) drainAll() {
	for i := 0; i < 3; {
		drained := false
		for {
			w.internalMu.Lock()
			fn, ok := w.internal.Pop()
			w.internalMu.Unlock()
			if !ok {
				break
			}
			w.safeExecute(fn)
			drained = true
		}
		for {
			w.externalMu.Lock()
			fn, ok := w.external.Pop()
			w.externalMu.Unlock()
			if !ok {
				break
			}
			w.safeExecute(fn)
			drained = true
		}
		if drained {
			i = 0
		} else {
			i++
			runtime.Gosched()
		}
	}
}

func (w *worker) safeExecute(fn func()) {
	if fn == nil {
		return
	}
	var start time.Time
	if w.engine.metrics != nil {
		start = time.Now()
	}
	defer func() {
		if m := w.engine.metrics; m != nil {
			m.Latency.Record(time.Since(start))
		}
		if r := recover(); r != nil {
			w.engine.logger().Log(LogEntry{Level: LevelError, Category: "detached", LoopID: int64(w.id), Message: "task panicked", Err: PanicError{Value: r}})
		}
	}()
	fn()
}

func (w *worker) externalLen() int {
	w.externalMu.Lock()
	defer w.externalMu.Unlock()
	return w.external.Length()
}

func (w *worker) submitExternal(fn func()) error {
	if w.state.Load() == StateTerminated {
		return ErrLoopTerminated
	}
	w.externalMu.Lock()
	w.external.Push(fn)
	w.externalMu.Unlock()
	w.wakeIfSleeping()
	return nil
}

func (w *worker) submitInternal(fn func()) error {
	if w.state.Load() == StateTerminated {
		return ErrLoopTerminated
	}
	w.internalMu.Lock()
	w.internal.Push(fn)
	w.internalMu.Unlock()
	w.wakeIfSleeping()
	return nil
}

// scheduleAt arranges for fn to run once order has elapsed, via the worker's
// timer heap. The heap itself is only ever touched from the loop goroutine,
// so the push is routed through the internal queue.
func (w *worker) scheduleAt(order Order, fn func()) error {
	return w.submitInternal(func() {
		w.timersMu.Lock()
		heap.Push(&w.timers, pendingTimer{when: order, fn: fn})
		w.timersMu.Unlock()
	})
}

// rearmTimer fires any timers that have already elapsed, then re-arms
// timerFd for the next earliest deadline (§4.3's periodic re-arm design).
func (w *worker) rearmTimer() {
	now := w.engine.Now()

	for {
		w.timersMu.Lock()
		if len(w.timers) == 0 || w.timers[0].when > now {
			w.timersMu.Unlock()
			break
		}
		t := heap.Pop(&w.timers).(pendingTimer)
		w.timersMu.Unlock()
		w.safeExecute(t.fn)
	}

	var spec unix.ItimerSpec
	w.timersMu.Lock()
	if len(w.timers) > 0 {
		delay := time.Duration(w.timers[0].when - now)
		if delay < time.Millisecond {
			delay = time.Millisecond
		}
		spec.Value = unix.NsecToTimespec(delay.Nanoseconds())
	}
	w.timersMu.Unlock()
	_ = unix.TimerfdSettime(w.timerFd, 0, &spec, nil)
}

func (w *worker) drainTimerFd() {
	var buf [8]byte
	_, _ = unix.Read(w.timerFd, buf[:])
}

func (w *worker) drainWakeFd() {
	var buf [8]byte
	for {
		_, err := unix.Read(w.wakeFd, buf[:])
		if err != nil {
			break
		}
	}
	w.wakeUpPending.Store(0)
}

func (w *worker) wake() {
	if w.wakeUpPending.CompareAndSwap(0, 1) {
		var one uint64 = 1
		buf := (*[8]byte)(unsafe.Pointer(&one))[:]
		_, _ = unix.Write(w.wakeFd, buf)
	}
}

func (w *worker) wakeIfSleeping() {
	if w.state.Load() == StateSleeping {
		w.wake()
	}
}

// shutdown requests termination, waits for the loop goroutine to drain and
// exit, or for ctx to expire.
func (w *worker) shutdown(ctx context.Context) error {
	var result error
	w.stopOnce.Do(func() {
		for {
			cur := w.state.Load()
			if cur == StateTerminated || cur == StateTerminating {
				break
			}
			if w.state.TryTransition(cur, StateTerminating) {
				w.wake()
				break
			}
		}
		select {
		case <-w.loopDone:
		case <-ctx.Done():
			result = ctx.Err()
		}
	})
	return result
}

func (w *worker) closeFDs() {
	w.closeOnce.Do(func() {
		_ = w.poller.Close()
		_ = unix.Close(w.wakeFd)
		_ = unix.Close(w.timerFd)
	})
}

func (w *worker) isLoopThread() bool {
	id := w.loopGoroutineID.Load()
	return id != 0 && getGoroutineID() == id
}

// getGoroutineID parses the current goroutine's numeric ID out of a stack
// trace header. Used only to detect same-thread fast paths, never for
// correctness-critical decisions.
func getGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] >= '0' && buf[i] <= '9' {
			id = id*10 + uint64(buf[i]-'0')
		} else {
			break
		}
	}
	return id
}
