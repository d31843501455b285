//go:build linux

// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package asyncrt

import (
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// ioPtrTag distinguishes IoPtr's three completion-dispatch shapes (§3): the
// two low bits that a real kernel ring would tag a user_data pointer with,
// reproduced here as an explicit field since Go has no pointer tagging (§7's
// licensed substitution: "indices + type tag if tagged pointers are
// unavailable -- the low-two-bit encoding is an optimization, not a
// contract").
type ioPtrTag uint8

const (
	// ioPtrHandle dispatches into a *PausePack: the completion writes its
	// result into Scratch and invokes Continuation exactly once.
	ioPtrHandle ioPtrTag = iota
	// ioPtrContext dispatches by invoking a (callback, user_data) pair
	// directly with the integer result, with no pack involved.
	ioPtrContext
	// ioPtrQueue dispatches into one slot of a shared [IoQueue]: each
	// completion fills its slot and decrements the remaining count,
	// resuming the queue's continuation once it reaches zero.
	ioPtrQueue
)

// IoPtr is the tagged reference a ring submission carries as its user_data
// (§3, §6) and a completion dispatches through. Construct one via
// [NewIoPtrHandle], [NewIoPtrContext], or [IoQueue.Slot] -- never directly.
type IoPtr struct {
	tag   ioPtrTag
	pack  *PausePack
	ctxFn func(result int)
	queue *IoQueue
	slot  int
}

// NewIoPtrHandle wraps pack as a HANDLE-variant IoPtr (§3): the matching
// completion writes its integer result into pack.Scratch and resumes
// pack.Continuation exactly once.
func NewIoPtrHandle(pack *PausePack) IoPtr {
	return IoPtr{tag: ioPtrHandle, pack: pack}
}

// NewIoPtrContext wraps fn as a CONTEXT-variant IoPtr (§3): the matching
// completion invokes fn with the integer result directly.
func NewIoPtrContext(fn func(result int)) IoPtr {
	return IoPtr{tag: ioPtrContext, ctxFn: fn}
}

// IoQueue is the QUEUE variant's shared state (§3, §8): a fixed number of
// submissions share one IoQueue, each keyed to a distinct slot via
// [IoQueue.Slot]. Every slot's completion fills Results at its index and
// decrements the outstanding count exactly once; Continuation runs the
// moment the count reaches zero, satisfying the exactly-once slot-countdown
// invariant regardless of completion order.
type IoQueue struct {
	mu           sync.Mutex
	remaining    int
	Results      []int
	continuation func()
}

// NewIoQueue allocates a queue with n slots, invoking continuation once all
// n have been filled by a completion.
func NewIoQueue(n int, continuation func()) *IoQueue {
	return &IoQueue{
		remaining:    n,
		Results:      make([]int, n),
		continuation: continuation,
	}
}

// Slot returns the QUEUE-variant IoPtr for submission index i of q. i must
// be in [0, n) and used by exactly one submission.
func (q *IoQueue) Slot(i int) IoPtr {
	return IoPtr{tag: ioPtrQueue, queue: q, slot: i}
}

// Remaining reports how many of q's slots have yet to complete.
func (q *IoQueue) Remaining() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.remaining
}

// dispatch delivers a ring completion's integer result through p (§4.2's
// completion policy: "writes the integer result into each pack/context...
// resumes or dispatches"). Called at most once per submission.
func (p IoPtr) dispatch(result int) {
	switch p.tag {
	case ioPtrHandle:
		if p.pack == nil {
			return
		}
		p.pack.Scratch = result
		if cont := p.pack.Continuation; cont != nil {
			cont()
		}
	case ioPtrContext:
		if p.ctxFn != nil {
			p.ctxFn(result)
		}
	case ioPtrQueue:
		q := p.queue
		if q == nil {
			return
		}
		q.mu.Lock()
		if p.slot >= 0 && p.slot < len(q.Results) {
			q.Results[p.slot] = result
		}
		q.remaining--
		done := q.remaining <= 0
		cont := q.continuation
		q.mu.Unlock()
		if done && cont != nil {
			cont()
		}
	}
}

// ioOp names one of the submission entry kinds §6 lists for the ring
// (openat, close, read, write, readv, writev, read_fixed, write_fixed,
// recv, send, accept, connect, async_cancel).
type ioOp int

const (
	ioOpRead ioOp = iota
	ioOpWrite
	ioOpRecv
	ioOpSend
	ioOpOpenat
	ioOpClose
	ioOpAccept
	ioOpConnect
	ioOpReadV
	ioOpWriteV
	ioOpReadFixed
	ioOpWriteFixed
)

// ioRequest is one submission entry's arguments (§6's SQE), sized to cover
// every op this package issues through the shared submitIO code path.
type ioRequest struct {
	op    ioOp
	fd    int
	buf   []byte
	bufs  [][]byte
	path  string
	flags int
	mode  uint32
	addr  unix.Sockaddr
}

// ioReadinessFor reports which readiness direction req's op must wait on
// when the kernel isn't yet ready to service it (EAGAIN), mapping the ring's
// submission entries onto the epoll-backed reactor (§0's licensed
// substitution for a true io_uring).
func ioReadinessFor(op ioOp) IOEvents {
	switch op {
	case ioOpWrite, ioOpSend, ioOpConnect, ioOpWriteV, ioOpWriteFixed:
		return EventWrite
	default:
		return EventRead
	}
}

// ioResult normalizes a syscall's (n, err) pair into the ring's integer
// result convention (§7.1): non-negative on success, a negated errno on
// failure. wait reports EAGAIN/EWOULDBLOCK, telling submitIO to suspend on
// readiness and retry rather than complete.
func ioResult(n int, err error) (result int, wait bool) {
	if err == nil {
		return n, false
	}
	if err == unix.EAGAIN || err == unix.EWOULDBLOCK || err == unix.EINPROGRESS {
		return 0, true
	}
	if errno, ok := err.(unix.Errno); ok {
		return -int(errno), false
	}
	return -1, false
}

// tryIO attempts req's syscall exactly once, non-blocking. result/wait follow
// ioResult's convention; wait means the caller should suspend on readiness
// and call tryIO again once notified.
func tryIO(req ioRequest) (result int, wait bool) {
	switch req.op {
	case ioOpRead:
		n, err := unix.Read(req.fd, req.buf)
		return ioResult(n, err)
	case ioOpWrite:
		n, err := unix.Write(req.fd, req.buf)
		return ioResult(n, err)
	case ioOpRecv:
		n, _, err := unix.Recvfrom(req.fd, req.buf, req.flags)
		return ioResult(n, err)
	case ioOpSend:
		err := unix.Sendto(req.fd, req.buf, req.flags, nil)
		if err != nil {
			return ioResult(0, err)
		}
		return len(req.buf), false
	case ioOpOpenat:
		fd, err := unix.Openat(unix.AT_FDCWD, req.path, req.flags, req.mode)
		return ioResult(fd, err)
	case ioOpClose:
		if err := unix.Close(req.fd); err != nil {
			return ioResult(0, err)
		}
		return 0, false
	case ioOpAccept:
		connFd, _, err := unix.Accept4(req.fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
		return ioResult(connFd, err)
	case ioOpConnect:
		err := unix.Connect(req.fd, req.addr)
		if err == nil || err == unix.EISCONN {
			return 0, false
		}
		return ioResult(0, err)
	case ioOpReadV:
		n, err := unix.Readv(req.fd, req.bufs)
		return ioResult(n, err)
	case ioOpWriteV:
		n, err := unix.Writev(req.fd, req.bufs)
		return ioResult(n, err)
	case ioOpReadFixed:
		n, err := unix.Read(req.fd, req.buf)
		return ioResult(n, err)
	case ioOpWriteFixed:
		n, err := unix.Write(req.fd, req.buf)
		return ioResult(n, err)
	default:
		return submissionFailureSentinel, false
	}
}

// submitIO is the one ring code path every I/O primitive shares (§4.2): it
// performs req's syscall, and if the kernel isn't ready yet, registers for
// readiness on thread's poller and retries on the next notification, exactly
// as many times as needed. Once the syscall completes (success or real
// error), the result is dispatched through ptr on thread's internal queue,
// matching the completion policy's "resumes or dispatches" handoff.
//
// If the ring has no room for the submission (here: the poller rejects the
// registration, e.g. the fd is already registered), ptr is dispatched
// submissionFailureSentinel immediately on the calling goroutine (§7.2).
func submitIO(engine *Engine, thread ThreadId, req ioRequest, ptr IoPtr) error {
	return pumpIO(engine, thread, req, ptr, true)
}

// pumpIO is submitIO's recursive core. complete, when true, means the result
// should be delivered through the engine's internal queue (a real
// completion or the initial synchronous fast path); when false (a retry
// after readiness), the registered poller callback already runs on thread's
// loop goroutine, so dispatch happens inline.
func pumpIO(engine *Engine, thread ThreadId, req ioRequest, ptr IoPtr, complete bool) error {
	result, wait := tryIO(req)
	if !wait {
		if complete {
			return engine.Execute(func() { ptr.dispatch(result) }, thread)
		}
		ptr.dispatch(result)
		return nil
	}

	entry, fired := newIoRegistryEntry(ptr)
	engine.registry.Register(entry)

	err := engine.RegisterFD(thread, req.fd, ioReadinessFor(req.op), func(IOEvents) {
		_ = entry // keeps entry (and its weak-pointer registration) alive until this fires
		_ = engine.UnregisterFD(thread, req.fd)
		if !fired.CompareAndSwap(false, true) {
			return
		}
		_ = pumpIO(engine, thread, req, ptr, false)
	})
	if err != nil {
		if fired.CompareAndSwap(false, true) {
			ptr.dispatch(submissionFailureSentinel)
		}
		return nil
	}

	return nil
}

// newIoRegistryEntry builds the registry bookkeeping for one in-flight ring
// wait (§5): pending reports whether the completion has not yet fired, and
// cancel -- invoked once at shutdown by [registry.RejectAll] -- delivers the
// cancellation sentinel through ptr if nothing else got there first. fired
// is shared with the poller callback that would otherwise deliver the real
// completion, so exactly one of the two ever dispatches.
func newIoRegistryEntry(ptr IoPtr) (*registryEntry, *atomic.Bool) {
	fired := &atomic.Bool{}
	entry := &registryEntry{
		pending: func() bool { return !fired.Load() },
		cancel: func(error) {
			if fired.CompareAndSwap(false, true) {
				ptr.dispatch(cancelSentinel)
			}
		},
	}
	return entry, fired
}
