//go:build linux

// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package asyncrt

import (
	"context"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// Every primitive below is offered in the two shapes §4.2 requires, sharing
// submitIO as their one ring code path:
//
//   - An awaitable: Xxx(...) *OneShotFuture[int], whose result is the ring's
//     raw integer (byte count/fd/zero, or a negated errno/sentinel -- see
//     [IsCancellation], [IsSubmissionFailure]).
//   - A fire-and-forget: XxxPack(..., pack *PausePack) error, which dispatches
//     through pack instead of allocating a future.

// ioAwait submits req and returns a future for its ring result, using a
// CONTEXT-variant IoPtr with no pack involved.
func ioAwait(engine *Engine, thread ThreadId, req ioRequest) *OneShotFuture[int] {
	return NewOneShotFuture(func(ctx context.Context) (int, error) {
		resultCh := make(chan int, 1)
		ptr := NewIoPtrContext(func(result int) { resultCh <- result })
		if err := submitIO(engine, thread, req, ptr); err != nil {
			return 0, err
		}
		select {
		case result := <-resultCh:
			return result, nil
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	})
}

// Read submits a ring read of fd into buf (§6).
func Read(engine *Engine, thread ThreadId, fd int, buf []byte) *OneShotFuture[int] {
	return ioAwait(engine, thread, ioRequest{op: ioOpRead, fd: fd, buf: buf})
}

// ReadPack is Read's fire-and-forget shape.
func ReadPack(engine *Engine, thread ThreadId, fd int, buf []byte, pack *PausePack) error {
	return submitIO(engine, thread, ioRequest{op: ioOpRead, fd: fd, buf: buf}, NewIoPtrHandle(pack))
}

// Write submits a ring write of buf to fd (§6).
func Write(engine *Engine, thread ThreadId, fd int, buf []byte) *OneShotFuture[int] {
	return ioAwait(engine, thread, ioRequest{op: ioOpWrite, fd: fd, buf: buf})
}

// WritePack is Write's fire-and-forget shape.
func WritePack(engine *Engine, thread ThreadId, fd int, buf []byte, pack *PausePack) error {
	return submitIO(engine, thread, ioRequest{op: ioOpWrite, fd: fd, buf: buf}, NewIoPtrHandle(pack))
}

// Recv submits a ring recv of fd into buf with the given flags (§6).
func Recv(engine *Engine, thread ThreadId, fd int, buf []byte, flags int) *OneShotFuture[int] {
	return ioAwait(engine, thread, ioRequest{op: ioOpRecv, fd: fd, buf: buf, flags: flags})
}

// RecvPack is Recv's fire-and-forget shape.
func RecvPack(engine *Engine, thread ThreadId, fd int, buf []byte, flags int, pack *PausePack) error {
	return submitIO(engine, thread, ioRequest{op: ioOpRecv, fd: fd, buf: buf, flags: flags}, NewIoPtrHandle(pack))
}

// Send submits a ring send of buf to fd with the given flags (§6).
func Send(engine *Engine, thread ThreadId, fd int, buf []byte, flags int) *OneShotFuture[int] {
	return ioAwait(engine, thread, ioRequest{op: ioOpSend, fd: fd, buf: buf, flags: flags})
}

// SendPack is Send's fire-and-forget shape.
func SendPack(engine *Engine, thread ThreadId, fd int, buf []byte, flags int, pack *PausePack) error {
	return submitIO(engine, thread, ioRequest{op: ioOpSend, fd: fd, buf: buf, flags: flags}, NewIoPtrHandle(pack))
}

// Openat submits a ring openat relative to AT_FDCWD (§6); its ring result is
// the newly opened fd, or a negated errno.
func Openat(engine *Engine, thread ThreadId, path string, flags int, mode uint32) *OneShotFuture[int] {
	return ioAwait(engine, thread, ioRequest{op: ioOpOpenat, path: path, flags: flags, mode: mode})
}

// OpenatPack is Openat's fire-and-forget shape.
func OpenatPack(engine *Engine, thread ThreadId, path string, flags int, mode uint32, pack *PausePack) error {
	return submitIO(engine, thread, ioRequest{op: ioOpOpenat, path: path, flags: flags, mode: mode}, NewIoPtrHandle(pack))
}

// Close submits a ring close of fd (§6).
func Close(engine *Engine, thread ThreadId, fd int) *OneShotFuture[int] {
	return ioAwait(engine, thread, ioRequest{op: ioOpClose, fd: fd})
}

// ClosePack is Close's fire-and-forget shape.
func ClosePack(engine *Engine, thread ThreadId, fd int, pack *PausePack) error {
	return submitIO(engine, thread, ioRequest{op: ioOpClose, fd: fd}, NewIoPtrHandle(pack))
}

// Accept submits a ring accept on listenFd (§6); its ring result is the
// accepted connection's fd, or a negated errno.
func Accept(engine *Engine, thread ThreadId, listenFd int) *OneShotFuture[int] {
	return ioAwait(engine, thread, ioRequest{op: ioOpAccept, fd: listenFd})
}

// AcceptPack is Accept's fire-and-forget shape.
func AcceptPack(engine *Engine, thread ThreadId, listenFd int, pack *PausePack) error {
	return submitIO(engine, thread, ioRequest{op: ioOpAccept, fd: listenFd}, NewIoPtrHandle(pack))
}

// Connect submits a ring connect of fd to addr (§6); its ring result is 0 on
// success or a negated errno.
func Connect(engine *Engine, thread ThreadId, fd int, addr unix.Sockaddr) *OneShotFuture[int] {
	return ioAwait(engine, thread, ioRequest{op: ioOpConnect, fd: fd, addr: addr})
}

// ConnectPack is Connect's fire-and-forget shape.
func ConnectPack(engine *Engine, thread ThreadId, fd int, addr unix.Sockaddr, pack *PausePack) error {
	return submitIO(engine, thread, ioRequest{op: ioOpConnect, fd: fd, addr: addr}, NewIoPtrHandle(pack))
}

// ReadV submits a ring readv of fd into bufs (§6's vectored variant).
func ReadV(engine *Engine, thread ThreadId, fd int, bufs [][]byte) *OneShotFuture[int] {
	return ioAwait(engine, thread, ioRequest{op: ioOpReadV, fd: fd, bufs: bufs})
}

// ReadVPack is ReadV's fire-and-forget shape.
func ReadVPack(engine *Engine, thread ThreadId, fd int, bufs [][]byte, pack *PausePack) error {
	return submitIO(engine, thread, ioRequest{op: ioOpReadV, fd: fd, bufs: bufs}, NewIoPtrHandle(pack))
}

// WriteV submits a ring writev of bufs to fd (§6's vectored variant).
func WriteV(engine *Engine, thread ThreadId, fd int, bufs [][]byte) *OneShotFuture[int] {
	return ioAwait(engine, thread, ioRequest{op: ioOpWriteV, fd: fd, bufs: bufs})
}

// WriteVPack is WriteV's fire-and-forget shape.
func WriteVPack(engine *Engine, thread ThreadId, fd int, bufs [][]byte, pack *PausePack) error {
	return submitIO(engine, thread, ioRequest{op: ioOpWriteV, fd: fd, bufs: bufs}, NewIoPtrHandle(pack))
}

// FixedIOResult is ReadFixed/WriteFixed's settled value: N follows the
// ring's integer-result convention; Data holds a private copy of the bytes a
// ReadFixed read (nil for WriteFixed, since the caller already has them).
type FixedIOResult struct {
	N    int
	Data []byte
}

// ReadFixed submits a ring read_fixed against fd (§3, §6): it claims one of
// the engine's pre-registered fixed buffers, reads into it, copies the
// result out, and releases the buffer back to the pool via a
// [VisitorFuture] deferred hook -- exactly the claim/release path
// fixedBufferPool's doc comment names. The copy happens before the release
// hook runs, so the freed buffer is never read after being handed back.
func ReadFixed(engine *Engine, thread ThreadId, fd int) *VisitorFuture[FixedIOResult] {
	var future *VisitorFuture[FixedIOResult]
	future = NewVisitorFuture(func(ctx context.Context) (FixedIOResult, error) {
		idx, buf, ok := engine.fixedPool.Claim()
		if !ok {
			return FixedIOResult{N: submissionFailureSentinel}, nil
		}

		resultCh := make(chan int, 1)
		ptr := NewIoPtrContext(func(result int) { resultCh <- result })
		if err := submitIO(engine, thread, ioRequest{op: ioOpReadFixed, fd: fd, buf: buf}, ptr); err != nil {
			engine.fixedPool.Release(idx)
			return FixedIOResult{}, err
		}

		var n int
		select {
		case n = <-resultCh:
		case <-ctx.Done():
			engine.fixedPool.Release(idx)
			return FixedIOResult{}, ctx.Err()
		}

		var data []byte
		if n > 0 {
			data = append([]byte(nil), buf[:n]...)
		}
		future.YieldDeferred(func(*FixedIOResult) { engine.fixedPool.Release(idx) })
		return FixedIOResult{N: n, Data: data}, nil
	})
	return future
}

// ReadFixedPack is ReadFixed's fire-and-forget shape: dst, if non-nil, is
// overwritten with a private copy of the bytes read before pack's original
// continuation runs and the claimed buffer is released.
func ReadFixedPack(engine *Engine, thread ThreadId, fd int, pack *PausePack, dst *[]byte) error {
	idx, buf, ok := engine.fixedPool.Claim()
	if !ok {
		pack.Scratch = submissionFailureSentinel
		if cont := pack.Continuation; cont != nil {
			cont()
		}
		return nil
	}

	orig := pack.Continuation
	pack.Continuation = func() {
		if pack.Scratch > 0 && dst != nil {
			*dst = append((*dst)[:0], buf[:pack.Scratch]...)
		}
		engine.fixedPool.Release(idx)
		if orig != nil {
			orig()
		}
	}
	return submitIO(engine, thread, ioRequest{op: ioOpReadFixed, fd: fd, buf: buf}, NewIoPtrHandle(pack))
}

// WriteFixed submits a ring write_fixed of data to fd (§3, §6): it claims a
// fixed buffer, copies data into it, writes it out, and releases the buffer
// via a deferred hook once the write settles.
func WriteFixed(engine *Engine, thread ThreadId, fd int, data []byte) *VisitorFuture[FixedIOResult] {
	var future *VisitorFuture[FixedIOResult]
	future = NewVisitorFuture(func(ctx context.Context) (FixedIOResult, error) {
		idx, buf, ok := engine.fixedPool.Claim()
		if !ok {
			return FixedIOResult{N: submissionFailureSentinel}, nil
		}
		n := copy(buf, data)

		resultCh := make(chan int, 1)
		ptr := NewIoPtrContext(func(result int) { resultCh <- result })
		if err := submitIO(engine, thread, ioRequest{op: ioOpWriteFixed, fd: fd, buf: buf[:n]}, ptr); err != nil {
			engine.fixedPool.Release(idx)
			return FixedIOResult{}, err
		}

		var result int
		select {
		case result = <-resultCh:
		case <-ctx.Done():
			engine.fixedPool.Release(idx)
			return FixedIOResult{}, ctx.Err()
		}

		future.YieldDeferred(func(*FixedIOResult) { engine.fixedPool.Release(idx) })
		return FixedIOResult{N: result}, nil
	})
	return future
}

// WriteFixedPack is WriteFixed's fire-and-forget shape.
func WriteFixedPack(engine *Engine, thread ThreadId, fd int, data []byte, pack *PausePack) error {
	idx, buf, ok := engine.fixedPool.Claim()
	if !ok {
		pack.Scratch = submissionFailureSentinel
		if cont := pack.Continuation; cont != nil {
			cont()
		}
		return nil
	}
	n := copy(buf, data)

	orig := pack.Continuation
	pack.Continuation = func() {
		engine.fixedPool.Release(idx)
		if orig != nil {
			orig()
		}
	}
	return submitIO(engine, thread, ioRequest{op: ioOpWriteFixed, fd: fd, buf: buf[:n]}, NewIoPtrHandle(pack))
}

// AsyncCancel submits the ring's async_cancel op (§6) against a still
// in-flight HANDLE-variant submission: it delegates to [CancelEvent] so the
// dispatch and sentinel conventions (§7) are identical regardless of which
// primitive is being cancelled.
func AsyncCancel(pack *PausePack, cancelOnce *atomic.Bool, code int) CancelResult {
	return CancelEvent(pack, cancelOnce, code)
}
