// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package netio

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	asyncrt "github.com/joeycumines/go-asyncrt"
)

// Stream wraps a connected TCP socket, driven by the engine's poller instead
// of a net.Conn goroutine: Read/Write suspend the calling task until the fd
// reports readiness, rather than blocking an OS thread (§6).
type Stream struct {
	engine *asyncrt.Engine
	thread asyncrt.ThreadId
	fd     int

	mu      sync.Mutex
	lastErr error
}

func newStream(engine *asyncrt.Engine, thread asyncrt.ThreadId, fd int) *Stream {
	return &Stream{engine: engine, thread: thread, fd: fd}
}

// ReadSome reads whatever is currently available into buf, riding the
// engine's I/O ring (asyncrt.Read) rather than a raw readiness loop: the ring
// retries internally until the fd is readable, so this suspends the calling
// task at most once. Returns 0, nil on EOF.
func (s *Stream) ReadSome(buf []byte) (int, error) {
	n, err := asyncrt.Read(s.engine, s.thread, s.fd, buf).Await(context.Background())
	if err != nil {
		return 0, err
	}
	if n < 0 {
		if asyncrt.IsCancellation(n) {
			return 0, asyncrt.ErrCancelled
		}
		sysErr := unix.Errno(-n)
		s.setErr(sysErr)
		return 0, sysErr
	}
	return n, nil
}

// Read fills buf entirely, suspending as many times as needed, returning
// early with whatever was read so far plus the error (including io.EOF-like
// short reads signaled by a 0,nil ReadSome).
func (s *Stream) Read(buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := s.ReadSome(buf[total:])
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, nil
		}
		total += n
	}
	return total, nil
}

// WriteSome writes as much of buf as the socket currently accepts, riding
// the engine's I/O ring rather than a raw readiness loop.
func (s *Stream) WriteSome(buf []byte) (int, error) {
	n, err := asyncrt.Write(s.engine, s.thread, s.fd, buf).Await(context.Background())
	if err != nil {
		return 0, err
	}
	if n < 0 {
		if asyncrt.IsCancellation(n) {
			return 0, asyncrt.ErrCancelled
		}
		sysErr := unix.Errno(-n)
		s.setErr(sysErr)
		return 0, sysErr
	}
	return n, nil
}

// Write writes all of buf, applying an exponential backoff (1ms doubling to
// 1s, then failing) between retries whenever WriteSome completes with zero
// bytes written at the same offset (§9's resolved open question on
// write-retry behavior). EAGAIN itself is retried inside the ring and never
// reaches this loop.
func (s *Stream) Write(buf []byte) (int, error) {
	total := 0
	backoff := time.Millisecond
	const maxBackoff = time.Second

	for total < len(buf) {
		n, err := s.WriteSome(buf[total:])
		if err != nil {
			return total, err
		}
		if n == 0 {
			if backoff > maxBackoff {
				return total, asyncrt.ErrLoopOverloaded
			}
			s.sleep(backoff)
			backoff *= 2
			continue
		}
		backoff = time.Millisecond
		total += n
	}
	return total, nil
}

// sleep suspends the calling task for d, resuming on s.thread via the
// engine's timer heap rather than blocking an OS thread.
func (s *Stream) sleep(d time.Duration) {
	asyncrt.Await(asyncrt.Pause(func(pack *asyncrt.PausePack) {
		pack.Target = s.thread
		_ = s.engine.DelayedResume(pack.Continuation, s.engine.Now().Add(d), s.thread)
	}))
}

func (s *Stream) setErr(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}

// LastError reports the most recent Read/Write error, if any.
func (s *Stream) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// CancelRead unblocks a task currently suspended in ReadSome/Read by forcing
// the fd's read side closed for further waits; in-flight kernel reads are
// not interrupted, only the suspension.
func (s *Stream) CancelRead() {
	_ = s.engine.ModifyFD(s.thread, s.fd, asyncrt.EventWrite)
}

// CancelWrite is CancelRead's write-side counterpart.
func (s *Stream) CancelWrite() {
	_ = s.engine.ModifyFD(s.thread, s.fd, asyncrt.EventRead)
}

// Shutdown half-closes the connection per how (unix.SHUT_RD/WR/RDWR).
func (s *Stream) Shutdown(how int) error {
	return unix.Shutdown(s.fd, how)
}

// Close closes the underlying socket.
func (s *Stream) Close() error {
	_ = s.engine.UnregisterFD(s.thread, s.fd)
	return unix.Close(s.fd)
}
