// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package netio

import (
	"context"
	"net"
	"sync"

	"golang.org/x/sys/unix"

	asyncrt "github.com/joeycumines/go-asyncrt"
)

// Acceptor listens for inbound TCP connections through the engine's I/O
// ring rather than net.Listener's own goroutine-per-Accept model: the raw
// listener fd is pulled out via SyscallConn, duplicated, set non-blocking,
// and submitted to the ring by each Accept call.
type Acceptor struct {
	engine *asyncrt.Engine
	thread asyncrt.ThreadId

	ln   *net.TCPListener
	fd   int
	addr net.Addr

	mu       sync.Mutex
	lastErr  error
	closed   bool
	cancelCh chan struct{}
}

// Listen binds addr and keeps a non-blocking duplicate of the listener fd
// for Accept to submit on thread. Listen itself registers nothing with the
// poller.
func Listen(engine *asyncrt.Engine, thread asyncrt.ThreadId, addr string) (*Acceptor, error) {
	lc := net.ListenConfig{}
	l, err := lc.Listen(context.Background(), "tcp", addr)
	if err != nil {
		return nil, err
	}
	tl := l.(*net.TCPListener)

	sc, err := tl.SyscallConn()
	if err != nil {
		_ = tl.Close()
		return nil, err
	}

	var fd int
	var ctrlErr error
	err = sc.Control(func(p uintptr) {
		newFd, dupErr := unix.Dup(int(p))
		if dupErr != nil {
			ctrlErr = dupErr
			return
		}
		fd = newFd
	})
	if err != nil {
		_ = tl.Close()
		return nil, err
	}
	if ctrlErr != nil {
		_ = tl.Close()
		return nil, ctrlErr
	}
	_ = unix.SetNonblock(fd, true)

	return &Acceptor{
		engine:   engine,
		thread:   thread,
		ln:       tl,
		fd:       fd,
		addr:     tl.Addr(),
		cancelCh: make(chan struct{}),
	}, nil
}

// Accept returns the next inbound connection, riding the engine's I/O ring
// (asyncrt.Accept) rather than a raw readiness loop: the ring retries
// internally until the listener fd is acceptable, so this suspends the
// calling task at most once.
func (a *Acceptor) Accept() (*Stream, error) {
	connFd, err := asyncrt.Accept(a.engine, a.thread, a.fd).Await(context.Background())
	if err != nil {
		return nil, err
	}
	if connFd < 0 {
		if asyncrt.IsCancellation(connFd) {
			return nil, asyncrt.ErrCancelled
		}
		sysErr := unix.Errno(-connFd)
		a.mu.Lock()
		a.lastErr = sysErr
		a.mu.Unlock()
		return nil, sysErr
	}

	select {
	case <-a.cancelCh:
		_ = unix.Close(connFd)
		return nil, asyncrt.ErrCancelled
	default:
	}

	return newStream(a.engine, a.thread, connFd), nil
}

// LastError reports the most recent Accept error, if any.
func (a *Acceptor) LastError() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastErr
}

// Cancel marks the acceptor cancelled: an Accept whose ring accept completes
// after Cancel closes the accepted connection and returns ErrCancelled.
// Cancel does not interrupt an Accept that is still waiting for a
// connection.
func (a *Acceptor) Cancel() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	close(a.cancelCh)
}

// Close closes the listener and its registered fd.
func (a *Acceptor) Close() error {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
	}
	a.mu.Unlock()
	_ = a.engine.UnregisterFD(a.thread, a.fd)
	_ = unix.Close(a.fd)
	return a.ln.Close()
}

// Addr reports the listener's bound address.
func (a *Acceptor) Addr() net.Addr { return a.addr }
