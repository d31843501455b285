// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package netio provides thin, core-consuming collaborators (§6): a file
// wrapper and TCP stream/acceptor, all riding the engine's routing and
// readiness primitives rather than a separate net.Conn-style event model.
package netio

import (
	"golang.org/x/sys/unix"

	asyncrt "github.com/joeycumines/go-asyncrt"
)

// FileOptions selects the open flags for [Open].
type FileOptions int

const (
	// Read opens the file read-only.
	Read FileOptions = iota
	// Trunc opens (creating if needed) write-only, truncating existing content.
	Trunc
	// Append opens (creating if needed) write-only, appending writes.
	Append
	// RW opens (creating if needed) read-write.
	RW
	// RWTrunc opens (creating if needed) read-write, truncating existing content.
	RWTrunc
	// RWAppend opens (creating if needed) read-write, appending writes.
	RWAppend
)

func (o FileOptions) flags() int {
	switch o {
	case Trunc:
		return unix.O_WRONLY | unix.O_CREAT | unix.O_TRUNC
	case Append:
		return unix.O_WRONLY | unix.O_CREAT | unix.O_APPEND
	case RW:
		return unix.O_RDWR | unix.O_CREAT
	case RWTrunc:
		return unix.O_RDWR | unix.O_CREAT | unix.O_TRUNC
	case RWAppend:
		return unix.O_RDWR | unix.O_CREAT | unix.O_APPEND
	default:
		return unix.O_RDONLY
	}
}

// File wraps a regular file descriptor. Regular files are always "ready"
// under epoll, so unlike [Stream]/[Acceptor], ReadSome/WriteTo hand the
// actual pread/pwrite syscall to a helper goroutine and resume the caller's
// task once it completes, rather than registering for readiness (§6's
// ring-backed openat/read/write/close operations, reproduced here over a
// helper goroutine in place of a true submission ring).
type File struct {
	fd     int
	engine *asyncrt.Engine
	thread asyncrt.ThreadId
	pos    int64
}

// Open opens path with the given options. The returned File's operations
// resume on thread.
func Open(engine *asyncrt.Engine, thread asyncrt.ThreadId, path string, opts FileOptions) (*File, error) {
	fd, err := unix.Open(path, opts.flags()|unix.O_CLOEXEC, 0o644)
	if err != nil {
		return nil, err
	}
	return &File{fd: fd, engine: engine, thread: thread}, nil
}

type fileResult struct {
	n   int
	err error
}

// submit hands off work to a helper goroutine and resumes the calling task
// on f.thread once it completes, via the pause-pack bridge (§4.1).
func (f *File) submit(work func() (int, error)) (int, error) {
	resultCh := make(chan fileResult, 1)
	go func() { n, err := work(); resultCh <- fileResult{n, err} }()

	var res fileResult
	asyncrt.Await(asyncrt.Pause(func(pack *asyncrt.PausePack) {
		pack.Target = f.thread
		go func() {
			res = <-resultCh
			_ = f.engine.Execute(pack.Continuation, pack.Target)
		}()
	}))
	return res.n, res.err
}

// ReadSome reads up to len(buf) bytes at the current position, advancing it
// on success.
func (f *File) ReadSome(buf []byte) (int, error) {
	n, err := f.submit(func() (int, error) { return unix.Pread(f.fd, buf, f.pos) })
	if err == nil {
		f.pos += int64(n)
	}
	return n, err
}

// WriteTo writes buf at the current position, advancing it on success.
func (f *File) WriteTo(buf []byte) (int, error) {
	n, err := f.submit(func() (int, error) { return unix.Pwrite(f.fd, buf, f.pos) })
	if err == nil {
		f.pos += int64(n)
	}
	return n, err
}

// Position reports the current read/write offset.
func (f *File) Position() int64 { return f.pos }

// Size reports the file's current size via fstat.
func (f *File) Size() (int64, error) {
	var st unix.Stat_t
	if err := unix.Fstat(f.fd, &st); err != nil {
		return 0, err
	}
	return st.Size, nil
}

// Close closes the underlying file descriptor.
func (f *File) Close() error {
	return unix.Close(f.fd)
}
