// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package netio

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"github.com/stretchr/testify/require"

	asyncrt "github.com/joeycumines/go-asyncrt"
)

// dialStream connects to addr with the standard library, then pulls out a
// raw duplicated fd the same way [Listen] does, so the resulting [Stream]
// rides the engine's poller instead of net.Conn's own blocking goroutine.
func dialStream(engine *asyncrt.Engine, thread asyncrt.ThreadId, addr string) (*Stream, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	tc := conn.(*net.TCPConn)
	sc, err := tc.SyscallConn()
	if err != nil {
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
		return nil, err
	}
	if ctrlErr != nil {
		return nil, ctrlErr
	}
	_ = unix.SetNonblock(fd, true)

	return newStream(engine, thread, fd), nil
}

func startTestEngine(t *testing.T) *asyncrt.Engine {
	t.Helper()
	engine, err := asyncrt.NewEngineWithOptions(asyncrt.WithThreads(2, asyncrt.ThreadModeExact))
	require.NoError(t, err)
	require.NoError(t, engine.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = engine.Stop(ctx)
	})
	return engine
}

func TestFileWritesThenReadsBackContent(t *testing.T) {
	engine := startTestEngine(t)
	path := filepath.Join(t.TempDir(), "roundtrip.txt")

	done := make(chan struct{})
	var readBack []byte
	var opErr error

	asyncrt.Detached(engine, func() {
		defer close(done)

		f, err := Open(engine, asyncrt.ThreadId(0), path, RWTrunc)
		if err != nil {
			opErr = err
			return
		}
		defer f.Close()

		payload := []byte("hello from the event loop")
		n, err := f.WriteTo(payload)
		if err != nil {
			opErr = err
			return
		}
		if n != len(payload) {
			opErr = fmt.Errorf("short write: %d", n)
			return
		}
		require.Equal(t, int64(len(payload)), f.Position())

		size, err := f.Size()
		if err != nil {
			opErr = err
			return
		}
		if size != int64(len(payload)) {
			opErr = fmt.Errorf("unexpected size %d", size)
			return
		}

		f.pos = 0
		buf := make([]byte, len(payload))
		n, err = f.ReadSome(buf)
		if err != nil {
			opErr = err
			return
		}
		readBack = buf[:n]
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("file round trip never completed")
	}

	require.NoError(t, opErr)
	require.Equal(t, "hello from the event loop", string(readBack))

	_, statErr := os.Stat(path)
	require.NoError(t, statErr)
}

func TestAcceptorAndStreamEchoOverLoopback(t *testing.T) {
	engine := startTestEngine(t)

	acceptor, err := Listen(engine, asyncrt.ThreadId(0), "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = acceptor.Close() })

	serverDone := make(chan struct{})
	asyncrt.Detached(engine, func() {
		defer close(serverDone)
		conn, err := acceptor.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		buf := make([]byte, 11)
		n, err := conn.Read(buf)
		if err != nil && n == 0 {
			return
		}
		_, _ = conn.Write(buf[:n])
	})

	clientDone := make(chan struct{})
	var got string
	asyncrt.Detached(engine, func() {
		defer close(clientDone)

		c, dialErr := dialStream(engine, asyncrt.ThreadId(1), acceptor.Addr().String())
		if dialErr != nil {
			return
		}
		defer c.Close()

		_, writeErr := c.Write([]byte("hello world!"[:11]))
		if writeErr != nil {
			return
		}

		buf := make([]byte, 11)
		n, readErr := c.Read(buf)
		if readErr != nil && n == 0 {
			return
		}
		got = string(buf[:n])
	})

	select {
	case <-clientDone:
	case <-time.After(3 * time.Second):
		t.Fatal("client never completed")
	}
	select {
	case <-serverDone:
	case <-time.After(3 * time.Second):
		t.Fatal("server never completed")
	}

	require.Equal(t, "hello world", got)
}

func TestAcceptorHandlesConcurrentConnections(t *testing.T) {
	engine := startTestEngine(t)

	acceptor, err := Listen(engine, asyncrt.ThreadId(0), "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = acceptor.Close() })

	const clients = 25
	var wg sync.WaitGroup
	wg.Add(clients)

	for i := 0; i < clients; i++ {
		asyncrt.Detached(engine, func() {
			defer wg.Done()
			conn, err := acceptor.Accept()
			if err != nil {
				return
			}
			defer conn.Close()
			buf := make([]byte, 4)
			n, err := conn.Read(buf)
			if err != nil && n == 0 {
				return
			}
			_, _ = conn.Write(buf[:n])
		})
	}

	var clientWg sync.WaitGroup
	clientWg.Add(clients)
	results := make([]string, clients)
	for i := 0; i < clients; i++ {
		i := i
		asyncrt.Detached(engine, func() {
			defer clientWg.Done()
			c, err := dialStream(engine, asyncrt.ThreadId(1), acceptor.Addr().String())
			if err != nil {
				return
			}
			defer c.Close()
			if _, err := c.Write([]byte("ping")); err != nil {
				return
			}
			buf := make([]byte, 4)
			n, err := c.Read(buf)
			if err != nil && n == 0 {
				return
			}
			results[i] = string(buf[:n])
		})
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		clientWg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("stress echo never completed")
	}

	for i, r := range results {
		require.Equalf(t, "ping", r, "client %d", i)
	}
}
