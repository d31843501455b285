// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package asyncrt

import (
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHandleSignalDispatchesToRegisteredThread(t *testing.T) {
	engine := startTestEngine(t)

	received := make(chan os.Signal, 1)
	err := engine.HandleSignal(syscall.SIGUSR1, AnyThread, func(sig os.Signal) {
		received <- sig
	})
	require.NoError(t, err)

	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGUSR1))

	select {
	case sig := <-received:
		require.Equal(t, syscall.SIGUSR1, sig)
	case <-time.After(time.Second):
		t.Fatal("signal handler never fired")
	}
}

func TestHandleSignalRejectsSecondEngine(t *testing.T) {
	first := startTestEngine(t)
	require.NoError(t, first.HandleSignal(syscall.SIGUSR2, AnyThread, func(os.Signal) {}))

	second, err := NewEngineWithOptions(WithThreads(1, ThreadModeExact))
	require.NoError(t, err)
	require.NoError(t, second.Start(t.Context()))
	t.Cleanup(func() { _ = second.Stop(t.Context()) })

	err = second.HandleSignal(syscall.SIGUSR2, AnyThread, func(os.Signal) {})
	require.ErrorIs(t, err, ErrSignalDispatcherUnavailable)
}
