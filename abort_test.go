// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package asyncrt

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAbortControllerNotifiesExistingHandlers(t *testing.T) {
	controller := NewAbortController()
	signal := controller.Signal()

	var reason any
	signal.OnAbort(func(r any) { reason = r })

	controller.Abort("because")
	require.True(t, signal.Aborted())
	require.Equal(t, "because", reason)
	require.Equal(t, "because", signal.Reason())
}

func TestAbortSignalOnAbortFiresImmediatelyIfAlreadyAborted(t *testing.T) {
	controller := NewAbortController()
	signal := controller.Signal()
	controller.Abort("first")

	var called bool
	signal.OnAbort(func(r any) { called = true })
	require.True(t, called)
}

func TestAbortIsIdempotent(t *testing.T) {
	controller := NewAbortController()
	signal := controller.Signal()
	controller.Abort("first")
	controller.Abort("second")
	require.Equal(t, "first", signal.Reason())
}

func TestAbortErrorIsMatching(t *testing.T) {
	var err error = &AbortError{Reason: "x"}
	require.True(t, errors.Is(err, &AbortError{}))
}

func TestAbortTimeoutFiresAfterDelay(t *testing.T) {
	engine := startTestEngine(t)

	controller, err := AbortTimeout(engine, AnyThread, 20*time.Millisecond)
	require.NoError(t, err)
	require.False(t, controller.Signal().Aborted())

	require.Eventually(t, func() bool {
		return controller.Signal().Aborted()
	}, time.Second, 5*time.Millisecond)
}

func TestAbortAnyAbortsWhenFirstSignalAborts(t *testing.T) {
	c1 := NewAbortController()
	c2 := NewAbortController()
	combined := AbortAny([]*AbortSignal{c1.Signal(), c2.Signal()})

	require.False(t, combined.Aborted())
	c2.Abort("from c2")
	require.True(t, combined.Aborted())
	require.Equal(t, "from c2", combined.Reason())
}

func TestAbortAnyHandlesEmptyInput(t *testing.T) {
	combined := AbortAny(nil)
	require.False(t, combined.Aborted())
}

func TestAbortSignalCancelPauseCancelsPendingWait(t *testing.T) {
	controller := NewAbortController()
	signal := controller.Signal()

	var pack PausePack
	var continuationRan bool
	pack.Continuation = func() { continuationRan = true }

	detach := signal.CancelPause(&pack, 7)
	t.Cleanup(detach)

	require.False(t, continuationRan)
	controller.Abort("stop")
	require.True(t, continuationRan)
	require.Less(t, pack.Scratch, 0)
}

func TestAbortSignalCancelPauseDetachIsInert(t *testing.T) {
	controller := NewAbortController()
	signal := controller.Signal()

	var pack PausePack
	pack.Continuation = func() {}

	detach := signal.CancelPause(&pack, 1)
	detach()

	require.NotPanics(t, func() { controller.Abort("stop") })
}
