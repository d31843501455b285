// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package asyncrt

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func startTestEngine(t *testing.T, opts ...EngineOption) *Engine {
	t.Helper()
	opts = append([]EngineOption{WithThreads(2, ThreadModeExact)}, opts...)
	engine, err := NewEngineWithOptions(opts...)
	require.NoError(t, err)
	require.NoError(t, engine.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = engine.Stop(ctx)
	})
	return engine
}

func TestEngineResumeRunsOnRequestedThread(t *testing.T) {
	engine := startTestEngine(t)

	done := make(chan ThreadId, 1)
	err := engine.Resume(func() {
		done <- engine.CurrentThread()
	}, ThreadId(0))
	require.NoError(t, err)

	select {
	case got := <-done:
		require.Equal(t, ThreadId(0), got)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for resume")
	}
}

func TestEngineDelayedResumeRespectsOrder(t *testing.T) {
	engine := startTestEngine(t)

	var fired []string
	done := make(chan struct{})

	start := engine.Now()
	_ = engine.DelayedResume(func() {
		fired = append(fired, "late")
		close(done)
	}, start.Add(40*time.Millisecond), AnyThread)
	_ = engine.DelayedResume(func() {
		fired = append(fired, "early")
	}, start.Add(10*time.Millisecond), AnyThread)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for timers")
	}

	require.Equal(t, []string{"early", "late"}, fired)
}

func TestEngineThreadCountHonorsExactMode(t *testing.T) {
	engine := startTestEngine(t, WithThreads(2, ThreadModeExact))
	require.Equal(t, 2, engine.ThreadCount())
}

func TestDetachedTaskRecoversPanic(t *testing.T) {
	engine := startTestEngine(t)

	logger := &capturingLogger{}
	engine.log = logger

	done := make(chan struct{})
	Detached(engine, func() {
		defer close(done)
		panic("boom")
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("detached task never ran")
	}
	time.Sleep(10 * time.Millisecond)
	require.Equal(t, int64(0), engine.DetachedCount())
}

type capturingLogger struct {
	entries []LogEntry
}

func (c *capturingLogger) Log(entry LogEntry)          { c.entries = append(c.entries, entry) }
func (c *capturingLogger) IsEnabled(level LogLevel) bool { return true }
