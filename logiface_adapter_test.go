// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package asyncrt

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLogifaceLoggerWritesEnabledEntries(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogifaceLogger(&buf, LevelInfo)

	logger.Log(LogEntry{
		Level:    LevelInfo,
		Category: "worker",
		TaskID:   42,
		Message:  "tick complete",
	})

	out := buf.String()
	require.Contains(t, out, "tick complete")
	require.Contains(t, out, "category=worker")
	require.Contains(t, out, "task_id=42")
}

func TestLogifaceLoggerSuppressesBelowThreshold(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogifaceLogger(&buf, LevelWarn)

	logger.Log(LogEntry{Level: LevelDebug, Message: "should not appear"})
	require.Empty(t, buf.String())

	require.False(t, logger.IsEnabled(LevelDebug))
	require.True(t, logger.IsEnabled(LevelWarn))
	require.True(t, logger.IsEnabled(LevelError))
}

func TestLogifaceLoggerIncludesErrorField(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogifaceLogger(&buf, LevelInfo)

	logger.Log(LogEntry{
		Level:    LevelError,
		Category: "engine",
		Message:  "panic recovered",
		Err:      errors.New("boom"),
	})

	require.Contains(t, buf.String(), "error=boom")
}

func TestLogifaceLoggerDefaultsNilWriterToStderr(t *testing.T) {
	logger := NewLogifaceLogger(nil, LevelInfo)
	require.NotNil(t, logger)
	require.True(t, logger.IsEnabled(LevelInfo))
}
