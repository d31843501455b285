// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package asyncrt

import (
	"fmt"
	"io"
	"os"

	"github.com/joeycumines/logiface"
)

// logifaceEvent is the minimal logiface.Event implementation backing
// [NewLogifaceLogger]: it just accumulates the fields a [LogEntry] carries,
// leaving formatting to the configured writer.
type logifaceEvent struct {
	logiface.UnimplementedEvent

	lvl    logiface.Level
	msg    string
	err    error
	fields []logifaceField
}

type logifaceField struct {
	key string
	val any
}

func (e *logifaceEvent) Level() logiface.Level { return e.lvl }

func (e *logifaceEvent) AddField(key string, val any) {
	e.fields = append(e.fields, logifaceField{key, val})
}

func (e *logifaceEvent) AddMessage(msg string) bool {
	e.msg = msg
	return true
}

func (e *logifaceEvent) AddError(err error) bool {
	e.err = err
	return true
}

func toLogifaceLevel(level LogLevel) logiface.Level {
	switch level {
	case LevelDebug:
		return logiface.LevelDebug
	case LevelInfo:
		return logiface.LevelInformational
	case LevelWarn:
		return logiface.LevelWarning
	case LevelError:
		return logiface.LevelError
	default:
		return logiface.LevelInformational
	}
}

// LogifaceLogger adapts the engine's [Logger] interface onto
// github.com/joeycumines/logiface, so callers who already standardized on
// logiface for their own services can route engine diagnostics through the
// same pipeline instead of maintaining a second logging stack.
type LogifaceLogger struct {
	inner *logiface.Logger[*logifaceEvent]
}

// NewLogifaceLogger constructs a LogifaceLogger writing newline-delimited
// entries to out at or above level.
func NewLogifaceLogger(out io.Writer, level LogLevel) *LogifaceLogger {
	if out == nil {
		out = os.Stderr
	}
	return &LogifaceLogger{
		inner: logiface.New[*logifaceEvent](
			logiface.WithLevel[*logifaceEvent](toLogifaceLevel(level)),
			logiface.WithEventFactory[*logifaceEvent](logiface.EventFactoryFunc[*logifaceEvent](
				func(lvl logiface.Level) *logifaceEvent { return &logifaceEvent{lvl: lvl} },
			)),
			logiface.WithWriter[*logifaceEvent](logiface.WriterFunc[*logifaceEvent](
				func(e *logifaceEvent) error { return writeLogifaceEvent(out, e) },
			)),
		),
	}
}

// Log implements Logger.
func (l *LogifaceLogger) Log(entry LogEntry) {
	b := l.inner.Build(toLogifaceLevel(entry.Level))
	if b == nil || !b.Enabled() {
		return
	}
	b = b.Str("category", entry.Category)
	if entry.LoopID != 0 {
		b = b.Int64("loop_id", entry.LoopID)
	}
	if entry.TaskID != 0 {
		b = b.Int64("task_id", entry.TaskID)
	}
	if entry.TimerID != 0 {
		b = b.Int64("timer_id", entry.TimerID)
	}
	for k, v := range entry.Context {
		b = b.Field(k, v)
	}
	if entry.Err != nil {
		b = b.Err(entry.Err)
	}
	b.Log(entry.Message)
}

// IsEnabled implements Logger.
func (l *LogifaceLogger) IsEnabled(level LogLevel) bool {
	return l.inner.Level() != logiface.LevelDisabled && toLogifaceLevel(level) <= l.inner.Level()
}

func writeLogifaceEvent(out io.Writer, e *logifaceEvent) error {
	line := e.lvl.String() + " " + e.msg
	for _, f := range e.fields {
		line += " " + f.key + "="
		switch v := f.val.(type) {
		case string:
			line += v
		default:
			line += fmt.Sprintf("%v", v)
		}
	}
	if e.err != nil {
		line += " error=" + e.err.Error()
	}
	line += "\n"
	_, err := io.WriteString(out, line)
	return err
}
