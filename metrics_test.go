// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package asyncrt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLatencyMetricsSampleComputesExactPercentilesForSmallN(t *testing.T) {
	var l LatencyMetrics
	for _, d := range []time.Duration{10, 20, 30, 40} {
		l.Record(d * time.Millisecond)
	}
	n := l.Sample()
	require.Equal(t, 4, n)
	require.Equal(t, 40*time.Millisecond, l.Max)
}

func TestQueueMetricsTracksMaxAndEMA(t *testing.T) {
	var q QueueMetrics
	q.UpdateIngress(5)
	q.UpdateIngress(1)
	q.UpdateIngress(9)
	require.Equal(t, 9, q.IngressMax)
	require.Equal(t, 9, q.IngressCurrent)
	require.InDelta(t, 5.0, q.IngressAvg, 5.0)
}

func TestTPSCounterRejectsInvalidWindow(t *testing.T) {
	require.Panics(t, func() { NewTPSCounter(0, time.Millisecond) })
	require.Panics(t, func() { NewTPSCounter(time.Second, 0) })
	require.Panics(t, func() { NewTPSCounter(time.Second, 2*time.Second) })
}

func TestTPSCounterReportsNonzeroAfterIncrement(t *testing.T) {
	counter := NewTPSCounter(time.Second, 50*time.Millisecond)
	for i := 0; i < 10; i++ {
		counter.Increment()
	}
	require.Greater(t, counter.TPS(), 0.0)
}

func TestEngineMetricsWiringRecordsLatency(t *testing.T) {
	m := &Metrics{}
	engine := startTestEngine(t, WithMetrics(m))

	done := make(chan struct{})
	require.NoError(t, engine.Execute(func() {
		close(done)
	}, AnyThread))
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("executed task never ran")
	}

	require.Eventually(t, func() bool {
		return m.Latency.Sample() > 0
	}, time.Second, 10*time.Millisecond)
}
