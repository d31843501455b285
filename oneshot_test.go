// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package asyncrt

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestOneShotFutureSettlesExactlyOnce(t *testing.T) {
	var calls int
	f := NewOneShotFuture(func(ctx context.Context) (int, error) {
		calls++
		return 42, nil
	})

	v, err := f.Await(context.Background())
	require.NoError(t, err)
	require.Equal(t, 42, v)
	require.Equal(t, 1, calls)
	require.True(t, f.State())
}

func TestOneShotFutureRejectsSecondAwaiter(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	f := NewOneShotFuture(func(ctx context.Context) (int, error) {
		close(started)
		<-release
		return 1, nil
	})

	go func() { _, _ = f.Await(context.Background()) }()
	<-started

	_, err := f.Await(context.Background())
	require.ErrorIs(t, err, ErrAlreadyAwaited)
	close(release)
}

func TestOneShotFutureRecoversPanic(t *testing.T) {
	f := NewOneShotFuture(func(ctx context.Context) (int, error) {
		panic("boom")
	})
	_, err := f.Await(context.Background())
	var panicErr PanicError
	require.ErrorAs(t, err, &panicErr)
}

func TestOneShotFutureHonorsContextCancellation(t *testing.T) {
	f := NewOneShotFuture(func(ctx context.Context) (int, error) {
		time.Sleep(time.Second)
		return 1, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := f.Await(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGeneratorFutureYieldsThenCompletes(t *testing.T) {
	g := NewGeneratorFuture(func(yield func(int) bool) {
		for i := 0; i < 3; i++ {
			if !yield(i) {
				return
			}
		}
	})

	var values []int
	ctx := context.Background()
	for {
		v, complete, err := g.Next(ctx)
		require.NoError(t, err)
		if complete {
			break
		}
		values = append(values, v)
	}
	require.Equal(t, []int{0, 1, 2}, values)
	require.True(t, g.IsComplete())
}

func TestGeneratorForceCompleteStopsBody(t *testing.T) {
	unblocked := make(chan struct{})
	g := NewGeneratorFuture(func(yield func(int) bool) {
		for i := 0; ; i++ {
			if !yield(i) {
				close(unblocked)
				return
			}
		}
	})

	ctx := context.Background()
	_, complete, err := g.Next(ctx)
	require.NoError(t, err)
	require.False(t, complete)

	g.ForceComplete()
	select {
	case <-unblocked:
	case <-time.After(time.Second):
		t.Fatal("generator body never observed force-complete")
	}

	_, complete, err = g.Next(ctx)
	require.True(t, complete)
	require.ErrorIs(t, err, ErrGeneratorComplete)
}

func TestWaitAllReturnsInCallOrder(t *testing.T) {
	f1 := NewOneShotFuture(func(ctx context.Context) (int, error) {
		time.Sleep(20 * time.Millisecond)
		return 1, nil
	})
	f2 := NewOneShotFuture(func(ctx context.Context) (int, error) { return 2, nil })

	results, err := WaitAll(context.Background(), f1, f2)
	require.NoError(t, err)
	require.Equal(t, []int{1, 2}, results)
}

func TestWaitAllPropagatesError(t *testing.T) {
	boom := errors.New("boom")
	f1 := NewOneShotFuture(func(ctx context.Context) (int, error) { return 0, boom })
	f2 := NewOneShotFuture(func(ctx context.Context) (int, error) { return 2, nil })

	_, err := WaitAll(context.Background(), f1, f2)
	require.ErrorIs(t, err, boom)
}

func TestFirstOfReturnsFastestResult(t *testing.T) {
	slow := NewOneShotFuture(func(ctx context.Context) (string, error) {
		time.Sleep(100 * time.Millisecond)
		return "slow", nil
	})
	fast := NewOneShotFuture(func(ctx context.Context) (string, error) {
		return "fast", nil
	})

	v, err := FirstOf(context.Background(), slow, fast)
	require.NoError(t, err)
	require.Equal(t, "fast", v)
}

func TestForEachStopsOnBreak(t *testing.T) {
	g := NewGeneratorFuture(func(yield func(int) bool) {
		for i := 0; i < 10; i++ {
			if !yield(i) {
				return
			}
		}
	})

	var seen []int
	err := ForEach(context.Background(), g, func(v int) (ControlFlow, error) {
		seen = append(seen, v)
		if v == 2 {
			return Break, nil
		}
		return Continue, nil
	})
	require.NoError(t, err)
	require.Equal(t, []int{0, 1, 2}, seen)
}
