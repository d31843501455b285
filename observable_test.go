// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package asyncrt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestObservable0FansOutToAllListeners(t *testing.T) {
	var obs Observable0
	var calls int
	id1 := obs.Subscribe(func() { calls++ })
	_ = obs.Subscribe(func() { calls++ })

	obs.Emit()
	require.Equal(t, 2, calls)

	require.True(t, obs.Unsubscribe(id1))
	obs.Emit()
	require.Equal(t, 3, calls)
}

func TestObservable1DeliversArgument(t *testing.T) {
	var obs Observable1[string]
	var got []string
	obs.Subscribe(func(s string) { got = append(got, s) })
	obs.Emit("hello")
	require.Equal(t, []string{"hello"}, got)
}

func TestObservable2And3DeliverAllArguments(t *testing.T) {
	var obs2 Observable2[int, string]
	var a int
	var b string
	obs2.Subscribe(func(x int, y string) { a, b = x, y })
	obs2.Emit(7, "seven")
	require.Equal(t, 7, a)
	require.Equal(t, "seven", b)

	var obs3 Observable3[int, int, int]
	sum := 0
	obs3.Subscribe(func(x, y, z int) { sum = x + y + z })
	obs3.Emit(1, 2, 3)
	require.Equal(t, 6, sum)
}

func TestObservableUnsubscribeIsIdempotentFalseOnSecondCall(t *testing.T) {
	var obs Observable0
	id := obs.Subscribe(func() {})
	require.True(t, obs.Unsubscribe(id))
	require.False(t, obs.Unsubscribe(id))
	require.Equal(t, 0, obs.Len())
}

func TestObservableSnapshotExcludesListenersAddedDuringEmit(t *testing.T) {
	var obs Observable0
	var calls int
	obs.Subscribe(func() {
		calls++
		obs.Subscribe(func() { calls++ })
	})

	obs.Emit()
	require.Equal(t, 1, calls)
	require.Equal(t, 2, obs.Len())

	obs.Emit()
	require.Equal(t, 3, calls)
}
