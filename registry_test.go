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

func TestRegistryScavengeDropsResolvedEntries(t *testing.T) {
	r := newRegistry()

	resolved := false
	entry := &registryEntry{
		pending: func() bool { return !resolved },
		cancel:  func(error) {},
	}
	id := r.Register(entry)
	require.NotZero(t, id)

	r.Scavenge(10)
	r.mu.RLock()
	_, stillTracked := r.data[id]
	r.mu.RUnlock()
	require.True(t, stillTracked)

	resolved = true
	r.Scavenge(10)
	r.mu.RLock()
	_, stillTracked = r.data[id]
	r.mu.RUnlock()
	require.False(t, stillTracked)
}

func TestRegistryRejectAllCancelsPendingEntries(t *testing.T) {
	r := newRegistry()

	var gotErr error
	entry := &registryEntry{
		pending: func() bool { return true },
		cancel:  func(err error) { gotErr = err },
	}
	r.Register(entry)

	r.RejectAll(ErrEngineNotRunning)
	require.ErrorIs(t, gotErr, ErrEngineNotRunning)
	require.Empty(t, r.data)
}
