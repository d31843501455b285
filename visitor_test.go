// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package asyncrt

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVisitorFutureRunsHooksLIFO(t *testing.T) {
	f := NewVisitorFuture(func(ctx context.Context) (int, error) {
		return 7, nil
	})

	var order []string
	f.YieldDeferred(func(result *int) { order = append(order, "first") })
	f.YieldDeferred(func(result *int) { order = append(order, "second") })

	v, err := f.Await(context.Background())
	require.NoError(t, err)
	require.Equal(t, 7, v)
	require.Equal(t, []string{"second", "first"}, order)
}

func TestVisitorFuturePurgeClearsHooks(t *testing.T) {
	f := NewVisitorFuture(func(ctx context.Context) (int, error) {
		return 1, nil
	})

	ran := false
	f.YieldDeferred(func(result *int) { ran = true })
	f.YieldPurge()

	_, err := f.Await(context.Background())
	require.NoError(t, err)
	require.False(t, ran)
}
