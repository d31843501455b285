// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package asyncrt

// EngineOption configures an [EngineConfig] before [NewEngine] resolves it.
// Options are applied in order, so a later option overrides an earlier one
// touching the same field.
type EngineOption interface {
	applyEngine(*EngineConfig)
}

type engineOptionFunc func(*EngineConfig)

func (f engineOptionFunc) applyEngine(cfg *EngineConfig) { f(cfg) }

// WithThreads sets the worker thread count and how it is resolved against
// runtime.NumCPU.
func WithThreads(n int, mode ThreadMode) EngineOption {
	return engineOptionFunc(func(cfg *EngineConfig) {
		cfg.Threads = n
		cfg.Mode = mode
	})
}

// WithAffinity pins each worker's OS thread to CPU core offset+workerIndex
// via sched_setaffinity.
func WithAffinity(offset int) EngineOption {
	return engineOptionFunc(func(cfg *EngineConfig) {
		cfg.Affinity = true
		cfg.AffinityOffset = offset
	})
}

// WithRingQueueDepth sets the advisory submission ring depth for each
// worker's queues.
func WithRingQueueDepth(depth int) EngineOption {
	return engineOptionFunc(func(cfg *EngineConfig) {
		cfg.RingQueueDepth = depth
	})
}

// WithFixedBuffers configures the shared registered-buffer pool used by I/O
// collaborators that opt into fixed-buffer operations (§6).
func WithFixedBuffers(count, size int) EngineOption {
	return engineOptionFunc(func(cfg *EngineConfig) {
		cfg.FixedBufferCount = count
		cfg.FixedBufferSize = size
	})
}

// WithLogger sets the engine's structured logger. Defaults to a DefaultLogger
// at LevelInfo when unset.
func WithLogger(logger Logger) EngineOption {
	return engineOptionFunc(func(cfg *EngineConfig) {
		cfg.Logger = logger
	})
}

// WithMetrics attaches a [Metrics] collector that records queue-depth and
// latency samples as workers run (§5 supplemented feature).
func WithMetrics(m *Metrics) EngineOption {
	return engineOptionFunc(func(cfg *EngineConfig) {
		cfg.Metrics = m
	})
}

// resolveEngineConfig applies opts over a zero-value EngineConfig and
// returns the result for [NewEngine].
func resolveEngineConfig(opts ...EngineOption) EngineConfig {
	var cfg EngineConfig
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt.applyEngine(&cfg)
	}
	return cfg
}

// NewEngineWithOptions is a convenience constructor that resolves opts into
// an EngineConfig and calls [NewEngine].
func NewEngineWithOptions(opts ...EngineOption) (*Engine, error) {
	return NewEngine(resolveEngineConfig(opts...))
}
