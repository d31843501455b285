// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package asyncrt is the core of a multi-threaded, cooperative async
// runtime: a pinned pool of worker threads, each running its own event loop
// over an epoll-backed I/O ring and a timerfd-driven timer heap, plus the
// task and synchronization primitives used to coordinate work across
// workers.
//
// # Tasks
//
// A task is a goroutine whose only suspension points are channel receives
// constructed by [Yield] and [Pause]. [Detached] is fire-and-forget,
// [OneShotFuture] produces a single value, [GeneratorFuture] yields many,
// and [VisitorFuture] composes a deferred cleanup chain that runs before
// the result is handed to the awaiter.
//
// # Engine
//
// [Engine] owns one event loop and timer service per worker thread, plus the
// process-wide signal dispatcher. Use [Engine.Start] to bring workers up and
// [Engine.Resume], [Engine.ThreadResume], [Engine.DelayedResume], and
// [Engine.Execute] to route continuations across them.
//
// # Synchronization
//
// [Mutex], [Semaphore], [Latch], [Barrier], [PauseToken], and the
// [Observable0] through [Observable3] family coordinate tasks across workers over the same continuation contract as the
// I/O ring and timer service. [WaitAll], [FirstOf], and [ForEach] are the
// combinators built on top.
//
// # Platform support
//
// The I/O ring is backed by epoll and is Linux-only: the eventfd/timerfd
// wire contract this package reproduces has no portable equivalent, and
// portability to other kernels is explicitly out of scope.
package asyncrt
