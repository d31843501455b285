// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package asyncrt

import "time"

// ThreadId identifies a worker thread 0..N-1. AnyThread is the sentinel used
// by callers with no placement preference, letting routing primitives
// (Engine.ThreadResume) load-balance across workers.
type ThreadId uint16

// AnyThread is the sentinel ThreadId meaning "no preference" (§3).
const AnyThread ThreadId = ^ThreadId(0)

// Order is a nanosecond-scaled timestamp on the engine's monotonic clock.
// Now means "as soon as possible"; any other value is an absolute deadline
// in nanoseconds since the engine's monotonic epoch.
type Order int64

// Now is the sentinel Order meaning immediate scheduling (§3).
const Now Order = 0

// Add returns the Order that is d later than o. Order arithmetic is closed:
// adding a duration to any Order (including Now, which callers should
// resolve to a current timestamp first via Engine.Now) yields another
// valid Order.
func (o Order) Add(d time.Duration) Order {
	return o + Order(d.Nanoseconds())
}

// Time converts an Order measured from epoch to a time.Time, given the
// engine's monotonic epoch.
func (o Order) Time(epoch time.Time) time.Time {
	return epoch.Add(time.Duration(o))
}

// OrderFromTime converts a time.Time to an Order relative to epoch.
func OrderFromTime(t, epoch time.Time) Order {
	return Order(t.Sub(epoch).Nanoseconds())
}

// PausePack is the rendezvous record between a suspended task and its
// eventual producer (an I/O ring op, a timer, or a synchronization
// primitive). Once produced, ownership passes to exactly one consumer, which
// must either resume Continuation exactly once or drop the pack explicitly
// via CancelEvent (§3). While owned by the consumer, the producer must not
// resume Continuation directly.
type PausePack struct {
	// Target is the worker the continuation must run on.
	Target ThreadId
	// Scratch carries the integer result: non-negative for success, a
	// negated errno for a ring error, submissionFailureSentinel for ring
	// exhaustion, or a value <= cancelSentinel+1 for cancellation (§7).
	Scratch int
	// Continuation resumes the suspended task. Must be called at most once.
	Continuation func()
}

// CancelResult reports the outcome of CancelEvent.
type CancelResult int

const (
	// CancelDone indicates the operation was pending and has now been
	// cancelled; the pack's Continuation has been resumed with the
	// cancellation sentinel.
	CancelDone CancelResult = iota
	// CancelNotFound indicates the operation had already completed by the
	// time cancellation was requested; the pack was not touched.
	CancelNotFound
	// CancelFailed indicates the underlying cancel request itself failed
	// (e.g. the kernel ring rejected the async_cancel submission).
	CancelFailed
)

// String implements fmt.Stringer.
func (r CancelResult) String() string {
	switch r {
	case CancelDone:
		return "done"
	case CancelNotFound:
		return "not_found"
	case CancelFailed:
		return "failed"
	default:
		return "unknown"
	}
}
