// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package asyncrt

// RegisterFD, UnregisterFD, ModifyFD, and FastPoller are implemented in
// poller_linux.go. The I/O ring is epoll-backed and Linux-only (see the
// package doc's "Platform support" section).
