// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package asyncrt

import "sync"

// listenerID uniquely identifies one registered listener on an Observable,
// so it can be removed without requiring Go func values to compare equal.
type listenerID uint64

// observableCore is the shared mutex-protected listener registry behind
// every Observable arity (§4.5): add/remove by ID, snapshot-then-call so a
// listener can safely disconnect itself or register another mid-emit.
type observableCore[F any] struct {
	mu        sync.Mutex
	listeners map[listenerID]F
	nextID    listenerID
}

func (c *observableCore[F]) add(fn F) listenerID {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.listeners == nil {
		c.listeners = make(map[listenerID]F)
	}
	c.nextID++
	id := c.nextID
	c.listeners[id] = fn
	return id
}

func (c *observableCore[F]) remove(id listenerID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.listeners[id]; !ok {
		return false
	}
	delete(c.listeners, id)
	return true
}

func (c *observableCore[F]) snapshot() []F {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]F, 0, len(c.listeners))
	for _, fn := range c.listeners {
		out = append(out, fn)
	}
	return out
}

func (c *observableCore[F]) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.listeners)
}

// Observable0 fans an argument-less emission out to every subscribed
// listener (§4.5), the zero-arity member of the Observable family.
type Observable0 struct {
	core observableCore[func()]
}

// Subscribe registers fn and returns an ID usable with Unsubscribe.
func (o *Observable0) Subscribe(fn func()) listenerID { return o.core.add(fn) }

// Unsubscribe removes a previously subscribed listener. Reports whether it
// was still registered.
func (o *Observable0) Unsubscribe(id listenerID) bool { return o.core.remove(id) }

// Emit calls every currently subscribed listener, in an unspecified order,
// against a snapshot taken before the first call so that a listener adding
// or removing another during Emit never observes a torn listener set.
func (o *Observable0) Emit() {
	for _, fn := range o.core.snapshot() {
		fn()
	}
}

// Len reports the number of currently subscribed listeners.
func (o *Observable0) Len() int { return o.core.count() }

// Observable1 fans a single-argument emission out to every listener.
type Observable1[A any] struct {
	core observableCore[func(A)]
}

func (o *Observable1[A]) Subscribe(fn func(A)) listenerID { return o.core.add(fn) }
func (o *Observable1[A]) Unsubscribe(id listenerID) bool  { return o.core.remove(id) }

func (o *Observable1[A]) Emit(a A) {
	for _, fn := range o.core.snapshot() {
		fn(a)
	}
}

func (o *Observable1[A]) Len() int { return o.core.count() }

// Observable2 fans a two-argument emission out to every listener.
type Observable2[A, B any] struct {
	core observableCore[func(A, B)]
}

func (o *Observable2[A, B]) Subscribe(fn func(A, B)) listenerID { return o.core.add(fn) }
func (o *Observable2[A, B]) Unsubscribe(id listenerID) bool     { return o.core.remove(id) }

func (o *Observable2[A, B]) Emit(a A, b B) {
	for _, fn := range o.core.snapshot() {
		fn(a, b)
	}
}

func (o *Observable2[A, B]) Len() int { return o.core.count() }

// Observable3 fans a three-argument emission out to every listener.
type Observable3[A, B, C any] struct {
	core observableCore[func(A, B, C)]
}

func (o *Observable3[A, B, C]) Subscribe(fn func(A, B, C)) listenerID { return o.core.add(fn) }
func (o *Observable3[A, B, C]) Unsubscribe(id listenerID) bool       { return o.core.remove(id) }

func (o *Observable3[A, B, C]) Emit(a A, b B, c C) {
	for _, fn := range o.core.snapshot() {
		fn(a, b, c)
	}
}

func (o *Observable3[A, B, C]) Len() int { return o.core.count() }
