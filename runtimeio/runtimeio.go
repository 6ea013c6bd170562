/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package runtimeio abstracts the pieces of a Go runtime the driver leans
// on: spawning goroutines, reading the clock, and waking a sleeping driver
// loop when new work arrives. Keeping these behind an interface is what
// lets the driver's own tests run it without a live goroutine scheduler.
package runtimeio

import (
	"context"
	"sync"
	"time"
)

// Runtime is everything the driver needs from its execution environment.
type Runtime interface {
	// Spawn runs fn in a new goroutine (or task, in another runtime).
	// Spawn does not block.
	Spawn(ctx context.Context, fn func())

	// Now returns the current time. Abstracted so tests can inject a
	// fake clock.
	Now() time.Time

	// NewBroadcaster creates a fresh Broadcaster.
	NewBroadcaster() Broadcaster
}

// Broadcaster lets any number of goroutines wait for the next NotifyAll,
// the Go equivalent of tokio::sync::Notify: waiters that arrive before a
// notification block until it happens; NotifyAll wakes everyone currently
// waiting, and is a no-op if nobody is.
type Broadcaster interface {
	// Wait returns a channel that closes on the next NotifyAll, or when
	// ctx is done.
	Wait(ctx context.Context) <-chan struct{}

	// NotifyAll wakes every goroutine currently blocked in Wait.
	NotifyAll()
}

type broadcaster struct {
	mu sync.Mutex
	ch chan struct{}
}

func newBroadcaster() *broadcaster {
	return &broadcaster{ch: make(chan struct{})}
}

func (b *broadcaster) Wait(ctx context.Context) <-chan struct{} {
	b.mu.Lock()
	ch := b.ch
	b.mu.Unlock()

	out := make(chan struct{})
	go func() {
		select {
		case <-ch:
		case <-ctx.Done():
		}
		close(out)
	}()
	return out
}

func (b *broadcaster) NotifyAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	close(b.ch)
	b.ch = make(chan struct{})
}

// Waker is a single stored callback, installed with Set and invoked with
// Wake, mirroring the source's one-shot Waker storage. The driver in the
// root package does not use it; it is woken through a Broadcaster instead.
type Waker struct {
	mu sync.Mutex
	fn func()
}

// Set installs (or replaces) the callback invoked by Wake.
func (w *Waker) Set(fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.fn = fn
}

// Wake invokes the installed callback, if any.
func (w *Waker) Wake() {
	w.mu.Lock()
	fn := w.fn
	w.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// std is the default Runtime, backed by real goroutines and the wall clock.
type std struct{}

// Std returns the default Runtime backed by real goroutines and time.Now.
func Std() Runtime {
	return std{}
}

func (std) Spawn(ctx context.Context, fn func()) {
	go fn()
}

func (std) Now() time.Time {
	return time.Now()
}

func (std) NewBroadcaster() Broadcaster {
	return newBroadcaster()
}
