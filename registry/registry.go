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

// Package registry tracks which connection handles are currently live and
// how to reach each one: an outbound event channel the driver can push
// close/ping notifications into. It is the Go counterpart of the source's
// ConnectionSet, specialized to hold channels rather than scalars because
// connections here are separate goroutines, not shared-nothing futures.
package registry

import (
	"sync"

	"github.com/nabbar/quicio/proto"
)

// InboundEvent and OutboundEvent are re-exported here under the names used
// by the rest of the driver; the canonical definitions live in proto,
// alongside the rest of the engine boundary types they travel with.
type InboundEvent = proto.InboundEvent
type OutboundEvent = proto.OutboundEvent

// Registry is a mutex-guarded map from connection handle to a channel the
// driver uses to push close/ping notifications toward that connection's
// goroutine. It is generic over the handle type so it can be reused for any
// comparable identifier, though this module only ever instantiates it with
// proto.ConnectionHandle.
type Registry[H comparable] struct {
	mu sync.Mutex
	m  map[H]chan<- proto.InboundEvent
}

// New builds an empty Registry.
func New[H comparable]() *Registry[H] {
	return &Registry[H]{
		m: make(map[H]chan<- proto.InboundEvent),
	}
}

// Insert registers handle with the channel the driver should use to signal
// it. Inserting an already-present handle replaces its channel.
func (r *Registry[H]) Insert(handle H, notify chan<- proto.InboundEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[handle] = notify
}

// Send delivers ev to handle's channel, best-effort: a dropped or
// backed-up receiver is silently ignored, since cleanup is eventual once a
// Drained event arrives.
func (r *Registry[H]) Send(handle H, ev proto.InboundEvent) {
	r.mu.Lock()
	ch, ok := r.m[handle]
	r.mu.Unlock()
	if !ok {
		return
	}
	select {
	case ch <- ev:
	default:
	}
}

// Remove drops handle from the registry. It is a no-op if handle is absent.
func (r *Registry[H]) Remove(handle H) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.m, handle)
}

// IsEmpty reports whether no connections are currently registered, the
// condition the driver waits on during WaitIdle.
func (r *Registry[H]) IsEmpty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.m) == 0
}

// Len reports how many connections are currently registered.
func (r *Registry[H]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.m)
}

// BroadcastClose pushes a close event to every registered connection,
// skipping (rather than blocking on) any whose channel is full so one stuck
// consumer cannot stall endpoint shutdown.
func (r *Registry[H]) BroadcastClose(reason proto.InboundEvent) (delivered, skipped int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ch := range r.m {
		select {
		case ch <- reason:
			delivered++
		default:
			skipped++
		}
	}
	return
}

// BroadcastPing pushes a keep-alive event to every registered connection,
// using the same best-effort delivery as BroadcastClose.
func (r *Registry[H]) BroadcastPing(ping proto.InboundEvent) (delivered, skipped int) {
	return r.BroadcastClose(ping)
}

// CloseAll closes every registered connection's channel and empties the
// registry. Unlike BroadcastClose, which can be skipped on a full channel,
// closing is unconditional: a worker blocked in a receive on this channel
// unblocks immediately with ok==false, which is how it learns the driver is
// gone for good rather than merely busy. Used on driver shutdown, after
// which no further Insert is expected.
func (r *Registry[H]) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for h, ch := range r.m {
		close(ch)
		delete(r.m, h)
	}
}
