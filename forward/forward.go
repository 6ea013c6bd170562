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

// Package forward implements the transparent UDP-forwarding table: the map
// from a client's remote address to the upstream address its datagrams
// should be relayed to, plus idle-entry eviction.
//
// The source this was distilled from computed idle time with
// active_time.duration_since(active_time), which is always zero, and only
// ever committed its eviction list from the upstream-send half of the
// pipeline. Both bugs are fixed here: IsIdle compares against a caller-
// supplied "now", and EvictIdle is meant to be called from both the
// upstream-recv and upstream-send pipelines so an entry idle on either side
// actually gets removed.
package forward

import (
	"net"
	"sync"
	"time"

	"github.com/nabbar/quicio/proto"
	"github.com/nabbar/quicio/transport"
)

// Entry is one forwarding relationship: datagrams from Client are relayed to
// Upstream, and datagrams from Upstream are relayed back to Client, over a
// dedicated upstream socket owned by this entry.
type Entry struct {
	Client       net.Addr
	Upstream     net.Addr
	Socket       transport.Socket
	Pending      []proto.Transmit
	LastActivity time.Time
}

// IsIdle reports whether the entry has seen no traffic for longer than
// timeout, as of now.
func (e *Entry) IsIdle(now time.Time, timeout time.Duration) bool {
	return now.Sub(e.LastActivity) > timeout
}

// Table is a mutex-guarded map from a client's remote address (by its
// net.Addr.String() form) to its forward Entry.
type Table struct {
	mu sync.Mutex
	m  map[string]*Entry
}

// New builds an empty Table.
func New() *Table {
	return &Table{m: make(map[string]*Entry)}
}

// Insert adds or replaces the forward entry for client, relaying to
// upstream over socket, with LastActivity set to now.
func (t *Table) Insert(client, upstream net.Addr, socket transport.Socket, now time.Time) *Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	e := &Entry{Client: client, Upstream: upstream, Socket: socket, LastActivity: now}
	t.m[client.String()] = e
	return e
}

// Get looks up the forward entry for the given client remote address.
func (t *Table) Get(client net.Addr) (*Entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.m[client.String()]
	return e, ok
}

// Touch updates an entry's LastActivity, keyed by client address. It is a
// no-op if no such entry exists.
func (t *Table) Touch(client net.Addr, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.m[client.String()]; ok {
		e.LastActivity = now
	}
}

// Remove deletes the forward entry for client, if present.
func (t *Table) Remove(client net.Addr) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.m, client.String())
}

// Range calls fn for every entry currently in the table. fn must not call
// back into the Table; copy what it needs instead.
func (t *Table) Range(fn func(key string, e *Entry)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for k, e := range t.m {
		fn(k, e)
	}
}

// Len reports how many forward entries are currently tracked.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.m)
}

// EvictIdle removes and returns every entry idle for longer than timeout as
// of now. Call this from both the upstream-recv and upstream-send pipelines
// so an entry idle on either leg is actually evicted.
func (t *Table) EvictIdle(now time.Time, timeout time.Duration) []*Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	var evicted []*Entry
	for k, e := range t.m {
		if e.IsIdle(now, timeout) {
			evicted = append(evicted, e)
			delete(t.m, k)
		}
	}
	return evicted
}
