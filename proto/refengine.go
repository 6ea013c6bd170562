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

package proto

import (
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RefEngine is a stateless-handshake reference Engine: the first datagram
// from an unseen remote address opens a connection, every later datagram
// from a known address is a ConnectionEvent. It signs no packets and
// encrypts nothing; it exists so the I/O driver's pipelines can be exercised
// without a real QUIC implementation on hand.
type RefEngine struct {
	mu sync.Mutex

	known  map[string]ConnectionHandle
	server *ServerConfig
	reject bool

	forwardPredicate func(remote net.Addr) (net.Addr, bool)
	maxPayload       int
	out              chan<- OutboundEvent
}

// Bind stores the shared channel used to deliver OutboundEvents. RefEngine
// never produces any on its own (it spawns no real connection goroutines);
// tests that need to exercise EventPump send on the channel directly.
func (e *RefEngine) Bind(events chan<- OutboundEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.out = events
}

// NewRefEngine builds a RefEngine. maxPayload bounds Config().MaxUDPPayloadSize;
// 0 selects a conservative default.
func NewRefEngine(maxPayload int) *RefEngine {
	if maxPayload <= 0 {
		maxPayload = 1350
	}
	return &RefEngine{
		known:      make(map[string]ConnectionHandle),
		maxPayload: maxPayload,
	}
}

// SetForwardPredicate installs a hook used to emit DecisionNewForward for
// addresses the predicate matches, letting tests exercise the forwarding
// path without a second real engine.
func (e *RefEngine) SetForwardPredicate(fn func(remote net.Addr) (net.Addr, bool)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.forwardPredicate = fn
}

func newHandle() ConnectionHandle {
	return ConnectionHandle(uuid.New())
}

func (e *RefEngine) Handle(now time.Time, remote net.Addr, dstIP net.IP, ecn uint8, payload []byte) Decision {
	e.mu.Lock()
	defer e.mu.Unlock()

	key := remote.String()

	if e.forwardPredicate != nil {
		if upstream, ok := e.forwardPredicate(remote); ok {
			return Decision{Kind: DecisionNewForward, ForwardUpstream: upstream, InitialPayload: payload}
		}
	}

	if h, ok := e.known[key]; ok {
		return Decision{
			Kind:  DecisionConnectionEvent,
			Event: ConnectionEvent{Handle: h, Kind: "data", Payload: payload},
		}
	}

	if e.reject {
		return Decision{Kind: DecisionNone}
	}

	h := newHandle()
	e.known[key] = h

	toConn := make(chan InboundEvent, 16)

	return Decision{
		Kind:   DecisionNewConnection,
		Handle: h,
		Init:   ConnInit{ToConnection: toConn},
	}
}

func (e *RefEngine) HandleEvent(handle ConnectionHandle, event ConnectionEvent) (FollowUp, bool) {
	if event.Kind == "close" {
		return FollowUp{Close: true}, true
	}
	return FollowUp{}, false
}

func (e *RefEngine) Connect(cfg *ClientConfig, remote net.Addr, serverName string) (ConnectionHandle, ConnInit, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	h := newHandle()
	e.known[remote.String()] = h

	toConn := make(chan InboundEvent, 16)

	return h, ConnInit{ToConnection: toConn}, nil
}

func (e *RefEngine) SetServerConfig(cfg *ServerConfig) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.server = cfg
}

func (e *RefEngine) RejectNewConnections() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reject = true
}

func (e *RefEngine) Config() EngineConfig {
	return EngineConfig{MaxUDPPayloadSize: e.maxPayload}
}
