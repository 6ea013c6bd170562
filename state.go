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

package quicio

import (
	"net"

	"github.com/nabbar/quicio/forward"
	"github.com/nabbar/quicio/proto"
	"github.com/nabbar/quicio/registry"
	"github.com/nabbar/quicio/runtimeio"
	"github.com/nabbar/quicio/transport"
)

// Socket is the async UDP socket abstraction the driver is built against,
// re-exported so callers assembling an Endpoint need not import transport
// directly for the common case.
type Socket = transport.Socket

// AcceptHandle is what Accept hands back for a newly admitted connection:
// its identity and the receive-only channel the application should read
// InboundEvents from.
type AcceptHandle struct {
	Handle       proto.ConnectionHandle
	ToConnection <-chan proto.InboundEvent
}

// closeNotice is what Close(code, reason) records; every connection
// inserted afterward gets it as the first event on its channel.
type closeNotice struct {
	set    bool
	code   uint64
	reason string
}

// state is EndpointState: everything the driver needs under one lock.
// Every field here is touched only while the Endpoint's mutex is held,
// whether by an API method or by one Driver cycle.
type state struct {
	socket Socket
	engine proto.Engine

	outgoing      []proto.Transmit
	outgoingBytes int

	incoming []*AcceptHandle

	registry      *registry.Registry[proto.ConnectionHandle]
	inboundEvents chan proto.OutboundEvent
	close         closeNotice

	forwardTable *forward.Table

	waker runtimeio.Waker

	refCount   int
	driverLost bool
	ipv6       bool

	cfg Config
}

func newState(sock Socket, engine proto.Engine, ipv6 bool, cfg Config) *state {
	s := &state{
		socket:        sock,
		engine:        engine,
		registry:      registry.New[proto.ConnectionHandle](),
		inboundEvents: make(chan proto.OutboundEvent, cfg.IOLoopBound),
		forwardTable:  forward.New(),
		ipv6:          ipv6,
		cfg:           cfg,
	}
	engine.Bind(s.inboundEvents)
	return s
}

// admit appends t to outgoing if outgoingBytes is still under the cap,
// maintaining the outgoingBytes invariant on accept.
func (s *state) admit(t proto.Transmit) bool {
	if s.outgoingBytes >= s.cfg.MaxQueueBytes {
		if s.cfg.Metrics != nil {
			s.cfg.Metrics.AdmissionDrops.Inc()
		}
		return false
	}
	s.outgoing = append(s.outgoing, t)
	s.outgoingBytes += len(t.Payload)
	return true
}

// enqueueUnconditional appends t to outgoing without the admission-control
// check admit performs, for connection-generated transmits where
// backpressure is the worker's own responsibility.
func (s *state) enqueueUnconditional(t proto.Transmit) {
	s.outgoing = append(s.outgoing, t)
	s.outgoingBytes += len(t.Payload)
}

// popOutgoing removes and returns up to n transmits from the front of
// outgoing, maintaining the outgoingBytes invariant.
func (s *state) popOutgoing(n int) []proto.Transmit {
	if n > len(s.outgoing) {
		n = len(s.outgoing)
	}
	popped := s.outgoing[:n]
	for _, t := range popped {
		s.outgoingBytes -= len(t.Payload)
	}
	s.outgoing = s.outgoing[n:]
	return popped
}

// registerConnection wires a freshly created connection into the registry,
// delivering a queued Close as its first event when one was recorded.
func (s *state) registerConnection(handle proto.ConnectionHandle, init proto.ConnInit) *AcceptHandle {
	s.registry.Insert(handle, init.ToConnection)
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.AcceptedTotal.Inc()
	}

	if s.close.set {
		select {
		case init.ToConnection <- proto.InboundEvent{Handle: handle, Closed: true, Data: []byte(s.close.reason)}:
		default:
		}
	}

	return &AcceptHandle{Handle: handle, ToConnection: init.ToConnection}
}

// Connect implements §4.D connect: validates the address family against the
// socket, maps an IPv4 remote into its ::ffff: dual-stack form when the
// socket is bound dual-stack, delegates to the engine, and registers the
// resulting connection.
func (s *state) Connect(cfg *proto.ClientConfig, remote net.Addr, serverName string) (*AcceptHandle, error) {
	if s.driverLost {
		return nil, ErrEndpointStopping
	}
	if err := s.checkAddressFamily(remote); err != nil {
		return nil, err
	}
	remote = s.mapRemoteAddress(remote)

	handle, init, err := s.engine.Connect(cfg, remote, serverName)
	if err != nil {
		return nil, err
	}

	return s.registerConnection(handle, init), nil
}

func (s *state) checkAddressFamily(remote net.Addr) error {
	if s.ipv6 {
		return nil
	}
	if udp, ok := remote.(*net.UDPAddr); ok && udp.IP.To4() == nil {
		return ErrInvalidRemoteAddress
	}
	return nil
}

// mapRemoteAddress implements spec §3's "addresses of client connect are
// mapped accordingly" for a dual-stack (ipv6=true) endpoint: an IPv4 remote
// is rewritten into its ::ffff:a.b.c.d form so the engine always sees a
// single consistent address family for a dual-stack socket.
func (s *state) mapRemoteAddress(remote net.Addr) net.Addr {
	if !s.ipv6 {
		return remote
	}
	udp, ok := remote.(*net.UDPAddr)
	if !ok || udp.IP.To4() == nil {
		return remote
	}
	mapped := *udp
	mapped.IP = udp.IP.To16()
	return &mapped
}

// Rebind swaps the socket and broadcast-pings every connection so peers see
// the new source address promptly.
func (s *state) Rebind(sock Socket, ipv6 bool) {
	s.socket = sock
	s.ipv6 = ipv6
	s.registry.BroadcastPing(proto.InboundEvent{Data: []byte("ping")})
}

func (s *state) SetServerConfig(cfg *proto.ServerConfig) {
	s.engine.SetServerConfig(cfg)
}

func (s *state) RejectNewConnections() {
	s.engine.RejectNewConnections()
}

func (s *state) LocalAddr() net.Addr {
	return s.socket.LocalAddr()
}

// Close records (code, reason) so it is delivered to every existing
// connection now and to any connection registered afterward.
func (s *state) Close(code uint64, reason string) {
	s.close = closeNotice{set: true, code: code, reason: reason}
	s.registry.BroadcastClose(proto.InboundEvent{Closed: true, Data: []byte(reason)})
}

func (s *state) IsEmpty() bool {
	return s.registry.IsEmpty()
}

// popIncoming pops the oldest unclaimed accepted connection, if any.
func (s *state) popIncoming() (*AcceptHandle, bool) {
	if len(s.incoming) == 0 {
		return nil, false
	}
	h := s.incoming[0]
	s.incoming = s.incoming[1:]
	return h, true
}
