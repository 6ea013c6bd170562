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

// Package proto defines the boundary between the I/O driver and the opaque
// protocol engine that actually terminates QUIC: the engine interface, the
// decisions it hands back on every received datagram, and the transmit/
// connection-init types that flow the other way. It also ships refengine, a
// minimal in-memory engine good enough to drive the pipelines end-to-end in
// tests and the cli demo, with no real cryptography.
package proto

import (
	"net"
	"time"
)

// ConnectionHandle identifies a connection the engine owns. The driver never
// interprets it beyond equality and map-keying.
type ConnectionHandle [16]byte

// Transmit is one outgoing datagram, queued by the engine or by a forward
// entry, waiting for the send pipeline to drain it.
type Transmit struct {
	Dest    net.Addr
	ECN     uint8
	Segment uint16 // GSO segment size, 0 when not coalesced
	Payload []byte
}

// Datagram is one datagram as received off the wire. DestIP (the local
// address it arrived on, needed for multi-homed sockets) and ECN are
// optional annotations: the socket in package transport reads without a
// control-message buffer, so it leaves both unset.
type Datagram struct {
	Remote  net.Addr
	DestIP  net.IP
	ECN     uint8
	Payload []byte
}

// DecisionKind tags which variant of Decision is populated.
type DecisionKind uint8

const (
	DecisionNone DecisionKind = iota
	DecisionNewConnection
	DecisionConnectionEvent
	DecisionResponse
	DecisionNewForward
)

// Decision is the engine's verdict on one received datagram. Exactly one of
// the fields matching Kind is meaningful.
type Decision struct {
	Kind DecisionKind

	// DecisionNewConnection
	Handle ConnectionHandle
	Init   ConnInit

	// DecisionConnectionEvent
	Event ConnectionEvent

	// DecisionResponse
	Response Transmit

	// DecisionNewForward
	ForwardUpstream net.Addr
	InitialPayload  []byte
}

// ConnInit carries whatever the engine produced for a brand-new connection.
// ToConnection is the channel InboundEvents for this connection travel on:
// the registry keeps a send-only view to deliver close/ping/follow-up
// events, and the AcceptHandle returned to the application keeps a
// receive-only view, both narrowed from this same bidirectional channel.
// The reverse direction (connection to driver) does not travel through
// ConnInit; the engine is handed a single shared OutboundEvent sender once,
// via Bind, and multiplexes every connection's events onto it itself.
type ConnInit struct {
	ToConnection chan InboundEvent
}

// ConnectionEvent is handed to Engine.HandleEvent after being read off a
// connection's outbound channel.
type ConnectionEvent struct {
	Handle  ConnectionHandle
	Kind    string
	Payload []byte
}

// InboundEvent flows from the engine/connection down to the application
// holding an AcceptHandle: data ready, connection closed, and so on.
type InboundEvent struct {
	Handle ConnectionHandle
	Closed bool
	Data   []byte
}

// OutboundEvent flows from a connection up into the driver's event pump, to
// be handed to Engine.HandleEvent.
type OutboundEvent struct {
	Handle ConnectionHandle
	Event  ConnectionEvent
}

// FollowUp is what Engine.HandleEvent wants the driver to do after
// processing one ConnectionEvent: emit a transmit, and/or close the
// connection.
type FollowUp struct {
	Transmit Transmit
	HasSend  bool
	Close    bool
}

// EngineConfig is the subset of engine configuration the driver needs to
// size its buffers and admission checks.
type EngineConfig struct {
	MaxUDPPayloadSize int
}

// ServerConfig is opaque server-side configuration (certificates, ALPN,
// transport parameters) handed through to SetServerConfig unexamined.
type ServerConfig struct {
	ServerName string
	ALPN       []string
}

// ClientConfig is opaque client-side configuration handed through to
// Connect/ConnectWith unexamined.
type ClientConfig struct {
	ServerName         string
	InsecureSkipVerify bool
}

// Engine is the contract the I/O driver holds its opaque QUIC engine to. The
// driver never inspects a connection's cryptographic or transport state; it
// only routes datagrams and events through this interface.
type Engine interface {
	// Bind hands the engine the single shared channel it should use to
	// deliver OutboundEvents for every connection it creates, called once
	// before the engine is used.
	Bind(events chan<- OutboundEvent)

	// Handle processes one inbound datagram not already claimed by a
	// forward entry and returns what the driver should do with it.
	Handle(now time.Time, remote net.Addr, dstIP net.IP, ecn uint8, payload []byte) Decision

	// HandleEvent processes one event read off a connection's outbound
	// channel and returns any follow-up work plus whether the connection
	// should be removed from the registry.
	HandleEvent(handle ConnectionHandle, event ConnectionEvent) (FollowUp, bool)

	// Connect initiates an outbound connection using the given client
	// config. Choosing a default config is the caller's job:
	// Endpoint.Connect passes the one set by SetDefaultClientConfig.
	Connect(cfg *ClientConfig, remote net.Addr, serverName string) (ConnectionHandle, ConnInit, error)

	// SetServerConfig installs or clears (nil) the server-side config
	// used to accept new connections.
	SetServerConfig(cfg *ServerConfig)

	// RejectNewConnections makes the engine refuse every subsequent
	// DecisionNewConnection, used during graceful shutdown.
	RejectNewConnections()

	// Config reports engine limits the driver must respect.
	Config() EngineConfig
}
