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
	"context"
	"errors"
	"net"
	"syscall"
	"time"

	"github.com/nabbar/quicio/proto"
	"github.com/nabbar/quicio/transport"
)

// driveRecv is ReceivePipeline: batch-read datagrams off the downstream
// socket and route each one, until the recv WorkLimiter's budget for this
// cycle is spent or the socket has nothing more to offer.
//
// Datagrams here are treated as a single segment each; this build's
// transport does not decode UDP_GRO control messages, so coalesced
// datagrams are not peeled into multiple segments the way the source's
// stride-splitting does. A transport that surfaces GRO segmentation could
// restore that behavior without changing this pipeline's shape.
func (d *Driver) driveRecv(ctx context.Context, now time.Time) (bool, error) {
	s := d.s
	d.recvLimiter.StartCycle(now)
	defer d.recvLimiter.FinishCycle()

	for d.recvLimiter.AllowWork(now) {
		dgrams, err := s.socket.RecvBatch(ctx)
		if err != nil {
			if errors.Is(err, transport.ErrPending) {
				return false, nil
			}
			if isConnReset(err) {
				continue
			}
			return false, err
		}

		for _, dg := range dgrams {
			d.routeDatagram(now, dg)
		}

		d.recvLimiter.RecordWork(now, len(dgrams))
		now = d.rt.Now()
	}
	return true, nil
}

// routeDatagram implements §4.E's routing order: a live forward entry wins
// over the protocol engine, so an established forwarded flow is never
// mis-parsed as a QUIC datagram.
func (d *Driver) routeDatagram(now time.Time, dg proto.Datagram) {
	s := d.s

	if entry, ok := s.forwardTable.Get(dg.Remote); ok {
		entry.Pending = append(entry.Pending, proto.Transmit{Dest: entry.Upstream, Payload: dg.Payload})
		entry.LastActivity = now
		return
	}

	decision := s.engine.Handle(now, dg.Remote, dg.DestIP, dg.ECN, dg.Payload)
	d.applyDecision(now, dg.Remote, decision)
}

func (d *Driver) applyDecision(now time.Time, remote net.Addr, dec proto.Decision) {
	s := d.s

	switch dec.Kind {
	case proto.DecisionNewConnection:
		ah := s.registerConnection(dec.Handle, dec.Init)
		s.incoming = append(s.incoming, ah)

	case proto.DecisionConnectionEvent:
		s.registry.Send(dec.Event.Handle, proto.InboundEvent{
			Handle: dec.Event.Handle,
			Data:   dec.Event.Payload,
		})

	case proto.DecisionResponse:
		s.admit(dec.Response)

	case proto.DecisionNewForward:
		d.openForward(now, remote, dec.ForwardUpstream, dec.InitialPayload)

	case proto.DecisionNone:
		// drop
	}
}

// openForward binds a fresh upstream socket and inserts a forward entry
// keyed by the client's remote address, per §4.E's NewForward handling. The
// datagram that triggered the decision is the ClientHello (or equivalent
// first flight) and must not be lost: it is queued on the fresh entry's
// Pending so the upstream-send pipeline relays it on the next cycle.
func (d *Driver) openForward(now time.Time, client, upstream net.Addr, initialPayload []byte) {
	if upstream == nil {
		return
	}
	s := d.s

	network := "udp4"
	if s.ipv6 {
		network = "udp"
	}

	sock, err := transport.Listen(network, ":0")
	if err != nil {
		return
	}

	entry := s.forwardTable.Insert(client, upstream, sock, now)
	if len(initialPayload) > 0 {
		entry.Pending = append(entry.Pending, proto.Transmit{Dest: upstream, Payload: initialPayload})
	}
}

// isConnReset reports whether err is the UDP analogue of a connection
// reset (ECONNREFUSED surfacing on a prior send to an unreachable peer),
// which is undefined in QUIC and attacker-injectable, so it is swallowed
// rather than surfaced.
func isConnReset(err error) bool {
	return errors.Is(err, syscall.ECONNREFUSED)
}
