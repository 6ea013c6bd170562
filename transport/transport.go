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

// Package transport wraps a UDP socket with the batched, non-blocking
// gather/scatter I/O the driver's pipelines expect: RecvBatch/SendBatch move
// many datagrams per syscall via golang.org/x/net's ipv4/ipv6 PacketConn,
// and never block past a bounded poll window.
package transport

import (
	"context"
	"errors"
	"net"
	"time"

	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"

	"github.com/nabbar/quicio/proto"
)

// ErrPending is returned by RecvBatch/SendBatch when no datagrams were
// ready to read or write within the socket's non-blocking poll window. It
// is not a failure; callers should simply try again on the next cycle.
var ErrPending = errors.New("transport: no progress this cycle")

// BatchSize bounds how many datagrams one RecvBatch/SendBatch call will
// move, matching the pipelines' per-cycle work budget.
const BatchSize = 32

// Socket is the async UDP socket abstraction the driver's pipelines are
// written against.
type Socket interface {
	LocalAddr() net.Addr

	// MayFragment reports whether datagrams sent on this socket may be
	// fragmented by the network (false once DF/PMTUD is enabled).
	MayFragment() bool

	// RecvBatch reads up to BatchSize datagrams without blocking past a
	// small internal poll window. It returns ErrPending, not an error,
	// when nothing was ready.
	RecvBatch(ctx context.Context) ([]proto.Datagram, error)

	// SendBatch writes as many of the given transmits as fit in one
	// non-blocking pass and reports how many were written. It returns
	// ErrPending, not an error, when the socket was not ready to write
	// at all.
	SendBatch(ctx context.Context, transmits []proto.Transmit) (int, error)

	Close() error
}

// udpSocket is shared plumbing between the v4 and v6 batch-capable sockets.
type udpSocket struct {
	conn        *net.UDPConn
	p4          *ipv4.PacketConn
	p6          *ipv6.PacketConn
	isV6        bool
	mayFragment bool
}

// New wraps conn with batched ipv4/ipv6 I/O, chosen by whether the local
// address is an IPv4 or IPv6 endpoint.
func New(conn *net.UDPConn) (Socket, error) {
	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return nil, errors.New("transport: not a UDP connection")
	}

	s := &udpSocket{conn: conn, mayFragment: true}
	if addr.IP.To4() != nil {
		s.p4 = ipv4.NewPacketConn(conn)
		_ = s.p4.SetControlMessage(ipv4.FlagDst, true)
	} else {
		s.isV6 = true
		s.p6 = ipv6.NewPacketConn(conn)
		_ = s.p6.SetControlMessage(ipv6.FlagDst|ipv6.FlagTrafficClass, true)
	}
	return s, nil
}

func (s *udpSocket) LocalAddr() net.Addr {
	return s.conn.LocalAddr()
}

func (s *udpSocket) MayFragment() bool {
	return s.mayFragment
}

// SetMayFragment toggles whether future sends are allowed to fragment,
// following a PMTUD probe result.
func (s *udpSocket) SetMayFragment(v bool) {
	s.mayFragment = v
}

func (s *udpSocket) Close() error {
	return s.conn.Close()
}

// pollDeadline is the read/write deadline for one batch call: one
// millisecond from now, or ctx's deadline if that comes sooner.
func pollDeadline(ctx context.Context) time.Time {
	dl := time.Now().Add(time.Millisecond)
	if ctxDl, ok := ctx.Deadline(); ok && ctxDl.Before(dl) {
		return ctxDl
	}
	return dl
}

func (s *udpSocket) RecvBatch(ctx context.Context) ([]proto.Datagram, error) {
	bufs := make([][]byte, BatchSize)
	for i := range bufs {
		bufs[i] = make([]byte, 64*1024)
	}

	if s.isV6 {
		return s.recvV6(ctx, bufs)
	}
	return s.recvV4(ctx, bufs)
}

func (s *udpSocket) recvV4(ctx context.Context, bufs [][]byte) ([]proto.Datagram, error) {
	ms := make([]ipv4.Message, len(bufs))
	for i := range ms {
		ms[i].Buffers = [][]byte{bufs[i]}
	}

	_ = s.conn.SetReadDeadline(pollDeadline(ctx))
	n, err := s.p4.ReadBatch(ms, 0)
	if err != nil {
		if isTimeout(err) {
			return nil, ErrPending
		}
		return nil, err
	}
	if n == 0 {
		return nil, ErrPending
	}
	return toDatagrams4(ms[:n]), nil
}

func (s *udpSocket) recvV6(ctx context.Context, bufs [][]byte) ([]proto.Datagram, error) {
	ms := make([]ipv6.Message, len(bufs))
	for i := range ms {
		ms[i].Buffers = [][]byte{bufs[i]}
	}

	_ = s.conn.SetReadDeadline(pollDeadline(ctx))
	n, err := s.p6.ReadBatch(ms, 0)
	if err != nil {
		if isTimeout(err) {
			return nil, ErrPending
		}
		return nil, err
	}
	if n == 0 {
		return nil, ErrPending
	}
	return toDatagrams6(ms[:n]), nil
}

func toDatagrams4(ms []ipv4.Message) []proto.Datagram {
	out := make([]proto.Datagram, 0, len(ms))
	for _, m := range ms {
		d := proto.Datagram{
			Remote:  m.Addr,
			Payload: m.Buffers[0][:m.N],
		}
		if len(m.OOB) > 0 {
			cm := new(ipv4.ControlMessage)
			if err := cm.Parse(m.OOB[:m.NN]); err == nil {
				d.DestIP = cm.Dst
			}
		}
		out = append(out, d)
	}
	return out
}

func toDatagrams6(ms []ipv6.Message) []proto.Datagram {
	out := make([]proto.Datagram, 0, len(ms))
	for _, m := range ms {
		d := proto.Datagram{
			Remote:  m.Addr,
			Payload: m.Buffers[0][:m.N],
		}
		if len(m.OOB) > 0 {
			cm := new(ipv6.ControlMessage)
			if err := cm.Parse(m.OOB[:m.NN]); err == nil {
				d.DestIP = cm.Dst
				d.ECN = uint8(cm.TrafficClass) & 0x3
			}
		}
		out = append(out, d)
	}
	return out
}

func (s *udpSocket) SendBatch(ctx context.Context, transmits []proto.Transmit) (int, error) {
	if len(transmits) == 0 {
		return 0, nil
	}
	if len(transmits) > BatchSize {
		transmits = transmits[:BatchSize]
	}

	_ = s.conn.SetWriteDeadline(pollDeadline(ctx))

	if s.isV6 {
		ms := make([]ipv6.Message, len(transmits))
		for i, tr := range transmits {
			ms[i].Buffers = [][]byte{tr.Payload}
			ms[i].Addr = tr.Dest
		}
		n, err := s.p6.WriteBatch(ms, 0)
		if err != nil {
			if isTimeout(err) && n == 0 {
				return 0, ErrPending
			}
			return n, err
		}
		return n, nil
	}

	ms := make([]ipv4.Message, len(transmits))
	for i, tr := range transmits {
		ms[i].Buffers = [][]byte{tr.Payload}
		ms[i].Addr = tr.Dest
	}
	n, err := s.p4.WriteBatch(ms, 0)
	if err != nil {
		if isTimeout(err) && n == 0 {
			return 0, ErrPending
		}
		return n, err
	}
	return n, nil
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
