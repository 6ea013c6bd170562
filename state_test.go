package quicio

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/nabbar/quicio/proto"
)

type fakeSocket struct {
	addr net.Addr
}

func (f *fakeSocket) LocalAddr() net.Addr   { return f.addr }
func (f *fakeSocket) MayFragment() bool     { return true }
func (f *fakeSocket) Close() error          { return nil }
func (f *fakeSocket) RecvBatch(context.Context) ([]proto.Datagram, error) {
	return nil, nil
}
func (f *fakeSocket) SendBatch(context.Context, []proto.Transmit) (int, error) {
	return 0, nil
}

func newTestState(t *testing.T) *state {
	t.Helper()
	addr := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 4433}
	cfg := buildConfig(WithMaxQueueBytes(16))
	return newState(&fakeSocket{addr: addr}, proto.NewRefEngine(0), false, cfg)
}

func TestAdmitRespectsMaxQueueBytes(t *testing.T) {
	s := newTestState(t)
	dest := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 1}

	if !s.admit(proto.Transmit{Dest: dest, Payload: make([]byte, 10)}) {
		t.Fatalf("first transmit under cap should be admitted")
	}
	// The cap is checked before enqueue: 10 < 16, so this one is admitted
	// and pushes the total past the cap.
	if !s.admit(proto.Transmit{Dest: dest, Payload: make([]byte, 10)}) {
		t.Fatalf("second transmit, checked while still under cap, should be admitted")
	}
	if s.admit(proto.Transmit{Dest: dest, Payload: make([]byte, 10)}) {
		t.Fatalf("third transmit, checked once over cap, should be rejected")
	}
	if s.outgoingBytes != 20 {
		t.Fatalf("expected outgoingBytes 20, got %d", s.outgoingBytes)
	}
}

func TestEnqueueUnconditionalBypassesCap(t *testing.T) {
	s := newTestState(t)
	dest := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 1}

	s.enqueueUnconditional(proto.Transmit{Dest: dest, Payload: make([]byte, 100)})
	if s.outgoingBytes != 100 {
		t.Fatalf("expected outgoingBytes 100, got %d", s.outgoingBytes)
	}
	if len(s.outgoing) != 1 {
		t.Fatalf("expected one queued transmit, got %d", len(s.outgoing))
	}
}

func TestPopOutgoingMaintainsByteInvariant(t *testing.T) {
	s := newTestState(t)
	dest := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 1}
	s.enqueueUnconditional(proto.Transmit{Dest: dest, Payload: make([]byte, 4)})
	s.enqueueUnconditional(proto.Transmit{Dest: dest, Payload: make([]byte, 4)})

	popped := s.popOutgoing(1)
	if len(popped) != 1 {
		t.Fatalf("expected 1 popped transmit, got %d", len(popped))
	}
	if s.outgoingBytes != 4 {
		t.Fatalf("expected remaining outgoingBytes 4, got %d", s.outgoingBytes)
	}
}

func TestCloseDeliversToAlreadyRegisteredConnection(t *testing.T) {
	s := newTestState(t)
	ch := make(chan proto.InboundEvent, 1)
	handle := proto.ConnectionHandle{1}
	s.registry.Insert(handle, ch)

	s.Close(42, "shutting down")

	select {
	case ev := <-ch:
		if !ev.Closed {
			t.Fatalf("expected a closed event")
		}
	default:
		t.Fatalf("expected a close event to be delivered")
	}
}

func TestCloseIsDeliveredToConnectionsRegisteredAfterward(t *testing.T) {
	s := newTestState(t)
	s.Close(7, "draining")

	toConn := make(chan proto.InboundEvent, 1)
	ah := s.registerConnection(proto.ConnectionHandle{2}, proto.ConnInit{ToConnection: toConn})

	select {
	case ev := <-ah.ToConnection:
		if !ev.Closed || string(ev.Data) != "draining" {
			t.Fatalf("unexpected event: %+v", ev)
		}
	default:
		t.Fatalf("expected the queued close to be delivered on registration")
	}
}

func TestCheckAddressFamilyRejectsIPv6RemoteOnIPv4Socket(t *testing.T) {
	s := newTestState(t)
	s.ipv6 = false

	v6remote := &net.UDPAddr{IP: net.ParseIP("::1"), Port: 1}
	if err := s.checkAddressFamily(v6remote); err == nil {
		t.Fatalf("expected an IPv6 remote to be rejected on an IPv4-only socket")
	}

	v4remote := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 1}
	if err := s.checkAddressFamily(v4remote); err != nil {
		t.Fatalf("IPv4 remote on IPv4 socket should be accepted: %v", err)
	}
}

func TestCheckAddressFamilyAllowsAnyRemoteOnIPv6Socket(t *testing.T) {
	s := newTestState(t)
	s.ipv6 = true

	v6remote := &net.UDPAddr{IP: net.ParseIP("::1"), Port: 1}
	if err := s.checkAddressFamily(v6remote); err != nil {
		t.Fatalf("dual-stack socket should accept an IPv6 remote: %v", err)
	}
}

func TestMapRemoteAddressLeavesIPv4SocketAlone(t *testing.T) {
	s := newTestState(t)
	s.ipv6 = false

	v4remote := &net.UDPAddr{IP: net.IPv4(192, 0, 2, 1), Port: 443}
	mapped := s.mapRemoteAddress(v4remote)
	if mapped != v4remote {
		t.Fatalf("expected an IPv4-only socket to leave the remote address untouched")
	}
}

func TestMapRemoteAddressRewritesIPv4ToDualStackForm(t *testing.T) {
	s := newTestState(t)
	s.ipv6 = true

	v4remote := &net.UDPAddr{IP: net.IPv4(192, 0, 2, 1), Port: 443}
	mapped := s.mapRemoteAddress(v4remote)

	udp, ok := mapped.(*net.UDPAddr)
	if !ok {
		t.Fatalf("expected a *net.UDPAddr, got %T", mapped)
	}
	if udp.Port != 443 {
		t.Fatalf("expected the port to be preserved, got %d", udp.Port)
	}
	// net.IP prints an IPv4-mapped address in dotted form, so compare the
	// 16-byte value rather than its string.
	if len(udp.IP) != net.IPv6len || !udp.IP.Equal(net.ParseIP("::ffff:192.0.2.1")) {
		t.Fatalf("expected the IP to be the 16-byte ::ffff:192.0.2.1, got %v (%d bytes)", udp.IP, len(udp.IP))
	}
}

func TestConnectOnDualStackSocketMapsIPv4RemoteBeforeReachingEngine(t *testing.T) {
	cfg := buildConfig(WithMaxQueueBytes(1 << 20))
	s := newState(&fakeSocket{addr: &net.UDPAddr{IP: net.ParseIP("::"), Port: 4433}}, proto.NewRefEngine(0), true, cfg)

	v4remote := &net.UDPAddr{IP: net.IPv4(192, 0, 2, 1), Port: 443}
	if _, err := s.Connect(&proto.ClientConfig{}, v4remote, "x"); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	mappedDatagram := proto.Datagram{
		Remote:  &net.UDPAddr{IP: net.ParseIP("::ffff:192.0.2.1"), Port: 443},
		Payload: []byte("reply"),
	}
	if dec := s.engine.Handle(time.Now(), mappedDatagram.Remote, mappedDatagram.DestIP, mappedDatagram.ECN, mappedDatagram.Payload); dec.Kind != proto.DecisionConnectionEvent {
		t.Fatalf("expected the engine to recognize the dual-stack mapped address as the connection it dialed, got %v", dec.Kind)
	}

	unmappedDatagram := proto.Datagram{
		Remote:  &net.UDPAddr{IP: net.IPv4(192, 0, 2, 1), Port: 443},
		Payload: []byte("reply"),
	}
	// net.UDPAddr renders the raw and the mapped IPv4 forms identically, so
	// the engine sees the same remote for both.
	if dec := s.engine.Handle(time.Now(), unmappedDatagram.Remote, unmappedDatagram.DestIP, unmappedDatagram.ECN, unmappedDatagram.Payload); dec.Kind != proto.DecisionConnectionEvent {
		t.Fatalf("expected the raw IPv4 address to match the same connection as its mapped form, got %v", dec.Kind)
	}
}
