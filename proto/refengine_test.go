package proto_test

import (
	"net"
	"testing"
	"time"

	"github.com/nabbar/quicio/proto"
)

func addr(s string) net.Addr {
	a, err := net.ResolveUDPAddr("udp", s)
	if err != nil {
		panic(err)
	}
	return a
}

func TestRefEngineFirstPacketOpensConnection(t *testing.T) {
	e := proto.NewRefEngine(0)
	remote := addr("127.0.0.1:5000")

	d := e.Handle(time.Now(), remote, nil, 0, []byte("hello"))
	if d.Kind != proto.DecisionNewConnection {
		t.Fatalf("expected DecisionNewConnection, got %v", d.Kind)
	}

	d2 := e.Handle(time.Now(), remote, nil, 0, []byte("again"))
	if d2.Kind != proto.DecisionConnectionEvent {
		t.Fatalf("expected DecisionConnectionEvent on second packet, got %v", d2.Kind)
	}
	if d2.Event.Handle != d.Handle {
		t.Fatalf("expected the same connection handle to be reused")
	}
}

func TestRefEngineRejectNewConnections(t *testing.T) {
	e := proto.NewRefEngine(0)
	e.RejectNewConnections()

	d := e.Handle(time.Now(), addr("127.0.0.1:5001"), nil, 0, []byte("x"))
	if d.Kind != proto.DecisionNone {
		t.Fatalf("expected DecisionNone once rejecting, got %v", d.Kind)
	}
}

func TestRefEngineForwardPredicate(t *testing.T) {
	e := proto.NewRefEngine(0)
	upstream := addr("10.0.0.1:9999")
	e.SetForwardPredicate(func(remote net.Addr) (net.Addr, bool) {
		return upstream, true
	})

	d := e.Handle(time.Now(), addr("127.0.0.1:5002"), nil, 0, []byte("client hello"))
	if d.Kind != proto.DecisionNewForward {
		t.Fatalf("expected DecisionNewForward, got %v", d.Kind)
	}
	if d.ForwardUpstream.String() != upstream.String() {
		t.Fatalf("expected forward upstream %v, got %v", upstream, d.ForwardUpstream)
	}
	if string(d.InitialPayload) != "client hello" {
		t.Fatalf("expected the triggering datagram's payload to be carried on the decision, got %q", d.InitialPayload)
	}
}

func TestRefEngineHandleEventClose(t *testing.T) {
	e := proto.NewRefEngine(0)
	h, _, err := e.Connect(nil, addr("127.0.0.1:5003"), "test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	follow, remove := e.HandleEvent(h, proto.ConnectionEvent{Handle: h, Kind: "close"})
	if !remove {
		t.Fatalf("expected close event to request removal")
	}
	if !follow.Close {
		t.Fatalf("expected FollowUp.Close to be true")
	}
}
