package quicio_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/nabbar/quicio"
	"github.com/nabbar/quicio/proto"
	"github.com/nabbar/quicio/transport"
)

func mustListen(t *testing.T) (transport.Socket, *net.UDPConn) {
	t.Helper()
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	sock, err := transport.New(conn)
	if err != nil {
		t.Fatalf("wrap socket: %v", err)
	}
	return sock, conn
}

func TestServerAcceptsFirstPacketFromNewClient(t *testing.T) {
	sock, _ := mustListen(t)
	engine := proto.NewRefEngine(0)
	ep := quicio.Server(sock, engine, false, &proto.ServerConfig{ServerName: "test"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = ep.Run(ctx) }()

	client, err := net.DialUDP("udp4", nil, sock.LocalAddr().(*net.UDPAddr))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	if _, err := client.Write([]byte("hello")); err != nil {
		t.Fatalf("write: %v", err)
	}

	actx, acancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer acancel()
	ah, err := ep.Accept(actx)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if ah == nil {
		t.Fatalf("expected a non-nil accept handle")
	}
}

func TestRejectNewConnectionsStopsFurtherAccepts(t *testing.T) {
	sock, _ := mustListen(t)
	engine := proto.NewRefEngine(0)
	ep := quicio.Server(sock, engine, false, &proto.ServerConfig{ServerName: "test"})
	ep.RejectNewConnections()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = ep.Run(ctx) }()

	client, err := net.DialUDP("udp4", nil, sock.LocalAddr().(*net.UDPAddr))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()
	if _, err := client.Write([]byte("hello")); err != nil {
		t.Fatalf("write: %v", err)
	}

	actx, acancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer acancel()
	if _, err := ep.Accept(actx); err == nil {
		t.Fatalf("expected Accept to time out once new connections are rejected")
	}
}

func TestCloseCascadesToAcceptedConnection(t *testing.T) {
	sock, _ := mustListen(t)
	engine := proto.NewRefEngine(0)
	ep := quicio.Server(sock, engine, false, &proto.ServerConfig{ServerName: "test"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = ep.Run(ctx) }()

	client, err := net.DialUDP("udp4", nil, sock.LocalAddr().(*net.UDPAddr))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()
	if _, err := client.Write([]byte("hello")); err != nil {
		t.Fatalf("write: %v", err)
	}

	actx, acancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer acancel()
	ah, err := ep.Accept(actx)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}

	ep.Close(0, "bye")

	select {
	case ev := <-ah.ToConnection:
		if !ev.Closed {
			t.Fatalf("expected a closed event on the accepted connection")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for the close cascade")
	}
}

func TestDriverShutdownClosesLiveConnectionChannels(t *testing.T) {
	sock, _ := mustListen(t)
	engine := proto.NewRefEngine(0)
	ep := quicio.Server(sock, engine, false, &proto.ServerConfig{ServerName: "test"})

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = ep.Run(ctx) }()

	client, err := net.DialUDP("udp4", nil, sock.LocalAddr().(*net.UDPAddr))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()
	if _, err := client.Write([]byte("hello")); err != nil {
		t.Fatalf("write: %v", err)
	}

	actx, acancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer acancel()
	ah, err := ep.Accept(actx)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}

	// Simulate the driver goroutine going away (fatal I/O error, or the
	// caller cancelling ctx) without ever calling Close: a worker blocked
	// reading ah.ToConnection must still be woken, by the channel closing,
	// rather than hang forever.
	cancel()

	select {
	case ev, ok := <-ah.ToConnection:
		if ok {
			t.Fatalf("expected the channel to be closed, got an event instead: %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for the driver shutdown to close the connection channel")
	}
}

func TestWaitIdleReturnsImmediatelyOnEmptyRegistry(t *testing.T) {
	sock, _ := mustListen(t)
	engine := proto.NewRefEngine(0)
	ep := quicio.Server(sock, engine, false, &proto.ServerConfig{ServerName: "test"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = ep.Run(ctx) }()

	wctx, wcancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer wcancel()
	if err := ep.WaitIdle(wctx); err != nil {
		t.Fatalf("expected WaitIdle to return immediately on an empty registry: %v", err)
	}
}

func TestConnectWithoutDefaultClientConfigFails(t *testing.T) {
	sock, _ := mustListen(t)
	engine := proto.NewRefEngine(0)
	ep := quicio.Client(sock, engine, false)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = ep.Run(ctx) }()

	_, err := ep.Connect(&net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 4433}, "peer")
	if err != quicio.ErrNoDefaultClientConfig {
		t.Fatalf("expected ErrNoDefaultClientConfig, got %v", err)
	}
}

func TestConnectWithExplicitConfigRegistersConnection(t *testing.T) {
	sock, _ := mustListen(t)
	engine := proto.NewRefEngine(0)
	ep := quicio.Client(sock, engine, false)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = ep.Run(ctx) }()

	remote := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 4433}
	ah, err := ep.ConnectWith(&proto.ClientConfig{ServerName: "peer"}, remote, "peer")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if ah == nil {
		t.Fatalf("expected a non-nil accept handle")
	}
}
