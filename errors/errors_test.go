package errors_test

import (
	"testing"

	liberr "github.com/nabbar/quicio/errors"
)

func TestNewAndCode(t *testing.T) {
	e := liberr.New(liberr.CodeEndpointStopping, "driver gone")
	if !e.IsCode(liberr.CodeEndpointStopping) {
		t.Fatalf("expected code %v, got %v", liberr.CodeEndpointStopping, e.GetCode())
	}
	if liberr.HasCode(e, liberr.CodeIOFatal) {
		t.Fatalf("did not expect CodeIOFatal")
	}
}

func TestHasCodeWalksParents(t *testing.T) {
	inner := liberr.New(liberr.CodeIOFatal, "socket dead")
	outer := liberr.New(liberr.CodeProtocolEngine, "handshake failed", inner)

	if !outer.HasCode(liberr.CodeIOFatal) {
		t.Fatalf("expected HasCode to find the parent's code")
	}
	if !liberr.Is(outer) {
		t.Fatalf("expected Is to recognize an Error value")
	}
}

func TestNewfFormats(t *testing.T) {
	e := liberr.Newf(liberr.CodeInvalidRemoteAddress, "addr %s not usable on %s", "::1", "ipv4-only socket")
	if e.Error() == "" {
		t.Fatalf("expected non-empty message")
	}
}
