package coordination_test

import (
	"encoding/json"
	"testing"

	"github.com/nabbar/quicio/coordination"
)

func TestMessageRoundTripsThroughJSON(t *testing.T) {
	msg := coordination.Message{Kind: coordination.ForwardInvalidate, Remote: "10.0.0.1:4242"}

	raw, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var got coordination.Message
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.Kind != coordination.ForwardInvalidate || got.Remote != "10.0.0.1:4242" {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestClosingMessageCarriesReason(t *testing.T) {
	msg := coordination.Message{Kind: coordination.EndpointClosing, Reason: "maintenance"}

	raw, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got coordination.Message
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.Reason != "maintenance" {
		t.Fatalf("expected reason to round trip, got %q", got.Reason)
	}
}

func TestConnectToUnreachableServerFails(t *testing.T) {
	if _, err := coordination.Connect("nats://127.0.0.1:4", "quicio.forward"); err == nil {
		t.Fatalf("expected error connecting to an unreachable NATS server")
	}
}
