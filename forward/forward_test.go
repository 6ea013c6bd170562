package forward_test

import (
	"net"
	"testing"
	"time"

	"github.com/nabbar/quicio/forward"
)

func addr(s string) net.Addr {
	a, err := net.ResolveUDPAddr("udp", s)
	if err != nil {
		panic(err)
	}
	return a
}

func TestInsertGetRemove(t *testing.T) {
	tbl := forward.New()
	client := addr("127.0.0.1:4000")
	upstream := addr("10.0.0.1:4001")
	now := time.Unix(1000, 0)

	tbl.Insert(client, upstream, nil, now)

	e, ok := tbl.Get(client)
	if !ok {
		t.Fatalf("expected to find the inserted entry")
	}
	if e.Upstream.String() != upstream.String() {
		t.Fatalf("expected upstream %v, got %v", upstream, e.Upstream)
	}

	tbl.Remove(client)
	if _, ok := tbl.Get(client); ok {
		t.Fatalf("expected entry to be gone after Remove")
	}
}

func TestIsIdleUsesElapsedTimeNotZero(t *testing.T) {
	start := time.Unix(0, 0)
	e := &forward.Entry{LastActivity: start}

	// The bug in the original this was distilled from compared
	// active_time to itself, which is always zero duration. Confirm the
	// fixed comparison actually sees elapsed time.
	if e.IsIdle(start, time.Second) {
		t.Fatalf("expected a fresh entry not to be idle at t=0")
	}
	if !e.IsIdle(start.Add(2*time.Second), time.Second) {
		t.Fatalf("expected the entry to be idle after the timeout elapses")
	}
}

func TestEvictIdleRemovesAndReturnsExpiredEntries(t *testing.T) {
	tbl := forward.New()
	now := time.Unix(0, 0)

	stale := addr("127.0.0.1:5000")
	fresh := addr("127.0.0.1:5001")
	tbl.Insert(stale, addr("10.0.0.1:1"), nil, now)
	tbl.Insert(fresh, addr("10.0.0.1:2"), nil, now.Add(29*time.Second))

	evicted := tbl.EvictIdle(now.Add(35*time.Second), 30*time.Second)
	if len(evicted) != 1 {
		t.Fatalf("expected exactly 1 evicted entry, got %d", len(evicted))
	}
	if evicted[0].Client.String() != stale.String() {
		t.Fatalf("expected the stale entry to be evicted, got %v", evicted[0].Client)
	}

	if tbl.Len() != 1 {
		t.Fatalf("expected 1 entry left in the table, got %d", tbl.Len())
	}
	if _, ok := tbl.Get(fresh); !ok {
		t.Fatalf("expected the fresh entry to survive eviction")
	}
}
