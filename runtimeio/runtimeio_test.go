package runtimeio_test

import (
	"context"
	"testing"
	"time"

	"github.com/nabbar/quicio/runtimeio"
)

func TestBroadcasterWakesWaiters(t *testing.T) {
	rt := runtimeio.Std()
	b := rt.NewBroadcaster()

	ctx := context.Background()
	waiter := b.Wait(ctx)

	done := make(chan struct{})
	go func() {
		<-waiter
		close(done)
	}()

	b.NotifyAll()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("expected Wait to unblock after NotifyAll")
	}
}

func TestBroadcasterWaitRespectsContext(t *testing.T) {
	rt := runtimeio.Std()
	b := rt.NewBroadcaster()

	ctx, cancel := context.WithCancel(context.Background())
	waiter := b.Wait(ctx)
	cancel()

	select {
	case <-waiter:
	case <-time.After(time.Second):
		t.Fatalf("expected Wait to unblock when its context is cancelled")
	}
}

func TestWakerInvokesInstalledCallback(t *testing.T) {
	var w runtimeio.Waker
	called := make(chan struct{})
	w.Set(func() { close(called) })

	w.Wake()

	select {
	case <-called:
	case <-time.After(time.Second):
		t.Fatalf("expected Wake to invoke the installed callback")
	}
}

func TestWakerWithNoCallbackIsNoop(t *testing.T) {
	var w runtimeio.Waker
	w.Wake() // must not panic
}
