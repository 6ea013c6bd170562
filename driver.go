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
	"sync"
	"time"

	"github.com/nabbar/quicio/runtimeio"
	"github.com/nabbar/quicio/worklimiter"
)

// driverState is the Driver's own lifecycle state machine, independent of
// state's refCount/registry bookkeeping: {Idle, Draining, Terminated}.
type driverState uint8

const (
	driverIdle driverState = iota
	driverDraining
	driverTerminated
)

// pollInterval bounds how long the driver sleeps between cycles when no
// wake signal has arrived, so forward-entry eviction and socket polling
// still make progress under total silence.
const pollInterval = 10 * time.Millisecond

// Driver is the single cooperative goroutine that owns state and drives its
// four pipelines plus the event pump, composing A-H from the system
// overview. One Endpoint owns exactly one Driver.
type Driver struct {
	mu sync.Mutex
	s  *state

	recvLimiter *worklimiter.Limiter
	sendLimiter *worklimiter.Limiter
	rt          runtimeio.Runtime

	// wake is notified by any API method that mutates state in a way the
	// driver loop should react to promptly (Connect, Close, Rebind).
	wake runtimeio.Broadcaster
	// incoming is notified when a new connection is queued, the signal
	// Accept blocks on.
	incoming runtimeio.Broadcaster
	// idle is notified when the registry becomes empty, the signal
	// WaitIdle blocks on.
	idle runtimeio.Broadcaster

	lifecycle driverState
	lastErr   error
}

func newDriver(s *state) *Driver {
	rt := s.cfg.Runtime
	if rt == nil {
		rt = runtimeio.Std()
	}
	return &Driver{
		s:           s,
		recvLimiter: worklimiter.New(s.cfg.RecvBudget, 0.3, time.Microsecond),
		sendLimiter: worklimiter.New(s.cfg.SendBudget, 0.3, time.Microsecond),
		rt:          rt,
		wake:        rt.NewBroadcaster(),
		incoming:    rt.NewBroadcaster(),
		idle:        rt.NewBroadcaster(),
	}
}

// withState runs fn with the driver's mutex held, the same critical section
// both API methods and driver cycles use, then wakes the driver loop.
func (d *Driver) withState(fn func(*state)) {
	d.mu.Lock()
	fn(d.s)
	d.mu.Unlock()
	d.wake.NotifyAll()
}

// Run executes the driver loop until the endpoint terminates or ctx is
// cancelled. Each cycle performs recv, events, send, upstream-recv,
// upstream-send, then notifies incoming waiters if any connection is
// queued - the same order as the source's poll.
func (d *Driver) Run(ctx context.Context) error {
	defer d.shutdown()

	for {
		keepGoing, terminated, err := d.runCycle(ctx)
		if err != nil {
			d.mu.Lock()
			d.lifecycle = driverTerminated
			d.lastErr = err
			d.mu.Unlock()
			return err
		}
		if terminated {
			d.mu.Lock()
			d.lifecycle = driverTerminated
			d.mu.Unlock()
			return nil
		}
		if keepGoing {
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-d.wake.Wait(ctx):
		case <-time.After(pollInterval):
		}
	}
}

func (d *Driver) runCycle(ctx context.Context) (keepGoing, terminated bool, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := d.s
	now := d.rt.Now()

	recvMore, err := d.driveRecv(ctx, now)
	if err != nil {
		s.driverLost = true
		return false, true, err
	}

	eventsMore := d.pumpEvents(now)

	sendMore, err := d.driveSend(ctx, now)
	if err != nil {
		s.driverLost = true
		return false, true, err
	}

	upRecvMore, _ := d.driveUpstreamRecv(ctx, now)
	upSendMore, _ := d.driveUpstreamSend(ctx, now)

	if m := s.cfg.Metrics; m != nil {
		m.OutgoingBytes.Set(float64(s.outgoingBytes))
		m.ForwardEntries.Set(float64(s.forwardTable.Len()))
	}

	if len(s.incoming) > 0 {
		d.incoming.NotifyAll()
	}

	if s.refCount <= 0 && s.registry.IsEmpty() {
		s.driverLost = true
		return false, true, nil
	}
	if s.refCount <= 0 {
		d.lifecycle = driverDraining
	}

	return recvMore || eventsMore || sendMore || upRecvMore || upSendMore, false, nil
}

// shutdown marks the driver lost, drops every connection's channel (which
// propagates termination to the per-connection workers by closing their
// read side), and wakes incoming/idle waiters so Accept and WaitIdle
// unblock.
func (d *Driver) shutdown() {
	d.mu.Lock()
	d.s.driverLost = true
	d.s.registry.CloseAll()
	d.mu.Unlock()

	d.incoming.NotifyAll()
	d.idle.NotifyAll()
}
