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
	"time"

	"github.com/nabbar/quicio/proto"
)

// pumpEvents is EventPump: drain up to IOLoopBound events from the shared
// inbound-events channel, feeding each to the protocol engine.
func (d *Driver) pumpEvents(now time.Time) bool {
	s := d.s

	for i := 0; i < s.cfg.IOLoopBound; i++ {
		select {
		case ev := <-s.inboundEvents:
			d.handleOutboundEvent(ev)
		default:
			return false
		}
	}
	return true
}

// handleOutboundEvent processes one connection-originated event: feed it to
// the engine, forward any follow-up to the connection, and drop the
// connection from the registry once it reports drained.
func (d *Driver) handleOutboundEvent(ev proto.OutboundEvent) {
	s := d.s

	follow, drained := s.engine.HandleEvent(ev.Event.Handle, ev.Event)

	if follow.HasSend {
		// Connection-generated transmits are not admission-controlled;
		// per-connection backpressure is the worker's responsibility.
		s.enqueueUnconditional(follow.Transmit)
	}

	if follow.Close {
		s.registry.Send(ev.Event.Handle, proto.InboundEvent{Handle: ev.Event.Handle, Closed: true})
	}

	if drained {
		s.registry.Remove(ev.Event.Handle)
		if s.registry.IsEmpty() {
			d.idle.NotifyAll()
		}
	}
}
