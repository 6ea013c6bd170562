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
	"errors"
	"time"

	"github.com/nabbar/quicio/forward"
	"github.com/nabbar/quicio/proto"
	"github.com/nabbar/quicio/transport"
)

// driveUpstreamRecv is the recv half of UpstreamPipelines: scatter-read from
// every forward entry's upstream socket and admit what comes back into the
// shared outgoing queue, addressed to the entry's client.
//
// Both this pipeline and driveUpstreamSend evict idle entries at the end of
// their sweep, each using now - LastActivity > timeout. The source this was
// distilled from only committed its eviction list in the send half, and
// computed idle time as a duration compared against itself (always zero);
// both are fixed here so an entry idle on either leg is actually evicted.
func (d *Driver) driveUpstreamRecv(ctx context.Context, now time.Time) (bool, error) {
	s := d.s
	keepGoing := false
	var firstErr error

	s.forwardTable.Range(func(_ string, e *forward.Entry) {
		dgrams, err := e.Socket.RecvBatch(ctx)
		if err != nil {
			if errors.Is(err, transport.ErrPending) || isConnReset(err) {
				return
			}
			if firstErr == nil {
				firstErr = err
			}
			return
		}

		for _, dg := range dgrams {
			if s.admit(proto.Transmit{Dest: e.Client, Payload: dg.Payload}) {
				keepGoing = true
			}
		}
		if len(dgrams) > 0 {
			e.LastActivity = now
		}
	})

	d.evictIdleForwards(now)
	return keepGoing, firstErr
}

// driveUpstreamSend is the send half of UpstreamPipelines: gather-write
// each entry's pending queue to its upstream peer.
func (d *Driver) driveUpstreamSend(ctx context.Context, now time.Time) (bool, error) {
	s := d.s
	keepGoing := false
	var firstErr error

	s.forwardTable.Range(func(_ string, e *forward.Entry) {
		if len(e.Pending) == 0 {
			return
		}

		n, err := e.Socket.SendBatch(ctx, e.Pending)
		if err != nil {
			if errors.Is(err, transport.ErrPending) {
				return
			}
			if firstErr == nil {
				firstErr = err
			}
			return
		}
		if n > 0 {
			e.Pending = e.Pending[n:]
			e.LastActivity = now
		}
		if len(e.Pending) > 0 {
			keepGoing = true
		}
	})

	d.evictIdleForwards(now)
	return keepGoing, firstErr
}

func (d *Driver) evictIdleForwards(now time.Time) {
	evicted := d.s.forwardTable.EvictIdle(now, d.s.cfg.ForwardIdleTimeout)
	for _, e := range evicted {
		if e.Socket != nil {
			_ = e.Socket.Close()
		}
	}
	if m := d.s.cfg.Metrics; m != nil && len(evicted) > 0 {
		m.ForwardEvictions.Add(float64(len(evicted)))
	}
}
