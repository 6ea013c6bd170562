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

	"github.com/nabbar/quicio/transport"
)

// driveSend is SendPipeline: drain the outgoing FIFO to the downstream
// socket in batches, strictly in order, until the send WorkLimiter's
// budget is spent or the queue empties.
func (d *Driver) driveSend(ctx context.Context, now time.Time) (bool, error) {
	s := d.s
	d.sendLimiter.StartCycle(now)
	defer d.sendLimiter.FinishCycle()

	for len(s.outgoing) > 0 && d.sendLimiter.AllowWork(now) {
		batch := s.outgoing
		if len(batch) > transport.BatchSize {
			batch = batch[:transport.BatchSize]
		}

		n, err := s.socket.SendBatch(ctx, batch)
		if err != nil {
			if errors.Is(err, transport.ErrPending) {
				return false, nil
			}
			return false, err
		}
		if n == 0 {
			return false, nil
		}

		s.popOutgoing(n)
		d.sendLimiter.RecordWork(now, n)
		now = d.rt.Now()
	}

	return len(s.outgoing) > 0, nil
}
