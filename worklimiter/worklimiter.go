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

// Package worklimiter bounds how much work a single driver cycle is allowed
// to perform, so that one noisy connection or one burst of forwarded traffic
// cannot starve the others sharing the same goroutine.
package worklimiter

import "time"

// Limiter predicts how many more units of work fit in the remainder of a
// cycle's wall-clock budget, using an exponentially weighted moving average
// of the cost observed per unit of work so far.
type Limiter struct {
	budget time.Duration
	alpha  float64

	avgCost  time.Duration
	deadline time.Time
	started  time.Time
	done     int
	running  bool
}

// New builds a Limiter with the given per-cycle wall-clock budget. alpha is
// the EWMA smoothing factor in (0, 1]; a higher value adapts faster to
// sudden changes in per-unit cost. A seed cost is used until enough samples
// accumulate, so a cold Limiter does not let the first cycle run unbounded.
func New(budget time.Duration, alpha float64, seedCost time.Duration) *Limiter {
	if alpha <= 0 || alpha > 1 {
		alpha = 0.2
	}
	return &Limiter{
		budget:  budget,
		alpha:   alpha,
		avgCost: seedCost,
	}
}

// StartCycle opens a new accounting window. It must be paired with
// FinishCycle.
func (l *Limiter) StartCycle(now time.Time) {
	l.started = now
	l.deadline = now.Add(l.budget)
	l.done = 0
	l.running = true
}

// RecordWork folds n freshly completed units of work into the running
// average cost-per-unit, measured against the wall clock elapsed since
// StartCycle.
func (l *Limiter) RecordWork(now time.Time, n int) {
	if n <= 0 || !l.running {
		return
	}
	l.done += n
	elapsed := now.Sub(l.started)
	if elapsed <= 0 {
		return
	}
	observed := elapsed / time.Duration(l.done)
	if l.avgCost == 0 {
		l.avgCost = observed
		return
	}
	l.avgCost = time.Duration(l.alpha*float64(observed) + (1-l.alpha)*float64(l.avgCost))
}

// AllowWork reports whether another unit of work is likely to fit before the
// cycle's deadline, given the current average cost-per-unit estimate.
func (l *Limiter) AllowWork(now time.Time) bool {
	if !l.running {
		return false
	}
	if now.After(l.deadline) {
		return false
	}
	if l.avgCost == 0 {
		return true
	}
	return now.Add(l.avgCost).Before(l.deadline) || now.Add(l.avgCost).Equal(l.deadline)
}

// FinishCycle closes the accounting window. The average cost estimate
// survives into the next cycle.
func (l *Limiter) FinishCycle() {
	l.running = false
}

// Done returns how many units of work were recorded in the current (or most
// recently finished) cycle.
func (l *Limiter) Done() int {
	return l.done
}
