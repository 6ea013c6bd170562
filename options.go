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

	"github.com/nabbar/quicio/metrics"
	"github.com/nabbar/quicio/runtimeio"
	"github.com/nabbar/quicio/sizeunit"
)

// Config holds the tunables that bound the driver's per-cycle work. Zero
// value is not usable; build one with DefaultConfig and Option functions.
type Config struct {
	// MaxQueueBytes caps outgoingBytes for engine- and upstream-
	// originated transmits. The check happens before enqueue, so a
	// single oversized transmit may push the running total past it.
	MaxQueueBytes int

	// RecvBudget and SendBudget bound the wall-clock time a single
	// ReceivePipeline/SendPipeline pass may run.
	RecvBudget time.Duration
	SendBudget time.Duration

	// IOLoopBound caps how many inbound connection events EventPump
	// drains per cycle.
	IOLoopBound int

	// ForwardIdleTimeout is how long a ForwardEntry may go without
	// traffic before it is evicted.
	ForwardIdleTimeout time.Duration

	// Runtime supplies spawn/clock/broadcaster primitives. Defaults to
	// runtimeio.Std().
	Runtime runtimeio.Runtime

	// Metrics, when non-nil, is updated at the end of every driver cycle.
	// Off by default; the caller owns registering it with a Prometheus
	// registry.
	Metrics *metrics.Collector
}

// DefaultConfig returns a Config with production-sane defaults: a 1 MiB
// queue cap, half-millisecond recv/send budgets, a 256-event pump bound, and
// the standard 30 second forward idle timeout.
func DefaultConfig() Config {
	return Config{
		MaxQueueBytes:      sizeunit.SizeMega.Int(),
		RecvBudget:         500 * time.Microsecond,
		SendBudget:         500 * time.Microsecond,
		IOLoopBound:        256,
		ForwardIdleTimeout: 30 * time.Second,
		Runtime:            runtimeio.Std(),
	}
}

// Option mutates a Config at construction time.
type Option func(*Config)

// WithMaxQueueBytes overrides the admission-control byte cap.
func WithMaxQueueBytes(n int) Option {
	return func(c *Config) { c.MaxQueueBytes = n }
}

// WithBudgets overrides the recv/send per-cycle wall-clock budgets.
func WithBudgets(recv, send time.Duration) Option {
	return func(c *Config) { c.RecvBudget = recv; c.SendBudget = send }
}

// WithIOLoopBound overrides how many events EventPump drains per cycle.
func WithIOLoopBound(n int) Option {
	return func(c *Config) { c.IOLoopBound = n }
}

// WithForwardIdleTimeout overrides the forward-entry eviction timeout.
func WithForwardIdleTimeout(d time.Duration) Option {
	return func(c *Config) { c.ForwardIdleTimeout = d }
}

// WithRuntime overrides the runtime abstraction, mainly for tests.
func WithRuntime(rt runtimeio.Runtime) Option {
	return func(c *Config) { c.Runtime = rt }
}

// WithMetrics attaches a Prometheus collector the driver updates every
// cycle.
func WithMetrics(m *metrics.Collector) Option {
	return func(c *Config) { c.Metrics = m }
}

func buildConfig(opts ...Option) Config {
	cfg := DefaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	return cfg
}
