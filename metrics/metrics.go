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

// Package metrics instruments the driver with Prometheus collectors:
// queue depth, admission drops, forward-table size and evictions, and
// accepted connections. Wiring is optional; a Collector built with New
// registers nothing until passed to a caller's own registry.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Collector holds every gauge/counter the driver updates during a cycle.
type Collector struct {
	OutgoingBytes    prometheus.Gauge
	AdmissionDrops   prometheus.Counter
	ForwardEntries   prometheus.Gauge
	ForwardEvictions prometheus.Counter
	AcceptedTotal    prometheus.Counter
}

// New builds a Collector with the given namespace, ready to be registered
// with a prometheus.Registerer.
func New(namespace string) *Collector {
	return &Collector{
		OutgoingBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "outgoing_bytes",
			Help:      "Bytes currently queued for the downstream send pipeline.",
		}),
		AdmissionDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admission_drops_total",
			Help:      "Transmits rejected by admission control since start.",
		}),
		ForwardEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "forward_entries",
			Help:      "Live entries in the forward table.",
		}),
		ForwardEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forward_evictions_total",
			Help:      "Forward entries evicted for idleness since start.",
		}),
		AcceptedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "accepted_connections_total",
			Help:      "Connections registered since start, inbound and outbound (Connect).",
		}),
	}
}

// Register adds every collector in c to reg.
func (c *Collector) Register(reg prometheus.Registerer) error {
	for _, coll := range []prometheus.Collector{
		c.OutgoingBytes, c.AdmissionDrops, c.ForwardEntries, c.ForwardEvictions, c.AcceptedTotal,
	} {
		if err := reg.Register(coll); err != nil {
			return err
		}
	}
	return nil
}
