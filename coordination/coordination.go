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

// Package coordination publishes forward-table invalidation and
// close-cascade notifications over NATS, so a fleet of endpoint processes
// fronting the same virtual address can keep their forward tables roughly
// consistent. This supplements the single-process forwarding feature;
// it is optional and off by default.
package coordination

import (
	"encoding/json"

	"github.com/nats-io/nats.go"
)

// EventKind tags a Bus message.
type EventKind string

const (
	ForwardInvalidate EventKind = "forward_invalidate"
	EndpointClosing   EventKind = "endpoint_closing"
)

// Message is one coordination event published or received on the bus.
type Message struct {
	Kind   EventKind `json:"kind"`
	Remote string    `json:"remote,omitempty"`
	Reason string    `json:"reason,omitempty"`
}

// Bus publishes and subscribes to coordination messages on one subject.
type Bus struct {
	nc      *nats.Conn
	subject string
}

// Connect dials url and returns a Bus bound to subject.
func Connect(url, subject string) (*Bus, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, err
	}
	return &Bus{nc: nc, subject: subject}, nil
}

// PublishForwardInvalidate tells the fleet to drop any cached forward
// entry for remote, used after this instance evicts one locally.
func (b *Bus) PublishForwardInvalidate(remote string) error {
	return b.publish(Message{Kind: ForwardInvalidate, Remote: remote})
}

// PublishClosing announces this instance is shutting down, reason given
// for operator visibility in logs on the receiving end.
func (b *Bus) PublishClosing(reason string) error {
	return b.publish(Message{Kind: EndpointClosing, Reason: reason})
}

func (b *Bus) publish(msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return b.nc.Publish(b.subject, payload)
}

// Subscribe invokes fn for every Message received on the bus's subject
// until unsubscribed or the connection closes.
func (b *Bus) Subscribe(fn func(Message)) (*nats.Subscription, error) {
	return b.nc.Subscribe(b.subject, func(m *nats.Msg) {
		var msg Message
		if err := json.Unmarshal(m.Data, &msg); err != nil {
			return
		}
		fn(msg)
	})
}

// Close closes the underlying NATS connection without draining it.
func (b *Bus) Close() {
	b.nc.Close()
}
