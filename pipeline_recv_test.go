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
	"net"
	"testing"
	"time"

	"github.com/nabbar/quicio/proto"
)

func TestNewForwardQueuesInitialPayloadOnPending(t *testing.T) {
	s := newTestState(t)
	d := newDriver(s)

	client := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 5000}
	upstream := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 5001}
	payload := []byte("client hello")

	now := time.Now()
	d.applyDecision(now, client, proto.Decision{
		Kind:            proto.DecisionNewForward,
		ForwardUpstream: upstream,
		InitialPayload:  payload,
	})

	entry, ok := s.forwardTable.Get(client)
	if !ok {
		t.Fatalf("expected a forward entry for the client address")
	}
	if len(entry.Pending) != 1 {
		t.Fatalf("expected one pending transmit, got %d", len(entry.Pending))
	}
	if string(entry.Pending[0].Payload) != "client hello" {
		t.Fatalf("expected the initial payload to be queued, got %q", entry.Pending[0].Payload)
	}
	if entry.Pending[0].Dest != upstream {
		t.Fatalf("expected the pending transmit to be addressed to upstream")
	}
}

func TestRouteDatagramToExistingForwardAppendsPending(t *testing.T) {
	s := newTestState(t)
	d := newDriver(s)

	client := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 5000}
	upstream := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 5001}
	now := time.Now()

	s.forwardTable.Insert(client, upstream, nil, now)

	d.routeDatagram(now, proto.Datagram{Remote: client, Payload: []byte("more data")})

	entry, _ := s.forwardTable.Get(client)
	if len(entry.Pending) != 1 || string(entry.Pending[0].Payload) != "more data" {
		t.Fatalf("expected the datagram to be appended to the existing forward entry's pending queue")
	}
}
