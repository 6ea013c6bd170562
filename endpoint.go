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
	"net"
	"sync"
	"sync/atomic"

	"github.com/nabbar/quicio/proto"
)

// Endpoint is the public handle on one bound UDP socket and the connections
// flowing through it. It owns a Driver running on a dedicated goroutine and
// is safe for concurrent use from any number of callers.
type Endpoint struct {
	drv *Driver

	defaultClient *proto.ClientConfig

	refs int32

	runOnce sync.Once
	runErr  atomic.Value // error
	done    chan struct{}
}

// Client binds a client-only endpoint: no server config is installed on
// the engine. Whether an inbound datagram that matches no existing
// connection or forward entry is rejected is up to the engine; RefEngine
// opens a new connection for it regardless.
func Client(sock Socket, engine proto.Engine, ipv6 bool, opts ...Option) *Endpoint {
	return newEndpoint(sock, engine, ipv6, buildConfig(opts...))
}

// Server binds an endpoint ready to accept inbound connections under cfg.
func Server(sock Socket, engine proto.Engine, ipv6 bool, cfg *proto.ServerConfig, opts ...Option) *Endpoint {
	ep := newEndpoint(sock, engine, ipv6, buildConfig(opts...))
	ep.SetServerConfig(cfg)
	return ep
}

func newEndpoint(sock Socket, engine proto.Engine, ipv6 bool, cfg Config) *Endpoint {
	s := newState(sock, engine, ipv6, cfg)
	s.refCount = 1
	return &Endpoint{
		drv:  newDriver(s),
		refs: 1,
		done: make(chan struct{}),
	}
}

// Run starts the driver loop and blocks until ctx is cancelled or the
// endpoint terminates on its own (every reference dropped and every
// connection drained). Callers typically invoke this via rt.Spawn once, at
// construction time; it is safe to call directly from a dedicated goroutine
// instead.
func (e *Endpoint) Run(ctx context.Context) error {
	var err error
	e.runOnce.Do(func() {
		err = e.drv.Run(ctx)
		e.runErr.Store(errOrNil{err})
		close(e.done)
	})
	<-e.done
	if v, ok := e.runErr.Load().(errOrNil); ok {
		return v.err
	}
	return nil
}

// errOrNil boxes a possibly-nil error for atomic.Value, which rejects
// storing the untyped nil interface.
type errOrNil struct{ err error }

// Accept blocks until a new inbound connection is queued, ctx is done, or
// the driver has terminated, matching §4.B's accept semantics.
func (e *Endpoint) Accept(ctx context.Context) (*AcceptHandle, error) {
	for {
		var ah *AcceptHandle
		var lost bool
		e.drv.withState(func(s *state) {
			if h, ok := s.popIncoming(); ok {
				ah = h
				return
			}
			lost = s.driverLost
		})
		if ah != nil {
			return ah, nil
		}
		if lost {
			return nil, ErrEndpointStopping
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-e.drv.incoming.Wait(ctx):
		}
	}
}

// SetDefaultClientConfig installs the config Connect uses when none is
// given explicitly.
func (e *Endpoint) SetDefaultClientConfig(cfg *proto.ClientConfig) {
	e.drv.withState(func(*state) {
		e.defaultClient = cfg
	})
}

// Connect opens an outbound connection using the default client config.
func (e *Endpoint) Connect(remote net.Addr, serverName string) (*AcceptHandle, error) {
	if e.defaultClient == nil {
		return nil, ErrNoDefaultClientConfig
	}
	return e.ConnectWith(e.defaultClient, remote, serverName)
}

// ConnectWith opens an outbound connection using an explicit client config.
func (e *Endpoint) ConnectWith(cfg *proto.ClientConfig, remote net.Addr, serverName string) (*AcceptHandle, error) {
	var ah *AcceptHandle
	var err error
	e.drv.withState(func(s *state) {
		ah, err = s.Connect(cfg, remote, serverName)
	})
	return ah, err
}

// Rebind swaps the endpoint's socket, broadcasting a ping to every live
// connection so peers notice the new source address promptly.
func (e *Endpoint) Rebind(sock Socket, ipv6 bool) {
	e.drv.withState(func(s *state) {
		s.Rebind(sock, ipv6)
	})
}

// SetServerConfig installs or clears (nil) the server-side accept config.
func (e *Endpoint) SetServerConfig(cfg *proto.ServerConfig) {
	e.drv.withState(func(s *state) {
		s.SetServerConfig(cfg)
	})
}

// RejectNewConnections makes every subsequent inbound first-packet decision
// a rejection, the first phase of graceful shutdown.
func (e *Endpoint) RejectNewConnections() {
	e.drv.withState(func(s *state) {
		s.RejectNewConnections()
	})
}

// LocalAddr reports the address the current socket is bound to.
func (e *Endpoint) LocalAddr() net.Addr {
	var addr net.Addr
	e.drv.withState(func(s *state) {
		addr = s.LocalAddr()
	})
	return addr
}

// Close records a close reason delivered to every current and future
// connection, and begins graceful shutdown: RejectNewConnections plus
// BroadcastClose.
func (e *Endpoint) Close(code uint64, reason string) {
	e.drv.withState(func(s *state) {
		s.RejectNewConnections()
		s.Close(code, reason)
	})
}

// WaitIdle blocks until no connections remain registered, ctx is done, or
// the driver has terminated.
func (e *Endpoint) WaitIdle(ctx context.Context) error {
	for {
		var empty, lost bool
		e.drv.withState(func(s *state) {
			empty = s.IsEmpty()
			lost = s.driverLost
		})
		if empty || lost {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.drv.idle.Wait(ctx):
		}
	}
}

// Clone increments the endpoint's reference count; the driver keeps running
// until every clone (and the original) has called Release and every
// connection has drained.
func (e *Endpoint) Clone() *Endpoint {
	e.drv.withState(func(s *state) {
		s.refCount++
	})
	atomic.AddInt32(&e.refs, 1)
	return e
}

// Release drops one reference. Once the reference count reaches zero the
// driver stops admitting new connections once existing ones drain.
func (e *Endpoint) Release() {
	e.drv.withState(func(s *state) {
		s.refCount--
	})
	atomic.AddInt32(&e.refs, -1)
}
