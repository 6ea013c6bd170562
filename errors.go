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

import liberr "github.com/nabbar/quicio/errors"

// Error is the endpoint driver's error type, re-exported from the errors
// package so callers need only import this one package.
type Error = liberr.Error

var (
	// ErrEndpointStopping is returned when an API method is called after
	// the driver has terminated.
	ErrEndpointStopping = liberr.New(liberr.CodeEndpointStopping, "endpoint driver is gone")

	// ErrInvalidRemoteAddress is returned by Connect/ConnectWith when the
	// target address family does not match the bound socket.
	ErrInvalidRemoteAddress = liberr.New(liberr.CodeInvalidRemoteAddress, "remote address family unreachable from this socket")

	// ErrNoDefaultClientConfig is returned by Connect when no default
	// client config has been set.
	ErrNoDefaultClientConfig = liberr.New(liberr.CodeNoDefaultClientConfig, "no default client config set")
)
