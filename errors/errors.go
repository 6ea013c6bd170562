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

// Package errors provides a small error-code hierarchy used across the
// endpoint driver, so that callers can classify a failure (fatal I/O,
// admission rejection, configuration mistake) without string matching.
package errors

import (
	"errors"
	"fmt"
)

// CodeError classifies an Error the way an HTTP status classifies a response.
type CodeError uint16

const (
	CodeUnknown CodeError = iota
	CodeEndpointStopping
	CodeInvalidRemoteAddress
	CodeNoDefaultClientConfig
	CodeProtocolEngine
	CodeIOFatal
	CodeIOForwardEntry
)

func (c CodeError) String() string {
	switch c {
	case CodeEndpointStopping:
		return "endpoint stopping"
	case CodeInvalidRemoteAddress:
		return "invalid remote address"
	case CodeNoDefaultClientConfig:
		return "no default client config"
	case CodeProtocolEngine:
		return "protocol engine error"
	case CodeIOFatal:
		return "fatal socket error"
	case CodeIOForwardEntry:
		return "forward entry error"
	default:
		return "unknown"
	}
}

// Error extends the standard error with a CodeError and an optional parent
// chain, so a caller can test IsCode/HasCode without unwrapping strings.
type Error interface {
	error

	IsCode(code CodeError) bool
	HasCode(code CodeError) bool
	GetCode() CodeError

	Unwrap() error
	Add(parent ...error) Error
}

type ers struct {
	c CodeError
	m string
	p error
}

func (e *ers) Error() string {
	if e.p != nil {
		return fmt.Sprintf("[%s] %s: %s", e.c, e.m, e.p.Error())
	}
	return fmt.Sprintf("[%s] %s", e.c, e.m)
}

func (e *ers) IsCode(code CodeError) bool {
	return e.c == code
}

func (e *ers) HasCode(code CodeError) bool {
	if e.c == code {
		return true
	}
	var p Error
	if errors.As(e.p, &p) {
		return p.HasCode(code)
	}
	return false
}

func (e *ers) GetCode() CodeError {
	return e.c
}

func (e *ers) Unwrap() error {
	return e.p
}

func (e *ers) Add(parent ...error) Error {
	for _, p := range parent {
		if p == nil {
			continue
		}
		if e.p == nil {
			e.p = p
		} else {
			e.p = &ers{c: CodeUnknown, m: e.p.Error(), p: p}
		}
	}
	return e
}

// New creates an Error with the given code and message, optionally wrapping
// parent errors.
func New(code CodeError, message string, parent ...error) Error {
	e := &ers{c: code, m: message}
	return e.Add(parent...)
}

// Newf is New with fmt.Sprintf-style formatting.
func Newf(code CodeError, pattern string, args ...any) Error {
	return &ers{c: code, m: fmt.Sprintf(pattern, args...)}
}

// Is reports whether err is (or wraps) an Error.
func Is(err error) bool {
	var e Error
	return errors.As(err, &e)
}

// HasCode reports whether err is an Error carrying the given code anywhere
// in its parent chain.
func HasCode(err error, code CodeError) bool {
	var e Error
	if errors.As(err, &e) {
		return e.HasCode(code)
	}
	return false
}
