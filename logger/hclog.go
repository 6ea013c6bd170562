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

package logger

import (
	"io"
	"log"

	"github.com/hashicorp/go-hclog"
)

// asHclog adapts a Logger to hclog.Logger, for libraries in the NATS/
// memberlist ecosystem that only know how to log through hclog.
type asHclog struct {
	l    Logger
	name string
}

// AsHCLog wraps l as an hclog.Logger.
func AsHCLog(l Logger) hclog.Logger {
	return &asHclog{l: l}
}

func (h *asHclog) Log(level hclog.Level, msg string, args ...interface{}) {
	switch level {
	case hclog.Trace, hclog.Debug:
		h.l.Debug(msg, argsToFields(args))
	case hclog.Info:
		h.l.Info(msg, argsToFields(args))
	case hclog.Warn:
		h.l.Warning(msg, argsToFields(args))
	case hclog.Error:
		h.l.Error(msg, argsToFields(args))
	}
}

func argsToFields(args []interface{}) Fields {
	f := Fields{}
	for i := 0; i+1 < len(args); i += 2 {
		if k, ok := args[i].(string); ok {
			f[k] = args[i+1]
		}
	}
	return f
}

func (h *asHclog) Trace(msg string, args ...interface{}) { h.l.Debug(msg, argsToFields(args)) }
func (h *asHclog) Debug(msg string, args ...interface{}) { h.l.Debug(msg, argsToFields(args)) }
func (h *asHclog) Info(msg string, args ...interface{})  { h.l.Info(msg, argsToFields(args)) }
func (h *asHclog) Warn(msg string, args ...interface{})  { h.l.Warning(msg, argsToFields(args)) }
func (h *asHclog) Error(msg string, args ...interface{}) { h.l.Error(msg, argsToFields(args)) }

func (h *asHclog) IsTrace() bool { return h.l.GetLevel() >= DebugLevel }
func (h *asHclog) IsDebug() bool { return h.l.GetLevel() >= DebugLevel }
func (h *asHclog) IsInfo() bool  { return h.l.GetLevel() >= InfoLevel }
func (h *asHclog) IsWarn() bool  { return h.l.GetLevel() >= WarnLevel }
func (h *asHclog) IsError() bool { return h.l.GetLevel() >= ErrorLevel }

func (h *asHclog) ImpliedArgs() []interface{} { return nil }

func (h *asHclog) With(args ...interface{}) hclog.Logger {
	h.l.SetFields(h.l.GetFields().Add("args", args))
	return h
}

func (h *asHclog) Name() string { return h.name }

func (h *asHclog) Named(name string) hclog.Logger {
	n := *h
	n.name = name
	return &n
}

func (h *asHclog) ResetNamed(name string) hclog.Logger {
	return h.Named(name)
}

func (h *asHclog) SetLevel(level hclog.Level) {
	switch level {
	case hclog.Off, hclog.NoLevel:
		h.l.SetLevel(NilLevel)
	case hclog.Trace, hclog.Debug:
		h.l.SetLevel(DebugLevel)
	case hclog.Info:
		h.l.SetLevel(InfoLevel)
	case hclog.Warn:
		h.l.SetLevel(WarnLevel)
	case hclog.Error:
		h.l.SetLevel(ErrorLevel)
	}
}

func (h *asHclog) GetLevel() hclog.Level {
	switch h.l.GetLevel() {
	case NilLevel:
		return hclog.Off
	case DebugLevel:
		return hclog.Debug
	case InfoLevel:
		return hclog.Info
	case WarnLevel:
		return hclog.Warn
	default:
		return hclog.Error
	}
}

func (h *asHclog) StandardLogger(opts *hclog.StandardLoggerOptions) *log.Logger {
	return log.Default()
}

func (h *asHclog) StandardWriter(opts *hclog.StandardLoggerOptions) io.Writer {
	return io.Discard
}
