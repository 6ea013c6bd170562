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

	jww "github.com/spf13/jwalterweatherman"
)

// jwwWriter routes bytes written by jwalterweatherman (the logging library
// behind cobra/viper's own diagnostics) through Logger, at a fixed level.
type jwwWriter struct {
	l   Logger
	lvl Level
}

func (w jwwWriter) Write(p []byte) (int, error) {
	switch w.lvl {
	case DebugLevel:
		w.l.Debug(string(p), nil)
	case WarnLevel:
		w.l.Warning(string(p), nil)
	case ErrorLevel:
		w.l.Error(string(p), nil)
	default:
		w.l.Info(string(p), nil)
	}
	return len(p), nil
}

// BindJWW points jwalterweatherman's info/warn/error notepads at l, so any
// cobra or viper diagnostics flow through the same structured logger as the
// rest of the driver.
func BindJWW(l Logger) {
	jww.SetLogOutput(io.Discard)
	jww.SetStdoutOutput(io.Discard)
	jww.INFO.SetOutput(jwwWriter{l: l, lvl: InfoLevel})
	jww.WARN.SetOutput(jwwWriter{l: l, lvl: WarnLevel})
	jww.ERROR.SetOutput(jwwWriter{l: l, lvl: ErrorLevel})
}
