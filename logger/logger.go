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
	"sync"

	"github.com/sirupsen/logrus"
)

// Logger is the interface the driver and its ambient packages log
// through. Implementations must be safe for concurrent use.
type Logger interface {
	SetLevel(lvl Level)
	GetLevel() Level

	SetFields(f Fields)
	GetFields() Fields

	Debug(msg string, fields Fields)
	Info(msg string, fields Fields)
	Warning(msg string, fields Fields)
	Error(msg string, fields Fields)
}

type lgr struct {
	mu     sync.RWMutex
	base   *logrus.Logger
	fields Fields
}

// New builds a Logger backed by a fresh logrus.Logger with a text
// formatter, the same default the teacher's CLI tooling assumes.
func New() Logger {
	base := logrus.New()
	base.SetLevel(logrus.InfoLevel)
	return &lgr{base: base, fields: Fields{}}
}

func (l *lgr) SetLevel(lvl Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.base.SetLevel(lvl.toLogrus())
}

func (l *lgr) GetLevel() Level {
	l.mu.RLock()
	defer l.mu.RUnlock()
	switch l.base.GetLevel() {
	case logrus.PanicLevel:
		return PanicLevel
	case logrus.FatalLevel:
		return FatalLevel
	case logrus.ErrorLevel:
		return ErrorLevel
	case logrus.WarnLevel:
		return WarnLevel
	case logrus.InfoLevel:
		return InfoLevel
	case logrus.DebugLevel:
		return DebugLevel
	default:
		return NilLevel
	}
}

func (l *lgr) SetFields(f Fields) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fields = f
}

func (l *lgr) GetFields() Fields {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.fields
}

func (l *lgr) entry(fields Fields) *logrus.Entry {
	l.mu.RLock()
	merged := make(logrus.Fields, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	base := l.base
	l.mu.RUnlock()

	for k, v := range fields {
		merged[k] = v
	}
	return base.WithFields(merged)
}

func (l *lgr) Debug(msg string, fields Fields)   { l.entry(fields).Debug(msg) }
func (l *lgr) Info(msg string, fields Fields)    { l.entry(fields).Info(msg) }
func (l *lgr) Warning(msg string, fields Fields) { l.entry(fields).Warning(msg) }
func (l *lgr) Error(msg string, fields Fields)   { l.entry(fields).Error(msg) }
