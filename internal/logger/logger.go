/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
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

// Package logger is a trimmed descendant of nabbar-golib/logger: a
// chainable, level-gated entry builder backed by logrus, stripped of the
// gin-context/syslog/gorm/hashicorp hook surface that has no job in a
// proxy process. It keeps the shape that matters here - SetLevel once at
// startup, then Info()/Warn()/... .Field(...).Msg(...) at call sites.
package logger

import (
	"os"

	"github.com/sirupsen/logrus"

	"github.com/sabouaram/socks5mux/internal/logger/fields"
	"github.com/sabouaram/socks5mux/internal/logger/level"
)

// Logger wraps a logrus.Logger with the level gate and base fields shared
// by every Entry it creates.
type Logger struct {
	base  *logrus.Logger
	lvl   level.Level
	field fields.Fields
}

// New builds a Logger writing to stderr, matching the teacher's default
// stdout/stderr hook split (see hookstdout/hookstderr in the reference
// package): anything WarnLevel or more severe goes to stderr, the rest to
// stdout, which here collapses to a single logrus text formatter on
// stderr since this CLI has no syslog/file hook configuration surface.
func New(lvl level.Level) *Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(lvl.Logrus())
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	return &Logger{base: l, lvl: lvl, field: fields.New()}
}

// Base exposes the underlying logrus.Logger, for wiring a caller-supplied
// hook (e.g. a test hook, or a future syslog/file hook) without widening
// this package's own surface.
func (l *Logger) Base() *logrus.Logger {
	return l.base
}

// SetLevel adjusts the gate level of the logger and its backing logrus
// instance in place.
func (l *Logger) SetLevel(lvl level.Level) *Logger {
	l.lvl = lvl
	l.base.SetLevel(lvl.Logrus())
	return l
}

// With returns a child Logger sharing the backing logrus instance but
// carrying additional base fields attached to every entry it creates.
func (l *Logger) With(f fields.Fields) *Logger {
	merged := l.field.Clone()
	for k, v := range f {
		merged[k] = v
	}
	return &Logger{base: l.base, lvl: l.lvl, field: merged}
}

func (l *Logger) newEntry(lvl level.Level) *Entry {
	return &Entry{log: l, lvl: lvl, fld: l.field.Clone()}
}

func (l *Logger) Debug() *Entry { return l.newEntry(level.DebugLevel) }
func (l *Logger) Info() *Entry  { return l.newEntry(level.InfoLevel) }
func (l *Logger) Warn() *Entry  { return l.newEntry(level.WarnLevel) }
func (l *Logger) Error() *Entry { return l.newEntry(level.ErrorLevel) }
func (l *Logger) Fatal() *Entry { return l.newEntry(level.FatalLevel) }

func (l *Logger) emit(e *Entry) {
	if e.lvl > l.lvl {
		return
	}

	entry := l.base.WithFields(e.fld.Logrus())

	switch e.lvl {
	case level.DebugLevel:
		entry.Debug(e.msg)
	case level.InfoLevel:
		entry.Info(e.msg)
	case level.WarnLevel:
		entry.Warn(e.msg)
	case level.ErrorLevel:
		entry.Error(e.msg)
	case level.FatalLevel:
		entry.Error(e.msg)
	}
}
