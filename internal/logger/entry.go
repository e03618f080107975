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

package logger

import (
	"fmt"

	"github.com/sabouaram/socks5mux/internal/logger/fields"
	"github.com/sabouaram/socks5mux/internal/logger/level"
)

// Entry is a single chainable log record: a level, a message, and a bag of
// structured fields, bound to the Logger that will eventually emit it.
type Entry struct {
	log *Logger
	lvl level.Level
	fld fields.Fields
	msg string
}

// Field adds a structured key/value pair to the entry and returns it for
// chaining, mirroring the teacher's "every setter returns the receiver" idiom.
func (e *Entry) Field(key string, val interface{}) *Entry {
	e.fld = e.fld.Add(key, val)
	return e
}

// Fields merges an existing field set into the entry.
func (e *Entry) Fields(f fields.Fields) *Entry {
	for k, v := range f {
		e.fld[k] = v
	}
	return e
}

// Msg sets the human-readable message and immediately emits the entry - the
// terminal call of the chain, matching nabbar-golib/logger's "Log() is the
// last thing you call" convention.
func (e *Entry) Msg(format string, args ...interface{}) {
	if len(args) == 0 {
		e.msg = format
	} else {
		e.msg = fmt.Sprintf(format, args...)
	}
	e.log.emit(e)
}
