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

// Package fields holds a small chainable key/value bag that an Entry carries
// down to logrus. Trimmed from a context-aware, JSON-serializable sibling
// package: a proxy session's fields never need to survive past the log
// call, so the sync.Map/context/JSON machinery has no job to do here.
package fields

import "github.com/sirupsen/logrus"

// Fields is a chainable set of structured log fields.
type Fields map[string]interface{}

// New returns an empty Fields set.
func New() Fields {
	return make(Fields)
}

// Add inserts or overwrites key and returns the receiver for chaining.
func (f Fields) Add(key string, val interface{}) Fields {
	f[key] = val
	return f
}

// Clone returns a shallow copy, so a caller can branch a shared base field
// set without one branch's Add mutating another's view.
func (f Fields) Clone() Fields {
	c := make(Fields, len(f))
	for k, v := range f {
		c[k] = v
	}
	return c
}

// Logrus converts the set to logrus.Fields.
func (f Fields) Logrus() logrus.Fields {
	return logrus.Fields(f)
}
