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

// Package ordered lifts a user-supplied comparison function into a type that
// satisfies both equality and ordering, so that generic containers needing a
// total order (e.g. internal/updateheap) can be built over callers that only
// define a Compare function.
package ordered

// CompareFunc returns a negative number if a < b, zero if a == b, and a
// positive number if a > b.
type CompareFunc[T any] func(a, b T) int

// By wraps a value together with the comparison function that orders it.
// Two By values are Equal iff their Compare yields zero, regardless of
// whether the underlying type itself supports ==.
type By[T any] struct {
	Value   T
	Compare CompareFunc[T]
}

// NewBy binds a value to the comparison function that orders it.
func NewBy[T any](value T, cmp CompareFunc[T]) By[T] {
	return By[T]{Value: value, Compare: cmp}
}

// Less reports whether b is less than o under the bound comparison function.
func (b By[T]) Less(o By[T]) bool {
	return b.Compare(b.Value, o.Value) < 0
}

// Equal reports whether b and o compare as equal.
func (b By[T]) Equal(o By[T]) bool {
	return b.Compare(b.Value, o.Value) == 0
}

// Greater reports whether b is greater than o under the bound comparison function.
func (b By[T]) Greater(o By[T]) bool {
	return b.Compare(b.Value, o.Value) > 0
}
