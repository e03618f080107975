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

// Package updateheap implements a key->priority map that doubles as a
// priority queue, supporting O(1) priority lookup by key and O(log n)
// insert/update without random-access heap surgery. It trades decrease-key
// for lazy deletion: an insert_or_update never touches the old heap copy of
// a key in place, it just pushes a new one and lets peek/pop skip the
// stale copy when they encounter it. An amortised rebuild keeps the stale
// fraction bounded. See container/heap-based timer queues (e.g. an
// eventloop's timerHeap) for the underlying heap.Interface idiom this
// package generalises to keyed, updatable entries.
package updateheap

import "container/heap"

// entry is one (key, priority) pair as it sits in the heap's backing slice.
// A copy here is "current" iff it equals the mapping's live binding for key.
type entry[K comparable, P comparable] struct {
	key K
	pri P
}

// rawHeap implements heap.Interface over a slice of entries, ordered so that
// the heap root is the maximum under the caller-supplied Greater function.
type rawHeap[K comparable, P comparable] struct {
	data    []entry[K, P]
	greater func(a, b P) bool
}

func (h *rawHeap[K, P]) Len() int { return len(h.data) }

// Less inverts Greater: container/heap always maintains a min-heap by Less,
// so feeding it "greater-than" as Less gives a max-heap by the caller's order.
func (h *rawHeap[K, P]) Less(i, j int) bool {
	return h.greater(h.data[i].pri, h.data[j].pri)
}

func (h *rawHeap[K, P]) Swap(i, j int) {
	h.data[i], h.data[j] = h.data[j], h.data[i]
}

func (h *rawHeap[K, P]) Push(x any) {
	h.data = append(h.data, x.(entry[K, P]))
}

func (h *rawHeap[K, P]) Pop() any {
	old := h.data
	n := len(old)
	it := old[n-1]
	h.data = old[:n-1]
	return it
}

// compactFloor is the small-size floor below which rebuilding is never
// worth its own cost, regardless of how stale the heap has become.
const compactFloor = 16

// UpdateHeap is a key->priority map doubling as a priority queue with lazy
// deletion. It is not internally synchronised: callers compose it under
// their own lock (e.g. a balancer's mutex), matching the "not shared across
// the mutex boundary" shape of two such heaps inside a composite owner.
type UpdateHeap[K comparable, P comparable] struct {
	mapping map[K]P
	h       rawHeap[K, P]
}

// New builds an empty UpdateHeap. greater(a, b) must report whether a
// outranks b; peek/pop return the maximum under that order, so callers
// wanting "least X" pass an inverted comparison.
func New[K comparable, P comparable](greater func(a, b P) bool) *UpdateHeap[K, P] {
	return &UpdateHeap[K, P]{
		mapping: make(map[K]P),
		h:       rawHeap[K, P]{greater: greater},
	}
}

// Len reports the number of live keys.
func (u *UpdateHeap[K, P]) Len() int {
	return len(u.mapping)
}

// InsertOrUpdate records key->priority in the mapping and pushes a fresh
// heap copy. Any previous heap copy for key is left in place as a stale
// entry, to be skipped lazily by a later Peek/Pop.
func (u *UpdateHeap[K, P]) InsertOrUpdate(key K, priority P) {
	u.mapping[key] = priority
	heap.Push(&u.h, entry[K, P]{key: key, pri: priority})
	u.compact()
}

// Peek returns the current top without removing it, discarding any stale
// entries it finds on the way. Returns ok=false iff the mapping is empty.
func (u *UpdateHeap[K, P]) Peek() (key K, priority P, ok bool) {
	for u.h.Len() > 0 {
		top := u.h.data[0]
		cur, present := u.mapping[top.key]
		if !present || cur != top.pri {
			heap.Pop(&u.h)
			continue
		}
		return top.key, top.pri, true
	}
	var zk K
	var zp P
	return zk, zp, false
}

// Pop removes and returns the current top, along with its mapping entry.
// Stale entries encountered along the way are discarded lazily.
func (u *UpdateHeap[K, P]) Pop() (key K, priority P, ok bool) {
	for u.h.Len() > 0 {
		top := heap.Pop(&u.h).(entry[K, P])
		cur, present := u.mapping[top.key]
		if !present || cur != top.pri {
			continue
		}
		delete(u.mapping, top.key)
		return top.key, top.pri, true
	}
	var zk K
	var zp P
	return zk, zp, false
}

// Get is an O(1) read of the current mapping, bypassing the heap entirely.
func (u *UpdateHeap[K, P]) Get(key K) (priority P, ok bool) {
	priority, ok = u.mapping[key]
	return
}

// compact rebuilds the backing slice from the authoritative mapping,
// discarding every stale copy in one pass, whenever the slice has grown
// past both the small-size floor and twice the live key count.
func (u *UpdateHeap[K, P]) compact() {
	n := len(u.mapping)
	if u.h.Len() <= compactFloor || u.h.Len() <= 2*n {
		return
	}
	fresh := make([]entry[K, P], 0, n)
	for k, p := range u.mapping {
		fresh = append(fresh, entry[K, P]{key: k, pri: p})
	}
	u.h.data = fresh
	heap.Init(&u.h)
}
