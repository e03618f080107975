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

// Package balancer implements the weighted least-loaded source-address
// selection policy: two updateheap.UpdateHeap instances (one per address
// family), guarded by a single mutex, handing out scoped acquisition
// tokens whose release decrements the chosen address's outstanding use
// count.
package balancer

import (
	"fmt"
	"net/netip"
	"sync"
)

// metricRecord is the priority value stored in each heap. Ordering is by
// UseCount/Metric ascending (integer division) - the address with the
// lowest per-weight load sorts first when selecting.
type metricRecord struct {
	UseCount int64
	Metric   int64
}

// less reports whether a carries a strictly lower load than b under
// integer-division-of-weight ordering.
func (a metricRecord) less(b metricRecord) bool {
	return a.UseCount/a.Metric < b.UseCount/b.Metric
}

// Source is one configured outbound address, as supplied to New.
type Source struct {
	Addr   netip.Addr
	Metric uint32 // 0 defaults to 1, matching the CLI's "IP without @metric" rule.
}

// Balancer hands out source addresses for outbound dials, tracking
// outstanding use per address and preferring whichever allowed address
// currently carries the lowest use-count-per-weight.
//
// The two heaps are not shared across the mutex boundary: every read or
// mutation of either one happens with mu held, and mu is never held across
// a suspension point (DNS, dial, I/O) - only across the O(log n) heap work
// in Take and Token.Release.
type Balancer struct {
	mu sync.Mutex
	v4 *heapOf
	v6 *heapOf
}

// New builds a Balancer from a set of configured sources. An address with
// Metric == 0 defaults to metric 1. Metric values must be >= 1 once
// defaulted; New panics on a negative metric, since that can only reach
// here through a programming error - CLI-level parsing (internal/proxy)
// is responsible for rejecting bad operator input before it gets here.
func New(sources []Source) *Balancer {
	b := &Balancer{
		v4: newHeapOf(),
		v6: newHeapOf(),
	}
	for _, s := range sources {
		metric := int64(s.Metric)
		if metric == 0 {
			metric = 1
		}
		if metric < 0 {
			panic(fmt.Sprintf("balancer: negative metric for %s", s.Addr))
		}
		rec := metricRecord{UseCount: 0, Metric: metric}
		if s.Addr.Is4() || s.Addr.Is4In6() {
			b.v4.h.InsertOrUpdate(s.Addr.Unmap(), rec)
		} else {
			b.v6.h.InsertOrUpdate(s.Addr, rec)
		}
	}
	return b
}

// Take selects a source address among the allowed families and returns a
// Token owning the obligation to release it. It returns ok=false only when
// every allowed family has no configured address at all.
func (b *Balancer) Take(allowV4, allowV6 bool) (token *Token, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var (
		v4Addr netip.Addr
		v4Rec  metricRecord
		haveV4 bool

		v6Addr netip.Addr
		v6Rec  metricRecord
		haveV6 bool
	)

	if allowV4 {
		v4Addr, v4Rec, haveV4 = b.v4.h.Peek()
	}
	if allowV6 {
		v6Addr, v6Rec, haveV6 = b.v6.h.Peek()
	}

	var (
		winAddr netip.Addr
		winRec  metricRecord
		winV6   bool
	)
	switch {
	case haveV4 && haveV6:
		// Tie-break deterministically toward IPv6 (see design notes); callers
		// must not depend on which family wins a genuine tie.
		if v4Rec.less(v6Rec) {
			winAddr, winRec, winV6 = v4Addr, v4Rec, false
		} else {
			winAddr, winRec, winV6 = v6Addr, v6Rec, true
		}
	case haveV4:
		winAddr, winRec, winV6 = v4Addr, v4Rec, false
	case haveV6:
		winAddr, winRec, winV6 = v6Addr, v6Rec, true
	default:
		return nil, false
	}

	winRec.UseCount++
	if winV6 {
		b.v6.h.InsertOrUpdate(winAddr, winRec)
	} else {
		b.v4.h.InsertOrUpdate(winAddr, winRec)
	}

	return &Token{b: b, addr: winAddr, isV6: winV6}, true
}

// release decrements addr's use count by exactly one. A use count that
// would go negative means a token was released twice or a caller forged
// release outside the token's own Release - both are programming errors,
// and per the design's decrement-below-zero decision this is fatal.
func (b *Balancer) release(addr netip.Addr, isV6 bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	h := b.v4
	if isV6 {
		h = b.v6
	}

	rec, ok := h.h.Get(addr)
	if !ok {
		panic(fmt.Sprintf("balancer: release of unknown address %s", addr))
	}
	if rec.UseCount <= 0 {
		panic(fmt.Sprintf("balancer: use count underflow releasing %s", addr))
	}
	rec.UseCount--
	h.h.InsertOrUpdate(addr, rec)
}
