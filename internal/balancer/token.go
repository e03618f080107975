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

package balancer

import (
	"net/netip"
	"sync"
)

// Token is a scoped acquisition handle bound to the balancer that issued it
// and the address it won. It owns the obligation to decrement that
// address's use count exactly once.
//
// Go has no destructors, so the caller is responsible for calling Release
// from a defer statement immediately after a successful Take - that is
// this codebase's equivalent of the "deferred release registered
// immediately after acquisition" pattern for languages without RAII. This
// guarantees release on every exit path of the owning session: normal
// completion, an error return, or a panic unwinding through the deferred
// call.
type Token struct {
	b    *Balancer
	addr netip.Addr
	isV6 bool
	once sync.Once
}

// Addr is the source address this token won.
func (t *Token) Addr() netip.Addr {
	return t.addr
}

// Release decrements the bound address's use count by one. It is
// idempotent: calling it more than once on the same token has no further
// effect after the first call, so a caller can both defer Release and
// call it early on a fast path without double-decrementing.
func (t *Token) Release() {
	t.once.Do(func() {
		t.b.release(t.addr, t.isV6)
	})
}
