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

package socks5

import "fmt"

// sessionError pairs a cause with the SOCKS5 reply code it maps to, and
// (for errors that end the connection without any reply) a flag saying
// no reply is sent. This is a single-purpose, non-hierarchical
// trim of nabbar-golib/errors' CodeError: that package's parent chains,
// gin-context registration and stack-trace capture have no job on a
// per-connection hot path that only ever needs "what do I write back to
// the client, and what do I log."
type sessionError struct {
	code    ReplyCode
	noReply bool
	cause   error
}

func (e *sessionError) Error() string {
	if e.cause == nil {
		return e.code.String()
	}
	return fmt.Sprintf("%s: %v", e.code.String(), e.cause)
}

func (e *sessionError) Unwrap() error {
	return e.cause
}

// Code reports the SOCKS5 reply byte this error maps to.
func (e *sessionError) Code() ReplyCode {
	return e.code
}

// replyable reports whether a SOCKS5 reply is sent for this error (false
// for greeting failures, for truncated input, and for request-level
// protocol violations such as a bad version or a nonzero RSV byte).
func (e *sessionError) replyable() bool {
	return !e.noReply
}

func newError(code ReplyCode, cause error) *sessionError {
	return &sessionError{code: code, cause: cause}
}

func newUnreplyableError(cause error) *sessionError {
	return &sessionError{noReply: true, cause: cause}
}
