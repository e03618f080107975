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

package socks5_test

import (
	"context"
	"io"
	"net"
	"net/netip"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sabouaram/socks5mux/internal/logger"
	"github.com/sabouaram/socks5mux/internal/logger/level"
	"github.com/sabouaram/socks5mux/internal/socks5"
)

// fakeAddr satisfies net.Addr with an arbitrary host:port string, letting
// tests control what a fake connection reports as its local address
// without standing up a real listener.
type fakeAddr string

func (a fakeAddr) Network() string { return "tcp" }
func (a fakeAddr) String() string  { return string(a) }

// addrConn wraps a net.Conn (typically one half of a net.Pipe) and
// overrides LocalAddr, since net.Pipe's own addresses are unusable
// placeholders.
type addrConn struct {
	net.Conn
	local net.Addr
}

func (c addrConn) LocalAddr() net.Addr { return c.local }

type fakeToken struct {
	addr     netip.Addr
	released *bool
}

func (t fakeToken) Addr() netip.Addr { return t.addr }
func (t fakeToken) Release()         { *t.released = true }

type fakeBalancer struct {
	addr      netip.Addr
	ok        bool
	released  bool
	lastV4    bool
	lastV6    bool
}

func (b *fakeBalancer) Take(allowV4, allowV6 bool) (socks5.Token, bool) {
	b.lastV4, b.lastV6 = allowV4, allowV6
	if !b.ok {
		return nil, false
	}
	return fakeToken{addr: b.addr, released: &b.released}, true
}

type fakeResolver struct {
	hosts map[string][]net.IPAddr
}

func (r fakeResolver) LookupIPAddr(_ context.Context, host string) ([]net.IPAddr, error) {
	return r.hosts[host], nil
}

// fakeDialer hands back one pre-wired net.Pipe half per dial, labelled
// with a caller-supplied local address, and exposes the other half so the
// test can drive the "remote" side of the relay.
type fakeDialer struct {
	localAddr net.Addr
	serverEnd net.Conn
}

func (d *fakeDialer) DialFrom(_ context.Context, _ netip.Addr, _ netip.AddrPort) (net.Conn, error) {
	a, b := net.Pipe()
	d.serverEnd = b
	return addrConn{Conn: a, local: d.localAddr}, nil
}

func newTestLogger() *logger.Logger {
	return logger.New(level.FatalLevel)
}

func readN(r io.Reader, n int) []byte {
	buf := make([]byte, n)
	_, err := io.ReadFull(r, buf)
	Expect(err).NotTo(HaveOccurred())
	return buf
}

var _ = Describe("Session", func() {
	var (
		clientConn net.Conn
		serverConn net.Conn
	)

	BeforeEach(func() {
		clientConn, serverConn = net.Pipe()
	})

	It("relays an IPv4 CONNECT to a literal address", func() {
		bal := &fakeBalancer{addr: netip.MustParseAddr("10.0.0.5"), ok: true}
		dial := &fakeDialer{localAddr: fakeAddr("203.0.113.9:4000")}
		sess := socks5.New(serverConn, "test-peer", bal, fakeResolver{}, dial, newTestLogger())

		done := make(chan struct{})
		go func() {
			sess.Run(context.Background())
			close(done)
		}()

		_, err := clientConn.Write([]byte{0x05, 0x01, 0x00})
		Expect(err).NotTo(HaveOccurred())
		Expect(readN(clientConn, 2)).To(Equal([]byte{0x05, 0x00}))

		_, err = clientConn.Write([]byte{0x05, 0x01, 0x00, 0x01, 127, 0, 0, 1, 0x1f, 0x90})
		Expect(err).NotTo(HaveOccurred())

		reply := readN(clientConn, 10)
		Expect(reply[0]).To(Equal(byte(0x05)))
		Expect(reply[1]).To(Equal(byte(0x00)))
		Expect(reply[3]).To(Equal(byte(0x01)))

		go func() {
			buf := readN(dial.serverEnd, 4)
			_, _ = dial.serverEnd.Write(buf)
		}()

		_, err = clientConn.Write([]byte{0x01, 0x02, 0x03, 0x04})
		Expect(err).NotTo(HaveOccurred())
		Expect(readN(clientConn, 4)).To(Equal([]byte{0x01, 0x02, 0x03, 0x04}))

		// The relay ends only when both halves finish, so the fake target
		// has to close its end too.
		_ = clientConn.Close()
		_ = dial.serverEnd.Close()
		Eventually(done, time.Second).Should(BeClosed())
		Expect(bal.released).To(BeTrue())
	})

	It("relays an IPv4 CONNECT via a resolved domain name", func() {
		bal := &fakeBalancer{addr: netip.MustParseAddr("10.0.0.5"), ok: true}
		dial := &fakeDialer{localAddr: fakeAddr("203.0.113.9:4000")}
		resolver := fakeResolver{hosts: map[string][]net.IPAddr{
			"localhost": {{IP: net.ParseIP("127.0.0.1")}},
		}}
		sess := socks5.New(serverConn, "test-peer", bal, resolver, dial, newTestLogger())

		done := make(chan struct{})
		go func() {
			sess.Run(context.Background())
			close(done)
		}()

		_, _ = clientConn.Write([]byte{0x05, 0x01, 0x00})
		Expect(readN(clientConn, 2)).To(Equal([]byte{0x05, 0x00}))

		req := []byte{0x05, 0x01, 0x00, 0x03, 0x09}
		req = append(req, []byte("localhost")...)
		req = append(req, 0x1f, 0x90)
		_, _ = clientConn.Write(req)

		reply := readN(clientConn, 10)
		Expect(reply[0]).To(Equal(byte(0x05)))
		Expect(reply[1]).To(Equal(byte(0x00)))

		_ = clientConn.Close()
		_ = dial.serverEnd.Close()
		Eventually(done, time.Second).Should(BeClosed())
	})

	It("relays an IPv6 CONNECT with an IPv6 source bind", func() {
		bal := &fakeBalancer{addr: netip.MustParseAddr("::1"), ok: true}
		dial := &fakeDialer{localAddr: fakeAddr("[::1]:4000")}
		sess := socks5.New(serverConn, "test-peer", bal, fakeResolver{}, dial, newTestLogger())

		done := make(chan struct{})
		go func() {
			sess.Run(context.Background())
			close(done)
		}()

		_, _ = clientConn.Write([]byte{0x05, 0x01, 0x00})
		Expect(readN(clientConn, 2)).To(Equal([]byte{0x05, 0x00}))

		req := []byte{0x05, 0x01, 0x00, 0x04}
		v6 := netip.MustParseAddr("::1").As16()
		req = append(req, v6[:]...)
		req = append(req, 0x1f, 0x90)
		_, _ = clientConn.Write(req)

		reply := readN(clientConn, 22)
		Expect(reply[0]).To(Equal(byte(0x05)))
		Expect(reply[1]).To(Equal(byte(0x00)))
		Expect(reply[3]).To(Equal(byte(0x04)))

		_ = clientConn.Close()
		_ = dial.serverEnd.Close()
		Eventually(done, time.Second).Should(BeClosed())
	})

	It("rejects a greeting offering only method 0x02", func() {
		bal := &fakeBalancer{ok: false}
		sess := socks5.New(serverConn, "test-peer", bal, fakeResolver{}, &fakeDialer{}, newTestLogger())

		done := make(chan struct{})
		go func() {
			sess.Run(context.Background())
			close(done)
		}()

		_, _ = clientConn.Write([]byte{0x05, 0x01, 0x02})
		Expect(readN(clientConn, 2)).To(Equal([]byte{0x05, 0xff}))

		Eventually(done, time.Second).Should(BeClosed())
	})

	It("rejects CMD=3 (UDP ASSOCIATE) with CommandNotSupported", func() {
		bal := &fakeBalancer{ok: false}
		sess := socks5.New(serverConn, "test-peer", bal, fakeResolver{}, &fakeDialer{}, newTestLogger())

		done := make(chan struct{})
		go func() {
			sess.Run(context.Background())
			close(done)
		}()

		_, _ = clientConn.Write([]byte{0x05, 0x01, 0x00})
		Expect(readN(clientConn, 2)).To(Equal([]byte{0x05, 0x00}))

		_, _ = clientConn.Write([]byte{0x05, 0x03, 0x00, 0x01, 127, 0, 0, 1, 0x1f, 0x90})
		reply := readN(clientConn, 10)
		Expect(reply[1]).To(Equal(byte(0x07)))

		Eventually(done, time.Second).Should(BeClosed())
	})

	It("rejects an IPv4 target when the balancer has no IPv4 source", func() {
		bal := &fakeBalancer{ok: false}
		sess := socks5.New(serverConn, "test-peer", bal, fakeResolver{}, &fakeDialer{}, newTestLogger())

		done := make(chan struct{})
		go func() {
			sess.Run(context.Background())
			close(done)
		}()

		_, _ = clientConn.Write([]byte{0x05, 0x01, 0x00})
		Expect(readN(clientConn, 2)).To(Equal([]byte{0x05, 0x00}))

		_, _ = clientConn.Write([]byte{0x05, 0x01, 0x00, 0x01, 127, 0, 0, 1, 0x1f, 0x90})
		reply := readN(clientConn, 10)
		Expect(reply[1]).To(Equal(byte(0x08)))
		Expect(bal.lastV4).To(BeTrue())
		Expect(bal.lastV6).To(BeFalse())

		Eventually(done, time.Second).Should(BeClosed())
	})

	It("rejects an unsupported ATYP byte with GeneralServerFailure", func() {
		bal := &fakeBalancer{ok: false}
		sess := socks5.New(serverConn, "test-peer", bal, fakeResolver{}, &fakeDialer{}, newTestLogger())

		done := make(chan struct{})
		go func() {
			sess.Run(context.Background())
			close(done)
		}()

		_, _ = clientConn.Write([]byte{0x05, 0x01, 0x00})
		Expect(readN(clientConn, 2)).To(Equal([]byte{0x05, 0x00}))

		_, _ = clientConn.Write([]byte{0x05, 0x01, 0x00, 0x7f, 127, 0, 0, 1, 0x1f, 0x90})
		reply := readN(clientConn, 10)
		Expect(reply[1]).To(Equal(byte(0x01)))

		Eventually(done, time.Second).Should(BeClosed())
	})

	It("drops the connection without a reply when RSV is nonzero", func() {
		bal := &fakeBalancer{ok: false}
		sess := socks5.New(serverConn, "test-peer", bal, fakeResolver{}, &fakeDialer{}, newTestLogger())

		done := make(chan struct{})
		go func() {
			sess.Run(context.Background())
			close(done)
		}()

		_, _ = clientConn.Write([]byte{0x05, 0x01, 0x00})
		Expect(readN(clientConn, 2)).To(Equal([]byte{0x05, 0x00}))

		_, _ = clientConn.Write([]byte{0x05, 0x01, 0x01, 0x01, 127, 0, 0, 1, 0x1f, 0x90})

		buf := make([]byte, 1)
		_, err := clientConn.Read(buf)
		Expect(err).To(HaveOccurred())

		Eventually(done, time.Second).Should(BeClosed())
	})
})
