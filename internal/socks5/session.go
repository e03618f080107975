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

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"net"
	"net/netip"
	"sync"
	"syscall"

	"github.com/sabouaram/socks5mux/internal/logger"
)

// Token is the handle a Session must release exactly once when it ends,
// regardless of which path it ends on.
type Token interface {
	Addr() netip.Addr
	Release()
}

// Balancer is the subset of the balancer this package depends on. Defined
// here, at the point of use, so this package can be tested against a fake
// without importing the real balancer at all.
type Balancer interface {
	Take(allowV4, allowV6 bool) (Token, bool)
}

// Resolver resolves a domain name to the set of IPs a DOMAIN-type request
// may dial. Defined as an interface so tests can avoid real DNS.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// Dialer opens an outbound TCP connection bound to a specific local
// source address. Defined as an interface so tests can substitute
// net.Pipe-backed fakes instead of real sockets.
type Dialer interface {
	DialFrom(ctx context.Context, source netip.Addr, target netip.AddrPort) (net.Conn, error)
}

// Session carries all per-connection state. It is owned by a single
// goroutine for its entire life and is never shared.
type Session struct {
	client net.Conn
	reader *bufio.Reader
	peer   string

	balancer Balancer
	resolver Resolver
	dialer   Dialer
	log      *logger.Logger

	token  Token
	target net.Conn
}

// New builds a Session over an already-accepted client connection. peer is
// a label for log lines (typically client.RemoteAddr().String()).
func New(client net.Conn, peer string, b Balancer, r Resolver, d Dialer, log *logger.Logger) *Session {
	return &Session{
		client:   client,
		reader:   bufio.NewReader(client),
		peer:     peer,
		balancer: b,
		resolver: r,
		dialer:   d,
		log:      log,
	}
}

// Run drives the session to completion: greeting, request, source
// acquisition, dial, reply, relay. It never panics and never returns an
// error to its caller - every failure is logged and ends the connection,
// matching the "errors never escape to the listener task" contract.
func (s *Session) Run(ctx context.Context) {
	defer s.client.Close()
	defer func() {
		if s.token != nil {
			s.token.Release()
		}
		if s.target != nil {
			s.target.Close()
		}
	}()

	if err := s.greeting(); err != nil {
		s.logFailure(err)
		return
	}

	req, err := s.request()
	if err != nil {
		s.replyAndClose(err)
		return
	}

	if err := s.acquireAndDial(ctx, req); err != nil {
		s.replyAndClose(err)
		return
	}

	s.relay()
}

func (s *Session) logEntry() *logger.Entry {
	e := s.log.Warn().Field("client", s.peer)
	if s.token != nil {
		e = e.Field("source", s.token.Addr().String())
	}
	return e
}

func (s *Session) logFailure(err error) {
	var se *sessionError
	if errors.As(err, &se) {
		s.logEntry().Msg("%v", se)
		return
	}
	s.logEntry().Msg("%v", err)
}

// greeting implements the version/method negotiation. On success the
// server has already written its method-selection reply.
func (s *Session) greeting() error {
	hdr := make([]byte, 2)
	if _, err := io.ReadFull(s.reader, hdr); err != nil {
		return newUnreplyableError(err)
	}
	if hdr[0] != version {
		return newUnreplyableError(errors.New("unsupported protocol version"))
	}

	nmethods := int(hdr[1])
	if nmethods == 0 {
		return newUnreplyableError(errors.New("zero methods offered"))
	}

	methods := make([]byte, nmethods)
	if _, err := io.ReadFull(s.reader, methods); err != nil {
		return newUnreplyableError(err)
	}

	for _, m := range methods {
		if m == methodNoAuth {
			_, err := s.client.Write([]byte{version, methodNoAuth})
			return err
		}
	}

	_, _ = s.client.Write([]byte{version, methodNoAcceptable})
	if tc, ok := s.client.(interface{ CloseWrite() error }); ok {
		_ = tc.CloseWrite()
	}
	return newUnreplyableError(errors.New("no acceptable authentication method"))
}

// connectRequest is the parsed CONNECT request: zero or more resolved
// target IPs (DOMAIN may resolve to several, of mixed family) and a port.
type connectRequest struct {
	ips  []netip.Addr
	port uint16
}

func (s *Session) request() (*connectRequest, error) {
	hdr := make([]byte, 4)
	if _, err := io.ReadFull(s.reader, hdr); err != nil {
		return nil, newUnreplyableError(err)
	}
	if hdr[0] != version {
		return nil, newUnreplyableError(errors.New("unsupported protocol version in request"))
	}
	if hdr[1] != cmdConnect {
		return nil, newError(ReplyCommandNotSupported, errors.New("only CONNECT is supported"))
	}
	if hdr[2] != 0x00 {
		return nil, newUnreplyableError(errors.New("reserved byte nonzero"))
	}

	var ips []netip.Addr
	switch hdr[3] {
	case atypIPv4:
		buf := make([]byte, 4)
		if _, err := io.ReadFull(s.reader, buf); err != nil {
			return nil, newUnreplyableError(err)
		}
		addr, _ := netip.AddrFromSlice(buf)
		ips = []netip.Addr{addr}

	case atypIPv6:
		buf := make([]byte, 16)
		if _, err := io.ReadFull(s.reader, buf); err != nil {
			return nil, newUnreplyableError(err)
		}
		addr, _ := netip.AddrFromSlice(buf)
		ips = []netip.Addr{addr}

	case atypDomain:
		lenBuf := make([]byte, 1)
		if _, err := io.ReadFull(s.reader, lenBuf); err != nil {
			return nil, newUnreplyableError(err)
		}
		nameBuf := make([]byte, lenBuf[0])
		if _, err := io.ReadFull(s.reader, nameBuf); err != nil {
			return nil, newUnreplyableError(err)
		}
		host := string(nameBuf)

		resolved, err := s.resolver.LookupIPAddr(context.Background(), host)
		if err != nil {
			return nil, newError(ReplyGeneralServerFailure, err)
		}
		for _, r := range resolved {
			if a, ok := netip.AddrFromSlice(r.IP); ok {
				ips = append(ips, a.Unmap())
			}
		}
		if len(ips) == 0 {
			return nil, newError(ReplyGeneralServerFailure, errors.New("domain resolved to no usable addresses"))
		}

	default:
		return nil, newError(ReplyGeneralServerFailure, errors.New("unsupported address type"))
	}

	portBuf := make([]byte, 2)
	if _, err := io.ReadFull(s.reader, portBuf); err != nil {
		return nil, newUnreplyableError(err)
	}

	return &connectRequest{ips: ips, port: binary.BigEndian.Uint16(portBuf)}, nil
}

func (s *Session) acquireAndDial(ctx context.Context, req *connectRequest) error {
	var allowV4, allowV6 bool
	for _, ip := range req.ips {
		if ip.Is4() || ip.Is4In6() {
			allowV4 = true
		} else {
			allowV6 = true
		}
	}

	tok, ok := s.balancer.Take(allowV4, allowV6)
	if !ok {
		return newError(ReplyAddressTypeNotSupported, errors.New("no source address available for requested family"))
	}
	s.token = tok

	source := tok.Addr()
	wantV6 := !source.Is4() && !source.Is4In6()

	var target netip.Addr
	var found bool
	for _, ip := range req.ips {
		ipIsV6 := !ip.Is4() && !ip.Is4In6()
		if ipIsV6 == wantV6 {
			target = ip
			found = true
			break
		}
	}
	if !found {
		return newError(ReplyGeneralServerFailure, errors.New("no target address matches chosen source family"))
	}

	conn, err := s.dialer.DialFrom(ctx, source, netip.AddrPortFrom(target, req.port))
	if err != nil {
		return newError(mapDialError(err), err)
	}
	s.target = conn

	return s.replySuccess()
}

// mapDialError maps an outbound dial failure to the reply code table in
// the protocol design: connection refused, timeout, anything else.
func mapDialError(err error) ReplyCode {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return ReplyConnectionRefused
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return ReplyTTLExpired
	}
	return ReplyGeneralServerFailure
}

func (s *Session) replySuccess() error {
	addr, port := localAddrPort(s.target)
	if err := s.sendReply(ReplySucceeded, addr, port); err != nil {
		return err
	}
	s.log.Info().Field("client", s.peer).Field("source", s.token.Addr().String()).Msg("connected")
	return nil
}

// localAddrPort extracts the bound local address and port from conn's
// LocalAddr, without assuming a concrete *net.TCPAddr so that tests can
// exercise the session over net.Pipe or other non-TCP net.Conn
// implementations. Falls back to 0.0.0.0:0 when the address can't be
// parsed, which folds into a successful reply carrying a useless but
// harmless bind address rather than failing the whole session.
func localAddrPort(conn net.Conn) (netip.Addr, uint16) {
	if tcpAddr, ok := conn.LocalAddr().(*net.TCPAddr); ok {
		a, ok := netip.AddrFromSlice(tcpAddr.IP)
		if !ok {
			return netip.IPv4Unspecified(), 0
		}
		return a.Unmap(), uint16(tcpAddr.Port)
	}

	if ap, err := netip.ParseAddrPort(conn.LocalAddr().String()); err == nil {
		return ap.Addr().Unmap(), ap.Port()
	}

	return netip.IPv4Unspecified(), 0
}

// replyAndClose sends the single reply owed for a failed request (when
// one is still possible), then shuts down the write side per the
// "after a failure reply, shut down the write side and end the session"
// rule.
func (s *Session) replyAndClose(err error) {
	var se *sessionError
	if !errors.As(err, &se) {
		se = newUnreplyableError(err)
	}

	if se.replyable() {
		_ = s.sendReply(se.code, netip.IPv4Unspecified(), 0)
	}
	if tc, ok := s.client.(interface{ CloseWrite() error }); ok {
		_ = tc.CloseWrite()
	}
	s.logFailure(se)
}

func (s *Session) sendReply(code ReplyCode, addr netip.Addr, port uint16) error {
	var atyp byte
	var octets []byte
	if addr.Is4() {
		atyp = atypIPv4
		a4 := addr.As4()
		octets = a4[:]
	} else {
		atyp = atypIPv6
		a16 := addr.As16()
		octets = a16[:]
	}

	buf := make([]byte, 0, 4+len(octets)+2)
	buf = append(buf, version, byte(code), 0x00, atyp)
	buf = append(buf, octets...)
	buf = binary.BigEndian.AppendUint16(buf, port)

	_, err := s.client.Write(buf)
	return err
}

// relay joins client and target with two concurrent one-way copies. The
// session ends when both halves finish; the token and target connection
// are released by Run's deferred cleanup.
func (s *Session) relay() {
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		s.logRelayErr(copyHalf(s.target, s.client))
	}()
	go func() {
		defer wg.Done()
		s.logRelayErr(copyHalf(s.client, s.target))
	}()

	wg.Wait()
}

// logRelayErr logs a relay-half failure as a warning, matching the
// "transport failure during relay: silent close after logging a warning"
// contract. A nil error (clean EOF/CloseWrite) is not logged.
func (s *Session) logRelayErr(err error) {
	if err == nil {
		return
	}
	s.logEntry().Msg("relay: %v", err)
}

func copyHalf(dst, src net.Conn) error {
	buf := make([]byte, 32*1024)
	_, err := io.CopyBuffer(dst, src, buf)
	if tc, ok := dst.(interface{ CloseWrite() error }); ok {
		_ = tc.CloseWrite()
	}
	return err
}
