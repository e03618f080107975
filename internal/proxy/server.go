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

package proxy

import (
	"context"
	"net"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/sabouaram/socks5mux/internal/balancer"
	"github.com/sabouaram/socks5mux/internal/logger"
	"github.com/sabouaram/socks5mux/internal/socks5"
)

// balancerAdapter narrows *balancer.Balancer to the socks5.Balancer
// interface. It exists because socks5.Balancer.Take returns the
// package-local socks5.Token interface, while *balancer.Balancer.Take
// returns the concrete *balancer.Token - Go requires this kind of
// boundary adapter rather than letting the concrete method satisfy the
// interface directly, since *balancer.Token happens to implement
// socks5.Token but the method signatures aren't identical.
type balancerAdapter struct {
	b *balancer.Balancer
}

func (a balancerAdapter) Take(allowV4, allowV6 bool) (socks5.Token, bool) {
	tok, ok := a.b.Take(allowV4, allowV6)
	if !ok {
		return nil, false
	}
	return tok, true
}

// Server listens on one or more addresses and fans accepted connections
// out across a worker pool, handing each to a fresh socks5.Session.
type Server struct {
	listenAddrs []string
	balancer    socks5.Balancer
	threads     int
	log         *logger.Logger
	dialTimeout func() socks5.Dialer
}

// New builds a Server. threads < 1 is treated as 1. Every accepted
// connection runs on its own goroutine under Go's scheduler; threads only
// sizes the per-listener cap on concurrently running sessions: threads > 1
// allows threads*GOMAXPROCS sessions at once, threads == 1 allows 4096.
// The number of OS threads is not changed.
func New(listenAddrs []string, b *balancer.Balancer, threads int, log *logger.Logger) *Server {
	if threads < 1 {
		threads = 1
	}
	return &Server{
		listenAddrs: listenAddrs,
		balancer:    balancerAdapter{b: b},
		threads:     threads,
		log:         log,
		dialTimeout: func() socks5.Dialer { return socks5.TCPDialer{} },
	}
}

// Run binds every configured listen address and serves until ctx is
// cancelled or any listener fails to bind, in which case the others are
// torn down and the first error is returned. It is built on
// golang.org/x/sync/errgroup, the same worker-fan-out primitive used
// elsewhere in this codebase's ecosystem, rather than hand-rolled
// sync.WaitGroup bookkeeping.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	group, gctx := errgroup.WithContext(ctx)

	for _, addr := range s.listenAddrs {
		addr := addr
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return err
		}

		s.log.Info().Field("addr", addr).Msg("listening")

		group.Go(func() error {
			return s.serve(gctx, ln)
		})
	}

	return group.Wait()
}

func (s *Server) serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	sem := make(chan struct{}, s.effectiveConcurrency())

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		sem <- struct{}{}
		go func() {
			defer func() { <-sem }()
			s.handle(ctx, conn)
		}()
	}
}

func (s *Server) effectiveConcurrency() int {
	if s.threads > 1 {
		return s.threads * runtime.GOMAXPROCS(0)
	}
	return 4096
}

func (s *Server) handle(ctx context.Context, conn net.Conn) {
	sess := socks5.New(conn, conn.RemoteAddr().String(), s.balancer, &net.Resolver{}, s.dialTimeout(), s.log)
	sess.Run(ctx)
}
