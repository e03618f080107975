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

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sabouaram/socks5mux/internal/balancer"
	"github.com/sabouaram/socks5mux/internal/cliapp"
	"github.com/sabouaram/socks5mux/internal/logger"
	"github.com/sabouaram/socks5mux/internal/logger/level"
	"github.com/sabouaram/socks5mux/internal/proxy"
)

func main() {
	app := cliapp.New("socks5mux", "SOCKS5 proxy multiplexed across several source addresses",
		"socks5mux speaks unmodified SOCKS5 CONNECT and, for each accepted connection,\n"+
			"dials out from whichever configured source address currently carries the\n"+
			"least load, weighted by an operator-assigned metric per address.")

	if err := app.Run(run); err != nil {
		fmt.Fprintln(os.Stderr, "socks5mux:", err)
		os.Exit(1)
	}
}

func run(cfg cliapp.Config) error {
	log := logger.New(level.InfoLevel)

	sources, err := proxy.ParseSources(cfg.Sources)
	if err != nil {
		return err
	}

	listenAddrs := cfg.ListenAddrs
	if len(listenAddrs) == 0 {
		listenAddrs = proxy.DefaultListenAddrs()
	}

	bal := balancer.New(sources)
	if err := prometheus.Register(bal); err != nil {
		log.Warn().Msg("prometheus registration failed: %v", err)
	}
	srv := proxy.New(listenAddrs, bal, cfg.Threads, log)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return srv.Run(ctx)
}
