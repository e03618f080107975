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

// Package proxy wires the balancer and the socks5 session state machine to
// real listeners: the "out of core" glue the design calls C5.
package proxy

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"

	"github.com/sabouaram/socks5mux/internal/balancer"
)

// ParseSource parses one positional CLI source-address argument of the
// form "IP" or "IP@metric". metric defaults to 1 when omitted and must be
// >= 1 when given; exactly one "@" is permitted.
func ParseSource(spec string) (balancer.Source, error) {
	parts := strings.Split(spec, "@")
	switch len(parts) {
	case 1:
		addr, err := netip.ParseAddr(parts[0])
		if err != nil {
			return balancer.Source{}, fmt.Errorf("source %q: %w", spec, err)
		}
		return balancer.Source{Addr: addr, Metric: 1}, nil

	case 2:
		addr, err := netip.ParseAddr(parts[0])
		if err != nil {
			return balancer.Source{}, fmt.Errorf("source %q: %w", spec, err)
		}
		metric, err := strconv.ParseUint(parts[1], 10, 32)
		if err != nil || metric < 1 {
			return balancer.Source{}, fmt.Errorf("source %q: metric must be a decimal integer >= 1", spec)
		}
		return balancer.Source{Addr: addr, Metric: uint32(metric)}, nil

	default:
		return balancer.Source{}, fmt.Errorf("source %q: exactly one '@' is permitted", spec)
	}
}

// ParseSources parses the full positional argument list. An empty list is
// an error, per the CLI contract.
func ParseSources(specs []string) ([]balancer.Source, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("at least one source address is required")
	}

	sources := make([]balancer.Source, 0, len(specs))
	for _, s := range specs {
		src, err := ParseSource(s)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, nil
}

// DefaultListenAddrs is used when -l/--listen is never given.
func DefaultListenAddrs() []string {
	return []string{"127.0.0.1:1080", "[::1]:1080"}
}
