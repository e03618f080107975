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

package proxy_test

import (
	"net/netip"
	"testing"

	"github.com/sabouaram/socks5mux/internal/proxy"
)

func TestParseSource(t *testing.T) {
	tests := []struct {
		name      string
		spec      string
		wantAddr  string
		wantMetic uint32
		wantErr   bool
	}{
		{name: "bare ipv4", spec: "10.0.0.1", wantAddr: "10.0.0.1", wantMetic: 1},
		{name: "ipv4 with metric", spec: "10.0.0.1@3", wantAddr: "10.0.0.1", wantMetic: 3},
		{name: "bare ipv6", spec: "::1", wantAddr: "::1", wantMetic: 1},
		{name: "ipv6 with metric", spec: "::1@2", wantAddr: "::1", wantMetic: 2},
		{name: "invalid ip", spec: "not-an-ip", wantErr: true},
		{name: "metric zero", spec: "10.0.0.1@0", wantErr: true},
		{name: "metric not a number", spec: "10.0.0.1@x", wantErr: true},
		{name: "two at signs", spec: "10.0.0.1@1@2", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			src, err := proxy.ParseSource(tc.spec)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected an error, got source %+v", src)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if src.Addr != netip.MustParseAddr(tc.wantAddr) {
				t.Fatalf("addr = %v, want %v", src.Addr, tc.wantAddr)
			}
			if src.Metric != tc.wantMetic {
				t.Fatalf("metric = %d, want %d", src.Metric, tc.wantMetic)
			}
		})
	}
}

func TestParseSourcesRejectsEmptyList(t *testing.T) {
	if _, err := proxy.ParseSources(nil); err == nil {
		t.Fatalf("expected empty source list to be rejected")
	}
}

func TestParseSourcesAggregates(t *testing.T) {
	sources, err := proxy.ParseSources([]string{"10.0.0.1", "10.0.0.2@5"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("got %d sources, want 2", len(sources))
	}
	if sources[1].Metric != 5 {
		t.Fatalf("second source metric = %d, want 5", sources[1].Metric)
	}
}

func TestDefaultListenAddrs(t *testing.T) {
	addrs := proxy.DefaultListenAddrs()
	if len(addrs) != 2 {
		t.Fatalf("got %d default listen addrs, want 2", len(addrs))
	}
}
