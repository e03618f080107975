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

package cliapp_test

import (
	"testing"

	"github.com/sabouaram/socks5mux/internal/cliapp"
)

func TestRunParsesSourcesAndFlags(t *testing.T) {
	a := cliapp.New("socks5mux", "short", "long")
	a.Cobra().SetArgs([]string{"10.0.0.1", "10.0.0.2@3", "-l", "127.0.0.1:1080", "-l", "[::1]:1080", "--threads", "4"})

	var got cliapp.Config
	err := a.Run(func(cfg cliapp.Config) error {
		got = cfg
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got.Sources) != 2 || got.Sources[0] != "10.0.0.1" || got.Sources[1] != "10.0.0.2@3" {
		t.Fatalf("sources = %v", got.Sources)
	}
	if len(got.ListenAddrs) != 2 {
		t.Fatalf("listen addrs = %v", got.ListenAddrs)
	}
	if got.Threads != 4 {
		t.Fatalf("threads = %d, want 4", got.Threads)
	}
}

func TestRunDefaultsThreadsToOne(t *testing.T) {
	a := cliapp.New("socks5mux", "short", "long")
	a.Cobra().SetArgs([]string{"10.0.0.1"})

	var got cliapp.Config
	err := a.Run(func(cfg cliapp.Config) error {
		got = cfg
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Threads != 1 {
		t.Fatalf("threads = %d, want 1", got.Threads)
	}
}
