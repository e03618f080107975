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

// Package cliapp is a trimmed descendant of nabbar-golib/cobra: an
// instance-based wrapper around spf13/cobra with no global state. The
// teacher's bubbletea interactive wizard, viper-backed config file
// generation, and shell-completion generation are dropped - this CLI's
// surface is the fixed set of flags the wire contract names, not an
// open-ended configuration surface a wizard or config file would serve.
package cliapp

import (
	"github.com/spf13/cobra"
)

// Config is the parsed command line: the positional source-address specs
// plus the two flags, populated by Execute's RunE before it calls Handler.
type Config struct {
	Sources     []string
	ListenAddrs []string
	Threads     int
}

// Handler is invoked once flag parsing succeeds.
type Handler func(cfg Config) error

// App wraps a root *cobra.Command, matching the teacher's "one struct
// owns the command and every setter configures it" instance shape.
type App struct {
	cmd *cobra.Command
	cfg Config
}

// New builds the root command for use, short, and long description text.
func New(use, short, long string) *App {
	a := &App{}
	a.cmd = &cobra.Command{
		Use:           use,
		Short:         short,
		Long:          long,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
	}
	a.cmd.Flags().StringArrayVarP(&a.cfg.ListenAddrs, "listen", "l", nil,
		"listen address (repeatable); defaults to 127.0.0.1:1080 and [::1]:1080")
	a.cmd.Flags().IntVar(&a.cfg.Threads, "threads", 1,
		"concurrency factor: values > 1 cap concurrent sessions per listener at threads*GOMAXPROCS, 1 caps them at 4096; the OS thread count is not changed")
	return a
}

// Cobra exposes the underlying command, for tests or callers that need
// direct access (e.g. to set args before Execute).
func (a *App) Cobra() *cobra.Command {
	return a.cmd
}

// Run wires handler as the command's RunE, capturing positional args into
// Config.Sources, then executes.
func (a *App) Run(handler Handler) error {
	a.cmd.RunE = func(cmd *cobra.Command, args []string) error {
		a.cfg.Sources = args
		return handler(a.cfg)
	}
	return a.cmd.Execute()
}
