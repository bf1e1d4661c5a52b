// Copyright (c) 2024 John Millikin <john@john-millikin.com>
//
// Permission to use, copy, modify, and/or distribute this software for any
// purpose with or without fee is hereby granted.
//
// THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH
// REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY
// AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT,
// INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM
// LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR
// OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR
// PERFORMANCE OF THIS SOFTWARE.
//
// SPDX-License-Identifier: 0BSD

package main

import (
	"context"
	"fmt"

	"github.com/spf13/pflag"
)

// cmdCheck resolves and generates a module without writing anything, to
// validate protocol descriptions.
type cmdCheck struct {
	werror bool
}

func (*cmdCheck) help() *commandHelp {
	return &commandHelp{
		usage:   "check XML...",
		summary: "Report diagnostics for protocol modules without writing output",
	}
}

func (cmd *cmdCheck) flags(flags *pflag.FlagSet) {
	flags.BoolVar(&cmd.werror, "werror", false, "treat warnings as errors")
}

func (cmd *cmdCheck) run(ctx context.Context, env *cmdEnv, argv []string) int {
	if len(argv) == 0 {
		fmt.Fprintf(env.stderr, "usage: xprotogen %s\n", cmd.help().usage)
		return 1
	}

	report := newReporter(env.stderr)
	for _, xmlPath := range argv {
		generate(env, report, xmlPath)
	}
	if report.errors > 0 || (cmd.werror && report.warnings > 0) {
		return 1
	}
	return 0
}
