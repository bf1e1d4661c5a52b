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
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"go.x11gen.dev/xprotogen/codegen"
	"go.x11gen.dev/xprotogen/compiler"
)

// cmdGenerate is the root command.
type cmdGenerate struct {
	guardPath string
}

func (*cmdGenerate) help() *commandHelp {
	return &commandHelp{
		usage:   "xprotogen [options] XML HEADER SOURCE",
		summary: "Generate the C++ header and source for an X11 protocol module",
	}
}

func (cmd *cmdGenerate) flags(flags *pflag.FlagSet) {
	flags.StringVar(&cmd.guardPath, "header-path", "",
		"header path used for the include guard (default: HEADER)")
}

func (cmd *cmdGenerate) run(ctx context.Context, env *cmdEnv, argv []string) int {
	if len(argv) != 3 {
		fmt.Fprintf(env.stderr, "usage: %s\n", cmd.help().usage)
		return 1
	}
	xmlPath, headerPath, sourcePath := argv[0], argv[1], argv[2]

	guardPath := cmd.guardPath
	if guardPath == "" {
		guardPath = strings.TrimLeft(filepath.ToSlash(filepath.Clean(headerPath)), "/")
	}
	report := newReporter(env.stderr)
	result, ok := generate(env, report, xmlPath, codegen.WithHeaderPath(guardPath))
	if !ok {
		return 1
	}

	err := writeFiles([]outputFile{
		{path: headerPath, data: result.Header},
		{path: sourcePath, data: result.Source},
	})
	if err != nil {
		report.err("", nil, err)
		return 1
	}
	compiler.Logger().Debug(
		"wrote artifacts",
		zap.String("header", headerPath),
		zap.String("source", sourcePath),
	)
	return 0
}

// generate loads the module at xmlPath with its imports and generates both
// artifacts in memory. ok is false if any error was reported.
func generate(env *cmdEnv, report *reporter, xmlPath string, opts ...codegen.Option) (result *codegen.Result, ok bool) {
	loaded, err := compiler.Load(xmlPath, env.loadOptions()...)
	if err != nil {
		report.err(xmlPath, nil, err)
		return nil, false
	}
	for _, warn := range loaded.Warnings {
		report.warn(warn)
	}

	result, err = codegen.Generate(loaded.Module, opts...)
	if err != nil {
		report.err(xmlPath, nil, err)
		return nil, false
	}
	return result, true
}
