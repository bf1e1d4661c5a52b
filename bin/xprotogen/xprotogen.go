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

// xprotogen generates the C++ codec for one X11 protocol module.
//
//	xprotogen [--sysroot DIR] [--verbose] XML HEADER SOURCE
//	xprotogen check [--sysroot DIR] XML
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"go.x11gen.dev/xprotogen/codegen"
	"go.x11gen.dev/xprotogen/compiler"
)

type command interface {
	help() *commandHelp
	flags(flags *pflag.FlagSet)
	run(ctx context.Context, env *cmdEnv, argv []string) int
}

type commandHelp struct {
	usage   string
	summary string
}

// cmdEnv holds the settings shared by every command.
type cmdEnv struct {
	stderr  io.Writer
	sysroot string
	verbose bool
}

func main() {
	os.Exit(execute(context.Background(), os.Args[1:], os.Stderr))
}

func execute(ctx context.Context, args []string, stderr io.Writer) int {
	env := &cmdEnv{stderr: stderr}
	exitCode := 0
	runner := func(cmd command) func(*cobra.Command, []string) error {
		return func(_ *cobra.Command, argv []string) error {
			logger := env.logger()
			defer logger.Sync()
			compiler.SetLogger(logger)
			codegen.SetLogger(logger)
			exitCode = cmd.run(ctx, env, argv)
			return nil
		}
	}

	generateCmd := &cmdGenerate{}
	rootHelp := generateCmd.help()
	rootCmd := &cobra.Command{
		Use:   rootHelp.usage,
		Short: rootHelp.summary,
		Args:  cobra.ArbitraryArgs,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE:          runner(generateCmd),
	}
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stderr)
	rootCmd.SetErr(stderr)
	rootCmd.PersistentFlags().StringVar(&env.sysroot, "sysroot", "",
		"alternate root for imported modules (<sysroot>/usr/share/xcb)")
	rootCmd.PersistentFlags().BoolVarP(&env.verbose, "verbose", "v", false,
		"log resolver and generator progress to stderr")
	generateCmd.flags(rootCmd.Flags())

	commands := []command{
		&cmdCheck{},
	}
	for _, cmd := range commands {
		help := cmd.help()
		cobraCmd := &cobra.Command{
			Use:   help.usage,
			Short: help.summary,
			RunE:  runner(cmd),
		}
		cmd.flags(cobraCmd.Flags())
		rootCmd.AddCommand(cobraCmd)
	}

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return exitCode
}

func (env *cmdEnv) logger() *zap.Logger {
	if !env.verbose {
		return zap.NewNop()
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{"stderr"}
	logger, err := cfg.Build()
	if err != nil {
		fmt.Fprintln(env.stderr, err)
		return zap.NewNop()
	}
	return logger
}

func (env *cmdEnv) loadOptions() []compiler.LoadOption {
	var opts []compiler.LoadOption
	if env.sysroot != "" {
		opts = append(opts, compiler.WithSysroot(env.sysroot))
	}
	return opts
}
