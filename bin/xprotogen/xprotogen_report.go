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
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"go.x11gen.dev/xprotogen/codegen"
	"go.x11gen.dev/xprotogen/compiler"
	"go.x11gen.dev/xprotogen/syntax"
)

// spanned is implemented by *syntax.Error, *compiler.Error and
// *compiler.Warning.
type spanned interface {
	Code() uint32
	Message() string
	Span() syntax.Span
}

// reporter prints diagnostics as "path:line:col: severity: E1234: message",
// colored when w is a terminal.
type reporter struct {
	w         io.Writer
	styled    bool
	location  lipgloss.Style
	errStyle  lipgloss.Style
	warnStyle lipgloss.Style

	errors   int
	warnings int
}

func newReporter(w io.Writer) *reporter {
	r := &reporter{w: w}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		renderer := lipgloss.NewRenderer(f)
		r.styled = true
		r.location = renderer.NewStyle().Bold(true)
		r.errStyle = renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B"))
		r.warnStyle = renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("#F0C674"))
	}
	return r
}

func (r *reporter) render(style lipgloss.Style, s string) string {
	if !r.styled {
		return s
	}
	return style.Render(s)
}

func (r *reporter) print(location string, severity string, style lipgloss.Style, text string) {
	if location != "" {
		fmt.Fprintf(r.w, "%s ", r.render(r.location, location+":"))
	}
	fmt.Fprintf(r.w, "%s %s\n", r.render(style, severity+":"), text)
}

func (r *reporter) err(path string, src []byte, err error) {
	var loadErr *compiler.LoadError
	if errors.As(err, &loadErr) {
		for _, e := range loadErr.Errors {
			r.err(loadErr.Path, loadErr.Src, e)
		}
		return
	}

	r.errors += 1
	var diag spanned
	var genErr *codegen.Error
	switch {
	case src != nil && errors.As(err, &diag):
		r.print(spanLocation(path, src, diag), "error", r.errStyle,
			fmt.Sprintf("E%d: %s", diag.Code(), diag.Message()))
	case errors.As(err, &genErr):
		r.print(path, "error", r.errStyle, genErr.Error())
	default:
		r.print(path, "error", r.errStyle, err.Error())
	}
}

func (r *reporter) warn(w *compiler.FileWarning) {
	r.warnings += 1
	r.print(spanLocation(w.Path, w.Src, w), "warning", r.warnStyle, w.String())
}

func spanLocation(path string, src []byte, diag spanned) string {
	span := diag.Span()
	line, col := syntax.Position(src, span.Start())
	return fmt.Sprintf("%s:%d:%d", path, line, col)
}
