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

package codegen

import (
	"fmt"
	"strings"
)

// writer accumulates generated C++ one line at a time. Each indent level is
// two spaces; preprocessor lines and empty lines are never indented.
type writer struct {
	buf    strings.Builder
	indent int
}

func (w *writer) line(s string) {
	if s != "" && !strings.HasPrefix(s, "#") {
		for range w.indent {
			w.buf.WriteString("  ")
		}
	}
	w.buf.WriteString(s)
	w.buf.WriteString("\n")
}

func (w *writer) linef(format string, a ...any) {
	w.line(fmt.Sprintf(format, a...))
}

func (w *writer) blank() {
	w.line("")
}

// open writes s and indents the following lines until the matching close.
func (w *writer) open(s string) {
	w.line(s)
	w.indent += 1
}

func (w *writer) close(s string) {
	w.indent -= 1
	w.line(s)
}

// undef guards against Xlib macros that share a name with a declaration.
func (w *writer) undef(name string) {
	w.line("#ifdef " + name)
	w.line("#undef " + name)
	w.line("#endif")
}

func (w *writer) bytes() []byte {
	return []byte(w.buf.String())
}

type uidGen struct {
	prev int
}

func newUIDGen() *uidGen {
	return &uidGen{prev: -1}
}

func (g *uidGen) next() int {
	g.prev += 1
	return g.prev
}
