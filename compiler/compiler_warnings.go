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

package compiler

import (
	"fmt"

	"go.x11gen.dev/xprotogen/syntax"
)

type Warning struct {
	code    uint32
	message string
	span    syntax.Span
}

func (w *Warning) String() string {
	return fmt.Sprintf("W%d: %s", w.code, w.message)
}

func (w *Warning) Code() uint32 {
	return w.code
}

func (w *Warning) Message() string {
	return w.message
}

func (w *Warning) Span() syntax.Span {
	return w.span
}

func warnIgnoredElement(tag string, span syntax.Span) *Warning {
	return &Warning{
		code:    4000,
		message: fmt.Sprintf("Element <%s> is not supported and was ignored", tag),
		span:    span,
	}
}

func warnDuplicateEnumItem(enum, item string, span syntax.Span) *Warning {
	return &Warning{
		code:    4001,
		message: fmt.Sprintf("Duplicate item '%s' in enum %q", item, enum),
		span:    span,
	}
}

func warnUnusedImport(header string, span syntax.Span) *Warning {
	return &Warning{
		code:    4002,
		message: fmt.Sprintf("Import of module %q is unused", header),
		span:    span,
	}
}
