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
	"strings"

	"go.x11gen.dev/xprotogen/syntax"
)

type Error struct {
	code    uint32
	message string
	span    syntax.Span
}

var _ error = (*Error)(nil)

func (err *Error) Error() string {
	return fmt.Sprintf("E%d: %s", err.code, err.message)
}

func (err *Error) Code() uint32 {
	return err.code
}

func (err *Error) Message() string {
	return err.message
}

func (err *Error) Span() syntax.Span {
	return err.span
}

func errUnknownType(name string, span syntax.Span) *Error {
	return &Error{
		code:    3000,
		message: fmt.Sprintf("Unknown type %q", name),
		span:    span,
	}
}

func errDeclNameConflict(name string, span syntax.Span) *Error {
	return &Error{
		code:    3001,
		message: fmt.Sprintf("Duplicate declaration of %q", name),
		span:    span,
	}
}

func errImportNotFound(header string, searchPath []string, span syntax.Span) *Error {
	message := fmt.Sprintf("Imported module %q not found", header)
	if len(searchPath) > 0 {
		message += fmt.Sprintf(" (searched %s)", strings.Join(searchPath, ", "))
	}
	return &Error{
		code:    3002,
		message: message,
		span:    span,
	}
}

func errImportCycle(chain []string, span syntax.Span) *Error {
	return &Error{
		code: 3003,
		message: fmt.Sprintf(
			"Import cycle: %s",
			strings.Join(chain, " -> "),
		),
		span: span,
	}
}

func errInvalidInteger(text string, span syntax.Span) *Error {
	return &Error{
		code:    3004,
		message: fmt.Sprintf("Invalid integer %q", text),
		span:    span,
	}
}

func errMissingAttr(tag, attr string, span syntax.Span) *Error {
	return &Error{
		code:    3005,
		message: fmt.Sprintf("Element <%s> is missing attribute %q", tag, attr),
		span:    span,
	}
}

func errEnumRefNotEnum(name string, span syntax.Span) *Error {
	return &Error{
		code:    3006,
		message: fmt.Sprintf("Enum reference target %q is not an enum", name),
		span:    span,
	}
}

func errUnknownExpr(tag string, span syntax.Span) *Error {
	return &Error{
		code:    3007,
		message: fmt.Sprintf("Unknown expression element <%s>", tag),
		span:    span,
	}
}

func errUnknownField(tag, container string, span syntax.Span) *Error {
	return &Error{
		code: 3008,
		message: fmt.Sprintf(
			"Unknown field element <%s> in %q",
			tag, container,
		),
		span: span,
	}
}

func errReplyOutsideRequest(container string, span syntax.Span) *Error {
	return &Error{
		code:    3009,
		message: fmt.Sprintf("Element <reply> in %q is not inside a request", container),
		span:    span,
	}
}

func errMissingExpr(node *syntax.Element) *Error {
	return &Error{
		code:    3007,
		message: fmt.Sprintf("Element <%s> requires an expression", node.Tag),
		span:    node.Span(),
	}
}
