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

// Error reports a model the generator cannot emit code for. Path names the
// declaration and fields leading to the offending node.
type Error struct {
	code    uint32
	message string
	path    []string
}

var _ error = (*Error)(nil)

func (err *Error) Error() string {
	if len(err.path) == 0 {
		return fmt.Sprintf("E%d: %s", err.code, err.message)
	}
	return fmt.Sprintf("E%d: %s: %s", err.code, strings.Join(err.path, "."), err.message)
}

func (err *Error) Code() uint32 {
	return err.code
}

func (err *Error) Message() string {
	return err.message
}

func (err *Error) Path() []string {
	return err.path
}

func errUnknownExpr(ctx emitCtx, expr any) error {
	return &Error{
		code:    5000,
		message: fmt.Sprintf("Unsupported expression node %T", expr),
		path:    ctx.path,
	}
}

func errUnresolvedName(ctx emitCtx, name string) error {
	return &Error{
		code:    5001,
		message: fmt.Sprintf("Name %q is not bound in this scope", name),
		path:    ctx.path,
	}
}

func errSumOfNotList(ctx emitCtx, name string) error {
	return &Error{
		code:    5002,
		message: fmt.Sprintf("Sum target %q is not a list", name),
		path:    ctx.path,
	}
}

func errCaseKind(ctx emitCtx) error {
	return &Error{
		code:    5003,
		message: "Switch branch must be exactly one of case or bitcase",
		path:    ctx.path,
	}
}

func errEmptyCase(ctx emitCtx) error {
	return &Error{
		code:    5004,
		message: "Switch branch has no selector expressions",
		path:    ctx.path,
	}
}

func errListLength(ctx emitCtx, count int) error {
	message := "Dynamic list has no length expression"
	if count != 0 {
		message = fmt.Sprintf("Fixed list has invalid element count %d", count)
	}
	return &Error{
		code:    5005,
		message: message,
		path:    ctx.path,
	}
}

func errPadAlign(ctx emitCtx, bytes, align int) error {
	return &Error{
		code: 5006,
		message: fmt.Sprintf(
			"Alignment pad must be 1 byte aligned to 2 or 4, got %d bytes aligned to %d",
			bytes, align,
		),
		path: ctx.path,
	}
}

func errSpecialField(ctx emitCtx, name, reason string) error {
	return &Error{
		code:    5007,
		message: fmt.Sprintf("Header field %q %s", name, reason),
		path:    ctx.path,
	}
}

func errFieldType(ctx emitCtx, t any) error {
	return &Error{
		code:    5008,
		message: fmt.Sprintf("Unsupported field type %T", t),
		path:    ctx.path,
	}
}

func errDeclType(ctx emitCtx, t any) error {
	return &Error{
		code:    5009,
		message: fmt.Sprintf("Unsupported declaration type %T", t),
		path:    ctx.path,
	}
}
