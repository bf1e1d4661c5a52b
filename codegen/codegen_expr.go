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
	"slices"
	"strconv"

	"go.x11gen.dev/xprotogen/schema"
)

// emitCtx carries the state of one emission call. It is passed by value;
// isRead, ns and path never outlive the call that set them.
type emitCtx struct {
	w      *writer
	scope  *Scope
	uids   *uidGen
	ns     []string
	isRead bool
	path   []string
}

func (ctx emitCtx) at(name string) emitCtx {
	ctx.path = append(slices.Clip(ctx.path), name)
	return ctx
}

const listElemRef = "listelem_ref"

func compileExpr(ctx emitCtx, expr schema.Expr) (string, error) {
	switch expr := expr.(type) {
	case *schema.BinaryOp:
		lhs, err := compileExpr(ctx, expr.LHS)
		if err != nil {
			return "", err
		}
		rhs, err := compileExpr(ctx, expr.RHS)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s) %s (%s)", lhs, expr.Op, rhs), nil
	case *schema.Complement:
		operand, err := compileExpr(ctx, expr.Operand)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("~(%s)", operand), nil
	case *schema.PopCount:
		operand, err := compileExpr(ctx, expr.Operand)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("PopCount(%s)", operand), nil
	case *schema.FieldLen:
		if ctx.scope.Resolve(expr.Name) == nil {
			return "", errUnresolvedName(ctx, expr.Name)
		}
		return SafeName(expr.Name) + "_len", nil
	case *schema.SumOf:
		return compileSumOf(ctx, expr)
	case *schema.EnumRef:
		return Qualify(expr.Enum, ctx.ns) + "::" + SafeName(expr.Item), nil
	case *schema.ListElementRef:
		return listElemRef, nil
	case *schema.Value:
		return strconv.FormatUint(expr.Value, 10), nil
	case *schema.FieldRef:
		return expr.Name, nil
	}
	return "", errUnknownExpr(ctx, expr)
}

// compileSumOf writes a SumOf() accumulation over a list field and returns
// the name of the local holding the result. The element's members are in
// scope only while the per-element expression is compiled.
func compileSumOf(ctx emitCtx, expr *schema.SumOf) (string, error) {
	field := ctx.scope.Resolve(expr.List)
	if field == nil {
		return "", errUnresolvedName(ctx, expr.List)
	}
	list, ok := field.Type.(*schema.List)
	if !ok {
		return "", errSumOfNotList(ctx, expr.List)
	}
	var fields []*schema.Field
	if container, ok := list.Member.(schema.Container); ok {
		fields = container.ContainerFields()
	}

	id := ctx.uids.next()
	qualifier := "const "
	if ctx.isRead {
		qualifier = ""
	}
	ctx.w.open(fmt.Sprintf("auto sum%d_ = SumOf([](%sauto& %s) {", id, qualifier, listElemRef))
	release := bindFields(ctx, listElemRef, fields)
	defer release()

	body := listElemRef
	if expr.Elem != nil {
		var err error
		if body, err = compileExpr(ctx, expr.Elem); err != nil {
			return "", err
		}
	}
	ctx.w.linef("return %s;", body)
	ctx.w.close(fmt.Sprintf("}, %s);", expr.List))
	return fmt.Sprintf("sum%d_", id), nil
}
