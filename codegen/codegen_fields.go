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

	"go.x11gen.dev/xprotogen/schema"
)

func declareField(ctx emitCtx, field *schema.Field) error {
	if !field.Wire || !field.Visible {
		return nil
	}
	ctx = ctx.at(field.Name)
	name := SafeName(field.Name)

	switch t := field.Type.(type) {
	case *schema.Switch:
		return declareSwitch(ctx, name, t)
	case *schema.List:
		return declareList(ctx, name, t)
	case *schema.Case:
		return errFieldType(ctx, t)
	}
	ctx.w.linef("%s %s{};", Qualify(field.Type, ctx.ns), name)
	return nil
}

func declareSwitch(ctx emitCtx, name string, sw *schema.Switch) error {
	ctx.w.open("struct {")
	for _, branch := range sw.Cases {
		if err := declareCase(ctx, branch); err != nil {
			return err
		}
	}
	ctx.w.close(fmt.Sprintf("} %s;", name))
	return nil
}

// declareCase writes a named branch as a nested struct and an unnamed
// branch as its fields directly.
func declareCase(ctx emitCtx, field *schema.Field) error {
	ctx = ctx.at(field.Name)
	branch, err := caseType(ctx, field)
	if err != nil {
		return err
	}
	if field.Name != "" {
		ctx.w.open("struct {")
	}
	for _, caseField := range branch.Fields {
		if err := declareField(ctx, caseField); err != nil {
			return err
		}
	}
	if field.Name != "" {
		ctx.w.close(fmt.Sprintf("} %s;", SafeName(field.Name)))
	}
	return nil
}

func caseType(ctx emitCtx, field *schema.Field) (*schema.Case, error) {
	branch, ok := field.Type.(*schema.Case)
	if !ok {
		return nil, errFieldType(ctx, field.Type)
	}
	if branch.IsCase == branch.IsBitcase {
		return nil, errCaseKind(ctx)
	}
	return branch, nil
}

func checkList(ctx emitCtx, list *schema.List) error {
	if list.Count == 1 || list.Count < 0 {
		return errListLength(ctx, list.Count)
	}
	if list.Count == 0 && list.Length == nil {
		return errListLength(ctx, 0)
	}
	return nil
}

func declareList(ctx emitCtx, name string, list *schema.List) error {
	if err := checkList(ctx, list); err != nil {
		return err
	}
	typeName := Qualify(list, ctx.ns)
	switch {
	case list.Count > 0:
		typeName = fmt.Sprintf("std::array<%s, %d>", typeName, list.Count)
	case typeName == "void":
		typeName = "std::vector<uint8_t>"
	case typeName == "char":
		typeName = "std::string"
	default:
		typeName = fmt.Sprintf("std::vector<%s>", typeName)
	}
	ctx.w.linef("%s %s{};", typeName, name)
	return nil
}

func copyPrimitive(ctx emitCtx, name string) {
	op := "Write"
	if ctx.isRead {
		op = "Read"
	}
	ctx.w.linef("%s(&%s, &buf);", op, name)
}

// copyField writes the statements that encode or decode one field of
// parent, after a comment naming it.
func copyField(ctx emitCtx, parent schema.Type, field *schema.Field) error {
	ctx = ctx.at(field.Name)
	name := SafeName(field.Name)
	ctx.w.line("// " + name)

	if pad, ok := field.Type.(*schema.Pad); ok {
		if pad.Align > 1 {
			if pad.Bytes != 1 || (pad.Align != 2 && pad.Align != 4) {
				return errPadAlign(ctx, pad.Bytes, pad.Align)
			}
			ctx.w.linef("Align(&buf, %d);", pad.Align)
		} else {
			ctx.w.linef("Pad(&buf, %d);", pad.Bytes)
		}
		return nil
	}
	if !field.Visible {
		return copySpecialField(ctx, parent, field)
	}

	switch t := field.Type.(type) {
	case *schema.Switch:
		return copySwitch(ctx, name, t)
	case *schema.List:
		return copyList(ctx, name, t)
	case *schema.Union, *schema.Simple:
		copyPrimitive(ctx, name)
		return nil
	case schema.Container:
		ctx.w.open("{")
		if err := copyContainer(ctx, t, name); err != nil {
			return err
		}
		ctx.w.close("}")
		return nil
	}
	return errFieldType(ctx, field.Type)
}

// copySpecialField handles the invisible header fields. Opcodes are only
// written; the reply header is only read.
func copySpecialField(ctx emitCtx, parent schema.Type, field *schema.Field) error {
	typeName := Qualify(field.Type, ctx.ns)
	name := SafeName(field.Name)

	switch name {
	case "major_opcode", "minor_opcode":
		if ctx.isRead {
			return errSpecialField(ctx, name, "cannot be decoded")
		}
		req, ok := parent.(*schema.Request)
		if !ok {
			return errSpecialField(ctx, name, "is only valid in a request")
		}
		if name == "major_opcode" && req.HasMinorOpcode() {
			ctx.w.line("// Caller fills in extension major opcode.")
			ctx.w.linef("Pad(&buf, sizeof(%s));", typeName)
			return nil
		}
		ctx.w.linef("%s %s = %d;", typeName, name, req.Opcode)
		copyPrimitive(ctx, name)
	case "response_type", "sequence", "extension":
		if !ctx.isRead {
			return errSpecialField(ctx, name, "cannot be encoded")
		}
		ctx.w.linef("%s %s;", typeName, name)
		copyPrimitive(ctx, name)
	case "length":
		if !ctx.isRead {
			ctx.w.line("// Caller fills in length for writes.")
			ctx.w.linef("Pad(&buf, sizeof(%s));", typeName)
			return nil
		}
		ctx.w.linef("%s %s;", typeName, name)
		copyPrimitive(ctx, name)
	default:
		exprField, ok := field.Type.(*schema.ExprField)
		if !ok {
			return errSpecialField(ctx, name, "is hidden but has no value expression")
		}
		value, err := compileExpr(ctx, exprField.Expr)
		if err != nil {
			return err
		}
		ctx.w.linef("%s %s = %s;", typeName, name, value)
		copyPrimitive(ctx, name)
	}
	return nil
}

// copyList sizes (decode) or checks (encode) a dynamic list against its
// length expression, then copies each element.
func copyList(ctx emitCtx, name string, list *schema.List) error {
	if err := checkList(ctx, list); err != nil {
		return err
	}
	if list.Count == 0 {
		size, err := compileExpr(ctx, list.Length)
		if err != nil {
			return err
		}
		if ctx.isRead {
			ctx.w.linef("%s.resize(%s);", name, size)
		} else {
			ctx.w.linef("DCHECK_EQ(static_cast<size_t>(%s), %s.size());", size, name)
		}
	}

	elemName := name + "_elem"
	ctx.w.open(fmt.Sprintf("for (auto& %s : %s) {", elemName, name))
	switch member := list.Member.(type) {
	case *schema.Simple, *schema.Union:
		copyPrimitive(ctx, elemName)
	case schema.Container:
		if err := copyContainer(ctx, member, elemName); err != nil {
			return err
		}
	default:
		return errFieldType(ctx, member)
	}
	ctx.w.close("}")
	return nil
}

// copyContainer binds the visible members of obj and copies every wire
// field of c in order.
func copyContainer(ctx emitCtx, c schema.Container, obj string) error {
	fields := c.ContainerFields()
	release := bindFields(ctx, obj, fields)
	defer release()

	for _, field := range fields {
		if !field.Wire {
			continue
		}
		if err := copyField(ctx, c, field); err != nil {
			return err
		}
		ctx.w.blank()
	}
	return nil
}

// copySwitch evaluates the selector once, then tests it against every
// branch. Case branches compare for equality and are mutually exclusive;
// bitcase branches test a mask and every matching branch is copied.
func copySwitch(ctx emitCtx, name string, sw *schema.Switch) error {
	var scopeFields []*schema.Field
	for _, branch := range sw.Cases {
		if branch.Name != "" {
			scopeFields = append(scopeFields, branch)
			continue
		}
		branchType, err := caseType(ctx.at(branch.Name), branch)
		if err != nil {
			return err
		}
		scopeFields = append(scopeFields, branchType.Fields...)
	}

	ctx.w.open("{")
	release := bindFields(ctx, name, scopeFields)
	defer release()

	selector, err := compileExpr(ctx, sw.Expr)
	if err != nil {
		return err
	}
	switchVar := name + "_expr"
	ctx.w.linef("auto %s = %s;", switchVar, selector)
	for _, branch := range sw.Cases {
		if err := copyCase(ctx, branch, switchVar); err != nil {
			return err
		}
	}
	ctx.w.close("}")
	return nil
}

func copyCase(ctx emitCtx, field *schema.Field, switchVar string) error {
	ctx = ctx.at(field.Name)
	branch, err := caseType(ctx, field)
	if err != nil {
		return err
	}
	if len(branch.Exprs) == 0 {
		return errEmptyCase(ctx)
	}

	op := "CaseAnd"
	if branch.IsCase {
		op = "CaseEq"
	}
	conds := make([]string, 0, len(branch.Exprs))
	for _, expr := range branch.Exprs {
		value, err := compileExpr(ctx, expr)
		if err != nil {
			return err
		}
		conds = append(conds, fmt.Sprintf("%s(%s, %s)", op, switchVar, value))
	}

	ctx.w.open(fmt.Sprintf("if (%s) {", strings.Join(conds, " || ")))
	if field.Name != "" {
		release := bindFields(ctx, SafeName(field.Name), branch.Fields)
		defer release()
	}
	for _, caseField := range branch.Fields {
		if !caseField.Wire {
			return errFieldType(ctx.at(caseField.Name), caseField.Type)
		}
		if err := copyField(ctx, branch, caseField); err != nil {
			return err
		}
	}
	ctx.w.close("}")
	return nil
}
