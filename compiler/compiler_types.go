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
	"slices"
	"strings"

	"go.x11gen.dev/xprotogen/schema"
	"go.x11gen.dev/xprotogen/syntax"
)

func simple(name string) *schema.Simple {
	return &schema.Simple{Name: schema.Name{name}}
}

var builtinTypes = map[string]*schema.Simple{
	"CARD8":  simple("uint8_t"),
	"CARD16": simple("uint16_t"),
	"CARD32": simple("uint32_t"),
	"CARD64": simple("uint64_t"),
	"INT8":   simple("int8_t"),
	"INT16":  simple("int16_t"),
	"INT32":  simple("int32_t"),
	"INT64":  simple("int64_t"),
	"BYTE":   simple("uint8_t"),
	"BOOL":   simple("uint8_t"),
	"char":   simple("char"),
	"void":   simple("void"),
	"float":  simple("float"),
	"double": simple("double"),
}

// Elements that may appear in a field list and carry no wire meaning for
// the generated codec.
var ignoredFieldElements = map[string]struct{}{
	"valueparam":           {},
	"required_start_align": {},
	"length":               {},
}

var exprElements = map[string]struct{}{
	"op":              {},
	"unop":            {},
	"popcount":        {},
	"sumof":           {},
	"fieldref":        {},
	"paramref":        {},
	"enumref":         {},
	"value":           {},
	"bit":             {},
	"listelement-ref": {},
}

func specialField(name, typeName string) *schema.Field {
	return &schema.Field{
		Name: name,
		Type: builtinTypes[typeName],
		Wire: true,
	}
}

type fieldCtx struct {
	parent  schema.Name
	fields  []*schema.Field
	pads    int
	request *schema.Request

	// Index of the one-byte slot after the first header byte, or -1. The
	// first field added fills it.
	placeholder int

	inRequest bool
}

func newFieldCtx(parent schema.Name, inRequest bool) *fieldCtx {
	return &fieldCtx{
		parent:      parent,
		placeholder: -1,
		inRequest:   inRequest,
	}
}

// header appends one of the fixed protocol fields. Unlike add it never fills
// the placeholder.
func (fc *fieldCtx) header(field *schema.Field) {
	fc.fields = append(fc.fields, field)
}

func (fc *fieldCtx) add(field *schema.Field) {
	if fc.placeholder >= 0 {
		fc.fields[fc.placeholder] = field
		fc.placeholder = -1
		return
	}
	fc.fields = append(fc.fields, field)
}

func (fc *fieldCtx) addPlaceholder() {
	fc.fields = append(fc.fields, &schema.Field{
		Name: "pad0",
		Type: &schema.Pad{Bytes: 1, Align: 1},
		Wire: true,
	})
	fc.placeholder = len(fc.fields) - 1
}

func (c *compiler) resolveFields(fc *fieldCtx, node *syntax.Element) {
	for _, child := range node.Children {
		switch child.Tag {
		case "pad":
			c.resolvePad(fc, child)
		case "field":
			name, ok1 := c.requireAttr(child, "name")
			typeName, ok2 := c.requireAttr(child, "type")
			if !ok1 || !ok2 {
				continue
			}
			if typ := c.lookupType(typeName, child.Span()); typ != nil {
				fc.add(&schema.Field{
					Name:    name,
					Type:    typ,
					Wire:    true,
					Visible: true,
				})
			}
		case "fd":
			if name, ok := c.requireAttr(child, "name"); ok {
				fc.add(&schema.Field{
					Name:    name,
					Type:    builtinTypes["INT32"],
					Visible: true,
				})
			}
		case "list":
			c.resolveList(fc, child)
		case "exprfield":
			c.resolveExprField(fc, child)
		case "switch":
			c.resolveSwitch(fc, child)
		case "reply":
			if fc.request == nil {
				c.err(errReplyOutsideRequest(fc.parent.String(), child.Span()))
				continue
			}
			c.resolveReply(child, fc.request)
		default:
			if _, ok := ignoredFieldElements[child.Tag]; ok {
				c.warn(warnIgnoredElement(child.Tag, child.Span()))
				continue
			}
			c.err(errUnknownField(child.Tag, fc.parent.String(), child.Span()))
		}
	}
}

func (c *compiler) resolvePad(fc *fieldCtx, node *syntax.Element) {
	pad := &schema.Pad{Bytes: 1, Align: 1}
	if _, ok := node.Attr("align"); ok {
		pad.Align = c.intAttr(node, "align", 1)
	} else {
		pad.Bytes = c.intAttr(node, "bytes", 1)
	}
	fc.add(&schema.Field{
		Name: fmt.Sprintf("pad%d", fc.pads),
		Type: pad,
		Wire: true,
	})
	fc.pads += 1
}

func (c *compiler) resolveList(fc *fieldCtx, node *syntax.Element) {
	name, ok1 := c.requireAttr(node, "name")
	typeName, ok2 := c.requireAttr(node, "type")
	if !ok1 || !ok2 {
		return
	}
	member := c.lookupType(typeName, node.Span())
	if member == nil {
		return
	}

	list := &schema.List{Member: member}
	if len(node.Children) > 0 {
		length := c.resolveExpr(node.Children[0])
		if length == nil {
			return
		}
		if value, ok := length.(*schema.Value); ok {
			list.Count = int(value.Value)
		} else {
			list.Length = length
		}
	} else if fc.inRequest {
		list.Length = &schema.FieldRef{Name: name + "_len"}
	} else {
		list.Length = &schema.FieldLen{Name: name}
	}

	fc.add(&schema.Field{
		Name:    name,
		Type:    list,
		Wire:    true,
		Visible: true,
	})
}

func (c *compiler) resolveExprField(fc *fieldCtx, node *syntax.Element) {
	name, ok1 := c.requireAttr(node, "name")
	typeName, ok2 := c.requireAttr(node, "type")
	if !ok1 || !ok2 {
		return
	}
	base := c.lookupType(typeName, node.Span())
	if base == nil {
		return
	}
	if len(node.Children) == 0 {
		c.err(errMissingExpr(node))
		return
	}
	expr := c.resolveExpr(node.Children[0])
	if expr == nil {
		return
	}
	fc.add(&schema.Field{
		Name: name,
		Type: &schema.ExprField{Base: base, Expr: expr},
		Wire: true,
	})
}

func (c *compiler) resolveSwitch(fc *fieldCtx, node *syntax.Element) {
	name, ok := c.requireAttr(node, "name")
	if !ok {
		return
	}
	sw := &schema.Switch{Name: append(slices.Clone(fc.parent), name)}
	for ii, child := range node.Children {
		if ii == 0 {
			sw.Expr = c.resolveExpr(child)
			continue
		}
		if child.Tag != "case" && child.Tag != "bitcase" {
			c.err(errUnknownField(child.Tag, sw.Name.String(), child.Span()))
			continue
		}
		caseName := child.AttrOr("name", "")
		branch := &schema.Case{
			Name:      append(slices.Clone(sw.Name), caseName),
			IsCase:    child.Tag == "case",
			IsBitcase: child.Tag == "bitcase",
		}
		body := &syntax.Element{Tag: child.Tag}
		for _, grandchild := range child.Children {
			if _, isExpr := exprElements[grandchild.Tag]; isExpr {
				if expr := c.resolveExpr(grandchild); expr != nil {
					branch.Exprs = append(branch.Exprs, expr)
				}
				continue
			}
			body.Children = append(body.Children, grandchild)
		}
		caseCtx := newFieldCtx(sw.Name, fc.inRequest)
		c.resolveFields(caseCtx, body)
		branch.Fields = caseCtx.fields

		sw.Cases = append(sw.Cases, &schema.Field{
			Name:    caseName,
			Type:    branch,
			Wire:    true,
			Visible: true,
		})
	}
	if sw.Expr == nil {
		c.err(errMissingExpr(node))
		return
	}
	fc.add(&schema.Field{
		Name:    name,
		Type:    sw,
		Wire:    true,
		Visible: true,
	})
}

func (c *compiler) resolveExpr(node *syntax.Element) schema.Expr {
	switch node.Tag {
	case "op":
		op, ok := c.requireAttr(node, "op")
		if !ok {
			return nil
		}
		if !slices.Contains(schema.BinaryOps, op) || len(node.Children) != 2 {
			c.err(errUnknownExpr(fmt.Sprintf("op %q", op), node.Span()))
			return nil
		}
		lhs := c.resolveExpr(node.Children[0])
		rhs := c.resolveExpr(node.Children[1])
		if lhs == nil || rhs == nil {
			return nil
		}
		return &schema.BinaryOp{Op: op, LHS: lhs, RHS: rhs}
	case "unop":
		if node.AttrOr("op", "") != "~" || len(node.Children) != 1 {
			c.err(errUnknownExpr("unop", node.Span()))
			return nil
		}
		if operand := c.resolveExpr(node.Children[0]); operand != nil {
			return &schema.Complement{Operand: operand}
		}
		return nil
	case "popcount":
		if len(node.Children) != 1 {
			c.err(errMissingExpr(node))
			return nil
		}
		if operand := c.resolveExpr(node.Children[0]); operand != nil {
			return &schema.PopCount{Operand: operand}
		}
		return nil
	case "sumof":
		ref, ok := c.requireAttr(node, "ref")
		if !ok {
			return nil
		}
		sum := &schema.SumOf{List: ref}
		if len(node.Children) > 0 {
			if sum.Elem = c.resolveExpr(node.Children[0]); sum.Elem == nil {
				return nil
			}
		}
		return sum
	case "fieldref", "paramref":
		return &schema.FieldRef{Name: node.Text}
	case "enumref":
		ref, ok := c.requireAttr(node, "ref")
		if !ok {
			return nil
		}
		typ := c.lookupType(ref, node.Span())
		if typ == nil {
			return nil
		}
		enum, ok := typ.(*schema.Enum)
		if !ok {
			c.err(errEnumRefNotEnum(ref, node.Span()))
			return nil
		}
		return &schema.EnumRef{Enum: enum, Item: node.Text}
	case "value":
		if value, ok := c.parseInt(node); ok {
			return &schema.Value{Value: uint64(value)}
		}
		return nil
	case "bit":
		value, ok := c.parseInt(node)
		if !ok {
			return nil
		}
		if value > 63 {
			c.err(errInvalidInteger(node.Text, node.Span()))
			return nil
		}
		return &schema.Value{Value: uint64(1) << value}
	case "listelement-ref":
		return &schema.ListElementRef{}
	}
	c.err(errUnknownExpr(node.Tag, node.Span()))
	return nil
}

// lookupType resolves a type name used by the module being compiled. Names
// may be qualified with the header of an imported module ("xproto:WINDOW").
// Unqualified names are looked up in the builtin scalars, then the module's
// own declarations, then each import in order.
func (c *compiler) lookupType(name string, span syntax.Span) schema.Type {
	if header, id, ok := strings.Cut(name, ":"); ok {
		if header == c.module.Header {
			if typ, ok := c.types[id]; ok {
				return typ
			}
		}
		for _, ictx := range c.imports {
			if ictx.module.Header != header {
				continue
			}
			if typ, ok := ictx.types[id]; ok {
				ictx.used = true
				return typ
			}
		}
		c.err(errUnknownType(name, span))
		return nil
	}

	if typ, ok := builtinTypes[name]; ok {
		return typ
	}
	if typ, ok := c.types[name]; ok {
		return typ
	}
	for _, ictx := range c.imports {
		if typ, ok := ictx.types[name]; ok {
			ictx.used = true
			return typ
		}
	}
	c.err(errUnknownType(name, span))
	return nil
}
