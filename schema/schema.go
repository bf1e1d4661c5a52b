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

// Package schema holds the resolved model of an X11 protocol module: its
// declarations, field layouts and length expressions, in wire order.
//
// A model is built once by the compiler package and is read-only afterwards.
package schema

import (
	"strings"
)

// Name is a fully qualified xcb type name, such as [xcb Input Key] or
// [uint32_t].
type Name []string

func (n Name) String() string {
	return strings.Join(n, ":")
}

// Last returns the final path segment, or "" for an empty name.
func (n Name) Last() string {
	if len(n) == 0 {
		return ""
	}
	return n[len(n)-1]
}

type Module struct {
	Header       string
	IsExt        bool
	ExtName      string
	ExtXName     string
	MajorVersion int
	MinorVersion int

	// Direct imports in declaration order.
	Imports []*Module

	// Declarations in schema order.
	Decls []Decl
}

// ClassName is the name of the umbrella type holding all of the module's
// declarations in generated code.
func (m *Module) ClassName() string {
	if m.IsExt {
		return m.ExtName
	}
	return "XProto"
}

// Requests returns the module's request declarations in schema order.
func (m *Module) Requests() []*Request {
	var out []*Request
	for _, decl := range m.Decls {
		if req, ok := decl.Type.(*Request); ok {
			out = append(out, req)
		}
	}
	return out
}

// A Decl binds a declared name to a type. Several declarations may share a
// type, for example an xidtype aliasing CARD32.
type Decl struct {
	Name Name
	Type Type
}

type Field struct {
	Name string
	Type Type

	// Wire fields occupy bytes in the encoded message.
	Wire bool

	// Visible fields are bound by name for sibling expressions and are
	// declared as struct members.
	Visible bool
}

// Type is one of *Simple, *Enum, *Union, *Struct, *Request, *Reply, *Event,
// *Error, *Pad, *List, *ExprField, *Switch, or *Case.
type Type interface {
	TypeName() Name
	isType()
}

// Container is implemented by the types whose wire form is an ordered field
// list: *Struct, *Request, *Reply, *Event, and *Error.
type Container interface {
	Type
	ContainerFields() []*Field
}

type Simple struct {
	Name Name
}

func (t *Simple) TypeName() Name { return t.Name }
func (*Simple) isType()          {}

type EnumItem struct {
	Name  string
	Value string
}

type Enum struct {
	Name Name

	// Every item with its integer value, including bit items.
	Values []EnumItem

	// Bit items with their bit position as the value.
	Bits []EnumItem
}

func (t *Enum) TypeName() Name { return t.Name }
func (*Enum) isType()          {}

// IsBit reports whether the named item was declared as a bit.
func (t *Enum) IsBit(name string) bool {
	for _, bit := range t.Bits {
		if bit.Name == name {
			return true
		}
	}
	return false
}

type Union struct {
	Name   Name
	Fields []*Field
}

func (t *Union) TypeName() Name { return t.Name }
func (*Union) isType()          {}

type Struct struct {
	Name   Name
	Fields []*Field
}

func (t *Struct) TypeName() Name            { return t.Name }
func (t *Struct) ContainerFields() []*Field { return t.Fields }
func (*Struct) isType()                     {}

type Request struct {
	Name   Name
	Fields []*Field
	Opcode int

	// Nil for requests without a reply.
	Reply *Reply
}

func (t *Request) TypeName() Name            { return t.Name }
func (t *Request) ContainerFields() []*Field { return t.Fields }
func (*Request) isType()                     {}

// HasMinorOpcode reports whether the request carries an extension minor
// opcode, in which case the major opcode is assigned at runtime.
func (t *Request) HasMinorOpcode() bool {
	for _, field := range t.Fields {
		if field.Name == "minor_opcode" {
			return true
		}
	}
	return false
}

type Reply struct {
	Name   Name
	Fields []*Field
}

func (t *Reply) TypeName() Name            { return t.Name }
func (t *Reply) ContainerFields() []*Field { return t.Fields }
func (*Reply) isType()                     {}

type Event struct {
	Name       Name
	Fields     []*Field
	Number     int
	NoSequence bool
	XGE        bool
}

func (t *Event) TypeName() Name            { return t.Name }
func (t *Event) ContainerFields() []*Field { return t.Fields }
func (*Event) isType()                     {}

type Error struct {
	Name   Name
	Fields []*Field
	Number int
}

func (t *Error) TypeName() Name            { return t.Name }
func (t *Error) ContainerFields() []*Field { return t.Fields }
func (*Error) isType()                     {}

type Pad struct {
	Bytes int
	Align int
}

func (*Pad) TypeName() Name { return Name{"uint8_t"} }
func (*Pad) isType()        {}

// A List has either a fixed Count or a Length expression evaluated against
// the fields in scope.
type List struct {
	Member Type
	Count  int
	Length Expr
}

func (t *List) TypeName() Name { return t.Member.TypeName() }
func (*List) isType()          {}

// ExprField is a wire field whose value is computed from other fields.
type ExprField struct {
	Base Type
	Expr Expr
}

func (t *ExprField) TypeName() Name { return t.Base.TypeName() }
func (*ExprField) isType()          {}

type Switch struct {
	Name  Name
	Expr  Expr
	Cases []*Field
}

func (t *Switch) TypeName() Name { return t.Name }
func (*Switch) isType()          {}

// Case is a switch branch. Exactly one of IsCase (selected by value) and
// IsBitcase (selected by mask) is set on a well-formed branch.
type Case struct {
	Name      Name
	IsCase    bool
	IsBitcase bool
	Exprs     []Expr
	Fields    []*Field
}

func (t *Case) TypeName() Name { return t.Name }
func (*Case) isType()          {}

var (
	_ Container = (*Struct)(nil)
	_ Container = (*Request)(nil)
	_ Container = (*Reply)(nil)
	_ Container = (*Event)(nil)
	_ Container = (*Error)(nil)
)
