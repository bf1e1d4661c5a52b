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
	"go.x11gen.dev/xprotogen/schema"
)

// Scope is the stack of fields visible to expressions, innermost last.
type Scope struct {
	fields []*schema.Field
}

func NewScope() *Scope {
	return &Scope{}
}

// Push binds field if it is both on the wire and visible, and reports
// whether it did.
func (s *Scope) Push(field *schema.Field) bool {
	if !field.Wire || !field.Visible {
		return false
	}
	s.fields = append(s.fields, field)
	return true
}

// Resolve returns the most recently pushed field named name, or nil.
func (s *Scope) Resolve(name string) *schema.Field {
	for ii := len(s.fields) - 1; ii >= 0; ii-- {
		if s.fields[ii].Name == name {
			return s.fields[ii]
		}
	}
	return nil
}

func (s *Scope) Pop(count int) {
	if count < 0 || count > len(s.fields) {
		panic("codegen: scope underflow")
	}
	clear(s.fields[len(s.fields)-count:])
	s.fields = s.fields[:len(s.fields)-count]
}

func (s *Scope) Len() int {
	return len(s.fields)
}

// LengthBinding returns the name of the element count variable for a list
// field, and whether it still has to be declared because no field of that
// name is in scope.
func (s *Scope) LengthBinding(field *schema.Field) (string, bool) {
	if _, ok := field.Type.(*schema.List); !ok {
		return "", false
	}
	name := SafeName(field.Name) + "_len"
	return name, s.Resolve(name) == nil
}

// bindFields makes the members of obj named by fields visible as locals
// and returns the function that unbinds them. Callers defer the release.
func bindFields(ctx emitCtx, obj string, fields []*schema.Field) func() {
	pushed := 0
	for _, field := range fields {
		if !ctx.scope.Push(field) {
			continue
		}
		pushed++

		name := SafeName(field.Name)
		// "auto& enable = enable.enable;" would not compile.
		if name == obj {
			id := ctx.uids.next()
			ctx.w.linef("auto& tmp%d = %s.%s;", id, obj, name)
			ctx.w.linef("auto& %s = tmp%d;", name, id)
		} else {
			ctx.w.linef("auto& %s = %s.%s;", name, obj, name)
		}

		if lenName, declare := ctx.scope.LengthBinding(field); declare {
			ctx.w.linef("size_t %s = %s.size();", lenName, name)
		}
	}
	if pushed > 0 {
		ctx.w.blank()
	}

	released := false
	return func() {
		if !released {
			released = true
			ctx.scope.Pop(pushed)
		}
	}
}
