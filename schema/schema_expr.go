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

package schema

// Expr is one of *BinaryOp, *Complement, *PopCount, *FieldLen, *SumOf,
// *EnumRef, *ListElementRef, *Value, or *FieldRef.
type Expr interface {
	isExpr()
}

// BinaryOps lists the operators accepted in a BinaryOp.
var BinaryOps = []string{"+", "-", "*", "/", "&", "|"}

type BinaryOp struct {
	Op  string
	LHS Expr
	RHS Expr
}

type Complement struct {
	Operand Expr
}

type PopCount struct {
	Operand Expr
}

// FieldLen is the element count of the named list field.
type FieldLen struct {
	Name string
}

// SumOf adds up Elem evaluated once per element of the named list. A nil Elem
// sums the elements themselves.
type SumOf struct {
	List string
	Elem Expr
}

type EnumRef struct {
	Enum *Enum
	Item string
}

// ListElementRef is the current element inside a SumOf.
type ListElementRef struct{}

type Value struct {
	Value uint64
}

// FieldRef names a field or parameter in scope.
type FieldRef struct {
	Name string
}

func (*BinaryOp) isExpr()       {}
func (*Complement) isExpr()     {}
func (*PopCount) isExpr()       {}
func (*FieldLen) isExpr()       {}
func (*SumOf) isExpr()          {}
func (*EnumRef) isExpr()        {}
func (*ListElementRef) isExpr() {}
func (*Value) isExpr()          {}
func (*FieldRef) isExpr()       {}
