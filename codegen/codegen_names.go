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
	"slices"
	"strings"
	"unicode"

	"go.x11gen.dev/xprotogen/schema"
)

var reservedNames = []string{
	"and",
	"xor",
	"or",
	"class",
	"explicit",
	"new",
	"delete",
	"default",
	"private",
}

// SafeName maps a schema name to a usable C++ identifier by prefixing "c_"
// to keywords and names that start with a digit.
func SafeName(name string) string {
	if name == "" {
		return name
	}
	if unicode.IsDigit(rune(name[0])) || slices.Contains(reservedNames, name) {
		return "c_" + name
	}
	return name
}

// TypeSuffix is appended to the declared name of message types, so that a
// request and its reply can share a schema name.
func TypeSuffix(t schema.Type) string {
	switch t.(type) {
	case *schema.Error:
		return "Error"
	case *schema.Request:
		return "Request"
	case *schema.Reply:
		return "Reply"
	case *schema.Event:
		return "Event"
	}
	return ""
}

// QualifiedPath returns the full C++ path of a type. Types in the xcb
// namespace move to x11, and core protocol types are nested in XProto so
// they sit at the same depth as extension types.
func QualifiedPath(t schema.Type) []string {
	path := slices.Clone([]string(t.TypeName()))
	if len(path) == 0 {
		return path
	}
	path[len(path)-1] += TypeSuffix(t)
	if path[0] == "xcb" {
		path[0] = "x11"
		if len(path) == 2 {
			path = slices.Insert(path, 1, "XProto")
		}
	}
	return path
}

// Chop drops the longest common prefix of path and ns.
func Chop(path, ns []string) []string {
	chop := 0
	for chop < len(path) && chop < len(ns) && path[chop] == ns[chop] {
		chop++
	}
	return path[chop:]
}

// Qualify names t as seen from inside the namespace ns.
func Qualify(t schema.Type, ns []string) string {
	return strings.Join(Chop(QualifiedPath(t), ns), "::")
}
