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

// Package codegen generates the C++ bindings for one X11 protocol module: a
// header declaring every type and request of the module, and a source file
// with the encoder of each request and the decoder of each reply.
//
// Output depends only on the module, so repeated runs are byte-for-byte
// identical.
package codegen

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"go.x11gen.dev/xprotogen/schema"
)

type Option interface {
	apply(*Options)
}

type option func(*Options)

func (f option) apply(opts *Options) { f(opts) }

type Options struct {
	headerPath string
}

// WithHeaderPath sets the path the header will be written to, which
// determines its include guard. The default is "<header>.h".
func WithHeaderPath(path string) Option {
	return option(func(opts *Options) {
		opts.headerPath = path
	})
}

type Result struct {
	Header []byte
	Source []byte
}

// Generate emits both artifacts for mod. Either both are returned or
// neither is.
func Generate(mod *schema.Module, opts ...Option) (*Result, error) {
	options := &Options{}
	for _, opt := range opts {
		opt.apply(options)
	}
	headerPath := options.headerPath
	if headerPath == "" {
		headerPath = mod.Header + ".h"
	}

	uids := newUIDGen()
	header, err := emitHeader(mod, headerPath, uids)
	if err != nil {
		return nil, err
	}
	source, err := emitSource(mod, uids)
	if err != nil {
		return nil, err
	}
	Logger().Debug(
		"generated module",
		zap.String("header", mod.Header),
		zap.String("class", mod.ClassName()),
		zap.Int("header_bytes", len(header)),
		zap.Int("source_bytes", len(source)),
	)
	return &Result{Header: header, Source: source}, nil
}

func includeGuard(headerPath string) string {
	guard := strings.NewReplacer("/", "_", ".", "_").Replace(headerPath)
	return strings.ToUpper(guard) + "_"
}

func emitHeader(mod *schema.Module, headerPath string, uids *uidGen) ([]byte, error) {
	w := &writer{}
	guard := includeGuard(headerPath)
	w.line("#ifndef " + guard)
	w.line("#define " + guard)
	w.blank()
	w.line("#include <array>")
	w.line("#include <cstddef>")
	w.line("#include <cstdint>")
	w.line("#include <cstring>")
	w.line("#include <vector>")
	w.blank()
	w.line(`#include "base/component_export.h"`)
	w.line(`#include "ui/gfx/x/xproto_types.h"`)
	for _, imported := range mod.Imports {
		w.linef(`#include "%s.h"`, imported.Header)
	}
	w.blank()
	w.line("typedef struct _XDisplay XDisplay;")
	w.blank()
	w.line("namespace x11 {")
	w.blank()

	class := mod.ClassName()
	w.undef(class)
	w.open(fmt.Sprintf("class COMPONENT_EXPORT(X11) %s {", class))
	w.line("public:")
	w.linef("explicit %s(XDisplay* display);", class)
	w.blank()
	w.line("XDisplay* display() { return display_; }")
	w.blank()
	for _, decl := range mod.Decls {
		ctx := emitCtx{
			w:     w,
			scope: NewScope(),
			uids:  uids,
			ns:    []string{"x11", class},
			path:  []string{decl.Name.Last()},
		}
		if err := declareType(ctx, decl); err != nil {
			return nil, err
		}
		Logger().Debug("declared", zap.Stringer("name", decl.Name))
	}
	w.line("private:")
	w.line("XDisplay* const display_;")
	w.close("};")

	w.blank()
	w.line("}  // namespace x11")
	w.blank()
	w.line("#endif  // " + guard)
	return w.bytes(), nil
}

func declareType(ctx emitCtx, decl schema.Decl) error {
	switch t := decl.Type.(type) {
	case *schema.Union:
		return declareUnion(ctx, t)
	case *schema.Request:
		return declareRequest(ctx, t)
	case schema.Container:
		return declareContainer(ctx, decl.Name, t)
	case *schema.Enum:
		declareEnum(ctx, t)
		return nil
	case *schema.Simple:
		ctx.w.linef("using %s = %s;", decl.Name.Last(), Qualify(t, ctx.ns))
		ctx.w.blank()
		return nil
	}
	return errDeclType(ctx, decl.Type)
}

// declareEnum lists plain values before bit values, each behind an undef
// guard.
func declareEnum(ctx emitCtx, enum *schema.Enum) {
	entry := func(name, value string) {
		name = SafeName(name)
		ctx.w.undef(name)
		ctx.w.linef("%s = %s,", name, value)
	}

	name := enum.Name.Last()
	ctx.w.undef(name)
	ctx.w.open(fmt.Sprintf("enum class %s {", name))
	for _, item := range enum.Values {
		if !enum.IsBit(item.Name) {
			entry(item.Name, item.Value)
		}
	}
	for _, bit := range enum.Bits {
		entry(bit.Name, "1 << "+bit.Value)
	}
	ctx.w.close("};")
	ctx.w.blank()
}

func declareContainer(ctx emitCtx, name schema.Name, c schema.Container) error {
	typeName := name.Last() + TypeSuffix(c)
	ctx.w.undef(typeName)
	ctx.w.open(fmt.Sprintf("struct %s {", typeName))
	for _, field := range c.ContainerFields() {
		if err := declareField(ctx, field); err != nil {
			return err
		}
	}
	ctx.w.close("};")
	ctx.w.blank()
	return nil
}

// declareUnion writes every member at offset zero. The constructor zeroes
// the widest member so the whole union is copied as one value.
func declareUnion(ctx emitCtx, union *schema.Union) error {
	name := union.Name.Last()
	ctx.w.open(fmt.Sprintf("union %s {", name))
	ctx.w.linef("%s() { memset(this, 0, sizeof(*this)); }", name)
	ctx.w.blank()
	for _, field := range union.Fields {
		typeName := Qualify(field.Type, ctx.ns)
		if list, ok := field.Type.(*schema.List); ok {
			if list.Count < 2 {
				return errListLength(ctx.at(field.Name), list.Count)
			}
			typeName = fmt.Sprintf("std::array<%s, %d>", typeName, list.Count)
		}
		ctx.w.linef("%s %s;", typeName, SafeName(field.Name))
	}
	ctx.w.close("};")
	ctx.w.linef("static_assert(std::is_trivially_copyable<%s>::value, \"\");", name)
	ctx.w.blank()
	return nil
}

func declareRequest(ctx emitCtx, req *schema.Request) error {
	method := req.Name.Last()
	requestName := method + "Request"
	replyName := method + "Reply"

	if err := declareContainer(ctx, req.Name, req); err != nil {
		return err
	}
	if req.Reply != nil {
		if err := declareContainer(ctx.at("reply"), req.Reply.Name, req.Reply); err != nil {
			return err
		}
	} else {
		replyName = "void"
	}

	ctx.w.linef("using %sResponse = Response<%s>;", method, replyName)
	ctx.w.blank()
	ctx.w.linef("Future<%s> %s(", replyName, method)
	ctx.w.linef("    const %s& request);", requestName)
	ctx.w.blank()
	return nil
}

func emitSource(mod *schema.Module, uids *uidGen) ([]byte, error) {
	w := &writer{}
	w.linef(`#include "%s.h"`, mod.Header)
	w.blank()
	w.line("#include <xcb/xcb.h>")
	w.line("#include <xcb/xcbext.h>")
	w.blank()
	w.line(`#include "base/logging.h"`)
	w.line(`#include "ui/gfx/x/xproto_internal.h"`)
	w.blank()
	w.line("namespace x11 {")
	w.blank()

	class := mod.ClassName()
	w.linef("%s::%s(XDisplay* display) : display_(display) {}", class, class)
	w.blank()
	for _, req := range mod.Requests() {
		if err := defineRequest(w, uids, class, req); err != nil {
			return nil, err
		}
	}
	w.line("}  // namespace x11")
	return w.bytes(), nil
}

// defineRequest writes the encoder of req and, when it has a reply, the
// decoder of the reply. The decoder checks that it consumed exactly the
// length announced in the reply header.
func defineRequest(w *writer, uids *uidGen, class string, req *schema.Request) error {
	method := class + "::" + req.Name.Last()
	requestName := method + "Request"
	replyName := method + "Reply"
	if req.Reply == nil {
		replyName = "void"
	}

	w.linef("Future<%s>", replyName)
	w.linef("%s(", method)
	w.open(fmt.Sprintf("    const %s& request) {", requestName))
	encode := emitCtx{
		w:     w,
		scope: NewScope(),
		uids:  uids,
		ns:    []string{"x11", class},
		path:  []string{req.Name.Last()},
	}
	w.line("WriteBuffer buf;")
	w.blank()
	if err := copyContainer(encode, req, "request"); err != nil {
		return err
	}
	w.linef("return x11::SendRequest<%s>(display_, &buf);", replyName)
	w.close("}")
	w.blank()

	if req.Reply == nil {
		return nil
	}
	w.line("template<> COMPONENT_EXPORT(X11)")
	w.linef("std::unique_ptr<%s>", replyName)
	w.open(fmt.Sprintf("detail::ReadReply<%s>(const uint8_t* buffer) {", replyName))
	decode := emitCtx{
		w:      w,
		scope:  NewScope(),
		uids:   uids,
		ns:     []string{"x11"},
		isRead: true,
		path:   []string{req.Name.Last(), "reply"},
	}
	w.line("ReadBuffer buf{buffer, 0UL};")
	w.linef("auto reply = std::make_unique<%s>();", replyName)
	w.blank()
	if err := copyContainer(decode, req.Reply, "(*reply)"); err != nil {
		return err
	}
	w.line("Align(&buf, 4);")
	w.line("DCHECK_EQ(buf.offset < 32 ? 0 : buf.offset - 32, 4 * length);")
	w.blank()
	w.line("return reply;")
	w.close("}")
	w.blank()
	return nil
}
