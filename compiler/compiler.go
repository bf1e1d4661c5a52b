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
	"strconv"
	"strings"

	"go.uber.org/zap"

	"go.x11gen.dev/xprotogen/schema"
	"go.x11gen.dev/xprotogen/syntax"
)

type CompileOption interface {
	apply(*CompileOptions)
}

type compileOption func(*CompileOptions)

func (f compileOption) apply(opts *CompileOptions) { f(opts) }

type CompileOptions struct {
	deps       *ModuleSet
	sourcePath []string
}

// WithDependencies makes the modules of a ModuleSet available to <import>.
func WithDependencies(dependencies *ModuleSet) CompileOption {
	return compileOption(func(opts *CompileOptions) {
		opts.deps = dependencies
	})
}

func WithSourcePath(sourcePath []string) CompileOption {
	return compileOption(func(opts *CompileOptions) {
		opts.sourcePath = sourcePath
	})
}

type CompileResult struct {
	Module *schema.Module

	Errors   []*Error
	Warnings []*Warning
}

func Compile(root *syntax.Element, opts ...CompileOption) CompileResult {
	return NewCompileOptions(opts...).Compile(root)
}

func NewCompileOptions(opts ...CompileOption) *CompileOptions {
	compileOptions := &CompileOptions{}
	for _, opt := range opts {
		opt.apply(compileOptions)
	}
	return compileOptions
}

func (opts *CompileOptions) Compile(root *syntax.Element) CompileResult {
	c := compiler{
		opts:   opts,
		root:   root,
		module: &schema.Module{},
		types:  make(map[string]schema.Type),
	}
	c.compileModule()
	if len(c.errors) > 0 {
		return CompileResult{
			Errors:   c.errors,
			Warnings: c.warnings,
		}
	}
	Logger().Debug(
		"compiled module",
		zap.String("header", c.module.Header),
		zap.String("source", strings.Join(opts.sourcePath, "/")),
		zap.Int("decls", len(c.module.Decls)),
		zap.Int("warnings", len(c.warnings)),
	)
	return CompileResult{
		Module:   c.module,
		Warnings: c.warnings,
	}
}

type compiler struct {
	opts     *CompileOptions
	root     *syntax.Element
	module   *schema.Module
	prefix   schema.Name
	errors   []*Error
	warnings []*Warning

	// Set by registerImports()
	imports []*importCtx

	// Set by registerDecls()
	types   map[string]schema.Type
	pending []pendingDecl
}

type importCtx struct {
	module *schema.Module
	types  map[string]schema.Type
	node   *syntax.Element
	used   bool
}

// A pendingDecl is a declaration whose name is registered but whose fields
// are resolved in a later pass, so containers may refer to types declared
// after them.
type pendingDecl struct {
	node *syntax.Element
	typ  schema.Type
}

func (c *compiler) err(err *Error) {
	c.errors = append(c.errors, err)
}

func (c *compiler) warn(w *Warning) {
	c.warnings = append(c.warnings, w)
}

func (c *compiler) compileModule() {
	root := c.root
	header, ok := root.Attr("header")
	if !ok {
		c.err(errMissingAttr(root.Tag, "header", root.Span()))
		return
	}
	mod := c.module
	mod.Header = header
	c.prefix = schema.Name{"xcb"}
	if extName, ok := root.Attr("extension-name"); ok {
		mod.IsExt = true
		mod.ExtName = extName
		mod.ExtXName = root.AttrOr("extension-xname", "")
		mod.MajorVersion = c.intAttr(root, "major-version", 0)
		mod.MinorVersion = c.intAttr(root, "minor-version", 0)
		c.prefix = schema.Name{"xcb", extName}
	}

	c.registerImports()
	c.registerDecls()
	if len(c.errors) > 0 {
		return
	}
	// Copies share the fields of their source, so they resolve last.
	for _, decl := range c.pending {
		if !isCopy(decl.node) {
			c.resolveDecl(decl)
		}
	}
	for _, decl := range c.pending {
		if isCopy(decl.node) {
			c.resolveDecl(decl)
		}
	}

	for _, ictx := range c.imports {
		if !ictx.used {
			c.warn(warnUnusedImport(ictx.module.Header, ictx.node.Span()))
		}
	}
}

func (c *compiler) registerImports() {
	for node := range c.root.Elements("import") {
		header := node.Text
		var imported *schema.Module
		if c.opts.deps != nil {
			imported = c.opts.deps.Get(header)
		}
		if imported == nil {
			c.err(errImportNotFound(header, nil, node.Span()))
			continue
		}
		c.module.Imports = append(c.module.Imports, imported)
		c.imports = append(c.imports, &importCtx{
			module: imported,
			types:  c.opts.deps.types(header),
			node:   node,
		})
	}
}

func (c *compiler) declName(name string) schema.Name {
	out := make(schema.Name, 0, len(c.prefix)+1)
	out = append(out, c.prefix...)
	return append(out, name)
}

func (c *compiler) addDecl(node *syntax.Element, name string, typ schema.Type) bool {
	if _, conflict := c.types[name]; conflict {
		c.err(errDeclNameConflict(name, node.Span()))
		return false
	}
	c.types[name] = typ
	c.module.Decls = append(c.module.Decls, schema.Decl{
		Name: c.declName(name),
		Type: typ,
	})
	return true
}

func (c *compiler) registerDecls() {
	for _, node := range c.root.Children {
		switch node.Tag {
		case "import":
			continue
		case "xidtype", "xidunion":
			if name, ok := c.requireAttr(node, "name"); ok {
				c.addDecl(node, name, builtinTypes["CARD32"])
			}
		case "typedef":
			oldName, ok1 := c.requireAttr(node, "oldname")
			newName, ok2 := c.requireAttr(node, "newname")
			if !ok1 || !ok2 {
				continue
			}
			if typ := c.lookupType(oldName, node.Span()); typ != nil {
				c.addDecl(node, newName, typ)
			}
		case "enum":
			if name, ok := c.requireAttr(node, "name"); ok {
				enum := &schema.Enum{Name: c.declName(name)}
				if c.addDecl(node, name, enum) {
					c.pending = append(c.pending, pendingDecl{node, enum})
				}
			}
		case "struct":
			if name, ok := c.requireAttr(node, "name"); ok {
				st := &schema.Struct{Name: c.declName(name)}
				if c.addDecl(node, name, st) {
					c.pending = append(c.pending, pendingDecl{node, st})
				}
			}
		case "union":
			if name, ok := c.requireAttr(node, "name"); ok {
				un := &schema.Union{Name: c.declName(name)}
				if c.addDecl(node, name, un) {
					c.pending = append(c.pending, pendingDecl{node, un})
				}
			}
		case "request":
			name, ok := c.requireAttr(node, "name")
			if !ok {
				continue
			}
			req := &schema.Request{
				Name:   c.declName(name),
				Opcode: c.intAttr(node, "opcode", -1),
			}
			if c.addDecl(node, name, req) {
				c.pending = append(c.pending, pendingDecl{node, req})
			}
		case "event", "eventcopy":
			name, ok := c.requireAttr(node, "name")
			if !ok {
				continue
			}
			ev := &schema.Event{
				Name:       c.declName(name),
				Number:     c.intAttr(node, "number", -1),
				NoSequence: node.AttrOr("no-sequence-number", "") == "true",
				XGE:        node.AttrOr("xge", "") == "true",
			}
			if c.addDecl(node, name, ev) {
				c.pending = append(c.pending, pendingDecl{node, ev})
			}
		case "error", "errorcopy":
			name, ok := c.requireAttr(node, "name")
			if !ok {
				continue
			}
			er := &schema.Error{
				Name:   c.declName(name),
				Number: c.intAttr(node, "number", -1),
			}
			if c.addDecl(node, name, er) {
				c.pending = append(c.pending, pendingDecl{node, er})
			}
		default:
			c.warn(warnIgnoredElement(node.Tag, node.Span()))
		}
	}
}

func (c *compiler) resolveDecl(decl pendingDecl) {
	node := decl.node
	switch typ := decl.typ.(type) {
	case *schema.Enum:
		c.resolveEnum(node, typ)
	case *schema.Struct:
		fc := newFieldCtx(typ.Name, false)
		c.resolveFields(fc, node)
		typ.Fields = fc.fields
	case *schema.Union:
		fc := newFieldCtx(typ.Name, false)
		c.resolveFields(fc, node)
		typ.Fields = fc.fields
	case *schema.Request:
		c.resolveRequest(node, typ)
	case *schema.Event:
		if node.Tag == "eventcopy" {
			if ref, ok := c.copySource(node).(*schema.Event); ok {
				typ.Fields = ref.Fields
			}
			return
		}
		c.resolveEvent(node, typ)
	case *schema.Error:
		if node.Tag == "errorcopy" {
			if ref, ok := c.copySource(node).(*schema.Error); ok {
				typ.Fields = ref.Fields
			}
			return
		}
		fc := newFieldCtx(typ.Name, false)
		fc.header(specialField("response_type", "CARD8"))
		fc.header(specialField("error_code", "CARD8"))
		fc.header(specialField("sequence", "CARD16"))
		c.resolveFields(fc, node)
		typ.Fields = fc.fields
	}
}

func isCopy(node *syntax.Element) bool {
	return node.Tag == "eventcopy" || node.Tag == "errorcopy"
}

func (c *compiler) copySource(node *syntax.Element) schema.Type {
	ref, ok := c.requireAttr(node, "ref")
	if !ok {
		return nil
	}
	return c.lookupType(ref, node.Span())
}

func (c *compiler) resolveEnum(node *syntax.Element, enum *schema.Enum) {
	seen := make(map[string]struct{})
	next := int64(0)
	for item := range node.Elements("item") {
		name, ok := c.requireAttr(item, "name")
		if !ok {
			continue
		}
		if _, dup := seen[name]; dup {
			c.warn(warnDuplicateEnumItem(enum.Name.Last(), name, item.Span()))
			continue
		}
		seen[name] = struct{}{}

		if len(item.Children) == 0 {
			enum.Values = append(enum.Values, schema.EnumItem{
				Name:  name,
				Value: strconv.FormatInt(next, 10),
			})
			next += 1
			continue
		}
		child := item.Children[0]
		if child.Tag != "value" && child.Tag != "bit" {
			c.warn(warnIgnoredElement(child.Tag, child.Span()))
			continue
		}
		value, ok := c.parseInt(child)
		if !ok {
			continue
		}
		switch child.Tag {
		case "value":
			enum.Values = append(enum.Values, schema.EnumItem{
				Name:  name,
				Value: child.Text,
			})
			next = value + 1
		case "bit":
			if value > 63 {
				c.err(errInvalidInteger(child.Text, child.Span()))
				continue
			}
			enum.Values = append(enum.Values, schema.EnumItem{
				Name:  name,
				Value: strconv.FormatUint(uint64(1)<<value, 10),
			})
			enum.Bits = append(enum.Bits, schema.EnumItem{
				Name:  name,
				Value: child.Text,
			})
		}
	}
}

func (c *compiler) resolveRequest(node *syntax.Element, req *schema.Request) {
	fc := newFieldCtx(req.Name, true)
	fc.header(specialField("major_opcode", "CARD8"))
	if c.module.IsExt {
		fc.header(specialField("minor_opcode", "CARD8"))
	} else {
		fc.addPlaceholder()
	}
	fc.header(specialField("length", "CARD16"))
	fc.request = req
	c.resolveFields(fc, node)
	req.Fields = fc.fields
}

func (c *compiler) resolveReply(node *syntax.Element, req *schema.Request) {
	reply := &schema.Reply{Name: req.Name}
	fc := newFieldCtx(req.Name, false)
	fc.header(specialField("response_type", "CARD8"))
	fc.addPlaceholder()
	fc.header(specialField("sequence", "CARD16"))
	fc.header(specialField("length", "CARD32"))
	c.resolveFields(fc, node)
	reply.Fields = fc.fields
	req.Reply = reply
}

func (c *compiler) resolveEvent(node *syntax.Element, ev *schema.Event) {
	fc := newFieldCtx(ev.Name, false)
	fc.header(specialField("response_type", "CARD8"))
	if ev.XGE {
		fc.header(specialField("extension", "CARD8"))
		fc.header(specialField("sequence", "CARD16"))
		fc.header(specialField("length", "CARD32"))
		fc.header(specialField("event_type", "CARD16"))
	} else {
		fc.addPlaceholder()
		if !ev.NoSequence {
			fc.header(specialField("sequence", "CARD16"))
		}
	}
	c.resolveFields(fc, node)
	ev.Fields = fc.fields
}

func (c *compiler) requireAttr(node *syntax.Element, attr string) (string, bool) {
	value, ok := node.Attr(attr)
	if !ok {
		c.err(errMissingAttr(node.Tag, attr, node.Span()))
	}
	return value, ok
}

func (c *compiler) intAttr(node *syntax.Element, attr string, def int) int {
	text, ok := node.Attr(attr)
	if !ok {
		return def
	}
	value, err := strconv.ParseInt(text, 0, 32)
	if err != nil {
		c.err(errInvalidInteger(text, node.Span()))
		return def
	}
	return int(value)
}

func (c *compiler) parseInt(node *syntax.Element) (int64, bool) {
	value, err := strconv.ParseInt(node.Text, 0, 64)
	if err != nil || value < 0 {
		c.err(errInvalidInteger(node.Text, node.Span()))
		return 0, false
	}
	return value, true
}
