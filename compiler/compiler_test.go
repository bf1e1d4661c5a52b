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

package compiler_test

import (
	"errors"
	"path/filepath"
	"testing"

	"go.x11gen.dev/xprotogen/compiler"
	"go.x11gen.dev/xprotogen/internal/testutil"
	"go.x11gen.dev/xprotogen/schema"
	"go.x11gen.dev/xprotogen/syntax"
)

func compileString(t *testing.T, src string, opts ...compiler.CompileOption) compiler.CompileResult {
	t.Helper()
	root, err := syntax.Parse([]byte(src))
	testutil.AssertNoError(t, err)
	return compiler.Compile(root, opts...)
}

func fieldNames(fields []*schema.Field) []string {
	names := make([]string, 0, len(fields))
	for _, field := range fields {
		names = append(names, field.Name)
	}
	return names
}

func findDecl[T schema.Type](t *testing.T, mod *schema.Module, name string) T {
	t.Helper()
	for _, decl := range mod.Decls {
		if decl.Name.Last() == name {
			typ, ok := decl.Type.(T)
			if !ok {
				t.Fatalf("declaration %q has type %T", name, decl.Type)
			}
			return typ
		}
	}
	t.Fatalf("declaration %q not found", name)
	panic("unreachable")
}

func loadCore(t *testing.T) *schema.Module {
	t.Helper()
	result, err := compiler.Load(filepath.Join("testdata", "xproto.xml"))
	testutil.AssertNoError(t, err)
	testutil.ExpectEq(t, 0, len(result.Warnings))
	return result.Module
}

func TestLoadCore(t *testing.T) {
	mod := loadCore(t)

	testutil.ExpectEq(t, "xproto", mod.Header)
	testutil.ExpectFalse(t, mod.IsExt)
	testutil.ExpectEq(t, "XProto", mod.ClassName())

	var names []string
	for _, decl := range mod.Decls {
		names = append(names, decl.Name.String())
	}
	testutil.ExpectSliceEq(t, []string{
		"xcb:WINDOW",
		"xcb:COLORMAP",
		"xcb:VISUALID",
		"xcb:RGB",
		"xcb:EventMask",
		"xcb:KeyPress",
		"xcb:KeyRelease",
		"xcb:Value",
		"xcb:QueryColors",
		"xcb:NoOperation",
	}, names)

	window := findDecl[*schema.Simple](t, mod, "WINDOW")
	testutil.ExpectEq(t, "uint32_t", window.Name.String())
	visual := findDecl[*schema.Simple](t, mod, "VISUALID")
	testutil.ExpectEq(t, window, visual)
}

func TestRequestLayout(t *testing.T) {
	mod := loadCore(t)
	req := findDecl[*schema.Request](t, mod, "QueryColors")

	testutil.ExpectEq(t, 91, req.Opcode)
	testutil.ExpectFalse(t, req.HasMinorOpcode())
	testutil.ExpectSliceEq(t,
		[]string{"major_opcode", "pad0", "length", "cmap", "pixels"},
		fieldNames(req.Fields))

	length := req.Fields[2]
	testutil.ExpectEq(t, "uint16_t", length.Type.TypeName().String())
	testutil.ExpectFalse(t, length.Visible)
	testutil.ExpectTrue(t, length.Wire)

	pixels, ok := req.Fields[4].Type.(*schema.List)
	testutil.AssertTrue(t, ok)
	ref, ok := pixels.Length.(*schema.FieldRef)
	testutil.AssertTrue(t, ok)
	testutil.ExpectEq(t, "pixels_len", ref.Name)

	reply := req.Reply
	testutil.AssertTrue(t, reply != nil)
	testutil.ExpectSliceEq(t,
		[]string{"response_type", "pad0", "sequence", "length", "colors_len", "pad1", "colors"},
		fieldNames(reply.Fields))
	testutil.ExpectEq(t, "uint32_t", reply.Fields[3].Type.TypeName().String())

	pad1 := reply.Fields[5].Type.(*schema.Pad)
	testutil.ExpectEq(t, 22, pad1.Bytes)

	colors := reply.Fields[6].Type.(*schema.List)
	testutil.ExpectEq(t, "xcb:RGB", colors.Member.TypeName().String())

	noop := findDecl[*schema.Request](t, mod, "NoOperation")
	testutil.ExpectSliceEq(t,
		[]string{"major_opcode", "pad0", "length"},
		fieldNames(noop.Fields))
	testutil.ExpectTrue(t, noop.Reply == nil)
}

func TestEventsAndErrors(t *testing.T) {
	mod := loadCore(t)

	press := findDecl[*schema.Event](t, mod, "KeyPress")
	testutil.ExpectEq(t, 2, press.Number)
	testutil.ExpectSliceEq(t,
		[]string{"response_type", "detail", "sequence", "time"},
		fieldNames(press.Fields))

	release := findDecl[*schema.Event](t, mod, "KeyRelease")
	testutil.ExpectEq(t, 3, release.Number)
	testutil.ExpectSliceEq(t, fieldNames(press.Fields), fieldNames(release.Fields))

	value := findDecl[*schema.Error](t, mod, "Value")
	testutil.ExpectSliceEq(t,
		[]string{"response_type", "error_code", "sequence", "bad_value"},
		fieldNames(value.Fields))
}

func TestEnumValues(t *testing.T) {
	mod := loadCore(t)
	enum := findDecl[*schema.Enum](t, mod, "EventMask")

	testutil.ExpectSliceEq(t, []schema.EnumItem{
		{Name: "NoEvent", Value: "0"},
		{Name: "KeyPress", Value: "1"},
		{Name: "KeyRelease", Value: "2"},
	}, enum.Values)
	testutil.ExpectSliceEq(t, []schema.EnumItem{
		{Name: "KeyPress", Value: "0"},
		{Name: "KeyRelease", Value: "1"},
	}, enum.Bits)
}

func TestEnumImplicitValues(t *testing.T) {
	result := compileString(t, `<xcb header="t">
	  <enum name="E">
	    <item name="A" />
	    <item name="B" />
	    <item name="C"><value>10</value></item>
	    <item name="D" />
	    <item name="B" />
	  </enum>
	</xcb>`)
	testutil.AssertEq(t, 0, len(result.Errors))
	enum := findDecl[*schema.Enum](t, result.Module, "E")
	testutil.ExpectSliceEq(t, []schema.EnumItem{
		{Name: "A", Value: "0"},
		{Name: "B", Value: "1"},
		{Name: "C", Value: "10"},
		{Name: "D", Value: "11"},
	}, enum.Values)

	testutil.AssertEq(t, 1, len(result.Warnings))
	testutil.ExpectEq(t, uint32(4001), result.Warnings[0].Code())
}

func TestLoadExtension(t *testing.T) {
	result, err := compiler.Load(filepath.Join("testdata", "xext.xml"))
	testutil.AssertNoError(t, err)

	mod := result.Module
	testutil.ExpectTrue(t, mod.IsExt)
	testutil.ExpectEq(t, "Ext", mod.ClassName())
	testutil.ExpectEq(t, "XEXT", mod.ExtXName)
	testutil.ExpectEq(t, 1, mod.MajorVersion)
	testutil.ExpectEq(t, 2, mod.MinorVersion)
	testutil.AssertEq(t, 1, len(mod.Imports))
	testutil.ExpectEq(t, "xproto", mod.Imports[0].Header)
	testutil.ExpectSliceEq(t, []string{"xproto", "xext"}, result.Modules.Headers())

	req := findDecl[*schema.Request](t, mod, "SelectEvents")
	testutil.ExpectEq(t, "xcb:Ext:SelectEvents", req.Name.String())
	testutil.ExpectTrue(t, req.HasMinorOpcode())
	testutil.ExpectSliceEq(t,
		[]string{"major_opcode", "minor_opcode", "length", "window", "mask", "value_list"},
		fieldNames(req.Fields))

	sw := req.Fields[5].Type.(*schema.Switch)
	ref := sw.Expr.(*schema.FieldRef)
	testutil.ExpectEq(t, "mask", ref.Name)
	testutil.AssertEq(t, 2, len(sw.Cases))

	anon := sw.Cases[0]
	testutil.ExpectEq(t, "", anon.Name)
	anonCase := anon.Type.(*schema.Case)
	testutil.ExpectTrue(t, anonCase.IsBitcase)
	testutil.ExpectFalse(t, anonCase.IsCase)
	testutil.ExpectSliceEq(t, []string{"key"}, fieldNames(anonCase.Fields))

	enumRef := anonCase.Exprs[0].(*schema.EnumRef)
	testutil.ExpectEq(t, "xcb:EventMask", enumRef.Enum.Name.String())
	testutil.ExpectEq(t, "KeyPress", enumRef.Item)

	named := sw.Cases[1]
	testutil.ExpectEq(t, "release", named.Name)
	testutil.ExpectSliceEq(t,
		[]string{"code", "pad0"},
		fieldNames(named.Type.(*schema.Case).Fields))
}

func TestLoadPreloaded(t *testing.T) {
	core := loadCore(t)
	deps := compiler.NewModuleSet()
	deps.Add(core)

	result, err := compiler.Load(
		filepath.Join("testdata", "xext.xml"),
		compiler.WithPreloaded(deps),
	)
	testutil.AssertNoError(t, err)
	testutil.ExpectEq(t, core, result.Module.Imports[0])
}

func TestLoadSearchPath(t *testing.T) {
	dir := t.TempDir()
	ext := filepath.Join(dir, "xext.xml")
	copyFile(t, filepath.Join("testdata", "xext.xml"), ext)

	_, err := compiler.Load(ext)
	testutil.ExpectErrorCode(t, 3002, err)

	_, err = compiler.Load(ext, compiler.WithSearchPath("testdata"))
	testutil.ExpectNoError(t, err)

	sysroot := t.TempDir()
	xcbDir := filepath.Join(sysroot, "usr", "share", "xcb")
	mkdirAll(t, xcbDir)
	copyFile(t, filepath.Join("testdata", "xproto.xml"), filepath.Join(xcbDir, "xproto.xml"))
	_, err = compiler.Load(ext, compiler.WithSysroot(sysroot))
	testutil.ExpectNoError(t, err)
}

func TestLoadErrors(t *testing.T) {
	_, err := compiler.Load(filepath.Join("testdata", "cycle_a.xml"))
	testutil.ExpectErrorCode(t, 3003, err)
	var loadErr *compiler.LoadError
	testutil.AssertTrue(t, errors.As(err, &loadErr))
	testutil.ExpectEq(t, filepath.Join("testdata", "cycle_b.xml"), loadErr.Path)
	testutil.ExpectMatch(t, `cycle_a -> cycle_b -> cycle_a`, err.Error())

	_, err = compiler.Load(filepath.Join("testdata", "missing_import.xml"))
	testutil.ExpectErrorCode(t, 3002, err)

	_, err = compiler.Load(filepath.Join("testdata", "no_such_file.xml"))
	testutil.AssertError(t, err)
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code uint32
	}{
		{"unknown type", `<xcb header="t"><struct name="S"><field type="NOPE" name="f"/></struct></xcb>`, 3000},
		{"duplicate decl", `<xcb header="t"><xidtype name="A"/><xidtype name="A"/></xcb>`, 3001},
		{"import not found", `<xcb header="t"><import>xproto</import></xcb>`, 3002},
		{"invalid integer", `<xcb header="t"><request name="R" opcode="x"/></xcb>`, 3004},
		{"missing header", `<xcb/>`, 3005},
		{"missing name", `<xcb header="t"><struct><field type="CARD8" name="f"/></struct></xcb>`, 3005},
		{"enumref target", `<xcb header="t"><xidtype name="W"/><struct name="S"><exprfield type="CARD8" name="e"><enumref ref="W">A</enumref></exprfield></struct></xcb>`, 3006},
		{"unknown expr", `<xcb header="t"><struct name="S"><list type="CARD8" name="l"><frobnicate/></list></struct></xcb>`, 3007},
		{"bad op", `<xcb header="t"><struct name="S"><list type="CARD8" name="l"><op op="%"><value>1</value><value>2</value></op></list></struct></xcb>`, 3007},
		{"unknown field", `<xcb header="t"><struct name="S"><widget name="w"/></struct></xcb>`, 3008},
		{"reply outside request", `<xcb header="t"><struct name="S"><reply/></struct></xcb>`, 3009},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := compileString(t, test.src)
			testutil.AssertTrue(t, len(result.Errors) > 0)
			testutil.ExpectEq(t, test.code, result.Errors[0].Code())
			testutil.ExpectTrue(t, result.Module == nil)
		})
	}
}

func TestCompileWarnings(t *testing.T) {
	core := loadCore(t)
	deps := compiler.NewModuleSet()
	deps.Add(core)

	result := compileString(t, `<xcb header="t" extension-name="T">
	  <import>xproto</import>
	  <eventstruct name="ES" />
	  <request name="R" opcode="1">
	    <required_start_align align="4" />
	  </request>
	</xcb>`, compiler.WithDependencies(deps))
	testutil.AssertEq(t, 0, len(result.Errors))

	var codes []uint32
	for _, w := range result.Warnings {
		codes = append(codes, w.Code())
	}
	testutil.ExpectSliceEq(t, []uint32{4000, 4000, 4002}, codes)
	testutil.ExpectMatch(t, `^W4002: `, result.Warnings[2].String())
}

func TestCompileExpressions(t *testing.T) {
	result := compileString(t, `<xcb header="t">
	  <struct name="Item">
	    <field type="CARD16" name="n" />
	  </struct>
	  <struct name="S">
	    <field type="CARD32" name="mask" />
	    <list type="Item" name="items">
	      <popcount><fieldref>mask</fieldref></popcount>
	    </list>
	    <list type="CARD8" name="fixed"><value>8</value></list>
	    <list type="CARD8" name="data">
	      <op op="*">
	        <sumof ref="items"><fieldref>n</fieldref></sumof>
	        <unop op="~"><bit>2</bit></unop>
	      </op>
	    </list>
	    <list type="CARD8" name="rest" />
	  </struct>
	</xcb>`)
	testutil.AssertEq(t, 0, len(result.Errors))
	st := findDecl[*schema.Struct](t, result.Module, "S")

	items := st.Fields[1].Type.(*schema.List)
	popcount := items.Length.(*schema.PopCount)
	testutil.ExpectEq(t, "mask", popcount.Operand.(*schema.FieldRef).Name)

	fixed := st.Fields[2].Type.(*schema.List)
	testutil.ExpectEq(t, 8, fixed.Count)
	testutil.ExpectTrue(t, fixed.Length == nil)

	data := st.Fields[3].Type.(*schema.List)
	op := data.Length.(*schema.BinaryOp)
	testutil.ExpectEq(t, "*", op.Op)
	sum := op.LHS.(*schema.SumOf)
	testutil.ExpectEq(t, "items", sum.List)
	testutil.ExpectEq(t, "n", sum.Elem.(*schema.FieldRef).Name)
	bit := op.RHS.(*schema.Complement).Operand.(*schema.Value)
	testutil.ExpectEq(t, uint64(4), bit.Value)

	rest := st.Fields[4].Type.(*schema.List)
	testutil.ExpectEq(t, "rest", rest.Length.(*schema.FieldLen).Name)
}
