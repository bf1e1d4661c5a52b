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

package codegen_test

import (
	"bytes"
	"regexp"
	"strings"
	"testing"

	"go.x11gen.dev/xprotogen/codegen"
	"go.x11gen.dev/xprotogen/compiler"
	"go.x11gen.dev/xprotogen/internal/testutil"
	"go.x11gen.dev/xprotogen/schema"
	"go.x11gen.dev/xprotogen/syntax"
)

func compileModule(t *testing.T, src string) *schema.Module {
	t.Helper()
	root, err := syntax.Parse([]byte(src))
	testutil.AssertNoError(t, err)
	result := compiler.Compile(root)
	for _, err := range result.Errors {
		t.Error(err)
	}
	if result.Module == nil {
		t.FailNow()
	}
	return result.Module
}

func generate(t *testing.T, src string, opts ...codegen.Option) *codegen.Result {
	t.Helper()
	result, err := codegen.Generate(compileModule(t, src), opts...)
	testutil.AssertNoError(t, err)
	return result
}

const queryColorsXML = `<xcb header="xproto">
  <xidtype name="COLORMAP" />
  <struct name="RGB">
    <field type="CARD16" name="red" />
    <field type="CARD16" name="green" />
    <field type="CARD16" name="blue" />
    <pad bytes="2" />
  </struct>
  <request name="QueryColors" opcode="91">
    <pad bytes="1" />
    <field type="COLORMAP" name="cmap" />
    <list type="CARD32" name="pixels" />
    <reply>
      <pad bytes="1" />
      <field type="CARD16" name="colors_len" />
      <pad bytes="22" />
      <list type="RGB" name="colors">
        <fieldref>colors_len</fieldref>
      </list>
    </reply>
  </request>
</xcb>`

func TestQueryColorsHeader(t *testing.T) {
	result := generate(t, queryColorsXML)
	testutil.ExpectNoDiff(t, `#ifndef XPROTO_H_
#define XPROTO_H_

#include <array>
#include <cstddef>
#include <cstdint>
#include <cstring>
#include <vector>

#include "base/component_export.h"
#include "ui/gfx/x/xproto_types.h"

typedef struct _XDisplay XDisplay;

namespace x11 {

#ifdef XProto
#undef XProto
#endif
class COMPONENT_EXPORT(X11) XProto {
  public:
  explicit XProto(XDisplay* display);

  XDisplay* display() { return display_; }

  using COLORMAP = uint32_t;

#ifdef RGB
#undef RGB
#endif
  struct RGB {
    uint16_t red{};
    uint16_t green{};
    uint16_t blue{};
  };

#ifdef QueryColorsRequest
#undef QueryColorsRequest
#endif
  struct QueryColorsRequest {
    uint32_t cmap{};
    std::vector<uint32_t> pixels{};
  };

#ifdef QueryColorsReply
#undef QueryColorsReply
#endif
  struct QueryColorsReply {
    uint16_t colors_len{};
    std::vector<RGB> colors{};
  };

  using QueryColorsResponse = Response<QueryColorsReply>;

  Future<QueryColorsReply> QueryColors(
      const QueryColorsRequest& request);

  private:
  XDisplay* const display_;
};

}  // namespace x11

#endif  // XPROTO_H_
`, string(result.Header))
}

func TestQueryColorsSource(t *testing.T) {
	result := generate(t, queryColorsXML)
	testutil.ExpectNoDiff(t, `#include "xproto.h"

#include <xcb/xcb.h>
#include <xcb/xcbext.h>

#include "base/logging.h"
#include "ui/gfx/x/xproto_internal.h"

namespace x11 {

XProto::XProto(XDisplay* display) : display_(display) {}

Future<XProto::QueryColorsReply>
XProto::QueryColors(
    const XProto::QueryColorsRequest& request) {
  WriteBuffer buf;

  auto& cmap = request.cmap;
  auto& pixels = request.pixels;
  size_t pixels_len = pixels.size();

  // major_opcode
  uint8_t major_opcode = 91;
  Write(&major_opcode, &buf);

  // pad0
  Pad(&buf, 1);

  // length
  // Caller fills in length for writes.
  Pad(&buf, sizeof(uint16_t));

  // cmap
  Write(&cmap, &buf);

  // pixels
  DCHECK_EQ(static_cast<size_t>(pixels_len), pixels.size());
  for (auto& pixels_elem : pixels) {
    Write(&pixels_elem, &buf);
  }

  return x11::SendRequest<XProto::QueryColorsReply>(display_, &buf);
}

template<> COMPONENT_EXPORT(X11)
std::unique_ptr<XProto::QueryColorsReply>
detail::ReadReply<XProto::QueryColorsReply>(const uint8_t* buffer) {
  ReadBuffer buf{buffer, 0UL};
  auto reply = std::make_unique<XProto::QueryColorsReply>();

  auto& colors_len = (*reply).colors_len;
  auto& colors = (*reply).colors;

  // response_type
  uint8_t response_type;
  Read(&response_type, &buf);

  // pad0
  Pad(&buf, 1);

  // sequence
  uint16_t sequence;
  Read(&sequence, &buf);

  // length
  uint32_t length;
  Read(&length, &buf);

  // colors_len
  Read(&colors_len, &buf);

  // pad1
  Pad(&buf, 22);

  // colors
  colors.resize(colors_len);
  for (auto& colors_elem : colors) {
    auto& red = colors_elem.red;
    auto& green = colors_elem.green;
    auto& blue = colors_elem.blue;

    // red
    Read(&red, &buf);

    // green
    Read(&green, &buf);

    // blue
    Read(&blue, &buf);

    // pad0
    Pad(&buf, 2);

  }

  Align(&buf, 4);
  DCHECK_EQ(buf.offset < 32 ? 0 : buf.offset - 32, 4 * length);

  return reply;
}

}  // namespace x11
`, string(result.Source))
}

func TestGenerateDeterministic(t *testing.T) {
	mod := compileModule(t, queryColorsXML)
	first, err := codegen.Generate(mod)
	testutil.AssertNoError(t, err)
	second, err := codegen.Generate(mod)
	testutil.AssertNoError(t, err)
	testutil.ExpectTrue(t, bytes.Equal(first.Header, second.Header))
	testutil.ExpectTrue(t, bytes.Equal(first.Source, second.Source))
}

var fieldComment = regexp.MustCompile(`^  // (\w+)$`)

// copiedFields returns the top-level field comments in the function body
// that starts at the first line containing marker.
func copiedFields(source, marker string) []string {
	var names []string
	inBody := false
	for _, line := range strings.Split(source, "\n") {
		if !inBody {
			inBody = strings.Contains(line, marker)
			continue
		}
		if line == "}" {
			break
		}
		if match := fieldComment.FindStringSubmatch(line); match != nil {
			names = append(names, match[1])
		}
	}
	return names
}

func wireFieldNames(fields []*schema.Field) []string {
	var names []string
	for _, field := range fields {
		if field.Wire {
			names = append(names, codegen.SafeName(field.Name))
		}
	}
	return names
}

func TestFieldOrder(t *testing.T) {
	mod := compileModule(t, queryColorsXML)
	result, err := codegen.Generate(mod)
	testutil.AssertNoError(t, err)
	source := string(result.Source)

	req := mod.Requests()[0]
	testutil.ExpectSliceEq(t,
		wireFieldNames(req.Fields),
		copiedFields(source, "XProto::QueryColors("))
	testutil.ExpectSliceEq(t,
		wireFieldNames(req.Reply.Fields),
		copiedFields(source, "detail::ReadReply<"))
}

func TestHeaderPath(t *testing.T) {
	result := generate(t, queryColorsXML, codegen.WithHeaderPath("ui/gfx/x/generated/xproto.h"))
	testutil.ExpectContains(t, ""+
		"#ifndef UI_GFX_X_GENERATED_XPROTO_H_\n"+
		"#define UI_GFX_X_GENERATED_XPROTO_H_\n",
		string(result.Header))
	testutil.ExpectTrue(t, strings.HasSuffix(string(result.Header),
		"#endif  // UI_GFX_X_GENERATED_XPROTO_H_\n"))
	testutil.ExpectContains(t, `#include "xproto.h"`, string(result.Source))
}

func TestExtensionRequest(t *testing.T) {
	result := generate(t, `<xcb header="shape" extension-xname="SHAPE"
	    extension-name="Shape" major-version="1" minor-version="1">
	  <request name="QueryVersion" opcode="0">
	    <reply>
	      <pad bytes="1" />
	      <field type="CARD16" name="major_version" />
	      <field type="CARD16" name="minor_version" />
	    </reply>
	  </request>
	</xcb>`)

	testutil.ExpectContains(t, ""+
		"class COMPONENT_EXPORT(X11) Shape {\n"+
		"  public:\n"+
		"  explicit Shape(XDisplay* display);\n",
		string(result.Header))
	testutil.ExpectContains(t, ""+
		"Future<Shape::QueryVersionReply>\n"+
		"Shape::QueryVersion(\n"+
		"    const Shape::QueryVersionRequest& request) {\n"+
		"  WriteBuffer buf;\n"+
		"\n"+
		"  // major_opcode\n"+
		"  // Caller fills in extension major opcode.\n"+
		"  Pad(&buf, sizeof(uint8_t));\n"+
		"\n"+
		"  // minor_opcode\n"+
		"  uint8_t minor_opcode = 0;\n"+
		"  Write(&minor_opcode, &buf);\n"+
		"\n"+
		"  // length\n"+
		"  // Caller fills in length for writes.\n"+
		"  Pad(&buf, sizeof(uint16_t));\n"+
		"\n"+
		"  return x11::SendRequest<Shape::QueryVersionReply>(display_, &buf);\n"+
		"}\n",
		string(result.Source))
}

func TestRequestWithoutReply(t *testing.T) {
	result := generate(t, `<xcb header="xproto">
	  <request name="NoOperation" opcode="127" />
	</xcb>`)

	testutil.ExpectContains(t, ""+
		"  using NoOperationResponse = Response<void>;\n"+
		"\n"+
		"  Future<void> NoOperation(\n"+
		"      const NoOperationRequest& request);\n",
		string(result.Header))
	testutil.ExpectContains(t,
		"  return x11::SendRequest<void>(display_, &buf);",
		string(result.Source))
	testutil.ExpectFalse(t, strings.Contains(string(result.Source), "ReadReply"))
}

const switchXML = `<xcb header="xproto">
  <enum name="CW">
    <item name="BackPixel"><bit>1</bit></item>
    <item name="BorderPixel"><bit>3</bit></item>
  </enum>
  <request name="ChangeWindowAttributes" opcode="2">
    <pad bytes="1" />
    <field type="CARD32" name="window" />
    <field type="CARD32" name="value_mask" />
    <switch name="value_list">
      <fieldref>value_mask</fieldref>
      <%[1]s>
        <enumref ref="CW">BackPixel</enumref>
        <field type="CARD32" name="background_pixel" />
      </%[1]s>
      <%[1]s>
        <enumref ref="CW">BorderPixel</enumref>
        <field type="CARD32" name="border_pixel" />
      </%[1]s>
    </switch>
  </request>
</xcb>`

func TestSwitchBitcase(t *testing.T) {
	result := generate(t, strings.ReplaceAll(switchXML, "%[1]s", "bitcase"))

	testutil.ExpectContains(t, ""+
		"  enum class CW {\n"+
		"#ifdef BackPixel\n"+
		"#undef BackPixel\n"+
		"#endif\n"+
		"    BackPixel = 1 << 1,\n",
		string(result.Header))
	testutil.ExpectContains(t, ""+
		"  struct ChangeWindowAttributesRequest {\n"+
		"    uint32_t window{};\n"+
		"    uint32_t value_mask{};\n"+
		"    struct {\n"+
		"      uint32_t background_pixel{};\n"+
		"      uint32_t border_pixel{};\n"+
		"    } value_list;\n"+
		"  };\n",
		string(result.Header))
	testutil.ExpectContains(t, ""+
		"  // value_list\n"+
		"  {\n"+
		"    auto& background_pixel = value_list.background_pixel;\n"+
		"    auto& border_pixel = value_list.border_pixel;\n"+
		"\n"+
		"    auto value_list_expr = value_mask;\n"+
		"    if (CaseAnd(value_list_expr, CW::BackPixel)) {\n"+
		"      // background_pixel\n"+
		"      Write(&background_pixel, &buf);\n"+
		"    }\n"+
		"    if (CaseAnd(value_list_expr, CW::BorderPixel)) {\n"+
		"      // border_pixel\n"+
		"      Write(&border_pixel, &buf);\n"+
		"    }\n"+
		"  }\n",
		string(result.Source))
}

func TestSwitchCase(t *testing.T) {
	result := generate(t, strings.ReplaceAll(switchXML, "%[1]s", "case"))
	source := string(result.Source)

	testutil.ExpectContains(t, "    if (CaseEq(value_list_expr, CW::BackPixel)) {", source)
	testutil.ExpectContains(t, "    if (CaseEq(value_list_expr, CW::BorderPixel)) {", source)
	testutil.ExpectFalse(t, strings.Contains(source, "CaseAnd"))
}

func badSwitchModule(branch *schema.Case) *schema.Module {
	card32 := &schema.Simple{Name: schema.Name{"uint32_t"}}
	req := &schema.Request{
		Name:   schema.Name{"xcb", "Bad"},
		Opcode: 1,
		Fields: []*schema.Field{
			{Name: "mask", Type: card32, Wire: true, Visible: true},
			{
				Name: "value_list",
				Type: &schema.Switch{
					Name:  schema.Name{"xcb", "Bad", "value_list"},
					Expr:  &schema.FieldRef{Name: "mask"},
					Cases: []*schema.Field{{Name: "", Type: branch, Wire: true, Visible: true}},
				},
				Wire:    true,
				Visible: true,
			},
		},
	}
	return &schema.Module{
		Header: "bad",
		Decls:  []schema.Decl{{Name: req.Name, Type: req}},
	}
}

func TestGenerateErrors(t *testing.T) {
	t.Run("case and bitcase", func(t *testing.T) {
		mod := badSwitchModule(&schema.Case{
			IsCase:    true,
			IsBitcase: true,
			Exprs:     []schema.Expr{&schema.Value{Value: 1}},
		})
		result, err := codegen.Generate(mod)
		testutil.ExpectErrorCode(t, 5003, err)
		testutil.ExpectTrue(t, result == nil)
	})
	t.Run("neither case nor bitcase", func(t *testing.T) {
		mod := badSwitchModule(&schema.Case{
			Exprs: []schema.Expr{&schema.Value{Value: 1}},
		})
		_, err := codegen.Generate(mod)
		testutil.ExpectErrorCode(t, 5003, err)
	})
	t.Run("no selector expressions", func(t *testing.T) {
		mod := badSwitchModule(&schema.Case{IsBitcase: true})
		_, err := codegen.Generate(mod)
		testutil.ExpectErrorCode(t, 5004, err)
	})
	t.Run("fixed list of one", func(t *testing.T) {
		mod := compileModule(t, `<xcb header="xproto">
		  <struct name="S">
		    <list type="CARD8" name="one"><value>1</value></list>
		  </struct>
		</xcb>`)
		_, err := codegen.Generate(mod)
		testutil.AssertError(t, err)
		testutil.ExpectErrorCode(t, 5005, err)
		testutil.ExpectEq(t, "E5005: S.one: Fixed list has invalid element count 1", err.Error())
	})
	t.Run("unbound sum", func(t *testing.T) {
		mod := compileModule(t, `<xcb header="xproto">
		  <request name="R" opcode="1">
		    <list type="CARD8" name="data">
		      <sumof ref="nope" />
		    </list>
		  </request>
		</xcb>`)
		_, err := codegen.Generate(mod)
		testutil.AssertError(t, err)
		testutil.ExpectErrorCode(t, 5001, err)
		testutil.ExpectEq(t, `E5001: R.data: Name "nope" is not bound in this scope`, err.Error())
	})
}
