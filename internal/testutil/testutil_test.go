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

package testutil_test

import (
	"testing"
	"testing/fstest"

	"go.x11gen.dev/xprotogen/internal/testutil"
)

const corpus = "# Generator cases\n" +
	"\n" +
	"Free text and unlabeled fences are allowed:\n" +
	"\n" +
	"```\n" +
	"not a test\n" +
	"```\n" +
	"\n" +
	"## Test: first\n" +
	"\n" +
	"```xml\n" +
	"<xcb header=\"a\"/>\n" +
	"```\n" +
	"\n" +
	"```h\n" +
	"struct A {\n" +
	"};\n" +
	"```\n" +
	"\n" +
	"```cc\n" +
	"// x\n" +
	"```\n" +
	"\n" +
	"## Test: second\n" +
	"\n" +
	"```xml\n" +
	"<xcb header=\"b\"/>\n" +
	"```\n" +
	"\n" +
	"```error\n" +
	"E5000: boom\n" +
	"```\n"

func TestParseCases(t *testing.T) {
	cases, err := testutil.ParseCases("corpus.md", []byte(corpus))
	testutil.AssertNoError(t, err)
	testutil.ExpectEq(t, 2, len(cases))

	first := cases[0]
	testutil.ExpectEq(t, "first", first.Name)
	testutil.ExpectEq(t, "<xcb header=\"a\"/>\n", first.Input)
	testutil.ExpectSliceEq(t, []string{"struct A {\n};\n"}, first.Header)
	testutil.ExpectSliceEq(t, []string{"// x\n"}, first.Source)
	testutil.ExpectEq(t, "", first.Error)

	second := cases[1]
	testutil.ExpectEq(t, "second", second.Name)
	testutil.ExpectEq(t, "E5000: boom", second.Error)
	testutil.ExpectEq(t, 0, len(second.Header))
}

func TestParseCasesErrors(t *testing.T) {
	tests := map[string]string{
		"no input":       "## Test: x\n\n```h\nfoo\n```\n",
		"no expectation": "## Test: x\n\n```xml\n<xcb/>\n```\n",
		"unknown fence":  "## Test: x\n\n```xml\n<xcb/>\n```\n\n```py\n1\n```\n",
		"outside":        "```xml\n<xcb/>\n```\n",
		"two inputs":     "## Test: x\n\n```xml\n<xcb/>\n```\n\n```xml\n<xcb/>\n```\n",
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := testutil.ParseCases("bad.md", []byte(src))
			testutil.AssertError(t, err)
		})
	}
}

func TestLoadCases(t *testing.T) {
	fsys := fstest.MapFS{
		"a.md":     {Data: []byte(corpus)},
		"skip.txt": {Data: []byte("## Test: ignored\n")},
	}
	cases, err := testutil.LoadCases(fsys)
	testutil.AssertNoError(t, err)
	testutil.ExpectEq(t, 2, len(cases))
	testutil.ExpectEq(t, "a.md", cases[0].File)
}

func TestExpectContains(t *testing.T) {
	got := "one\ntwo\nthree\n"
	testutil.ExpectContains(t, "two\nthree", got)
	testutil.ExpectContains(t, "one\n", got)
	testutil.ExpectContains(t, "three\n", got)
}
