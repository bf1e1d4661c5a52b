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

package testutil

import (
	"bytes"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Case is one generator test read from a Markdown corpus file. A case
// starts at a "Test: <name>" heading and holds one ```xml fence with the
// protocol description, plus ```h and ```cc fences with fragments expected
// in the generated header and source, or an ```error fence with the
// expected error text.
type Case struct {
	Name   string
	File   string
	Line   int
	Input  string
	Header []string
	Source []string
	Error  string
}

const (
	fenceInput  = "xml"
	fenceHeader = "h"
	fenceSource = "cc"
	fenceError  = "error"
)

// LoadCases reads every *.md file at the top of fsys.
func LoadCases(fsys fs.FS) ([]*Case, error) {
	paths, err := fs.Glob(fsys, "*.md")
	if err != nil {
		return nil, err
	}
	var cases []*Case
	for _, p := range paths {
		src, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, err
		}
		fileCases, err := ParseCases(path.Base(p), src)
		if err != nil {
			return nil, err
		}
		cases = append(cases, fileCases...)
	}
	return cases, nil
}

func ParseCases(file string, src []byte) ([]*Case, error) {
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var cases []*Case
	var current *Case
	finish := func() error {
		if current == nil {
			return nil
		}
		if current.Input == "" {
			return fmt.Errorf("%s:%d: test %q has no xml fence", file, current.Line, current.Name)
		}
		if len(current.Header) == 0 && len(current.Source) == 0 && current.Error == "" {
			return fmt.Errorf("%s:%d: test %q has no expectations", file, current.Line, current.Name)
		}
		cases = append(cases, current)
		return nil
	}

	err := ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := node.(type) {
		case *ast.Heading:
			heading := nodeText(node, src)
			name, ok := strings.CutPrefix(heading, "Test: ")
			if !ok {
				return ast.WalkContinue, nil
			}
			if err := finish(); err != nil {
				return ast.WalkStop, err
			}
			current = &Case{
				Name: strings.TrimSpace(name),
				File: file,
				Line: lineOf(node, src),
			}
		case *ast.FencedCodeBlock:
			language := string(node.Language(src))
			if current == nil {
				if language != "" {
					return ast.WalkStop, fmt.Errorf(
						"%s:%d: %s fence outside of a test",
						file, lineOf(node, src), language,
					)
				}
				return ast.WalkContinue, nil
			}
			content := fenceText(node, src)
			switch language {
			case fenceInput:
				if current.Input != "" {
					return ast.WalkStop, fmt.Errorf(
						"%s:%d: test %q has more than one xml fence",
						file, lineOf(node, src), current.Name,
					)
				}
				current.Input = content
			case fenceHeader:
				current.Header = append(current.Header, content)
			case fenceSource:
				current.Source = append(current.Source, content)
			case fenceError:
				current.Error = strings.TrimSpace(content)
			default:
				return ast.WalkStop, fmt.Errorf(
					"%s:%d: unknown fence language %q in test %q",
					file, lineOf(node, src), language, current.Name,
				)
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}
	if err := finish(); err != nil {
		return nil, err
	}
	return cases, nil
}

func nodeText(node ast.Node, src []byte) string {
	var buf bytes.Buffer
	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if text, ok := n.(*ast.Text); ok && entering {
			buf.Write(text.Segment.Value(src))
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}

func fenceText(block *ast.FencedCodeBlock, src []byte) string {
	var buf bytes.Buffer
	lines := block.Lines()
	for ii := 0; ii < lines.Len(); ii++ {
		line := lines.At(ii)
		buf.Write(line.Value(src))
	}
	return buf.String()
}

func lineOf(node ast.Node, src []byte) int {
	offset := 0
	if lines := node.Lines(); lines != nil && lines.Len() > 0 {
		offset = lines.At(0).Start
	}
	return bytes.Count(src[:min(offset, len(src))], []byte("\n")) + 1
}
