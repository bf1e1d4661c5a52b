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

package syntax

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"iter"
	"strings"
	"unicode/utf8"
)

const maxSrcLen = 16 * 1024 * 1024

type Span struct {
	start, len uint32
}

func (s *Span) Start() uint32 {
	return s.start
}

func (s *Span) End() uint32 {
	return s.start + s.len
}

func (s *Span) Len() uint32 {
	return s.len
}

type Attr struct {
	Name  string
	Value string
}

// Element is one XML element of a protocol description. Character data is
// collected into Text with surrounding whitespace removed.
type Element struct {
	Tag      string
	Attrs    []Attr
	Text     string
	Children []*Element
	span     Span
}

func (e *Element) Span() Span {
	return e.span
}

func (e *Element) Attr(name string) (string, bool) {
	for _, attr := range e.Attrs {
		if attr.Name == name {
			return attr.Value, true
		}
	}
	return "", false
}

// AttrOr returns the named attribute, or def if it is not set.
func (e *Element) AttrOr(name, def string) string {
	if value, ok := e.Attr(name); ok {
		return value
	}
	return def
}

// Elements yields the direct children with the given tag.
func (e *Element) Elements(tag string) iter.Seq[*Element] {
	return func(yield func(*Element) bool) {
		for _, child := range e.Children {
			if child.Tag != tag {
				continue
			}
			if !yield(child) {
				return
			}
		}
	}
}

// Parse reads an xcbproto document. The root element must be <xcb>.
// Comments, processing instructions and <doc> subtrees are discarded.
func Parse(src []uint8) (*Element, error) {
	if len(src) > maxSrcLen {
		return nil, errSourceTooLong(len(src))
	}
	if !utf8.Valid(src) {
		return nil, errInvalidUtf8(src)
	}

	decoder := xml.NewDecoder(bytes.NewReader(src))
	var root *Element
	var stack []*Element
	var text []*strings.Builder
	for {
		start := decoder.InputOffset()
		token, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errMalformedXML(uint32(decoder.InputOffset()), err)
		}

		switch token := token.(type) {
		case xml.StartElement:
			if token.Name.Local == "doc" {
				if err := decoder.Skip(); err != nil {
					return nil, errMalformedXML(uint32(decoder.InputOffset()), err)
				}
				continue
			}
			elem := &Element{
				Tag:  token.Name.Local,
				span: Span{start: uint32(start)},
			}
			for _, attr := range token.Attr {
				elem.Attrs = append(elem.Attrs, Attr{
					Name:  attr.Name.Local,
					Value: attr.Value,
				})
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, errMalformedXML(uint32(start), errors.New("multiple root elements"))
				}
				if elem.Tag != "xcb" {
					return nil, errUnexpectedRoot(elem.Tag, uint32(start))
				}
				root = elem
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, elem)
			}
			stack = append(stack, elem)
			text = append(text, &strings.Builder{})
		case xml.EndElement:
			elem := stack[len(stack)-1]
			elem.Text = strings.TrimSpace(text[len(text)-1].String())
			elem.span.len = uint32(decoder.InputOffset()) - elem.span.start
			stack = stack[:len(stack)-1]
			text = text[:len(text)-1]
		case xml.CharData:
			if len(text) > 0 {
				text[len(text)-1].Write(token)
			}
		}
	}

	if root == nil {
		return nil, errUnexpectedRoot("", 0)
	}
	return root, nil
}

// Position maps a byte offset in src to a 1-based line and column.
func Position(src []uint8, offset uint32) (line, col int) {
	line, col = 1, 1
	for ii, c := range src {
		if uint32(ii) >= offset {
			break
		}
		if c == '\n' {
			line += 1
			col = 1
		} else {
			col += 1
		}
	}
	return line, col
}
