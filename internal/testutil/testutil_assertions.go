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
	"errors"
	"regexp"
	"slices"
	"strings"
	"testing"

	"github.com/pmezard/go-difflib/difflib"
)

func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("Expected (err != nil), got: nil")
	}
}

func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("Expected (err == nil), got: %v", err)
	}
}

func AssertTrue(t *testing.T, cond bool) {
	t.Helper()
	if !cond {
		t.Fatalf("Expected (true), got: %v", cond)
	}
}

func AssertEq[T comparable](t *testing.T, want, got T) {
	t.Helper()
	if want != got {
		t.Fatalf("Expected %v, got: %v", want, got)
	}
}

func ExpectNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Errorf("Expected (err == nil), got: %v", err)
	}
}

func ExpectTrue(t *testing.T, cond bool) {
	t.Helper()
	if !cond {
		t.Errorf("Expected (true), got: %v", cond)
	}
}

func ExpectFalse(t *testing.T, cond bool) {
	t.Helper()
	if cond {
		t.Errorf("Expected (false), got: %v", cond)
	}
}

func ExpectEq[T comparable](t *testing.T, want, got T) {
	t.Helper()
	if want != got {
		t.Errorf("Expected %v, got: %v", want, got)
	}
}

func ExpectSliceEq[E comparable, S ~[]E](t *testing.T, want, got S) {
	t.Helper()
	if !slices.Equal(want, got) {
		t.Errorf("Expected %#v, got: %#v", want, got)
	}
}

func ExpectMatch[P *regexp.Regexp | string](t *testing.T, want P, got string) {
	t.Helper()
	var pattern *regexp.Regexp
	if p, ok := any(want).(*regexp.Regexp); ok {
		pattern = p
	} else {
		pattern = regexp.MustCompile(any(want).(string))
	}
	if !pattern.MatchString(got) {
		t.Errorf("Expected (match %q), got: %q", pattern.String(), got)
	}
}

// ExpectErrorCode checks that err wraps a coded diagnostic (any type with a
// Code() uint32 method) carrying the given code.
func ExpectErrorCode(t *testing.T, code uint32, err error) {
	t.Helper()
	var coded interface {
		error
		Code() uint32
	}
	if !errors.As(err, &coded) {
		t.Errorf("Expected error with code %d, got: %v", code, err)
		return
	}
	if coded.Code() != code {
		t.Errorf("Expected error code %d, got: %v", code, err)
	}
}

func ExpectNoDiff(t *testing.T, want, got string) {
	t.Helper()
	diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(want),
		B:        difflib.SplitLines(got),
		FromFile: "want",
		ToFile:   "got",
		Context:  5,
	})
	if diff != "" {
		t.Error(diff)
	}
}

// ExpectContains checks that want occurs in got as a run of whole lines. On
// failure the diff is taken against the region of got that shares the most
// lines with want.
func ExpectContains(t *testing.T, want, got string) {
	t.Helper()
	want = strings.TrimSuffix(want, "\n") + "\n"
	if strings.HasPrefix(got, want) || strings.Contains(got, "\n"+want) {
		return
	}

	wantLines := difflib.SplitLines(want)
	gotLines := difflib.SplitLines(got)
	matcher := difflib.NewMatcher(wantLines, gotLines)
	start, end := 0, len(gotLines)
	if blocks := matcher.GetMatchingBlocks(); len(blocks) > 1 {
		first := blocks[0]
		last := blocks[len(blocks)-2]
		start = max(0, first.B-first.A)
		end = min(len(gotLines), last.B+last.Size+(len(wantLines)-last.A-last.Size))
		if end < start {
			start, end = 0, len(gotLines)
		}
	}
	diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        wantLines,
		B:        gotLines[start:end],
		FromFile: "want",
		ToFile:   "got",
		Context:  5,
	})
	t.Errorf("Expected output to contain fragment:\n%s", diff)
}
