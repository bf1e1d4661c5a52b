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
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.uber.org/zap"

	"go.x11gen.dev/xprotogen/schema"
	"go.x11gen.dev/xprotogen/syntax"
)

// ModuleSet holds compiled modules by header name, for use as the
// dependencies of another compilation.
type ModuleSet struct {
	headers []string
	modules map[string]*schema.Module
	decls   map[string]map[string]schema.Type
}

func NewModuleSet() *ModuleSet {
	return &ModuleSet{
		modules: make(map[string]*schema.Module),
		decls:   make(map[string]map[string]schema.Type),
	}
}

// Add registers a module. A later module with the same header replaces the
// earlier one.
func (s *ModuleSet) Add(mod *schema.Module) {
	if _, ok := s.modules[mod.Header]; !ok {
		s.headers = append(s.headers, mod.Header)
	}
	s.modules[mod.Header] = mod
	decls := make(map[string]schema.Type, len(mod.Decls))
	for _, decl := range mod.Decls {
		decls[decl.Name.Last()] = decl.Type
	}
	s.decls[mod.Header] = decls
}

func (s *ModuleSet) Get(header string) *schema.Module {
	return s.modules[header]
}

// Headers returns the registered header names in the order they were added.
func (s *ModuleSet) Headers() []string {
	return slices.Clone(s.headers)
}

func (s *ModuleSet) Merge(other *ModuleSet) {
	for _, header := range other.headers {
		s.Add(other.modules[header])
	}
}

func (s *ModuleSet) types(header string) map[string]schema.Type {
	return s.decls[header]
}

type LoadOption interface {
	apply(*LoadOptions)
}

type loadOption func(*LoadOptions)

func (f loadOption) apply(opts *LoadOptions) { f(opts) }

type LoadOptions struct {
	searchPath []string
	sysroot    string
	deps       *ModuleSet
}

// WithSearchPath adds directories searched for imported modules, after the
// directory of the importing file.
func WithSearchPath(dirs ...string) LoadOption {
	return loadOption(func(opts *LoadOptions) {
		opts.searchPath = append(opts.searchPath, dirs...)
	})
}

// WithSysroot adds <sysroot>/usr/share/xcb to the end of the search path.
func WithSysroot(sysroot string) LoadOption {
	return loadOption(func(opts *LoadOptions) {
		opts.sysroot = sysroot
	})
}

// WithPreloaded makes already compiled modules available to <import> without
// reading their files.
func WithPreloaded(deps *ModuleSet) LoadOption {
	return loadOption(func(opts *LoadOptions) {
		opts.deps = deps
	})
}

type LoadResult struct {
	Module   *schema.Module
	Modules  *ModuleSet
	Warnings []*FileWarning
}

// A FileWarning is a compiler warning with the file it was found in.
type FileWarning struct {
	*Warning
	Path string
	Src  []byte
}

// LoadError reports the diagnostics of the first file that failed to parse
// or compile. Errors holds *syntax.Error and *Error values.
type LoadError struct {
	Path   string
	Src    []byte
	Errors []error
}

func (err *LoadError) Error() string {
	var buf strings.Builder
	for ii, e := range err.Errors {
		if ii > 0 {
			buf.WriteString("\n")
		}
		fmt.Fprintf(&buf, "%s: %v", err.Path, e)
	}
	return buf.String()
}

func (err *LoadError) Unwrap() []error {
	return err.Errors
}

// Load reads, parses and compiles the module at path along with everything
// it imports. Imports are looked up as <header>.xml in the directory of the
// importing file, then the search path.
func Load(path string, opts ...LoadOption) (*LoadResult, error) {
	loadOpts := &LoadOptions{}
	for _, opt := range opts {
		opt.apply(loadOpts)
	}
	l := &loader{
		opts: loadOpts,
		set:  NewModuleSet(),
	}
	if loadOpts.deps != nil {
		l.set.Merge(loadOpts.deps)
	}
	mod, err := l.load(path)
	if err != nil {
		return nil, err
	}
	return &LoadResult{
		Module:   mod,
		Modules:  l.set,
		Warnings: l.warnings,
	}, nil
}

type loader struct {
	opts     *LoadOptions
	set      *ModuleSet
	active   []string
	warnings []*FileWarning
}

func (l *loader) searchDirs(path string) []string {
	dirs := []string{filepath.Dir(path)}
	dirs = append(dirs, l.opts.searchPath...)
	if l.opts.sysroot != "" {
		dirs = append(dirs, filepath.Join(l.opts.sysroot, "usr", "share", "xcb"))
	}
	return dirs
}

func (l *loader) findImport(path, header string) (string, bool) {
	for _, dir := range l.searchDirs(path) {
		candidate := filepath.Join(dir, header+".xml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}
	}
	return "", false
}

func (l *loader) load(path string) (*schema.Module, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	root, err := syntax.Parse(src)
	if err != nil {
		return nil, &LoadError{Path: path, Src: src, Errors: []error{err}}
	}

	header := root.AttrOr("header", "")
	l.active = append(l.active, header)
	defer func() { l.active = l.active[:len(l.active)-1] }()

	for node := range root.Elements("import") {
		imported := node.Text
		if slices.Contains(l.active, imported) {
			chain := append(slices.Clone(l.active), imported)
			return nil, &LoadError{
				Path:   path,
				Src:    src,
				Errors: []error{errImportCycle(chain, node.Span())},
			}
		}
		if l.set.Get(imported) != nil {
			continue
		}
		importPath, ok := l.findImport(path, imported)
		if !ok {
			return nil, &LoadError{
				Path: path,
				Src:  src,
				Errors: []error{
					errImportNotFound(imported, l.searchDirs(path), node.Span()),
				},
			}
		}
		Logger().Debug(
			"loading import",
			zap.String("from", header),
			zap.String("import", imported),
			zap.String("path", importPath),
		)
		if _, err := l.load(importPath); err != nil {
			return nil, err
		}
	}

	result := Compile(
		root,
		WithDependencies(l.set),
		WithSourcePath(strings.Split(filepath.ToSlash(path), "/")),
	)
	for _, w := range result.Warnings {
		l.warnings = append(l.warnings, &FileWarning{
			Warning: w,
			Path:    path,
			Src:     src,
		})
	}
	if len(result.Errors) > 0 {
		errs := make([]error, 0, len(result.Errors))
		for _, e := range result.Errors {
			errs = append(errs, e)
		}
		return nil, &LoadError{Path: path, Src: src, Errors: errs}
	}
	l.set.Add(result.Module)
	return result.Module, nil
}
