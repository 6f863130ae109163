// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package expr

import (
	"slices"
	"strings"

	"go.starlark.net/resolve"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Ref is a free reference found in source text: a top-level name and the
// attribute chain selected from it, e.g. [re sub] for re.sub(...).
type Ref struct {
	Path []string
	Pos  syntax.Position
}

// ExprRefs parses src as an expression and returns its free references.
// Names in local are bound by the caller and are not free.
func ExprRefs(filename, src string, local ...string) ([]Ref, error) {
	e, err := FileOptions.ParseExpr(filename, src, 0)
	if err != nil {
		return nil, err
	}
	if _, err := resolve.ExprOptions(FileOptions, e, anyName, isUniversal); err != nil {
		return nil, err
	}
	return collectRefs(e, local), nil
}

// StmtRefs parses src as a block of statements and returns its free
// references along with the top-level names it binds.
func StmtRefs(filename, src string, local ...string) (refs []Ref, binds []string, err error) {
	f, err := FileOptions.Parse(filename, src, 0)
	if err != nil {
		return nil, nil, err
	}
	if err := resolve.File(f, anyName, isUniversal); err != nil {
		return nil, nil, err
	}
	if m, ok := f.Module.(*resolve.Module); ok {
		for _, b := range m.Globals {
			if b.First != nil && !slices.Contains(binds, b.First.Name) {
				binds = append(binds, b.First.Name)
			}
		}
	}
	return collectRefs(f, local), binds, nil
}

// Every name is treated as predeclared during analysis so that free names
// can be found without knowing the catalog up front.
func anyName(string) bool { return true }

func isUniversal(name string) bool {
	return starlark.Universe.Has(name) || Builtins.Has(name)
}

func collectRefs(root syntax.Node, local []string) []Ref {
	var refs []Ref
	seen := map[string]bool{}
	add := func(id *syntax.Ident, path []string) {
		if !free(id) || slices.Contains(local, id.Name) || isUniversal(id.Name) {
			return
		}
		key := strings.Join(path, ".")
		if seen[key] {
			return
		}
		seen[key] = true
		start, _ := id.Span()
		refs = append(refs, Ref{Path: path, Pos: start})
	}
	syntax.Walk(root, func(n syntax.Node) bool {
		switch n := n.(type) {
		case *syntax.DotExpr:
			if id, path := dotted(n); id != nil {
				add(id, path)
				return false
			}
		case *syntax.Ident:
			add(n, []string{n.Name})
		}
		return true
	})
	return refs
}

// dotted unwinds a chain a.b.c to its root identifier and path.
func dotted(d *syntax.DotExpr) (*syntax.Ident, []string) {
	var names []string
	var x syntax.Expr = d
	for {
		switch e := x.(type) {
		case *syntax.DotExpr:
			names = append(names, e.Name.Name)
			x = e.X
			continue
		case *syntax.Ident:
			path := append([]string{e.Name}, reversedNames(names)...)
			return e, path
		}
		return nil, nil
	}
}

func reversedNames(names []string) []string {
	slices.Reverse(names)
	return names
}

func free(id *syntax.Ident) bool {
	b, ok := id.Binding.(*resolve.Binding)
	return ok && b.Scope == resolve.Predeclared
}

// Dotted returns the path in source form.
func (r Ref) Dotted() string { return strings.Join(r.Path, ".") }
