// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"sort"
	"strings"
)

// Arg declares one positional argument of a directive.
type Arg struct {
	Name string
	Kind ArgKind
}

// Directive is an entry in the closed table of built-in stages.
type Directive struct {
	Name    string // including the sigil
	Kind    Kind
	Args    []Arg
	Summary string

	build func(c *compiler, op *Operation) error
}

// MinArgs and MaxArgs bound the argument tokens a directive consumes.
// Every built-in takes a fixed number.
func (d *Directive) MinArgs() int { return len(d.Args) }
func (d *Directive) MaxArgs() int { return len(d.Args) }

// Usage renders the directive with its argument names, e.g.
// "%replace OLD NEW".
func (d *Directive) Usage() string {
	s := d.Name
	for _, a := range d.Args {
		s += " " + strings.ToUpper(a.Name)
	}
	return s
}

var (
	exprArg  = Arg{"expr", ArgExpr}
	countArg = Arg{"n", ArgInt}
)

var directives = map[string]*Directive{}

func register(ds ...*Directive) {
	for _, d := range ds {
		directives[d.Name] = d
	}
}

func init() {
	register(
		&Directive{Name: "%filter", Kind: KindItem, Args: []Arg{exprArg},
			Summary: "keep items for which the expression is truthy", build: buildFilter(true)},
		&Directive{Name: "%filter-false", Kind: KindItem, Args: []Arg{exprArg},
			Summary: "keep items for which the expression is falsy", build: buildFilter(false)},
		&Directive{Name: "%exec", Kind: KindItem, Args: []Arg{{"statements", ArgExpr}},
			Summary: "run statements and bind their names for later stages; items pass through", build: buildExec},
		&Directive{Name: "%try", Kind: KindItem, Args: []Arg{exprArg, {"fallback", ArgExpr}},
			Summary: "evaluate expr; on error evaluate fallback with e bound to the message", build: buildTry},
		&Directive{Name: "%get", Kind: KindItem, Args: []Arg{{"key", ArgValue}},
			Summary: "index or key lookup; the key is parsed as JSON when it can be", build: buildGet},
		&Directive{Name: "%json", Kind: KindItem,
			Summary: "decode text as JSON, encode anything else", build: buildCodec(jsonCodec)},
		&Directive{Name: "%yaml", Kind: KindItem,
			Summary: "decode text as YAML, encode anything else", build: buildCodec(yamlCodec)},
		&Directive{Name: "%str", Kind: KindItem, Summary: "convert to a string", build: buildCast("str")},
		&Directive{Name: "%int", Kind: KindItem, Summary: "convert to an int", build: buildCast("int")},
		&Directive{Name: "%float", Kind: KindItem, Summary: "convert to a float", build: buildCast("float")},
		&Directive{Name: "%list", Kind: KindItem, Summary: "convert to a list; text becomes its characters", build: buildCast("list")},
		&Directive{Name: "%dict", Kind: KindItem, Summary: "convert a mapping or a sequence of pairs to a dict", build: buildCast("dict")},
		&Directive{Name: "%rev", Kind: KindItem, Summary: "reverse a string, list or tuple", build: buildRev},
	)
	registerText()
	registerStream()
}

// LookupDirective returns the directive with the given name.
func LookupDirective(name string) (*Directive, bool) {
	d, ok := directives[name]
	return d, ok
}

// Directives returns every directive sorted by name.
func Directives() []*Directive {
	ds := make([]*Directive, 0, len(directives))
	for _, d := range directives {
		ds = append(ds, d)
	}
	sort.Slice(ds, func(i, j int) bool { return ds[i].Name < ds[j].Name })
	return ds
}
