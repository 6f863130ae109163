// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"fmt"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Text directives call the Starlark string method of the same purpose on
// the item, so their behaviour and errors match the expression form.
func registerText() {
	text := func(name string) Arg { return Arg{name, ArgText} }
	register(
		&Directive{Name: "%strip", Kind: KindItem, Summary: "i.strip()", build: method("strip")},
		&Directive{Name: "%lstrip", Kind: KindItem, Summary: "i.lstrip()", build: method("lstrip")},
		&Directive{Name: "%rstrip", Kind: KindItem, Summary: "i.rstrip()", build: method("rstrip")},
		&Directive{Name: "%strip-chars", Kind: KindItem, Args: []Arg{text("chars")},
			Summary: "i.strip(CHARS)", build: method("strip")},
		&Directive{Name: "%lstrip-chars", Kind: KindItem, Args: []Arg{text("chars")},
			Summary: "i.lstrip(CHARS)", build: method("lstrip")},
		&Directive{Name: "%rstrip-chars", Kind: KindItem, Args: []Arg{text("chars")},
			Summary: "i.rstrip(CHARS)", build: method("rstrip")},
		&Directive{Name: "%upper", Kind: KindItem, Summary: "i.upper()", build: method("upper")},
		&Directive{Name: "%lower", Kind: KindItem, Summary: "i.lower()", build: method("lower")},
		&Directive{Name: "%title", Kind: KindItem, Summary: "i.title()", build: method("title")},
		&Directive{Name: "%capitalize", Kind: KindItem, Summary: "i.capitalize()", build: method("capitalize")},
		&Directive{Name: "%split", Kind: KindItem, Summary: "i.split()", build: method("split")},
		&Directive{Name: "%split-on", Kind: KindItem, Args: []Arg{text("sep")},
			Summary: "i.split(SEP)", build: method("split")},
		&Directive{Name: "%replace", Kind: KindItem, Args: []Arg{text("old"), text("new")},
			Summary: "i.replace(OLD, NEW)", build: method("replace")},
		&Directive{Name: "%partition", Kind: KindItem, Args: []Arg{text("sep")},
			Summary: "i.partition(SEP)", build: method("partition")},
		&Directive{Name: "%rpartition", Kind: KindItem, Args: []Arg{text("sep")},
			Summary: "i.rpartition(SEP)", build: method("rpartition")},
		&Directive{Name: "%join", Kind: KindItem, Args: []Arg{text("sep")},
			Summary: "SEP.join(i)", build: buildJoin},
		&Directive{Name: "%prefix", Kind: KindItem, Args: []Arg{text("text")},
			Summary: "TEXT + i", build: buildAffix(true)},
		&Directive{Name: "%suffix", Kind: KindItem, Args: []Arg{text("text")},
			Summary: "i + TEXT", build: buildAffix(false)},
	)
}

// method builds an operation calling item.name(args...).
func method(name string) func(*compiler, *Operation) error {
	return func(_ *compiler, op *Operation) error {
		args := make(starlark.Tuple, len(op.Args))
		for i, a := range op.Args {
			args[i] = starlark.String(a.(string))
		}
		op.apply = func(rt *runtime, item starlark.Value, _ int) (starlark.Value, bool, error) {
			s, ok := item.(starlark.String)
			if !ok {
				return nil, false, fmt.Errorf("%s: got %s, want string", op.Directive, item.Type())
			}
			m, err := s.Attr(name)
			if err != nil {
				return nil, false, err
			}
			v, err := starlark.Call(rt.thread, m, args, nil)
			return v, true, err
		}
		return nil
	}
}

func buildJoin(_ *compiler, op *Operation) error {
	join, err := starlark.String(op.Args[0].(string)).Attr("join")
	if err != nil {
		return err
	}
	op.apply = func(rt *runtime, item starlark.Value, _ int) (starlark.Value, bool, error) {
		v, err := starlark.Call(rt.thread, join, starlark.Tuple{item}, nil)
		return v, true, err
	}
	return nil
}

func buildAffix(prefix bool) func(*compiler, *Operation) error {
	return func(_ *compiler, op *Operation) error {
		affix := starlark.String(op.Args[0].(string))
		op.apply = func(_ *runtime, item starlark.Value, _ int) (starlark.Value, bool, error) {
			var v starlark.Value
			var err error
			if prefix {
				v, err = starlark.Binary(syntax.PLUS, affix, item)
			} else {
				v, err = starlark.Binary(syntax.PLUS, item, affix)
			}
			return v, true, err
		}
		return nil
	}
}
