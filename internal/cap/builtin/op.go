// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package builtin

import (
	"fmt"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/marcelocantos/starpipe/internal/expr"
)

// Op exposes Starlark operators as functions, for use with reduce, map
// and it.accumulate.
var Op = newModule("op", starlark.StringDict{
	"add":        binary("op.add", syntax.PLUS),
	"sub":        binary("op.sub", syntax.MINUS),
	"mul":        binary("op.mul", syntax.STAR),
	"truediv":    binary("op.truediv", syntax.SLASH),
	"floordiv":   binary("op.floordiv", syntax.SLASHSLASH),
	"mod":        binary("op.mod", syntax.PERCENT),
	"and_":       binary("op.and_", syntax.AMP),
	"or_":        binary("op.or_", syntax.PIPE),
	"xor":        binary("op.xor", syntax.CIRCUMFLEX),
	"eq":         compare("op.eq", syntax.EQL),
	"ne":         compare("op.ne", syntax.NEQ),
	"lt":         compare("op.lt", syntax.LT),
	"le":         compare("op.le", syntax.LE),
	"gt":         compare("op.gt", syntax.GT),
	"ge":         compare("op.ge", syntax.GE),
	"neg":        starlark.NewBuiltin("op.neg", opNeg),
	"not_":       starlark.NewBuiltin("op.not_", opNot),
	"truth":      starlark.NewBuiltin("op.truth", opTruth),
	"contains":   starlark.NewBuiltin("op.contains", opContains),
	"getitem":    starlark.NewBuiltin("op.getitem", opGetitem),
	"itemgetter": starlark.NewBuiltin("op.itemgetter", opItemgetter),
})

func binary(name string, tok syntax.Token) *starlark.Builtin {
	return starlark.NewBuiltin(name, func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var x, y starlark.Value
		if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 2, &x, &y); err != nil {
			return nil, err
		}
		return starlark.Binary(tok, x, y)
	})
}

func compare(name string, tok syntax.Token) *starlark.Builtin {
	return starlark.NewBuiltin(name, func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var x, y starlark.Value
		if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 2, &x, &y); err != nil {
			return nil, err
		}
		ok, err := starlark.Compare(tok, x, y)
		if err != nil {
			return nil, err
		}
		return starlark.Bool(ok), nil
	})
}

func opNeg(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var x starlark.Value
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &x); err != nil {
		return nil, err
	}
	return starlark.Unary(syntax.MINUS, x)
}

func opNot(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var x starlark.Value
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &x); err != nil {
		return nil, err
	}
	return !x.Truth(), nil
}

func opTruth(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var x starlark.Value
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &x); err != nil {
		return nil, err
	}
	return x.Truth(), nil
}

// opContains is contains(a, b), i.e. b in a.
func opContains(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var a, x starlark.Value
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 2, &a, &x); err != nil {
		return nil, err
	}
	return starlark.Binary(syntax.IN, x, a)
}

func opGetitem(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var x, k starlark.Value
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 2, &x, &k); err != nil {
		return nil, err
	}
	return expr.GetItem(x, k)
}

// opItemgetter returns a function fetching one key, or a tuple of keys
// when given several.
func opItemgetter(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(kwargs) > 0 {
		return nil, fmt.Errorf("%s: unexpected keyword arguments", b.Name())
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("%s: expected at least one key", b.Name())
	}
	keys := append(starlark.Tuple(nil), args...)
	return starlark.NewBuiltin("itemgetter", func(_ *starlark.Thread, g *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var x starlark.Value
		if err := starlark.UnpackPositionalArgs(g.Name(), args, kwargs, 1, &x); err != nil {
			return nil, err
		}
		if len(keys) == 1 {
			return expr.GetItem(x, keys[0])
		}
		out := make(starlark.Tuple, len(keys))
		for i, k := range keys {
			v, err := expr.GetItem(x, k)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	}), nil
}
