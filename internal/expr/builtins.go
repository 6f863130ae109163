// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package expr

import (
	"fmt"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Builtins supplements the Starlark universe with the functional helpers
// pipeline authors expect. All of them return lists.
var Builtins = starlark.StringDict{
	"map":    starlark.NewBuiltin("map", mapFn),
	"filter": starlark.NewBuiltin("filter", filterFn),
	"reduce": starlark.NewBuiltin("reduce", reduceFn),
	"sum":    starlark.NewBuiltin("sum", sumFn),
}

func init() { Builtins.Freeze() }

// mapFn is map(fn, iterable, ...); with several iterables fn receives one
// argument from each and the result stops at the shortest.
func mapFn(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(kwargs) > 0 {
		return nil, fmt.Errorf("%s: unexpected keyword arguments", b.Name())
	}
	if len(args) < 2 {
		return nil, fmt.Errorf("%s: got %d arguments, want at least 2", b.Name(), len(args))
	}
	fn, ok := args[0].(starlark.Callable)
	if !ok {
		return nil, fmt.Errorf("%s: got %s, want callable", b.Name(), args[0].Type())
	}
	seqs := make([][]starlark.Value, len(args)-1)
	n := -1
	for i, a := range args[1:] {
		elems, err := Elements(a)
		if err != nil {
			return nil, fmt.Errorf("%s: %v", b.Name(), err)
		}
		seqs[i] = elems
		if n < 0 || len(elems) < n {
			n = len(elems)
		}
	}
	out := make([]starlark.Value, n)
	for j := range out {
		call := make(starlark.Tuple, len(seqs))
		for i := range seqs {
			call[i] = seqs[i][j]
		}
		v, err := starlark.Call(thread, fn, call, nil)
		if err != nil {
			return nil, err
		}
		out[j] = v
	}
	return starlark.NewList(out), nil
}

// filterFn is filter(fn, iterable); a None fn keeps truthy elements.
func filterFn(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var fn, seq starlark.Value
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 2, &fn, &seq); err != nil {
		return nil, err
	}
	elems, err := Elements(seq)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", b.Name(), err)
	}
	var out []starlark.Value
	for _, x := range elems {
		keep := x.Truth()
		if fn != starlark.None {
			callable, ok := fn.(starlark.Callable)
			if !ok {
				return nil, fmt.Errorf("%s: got %s, want callable or None", b.Name(), fn.Type())
			}
			v, err := starlark.Call(thread, callable, starlark.Tuple{x}, nil)
			if err != nil {
				return nil, err
			}
			keep = v.Truth()
		}
		if keep {
			out = append(out, x)
		}
	}
	return starlark.NewList(out), nil
}

func reduceFn(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var fn starlark.Callable
	var seq, initial starlark.Value
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 2, &fn, &seq, &initial); err != nil {
		return nil, err
	}
	elems, err := Elements(seq)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", b.Name(), err)
	}
	acc := initial
	if acc == nil {
		if len(elems) == 0 {
			return nil, fmt.Errorf("%s: empty sequence with no initial value", b.Name())
		}
		acc, elems = elems[0], elems[1:]
	}
	for _, x := range elems {
		if acc, err = starlark.Call(thread, fn, starlark.Tuple{acc, x}, nil); err != nil {
			return nil, err
		}
	}
	return acc, nil
}

func sumFn(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var seq starlark.Iterable
	var start starlark.Value = starlark.MakeInt(0)
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "iterable", &seq, "start?", &start); err != nil {
		return nil, err
	}
	it := seq.Iterate()
	defer it.Done()
	acc := start
	var x starlark.Value
	for it.Next(&x) {
		var err error
		if acc, err = starlark.Binary(syntax.PLUS, acc, x); err != nil {
			return nil, err
		}
	}
	return acc, nil
}
