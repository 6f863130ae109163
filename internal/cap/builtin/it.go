// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package builtin

import (
	"fmt"

	"go.starlark.net/starlark"

	"github.com/marcelocantos/starpipe/internal/expr"
)

// It provides iteration helpers. Each returns a list; Starlark has no
// lazy iterators that user code can construct.
var It = newModule("it", starlark.StringDict{
	"chain":      starlark.NewBuiltin("it.chain", itChain),
	"repeat":     starlark.NewBuiltin("it.repeat", itRepeat),
	"pairwise":   starlark.NewBuiltin("it.pairwise", itPairwise),
	"batched":    starlark.NewBuiltin("it.batched", itBatched),
	"accumulate": starlark.NewBuiltin("it.accumulate", itAccumulate),
	"islice":     starlark.NewBuiltin("it.islice", itIslice),
	"takewhile":  starlark.NewBuiltin("it.takewhile", itWhile(true)),
	"dropwhile":  starlark.NewBuiltin("it.dropwhile", itWhile(false)),
})

func itChain(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(kwargs) > 0 {
		return nil, fmt.Errorf("%s: unexpected keyword arguments", b.Name())
	}
	var out []starlark.Value
	for _, a := range args {
		elems, err := expr.Elements(a)
		if err != nil {
			return nil, fmt.Errorf("%s: %v", b.Name(), err)
		}
		out = append(out, elems...)
	}
	return starlark.NewList(out), nil
}

func itRepeat(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var x starlark.Value
	var n int
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 2, &x, &n); err != nil {
		return nil, err
	}
	if n < 0 {
		n = 0
	}
	out := make([]starlark.Value, n)
	for i := range out {
		out[i] = x
	}
	return starlark.NewList(out), nil
}

func itPairwise(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var seq starlark.Iterable
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &seq); err != nil {
		return nil, err
	}
	elems, err := expr.Elements(seq)
	if err != nil {
		return nil, err
	}
	var out []starlark.Value
	for i := 0; i+1 < len(elems); i++ {
		out = append(out, starlark.Tuple{elems[i], elems[i+1]})
	}
	return starlark.NewList(out), nil
}

func itBatched(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var seq starlark.Iterable
	var n int
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 2, &seq, &n); err != nil {
		return nil, err
	}
	if n < 1 {
		return nil, fmt.Errorf("%s: n must be at least one", b.Name())
	}
	elems, err := expr.Elements(seq)
	if err != nil {
		return nil, err
	}
	var out []starlark.Value
	for len(elems) > 0 {
		k := min(n, len(elems))
		out = append(out, starlark.Tuple(elems[:k:k]))
		elems = elems[k:]
	}
	return starlark.NewList(out), nil
}

// itAccumulate yields running totals, using + unless a binary function is
// given.
func itAccumulate(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var seq starlark.Iterable
	var fn starlark.Callable
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "iterable", &seq, "func?", &fn); err != nil {
		return nil, err
	}
	elems, err := expr.Elements(seq)
	if err != nil {
		return nil, err
	}
	out := make([]starlark.Value, 0, len(elems))
	var acc starlark.Value
	for i, x := range elems {
		if i == 0 {
			acc = x
		} else if acc, err = expr.Combine(thread, fn, acc, x); err != nil {
			return nil, err
		}
		out = append(out, acc)
	}
	return starlark.NewList(out), nil
}

// itIslice stops iterating once stop is reached, so it can take a prefix
// of an unbounded stream.
func itIslice(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var seq starlark.Iterable
	var start, stop starlark.Value = starlark.None, starlark.None
	step := 1
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 2, &seq, &start, &stop, &step); err != nil {
		return nil, err
	}
	// islice(seq, stop) mirrors Python.
	if len(args) == 2 {
		start, stop = starlark.None, start
	}
	if step < 1 {
		return nil, fmt.Errorf("%s: step must be positive", b.Name())
	}
	lo, err := optInt(start, 0)
	if err != nil {
		return nil, fmt.Errorf("%s: start: %v", b.Name(), err)
	}
	hi, err := optInt(stop, -1)
	if err != nil {
		return nil, fmt.Errorf("%s: stop: %v", b.Name(), err)
	}
	if lo < 0 || (hi < 0 && stop != starlark.None) {
		return nil, fmt.Errorf("%s: indices must be non-negative", b.Name())
	}
	var out []starlark.Value
	if hi == 0 {
		return starlark.NewList(out), nil
	}
	it := seq.Iterate()
	defer it.Done()
	var x starlark.Value
	for i := 0; it.Next(&x); i++ {
		if i >= lo && (i-lo)%step == 0 {
			out = append(out, x)
		}
		if hi > 0 && i+1 >= hi {
			break
		}
	}
	return starlark.NewList(out), nil
}

func optInt(v starlark.Value, dflt int) (int, error) {
	if v == starlark.None {
		return dflt, nil
	}
	return starlark.AsInt32(v)
}

func itWhile(take bool) func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error) {
	return func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var pred starlark.Callable
		var seq starlark.Iterable
		if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 2, &pred, &seq); err != nil {
			return nil, err
		}
		var out []starlark.Value
		it := seq.Iterate()
		defer it.Done()
		var x starlark.Value
		taking := true
		for it.Next(&x) {
			if taking {
				ok, err := starlark.Call(thread, pred, starlark.Tuple{x}, nil)
				if err != nil {
					return nil, err
				}
				taking = bool(ok.Truth())
			}
			switch {
			case take && !taking:
				return starlark.NewList(out), nil
			case take || !taking:
				out = append(out, x)
			}
		}
		return starlark.NewList(out), nil
	}
}
