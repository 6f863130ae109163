// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package expr

import (
	"fmt"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Elements drains an iterable into a slice.
func Elements(x starlark.Value) ([]starlark.Value, error) {
	it := starlark.Iterate(x)
	if it == nil {
		return nil, fmt.Errorf("got %s, want iterable", x.Type())
	}
	defer it.Done()
	var out []starlark.Value
	var v starlark.Value
	for it.Next(&v) {
		out = append(out, v)
	}
	return out, nil
}

// GetItem performs x[k] for mappings and indexable values. Negative
// indexes count from the end.
func GetItem(x, k starlark.Value) (starlark.Value, error) {
	switch x := x.(type) {
	case starlark.Mapping:
		v, found, err := x.Get(k)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, fmt.Errorf("key %s not in %s", k, x.Type())
		}
		return v, nil
	case starlark.Indexable:
		i, err := starlark.AsInt32(k)
		if err != nil {
			return nil, fmt.Errorf("%s index: %v", x.Type(), err)
		}
		n := x.Len()
		if i < 0 {
			i += n
		}
		if i < 0 || i >= n {
			return nil, fmt.Errorf("%s index %s out of range [0:%d]", x.Type(), k, n)
		}
		return x.Index(i), nil
	}
	return nil, fmt.Errorf("unhandled index operation %s[%s]", x.Type(), k.Type())
}

// Reverse returns the reversal of a string, bytes, list or tuple.
func Reverse(x starlark.Value) (starlark.Value, error) {
	switch x := x.(type) {
	case starlark.String:
		r := []rune(string(x))
		for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
			r[i], r[j] = r[j], r[i]
		}
		return starlark.String(r), nil
	case starlark.Bytes:
		b := []byte(x)
		for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
			b[i], b[j] = b[j], b[i]
		}
		return starlark.Bytes(b), nil
	case *starlark.List:
		return starlark.NewList(reversed(x)), nil
	case starlark.Tuple:
		return starlark.Tuple(reversed(x)), nil
	}
	return nil, fmt.Errorf("cannot reverse %s", x.Type())
}

func reversed(seq starlark.Indexable) []starlark.Value {
	n := seq.Len()
	out := make([]starlark.Value, n)
	for i := 0; i < n; i++ {
		out[n-1-i] = seq.Index(i)
	}
	return out
}

// Combine applies fn to (x, y), or x + y when fn is nil.
func Combine(thread *starlark.Thread, fn starlark.Callable, x, y starlark.Value) (starlark.Value, error) {
	if fn == nil {
		return starlark.Binary(syntax.PLUS, x, y)
	}
	return starlark.Call(thread, fn, starlark.Tuple{x, y}, nil)
}
