// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package builtin

import (
	"go.starlark.net/starlark"
)

// Counter tallies the items of an iterable into a dict of item to count,
// ordered by first occurrence.
var Counter = starlark.NewBuiltin("Counter", counter)

func counter(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var seq starlark.Iterable
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &seq); err != nil {
		return nil, err
	}
	d := starlark.NewDict(0)
	it := seq.Iterate()
	defer it.Done()
	var x starlark.Value
	for it.Next(&x) {
		n := 0
		if v, found, err := d.Get(x); err != nil {
			return nil, err
		} else if found {
			n, _ = starlark.AsInt32(v)
		}
		if err := d.SetKey(x, starlark.MakeInt(n+1)); err != nil {
			return nil, err
		}
	}
	return d, nil
}
