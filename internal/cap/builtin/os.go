// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package builtin

import (
	"os"
	"sort"
	"strings"

	"go.starlark.net/starlark"
)

// OS gives read-only access to the process environment.
var OS = newModule("os", starlark.StringDict{
	"getenv":  starlark.NewBuiltin("os.getenv", osGetenv),
	"environ": starlark.NewBuiltin("os.environ", osEnviron),
	"linesep": starlark.String("\n"),
})

func osGetenv(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var key string
	var dflt starlark.Value = starlark.None
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &key, &dflt); err != nil {
		return nil, err
	}
	if v, ok := os.LookupEnv(key); ok {
		return starlark.String(v), nil
	}
	return dflt, nil
}

// osEnviron returns a fresh dict sorted by variable name.
func osEnviron(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
		return nil, err
	}
	env := os.Environ()
	sort.Strings(env)
	d := starlark.NewDict(len(env))
	for _, kv := range env {
		k, v, _ := strings.Cut(kv, "=")
		if err := d.SetKey(starlark.String(k), starlark.String(v)); err != nil {
			return nil, err
		}
	}
	return d, nil
}
