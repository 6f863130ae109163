// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package builtin

import (
	"fmt"

	"github.com/google/uuid"
	"go.starlark.net/starlark"
)

// UUID generates and validates UUIDs. Values are plain strings.
var UUID = newModule("uuid", starlark.StringDict{
	"new":      starlark.NewBuiltin("uuid.new", uuidNew),
	"parse":    starlark.NewBuiltin("uuid.parse", uuidParse),
	"is_valid": starlark.NewBuiltin("uuid.is_valid", uuidIsValid),
	"sha1":     starlark.NewBuiltin("uuid.sha1", uuidSHA1),
	"dns":      starlark.String(uuid.NameSpaceDNS.String()),
	"url":      starlark.String(uuid.NameSpaceURL.String()),
	"oid":      starlark.String(uuid.NameSpaceOID.String()),
	"x500":     starlark.String(uuid.NameSpaceX500.String()),
})

func uuidNew(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
		return nil, err
	}
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("%s: %v", b.Name(), err)
	}
	return starlark.String(id.String()), nil
}

// uuidParse normalises any accepted UUID spelling to canonical form.
func uuidParse(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var s string
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &s); err != nil {
		return nil, err
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", b.Name(), err)
	}
	return starlark.String(id.String()), nil
}

func uuidIsValid(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var s string
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &s); err != nil {
		return nil, err
	}
	return starlark.Bool(uuid.Validate(s) == nil), nil
}

// uuidSHA1 derives a version 5 UUID from a namespace and a name.
func uuidSHA1(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var ns, name string
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 2, &ns, &name); err != nil {
		return nil, err
	}
	space, err := uuid.Parse(ns)
	if err != nil {
		return nil, fmt.Errorf("%s: namespace: %v", b.Name(), err)
	}
	return starlark.String(uuid.NewSHA1(space, []byte(name)).String()), nil
}
