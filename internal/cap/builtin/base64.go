// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package builtin

import (
	"encoding/base64"
	"fmt"

	"go.starlark.net/starlark"
)

var Base64 = newModule("base64", starlark.StringDict{
	"encode": starlark.NewBuiltin("base64.encode", b64Encode),
	"decode": starlark.NewBuiltin("base64.decode", b64Decode),
})

func b64Encoding(urlsafe bool) *base64.Encoding {
	if urlsafe {
		return base64.URLEncoding
	}
	return base64.StdEncoding
}

func b64Encode(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var data starlark.Value
	urlsafe := false
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "data", &data, "urlsafe?", &urlsafe); err != nil {
		return nil, err
	}
	var raw []byte
	switch d := data.(type) {
	case starlark.String:
		raw = []byte(d)
	case starlark.Bytes:
		raw = []byte(d)
	default:
		return nil, fmt.Errorf("%s: got %s, want string or bytes", b.Name(), data.Type())
	}
	return starlark.String(b64Encoding(urlsafe).EncodeToString(raw)), nil
}

// b64Decode returns a string; use bytes() on the result for binary data
// that is not valid UTF-8.
func b64Decode(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var s string
	urlsafe := false
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "data", &s, "urlsafe?", &urlsafe); err != nil {
		return nil, err
	}
	raw, err := b64Encoding(urlsafe).DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", b.Name(), err)
	}
	return starlark.String(raw), nil
}
