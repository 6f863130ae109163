// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package builtin

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"

	"go.starlark.net/starlark"
)

// Hashlib returns hex digests of strings or bytes.
var Hashlib = newModule("hashlib", starlark.StringDict{
	"md5":    digest("hashlib.md5", md5.New),
	"sha1":   digest("hashlib.sha1", sha1.New),
	"sha256": digest("hashlib.sha256", sha256.New),
	"sha512": digest("hashlib.sha512", sha512.New),
})

func digest(name string, newHash func() hash.Hash) *starlark.Builtin {
	return starlark.NewBuiltin(name, func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var data starlark.Value
		if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &data); err != nil {
			return nil, err
		}
		h := newHash()
		switch d := data.(type) {
		case starlark.String:
			h.Write([]byte(d))
		case starlark.Bytes:
			h.Write([]byte(d))
		default:
			return nil, fmt.Errorf("%s: got %s, want string or bytes", b.Name(), data.Type())
		}
		return starlark.String(hex.EncodeToString(h.Sum(nil))), nil
	})
}
