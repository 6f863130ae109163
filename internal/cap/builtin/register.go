// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package builtin

import (
	starlarkjson "go.starlark.net/lib/json"
	starlarkmath "go.starlark.net/lib/math"
	starlarktime "go.starlark.net/lib/time"
	"go.starlark.net/starlark"

	"github.com/marcelocantos/starpipe/internal/cap"
)

// RegisterAll adds all built-in capabilities to the registry.
func RegisterAll(r *cap.Registry) {
	r.Register(NewModule(Base64, "base64 encoding and decoding"))
	r.Register(&Function{fn: Counter, desc: "count occurrences of items in an iterable"})
	r.Register(NewModule(Hashlib, "hex digests: md5, sha1, sha256, sha512"))
	r.Register(NewModule(It, "iteration helpers: chain, repeat, pairwise, batched, accumulate, islice, takewhile, dropwhile"))
	r.Register(NewModule(starlarkjson.Module, "JSON encode/decode"))
	r.Register(&Constant{name: "linesep", value: starlark.String("\n"), desc: "output line separator"})
	r.Register(NewModule(starlarkmath.Module, "mathematical functions and constants"))
	r.Register(NewModule(Op, "operators as functions"))
	r.Register(NewModule(OS, "process environment"))
	r.Register(NewModule(Re, "regular expressions (Go RE2 syntax)"))
	r.Register(NewModule(starlarktime.Module, "time and duration values"))
	r.Register(NewModule(UUID, "UUID generation and parsing"))
	r.Register(NewModule(YAML, "YAML encode/decode"))
}
