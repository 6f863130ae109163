// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

// Package render decides the external text form of a pipeline output item.
package render

import (
	"go.starlark.net/starlark"

	"github.com/marcelocantos/starpipe/internal/codec"
)

// Value returns the literal representation of v written to the sink.
//
// Text passes through unchanged, sequences and mappings are serialized as
// JSON, and everything else uses its canonical Starlark string form. The
// rule is total: a value JSON cannot express falls back to its string form.
func Value(v starlark.Value) string {
	switch codec.KindOf(v) {
	case codec.KindText:
		s, _ := codec.Text(v)
		return s
	case codec.KindSequence, codec.KindMapping:
		if s, err := codec.EncodeJSON(v); err == nil {
			return s
		}
	}
	return v.String()
}
