// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

// Package codec converts Starlark values to and from their structured
// text encodings (JSON, YAML) and classifies values into the coarse kinds
// that type-driven directives dispatch on.
package codec

import (
	"go.starlark.net/starlark"
)

// Kind is the variant tag of a value as seen by type-driven directives.
type Kind int

const (
	KindText     Kind = iota // starlark.String or starlark.Bytes
	KindSequence             // list or tuple
	KindMapping              // dict
	KindNone                 // None
	KindBool                 // True or False
	KindNumber               // int or float
	KindOther                // anything else (functions, sets, modules, ...)
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	case KindNone:
		return "none"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	default:
		return "other"
	}
}

// KindOf returns the variant tag of v.
func KindOf(v starlark.Value) Kind {
	switch v.(type) {
	case starlark.String, starlark.Bytes:
		return KindText
	case *starlark.List, starlark.Tuple:
		return KindSequence
	case *starlark.Dict:
		return KindMapping
	case starlark.NoneType:
		return KindNone
	case starlark.Bool:
		return KindBool
	case starlark.Int, starlark.Float:
		return KindNumber
	default:
		return KindOther
	}
}

// Text returns the Go string held by a text value.
func Text(v starlark.Value) (string, bool) {
	switch v := v.(type) {
	case starlark.String:
		return string(v), true
	case starlark.Bytes:
		return string(v), true
	}
	return "", false
}
