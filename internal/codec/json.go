// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	starlarkjson "go.starlark.net/lib/json"
	"go.starlark.net/starlark"
)

// maxDepth bounds container nesting so self-referential lists fail
// instead of recursing forever.
const maxDepth = 1000

// ErrCircular is returned when a value contains itself.
var ErrCircular = errors.New("circular reference detected")

// EncodeJSON serializes v as JSON using ", " and ": " separators and the
// container's own key order. Values with no JSON form are written as the
// JSON string of their Starlark representation.
func EncodeJSON(v starlark.Value) (string, error) {
	var b strings.Builder
	if err := writeJSON(&b, v, 0); err != nil {
		return "", err
	}
	return b.String(), nil
}

func writeJSON(b *strings.Builder, v starlark.Value, depth int) error {
	if depth > maxDepth {
		return ErrCircular
	}
	switch v := v.(type) {
	case starlark.NoneType:
		b.WriteString("null")
	case starlark.Bool:
		if v {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case starlark.Int:
		b.WriteString(v.String())
	case starlark.Float:
		b.WriteString(formatFloat(v))
	case starlark.String:
		b.WriteString(quote(string(v)))
	case starlark.Bytes:
		b.WriteString(quote(string(v)))
	case *starlark.List:
		return writeArray(b, v, depth)
	case starlark.Tuple:
		return writeArray(b, v, depth)
	case *starlark.Dict:
		b.WriteByte('{')
		for i, item := range v.Items() {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(quote(keyString(item[0])))
			b.WriteString(": ")
			if err := writeJSON(b, item[1], depth+1); err != nil {
				return err
			}
		}
		b.WriteByte('}')
	default:
		b.WriteString(quote(v.String()))
	}
	return nil
}

func writeArray(b *strings.Builder, seq starlark.Indexable, depth int) error {
	b.WriteByte('[')
	for i := 0; i < seq.Len(); i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		if err := writeJSON(b, seq.Index(i), depth+1); err != nil {
			return err
		}
	}
	b.WriteByte(']')
	return nil
}

// keyString converts a mapping key to the string JSON requires.
func keyString(k starlark.Value) string {
	switch k := k.(type) {
	case starlark.String:
		return string(k)
	case starlark.Bool:
		if k {
			return "true"
		}
		return "false"
	case starlark.NoneType:
		return "null"
	case starlark.Float:
		return formatFloat(k)
	default:
		return k.String()
	}
}

func formatFloat(f starlark.Float) string {
	x := float64(f)
	switch {
	case math.IsNaN(x):
		return "NaN"
	case math.IsInf(x, 1):
		return "Infinity"
	case math.IsInf(x, -1):
		return "-Infinity"
	}
	return f.String()
}

func quote(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return strings.TrimSuffix(buf.String(), "\n")
}

// DecodeJSON parses s into Starlark values. Objects become dicts in
// document order; integral numbers become ints.
func DecodeJSON(thread *starlark.Thread, s string) (starlark.Value, error) {
	decode := starlarkjson.Module.Members["decode"]
	v, err := starlark.Call(thread, decode, starlark.Tuple{starlark.String(s)}, nil)
	if err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return v, nil
}
