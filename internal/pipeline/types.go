// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"github.com/rs/zerolog"
	"go.starlark.net/starlark"
)

// Sigil marks a token as a directive rather than an expression.
const Sigil = "%"

// Default variable names.
const (
	DefaultVariable       = "i"      // current item in item-scoped expressions
	DefaultStreamVariable = "stream" // whole stream in %stream expressions
	IndexVariable         = "idx"    // position of the item in the stream at that stage
	ErrorVariable         = "e"      // error message in %try fallbacks
)

// Stream is a lazy sequence of items. An error is yielded at most once
// and ends the stream.
type Stream = iter.Seq2[starlark.Value, error]

// Kind says whether an operation is applied per item or to the whole
// stream.
type Kind int

const (
	KindItem Kind = iota
	KindStream
)

func (k Kind) String() string {
	switch k {
	case KindItem:
		return "item"
	case KindStream:
		return "stream"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ArgKind is the declared type of a directive argument.
type ArgKind int

const (
	ArgText  ArgKind = iota // raw string
	ArgInt                  // integer
	ArgExpr                 // Starlark source
	ArgValue                // JSON when it parses as JSON, otherwise text
)

func (k ArgKind) String() string {
	switch k {
	case ArgText:
		return "text"
	case ArgInt:
		return "int"
	case ArgExpr:
		return "expr"
	case ArgValue:
		return "value"
	default:
		return fmt.Sprintf("argkind(%d)", int(k))
	}
}

// Operation is one compiled stage of a pipeline.
type Operation struct {
	Directive string   // directive name including the sigil; empty for a bare expression
	Position  int      // index of the stage's first token
	Tokens    []string // source tokens, directive first
	Args      []any    // coerced arguments: string, int or starlark.Value
	Kind      Kind

	expr      string // expression text reported in errors
	apply     applyFunc
	transform transformFunc
}

type applyFunc func(rt *runtime, item starlark.Value, idx int) (out starlark.Value, keep bool, err error)

type transformFunc func(rt *runtime, in Stream) Stream

// Name returns the directive, or the expression for bare expressions.
func (op *Operation) Name() string {
	if op.Directive == "" {
		return op.expr
	}
	return op.Directive
}

func (op *Operation) String() string {
	return strings.Join(op.Tokens, " ")
}

// runtime is the per-run state shared by every stage.
type runtime struct {
	ctx    context.Context
	thread *starlark.Thread
	scope  *Scope
	log    zerolog.Logger
}
