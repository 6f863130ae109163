// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"fmt"

	"github.com/marcelocantos/starpipe/internal/cap"
)

// UnknownDirectiveError reports a sigil-prefixed token that names no
// directive.
type UnknownDirectiveError struct {
	Position int
	Token    string
}

func (e *UnknownDirectiveError) Error() string {
	return fmt.Sprintf("position %d: unknown directive %q", e.Position, e.Token)
}

// ArgumentCountError reports a directive with too few argument tokens
// after it.
type ArgumentCountError struct {
	Position int
	Token    string
	Want     int
	Got      int
}

func (e *ArgumentCountError) Error() string {
	return fmt.Sprintf("position %d: %s takes %d argument(s), got %d", e.Position, e.Token, e.Want, e.Got)
}

// InvalidArgumentError reports an argument that does not match its
// declared kind.
type InvalidArgumentError struct {
	Position int
	Token    string
	Arg      string
	Value    string
	Err      error
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("position %d: %s: invalid %s %q: %v", e.Position, e.Token, e.Arg, e.Value, e.Err)
}

func (e *InvalidArgumentError) Unwrap() error { return e.Err }

// UnresolvedSymbolError reports a free name in an expression that the
// catalog cannot supply. Name is the segment that failed.
type UnresolvedSymbolError struct {
	Position int
	Token    string
	Symbol   string
	Name     string
	Err      *cap.UnresolvedError
}

func (e *UnresolvedSymbolError) Error() string {
	return fmt.Sprintf("position %d: %s: %v", e.Position, e.Token, e.Err)
}

func (e *UnresolvedSymbolError) Unwrap() error { return e.Err }

// SyntaxError reports expression or statement source that does not
// parse or resolve.
type SyntaxError struct {
	Position int
	Token    string
	Err      error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("position %d: %q: %v", e.Position, e.Token, e.Err)
}

func (e *SyntaxError) Unwrap() error { return e.Err }

// EvaluationError reports a stage failing on one item. Index is the
// item's position in the stream entering the stage.
type EvaluationError struct {
	Position  int
	Directive string
	Expr      string
	Index     int
	Err       error
}

func (e *EvaluationError) Error() string {
	what := e.Directive
	if e.Expr != "" {
		if what != "" {
			what += " "
		}
		what += e.Expr
	}
	return fmt.Sprintf("position %d (%s): item %d: %v", e.Position, what, e.Index, e.Err)
}

func (e *EvaluationError) Unwrap() error { return e.Err }

// StreamContractError reports a stream-producing expression whose result
// is not iterable.
type StreamContractError struct {
	Position  int
	Directive string
	Type      string
}

func (e *StreamContractError) Error() string {
	return fmt.Sprintf("position %d: %s produced %s, want an iterable", e.Position, e.Directive, e.Type)
}
