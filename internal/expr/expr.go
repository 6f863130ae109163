// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

// Package expr hosts the Starlark expressions and statements that pipeline
// stages are written in.
package expr

import (
	"fmt"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// FileOptions is the Starlark dialect accepted in expressions and
// statements.
var FileOptions = &syntax.FileOptions{
	While:           true,
	TopLevelControl: true,
	GlobalReassign:  true,
	Recursion:       true,
}

// Func is a compiled expression, callable as a function of the parameters
// it was compiled with.
type Func struct {
	Src    string
	Params []string
	fn     starlark.Callable
}

// Compile compiles src as the body of a function of params. Names that
// are not parameters resolve against env, which is retained by reference:
// later writes to env are seen by subsequent calls.
func Compile(filename, src string, env starlark.StringDict, params ...string) (*Func, error) {
	if _, err := FileOptions.ParseExpr(filename, src, 0); err != nil {
		return nil, err
	}
	// The newline keeps a trailing comment from swallowing the paren.
	wrapped := fmt.Sprintf("lambda %s: (%s\n)", strings.Join(params, ", "), src)
	outer, err := starlark.ExprFuncOptions(FileOptions, filename, wrapped, env)
	if err != nil {
		return nil, err
	}
	fn, err := starlark.Call(&starlark.Thread{Name: filename}, outer, nil, nil)
	if err != nil {
		return nil, err
	}
	return &Func{Src: src, Params: params, fn: fn.(starlark.Callable)}, nil
}

// Call evaluates the expression with args bound to its parameters.
func (f *Func) Call(thread *starlark.Thread, args ...starlark.Value) (starlark.Value, error) {
	return starlark.Call(thread, f.fn, starlark.Tuple(args), nil)
}

// Stmt is a compiled block of statements.
type Stmt struct {
	Src string
	// Binds lists the top-level names the block assigns.
	Binds []string
	prog  *starlark.Program
}

// PrevVariable names the dict through which Exec receives the current
// values of a block's carried names.
const PrevVariable = "__prev__"

// CompileStmt compiles src as a sequence of statements. isPredeclared
// reports which free names will be supplied at execution time. Each name
// in carry is assigned from PrevVariable before the block runs, so the
// block can read the value a name had before it rebinds it.
func CompileStmt(filename, src string, binds, carry []string, isPredeclared func(string) bool) (*Stmt, error) {
	f, err := FileOptions.Parse(filename, src, 0)
	if err != nil {
		return nil, err
	}
	if len(carry) > 0 {
		var pos syntax.Position
		if len(f.Stmts) > 0 {
			pos, _ = f.Stmts[0].Span()
		}
		prelude := make([]syntax.Stmt, 0, len(carry)+len(f.Stmts))
		for _, name := range carry {
			prelude = append(prelude, carryStmt(name, pos))
		}
		f.Stmts = append(prelude, f.Stmts...)
	}
	prog, err := starlark.FileProgram(f, func(name string) bool {
		return (len(carry) > 0 && name == PrevVariable) || isPredeclared(name)
	})
	if err != nil {
		return nil, err
	}
	return &Stmt{Src: src, Binds: binds, prog: prog}, nil
}

// carryStmt builds `name = __prev__["name"]`.
func carryStmt(name string, pos syntax.Position) syntax.Stmt {
	return &syntax.AssignStmt{
		OpPos: pos,
		Op:    syntax.EQ,
		LHS:   &syntax.Ident{NamePos: pos, Name: name},
		RHS: &syntax.IndexExpr{
			X:      &syntax.Ident{NamePos: pos, Name: PrevVariable},
			Lbrack: pos,
			Y:      &syntax.Literal{Token: syntax.STRING, TokenPos: pos, Raw: strconv.Quote(name), Value: name},
			Rbrack: pos,
		},
	}
}

// Exec runs the block against env and returns the names it bound.
func (s *Stmt) Exec(thread *starlark.Thread, env starlark.StringDict) (starlark.StringDict, error) {
	return s.prog.Init(thread, env)
}
