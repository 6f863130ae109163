// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"errors"

	"go.starlark.net/starlark"

	"github.com/marcelocantos/starpipe/internal/codec"
	"github.com/marcelocantos/starpipe/internal/expr"
)

// buildEval compiles a bare expression whose result replaces the item.
func buildEval(c *compiler, op *Operation) error {
	src := op.Tokens[0]
	f, err := c.compileExpr(src, c.opts.variable, IndexVariable)
	if err != nil {
		return err
	}
	op.expr = src
	op.apply = func(rt *runtime, item starlark.Value, idx int) (starlark.Value, bool, error) {
		v, err := f.Call(rt.thread, item, starlark.MakeInt(idx))
		return v, true, err
	}
	return nil
}

func buildFilter(want bool) func(*compiler, *Operation) error {
	return func(c *compiler, op *Operation) error {
		src := op.Args[0].(string)
		f, err := c.compileExpr(src, c.opts.variable, IndexVariable)
		if err != nil {
			return err
		}
		op.expr = src
		op.apply = func(rt *runtime, item starlark.Value, idx int) (starlark.Value, bool, error) {
			v, err := f.Call(rt.thread, item, starlark.MakeInt(idx))
			if err != nil {
				return nil, false, err
			}
			return item, bool(v.Truth()) == want, nil
		}
		return nil
	}
}

// buildExec compiles a statement block. Each time an item passes, the
// block runs with the item bound and the names it assigns are written to
// its scope layer.
func buildExec(c *compiler, op *Operation) error {
	src := op.Args[0].(string)
	stmt, layer, reads, carry, err := c.compileStmt(src)
	if err != nil {
		return err
	}
	variable := c.opts.variable
	op.expr = src
	op.apply = func(rt *runtime, item starlark.Value, idx int) (starlark.Value, bool, error) {
		vars := rt.scope.Vars(layer)
		env := make(starlark.StringDict, len(expr.Builtins)+len(reads)+3)
		for name := range expr.Builtins {
			env[name] = vars[name]
		}
		for _, name := range reads {
			env[name] = vars[name]
		}
		env[variable] = item
		env[IndexVariable] = starlark.MakeInt(idx)
		if len(carry) > 0 {
			prev := starlark.NewDict(len(carry))
			for _, name := range carry {
				if err := prev.SetKey(starlark.String(name), rt.scope.current(layer, name)); err != nil {
					return nil, false, err
				}
			}
			env[expr.PrevVariable] = prev
		}
		globals, err := stmt.Exec(rt.thread, env)
		if err != nil {
			return nil, false, err
		}
		for _, name := range stmt.Binds {
			if v, ok := globals[name]; ok {
				rt.scope.set(layer, name, v)
			}
		}
		return item, true, nil
	}
	return nil
}

// buildTry evaluates an expression, falling back to a second expression
// with the error message bound to e when the first fails.
func buildTry(c *compiler, op *Operation) error {
	src, fallback := op.Args[0].(string), op.Args[1].(string)
	f, err := c.compileExpr(src, c.opts.variable, IndexVariable)
	if err != nil {
		return err
	}
	g, err := c.compileExpr(fallback, c.opts.variable, IndexVariable, ErrorVariable)
	if err != nil {
		return err
	}
	op.expr = src
	op.apply = func(rt *runtime, item starlark.Value, idx int) (starlark.Value, bool, error) {
		v, err := f.Call(rt.thread, item, starlark.MakeInt(idx))
		if err == nil {
			return v, true, nil
		}
		if rt.ctx.Err() != nil {
			return nil, false, err
		}
		rt.log.Debug().Err(err).Int("position", op.Position).Int("index", idx).Msg("try fallback")
		v, err = g.Call(rt.thread, item, starlark.MakeInt(idx), starlark.String(message(err)))
		return v, true, err
	}
	return nil
}

// message strips the Starlark backtrace from an evaluation error.
func message(err error) string {
	var ee *starlark.EvalError
	if errors.As(err, &ee) {
		return ee.Msg
	}
	return err.Error()
}

func buildGet(_ *compiler, op *Operation) error {
	key := op.Args[0].(starlark.Value)
	op.apply = func(_ *runtime, item starlark.Value, _ int) (starlark.Value, bool, error) {
		v, err := expr.GetItem(item, key)
		return v, true, err
	}
	return nil
}

type itemCodec struct {
	decode func(thread *starlark.Thread, s string) (starlark.Value, error)
	encode func(v starlark.Value) (string, error)
}

var (
	jsonCodec = itemCodec{decode: codec.DecodeJSON, encode: codec.EncodeJSON}
	yamlCodec = itemCodec{
		decode: func(_ *starlark.Thread, s string) (starlark.Value, error) { return codec.DecodeYAML(s) },
		encode: codec.EncodeYAML,
	}
)

// buildCodec dispatches on the item's kind: text decodes, everything else
// encodes.
func buildCodec(cd itemCodec) func(*compiler, *Operation) error {
	return func(_ *compiler, op *Operation) error {
		op.apply = func(rt *runtime, item starlark.Value, _ int) (starlark.Value, bool, error) {
			if s, ok := codec.Text(item); ok {
				v, err := cd.decode(rt.thread, s)
				return v, true, err
			}
			s, err := cd.encode(item)
			if err != nil {
				return nil, false, err
			}
			return starlark.String(s), true, nil
		}
		return nil
	}
}

// buildCast converts with the Starlark builtin of the same name, except
// that %list splits text into characters.
func buildCast(name string) func(*compiler, *Operation) error {
	fn := starlark.Universe[name]
	return func(_ *compiler, op *Operation) error {
		op.apply = func(rt *runtime, item starlark.Value, _ int) (starlark.Value, bool, error) {
			if s, ok := item.(starlark.String); ok && name == "list" {
				var chars []starlark.Value
				for _, r := range string(s) {
					chars = append(chars, starlark.String(string(r)))
				}
				return starlark.NewList(chars), true, nil
			}
			v, err := starlark.Call(rt.thread, fn, starlark.Tuple{item}, nil)
			return v, true, err
		}
		return nil
	}
}

func buildRev(_ *compiler, op *Operation) error {
	op.apply = func(_ *runtime, item starlark.Value, _ int) (starlark.Value, bool, error) {
		v, err := expr.Reverse(item)
		return v, true, err
	}
	return nil
}
