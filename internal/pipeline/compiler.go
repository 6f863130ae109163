// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"go.starlark.net/starlark"

	"github.com/marcelocantos/starpipe/internal/cap"
	"github.com/marcelocantos/starpipe/internal/codec"
	"github.com/marcelocantos/starpipe/internal/expr"
)

// defaultScope lists catalog names bound before any expression asks.
var defaultScope = []string{"it", "op"}

type options struct {
	variable       string
	streamVariable string
	log            zerolog.Logger
}

// Option configures compilation.
type Option func(*options)

// WithVariable sets the name expressions use for the current item.
func WithVariable(name string) Option {
	return func(o *options) { o.variable = name }
}

// WithStreamVariable sets the name %stream expressions use for the
// stream.
func WithStreamVariable(name string) Option {
	return func(o *options) { o.streamVariable = name }
}

// WithLogger routes compile and run logs, and Starlark print output.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.log = l }
}

func newOptions(opts []Option) (options, error) {
	o := options{
		variable:       DefaultVariable,
		streamVariable: DefaultStreamVariable,
		log:            zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	for _, name := range []string{o.variable, o.streamVariable} {
		if name == IndexVariable || name == ErrorVariable {
			return o, fmt.Errorf("variable name %q is reserved", name)
		}
	}
	return o, nil
}

type compiler struct {
	catalog *cap.Registry
	opts    options
	scope   *Scope
	thread  *starlark.Thread

	pos   int
	token string
}

// Compile turns directive tokens into a pipeline. Free names in every
// expression are resolved against catalog before compilation finishes;
// the first failure aborts and no pipeline is returned.
func Compile(tokens []string, catalog *cap.Registry, opts ...Option) (*Pipeline, error) {
	o, err := newOptions(opts)
	if err != nil {
		return nil, err
	}
	c := newCompiler(catalog, o)
	p := &Pipeline{scope: c.scope, opts: o}
	for i := 0; i < len(tokens); {
		op, n, err := c.stage(tokens, i)
		if err != nil {
			return nil, err
		}
		o.log.Debug().
			Int("position", op.Position).
			Str("stage", op.Name()).
			Stringer("kind", op.Kind).
			Msg("compiled stage")
		p.Ops = append(p.Ops, op)
		i += n
	}
	c.scope.snapshot()
	return p, nil
}

func newCompiler(catalog *cap.Registry, o options) *compiler {
	root := starlark.StringDict{}
	for name, v := range expr.Builtins {
		root[name] = v
	}
	for _, name := range defaultScope {
		if c, err := catalog.Lookup(name); err == nil {
			root[name] = c.Value()
		}
	}
	return &compiler{
		catalog: catalog,
		opts:    o,
		scope:   newScope(root),
		thread:  &starlark.Thread{Name: "compile"},
	}
}

// stage compiles the stage starting at tokens[i] and reports how many
// tokens it consumed.
func (c *compiler) stage(tokens []string, i int) (*Operation, int, error) {
	c.pos, c.token = i, tokens[i]
	if !strings.HasPrefix(c.token, Sigil) {
		op := &Operation{Position: i, Tokens: tokens[i : i+1], Kind: KindItem}
		if err := buildEval(c, op); err != nil {
			return nil, 0, err
		}
		return op, 1, nil
	}

	d, ok := LookupDirective(c.token)
	if !ok {
		return nil, 0, &UnknownDirectiveError{Position: i, Token: c.token}
	}
	if got := len(tokens) - i - 1; got < d.MinArgs() {
		return nil, 0, &ArgumentCountError{Position: i, Token: c.token, Want: d.MinArgs(), Got: got}
	}
	n := 1 + d.MaxArgs()
	op := &Operation{
		Directive: d.Name,
		Position:  i,
		Tokens:    tokens[i : i+n],
		Kind:      d.Kind,
	}
	for j, a := range d.Args {
		v, err := c.coerce(a, tokens[i+1+j])
		if err != nil {
			return nil, 0, err
		}
		op.Args = append(op.Args, v)
	}
	if err := d.build(c, op); err != nil {
		return nil, 0, err
	}
	return op, n, nil
}

func (c *compiler) coerce(a Arg, s string) (any, error) {
	switch a.Kind {
	case ArgInt:
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return nil, &InvalidArgumentError{Position: c.pos, Token: c.token, Arg: a.Name, Value: s, Err: errors.Unwrap(err)}
		}
		if n < 0 {
			return nil, &InvalidArgumentError{Position: c.pos, Token: c.token, Arg: a.Name, Value: s, Err: errors.New("must not be negative")}
		}
		return n, nil
	case ArgValue:
		if v, err := codec.DecodeJSON(c.thread, s); err == nil {
			return v, nil
		}
		return starlark.String(s), nil
	default:
		return s, nil
	}
}

// compileExpr resolves the free names of src and compiles it as a
// function of params against the innermost scope layer.
func (c *compiler) compileExpr(src string, params ...string) (*expr.Func, error) {
	refs, err := expr.ExprRefs(c.filename(), src, params...)
	if err != nil {
		return nil, &SyntaxError{Position: c.pos, Token: src, Err: err}
	}
	if err := c.resolve(refs); err != nil {
		return nil, err
	}
	f, err := expr.Compile(c.filename(), src, c.scope.Vars(c.scope.top()), params...)
	if err != nil {
		return nil, &SyntaxError{Position: c.pos, Token: src, Err: err}
	}
	return f, nil
}

// compileStmt resolves and compiles a statement block, opening a scope
// layer for the names it binds. It returns the block, its layer, the
// scope names it reads, and the bound names that already had a value.
func (c *compiler) compileStmt(src string) (stmt *expr.Stmt, layer int, reads, carry []string, err error) {
	locals := []string{c.opts.variable, IndexVariable}
	refs, binds, err := expr.StmtRefs(c.filename(), src, locals...)
	if err != nil {
		return nil, 0, nil, nil, &SyntaxError{Position: c.pos, Token: src, Err: err}
	}
	if err := c.resolve(refs); err != nil {
		return nil, 0, nil, nil, err
	}
	for _, r := range refs {
		if name := r.Path[0]; !slices.Contains(reads, name) {
			reads = append(reads, name)
		}
	}
	for _, name := range binds {
		if slices.Contains(locals, name) {
			continue
		}
		if _, ok := c.scope.Lookup(name); !ok {
			// Rebinding a catalog symbol starts from the catalog's value.
			if v, err := c.catalog.Resolve([]string{name}); err == nil {
				c.scope.bind(name, v)
			}
		}
		if _, ok := c.scope.Lookup(name); ok {
			carry = append(carry, name)
		}
	}
	layer = c.scope.push(binds)
	vars := c.scope.Vars(layer)
	stmt, err = expr.CompileStmt(c.filename(), src, binds, carry, func(name string) bool {
		return slices.Contains(locals, name) || vars.Has(name) || expr.Builtins.Has(name)
	})
	if err != nil {
		return nil, 0, nil, nil, &SyntaxError{Position: c.pos, Token: src, Err: err}
	}
	return stmt, layer, reads, carry, nil
}

// resolve binds every reference not already in scope. Both the top-level
// name and the full dotted path are bound.
func (c *compiler) resolve(refs []expr.Ref) error {
	for _, r := range refs {
		name, dotted := r.Path[0], r.Dotted()
		if c.scope.Declared(name) {
			continue
		}
		if _, ok := c.scope.Lookup(dotted); ok {
			continue
		}
		v, err := c.catalog.Resolve(r.Path)
		if err != nil {
			var ue *cap.UnresolvedError
			if !errors.As(err, &ue) {
				ue = &cap.UnresolvedError{Segment: name, Chain: r.Path[:1], Reason: err.Error()}
			}
			return &UnresolvedSymbolError{
				Position: c.pos,
				Token:    c.token,
				Symbol:   dotted,
				Name:     ue.Segment,
				Err:      ue,
			}
		}
		if len(r.Path) > 1 {
			top, err := c.catalog.Resolve(r.Path[:1])
			if err != nil {
				return fmt.Errorf("resolve %s: %w", name, err)
			}
			c.scope.bind(name, top)
		}
		c.scope.bind(dotted, v)
	}
	return nil
}

func (c *compiler) filename() string {
	return fmt.Sprintf("<position %d>", c.pos)
}
