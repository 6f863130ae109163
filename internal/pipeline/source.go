// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	"go.starlark.net/starlark"

	"github.com/marcelocantos/starpipe/internal/cap"
)

// Lines reads r as a sequence of records separated by "\n", with the
// separator and any preceding "\r" removed. A final record without a
// separator is still produced.
func Lines(ctx context.Context, r io.Reader) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		br := bufio.NewReader(r)
		for {
			if err := ctx.Err(); err != nil {
				yield("", err)
				return
			}
			line, err := br.ReadString('\n')
			if line != "" {
				line = strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")
				if !yield(line, nil) {
					return
				}
			}
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield("", err)
				return
			}
		}
	}
}

// Block reads all of r as a single item.
func Block(r io.Reader) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		b, err := io.ReadAll(r)
		if err != nil {
			yield("", err)
			return
		}
		yield(string(b), nil)
	}
}

// Strings yields each string in ss.
func Strings(ss ...string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, s := range ss {
			if !yield(s, nil) {
				return
			}
		}
	}
}

// Values yields each value in vs.
func Values(vs ...starlark.Value) Stream {
	return func(yield func(starlark.Value, error) bool) {
		for _, v := range vs {
			if !yield(v, nil) {
				return
			}
		}
	}
}

// Collect drains a stream. On error it returns the items produced before
// the failure along with the error.
func Collect(s Stream) ([]starlark.Value, error) {
	var out []starlark.Value
	for v, err := range s {
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Text adapts a sequence of strings to a stream of Starlark strings.
func Text(lines iter.Seq2[string, error]) Stream {
	return func(yield func(starlark.Value, error) bool) {
		for s, err := range lines {
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(starlark.String(s), nil) {
				return
			}
		}
	}
}

// Skip drops the first n items of in. Errors are never skipped.
func Skip(in Stream, n int) Stream {
	return func(yield func(starlark.Value, error) bool) {
		seen := 0
		for v, err := range in {
			if err == nil && seen < n {
				seen++
				continue
			}
			if !yield(v, err) || err != nil {
				return
			}
		}
	}
}

// Generate compiles src, an expression producing an iterable, and returns
// a stream of its elements. The expression is evaluated when the stream
// is first consumed; a non-iterable result yields a *StreamContractError.
func Generate(ctx context.Context, src string, catalog *cap.Registry, opts ...Option) (Stream, error) {
	o, err := newOptions(opts)
	if err != nil {
		return nil, err
	}
	c := newCompiler(catalog, o)
	c.token = src
	f, err := c.compileExpr(src)
	if err != nil {
		return nil, err
	}
	return func(yield func(starlark.Value, error) bool) {
		thread := newThread("generate", o.log.With().Str("run", RunID(ctx)).Logger())
		stop := context.AfterFunc(ctx, func() { thread.Cancel(context.Cause(ctx).Error()) })
		defer stop()
		v, err := f.Call(thread)
		if err != nil {
			yield(nil, &EvaluationError{Directive: "--gen", Expr: src, Err: err})
			return
		}
		if starlark.Iterate(v) == nil {
			yield(nil, &StreamContractError{Directive: "--gen", Type: v.Type()})
			return
		}
		for x, err := range elements(v) {
			if err == nil {
				err = ctx.Err()
			}
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(x, nil) {
				return
			}
		}
	}, nil
}

// elements adapts a Starlark iterable to a stream.
func elements(v starlark.Value) Stream {
	return func(yield func(starlark.Value, error) bool) {
		it := starlark.Iterate(v)
		if it == nil {
			yield(nil, fmt.Errorf("got %s, want iterable", v.Type()))
			return
		}
		defer it.Done()
		var x starlark.Value
		for it.Next(&x) {
			if !yield(x, nil) {
				return
			}
		}
	}
}

// streamValue presents a stream to Starlark as a single-use iterable.
// Errors from the underlying stream end iteration and are kept in err.
type streamValue struct {
	src  Stream
	used bool
	err  error
}

var _ starlark.Iterable = (*streamValue)(nil)

func (s *streamValue) String() string        { return "<stream>" }
func (s *streamValue) Type() string          { return "stream" }
func (s *streamValue) Freeze()               {}
func (s *streamValue) Truth() starlark.Bool  { return starlark.True }
func (s *streamValue) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable type: stream") }

func (s *streamValue) Iterate() starlark.Iterator {
	if s.used {
		return &streamIter{sv: s, next: func() (starlark.Value, error, bool) { return nil, nil, false }, stop: func() {}}
	}
	s.used = true
	next, stop := iter.Pull2(s.src)
	return &streamIter{sv: s, next: next, stop: stop}
}

type streamIter struct {
	sv   *streamValue
	next func() (starlark.Value, error, bool)
	stop func()
}

func (it *streamIter) Next(p *starlark.Value) bool {
	v, err, ok := it.next()
	if !ok {
		return false
	}
	if err != nil {
		it.sv.err = err
		return false
	}
	*p = v
	return true
}

func (it *streamIter) Done() { it.stop() }
