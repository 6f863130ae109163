// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"context"
	"iter"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.starlark.net/starlark"

	"github.com/marcelocantos/starpipe/internal/render"
)

// Pipeline is a compiled, immutable sequence of stages. A Pipeline must
// not run concurrently with itself; compile one per goroutine instead.
type Pipeline struct {
	Ops   []*Operation
	scope *Scope
	opts  options
}

// Run lazily applies the pipeline to in. Items are pulled from in only as
// the returned stream is consumed. The scope is restored to its
// compile-time state at the start of each run, and cancelling ctx stops
// both pulling and any Starlark evaluation in progress.
func (p *Pipeline) Run(ctx context.Context, in Stream) Stream {
	return func(yield func(starlark.Value, error) bool) {
		p.scope.reset()
		log := p.opts.log.With().Str("run", RunID(ctx)).Logger()
		thread := newThread("starpipe", log)
		stop := context.AfterFunc(ctx, func() { thread.Cancel(context.Cause(ctx).Error()) })
		defer stop()

		rt := &runtime{ctx: ctx, thread: thread, scope: p.scope, log: log}
		var nin, nout int
		s := counted(in, &nin)
		for _, op := range p.Ops {
			s = op.lift(rt, s)
		}

		start := time.Now()
		log.Debug().Int("stages", len(p.Ops)).Msg("run started")
		for v, err := range s {
			if err == nil {
				err = ctx.Err()
			} else if ctx.Err() != nil {
				err = context.Cause(ctx)
			}
			if err != nil {
				log.Error().Err(err).Int("items_in", nin).Int("items_out", nout).Msg("run failed")
				yield(nil, err)
				return
			}
			nout++
			if !yield(v, nil) {
				break
			}
		}
		log.Debug().
			Int("items_in", nin).
			Int("items_out", nout).
			Dur("elapsed", time.Since(start)).
			Msg("run finished")
	}
}

// newThread returns a Starlark thread whose print output goes to log.
func newThread(name string, log zerolog.Logger) *starlark.Thread {
	return &starlark.Thread{
		Name: name,
		Print: func(_ *starlark.Thread, msg string) {
			log.Info().Str("source", "print").Msg(msg)
		},
	}
}

type runIDKey struct{}

// WithRunID returns a context that makes Run tag its logs with id.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

// RunID returns the run ID carried by ctx, or a fresh random one.
func RunID(ctx context.Context) string {
	if id, ok := ctx.Value(runIDKey{}).(string); ok {
		return id
	}
	return uuid.NewString()
}

// RunLines runs the pipeline over text lines and renders each output
// item as a line.
func (p *Pipeline) RunLines(ctx context.Context, lines iter.Seq2[string, error]) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for v, err := range p.Run(ctx, Text(lines)) {
			if err != nil {
				yield("", err)
				return
			}
			if !yield(render.Value(v), nil) {
				return
			}
		}
	}
}

// lift adapts an operation to the stream it receives: item operations
// become a lazy map and filter, stream operations replace the stream.
func (op *Operation) lift(rt *runtime, in Stream) Stream {
	if op.Kind == KindStream {
		return op.transform(rt, in)
	}
	return func(yield func(starlark.Value, error) bool) {
		idx := 0
		for v, err := range in {
			if err != nil {
				yield(nil, err)
				return
			}
			out, keep, err := op.apply(rt, v, idx)
			if err != nil {
				yield(nil, op.evalError(idx, err))
				return
			}
			idx++
			if keep && !yield(out, nil) {
				return
			}
		}
	}
}

func (op *Operation) evalError(idx int, err error) error {
	return &EvaluationError{
		Position:  op.Position,
		Directive: op.Directive,
		Expr:      op.expr,
		Index:     idx,
		Err:       err,
	}
}

func counted(in Stream, n *int) Stream {
	return func(yield func(starlark.Value, error) bool) {
		for v, err := range in {
			if err == nil {
				*n++
			}
			if !yield(v, err) {
				return
			}
		}
	}
}
