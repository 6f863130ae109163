// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"fmt"
	"slices"
	"sort"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

func registerStream() {
	register(
		&Directive{Name: "%reverse-stream", Kind: KindStream,
			Summary: "reverse the order of the stream (materializes it)", build: buildReverseStream},
		&Directive{Name: "%accumulate", Kind: KindStream,
			Summary: "collect the whole stream into a single list", build: buildAccumulate},
		&Directive{Name: "%batched", Kind: KindStream, Args: []Arg{countArg},
			Summary: "group items into lists of up to N", build: buildBatched},
		&Directive{Name: "%flatten", Kind: KindStream,
			Summary: "replace each iterable item with its elements", build: buildFlatten},
		&Directive{Name: "%head", Kind: KindStream, Args: []Arg{countArg},
			Summary: "keep the first N items and stop reading", build: buildHead},
		&Directive{Name: "%skip", Kind: KindStream, Args: []Arg{countArg},
			Summary: "drop the first N items", build: buildSkip},
		&Directive{Name: "%tail", Kind: KindStream, Args: []Arg{countArg},
			Summary: "keep only the last N items", build: buildTail},
		&Directive{Name: "%enumerate", Kind: KindStream,
			Summary: "pair each item with its index as (index, item)", build: buildEnumerate},
		&Directive{Name: "%sort-stream", Kind: KindStream,
			Summary: "sort the whole stream (materializes it)", build: buildSortStream},
		&Directive{Name: "%stream", Kind: KindStream, Args: []Arg{exprArg},
			Summary: "replace the stream with an iterable computed from it", build: buildStream},
		&Directive{Name: "%csv", Kind: KindStream,
			Summary: "parse text lines as CSV rows, or write sequences as CSV lines", build: buildCSV(false)},
		&Directive{Name: "%csv-dict", Kind: KindStream,
			Summary: "parse CSV with a header row into dicts, or write dicts with a header", build: buildCSV(true)},
	)
}

// collectItems drains in, reporting whether it completed. On failure the
// error has already been passed to yield.
func collectItems(in Stream, yield func(starlark.Value, error) bool) ([]starlark.Value, bool) {
	var items []starlark.Value
	for v, err := range in {
		if err != nil {
			yield(nil, err)
			return nil, false
		}
		items = append(items, v)
	}
	return items, true
}

func buildReverseStream(_ *compiler, op *Operation) error {
	op.transform = func(_ *runtime, in Stream) Stream {
		return func(yield func(starlark.Value, error) bool) {
			items, ok := collectItems(in, yield)
			if !ok {
				return
			}
			for _, v := range slices.Backward(items) {
				if !yield(v, nil) {
					return
				}
			}
		}
	}
	return nil
}

func buildAccumulate(_ *compiler, op *Operation) error {
	op.transform = func(_ *runtime, in Stream) Stream {
		return func(yield func(starlark.Value, error) bool) {
			items, ok := collectItems(in, yield)
			if !ok {
				return
			}
			yield(starlark.NewList(items), nil)
		}
	}
	return nil
}

func buildBatched(_ *compiler, op *Operation) error {
	n := op.Args[0].(int)
	if n == 0 {
		return &InvalidArgumentError{Position: op.Position, Token: op.Directive, Arg: "n", Value: "0", Err: fmt.Errorf("must be at least 1")}
	}
	op.transform = func(_ *runtime, in Stream) Stream {
		return func(yield func(starlark.Value, error) bool) {
			batch := make([]starlark.Value, 0, n)
			for v, err := range in {
				if err != nil {
					yield(nil, err)
					return
				}
				batch = append(batch, v)
				if len(batch) == n {
					if !yield(starlark.NewList(batch), nil) {
						return
					}
					batch = make([]starlark.Value, 0, n)
				}
			}
			if len(batch) > 0 {
				yield(starlark.NewList(batch), nil)
			}
		}
	}
	return nil
}

func buildFlatten(_ *compiler, op *Operation) error {
	op.transform = func(_ *runtime, in Stream) Stream {
		return func(yield func(starlark.Value, error) bool) {
			idx := 0
			for v, err := range in {
				if err != nil {
					yield(nil, err)
					return
				}
				if starlark.Iterate(v) == nil {
					yield(nil, op.evalError(idx, fmt.Errorf("got %s, want iterable", v.Type())))
					return
				}
				for x := range elements(v) {
					if !yield(x, nil) {
						return
					}
				}
				idx++
			}
		}
	}
	return nil
}

func buildHead(_ *compiler, op *Operation) error {
	n := op.Args[0].(int)
	op.transform = func(_ *runtime, in Stream) Stream {
		return func(yield func(starlark.Value, error) bool) {
			if n == 0 {
				return
			}
			seen := 0
			for v, err := range in {
				if !yield(v, err) || err != nil {
					return
				}
				if seen++; seen == n {
					return
				}
			}
		}
	}
	return nil
}

func buildSkip(_ *compiler, op *Operation) error {
	n := op.Args[0].(int)
	op.transform = func(_ *runtime, in Stream) Stream { return Skip(in, n) }
	return nil
}

// buildTail keeps a ring buffer of the last n items.
func buildTail(_ *compiler, op *Operation) error {
	n := op.Args[0].(int)
	op.transform = func(_ *runtime, in Stream) Stream {
		return func(yield func(starlark.Value, error) bool) {
			if n == 0 {
				for _, err := range in {
					if err != nil {
						yield(nil, err)
						return
					}
				}
				return
			}
			ring := make([]starlark.Value, 0, n)
			next := 0
			for v, err := range in {
				if err != nil {
					yield(nil, err)
					return
				}
				if len(ring) < n {
					ring = append(ring, v)
					continue
				}
				ring[next] = v
				next = (next + 1) % n
			}
			for i := range ring {
				if !yield(ring[(next+i)%len(ring)], nil) {
					return
				}
			}
		}
	}
	return nil
}

func buildEnumerate(_ *compiler, op *Operation) error {
	op.transform = func(_ *runtime, in Stream) Stream {
		return func(yield func(starlark.Value, error) bool) {
			idx := 0
			for v, err := range in {
				if err != nil {
					yield(nil, err)
					return
				}
				if !yield(starlark.Tuple{starlark.MakeInt(idx), v}, nil) {
					return
				}
				idx++
			}
		}
	}
	return nil
}

func buildSortStream(_ *compiler, op *Operation) error {
	op.transform = func(_ *runtime, in Stream) Stream {
		return func(yield func(starlark.Value, error) bool) {
			items, ok := collectItems(in, yield)
			if !ok {
				return
			}
			var cmpErr error
			sort.SliceStable(items, func(i, j int) bool {
				if cmpErr != nil {
					return false
				}
				less, err := starlark.Compare(syntax.LT, items[i], items[j])
				if err != nil {
					cmpErr = err
				}
				return less
			})
			if cmpErr != nil {
				yield(nil, op.evalError(0, cmpErr))
				return
			}
			for _, v := range items {
				if !yield(v, nil) {
					return
				}
			}
		}
	}
	return nil
}

// buildStream evaluates an expression with the stream bound to the
// stream variable. The stream is pulled only as far as the expression
// iterates it.
func buildStream(c *compiler, op *Operation) error {
	src := op.Args[0].(string)
	f, err := c.compileExpr(src, c.opts.streamVariable)
	if err != nil {
		return err
	}
	op.expr = src
	op.transform = func(rt *runtime, in Stream) Stream {
		return func(yield func(starlark.Value, error) bool) {
			sv := &streamValue{src: in}
			result, err := f.Call(rt.thread, sv)
			if sv.err != nil {
				yield(nil, sv.err)
				return
			}
			if err != nil {
				yield(nil, op.evalError(0, err))
				return
			}
			if starlark.Iterate(result) == nil {
				yield(nil, &StreamContractError{Position: op.Position, Directive: op.Directive, Type: result.Type()})
				return
			}
			for v := range elements(result) {
				if sv.err != nil {
					break
				}
				if !yield(v, nil) {
					return
				}
			}
			if sv.err != nil {
				yield(nil, sv.err)
			}
		}
	}
	return nil
}
