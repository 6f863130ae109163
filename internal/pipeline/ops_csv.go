// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	"go.starlark.net/starlark"

	"github.com/marcelocantos/starpipe/internal/codec"
	"github.com/marcelocantos/starpipe/internal/render"
)

// buildCSV peeks at the first item to choose a direction. Text items are
// parsed as CSV; quoted fields may span items, and the reader buffers a
// few items ahead. Sequences (or dicts, with header) are written one line
// per item.
func buildCSV(header bool) func(*compiler, *Operation) error {
	return func(_ *compiler, op *Operation) error {
		op.transform = func(_ *runtime, in Stream) Stream {
			return func(yield func(starlark.Value, error) bool) {
				next, stop := iter.Pull2(in)
				defer stop()
				first, err, ok := next()
				if !ok {
					return
				}
				if err != nil {
					yield(nil, err)
					return
				}
				w := csvOp{op: op, next: next, yield: yield}
				switch kind := codec.KindOf(first); {
				case kind == codec.KindText:
					w.read(first, header)
				case kind == codec.KindSequence && !header:
					w.writeRows(first)
				case kind == codec.KindMapping && header:
					w.writeDicts(first)
				default:
					want := "string or sequence"
					if header {
						want = "string or dict"
					}
					yield(nil, op.evalError(0, fmt.Errorf("got %s, want %s", first.Type(), want)))
				}
			}
		}
		return nil
	}
}

type csvOp struct {
	op    *Operation
	next  func() (starlark.Value, error, bool)
	yield func(starlark.Value, error) bool
	idx   int
}

// pull returns the next item, or false at the end or after reporting an
// error.
func (w *csvOp) pull() (starlark.Value, bool) {
	v, err, ok := w.next()
	if !ok {
		return nil, false
	}
	if err != nil {
		w.yield(nil, err)
		return nil, false
	}
	w.idx++
	return v, true
}

func (w *csvOp) read(first starlark.Value, header bool) {
	lr := &lineReader{w: w}
	lr.push(first)
	r := csv.NewReader(lr)
	r.FieldsPerRecord = -1
	var names []string
	for {
		rec, err := r.Read()
		if err != nil {
			switch {
			case lr.err != nil:
				w.yield(nil, lr.err)
			case !errors.Is(err, io.EOF):
				w.yield(nil, w.op.evalError(w.idx, err))
			}
			return
		}
		if header && names == nil {
			names = rec
			continue
		}
		var v starlark.Value
		if header {
			v = recordDict(names, rec)
		} else {
			v = recordList(rec)
		}
		if !w.yield(v, nil) {
			return
		}
	}
}

func recordList(rec []string) *starlark.List {
	elems := make([]starlark.Value, len(rec))
	for i, f := range rec {
		elems[i] = starlark.String(f)
	}
	return starlark.NewList(elems)
}

// recordDict pairs fields with header names. Missing fields are None;
// surplus fields are collected in a list under the key None.
func recordDict(names, rec []string) *starlark.Dict {
	d := starlark.NewDict(len(names))
	for i, name := range names {
		var v starlark.Value = starlark.None
		if i < len(rec) {
			v = starlark.String(rec[i])
		}
		_ = d.SetKey(starlark.String(name), v)
	}
	if len(rec) > len(names) {
		_ = d.SetKey(starlark.None, recordList(rec[len(names):]))
	}
	return d
}

func (w *csvOp) writeRows(first starlark.Value) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	for v, ok := first, true; ok; v, ok = w.pull() {
		if codec.KindOf(v) != codec.KindSequence {
			w.yield(nil, w.op.evalError(w.idx, fmt.Errorf("got %s, want sequence", v.Type())))
			return
		}
		elems, err := elementsOf(v)
		if err != nil {
			w.yield(nil, w.op.evalError(w.idx, err))
			return
		}
		rec := make([]string, len(elems))
		for i, e := range elems {
			rec[i] = field(e)
		}
		line, err := csvLine(cw, &buf, rec)
		if err != nil {
			w.yield(nil, w.op.evalError(w.idx, err))
			return
		}
		if !w.yield(starlark.String(line), nil) {
			return
		}
	}
}

// writeDicts takes the header from the first dict's keys. Later dicts may
// omit keys but not add them.
func (w *csvOp) writeDicts(first starlark.Value) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	keys := first.(starlark.IterableMapping).Items()
	names := make([]string, len(keys))
	for i, kv := range keys {
		names[i] = field(kv[0])
	}
	line, err := csvLine(cw, &buf, names)
	if err != nil {
		w.yield(nil, w.op.evalError(0, err))
		return
	}
	if !w.yield(starlark.String(line), nil) {
		return
	}
	for v, ok := first, true; ok; v, ok = w.pull() {
		m, isMap := v.(starlark.IterableMapping)
		if !isMap {
			w.yield(nil, w.op.evalError(w.idx, fmt.Errorf("got %s, want dict", v.Type())))
			return
		}
		rec := make([]string, len(keys))
		matched := 0
		for i, kv := range keys {
			x, found, err := m.Get(kv[0])
			if err != nil {
				w.yield(nil, w.op.evalError(w.idx, err))
				return
			}
			if found {
				rec[i] = field(x)
				matched++
			}
		}
		if n := len(m.Items()); n > matched {
			w.yield(nil, w.op.evalError(w.idx, fmt.Errorf("dict has %d field(s) not in header %v", n-matched, names)))
			return
		}
		line, err := csvLine(cw, &buf, rec)
		if err != nil {
			w.yield(nil, w.op.evalError(w.idx, err))
			return
		}
		if !w.yield(starlark.String(line), nil) {
			return
		}
	}
}

func csvLine(cw *csv.Writer, buf *bytes.Buffer, rec []string) (string, error) {
	buf.Reset()
	if err := cw.Write(rec); err != nil {
		return "", err
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// field renders one CSV cell: None is empty, text is raw, and anything
// else takes its output form.
func field(v starlark.Value) string {
	if v == starlark.None {
		return ""
	}
	return render.Value(v)
}

func elementsOf(v starlark.Value) ([]starlark.Value, error) {
	var out []starlark.Value
	for x, err := range elements(v) {
		if err != nil {
			return nil, err
		}
		out = append(out, x)
	}
	return out, nil
}

// lineReader presents text items as newline-terminated input to a CSV
// reader.
type lineReader struct {
	w   *csvOp
	buf []byte
	err error
}

func (r *lineReader) push(v starlark.Value) bool {
	s, ok := codec.Text(v)
	if !ok {
		r.err = r.w.op.evalError(r.w.idx, fmt.Errorf("got %s, want string", v.Type()))
		return false
	}
	r.buf = append(append(r.buf, s...), '\n')
	return true
}

func (r *lineReader) Read(p []byte) (int, error) {
	for len(r.buf) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		v, err, ok := r.w.next()
		if !ok {
			return 0, io.EOF
		}
		if err != nil {
			r.err = err
			return 0, err
		}
		r.w.idx++
		if !r.push(v) {
			return 0, r.err
		}
	}
	n := copy(p, r.buf)
	r.buf = r.buf[n:]
	return n, nil
}
