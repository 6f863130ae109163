// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"maps"

	"go.starlark.net/starlark"
)

// Scope holds the names visible to expressions as a chain of layers. The
// root layer carries builtins and catalog symbols; each %exec stage pushes
// a layer declaring the names it binds. Every stage compiles against the
// layer current at its position, so a statement is only seen by the stages
// after it.
//
// Layers are flattened: each one holds every visible name, and compiled
// stages keep a reference to their layer's map.
type Scope struct {
	layers []*layer
	clock  int
}

type layer struct {
	vars     starlark.StringDict
	declared map[string]bool
	saved    starlark.StringDict
	stamps   map[string]int // clock of the latest write to each name in this run
}

func newLayer(vars starlark.StringDict) *layer {
	return &layer{vars: vars, declared: map[string]bool{}, stamps: map[string]int{}}
}

func newScope(root starlark.StringDict) *Scope {
	return &Scope{layers: []*layer{newLayer(maps.Clone(root))}}
}

// top returns the index of the innermost layer.
func (s *Scope) top() int { return len(s.layers) - 1 }

// Vars returns the names visible at a layer.
func (s *Scope) Vars(layer int) starlark.StringDict { return s.layers[layer].vars }

// Lookup reports the value bound to name in the innermost layer.
func (s *Scope) Lookup(name string) (starlark.Value, bool) {
	v, ok := s.layers[s.top()].vars[name]
	return v, ok
}

// Declared reports whether a statement layer declares name.
func (s *Scope) Declared(name string) bool {
	for _, l := range s.layers[1:] {
		if l.declared[name] {
			return true
		}
	}
	return false
}

// push opens a layer declaring names and returns its index. A name keeps
// the value it had in the enclosing layer, or None, until a statement
// assigns it.
func (s *Scope) push(names []string) int {
	l := newLayer(maps.Clone(s.layers[s.top()].vars))
	for _, n := range names {
		if _, ok := l.vars[n]; !ok {
			l.vars[n] = starlark.None
		}
		l.declared[n] = true
	}
	s.layers = append(s.layers, l)
	return s.top()
}

// bind adds a catalog symbol to the root layer.
func (s *Scope) bind(name string, v starlark.Value) { s.set(0, name, v) }

// set writes name into a layer and the layers after it, stopping at the
// first later layer that declares name itself.
func (s *Scope) set(from int, name string, v starlark.Value) {
	s.clock++
	s.layers[from].stamps[name] = s.clock
	for i := from; i < len(s.layers); i++ {
		if i > from && s.layers[i].declared[name] {
			return
		}
		s.layers[i].vars[name] = v
	}
}

// current returns the value of name as the statement at layer at sees
// it: the most recent write in this run by that layer or an earlier one,
// falling back to the layer's compile-time binding.
func (s *Scope) current(at int, name string) starlark.Value {
	v, latest := s.layers[at].vars[name], 0
	for i := 1; i <= at; i++ {
		if st := s.layers[i].stamps[name]; st > latest {
			v, latest = s.layers[i].vars[name], st
		}
	}
	if v == nil {
		return starlark.None
	}
	return v
}

// snapshot records the compile-time contents of every layer.
func (s *Scope) snapshot() {
	for _, l := range s.layers {
		l.saved = maps.Clone(l.vars)
	}
}

// reset restores every layer to its snapshot in place, so compiled stages
// keep seeing the same maps.
func (s *Scope) reset() {
	for _, l := range s.layers {
		clear(l.vars)
		maps.Copy(l.vars, l.saved)
		clear(l.stamps)
	}
	s.clock = 0
}
