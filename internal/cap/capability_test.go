// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package cap

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

// stubCap is a minimal capability for testing.
type stubCap struct {
	name  string
	kind  Kind
	value starlark.Value
}

func (s *stubCap) Name() string          { return s.name }
func (s *stubCap) Description() string   { return "stub" }
func (s *stubCap) Kind() Kind            { return s.kind }
func (s *stubCap) Value() starlark.Value { return s.value }

func newTestRegistry() *Registry {
	r := NewRegistry()
	inner := &starlarkstruct.Module{Name: "inner", Members: starlark.StringDict{
		"depth": starlark.MakeInt(2),
	}}
	r.Register(&stubCap{name: "mod", kind: KindModule, value: &starlarkstruct.Module{
		Name: "mod",
		Members: starlark.StringDict{
			"inner": inner,
			"name":  starlark.String("mod"),
		},
	}})
	r.Register(&stubCap{name: "answer", kind: KindConstant, value: starlark.MakeInt(42)})
	return r
}

func TestLookup(t *testing.T) {
	r := newTestRegistry()
	c, err := r.Lookup("mod")
	if err != nil {
		t.Fatal(err)
	}
	if c.Name() != "mod" {
		t.Errorf("expected mod, got %s", c.Name())
	}
	if _, err := r.Lookup("nope"); err == nil {
		t.Error("expected error for unknown capability")
	}
}

func TestDisable(t *testing.T) {
	r := newTestRegistry()
	r.Disable("mod")
	if r.Enabled("mod") {
		t.Error("mod should be disabled")
	}
	if !r.Enabled("answer") {
		t.Error("answer should still be enabled")
	}
	r.Disable("later")
	r.Register(&stubCap{name: "later", kind: KindConstant, value: starlark.None})
	if r.Enabled("later") {
		t.Error("capability registered after Disable should be disabled")
	}
}

func TestSetKindEnabled(t *testing.T) {
	r := newTestRegistry()
	r.SetKindEnabled(KindConstant, false)
	if _, err := r.Lookup("answer"); err == nil {
		t.Error("constants should be disabled")
	}
	if !r.Enabled("mod") {
		t.Error("modules should be unaffected")
	}
}

func TestResolve(t *testing.T) {
	r := newTestRegistry()
	tests := []struct {
		path []string
		want string
	}{
		{[]string{"answer"}, "42"},
		{[]string{"mod", "name"}, `"mod"`},
		{[]string{"mod", "inner", "depth"}, "2"},
	}
	for _, tt := range tests {
		v, err := r.Resolve(tt.path)
		if err != nil {
			t.Fatalf("Resolve(%v): %v", tt.path, err)
		}
		if v.String() != tt.want {
			t.Errorf("Resolve(%v) = %s, want %s", tt.path, v, tt.want)
		}
	}
}

func TestResolveErrors(t *testing.T) {
	r := newTestRegistry()
	tests := []struct {
		path    []string
		segment string
		chain   []string
	}{
		{[]string{"zzz", "nonexistent"}, "zzz", []string{"zzz"}},
		{[]string{"mod", "missing"}, "missing", []string{"mod", "missing"}},
		{[]string{"mod", "inner", "x", "y"}, "x", []string{"mod", "inner", "x"}},
		{[]string{"answer", "bits"}, "bits", []string{"answer", "bits"}},
	}
	for _, tt := range tests {
		_, err := r.Resolve(tt.path)
		var ue *UnresolvedError
		if !errors.As(err, &ue) {
			t.Fatalf("Resolve(%v): expected *UnresolvedError, got %v", tt.path, err)
		}
		if ue.Segment != tt.segment {
			t.Errorf("Resolve(%v): segment = %q, want %q", tt.path, ue.Segment, tt.segment)
		}
		if diff := cmp.Diff(tt.chain, ue.Chain); diff != "" {
			t.Errorf("Resolve(%v): chain mismatch (-want +got):\n%s", tt.path, diff)
		}
	}
}

func TestAllSorted(t *testing.T) {
	r := newTestRegistry()
	var names []string
	for _, c := range r.All() {
		names = append(names, c.Name())
	}
	if diff := cmp.Diff([]string{"answer", "mod"}, names); diff != "" {
		t.Errorf("All() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseKind(t *testing.T) {
	for _, k := range []Kind{KindModule, KindFunction, KindConstant} {
		got, err := ParseKind(k.String())
		if err != nil || got != k {
			t.Errorf("ParseKind(%q) = %v, %v", k.String(), got, err)
		}
	}
	if _, err := ParseKind("tier"); err == nil {
		t.Error("expected error for unknown kind")
	}
}
