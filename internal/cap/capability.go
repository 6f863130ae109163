// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

// Package cap is the symbol catalog: the set of importable capabilities
// that pipeline expressions may reference without declaring them.
package cap

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.starlark.net/starlark"
)

// Kind classifies what a capability provides.
type Kind int

const (
	KindModule   Kind = iota // a namespace of functions and constants (json, re)
	KindFunction             // a single callable
	KindConstant             // a plain value
)

func (k Kind) String() string {
	switch k {
	case KindModule:
		return "module"
	case KindFunction:
		return "function"
	case KindConstant:
		return "constant"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind converts a string to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "module":
		return KindModule, nil
	case "function":
		return KindFunction, nil
	case "constant":
		return KindConstant, nil
	default:
		return 0, fmt.Errorf("unknown capability kind: %q", s)
	}
}

// Capability is a named value importable by expressions.
type Capability interface {
	// Name returns the top-level identifier expressions use.
	Name() string

	// Description returns a human-readable summary for listings.
	Description() string

	// Kind returns what the capability provides.
	Kind() Kind

	// Value returns the Starlark value bound to Name.
	Value() starlark.Value
}

// UnresolvedError reports a dotted reference the catalog could not
// satisfy. Segment is the first name that failed; Chain is the path that
// was walked up to and including it.
type UnresolvedError struct {
	Segment string
	Chain   []string
	Reason  string
}

func (e *UnresolvedError) Error() string {
	chain := strings.Join(e.Chain, ".")
	if len(e.Chain) <= 1 {
		return fmt.Sprintf("cannot resolve %q: %s", e.Segment, e.Reason)
	}
	return fmt.Sprintf("cannot resolve %q in %s: %s", e.Segment, chain, e.Reason)
}

// Registry maps capability names to implementations and controls which
// of them are importable.
type Registry struct {
	mu       sync.RWMutex
	caps     map[string]Capability
	kinds    map[Kind]bool
	disabled map[string]bool
}

// NewRegistry creates an empty registry with every kind enabled.
func NewRegistry() *Registry {
	return &Registry{
		caps: make(map[string]Capability),
		kinds: map[Kind]bool{
			KindModule:   true,
			KindFunction: true,
			KindConstant: true,
		},
		disabled: make(map[string]bool),
	}
}

// Register adds a capability to the registry, replacing any previous
// capability of the same name.
func (r *Registry) Register(c Capability) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.caps[c.Name()] = c
}

// Lookup returns an importable capability by name.
func (r *Registry) Lookup(name string) (Capability, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.caps[name]
	if !ok {
		return nil, fmt.Errorf("unknown capability: %q", name)
	}
	if r.disabled[name] {
		return nil, fmt.Errorf("capability %q is disabled", name)
	}
	if !r.kinds[c.Kind()] {
		return nil, fmt.Errorf("capability kind %q is disabled", c.Kind())
	}
	return c, nil
}

// SetKindEnabled enables or disables every capability of a kind.
func (r *Registry) SetKindEnabled(k Kind, enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds[k] = enabled
}

// Disable makes the named capability unimportable. Unknown names are
// recorded so that later registrations are disabled too.
func (r *Registry) Disable(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disabled[name] = true
}

// Resolve walks a dotted path: path[0] names a capability and every later
// segment is an attribute of the value before it. It returns the value at
// the end of the path.
func (r *Registry) Resolve(path []string) (starlark.Value, error) {
	if len(path) == 0 {
		return nil, fmt.Errorf("empty symbol path")
	}
	c, err := r.Lookup(path[0])
	if err != nil {
		return nil, &UnresolvedError{Segment: path[0], Chain: path[:1], Reason: err.Error()}
	}
	v := c.Value()
	for i := 1; i < len(path); i++ {
		seg := path[i]
		owner, ok := v.(starlark.HasAttrs)
		if !ok {
			return nil, &UnresolvedError{
				Segment: seg,
				Chain:   path[:i+1],
				Reason:  fmt.Sprintf("%s has no attributes", v.Type()),
			}
		}
		next, err := owner.Attr(seg)
		if err != nil || next == nil {
			return nil, &UnresolvedError{
				Segment: seg,
				Chain:   path[:i+1],
				Reason:  fmt.Sprintf("%s has no attribute %q", strings.Join(path[:i], "."), seg),
			}
		}
		v = next
	}
	return v, nil
}

// All returns every registered capability sorted by name, including
// disabled ones.
func (r *Registry) All() []Capability {
	r.mu.RLock()
	defer r.mu.RUnlock()
	caps := make([]Capability, 0, len(r.caps))
	for _, c := range r.caps {
		caps = append(caps, c)
	}
	sort.Slice(caps, func(i, j int) bool {
		return caps[i].Name() < caps[j].Name()
	})
	return caps
}

// Enabled reports whether the named capability is currently importable.
func (r *Registry) Enabled(name string) bool {
	_, err := r.Lookup(name)
	return err == nil
}
