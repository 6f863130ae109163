// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package builtin

import (
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"

	"github.com/marcelocantos/starpipe/internal/cap"
)

// Module is a capability backed by a Starlark module value.
type Module struct {
	mod  *starlarkstruct.Module
	desc string
}

var _ cap.Capability = (*Module)(nil)

// NewModule wraps a Starlark module as a capability.
func NewModule(mod *starlarkstruct.Module, desc string) *Module {
	return &Module{mod: mod, desc: desc}
}

func (m *Module) Name() string          { return m.mod.Name }
func (m *Module) Description() string   { return m.desc }
func (m *Module) Kind() cap.Kind        { return cap.KindModule }
func (m *Module) Value() starlark.Value { return m.mod }

// Function is a capability bound to a single callable.
type Function struct {
	fn   *starlark.Builtin
	desc string
}

var _ cap.Capability = (*Function)(nil)

func (f *Function) Name() string          { return f.fn.Name() }
func (f *Function) Description() string   { return f.desc }
func (f *Function) Kind() cap.Kind        { return cap.KindFunction }
func (f *Function) Value() starlark.Value { return f.fn }

// Constant is a capability bound to a plain value.
type Constant struct {
	name  string
	value starlark.Value
	desc  string
}

var _ cap.Capability = (*Constant)(nil)

func (c *Constant) Name() string          { return c.name }
func (c *Constant) Description() string   { return c.desc }
func (c *Constant) Kind() cap.Kind        { return cap.KindConstant }
func (c *Constant) Value() starlark.Value { return c.value }

func newModule(name string, members starlark.StringDict) *starlarkstruct.Module {
	members.Freeze()
	return &starlarkstruct.Module{Name: name, Members: members}
}
