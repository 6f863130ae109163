// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package builtin

import (
	"regexp"
	"sync"

	"go.starlark.net/starlark"
)

// Re exposes Go regular expressions. Matches are returned as lists of
// groups (whole match first, unmatched groups None) rather than match
// objects.
var Re = newModule("re", starlark.StringDict{
	"search":    starlark.NewBuiltin("re.search", reFind("")),
	"match":     starlark.NewBuiltin("re.match", reFind("^")),
	"fullmatch": starlark.NewBuiltin("re.fullmatch", reFind("full")),
	"findall":   starlark.NewBuiltin("re.findall", reFindall),
	"sub":       starlark.NewBuiltin("re.sub", reSub),
	"split":     starlark.NewBuiltin("re.split", reSplit),
	"escape":    starlark.NewBuiltin("re.escape", reEscape),
})

var patterns sync.Map // anchored pattern -> *regexp.Regexp

func compilePattern(pattern, anchor string) (*regexp.Regexp, error) {
	switch anchor {
	case "^":
		pattern = `^(?:` + pattern + `)`
	case "full":
		pattern = `^(?:` + pattern + `)$`
	}
	if re, ok := patterns.Load(pattern); ok {
		return re.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	patterns.Store(pattern, re)
	return re, nil
}

func reFind(anchor string) func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error) {
	return func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var pattern, s string
		if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 2, &pattern, &s); err != nil {
			return nil, err
		}
		re, err := compilePattern(pattern, anchor)
		if err != nil {
			return nil, err
		}
		loc := re.FindStringSubmatchIndex(s)
		if loc == nil {
			return starlark.None, nil
		}
		return groups(s, loc), nil
	}
}

func groups(s string, loc []int) *starlark.List {
	elems := make([]starlark.Value, 0, len(loc)/2)
	for i := 0; i+1 < len(loc); i += 2 {
		if loc[i] < 0 {
			elems = append(elems, starlark.None)
			continue
		}
		elems = append(elems, starlark.String(s[loc[i]:loc[i+1]]))
	}
	return starlark.NewList(elems)
}

func reFindall(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var pattern, s string
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 2, &pattern, &s); err != nil {
		return nil, err
	}
	re, err := compilePattern(pattern, "")
	if err != nil {
		return nil, err
	}
	var out []starlark.Value
	for _, m := range re.FindAllStringSubmatch(s, -1) {
		switch len(m) {
		case 1:
			out = append(out, starlark.String(m[0]))
		case 2:
			out = append(out, starlark.String(m[1]))
		default:
			t := make(starlark.Tuple, len(m)-1)
			for i, g := range m[1:] {
				t[i] = starlark.String(g)
			}
			out = append(out, t)
		}
	}
	return starlark.NewList(out), nil
}

// reSub replaces matches using Go's template syntax ($1, ${name}).
func reSub(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var pattern, repl, s string
	count := 0
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "pattern", &pattern, "repl", &repl, "string", &s, "count?", &count); err != nil {
		return nil, err
	}
	re, err := compilePattern(pattern, "")
	if err != nil {
		return nil, err
	}
	n := -1
	if count > 0 {
		n = count
	}
	var out []byte
	last := 0
	for _, m := range re.FindAllStringSubmatchIndex(s, n) {
		out = append(out, s[last:m[0]]...)
		out = re.ExpandString(out, repl, s, m)
		last = m[1]
	}
	out = append(out, s[last:]...)
	return starlark.String(out), nil
}

func reSplit(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var pattern, s string
	maxsplit := 0
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "pattern", &pattern, "string", &s, "maxsplit?", &maxsplit); err != nil {
		return nil, err
	}
	re, err := compilePattern(pattern, "")
	if err != nil {
		return nil, err
	}
	n := -1
	if maxsplit > 0 {
		n = maxsplit + 1
	}
	parts := re.Split(s, n)
	out := make([]starlark.Value, len(parts))
	for i, p := range parts {
		out[i] = starlark.String(p)
	}
	return starlark.NewList(out), nil
}

func reEscape(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var s string
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &s); err != nil {
		return nil, err
	}
	return starlark.String(regexp.QuoteMeta(s)), nil
}
