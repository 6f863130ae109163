// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package expr

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.starlark.net/starlark"
)

func refPaths(refs []Ref) []string {
	var out []string
	for _, r := range refs {
		out = append(out, r.Dotted())
	}
	return out
}

func TestExprRefs(t *testing.T) {
	tests := []struct {
		src  string
		want []string
	}{
		{"i.upper()", nil},
		{"len(i) + idx", nil},
		{"re.sub('a', 'b', i)", []string{"re.sub"}},
		{"json.encode(i) + json.encode(i)", []string{"json.encode"}},
		{"zzz.nonexistent(i)", []string{"zzz.nonexistent"}},
		{"math.pi * math.floor(x)", []string{"math.pi", "math.floor", "x"}},
		{"[y for y in i if y != sep]", []string{"sep"}},
		{"(lambda q: q + k)(i)", []string{"k"}},
		{"map(str, i)", nil},
		{"json.decode(i).get('a')", []string{"json.decode"}},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			refs, err := ExprRefs("test", tt.src, "i", "idx")
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, refPaths(refs)); diff != "" {
				t.Errorf("refs mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExprRefsSyntaxError(t *testing.T) {
	if _, err := ExprRefs("test", "i +", "i"); err == nil {
		t.Fatal("expected syntax error")
	}
}

func TestStmtRefs(t *testing.T) {
	refs, binds, err := StmtRefs("test", "x = json.decode(i)\ndef f(a):\n    return a + y\n", "i")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"json.decode", "y"}, refPaths(refs)); diff != "" {
		t.Errorf("refs mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"x", "f"}, binds); diff != "" {
		t.Errorf("binds mismatch (-want +got):\n%s", diff)
	}
}

func TestCompileCall(t *testing.T) {
	env := starlark.StringDict{"suffix": starlark.String("!")}
	f, err := Compile("test", "i + suffix  # trailing comment", env, "i")
	if err != nil {
		t.Fatal(err)
	}
	thread := &starlark.Thread{}
	got, err := f.Call(thread, starlark.String("hi"))
	if err != nil {
		t.Fatal(err)
	}
	if got != starlark.String("hi!") {
		t.Errorf("got %s, want \"hi!\"", got)
	}

	env["suffix"] = starlark.String("?")
	got, err = f.Call(thread, starlark.String("hi"))
	if err != nil {
		t.Fatal(err)
	}
	if got != starlark.String("hi?") {
		t.Errorf("env write not seen: got %s", got)
	}
}

func TestCompileUndefined(t *testing.T) {
	if _, err := Compile("test", "i + nope", starlark.StringDict{}, "i"); err == nil {
		t.Fatal("expected error for undefined name")
	}
}

func TestStmtExec(t *testing.T) {
	s, err := CompileStmt("test", "n = len(i)\nw = n * k", []string{"n", "w"}, nil, func(name string) bool {
		return name == "i" || name == "k"
	})
	if err != nil {
		t.Fatal(err)
	}
	globals, err := s.Exec(&starlark.Thread{}, starlark.StringDict{
		"i": starlark.String("abc"),
		"k": starlark.MakeInt(2),
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := globals["w"]; got == nil || got.String() != "6" {
		t.Errorf("w = %v, want 6", got)
	}
}

func TestStmtCarry(t *testing.T) {
	s, err := CompileStmt("test", "total = total + len(i)", []string{"total"}, []string{"total"}, func(name string) bool {
		return name == "i"
	})
	if err != nil {
		t.Fatal(err)
	}
	prev := starlark.NewDict(1)
	if err := prev.SetKey(starlark.String("total"), starlark.MakeInt(10)); err != nil {
		t.Fatal(err)
	}
	globals, err := s.Exec(&starlark.Thread{}, starlark.StringDict{
		"i":          starlark.String("abc"),
		PrevVariable: prev,
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := globals["total"]; got == nil || got.String() != "13" {
		t.Errorf("total = %v, want 13", got)
	}
}

func TestStmtCarrySyntaxErrorLine(t *testing.T) {
	_, err := CompileStmt("test", "x = 1\nx = (", []string{"x"}, []string{"x"}, func(string) bool { return false })
	if err == nil || !strings.Contains(err.Error(), "test:2:") {
		t.Errorf("got %v, want an error on line 2", err)
	}
}

func TestBuiltins(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"map(lambda x: x * 2, [1, 2, 3])", "[2, 4, 6]"},
		{"map(lambda a, b: a + b, [1, 2], [10, 20, 30])", "[11, 22]"},
		{"filter(None, [0, 1, '', 'a'])", `[1, "a"]`},
		{"filter(lambda x: x > 1, [1, 2, 3])", "[2, 3]"},
		{"reduce(lambda a, b: a * b, [1, 2, 3, 4])", "24"},
		{"reduce(lambda a, b: a + b, [], 10)", "10"},
		{"sum([1, 2, 3])", "6"},
		{"sum([[1], [2]], [])", "[1, 2]"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			f, err := Compile("test", tt.src, Builtins)
			if err != nil {
				t.Fatal(err)
			}
			got, err := f.Call(&starlark.Thread{})
			if err != nil {
				t.Fatal(err)
			}
			if got.String() != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestReduceEmpty(t *testing.T) {
	f, err := Compile("test", "reduce(lambda a, b: a, [])", Builtins)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Call(&starlark.Thread{}); err == nil {
		t.Fatal("expected error for empty reduce")
	}
}

func TestGetItem(t *testing.T) {
	list := starlark.NewList([]starlark.Value{starlark.String("a"), starlark.String("b")})
	got, err := GetItem(list, starlark.MakeInt(-1))
	if err != nil {
		t.Fatal(err)
	}
	if got != starlark.String("b") {
		t.Errorf("got %s, want \"b\"", got)
	}
	if _, err := GetItem(list, starlark.MakeInt(2)); err == nil {
		t.Error("expected out of range error")
	}
	d := starlark.NewDict(1)
	_ = d.SetKey(starlark.String("k"), starlark.True)
	if got, err := GetItem(d, starlark.String("k")); err != nil || got != starlark.True {
		t.Errorf("GetItem(dict) = %v, %v", got, err)
	}
}

func TestReverse(t *testing.T) {
	got, err := Reverse(starlark.String("héllo"))
	if err != nil {
		t.Fatal(err)
	}
	if got != starlark.String("olléh") {
		t.Errorf("got %s", got)
	}
	if _, err := Reverse(starlark.MakeInt(1)); err == nil {
		t.Error("expected error reversing int")
	}
}
