// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package mcpserver

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"

	"github.com/marcelocantos/starpipe/internal/cap"
	"github.com/marcelocantos/starpipe/internal/cap/builtin"
	"github.com/marcelocantos/starpipe/internal/journal"
)

func newServer(t *testing.T, j *journal.Journal) *Server {
	t.Helper()
	reg := cap.NewRegistry()
	builtin.RegisterAll(reg)
	return New(reg, "test", zerolog.Nop(), j)
}

func call(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = "run_pipeline"
	req.Params.Arguments = args
	return req
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) != 1 {
		t.Fatalf("got %d content items", len(res.Content))
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("got %T, want mcp.TextContent", res.Content[0])
	}
	return tc.Text
}

func TestRunPipeline(t *testing.T) {
	s := newServer(t, nil)
	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{
			name: "input",
			args: map[string]any{"directives": []any{"%filter", "'a' in i", "i.upper()"}, "input": "cat\ndog\nbat"},
			want: "CAT\nBAT",
		},
		{
			name: "generate",
			args: map[string]any{"directives": []any{"{'n': i}"}, "generate": "range(2)"},
			want: "{\"n\": 0}\n{\"n\": 1}",
		},
		{
			name: "truncated",
			args: map[string]any{"directives": []any{"i"}, "generate": "range(10)", "max_items": 3},
			want: "0\n1\n2\n[output truncated at 3 items]",
		},
		{
			name: "no directives",
			args: map[string]any{"directives": []any{}, "input": "x"},
			want: "x",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := s.runPipeline(context.Background(), call(tt.args))
			if err != nil {
				t.Fatal(err)
			}
			if res.IsError {
				t.Fatalf("tool error: %s", text(t, res))
			}
			if diff := cmp.Diff(tt.want, text(t, res)); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestRunPipelineErrors(t *testing.T) {
	s := newServer(t, nil)
	tests := []struct {
		name string
		args map[string]any
		want []string
	}{
		{"missing directives", map[string]any{"input": "x"}, []string{"directives"}},
		{"unknown directive", map[string]any{"directives": []any{"%nope"}}, []string{`unknown directive "%nope"`}},
		{"unresolved", map[string]any{"directives": []any{"zzz.f(i)"}}, []string{`"zzz"`}},
		{"partial output", map[string]any{"directives": []any{"int(i)"}, "input": "1\nx"}, []string{"1\nerror: ", "item 1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := s.runPipeline(context.Background(), call(tt.args))
			if err != nil {
				t.Fatal(err)
			}
			if !res.IsError {
				t.Fatalf("expected tool error, got %q", text(t, res))
			}
			got := text(t, res)
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("%q does not contain %q", got, w)
				}
			}
		})
	}
}

func TestRunPipelineJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.jsonl")
	j, err := journal.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	s := newServer(t, j)
	if _, err := s.runPipeline(context.Background(), call(map[string]any{
		"directives": []any{"%upper"}, "input": "a\nb",
	})); err != nil {
		t.Fatal(err)
	}
	if err := journal.Verify(path); err != nil {
		t.Fatal(err)
	}
	entries, err := journal.Tail(path, 1)
	if err != nil || len(entries) != 1 {
		t.Fatalf("Tail = %v, %v", entries, err)
	}
	e := entries[0]
	if e.Source != journal.SourceMCP || e.ItemsOut != 2 || e.Run == "" {
		t.Errorf("unexpected entry %+v", e)
	}
	if diff := cmp.Diff([]string{"%upper"}, e.Directives); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestListTools(t *testing.T) {
	s := newServer(t, nil)
	s.catalog.Disable("os")

	res, err := s.listDirectives(context.Background(), mcp.CallToolRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if got := text(t, res); !strings.Contains(got, "%replace OLD NEW [item]") || !strings.Contains(got, "%csv [stream]") {
		t.Errorf("list_directives output:\n%s", got)
	}

	res, err = s.listCapabilities(context.Background(), mcp.CallToolRequest{})
	if err != nil {
		t.Fatal(err)
	}
	got := text(t, res)
	if !strings.Contains(got, "json [module]") || !strings.Contains(got, "Counter [function]") {
		t.Errorf("list_capabilities output:\n%s", got)
	}
	if strings.Contains(got, "os [module]") {
		t.Errorf("disabled capability listed:\n%s", got)
	}
}
