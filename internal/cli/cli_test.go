// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"github.com/marcelocantos/starpipe/internal/cap"
	"github.com/marcelocantos/starpipe/internal/cap/builtin"
	"github.com/marcelocantos/starpipe/internal/config"
	"github.com/marcelocantos/starpipe/internal/journal"
)

type testEnv struct {
	*Env
	out, errOut *bytes.Buffer
}

func newEnv(t *testing.T, stdin string) testEnv {
	t.Helper()
	reg := cap.NewRegistry()
	builtin.RegisterAll(reg)
	var out, errOut bytes.Buffer
	return testEnv{
		Env: &Env{
			Config:  config.DefaultConfig(),
			Catalog: reg,
			Log:     zerolog.Nop(),
			Stdin:   strings.NewReader(stdin),
			Stdout:  &out,
			Stderr:  &errOut,
		},
		out:    &out,
		errOut: &errOut,
	}
}

func TestRunPipeline(t *testing.T) {
	tests := []struct {
		name  string
		stdin string
		args  []string
		want  string
	}{
		{"identity", "a\nb\n", nil, "a\nb\n"},
		{"expression", "a\nb\n", []string{"i.upper()"}, "A\nB\n"},
		{"filter", "cat\ndog\nbat\n", []string{"%filter", "'a' in i"}, "cat\nbat\n"},
		{"crlf input", "a\r\nb\r\n", []string{"i + '!'"}, "a!\nb!\n"},
		{"no trailing newline", "a\nb", []string{"len(i)"}, "1\n1\n"},
		{"gen", "", []string{"--gen", "range(3)", "i * 2"}, "0\n2\n4\n"},
		{"skip", "a\nb\nc\n", []string{"--skip", "2"}, "c\n"},
		{"block", "a\nb", []string{"--block", "len(i)"}, "3\n"},
		{"linesep", "a\nb\n", []string{"--linesep", `\t`}, "a\tb\t"},
		{"literal linesep", "a\nb\n", []string{"--linesep", ","}, "a,b,"},
		{"variable", "a\n", []string{"--variable", "line", "line * 2"}, "aa\n"},
		{"stream variable", "b\na\n", []string{"--stream-variable", "all_", "%stream", "sorted(all_)"}, "a\nb\n"},
		{"json output", "a\n", []string{"{'k': [i, 1, None]}"}, "{\"k\": [\"a\", 1, null]}\n"},
		{"empty input", "", []string{"i"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t, tt.stdin)
			if code := RunPipeline(context.Background(), e.Env, tt.args); code != ExitOK {
				t.Fatalf("exit %d, stderr:\n%s", code, e.errOut)
			}
			if diff := cmp.Diff(tt.want, e.out.String()); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestRunPipelineFailures(t *testing.T) {
	tests := []struct {
		name    string
		stdin   string
		args    []string
		code    int
		stdout  string
		message string
	}{
		{"unknown directive", "a\n", []string{"%nope"}, ExitError, "", `unknown directive "%nope"`},
		{"unresolved", "a\n", []string{"zzz.f(i)"}, ExitError, "", `"zzz"`},
		{"missing argument", "a\n", []string{"%head"}, ExitError, "", "%head takes 1 argument(s), got 0"},
		{"evaluation", "1\n2\nx\n", []string{"int(i)"}, ExitError, "1\n2\n", "starpipe: "},
		{"bad flag", "", []string{"--bogus"}, ExitUsage, "", "-bogus"},
		{"negative skip", "", []string{"--skip", "-1"}, ExitUsage, "", "--skip must not be negative"},
		{"bad linesep", "", []string{"--linesep", `\q`}, ExitUsage, "", "--linesep"},
		{"reserved variable", "a\n", []string{"--variable", "idx", "i"}, ExitError, "", "idx"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t, tt.stdin)
			if code := RunPipeline(context.Background(), e.Env, tt.args); code != tt.code {
				t.Fatalf("exit %d, want %d; stderr:\n%s", code, tt.code, e.errOut)
			}
			if diff := cmp.Diff(tt.stdout, e.out.String()); diff != "" {
				t.Errorf("stdout (-want +got):\n%s", diff)
			}
			if !strings.Contains(e.errOut.String(), tt.message) {
				t.Errorf("stderr %q does not contain %q", e.errOut, tt.message)
			}
		})
	}
}

func TestRunPipelineInterrupted(t *testing.T) {
	e := newEnv(t, "a\nb\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if code := RunPipeline(ctx, e.Env, []string{"i"}); code != ExitInterrupt {
		t.Fatalf("exit %d, want %d", code, ExitInterrupt)
	}
	if !strings.Contains(e.errOut.String(), "interrupted") {
		t.Errorf("stderr: %q", e.errOut)
	}
}

func openJournal(t *testing.T, e testEnv) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "journal.jsonl")
	j, err := journal.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	e.Journal = j
	e.Config.Journal = config.JournalConfig{Enabled: true, Path: path}
	return path
}

func TestRunPipelineJournal(t *testing.T) {
	e := newEnv(t, "a\nb\n")
	path := openJournal(t, e)

	RunPipeline(context.Background(), e.Env, []string{"i.upper()"})
	RunPipeline(context.Background(), e.Env, []string{"--gen", "range(4)", "%head", "3"})
	RunPipeline(context.Background(), e.Env, []string{"%nope"})

	entries, err := journal.Tail(path, 10)
	if err != nil {
		t.Fatal(err)
	}
	type summary struct {
		Source     journal.Source
		Directives []string
		Items      int
		Code       int
		Failed     bool
	}
	var got []summary
	for _, en := range entries {
		got = append(got, summary{en.Source, en.Directives, en.ItemsOut, en.ExitCode, en.Error != ""})
	}
	want := []summary{
		{journal.SourceStdin, []string{"i.upper()"}, 2, ExitOK, false},
		{journal.SourceGenerate, []string{"%head", "3"}, 3, ExitOK, false},
		{journal.SourceStdin, []string{"%nope"}, 0, ExitError, true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if err := journal.Verify(path); err != nil {
		t.Error(err)
	}
}

func TestRunJournal(t *testing.T) {
	e := newEnv(t, "x\n")
	openJournal(t, e)

	if code := RunJournal(e.Env, []string{"show"}); code != ExitOK || !strings.Contains(e.out.String(), "no journal entries") {
		t.Fatalf("show on empty journal: exit %d, %q", code, e.out)
	}
	RunPipeline(context.Background(), e.Env, []string{"i"})
	e.out.Reset()

	if code := RunJournal(e.Env, []string{"verify"}); code != ExitOK {
		t.Fatalf("verify: exit %d, %s", code, e.errOut)
	}
	if !strings.Contains(e.out.String(), "verified") {
		t.Errorf("verify output: %q", e.out)
	}

	e.out.Reset()
	if code := RunJournal(e.Env, []string{"show", "5"}); code != ExitOK {
		t.Fatalf("show: exit %d", code)
	}
	for _, w := range []string{`"seq": 1`, `"source": "stdin"`, `"items_out": 1`} {
		if !strings.Contains(e.out.String(), w) {
			t.Errorf("show output lacks %s:\n%s", w, e.out)
		}
	}

	for _, args := range [][]string{nil, {"frobnicate"}, {"show", "zero"}} {
		if code := RunJournal(e.Env, args); code != ExitUsage {
			t.Errorf("RunJournal(%q) = %d, want %d", args, code, ExitUsage)
		}
	}
}

func TestRunHelp(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"general", nil, []string{"usage:", "-gen", "%replace OLD NEW", "%csv"}},
		{"directive", []string{"%head"}, []string{"%head N", "scope: stream", "N: int"}},
		{"directive without sigil", []string{"filter"}, []string{"%filter EXPR", "scope: item"}},
		{"capability", []string{"json"}, []string{"json:", "kind: module", "members:", "decode"}},
		{"function", []string{"Counter"}, []string{"kind: function"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t, "")
			if code := RunHelp(e.Env, tt.args); code != ExitOK {
				t.Fatalf("exit %d: %s", code, e.errOut)
			}
			for _, w := range tt.want {
				if !strings.Contains(e.out.String(), w) {
					t.Errorf("output lacks %q:\n%s", w, e.out)
				}
			}
		})
	}

	e := newEnv(t, "")
	if code := RunHelp(e.Env, []string{"nothing"}); code != ExitError {
		t.Errorf("unknown name: exit %d", code)
	}
}

func TestRunList(t *testing.T) {
	e := newEnv(t, "")
	e.Catalog.Disable("os")
	if code := RunList(e.Env, nil); code != ExitOK {
		t.Fatalf("exit %d", code)
	}
	lines := strings.Split(strings.TrimSpace(e.out.String()), "\n")
	if len(lines) != len(e.Catalog.All()) {
		t.Errorf("listed %d capabilities, want %d", len(lines), len(e.Catalog.All()))
	}
	var osLine string
	for _, l := range lines {
		if strings.HasPrefix(l, "os ") {
			osLine = l
		}
	}
	if !strings.HasSuffix(osLine, "(disabled)") {
		t.Errorf("os line = %q", osLine)
	}

	e.out.Reset()
	if code := RunList(e.Env, []string{"--kind", "function"}); code != ExitOK {
		t.Fatalf("exit %d", code)
	}
	if diff := cmp.Diff("Counter", strings.Fields(e.out.String())[0]); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if strings.Contains(e.out.String(), "json") {
		t.Errorf("--kind function listed a module:\n%s", e.out)
	}

	if code := RunList(e.Env, []string{"--kind", "gadget"}); code != ExitUsage {
		t.Errorf("bad kind: exit %d", code)
	}
}
