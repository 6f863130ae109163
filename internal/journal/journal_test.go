// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package journal

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
)

func record(t *testing.T, j *Journal, directives ...string) Entry {
	t.Helper()
	e, err := j.Record(Entry{
		Run:        uuid.NewString(),
		Directives: directives,
		Source:     SourceStdin,
		ItemsOut:   len(directives),
		Duration:   Duration(1500 * time.Microsecond),
		Cwd:        "/tmp",
	})
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestRecordAndVerify(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "journal.jsonl")
	j, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	for range 5 {
		record(t, j, "%upper", "i + '!'")
	}
	if err := Verify(path); err != nil {
		t.Fatalf("verify: %v", err)
	}

	entries, err := Tail(path, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 || entries[0].Seq != 4 || entries[1].Seq != 5 {
		t.Fatalf("unexpected tail %+v", entries)
	}
	if entries[1].PrevHash != entries[0].Hash {
		t.Error("entries not chained")
	}
	if entries[1].Duration != 1.5 {
		t.Errorf("duration = %v", entries[1].Duration)
	}
}

func TestVerifyDetectsTampering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.jsonl")
	j, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	record(t, j, "%filter", "i")
	record(t, j, "%upper")
	record(t, j, "%lower")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	data = bytes.Replace(data, []byte(`"%upper"`), []byte(`"%title"`), 1)
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatal(err)
	}

	err = Verify(path)
	if err == nil || !strings.Contains(err.Error(), "line 2: hash mismatch") {
		t.Fatalf("got %v, want hash mismatch on line 2", err)
	}
}

func TestVerifyDetectsSequenceGap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.jsonl")
	j, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	for range 5 {
		record(t, j, "i")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := splitLines(data)
	var out []byte
	for i, line := range lines {
		if i == 2 {
			continue
		}
		out = append(append(out, line...), '\n')
	}
	if err := os.WriteFile(path, out, 0600); err != nil {
		t.Fatal(err)
	}

	err = Verify(path)
	if err == nil || !strings.Contains(err.Error(), "sequence gap") {
		t.Fatalf("got %v, want sequence gap", err)
	}
}

func TestVerifyEmpty(t *testing.T) {
	dir := t.TempDir()
	if err := Verify(filepath.Join(dir, "missing.jsonl")); err != nil {
		t.Errorf("missing journal: %v", err)
	}
	path := filepath.Join(dir, "empty.jsonl")
	if err := os.WriteFile(path, nil, 0600); err != nil {
		t.Fatal(err)
	}
	if err := Verify(path); err != nil {
		t.Errorf("empty journal: %v", err)
	}
	entries, err := Tail(path, 10)
	if err != nil || len(entries) != 0 {
		t.Errorf("Tail = %v, %v", entries, err)
	}
}

func TestOpenResumesChain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.jsonl")
	j1, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	first := record(t, j1, "a")
	second := record(t, j1, "b")

	j2, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	third := record(t, j2, "c")

	if err := Verify(path); err != nil {
		t.Fatalf("chain broken after reopen: %v", err)
	}
	if third.Seq != 3 || third.PrevHash != second.Hash {
		t.Errorf("third entry %+v does not follow %+v", third, second)
	}

	entries, err := Tail(path, 10)
	if err != nil {
		t.Fatal(err)
	}
	var got [][]string
	for _, e := range entries {
		got = append(got, e.Directives)
	}
	if diff := cmp.Diff([][]string{{"a"}, {"b"}, {"c"}}, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if entries[0].Run != first.Run {
		t.Errorf("run ID not preserved")
	}
}

func TestOpenRejectsCorruptTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.jsonl")
	if err := os.WriteFile(path, []byte("{not json\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path); err == nil {
		t.Error("expected error opening corrupt journal")
	}
}
