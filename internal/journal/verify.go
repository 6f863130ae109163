// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package journal

import (
	"encoding/json"
	"fmt"
	"os"
)

// Verify checks the hash chain and sequence of the journal at path. It
// returns an error describing the first violation. A missing or empty
// journal is valid.
func Verify(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read journal: %w", err)
	}

	prevHash := genesisHash()
	var prevSeq uint64
	for i, line := range splitLines(data) {
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			return fmt.Errorf("line %d: invalid JSON: %w", i+1, err)
		}
		if e.Seq != prevSeq+1 {
			return fmt.Errorf("line %d: sequence gap: expected %d, got %d", i+1, prevSeq+1, e.Seq)
		}
		if e.PrevHash != prevHash {
			return fmt.Errorf("line %d: prev_hash mismatch: expected %s, got %s", i+1, short(prevHash), short(e.PrevHash))
		}
		if h := computeHash(e); e.Hash != h {
			return fmt.Errorf("line %d: hash mismatch: expected %s, got %s", i+1, short(h), short(e.Hash))
		}
		prevHash = e.Hash
		prevSeq = e.Seq
	}
	return nil
}

// Tail returns the last n entries of the journal at path.
func Tail(path string, n int) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}

	lines := splitLines(data)
	lines = lines[len(lines)-min(max(n, 0), len(lines)):]
	entries := make([]Entry, 0, len(lines))
	for _, line := range lines {
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func short(h string) string {
	if len(h) > 16 {
		return h[:16] + "..."
	}
	return h
}
