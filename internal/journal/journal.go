// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

// Package journal keeps an append-only, hash-chained record of pipeline
// runs.
package journal

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const genesisInput = "starpipe-genesis"

// Journal appends entries to a JSONL file, chaining each to the hash of
// the one before.
type Journal struct {
	mu       sync.Mutex
	path     string
	seq      uint64
	prevHash string
	now      func() time.Time
}

// Open opens or creates the journal at path and resumes its chain from
// the last entry.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}
	j := &Journal{path: path, prevHash: genesisHash(), now: time.Now}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read journal: %w", err)
	}
	if lines := splitLines(data); len(lines) > 0 {
		var last Entry
		if err := json.Unmarshal(lines[len(lines)-1], &last); err != nil {
			return nil, fmt.Errorf("journal %s: last entry: %w", path, err)
		}
		j.seq = last.Seq
		j.prevHash = last.Hash
	}
	return j, nil
}

// Record fills in the chain fields of e and appends it. It returns the
// entry as written.
func (j *Journal) Record(e Entry) (Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	e.Seq = j.seq + 1
	e.Time = j.now().UTC()
	e.PrevHash = j.prevHash
	e.Hash = computeHash(e)

	data, err := json.Marshal(e)
	if err != nil {
		return e, fmt.Errorf("marshal journal entry: %w", err)
	}
	data = append(data, '\n')

	f, err := os.OpenFile(j.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return e, fmt.Errorf("open journal: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		return e, fmt.Errorf("write journal entry: %w", err)
	}

	j.seq = e.Seq
	j.prevHash = e.Hash
	return e, nil
}

// Path returns the journal file path.
func (j *Journal) Path() string { return j.path }

// Duration converts d to the millisecond form stored in entries.
func Duration(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000.0
}

func genesisHash() string {
	h := sha256.Sum256([]byte(genesisInput))
	return hex.EncodeToString(h[:])
}

func computeHash(e Entry) string {
	e.Hash = ""
	data, _ := json.Marshal(e)
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

func splitLines(data []byte) [][]byte {
	var lines [][]byte
	for line := range bytes.Lines(data) {
		if line = bytes.TrimSuffix(line, []byte("\n")); len(line) > 0 {
			lines = append(lines, line)
		}
	}
	return lines
}
