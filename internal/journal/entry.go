// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package journal

import "time"

// Source says where a run's input came from.
type Source string

const (
	SourceStdin    Source = "stdin"
	SourceGenerate Source = "generate"
	SourceMCP      Source = "mcp"
)

// Entry is one journal record describing a finished run.
type Entry struct {
	Seq        uint64    `json:"seq"`
	Time       time.Time `json:"ts"`
	PrevHash   string    `json:"prev_hash"`
	Run        string    `json:"run"`                 // run ID, also used in logs
	Directives []string  `json:"directives"`          // tokens as given
	Source     Source    `json:"source"`              // where items came from
	Generator  string    `json:"generator,omitempty"` // --gen expression
	ItemsOut   int       `json:"items_out"`
	ExitCode   int       `json:"exit_code"`
	Error      string    `json:"error,omitempty"`
	Duration   float64   `json:"duration_ms"`
	Cwd        string    `json:"cwd"`
	Hash       string    `json:"hash"` // SHA-256 of this entry with hash empty
}
