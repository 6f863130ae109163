// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/marcelocantos/starpipe/internal/config"
)

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	l := Component(New(config.LogConfig{Level: "debug", Format: "json"}, &buf), "compiler")
	l.Debug().Int("position", 2).Msg("compiled stage")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("not JSON: %q", buf.String())
	}
	if rec["message"] != "compiled stage" || rec["component"] != "compiler" || rec["level"] != "debug" {
		t.Errorf("unexpected record %v", rec)
	}
	if _, ok := rec["time"]; !ok {
		t.Error("missing timestamp")
	}
}

func TestLevels(t *testing.T) {
	tests := []struct {
		level string
		debug bool
		warn  bool
	}{
		{"debug", true, true},
		{"warn", false, true},
		{"error", false, false},
		{"disabled", false, false},
		{"", false, true},
		{"bogus", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			l := New(config.LogConfig{Level: tt.level, Format: "json"}, &buf)
			l.Debug().Msg("d")
			if got := buf.Len() > 0; got != tt.debug {
				t.Errorf("debug logged = %v, want %v", got, tt.debug)
			}
			buf.Reset()
			l.Warn().Msg("w")
			if got := buf.Len() > 0; got != tt.warn {
				t.Errorf("warn logged = %v, want %v", got, tt.warn)
			}
		})
	}
}

func TestConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New(config.LogConfig{Level: "info", Format: "console"}, &buf)
	log.Info().Str("run", "abc").Msg("run finished")
	out := buf.String()
	if !strings.Contains(out, "run finished") || !strings.Contains(out, "run=abc") {
		t.Errorf("unexpected console output %q", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Errorf("colour codes written to a non-terminal: %q", out)
	}
}

func TestIsTerminal(t *testing.T) {
	if IsTerminal(&bytes.Buffer{}) {
		t.Error("buffer reported as terminal")
	}
}
