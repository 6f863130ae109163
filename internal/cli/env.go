// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

// Package cli implements the starpipe subcommands.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/marcelocantos/starpipe/internal/cap"
	"github.com/marcelocantos/starpipe/internal/config"
	"github.com/marcelocantos/starpipe/internal/journal"
)

// Exit codes.
const (
	ExitOK        = 0
	ExitError     = 1
	ExitUsage     = 2
	ExitInterrupt = 130
)

// Env carries what every subcommand needs.
type Env struct {
	Config  *config.Config
	Catalog *cap.Registry
	Log     zerolog.Logger
	Journal *journal.Journal // nil when journalling is off

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// errorf reports a failure on stderr in the form "starpipe: ...".
func (e *Env) errorf(format string, args ...any) {
	fmt.Fprintf(e.Stderr, "starpipe: "+format+"\n", args...)
}

func cwd() string {
	dir, _ := os.Getwd()
	return dir
}
