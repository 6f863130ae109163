// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/marcelocantos/starpipe/internal/cap"
	"github.com/marcelocantos/starpipe/internal/cap/builtin"
	"github.com/marcelocantos/starpipe/internal/cli"
	"github.com/marcelocantos/starpipe/internal/config"
	"github.com/marcelocantos/starpipe/internal/journal"
	"github.com/marcelocantos/starpipe/internal/logging"
	"github.com/marcelocantos/starpipe/internal/mcpserver"
	"github.com/marcelocantos/starpipe/internal/pipeline"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "starpipe: %v\n", err)
		return cli.ExitError
	}

	reg := cap.NewRegistry()
	builtin.RegisterAll(reg)
	cfg.Apply(reg)

	log := logging.New(cfg.Log, os.Stderr)

	var j *journal.Journal
	if cfg.Journal.Enabled {
		if j, err = journal.Open(cfg.Journal.Path); err != nil {
			// Run without a journal rather than refuse to work.
			log.Warn().Err(err).Str("path", cfg.Journal.Path).Msg("journal unavailable")
			j = nil
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env := &cli.Env{
		Config:  cfg,
		Catalog: reg,
		Log:     log,
		Journal: j,
		Stdin:   os.Stdin,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}

	var cmd string
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}
	switch cmd {
	case "--list":
		return cli.RunList(env, os.Args[2:])
	case "--help", "-h":
		return cli.RunHelp(env, os.Args[2:])
	case "--journal":
		return cli.RunJournal(env, os.Args[2:])
	case "--mcp":
		srv := mcpserver.New(reg, version, logging.Component(log, "mcp"), j,
			pipeline.WithVariable(cfg.Pipeline.Variable),
			pipeline.WithStreamVariable(cfg.Pipeline.StreamVariable))
		if err := srv.Serve(ctx, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
			fmt.Fprintf(os.Stderr, "starpipe: mcp: %v\n", err)
			return cli.ExitError
		}
		return cli.ExitOK
	case "--version":
		fmt.Printf("starpipe %s\n", version)
		return cli.ExitOK
	default:
		return cli.RunPipeline(ctx, env, os.Args[1:])
	}
}
