// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/marcelocantos/starpipe/internal/journal"
)

// RunJournal handles starpipe --journal verify|show [N].
func RunJournal(e *Env, args []string) int {
	if len(args) == 0 {
		e.errorf("usage: starpipe --journal <verify|show> [N]")
		return ExitUsage
	}
	path := e.Config.Journal.Path

	switch args[0] {
	case "verify":
		if err := journal.Verify(path); err != nil {
			e.errorf("journal verification FAILED: %v", err)
			return ExitError
		}
		fmt.Fprintln(e.Stdout, "journal integrity verified")
		return ExitOK

	case "show":
		n := 20
		if len(args) > 1 {
			var err error
			if n, err = strconv.Atoi(args[1]); err != nil || n < 1 {
				e.errorf("journal show: invalid count %q", args[1])
				return ExitUsage
			}
		}
		entries, err := journal.Tail(path, n)
		if err != nil {
			e.errorf("journal: %v", err)
			return ExitError
		}
		if len(entries) == 0 {
			fmt.Fprintln(e.Stdout, "no journal entries")
			return ExitOK
		}
		for _, entry := range entries {
			data, _ := json.MarshalIndent(entry, "", "  ")
			fmt.Fprintf(e.Stdout, "%s\n", data)
		}
		return ExitOK

	default:
		e.errorf("journal: unknown subcommand %q", args[0])
		return ExitUsage
	}
}
