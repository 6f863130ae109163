// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"

	"github.com/marcelocantos/starpipe/internal/cap"
)

// RunList lists the capabilities expressions may import, optionally only
// those of one kind.
func RunList(e *Env, args []string) int {
	var filter *cap.Kind
	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "--kind" && i+1 < len(args):
			k, err := cap.ParseKind(args[i+1])
			if err != nil {
				e.errorf("list: %v", err)
				return ExitUsage
			}
			filter = &k
			i++
		default:
			e.errorf("list: unexpected argument %q", args[i])
			return ExitUsage
		}
	}

	for _, c := range e.Catalog.All() {
		if filter != nil && c.Kind() != *filter {
			continue
		}
		state := ""
		if !e.Catalog.Enabled(c.Name()) {
			state = " (disabled)"
		}
		fmt.Fprintf(e.Stdout, "%-10s %-9s %s%s\n", c.Name(), c.Kind(), c.Description(), state)
	}
	return ExitOK
}
