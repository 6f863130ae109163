// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"go.starlark.net/starlark"

	"github.com/marcelocantos/starpipe/internal/cap"
	"github.com/marcelocantos/starpipe/internal/pipeline"
)

// RunHelp shows general usage, or help for one directive or capability.
func RunHelp(e *Env, args []string) int {
	if len(args) == 0 {
		var f runFlags
		fs := e.flagSet(&f)
		printUsage(e.Stdout, fs)
		fmt.Fprintln(e.Stdout)
		printDirectives(e.Stdout)
		return ExitOK
	}

	name := args[0]
	if !strings.HasPrefix(name, pipeline.Sigil) {
		for _, c := range e.Catalog.All() {
			if c.Name() == name {
				printCapability(e, c)
				return ExitOK
			}
		}
	}
	d, ok := pipeline.LookupDirective(pipeline.Sigil + strings.TrimPrefix(name, pipeline.Sigil))
	if !ok {
		e.errorf("help: no directive or capability named %q", name)
		return ExitError
	}
	fmt.Fprintf(e.Stdout, "%s\n  %s\n  scope: %s\n", d.Usage(), d.Summary, d.Kind)
	for _, a := range d.Args {
		fmt.Fprintf(e.Stdout, "  %s: %s\n", strings.ToUpper(a.Name), a.Kind)
	}
	return ExitOK
}

func printCapability(e *Env, c cap.Capability) {
	fmt.Fprintf(e.Stdout, "%s: %s\nkind: %s\n", c.Name(), c.Description(), c.Kind())
	if m, ok := c.Value().(starlark.HasAttrs); ok {
		fmt.Fprintf(e.Stdout, "members: %s\n", strings.Join(m.AttrNames(), ", "))
	}
	if !e.Catalog.Enabled(c.Name()) {
		fmt.Fprintln(e.Stdout, "disabled by configuration")
	}
}

func printUsage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintln(w, "starpipe: map Starlark expressions and directives over lines of input")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "usage:")
	fmt.Fprintln(w, "  starpipe [flags] DIRECTIVE...        run a pipeline over stdin")
	fmt.Fprintln(w, "  starpipe --list [--kind KIND]        list importable capabilities")
	fmt.Fprintln(w, "  starpipe --help [NAME]               show help for a directive or capability")
	fmt.Fprintln(w, "  starpipe --journal verify|show [N]   inspect the run journal")
	fmt.Fprintln(w, "  starpipe --mcp                       serve pipelines as MCP tools on stdio")
	fmt.Fprintln(w, "  starpipe --version                   show version")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "flags:")
	fs.SetOutput(w)
	fs.PrintDefaults()
	fmt.Fprintln(w)
	fmt.Fprintln(w, "A DIRECTIVE is a Starlark expression whose value replaces the item, or a")
	fmt.Fprintf(w, "%s-prefixed directive followed by its arguments. Expressions see the item\n", pipeline.Sigil)
	fmt.Fprintf(w, "(default %s) and its index %s; names such as json or re are imported\n", pipeline.DefaultVariable, pipeline.IndexVariable)
	fmt.Fprintln(w, "on first use. Lists, tuples and dicts are written as JSON.")
}

func printDirectives(w io.Writer) {
	fmt.Fprintln(w, "directives:")
	for _, d := range pipeline.Directives() {
		fmt.Fprintf(w, "  %-28s %-6s  %s\n", d.Usage(), d.Kind, d.Summary)
	}
}
