// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/marcelocantos/starpipe/internal/journal"
	"github.com/marcelocantos/starpipe/internal/logging"
	"github.com/marcelocantos/starpipe/internal/pipeline"
	"github.com/marcelocantos/starpipe/internal/render"
)

type runFlags struct {
	gen            string
	skip           int
	block          bool
	linesep        string
	variable       string
	streamVariable string
}

func (e *Env) flagSet(f *runFlags) *flag.FlagSet {
	fs := flag.NewFlagSet("starpipe", flag.ContinueOnError)
	fs.SetOutput(e.Stderr)
	fs.StringVar(&f.gen, "gen", "", "generate items from an iterable `expression` instead of reading stdin")
	fs.IntVar(&f.skip, "skip", 0, "drop the first `n` input items")
	fs.BoolVar(&f.block, "block", false, "read all of stdin as a single item")
	fs.StringVar(&f.linesep, "linesep", e.Config.Output.LineSeparator, "output line `separator` (Go escapes such as \\t and \\x00 are interpreted)")
	fs.StringVar(&f.variable, "variable", e.Config.Pipeline.Variable, "`name` bound to the current item")
	fs.StringVar(&f.streamVariable, "stream-variable", e.Config.Pipeline.StreamVariable, "`name` bound to the stream in %stream")
	return fs
}

// RunPipeline compiles the directives in args and runs them over stdin,
// or over a generated stream with --gen, writing one output item per
// line.
func RunPipeline(ctx context.Context, e *Env, args []string) int {
	var f runFlags
	fs := e.flagSet(&f)
	fs.Usage = func() { printUsage(e.Stderr, fs) }
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitOK
		}
		return ExitUsage
	}
	tokens := fs.Args()
	if f.skip < 0 {
		e.errorf("--skip must not be negative")
		return ExitUsage
	}
	sep, err := unescape(f.linesep)
	if err != nil {
		e.errorf("--linesep: %v", err)
		return ExitUsage
	}
	if len(tokens) == 0 && f.gen == "" && logging.IsTerminal(e.Stdin) {
		printUsage(e.Stderr, fs)
		return ExitUsage
	}

	id := uuid.NewString()
	ctx = pipeline.WithRunID(ctx, id)
	log := e.Log.With().Str("run", id).Logger()
	opts := []pipeline.Option{
		pipeline.WithVariable(f.variable),
		pipeline.WithStreamVariable(f.streamVariable),
		pipeline.WithLogger(logging.Component(e.Log, "pipeline")),
	}

	start := time.Now()
	n, runErr := e.execute(ctx, tokens, f, sep, opts)
	code := ExitOK
	switch {
	case runErr == nil:
	case ctx.Err() != nil:
		e.errorf("interrupted")
		code = ExitInterrupt
	default:
		e.errorf("%v", runErr)
		code = ExitError
	}

	if e.Journal != nil {
		entry := journal.Entry{
			Run:        id,
			Directives: tokens,
			Source:     journal.SourceStdin,
			Generator:  f.gen,
			ItemsOut:   n,
			ExitCode:   code,
			Duration:   journal.Duration(time.Since(start)),
			Cwd:        cwd(),
		}
		if f.gen != "" {
			entry.Source = journal.SourceGenerate
		}
		if runErr != nil {
			entry.Error = runErr.Error()
		}
		if _, err := e.Journal.Record(entry); err != nil {
			log.Warn().Err(err).Msg("journal write failed")
		}
	}
	return code
}

// execute compiles and runs the pipeline and reports how many items were
// written.
func (e *Env) execute(ctx context.Context, tokens []string, f runFlags, sep string, opts []pipeline.Option) (int, error) {
	p, err := pipeline.Compile(tokens, e.Catalog, opts...)
	if err != nil {
		return 0, err
	}

	var src pipeline.Stream
	switch {
	case f.gen != "":
		if src, err = pipeline.Generate(ctx, f.gen, e.Catalog, opts...); err != nil {
			return 0, err
		}
	case f.block:
		src = pipeline.Text(pipeline.Block(e.Stdin))
	default:
		src = pipeline.Text(pipeline.Lines(ctx, e.Stdin))
	}
	if f.skip > 0 {
		src = pipeline.Skip(src, f.skip)
	}

	w := bufio.NewWriter(e.Stdout)
	interactive := logging.IsTerminal(e.Stdout)
	n := 0
	for v, err := range p.Run(ctx, src) {
		if err != nil {
			_ = w.Flush()
			return n, err
		}
		if err := writeItem(w, render.Value(v), sep, interactive); err != nil {
			return n, quietPipe(err)
		}
		n++
	}
	return n, quietPipe(w.Flush())
}

func writeItem(w *bufio.Writer, s, sep string, flush bool) error {
	if _, err := w.WriteString(s); err != nil {
		return err
	}
	if _, err := w.WriteString(sep); err != nil {
		return err
	}
	if flush {
		return w.Flush()
	}
	return nil
}

// quietPipe treats a reader closing stdout early as success.
func quietPipe(err error) error {
	if errors.Is(err, syscall.EPIPE) {
		return nil
	}
	return err
}

// unescape interprets Go string escapes in a separator given on the
// command line. Strings without a backslash are taken literally.
func unescape(s string) (string, error) {
	if !strings.Contains(s, `\`) {
		return s, nil
	}
	u, err := strconv.Unquote(`"` + strings.ReplaceAll(s, `"`, `\"`) + `"`)
	if err != nil {
		return "", errors.New("invalid escape sequence")
	}
	return u, nil
}
