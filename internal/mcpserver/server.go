// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

// Package mcpserver exposes pipelines as Model Context Protocol tools
// over stdio.
package mcpserver

import (
	"context"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/marcelocantos/starpipe/internal/cap"
	"github.com/marcelocantos/starpipe/internal/journal"
	"github.com/marcelocantos/starpipe/internal/pipeline"
	"github.com/marcelocantos/starpipe/internal/render"
)

// DefaultMaxItems bounds the output of one tool call unless the caller
// asks for a different limit.
const DefaultMaxItems = 1000

// Server answers tool calls by compiling a fresh pipeline per request.
type Server struct {
	catalog *cap.Registry
	opts    []pipeline.Option
	log     zerolog.Logger
	journal *journal.Journal
	mcp     *server.MCPServer
}

// New builds a server. j may be nil to disable journalling.
func New(catalog *cap.Registry, version string, log zerolog.Logger, j *journal.Journal, opts ...pipeline.Option) *Server {
	s := &Server{
		catalog: catalog,
		opts:    append([]pipeline.Option{pipeline.WithLogger(log)}, opts...),
		log:     log,
		journal: j,
		mcp:     server.NewMCPServer("starpipe", version, server.WithToolCapabilities(false)),
	}

	s.mcp.AddTool(mcp.NewTool("run_pipeline",
		mcp.WithDescription("Run a starpipe pipeline. Each directive is a Starlark expression "+
			"evaluated per item (bound to i), or a %directive followed by its arguments as "+
			"separate entries. Output items are returned one per line."),
		mcp.WithArray("directives", mcp.Required(),
			mcp.Description("pipeline tokens, e.g. [\"%filter\", \"'a' in i\", \"i.upper()\"]"),
			mcp.Items(map[string]any{"type": "string"})),
		mcp.WithString("input",
			mcp.Description("input text; each line is one item")),
		mcp.WithString("generate",
			mcp.Description("expression producing an iterable to use instead of input")),
		mcp.WithNumber("max_items",
			mcp.Description(fmt.Sprintf("stop after this many output items (default %d)", DefaultMaxItems))),
	), s.runPipeline)

	s.mcp.AddTool(mcp.NewTool("list_directives",
		mcp.WithDescription("List the %directives a pipeline may use, with their arguments and scope."),
	), s.listDirectives)

	s.mcp.AddTool(mcp.NewTool("list_capabilities",
		mcp.WithDescription("List the modules, functions and constants expressions may reference."),
	), s.listCapabilities)

	return s
}

// Serve handles requests on in and out until ctx is cancelled or in is
// closed.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(stdlog.New(s.log, "", 0))
	s.log.Info().Msg("serving MCP on stdio")
	return stdio.Listen(ctx, in, out)
}

func (s *Server) runPipeline(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tokens, err := req.RequireStringSlice("directives")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	input := req.GetString("input", "")
	gen := req.GetString("generate", "")
	limit := req.GetInt("max_items", DefaultMaxItems)
	if limit <= 0 {
		limit = DefaultMaxItems
	}

	id := uuid.NewString()
	ctx = pipeline.WithRunID(ctx, id)
	start := time.Now()

	out, truncated, err := s.run(ctx, tokens, input, gen, limit)
	s.record(id, tokens, gen, len(out), err, time.Since(start))

	text := strings.Join(out, "\n")
	if truncated {
		text += fmt.Sprintf("\n[output truncated at %d items]", limit)
	}
	if err != nil {
		if text != "" {
			text += "\n"
		}
		return mcp.NewToolResultError(text + "error: " + err.Error()), nil
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) run(ctx context.Context, tokens []string, input, gen string, limit int) (out []string, truncated bool, err error) {
	p, err := pipeline.Compile(tokens, s.catalog, s.opts...)
	if err != nil {
		return nil, false, err
	}

	var src pipeline.Stream
	if gen != "" {
		if src, err = pipeline.Generate(ctx, gen, s.catalog, s.opts...); err != nil {
			return nil, false, err
		}
	} else {
		src = pipeline.Text(pipeline.Lines(ctx, strings.NewReader(input)))
	}

	for v, err := range p.Run(ctx, src) {
		if err != nil {
			return out, false, err
		}
		if len(out) == limit {
			return out, true, nil
		}
		out = append(out, render.Value(v))
	}
	return out, false, nil
}

func (s *Server) record(id string, tokens []string, gen string, n int, runErr error, d time.Duration) {
	if s.journal == nil {
		return
	}
	e := journal.Entry{
		Run:        id,
		Directives: tokens,
		Source:     journal.SourceMCP,
		Generator:  gen,
		ItemsOut:   n,
		Duration:   journal.Duration(d),
	}
	if runErr != nil {
		e.ExitCode = 1
		e.Error = runErr.Error()
	}
	e.Cwd, _ = os.Getwd()
	if _, err := s.journal.Record(e); err != nil {
		s.log.Warn().Err(err).Msg("journal write failed")
	}
}

func (s *Server) listDirectives(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var b strings.Builder
	for _, d := range pipeline.Directives() {
		fmt.Fprintf(&b, "%s [%s]: %s\n", d.Usage(), d.Kind, d.Summary)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) listCapabilities(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var b strings.Builder
	for _, c := range s.catalog.All() {
		if !s.catalog.Enabled(c.Name()) {
			continue
		}
		fmt.Fprintf(&b, "%s [%s]: %s\n", c.Name(), c.Kind(), c.Description())
	}
	return mcp.NewToolResultText(b.String()), nil
}
