// Package engine provides a public API for compiling blocksmith workspaces
// programmatically. It allows third-party applications to turn editor
// snapshots into HTML and CSS without running the bsm server.
//
// The main functionality includes:
//   - Compiling a workspace snapshot against a block library
//   - Rendering a snapshot as a standalone HTML page
//   - Receiving diagnostics for blocks that produced no code
//
// Example usage:
//
//	snapshot, _ := os.ReadFile("page.json")
//
//	code, err := Compile(snapshot, WithLibrary("./blocks"))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	page, err := RenderDocument("Home", snapshot,
//		WithDatabase("sqlite", "blocks.db"),
//		WithDiagnosticListener(func(d events.Diagnostic) {
//			log.Printf("%s: %s", d.BlockType, d.Message)
//		}),
//	)
package engine

import (
	"context"

	"github.com/lacquerai/blocksmith/internal/codegen"
	"github.com/lacquerai/blocksmith/internal/server"
	"github.com/lacquerai/blocksmith/internal/store"
	"github.com/lacquerai/blocksmith/internal/workspace"
	"github.com/lacquerai/blocksmith/pkg/events"
)

// Option represents a functional option for configuring compilation.
type Option func(*config)

type config struct {
	ctx      context.Context
	store    store.Config
	listener func(events.Diagnostic)
}

// WithLibrary loads block definitions from a library directory of
// *.block.yaml and *.block.json files. This is the default, reading
// ./blocks.
func WithLibrary(dir string) Option {
	return func(c *config) {
		c.store = store.Config{Driver: store.DriverFile, DSN: dir}
	}
}

// WithDatabase loads block definitions from a sqlite or postgres database.
//
// Parameters:
//   - driver: "sqlite" or "postgres"
//   - dsn: the database file for sqlite, a connection string for postgres
func WithDatabase(driver, dsn string) Option {
	return func(c *config) {
		c.store = store.Config{Driver: driver, DSN: dsn}
	}
}

// WithContext bounds library loading by ctx
func WithContext(ctx context.Context) Option {
	return func(c *config) {
		c.ctx = ctx
	}
}

// WithDiagnosticListener receives one call per block that compiled to
// nothing, for example because its type was unregistered mid-compile.
func WithDiagnosticListener(fn func(events.Diagnostic)) Option {
	return func(c *config) {
		c.listener = fn
	}
}

// Compile turns a serialized workspace into code.
//
// Returns:
//   - string: the concatenated code of every root chain in workspace order
//   - error: the library could not be loaded, or the snapshot is malformed
//     or references a block type the library does not define
func Compile(snapshot []byte, options ...Option) (string, error) {
	var code string
	err := run(snapshot, options, func(c *codegen.Compiler, ws *workspace.Workspace) []codegen.Diagnostic {
		result := c.CompileWithDiagnostics(ws)
		code = result.Code
		return result.Diagnostics
	})
	return code, err
}

// RenderDocument compiles a workspace into a complete HTML page titled
// title, CSS in the head and HTML in the body.
func RenderDocument(title string, snapshot []byte, options ...Option) (string, error) {
	var doc string
	err := run(snapshot, options, func(c *codegen.Compiler, ws *workspace.Workspace) []codegen.Diagnostic {
		var diags []codegen.Diagnostic
		doc, diags = c.Document(title, ws)
		return diags
	})
	return doc, err
}

func run(snapshot []byte, options []Option, compile func(*codegen.Compiler, *workspace.Workspace) []codegen.Diagnostic) error {
	cfg := &config{
		ctx:   context.Background(),
		store: store.Config{Driver: store.DriverFile, DSN: "./blocks"},
	}
	for _, option := range options {
		option(cfg)
	}

	st, err := store.Open(cfg.ctx, cfg.store)
	if err != nil {
		return err
	}
	defer st.Close()

	library := server.NewLibrary(st)
	if _, err := library.Reload(cfg.ctx); err != nil {
		return err
	}

	registry, compiler := library.Current()
	ws, err := workspace.Unmarshal(snapshot, registry)
	if err != nil {
		return err
	}

	for _, d := range compile(compiler, ws) {
		if cfg.listener != nil {
			cfg.listener(events.Diagnostic{BlockID: d.BlockID, BlockType: d.BlockType, Message: d.Message})
		}
	}
	return nil
}
