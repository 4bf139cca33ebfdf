package engine

import (
	"context"
	"io"
	"log/slog"

	"github.com/roach88/kspace/internal/compiler"
	"github.com/roach88/kspace/internal/generator"
)

// Generator produces the content of a generated item from its resolved
// configuration. *generator.PromptContextBuilder is the default.
type Generator interface {
	Generate(ctx context.Context, cfg *compiler.GeneratorConfig) (string, error)
}

// Engine executes decoded requests against a caller-owned space.
//
// The engine holds only collaborators and settings. It never retains a
// space between calls, so one Engine can serve many spaces; a single space
// must still be used by one caller at a time.
type Engine struct {
	logger    *slog.Logger
	clock     Clock
	ids       OperationIDGenerator
	generator Generator
	loader    ContentLoader
	baseDir   string
}

// Option allows configuration of engine collaborators.
type Option func(*Engine)

// WithLogger sets the structured logger. Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithClock sets the clock used for created_at. Default: SystemClock.
func WithClock(c Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithOperationIDs sets the operation id generator. Default: UUIDv7Generator.
func WithOperationIDs(g OperationIDGenerator) Option {
	return func(e *Engine) {
		e.ids = g
	}
}

// WithGenerator sets the content generator used for generated CREATEs.
// Default: generator.New().
func WithGenerator(g Generator) Option {
	return func(e *Engine) {
		e.generator = g
	}
}

// WithContentLoader enables on-demand content: items carrying a content_ref
// field have their content replaced by the loaded text in query results.
// Default: none.
func WithContentLoader(l ContentLoader) Option {
	return func(e *Engine) {
		e.loader = l
	}
}

// WithBaseDir sets the directory relative generator config paths resolve
// against. Default: the process working directory.
func WithBaseDir(dir string) Option {
	return func(e *Engine) {
		e.baseDir = dir
	}
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		clock:     SystemClock{},
		ids:       UUIDv7Generator{},
		generator: generator.New(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}
