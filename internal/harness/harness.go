package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/kspace/internal/engine"
	"github.com/roach88/kspace/internal/ir"
	"github.com/roach88/kspace/internal/queryir"
	"github.com/roach88/kspace/internal/space"
	"github.com/roach88/kspace/internal/testutil"
)

// OperationID is the fixed operation id every case runs under.
const OperationID = "test-op-default"

// Harness runs cases with a deterministic clock and operation id.
type Harness struct {
	logger *slog.Logger
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger routes engine logs of every case to l. Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = l
	}
}

// New creates a Harness.
func New(opts ...Option) *Harness {
	h := &Harness{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run executes a case with a default Harness.
func Run(ctx context.Context, c *Case) (*Result, error) {
	return New().Run(ctx, c)
}

// Run executes a case and evaluates its then block.
//
// Operation errors are part of the result (Code, ErrorMessage) so cases can
// expect them. The returned error is reserved for cases that cannot run:
// unreadable or malformed input files.
//
// Execution flow:
//  1. Load the DSL file (and the repo file in operation mode)
//  2. Run the request with a fixed clock and operation id
//  3. Record the result value or error and the final space
//  4. Evaluate the then block
func (h *Harness) Run(ctx context.Context, c *Case) (*Result, error) {
	doc, err := space.ReadDocument(c.DSLPath())
	if err != nil {
		return nil, fmt.Errorf("load dsl: %w", err)
	}
	obj, ok := doc.(ir.IRObject)
	if !ok {
		return nil, fmt.Errorf("load dsl: %s must hold an object, got %s", c.DSLPath(), ir.KindOf(doc))
	}

	result := NewResult()
	if c.Given.Mode == ModeUpdateConditions {
		h.runUpdateConditions(obj, result)
	} else {
		if err := h.runOperation(ctx, c, obj, result); err != nil {
			return nil, err
		}
	}

	for _, msg := range EvaluateThen(result, c.Then) {
		result.AddError(msg)
	}
	return result, nil
}

func (h *Harness) runOperation(ctx context.Context, c *Case, dsl ir.IRObject, result *Result) error {
	sp, err := space.Load(c.RepoPath())
	if err != nil {
		return fmt.Errorf("load repo: %w", err)
	}

	eng := engine.New(
		engine.WithLogger(h.logger.With("case", c.Name)),
		engine.WithClock(testutil.NewDeterministicClock(testutil.SuiteTime)),
		engine.WithOperationIDs(testutil.NewFixedIDGenerator(OperationID)),
		engine.WithBaseDir(c.Dir),
		engine.WithContentLoader(engine.FileLoader{BaseDir: c.Dir}),
	)

	before := sp.Value()
	value, err := eng.HandleObject(ctx, dsl, sp)
	recordOutcome(result, value, err)
	result.Space = sp.Value()
	result.Changed = !ir.Equal(before, result.Space)
	return nil
}

// runUpdateConditions rewrites the conditions of originalDSL with updates
// and reports {"updatedDSL": ...}.
func (h *Harness) runUpdateConditions(doc ir.IRObject, result *Result) {
	value, err := updateConditions(doc)
	recordOutcome(result, value, err)
}

func updateConditions(doc ir.IRObject) (ir.IRValue, error) {
	original := doc["originalDSL"]
	if obj, ok := original.(ir.IRObject); ok {
		original = queryir.Unwrap(obj)
	}
	req, err := queryir.DecodeValue(original)
	if err != nil {
		return nil, fmt.Errorf("originalDSL: %w", err)
	}
	updates, err := queryir.ConditionUpdatesFromValue(doc["updates"])
	if err != nil {
		return nil, fmt.Errorf("updates: %w", err)
	}
	updated, err := queryir.UpdateConditions(req, updates)
	if err != nil {
		return nil, err
	}
	encoded, err := queryir.Encode(updated)
	if err != nil {
		return nil, err
	}
	return ir.IRObject{"updatedDSL": encoded}, nil
}

func recordOutcome(result *Result, value ir.IRValue, err error) {
	if err != nil {
		result.Code = string(engine.CodeOf(err))
		result.ErrorMessage = err.Error()
		return
	}
	result.Value = value
}
