package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/kspace/internal/ir"
	"github.com/roach88/kspace/internal/queryir"
	"github.com/roach88/kspace/internal/space"
)

// Batch runs each member query in order and keys its result by alias.
//
// Members are checked before any of them runs. The first member that fails
// aborts the batch and no partial result is returned.
func (e *Engine) Batch(ctx context.Context, b *queryir.Batch, sp *space.Space) (ir.IRObject, error) {
	return e.batch(ctx, e.logger, b, sp)
}

func (e *Engine) batch(ctx context.Context, log *slog.Logger, b *queryir.Batch, sp *space.Space) (ir.IRObject, error) {
	if err := checkBatch(b); err != nil {
		return nil, err
	}

	out := make(ir.IRObject, len(b.Queries))
	for i, q := range b.Queries {
		res, err := e.query(ctx, log.With("alias", q.Alias), q, sp)
		if err != nil {
			return nil, fmt.Errorf("batch query %d (%s): %w", i, q.Alias, err)
		}
		// Every member has an alias, so the result is always {alias: ...}.
		out[q.Alias] = res.(ir.IRObject)[q.Alias]
	}

	log.Debug("batch evaluated", "queries", len(b.Queries))
	return out, nil
}

// checkBatch enforces the member rules for batches that were built in code
// rather than decoded.
func checkBatch(b *queryir.Batch) error {
	seen := make(map[string]int, len(b.Queries))
	for i, q := range b.Queries {
		field := fmt.Sprintf("queries[%d].alias", i)
		if q == nil {
			return &RuntimeError{Code: queryir.ErrCodeInvalidRequest, Message: "batch member is nil", Field: fmt.Sprintf("queries[%d]", i)}
		}
		if q.Alias == "" {
			return &RuntimeError{Code: queryir.ErrCodeInvalidRequest, Message: "batch members require an alias", Field: field}
		}
		if prev, dup := seen[q.Alias]; dup {
			return &RuntimeError{
				Code:    queryir.ErrCodeInvalidRequest,
				Message: fmt.Sprintf("alias %q already used by queries[%d]", q.Alias, prev),
				Field:   field,
			}
		}
		seen[q.Alias] = i
	}
	return nil
}
