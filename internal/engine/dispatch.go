package engine

import (
	"context"
	"fmt"

	"github.com/roach88/kspace/internal/ir"
	"github.com/roach88/kspace/internal/queryir"
	"github.com/roach88/kspace/internal/space"
)

// Handle executes one decoded request and returns its result value:
//   - *queryir.Get: the shaped query result
//   - *queryir.Create: the created item
//   - *queryir.Update: {updatedItems, message}
//   - *queryir.Batch: {alias: result, ...}
//
// Each call runs under an operation id taken from ctx (see WithOperationID)
// or freshly generated; every log record of the call carries it.
func (e *Engine) Handle(ctx context.Context, req queryir.Request, sp *space.Space) (ir.IRValue, error) {
	opID := OperationID(ctx)
	if opID == "" {
		opID = e.ids.Generate()
		ctx = WithOperationID(ctx, opID)
	}
	log := e.logger.With("op", opID)

	var (
		kind   string
		result ir.IRValue
		err    error
	)

	switch r := req.(type) {
	case *queryir.Get:
		kind = string(queryir.ActionGet)
		result, err = e.query(ctx, log, r, sp)
	case *queryir.Create:
		kind = string(queryir.ActionCreate)
		var item space.Item
		item, err = e.create(ctx, log, r, sp)
		if err == nil {
			result = item.Value()
		}
	case *queryir.Update:
		kind = string(queryir.ActionUpdate)
		var res UpdateResult
		res, err = e.update(ctx, log, r, sp)
		if err == nil {
			result = res.Value()
		}
	case *queryir.Batch:
		kind = "BATCH"
		var obj ir.IRObject
		obj, err = e.batch(ctx, log, r, sp)
		if err == nil {
			result = obj
		}
	default:
		return nil, &RuntimeError{
			Code:    queryir.ErrCodeInvalidRequest,
			Message: fmt.Sprintf("unsupported request type %T", req),
		}
	}

	if err != nil {
		log.Error("operation failed", "action", kind, "code", string(CodeOf(err)), "error", err)
		return nil, err
	}
	log.Debug("operation completed", "action", kind)
	return result, nil
}

// HandleObject decodes a request object and handles it. A "dslQuery"
// envelope is unwrapped first.
func (e *Engine) HandleObject(ctx context.Context, obj ir.IRObject, sp *space.Space) (ir.IRValue, error) {
	req, err := queryir.Decode(queryir.Unwrap(obj))
	if err != nil {
		e.logger.Error("request rejected", "code", string(queryir.DecodeErrorCode(err)), "error", err)
		return nil, err
	}
	return e.Handle(ctx, req, sp)
}
