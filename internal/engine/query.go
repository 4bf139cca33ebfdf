package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/roach88/kspace/internal/ir"
	"github.com/roach88/kspace/internal/queryir"
	"github.com/roach88/kspace/internal/space"
)

// ContentLoaderErrorPrefix starts the placeholder content of an item whose
// content_ref could not be loaded.
const ContentLoaderErrorPrefix = "Error loading content: "

// ContentLoader resolves an item's content_ref to its text.
type ContentLoader interface {
	Load(ctx context.Context, ref string) (string, error)
}

// FileLoader loads content_ref paths from disk. Relative paths resolve
// against BaseDir.
type FileLoader struct {
	BaseDir string
}

// Load reads the referenced file.
func (l FileLoader) Load(_ context.Context, ref string) (string, error) {
	path := ref
	if !filepath.IsAbs(path) {
		path = filepath.Join(l.BaseDir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Query runs a GET through the pipeline: snapshot, filter, sort, offset,
// limit, shape. The space is only read.
//
// The result is an ir.IRArray of items when the query has no alias, and an
// ir.IRObject keyed by the alias otherwise.
func (e *Engine) Query(ctx context.Context, get *queryir.Get, sp *space.Space) (ir.IRValue, error) {
	return e.query(ctx, e.logger, get, sp)
}

func (e *Engine) query(ctx context.Context, log *slog.Logger, get *queryir.Get, sp *space.Space) (ir.IRValue, error) {
	if get.Target != queryir.TargetKnowledgeItem {
		return nil, NewInvalidTargetError(get.Target)
	}

	items := e.snapshot(ctx, log, sp)

	results, err := filterItems(items, get.Conditions)
	if err != nil {
		return nil, err
	}

	if get.OrderBy != nil {
		sortItems(results, *get.OrderBy)
	}

	results = paginate(results, get.Offset, get.Limit)

	log.Debug("query evaluated",
		"scanned", len(items),
		"returned", len(results),
		"alias", get.Alias,
	)
	return shape(results, get), nil
}

// snapshot copies the space's items, materializing content_ref content when
// a loader is configured. Loader failures become placeholder content.
func (e *Engine) snapshot(ctx context.Context, log *slog.Logger, sp *space.Space) []space.Item {
	items := sp.Snapshot()
	if e.loader == nil {
		return items
	}

	for i, it := range items {
		ref, ok := it[space.FieldContentRef].(ir.IRString)
		if !ok {
			continue
		}
		text, err := e.loader.Load(ctx, string(ref))
		if err != nil {
			log.Warn("content load failed",
				"item_id", it.ID(),
				"content_ref", string(ref),
				"error", err,
			)
			text = ContentLoaderErrorPrefix + err.Error()
		}
		items[i][space.FieldContent] = ir.IRString(text)
	}
	return items
}

func filterItems(items []space.Item, conds []queryir.Condition) ([]space.Item, error) {
	if len(conds) == 0 {
		return items, nil
	}

	out := make([]space.Item, 0, len(items))
	for _, it := range items {
		ok, err := MatchesAll(it, conds)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", it.ID(), err)
		}
		if ok {
			out = append(out, it)
		}
	}
	return out, nil
}

// sortItems sorts stably by one field. Values without a natural order
// relative to each other (missing, mixed kinds, objects) compare equal and
// keep their filtered order.
func sortItems(items []space.Item, order queryir.OrderSpec) {
	sign := 1
	if order.Direction == queryir.Descending {
		sign = -1
	}

	slices.SortStableFunc(items, func(a, b space.Item) int {
		av, _ := a.Get(order.Field)
		bv, _ := b.Get(order.Field)
		cmp, ok := ir.Compare(av, bv)
		if !ok {
			return 0
		}
		return sign * cmp
	})
}

// paginate drops offset items then keeps limit items. Zero values are
// no-ops, as are absent ones.
func paginate(items []space.Item, offset, limit *int) []space.Item {
	if offset != nil && *offset > 0 {
		if *offset >= len(items) {
			return items[:0]
		}
		items = items[*offset:]
	}
	if limit != nil && *limit > 0 && *limit < len(items) {
		items = items[:*limit]
	}
	return items
}

// shape applies the alias rules:
//   - no alias: the result array
//   - alias and (limit 1 or exactly one result): {alias: item}, or
//     {alias: null} when limit 1 found nothing
//   - alias otherwise: {alias: [items]}
func shape(items []space.Item, get *queryir.Get) ir.IRValue {
	arr := make(ir.IRArray, len(items))
	for i, it := range items {
		arr[i] = it.Value()
	}

	if get.Alias == "" {
		return arr
	}

	limitOne := get.Limit != nil && *get.Limit == 1
	if limitOne || len(arr) == 1 {
		var single ir.IRValue = ir.IRNull{}
		if len(arr) > 0 {
			single = arr[0]
		}
		return ir.IRObject{get.Alias: single}
	}
	return ir.IRObject{get.Alias: arr}
}
