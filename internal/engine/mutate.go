package engine

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/roach88/kspace/internal/compiler"
	"github.com/roach88/kspace/internal/ir"
	"github.com/roach88/kspace/internal/queryir"
	"github.com/roach88/kspace/internal/space"
)

// DefaultItemType is the type of a direct-value item created without one.
const DefaultItemType = "string"

// UpdateResult reports the outcome of an UPDATE.
type UpdateResult struct {
	UpdatedItems int
	Message      string
}

// Value renders the result as {updatedItems, message}.
func (r UpdateResult) Value() ir.IRObject {
	return ir.IRObject{
		"updatedItems": ir.IRInt(r.UpdatedItems),
		"message":      ir.IRString(r.Message),
	}
}

// Create builds one item from the request's directive and appends it to
// the space. Nothing is appended when an error is returned.
func (e *Engine) Create(ctx context.Context, c *queryir.Create, sp *space.Space) (space.Item, error) {
	return e.create(ctx, e.logger, c, sp)
}

func (e *Engine) create(ctx context.Context, log *slog.Logger, c *queryir.Create, sp *space.Space) (space.Item, error) {
	if c.Target != queryir.TargetKnowledgeItem {
		return nil, NewInvalidTargetError(c.Target)
	}

	var (
		content ir.IRValue
		typ     = c.Type
	)

	switch d := c.Directive.(type) {
	case queryir.DirectValue:
		content = d.Content
		if typ == "" {
			typ = DefaultItemType
		}
	case queryir.GeneratedContent:
		text, err := e.generate(ctx, log, d)
		if err != nil {
			return nil, err
		}
		content = ir.IRString(text)
	default:
		return nil, newError(queryir.ErrCodeInvalidCreateMethod,
			"invalid create method: either processor or value must be provided")
	}

	item := space.NewItem(sp.NextID(), typ, content, e.clock.Now())
	sp.Append(item)

	log.Info("item created", "item_id", item.ID(), "type", typ)
	return item, nil
}

// generate resolves the generator configuration and runs the generator.
func (e *Engine) generate(ctx context.Context, log *slog.Logger, d queryir.GeneratedContent) (string, error) {
	if d.Processor != queryir.ProcessorPromptContextBuilder {
		return "", &RuntimeError{
			Code:    queryir.ErrCodeInvalidCreateMethod,
			Message: fmt.Sprintf("unknown processor %q", d.Processor),
			Field:   "processor",
		}
	}
	if d.ConfigPath == "" {
		return "", &RuntimeError{
			Code:    queryir.ErrCodeMissingConfigPath,
			Message: fmt.Sprintf("config path is required for processor %q", d.Processor),
			Field:   "meta.config_path",
		}
	}

	path := d.ConfigPath
	if !filepath.IsAbs(path) && e.baseDir != "" {
		path = filepath.Join(e.baseDir, path)
	}

	cfg, err := compiler.LoadGeneratorConfig(path)
	if err != nil {
		return "", &RuntimeError{
			Code:    queryir.ErrCodeConfigInvalid,
			Message: "cannot load generator config",
			Field:   "meta.config_path",
			Details: map[string]string{"config_path": path},
			Err:     err,
		}
	}

	log.Debug("generating content", "processor", d.Processor, "config", cfg.Path, "base_path", cfg.BasePath)

	text, err := e.generator.Generate(ctx, cfg)
	if err != nil {
		return "", &RuntimeError{
			Code:    queryir.ErrCodeGenerationFailed,
			Message: fmt.Sprintf("processor %q failed", d.Processor),
			Details: map[string]string{"config_path": cfg.Path},
			Err:     err,
		}
	}
	return text, nil
}

// Update shallow-merges the update object onto every matching item and
// swaps in the new item sequence. When nothing matches, or any condition
// errors, the space is left untouched.
func (e *Engine) Update(ctx context.Context, u *queryir.Update, sp *space.Space) (UpdateResult, error) {
	return e.update(ctx, e.logger, u, sp)
}

func (e *Engine) update(_ context.Context, log *slog.Logger, u *queryir.Update, sp *space.Space) (UpdateResult, error) {
	if u.Target != queryir.TargetKnowledgeItem {
		return UpdateResult{}, NewInvalidTargetError(u.Target)
	}
	if len(u.Conditions) == 0 {
		return UpdateResult{}, &RuntimeError{
			Code:    queryir.ErrCodeInvalidRequest,
			Message: "update requires at least one condition",
			Field:   "conditions",
		}
	}
	if _, ok := u.Update[space.FieldID]; ok {
		return UpdateResult{}, &RuntimeError{
			Code:    queryir.ErrCodeImmutableField,
			Message: "id cannot be updated",
			Field:   "update.id",
		}
	}

	current := sp.Items()
	next := make([]space.Item, len(current))
	count := 0
	for i, it := range current {
		ok, err := MatchesAll(it, u.Conditions)
		if err != nil {
			return UpdateResult{}, fmt.Errorf("item %d: %w", it.ID(), err)
		}
		if !ok {
			next[i] = it
			continue
		}
		next[i] = it.Merge(u.Update)
		count++
	}

	if count == 0 {
		return UpdateResult{}, NewNoMatchingItemsError(len(u.Conditions))
	}

	sp.Replace(next)

	log.Info("items updated", "count", count, "fields", len(u.Update))
	return UpdateResult{
		UpdatedItems: count,
		Message:      fmt.Sprintf("%d item(s) updated successfully.", count),
	}, nil
}
