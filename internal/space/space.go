// Package space holds the knowledge space: the ordered, mutable item
// collection the engine reads and mutates.
//
// A Space is owned by its caller and handed to the engine per call. It has
// no locking; callers must not run mutating operations against the same
// Space from more than one goroutine at a time.
package space

import (
	"fmt"
	"time"

	"github.com/roach88/kspace/internal/ir"
)

// Well-known item fields.
const (
	FieldID         = "id"
	FieldType       = "type"
	FieldContent    = "content"
	FieldCreatedAt  = "created_at"
	FieldContentRef = "content_ref"
)

// TimestampLayout is the created_at format: ISO-8601 UTC with milliseconds.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Item is one knowledge item: a field map with id, type, content and
// created_at plus any extra fields.
type Item ir.IRObject

// NewItem builds an item with the required fields set.
func NewItem(id int64, typ string, content ir.IRValue, createdAt time.Time) Item {
	if content == nil {
		content = ir.IRNull{}
	}
	return Item{
		FieldID:        ir.IRInt(id),
		FieldType:      ir.IRString(typ),
		FieldContent:   content,
		FieldCreatedAt: ir.IRString(FormatTimestamp(createdAt)),
	}
}

// Get returns the named field. A missing field reports ok=false.
func (it Item) Get(field string) (ir.IRValue, bool) {
	v, ok := it[field]
	return v, ok
}

// ID returns the item's id, or 0 when it has none.
func (it Item) ID() int64 {
	switch v := it[FieldID].(type) {
	case ir.IRInt:
		return int64(v)
	case ir.IRFloat:
		return int64(v)
	}
	return 0
}

// Clone returns a shallow copy of the item.
func (it Item) Clone() Item {
	return Item(ir.IRObject(it).Clone())
}

// Merge returns a copy of the item with fields laid over it.
// No field is removed.
func (it Item) Merge(fields ir.IRObject) Item {
	out := make(Item, len(it)+len(fields))
	for k, v := range it {
		out[k] = v
	}
	for k, v := range fields {
		out[k] = v
	}
	return out
}

// Value returns the item as an ir object.
func (it Item) Value() ir.IRObject {
	return ir.IRObject(it)
}

// Space is the ordered item collection. Insertion order is preserved.
type Space struct {
	items []Item
}

// New returns a Space holding items, in order.
func New(items ...Item) *Space {
	return &Space{items: items}
}

// Len returns the number of items.
func (s *Space) Len() int {
	return len(s.items)
}

// Items returns the live item slice. Callers must not modify it.
func (s *Space) Items() []Item {
	return s.items
}

// Snapshot returns a copy of the item sequence with each item cloned.
func (s *Space) Snapshot() []Item {
	out := make([]Item, len(s.items))
	for i, it := range s.items {
		out[i] = it.Clone()
	}
	return out
}

// NextID returns the id the next created item receives: one more than the
// item count, or one more than the highest id present when a loaded space
// has gaps, so ids never repeat.
func (s *Space) NextID() int64 {
	next := int64(len(s.items)) + 1
	for _, it := range s.items {
		if id := it.ID(); id >= next {
			next = id + 1
		}
	}
	return next
}

// Append adds an item at the end.
func (s *Space) Append(it Item) {
	s.items = append(s.items, it)
}

// Replace swaps the whole item sequence.
func (s *Space) Replace(items []Item) {
	s.items = items
}

// Value renders the space in its document layout:
// {"knowledge_space": {"knowledge_items": [...]}}.
func (s *Space) Value() ir.IRObject {
	items := make(ir.IRArray, len(s.items))
	for i, it := range s.items {
		items[i] = it.Value()
	}
	return ir.IRObject{
		"knowledge_space": ir.IRObject{
			"knowledge_items": items,
		},
	}
}

// FromValue reads a space from its document layout. A bare array of items
// is also accepted.
func FromValue(v ir.IRValue) (*Space, error) {
	var list ir.IRArray
	switch doc := v.(type) {
	case ir.IRArray:
		list = doc
	case ir.IRObject:
		inner, ok := doc["knowledge_space"].(ir.IRObject)
		if !ok {
			return nil, fmt.Errorf("missing knowledge_space object")
		}
		raw, ok := inner["knowledge_items"]
		if !ok {
			return New(), nil
		}
		if _, isNull := raw.(ir.IRNull); isNull {
			return New(), nil
		}
		list, ok = raw.(ir.IRArray)
		if !ok {
			return nil, fmt.Errorf("knowledge_items must be an array, got %s", ir.KindOf(raw))
		}
	default:
		return nil, fmt.Errorf("space must be an object, got %s", ir.KindOf(v))
	}

	items := make([]Item, len(list))
	for i, elem := range list {
		obj, ok := elem.(ir.IRObject)
		if !ok {
			return nil, fmt.Errorf("knowledge_items[%d]: item must be an object, got %s", i, ir.KindOf(elem))
		}
		items[i] = Item(obj)
	}
	return New(items...), nil
}
