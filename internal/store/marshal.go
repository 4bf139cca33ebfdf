package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/kspace/internal/ir"
	"github.com/roach88/kspace/internal/space"
)

// marshalItem converts an item to canonical JSON TEXT for storage.
// Uses RFC 8785 canonical JSON so identical items archive identically.
func marshalItem(it space.Item) (string, error) {
	data, err := ir.MarshalCanonical(it.Value())
	if err != nil {
		return "", fmt.Errorf("marshal item: %w", err)
	}
	return string(data), nil
}

// unmarshalItem parses a stored item body.
// Uses ir.IRObject.UnmarshalJSON which keeps integers exact via json.Number.
func unmarshalItem(data string) (space.Item, error) {
	var obj ir.IRObject
	if err := json.Unmarshal([]byte(data), &obj); err != nil {
		return nil, fmt.Errorf("unmarshal item: %w", err)
	}
	return space.Item(obj), nil
}
