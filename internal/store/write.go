package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/kspace/internal/space"
)

// ErrEmptyName is returned when a space is saved or loaded without a name.
var ErrEmptyName = errors.New("space name is required")

// SaveSpace archives sp under name, replacing any space saved under the same
// name. The whole save runs in one transaction.
func (s *Store) SaveSpace(ctx context.Context, name string, sp *space.Space, savedAt time.Time) error {
	if name == "" {
		return ErrEmptyName
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save space %q: begin: %w", name, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `DELETE FROM items WHERE space = ?`, name); err != nil {
		return fmt.Errorf("save space %q: clear items: %w", name, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO spaces (name, saved_at, item_count)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET saved_at = excluded.saved_at, item_count = excluded.item_count
	`, name, space.FormatTimestamp(savedAt), sp.Len())
	if err != nil {
		return fmt.Errorf("save space %q: %w", name, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO items (space, position, id, body) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("save space %q: prepare: %w", name, err)
	}
	defer stmt.Close()

	for pos, it := range sp.Items() {
		body, err := marshalItem(it)
		if err != nil {
			return fmt.Errorf("save space %q: item %d: %w", name, pos, err)
		}
		if _, err := stmt.ExecContext(ctx, name, pos, nullableID(it), body); err != nil {
			return fmt.Errorf("save space %q: item %d: %w", name, pos, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save space %q: commit: %w", name, err)
	}
	return nil
}

// DeleteSpace removes an archived space and its items.
// Deleting a name that was never saved is not an error.
func (s *Store) DeleteSpace(ctx context.Context, name string) error {
	if name == "" {
		return ErrEmptyName
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM spaces WHERE name = ?`, name); err != nil {
		return fmt.Errorf("delete space %q: %w", name, err)
	}
	return nil
}

// nullableID returns the item id column value; items loaded from hand
// written files may lack an integer id.
func nullableID(it space.Item) any {
	if id := it.ID(); id != 0 {
		return id
	}
	return nil
}
