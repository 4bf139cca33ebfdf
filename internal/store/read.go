package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/kspace/internal/queryir"
	"github.com/roach88/kspace/internal/querysql"
	"github.com/roach88/kspace/internal/space"
)

// ErrSpaceNotFound is returned when no space was saved under a name.
var ErrSpaceNotFound = errors.New("space not found")

// SpaceInfo describes an archived space.
type SpaceInfo struct {
	Name      string
	SavedAt   string
	ItemCount int
}

// LoadSpace returns the space archived under name with items in their
// saved order.
func (s *Store) LoadSpace(ctx context.Context, name string) (*space.Space, error) {
	if name == "" {
		return nil, ErrEmptyName
	}

	var count int
	err := s.db.QueryRowContext(ctx, `SELECT item_count FROM spaces WHERE name = ?`, name).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load space %q: %w", name, ErrSpaceNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load space %q: %w", name, err)
	}

	items, err := s.SelectItems(ctx, `SELECT body FROM items WHERE space = ? ORDER BY position ASC`, name)
	if err != nil {
		return nil, fmt.Errorf("load space %q: %w", name, err)
	}
	if len(items) != count {
		return nil, fmt.Errorf("load space %q: archived %d items but found %d", name, count, len(items))
	}
	return space.New(items...), nil
}

// ListSpaces returns every archived space ordered by name.
// Returns an empty slice (not nil) if nothing was archived.
func (s *Store) ListSpaces(ctx context.Context) ([]SpaceInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, saved_at, item_count
		FROM spaces
		ORDER BY name COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query spaces: %w", err)
	}
	defer rows.Close()

	infos := []SpaceInfo{}
	for rows.Next() {
		var info SpaceInfo
		if err := rows.Scan(&info.Name, &info.SavedAt, &info.ItemCount); err != nil {
			return nil, fmt.Errorf("scan space: %w", err)
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate spaces: %w", err)
	}
	return infos, nil
}

// SelectItems runs a query whose single column is an item body and returns
// the decoded items in row order.
// Returns an empty slice (not nil) if no rows match.
func (s *Store) SelectItems(ctx context.Context, query string, args ...any) ([]space.Item, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	items := []space.Item{}
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		it, err := unmarshalItem(body)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return items, nil
}

// Find compiles get against the space archived under name and returns the
// matching items in result order, before alias shaping.
func (s *Store) Find(ctx context.Context, name string, get *queryir.Get) ([]space.Item, error) {
	query, params, err := querysql.NewSQLCompiler(name).Compile(get)
	if err != nil {
		return nil, err
	}
	return s.SelectItems(ctx, query, params...)
}
