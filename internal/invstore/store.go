package invstore

import (
	"context"
	"errors"
)

// Sentinel errors returned by [Store] implementations. They are wrapped with
// context, so match with [errors.Is].
var (
	// ErrDuplicate reports an insert whose name collides with an existing
	// item (names are compared case-insensitively).
	ErrDuplicate = errors.New("invstore: duplicate item name")

	// ErrNotFound reports an update against an item ID that does not exist.
	ErrNotFound = errors.New("invstore: item not found")
)

// Store provides persistence for inventory items and their transaction log.
// Implementations must be safe for concurrent use.
type Store interface {
	// AddItem inserts a new item and returns its ID. Returns [ErrDuplicate]
	// if an item with the same name already exists (case-insensitive).
	AddItem(ctx context.Context, name, category string, quantity int, unitPrice float64) (int64, error)

	// UpdateItem applies the non-nil fields of patch to the item with the
	// given ID and bumps its updated_at stamp. Returns [ErrNotFound] if no
	// such item exists.
	UpdateItem(ctx context.Context, id int64, patch ItemPatch) error

	// DeleteItem removes an item row. Deleting a non-existent item is not an
	// error. Logged transactions referencing the item are kept.
	DeleteItem(ctx context.Context, id int64) error

	// ItemByID retrieves an item by ID. Returns (nil, nil) if not found.
	ItemByID(ctx context.Context, id int64) (*Item, error)

	// ItemByName retrieves an item by exact name, compared
	// case-insensitively. Returns (nil, nil) if not found.
	ItemByName(ctx context.Context, name string) (*Item, error)

	// Search returns items whose name or category contains the query as a
	// case-insensitive substring, ordered by name.
	Search(ctx context.Context, query string) ([]Item, error)

	// ListItems returns every item, ordered by name (case-insensitive).
	ListItems(ctx context.Context) ([]Item, error)

	// LogTransaction appends a stock movement entry for the given item.
	LogTransaction(ctx context.Context, itemID int64, action Action, amount int) error

	// RecentTransactions returns the movements of the last `days` days,
	// newest first, with item names joined in.
	RecentTransactions(ctx context.Context, days int) ([]Transaction, error)

	// Close releases resources held by the store.
	Close() error
}
