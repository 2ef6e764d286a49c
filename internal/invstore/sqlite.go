package invstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// sqliteSchema is the DDL for the embedded database. Timestamps are written
// by this package rather than by column defaults so every row uses the same
// representation.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS items (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    name       TEXT NOT NULL,
    category   TEXT NOT NULL DEFAULT 'General',
    quantity   INTEGER NOT NULL DEFAULT 0,
    unit_price REAL NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_items_name_ci ON items (lower(name));

CREATE TABLE IF NOT EXISTS transactions (
    id        INTEGER PRIMARY KEY AUTOINCREMENT,
    item_id   INTEGER REFERENCES items(id) ON DELETE SET NULL,
    action    TEXT NOT NULL,
    amount    INTEGER NOT NULL,
    timestamp TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transactions_timestamp ON transactions (timestamp);
`

// SQLiteStore is a [Store] backed by an embedded SQLite database via the
// pure-Go modernc.org/sqlite driver. It is the default single-user backend.
type SQLiteStore struct {
	db *sql.DB
}

// Compile-time interface check.
var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (creating if necessary) the database at path and
// migrates the schema. The special path ":memory:" opens a throwaway
// in-memory database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("invstore: open sqlite %q: %w", path, err)
	}

	// A single connection serialises writers and keeps an in-memory
	// database from being dropped between pooled connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("invstore: enable foreign keys: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("invstore: migrate sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// AddItem inserts a new item and returns its ID.
func (s *SQLiteStore) AddItem(ctx context.Context, name, category string, quantity int, unitPrice float64) (int64, error) {
	const query = `
		INSERT INTO items (name, category, quantity, unit_price, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, query, name, category, quantity, unitPrice, now, now)
	if err != nil {
		if isSQLiteConstraintError(err) {
			return 0, fmt.Errorf("%w: %q", ErrDuplicate, name)
		}
		return 0, fmt.Errorf("invstore: add item: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("invstore: add item id: %w", err)
	}
	return id, nil
}

// UpdateItem applies the non-nil patch fields to the item with the given ID.
func (s *SQLiteStore) UpdateItem(ctx context.Context, id int64, patch ItemPatch) error {
	sets := []string{"updated_at = ?"}
	args := []any{time.Now().UTC()}

	if patch.Quantity != nil {
		sets = append(sets, "quantity = ?")
		args = append(args, *patch.Quantity)
	}
	if patch.UnitPrice != nil {
		sets = append(sets, "unit_price = ?")
		args = append(args, *patch.UnitPrice)
	}
	if patch.Category != nil {
		sets = append(sets, "category = ?")
		args = append(args, *patch.Category)
	}
	args = append(args, id)

	query := fmt.Sprintf("UPDATE items SET %s WHERE id = ?", strings.Join(sets, ", "))

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("invstore: update item %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("invstore: update item %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return nil
}

// DeleteItem removes an item row by ID. Deleting a non-existent item is not
// an error.
func (s *SQLiteStore) DeleteItem(ctx context.Context, id int64) error {
	const query = `DELETE FROM items WHERE id = ?`
	if _, err := s.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("invstore: delete item %d: %w", id, err)
	}
	return nil
}

// ItemByID retrieves an item by ID. It returns (nil, nil) if no item with the
// given ID exists.
func (s *SQLiteStore) ItemByID(ctx context.Context, id int64) (*Item, error) {
	const query = `
		SELECT id, name, category, quantity, unit_price, created_at, updated_at
		FROM items
		WHERE id = ?`

	var it Item
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&it.ID, &it.Name, &it.Category, &it.Quantity, &it.UnitPrice, &it.CreatedAt, &it.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("invstore: item by id %d: %w", id, err)
	}
	return &it, nil
}

// ItemByName retrieves an item by exact name, compared case-insensitively.
// It returns (nil, nil) if no item with the given name exists.
func (s *SQLiteStore) ItemByName(ctx context.Context, name string) (*Item, error) {
	const query = `
		SELECT id, name, category, quantity, unit_price, created_at, updated_at
		FROM items
		WHERE lower(name) = lower(?)`

	var it Item
	err := s.db.QueryRowContext(ctx, query, name).Scan(
		&it.ID, &it.Name, &it.Category, &it.Quantity, &it.UnitPrice, &it.CreatedAt, &it.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("invstore: item by name %q: %w", name, err)
	}
	return &it, nil
}

// Search returns items whose name or category contains the query as a
// case-insensitive substring, ordered by name.
func (s *SQLiteStore) Search(ctx context.Context, query string) ([]Item, error) {
	const q = `
		SELECT id, name, category, quantity, unit_price, created_at, updated_at
		FROM items
		WHERE lower(name) LIKE '%' || lower(?) || '%'
		   OR lower(category) LIKE '%' || lower(?) || '%'
		ORDER BY lower(name)`

	rows, err := s.db.QueryContext(ctx, q, query, query)
	if err != nil {
		return nil, fmt.Errorf("invstore: search: %w", err)
	}
	defer rows.Close()

	return collectSQLItems(rows, "search")
}

// ListItems returns every item, ordered by name (case-insensitive).
func (s *SQLiteStore) ListItems(ctx context.Context) ([]Item, error) {
	const query = `
		SELECT id, name, category, quantity, unit_price, created_at, updated_at
		FROM items
		ORDER BY lower(name)`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("invstore: list: %w", err)
	}
	defer rows.Close()

	return collectSQLItems(rows, "list")
}

// LogTransaction appends a stock movement entry for the given item.
func (s *SQLiteStore) LogTransaction(ctx context.Context, itemID int64, action Action, amount int) error {
	if !action.IsValid() {
		return fmt.Errorf("invstore: log transaction: invalid action %q", action)
	}

	const query = `INSERT INTO transactions (item_id, action, amount, timestamp) VALUES (?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, itemID, string(action), amount, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("invstore: log transaction: %w", err)
	}
	return nil
}

// RecentTransactions returns the movements of the last `days` days, newest
// first. Item names are joined in; entries whose item row has been deleted
// keep an empty name.
func (s *SQLiteStore) RecentTransactions(ctx context.Context, days int) ([]Transaction, error) {
	const query = `
		SELECT t.id, COALESCE(t.item_id, 0), COALESCE(i.name, ''), t.action, t.amount, t.timestamp
		FROM transactions t
		LEFT JOIN items i ON i.id = t.item_id
		WHERE t.timestamp >= ?
		ORDER BY t.timestamp DESC`

	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	rows, err := s.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("invstore: recent transactions: %w", err)
	}
	defer rows.Close()

	var txs []Transaction
	for rows.Next() {
		var tx Transaction
		var action string
		if err := rows.Scan(&tx.ID, &tx.ItemID, &tx.ItemName, &action, &tx.Amount, &tx.Timestamp); err != nil {
			return nil, fmt.Errorf("invstore: recent transactions scan: %w", err)
		}
		tx.Action = Action(action)
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("invstore: recent transactions: %w", err)
	}
	return txs, nil
}

// Close closes the underlying database handle.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("invstore: close sqlite: %w", err)
	}
	return nil
}

// collectSQLItems drains rows into a slice of items.
func collectSQLItems(rows *sql.Rows, op string) ([]Item, error) {
	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(
			&it.ID, &it.Name, &it.Category, &it.Quantity, &it.UnitPrice, &it.CreatedAt, &it.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("invstore: %s scan: %w", op, err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("invstore: %s: %w", op, err)
	}
	return items, nil
}

// isSQLiteConstraintError checks whether err is a SQLite constraint
// violation. The only constraint reachable through [Store] writes is the
// unique index on lower(name).
func isSQLiteConstraintError(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return false
}
