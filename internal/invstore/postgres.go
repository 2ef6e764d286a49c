package invstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema is the SQL DDL for the items and transactions tables. Execute it via
// [PostgresStore.Migrate] or apply it manually during deployment.
//
// The transactions table keeps its rows after an item is deleted (the FK is
// ON DELETE SET NULL) so the movement log stays a complete audit trail.
const Schema = `
CREATE TABLE IF NOT EXISTS items (
    id         BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    name       TEXT NOT NULL,
    category   TEXT NOT NULL DEFAULT 'General',
    quantity   INTEGER NOT NULL DEFAULT 0,
    unit_price DOUBLE PRECISION NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_items_name_ci ON items (lower(name));

CREATE TABLE IF NOT EXISTS transactions (
    id        BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    item_id   BIGINT REFERENCES items(id) ON DELETE SET NULL,
    action    TEXT NOT NULL,
    amount    INTEGER NOT NULL,
    timestamp TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_transactions_timestamp ON transactions (timestamp);
`

// DB is the database interface used by [PostgresStore]. Both *pgxpool.Pool
// and *pgx.Conn satisfy this interface.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore is a [Store] backed by a PostgreSQL database.
type PostgresStore struct {
	db DB
}

// Compile-time interface check.
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a new [PostgresStore] that uses the given database
// connection or pool. The caller is responsible for calling
// [PostgresStore.Migrate] to ensure the schema exists before issuing queries.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// OpenPostgres connects a pgx connection pool for the given DSN and verifies
// the connection with a ping. The returned pool satisfies [DB].
func OpenPostgres(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("invstore: connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("invstore: ping postgres: %w", err)
	}
	return pool, nil
}

// Migrate executes the [Schema] DDL against the database, creating the items
// and transactions tables and their indexes if they do not already exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.Exec(ctx, Schema)
	if err != nil {
		return fmt.Errorf("invstore: migrate: %w", err)
	}
	return nil
}

// AddItem inserts a new item and returns its ID. The unique index on
// lower(name) enforces case-insensitive name uniqueness.
func (s *PostgresStore) AddItem(ctx context.Context, name, category string, quantity int, unitPrice float64) (int64, error) {
	const query = `
		INSERT INTO items (name, category, quantity, unit_price)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	var id int64
	err := s.db.QueryRow(ctx, query, name, category, quantity, unitPrice).Scan(&id)
	if err != nil {
		if isDuplicateKeyError(err) {
			return 0, fmt.Errorf("%w: %q", ErrDuplicate, name)
		}
		return 0, fmt.Errorf("invstore: add item: %w", err)
	}
	return id, nil
}

// UpdateItem applies the non-nil patch fields to the item with the given ID.
func (s *PostgresStore) UpdateItem(ctx context.Context, id int64, patch ItemPatch) error {
	sets := []string{"updated_at = now()"}
	args := []any{id}

	if patch.Quantity != nil {
		args = append(args, *patch.Quantity)
		sets = append(sets, fmt.Sprintf("quantity = $%d", len(args)))
	}
	if patch.UnitPrice != nil {
		args = append(args, *patch.UnitPrice)
		sets = append(sets, fmt.Sprintf("unit_price = $%d", len(args)))
	}
	if patch.Category != nil {
		args = append(args, *patch.Category)
		sets = append(sets, fmt.Sprintf("category = $%d", len(args)))
	}

	query := fmt.Sprintf("UPDATE items SET %s WHERE id = $1 RETURNING id", strings.Join(sets, ", "))

	var updated int64
	err := s.db.QueryRow(ctx, query, args...).Scan(&updated)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: id %d", ErrNotFound, id)
		}
		return fmt.Errorf("invstore: update item %d: %w", id, err)
	}
	return nil
}

// DeleteItem removes an item row by ID. Deleting a non-existent item is not
// an error.
func (s *PostgresStore) DeleteItem(ctx context.Context, id int64) error {
	const query = `DELETE FROM items WHERE id = $1`
	_, err := s.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("invstore: delete item %d: %w", id, err)
	}
	return nil
}

// ItemByID retrieves an item by ID. It returns (nil, nil) if no item with the
// given ID exists.
func (s *PostgresStore) ItemByID(ctx context.Context, id int64) (*Item, error) {
	const query = `
		SELECT id, name, category, quantity, unit_price, created_at, updated_at
		FROM items
		WHERE id = $1`

	var it Item
	err := s.db.QueryRow(ctx, query, id).Scan(
		&it.ID, &it.Name, &it.Category, &it.Quantity, &it.UnitPrice, &it.CreatedAt, &it.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("invstore: item by id %d: %w", id, err)
	}
	return &it, nil
}

// ItemByName retrieves an item by exact name, compared case-insensitively.
// It returns (nil, nil) if no item with the given name exists.
func (s *PostgresStore) ItemByName(ctx context.Context, name string) (*Item, error) {
	const query = `
		SELECT id, name, category, quantity, unit_price, created_at, updated_at
		FROM items
		WHERE lower(name) = lower($1)`

	var it Item
	err := s.db.QueryRow(ctx, query, name).Scan(
		&it.ID, &it.Name, &it.Category, &it.Quantity, &it.UnitPrice, &it.CreatedAt, &it.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("invstore: item by name %q: %w", name, err)
	}
	return &it, nil
}

// Search returns items whose name or category contains the query as a
// case-insensitive substring, ordered by name.
func (s *PostgresStore) Search(ctx context.Context, query string) ([]Item, error) {
	const q = `
		SELECT id, name, category, quantity, unit_price, created_at, updated_at
		FROM items
		WHERE lower(name) LIKE '%' || lower($1) || '%'
		   OR lower(category) LIKE '%' || lower($1) || '%'
		ORDER BY lower(name)`

	rows, err := s.db.Query(ctx, q, query)
	if err != nil {
		return nil, fmt.Errorf("invstore: search: %w", err)
	}
	defer rows.Close()

	return collectItems(rows, "search")
}

// ListItems returns every item, ordered by name (case-insensitive).
func (s *PostgresStore) ListItems(ctx context.Context) ([]Item, error) {
	const query = `
		SELECT id, name, category, quantity, unit_price, created_at, updated_at
		FROM items
		ORDER BY lower(name)`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("invstore: list: %w", err)
	}
	defer rows.Close()

	return collectItems(rows, "list")
}

// LogTransaction appends a stock movement entry for the given item.
func (s *PostgresStore) LogTransaction(ctx context.Context, itemID int64, action Action, amount int) error {
	if !action.IsValid() {
		return fmt.Errorf("invstore: log transaction: invalid action %q", action)
	}

	const query = `INSERT INTO transactions (item_id, action, amount) VALUES ($1, $2, $3)`
	_, err := s.db.Exec(ctx, query, itemID, string(action), amount)
	if err != nil {
		return fmt.Errorf("invstore: log transaction: %w", err)
	}
	return nil
}

// RecentTransactions returns the movements of the last `days` days, newest
// first. Item names are joined in; entries whose item row has been deleted
// keep an empty name.
func (s *PostgresStore) RecentTransactions(ctx context.Context, days int) ([]Transaction, error) {
	const query = `
		SELECT t.id, COALESCE(t.item_id, 0), COALESCE(i.name, ''), t.action, t.amount, t.timestamp
		FROM transactions t
		LEFT JOIN items i ON i.id = t.item_id
		WHERE t.timestamp >= now() - make_interval(days => $1)
		ORDER BY t.timestamp DESC`

	rows, err := s.db.Query(ctx, query, days)
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

// Close implements [Store.Close]. The underlying connection or pool is owned
// by the caller, so Close is a no-op.
func (s *PostgresStore) Close() error { return nil }

// collectItems drains rows into a slice of items.
func collectItems(rows pgx.Rows, op string) ([]Item, error) {
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

// isDuplicateKeyError checks whether a PostgreSQL error is a unique-violation
// (SQLSTATE 23505).
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
