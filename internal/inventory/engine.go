// Package inventory implements the stock-keeping engine: catalog mutations,
// queries, reporting, and the name resolution that maps noisy spoken item
// names onto catalog entries.
//
// The engine sits between the command router and the record store. It owns
// business rules (no negative stock, input limits, low-stock alerting, the
// movement log) while delegating persistence to an [invstore.Store]. Item
// names are resolved in three tiers: exact case-insensitive match, substring
// search, then fuzzy similarity against the full catalog.
//
// Errors returned to callers are typed ([*NotFoundError],
// [*InsufficientStockError], [*ValidationError], [*StoreError]) so the
// response layer can phrase them for the user without string matching.
package inventory

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/stockvox/stockvox/internal/fuzzy"
	"github.com/stockvox/stockvox/internal/invstore"
	"github.com/stockvox/stockvox/internal/observe"
)

// DefaultLowStockThreshold is the stock level at or below which an item
// counts as low stock when no explicit threshold is configured.
const DefaultLowStockThreshold = 5

// Option is a functional option for [NewEngine].
type Option func(*Engine)

// WithFuzzyThreshold sets the minimum similarity score (0-100) for fuzzy
// name resolution. Default: [fuzzy.DefaultThreshold].
func WithFuzzyThreshold(threshold int) Option {
	return func(e *Engine) {
		e.resolver = fuzzy.NewResolver(fuzzy.WithThreshold(threshold))
	}
}

// WithResolver replaces the fuzzy name resolver entirely. Overrides
// [WithFuzzyThreshold].
func WithResolver(r *fuzzy.Resolver) Option {
	return func(e *Engine) {
		if r != nil {
			e.resolver = r
		}
	}
}

// WithLowStockThreshold sets the quantity at or below which an item counts
// as low stock. Default: [DefaultLowStockThreshold].
func WithLowStockThreshold(n int) Option {
	return func(e *Engine) {
		e.lowStockThreshold = n
	}
}

// WithTransactionLog toggles the movement log. When disabled, mutations do
// not append transaction records. Default: enabled.
func WithTransactionLog(enabled bool) Option {
	return func(e *Engine) {
		e.logTransactions = enabled
	}
}

// WithStockAlerts toggles low-stock warnings and the low-stock report
// section. Default: enabled.
func WithStockAlerts(enabled bool) Option {
	return func(e *Engine) {
		e.stockAlerts = enabled
	}
}

// WithMetrics replaces the metrics sink. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(e *Engine) {
		if m != nil {
			e.metrics = m
		}
	}
}

// Engine executes inventory operations against a record store. Safe for
// concurrent use as long as the underlying store is.
type Engine struct {
	store    invstore.Store
	resolver *fuzzy.Resolver
	metrics  *observe.Metrics

	lowStockThreshold int
	logTransactions   bool
	stockAlerts       bool

	now func() time.Time
}

// NewEngine returns an Engine backed by store, configured with opts.
func NewEngine(store invstore.Store, opts ...Option) *Engine {
	e := &Engine{
		store:             store,
		lowStockThreshold: DefaultLowStockThreshold,
		logTransactions:   true,
		stockAlerts:       true,
		now:               time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	if e.resolver == nil {
		e.resolver = fuzzy.NewResolver()
	}
	if e.metrics == nil {
		e.metrics = observe.DefaultMetrics()
	}
	return e
}

// LowStockThreshold returns the configured low-stock boundary.
func (e *Engine) LowStockThreshold() int {
	return e.lowStockThreshold
}

// ─── Mutations ───────────────────────────────────────────────────────────────

// AddItem adds quantity units of the named item. When the name resolves onto
// an existing catalog item the stock is incremented (and the unit price
// replaced when one is supplied); otherwise a new item is created. An empty
// category defaults to [DefaultCategory], and a nil unitPrice means "leave
// as-is" for existing items and 0 for new ones. Returns the item ID.
func (e *Engine) AddItem(ctx context.Context, name string, quantity int, unitPrice *float64, category string) (int64, error) {
	ctx, span := observe.StartSpan(ctx, "engine.add_item")
	defer span.End()

	if err := ValidateItemName(name); err != nil {
		return 0, err
	}
	if err := ValidateQuantity(quantity); err != nil {
		return 0, err
	}
	if unitPrice != nil {
		if err := ValidatePrice(*unitPrice); err != nil {
			return 0, err
		}
	}
	if category == "" {
		category = DefaultCategory
	} else if err := ValidateCategory(category); err != nil {
		return 0, err
	}

	existing, err := e.resolveItem(ctx, name)
	if err != nil {
		return 0, err
	}

	if existing != nil {
		newQty := existing.Quantity + quantity
		if err := ValidateQuantity(newQty); err != nil {
			return 0, err
		}
		price := existing.UnitPrice
		if unitPrice != nil {
			price = *unitPrice
		}
		patch := invstore.ItemPatch{Quantity: &newQty, UnitPrice: &price}
		if err := e.store.UpdateItem(ctx, existing.ID, patch); err != nil {
			return 0, e.storeErr(ctx, "update item", err)
		}
		if err := e.logTxn(ctx, existing.ID, invstore.ActionAdd, quantity); err != nil {
			return 0, err
		}
		observe.Logger(ctx).Info("stock added to existing item",
			slog.String("item", existing.Name),
			slog.Int("added", quantity),
			slog.Int("quantity", newQty),
		)
		return existing.ID, nil
	}

	price := 0.0
	if unitPrice != nil {
		price = *unitPrice
	}
	id, err := e.store.AddItem(ctx, name, category, quantity, price)
	if err != nil {
		if errors.Is(err, invstore.ErrDuplicate) {
			return 0, &DuplicateError{Name: name}
		}
		return 0, e.storeErr(ctx, "add item", err)
	}
	e.metrics.CatalogSize.Add(ctx, 1)
	if err := e.logTxn(ctx, id, invstore.ActionAdd, quantity); err != nil {
		return 0, err
	}
	observe.Logger(ctx).Info("item added",
		slog.String("item", name),
		slog.String("category", category),
		slog.Int("quantity", quantity),
	)
	return id, nil
}

// UpdateStock applies a signed quantity change to the named item and returns
// the new stock level. A change that would drive stock below zero fails with
// [*InsufficientStockError] and leaves the item untouched.
func (e *Engine) UpdateStock(ctx context.Context, name string, change int) (int, error) {
	ctx, span := observe.StartSpan(ctx, "engine.update_stock")
	defer span.End()

	if err := ValidateItemName(name); err != nil {
		return 0, err
	}

	item, err := e.resolveItem(ctx, name)
	if err != nil {
		return 0, err
	}
	if item == nil {
		return 0, &NotFoundError{Name: name}
	}

	newQty := item.Quantity + change
	if newQty < 0 {
		requested := change
		if requested < 0 {
			requested = -requested
		}
		return 0, &InsufficientStockError{Name: name, Available: item.Quantity, Requested: requested}
	}
	if err := ValidateQuantity(newQty); err != nil {
		return 0, err
	}

	if err := e.store.UpdateItem(ctx, item.ID, invstore.ItemPatch{Quantity: &newQty}); err != nil {
		return 0, e.storeErr(ctx, "update item", err)
	}

	action := invstore.ActionRemove
	amount := -change
	if change > 0 {
		action = invstore.ActionAdd
		amount = change
	}
	if err := e.logTxn(ctx, item.ID, action, amount); err != nil {
		return 0, err
	}

	if e.stockAlerts && newQty <= e.lowStockThreshold {
		observe.Logger(ctx).Warn("low stock",
			slog.String("item", item.Name),
			slog.Int("quantity", newQty),
		)
		e.metrics.RecordLowStockAlert(ctx)
	}
	return newQty, nil
}

// RemoveItem deletes the named item from the catalog entirely and returns
// the item as it was at deletion time. The movement log records the final
// stock level before the delete.
func (e *Engine) RemoveItem(ctx context.Context, name string) (*invstore.Item, error) {
	ctx, span := observe.StartSpan(ctx, "engine.remove_item")
	defer span.End()

	if err := ValidateItemName(name); err != nil {
		return nil, err
	}

	item, err := e.resolveItem(ctx, name)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, &NotFoundError{Name: name}
	}

	// Log before deleting so the record carries a valid item reference.
	if err := e.logTxn(ctx, item.ID, invstore.ActionDelete, item.Quantity); err != nil {
		return nil, err
	}
	if err := e.store.DeleteItem(ctx, item.ID); err != nil {
		return nil, e.storeErr(ctx, "delete item", err)
	}
	e.metrics.CatalogSize.Add(ctx, -1)
	observe.Logger(ctx).Info("item removed",
		slog.String("item", item.Name),
		slog.Int("quantity", item.Quantity),
	)
	return item, nil
}

// ─── Queries ─────────────────────────────────────────────────────────────────

// GetItem resolves name onto a catalog item. Returns (nil, nil) when nothing
// matches, mirroring the store contract.
func (e *Engine) GetItem(ctx context.Context, name string) (*invstore.Item, error) {
	ctx, span := observe.StartSpan(ctx, "engine.get_item")
	defer span.End()

	if err := ValidateItemName(name); err != nil {
		return nil, err
	}
	return e.resolveItem(ctx, name)
}

// AllItems returns every catalog item ordered by name.
func (e *Engine) AllItems(ctx context.Context) ([]invstore.Item, error) {
	items, err := e.store.ListItems(ctx)
	if err != nil {
		return nil, e.storeErr(ctx, "list items", err)
	}
	return items, nil
}

// SearchItems returns items whose name or category contains query,
// case-insensitively, ordered by name.
func (e *Engine) SearchItems(ctx context.Context, query string) ([]invstore.Item, error) {
	items, err := e.store.Search(ctx, query)
	if err != nil {
		return nil, e.storeErr(ctx, "search items", err)
	}
	return items, nil
}

// LowStock returns the items at or below the low-stock threshold, in
// listing order.
func (e *Engine) LowStock(ctx context.Context) ([]invstore.Item, error) {
	items, err := e.store.ListItems(ctx)
	if err != nil {
		return nil, e.storeErr(ctx, "list items", err)
	}
	var low []invstore.Item
	for _, it := range items {
		if it.Quantity <= e.lowStockThreshold {
			low = append(low, it)
		}
	}
	return low, nil
}

// ─── Name resolution ─────────────────────────────────────────────────────────

// resolveItem maps a user-supplied name onto a catalog item in three tiers:
// exact case-insensitive match, substring search (earliest hit wins), then
// fuzzy similarity over the full catalog. Returns (nil, nil) when no tier
// produces a match.
func (e *Engine) resolveItem(ctx context.Context, name string) (*invstore.Item, error) {
	item, err := e.store.ItemByName(ctx, name)
	if err != nil {
		return nil, e.storeErr(ctx, "find item", err)
	}
	if item != nil {
		return item, nil
	}

	matches, err := e.store.Search(ctx, name)
	if err != nil {
		return nil, e.storeErr(ctx, "find item", err)
	}
	if len(matches) > 0 {
		return &matches[0], nil
	}

	all, err := e.store.ListItems(ctx)
	if err != nil {
		return nil, e.storeErr(ctx, "find item", err)
	}
	if len(all) == 0 {
		return nil, nil
	}

	// The resolver compares case-sensitively; lowercase both sides.
	names := make([]string, len(all))
	for i, it := range all {
		names[i] = strings.ToLower(it.Name)
	}
	best, ok := e.resolver.Best(strings.ToLower(name), names)
	if !ok {
		return nil, nil
	}

	match := all[best.Index]
	observe.Logger(ctx).Debug("fuzzy matched item",
		slog.String("input", name),
		slog.String("matched", match.Name),
		slog.Int("score", best.Score),
	)
	e.metrics.RecordFuzzyCorrection(ctx)
	return &match, nil
}

// ─── Internals ───────────────────────────────────────────────────────────────

// logTxn appends a movement record when transaction logging is enabled.
func (e *Engine) logTxn(ctx context.Context, itemID int64, action invstore.Action, amount int) error {
	if !e.logTransactions {
		return nil
	}
	if err := e.store.LogTransaction(ctx, itemID, action, amount); err != nil {
		return e.storeErr(ctx, "log transaction", err)
	}
	return nil
}

// storeErr counts a store failure and wraps it with the failing operation.
func (e *Engine) storeErr(ctx context.Context, op string, err error) error {
	e.metrics.RecordStoreError(ctx, op)
	return &StoreError{Op: op, Err: err}
}

// round2 rounds to two decimal places for money totals.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
