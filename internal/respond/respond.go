// Package respond renders command outcomes as short, speakable sentences.
// Every string here may be fed to a text-to-speech voice verbatim, so the
// renderer never emits error codes, identifiers, or stack traces.
package respond

import (
	"errors"
	"fmt"
	"strings"

	"github.com/stockvox/stockvox/internal/command"
	"github.com/stockvox/stockvox/internal/inventory"
	"github.com/stockvox/stockvox/internal/invstore"
)

const (
	// maxListedItems caps catalog listings; long lists are unbearable
	// read aloud.
	maxListedItems = 10

	// maxLowStockListed caps the alert section of reports.
	maxLowStockListed = 5
)

// Renderer formats inventory results for the user.
type Renderer struct {
	lowStockThreshold int
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithLowStockThreshold sets the quantity at or below which single-item
// query responses mention low stock. Zero disables the hint.
func WithLowStockThreshold(n int) Option {
	return func(r *Renderer) {
		r.lowStockThreshold = n
	}
}

// NewRenderer builds a Renderer. Without options the low-stock hint uses
// the engine's default threshold.
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{lowStockThreshold: inventory.DefaultLowStockThreshold}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AddItem confirms an addition. The price clause only appears when the
// user actually spoke a price.
func (r *Renderer) AddItem(name string, quantity int, price *float64) string {
	resp := fmt.Sprintf("Added %d %s", quantity, name)
	if price != nil && *price != 0 {
		resp += fmt.Sprintf(" at $%.2f per unit", *price)
	}
	return resp + " to inventory."
}

// StockChange confirms a stock adjustment.
func (r *Renderer) StockChange(name string, change, newQuantity int) string {
	action := "Added"
	if change < 0 {
		action = "Removed"
		change = -change
	}
	return fmt.Sprintf("%s %d %s. New stock: %d units.", action, change, name, newQuantity)
}

// RemovedQuantity confirms a partial removal.
func (r *Renderer) RemovedQuantity(name string, removed, newQuantity int) string {
	return fmt.Sprintf("Removed %d %s. Remaining: %d units.", removed, name, newQuantity)
}

// RemovedCompletely confirms that an item left the catalog.
func (r *Renderer) RemovedCompletely(name string) string {
	return fmt.Sprintf("Removed %s from inventory completely.", name)
}

// Item renders a single-item query. A nil item is a miss, not an error.
func (r *Renderer) Item(item *invstore.Item) string {
	if item == nil {
		return "Item not found."
	}

	resp := fmt.Sprintf("%s: %d units", item.Name, item.Quantity)
	if item.UnitPrice > 0 {
		resp += fmt.Sprintf(" at $%.2f per unit", item.UnitPrice)
		resp += fmt.Sprintf(". Total value: $%.2f", float64(item.Quantity)*item.UnitPrice)
	}
	if r.lowStockThreshold > 0 && item.Quantity <= r.lowStockThreshold {
		resp += ". Stock is running low."
	}
	return resp
}

// Catalog renders a whole-inventory query, listing at most ten items.
func (r *Renderer) Catalog(items []invstore.Item) string {
	if len(items) == 0 {
		return "Inventory is empty."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You have %d items in inventory:\n", len(items))
	for i, item := range items {
		if i == maxListedItems {
			break
		}
		fmt.Fprintf(&b, "- %s: %d units", item.Name, item.Quantity)
		if item.UnitPrice > 0 {
			fmt.Fprintf(&b, " at $%.2f each", item.UnitPrice)
		}
		b.WriteString("\n")
	}
	if len(items) > maxListedItems {
		fmt.Fprintf(&b, "... and %d more items.", len(items)-maxListedItems)
	}
	return b.String()
}

// Report renders an inventory report with totals and low-stock alerts.
func (r *Renderer) Report(rep *inventory.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Inventory %s report:\n", rep.Type)
	fmt.Fprintf(&b, "Total items: %d\n", rep.TotalItems)
	fmt.Fprintf(&b, "Total quantity: %d units\n", rep.TotalQuantity)
	fmt.Fprintf(&b, "Total value: $%.2f\n", rep.TotalValue)

	if len(rep.LowStockItems) > 0 {
		fmt.Fprintf(&b, "\nLow stock alerts (%d items):\n", len(rep.LowStockItems))
		for i, item := range rep.LowStockItems {
			if i == maxLowStockListed {
				break
			}
			fmt.Fprintf(&b, "- %s: %d units\n", item.Name, item.Quantity)
		}
	}
	return b.String()
}

// Statistics renders catalog aggregates as one line, used for session
// summaries.
func (r *Renderer) Statistics(s inventory.Statistics) string {
	resp := fmt.Sprintf("Tracking %d items across %d categories. Total stock: %d units worth $%.2f.",
		s.TotalItems, s.Categories, s.TotalQuantity, s.TotalValue)
	if s.LowStockCount > 0 {
		resp += fmt.Sprintf(" %d items low on stock.", s.LowStockCount)
	}
	return resp
}

// Error maps engine failures to polite phrasing. The taxonomy errors carry
// user-ready detail; everything else gets a generic line.
func (r *Renderer) Error(err error) string {
	var (
		notFound     *inventory.NotFoundError
		insufficient *inventory.InsufficientStockError
	)
	switch {
	case errors.As(err, &notFound):
		return "I couldn't find that item. " + notFound.Error()
	case errors.As(err, &insufficient):
		return "Not enough stock available. " + insufficient.Error()
	default:
		return "An error occurred: " + err.Error()
	}
}

// ParseFailure renders an unexecutable parse. Missing-entity failures name
// what was missing; anything without a detected intent gets the generic
// retry prompt.
func (r *Renderer) ParseFailure(res command.Result) string {
	if res.Intent == command.IntentNone {
		return "I didn't understand that command. Please try again with a clearer instruction."
	}
	if strings.Contains(strings.ToLower(res.Reason), "required") {
		return "Missing information. " + res.Reason
	}
	return "An error occurred: " + res.Reason
}
