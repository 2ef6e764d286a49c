package inventory

import (
	"context"
	"time"

	"github.com/stockvox/stockvox/internal/invstore"
	"github.com/stockvox/stockvox/internal/observe"
)

// ReportType selects the shape of a generated report.
type ReportType string

const (
	ReportSummary ReportType = "summary"
	ReportDaily   ReportType = "daily"
	ReportWeekly  ReportType = "weekly"
	ReportMonthly ReportType = "monthly"
)

// Window returns the movement-log look-back window in days, or 0 when the
// report type carries no transaction section. Unknown types behave like
// summary rather than failing.
func (rt ReportType) Window() int {
	switch rt {
	case ReportDaily:
		return 1
	case ReportWeekly:
		return 7
	case ReportMonthly:
		return 30
	default:
		return 0
	}
}

// Report is a point-in-time snapshot of the catalog with aggregate totals.
type Report struct {
	Type          ReportType
	GeneratedAt   time.Time
	TotalItems    int
	TotalQuantity int

	// TotalValue is sum(quantity * unit price), rounded to cents.
	TotalValue float64

	// LowStockItems is only populated when stock alerts are enabled.
	LowStockItems []invstore.Item

	Items []invstore.Item

	// RecentTransactions holds the movement log for the report window,
	// newest first. Empty for summary reports.
	RecentTransactions []invstore.Transaction
}

// Statistics are lightweight catalog aggregates for session summaries and
// the admin surface.
type Statistics struct {
	TotalItems    int
	TotalQuantity int
	TotalValue    float64
	Categories    int
	LowStockCount int
}

// Report builds a report of the given type from the current catalog.
func (e *Engine) Report(ctx context.Context, rt ReportType) (*Report, error) {
	ctx, span := observe.StartSpan(ctx, "engine.report")
	defer span.End()

	items, err := e.store.ListItems(ctx)
	if err != nil {
		return nil, e.storeErr(ctx, "list items", err)
	}

	rep := &Report{
		Type:        rt,
		GeneratedAt: e.now(),
		TotalItems:  len(items),
		Items:       items,
	}
	for _, it := range items {
		rep.TotalQuantity += it.Quantity
		rep.TotalValue += float64(it.Quantity) * it.UnitPrice
	}
	rep.TotalValue = round2(rep.TotalValue)

	if e.stockAlerts {
		for _, it := range items {
			if it.Quantity <= e.lowStockThreshold {
				rep.LowStockItems = append(rep.LowStockItems, it)
			}
		}
	}

	if days := rt.Window(); days > 0 {
		txs, err := e.store.RecentTransactions(ctx, days)
		if err != nil {
			return nil, e.storeErr(ctx, "list transactions", err)
		}
		rep.RecentTransactions = txs
	}
	return rep, nil
}

// Statistics computes catalog aggregates. The low-stock count is always
// included, independent of the stock-alerts toggle.
func (e *Engine) Statistics(ctx context.Context) (*Statistics, error) {
	items, err := e.store.ListItems(ctx)
	if err != nil {
		return nil, e.storeErr(ctx, "list items", err)
	}

	stats := &Statistics{TotalItems: len(items)}
	categories := make(map[string]struct{})
	for _, it := range items {
		stats.TotalQuantity += it.Quantity
		stats.TotalValue += float64(it.Quantity) * it.UnitPrice
		categories[it.Category] = struct{}{}
		if it.Quantity <= e.lowStockThreshold {
			stats.LowStockCount++
		}
	}
	stats.TotalValue = round2(stats.TotalValue)
	stats.Categories = len(categories)
	return stats, nil
}
