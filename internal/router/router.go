// Package router dispatches parsed commands to inventory operations and
// renders the outcome. It is the seam between the speech loop and the
// engine: everything that can go wrong below it comes back as a rendered
// failure outcome, never as a panic or a raw error string.
package router

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/stockvox/stockvox/internal/command"
	"github.com/stockvox/stockvox/internal/inventory"
	"github.com/stockvox/stockvox/internal/observe"
	"github.com/stockvox/stockvox/internal/respond"
)

const (
	statusOK    = "ok"
	statusError = "error"
)

// Outcome is the result of processing one utterance. Response is ready to
// show or speak; Data carries the typed payload for programmatic callers.
type Outcome struct {
	OK       bool
	Intent   command.Intent
	Input    string
	Response string
	Data     any
}

// AddedItem is the Data payload for a successful addition.
type AddedItem struct {
	ID       int64
	Name     string
	Quantity int
	Price    *float64
}

// StockUpdate is the Data payload for a successful stock adjustment.
type StockUpdate struct {
	Name        string
	Change      int
	NewQuantity int
}

// Removal is the Data payload for a successful removal. Complete reports
// whether the item left the catalog entirely.
type Removal struct {
	Name        string
	Removed     int
	NewQuantity int
	Complete    bool
}

// Stats counts commands processed over the router's lifetime. Silence is
// not counted.
type Stats struct {
	Processed int
	Succeeded int
	Failed    int
}

// Router routes utterances through parse, execute and render.
type Router struct {
	parser   *command.Parser
	engine   *inventory.Engine
	renderer *respond.Renderer
	metrics  *observe.Metrics

	mu    sync.Mutex
	stats Stats
}

// Option configures a Router.
type Option func(*Router)

// WithMetrics overrides the metrics instance, mainly for tests.
func WithMetrics(m *observe.Metrics) Option {
	return func(rt *Router) {
		rt.metrics = m
	}
}

// NewRouter wires the processing pipeline. All three stages are required.
func NewRouter(parser *command.Parser, engine *inventory.Engine, renderer *respond.Renderer, opts ...Option) *Router {
	rt := &Router{
		parser:   parser,
		engine:   engine,
		renderer: renderer,
	}
	for _, opt := range opts {
		opt(rt)
	}
	if rt.metrics == nil {
		rt.metrics = observe.DefaultMetrics()
	}
	return rt
}

// Process runs one utterance through the pipeline. Whitespace-only input
// is a no-op: recognizers emit empty transcripts constantly and they are
// not errors. Everything else produces a rendered Outcome.
func (rt *Router) Process(ctx context.Context, text string) Outcome {
	input := inventory.SanitizeText(text)
	if input == "" {
		return Outcome{OK: true}
	}

	ctx, span := observe.StartSpan(ctx, "router.process")
	defer span.End()

	start := time.Now()
	rt.count(func(s *Stats) { s.Processed++ })

	if err := inventory.ValidateCommand(input); err != nil {
		out := rt.fail(ctx, command.IntentNone, input, rt.renderer.Error(err))
		rt.metrics.CommandDuration.Record(ctx, time.Since(start).Seconds())
		return out
	}

	parseStart := time.Now()
	_, parseSpan := observe.StartSpan(ctx, "router.parse")
	res := rt.parser.Parse(input)
	parseSpan.End()
	rt.metrics.ParseDuration.Record(ctx, time.Since(parseStart).Seconds())

	if !res.OK {
		out := rt.fail(ctx, res.Intent, input, rt.renderer.ParseFailure(res))
		rt.metrics.CommandDuration.Record(ctx, time.Since(start).Seconds())
		return out
	}

	execStart := time.Now()
	execCtx, execSpan := observe.StartSpan(ctx, "router.execute")
	out := rt.execute(execCtx, res)
	execSpan.End()
	rt.metrics.ExecuteDuration.Record(ctx, time.Since(execStart).Seconds())
	rt.metrics.CommandDuration.Record(ctx, time.Since(start).Seconds())

	if out.OK {
		rt.count(func(s *Stats) { s.Succeeded++ })
		rt.metrics.RecordCommand(ctx, intentLabel(out.Intent), statusOK)
		observe.Logger(ctx).LogAttrs(ctx, slog.LevelInfo, "command processed",
			slog.String("intent", intentLabel(out.Intent)),
			slog.Duration("took", time.Since(start)),
		)
	} else {
		rt.count(func(s *Stats) { s.Failed++ })
		rt.metrics.RecordCommand(ctx, intentLabel(out.Intent), statusError)
		observe.Logger(ctx).LogAttrs(ctx, slog.LevelWarn, "command failed",
			slog.String("intent", intentLabel(out.Intent)),
			slog.String("response", out.Response),
		)
	}
	return out
}

// Stats returns a snapshot of the session counters.
func (rt *Router) Stats() Stats {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.stats
}

func (rt *Router) execute(ctx context.Context, res command.Result) Outcome {
	switch res.Intent {
	case command.IntentAddItem:
		return rt.handleAddItem(ctx, res)
	case command.IntentUpdateStock:
		return rt.handleUpdateStock(ctx, res)
	case command.IntentRemoveItem:
		return rt.handleRemoveItem(ctx, res)
	case command.IntentQuery:
		return rt.handleQuery(ctx, res)
	case command.IntentReport:
		return rt.handleReport(ctx, res)
	}
	return rt.failure(res.Intent, res.Raw, "An error occurred: unknown command.")
}

func (rt *Router) handleAddItem(ctx context.Context, res command.Result) Outcome {
	e := res.Entities

	id, err := rt.engine.AddItem(ctx, e.ItemName, e.Quantity, e.Price, e.Category)
	if err != nil {
		return rt.failWith(res, err)
	}

	return Outcome{
		OK:       true,
		Intent:   res.Intent,
		Input:    res.Raw,
		Response: rt.renderer.AddItem(e.ItemName, e.Quantity, e.Price),
		Data:     AddedItem{ID: id, Name: e.ItemName, Quantity: e.Quantity, Price: e.Price},
	}
}

func (rt *Router) handleUpdateStock(ctx context.Context, res command.Result) Outcome {
	e := res.Entities

	newQty, err := rt.engine.UpdateStock(ctx, e.ItemName, e.QuantityChange)
	if err != nil {
		return rt.failWith(res, err)
	}

	return Outcome{
		OK:       true,
		Intent:   res.Intent,
		Input:    res.Raw,
		Response: rt.renderer.StockChange(e.ItemName, e.QuantityChange, newQty),
		Data:     StockUpdate{Name: e.ItemName, Change: e.QuantityChange, NewQuantity: newQty},
	}
}

func (rt *Router) handleRemoveItem(ctx context.Context, res command.Result) Outcome {
	e := res.Entities

	// A spoken quantity means a partial removal, which is a stock
	// adjustment. Only a bare removal drops the item.
	if e.Quantity > 0 {
		newQty, err := rt.engine.UpdateStock(ctx, e.ItemName, -e.Quantity)
		if err != nil {
			return rt.failWith(res, err)
		}
		return Outcome{
			OK:       true,
			Intent:   res.Intent,
			Input:    res.Raw,
			Response: rt.renderer.RemovedQuantity(e.ItemName, e.Quantity, newQty),
			Data:     Removal{Name: e.ItemName, Removed: e.Quantity, NewQuantity: newQty},
		}
	}

	item, err := rt.engine.RemoveItem(ctx, e.ItemName)
	if err != nil {
		return rt.failWith(res, err)
	}
	return Outcome{
		OK:       true,
		Intent:   res.Intent,
		Input:    res.Raw,
		Response: rt.renderer.RemovedCompletely(e.ItemName),
		Data:     Removal{Name: e.ItemName, Removed: item.Quantity, Complete: true},
	}
}

func (rt *Router) handleQuery(ctx context.Context, res command.Result) Outcome {
	e := res.Entities

	if e.QueryType == command.QueryAll {
		items, err := rt.engine.AllItems(ctx)
		if err != nil {
			return rt.failWith(res, err)
		}
		return Outcome{
			OK:       true,
			Intent:   res.Intent,
			Input:    res.Raw,
			Response: rt.renderer.Catalog(items),
			Data:     items,
		}
	}

	item, err := rt.engine.GetItem(ctx, e.ItemName)
	if err != nil {
		return rt.failWith(res, err)
	}

	// A miss is an answered question, not a failure.
	out := Outcome{
		OK:       true,
		Intent:   res.Intent,
		Input:    res.Raw,
		Response: rt.renderer.Item(item),
	}
	if item != nil {
		out.Data = item
	}
	return out
}

func (rt *Router) handleReport(ctx context.Context, res command.Result) Outcome {
	rep, err := rt.engine.Report(ctx, inventory.ReportType(res.Entities.ReportType))
	if err != nil {
		return rt.failWith(res, err)
	}
	return Outcome{
		OK:       true,
		Intent:   res.Intent,
		Input:    res.Raw,
		Response: rt.renderer.Report(rep),
		Data:     rep,
	}
}

// failWith renders an engine error as a failure outcome. Counting and
// logging happen once in Process.
func (rt *Router) failWith(res command.Result, err error) Outcome {
	return rt.failure(res.Intent, res.Raw, rt.renderer.Error(err))
}

// fail renders a pre-execution failure and counts it.
func (rt *Router) fail(ctx context.Context, intent command.Intent, input, response string) Outcome {
	rt.count(func(s *Stats) { s.Failed++ })
	rt.metrics.RecordCommand(ctx, intentLabel(intent), statusError)
	observe.Logger(ctx).LogAttrs(ctx, slog.LevelWarn, "command rejected",
		slog.String("intent", intentLabel(intent)),
		slog.String("response", response),
	)
	return rt.failure(intent, input, response)
}

func (rt *Router) failure(intent command.Intent, input, response string) Outcome {
	return Outcome{Intent: intent, Input: input, Response: response}
}

func (rt *Router) count(update func(*Stats)) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	update(&rt.stats)
}

func intentLabel(intent command.Intent) string {
	if intent == command.IntentNone {
		return "none"
	}
	return string(intent)
}
