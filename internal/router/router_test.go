package router

import (
	"context"
	"strings"
	"testing"

	"github.com/stockvox/stockvox/internal/command"
	"github.com/stockvox/stockvox/internal/inventory"
	"github.com/stockvox/stockvox/internal/invstore"
	"github.com/stockvox/stockvox/internal/respond"
)

func newTestRouter(t *testing.T) (*Router, *invstore.MemStore) {
	t.Helper()

	store := invstore.NewMemStore()
	t.Cleanup(func() { store.Close() })

	engine := inventory.NewEngine(store)
	rt := NewRouter(command.NewParser(), engine, respond.NewRenderer())
	return rt, store
}

func seedItem(t *testing.T, store *invstore.MemStore, name string, qty int, price float64) {
	t.Helper()

	if _, err := store.AddItem(context.Background(), name, "General", qty, price); err != nil {
		t.Fatalf("seed %s: %v", name, err)
	}
}

func TestProcess_AddItem(t *testing.T) {
	t.Parallel()

	rt, store := newTestRouter(t)
	ctx := context.Background()

	out := rt.Process(ctx, "add five apples")
	if !out.OK {
		t.Fatalf("Process failed: %s", out.Response)
	}
	if out.Intent != command.IntentAddItem {
		t.Errorf("intent = %q, want %q", out.Intent, command.IntentAddItem)
	}
	if want := "Added 5 apples to inventory."; out.Response != want {
		t.Errorf("response = %q, want %q", out.Response, want)
	}

	added, ok := out.Data.(AddedItem)
	if !ok {
		t.Fatalf("data type = %T, want AddedItem", out.Data)
	}
	if added.Name != "apples" || added.Quantity != 5 || added.ID == 0 {
		t.Errorf("payload = %+v", added)
	}

	item, err := store.ItemByName(ctx, "apples")
	if err != nil || item == nil {
		t.Fatalf("stored item missing: %v", err)
	}
	if item.Quantity != 5 {
		t.Errorf("stored quantity = %d, want 5", item.Quantity)
	}
}

func TestProcess_SilenceIsNoOp(t *testing.T) {
	t.Parallel()

	rt, _ := newTestRouter(t)

	out := rt.Process(context.Background(), "   \t ")
	if !out.OK {
		t.Error("silence reported as failure")
	}
	if out.Response != "" {
		t.Errorf("response = %q, want empty", out.Response)
	}
	if got := rt.Stats(); got.Processed != 0 {
		t.Errorf("silence counted: %+v", got)
	}
}

func TestProcess_CommandTooLong(t *testing.T) {
	t.Parallel()

	rt, _ := newTestRouter(t)

	out := rt.Process(context.Background(), strings.Repeat("a", 501))
	if out.OK {
		t.Fatal("oversized command accepted")
	}
	if want := "An error occurred: Command too long (max 500 characters)"; out.Response != want {
		t.Errorf("response = %q, want %q", out.Response, want)
	}
}

func TestProcess_ParseFailureLeavesEngineUntouched(t *testing.T) {
	t.Parallel()

	rt, store := newTestRouter(t)
	ctx := context.Background()

	out := rt.Process(ctx, "xyz abc def")
	if out.OK {
		t.Fatal("gibberish accepted")
	}
	if out.Intent != command.IntentNone {
		t.Errorf("intent = %q, want none", out.Intent)
	}
	if want := "I didn't understand that command. Please try again with a clearer instruction."; out.Response != want {
		t.Errorf("response = %q, want %q", out.Response, want)
	}

	items, err := store.ListItems(ctx)
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("engine touched on parse failure: %d items", len(items))
	}
}

func TestProcess_MissingEntity(t *testing.T) {
	t.Parallel()

	rt, _ := newTestRouter(t)

	out := rt.Process(context.Background(), "add")
	if out.OK {
		t.Fatal("incomplete command accepted")
	}
	if want := "Missing information. Item name is required"; out.Response != want {
		t.Errorf("response = %q, want %q", out.Response, want)
	}
}

func TestProcess_UpdateStock(t *testing.T) {
	t.Parallel()

	rt, store := newTestRouter(t)
	ctx := context.Background()
	seedItem(t, store, "apples", 10, 0)

	out := rt.Process(ctx, "increase apples by 5")
	if !out.OK {
		t.Fatalf("Process failed: %s", out.Response)
	}
	if want := "Added 5 apples. New stock: 15 units."; out.Response != want {
		t.Errorf("response = %q, want %q", out.Response, want)
	}

	upd, ok := out.Data.(StockUpdate)
	if !ok {
		t.Fatalf("data type = %T, want StockUpdate", out.Data)
	}
	if upd.Change != 5 || upd.NewQuantity != 15 {
		t.Errorf("payload = %+v", upd)
	}
}

func TestProcess_FuzzyNameStillUpdates(t *testing.T) {
	t.Parallel()

	rt, store := newTestRouter(t)
	ctx := context.Background()
	seedItem(t, store, "apples", 10, 0)

	// Misheard name resolves to the stored item; the confirmation echoes
	// what the user said.
	out := rt.Process(ctx, "increase aples by 2")
	if !out.OK {
		t.Fatalf("Process failed: %s", out.Response)
	}
	if want := "Added 2 aples. New stock: 12 units."; out.Response != want {
		t.Errorf("response = %q, want %q", out.Response, want)
	}

	item, err := store.ItemByName(ctx, "apples")
	if err != nil || item == nil {
		t.Fatalf("stored item missing: %v", err)
	}
	if item.Quantity != 12 {
		t.Errorf("stored quantity = %d, want 12", item.Quantity)
	}
}

func TestProcess_RemoveQuantity(t *testing.T) {
	t.Parallel()

	rt, store := newTestRouter(t)
	ctx := context.Background()
	seedItem(t, store, "apples", 10, 0)

	out := rt.Process(ctx, "remove 3 apples")
	if !out.OK {
		t.Fatalf("Process failed: %s", out.Response)
	}
	if want := "Removed 3 apples. Remaining: 7 units."; out.Response != want {
		t.Errorf("response = %q, want %q", out.Response, want)
	}

	rem, ok := out.Data.(Removal)
	if !ok {
		t.Fatalf("data type = %T, want Removal", out.Data)
	}
	if rem.Complete {
		t.Error("partial removal flagged as complete")
	}
	if rem.Removed != 3 || rem.NewQuantity != 7 {
		t.Errorf("payload = %+v", rem)
	}
}

func TestProcess_RemoveCompletely(t *testing.T) {
	t.Parallel()

	rt, store := newTestRouter(t)
	ctx := context.Background()
	seedItem(t, store, "pepsi", 6, 0)

	out := rt.Process(ctx, "delete pepsi")
	if !out.OK {
		t.Fatalf("Process failed: %s", out.Response)
	}
	if want := "Removed pepsi from inventory completely."; out.Response != want {
		t.Errorf("response = %q, want %q", out.Response, want)
	}

	rem, ok := out.Data.(Removal)
	if !ok {
		t.Fatalf("data type = %T, want Removal", out.Data)
	}
	if !rem.Complete || rem.Removed != 6 {
		t.Errorf("payload = %+v", rem)
	}

	item, err := store.ItemByName(ctx, "pepsi")
	if err != nil {
		t.Fatalf("ItemByName: %v", err)
	}
	if item != nil {
		t.Error("item still in catalog after removal")
	}
}

func TestProcess_InsufficientStock(t *testing.T) {
	t.Parallel()

	rt, store := newTestRouter(t)
	ctx := context.Background()
	seedItem(t, store, "apples", 2, 0)

	out := rt.Process(ctx, "remove 5 apples")
	if out.OK {
		t.Fatal("overdraw accepted")
	}
	if want := "Not enough stock available. Insufficient stock for 'apples'. Available: 2, Requested: 5"; out.Response != want {
		t.Errorf("response = %q, want %q", out.Response, want)
	}

	item, err := store.ItemByName(ctx, "apples")
	if err != nil || item == nil {
		t.Fatalf("stored item missing: %v", err)
	}
	if item.Quantity != 2 {
		t.Errorf("stock changed on failed removal: %d", item.Quantity)
	}
}

func TestProcess_UnknownItem(t *testing.T) {
	t.Parallel()

	rt, _ := newTestRouter(t)

	out := rt.Process(context.Background(), "increase bread by 2")
	if out.OK {
		t.Fatal("update of unknown item accepted")
	}
	if want := "I couldn't find that item. Item 'bread' not found"; out.Response != want {
		t.Errorf("response = %q, want %q", out.Response, want)
	}
}

func TestProcess_QuerySingle(t *testing.T) {
	t.Parallel()

	rt, store := newTestRouter(t)
	ctx := context.Background()
	seedItem(t, store, "apples", 10, 2.5)

	out := rt.Process(ctx, "how many apples left")
	if !out.OK {
		t.Fatalf("Process failed: %s", out.Response)
	}
	if want := "apples: 10 units at $2.50 per unit. Total value: $25.00"; out.Response != want {
		t.Errorf("response = %q, want %q", out.Response, want)
	}

	item, ok := out.Data.(*invstore.Item)
	if !ok {
		t.Fatalf("data type = %T, want *invstore.Item", out.Data)
	}
	if item.Name != "apples" {
		t.Errorf("payload item = %q", item.Name)
	}
}

func TestProcess_QueryMiss(t *testing.T) {
	t.Parallel()

	rt, _ := newTestRouter(t)

	out := rt.Process(context.Background(), "how many bread left")
	if !out.OK {
		t.Fatal("query miss reported as failure")
	}
	if want := "Item not found."; out.Response != want {
		t.Errorf("response = %q, want %q", out.Response, want)
	}
	if out.Data != nil {
		t.Errorf("data = %v, want nil on miss", out.Data)
	}
}

func TestProcess_QueryAll(t *testing.T) {
	t.Parallel()

	rt, store := newTestRouter(t)
	ctx := context.Background()
	seedItem(t, store, "apples", 10, 2.5)
	seedItem(t, store, "bread", 3, 0)

	out := rt.Process(ctx, "what is available in stock total")
	if !out.OK {
		t.Fatalf("Process failed: %s", out.Response)
	}
	want := "You have 2 items in inventory:\n" +
		"- apples: 10 units at $2.50 each\n" +
		"- bread: 3 units\n"
	if out.Response != want {
		t.Errorf("response = %q, want %q", out.Response, want)
	}

	items, ok := out.Data.([]invstore.Item)
	if !ok {
		t.Fatalf("data type = %T, want []invstore.Item", out.Data)
	}
	if len(items) != 2 {
		t.Errorf("payload has %d items, want 2", len(items))
	}
}

func TestProcess_Report(t *testing.T) {
	t.Parallel()

	rt, store := newTestRouter(t)
	ctx := context.Background()
	seedItem(t, store, "apples", 10, 2.5)

	out := rt.Process(ctx, "give me daily report")
	if !out.OK {
		t.Fatalf("Process failed: %s", out.Response)
	}
	if !strings.HasPrefix(out.Response, "Inventory daily report:\nTotal items: 1\n") {
		t.Errorf("response = %q", out.Response)
	}

	rep, ok := out.Data.(*inventory.Report)
	if !ok {
		t.Fatalf("data type = %T, want *inventory.Report", out.Data)
	}
	if rep.Type != inventory.ReportDaily {
		t.Errorf("report type = %q, want daily", rep.Type)
	}
}

func TestProcess_Stats(t *testing.T) {
	t.Parallel()

	rt, store := newTestRouter(t)
	ctx := context.Background()
	seedItem(t, store, "apples", 3, 0)

	rt.Process(ctx, "add five apples")      // success
	rt.Process(ctx, "how many apples left") // success
	rt.Process(ctx, "xyz abc def")          // parse failure
	rt.Process(ctx, "remove 99 apples")     // engine failure
	rt.Process(ctx, "   ")                  // silence, not counted

	got := rt.Stats()
	want := Stats{Processed: 4, Succeeded: 2, Failed: 2}
	if got != want {
		t.Errorf("Stats() = %+v, want %+v", got, want)
	}
}
