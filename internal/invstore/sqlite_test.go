package invstore

import (
	"context"
	"errors"
	"testing"
)

// newTestSQLiteStore opens a throwaway in-memory database.
func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore(:memory:) error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestSQLiteStore(t)

	id, err := s.AddItem(ctx, "Apples", "Fruit", 10, 2.5)
	if err != nil {
		t.Fatalf("AddItem() unexpected error: %v", err)
	}
	if id == 0 {
		t.Fatal("AddItem() returned id 0")
	}

	it, err := s.ItemByName(ctx, "aPPles")
	if err != nil {
		t.Fatalf("ItemByName() unexpected error: %v", err)
	}
	if it == nil {
		t.Fatal("ItemByName() returned nil, want item")
	}
	if it.ID != id || it.Name != "Apples" || it.Category != "Fruit" || it.Quantity != 10 || it.UnitPrice != 2.5 {
		t.Errorf("ItemByName() = %+v", it)
	}
	if it.CreatedAt.IsZero() || it.UpdatedAt.IsZero() {
		t.Error("timestamps should be set")
	}

	byID, err := s.ItemByID(ctx, id)
	if err != nil {
		t.Fatalf("ItemByID() unexpected error: %v", err)
	}
	if byID == nil || byID.Name != "Apples" {
		t.Fatalf("ItemByID() = %v, want Apples", byID)
	}
}

func TestSQLiteStore_DuplicateName(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestSQLiteStore(t)

	if _, err := s.AddItem(ctx, "Apples", "Fruit", 10, 2.5); err != nil {
		t.Fatalf("AddItem() unexpected error: %v", err)
	}
	_, err := s.AddItem(ctx, "APPLES", "Fruit", 1, 0)
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("AddItem() error = %v, want ErrDuplicate", err)
	}
}

func TestSQLiteStore_UpdateItem(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("partial patch", func(t *testing.T) {
		t.Parallel()
		s := newTestSQLiteStore(t)
		id, _ := s.AddItem(ctx, "apples", "Fruit", 10, 2.5)

		qty := 15
		if err := s.UpdateItem(ctx, id, ItemPatch{Quantity: &qty}); err != nil {
			t.Fatalf("UpdateItem() unexpected error: %v", err)
		}

		it, _ := s.ItemByID(ctx, id)
		if it.Quantity != 15 {
			t.Errorf("Quantity = %d, want 15", it.Quantity)
		}
		if it.UnitPrice != 2.5 {
			t.Errorf("UnitPrice = %g, want untouched 2.5", it.UnitPrice)
		}
	})

	t.Run("not found", func(t *testing.T) {
		t.Parallel()
		s := newTestSQLiteStore(t)
		err := s.UpdateItem(ctx, 999, ItemPatch{})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("UpdateItem() error = %v, want ErrNotFound", err)
		}
	})
}

func TestSQLiteStore_ListAndSearch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestSQLiteStore(t)

	s.AddItem(ctx, "Bananas", "Fruit", 5, 1.0)
	s.AddItem(ctx, "apples", "Fruit", 10, 2.5)
	s.AddItem(ctx, "milk", "Dairy", 2, 1.5)

	items, err := s.ListItems(ctx)
	if err != nil {
		t.Fatalf("ListItems() unexpected error: %v", err)
	}
	want := []string{"apples", "Bananas", "milk"}
	if len(items) != len(want) {
		t.Fatalf("ListItems() returned %d items, want %d", len(items), len(want))
	}
	for i, name := range want {
		if items[i].Name != name {
			t.Errorf("items[%d].Name = %q, want %q", i, items[i].Name, name)
		}
	}

	hits, err := s.Search(ctx, "FRUIT")
	if err != nil {
		t.Fatalf("Search() unexpected error: %v", err)
	}
	if len(hits) != 2 {
		t.Errorf("Search(FRUIT) returned %d items, want 2", len(hits))
	}

	hits, err = s.Search(ctx, "appl")
	if err != nil {
		t.Fatalf("Search() unexpected error: %v", err)
	}
	if len(hits) != 1 || hits[0].Name != "apples" {
		t.Errorf("Search(appl) = %v, want [apples]", hits)
	}
}

func TestSQLiteStore_Transactions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestSQLiteStore(t)

	id, _ := s.AddItem(ctx, "apples", "Fruit", 10, 2.5)
	if err := s.LogTransaction(ctx, id, ActionAdd, 10); err != nil {
		t.Fatalf("LogTransaction() unexpected error: %v", err)
	}
	if err := s.LogTransaction(ctx, id, ActionRemove, 3); err != nil {
		t.Fatalf("LogTransaction() unexpected error: %v", err)
	}

	txs, err := s.RecentTransactions(ctx, 1)
	if err != nil {
		t.Fatalf("RecentTransactions() unexpected error: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("RecentTransactions() returned %d entries, want 2", len(txs))
	}
	if txs[0].Action != ActionRemove || txs[0].Amount != 3 {
		t.Errorf("txs[0] = %+v, want the newest entry first", txs[0])
	}
	if txs[0].ItemName != "apples" {
		t.Errorf("ItemName = %q, want 'apples'", txs[0].ItemName)
	}
}

func TestSQLiteStore_DeleteKeepsTransactionLog(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestSQLiteStore(t)

	id, _ := s.AddItem(ctx, "apples", "Fruit", 10, 2.5)
	s.LogTransaction(ctx, id, ActionDelete, 10)

	if err := s.DeleteItem(ctx, id); err != nil {
		t.Fatalf("DeleteItem() unexpected error: %v", err)
	}
	it, err := s.ItemByID(ctx, id)
	if err != nil {
		t.Fatalf("ItemByID() unexpected error: %v", err)
	}
	if it != nil {
		t.Errorf("ItemByID() after delete = %v, want nil", it)
	}

	txs, err := s.RecentTransactions(ctx, 1)
	if err != nil {
		t.Fatalf("RecentTransactions() unexpected error: %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("transaction log lost after delete: %d entries, want 1", len(txs))
	}
	if txs[0].ItemName != "" {
		t.Errorf("ItemName = %q, want empty after item delete", txs[0].ItemName)
	}

	// Deleting again is not an error.
	if err := s.DeleteItem(ctx, id); err != nil {
		t.Errorf("DeleteItem() repeat = %v, want nil", err)
	}
}
