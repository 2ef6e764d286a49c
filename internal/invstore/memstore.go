package invstore

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
)

// Compile-time assertion that MemStore satisfies the Store interface.
var _ Store = (*MemStore)(nil)

// MemStore is a thread-safe, in-memory implementation of [Store]. It backs
// the "memory" driver and is used heavily in tests. Contents are lost when
// the process exits.
type MemStore struct {
	mu     sync.RWMutex
	items  map[int64]Item
	txs    []Transaction
	nextID int64
	nextTx int64

	now func() time.Time
}

// NewMemStore returns an initialised [MemStore].
func NewMemStore() *MemStore {
	return &MemStore{
		items: make(map[int64]Item),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// AddItem implements [Store.AddItem].
func (s *MemStore) AddItem(ctx context.Context, name, category string, quantity int, unitPrice float64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.items == nil {
		s.items = make(map[int64]Item)
	}

	for _, it := range s.items {
		if strings.EqualFold(it.Name, name) {
			return 0, fmt.Errorf("%w: %q", ErrDuplicate, name)
		}
	}

	s.nextID++
	now := s.clock()
	s.items[s.nextID] = Item{
		ID:        s.nextID,
		Name:      name,
		Category:  category,
		Quantity:  quantity,
		UnitPrice: unitPrice,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return s.nextID, nil
}

// UpdateItem implements [Store.UpdateItem].
func (s *MemStore) UpdateItem(ctx context.Context, id int64, patch ItemPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.items[id]
	if !ok {
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}

	if patch.Quantity != nil {
		it.Quantity = *patch.Quantity
	}
	if patch.UnitPrice != nil {
		it.UnitPrice = *patch.UnitPrice
	}
	if patch.Category != nil {
		it.Category = *patch.Category
	}
	it.UpdatedAt = s.clock()

	s.items[id] = it
	return nil
}

// DeleteItem implements [Store.DeleteItem]. Deleting a non-existent item is
// not an error.
func (s *MemStore) DeleteItem(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.items, id)
	return nil
}

// ItemByID implements [Store.ItemByID].
func (s *MemStore) ItemByID(ctx context.Context, id int64) (*Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	it, ok := s.items[id]
	if !ok {
		return nil, nil
	}
	return &it, nil
}

// ItemByName implements [Store.ItemByName].
func (s *MemStore) ItemByName(ctx context.Context, name string) (*Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, it := range s.items {
		if strings.EqualFold(it.Name, name) {
			found := it
			return &found, nil
		}
	}
	return nil, nil
}

// Search implements [Store.Search].
func (s *MemStore) Search(ctx context.Context, query string) ([]Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(query)
	var items []Item
	for _, it := range s.items {
		if strings.Contains(strings.ToLower(it.Name), q) ||
			strings.Contains(strings.ToLower(it.Category), q) {
			items = append(items, it)
		}
	}
	sortByName(items)
	return items, nil
}

// ListItems implements [Store.ListItems].
func (s *MemStore) ListItems(ctx context.Context) ([]Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]Item, 0, len(s.items))
	for _, it := range s.items {
		items = append(items, it)
	}
	sortByName(items)
	return items, nil
}

// LogTransaction implements [Store.LogTransaction].
func (s *MemStore) LogTransaction(ctx context.Context, itemID int64, action Action, amount int) error {
	if !action.IsValid() {
		return fmt.Errorf("invstore: log transaction: invalid action %q", action)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextTx++
	s.txs = append(s.txs, Transaction{
		ID:        s.nextTx,
		ItemID:    itemID,
		Action:    action,
		Amount:    amount,
		Timestamp: s.clock(),
	})
	return nil
}

// RecentTransactions implements [Store.RecentTransactions]. Item names are
// resolved against the live catalog, so entries for deleted items come back
// with an empty name.
func (s *MemStore) RecentTransactions(ctx context.Context, days int) ([]Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := s.clock().AddDate(0, 0, -days)

	var txs []Transaction
	for i := len(s.txs) - 1; i >= 0; i-- {
		tx := s.txs[i]
		if tx.Timestamp.Before(cutoff) {
			continue
		}
		if it, ok := s.items[tx.ItemID]; ok {
			tx.ItemName = it.Name
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

// Close implements [Store.Close]. It is a no-op.
func (s *MemStore) Close() error { return nil }

// clock returns the current time, tolerating a zero-value MemStore.
func (s *MemStore) clock() time.Time {
	if s.now == nil {
		return time.Now().UTC()
	}
	return s.now()
}

// sortByName orders items by name, case-insensitively.
func sortByName(items []Item) {
	slices.SortFunc(items, func(a, b Item) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
}
