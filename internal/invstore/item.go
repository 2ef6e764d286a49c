package invstore

import "time"

// Action classifies a stock movement recorded in the transaction log.
type Action string

const (
	// ActionAdd records stock entering the inventory.
	ActionAdd Action = "add"
	// ActionRemove records stock leaving the inventory.
	ActionRemove Action = "remove"
	// ActionDelete records an item being dropped from the catalog entirely.
	ActionDelete Action = "delete"
)

// IsValid reports whether a is one of the known actions.
func (a Action) IsValid() bool {
	switch a {
	case ActionAdd, ActionRemove, ActionDelete:
		return true
	}
	return false
}

// Item is a single tracked inventory record. Names are unique across the
// catalog, compared case-insensitively.
type Item struct {
	ID        int64
	Name      string
	Category  string
	Quantity  int
	UnitPrice float64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Transaction is one entry in the stock movement log. ItemName is joined in
// from the items table at read time and is empty when the item row has since
// been deleted.
type Transaction struct {
	ID        int64
	ItemID    int64
	ItemName  string
	Action    Action
	Amount    int
	Timestamp time.Time
}

// ItemPatch describes a partial update to an item. Nil fields are left
// unchanged.
type ItemPatch struct {
	Quantity  *int
	UnitPrice *float64
	Category  *string
}
