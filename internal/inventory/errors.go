package inventory

import "fmt"

// NotFoundError reports that no catalog item matched the requested name,
// even after fuzzy resolution. Name is the name as the user said it, not a
// near-miss from the catalog.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("Item '%s' not found", e.Name)
}

// InsufficientStockError reports that a stock removal would drive the
// quantity below zero. The catalog is left untouched.
type InsufficientStockError struct {
	Name      string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Insufficient stock for '%s'. Available: %d, Requested: %d",
		e.Name, e.Available, e.Requested)
}

// DuplicateError reports that an item insert collided with an existing name.
// Only reachable when a concurrent writer adds the same item between
// resolution and insert.
type DuplicateError struct {
	Name string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("Item '%s' already exists", e.Name)
}

// ValidationError reports invalid user-supplied input. Msg is phrased for
// the user and safe to speak back verbatim.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// StoreError wraps a record-store failure together with the operation that
// hit it.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("failed to %s: %v", e.Op, e.Err) }

func (e *StoreError) Unwrap() error { return e.Err }
