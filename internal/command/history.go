package command

import "sync"

// History is a bounded, concurrency-safe record of recent successful
// parses. When full, the oldest entry is dropped.
type History struct {
	mu      sync.Mutex
	limit   int
	results []Result
}

// NewHistory builds a History holding at most limit entries. A limit of
// zero or less falls back to DefaultHistorySize.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistorySize
	}
	return &History{limit: limit}
}

// Add appends a result, evicting the oldest entries beyond the limit.
func (h *History) Add(r Result) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.results = append(h.results, r)
	if len(h.results) > h.limit {
		// Copy into a fresh slice so the backing array does not grow
		// without bound across evictions.
		trimmed := make([]Result, h.limit)
		copy(trimmed, h.results[len(h.results)-h.limit:])
		h.results = trimmed
	}
}

// Recent returns a copy of the retained results, oldest first.
func (h *History) Recent() []Result {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]Result, len(h.results))
	copy(out, h.results)
	return out
}

// Len reports how many results are retained.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.results)
}

// Clear drops all retained results.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.results = nil
}
