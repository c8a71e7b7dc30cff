package projection

import (
	"sync"

	"github.com/spotwatch/spotwatch/internal/model"
)

// Table is an in-memory latest-wins projection. Safe for concurrent use;
// updates are compare-and-set per key, so a stale write never overwrites a
// newer row.
type Table struct {
	mu   sync.Mutex
	rows map[model.CurrentPriceKey]model.CurrentPrice
}

// NewTable creates an empty projection table.
func NewTable() *Table {
	return &Table{
		rows: make(map[model.CurrentPriceKey]model.CurrentPrice),
	}
}

// Apply folds one observation into the table. The row for the observation's
// key is inserted if absent, replaced if the observation is strictly newer,
// and left untouched otherwise. Returns true when the row changed.
//
// Strict comparison makes re-applying the same observation a no-op, so
// duplicate and out-of-order replay are harmless.
func (t *Table) Apply(obs model.PriceObservation) bool {
	key := obs.Key()

	t.mu.Lock()
	defer t.mu.Unlock()

	existing, ok := t.rows[key]
	if ok && !obs.Timestamp.After(existing.Timestamp) {
		return false
	}

	t.rows[key] = model.FromObservation(obs)
	return true
}

// Get returns the current row for key, if any.
func (t *Table) Get(key model.CurrentPriceKey) (model.CurrentPrice, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	row, ok := t.rows[key]
	return row, ok
}

// Len returns the number of keys tracked.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.rows)
}

// Rows returns a copy of all current rows in unspecified order.
func (t *Table) Rows() []model.CurrentPrice {
	t.mu.Lock()
	defer t.mu.Unlock()

	rows := make([]model.CurrentPrice, 0, len(t.rows))
	for _, row := range t.rows {
		rows = append(rows, row)
	}
	return rows
}
