// Package cart accumulates committed equipment selections as cart entries
// and keeps them mirrored to a session-scoped record.
package cart

import (
	"fmt"
	"time"

	"github.com/jrsteele09/motzkin-store/catalog"
	"github.com/segmentio/ksuid"
)

// Entry is one frozen selection: a school, a grade and the chosen items.
type Entry struct {
	ID        string                  `json:"id"`
	Timestamp int64                   `json:"timestamp"` // ms since epoch
	School    catalog.SelectItem      `json:"school"`
	Grade     catalog.SelectItem      `json:"grade"`
	Items     []catalog.EquipmentLine `json:"items"`
}

// Draft is an entry before the store assigns its id and timestamp.
type Draft struct {
	School catalog.SelectItem
	Grade  catalog.SelectItem
	Items  []catalog.EquipmentLine
}

// TotalQuantity sums the item quantities of the entry.
func (e Entry) TotalQuantity() int {
	total := 0
	for _, it := range e.Items {
		total += it.Quantity
	}
	return total
}

func (e Entry) clone() Entry {
	e.Items = catalog.CloneLines(e.Items)
	return e
}

// NewEntryID builds an id from the millisecond timestamp and a ksuid suffix.
func NewEntryID(now time.Time) string {
	return fmt.Sprintf("cart_%d_%s", now.UnixMilli(), ksuid.New().String())
}
