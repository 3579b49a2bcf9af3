package equipment

import (
	"github.com/jrsteele09/motzkin-store/catalog"
	apperrors "github.com/jrsteele09/motzkin-store/internal/errors"
	"github.com/pkg/errors"
)

// WorkingSet is the editable selection and quantity state for one fetched
// equipment list. It is never merged with a previous list: a new fetch gets a
// new WorkingSet.
type WorkingSet struct {
	lines    []catalog.EquipmentLine // catalog order, as fetched
	index    map[int]int             // id -> position in lines
	selected map[int]bool
	quantity map[int]int
}

// NewWorkingSet seeds a working set from a fetched equipment list. Every line
// starts selected with the backend-provided quantity. When an id repeats, the
// first line wins.
func NewWorkingSet(lines []catalog.EquipmentLine) *WorkingSet {
	ws := &WorkingSet{
		lines:    make([]catalog.EquipmentLine, 0, len(lines)),
		index:    make(map[int]int, len(lines)),
		selected: make(map[int]bool, len(lines)),
		quantity: make(map[int]int, len(lines)),
	}
	for _, l := range lines {
		if _, dup := ws.index[l.ID]; dup {
			continue
		}
		q := l.Quantity
		if q < 0 {
			q = 0
		}
		ws.index[l.ID] = len(ws.lines)
		ws.lines = append(ws.lines, catalog.EquipmentLine{ID: l.ID, Name: l.Name, Quantity: q})
		ws.selected[l.ID] = true
		ws.quantity[l.ID] = q
	}
	return ws
}

// Toggle flips whether id is selected. Quantities are untouched.
func (ws *WorkingSet) Toggle(id int) error {
	if _, ok := ws.index[id]; !ok {
		return errors.Wrapf(apperrors.ErrUnknownItem, "toggle %d", id)
	}
	ws.selected[id] = !ws.selected[id]
	return nil
}

// SetQuantity overwrites the quantity tracked for id.
func (ws *WorkingSet) SetQuantity(id, value int) error {
	if _, ok := ws.index[id]; !ok {
		return errors.Wrapf(apperrors.ErrUnknownItem, "set quantity %d", id)
	}
	if value < 0 {
		return errors.Wrapf(apperrors.ErrNegativeQuantity, "set quantity %d to %d", id, value)
	}
	ws.quantity[id] = value
	return nil
}

// IsSelected reports whether id is currently selected.
func (ws *WorkingSet) IsSelected(id int) bool {
	return ws.selected[id]
}

// Quantity returns the tracked quantity for id, selected or not.
func (ws *WorkingSet) Quantity(id int) (int, bool) {
	q, ok := ws.quantity[id]
	return q, ok
}

// Lines returns the fetched catalog lines with their original quantities.
func (ws *WorkingSet) Lines() []catalog.EquipmentLine {
	return catalog.CloneLines(ws.lines)
}

// SelectedIDs returns the selected ids in catalog order.
func (ws *WorkingSet) SelectedIDs() []int {
	out := make([]int, 0, len(ws.lines))
	for _, l := range ws.lines {
		if ws.selected[l.ID] {
			out = append(out, l.ID)
		}
	}
	return out
}

// Quantities returns a copy of the quantity map.
func (ws *WorkingSet) Quantities() map[int]int {
	out := make(map[int]int, len(ws.quantity))
	for id, q := range ws.quantity {
		out[id] = q
	}
	return out
}

// Items is the commit transform: selected lines only, in catalog order, each
// carrying its current quantity.
func (ws *WorkingSet) Items() []catalog.EquipmentLine {
	items := make([]catalog.EquipmentLine, 0, len(ws.lines))
	for _, l := range ws.lines {
		if !ws.selected[l.ID] {
			continue
		}
		items = append(items, catalog.EquipmentLine{ID: l.ID, Name: l.Name, Quantity: ws.quantity[l.ID]})
	}
	return items
}

// Snapshot returns a read-only copy of the current state.
func (ws *WorkingSet) Snapshot() *Snapshot {
	return &Snapshot{ws: ws.clone()}
}

func (ws *WorkingSet) clone() *WorkingSet {
	c := &WorkingSet{
		lines:    catalog.CloneLines(ws.lines),
		index:    make(map[int]int, len(ws.index)),
		selected: make(map[int]bool, len(ws.selected)),
		quantity: ws.Quantities(),
	}
	for id, i := range ws.index {
		c.index[id] = i
	}
	for id, s := range ws.selected {
		c.selected[id] = s
	}
	return c
}

// Snapshot is a frozen copy of a WorkingSet. It has no mutators; edits go
// through whoever owns the WorkingSet.
type Snapshot struct {
	ws *WorkingSet
}

func (s *Snapshot) IsSelected(id int) bool { return s.ws.IsSelected(id) }
func (s *Snapshot) Quantity(id int) (int, bool) { return s.ws.Quantity(id) }
func (s *Snapshot) Lines() []catalog.EquipmentLine { return s.ws.Lines() }
func (s *Snapshot) SelectedIDs() []int { return s.ws.SelectedIDs() }
func (s *Snapshot) Quantities() map[int]int { return s.ws.Quantities() }
func (s *Snapshot) Items() []catalog.EquipmentLine { return s.ws.Items() }
