// Package catalog holds the value types the backend returns for the
// school, grade and equipment levels of a cascade.
package catalog

// SelectItem is one selectable node at a cascade level (a school or a grade).
type SelectItem struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// EquipmentLine is one catalog row for a school and grade. The same shape is
// used for the items of a cart entry.
type EquipmentLine struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// FindItem returns the item with the given id.
func FindItem(items []SelectItem, id int) (SelectItem, bool) {
	for _, it := range items {
		if it.ID == id {
			return it, true
		}
	}
	return SelectItem{}, false
}

// CloneItems returns a copy that shares no backing array with items.
func CloneItems(items []SelectItem) []SelectItem {
	if items == nil {
		return []SelectItem{}
	}
	out := make([]SelectItem, len(items))
	copy(out, items)
	return out
}

// CloneLines returns a copy that shares no backing array with lines.
func CloneLines(lines []EquipmentLine) []EquipmentLine {
	if lines == nil {
		return []EquipmentLine{}
	}
	out := make([]EquipmentLine, len(lines))
	copy(out, lines)
	return out
}
