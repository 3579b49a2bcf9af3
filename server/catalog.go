package server

import (
	"fmt"
	"sync"

	"github.com/jrsteele09/motzkin-store/catalog"
)

// Catalog is the school, grade and equipment data served by the catalog
// endpoints.
type Catalog struct {
	mu        sync.RWMutex
	schools   []catalog.SelectItem
	grades    map[int][]catalog.SelectItem
	equipment map[string][]catalog.EquipmentLine
}

func NewCatalog() *Catalog {
	return &Catalog{
		schools:   []catalog.SelectItem{},
		grades:    make(map[int][]catalog.SelectItem),
		equipment: make(map[string][]catalog.EquipmentLine),
	}
}

func equipmentKey(schoolID, gradeID int) string {
	return fmt.Sprintf("%d:%d", schoolID, gradeID)
}

// AddSchool registers a school with its grades.
func (c *Catalog) AddSchool(school catalog.SelectItem, grades ...catalog.SelectItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.schools = append(c.schools, school)
	c.grades[school.ID] = catalog.CloneItems(grades)
}

// SetEquipment sets the equipment list of one grade of one school.
func (c *Catalog) SetEquipment(schoolID, gradeID int, lines ...catalog.EquipmentLine) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.equipment[equipmentKey(schoolID, gradeID)] = catalog.CloneLines(lines)
}

func (c *Catalog) Schools() []catalog.SelectItem {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return catalog.CloneItems(c.schools)
}

// Grades returns the grades of a school, and false for an unknown school.
func (c *Catalog) Grades(schoolID int) ([]catalog.SelectItem, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	g, ok := c.grades[schoolID]
	return catalog.CloneItems(g), ok
}

// Equipment returns the list for a school and grade. A known grade without
// a list yields an empty list.
func (c *Catalog) Equipment(schoolID, gradeID int) ([]catalog.EquipmentLine, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	grades, ok := c.grades[schoolID]
	if !ok {
		return nil, false
	}
	if _, ok := catalog.FindItem(grades, gradeID); !ok {
		return nil, false
	}
	return catalog.CloneLines(c.equipment[equipmentKey(schoolID, gradeID)]), true
}

// SeedCatalog fills c with the demo schools.
func SeedCatalog(c *Catalog) {
	c.AddSchool(catalog.SelectItem{ID: 1, Name: "Begin"},
		catalog.SelectItem{ID: 1, Name: "Grade 1"},
		catalog.SelectItem{ID: 2, Name: "Grade 2"},
		catalog.SelectItem{ID: 3, Name: "Grade 3"},
	)
	c.AddSchool(catalog.SelectItem{ID: 2, Name: "Ben-Gurion"},
		catalog.SelectItem{ID: 4, Name: "Grade 4"},
		catalog.SelectItem{ID: 5, Name: "Grade 5"},
	)

	c.SetEquipment(1, 1,
		catalog.EquipmentLine{ID: 1, Name: "Pencil", Quantity: 10},
		catalog.EquipmentLine{ID: 2, Name: "Eraser", Quantity: 2},
		catalog.EquipmentLine{ID: 3, Name: "Crayons", Quantity: 1},
	)
	c.SetEquipment(1, 2,
		catalog.EquipmentLine{ID: 1, Name: "Pencil", Quantity: 10},
		catalog.EquipmentLine{ID: 4, Name: "Notebook", Quantity: 5},
	)
	c.SetEquipment(1, 3,
		catalog.EquipmentLine{ID: 5, Name: "Pen", Quantity: 2},
		catalog.EquipmentLine{ID: 6, Name: "Book", Quantity: 1},
		catalog.EquipmentLine{ID: 7, Name: "Ruler", Quantity: 1},
	)
	c.SetEquipment(2, 4,
		catalog.EquipmentLine{ID: 5, Name: "Pen", Quantity: 3},
		catalog.EquipmentLine{ID: 4, Name: "Notebook", Quantity: 6},
	)
	c.SetEquipment(2, 5,
		catalog.EquipmentLine{ID: 8, Name: "Calculator", Quantity: 1},
		catalog.EquipmentLine{ID: 9, Name: "Geometry set", Quantity: 1},
	)
}
