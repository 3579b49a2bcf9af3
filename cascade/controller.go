// Package cascade drives the dependent school, grade and equipment selection.
//
// Every fetch is tagged with the generation that was current when it was
// dispatched. A response is applied only if that generation is still current
// when it arrives; otherwise it is dropped. Selecting a level clears every
// level below it before the fetch is issued.
package cascade

import (
	"context"
	"sync"

	"github.com/jrsteele09/motzkin-store/cart"
	"github.com/jrsteele09/motzkin-store/catalog"
	"github.com/jrsteele09/motzkin-store/equipment"
	apperrors "github.com/jrsteele09/motzkin-store/internal/errors"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Catalog fetches the lists for each cascade level.
type Catalog interface {
	Schools(ctx context.Context) ([]catalog.SelectItem, error)
	Grades(ctx context.Context, schoolID int) ([]catalog.SelectItem, error)
	Equipment(ctx context.Context, schoolID, gradeID int) ([]catalog.EquipmentLine, error)
}

// Gate reports whether an authenticated session exists.
type Gate interface {
	IsAuthenticated() bool
}

// Cart receives committed selections.
type Cart interface {
	Add(ctx context.Context, d cart.Draft) (cart.Entry, error)
}

type level struct {
	items    []catalog.SelectItem
	selected *catalog.SelectItem
}

// Controller holds the transient cascade state. None of it is persisted.
type Controller struct {
	catalog Catalog
	gate    Gate
	cart    Cart
	log     zerolog.Logger

	mu         sync.Mutex
	schools    level
	grades     level
	workingSet *equipment.WorkingSet // nil until an equipment fetch succeeds

	// Generation per level. A school selection bumps gradesGen and
	// equipmentGen; a grade selection bumps equipmentGen only.
	schoolsGen       uint64
	gradesGen        uint64
	equipmentGen     uint64
	schoolsPending   bool
	gradesPending    bool
	equipmentPending bool
}

// ControllerOption defines a function type to modify the Controller instance.
type ControllerOption func(*Controller)

// WithLogger sets the logger used for fetch failures and stale responses.
func WithLogger(l zerolog.Logger) ControllerOption {
	return func(c *Controller) {
		c.log = l
	}
}

// NewController creates a controller with empty levels. Nothing is fetched
// until Mount.
func NewController(cat Catalog, gate Gate, crt Cart, options ...ControllerOption) (*Controller, error) {
	if cat == nil {
		return nil, errors.New("[NewController] catalog is required")
	}
	if gate == nil {
		return nil, errors.New("[NewController] session gate is required")
	}
	if crt == nil {
		return nil, errors.New("[NewController] cart is required")
	}
	c := &Controller{
		catalog: cat,
		gate:    gate,
		cart:    crt,
		log:     log.Logger,
		schools: level{items: []catalog.SelectItem{}},
		grades:  level{items: []catalog.SelectItem{}},
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// Mount fetches the school list. Fetch failures are logged and leave the
// list empty.
func (c *Controller) Mount(ctx context.Context) error {
	if !c.gate.IsAuthenticated() {
		return errors.Wrap(apperrors.ErrNotAuthenticated, "mount")
	}

	c.mu.Lock()
	c.schoolsGen++
	gen := c.schoolsGen
	c.schoolsPending = true
	c.mu.Unlock()

	items, err := c.catalog.Schools(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.schoolsGen {
		c.log.Debug().Uint64("generation", gen).Msg("discarding stale school list")
		return nil
	}
	c.schoolsPending = false
	if !c.gate.IsAuthenticated() {
		c.log.Debug().Msg("session ended, discarding school list")
		return nil
	}
	if err != nil {
		c.log.Error().Err(err).Msg("fetch schools")
		c.schools.items = []catalog.SelectItem{}
		return nil
	}
	c.schools.items = catalog.CloneItems(items)
	return nil
}

// SelectSchool selects a school, clears the grade and equipment levels and
// fetches the grades for it.
func (c *Controller) SelectSchool(ctx context.Context, school catalog.SelectItem) error {
	if !c.gate.IsAuthenticated() {
		return errors.Wrap(apperrors.ErrNotAuthenticated, "select school")
	}

	c.mu.Lock()
	c.schools.selected = &school
	c.grades = level{items: []catalog.SelectItem{}}
	c.workingSet = nil
	c.gradesGen++
	c.equipmentGen++
	c.gradesPending = true
	c.equipmentPending = false
	gen := c.gradesGen
	c.mu.Unlock()

	c.log.Debug().Int("school_id", school.ID).Str("school", school.Name).Msg("school selected")
	items, err := c.catalog.Grades(ctx, school.ID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gradesGen {
		c.log.Debug().Int("school_id", school.ID).Uint64("generation", gen).Msg("discarding stale grade list")
		return nil
	}
	c.gradesPending = false
	if !c.gate.IsAuthenticated() {
		c.log.Debug().Int("school_id", school.ID).Msg("session ended, discarding grade list")
		return nil
	}
	if err != nil {
		c.log.Error().Err(err).Int("school_id", school.ID).Msg("fetch grades")
		return nil
	}
	c.grades.items = catalog.CloneItems(items)
	return nil
}

// SelectGrade selects a grade under the current school, clears the equipment
// level and fetches the equipment list. A successful fetch seeds a new
// working set.
func (c *Controller) SelectGrade(ctx context.Context, grade catalog.SelectItem) error {
	if !c.gate.IsAuthenticated() {
		return errors.Wrap(apperrors.ErrNotAuthenticated, "select grade")
	}

	c.mu.Lock()
	if c.schools.selected == nil {
		c.mu.Unlock()
		return errors.Wrap(apperrors.ErrIncompleteSelection, "select a school before a grade")
	}
	school := *c.schools.selected
	c.grades.selected = &grade
	c.workingSet = nil
	c.equipmentGen++
	c.equipmentPending = true
	gen := c.equipmentGen
	c.mu.Unlock()

	c.log.Debug().Int("school_id", school.ID).Int("grade_id", grade.ID).Msg("grade selected")
	lines, err := c.catalog.Equipment(ctx, school.ID, grade.ID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.equipmentGen {
		c.log.Debug().Int("grade_id", grade.ID).Uint64("generation", gen).Msg("discarding stale equipment list")
		return nil
	}
	c.equipmentPending = false
	if !c.gate.IsAuthenticated() {
		c.log.Debug().Int("grade_id", grade.ID).Msg("session ended, discarding equipment list")
		return nil
	}
	if err != nil {
		c.log.Error().Err(err).Int("school_id", school.ID).Int("grade_id", grade.ID).Msg("fetch equipment")
		return nil
	}
	c.workingSet = equipment.NewWorkingSet(lines)
	return nil
}

// Toggle flips the selection of an item in the current equipment list.
func (c *Controller) Toggle(id int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.workingSet == nil {
		return apperrors.ErrNoEquipment
	}
	return c.workingSet.Toggle(id)
}

// SetQuantity sets the quantity of an item in the current equipment list.
func (c *Controller) SetQuantity(id, value int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.workingSet == nil {
		return apperrors.ErrNoEquipment
	}
	return c.workingSet.SetQuantity(id, value)
}

// Commit packages the current school, grade and selected equipment into a
// cart entry.
func (c *Controller) Commit(ctx context.Context) (cart.Entry, error) {
	if !c.gate.IsAuthenticated() {
		return cart.Entry{}, errors.Wrap(apperrors.ErrNotAuthenticated, "commit")
	}

	c.mu.Lock()
	if c.schools.selected == nil || c.grades.selected == nil || c.workingSet == nil || c.equipmentPending {
		c.mu.Unlock()
		return cart.Entry{}, apperrors.ErrIncompleteSelection
	}
	d := cart.Draft{
		School: *c.schools.selected,
		Grade:  *c.grades.selected,
		Items:  c.workingSet.Items(),
	}
	c.mu.Unlock()

	if len(d.Items) == 0 {
		return cart.Entry{}, apperrors.ErrNothingSelected
	}
	e, err := c.cart.Add(ctx, d)
	if err != nil {
		return cart.Entry{}, errors.Wrap(err, "add selection to cart")
	}
	return e, nil
}

// Reset drops every level and invalidates any fetch still in flight. It is
// used when the session ends.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.schoolsGen++
	c.gradesGen++
	c.equipmentGen++
	c.schoolsPending = false
	c.gradesPending = false
	c.equipmentPending = false
	c.schools = level{items: []catalog.SelectItem{}}
	c.grades = level{items: []catalog.SelectItem{}}
	c.workingSet = nil
}

// View returns a snapshot of the cascade.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{
		Schools:        catalog.CloneItems(c.schools.items),
		SelectedSchool: copyItem(c.schools.selected),
		Grades:         catalog.CloneItems(c.grades.items),
		SelectedGrade:  copyItem(c.grades.selected),
		Loading:        c.schoolsPending || c.gradesPending || c.equipmentPending,
	}
	if c.workingSet != nil {
		v.Equipment = c.workingSet.Snapshot()
	}
	return v
}

func copyItem(it *catalog.SelectItem) *catalog.SelectItem {
	if it == nil {
		return nil
	}
	cp := *it
	return &cp
}
