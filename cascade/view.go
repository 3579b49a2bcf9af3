package cascade

import (
	"github.com/jrsteele09/motzkin-store/catalog"
	"github.com/jrsteele09/motzkin-store/equipment"
)

// View is a point-in-time copy of the cascade. Equipment is nil while no
// equipment list is loaded; it is read-only, and selection changes go through
// Controller.Toggle and Controller.SetQuantity.
type View struct {
	Schools        []catalog.SelectItem
	SelectedSchool *catalog.SelectItem
	Grades         []catalog.SelectItem
	SelectedGrade  *catalog.SelectItem
	Equipment      *equipment.Snapshot
	Loading        bool
}

// Ready reports whether a commit would have something to package.
func (v View) Ready() bool {
	return v.SelectedSchool != nil && v.SelectedGrade != nil && v.Equipment != nil && !v.Loading
}
