package cascade_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	fakebackend "github.com/jrsteele09/motzkin-store/backend/backendfake"
	"github.com/jrsteele09/motzkin-store/cart"
	"github.com/jrsteele09/motzkin-store/cascade"
	"github.com/jrsteele09/motzkin-store/catalog"
	apperrors "github.com/jrsteele09/motzkin-store/internal/errors"
	"github.com/jrsteele09/motzkin-store/storage"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var (
	begin      = catalog.SelectItem{ID: 1, Name: "Begin"}
	benGurion  = catalog.SelectItem{ID: 2, Name: "Ben-Gurion"}
	grade3     = catalog.SelectItem{ID: 3, Name: "Grade 3"}
	grade4     = catalog.SelectItem{ID: 4, Name: "Grade 4"}
	grade5     = catalog.SelectItem{ID: 5, Name: "Grade 5"}
	pensBooks  = []catalog.EquipmentLine{{ID: 1, Name: "Pen", Quantity: 5}, {ID: 2, Name: "Book", Quantity: 2}}
	calculator = []catalog.EquipmentLine{{ID: 7, Name: "Calculator", Quantity: 1}}
)

type gate struct{ on atomic.Bool }

func (g *gate) IsAuthenticated() bool { return g.on.Load() }

type fixture struct {
	be   *fakebackend.FakeBackend
	gate *gate
	cart *cart.Store
	ctrl *cascade.Controller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	be := fakebackend.NewFakeBackend()
	be.SetSchools([]catalog.SelectItem{begin, benGurion})
	be.SetGrades(begin.ID, []catalog.SelectItem{grade3, grade4})
	be.SetGrades(benGurion.ID, []catalog.SelectItem{grade5})
	be.SetEquipment(begin.ID, grade3.ID, pensBooks)
	be.SetEquipment(benGurion.ID, grade5.ID, calculator)

	g := &gate{}
	g.on.Store(true)

	crt, err := cart.NewStore(context.Background(), storage.NewMemoryStore(), cart.WithGate(g), cart.WithLogger(zerolog.Nop()))
	require.NoError(t, err)

	ctrl, err := cascade.NewController(be, g, crt, cascade.WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	return &fixture{be: be, gate: g, cart: crt, ctrl: ctrl}
}

// async runs fn in a goroutine and returns a channel closed when it returns.
func async(t *testing.T, fn func() error) <-chan struct{} {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := fn(); err != nil {
			t.Error(err)
		}
	}()
	return done
}

func wait(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out")
	}
}

func TestNewController_RequiresDependencies(t *testing.T) {
	f := newFixture(t)
	_, err := cascade.NewController(nil, f.gate, f.cart)
	require.Error(t, err)
	_, err = cascade.NewController(f.be, nil, f.cart)
	require.Error(t, err)
	_, err = cascade.NewController(f.be, f.gate, nil)
	require.Error(t, err)
}

func TestMount(t *testing.T) {
	ctx := context.Background()

	t.Run("loads schools", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.ctrl.Mount(ctx))
		v := f.ctrl.View()
		require.Equal(t, []catalog.SelectItem{begin, benGurion}, v.Schools)
		require.False(t, v.Loading)
		require.Empty(t, v.Grades)
		require.Nil(t, v.Equipment)
	})

	t.Run("requires session", func(t *testing.T) {
		f := newFixture(t)
		f.gate.on.Store(false)
		require.ErrorIs(t, f.ctrl.Mount(ctx), apperrors.ErrNotAuthenticated)
		require.Empty(t, f.be.Calls())
	})

	t.Run("fetch failure leaves list empty", func(t *testing.T) {
		f := newFixture(t)
		f.be.SetOffline(true)
		require.NoError(t, f.ctrl.Mount(ctx))
		v := f.ctrl.View()
		require.Empty(t, v.Schools)
		require.False(t, v.Loading)
	})
}

func TestSelectGrade_SeedsWorkingSet(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.ctrl.Mount(ctx))
	require.NoError(t, f.ctrl.SelectSchool(ctx, begin))

	v := f.ctrl.View()
	require.Equal(t, []catalog.SelectItem{grade3, grade4}, v.Grades)
	require.Equal(t, &begin, v.SelectedSchool)

	require.NoError(t, f.ctrl.SelectGrade(ctx, grade3))
	v = f.ctrl.View()
	require.NotNil(t, v.Equipment)
	require.Equal(t, []int{1, 2}, v.Equipment.SelectedIDs())
	require.Equal(t, map[int]int{1: 5, 2: 2}, v.Equipment.Quantities())
	require.True(t, v.Ready())
}

func TestSelectGrade_RequiresSchool(t *testing.T) {
	f := newFixture(t)
	err := f.ctrl.SelectGrade(context.Background(), grade3)
	require.ErrorIs(t, err, apperrors.ErrIncompleteSelection)
}

func TestSelectSchool_ResetsLowerLevelsBeforeFetch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.ctrl.SelectSchool(ctx, begin))
	require.NoError(t, f.ctrl.SelectGrade(ctx, grade3))

	hold := f.be.Hold(fakebackend.GradesKey(benGurion.ID))
	done := async(t, func() error { return f.ctrl.SelectSchool(ctx, benGurion) })
	wait(t, hold.Entered())

	v := f.ctrl.View()
	require.Equal(t, &benGurion, v.SelectedSchool)
	require.Empty(t, v.Grades)
	require.Nil(t, v.SelectedGrade)
	require.Nil(t, v.Equipment)
	require.True(t, v.Loading)
	require.False(t, v.Ready())

	hold.Release()
	wait(t, done)
	v = f.ctrl.View()
	require.Equal(t, []catalog.SelectItem{grade5}, v.Grades)
	require.False(t, v.Loading)
}

func TestSelectSchool_StaleGradesAreDiscarded(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	holdA := f.be.Hold(fakebackend.GradesKey(begin.ID))
	doneA := async(t, func() error { return f.ctrl.SelectSchool(ctx, begin) })
	wait(t, holdA.Entered())

	require.NoError(t, f.ctrl.SelectSchool(ctx, benGurion))

	holdA.Release()
	wait(t, doneA)

	v := f.ctrl.View()
	require.Equal(t, &benGurion, v.SelectedSchool)
	require.Equal(t, []catalog.SelectItem{grade5}, v.Grades)
	require.False(t, v.Loading)
}

func TestSelectSchool_StaleResponseWhileNewerStillPending(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	holdA := f.be.Hold(fakebackend.GradesKey(begin.ID))
	doneA := async(t, func() error { return f.ctrl.SelectSchool(ctx, begin) })
	wait(t, holdA.Entered())

	holdB := f.be.Hold(fakebackend.GradesKey(benGurion.ID))
	doneB := async(t, func() error { return f.ctrl.SelectSchool(ctx, benGurion) })
	wait(t, holdB.Entered())

	holdA.Release()
	wait(t, doneA)
	v := f.ctrl.View()
	require.Empty(t, v.Grades)
	require.True(t, v.Loading)

	holdB.Release()
	wait(t, doneB)
	v = f.ctrl.View()
	require.Equal(t, []catalog.SelectItem{grade5}, v.Grades)
	require.False(t, v.Loading)
}

func TestSelectGrade_KeepsPendingGradesOfSameSchool(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	hold := f.be.Hold(fakebackend.GradesKey(begin.ID))
	done := async(t, func() error { return f.ctrl.SelectSchool(ctx, begin) })
	wait(t, hold.Entered())

	require.NoError(t, f.ctrl.SelectGrade(ctx, grade3))
	v := f.ctrl.View()
	require.NotNil(t, v.Equipment)
	require.True(t, v.Loading)

	hold.Release()
	wait(t, done)

	v = f.ctrl.View()
	require.Equal(t, []catalog.SelectItem{grade3, grade4}, v.Grades)
	require.Equal(t, &grade3, v.SelectedGrade)
	require.Equal(t, pensBooks, v.Equipment.Lines())
	require.False(t, v.Loading)
}

func TestSelectGrade_PendingEquipmentBlocksCommit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.ctrl.SelectSchool(ctx, begin))
	require.NoError(t, f.ctrl.SelectGrade(ctx, grade3))

	hold := f.be.Hold(fakebackend.EquipmentKey(begin.ID, grade4.ID))
	done := async(t, func() error { return f.ctrl.SelectGrade(ctx, grade4) })
	wait(t, hold.Entered())

	_, err := f.ctrl.Commit(ctx)
	require.ErrorIs(t, err, apperrors.ErrIncompleteSelection)
	require.True(t, f.ctrl.View().Loading)

	hold.Release()
	wait(t, done)
	require.False(t, f.ctrl.View().Loading)
}

func TestSelectGrade_StaleEquipmentIsDiscarded(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.ctrl.SelectSchool(ctx, begin))

	hold := f.be.Hold(fakebackend.EquipmentKey(begin.ID, grade3.ID))
	done := async(t, func() error { return f.ctrl.SelectGrade(ctx, grade3) })
	wait(t, hold.Entered())

	require.NoError(t, f.ctrl.SelectSchool(ctx, benGurion))
	require.NoError(t, f.ctrl.SelectGrade(ctx, grade5))

	hold.Release()
	wait(t, done)

	v := f.ctrl.View()
	require.Equal(t, &grade5, v.SelectedGrade)
	require.Equal(t, calculator, v.Equipment.Lines())
}

func TestResponsesAfterSessionEndAreDiscarded(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.ctrl.SelectSchool(ctx, begin))

	hold := f.be.Hold(fakebackend.EquipmentKey(begin.ID, grade3.ID))
	done := async(t, func() error { return f.ctrl.SelectGrade(ctx, grade3) })
	wait(t, hold.Entered())

	f.gate.on.Store(false)
	hold.Release()
	wait(t, done)

	v := f.ctrl.View()
	require.Nil(t, v.Equipment)
	require.False(t, v.Loading)
}

func TestFetchFailureClearsLoading(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.ctrl.SelectSchool(ctx, begin))

	f.be.Fail(fakebackend.EquipmentKey(begin.ID, grade3.ID), fakebackend.ErrUnreachable)
	require.NoError(t, f.ctrl.SelectGrade(ctx, grade3))

	v := f.ctrl.View()
	require.Nil(t, v.Equipment)
	require.False(t, v.Loading)
	require.Equal(t, &grade3, v.SelectedGrade)

	_, err := f.ctrl.Commit(ctx)
	require.ErrorIs(t, err, apperrors.ErrIncompleteSelection)
}

func TestToggleAndSetQuantity(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.ErrorIs(t, f.ctrl.Toggle(1), apperrors.ErrNoEquipment)
	require.ErrorIs(t, f.ctrl.SetQuantity(1, 3), apperrors.ErrNoEquipment)

	require.NoError(t, f.ctrl.SelectSchool(ctx, begin))
	require.NoError(t, f.ctrl.SelectGrade(ctx, grade3))

	require.NoError(t, f.ctrl.Toggle(2))
	require.NoError(t, f.ctrl.SetQuantity(1, 9))
	require.ErrorIs(t, f.ctrl.Toggle(42), apperrors.ErrUnknownItem)
	require.ErrorIs(t, f.ctrl.SetQuantity(1, -1), apperrors.ErrNegativeQuantity)

	v := f.ctrl.View()
	require.Equal(t, []int{1}, v.Equipment.SelectedIDs())
	q, ok := v.Equipment.Quantity(1)
	require.True(t, ok)
	require.Equal(t, 9, q)
}

func TestViewEquipmentIsACopy(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.ctrl.SelectSchool(ctx, begin))
	require.NoError(t, f.ctrl.SelectGrade(ctx, grade3))

	v := f.ctrl.View()
	require.NoError(t, f.ctrl.Toggle(1))
	require.NoError(t, f.ctrl.SetQuantity(2, 8))

	require.True(t, v.Equipment.IsSelected(1))
	q, _ := v.Equipment.Quantity(2)
	require.Equal(t, 2, q)
	require.False(t, f.ctrl.View().Equipment.IsSelected(1))
}

func TestCommit(t *testing.T) {
	ctx := context.Background()

	t.Run("adds selected items", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.ctrl.SelectSchool(ctx, begin))
		require.NoError(t, f.ctrl.SelectGrade(ctx, grade3))
		require.NoError(t, f.ctrl.Toggle(2))

		e, err := f.ctrl.Commit(ctx)
		require.NoError(t, err)
		require.Equal(t, begin, e.School)
		require.Equal(t, grade3, e.Grade)
		require.Equal(t, []catalog.EquipmentLine{{ID: 1, Name: "Pen", Quantity: 5}}, e.Items)

		entries := f.cart.Entries()
		require.Len(t, entries, 1)
		require.Equal(t, e.ID, entries[0].ID)
	})

	t.Run("nothing selected", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.ctrl.SelectSchool(ctx, begin))
		require.NoError(t, f.ctrl.SelectGrade(ctx, grade3))
		require.NoError(t, f.ctrl.Toggle(1))
		require.NoError(t, f.ctrl.Toggle(2))

		_, err := f.ctrl.Commit(ctx)
		require.ErrorIs(t, err, apperrors.ErrNothingSelected)
		require.Zero(t, f.cart.Len())
	})

	t.Run("incomplete selection", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.ctrl.SelectSchool(ctx, begin))

		_, err := f.ctrl.Commit(ctx)
		require.ErrorIs(t, err, apperrors.ErrIncompleteSelection)
	})

	t.Run("requires session", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.ctrl.SelectSchool(ctx, begin))
		require.NoError(t, f.ctrl.SelectGrade(ctx, grade3))
		f.gate.on.Store(false)

		_, err := f.ctrl.Commit(ctx)
		require.ErrorIs(t, err, apperrors.ErrNotAuthenticated)
		require.Zero(t, f.cart.Len())
	})

	t.Run("working set survives commit", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.ctrl.SelectSchool(ctx, begin))
		require.NoError(t, f.ctrl.SelectGrade(ctx, grade3))

		_, err := f.ctrl.Commit(ctx)
		require.NoError(t, err)
		_, err = f.ctrl.Commit(ctx)
		require.NoError(t, err)
		require.Equal(t, 2, f.cart.Len())
	})
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.ctrl.Mount(ctx))
	require.NoError(t, f.ctrl.SelectSchool(ctx, begin))

	hold := f.be.Hold(fakebackend.EquipmentKey(begin.ID, grade3.ID))
	done := async(t, func() error { return f.ctrl.SelectGrade(ctx, grade3) })
	wait(t, hold.Entered())

	f.ctrl.Reset()
	hold.Release()
	wait(t, done)

	v := f.ctrl.View()
	require.Empty(t, v.Schools)
	require.Nil(t, v.SelectedSchool)
	require.Empty(t, v.Grades)
	require.Nil(t, v.SelectedGrade)
	require.Nil(t, v.Equipment)
	require.False(t, v.Loading)
}
