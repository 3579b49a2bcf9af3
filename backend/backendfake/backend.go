// Package fakebackend is an in-memory stand-in for the store backend. Calls
// can be held open to reproduce out-of-order responses.
package fakebackend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/jrsteele09/motzkin-store/auth"
	"github.com/jrsteele09/motzkin-store/backend"
	"github.com/jrsteele09/motzkin-store/cart"
	"github.com/jrsteele09/motzkin-store/cascade"
	"github.com/jrsteele09/motzkin-store/catalog"
)

var (
	_ auth.Backend    = (*FakeBackend)(nil)
	_ cascade.Catalog = (*FakeBackend)(nil)
	_ cart.Mirror     = (*FakeBackend)(nil)
)

// ErrUnreachable is returned by every call while the backend is offline.
var ErrUnreachable = errors.New("dial tcp 127.0.0.1:8080: connect: connection refused")

// Call keys used by Hold and Fail.
const (
	LoginKey      = "login"
	LogoutKey     = "logout"
	StatusKey     = "status"
	SchoolsKey    = "schools"
	CartAddKey    = "cart:add"
	CartRemoveKey = "cart:remove"
	CartClearKey  = "cart:clear"
)

func GradesKey(schoolID int) string {
	return fmt.Sprintf("grades:%d", schoolID)
}

func EquipmentKey(schoolID, gradeID int) string {
	return fmt.Sprintf("equipment:%d:%d", schoolID, gradeID)
}

type user struct {
	id       string
	password string
}

type FakeBackend struct {
	lock sync.Mutex

	offline bool
	users   map[string]user
	session *auth.Identity

	schools   []catalog.SelectItem
	grades    map[int][]catalog.SelectItem
	equipment map[string][]catalog.EquipmentLine

	holds    map[string]*Hold
	failures map[string]error
	calls    []string
	cart     []cart.Entry
}

func NewFakeBackend() *FakeBackend {
	return &FakeBackend{
		users:     make(map[string]user),
		grades:    make(map[int][]catalog.SelectItem),
		equipment: make(map[string][]catalog.EquipmentLine),
		holds:     make(map[string]*Hold),
		failures:  make(map[string]error),
	}
}

// AddUser registers credentials the fake accepts.
func (b *FakeBackend) AddUser(userID, username, password string) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.users[username] = user{id: userID, password: password}
}

// SetOffline makes every call fail as if the network were down.
func (b *FakeBackend) SetOffline(offline bool) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.offline = offline
}

// ExpireSession drops the server session, as a server-side timeout would.
func (b *FakeBackend) ExpireSession() {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.session = nil
}

func (b *FakeBackend) SetSchools(items []catalog.SelectItem) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.schools = items
}

func (b *FakeBackend) SetGrades(schoolID int, items []catalog.SelectItem) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.grades[schoolID] = items
}

func (b *FakeBackend) SetEquipment(schoolID, gradeID int, lines []catalog.EquipmentLine) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.equipment[EquipmentKey(schoolID, gradeID)] = lines
}

// Fail makes every call for key return err until Fail(key, nil).
func (b *FakeBackend) Fail(key string, err error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	if err == nil {
		delete(b.failures, key)
		return
	}
	b.failures[key] = err
}

// Hold makes the next call for key block until the hold is released.
func (b *FakeBackend) Hold(key string) *Hold {
	b.lock.Lock()
	defer b.lock.Unlock()
	h := &Hold{entered: make(chan struct{}), release: make(chan struct{})}
	b.holds[key] = h
	return h
}

// Calls lists the call keys received so far.
func (b *FakeBackend) Calls() []string {
	b.lock.Lock()
	defer b.lock.Unlock()
	return append([]string(nil), b.calls...)
}

// ServerCart returns the mirrored cart.
func (b *FakeBackend) ServerCart() []cart.Entry {
	b.lock.Lock()
	defer b.lock.Unlock()
	return append([]cart.Entry(nil), b.cart...)
}

func (b *FakeBackend) Login(ctx context.Context, username, password string) (auth.Identity, error) {
	if err := b.enter(ctx, LoginKey); err != nil {
		return auth.Identity{}, err
	}
	b.lock.Lock()
	defer b.lock.Unlock()

	u, ok := b.users[username]
	if !ok {
		return auth.Identity{}, &backend.APIError{Status: http.StatusUnauthorized, Message: "User not found"}
	}
	if u.password != password {
		return auth.Identity{}, &backend.APIError{Status: http.StatusUnauthorized, Message: "Invalid password"}
	}
	b.session = &auth.Identity{UserID: u.id, Username: username}
	// The real backend only answers with the user id.
	return auth.Identity{UserID: u.id}, nil
}

func (b *FakeBackend) Logout(ctx context.Context) error {
	if err := b.enter(ctx, LogoutKey); err != nil {
		return err
	}
	b.lock.Lock()
	defer b.lock.Unlock()
	b.session = nil
	return nil
}

func (b *FakeBackend) Status(ctx context.Context) (auth.Identity, error) {
	if err := b.enter(ctx, StatusKey); err != nil {
		return auth.Identity{}, err
	}
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.session == nil {
		return auth.Identity{}, &backend.APIError{Status: http.StatusUnauthorized, Message: "Not authenticated"}
	}
	return *b.session, nil
}

func (b *FakeBackend) Schools(ctx context.Context) ([]catalog.SelectItem, error) {
	if err := b.enter(ctx, SchoolsKey); err != nil {
		return nil, err
	}
	b.lock.Lock()
	defer b.lock.Unlock()
	return catalog.CloneItems(b.schools), nil
}

func (b *FakeBackend) Grades(ctx context.Context, schoolID int) ([]catalog.SelectItem, error) {
	if err := b.enter(ctx, GradesKey(schoolID)); err != nil {
		return nil, err
	}
	b.lock.Lock()
	defer b.lock.Unlock()
	return catalog.CloneItems(b.grades[schoolID]), nil
}

func (b *FakeBackend) Equipment(ctx context.Context, schoolID, gradeID int) ([]catalog.EquipmentLine, error) {
	key := EquipmentKey(schoolID, gradeID)
	if err := b.enter(ctx, key); err != nil {
		return nil, err
	}
	b.lock.Lock()
	defer b.lock.Unlock()
	lines, ok := b.equipment[key]
	if !ok {
		return nil, &backend.APIError{Status: http.StatusNotFound, Message: "Failed to fetch equipment"}
	}
	return catalog.CloneLines(lines), nil
}

func (b *FakeBackend) AddToCart(ctx context.Context, e cart.Entry) error {
	if err := b.enter(ctx, CartAddKey); err != nil {
		return err
	}
	b.lock.Lock()
	defer b.lock.Unlock()
	b.cart = append(b.cart, e)
	return nil
}

func (b *FakeBackend) RemoveFromCart(ctx context.Context, id string) error {
	if err := b.enter(ctx, CartRemoveKey); err != nil {
		return err
	}
	b.lock.Lock()
	defer b.lock.Unlock()
	kept := b.cart[:0]
	for _, e := range b.cart {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	b.cart = kept
	return nil
}

func (b *FakeBackend) ClearCart(ctx context.Context) error {
	if err := b.enter(ctx, CartClearKey); err != nil {
		return err
	}
	b.lock.Lock()
	defer b.lock.Unlock()
	b.cart = nil
	return nil
}

// enter records the call, waits on any hold for key and applies the
// offline and failure settings.
func (b *FakeBackend) enter(ctx context.Context, key string) error {
	b.lock.Lock()
	b.calls = append(b.calls, key)
	h := b.holds[key]
	delete(b.holds, key)
	b.lock.Unlock()

	if h != nil {
		close(h.entered)
		select {
		case <-h.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	b.lock.Lock()
	defer b.lock.Unlock()
	if b.offline {
		return ErrUnreachable
	}
	if err, ok := b.failures[key]; ok {
		return err
	}
	return nil
}

// Hold keeps one call open until Release.
type Hold struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

// Entered is closed once the held call has started.
func (h *Hold) Entered() <-chan struct{} {
	return h.entered
}

func (h *Hold) Release() {
	h.once.Do(func() { close(h.release) })
}
