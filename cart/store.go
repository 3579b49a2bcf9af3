package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jrsteele09/motzkin-store/catalog"
	apperrors "github.com/jrsteele09/motzkin-store/internal/errors"
	"github.com/jrsteele09/motzkin-store/storage"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// RecordKey is the session-scoped record holding the serialized entries.
const RecordKey = "motzkin_cart"

// Gate reports whether an authenticated session exists.
type Gate interface {
	IsAuthenticated() bool
}

// Mirror receives every local mutation so a server-side cart can follow.
type Mirror interface {
	AddToCart(ctx context.Context, entry Entry) error
	RemoveFromCart(ctx context.Context, id string) error
	ClearCart(ctx context.Context) error
}

// Store is the ordered sequence of cart entries. Every mutation writes the
// whole sequence to the record store before returning. A failed write is
// logged and the in-memory change stands.
type Store struct {
	records storage.Store
	log     zerolog.Logger
	nowTime func() time.Time
	newID   func(time.Time) string
	gate    Gate
	mirror  Mirror

	mu      sync.Mutex
	entries []Entry
	issued  map[string]struct{} // every id handed out or loaded, never reused
}

// StoreOption defines a function type to modify the Store instance.
type StoreOption func(*Store)

// WithLogger sets the logger used for swallowed persistence and mirror failures.
func WithLogger(l zerolog.Logger) StoreOption {
	return func(s *Store) {
		s.log = l
	}
}

// WithNowTime sets the clock (primarily for testing).
func WithNowTime(nowFunc func() time.Time) StoreOption {
	return func(s *Store) {
		s.nowTime = nowFunc
	}
}

// WithIDGenerator replaces NewEntryID.
func WithIDGenerator(gen func(time.Time) string) StoreOption {
	return func(s *Store) {
		s.newID = gen
	}
}

// WithGate refuses mutations while the gate reports no authenticated session.
func WithGate(g Gate) StoreOption {
	return func(s *Store) {
		s.gate = g
	}
}

// WithMirror forwards mutations to a server cart. Mirror failures are logged.
func WithMirror(m Mirror) StoreOption {
	return func(s *Store) {
		s.mirror = m
	}
}

// NewStore creates a cart and loads any entries already recorded. An
// unreadable record starts an empty cart.
func NewStore(ctx context.Context, records storage.Store, options ...StoreOption) (*Store, error) {
	if records == nil {
		return nil, errors.New("[NewStore] cart records are required")
	}
	s := &Store{
		records: records,
		log:     log.Logger,
		nowTime: time.Now,
		newID:   NewEntryID,
		entries: []Entry{},
		issued:  make(map[string]struct{}),
	}
	for _, opt := range options {
		opt(s)
	}

	s.load(ctx)
	return s, nil
}

// Entries returns a snapshot of the cart in insertion order.
func (s *Store) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.clone()
	}
	return out
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Add assigns an id and timestamp to the draft and appends it.
func (s *Store) Add(ctx context.Context, d Draft) (Entry, error) {
	if err := s.checkGate(); err != nil {
		return Entry{}, err
	}

	s.mu.Lock()
	now := s.nowTime()
	e := Entry{
		ID:        s.uniqueIDLocked(now),
		Timestamp: now.UnixMilli(),
		School:    d.School,
		Grade:     d.Grade,
		Items:     catalog.CloneLines(d.Items),
	}
	s.entries = append(s.entries, e)
	s.persistLocked(ctx)
	s.mu.Unlock()

	if s.mirror != nil {
		if err := s.mirror.AddToCart(ctx, e.clone()); err != nil {
			s.log.Warn().Err(err).Str("entry_id", e.ID).Msg("mirror cart add failed")
		}
	}
	return e.clone(), nil
}

// Remove drops the entry with the given id. Unknown ids are a no-op.
func (s *Store) Remove(ctx context.Context, id string) error {
	if err := s.checkGate(); err != nil {
		return err
	}

	s.mu.Lock()
	kept := make([]Entry, 0, len(s.entries))
	found := false
	for _, e := range s.entries {
		if !found && e.ID == id {
			found = true
			continue
		}
		kept = append(kept, e)
	}
	s.entries = kept
	s.persistLocked(ctx)
	s.mu.Unlock()

	if s.mirror != nil && found {
		if err := s.mirror.RemoveFromCart(ctx, id); err != nil {
			s.log.Warn().Err(err).Str("entry_id", id).Msg("mirror cart remove failed")
		}
	}
	return nil
}

// Clear empties the cart.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.checkGate(); err != nil {
		return err
	}

	s.mu.Lock()
	s.entries = []Entry{}
	s.persistLocked(ctx)
	s.mu.Unlock()

	if s.mirror != nil {
		if err := s.mirror.ClearCart(ctx); err != nil {
			s.log.Warn().Err(err).Msg("mirror cart clear failed")
		}
	}
	return nil
}

func (s *Store) checkGate() error {
	if s.gate != nil && !s.gate.IsAuthenticated() {
		return errors.Wrap(apperrors.ErrNotAuthenticated, "cart")
	}
	return nil
}

func (s *Store) uniqueIDLocked(now time.Time) string {
	base := s.newID(now)
	id := base
	for n := 1; ; n++ {
		if _, used := s.issued[id]; !used {
			break
		}
		id = fmt.Sprintf("%s_%d", base, n)
	}
	s.issued[id] = struct{}{}
	return id
}

func (s *Store) load(ctx context.Context) {
	b, err := s.records.Get(ctx, RecordKey)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.log.Error().Err(err).Msg("read cart record")
		}
		return
	}
	var loaded []Entry
	if err := json.Unmarshal(b, &loaded); err != nil {
		s.log.Error().Err(err).Msg("decode cart record, starting with an empty cart")
		return
	}
	for _, e := range loaded {
		if e.Items == nil {
			e.Items = []catalog.EquipmentLine{}
		}
		s.entries = append(s.entries, e)
		s.issued[e.ID] = struct{}{}
	}
}

func (s *Store) persistLocked(ctx context.Context) {
	b, err := json.Marshal(s.entries)
	if err != nil {
		s.log.Error().Err(err).Msg("encode cart record")
		return
	}
	if err := s.records.Put(ctx, RecordKey, b); err != nil {
		s.log.Error().Err(err).Int("entries", len(s.entries)).Msg("persist cart record")
	}
}
