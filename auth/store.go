package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/jrsteele09/motzkin-store/storage"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// IdentityRecordKey is the durable record holding the cached identity.
	IdentityRecordKey = "identity"

	loginFailedMessage = "Login failed"
)

// Backend is the part of the server contract the session store needs.
type Backend interface {
	// Login authenticates and starts a server session. The returned identity
	// may have an empty Username; the backend only guarantees the user id.
	Login(ctx context.Context, username, password string) (Identity, error)
	// Logout invalidates the server session.
	Logout(ctx context.Context) error
	// Status probes the current server session.
	Status(ctx context.Context) (Identity, error)
}

// statusCoder is implemented by backend errors that carry an HTTP status.
type statusCoder interface {
	HTTPStatus() int
}

// Store owns the authentication session of one client. Every transition to
// StateAuthenticated writes the identity record; every transition to
// StateUnauthenticated erases it.
type Store struct {
	backend     Backend
	records     storage.Store
	log         zerolog.Logger
	strictProbe bool

	mu      sync.RWMutex
	current Session
}

// StoreOption defines a function type to modify the Store instance.
type StoreOption func(*Store)

// WithLogger sets the logger used for swallowed failures.
func WithLogger(l zerolog.Logger) StoreOption {
	return func(s *Store) {
		s.log = l
	}
}

// WithStrictProbe makes Initialize drop the cached identity when the backend
// answers the probe with 401 instead of being unreachable.
func WithStrictProbe(strict bool) StoreOption {
	return func(s *Store) {
		s.strictProbe = strict
	}
}

// NewStore creates a session store in StateUnknown.
func NewStore(backend Backend, records storage.Store, options ...StoreOption) (*Store, error) {
	if backend == nil {
		return nil, errors.New("[NewStore] backend is required")
	}
	if records == nil {
		return nil, errors.New("[NewStore] identity records are required")
	}

	s := &Store{
		backend: backend,
		records: records,
		log:     log.Logger,
		current: Session{State: StateUnknown},
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Current returns a snapshot of the session.
func (s *Store) Current() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copySession(s.current)
}

// IsAuthenticated gates every other component of the client.
func (s *Store) IsAuthenticated() bool {
	return s.Current().Authenticated()
}

// Initialize probes the server session. When the probe fails the cached
// identity, if any, is trusted without confirmation and the session is
// tagged SourceCache.
func (s *Store) Initialize(ctx context.Context) Session {
	id, err := s.backend.Status(ctx)
	if err == nil && strings.TrimSpace(id.UserID) != "" {
		if id.Username == "" {
			id.Username = id.UserID
		}
		s.becomeAuthenticated(ctx, id, SourceServer)
		return s.Current()
	}
	if err == nil {
		err = errors.New("session probe returned no user id")
	}
	s.log.Warn().Err(err).Msg("session probe failed")

	if s.strictProbe && isUnauthorized(err) {
		s.becomeUnauthenticated(ctx)
		return s.Current()
	}

	cached, ok := s.loadIdentity(ctx)
	if !ok {
		s.becomeUnauthenticated(ctx)
		return s.Current()
	}
	s.log.Info().Str("user_id", cached.UserID).Msg("using cached identity")
	s.becomeAuthenticated(ctx, cached, SourceCache)
	return s.Current()
}

// Login authenticates against the backend. On failure the session is forced
// to StateUnauthenticated and the returned error carries the backend message.
func (s *Store) Login(ctx context.Context, username, password string) error {
	id, err := s.backend.Login(ctx, username, password)
	if err == nil && strings.TrimSpace(id.UserID) == "" {
		err = errors.New("backend returned no user id")
	}
	if err != nil {
		s.becomeUnauthenticated(ctx)
		var sc statusCoder
		if errors.As(err, &sc) {
			return err
		}
		return errors.Wrap(err, loginFailedMessage)
	}

	if id.Username == "" {
		id.Username = username
	}
	s.becomeAuthenticated(ctx, id, SourceServer)
	return nil
}

// Logout asks the backend to end the server session and always logs out
// locally, whatever the backend answered.
func (s *Store) Logout(ctx context.Context) {
	if err := s.backend.Logout(ctx); err != nil {
		s.log.Warn().Err(err).Msg("backend logout failed, logging out locally")
	}
	s.becomeUnauthenticated(ctx)
}

func (s *Store) becomeAuthenticated(ctx context.Context, id Identity, src Source) {
	s.mu.Lock()
	s.current = authenticated(id, src)
	s.mu.Unlock()

	b, err := json.Marshal(id)
	if err != nil {
		s.log.Error().Err(err).Msg("encode identity record")
		return
	}
	if err := s.records.Put(ctx, IdentityRecordKey, b); err != nil {
		s.log.Error().Err(err).Msg("persist identity record")
	}
}

func (s *Store) becomeUnauthenticated(ctx context.Context) {
	s.mu.Lock()
	s.current = unauthenticated()
	s.mu.Unlock()

	if err := s.records.Delete(ctx, IdentityRecordKey); err != nil {
		s.log.Error().Err(err).Msg("erase identity record")
	}
}

func (s *Store) loadIdentity(ctx context.Context) (Identity, bool) {
	b, err := s.records.Get(ctx, IdentityRecordKey)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.log.Error().Err(err).Msg("read identity record")
		}
		return Identity{}, false
	}
	var id Identity
	if err := json.Unmarshal(b, &id); err != nil {
		s.log.Error().Err(err).Msg("decode identity record")
		return Identity{}, false
	}
	if strings.TrimSpace(id.UserID) == "" || strings.TrimSpace(id.Username) == "" {
		return Identity{}, false
	}
	return id, true
}

func isUnauthorized(err error) bool {
	var sc statusCoder
	return errors.As(err, &sc) && sc.HTTPStatus() == http.StatusUnauthorized
}

func copySession(s Session) Session {
	if s.Identity != nil {
		id := *s.Identity
		s.Identity = &id
	}
	return s
}
