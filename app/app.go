// Package app builds the client stores from configuration. Nothing here is a
// package-level singleton: every collaborator is constructed by New and
// handed to the components that need it.
package app

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/jrsteele09/motzkin-store/auth"
	"github.com/jrsteele09/motzkin-store/backend"
	"github.com/jrsteele09/motzkin-store/cart"
	"github.com/jrsteele09/motzkin-store/cascade"
	"github.com/jrsteele09/motzkin-store/internal/config"
	"github.com/jrsteele09/motzkin-store/storage"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// IdentityScope is the postgres scope of the records that outlive a browsing
// session: the cached identity and the backend cookies.
const IdentityScope = "global"

// App owns one browsing session of the client.
type App struct {
	cfg config.Config
	log zerolog.Logger

	db          *sqlx.DB
	identity    storage.Store
	cartRecords storage.Store

	Backend *backend.Client
	Session *auth.Store
	Cart    *cart.Store
	Cascade *cascade.Controller
}

// Option defines a function type to modify the App instance.
type Option func(*App)

// WithLogger sets the logger handed to every component.
func WithLogger(l zerolog.Logger) Option {
	return func(a *App) {
		a.log = l
	}
}

// New opens the record stores named by cfg and wires the session store, the
// cart and the cascade controller to one backend client.
func New(ctx context.Context, cfg config.Config, options ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("[app.New] config is required")
	}
	a := &App{cfg: cfg, log: log.Logger}
	for _, opt := range options {
		opt(a)
	}

	var err error
	if a.identity, err = a.openStore(ctx, cfg.GetIdentityStore(), "identity", IdentityScope); err != nil {
		a.Close()
		return nil, errors.Wrap(err, "open identity store")
	}
	scope, err := browsingScope(cfg.GetBrowsingSessionID())
	if err != nil {
		a.Close()
		return nil, err
	}
	if a.cartRecords, err = a.openStore(ctx, cfg.GetCartStore(), filepath.Join("sessions", scope), scope); err != nil {
		a.Close()
		return nil, errors.Wrap(err, "open cart store")
	}

	a.Backend, err = backend.New(cfg.GetAPIBaseURL(),
		backend.WithTimeout(cfg.GetRequestTimeout()),
		backend.WithCookieRecords(a.identity),
		backend.WithLogger(a.log),
	)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Session, err = auth.NewStore(a.Backend, a.identity,
		auth.WithStrictProbe(cfg.GetStrictSessionProbe()),
		auth.WithLogger(a.log),
	)
	if err != nil {
		a.Close()
		return nil, err
	}

	if err := a.wireCart(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// Start resolves the session and, when authenticated, loads the school list.
func (a *App) Start(ctx context.Context) auth.Session {
	s := a.Session.Initialize(ctx)
	if s.Authenticated() {
		if err := a.Cascade.Mount(ctx); err != nil {
			a.log.Warn().Err(err).Msg("mount cascade")
		}
	}
	a.log.Debug().Str("state", s.State.String()).Str("source", s.Source.String()).Msg("session resolved")
	return s
}

// Login authenticates and loads the school list.
func (a *App) Login(ctx context.Context, username, password string) error {
	if err := a.Session.Login(ctx, username, password); err != nil {
		return err
	}
	return a.Cascade.Mount(ctx)
}

// Logout ends the session and drops the cascade. The cart survives: it
// belongs to the browsing session, not to the user.
func (a *App) Logout(ctx context.Context) {
	a.Session.Logout(ctx)
	a.Cascade.Reset()
}

// EndBrowsingSession erases the session-scoped cart record and starts an
// empty cart in its place.
func (a *App) EndBrowsingSession(ctx context.Context) error {
	if err := a.cartRecords.Delete(ctx, cart.RecordKey); err != nil {
		return errors.Wrap(err, "erase cart record")
	}
	a.log.Info().Str("browsing_session", a.cfg.GetBrowsingSessionID()).Msg("browsing session ended")
	return a.wireCart(ctx)
}

// Close releases the database connection, if one was opened.
func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	return err
}

func (a *App) wireCart(ctx context.Context) error {
	options := []cart.StoreOption{cart.WithGate(a.Session), cart.WithLogger(a.log)}
	if a.cfg.GetCartMirror() {
		options = append(options, cart.WithMirror(a.Backend))
	}
	c, err := cart.NewStore(ctx, a.cartRecords, options...)
	if err != nil {
		return err
	}
	ctl, err := cascade.NewController(a.Backend, a.Session, c, cascade.WithLogger(a.log))
	if err != nil {
		return err
	}
	a.Cart, a.Cascade = c, ctl
	return nil
}

func (a *App) openStore(ctx context.Context, kind, folder, scope string) (storage.Store, error) {
	switch kind {
	case config.StoreMemory:
		return storage.NewMemoryStore(), nil
	case config.StoreFile:
		return storage.NewFileStore(filepath.Join(a.cfg.GetDataFolder(), folder))
	case config.StorePostgres:
		if a.db == nil {
			db, err := storage.OpenPostgres(ctx, a.cfg.GetDatabaseURL())
			if err != nil {
				return nil, err
			}
			a.db = db
		}
		return storage.NewPostgresStore(ctx, a.db, scope)
	default:
		return nil, fmt.Errorf("unknown record store %q", kind)
	}
}

func browsingScope(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return "", fmt.Errorf("invalid browsing session id %q", id)
	}
	return id, nil
}
