// Package server is a development backend for the store client. It serves
// the login, catalog and cart endpoints the client consumes, with sessions
// held server-side and named by a signed cookie.
package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/motzkin-store/internal/config"
	"github.com/jrsteele09/motzkin-store/server/cartrepo"
	"github.com/jrsteele09/motzkin-store/server/loginsession"
	"github.com/jrsteele09/motzkin-store/token"
	"github.com/jrsteele09/motzkin-store/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Repos groups the stores the server reads and writes.
type Repos struct {
	Users    users.UserRepo
	Sessions loginsession.Repo
	Carts    cartrepo.Repo
	Catalog  *Catalog
}

type Server struct {
	env     string // Environment (e.g., "DEV", "PROD")
	mux     *http.ServeMux
	routes  []string
	config  config.Config
	repos   Repos
	tokens  *token.Manager
	log     zerolog.Logger
	nowTime func() time.Time
}

// ServerOption defines a function type to modify the Server instance.
type ServerOption func(*Server)

func WithLogger(l zerolog.Logger) ServerOption {
	return func(s *Server) {
		s.log = l
	}
}

// WithNowTime sets the clock used for session expiry (primarily for testing).
func WithNowTime(nowFunc func() time.Time) ServerOption {
	return func(s *Server) {
		s.nowTime = nowFunc
	}
}

func New(cfg config.Config, repos Repos, options ...ServerOption) (*Server, error) {
	if repos.Users == nil || repos.Sessions == nil || repos.Carts == nil || repos.Catalog == nil {
		return nil, errors.New("[Server New] users, sessions, carts and catalog are required")
	}

	s := &Server{
		env:     cfg.GetEnv(),
		mux:     http.NewServeMux(),
		config:  cfg,
		repos:   repos,
		log:     log.Logger,
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	s.tokens = token.New(
		token.NewHMACSigner(cfg.GetSessionSecret()),
		token.WithExpiry(cfg.GetMaxSessionAge()),
		token.WithNowFunc(s.nowTime),
	)

	if err := s.InitialiseSystem(cfg); err != nil {
		return nil, fmt.Errorf("[Server New] Failed to initialise the system: %w", err)
	}

	s.initRoutes()
	s.logRoutes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

// Routes lists the registered route patterns.
func (s *Server) Routes() []string {
	return append([]string(nil), s.routes...)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			s.logRoute(parts[0], parts[1])
		} else {
			s.logRoute("", parts[0])
		}
	}
}

const (
	green      = "\033[32m"
	blue       = "\033[34m"
	yellow     = "\033[33m"
	gray       = "\033[90m"
	resetColor = "\033[0m"
)

var methodColors = map[string]string{
	http.MethodGet:    green,
	http.MethodPost:   blue,
	http.MethodDelete: yellow,
}

func (s *Server) logRoute(method, path string) {
	color, ok := methodColors[method]
	if !ok {
		color = gray
	}
	s.log.Info().Msgf("[%s %-7s%s] %s", color, method, resetColor, path)
}
