// Package token issues and verifies the signed session cookie of the
// development backend. The cookie names a server-side session; it carries no
// state of its own beyond the ids and expiry.
package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const defaultIssuer = "motzkin-store"

// SessionClaims are the verified contents of a session token.
type SessionClaims struct {
	SessionID string
	UserID    string
	ExpiresAt time.Time
}

// sessionTokenClaims is the JWT body: the registered claims plus the id of
// the server-side session.
type sessionTokenClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

type Manager struct {
	signer  Signer
	issuer  string
	expiry  time.Duration
	nowFunc func() time.Time
}

type ManagerOption func(*Manager)

func WithExpiry(expiry time.Duration) ManagerOption {
	return func(m *Manager) {
		m.expiry = expiry
	}
}

func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

func WithIssuer(issuer string) ManagerOption {
	return func(m *Manager) {
		m.issuer = issuer
	}
}

func New(signer Signer, options ...ManagerOption) *Manager {
	m := &Manager{
		signer: signer,
		issuer: defaultIssuer,
	}
	for _, opt := range options {
		opt(m)
	}

	if m.expiry == 0 {
		m.expiry = time.Hour
	}
	if m.nowFunc == nil {
		m.nowFunc = time.Now
	}
	return m
}

// Expiry is the lifetime of issued tokens.
func (m *Manager) Expiry() time.Duration {
	return m.expiry
}

// CreateSessionToken signs a token naming sessionID for userID.
func (m *Manager) CreateSessionToken(sessionID, userID string) (string, time.Time, error) {
	if sessionID == "" || userID == "" {
		return "", time.Time{}, errors.New("Manager.CreateSessionToken: session and user id are required")
	}
	now := m.nowFunc()
	expires := now.Add(m.expiry)

	claims := sessionTokenClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    m.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := m.signer.Sign(claims)
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, "Manager.CreateSessionToken")
	}
	return signed, expires, nil
}

// ParseSessionToken verifies the signature, issuer and expiry of raw.
func (m *Manager) ParseSessionToken(raw string) (SessionClaims, error) {
	var claims sessionTokenClaims
	_, err := jwt.ParseWithClaims(raw, &claims, m.signer.Key,
		jwt.WithValidMethods([]string{m.signer.Method().Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.nowFunc),
	)
	if err != nil {
		return SessionClaims{}, errors.Wrap(err, "Manager.ParseSessionToken")
	}
	if claims.SessionID == "" || claims.Subject == "" {
		return SessionClaims{}, errors.New("Manager.ParseSessionToken: missing session claims")
	}
	return SessionClaims{SessionID: claims.SessionID, UserID: claims.Subject, ExpiresAt: claims.ExpiresAt.Time}, nil
}
