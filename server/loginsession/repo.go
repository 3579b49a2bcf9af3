package loginsession

import (
	"errors"
	"time"
)

var ErrSessionNotFound = errors.New("session not found")

// Session is a server-side login session named by the session cookie.
type Session struct {
	ID       string
	UserID   string
	Username string

	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the session has lapsed at now.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

type Repo interface {
	Upsert(sessionID string, session Session) error
	Get(sessionID string) (Session, error)
	Delete(sessionID string) error
	DeleteExpired(now time.Time) int
}
