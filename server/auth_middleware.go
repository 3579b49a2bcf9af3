package server

import (
	"context"
	"net/http"

	"github.com/jrsteele09/motzkin-store/server/loginsession"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeySession stores the authenticated login session
	ContextKeySession ContextKey = "session"
	// ContextKeyRequestID stores the request id
	ContextKeyRequestID ContextKey = "request_id"
)

// RequireSession rejects requests without a live session cookie with
// 401 {"error":"Not authenticated"}.
func (s *Server) RequireSession() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			session, ok := s.sessionFromRequest(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, "Not authenticated")
				return
			}
			ctx := context.WithValue(r.Context(), ContextKeySession, session)
			next(w, r.WithContext(ctx))
		}
	}
}

// sessionFromRequest resolves the session cookie to a live server session.
// Expired sessions are deleted on sight.
func (s *Server) sessionFromRequest(r *http.Request) (loginsession.Session, bool) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return loginsession.Session{}, false
	}
	claims, err := s.tokens.ParseSessionToken(cookie.Value)
	if err != nil {
		s.log.Debug().Err(err).Msg("rejecting session cookie")
		return loginsession.Session{}, false
	}
	session, err := s.repos.Sessions.Get(claims.SessionID)
	if err != nil {
		return loginsession.Session{}, false
	}
	if session.UserID != claims.UserID {
		return loginsession.Session{}, false
	}
	if session.Expired(s.nowTime()) {
		_ = s.repos.Sessions.Delete(session.ID)
		return loginsession.Session{}, false
	}
	return session, true
}

func sessionFromContext(ctx context.Context) (loginsession.Session, bool) {
	session, ok := ctx.Value(ContextKeySession).(loginsession.Session)
	return session, ok
}
