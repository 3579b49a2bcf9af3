package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jrsteele09/motzkin-store/server/loginsession"
	"github.com/jrsteele09/motzkin-store/users"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Message string `json:"message"`
	UserID  string `json:"userId"`
}

type statusResponse struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// LoginHandler checks the credentials and starts a server session.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		req.Username = strings.TrimSpace(req.Username)
		if req.Username == "" || req.Password == "" {
			writeError(w, http.StatusBadRequest, "Username and password are required")
			return
		}

		user, err := s.repos.Users.GetByUsername(req.Username)
		if errors.Is(err, users.ErrUserNotFound) {
			writeError(w, http.StatusUnauthorized, "User not found")
			return
		}
		if err != nil {
			s.log.Error().Err(err).Msg("load user")
			writeError(w, http.StatusInternalServerError, "Login failed")
			return
		}
		if user.Blocked {
			writeError(w, http.StatusForbidden, "Account blocked")
			return
		}
		if !user.CheckPassword(req.Password) {
			writeError(w, http.StatusUnauthorized, "Invalid password")
			return
		}

		now := s.nowTime()
		sessionID := uuid.New().String()
		signed, expires, err := s.tokens.CreateSessionToken(sessionID, user.ID)
		if err != nil {
			s.log.Error().Err(err).Msg("create session token")
			writeError(w, http.StatusInternalServerError, "Login failed")
			return
		}
		session := loginsession.Session{
			UserID:    user.ID,
			Username:  user.Username,
			CreatedAt: now,
			ExpiresAt: expires,
		}
		if err := s.repos.Sessions.Upsert(sessionID, session); err != nil {
			s.log.Error().Err(err).Msg("store session")
			writeError(w, http.StatusInternalServerError, "Login failed")
			return
		}
		if err := s.repos.Users.SetLastLogin(user.Username, now); err != nil {
			s.log.Warn().Err(err).Str("user_id", user.ID).Msg("record last login")
		}

		s.setSessionCookie(w, r, signed, int(s.tokens.Expiry().Seconds()))
		writeJSON(w, http.StatusOK, loginResponse{Message: "Login successful", UserID: user.ID})
	}
}

// LogoutHandler ends the session named by the cookie, if any. It always
// succeeds.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if session, ok := s.sessionFromRequest(r); ok {
			if err := s.repos.Sessions.Delete(session.ID); err != nil {
				s.log.Error().Err(err).Msg("delete session")
			}
		}
		s.setSessionCookie(w, r, "", -1)
		writeJSON(w, http.StatusOK, messageResponse{Message: "Logged out"})
	}
}

// AuthStatusHandler reports the identity of the current session.
func (s *Server) AuthStatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := sessionFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		writeJSON(w, http.StatusOK, statusResponse{UserID: session.UserID, Username: session.Username})
	}
}

// setSessionCookie writes the session cookie. A negative maxAge deletes it.
func (s *Server) setSessionCookie(w http.ResponseWriter, r *http.Request, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   getScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
	})
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
