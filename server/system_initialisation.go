package server

import (
	"fmt"
	"time"

	"github.com/jrsteele09/motzkin-store/internal/config"
	"github.com/jrsteele09/motzkin-store/users"
)

// InitialiseSystem creates the development user when it does not exist yet.
func (s *Server) InitialiseSystem(cfg config.Config) error {
	username := cfg.GetDevUsername()
	if username == "" {
		return nil
	}
	if _, err := s.repos.Users.GetByUsername(username); err == nil {
		return nil
	}

	password := cfg.GetDevPassword()
	if err := users.ValidatePasswordStrength(password); err != nil {
		s.log.Warn().Err(err).Str("username", username).Msg("weak development password")
	}
	u, err := users.NewUser(username, password, s.nowTime().UTC().Truncate(time.Second))
	if err != nil {
		return fmt.Errorf("[Server InitialiseSystem] %w", err)
	}
	if err := s.repos.Users.Upsert(u); err != nil {
		return fmt.Errorf("[Server InitialiseSystem] create user: %w", err)
	}

	if s.env == "DEV" {
		s.log.Info().Str("username", username).Str("user_id", u.ID).Msg("development user ready")
	}
	return nil
}
