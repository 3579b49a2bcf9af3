package config

import "time"

// SecurityConfig configures sessions on the development backend.
type SecurityConfig interface {
	GetSessionSecret() string
	GetMaxSessionAge() time.Duration
	GetDevUsername() string
	GetDevPassword() string
}

type Security struct{}

var _ SecurityConfig = Security{}

func (Security) GetSessionSecret() string {
	return GetEnv("SESSION_SECRET", "motzkin-dev-secret")
}

func (Security) GetMaxSessionAge() time.Duration {
	return getDuration("SESSION_TTL_MIN", time.Minute, 60)
}

func (Security) GetDevUsername() string {
	return GetEnv("DEV_USERNAME", "alice")
}

func (Security) GetDevPassword() string {
	return GetEnv("DEV_PASSWORD", "Password123")
}
