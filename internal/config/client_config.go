package config

import (
	"strings"
	"time"
)

// ClientConfig configures the store client and its backend connection.
type ClientConfig interface {
	GetAPIBaseURL() string
	GetRequestTimeout() time.Duration
	GetStrictSessionProbe() bool
	GetCartMirror() bool
}

type Client struct{}

var _ ClientConfig = Client{}

func (Client) GetAPIBaseURL() string {
	return strings.TrimRight(GetEnv("API_BASE_URL", "http://localhost:8080"), "/")
}

func (Client) GetRequestTimeout() time.Duration {
	return getDuration("REQUEST_TIMEOUT_SEC", time.Second, 10)
}

// GetStrictSessionProbe drops the cached identity when the backend rejects
// the session probe with 401.
func (Client) GetStrictSessionProbe() bool {
	return GetBool("STRICT_SESSION_PROBE", false)
}

// GetCartMirror forwards cart mutations to the server cart.
func (Client) GetCartMirror() bool {
	return GetBool("CART_MIRROR", false)
}
