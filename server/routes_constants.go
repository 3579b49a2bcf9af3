package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Auth Routes
	RouteLogin      = "/api/login"
	RouteLogout     = "/api/logout"
	RouteAuthStatus = "/api/auth/status"

	// Catalog Routes
	RouteSchools   = "/api/schools"
	RouteGrades    = "/api/grades"
	RouteEquipment = "/api/equipment"

	// Cart Routes
	RouteCart      = "/cart"
	RouteCartEntry = "/cart/{id}"

	// SessionCookieName carries the signed session token.
	SessionCookieName = "motzkin_session"
	RequestIDHeader   = "X-Request-ID"
)
