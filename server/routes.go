package server

import "net/http"

func (s *Server) initRoutes() {
	// AUTH
	s.RegisterRouteHandler("POST "+RouteLogin, ChainMiddleware(s.LoginHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteLogout, ChainMiddleware(s.LogoutHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAuthStatus, ChainMiddleware(s.AuthStatusHandler(), s.APIMiddleware(s.RequireSession())...))

	// CATALOG
	s.RegisterRouteHandler("GET "+RouteSchools, ChainMiddleware(s.SchoolsHandler(), s.APIMiddleware(s.RequireSession())...))
	s.RegisterRouteHandler("GET "+RouteGrades, ChainMiddleware(s.GradesHandler(), s.APIMiddleware(s.RequireSession())...))
	s.RegisterRouteHandler("GET "+RouteEquipment, ChainMiddleware(s.EquipmentHandler(), s.APIMiddleware(s.RequireSession())...))

	// CART
	s.RegisterRouteHandler("GET "+RouteCart, ChainMiddleware(s.CartListHandler(), s.APIMiddleware(s.RequireSession())...))
	s.RegisterRouteHandler("POST "+RouteCart, ChainMiddleware(s.CartAddHandler(), s.APIMiddleware(s.RequireSession())...))
	s.RegisterRouteHandler("DELETE "+RouteCart, ChainMiddleware(s.CartClearHandler(), s.APIMiddleware(s.RequireSession())...))
	s.RegisterRouteHandler("DELETE "+RouteCartEntry, ChainMiddleware(s.CartRemoveHandler(), s.APIMiddleware(s.RequireSession())...))

	// Preflight for browser clients
	s.RegisterRouteHandler("OPTIONS /", ChainMiddleware(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}, s.APIMiddleware()...))
}
