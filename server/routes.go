package server

import (
	"github.com/jrsteele09/go-bookstore-api/users"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) initRoutes() {
	// AUTH
	s.RegisterRouteHandler("POST "+RouteAuthRegister, ChainMiddleware(s.RegisterHandler(), s.APIMiddleware(s.RateLimitMiddleware)...))
	s.RegisterRouteHandler("POST "+RouteAuthLogin, ChainMiddleware(s.LoginHandler(), s.APIMiddleware(s.RateLimitMiddleware)...))
	s.RegisterRouteHandler("POST "+RouteAuthRefresh, ChainMiddleware(s.RefreshHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("DELETE "+RouteAuthRevoke, ChainMiddleware(s.RevokeHandler(), s.APIMiddleware(s.RequireAuth())...))

	// BOOKS: reads for any authenticated caller, writes for admins
	s.RegisterRouteHandler("GET "+RouteBooks, ChainMiddleware(s.ListBooksHandler(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteHandler("GET "+RouteBookByID, ChainMiddleware(s.GetBookHandler(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteHandler("POST "+RouteBooks, ChainMiddleware(s.CreateBookHandler(), s.APIMiddleware(s.RequireAuth(), s.RequireRole(users.RoleAdmin))...))
	s.RegisterRouteHandler("PUT "+RouteBookByID, ChainMiddleware(s.UpdateBookHandler(), s.APIMiddleware(s.RequireAuth(), s.RequireRole(users.RoleAdmin))...))
	s.RegisterRouteHandler("DELETE "+RouteBookByID, ChainMiddleware(s.DeleteBookHandler(), s.APIMiddleware(s.RequireAuth(), s.RequireRole(users.RoleAdmin))...))

	// RENTALS
	s.RegisterRouteHandler("GET "+RouteRentals, ChainMiddleware(s.ListRentalsHandler(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteHandler("POST "+RouteRentalByBook, ChainMiddleware(s.RentBookHandler(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteHandler("DELETE "+RouteRentalByBook, ChainMiddleware(s.CancelRentalHandler(), s.APIMiddleware(s.RequireAuth())...))

	// POLICY PROBES
	s.RegisterRouteHandler("GET "+RoutePolicyAdmin, ChainMiddleware(s.PolicyHandler(users.RoleAdmin), s.APIMiddleware(s.RequireAuth(), s.RequireRole(users.RoleAdmin))...))
	s.RegisterRouteHandler("GET "+RoutePolicyUser, ChainMiddleware(s.PolicyHandler(users.RoleUser), s.APIMiddleware(s.RequireAuth(), s.RequireRole(users.RoleUser))...))

	s.RegisterRouteHandler("GET "+RouteMetrics, ChainMiddleware(promhttp.Handler().ServeHTTP, s.APIMiddleware(s.RequireAuth(), s.RequireRole(users.RoleAdmin))...))
	s.RegisterRouteHandler("GET "+RouteHealth, ChainMiddleware(s.HealthHandler(), s.RecoverMiddleware))
}
