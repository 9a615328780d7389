package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Auth Routes
	RouteAuthRegister = "/api/auth/register"
	RouteAuthLogin    = "/api/auth/login"
	RouteAuthRefresh  = "/api/auth/refresh"
	RouteAuthRevoke   = "/api/auth/revoke"

	// Catalog Routes
	RouteBooks    = "/api/books"
	RouteBookByID = "/api/books/{id}"

	// Rental Routes
	RouteRentals      = "/api/rentals"
	RouteRentalByBook = "/api/rentals/{bookId}"

	// Role policy probes
	RoutePolicyAdmin = "/api/policy/admin"
	RoutePolicyUser  = "/api/policy/user"

	// Operational Routes
	RouteMetrics = "/metrics"
	RouteHealth  = "/healthz"
)
