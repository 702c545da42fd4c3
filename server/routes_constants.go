package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Public pages
	RouteLogin          = "/"
	RouteSignup         = "/signup"
	RouteConfirmAccount = "/confirm-account"
	RouteForgotPassword = "/forgot-password"
	RouteResetPassword  = "/reset-password"
	RouteVerifyMFA      = "/verify-mfa"

	// Protected pages
	RouteHome     = "/home"
	RouteSessions = "/sessions"

	// Actions
	RouteLogout        = "/logout"
	RouteSessionDelete = "/sessions/{id}/delete"
	RouteMFASetup      = "/mfa/setup"
	RouteMFAVerify     = "/mfa/verify"
	RouteMFARevoke     = "/mfa/revoke"

	// Operational
	RouteMetrics = "/metrics"
	RouteHealthz = "/healthz"

	// Static Asset Routes (patterns)
	RouteStatic = "/static/{file}"
)
