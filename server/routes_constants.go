package server

// Route path constants
const (
	RouteIndex = "/"

	// Login & Logout
	RouteLogin      = "/login"
	RouteAuthLogin  = "/auth/login"
	RouteAuthLogout = "/auth/logout"

	// Session limiter administration
	RouteAdminSessionLimiter = "/admin/session-limiter"
	RouteAdminSettings       = "/admin/session-limiter/settings"
	RouteAdminExpire         = "/admin/session-limiter/expire"
	RouteAdminClear          = "/admin/session-limiter/clear"
	RouteAdminPrune          = "/admin/session-limiter/prune"

	// API Routes
	RouteAPIAdminTokens = "/api/admin/tokens"
	RouteAPIAdminPolicy = "/api/admin/policy"

	// Operations
	RouteMetrics = "/metrics"
	RouteHealthz = "/healthz"
)

// sessionExpiredQuery is appended to the login route when a superseded session is ended.
const sessionExpiredQuery = "session_expired=1"
