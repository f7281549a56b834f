package server

import (
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) initRoutes() error {
	index, err := s.IndexHandler()
	if err != nil {
		return err
	}
	loginPage, err := s.LoginPageUIHandler()
	if err != nil {
		return err
	}
	adminPage, err := s.AdminSessionLimiterHandler()
	if err != nil {
		return err
	}

	// Pages behind the single-session check
	s.RegisterRouteHandler("GET "+RouteIndex+"{$}", ChainMiddleware(index, s.HTMLMiddleWare(s.RequireLogin(), s.RequireSingleSession())...))

	// LOGIN
	s.RegisterRouteHandler("GET "+RouteLogin, ChainMiddleware(loginPage, s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("POST "+RouteAuthLogin, ChainMiddleware(s.LoginSubmissionHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("POST "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), s.HTMLMiddleWare()...))

	// Admin routes
	adminMW := s.HTMLMiddleWare(s.RequireLogin(), s.RequireSingleSession(), s.RequireAdmin())
	s.RegisterRouteHandler("GET "+RouteAdminSessionLimiter, ChainMiddleware(adminPage, adminMW...))
	s.RegisterRouteHandler("POST "+RouteAdminSettings, ChainMiddleware(s.AdminSaveSettingsHandler(), adminMW...))
	s.RegisterRouteHandler("POST "+RouteAdminExpire, ChainMiddleware(s.AdminExpireSessionHandler(), adminMW...))
	s.RegisterRouteHandler("POST "+RouteAdminClear, ChainMiddleware(s.AdminClearSessionsHandler(), adminMW...))
	s.RegisterRouteHandler("POST "+RouteAdminPrune, ChainMiddleware(s.AdminPruneOrphansHandler(), adminMW...))

	// API routes
	apiAdminMW := s.APIMiddleware(s.RequireLogin(), s.RequireSingleSession(), s.RequireAdmin())
	s.RegisterRouteHandler("GET "+RouteAPIAdminTokens, ChainMiddleware(s.APIAdminTokensHandler(), apiAdminMW...))
	s.RegisterRouteHandler("GET "+RouteAPIAdminPolicy, ChainMiddleware(s.APIAdminPolicyHandler(), apiAdminMW...))

	// Operations
	s.RegisterRouteHandler("GET "+RouteMetrics, promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	s.RegisterRouteHandler("GET "+RouteHealthz, ChainMiddleware(s.HealthzHandler(), s.APIMiddleware()...))
	return nil
}
