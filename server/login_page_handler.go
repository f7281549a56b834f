package server

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/jrsteele09/go-session-limiter/internal/errors"
	"github.com/jrsteele09/go-session-limiter/policy"
	"github.com/jrsteele09/go-session-limiter/users"
	"github.com/rs/zerolog/log"
)

const (
	msgSessionExpired   = "Your session has expired because you logged in elsewhere."
	msgIssuanceFailed   = "We could not start your session. Please try again."
	msgInvalidLogin     = "Invalid username or password"
	msgMissingLoginData = "Username and password are required"
)

// LoginPageData contains data for rendering the login page
type LoginPageData struct {
	AppName        string
	Error          string
	Notice         string
	Username       string // Preserve username on error
	SessionExpired bool
}

// LoginPageUIHandler displays the login page (GET /login)
func (s *Server) LoginPageUIHandler() (http.HandlerFunc, error) {
	loginTmpl, err := ParseTemplate("login.html")
	if err != nil {
		return nil, fmt.Errorf("[Server LoginPageUIHandler] failed to parse login template: %w", err)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		data := LoginPageData{
			AppName:        s.config.GetAppName(),
			Error:          query.Get("error"),
			Username:       query.Get("username"),
			SessionExpired: query.Get("session_expired") == "1",
		}
		if data.SessionExpired {
			data.Notice = msgSessionExpired
		}

		w.Header().Set("Content-Type", contentTypeHTML)
		if err := loginTmpl.Execute(w, data); err != nil {
			log.Err(err).Msg("Failed to render login template")
			http.Error(w, "Failed to render login page", http.StatusInternalServerError)
		}
	}, nil
}

// LoginSubmissionHandler authenticates the user, issues the single-session token when the
// policy covers them, and starts the app session.
func (s *Server) LoginSubmissionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}

		username := strings.TrimSpace(r.FormValue("username"))
		password := r.FormValue("password")
		if username == "" || password == "" {
			s.renderLoginError(w, r, msgMissingLoginData, username)
			return
		}

		user, err := users.Authenticate(r.Context(), s.users, username, password)
		if err != nil {
			if !errors.Is(err, users.ErrInvalidCredentials) {
				log.Err(err).Str("username", username).Msg("Login failed")
			}
			s.renderLoginError(w, r, msgInvalidLogin, username)
			return
		}

		tok, issued, err := s.enforcer.OnLogin(r.Context(), user.ID, policy.NewRoleSet(user.Roles...))
		if err != nil {
			log.Err(err).Str("user_id", user.ID).Msg("Failed to issue session token")
			s.renderLoginError(w, r, msgIssuanceFailed, username)
			return
		}

		if err := s.startAppSession(w, r, user.ID); err != nil {
			log.Err(err).Str("user_id", user.ID).Msg("Failed to start app session")
			http.Error(w, "Failed to start session", http.StatusInternalServerError)
			return
		}
		if issued {
			s.setSessionTokenCookie(w, r, tok)
		} else {
			s.clearSessionTokenCookie(w, r)
		}

		log.Info().Str("user_id", user.ID).Bool("single_session", issued).Msg("User logged in")
		redirectSuccess(w, r, RouteIndex)
	}
}

// LogoutHandler ends the app session (POST /auth/logout). The stored token is left alone;
// it is superseded by the next login.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.endAppSession(w, r)
		s.clearSessionTokenCookie(w, r)
		redirectSuccess(w, r, RouteLogin)
	}
}

// renderLoginError redirects to login page with an error message
func (s *Server) renderLoginError(w http.ResponseWriter, r *http.Request, errorMsg, username string) {
	redirectURL := RouteLogin + "?error=" + url.QueryEscape(errorMsg)
	if username != "" {
		redirectURL += "&username=" + url.QueryEscape(username)
	}
	redirectSuccess(w, r, redirectURL)
}
