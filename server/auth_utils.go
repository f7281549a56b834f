package server

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gorilla/sessions"
	"github.com/jrsteele09/go-session-limiter/internal/config"
	"github.com/jrsteele09/go-session-limiter/tokens"
	"github.com/rs/zerolog/log"
)

const (
	// sessionTokenCookieName carries the single-session token issued at login.
	sessionTokenCookieName = "ssl_session_token"
	// appSessionName is the host application's signed login cookie.
	appSessionName   = "limiter_app_session"
	sessionKeyUserID = "user_id"

	contentTypeHTML = "text/html; charset=utf-8"
	contentTypeJSON = "application/json; charset=utf-8"
)

func newSessionStore(cfg config.SecurityConfig) (*sessions.CookieStore, error) {
	key := []byte(cfg.GetSessionSecret())
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("[newSessionStore] failed to generate session key: %w", err)
		}
		log.Warn().Msg("SESSION_SECRET is not set; logins will not survive a restart")
	}

	store := sessions.NewCookieStore(key)
	store.Options = &sessions.Options{
		Path:     "/",
		Domain:   cfg.GetCookieDomain(),
		MaxAge:   0,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return store, nil
}

// startAppSession records userID in the host application's login cookie.
func (s *Server) startAppSession(w http.ResponseWriter, r *http.Request, userID string) error {
	// A cookie that fails to decode still yields a fresh session.
	session, _ := s.sessions.Get(r, appSessionName)
	session.Values[sessionKeyUserID] = userID
	session.Options.Secure = getScheme(r) == "https"
	if err := session.Save(r, w); err != nil {
		return fmt.Errorf("[Server startAppSession] %w", err)
	}
	return nil
}

// endAppSession deletes the host application's login cookie.
func (s *Server) endAppSession(w http.ResponseWriter, r *http.Request) {
	session, _ := s.sessions.Get(r, appSessionName)
	session.Values = make(map[interface{}]interface{})
	session.Options.MaxAge = -1
	session.Options.Secure = getScheme(r) == "https"
	if err := session.Save(r, w); err != nil {
		log.Err(err).Msg("Failed to end app session")
	}
}

// appSessionUserID returns the logged in user id, or "" when there is none.
func (s *Server) appSessionUserID(r *http.Request) string {
	session, err := s.sessions.Get(r, appSessionName)
	if err != nil || session == nil {
		return ""
	}
	userID, _ := session.Values[sessionKeyUserID].(string)
	return userID
}

// setSessionTokenCookie binds tok to the browser for the lifetime of the browser session.
func (s *Server) setSessionTokenCookie(w http.ResponseWriter, r *http.Request, tok tokens.Token) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionTokenCookieName,
		Value:    string(tok),
		Path:     "/",
		Domain:   s.config.GetCookieDomain(),
		HttpOnly: true,
		Secure:   getScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionTokenCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionTokenCookieName,
		Value:    "",
		Path:     "/",
		Domain:   s.config.GetCookieDomain(),
		HttpOnly: true,
		Secure:   getScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// presentedSessionToken returns the token cookie value, or nil when the cookie is absent.
func presentedSessionToken(r *http.Request) *string {
	cookie, err := r.Cookie(sessionTokenCookieName)
	if err != nil {
		return nil
	}
	value := cookie.Value
	return &value
}

// redirectSuccess helper for htmx-aware success redirects
func redirectSuccess(w http.ResponseWriter, r *http.Request, path string) {
	if isHTMXRequest(r) {
		w.Header().Set("HX-Redirect", path)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
}

// redirectWithError helper for htmx-aware error redirects
func redirectWithError(w http.ResponseWriter, r *http.Request, path, errorMsg string) {
	redirectSuccess(w, r, path+"?error="+url.QueryEscape(errorMsg))
}

// isHTMXRequest checks if the request was initiated by HTMX
func isHTMXRequest(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Err(err).Msg("Failed to encode JSON response")
	}
}

func writeJSONError(w http.ResponseWriter, errorCode, description string, statusCode int) {
	writeJSON(w, statusCode, map[string]string{
		"error":             errorCode,
		"error_description": description,
	})
}
