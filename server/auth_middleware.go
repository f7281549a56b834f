package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-session-limiter/admin"
	"github.com/jrsteele09/go-session-limiter/policy"
	"github.com/jrsteele09/go-session-limiter/users"
	"github.com/rs/zerolog/log"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// ContextKeyUser stores the authenticated *users.User
const ContextKeyUser ContextKey = "user"

func userFromContext(ctx context.Context) *users.User {
	user, _ := ctx.Value(ContextKeyUser).(*users.User)
	return user
}

func actorFromUser(user *users.User) admin.Actor {
	return admin.Actor{UserID: user.ID, Roles: user.Roles}
}

func isAPIRequest(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/")
}

// RequireLogin resolves the logged in user from the app session cookie and the directory.
// Unknown and blocked users have their session ended.
func (s *Server) RequireLogin() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			userID := s.appSessionUserID(r)
			if userID == "" {
				s.denyUnauthenticated(w, r, RouteLogin)
				return
			}

			user, err := s.users.GetByID(r.Context(), userID)
			if err != nil || user.Blocked {
				if err != nil {
					log.Warn().Err(err).Str("user_id", userID).Msg("Session user not found in directory")
				}
				s.endAppSession(w, r)
				s.clearSessionTokenCookie(w, r)
				s.denyUnauthenticated(w, r, RouteLogin)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyUser, user)
			next(w, r.WithContext(ctx))
		}
	}
}

// RequireSingleSession ends the session of an in-policy user whose token cookie no longer
// matches the stored token. Must be chained after RequireLogin.
func (s *Server) RequireSingleSession() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			user := userFromContext(r.Context())
			if user == nil {
				s.denyUnauthenticated(w, r, RouteLogin)
				return
			}

			decision, err := s.enforcer.Check(r.Context(), user.ID, policy.NewRoleSet(user.Roles...), presentedSessionToken(r))
			if err != nil {
				log.Err(err).Str("user_id", user.ID).Msg("Session validation failed")
			}
			if !decision.Allowed() {
				log.Info().
					Str("user_id", user.ID).
					Str("result", decision.Result.String()).
					Msg("Ending session superseded by a newer login")
				s.endAppSession(w, r)
				s.clearSessionTokenCookie(w, r)
				s.denyUnauthenticated(w, r, RouteLogin+"?"+sessionExpiredQuery)
				return
			}

			next(w, r)
		}
	}
}

// RequireAdmin rejects users without the administrator role. Must be chained after RequireLogin.
func (s *Server) RequireAdmin() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			user := userFromContext(r.Context())
			if user == nil || !user.IsAdministrator() {
				if isAPIRequest(r) {
					writeJSONError(w, "forbidden", "Administrator access required", http.StatusForbidden)
					return
				}
				http.Error(w, "403 - Forbidden", http.StatusForbidden)
				return
			}
			next(w, r)
		}
	}
}

// denyUnauthenticated redirects browsers to location; API callers get a 401 instead.
func (s *Server) denyUnauthenticated(w http.ResponseWriter, r *http.Request, location string) {
	if isAPIRequest(r) {
		writeJSONError(w, "unauthorized", "Login required", http.StatusUnauthorized)
		return
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}
