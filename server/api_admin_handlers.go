package server

import (
	"net/http"
	"time"

	"github.com/jrsteele09/go-session-limiter/admin"
)

// tokenView is the JSON shape of one active token; the token value is redacted.
type tokenView struct {
	UserID   string    `json:"user_id"`
	Username string    `json:"username,omitempty"`
	Roles    []string  `json:"roles,omitempty"`
	Token    string    `json:"token"`
	IssuedAt time.Time `json:"issued_at"`
	Orphaned bool      `json:"orphaned,omitempty"`
}

type policyView struct {
	Roles      []string  `json:"roles"`
	Version    uint64    `json:"version"`
	UpdatedAt  time.Time `json:"updated_at,omitempty"`
	KnownRoles []string  `json:"known_roles"`
}

// APIAdminTokensHandler lists the active tokens as JSON (GET /api/admin/tokens)
func (s *Server) APIAdminTokensHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := actorFromUser(userFromContext(r.Context()))

		active, err := s.admin.ListActiveTokens(r.Context(), actor)
		if err != nil {
			s.writeAdminError(w, r, err)
			return
		}

		views := make([]tokenView, 0, len(active))
		for _, t := range active {
			views = append(views, newTokenView(t))
		}
		writeJSON(w, http.StatusOK, map[string]any{"tokens": views})
	}
}

// APIAdminPolicyHandler returns the enforcement policy as JSON (GET /api/admin/policy)
func (s *Server) APIAdminPolicyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := actorFromUser(userFromContext(r.Context()))

		p, err := s.admin.GetPolicy(r.Context(), actor)
		if err != nil {
			s.writeAdminError(w, r, err)
			return
		}
		knownRoles, err := s.admin.KnownRoles(r.Context(), actor)
		if err != nil {
			s.writeAdminError(w, r, err)
			return
		}

		view := policyView{Roles: p.Roles.Sorted(), Version: p.Version, UpdatedAt: p.UpdatedAt, KnownRoles: make([]string, 0, len(knownRoles))}
		for _, role := range knownRoles {
			view.KnownRoles = append(view.KnownRoles, role.Key)
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func newTokenView(t admin.ActiveToken) tokenView {
	return tokenView{
		UserID:   t.UserID,
		Username: t.Username,
		Roles:    t.Roles,
		Token:    t.Token.Redacted(),
		IssuedAt: t.IssuedAt.UTC(),
		Orphaned: t.Orphaned,
	}
}
