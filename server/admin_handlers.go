package server

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/jrsteele09/go-session-limiter/admin"
	"github.com/jrsteele09/go-session-limiter/internal/errors"
	"github.com/jrsteele09/go-session-limiter/policy"
	"github.com/rs/zerolog/log"
)

type roleOption struct {
	Key     string
	Name    string
	Checked bool
}

type tokenRow struct {
	UserID      string
	Username    string
	Roles       string
	Token       string
	IssuedAt    string
	Orphaned    bool
	ExpireNonce string
}

type adminPageData struct {
	AppName       string
	UserName      string
	Roles         []roleOption
	Policy        policy.EnforcementPolicy
	Tokens        []tokenRow
	SettingsNonce string
	ClearNonce    string
	PruneNonce    string
	Notice        string
	Error         string
}

// AdminSessionLimiterHandler renders the role checklist and the active token table.
func (s *Server) AdminSessionLimiterHandler() (http.HandlerFunc, error) {
	tmpl, err := ParseTemplate("admin_session_limiter.html")
	if err != nil {
		return nil, fmt.Errorf("[Server AdminSessionLimiterHandler] failed to parse template: %w", err)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		user := userFromContext(r.Context())
		actor := actorFromUser(user)
		ctx := r.Context()

		p, err := s.admin.GetPolicy(ctx, actor)
		if err != nil {
			s.writeAdminError(w, r, err)
			return
		}
		knownRoles, err := s.admin.KnownRoles(ctx, actor)
		if err != nil {
			s.writeAdminError(w, r, err)
			return
		}
		active, err := s.admin.ListActiveTokens(ctx, actor)
		if err != nil {
			s.writeAdminError(w, r, err)
			return
		}

		data := adminPageData{
			AppName:  s.config.GetAppName(),
			UserName: user.Username,
			Policy:   p,
			Notice:   noticeMessage(r.URL.Query()),
			Error:    r.URL.Query().Get("error"),
		}
		for _, role := range knownRoles {
			data.Roles = append(data.Roles, roleOption{Key: role.Key, Name: role.Name, Checked: p.Roles.Has(role.Key)})
		}
		for _, t := range active {
			nonce, err := s.admin.Nonce(actor, admin.ActionExpire, t.UserID)
			if err != nil {
				s.writeAdminError(w, r, err)
				return
			}
			data.Tokens = append(data.Tokens, tokenRow{
				UserID:      t.UserID,
				Username:    t.Username,
				Roles:       strings.Join(t.Roles, ", "),
				Token:       t.Token.Redacted(),
				IssuedAt:    formatTime(t.IssuedAt),
				Orphaned:    t.Orphaned,
				ExpireNonce: nonce,
			})
		}
		if data.SettingsNonce, err = s.admin.Nonce(actor, admin.ActionSaveSettings, ""); err != nil {
			s.writeAdminError(w, r, err)
			return
		}
		if data.ClearNonce, err = s.admin.Nonce(actor, admin.ActionClearAll, ""); err != nil {
			s.writeAdminError(w, r, err)
			return
		}
		if data.PruneNonce, err = s.admin.Nonce(actor, admin.ActionPrune, ""); err != nil {
			s.writeAdminError(w, r, err)
			return
		}

		w.Header().Set("Content-Type", contentTypeHTML)
		w.Header().Set("Cache-Control", "no-store")
		if err := tmpl.Execute(w, data); err != nil {
			log.Err(err).Msg("Failed to render session limiter admin page")
		}
	}, nil
}

// AdminSaveSettingsHandler replaces the enforced role set with the checked roles.
func (s *Server) AdminSaveSettingsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		actor := actorFromUser(userFromContext(r.Context()))

		if _, err := s.admin.SetPolicy(r.Context(), actor, r.PostFormValue("nonce"), r.PostForm["roles"]); err != nil {
			s.writeAdminError(w, r, err)
			return
		}
		redirectSuccess(w, r, RouteAdminSessionLimiter+"?notice=saved")
	}
}

// AdminExpireSessionHandler deletes the stored token of user_id.
func (s *Server) AdminExpireSessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		actor := actorFromUser(userFromContext(r.Context()))
		userID := strings.TrimSpace(r.PostFormValue("user_id"))
		if userID == "" {
			http.Error(w, "user_id is required", http.StatusBadRequest)
			return
		}

		removed, err := s.admin.ForceExpire(r.Context(), actor, r.PostFormValue("nonce"), userID)
		if err != nil {
			s.writeAdminError(w, r, err)
			return
		}
		notice := "expired"
		if !removed {
			notice = "not_found"
		}
		redirectSuccess(w, r, RouteAdminSessionLimiter+"?notice="+notice+"&user_id="+url.QueryEscape(userID))
	}
}

// AdminClearSessionsHandler deletes every stored token.
func (s *Server) AdminClearSessionsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		actor := actorFromUser(userFromContext(r.Context()))

		n, err := s.admin.ClearAll(r.Context(), actor, r.PostFormValue("nonce"))
		if err != nil {
			s.writeAdminError(w, r, err)
			return
		}
		redirectSuccess(w, r, RouteAdminSessionLimiter+"?notice=cleared&count="+strconv.Itoa(n))
	}
}

// AdminPruneOrphansHandler deletes tokens of users missing from the directory.
func (s *Server) AdminPruneOrphansHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		actor := actorFromUser(userFromContext(r.Context()))

		n, err := s.admin.PruneOrphans(r.Context(), actor, r.PostFormValue("nonce"))
		if err != nil {
			s.writeAdminError(w, r, err)
			return
		}
		redirectSuccess(w, r, RouteAdminSessionLimiter+"?notice=pruned&count="+strconv.Itoa(n))
	}
}

func noticeMessage(q url.Values) string {
	switch q.Get("notice") {
	case "saved":
		return "Settings saved."
	case "expired":
		return "Session expired for user " + q.Get("user_id") + "."
	case "not_found":
		return "No active session for user " + q.Get("user_id") + "."
	case "cleared":
		return "Cleared " + q.Get("count") + " session token(s)."
	case "pruned":
		return "Pruned " + q.Get("count") + " orphaned session token(s)."
	}
	return ""
}

func adminErrorStatus(err error) int {
	switch {
	case errors.Is(err, errors.ErrUnauthorizedAdminAction):
		return http.StatusForbidden
	case errors.Is(err, errors.ErrUnknownRole), errors.Is(err, errors.ErrInvalidRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeAdminError(w http.ResponseWriter, r *http.Request, err error) {
	status := adminErrorStatus(err)
	if status == http.StatusInternalServerError {
		log.Err(err).Str("path", r.URL.Path).Msg("Admin action failed")
	} else {
		log.Warn().Err(err).Str("path", r.URL.Path).Msg("Admin action rejected")
	}

	if isAPIRequest(r) {
		writeJSONError(w, strings.ReplaceAll(strings.ToLower(http.StatusText(status)), " ", "_"), err.Error(), status)
		return
	}
	if status == http.StatusBadRequest {
		redirectWithError(w, r, RouteAdminSessionLimiter, err.Error())
		return
	}
	http.Error(w, fmt.Sprintf("%d - %s", status, http.StatusText(status)), status)
}
