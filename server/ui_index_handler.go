package server

import (
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
)

// IndexHandler renders the home page for the logged in user
func (s *Server) IndexHandler() (http.HandlerFunc, error) {
	tmpl, err := ParseTemplate("index.html")
	if err != nil {
		return nil, fmt.Errorf("[Server IndexHandler] failed to parse index template: %w", err)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		user := userFromContext(r.Context())
		data := map[string]interface{}{
			"AppName": s.config.GetAppName(),
			"User":    user,
			"IsAdmin": user != nil && user.IsAdministrator(),
		}

		w.Header().Set("Content-Type", contentTypeHTML)
		if err := tmpl.Execute(w, data); err != nil {
			log.Err(err).Msg("Failed to render index template")
		}
	}, nil
}
