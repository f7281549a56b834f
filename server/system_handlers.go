package server

import (
	"context"
	"net/http"
	"sort"
	"time"
)

const healthCheckTimeout = 2 * time.Second

// HealthzHandler runs every registered health check (GET /healthz)
func (s *Server) HealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		names := make([]string, 0, len(s.healthChecks))
		for name := range s.healthChecks {
			names = append(names, name)
		}
		sort.Strings(names)

		status := http.StatusOK
		checks := make(map[string]string, len(names))
		for _, name := range names {
			if err := s.healthChecks[name](ctx); err != nil {
				status = http.StatusServiceUnavailable
				checks[name] = err.Error()
				continue
			}
			checks[name] = "ok"
		}

		overall := "ok"
		if status != http.StatusOK {
			overall = "unavailable"
		}
		writeJSON(w, status, map[string]any{"status": overall, "checks": checks})
	}
}
