// Package metrics exposes Prometheus counters for token issuance, validation outcomes
// and administrative actions. A nil *Recorder is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "limiter"

type Recorder struct {
	issued        prometheus.Counter
	issueFailures prometheus.Counter
	validations   *prometheus.CounterVec
	adminActions  *prometheus.CounterVec
}

// New creates a Recorder and registers its collectors on reg.
func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		issued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_issued_total",
			Help:      "Session tokens written on login.",
		}),
		issueFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "issuance_failures_total",
			Help:      "Logins whose session token could not be persisted.",
		}),
		validations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validations_total",
			Help:      "Per-request token validations by result.",
		}, []string{"result"}),
		adminActions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admin_actions_total",
			Help:      "Administrative commands by action and outcome.",
		}, []string{"action", "outcome"}),
	}
	reg.MustRegister(r.issued, r.issueFailures, r.validations, r.adminActions)
	return r
}

func (r *Recorder) TokenIssued() {
	if r == nil {
		return
	}
	r.issued.Inc()
}

func (r *Recorder) IssueFailed() {
	if r == nil {
		return
	}
	r.issueFailures.Inc()
}

func (r *Recorder) Validation(result string) {
	if r == nil {
		return
	}
	r.validations.WithLabelValues(result).Inc()
}

// AdminAction counts one administrative command; outcome is "ok", "denied" or "error".
func (r *Recorder) AdminAction(action, outcome string) {
	if r == nil {
		return
	}
	r.adminActions.WithLabelValues(action, outcome).Inc()
}
