package metrics_test

import (
	"testing"

	"github.com/jrsteele09/go-session-limiter/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := metrics.New(reg)

	r.TokenIssued()
	r.TokenIssued()
	r.IssueFailed()
	r.Validation("valid")
	r.Validation("mismatch")
	r.Validation("mismatch")
	r.AdminAction("expire", "ok")

	count, err := testutil.GatherAndCount(reg,
		"limiter_tokens_issued_total",
		"limiter_issuance_failures_total",
		"limiter_validations_total",
		"limiter_admin_actions_total",
	)
	require.NoError(t, err)
	// one series each for the plain counters, two validation results, one admin action
	require.Equal(t, 5, count)
}

func TestRecorder_NilIsNoop(t *testing.T) {
	var r *metrics.Recorder
	require.NotPanics(t, func() {
		r.TokenIssued()
		r.IssueFailed()
		r.Validation("valid")
		r.AdminAction("clear", "ok")
	})
}
