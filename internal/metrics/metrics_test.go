package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.CredentialVerified("local", "ok")
	m.CredentialVerified("local", "ok")
	m.CredentialVerified("federated", "unavailable")
	m.GateDecision("notEntitled", "trialExpired")
	m.JWKSRefreshed(nil)
	m.JWKSRefreshed(errors.New("timeout"))
	m.BillingEvent("payment_succeeded", "applied")
	m.TrialReminderPublished()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.credentials.WithLabelValues("local", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.credentials.WithLabelValues("federated", "unavailable")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.gateDecisions.WithLabelValues("notEntitled", "trialExpired")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.jwksRefreshes.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.jwksRefreshes.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.billingEvents.WithLabelValues("payment_succeeded", "applied")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.trialReminders))

	count, err := testutil.GatherAndCount(reg)
	assert.NoError(t, err)
	assert.Positive(t, count)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.CredentialVerified("local", "ok")
		m.GateDecision("ok", "")
		m.JWKSRefreshed(nil)
		m.BillingEvent("x", "y")
		m.TrialReminderPublished()
	})
}
