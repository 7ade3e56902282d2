// Package metrics holds the Prometheus collectors of the gate. A nil
// *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "strata_gate"

// Metrics groups the counters exported on /metrics.
type Metrics struct {
	credentials    *prometheus.CounterVec
	gateDecisions  *prometheus.CounterVec
	jwksRefreshes  *prometheus.CounterVec
	billingEvents  *prometheus.CounterVec
	trialReminders prometheus.Counter
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		credentials: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "credential_verifications_total",
			Help:      "Bearer credential verifications by scheme and outcome.",
		}, []string{"scheme", "outcome"}),
		gateDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gate_decisions_total",
			Help:      "Gate outcomes by error code, ok for admitted requests.",
		}, []string{"code", "reason"}),
		jwksRefreshes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jwks_refreshes_total",
			Help:      "Identity provider key set fetches by result.",
		}, []string{"result"}),
		billingEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "billing_events_total",
			Help:      "Billing events consumed by type and result.",
		}, []string{"type", "result"}),
		trialReminders: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trial_reminders_published_total",
			Help:      "Trial expiry reminders published.",
		}),
	}
}

// CredentialVerified counts one verification.
func (m *Metrics) CredentialVerified(scheme, outcome string) {
	if m == nil {
		return
	}
	m.credentials.WithLabelValues(scheme, outcome).Inc()
}

// GateDecision counts one gate outcome.
func (m *Metrics) GateDecision(code, reason string) {
	if m == nil {
		return
	}
	m.gateDecisions.WithLabelValues(code, reason).Inc()
}

// JWKSRefreshed counts one key set fetch.
func (m *Metrics) JWKSRefreshed(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.jwksRefreshes.WithLabelValues(result).Inc()
}

// BillingEvent counts one consumed billing event.
func (m *Metrics) BillingEvent(eventType, result string) {
	if m == nil {
		return
	}
	m.billingEvents.WithLabelValues(eventType, result).Inc()
}

// TrialReminderPublished counts one reminder.
func (m *Metrics) TrialReminderPublished() {
	if m == nil {
		return
	}
	m.trialReminders.Inc()
}
