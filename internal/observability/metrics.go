// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package observability

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/holomush/campusauth/internal/auth"
)

// Metrics holds the campusauth Prometheus collectors. It implements
// auth.MetricsRecorder.
type Metrics struct {
	OperationsTotal    *prometheus.CounterVec
	LockoutsTotal      prometheus.Counter
	AuditFailuresTotal prometheus.Counter
	HTTPRequestsTotal  *prometheus.CounterVec
}

// NewMetrics creates and registers the campusauth collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campusauth_auth_operations_total",
				Help: "Total number of auth operations by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		LockoutsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "campusauth_lockouts_total",
			Help: "Total number of accounts locked after repeated failures",
		}),
		AuditFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "campusauth_audit_write_failures_total",
			Help: "Total number of audit events that could not be stored",
		}),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campusauth_http_requests_total",
				Help: "Total number of API requests by route and status code",
			},
			[]string{"route", "status"},
		),
	}

	reg.MustRegister(m.OperationsTotal, m.LockoutsTotal, m.AuditFailuresTotal, m.HTTPRequestsTotal)
	return m
}

// RecordOutcome implements auth.MetricsRecorder.
func (m *Metrics) RecordOutcome(operation, outcome string) {
	m.OperationsTotal.WithLabelValues(operation, outcome).Inc()
}

// RecordLockout implements auth.MetricsRecorder.
func (m *Metrics) RecordLockout() {
	m.LockoutsTotal.Inc()
}

// RecordAuditFailure implements auth.MetricsRecorder.
func (m *Metrics) RecordAuditFailure() {
	m.AuditFailuresTotal.Inc()
}

// RecordHTTPRequest counts one API request.
func (m *Metrics) RecordHTTPRequest(route, status string) {
	m.HTTPRequestsTotal.WithLabelValues(route, status).Inc()
}

// Compile-time interface check.
var _ auth.MetricsRecorder = (*Metrics)(nil)
