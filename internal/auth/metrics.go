// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

// MetricsRecorder receives counters from the Service and AuditLog.
type MetricsRecorder interface {
	// RecordOutcome counts one finished operation ("register",
	// "authenticate", "validate_session", "invalidate_session") by outcome
	// ("success" or an error Kind).
	RecordOutcome(operation, outcome string)

	// RecordLockout counts one account lock transition.
	RecordLockout()

	// RecordAuditFailure counts one audit event that could not be stored.
	RecordAuditFailure()
}

// NopMetrics discards all measurements.
type NopMetrics struct{}

// RecordOutcome does nothing.
func (NopMetrics) RecordOutcome(string, string) {}

// RecordLockout does nothing.
func (NopMetrics) RecordLockout() {}

// RecordAuditFailure does nothing.
func (NopMetrics) RecordAuditFailure() {}
