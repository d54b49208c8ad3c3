// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridHold Contributors

package claim

// Status is the outcome of an engine workflow. Validation outcomes are
// expected and never logged as errors; collaborator failures carry a distinct
// status per failing collaborator so callers can present different messages.
type Status string

// Workflow outcomes.
const (
	StatusSuccess Status = "success"

	// Validation outcomes.
	StatusAlreadyClaimed    Status = "already-claimed"
	StatusWorldDisabled     Status = "world-disabled"
	StatusLimitReached      Status = "limit-reached"
	StatusInsufficientFunds Status = "insufficient-funds"
	StatusTooClose          Status = "too-close"
	StatusNameTooLong       Status = "name-too-long"
	StatusNameExists        Status = "name-exists"
	StatusNotOwner          Status = "not-owner"
	StatusNotForSale        Status = "not-for-sale"
	StatusInvalidPrice      Status = "invalid-price"
	StatusTrustRejected     Status = "trust-rejected"

	// Collaborator failures.
	StatusGeofenceError Status = "geofence-error"
	StatusStoreError    Status = "store-error"
	StatusEconomyError  Status = "economy-error"
)

// String implements fmt.Stringer.
func (s Status) String() string {
	return string(s)
}

// OK reports whether the workflow succeeded.
func (s Status) OK() bool {
	return s == StatusSuccess
}

// CollaboratorFailure reports whether the status maps to an unexpected
// collaborator failure rather than an expected validation outcome.
func (s Status) CollaboratorFailure() bool {
	switch s {
	case StatusGeofenceError, StatusStoreError, StatusEconomyError:
		return true
	default:
		return false
	}
}
