package domain

import "time"

// SystemIssuer marks ledger entries created by the service itself.
const SystemIssuer = "SYSTEM"

// CreditTransaction is an immutable ledger entry.
type CreditTransaction struct {
	ID        string
	Timestamp time.Time
	// Amount is the delta actually applied to the balance.
	Amount int
	// Requested is the delta the issuer asked for; it differs from Amount
	// only when the credit lock clamped the balance at zero.
	Requested int
	Reason    string
	Issuer    string
}

// StatusAction enumerates status log and recovery log actions.
type StatusAction string

const (
	ActionThresholdDrop    StatusAction = "threshold-drop"
	ActionRecovery         StatusAction = "recovery"
	ActionSoftToFull       StatusAction = "soft->full-disable"
	ActionManualDisable    StatusAction = "manual-disable"
	ActionManualReactivate StatusAction = "manual-reactivate"
	ActionReclassified     StatusAction = "reclassified"

	ActionBelowThreshold StatusAction = "below-threshold"
	ActionAboveThreshold StatusAction = "above-threshold"
)

// StatusEvent is an immutable entry in a user's threshold or recovery log.
type StatusEvent struct {
	Timestamp time.Time
	Action    StatusAction
	Note      string
}
