package events

import (
	"time"

	"github.com/club-kit/credit-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventCreditAdjusted    EventType = "credit_adjusted"
	EventStatusChanged     EventType = "status_changed"
	EventSettingsChanged   EventType = "settings_changed"
	EventMemberApproved    EventType = "member_approved"
	EventMemberRejected    EventType = "member_rejected"
	EventRecoveryRequested EventType = "recovery_requested"
	EventRecoveryReviewed  EventType = "recovery_reviewed"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	UserID    string      `json:"user_id,omitempty"`
	Actor     string      `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// CreditAdjustedPayload payload.
type CreditAdjustedPayload struct {
	TransactionID string `json:"transaction_id"`
	Amount        int    `json:"amount"`
	Requested     int    `json:"requested"`
	Reason        string `json:"reason"`
	Credits       int    `json:"credits"`
	Bulk          bool   `json:"bulk,omitempty"`
}

// StatusChangedPayload payload.
type StatusChangedPayload struct {
	OldStatus domain.UserStatus `json:"old_status"`
	NewStatus domain.UserStatus `json:"new_status"`
	Cause     string            `json:"cause"`
	Note      string            `json:"note,omitempty"`
}

// SettingsChangedPayload payload.
type SettingsChangedPayload struct {
	GlobalThreshold int  `json:"global_threshold"`
	Buffer          int  `json:"buffer"`
	CreditLock      bool `json:"credit_lock"`
	Reconciled      int  `json:"reconciled"`
}

// RecoveryPayload payload.
type RecoveryPayload struct {
	RequestID string               `json:"request_id"`
	State     domain.RecoveryState `json:"state"`
}
