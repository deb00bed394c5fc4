package dto

import "time"

// MemberSummary is the list view of a member.
type MemberSummary struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Email            string     `json:"email"`
	Role             string     `json:"role"`
	Position         string     `json:"position,omitempty"`
	JoinedAt         time.Time  `json:"joined_at"`
	Credits          int        `json:"credits"`
	Threshold        int        `json:"threshold"`
	MinThreshold     *int       `json:"min_threshold"`
	Status           string     `json:"status"`
	SoftDisabled     bool       `json:"soft_disabled"`
	SuspensionReason string     `json:"suspension_reason,omitempty"`
	ApprovalState    string     `json:"approval_state"`
	ManualOverride   *string    `json:"manual_override,omitempty"`
	UpdatedAt        *time.Time `json:"updated_at,omitempty"`
}

// MemberDetail adds the ledger and status logs, newest first.
type MemberDetail struct {
	MemberSummary
	Balance       int                   `json:"balance"`
	History       []TransactionResponse `json:"history"`
	ThresholdLogs []StatusEventResponse `json:"threshold_logs"`
	RecoveryLogs  []StatusEventResponse `json:"recovery_logs"`
}

// TransactionResponse is one ledger entry.
type TransactionResponse struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"ts"`
	Amount    int       `json:"amount"`
	Requested int       `json:"requested"`
	Reason    string    `json:"reason"`
	Issuer    string    `json:"by"`
}

// StatusEventResponse is one status log entry.
type StatusEventResponse struct {
	Timestamp time.Time `json:"ts"`
	Action    string    `json:"action"`
	Note      string    `json:"note,omitempty"`
}

// AdjustCreditsRequest payload for POST /members/:id/credits.
type AdjustCreditsRequest struct {
	Amount        *float64 `json:"amount" validate:"required"`
	Reason        string   `json:"reason" validate:"required"`
	DisableReason string   `json:"disable_reason"`
}

// AdjustCreditsResponse reports the applied change.
type AdjustCreditsResponse struct {
	Member      MemberSummary       `json:"member"`
	Transaction TransactionResponse `json:"transaction"`
	Guard       string              `json:"guard"`
	Clamped     bool                `json:"clamped"`
}

// BulkCreditsRequest payload for POST /credits/bulk.
type BulkCreditsRequest struct {
	UserIDs []string `json:"user_ids" validate:"required,min=1,dive,required"`
	Amount  *float64 `json:"amount" validate:"required"`
	Reason  string   `json:"reason" validate:"required"`
}

// BulkFailure names a member the bulk operation skipped.
type BulkFailure struct {
	UserID string `json:"user_id"`
	Error  string `json:"error"`
}

// BulkCreditsResponse is the per-member result of a bulk adjustment.
type BulkCreditsResponse struct {
	Updated []MemberSummary `json:"updated"`
	Failed  []BulkFailure   `json:"failed"`
}

// StatusChangeRequest payload for disable and reactivate.
type StatusChangeRequest struct {
	Reason string `json:"reason"`
}

// ThresholdRequest payload for PUT /members/:id/threshold.
type ThresholdRequest struct {
	Threshold *int `json:"threshold"`
}
