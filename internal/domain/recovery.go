package domain

import "time"

// RecoveryState tracks the review outcome of a recovery request.
type RecoveryState string

const (
	RecoveryPending  RecoveryState = "pending"
	RecoveryApproved RecoveryState = "approved"
	RecoveryRejected RecoveryState = "rejected"
)

// RecoveryRequest is a disabled member's plan to earn their way back.
type RecoveryRequest struct {
	ID         string
	UserID     string
	Plan       string
	State      RecoveryState
	ReviewNote string
	ReviewedBy string
	CreatedAt  time.Time
	ReviewedAt *time.Time
}
