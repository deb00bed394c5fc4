package domain

import "time"

// Role separates club leaders from regular members.
type Role string

const (
	RoleLeader Role = "leader"
	RoleMember Role = "member"
)

// UserStatus is the credit standing derived from credits, threshold and buffer.
type UserStatus string

const (
	UserStatusActive       UserStatus = "active"
	UserStatusSoftDisabled UserStatus = "soft-disabled"
	UserStatusDisabled     UserStatus = "disabled"
)

// ApprovalState gates access to the rest of the system. It is orthogonal to UserStatus.
type ApprovalState string

const (
	ApprovalPending  ApprovalState = "pending"
	ApprovalApproved ApprovalState = "approved"
	ApprovalRejected ApprovalState = "rejected"
)

// User is the aggregate root of the credit engine.
type User struct {
	ID               string
	Name             string
	Email            string
	PasswordHash     string
	Role             Role
	Position         string
	JoinedAt         time.Time
	Credits          int
	OpeningBalance   int
	Status           UserStatus
	SoftDisabled     bool
	MinThreshold     *int
	SuspensionReason string
	ApprovalState    ApprovalState
	// ManualOverride holds the last manual action until the next credit change.
	ManualOverride *StatusAction
	History        []CreditTransaction
	ThresholdLogs  []StatusEvent
	RecoveryLogs   []StatusEvent
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsLeader reports whether the user may manage other members.
func (u *User) IsLeader() bool {
	return u.Role == RoleLeader
}

// HasThresholdOverride reports whether the user carries a per-user threshold.
func (u *User) HasThresholdOverride() bool {
	return u.MinThreshold != nil
}

// Clone returns a deep copy so callers can replace records whole.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.MinThreshold != nil {
		v := *u.MinThreshold
		c.MinThreshold = &v
	}
	if u.ManualOverride != nil {
		v := *u.ManualOverride
		c.ManualOverride = &v
	}
	c.History = append([]CreditTransaction(nil), u.History...)
	c.ThresholdLogs = append([]StatusEvent(nil), u.ThresholdLogs...)
	c.RecoveryLogs = append([]StatusEvent(nil), u.RecoveryLogs...)
	return &c
}
