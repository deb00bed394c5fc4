package engine

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/club-kit/credit-service/internal/domain"
)

const (
	// MaxAdjustment bounds a single credit delta in either direction.
	MaxAdjustment = 1_000_000

	// DefaultDisableReason is recorded when a credit change disables a user and
	// the caller did not supply a reason of its own.
	DefaultDisableReason = "Credits fell below the minimum threshold"

	softDisableNote = "soft disable - near limit"
)

// Adjustment is a signed credit delta issued against one user.
type Adjustment struct {
	Amount        int
	Reason        string
	Issuer        string
	DisableReason string
}

// Guard names the transition rule that fired for an adjustment.
type Guard string

const (
	GuardNone        Guard = "none"
	GuardCrossedDown Guard = "crossed-down"
	GuardCrossedUp   Guard = "crossed-up"
	GuardSoftToFull  Guard = "soft-to-full"
)

// Outcome summarises what an adjustment did to a user.
type Outcome struct {
	PreviousCredits int
	Credits         int
	PreviousStatus  domain.UserStatus
	Status          domain.UserStatus
	Threshold       int
	Guard           Guard
	Transaction     domain.CreditTransaction
}

// StatusChanged reports whether the adjustment moved the user to another status.
func (o Outcome) StatusChanged() bool {
	return o.PreviousStatus != o.Status
}

// Clamped reports whether the credit lock reduced the requested delta.
func (o Outcome) Clamped() bool {
	return o.Transaction.Amount != o.Transaction.Requested
}

// ValidateAdjustment normalises adj and rejects it when required fields are missing.
func ValidateAdjustment(adj Adjustment) (Adjustment, error) {
	adj.Reason = strings.TrimSpace(adj.Reason)
	adj.Issuer = strings.TrimSpace(adj.Issuer)
	adj.DisableReason = strings.TrimSpace(adj.DisableReason)
	if adj.Reason == "" {
		return adj, fmt.Errorf("%w: reason required", ErrInvalidAdjustment)
	}
	if adj.Amount > MaxAdjustment || adj.Amount < -MaxAdjustment {
		return adj, fmt.Errorf("%w: amount out of range", ErrInvalidAdjustment)
	}
	if adj.Issuer == "" {
		adj.Issuer = domain.SystemIssuer
	}
	if adj.DisableReason == "" {
		adj.DisableReason = DefaultDisableReason
	}
	return adj, nil
}

// AmountFromFloat converts a decoded JSON number into a credit delta.
func AmountFromFloat(v float64) (int, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: amount must be finite", ErrInvalidAdjustment)
	}
	if v != math.Trunc(v) {
		return 0, fmt.Errorf("%w: amount must be an integer", ErrInvalidAdjustment)
	}
	if v > MaxAdjustment || v < -MaxAdjustment {
		return 0, fmt.Errorf("%w: amount out of range", ErrInvalidAdjustment)
	}
	return int(v), nil
}

// ApplyAdjustment applies adj to user and returns the replacement record.
// The guards run in order and the first match wins: crossing down, crossing
// up, falling from soft-disabled to disabled. Otherwise the status is left for
// the next reconciliation pass.
func ApplyAdjustment(user *domain.User, adj Adjustment, settings domain.Settings, now time.Time) (*domain.User, Outcome, error) {
	adj, err := ValidateAdjustment(adj)
	if err != nil {
		return nil, Outcome{}, err
	}

	newCredits := user.Credits + adj.Amount
	if settings.CreditLock && newCredits < 0 {
		newCredits = 0
	}
	threshold := ResolveThreshold(user, settings.GlobalThreshold)
	prevBelow := user.Credits < threshold
	nowBelow := newCredits < threshold

	tx := domain.CreditTransaction{
		Timestamp: now,
		Amount:    newCredits - user.Credits,
		Requested: adj.Amount,
		Reason:    adj.Reason,
		Issuer:    adj.Issuer,
	}
	next := Append(user, tx)
	tx = next.History[len(next.History)-1]
	next.Credits = newCredits
	next.ManualOverride = nil
	next.UpdatedAt = now

	outcome := Outcome{
		PreviousCredits: user.Credits,
		Credits:         newCredits,
		PreviousStatus:  user.Status,
		Threshold:       threshold,
		Guard:           GuardNone,
		Transaction:     tx,
	}

	switch {
	case nowBelow && !prevBelow:
		cls := Classify(newCredits, threshold, settings.Buffer)
		next.Status = cls.Status
		next.SoftDisabled = cls.SoftDisabled
		note := softDisableNote
		if cls.Status == domain.UserStatusDisabled {
			note = adj.DisableReason
		}
		next.ThresholdLogs = append(next.ThresholdLogs, domain.StatusEvent{Timestamp: now, Action: domain.ActionThresholdDrop, Note: note})
		if newCredits < threshold {
			next.RecoveryLogs = append(next.RecoveryLogs, domain.StatusEvent{
				Timestamp: now,
				Action:    domain.ActionBelowThreshold,
				Note:      fmt.Sprintf("credits %d below threshold %d", newCredits, threshold),
			})
		}
		if newCredits < threshold-settings.Buffer {
			next.SuspensionReason = adj.DisableReason
		}
		outcome.Guard = GuardCrossedDown
	case !nowBelow && prevBelow:
		next.Status = domain.UserStatusActive
		next.SoftDisabled = false
		next.SuspensionReason = ""
		next.ThresholdLogs = append(next.ThresholdLogs, domain.StatusEvent{Timestamp: now, Action: domain.ActionRecovery, Note: adj.Reason})
		next.RecoveryLogs = append(next.RecoveryLogs, domain.StatusEvent{
			Timestamp: now,
			Action:    domain.ActionAboveThreshold,
			Note:      fmt.Sprintf("credits %d reached threshold %d", newCredits, threshold),
		})
		outcome.Guard = GuardCrossedUp
	case user.Status == domain.UserStatusSoftDisabled && newCredits < threshold-settings.Buffer:
		next.Status = domain.UserStatusDisabled
		next.SoftDisabled = false
		next.SuspensionReason = adj.DisableReason
		next.ThresholdLogs = append(next.ThresholdLogs, domain.StatusEvent{Timestamp: now, Action: domain.ActionSoftToFull, Note: adj.DisableReason})
		outcome.Guard = GuardSoftToFull
	}

	outcome.Status = next.Status
	return next, outcome, nil
}

// ManualDisable forces user into the disabled state with reason.
func ManualDisable(user *domain.User, reason string, now time.Time) (*domain.User, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: suspension reason required", ErrInvalidAdjustment)
	}
	next := user.Clone()
	next.Status = domain.UserStatusDisabled
	next.SoftDisabled = false
	next.SuspensionReason = reason
	next.ThresholdLogs = append(next.ThresholdLogs, domain.StatusEvent{Timestamp: now, Action: domain.ActionManualDisable, Note: reason})
	action := domain.ActionManualDisable
	next.ManualOverride = &action
	next.UpdatedAt = now
	return next, nil
}

// ManualReactivate forces user back to active regardless of credits.
func ManualReactivate(user *domain.User, reason string, now time.Time) (*domain.User, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: reactivation reason required", ErrInvalidAdjustment)
	}
	next := user.Clone()
	next.Status = domain.UserStatusActive
	next.SoftDisabled = false
	next.SuspensionReason = ""
	event := domain.StatusEvent{Timestamp: now, Action: domain.ActionManualReactivate, Note: reason}
	next.ThresholdLogs = append(next.ThresholdLogs, event)
	next.RecoveryLogs = append(next.RecoveryLogs, event)
	action := domain.ActionManualReactivate
	next.ManualOverride = &action
	next.UpdatedAt = now
	return next, nil
}
