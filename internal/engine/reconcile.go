package engine

import (
	"fmt"
	"time"

	"github.com/club-kit/credit-service/internal/domain"
)

// Reclassify derives status and softDisabled from credits and the resolved
// threshold. It returns the original pointer and false when nothing changes.
// The suspension reason is kept until the result is active; a disabled result
// without one gets DefaultDisableReason. No log entry is written, so this
// suits records that have no status yet.
func Reclassify(user *domain.User, settings domain.Settings) (*domain.User, bool) {
	cls := Classify(user.Credits, ResolveThreshold(user, settings.GlobalThreshold), settings.Buffer)
	wantReason := user.SuspensionReason
	switch {
	case cls.Status == domain.UserStatusActive:
		wantReason = ""
	case cls.Status == domain.UserStatusDisabled && wantReason == "":
		wantReason = DefaultDisableReason
	}
	if user.Status == cls.Status && user.SoftDisabled == cls.SoftDisabled && user.SuspensionReason == wantReason {
		return user, false
	}
	next := user.Clone()
	next.Status = cls.Status
	next.SoftDisabled = cls.SoftDisabled
	next.SuspensionReason = wantReason
	return next, true
}

// Reconcile is Reclassify for stored members. A status change is recorded in
// the threshold log. Users whose last action was a manual override keep their
// status until the next credit change.
func Reconcile(user *domain.User, settings domain.Settings, now time.Time) (*domain.User, bool) {
	if user.ManualOverride != nil {
		return user, false
	}
	next, changed := Reclassify(user, settings)
	if !changed {
		return user, false
	}
	if next.Status != user.Status {
		next.ThresholdLogs = append(next.ThresholdLogs, domain.StatusEvent{
			Timestamp: now,
			Action:    domain.ActionReclassified,
			Note: fmt.Sprintf("%s -> %s at %d credits (threshold %d, buffer %d)",
				user.Status, next.Status, next.Credits, ResolveThreshold(next, settings.GlobalThreshold), settings.Buffer),
		})
		next.UpdatedAt = now
	}
	return next, true
}
