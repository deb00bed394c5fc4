package engine

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/club-kit/credit-service/internal/domain"
)

var testNow = time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)

func defaultSettings() domain.Settings {
	return domain.Settings{GlobalThreshold: 10, Buffer: 5}
}

func seededUser(credits int, status domain.UserStatus) *domain.User {
	return &domain.User{
		ID:           "u1",
		Name:         "Aman Verma",
		Credits:      credits,
		Status:       status,
		SoftDisabled: status == domain.UserStatusSoftDisabled,
		History: []domain.CreditTransaction{
			{ID: "seed", Timestamp: testNow.Add(-time.Hour), Amount: credits, Requested: credits, Reason: "Welcome bonus", Issuer: domain.SystemIssuer},
		},
	}
}

func intPtr(v int) *int { return &v }

func TestResolveThreshold(t *testing.T) {
	user := &domain.User{}
	require.Equal(t, 10, ResolveThreshold(user, 10))

	user.MinThreshold = intPtr(3)
	require.Equal(t, 3, ResolveThreshold(user, 10))

	user.MinThreshold = intPtr(0)
	require.Equal(t, 0, ResolveThreshold(user, 10))
}

func TestClassifyBoundaries(t *testing.T) {
	tests := []struct {
		name      string
		credits   int
		threshold int
		buffer    int
		want      domain.UserStatus
		soft      bool
	}{
		{name: "at_threshold", credits: 10, threshold: 10, buffer: 5, want: domain.UserStatusActive},
		{name: "above_threshold", credits: 50, threshold: 10, buffer: 5, want: domain.UserStatusActive},
		{name: "just_below", credits: 9, threshold: 10, buffer: 5, want: domain.UserStatusSoftDisabled, soft: true},
		{name: "band_floor", credits: 5, threshold: 10, buffer: 5, want: domain.UserStatusSoftDisabled, soft: true},
		{name: "below_band", credits: 4, threshold: 10, buffer: 5, want: domain.UserStatusDisabled},
		{name: "negative", credits: -2, threshold: 10, buffer: 5, want: domain.UserStatusDisabled},
		{name: "unit_buffer", credits: 9, threshold: 10, buffer: 1, want: domain.UserStatusSoftDisabled, soft: true},
		{name: "unit_buffer_below", credits: 8, threshold: 10, buffer: 1, want: domain.UserStatusDisabled},
		{name: "zero_threshold", credits: 0, threshold: 0, buffer: 5, want: domain.UserStatusActive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.credits, tt.threshold, tt.buffer)
			require.Equal(t, tt.want, got.Status)
			require.Equal(t, tt.soft, got.SoftDisabled)
		})
	}
}

func TestClassifyIsTotal(t *testing.T) {
	for threshold := 0; threshold <= 20; threshold += 5 {
		for buffer := 1; buffer <= 6; buffer++ {
			for credits := -30; credits <= 30; credits++ {
				got := Classify(credits, threshold, buffer)
				require.Contains(t, []domain.UserStatus{domain.UserStatusActive, domain.UserStatusSoftDisabled, domain.UserStatusDisabled}, got.Status)
				require.Equal(t, got, Classify(credits, threshold, buffer))
				if got.SoftDisabled {
					require.NotEqual(t, domain.UserStatusDisabled, got.Status)
				}
			}
		}
	}
}

func TestApplyAdjustmentCrossingDownToSoft(t *testing.T) {
	user := seededUser(12, domain.UserStatusActive)

	next, outcome, err := ApplyAdjustment(user, Adjustment{Amount: -3, Reason: "penalty", Issuer: "leader"}, defaultSettings(), testNow)
	require.NoError(t, err)

	require.Equal(t, 9, next.Credits)
	require.Equal(t, domain.UserStatusSoftDisabled, next.Status)
	require.True(t, next.SoftDisabled)
	require.Empty(t, next.SuspensionReason)
	require.Len(t, next.ThresholdLogs, 1)
	require.Equal(t, domain.ActionThresholdDrop, next.ThresholdLogs[0].Action)
	require.Equal(t, "soft disable - near limit", next.ThresholdLogs[0].Note)
	require.Len(t, next.RecoveryLogs, 1)
	require.Equal(t, domain.ActionBelowThreshold, next.RecoveryLogs[0].Action)
	require.Equal(t, GuardCrossedDown, outcome.Guard)
	require.True(t, outcome.StatusChanged())

	// the input record is never mutated
	require.Equal(t, 12, user.Credits)
	require.Len(t, user.History, 1)
	require.Empty(t, user.ThresholdLogs)
}

func TestApplyAdjustmentSoftToDisabled(t *testing.T) {
	user := seededUser(12, domain.UserStatusActive)
	soft, _, err := ApplyAdjustment(user, Adjustment{Amount: -3, Reason: "penalty", Issuer: "leader"}, defaultSettings(), testNow)
	require.NoError(t, err)

	disabled, outcome, err := ApplyAdjustment(soft, Adjustment{Amount: -6, Reason: "no-show", Issuer: "leader", DisableReason: "Multiple missed meetings"}, defaultSettings(), testNow)
	require.NoError(t, err)

	require.Equal(t, 3, disabled.Credits)
	require.Equal(t, domain.UserStatusDisabled, disabled.Status)
	require.False(t, disabled.SoftDisabled)
	require.Equal(t, "Multiple missed meetings", disabled.SuspensionReason)
	require.Equal(t, GuardSoftToFull, outcome.Guard)
	require.Equal(t, domain.ActionSoftToFull, disabled.ThresholdLogs[len(disabled.ThresholdLogs)-1].Action)
}

func TestApplyAdjustmentDefaultDisableReason(t *testing.T) {
	user := seededUser(12, domain.UserStatusActive)

	next, outcome, err := ApplyAdjustment(user, Adjustment{Amount: -10, Reason: "absence"}, defaultSettings(), testNow)
	require.NoError(t, err)

	require.Equal(t, GuardCrossedDown, outcome.Guard)
	require.Equal(t, domain.UserStatusDisabled, next.Status)
	require.False(t, next.SoftDisabled)
	require.Equal(t, DefaultDisableReason, next.SuspensionReason)
	require.Equal(t, DefaultDisableReason, next.ThresholdLogs[0].Note)
	require.Equal(t, domain.SystemIssuer, next.History[len(next.History)-1].Issuer)
}

func TestApplyAdjustmentRecovery(t *testing.T) {
	user := seededUser(3, domain.UserStatusDisabled)
	user.SuspensionReason = "Multiple missed meetings"

	next, outcome, err := ApplyAdjustment(user, Adjustment{Amount: 20, Reason: "Hackathon winner", Issuer: "Priya"}, defaultSettings(), testNow)
	require.NoError(t, err)

	require.Equal(t, 23, next.Credits)
	require.Equal(t, domain.UserStatusActive, next.Status)
	require.False(t, next.SoftDisabled)
	require.Empty(t, next.SuspensionReason)
	require.Len(t, next.ThresholdLogs, 1)
	require.Equal(t, domain.ActionRecovery, next.ThresholdLogs[0].Action)
	require.Len(t, next.RecoveryLogs, 1)
	require.Equal(t, domain.ActionAboveThreshold, next.RecoveryLogs[0].Action)
	require.Equal(t, GuardCrossedUp, outcome.Guard)
}

func TestApplyAdjustmentNoGuard(t *testing.T) {
	user := seededUser(3, domain.UserStatusDisabled)

	next, outcome, err := ApplyAdjustment(user, Adjustment{Amount: 2, Reason: "attendance"}, defaultSettings(), testNow)
	require.NoError(t, err)

	require.Equal(t, GuardNone, outcome.Guard)
	require.Equal(t, domain.UserStatusDisabled, next.Status)
	require.Empty(t, next.ThresholdLogs)
}

func TestApplyAdjustmentPerUserThreshold(t *testing.T) {
	user := seededUser(12, domain.UserStatusActive)
	user.MinThreshold = intPtr(20)
	user.Status = domain.UserStatusSoftDisabled
	user.SoftDisabled = true

	next, outcome, err := ApplyAdjustment(user, Adjustment{Amount: 8, Reason: "workshop"}, defaultSettings(), testNow)
	require.NoError(t, err)
	require.Equal(t, 20, outcome.Threshold)
	require.Equal(t, GuardCrossedUp, outcome.Guard)
	require.Equal(t, domain.UserStatusActive, next.Status)
}

func TestApplyAdjustmentCreditLock(t *testing.T) {
	settings := defaultSettings()
	settings.CreditLock = true
	user := seededUser(4, domain.UserStatusDisabled)

	for _, amount := range []int{-3, -10, -1, 5, -100} {
		next, outcome, err := ApplyAdjustment(user, Adjustment{Amount: amount, Reason: "sweep"}, settings, testNow)
		require.NoError(t, err)
		require.GreaterOrEqual(t, next.Credits, 0)
		require.Equal(t, amount, outcome.Transaction.Requested)
		require.Equal(t, Balance(next), next.Credits)
		user = next
	}
	require.True(t, user.History[len(user.History)-1].Amount != user.History[len(user.History)-1].Requested)
}

func TestApplyAdjustmentZeroAmountMarker(t *testing.T) {
	user := seededUser(12, domain.UserStatusActive)

	next, outcome, err := ApplyAdjustment(user, Adjustment{Amount: 0, Reason: "season rollover"}, defaultSettings(), testNow)
	require.NoError(t, err)
	require.Equal(t, 12, next.Credits)
	require.Len(t, next.History, 2)
	require.Equal(t, GuardNone, outcome.Guard)
}

func TestApplyAdjustmentRejectsInvalidInput(t *testing.T) {
	user := seededUser(12, domain.UserStatusActive)

	_, _, err := ApplyAdjustment(user, Adjustment{Amount: 5, Reason: "   "}, defaultSettings(), testNow)
	require.True(t, errors.Is(err, ErrInvalidAdjustment))

	_, _, err = ApplyAdjustment(user, Adjustment{Amount: MaxAdjustment + 1, Reason: "bonus"}, defaultSettings(), testNow)
	require.True(t, errors.Is(err, ErrInvalidAdjustment))
	require.Len(t, user.History, 1)
}

func TestApplyAdjustmentClearsManualOverride(t *testing.T) {
	user := seededUser(30, domain.UserStatusActive)
	disabled, err := ManualDisable(user, "code of conduct", testNow)
	require.NoError(t, err)
	require.NotNil(t, disabled.ManualOverride)

	next, _, err := ApplyAdjustment(disabled, Adjustment{Amount: 1, Reason: "attendance"}, defaultSettings(), testNow)
	require.NoError(t, err)
	require.Nil(t, next.ManualOverride)
}

func TestBalanceRoundTrip(t *testing.T) {
	user := seededUser(20, domain.UserStatusActive)
	amounts := []int{-3, 7, -15, -9, 22, 0, -1, 4}
	for i, amount := range amounts {
		before := append([]domain.CreditTransaction(nil), user.History...)
		next, _, err := ApplyAdjustment(user, Adjustment{Amount: amount, Reason: "step"}, defaultSettings(), testNow.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
		require.Len(t, next.History, len(before)+1)
		require.Equal(t, before, next.History[:len(before)])
		require.Equal(t, next.Credits, Balance(next))
		user = next
	}
}

func TestRecentIsNewestFirst(t *testing.T) {
	user := seededUser(20, domain.UserStatusActive)
	next, _, err := ApplyAdjustment(user, Adjustment{Amount: 5, Reason: "later"}, defaultSettings(), testNow)
	require.NoError(t, err)

	recent := Recent(next)
	require.Equal(t, "later", recent[0].Reason)
	require.Equal(t, "Welcome bonus", recent[1].Reason)
	require.Equal(t, "Welcome bonus", next.History[0].Reason)
}

func TestManualDisableAndReactivate(t *testing.T) {
	user := seededUser(30, domain.UserStatusActive)

	disabled, err := ManualDisable(user, "code of conduct", testNow)
	require.NoError(t, err)
	require.Equal(t, domain.UserStatusDisabled, disabled.Status)
	require.False(t, disabled.SoftDisabled)
	require.Equal(t, "code of conduct", disabled.SuspensionReason)
	require.Equal(t, domain.ActionManualDisable, disabled.ThresholdLogs[0].Action)

	active, err := ManualReactivate(disabled, "apology accepted", testNow)
	require.NoError(t, err)
	require.Equal(t, domain.UserStatusActive, active.Status)
	require.Empty(t, active.SuspensionReason)
	require.Len(t, active.ThresholdLogs, 2)
	require.Len(t, active.RecoveryLogs, 1)
	require.Equal(t, domain.ActionManualReactivate, active.RecoveryLogs[0].Action)

	_, err = ManualDisable(user, "", testNow)
	require.True(t, errors.Is(err, ErrInvalidAdjustment))
	_, err = ManualReactivate(user, " ", testNow)
	require.True(t, errors.Is(err, ErrInvalidAdjustment))
}

func TestReconcile(t *testing.T) {
	settings := defaultSettings()

	user := seededUser(8, domain.UserStatusActive)
	next, changed := Reconcile(user, settings, testNow)
	require.True(t, changed)
	require.Equal(t, domain.UserStatusSoftDisabled, next.Status)
	require.True(t, next.SoftDisabled)
	require.Equal(t, domain.UserStatusActive, user.Status)

	same, changed := Reconcile(next, settings, testNow)
	require.False(t, changed)
	require.Same(t, next, same)

	disabled := seededUser(2, domain.UserStatusActive)
	next, changed = Reconcile(disabled, settings, testNow)
	require.True(t, changed)
	require.Equal(t, domain.UserStatusDisabled, next.Status)
	require.Equal(t, DefaultDisableReason, next.SuspensionReason)

	settings.GlobalThreshold = 2
	next, changed = Reconcile(next, settings, testNow)
	require.True(t, changed)
	require.Equal(t, domain.UserStatusActive, next.Status)
	require.Empty(t, next.SuspensionReason)
}

func TestReconcileKeepsReasonUntilActive(t *testing.T) {
	settings := defaultSettings()
	user := seededUser(3, domain.UserStatusDisabled)
	user.SuspensionReason = "Repeated absence"

	user.Credits = 6
	soft, changed := Reconcile(user, settings, testNow)
	require.True(t, changed)
	require.Equal(t, domain.UserStatusSoftDisabled, soft.Status)
	require.Equal(t, "Repeated absence", soft.SuspensionReason)
	require.Len(t, soft.ThresholdLogs, 1)
	require.Equal(t, domain.ActionReclassified, soft.ThresholdLogs[0].Action)
	require.Equal(t, "disabled -> soft-disabled at 6 credits (threshold 10, buffer 5)", soft.ThresholdLogs[0].Note)
	require.Equal(t, testNow, soft.ThresholdLogs[0].Timestamp)
	require.Empty(t, user.ThresholdLogs)

	soft.Credits = 12
	active, changed := Reconcile(soft, settings, testNow)
	require.True(t, changed)
	require.Equal(t, domain.UserStatusActive, active.Status)
	require.Empty(t, active.SuspensionReason)
	require.Len(t, active.ThresholdLogs, 2)
}

func TestReclassifyWritesNoLog(t *testing.T) {
	user := seededUser(2, domain.UserStatusActive)
	next, changed := Reclassify(user, defaultSettings())
	require.True(t, changed)
	require.Equal(t, domain.UserStatusDisabled, next.Status)
	require.Equal(t, DefaultDisableReason, next.SuspensionReason)
	require.Empty(t, next.ThresholdLogs)
}

func TestReconcileSkipsManualOverride(t *testing.T) {
	user := seededUser(2, domain.UserStatusDisabled)
	active, err := ManualReactivate(user, "second chance", testNow)
	require.NoError(t, err)

	next, changed := Reconcile(active, defaultSettings(), testNow)
	require.False(t, changed)
	require.Equal(t, domain.UserStatusActive, next.Status)
}

func TestAmountFromFloat(t *testing.T) {
	got, err := AmountFromFloat(-7)
	require.NoError(t, err)
	require.Equal(t, -7, got)

	for _, bad := range []float64{1.5, math.NaN(), math.Inf(1), math.Inf(-1), MaxAdjustment * 2} {
		_, err := AmountFromFloat(bad)
		require.True(t, errors.Is(err, ErrInvalidAdjustment), "value %v", bad)
	}
}
