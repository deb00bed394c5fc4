package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/club-kit/credit-service/internal/domain"
	"github.com/club-kit/credit-service/internal/events"
	"github.com/club-kit/credit-service/internal/repository"
	apperrors "github.com/club-kit/credit-service/pkg/util/errorutil"
)

const plan = "I will run two workshops and mentor the new cohort"

func TestRecoverySubmitRules(t *testing.T) {
	f := newFixture(t, defaultSettings())
	ctx := context.Background()
	active := f.addMember(t, "active", 30)
	disabled := f.addMember(t, "disabled", 1)

	_, err := f.recovery.Submit(ctx, active.ID, plan)
	requireCode(t, err, apperrors.CodeConflict)

	_, err = f.recovery.Submit(ctx, disabled.ID, "too short")
	requireCode(t, err, apperrors.CodeValidation)
	_, err = f.recovery.Submit(ctx, disabled.ID, "   "+strings.Repeat("é", MinRecoveryPlanLength-1)+"   ")
	requireCode(t, err, apperrors.CodeValidation)
	_, err = f.recovery.Submit(ctx, disabled.ID, strings.Repeat("x", MaxRecoveryPlanLength+1))
	requireCode(t, err, apperrors.CodeValidation)

	req, err := f.recovery.Submit(ctx, disabled.ID, "  "+plan+"  ")
	require.NoError(t, err)
	require.Equal(t, plan, req.Plan)
	require.Equal(t, domain.RecoveryPending, req.State)

	_, err = f.recovery.Submit(ctx, disabled.ID, plan)
	requireCode(t, err, apperrors.CodeConflict)

	latest, err := f.recovery.Latest(ctx, disabled.ID)
	require.NoError(t, err)
	require.Equal(t, req.ID, latest.ID)

	_, err = f.recovery.Latest(ctx, active.ID)
	requireCode(t, err, apperrors.CodeNotFound)
	require.Len(t, f.events.ofType(events.EventRecoveryRequested), 1)
}

func TestRecoveryApproveReactivates(t *testing.T) {
	f := newFixture(t, defaultSettings())
	ctx := context.Background()
	member := f.addMember(t, "sana", 0)

	req, err := f.recovery.Submit(ctx, member.ID, plan)
	require.NoError(t, err)

	reviewed, err := f.recovery.Approve(ctx, req.ID, "Priya", "")
	require.NoError(t, err)
	require.Equal(t, domain.RecoveryApproved, reviewed.State)
	require.Equal(t, "Priya", reviewed.ReviewedBy)
	require.NotNil(t, reviewed.ReviewedAt)

	stored := f.reload(t, member.ID)
	require.Equal(t, domain.UserStatusActive, stored.Status)
	require.Equal(t, domain.ActionManualReactivate, stored.RecoveryLogs[len(stored.RecoveryLogs)-1].Action)

	_, err = f.recovery.Approve(ctx, req.ID, "Priya", "")
	requireCode(t, err, apperrors.CodeConflict)

	pending, err := f.recovery.ListPending(ctx)
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestRecoveryRejectKeepsDisabled(t *testing.T) {
	f := newFixture(t, defaultSettings())
	ctx := context.Background()
	member := f.addMember(t, "vik", 2)

	req, err := f.recovery.Submit(ctx, member.ID, plan)
	require.NoError(t, err)

	reviewed, err := f.recovery.Reject(ctx, req.ID, "Priya", "plan lacks detail")
	require.NoError(t, err)
	require.Equal(t, domain.RecoveryRejected, reviewed.State)
	require.Equal(t, "plan lacks detail", reviewed.ReviewNote)
	require.Equal(t, domain.UserStatusDisabled, f.reload(t, member.ID).Status)

	_, err = f.recovery.Submit(ctx, member.ID, plan)
	require.NoError(t, err)

	_, err = f.recovery.Reject(ctx, "missing", "Priya", "")
	requireCode(t, err, apperrors.CodeNotFound)
}

func TestConcurrentRecoverySubmitsFileOne(t *testing.T) {
	f := newFixture(t, defaultSettings())
	ctx := context.Background()
	member := f.addMember(t, "nikhil", 1)

	var created atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.recovery.Submit(ctx, member.ID, plan); err == nil {
				created.Add(1)
			}
		}()
	}
	wg.Wait()

	require.EqualValues(t, 1, created.Load())
	pending, err := f.recovery.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
}

func TestConcurrentRecoveryApprovalsReactivateOnce(t *testing.T) {
	f := newFixture(t, defaultSettings())
	ctx := context.Background()
	member := f.addMember(t, "ira", 0)
	req, err := f.recovery.Submit(ctx, member.ID, plan)
	require.NoError(t, err)

	var approved atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.recovery.Approve(ctx, req.ID, "Priya", ""); err == nil {
				approved.Add(1)
			} else {
				var de *apperrors.DomainError
				assert.True(t, errors.As(err, &de) && de.Code == apperrors.CodeConflict, "unexpected error %v", err)
			}
		}()
	}
	wg.Wait()

	require.EqualValues(t, 1, approved.Load())
	stored := f.reload(t, member.ID)
	reactivations := 0
	for _, entry := range stored.RecoveryLogs {
		if entry.Action == domain.ActionManualReactivate {
			reactivations++
		}
	}
	require.Equal(t, 1, reactivations)
	require.Len(t, f.events.ofType(events.EventRecoveryReviewed), 1)
}

func TestRecoveryApproveReopensWhenReactivationFails(t *testing.T) {
	users := &flakyUsers{UserRepository: repository.NewMemoryUserRepository()}
	f := newFixtureWithUsers(t, defaultSettings(), users)
	ctx := context.Background()
	member := f.addMember(t, "om", 0)
	req, err := f.recovery.Submit(ctx, member.ID, plan)
	require.NoError(t, err)

	users.failSave.Store(true)
	_, err = f.recovery.Approve(ctx, req.ID, "Priya", "")
	require.ErrorIs(t, err, errSaveFailed)
	users.failSave.Store(false)

	pending, err := f.recovery.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Nil(t, pending[0].ReviewedAt)
	require.Equal(t, domain.UserStatusDisabled, f.reload(t, member.ID).Status)
	require.Empty(t, f.events.ofType(events.EventRecoveryReviewed))

	reviewed, err := f.recovery.Approve(ctx, req.ID, "Priya", "")
	require.NoError(t, err)
	require.Equal(t, domain.RecoveryApproved, reviewed.State)
	require.Equal(t, domain.UserStatusActive, f.reload(t, member.ID).Status)
}
