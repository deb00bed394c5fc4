package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/club-kit/credit-service/internal/auth"
	"github.com/club-kit/credit-service/internal/domain"
	"github.com/club-kit/credit-service/internal/events"
	apperrors "github.com/club-kit/credit-service/pkg/util/errorutil"
)

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	var de *apperrors.DomainError
	require.True(t, errors.As(err, &de), "expected DomainError, got %v", err)
	require.Equal(t, code, de.Code)
}

func TestSignupSeedsLedger(t *testing.T) {
	f := newFixture(t, defaultSettings())
	ctx := context.Background()

	user, token, _, err := f.members.Signup(ctx, SignupInput{Name: "Aarav Shah", Email: "Aarav@Club.org", Password: "secret123", Position: "Designer"})
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.Equal(t, "aarav@club.org", user.Email)
	require.Equal(t, domain.ApprovalPending, user.ApprovalState)
	require.Equal(t, domain.UserStatusActive, user.Status)
	require.Equal(t, 20, user.Credits)
	require.Zero(t, user.OpeningBalance)
	require.Len(t, user.History, 1)
	require.Equal(t, "Welcome bonus", user.History[0].Reason)
	require.Equal(t, domain.SystemIssuer, user.History[0].Issuer)
	require.Equal(t, user.Credits, f.credits.Balance(user))

	claims, err := auth.NewTokenManager("test-secret", 60).ParseToken(token)
	require.NoError(t, err)
	require.Equal(t, user.ID, claims.UserID)
	require.Equal(t, domain.RoleMember, claims.Role)

	_, _, _, err = f.members.Signup(ctx, SignupInput{Name: "Other", Email: "aarav@club.org", Password: "secret123"})
	requireCode(t, err, apperrors.CodeConflict)

	_, _, _, err = f.members.Signup(ctx, SignupInput{Name: "  ", Email: "not-an-email", Password: "x"})
	requireCode(t, err, apperrors.CodeValidation)
	var de *apperrors.DomainError
	require.True(t, errors.As(err, &de))
	require.Equal(t, map[string]any{"name": "required", "email": "email", "password": "min=6"}, de.Details)
}

func TestLoginChecksPasswordAndRole(t *testing.T) {
	f := newFixture(t, defaultSettings())
	ctx := context.Background()

	_, _, _, err := f.members.Signup(ctx, SignupInput{Name: "Diya", Email: "diya@club.org", Password: "secret123"})
	require.NoError(t, err)

	user, token, _, err := f.members.Login(ctx, "DIYA@club.org", "secret123", false)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.Equal(t, "Diya", user.Name)

	_, _, _, err = f.members.Login(ctx, "diya@club.org", "wrong-pass", false)
	requireCode(t, err, apperrors.CodeUnauthorized)
	_, _, _, err = f.members.Login(ctx, "diya@club.org", "secret123", true)
	requireCode(t, err, apperrors.CodeUnauthorized)
	_, _, _, err = f.members.Login(ctx, "nobody@club.org", "secret123", false)
	requireCode(t, err, apperrors.CodeUnauthorized)
}

func TestEnsureLeaderIsIdempotent(t *testing.T) {
	f := newFixture(t, defaultSettings())
	ctx := context.Background()

	leader, created, err := f.members.EnsureLeader(ctx, "Priya Kapoor", "priya@club.org", "leader123")
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, domain.RoleLeader, leader.Role)
	require.Equal(t, domain.ApprovalApproved, leader.ApprovalState)

	again, created, err := f.members.EnsureLeader(ctx, "Priya Kapoor", "priya@club.org", "leader123")
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, leader.ID, again.ID)

	_, _, _, err = f.members.Login(ctx, "priya@club.org", "leader123", true)
	require.NoError(t, err)

	none, created, err := f.members.EnsureLeader(ctx, "", "", "")
	require.NoError(t, err)
	require.False(t, created)
	require.Nil(t, none)
}

func TestApproveAndReject(t *testing.T) {
	f := newFixture(t, defaultSettings())
	ctx := context.Background()

	first, _, _, err := f.members.Signup(ctx, SignupInput{Name: "Kabir", Email: "kabir@club.org", Password: "secret123"})
	require.NoError(t, err)
	second, _, _, err := f.members.Signup(ctx, SignupInput{Name: "Zoya", Email: "zoya@club.org", Password: "secret123"})
	require.NoError(t, err)

	pending, err := f.members.List(ctx, domain.ApprovalPending)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	approved, err := f.members.Approve(ctx, first.ID, "Priya")
	require.NoError(t, err)
	require.Equal(t, domain.ApprovalApproved, approved.ApprovalState)
	require.Len(t, f.events.ofType(events.EventMemberApproved), 1)

	_, err = f.members.Approve(ctx, first.ID, "Priya")
	requireCode(t, err, apperrors.CodeConflict)
	_, err = f.members.Reject(ctx, first.ID, "Priya")
	requireCode(t, err, apperrors.CodeConflict)

	rejected, err := f.members.Reject(ctx, second.ID, "Priya")
	require.NoError(t, err)
	require.Equal(t, domain.ApprovalRejected, rejected.ApprovalState)

	reconsidered, err := f.members.Approve(ctx, second.ID, "Priya")
	require.NoError(t, err)
	require.Equal(t, domain.ApprovalApproved, reconsidered.ApprovalState)

	all, err := f.members.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestConcurrentReviewsApplyOnce(t *testing.T) {
	f := newFixture(t, defaultSettings())
	ctx := context.Background()

	approvee, _, _, err := f.members.Signup(ctx, SignupInput{Name: "Reyansh", Email: "reyansh@club.org", Password: "secret123"})
	require.NoError(t, err)
	rejectee, _, _, err := f.members.Signup(ctx, SignupInput{Name: "Myra", Email: "myra@club.org", Password: "secret123"})
	require.NoError(t, err)

	var approvals, rejections atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := f.members.Approve(ctx, approvee.ID, "Priya"); err == nil {
				approvals.Add(1)
			} else {
				var de *apperrors.DomainError
				assert.True(t, errors.As(err, &de) && de.Code == apperrors.CodeConflict, "unexpected error %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			if _, err := f.members.Reject(ctx, rejectee.ID, "Priya"); err == nil {
				rejections.Add(1)
			} else {
				var de *apperrors.DomainError
				assert.True(t, errors.As(err, &de) && de.Code == apperrors.CodeConflict, "unexpected error %v", err)
			}
		}()
	}
	wg.Wait()

	require.EqualValues(t, 1, approvals.Load())
	require.EqualValues(t, 1, rejections.Load())
	require.Len(t, f.events.ofType(events.EventMemberApproved), 1)
	require.Len(t, f.events.ofType(events.EventMemberRejected), 1)
	require.Equal(t, domain.ApprovalRejected, f.reload(t, rejectee.ID).ApprovalState)
}
