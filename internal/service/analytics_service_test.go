package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/club-kit/credit-service/internal/domain"
)

func names(members []MemberStanding) []string {
	out := make([]string, len(members))
	for i, m := range members {
		out[i] = m.Name
	}
	return out
}

func TestThresholdAnalyticsBuckets(t *testing.T) {
	f := newFixture(t, defaultSettings())
	ctx := context.Background()
	f.addMember(t, "above", 15)
	f.addMember(t, "near", 10)
	f.addMember(t, "soft", 7)
	f.addMember(t, "out", 2)
	_, _, err := f.members.EnsureLeader(ctx, "Priya", "priya@club.org", "leader123")
	require.NoError(t, err)

	analytics := NewAnalyticsService(f.credits)
	result, err := analytics.Thresholds(ctx)
	require.NoError(t, err)
	require.Equal(t, 10, result.GlobalThreshold)
	require.Equal(t, []string{"above"}, names(result.Above))
	require.Equal(t, []string{"near"}, names(result.Near))
	require.Equal(t, []string{"soft"}, names(result.Soft))
	require.Equal(t, []string{"out"}, names(result.Disabled))
}

func TestWatchlistOrderingAndLimit(t *testing.T) {
	f := newFixture(t, defaultSettings())
	ctx := context.Background()
	for _, m := range []struct {
		name    string
		credits int
	}{
		{"w14", 14}, {"w10", 10}, {"w6", 6}, {"w12", 12}, {"w9", 9}, {"w11", 11}, {"safe", 15}, {"gone", 1},
	} {
		f.addMember(t, m.name, m.credits)
	}

	entries, err := NewAnalyticsService(f.credits).Watchlist(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 5)
	got := make([]string, len(entries))
	for i, e := range entries {
		got[i] = e.Name
	}
	require.Equal(t, []string{"w6", "w9", "w10", "w11", "w12"}, got)
	require.Equal(t, RiskCritical, entries[0].Risk)
	require.InDelta(t, 30.0, entries[0].HealthPercent, 0.001)
	require.Equal(t, RiskWarning, entries[2].Risk)
}

func TestLeaderboardAndStats(t *testing.T) {
	f := newFixture(t, defaultSettings())
	ctx := context.Background()
	f.addMember(t, "bela", 30)
	f.addMember(t, "amit", 30)
	f.addMember(t, "chen", 5)
	f.addMember(t, "dana", 2)
	_, _, _, err := f.members.Signup(ctx, SignupInput{Name: "pending", Email: "pending@club.org", Password: "secret123"})
	require.NoError(t, err)

	analytics := NewAnalyticsService(f.credits)
	board, err := analytics.Leaderboard(ctx)
	require.NoError(t, err)
	require.Len(t, board, 4)
	require.Equal(t, "amit", board[0].Name)
	require.Equal(t, 1, board[0].Rank)
	require.Equal(t, "bela", board[1].Name)
	require.Equal(t, "dana", board[3].Name)

	stats, err := analytics.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, ClubStats{
		TotalMembers:     5,
		ActiveMembers:    3,
		AtRiskMembers:    2,
		DisabledMembers:  1,
		PendingApprovals: 1,
		TotalCredits:     87,
	}, stats)
	require.Equal(t, domain.UserStatusSoftDisabled, f.reload(t, board[2].UserID).Status)
}
