package service

import (
	"context"
	"math"
	"sort"

	"github.com/club-kit/credit-service/internal/domain"
	"github.com/club-kit/credit-service/internal/engine"
)

const (
	watchlistFactor = 1.5
	watchlistLimit  = 5
)

// RiskLevel grades a watchlist entry by its credits/threshold ratio.
type RiskLevel string

const (
	RiskCritical RiskLevel = "critical"
	RiskWarning  RiskLevel = "warning"
	RiskWatch    RiskLevel = "watch"
)

// MemberStanding is a member's credits next to their resolved threshold.
type MemberStanding struct {
	UserID    string
	Name      string
	Credits   int
	Threshold int
	Status    domain.UserStatus
}

// ThresholdAnalytics buckets members by distance from their threshold. Soft
// and Disabled follow the stored status; Above and Near follow credits.
type ThresholdAnalytics struct {
	GlobalThreshold int
	Buffer          int
	Above           []MemberStanding
	Near            []MemberStanding
	Soft            []MemberStanding
	Disabled        []MemberStanding
}

// WatchlistEntry is a member close to losing standing.
type WatchlistEntry struct {
	MemberStanding
	HealthPercent float64
	Risk          RiskLevel
}

// LeaderboardEntry is one ranked member.
type LeaderboardEntry struct {
	Rank    int
	UserID  string
	Name    string
	Credits int
	Status  domain.UserStatus
}

// ClubStats summarises the roster.
type ClubStats struct {
	TotalMembers     int
	ActiveMembers    int
	AtRiskMembers    int
	DisabledMembers  int
	PendingApprovals int
	TotalCredits     int
}

// AnalyticsService derives read-only views of the roster.
type AnalyticsService struct {
	credits *CreditService
}

// NewAnalyticsService builds the service.
func NewAnalyticsService(credits *CreditService) *AnalyticsService {
	return &AnalyticsService{credits: credits}
}

func (s *AnalyticsService) standings(ctx context.Context) ([]MemberStanding, domain.Settings, error) {
	settings := s.credits.Settings()
	users, err := s.credits.ListUsers(ctx)
	if err != nil {
		return nil, settings, err
	}
	out := make([]MemberStanding, 0, len(users))
	for i := range users {
		u := &users[i]
		if u.IsLeader() {
			continue
		}
		out = append(out, MemberStanding{
			UserID:    u.ID,
			Name:      u.Name,
			Credits:   u.Credits,
			Threshold: engine.ResolveThreshold(u, settings.GlobalThreshold),
			Status:    u.Status,
		})
	}
	return out, settings, nil
}

// Thresholds returns the threshold analytics buckets.
func (s *AnalyticsService) Thresholds(ctx context.Context) (ThresholdAnalytics, error) {
	members, settings, err := s.standings(ctx)
	if err != nil {
		return ThresholdAnalytics{}, err
	}
	result := ThresholdAnalytics{
		GlobalThreshold: settings.GlobalThreshold,
		Buffer:          settings.Buffer,
		Above:           []MemberStanding{},
		Near:            []MemberStanding{},
		Soft:            []MemberStanding{},
		Disabled:        []MemberStanding{},
	}
	for _, m := range members {
		switch {
		case m.Credits >= m.Threshold+settings.Buffer:
			result.Above = append(result.Above, m)
		case m.Credits >= m.Threshold:
			result.Near = append(result.Near, m)
		}
		switch m.Status {
		case domain.UserStatusSoftDisabled:
			result.Soft = append(result.Soft, m)
		case domain.UserStatusDisabled:
			result.Disabled = append(result.Disabled, m)
		}
	}
	return result, nil
}

// Watchlist returns up to five non-disabled members under 1.5x their
// threshold, lowest credits/threshold ratio first.
func (s *AnalyticsService) Watchlist(ctx context.Context) ([]WatchlistEntry, error) {
	members, _, err := s.standings(ctx)
	if err != nil {
		return nil, err
	}
	entries := []WatchlistEntry{}
	for _, m := range members {
		if m.Status == domain.UserStatusDisabled {
			continue
		}
		if float64(m.Credits) >= float64(m.Threshold)*watchlistFactor {
			continue
		}
		entries = append(entries, WatchlistEntry{
			MemberStanding: m,
			HealthPercent:  healthPercent(m.Credits, m.Threshold),
			Risk:           riskLevel(m.Credits, m.Threshold),
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return ratio(entries[i].Credits, entries[i].Threshold) < ratio(entries[j].Credits, entries[j].Threshold)
	})
	if len(entries) > watchlistLimit {
		entries = entries[:watchlistLimit]
	}
	return entries, nil
}

// Leaderboard ranks approved members by credits, ties broken by name.
func (s *AnalyticsService) Leaderboard(ctx context.Context) ([]LeaderboardEntry, error) {
	users, err := s.credits.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	ranked := make([]domain.User, 0, len(users))
	for _, u := range users {
		if u.ApprovalState == domain.ApprovalApproved {
			ranked = append(ranked, u)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Credits != ranked[j].Credits {
			return ranked[i].Credits > ranked[j].Credits
		}
		return ranked[i].Name < ranked[j].Name
	})
	out := make([]LeaderboardEntry, len(ranked))
	for i, u := range ranked {
		out[i] = LeaderboardEntry{Rank: i + 1, UserID: u.ID, Name: u.Name, Credits: u.Credits, Status: u.Status}
	}
	return out, nil
}

// Stats returns roster totals. At-risk counts non-negative balances under the global threshold.
func (s *AnalyticsService) Stats(ctx context.Context) (ClubStats, error) {
	settings := s.credits.Settings()
	users, err := s.credits.ListUsers(ctx)
	if err != nil {
		return ClubStats{}, err
	}
	var stats ClubStats
	for _, u := range users {
		if u.IsLeader() {
			continue
		}
		stats.TotalMembers++
		stats.TotalCredits += u.Credits
		switch u.Status {
		case domain.UserStatusActive:
			stats.ActiveMembers++
		case domain.UserStatusDisabled:
			stats.DisabledMembers++
		}
		if u.Credits >= 0 && u.Credits < settings.GlobalThreshold {
			stats.AtRiskMembers++
		}
		if u.ApprovalState == domain.ApprovalPending {
			stats.PendingApprovals++
		}
	}
	return stats, nil
}

func ratio(credits, threshold int) float64 {
	if threshold <= 0 {
		return math.Inf(1)
	}
	return float64(credits) / float64(threshold)
}

func healthPercent(credits, threshold int) float64 {
	if threshold <= 0 {
		return 100
	}
	pct := float64(credits) / float64(threshold*2) * 100
	return math.Min(100, math.Max(0, pct))
}

func riskLevel(credits, threshold int) RiskLevel {
	r := ratio(credits, threshold)
	switch {
	case r < 1:
		return RiskCritical
	case r < 1.3:
		return RiskWarning
	default:
		return RiskWatch
	}
}
