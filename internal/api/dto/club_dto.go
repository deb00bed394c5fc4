package dto

import "time"

// SettingsResponse is the club-wide configuration.
type SettingsResponse struct {
	GlobalThreshold int  `json:"global_threshold"`
	Buffer          int  `json:"buffer"`
	CreditLock      bool `json:"credit_lock"`
}

// SettingsRequest updates any subset of the settings in one step.
type SettingsRequest struct {
	GlobalThreshold *int  `json:"global_threshold"`
	Buffer          *int  `json:"buffer"`
	CreditLock      *bool `json:"credit_lock"`
}

// StandingResponse is a member's credits next to their threshold.
type StandingResponse struct {
	UserID    string `json:"user_id"`
	Name      string `json:"name"`
	Credits   int    `json:"credits"`
	Threshold int    `json:"threshold"`
	Status    string `json:"status"`
}

// ThresholdAnalyticsResponse buckets members around their thresholds.
type ThresholdAnalyticsResponse struct {
	GlobalThreshold int                `json:"global_threshold"`
	Buffer          int                `json:"buffer"`
	Above           []StandingResponse `json:"above"`
	Near            []StandingResponse `json:"near"`
	Soft            []StandingResponse `json:"soft"`
	Disabled        []StandingResponse `json:"disabled"`
}

// WatchlistEntryResponse is a member close to losing standing.
type WatchlistEntryResponse struct {
	StandingResponse
	HealthPercent float64 `json:"health_percent"`
	Risk          string  `json:"risk"`
}

// LeaderboardEntryResponse is one ranked member.
type LeaderboardEntryResponse struct {
	Rank    int    `json:"rank"`
	UserID  string `json:"user_id"`
	Name    string `json:"name"`
	Credits int    `json:"credits"`
	Status  string `json:"status"`
}

// StatsResponse summarises the roster.
type StatsResponse struct {
	TotalMembers     int `json:"total_members"`
	ActiveMembers    int `json:"active_members"`
	AtRiskMembers    int `json:"at_risk_members"`
	DisabledMembers  int `json:"disabled_members"`
	PendingApprovals int `json:"pending_approvals"`
	TotalCredits     int `json:"total_credits"`
}

// RecoverySubmitRequest payload for POST /me/recovery-requests.
type RecoverySubmitRequest struct {
	Plan string `json:"plan" validate:"required"`
}

// RecoveryReviewRequest payload for approving or rejecting a recovery request.
type RecoveryReviewRequest struct {
	Note string `json:"note"`
}

// RecoveryResponse is a recovery request.
type RecoveryResponse struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Plan       string     `json:"plan"`
	State      string     `json:"state"`
	ReviewNote string     `json:"review_note,omitempty"`
	ReviewedBy string     `json:"reviewed_by,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`
}
