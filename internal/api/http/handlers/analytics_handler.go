package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/club-kit/credit-service/internal/api/dto"
	"github.com/club-kit/credit-service/internal/service"
)

// AnalyticsHandler exposes read-only roster views.
type AnalyticsHandler struct {
	analytics *service.AnalyticsService
}

// NewAnalyticsHandler constructs handler.
func NewAnalyticsHandler(analytics *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// Thresholds GET /analytics/thresholds.
func (h *AnalyticsHandler) Thresholds(c *fiber.Ctx) error {
	result, err := h.analytics.Thresholds(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ThresholdAnalyticsResponse{
		GlobalThreshold: result.GlobalThreshold,
		Buffer:          result.Buffer,
		Above:           standings(result.Above),
		Near:            standings(result.Near),
		Soft:            standings(result.Soft),
		Disabled:        standings(result.Disabled),
	}})
}

// Watchlist GET /analytics/watchlist.
func (h *AnalyticsHandler) Watchlist(c *fiber.Ctx) error {
	entries, err := h.analytics.Watchlist(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.WatchlistEntryResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, dto.WatchlistEntryResponse{
			StandingResponse: standing(e.MemberStanding),
			HealthPercent:    e.HealthPercent,
			Risk:             string(e.Risk),
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// Stats GET /analytics/stats.
func (h *AnalyticsHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.analytics.Stats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.StatsResponse(stats)})
}

// Leaderboard GET /leaderboard.
func (h *AnalyticsHandler) Leaderboard(c *fiber.Ctx) error {
	entries, err := h.analytics.Leaderboard(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.LeaderboardEntryResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, dto.LeaderboardEntryResponse{
			Rank:    e.Rank,
			UserID:  e.UserID,
			Name:    e.Name,
			Credits: e.Credits,
			Status:  string(e.Status),
		})
	}
	return c.JSON(fiber.Map{"data": items})
}
