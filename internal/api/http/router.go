package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/club-kit/credit-service/internal/api/http/handlers"
	"github.com/club-kit/credit-service/internal/auth"
	"github.com/club-kit/credit-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Me             *handlers.MeHandler
	Members        *handlers.MembersHandler
	Settings       *handlers.SettingsHandler
	Analytics      *handlers.AnalyticsHandler
	Recovery       *handlers.RecoveryHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Metrics.Registry(), promhttp.HandlerOpts{})))
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/signup", cfg.Auth.Signup)
	authGroup.Post("/login", cfg.Auth.Login)

	me := app.Group("/me", cfg.AuthMiddleware.Handle)
	me.Get("", cfg.Me.Profile)
	me.Get("/history", cfg.Me.History)
	approved := me.Group("/recovery-requests", auth.RequireApproved())
	approved.Post("", cfg.Me.SubmitRecovery)
	approved.Get("/latest", cfg.Me.LatestRecovery)

	leaderOnly := []fiber.Handler{cfg.AuthMiddleware.Handle, auth.RequireLeader()}

	members := app.Group("/members", leaderOnly...)
	members.Get("", cfg.Members.List)
	members.Get("/:id", cfg.Members.Get)
	members.Post("/:id/approve", cfg.Members.Approve)
	members.Post("/:id/reject", cfg.Members.Reject)
	members.Post("/:id/credits", cfg.Members.AdjustCredits)
	members.Post("/:id/disable", cfg.Members.Disable)
	members.Post("/:id/reactivate", cfg.Members.Reactivate)
	members.Put("/:id/threshold", cfg.Members.SetThreshold)
	members.Delete("/:id/threshold", cfg.Members.ClearThreshold)

	app.Post("/credits/bulk", append(leaderOnly, cfg.Members.AdjustBulk)...)

	settings := app.Group("/settings", leaderOnly...)
	settings.Get("", cfg.Settings.Get)
	settings.Put("", cfg.Settings.Update)
	settings.Post("/reset-thresholds", cfg.Settings.ResetThresholds)

	analytics := app.Group("/analytics", leaderOnly...)
	analytics.Get("/thresholds", cfg.Analytics.Thresholds)
	analytics.Get("/watchlist", cfg.Analytics.Watchlist)
	analytics.Get("/stats", cfg.Analytics.Stats)
	app.Get("/leaderboard", append(leaderOnly, cfg.Analytics.Leaderboard)...)

	recovery := app.Group("/recovery-requests", leaderOnly...)
	recovery.Get("", cfg.Recovery.ListPending)
	recovery.Post("/:id/approve", cfg.Recovery.Approve)
	recovery.Post("/:id/reject", cfg.Recovery.Reject)
}
