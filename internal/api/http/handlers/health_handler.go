package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/club-kit/credit-service/internal/persistence"
)

// Probe checks one dependency for readiness.
type Probe struct {
	Name  string
	Check func(ctx context.Context) error
	// Optional probes report their state but never fail readiness.
	Optional bool
}

// HealthHandler responds to liveness and readiness probes.
type HealthHandler struct {
	serviceName string
	version     string
	probes      []Probe
}

// NewHealthHandler returns a new handler instance.
func NewHealthHandler(serviceName, version string, probes ...Probe) *HealthHandler {
	return &HealthHandler{serviceName: serviceName, version: version, probes: probes}
}

// Live reports service liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
	})
}

// Ready reports service readiness by checking dependencies.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	depStatus := fiber.Map{}
	ready := true

	for _, probe := range h.probes {
		err := probe.Check(ctx)
		switch {
		case err == nil:
			depStatus[probe.Name] = "ok"
		case errors.Is(err, persistence.ErrNotConfigured):
			depStatus[probe.Name] = "disabled"
		default:
			depStatus[probe.Name] = err.Error()
			if !probe.Optional {
				ready = false
			}
		}
	}

	if ready {
		return c.JSON(fiber.Map{
			"status":       "ready",
			"dependencies": depStatus,
		})
	}

	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "DEPENDENCY_UNAVAILABLE",
			"message": "one or more dependencies unavailable",
			"details": depStatus,
		},
	})
}
