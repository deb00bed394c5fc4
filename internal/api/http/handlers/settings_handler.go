package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/club-kit/credit-service/internal/api/dto"
	"github.com/club-kit/credit-service/internal/domain"
	"github.com/club-kit/credit-service/internal/service"
	apperrors "github.com/club-kit/credit-service/pkg/util/errorutil"
)

// SettingsHandler exposes the club-wide credit configuration.
type SettingsHandler struct {
	credits *service.CreditService
}

// NewSettingsHandler constructs handler.
func NewSettingsHandler(credits *service.CreditService) *SettingsHandler {
	return &SettingsHandler{credits: credits}
}

// Get GET /settings.
func (h *SettingsHandler) Get(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": settingsResponse(h.credits.Settings())})
}

// Update PUT /settings. Omitted fields keep their value; the whole change
// is validated before anything is applied.
func (h *SettingsHandler) Update(c *fiber.Ctx) error {
	var req dto.SettingsRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.GlobalThreshold == nil && req.Buffer == nil && req.CreditLock == nil {
		return apperrors.NewValidationError("no settings provided", nil)
	}
	settings, err := h.credits.UpdateSettings(c.UserContext(), func(s *domain.Settings) {
		if req.GlobalThreshold != nil {
			s.GlobalThreshold = *req.GlobalThreshold
		}
		if req.Buffer != nil {
			s.Buffer = *req.Buffer
		}
		if req.CreditLock != nil {
			s.CreditLock = *req.CreditLock
		}
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": settingsResponse(settings)})
}

// ResetThresholds POST /settings/reset-thresholds.
func (h *SettingsHandler) ResetThresholds(c *fiber.Ctx) error {
	cleared, err := h.credits.ResetAllThresholds(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"cleared": cleared}})
}
