package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/club-kit/credit-service/internal/api/dto"
	"github.com/club-kit/credit-service/internal/auth"
	"github.com/club-kit/credit-service/internal/engine"
	"github.com/club-kit/credit-service/internal/service"
	apperrors "github.com/club-kit/credit-service/pkg/util/errorutil"
	"github.com/club-kit/credit-service/pkg/util/validation"
)

// MeHandler serves the authenticated member's own views.
type MeHandler struct {
	credits  *service.CreditService
	recovery *service.RecoveryService
}

// NewMeHandler constructs handler.
func NewMeHandler(credits *service.CreditService, recovery *service.RecoveryService) *MeHandler {
	return &MeHandler{credits: credits, recovery: recovery}
}

// Profile GET /me.
func (h *MeHandler) Profile(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("member required")
	}
	return c.JSON(fiber.Map{"data": memberDetail(principal.User, h.credits.Settings().GlobalThreshold)})
}

// History GET /me/history.
func (h *MeHandler) History(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("member required")
	}
	return c.JSON(fiber.Map{"data": transactions(engine.Recent(principal.User))})
}

// SubmitRecovery POST /me/recovery-requests.
func (h *MeHandler) SubmitRecovery(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("member required")
	}
	var req dto.RecoverySubmitRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := validation.Struct("plan required", req); err != nil {
		return err
	}
	created, err := h.recovery.Submit(c.UserContext(), principal.User.ID, req.Plan)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": recoveryResponse(created)})
}

// LatestRecovery GET /me/recovery-requests/latest.
func (h *MeHandler) LatestRecovery(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("member required")
	}
	latest, err := h.recovery.Latest(c.UserContext(), principal.User.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": recoveryResponse(latest)})
}
