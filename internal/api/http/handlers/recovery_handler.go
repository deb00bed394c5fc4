package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/club-kit/credit-service/internal/api/dto"
	"github.com/club-kit/credit-service/internal/service"
	apperrors "github.com/club-kit/credit-service/pkg/util/errorutil"
)

// RecoveryHandler exposes leader review of recovery requests.
type RecoveryHandler struct {
	recovery *service.RecoveryService
}

// NewRecoveryHandler constructs handler.
func NewRecoveryHandler(recovery *service.RecoveryService) *RecoveryHandler {
	return &RecoveryHandler{recovery: recovery}
}

// ListPending GET /recovery-requests.
func (h *RecoveryHandler) ListPending(c *fiber.Ctx) error {
	pending, err := h.recovery.ListPending(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.RecoveryResponse, 0, len(pending))
	for i := range pending {
		items = append(items, recoveryResponse(&pending[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Approve POST /recovery-requests/:id/approve.
func (h *RecoveryHandler) Approve(c *fiber.Ctx) error {
	var req dto.RecoveryReviewRequest
	if err := parseOptionalBody(c, &req); err != nil {
		return err
	}
	reviewed, err := h.recovery.Approve(c.UserContext(), c.Params("id"), actorName(c), req.Note)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": recoveryResponse(reviewed)})
}

// Reject POST /recovery-requests/:id/reject.
func (h *RecoveryHandler) Reject(c *fiber.Ctx) error {
	var req dto.RecoveryReviewRequest
	if err := parseOptionalBody(c, &req); err != nil {
		return err
	}
	reviewed, err := h.recovery.Reject(c.UserContext(), c.Params("id"), actorName(c), req.Note)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": recoveryResponse(reviewed)})
}

func parseOptionalBody(c *fiber.Ctx, out any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(out); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return nil
}
