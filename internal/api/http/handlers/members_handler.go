package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/club-kit/credit-service/internal/api/dto"
	"github.com/club-kit/credit-service/internal/auth"
	"github.com/club-kit/credit-service/internal/domain"
	"github.com/club-kit/credit-service/internal/engine"
	"github.com/club-kit/credit-service/internal/service"
	apperrors "github.com/club-kit/credit-service/pkg/util/errorutil"
	"github.com/club-kit/credit-service/pkg/util/validation"
)

// MembersHandler exposes leader member-management endpoints.
type MembersHandler struct {
	credits *service.CreditService
	members *service.MemberService
}

// NewMembersHandler constructs handler.
func NewMembersHandler(credits *service.CreditService, members *service.MemberService) *MembersHandler {
	return &MembersHandler{credits: credits, members: members}
}

// List GET /members?approval_state=pending.
func (h *MembersHandler) List(c *fiber.Ctx) error {
	state := domain.ApprovalState(c.Query("approval_state"))
	switch state {
	case "", domain.ApprovalPending, domain.ApprovalApproved, domain.ApprovalRejected:
	default:
		return apperrors.NewValidationError("invalid approval_state", map[string]any{"approval_state": state})
	}
	users, err := h.members.List(c.UserContext(), state)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": memberSummaries(users, h.credits.Settings().GlobalThreshold)})
}

// Get GET /members/:id.
func (h *MembersHandler) Get(c *fiber.Ctx) error {
	user, err := h.members.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": memberDetail(user, h.credits.Settings().GlobalThreshold)})
}

// Approve POST /members/:id/approve.
func (h *MembersHandler) Approve(c *fiber.Ctx) error {
	user, err := h.members.Approve(c.UserContext(), c.Params("id"), actorName(c))
	if err != nil {
		return err
	}
	return h.summary(c, user)
}

// Reject POST /members/:id/reject.
func (h *MembersHandler) Reject(c *fiber.Ctx) error {
	user, err := h.members.Reject(c.UserContext(), c.Params("id"), actorName(c))
	if err != nil {
		return err
	}
	return h.summary(c, user)
}

// AdjustCredits POST /members/:id/credits.
func (h *MembersHandler) AdjustCredits(c *fiber.Ctx) error {
	var req dto.AdjustCreditsRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := validation.Struct("invalid credit adjustment", req); err != nil {
		return err
	}
	amount, err := engine.AmountFromFloat(*req.Amount)
	if err != nil {
		return err
	}
	user, outcome, err := h.credits.Adjust(c.UserContext(), c.Params("id"), service.AdjustmentInput{
		Amount:        amount,
		Reason:        req.Reason,
		Issuer:        actorName(c),
		DisableReason: req.DisableReason,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.AdjustCreditsResponse{
		Member:      memberSummary(user, h.credits.Settings().GlobalThreshold),
		Transaction: transaction(outcome.Transaction),
		Guard:       string(outcome.Guard),
		Clamped:     outcome.Clamped(),
	}})
}

// AdjustBulk POST /credits/bulk.
func (h *MembersHandler) AdjustBulk(c *fiber.Ctx) error {
	var req dto.BulkCreditsRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := validation.Struct("invalid bulk adjustment", req); err != nil {
		return err
	}
	amount, err := engine.AmountFromFloat(*req.Amount)
	if err != nil {
		return err
	}
	result, err := h.credits.ApplyBulk(c.UserContext(), req.UserIDs, amount, req.Reason, actorName(c))
	if err != nil {
		return err
	}
	resp := dto.BulkCreditsResponse{
		Updated: memberSummaries(result.Updated, h.credits.Settings().GlobalThreshold),
		Failed:  make([]dto.BulkFailure, 0, len(result.Failed)),
	}
	for _, f := range result.Failed {
		resp.Failed = append(resp.Failed, dto.BulkFailure{UserID: f.UserID, Error: f.Err.Error()})
	}
	return c.JSON(fiber.Map{"data": resp})
}

// Disable POST /members/:id/disable.
func (h *MembersHandler) Disable(c *fiber.Ctx) error {
	var req dto.StatusChangeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	user, err := h.credits.ManualDisable(c.UserContext(), c.Params("id"), req.Reason, actorName(c))
	if err != nil {
		return err
	}
	return h.summary(c, user)
}

// Reactivate POST /members/:id/reactivate.
func (h *MembersHandler) Reactivate(c *fiber.Ctx) error {
	var req dto.StatusChangeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	user, err := h.credits.ManualReactivate(c.UserContext(), c.Params("id"), req.Reason, actorName(c))
	if err != nil {
		return err
	}
	return h.summary(c, user)
}

// SetThreshold PUT /members/:id/threshold.
func (h *MembersHandler) SetThreshold(c *fiber.Ctx) error {
	var req dto.ThresholdRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Threshold == nil {
		return apperrors.NewValidationError("threshold required", nil)
	}
	user, err := h.credits.SetUserThreshold(c.UserContext(), c.Params("id"), req.Threshold)
	if err != nil {
		return err
	}
	return h.summary(c, user)
}

// ClearThreshold DELETE /members/:id/threshold.
func (h *MembersHandler) ClearThreshold(c *fiber.Ctx) error {
	user, err := h.credits.SetUserThreshold(c.UserContext(), c.Params("id"), nil)
	if err != nil {
		return err
	}
	return h.summary(c, user)
}

func (h *MembersHandler) summary(c *fiber.Ctx, user *domain.User) error {
	return c.JSON(fiber.Map{"data": memberSummary(user, h.credits.Settings().GlobalThreshold)})
}

func actorName(c *fiber.Ctx) string {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return domain.SystemIssuer
	}
	return principal.User.Name
}
