package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/club-kit/credit-service/internal/api/dto"
	"github.com/club-kit/credit-service/internal/service"
	apperrors "github.com/club-kit/credit-service/pkg/util/errorutil"
	"github.com/club-kit/credit-service/pkg/util/validation"
)

// AuthHandler exposes signup and login.
type AuthHandler struct {
	members *service.MemberService
	credits *service.CreditService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(members *service.MemberService, credits *service.CreditService) *AuthHandler {
	return &AuthHandler{members: members, credits: credits}
}

// Signup handles POST /auth/signup.
func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var req dto.SignupRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := validation.Struct("name, email, password required", req); err != nil {
		return err
	}

	user, token, exp, err := h.members.Signup(c.UserContext(), service.SignupInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Position: req.Position,
	})
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": fiber.Map{
			"member": memberSummary(user, h.credits.Settings().GlobalThreshold),
			"auth":   dto.AuthResponse{Token: token, ExpiresAt: exp},
		},
	})
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := validation.Struct("email and password required", req); err != nil {
		return err
	}

	user, token, exp, err := h.members.Login(c.UserContext(), req.Email, req.Password, req.AsLeader)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"member": memberSummary(user, h.credits.Settings().GlobalThreshold),
			"auth":   dto.AuthResponse{Token: token, ExpiresAt: exp},
		},
	})
}
