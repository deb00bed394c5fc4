package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/club-kit/credit-service/internal/domain"
	apperrors "github.com/club-kit/credit-service/pkg/util/errorutil"
)

// RequireLeader ensures the caller is a club leader.
func RequireLeader() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !principal.User.IsLeader() {
			return apperrors.NewForbidden("leader role required")
		}
		return c.Next()
	}
}

// RequireApproved ensures the caller's signup has been approved.
// Leaders always pass.
func RequireApproved() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !principal.User.IsLeader() && principal.User.ApprovalState != domain.ApprovalApproved {
			return apperrors.NewForbidden("membership awaiting approval")
		}
		return c.Next()
	}
}
