package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/benleytuano/ts-api-service/internal/domain"
	apperrors "github.com/benleytuano/ts-api-service/pkg/util/errorutil"
)

// RequireActor ensures a caller has been authenticated.
func RequireActor() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := ActorFromContext(c); !ok {
			return apperrors.NewUnauthenticated("authentication required")
		}
		return c.Next()
	}
}

// RequireCapability ensures the caller's role grants capability under policy.
func RequireCapability(policy *Policy, capability domain.Capability) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, ok := ActorFromContext(c)
		if !ok {
			return apperrors.NewUnauthenticated("authentication required")
		}
		if !policy.Can(actor.Role, capability) {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}
