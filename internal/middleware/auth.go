package middleware

import (
	"log"

	"allchat/internal/services"
	"allchat/pkg/auth"

	"github.com/gofiber/fiber/v2"
)

// AuthMiddleware verifies the dashboard JWT and stores the identity on the
// request context.
func AuthMiddleware(jwtAuth *auth.JWTAuth) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := auth.ExtractToken(c.Get("Authorization"))
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing or invalid authorization token",
			})
		}

		identity, err := jwtAuth.VerifyAccessToken(token)
		if err != nil {
			log.Printf("❌ Auth failed: %v", err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		c.Locals("user_id", identity.UserID)
		c.Locals("user_email", identity.Email)
		return c.Next()
	}
}

// RequireTenantRole loads the authenticated user and checks their role on
// the :tenantId in the path. Pass the roles that may proceed; owner always
// may.
func RequireTenantRole(users *services.UserService, roles ...string) fiber.Handler {
	allowed := map[string]bool{"owner": true}
	for _, r := range roles {
		allowed[r] = true
	}

	return func(c *fiber.Ctx) error {
		userID, _ := c.Locals("user_id").(string)
		tenantID := c.Params("tenantId")
		if userID == "" || tenantID == "" {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Access denied",
			})
		}

		user, err := users.GetByID(c.Context(), userID)
		if err != nil {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Access denied",
			})
		}

		role, ok := user.Tenants[tenantID]
		if !ok || !allowed[role] {
			log.Printf("🔒 user %s denied for tenant %s (role=%q)", userID, tenantID, role)
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "You do not have access to this tenant",
			})
		}

		c.Locals("tenant_role", role)
		return c.Next()
	}
}
