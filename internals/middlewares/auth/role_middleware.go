package auth

import (
	"log"

	"github.com/gofiber/fiber/v2"

	helper "essaysmaster_backend/internals/helpers"
)

// OnlyRoles lets the request through when the token role is one of roles.
func OnlyRoles(forbiddenMessage string, roles ...string) fiber.Handler {
	if forbiddenMessage == "" {
		forbiddenMessage = "Forbidden: you are not authorized to access this resource"
	}
	return func(c *fiber.Ctx) error {
		role := helper.GetRoleFromToken(c)
		if role == "" {
			return helper.JsonKindError(c, fiber.StatusUnauthorized, "", "Unauthorized - Role not found")
		}
		for _, allowed := range roles {
			if role == allowed {
				return c.Next()
			}
		}
		log.Printf("[DEBUG] role %q rejected for %s", role, c.Path())
		return helper.JsonKindError(c, fiber.StatusForbidden, "forbidden", forbiddenMessage)
	}
}
