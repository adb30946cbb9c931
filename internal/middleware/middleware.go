package middleware

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v3"
)

// Permissions checked on the administrative surface. The API gateway
// authenticates the admin and forwards their permission set in the
// X-User-Permissions header; recipients on the public path never carry it.
const (
	WriteGrantPermission  = "grant:write"
	ReadGrantPermission   = "grant:read"
	RevokeGrantPermission = "grant:revoke"
)

func PermissionRequired(requiredPermission string) fiber.Handler {
	return func(c fiber.Ctx) error {
		log.Println("Permission required function called from", c.IP(), "Calling", c.Method(), "Request", c.OriginalURL())
		userPermissions := c.Get("X-User-Permissions")
		hasPermission := false
		if userPermissions != "" {
			permissions := strings.Split(userPermissions, ",")

			for _, perm := range permissions {
				if perm == requiredPermission || strings.HasPrefix(perm, "admin") {
					hasPermission = true
					break
				}
			}
		}

		if !hasPermission {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}
		return c.Next()
	}
}
