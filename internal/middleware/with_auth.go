package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/railrules-api/internal/utils"
)

// Auth role constants used by WithAuth helper.
const (
	AuthRoleAny    = "any"
	AuthRoleAdmin  = "admin"
	AuthRoleEditor = "editor"
)

// AuthOptions configures the WithAuth helper.
type AuthOptions struct {
	Role        string
	RequireUser bool
}

// WithAuth wraps a handler with authentication and role guards. The editor
// role is also satisfied by admins.
func WithAuth(handler fiber.Handler, opts AuthOptions) fiber.Handler {
	role := strings.ToLower(strings.TrimSpace(opts.Role))
	if role == "" {
		role = AuthRoleAny
	}

	requireUser := opts.RequireUser || role != AuthRoleAny
	allowed := newRoleSet(role)
	if role == AuthRoleEditor {
		allowed = newRoleSet(AuthRoleEditor, AuthRoleAdmin)
	}

	return func(c *fiber.Ctx) error {
		if requireUser && !hasUser(c.Locals("user_id")) {
			return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
		}
		if role == AuthRoleAny {
			return handler(c)
		}

		if !allowed.allows(c.Locals("user_role")) {
			return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
		}

		return handler(c)
	}
}

func hasUser(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return false
	case uint:
		return v > 0
	case int:
		return v > 0
	case string:
		return strings.TrimSpace(v) != ""
	default:
		return true
	}
}
