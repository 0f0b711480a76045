package middleware

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/railrules-api/internal/utils"
)

// roleSet is a normalised set of role names.
type roleSet map[string]struct{}

func newRoleSet(roles ...string) roleSet {
	set := make(roleSet, len(roles))
	for _, role := range roles {
		if normalized := strings.ToLower(strings.TrimSpace(role)); normalized != "" {
			set[normalized] = struct{}{}
		}
	}
	return set
}

func (s roleSet) allows(value interface{}) bool {
	_, ok := s[normalizeRoleValue(value)]
	return ok
}

// RequireRole rejects callers whose user_role is not one of roles with 403.
func RequireRole(roles ...string) fiber.Handler {
	allowed := newRoleSet(roles...)

	return func(c *fiber.Ctx) error {
		if !allowed.allows(c.Locals("user_role")) {
			return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
		}
		return c.Next()
	}
}

func normalizeRoleValue(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.ToLower(strings.TrimSpace(v))
	case fmt.Stringer:
		return strings.ToLower(strings.TrimSpace(v.String()))
	default:
		return strings.ToLower(strings.TrimSpace(fmt.Sprint(value)))
	}
}
