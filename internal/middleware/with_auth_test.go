package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/railrules-api/internal/middleware"
)

func authApp(userID interface{}, role string, opts middleware.AuthOptions) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if userID != nil {
			c.Locals("user_id", userID)
		}
		if role != "" {
			c.Locals("user_role", role)
		}
		return c.Next()
	})
	app.Get("/", middleware.WithAuth(func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	}, opts))
	return app
}

func TestWithAuthEditorRole(t *testing.T) {
	resp := perform(t, authApp(uint(10), "Editor", middleware.AuthOptions{Role: middleware.AuthRoleEditor}))
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}

func TestWithAuthEditorAllowsAdmin(t *testing.T) {
	resp := perform(t, authApp(uint(1), "admin", middleware.AuthOptions{Role: middleware.AuthRoleEditor}))
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}

func TestWithAuthEditorDeniesViewer(t *testing.T) {
	resp := perform(t, authApp(uint(10), "viewer", middleware.AuthOptions{Role: middleware.AuthRoleEditor}))
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestWithAuthAdminDeniesEditor(t *testing.T) {
	resp := perform(t, authApp(uint(10), "editor", middleware.AuthOptions{Role: middleware.AuthRoleAdmin}))
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestWithAuthRequiresUser(t *testing.T) {
	resp := perform(t, authApp(nil, "", middleware.AuthOptions{RequireUser: true}))
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp = perform(t, authApp(uint(0), "editor", middleware.AuthOptions{Role: middleware.AuthRoleEditor}))
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestWithAuthAnyAllowsAnonymousWhenOptedIn(t *testing.T) {
	resp := perform(t, authApp(nil, "", middleware.AuthOptions{Role: middleware.AuthRoleAny}))
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}

func perform(t *testing.T, app *fiber.App) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}
