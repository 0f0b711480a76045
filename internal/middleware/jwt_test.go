package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/railrules-api/internal/middleware"
)

const testSecret = "railrules-test-secret"

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func jwtApp() *fiber.App {
	app := fiber.New()
	app.Use(middleware.JWTProtected(testSecret, "railrules"))
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"user_id": c.Locals("user_id"), "role": c.Locals("user_role")})
	})
	return app
}

func requestWithToken(t *testing.T, app *fiber.App, token string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestJWTProtectedAcceptsValidToken(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"sub":  "12",
		"role": "Editor",
		"iss":  "railrules",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})

	resp := requestWithToken(t, jwtApp(), token)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestJWTProtectedRejectsInvalidTokens(t *testing.T) {
	cases := map[string]string{
		"missing header": "",
		"wrong issuer":   signToken(t, jwt.MapClaims{"sub": "12", "iss": "elsewhere", "exp": time.Now().Add(time.Hour).Unix()}),
		"expired":        signToken(t, jwt.MapClaims{"sub": "12", "iss": "railrules", "exp": time.Now().Add(-time.Hour).Unix()}),
		"no subject":     signToken(t, jwt.MapClaims{"iss": "railrules", "exp": time.Now().Add(time.Hour).Unix()}),
		"garbage":        "not-a-token",
	}

	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			resp := requestWithToken(t, jwtApp(), token)
			require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		})
	}
}
