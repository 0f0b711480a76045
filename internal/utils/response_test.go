package utils_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/railrules-api/internal/utils"
)

type envelope struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Data    json.RawMessage        `json:"data"`
	Meta    map[string]interface{} `json:"meta"`
	Details map[string]string      `json:"details"`
}

func call(t *testing.T, handler fiber.Handler) (int, envelope, string) {
	t.Helper()
	app := fiber.New()
	app.Get("/", handler)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var body envelope
	require.NoError(t, json.Unmarshal(raw, &body))
	return resp.StatusCode, body, string(raw)
}

func TestOKCarriesFilterMeta(t *testing.T) {
	status, body, _ := call(t, func(c *fiber.Ctx) error {
		return utils.OK(c, []string{"RULE"}, "", fiber.Map{"filters": fiber.Map{"action": "UPDATE"}})
	})

	require.Equal(t, fiber.StatusOK, status)
	require.True(t, body.Success)
	require.Equal(t, "success", body.Message)
	require.JSONEq(t, `["RULE"]`, string(body.Data))
	require.Equal(t, map[string]interface{}{"action": "UPDATE"}, body.Meta["filters"])
}

func TestSendSuccessWithStatus(t *testing.T) {
	status, body, raw := call(t, func(c *fiber.Ctx) error {
		return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "document created", fiber.Map{"id": 3})
	})

	require.Equal(t, fiber.StatusCreated, status)
	require.Equal(t, "document created", body.Message)
	require.NotContains(t, raw, `"meta"`)
	require.NotContains(t, raw, `"details"`)
}

func TestFailIncludesValidationDetails(t *testing.T) {
	status, body, raw := call(t, func(c *fiber.Ctx) error {
		return utils.Fail(c, fiber.StatusBadRequest, "validation failed", map[string]string{"EntityType": "required"})
	})

	require.Equal(t, fiber.StatusBadRequest, status)
	require.False(t, body.Success)
	require.Equal(t, "required", body.Details["EntityType"])
	require.NotContains(t, raw, `"data"`)
}

func TestSendErrorDefaultsMessage(t *testing.T) {
	status, body, _ := call(t, func(c *fiber.Ctx) error {
		return utils.SendError(c, fiber.StatusNotFound, "")
	})

	require.Equal(t, fiber.StatusNotFound, status)
	require.Equal(t, "error", body.Message)
}
