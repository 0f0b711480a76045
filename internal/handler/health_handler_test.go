package handler_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/railrules-api/internal/config"
	"github.com/noah-isme/railrules-api/internal/handler"
)

type healthBody struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Data    handler.HealthResponse `json:"data"`
}

func TestHealthCheckHealthy(t *testing.T) {
	app := fiber.New()
	app.Get("/health", handler.HealthCheck(config.Config{AppName: "Railway Rules API", AppEnv: "test"},
		handler.HealthProbe{Name: "database", Check: func(context.Context) error { return nil }},
	))

	resp := doRequest(t, app, http.MethodGet, "/health", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body healthBody
	decodeResponse(t, resp, &body)
	require.True(t, body.Success)
	require.Equal(t, "ok", body.Data.Status)
	require.Equal(t, "Railway Rules API", body.Data.Service)
	require.Equal(t, map[string]string{"database": "ok"}, body.Data.Dependencies)
}

func TestHealthCheckDegraded(t *testing.T) {
	app := fiber.New()
	app.Get("/health", handler.HealthCheck(config.Config{AppName: "Railway Rules API"},
		handler.HealthProbe{Name: "database", Check: func(context.Context) error { return nil }},
		handler.HealthProbe{Name: "redis", Check: func(context.Context) error { return errors.New("connection refused") }},
	))

	resp := doRequest(t, app, http.MethodGet, "/health", "")
	require.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)

	var body healthBody
	decodeResponse(t, resp, &body)
	require.False(t, body.Success)
	require.Equal(t, "service degraded", body.Message)
	require.Equal(t, "degraded", body.Data.Status)
	require.Equal(t, "connection refused", body.Data.Dependencies["redis"])
	require.Equal(t, "ok", body.Data.Dependencies["database"])
}
