package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/request-desk/internal/observability"
)

type pingerFunc func(context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func readyBody(t *testing.T, h *HealthHandler) (int, map[string]any) {
	t.Helper()
	app := fiber.New()
	app.Get("/ready", h.Ready)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/ready", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestHealthHandler_Ready(t *testing.T) {
	ok := pingerFunc(func(context.Context) error { return nil })
	metrics := observability.NewMetrics()
	metrics.RecordJob("billing", time.Now(), time.Second, nil)

	status, body := readyBody(t, NewHealthHandler("request-desk", "test", ok, ok, metrics))

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ready", body["status"])
	assert.Contains(t, body["jobs"], "billing")
}

func TestHealthHandler_ReadyReportsFailingDependency(t *testing.T) {
	ok := pingerFunc(func(context.Context) error { return nil })
	down := pingerFunc(func(context.Context) error { return errors.New("connection refused") })

	status, body := readyBody(t, NewHealthHandler("request-desk", "test", ok, down, observability.NewMetrics()))

	assert.Equal(t, http.StatusServiceUnavailable, status)
	envelope := body["error"].(map[string]any)
	assert.Equal(t, "DEPENDENCY_UNAVAILABLE", envelope["code"])
	assert.Equal(t, map[string]any{"postgres": "ok", "redis": "connection refused"}, envelope["details"])
}
