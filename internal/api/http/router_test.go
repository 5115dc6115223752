package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/request-desk/internal/api/http/handlers"
	"github.com/spec-kit/request-desk/internal/auth"
	"github.com/spec-kit/request-desk/internal/domain"
	"github.com/spec-kit/request-desk/internal/mocks"
	"github.com/spec-kit/request-desk/internal/observability"
	"github.com/spec-kit/request-desk/internal/service"
)

type okPinger struct{}

func (okPinger) Ping(context.Context) error { return nil }

type testServer struct {
	app      *fiber.App
	tokens   *auth.TokenManager
	requests *mocks.MockRequestRepository
	metrics  *observability.Metrics
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	users := mocks.NewMockUserRepository()
	users.On("GetByID", mock.Anything, "admin").Return(&domain.User{ID: "admin", Role: domain.RoleAdmin, Area: domain.AreaAdmin, Active: true}, nil).Maybe()
	users.On("GetByID", mock.Anything, "lead").Return(&domain.User{ID: "lead", Role: domain.RoleLead, Area: domain.AreaDesign, Active: true}, nil).Maybe()
	users.On("ListIDsByArea", mock.Anything, domain.AreaDesign).Return([]string{"lead"}, nil).Maybe()

	requests := mocks.NewMockRequestRepository()
	history := mocks.NewMockHistoryRepository()
	clients := mocks.NewMockClientRepository()
	audit := mocks.NewMockAuditRepository()
	tx := &mocks.PassthroughTx{}

	requestService := service.NewRequestService(service.RequestDependencies{
		Tx:           tx,
		RequestRepo:  requests,
		HistoryRepo:  history,
		UserRepo:     users,
		ClientRepo:   clients,
		CategoryRepo: mocks.NewMockCategoryRepository(),
		AuditRepo:    audit,
		Notifier:     mocks.NewMockNotifier(),
	})
	statisticsService := service.NewStatisticsService(service.StatisticsDependencies{
		RequestRepo:   requests,
		HistoryRepo:   history,
		UserRepo:      users,
		StatisticRepo: mocks.NewMockStatisticRepository(),
	})
	billingService := service.NewBillingService(service.BillingDependencies{
		Tx:          tx,
		BillingRepo: mocks.NewMockBillingRepository(),
		ClientRepo:  clients,
		AuditRepo:   audit,
	})
	reportService := service.NewReportService(service.ReportDependencies{
		Tx:          tx,
		ReportRepo:  mocks.NewMockReportRepository(),
		RequestRepo: requests,
		HistoryRepo: history,
		ClientRepo:  clients,
		UserRepo:    users,
		AuditRepo:   audit,
	})

	metrics := observability.NewMetrics()
	tokens := auth.NewTokenManager("test-secret", 5)
	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), metrics, time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("request-desk", "test", okPinger{}, okPinger{}, metrics),
		Requests:       handlers.NewRequestsHandler(requestService),
		Statistics:     handlers.NewStatisticsHandler(statisticsService),
		Billing:        handlers.NewBillingHandler(billingService),
		Reports:        handlers.NewReportsHandler(reportService),
		Clients:        handlers.NewClientsHandler(service.NewClientService(clients, users)),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, users),
	})
	return &testServer{app: app, tokens: tokens, requests: requests, metrics: metrics}
}

func (s *testServer) do(t *testing.T, method, path, userID string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if userID != "" {
		token, _, err := s.tokens.GenerateToken(userID, "")
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body), string(raw))
	return resp.StatusCode, body
}

func errorCode(body map[string]any) string {
	envelope, _ := body["error"].(map[string]any)
	code, _ := envelope["code"].(string)
	return code
}

func TestRouter_HealthLive(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodGet, "/health/live", "")

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "alive", body["status"])
}

func TestRouter_GetRequest(t *testing.T) {
	s := newTestServer(t)
	started := time.Now().Add(-90 * time.Second)
	assignee := "worker"
	s.requests.On("GetByID", mock.Anything, "req-1").Return(&domain.Request{
		ID:             "req-1",
		Area:           domain.AreaAds,
		State:          domain.StateInProgress,
		CreatorID:      "someone",
		AssigneeID:     &assignee,
		Cost:           decimal.NewFromInt(120),
		WorkedSeconds:  3600,
		TimerRunning:   true,
		TimerStartedAt: &started,
	}, nil)

	status, body := s.do(t, http.MethodGet, "/api/v1/requests/req-1", "admin")

	require.Equal(t, http.StatusOK, status)
	data := body["data"].(map[string]any)
	assert.Equal(t, "req-1", data["id"])
	assert.Equal(t, "IN_PROGRESS", data["state"])
	spent := data["time_spent"].(map[string]any)
	assert.GreaterOrEqual(t, spent["seconds"].(float64), float64(3690))
	assert.Equal(t, true, spent["running"])
}

func TestRouter_ErrorEnvelope(t *testing.T) {
	s := newTestServer(t)
	s.requests.On("GetByID", mock.Anything, "missing").Return(nil, pgx.ErrNoRows)
	s.requests.On("GetByID", mock.Anything, "foreign").Return(&domain.Request{ID: "foreign", Area: domain.AreaAds, State: domain.StateInProgress, CreatorID: "ads-user"}, nil)

	tests := []struct {
		name   string
		method string
		path   string
		user   string
		status int
		code   string
	}{
		{name: "no token", method: http.MethodGet, path: "/api/v1/requests/req-1", status: http.StatusUnauthorized, code: "UNAUTHORIZED"},
		{name: "missing request", method: http.MethodGet, path: "/api/v1/requests/missing", user: "admin", status: http.StatusNotFound, code: "NOT_FOUND"},
		{name: "outside area", method: http.MethodGet, path: "/api/v1/requests/foreign", user: "lead", status: http.StatusForbidden, code: "FORBIDDEN"},
		{name: "billing needs director", method: http.MethodGet, path: "/api/v1/billing", user: "lead", status: http.StatusForbidden, code: "FORBIDDEN"},
		{name: "transfer needs manager role", method: http.MethodPost, path: "/api/v1/requests/transfer", user: "", status: http.StatusUnauthorized, code: "UNAUTHORIZED"},
		{name: "month required", method: http.MethodGet, path: "/api/v1/statistics", user: "admin", status: http.StatusBadRequest, code: "VALIDATION_FAILED"},
		{name: "bad state filter", method: http.MethodGet, path: "/api/v1/requests?state=DONE", user: "admin", status: http.StatusBadRequest, code: "VALIDATION_FAILED"},
		{name: "unknown route", method: http.MethodGet, path: "/nope", status: http.StatusNotFound, code: "NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := s.do(t, tt.method, tt.path, tt.user)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, errorCode(body))
		})
	}

	assert.Equal(t, int64(1), s.metrics.Snapshot().Errors["/api/v1/requests/missing|GET|NOT_FOUND"])
}
