package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fishbot-economy-api/internal/economy"
	"fishbot-economy-api/internal/handler"
	"fishbot-economy-api/internal/metrics"
	"fishbot-economy-api/internal/middleware"
	"fishbot-economy-api/internal/persistence"
	"fishbot-economy-api/internal/repository"
)

func newTestRouter(t *testing.T, loginKey string) http.Handler {
	t.Helper()

	repo := repository.NewMemorySnapshotRepository()
	engine, err := economy.New(economy.Options{DailyReward: economy.DefaultDailyReward}, persistence.NewGateway(repo))
	require.NoError(t, err)
	require.NoError(t, engine.Init(context.Background()))

	return New(Config{
		Handler:        handler.New("fishbot-economy", "test", repo),
		EconomyHandler: handler.NewEconomyHandler(engine),
		AdminHandler:   handler.NewAdminHandler(engine, repo, nil, "memory"),
		LoginKey:       loginKey,
		Metrics:        metrics.Handler(),
	})
}

func TestRoutes(t *testing.T) {
	r := newTestRouter(t, "secret")

	tests := []struct {
		method     string
		path       string
		key        string
		wantStatus int
	}{
		{method: http.MethodGet, path: "/api/status", wantStatus: http.StatusOK},
		{method: http.MethodGet, path: "/api/v1/health", wantStatus: http.StatusOK},
		{method: http.MethodGet, path: "/api/v1/ready", wantStatus: http.StatusOK},
		{method: http.MethodGet, path: "/api/v1/catalog", wantStatus: http.StatusOK},
		{method: http.MethodPost, path: "/api/v1/users/alice/join", wantStatus: http.StatusCreated},
		{method: http.MethodGet, path: "/api/v1/users/alice/balance", wantStatus: http.StatusOK},
		{method: http.MethodGet, path: "/api/v1/users/alice/inventory", wantStatus: http.StatusOK},
		{method: http.MethodPost, path: "/api/v1/users/alice/daily", wantStatus: http.StatusOK},
		{method: http.MethodGet, path: "/api/v1/users/alice/daily", wantStatus: http.StatusMethodNotAllowed},
		{method: http.MethodGet, path: "/api/v1/admin/stats", wantStatus: http.StatusUnauthorized},
		{method: http.MethodGet, path: "/api/v1/admin/stats", key: "wrong", wantStatus: http.StatusForbidden},
		{method: http.MethodGet, path: "/api/v1/admin/stats", key: "secret", wantStatus: http.StatusOK},
		{method: http.MethodGet, path: "/metrics", wantStatus: http.StatusOK},
		{method: http.MethodGet, path: "/nope", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.path, nil)
		if tt.key != "" {
			req.Header.Set(middleware.LoginKeyHeader, tt.key)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, tt.wantStatus, rec.Code, "%s %s", tt.method, tt.path)
	}
}

func TestAdminDisabledWithoutKey(t *testing.T) {
	r := newTestRouter(t, "")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/stats", nil)
	req.Header.Set(middleware.LoginKeyHeader, "anything")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRequestIDHeader(t *testing.T) {
	r := newTestRouter(t, "")

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
