package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fishbot-economy-api/internal/economy"
	"fishbot-economy-api/internal/model"
	"fishbot-economy-api/internal/persistence"
	"fishbot-economy-api/internal/repository"
	"fishbot-economy-api/internal/service"
)

var t0 = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type testServer struct {
	engine *economy.Engine
	repo   *repository.MemorySnapshotRepository
	econ   *EconomyHandler
	mux    http.Handler
	clock  time.Time
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	repo := repository.NewMemorySnapshotRepository()
	engine, err := economy.New(economy.Options{DailyReward: economy.DefaultDailyReward}, persistence.NewGateway(repo))
	require.NoError(t, err)
	require.NoError(t, engine.Init(context.Background()))

	ts := &testServer{engine: engine, repo: repo, clock: t0}
	ts.econ = NewEconomyHandler(engine)
	ts.econ.now = func() time.Time { return ts.clock }

	admin := NewAdminHandler(engine, repo, nil, "memory")
	health := New("fishbot-economy", "test", repo)

	r := chi.NewRouter()
	r.Get("/api/status", health.Status)
	r.Get("/api/v1/ready", health.Ready)
	r.Get("/api/v1/catalog", ts.econ.Catalog)
	r.Route("/api/v1/users/{user_id}", func(r chi.Router) {
		r.Post("/join", ts.econ.Join)
		r.Get("/balance", ts.econ.Balance)
		r.Get("/inventory", ts.econ.Inventory)
		r.Post("/daily", ts.econ.Daily)
		r.Post("/buy", ts.econ.Buy)
		r.Post("/sell", ts.econ.Sell)
	})
	r.Get("/api/v1/admin/stats", admin.GetStats)
	r.Post("/api/v1/admin/catalog/reload", admin.ReloadCatalog)
	r.Post("/api/v1/admin/checkpoint", admin.Checkpoint)
	ts.mux = r
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, body string) (int, envelope) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	ts.mux.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func TestJoin(t *testing.T) {
	ts := newTestServer(t)

	code, env := ts.do(t, http.MethodPost, "/api/v1/users/alice/join", "")
	require.Equal(t, http.StatusCreated, code)
	acct := decode[AccountResponse](t, env.Data)
	assert.True(t, acct.Created)
	assert.Equal(t, "alice", acct.UserID)
	assert.Zero(t, acct.Balance)
	assert.Empty(t, acct.Inventory)

	code, env = ts.do(t, http.MethodPost, "/api/v1/users/alice/join", "")
	require.Equal(t, http.StatusOK, code)
	assert.False(t, decode[AccountResponse](t, env.Data).Created)
}

func TestBalanceCreatesAccount(t *testing.T) {
	ts := newTestServer(t)

	code, env := ts.do(t, http.MethodGet, "/api/v1/users/bob/balance", "")
	require.Equal(t, http.StatusOK, code)
	body := decode[map[string]interface{}](t, env.Data)
	assert.Equal(t, "bob", body["user_id"])
	assert.EqualValues(t, 0, body["balance"])
	assert.Equal(t, 1, ts.engine.Stats().Accounts)
}

func TestDaily(t *testing.T) {
	ts := newTestServer(t)

	code, env := ts.do(t, http.MethodPost, "/api/v1/users/alice/daily", "")
	require.Equal(t, http.StatusOK, code)
	first := decode[DailyResponse](t, env.Data)
	assert.True(t, first.Claimed)
	assert.EqualValues(t, 100, first.Reward)
	assert.EqualValues(t, 100, first.Balance)
	assert.Equal(t, t0.Add(12*time.Hour), first.NextClaimAt)

	ts.clock = t0.Add(3*time.Hour + 20*time.Minute)
	code, env = ts.do(t, http.MethodPost, "/api/v1/users/alice/daily", "")
	require.Equal(t, http.StatusOK, code)
	second := decode[DailyResponse](t, env.Data)
	assert.False(t, second.Claimed)
	assert.EqualValues(t, 100, second.Balance)
	assert.Equal(t, 8, second.RemainingHours)
	assert.Equal(t, 40, second.RemainingMinutes)
	assert.EqualValues(t, (8*time.Hour+40*time.Minute)/time.Second, second.RemainingSeconds)

	ts.clock = t0.Add(12*time.Hour + time.Minute)
	_, env = ts.do(t, http.MethodPost, "/api/v1/users/alice/daily", "")
	third := decode[DailyResponse](t, env.Data)
	assert.True(t, third.Claimed)
	assert.EqualValues(t, 200, third.Balance)
}

func TestBuyAndSell(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodPost, "/api/v1/users/alice/daily", "")

	code, env := ts.do(t, http.MethodPost, "/api/v1/users/alice/buy", `{"item":"fish 1"}`)
	require.Equal(t, http.StatusOK, code)
	bought := decode[TradeResponse](t, env.Data)
	assert.Equal(t, "Fish 1", bought.Item.Name)
	assert.EqualValues(t, 10, bought.Price)
	assert.EqualValues(t, 90, bought.Balance)

	code, env = ts.do(t, http.MethodGet, "/api/v1/users/alice/inventory", "")
	require.Equal(t, http.StatusOK, code)
	inv := decode[AccountResponse](t, env.Data)
	require.Len(t, inv.Inventory, 1)
	assert.EqualValues(t, 10, inv.InventoryValue)

	code, env = ts.do(t, http.MethodPost, "/api/v1/users/alice/sell", `{"item":"FISH 1"}`)
	require.Equal(t, http.StatusOK, code)
	sold := decode[TradeResponse](t, env.Data)
	assert.EqualValues(t, 10, sold.Payout)
	assert.EqualValues(t, 100, sold.Balance)
}

func TestEconomyErrors(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{name: "buy_unknown_item", path: "/api/v1/users/alice/buy", body: `{"item":"Shark"}`, wantStatus: http.StatusNotFound, wantCode: "ITEM_NOT_FOUND"},
		{name: "buy_without_funds", path: "/api/v1/users/alice/buy", body: `{"item":"Fish 2"}`, wantStatus: http.StatusConflict, wantCode: "INSUFFICIENT_FUNDS"},
		{name: "sell_not_owned", path: "/api/v1/users/alice/sell", body: `{"item":"Fish 2"}`, wantStatus: http.StatusNotFound, wantCode: "ITEM_NOT_FOUND"},
		{name: "blank_item", path: "/api/v1/users/alice/buy", body: `{"item":"  "}`, wantStatus: http.StatusBadRequest, wantCode: "VALIDATION_ERROR"},
		{name: "missing_body", path: "/api/v1/users/alice/buy", wantStatus: http.StatusBadRequest, wantCode: "VALIDATION_ERROR"},
		{name: "bad_json", path: "/api/v1/users/alice/sell", body: `{"item":`, wantStatus: http.StatusBadRequest, wantCode: "BAD_REQUEST"},
		{name: "blank_user", path: "/api/v1/users/%20/join", wantStatus: http.StatusBadRequest, wantCode: "INVALID_USER"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)

			code, env := ts.do(t, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.wantStatus, code)
			assert.False(t, env.Success)
			assert.Equal(t, tt.wantCode, env.Error.Code)
		})
	}
}

func TestSellMessage(t *testing.T) {
	ts := newTestServer(t)

	_, env := ts.do(t, http.MethodPost, "/api/v1/users/alice/sell", `{"item":"Fish 1"}`)
	assert.Equal(t, "Item not found in your inventory.", env.Error.Message)

	_, env = ts.do(t, http.MethodPost, "/api/v1/users/alice/buy", `{"item":"Whale"}`)
	assert.Equal(t, "Item not found.", env.Error.Message)
}

func TestUnexpectedErrorIsInternal(t *testing.T) {
	rec := httptest.NewRecorder()
	writeEconomyError(rec, errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCatalog(t *testing.T) {
	ts := newTestServer(t)

	code, env := ts.do(t, http.MethodGet, "/api/v1/catalog", "")
	require.Equal(t, http.StatusOK, code)
	body := decode[struct {
		Items []model.Item `json:"items"`
		Count int          `json:"count"`
	}](t, env.Data)
	assert.Equal(t, 2, body.Count)
	assert.Equal(t, model.DefaultItems(), body.Items)
}

func TestReloadCatalog(t *testing.T) {
	ts := newTestServer(t)

	code, env := ts.do(t, http.MethodPost, "/api/v1/admin/catalog/reload",
		`{"items":[{"name":"Golden Carp","rarity":5,"price":250}]}`)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), "Golden Carp")
	assert.Len(t, ts.engine.Catalog(), 1)

	// An empty body reloads what was just stored.
	code, _ = ts.do(t, http.MethodPost, "/api/v1/admin/catalog/reload", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Golden Carp", ts.engine.Catalog()[0].Name)

	code, env = ts.do(t, http.MethodPost, "/api/v1/admin/catalog/reload",
		`{"items":[{"name":"","rarity":1,"price":1}]}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "INVALID_CATALOG", env.Error.Code)
	assert.Len(t, ts.engine.Catalog(), 1)
}

func TestAdminStats(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodPost, "/api/v1/users/alice/join", "")

	code, env := ts.do(t, http.MethodGet, "/api/v1/admin/stats", "")
	require.Equal(t, http.StatusOK, code)

	var stats struct {
		StoreType   string                 `json:"store_type"`
		Economy     economy.Stats          `json:"economy"`
		Store       map[string]interface{} `json:"store"`
		Checkpoints map[string]interface{} `json:"checkpoints"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, "memory", stats.StoreType)
	assert.Equal(t, 1, stats.Economy.Accounts)
	assert.Equal(t, "connected", stats.Store["status"])
	assert.Equal(t, "disabled", stats.Checkpoints["status"])
}

func TestCheckpointEndpoint(t *testing.T) {
	ts := newTestServer(t)

	code, env := ts.do(t, http.MethodPost, "/api/v1/admin/checkpoint", "")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "SERVICE_UNAVAILABLE", env.Error.Code)

	sched := service.NewCheckpointScheduler(ts.engine, service.CheckpointConfig{Interval: time.Hour})
	admin := NewAdminHandler(ts.engine, ts.repo, sched, "memory")

	rec := httptest.NewRecorder()
	admin.Checkpoint(rec, httptest.NewRequest(http.MethodPost, "/api/v1/admin/checkpoint", bytes.NewReader(nil)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, sched.Stats().Runs)
}

type failingStatsRepo struct {
	*repository.MemorySnapshotRepository
}

func (failingStatsRepo) GetStats(context.Context) (map[string]interface{}, error) {
	return nil, errors.New("connection refused")
}

func TestReady(t *testing.T) {
	ts := newTestServer(t)

	code, env := ts.do(t, http.MethodGet, "/api/v1/ready", "")
	require.Equal(t, http.StatusOK, code)
	assert.True(t, decode[ReadyResponse](t, env.Data).Ready)

	h := New("fishbot-economy", "test", failingStatsRepo{repository.NewMemorySnapshotRepository()})
	rec := httptest.NewRecorder()
	h.Ready(rec, httptest.NewRequest(http.MethodGet, "/api/v1/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
}

func TestStatus(t *testing.T) {
	ts := newTestServer(t)

	code, env := ts.do(t, http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, code)
	status := decode[StatusResponse](t, env.Data)
	assert.Equal(t, "fishbot-economy", status.Service)
	assert.Equal(t, "ok", status.Status)
	assert.Equal(t, "ok", status.Checks.Store)
}
