package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailored-agentic-units/concierge/api"
	"github.com/tailored-agentic-units/concierge/core/protocol"
	"github.com/tailored-agentic-units/concierge/kernel"
	"github.com/tailored-agentic-units/concierge/observability"
	"github.com/tailored-agentic-units/concierge/oracle"
	"github.com/tailored-agentic-units/concierge/oracle/mock"
	"github.com/tailored-agentic-units/concierge/shop"
	"github.com/tailored-agentic-units/concierge/store"
)

type stubRunner struct {
	actor  int64
	query  string
	result *kernel.Result
	err    error
}

func (s *stubRunner) RunTurn(ctx context.Context, query string, actorID int64) (*kernel.Result, error) {
	s.actor = actorID
	s.query = query
	return s.result, s.err
}

func testConfig() api.Config {
	cfg := api.DefaultConfig()
	cfg.Tokens = map[string]int64{"alice-token": 42}
	cfg.ActorHeader = "X-Actor-Id"
	return cfg
}

func post(t *testing.T, h http.Handler, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	h := api.NewHandler(&stubRunner{}, testConfig(), api.WithLogger(observability.NewNopLogger()))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestChat_ActorResolution(t *testing.T) {
	tests := []struct {
		name      string
		cfg       func(*api.Config)
		headers   map[string]string
		wantCode  int
		wantActor int64
	}{
		{name: "bearer token", headers: map[string]string{"Authorization": "Bearer alice-token"}, wantCode: http.StatusOK, wantActor: 42},
		{name: "unknown token", headers: map[string]string{"Authorization": "Bearer mallory"}, wantCode: http.StatusUnauthorized},
		{name: "not a bearer", headers: map[string]string{"Authorization": "Basic abc"}, wantCode: http.StatusUnauthorized},
		{name: "gateway header", headers: map[string]string{"X-Actor-Id": "7"}, wantCode: http.StatusOK, wantActor: 7},
		{name: "malformed gateway header", headers: map[string]string{"X-Actor-Id": "seven"}, wantCode: http.StatusUnauthorized},
		{name: "non-positive gateway header", headers: map[string]string{"X-Actor-Id": "0"}, wantCode: http.StatusUnauthorized},
		{
			name:      "token wins over header",
			headers:   map[string]string{"Authorization": "Bearer alice-token", "X-Actor-Id": "7"},
			wantCode:  http.StatusOK,
			wantActor: 42,
		},
		{name: "anonymous rejected", wantCode: http.StatusUnauthorized},
		{name: "guest actor", cfg: func(c *api.Config) { c.GuestActor = 1 }, wantCode: http.StatusOK, wantActor: 1},
		{
			name:     "header ignored when disabled",
			cfg:      func(c *api.Config) { c.ActorHeader = "" },
			headers:  map[string]string{"X-Actor-Id": "7"},
			wantCode: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			if tt.cfg != nil {
				tt.cfg(&cfg)
			}
			runner := &stubRunner{result: &kernel.Result{Reply: "hi", RunID: "run-1", Steps: 2}}
			h := api.NewHandler(runner, cfg, api.WithLogger(observability.NewNopLogger()))

			w := post(t, h, `{"query":"hello","user_id":999}`, tt.headers)
			assert.Equal(t, tt.wantCode, w.Code, w.Body.String())
			assert.Equal(t, tt.wantActor, runner.actor)
		})
	}
}

func TestChat_Validation(t *testing.T) {
	cfg := testConfig()
	cfg.MaxQueryLength = 10
	auth := map[string]string{"Authorization": "Bearer alice-token"}

	tests := []struct {
		name     string
		body     string
		wantCode int
	}{
		{name: "malformed body", body: `{"query":`, wantCode: http.StatusBadRequest},
		{name: "blank query", body: `{"query":"   "}`, wantCode: http.StatusBadRequest},
		{name: "too long", body: `{"query":"this is far too long"}`, wantCode: http.StatusRequestEntityTooLarge},
		{name: "oversized body", body: `{"query":"hi","note":"` + strings.Repeat("x", 4096) + `"}`, wantCode: http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &stubRunner{}
			h := api.NewHandler(runner, cfg, api.WithLogger(observability.NewNopLogger()))

			w := post(t, h, tt.body, auth)
			assert.Equal(t, tt.wantCode, w.Code)
			assert.Zero(t, runner.actor, "runner must not be called")
		})
	}
}

func TestChat_ErrorStatus(t *testing.T) {
	auth := map[string]string{"Authorization": "Bearer alice-token"}

	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{name: "oracle unavailable", err: &oracle.Unavailable{Provider: "openai", Err: errors.New("refused")}, wantCode: http.StatusServiceUnavailable},
		{name: "step limit", err: fmt.Errorf("turn: %w", kernel.ErrStepLimit), wantCode: http.StatusServiceUnavailable},
		{name: "deadline", err: fmt.Errorf("turn: %w", context.DeadlineExceeded), wantCode: http.StatusGatewayTimeout},
		{name: "other", err: errors.New("boom"), wantCode: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &stubRunner{result: &kernel.Result{RunID: "run-9"}, err: tt.err}
			h := api.NewHandler(runner, testConfig(), api.WithLogger(observability.NewNopLogger()))

			w := post(t, h, `{"query":"hello"}`, auth)
			require.Equal(t, tt.wantCode, w.Code)

			var resp api.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Error)
			assert.Equal(t, "run-9", resp.RunID)
		})
	}
}

func TestChat_ToolCallSummary(t *testing.T) {
	runner := &stubRunner{result: &kernel.Result{
		Reply: "Done.",
		RunID: "run-2",
		Steps: 6,
		ToolCalls: []kernel.ToolCallRecord{
			{ToolCall: protocol.ToolCall{ID: "c1", Name: "checkout"}, Worker: "CartManager", Result: "cart is empty", IsError: true},
		},
	}}
	h := api.NewHandler(runner, testConfig(), api.WithLogger(observability.NewNopLogger()))

	w := post(t, h, `{"query":"checkout"}`, map[string]string{"Authorization": "Bearer alice-token"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp api.ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Done.", resp.Reply)
	assert.Equal(t, 6, resp.Steps)
	assert.Equal(t, []api.ToolCall{{Name: "checkout", Worker: "CartManager", IsError: true}}, resp.ToolCalls)
	assert.Equal(t, "checkout", runner.query)
}

func TestChat_EndToEndWithMetrics(t *testing.T) {
	s, err := store.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	_, err = s.Seed(context.Background())
	require.NoError(t, err)

	reg, err := shop.Tools(s)
	require.NoError(t, err)

	promReg := prometheus.NewRegistry()
	metrics, err := observability.NewMetricsObserver("concierge", promReg)
	require.NoError(t, err)

	script := mock.New().
		Routes("ProductSearch", "FINISH").
		Tools(mock.Call("c1", "search_products", `{"query":"headphones"}`)).
		Text("We have the Premium Wireless Headphones.")

	cfg := kernel.DefaultConfig()
	k, err := kernel.New(&cfg,
		kernel.WithRegistry(reg),
		kernel.WithCrew(shop.Crew()),
		kernel.WithAdapter(oracle.NewAdapter(script)),
		kernel.WithObserver(metrics),
		kernel.WithLogger(observability.NewNopLogger()))
	require.NoError(t, err)

	h := api.NewHandler(k, testConfig(),
		api.WithLogger(observability.NewNopLogger()),
		api.WithMetrics(promhttp.HandlerFor(promReg, promhttp.HandlerOpts{})))

	w := post(t, h, `{"query":"find me headphones"}`, map[string]string{"X-Actor-Id": "42"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp api.ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "We have the Premium Wireless Headphones.", resp.Reply)
	assert.Equal(t, []api.ToolCall{{Name: "search_products", Worker: "ProductSearch"}}, resp.ToolCalls)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Routes().WithLabelValues("ProductSearch")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ToolCalls().WithLabelValues("search_products", "ok")))

	mw := httptest.NewRecorder()
	h.ServeHTTP(mw, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, mw.Code)
	assert.Contains(t, mw.Body.String(), `concierge_routes_total{label="FINISH"} 1`)
}
