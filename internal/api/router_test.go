package api

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"entsoe-agent/internal/agent"
	"entsoe-agent/internal/api/middleware"
	"entsoe-agent/internal/entsoe"
	"entsoe-agent/internal/market"
	"entsoe-agent/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type routerFetcher struct {
	err   error
	calls int
}

func (f *routerFetcher) Fetch(_ context.Context, _ url.Values) (*entsoe.ParseResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	ts := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	return &entsoe.ParseResult{
		Status: model.StatusSuccess,
		DataPoints: []model.DataPoint{
			{Timestamp: ts, Position: 1, Value: 100, Unit: "MW", Resolution: 60},
			{Timestamp: ts.Add(time.Hour), Position: 2, Value: 300, Unit: "MW", Resolution: 60},
		},
		TotalPoints: 2,
	}, nil
}

func (f *routerFetcher) HasToken() bool { return true }

func setupRouter(t *testing.T, f *routerFetcher) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	calc := entsoe.NewCalculator(entsoe.WithClock(func() time.Time { return now }))
	svc := market.NewService(f, calc, nil)
	return NewRouter(svc, agent.NewRegistry(svc), RouterConfig{AllowedOrigins: []string{"*"}, TokenSet: true}, nil)
}

func do(router *gin.Engine, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	w := do(setupRouter(t, &routerFetcher{}), http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{"status": "ok", "api_token_set": true}, decode(t, w))
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
}

func TestRequestIDIsEchoed(t *testing.T) {
	router := setupRouter(t, &routerFetcher{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(middleware.RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "abc-123", w.Header().Get(middleware.RequestIDHeader))
}

func TestCountries(t *testing.T) {
	w := do(setupRouter(t, &routerFetcher{}), http.MethodGet, "/api/v1/countries", "")

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "success", body["status"])
	assert.EqualValues(t, len(entsoe.SupportedCountries()), body["total_countries"])
}

func TestGetProduct(t *testing.T) {
	f := &routerFetcher{}
	w := do(setupRouter(t, f), http.MethodGet, "/api/v1/data/load?country=DE&hours_back=3", "")

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "success", body["status"])
	assert.EqualValues(t, 2, body["total_points"])
	assert.EqualValues(t, 3, body["time_range"].(map[string]any)["hours_requested"])
	assert.Equal(t, 1, f.calls)
}

func TestGetProduct_CSV(t *testing.T) {
	w := do(setupRouter(t, &routerFetcher{}), http.MethodGet, "/api/v1/data/prices?country=FR&format=csv", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=day_ahead_price_fr.csv", w.Header().Get("Content-Disposition"))

	rows, err := csv.NewReader(w.Body).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 3)
	assert.Equal(t, "timestamp", rows[0][0])
}

func TestGetProduct_Flows(t *testing.T) {
	w := do(setupRouter(t, &routerFetcher{}), http.MethodGet, "/api/v1/data/flows?from=DE&to=FR", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "DE -> FR", decode(t, w)["flow_direction"])
}

func TestGetProduct_Failures(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target string
		status int
		kind   string
	}{
		{"unsupported country", nil, "/api/v1/data/load?country=XX", http.StatusBadRequest, "unsupported_country"},
		{"span rejected", nil, "/api/v1/data/generation_forecast?country=DE&days_ahead=9", http.StatusBadRequest, "invalid_request"},
		{"no data", &entsoe.Error{Kind: entsoe.KindNoDataFound, Message: "No data found for the requested parameters"}, "/api/v1/data/load?country=DE", http.StatusNotFound, "no_data_found"},
		{"unauthorized", &entsoe.Error{Kind: entsoe.KindUnauthorized, Message: "Unauthorized - Invalid API token"}, "/api/v1/data/imbalance?country=DE", http.StatusUnauthorized, "unauthorized"},
		{"rate limited", &entsoe.Error{Kind: entsoe.KindRateLimited, Message: "Rate limit exceeded"}, "/api/v1/data/load?country=DE", http.StatusTooManyRequests, "rate_limited"},
		{"missing credential", &entsoe.Error{Kind: entsoe.KindMissingCredential, Message: "ENTSO-E API token not found"}, "/api/v1/data/load?country=DE", http.StatusServiceUnavailable, "missing_credential"},
		{"malformed", &entsoe.Error{Kind: entsoe.KindMalformedDocument, Message: "XML parsing failed"}, "/api/v1/data/load?country=DE", http.StatusBadGateway, "malformed_document"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(setupRouter(t, &routerFetcher{err: tt.err}), http.MethodGet, tt.target, "")

			assert.Equal(t, tt.status, w.Code, w.Body.String())
			body := decode(t, w)
			assert.Equal(t, "error", body["status"])
			assert.Equal(t, tt.kind, body["error_kind"])
			assert.Empty(t, body["data_points"])
		})
	}
}

func TestGetProduct_BadQuery(t *testing.T) {
	router := setupRouter(t, &routerFetcher{})

	w := do(router, http.MethodGet, "/api/v1/data/weather?country=DE", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "UNSUPPORTED_PRODUCT", decode(t, w)["error"].(map[string]any)["code"])

	w = do(router, http.MethodGet, "/api/v1/data/load?country=DE&format=xml", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", decode(t, w)["error"].(map[string]any)["code"])
}

func TestOverviewAndCompare(t *testing.T) {
	router := setupRouter(t, &routerFetcher{})

	w := do(router, http.MethodGet, "/api/v1/overview?country=NL", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 200, decode(t, w)["load_summary"].(map[string]any)["average"])

	w = do(router, http.MethodGet, "/api/v1/overview?country=XX", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(router, http.MethodGet, "/api/v1/overview", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(router, http.MethodGet, "/api/v1/compare?countries=DE,FR", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["country_data"], 2)

	w = do(router, http.MethodGet, "/api/v1/compare?countries=,", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAnalyzeFlows(t *testing.T) {
	router := setupRouter(t, &routerFetcher{})

	w := do(router, http.MethodGet, "/api/v1/flows/analysis?pairs=DE-FR,bogus", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Contains(t, body["flow_summary"], "DE->FR")
	assert.Equal(t, []any{"bogus"}, body["skipped"])

	w = do(router, http.MethodGet, "/api/v1/flows/analysis?pairs=bogus", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRenewablesAndInsights(t *testing.T) {
	router := setupRouter(t, &routerFetcher{})

	w := do(router, http.MethodGet, "/api/v1/renewables?country=DK&hours_ahead=24", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 24, decode(t, w)["forecast_hours"])

	w = do(router, http.MethodGet, "/api/v1/insights?countries=DE,FR", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{"DE", "FR"}, decode(t, w)["countries_analyzed"])

	failing := setupRouter(t, &routerFetcher{err: &entsoe.Error{Kind: entsoe.KindNoDataFound, Message: "No data found for the requested parameters"}})
	w = do(failing, http.MethodGet, "/api/v1/renewables?country=PL", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInfoAndDebug(t *testing.T) {
	router := setupRouter(t, &routerFetcher{})

	w := do(router, http.MethodGet, "/api/v1/info", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["api_token_set"])

	w = do(router, http.MethodGet, "/api/v1/debug?country=DE", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "load", decode(t, w)["data_type"])

	w = do(router, http.MethodGet, "/api/v1/debug?country=XX&data_type=prices", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTools(t *testing.T) {
	router := setupRouter(t, &routerFetcher{})

	w := do(router, http.MethodGet, "/api/v1/tools", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.NotEmpty(t, body["instructions"])
	assert.Len(t, body["tools"], 16)

	w = do(router, http.MethodPost, "/api/v1/tools/get_electricity_load", `{"country_code":"DE"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body = decode(t, w)
	assert.Equal(t, "get_electricity_load", body["tool"])
	assert.Equal(t, "success", body["result"].(map[string]any)["status"])

	w = do(router, http.MethodPost, "/api/v1/tools/get_weather", `{}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "TOOL_NOT_FOUND", decode(t, w)["error"].(map[string]any)["code"])

	w = do(router, http.MethodPost, "/api/v1/tools/get_electricity_load", `{"country":"DE"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_ARGUMENTS", decode(t, w)["error"].(map[string]any)["code"])
}

func TestCORSPreflight(t *testing.T) {
	router := setupRouter(t, &routerFetcher{})
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/countries", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestNoRoute(t *testing.T) {
	w := do(setupRouter(t, &routerFetcher{}), http.MethodGet, "/api/v2/nothing", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", decode(t, w)["error"].(map[string]any)["code"])
}

func TestGetProduct_RateLimitedSetsRetryAfter(t *testing.T) {
	f := &routerFetcher{err: &entsoe.Error{Kind: entsoe.KindRateLimited, Message: "Rate limit exceeded - Too many requests", RetryAfter: "30"}}
	w := do(setupRouter(t, f), http.MethodGet, "/api/v1/data/load?country=DE", "")

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "30", w.Header().Get("Retry-After"))
	assert.Equal(t, "30", decode(t, w)["retry_after"])
}
