package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"sales-dashboard/internal/config"
	"sales-dashboard/internal/services"
)

const salesCSV = `Tanggal,Varian,Metode Bayar,Qty,Total Revenue,Total HPP,Total Profit
2024-03-01,Ayam,QRIS,4,40000,24000,16000
2024-03-02,Udang,Cash,2,24000,14000,10000
2024-03-05,Mentai,Transfer,3,36000,21000,15000
`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *config.Config {
	return &config.Config{Security: config.SecurityConfig{
		EnableRateLimit: true,
		RateLimitRPS:    100,
		RateLimitBurst:  100,
		AllowedOrigins:  []string{"http://localhost:8084"},
	}}
}

func newTestAnalytics(t *testing.T, content string) *services.Analytics {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dataset_penjualan.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	loader := services.NewLoader(services.LoaderOptions{Logger: testLogger()})
	return services.NewAnalytics(loader, path, decimal.NewFromInt(200000)).WithLogger(testLogger())
}

func TestServer_Routes(t *testing.T) {
	handler := newHandler(testConfig(), newTestAnalytics(t, salesCSV), testLogger())

	tests := []struct {
		method         string
		path           string
		expectedStatus int
		contentType    string
	}{
		{http.MethodGet, "/", http.StatusOK, "text/html"},
		{http.MethodGet, "/api/report", http.StatusOK, "application/json"},
		{http.MethodGet, "/api/daily-trend", http.StatusOK, "application/json"},
		{http.MethodGet, "/api/variants", http.StatusOK, "application/json"},
		{http.MethodGet, "/api/payments", http.StatusOK, "application/json"},
		{http.MethodGet, "/api/records", http.StatusOK, "application/json"},
		{http.MethodGet, "/api/bounds", http.StatusOK, "application/json"},
		{http.MethodGet, "/health", http.StatusOK, "application/json"},
		{http.MethodGet, "/admin/stats", http.StatusOK, "application/json"},
		{http.MethodPost, "/admin/reload", http.StatusOK, "application/json"},
		{http.MethodGet, "/sse/view", http.StatusOK, "text/event-stream"},
		{http.MethodGet, "/sse/refresh-all", http.StatusOK, "text/event-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))

			if w.Code != tt.expectedStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.expectedStatus)
			}
			if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, tt.contentType) {
				t.Errorf("content-type = %q, want %q", ct, tt.contentType)
			}
			if w.Header().Get("X-Request-ID") == "" {
				t.Error("every response should carry a request id")
			}
			if tt.contentType == "application/json" {
				var result any
				if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
					t.Errorf("invalid json: %v", err)
				}
			}
		})
	}
}

func TestServer_UnknownRoutes(t *testing.T) {
	handler := newHandler(testConfig(), newTestAnalytics(t, salesCSV), testLogger())

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/nonexistent", http.StatusNotFound},
		{http.MethodGet, "/admin/reload", http.StatusMethodNotAllowed},
		{http.MethodPost, "/api/report", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
		if w.Code != tt.want {
			t.Errorf("%s %s status = %d, want %d", tt.method, tt.path, w.Code, tt.want)
		}
	}
}

func TestServer_ReportErrors(t *testing.T) {
	missing := services.NewAnalytics(
		services.NewLoader(services.LoaderOptions{Logger: testLogger()}),
		filepath.Join(t.TempDir(), "missing.csv"),
		decimal.NewFromInt(200000),
	).WithLogger(testLogger())

	tests := []struct {
		name      string
		analytics *services.Analytics
		path      string
		want      int
	}{
		{"reversed range", newTestAnalytics(t, salesCSV), "/api/report?start=2024-03-05&end=2024-03-01", http.StatusBadRequest},
		{"missing source", missing, "/api/report", http.StatusBadGateway},
		{"missing source dashboard", missing, "/", http.StatusBadGateway},
		{"bad row", newTestAnalytics(t, salesCSV+"2024-03-06,Ayam,Cash,satu,1,1,0\n"), "/api/report", http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			newHandler(testConfig(), tt.analytics, testLogger()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestServer_ReportScenario(t *testing.T) {
	handler := newHandler(testConfig(), newTestAnalytics(t, salesCSV), testLogger())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/report?start=2024-03-01&end=2024-03-02", nil))

	var resp struct {
		Data struct {
			RecordCount int `json:"record_count"`
			Metrics     struct {
				TotalProfit decimal.Decimal `json:"total_profit"`
				ROIPct      decimal.Decimal `json:"roi_pct"`
				BreakEven   bool            `json:"break_even"`
			} `json:"metrics"`
			Best struct {
				Variant string `json:"variant"`
			} `json:"best"`
		} `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}

	if resp.Data.RecordCount != 2 {
		t.Errorf("record_count = %d", resp.Data.RecordCount)
	}
	if !resp.Data.Metrics.TotalProfit.Equal(decimal.NewFromInt(26000)) {
		t.Errorf("total_profit = %s", resp.Data.Metrics.TotalProfit)
	}
	if !resp.Data.Metrics.ROIPct.Equal(decimal.NewFromInt(13)) {
		t.Errorf("roi_pct = %s, want 13", resp.Data.Metrics.ROIPct)
	}
	if resp.Data.Metrics.BreakEven {
		t.Error("26000 profit should not break even on a 200000 baseline")
	}
	if resp.Data.Best.Variant != "Ayam" {
		t.Errorf("best = %q", resp.Data.Best.Variant)
	}
}

func TestServer_SecurityHeaders(t *testing.T) {
	handler := newHandler(testConfig(), newTestAnalytics(t, salesCSV), testLogger())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	for _, h := range []string{"X-Content-Type-Options", "X-Frame-Options", "Content-Security-Policy"} {
		if w.Header().Get(h) == "" {
			t.Errorf("missing %s header", h)
		}
	}
}

func TestDashboardTemplate(t *testing.T) {
	handler := dashboardHandler(newTestAnalytics(t, salesCSV), testLogger())

	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodGet, "/?view=raw&start=2024-03-02", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{
		"<!doctype html>",
		"datastar",
		`min="2024-03-01"`,
		`max="2024-03-05"`,
		"&#34;start&#34;:&#34;2024-03-02&#34;",
		"&#34;view&#34;:&#34;raw&#34;",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("dashboard missing %q", want)
		}
	}
	if cc := w.Header().Get("Cache-Control"); cc != cacheMaxAge {
		t.Errorf("Cache-Control = %q", cc)
	}
}
