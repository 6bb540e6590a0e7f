package handlers

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

	"sales-dashboard/internal/models"
	"sales-dashboard/internal/services"
)

const testCSV = `Tanggal,Varian,Metode Bayar,Qty,Total Revenue,Total HPP,Total Profit
2024-01-01,A,QRIS,10,1000,600,400
2024-01-02,B,Cash,5,500,300,200
2024-01-10,A,Transfer,1,100,60,40
`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "penjualan.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func createTestAnalytics(t *testing.T) *services.Analytics {
	t.Helper()
	loader := services.NewLoader(services.LoaderOptions{Logger: testLogger()})
	return services.NewAnalytics(loader, writeCSV(t, testCSV), decimal.NewFromInt(200)).WithLogger(testLogger())
}

type envelope[T any] struct {
	Success bool `json:"success"`
	Data    T    `json:"data"`
	Error   struct {
		Code string `json:"code"`
	} `json:"error"`
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	var env envelope[T]
	if err := json.NewDecoder(w.Body).Decode(&env); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return env
}

func get(h http.HandlerFunc, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestNewAPIHandlers(t *testing.T) {
	analytics := createTestAnalytics(t)
	logger := testLogger()
	handlers := NewAPIHandlers(analytics, logger)

	if handlers.analytics != analytics || handlers.logger != logger {
		t.Error("NewAPIHandlers() should keep its dependencies")
	}
}

func TestAPIHandlers_HandleReport(t *testing.T) {
	handlers := NewAPIHandlers(createTestAnalytics(t), testLogger())

	w := get(handlers.HandleReport, "/api/report?start=2024-01-01&end=2024-01-02")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body)
	}
	if w.Header().Get("Cache-Control") != "no-store" {
		t.Errorf("Cache-Control = %q", w.Header().Get("Cache-Control"))
	}

	env := decode[models.Report](t, w)
	report := env.Data
	m := report.Metrics
	if !env.Success || report.RecordCount != 2 || report.Empty {
		t.Fatalf("unexpected report: %+v", report)
	}
	checks := map[string]decimal.Decimal{
		"1500": m.TotalRevenue,
		"900":  m.TotalCost,
		"600":  m.TotalProfit,
		"40":   m.ProfitMarginPct,
		"300":  m.ROIPct,
		"400":  m.SurplusOverBaseline,
	}
	for want, got := range checks {
		if !got.Equal(decimal.RequireFromString(want)) {
			t.Errorf("metric = %s, want %s", got, want)
		}
	}
	if m.TotalQuantity != 15 || !m.BreakEven {
		t.Errorf("quantity %d break-even %v", m.TotalQuantity, m.BreakEven)
	}
	if report.Best == nil || report.Best.Variant != "A" || report.Worst.Variant != "B" {
		t.Errorf("best/worst = %+v / %+v", report.Best, report.Worst)
	}
}

func TestAPIHandlers_HandleReport_DefaultsToBounds(t *testing.T) {
	handlers := NewAPIHandlers(createTestAnalytics(t), testLogger())

	env := decode[models.Report](t, get(handlers.HandleReport, "/api/report"))
	if env.Data.RecordCount != 3 {
		t.Errorf("RecordCount = %d, want the whole source", env.Data.RecordCount)
	}
	if got := env.Data.Range.End.Format("2006-01-02"); got != "2024-01-10" {
		t.Errorf("range end = %s", got)
	}
}

func TestAPIHandlers_HandleReport_EmptyRange(t *testing.T) {
	handlers := NewAPIHandlers(createTestAnalytics(t), testLogger())

	w := get(handlers.HandleReport, "/api/report?start=2023-06-01&end=2023-06-30")
	if w.Code != http.StatusOK {
		t.Fatalf("empty range should succeed, got %d", w.Code)
	}
	report := decode[models.Report](t, w).Data
	if !report.Empty || report.RecordCount != 0 || !report.Metrics.ProfitMarginPct.IsZero() {
		t.Errorf("unexpected empty report: %+v", report)
	}
	if report.Best != nil || report.Worst != nil {
		t.Error("empty report should have no best/worst variant")
	}
}

func TestAPIHandlers_Errors(t *testing.T) {
	missing := services.NewAnalytics(
		services.NewLoader(services.LoaderOptions{Logger: testLogger()}),
		filepath.Join(t.TempDir(), "missing.csv"),
		decimal.NewFromInt(200),
	).WithLogger(testLogger())

	tests := []struct {
		name       string
		analytics  *services.Analytics
		target     string
		wantStatus int
		wantCode   string
	}{
		{"reversed range", createTestAnalytics(t), "/api/report?start=2024-01-05&end=2024-01-01", http.StatusBadRequest, "INVALID_RANGE"},
		{"malformed date", createTestAnalytics(t), "/api/report?start=05-01-2024", http.StatusBadRequest, "VALIDATION_ERROR"},
		{"missing source", missing, "/api/report", http.StatusBadGateway, "DATA_LOAD_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(NewAPIHandlers(tt.analytics, testLogger()).HandleReport, tt.target)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			env := decode[json.RawMessage](t, w)
			if env.Success || env.Error.Code != tt.wantCode {
				t.Errorf("error code = %q, want %q", env.Error.Code, tt.wantCode)
			}
		})
	}
}

func TestAPIHandlers_Breakdowns(t *testing.T) {
	handlers := NewAPIHandlers(createTestAnalytics(t), testLogger())

	trend := decode[[]models.DailyTrend](t, get(handlers.HandleDailyTrend, "/api/daily-trend")).Data
	if len(trend) != 3 || trend[0].Date.Day() != 1 || trend[2].Date.Day() != 10 {
		t.Errorf("daily trend = %+v", trend)
	}

	variants := decode[[]models.VariantSummary](t, get(handlers.HandleVariants, "/api/variants")).Data
	if len(variants) != 2 || variants[0].Variant != "A" || variants[0].Quantity != 11 {
		t.Errorf("variants = %+v", variants)
	}

	payments := decode[[]models.PaymentSummary](t, get(handlers.HandlePayments, "/api/payments?end=2024-01-02")).Data
	if len(payments) != 2 || payments[0].PaymentMethod != "QRIS" || payments[1].PaymentMethod != "Cash" {
		t.Errorf("payments = %+v", payments)
	}

	records := decode[[]models.Transaction](t, get(handlers.HandleRecords, "/api/records?start=2024-01-02&end=2024-01-02")).Data
	if len(records) != 1 || records[0].Variant != "B" {
		t.Errorf("records = %+v", records)
	}
}

func TestAPIHandlers_HandleVariants_RankedByQuantity(t *testing.T) {
	path := writeCSV(t, `Tanggal,Varian,Metode Bayar,Qty,Total Revenue,Total HPP,Total Profit
2024-01-01,Kecil,Cash,1,10,5,5
2024-01-01,Besar,Cash,9,90,45,45
`)
	analytics := services.NewAnalytics(services.NewLoader(services.LoaderOptions{}), path, decimal.NewFromInt(1))
	handlers := NewAPIHandlers(analytics, testLogger())

	variants := decode[[]models.VariantSummary](t, get(handlers.HandleVariants, "/api/variants")).Data
	if len(variants) != 2 || variants[0].Variant != "Besar" {
		t.Errorf("variants should be ranked by quantity, got %+v", variants)
	}
}

func TestAPIHandlers_HandleBounds(t *testing.T) {
	handlers := NewAPIHandlers(createTestAnalytics(t), testLogger())

	env := decode[map[string]string](t, get(handlers.HandleBounds, "/api/bounds"))
	if env.Data["start"] != "2024-01-01" || env.Data["end"] != "2024-01-10" {
		t.Errorf("bounds = %v", env.Data)
	}
}

func TestAPIHandlers_HandleHealth(t *testing.T) {
	handlers := NewAPIHandlers(createTestAnalytics(t), testLogger())

	w := get(handlers.HandleHealth, "/health")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if cc := w.Header().Get("Cache-Control"); cc != "" {
		t.Errorf("health should not be cached, got %q", cc)
	}
	env := decode[map[string]string](t, w)
	if env.Data["status"] != "healthy" {
		t.Errorf("status = %q", env.Data["status"])
	}
}

func TestAPIHandlers_StatsAndReload(t *testing.T) {
	analytics := createTestAnalytics(t)
	handlers := NewAPIHandlers(analytics, testLogger())

	get(handlers.HandleReport, "/api/report")

	stats := decode[map[string]any](t, get(handlers.HandleStats, "/admin/stats")).Data
	if stats["record_count"] != float64(3) || stats["evaluations"] != float64(1) {
		t.Errorf("stats = %v", stats)
	}
	if stats["record_loads"] != float64(1) {
		t.Errorf("a report request should read the record set once, stats = %v", stats)
	}

	if err := os.WriteFile(analytics.Source(), []byte(testCSV+"2024-01-11,B,Cash,1,100,60,40\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	w := httptest.NewRecorder()
	handlers.HandleReload(w, httptest.NewRequest(http.MethodPost, "/admin/reload", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("reload status = %d", w.Code)
	}
	stats = decode[map[string]any](t, w).Data
	if stats["record_count"] != float64(4) || stats["source_fetches"] != float64(2) {
		t.Errorf("stats after reload = %v", stats)
	}
}

func TestAPIHandlers_ResponseFormat(t *testing.T) {
	handlers := NewAPIHandlers(createTestAnalytics(t), testLogger())

	endpoints := map[string]http.HandlerFunc{
		"/api/report":      handlers.HandleReport,
		"/api/daily-trend": handlers.HandleDailyTrend,
		"/api/variants":    handlers.HandleVariants,
		"/api/payments":    handlers.HandlePayments,
		"/api/records":     handlers.HandleRecords,
		"/api/bounds":      handlers.HandleBounds,
		"/admin/stats":     handlers.HandleStats,
	}

	for target, h := range endpoints {
		t.Run(target, func(t *testing.T) {
			w := get(h, target)
			if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
				t.Errorf("Content-Type = %q", ct)
			}
			var raw map[string]json.RawMessage
			if err := json.NewDecoder(w.Body).Decode(&raw); err != nil {
				t.Fatal(err)
			}
			if string(raw["success"]) != "true" {
				t.Errorf("success = %s", raw["success"])
			}
			if _, ok := raw["data"]; !ok {
				t.Error("response should carry data")
			}
		})
	}
}
