package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/services"
)

type APIHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func NewAPIHandlers(analytics *services.Analytics, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		analytics: analytics,
		logger:    logger,
	}
}

var noStore = map[string]string{
	"Cache-Control": "no-store",
}

// report evaluates ?start=&end= (blank ends default to the source bounds) and
// writes the error response itself when that fails.
func (h *APIHandlers) report(w http.ResponseWriter, r *http.Request) (*models.Report, bool) {
	q := r.URL.Query()
	report, err := h.analytics.EvaluateInput(r.Context(), q.Get("start"), q.Get("end"))
	if err != nil {
		errors.WriteError(w, h.logger, err, observability.GetRequestID(r.Context()))
		return nil, false
	}
	return report, true
}

func (h *APIHandlers) HandleReport(w http.ResponseWriter, r *http.Request) {
	report, ok := h.report(w, r)
	if !ok {
		return
	}
	errors.WriteSuccessWithHeaders(w, report, noStore)
}

func (h *APIHandlers) HandleDailyTrend(w http.ResponseWriter, r *http.Request) {
	report, ok := h.report(w, r)
	if !ok {
		return
	}
	errors.WriteSuccessWithHeaders(w, report.DailyTrend, noStore)
}

// HandleVariants returns variant totals ranked by quantity sold.
func (h *APIHandlers) HandleVariants(w http.ResponseWriter, r *http.Request) {
	report, ok := h.report(w, r)
	if !ok {
		return
	}
	errors.WriteSuccessWithHeaders(w, services.SortVariantsByQuantity(report.Variants), noStore)
}

func (h *APIHandlers) HandlePayments(w http.ResponseWriter, r *http.Request) {
	report, ok := h.report(w, r)
	if !ok {
		return
	}
	errors.WriteSuccessWithHeaders(w, report.Payments, noStore)
}

func (h *APIHandlers) HandleRecords(w http.ResponseWriter, r *http.Request) {
	report, ok := h.report(w, r)
	if !ok {
		return
	}
	errors.WriteSuccessWithHeaders(w, report.Records, noStore)
}

func (h *APIHandlers) HandleBounds(w http.ResponseWriter, r *http.Request) {
	bounds, err := h.analytics.Bounds(r.Context())
	if err != nil {
		errors.WriteError(w, h.logger, err, observability.GetRequestID(r.Context()))
		return
	}

	errors.WriteSuccessWithHeaders(w, map[string]string{
		"start": bounds.Start.Format(time.DateOnly),
		"end":   bounds.End.Format(time.DateOnly),
	}, map[string]string{"Cache-Control": "public, max-age=60"})
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	healthData := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   "1.0.0",
	}

	errors.WriteSuccess(w, healthData)
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccess(w, h.analytics.Stats())
}

// HandleReload drops the cached source and loads it again.
func (h *APIHandlers) HandleReload(w http.ResponseWriter, r *http.Request) {
	if err := h.analytics.Reload(r.Context()); err != nil {
		errors.WriteError(w, h.logger, err, observability.GetRequestID(r.Context()))
		return
	}
	errors.WriteSuccess(w, h.analytics.Stats())
}
