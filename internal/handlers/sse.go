package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/starfederation/datastar-go/datastar"

	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/ui/templates"
)

type SSEHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func NewSSEHandlers(analytics *services.Analytics, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		analytics: analytics,
		logger:    logger,
	}
}

// viewSignals is the part of the page state the server reads back.
type viewSignals struct {
	View  string `json:"view"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// readViewSignals takes the Datastar signal payload when present and plain
// query parameters otherwise.
func readViewSignals(r *http.Request) (viewSignals, error) {
	var s viewSignals
	q := r.URL.Query()
	if q.Has("datastar") {
		if err := datastar.ReadSignals(r, &s); err != nil {
			return s, errors.BadRequestWrap(err, "Malformed signals")
		}
		return s, nil
	}
	s.View = q.Get("view")
	s.Start = q.Get("start")
	s.End = q.Get("end")
	return s, nil
}

type trendPoint struct {
	Date    string `json:"date"`
	Revenue string `json:"revenue"`
	Cost    string `json:"cost"`
	Profit  string `json:"profit"`
}

func chartSignals(report *models.Report) ([]byte, error) {
	trend := make([]trendPoint, 0, len(report.DailyTrend))
	for _, d := range report.DailyTrend {
		trend = append(trend, trendPoint{
			Date:    d.Date.Format("2006-01-02"),
			Revenue: d.Revenue.String(),
			Cost:    d.Cost.String(),
			Profit:  d.Profit.String(),
		})
	}

	return json.Marshal(map[string]any{
		"start":       report.Range.Start.Format("2006-01-02"),
		"end":         report.Range.End.Format("2006-01-02"),
		"trendData":   trend,
		"variantData": services.SortVariantsByQuantity(report.Variants),
		"paymentData": report.Payments,
	})
}

// evaluate resolves the signals into a report. On failure the JSON error is
// written and nothing is streamed.
func (h *SSEHandlers) evaluate(w http.ResponseWriter, r *http.Request) (templates.View, *models.Report, bool) {
	ctx := r.Context()
	requestID := observability.GetRequestID(ctx)

	signals, err := readViewSignals(r)
	if err != nil {
		errors.WriteError(w, h.logger, err, requestID)
		return "", nil, false
	}

	report, err := h.analytics.EvaluateInput(ctx, signals.Start, signals.End)
	if err != nil {
		errors.WriteError(w, h.logger, err, requestID)
		return "", nil, false
	}
	return templates.ParseView(signals.View), report, true
}

// stream patches the given views and the chart signals.
func (h *SSEHandlers) stream(w http.ResponseWriter, r *http.Request, report *models.Report, views ...templates.View) {
	fragments := make([]string, 0, len(views))
	for _, v := range views {
		html, err := templates.RenderString(r.Context(), templates.Render(v, report))
		if err != nil {
			h.logger.Error("render view", "view", v, "error", err)
			errors.WriteError(w, h.logger, errors.InternalWrap(err, "Failed to render view"), observability.GetRequestID(r.Context()))
			return
		}
		fragments = append(fragments, html)
	}
	signals, err := chartSignals(report)
	if err != nil {
		h.logger.Error("marshal chart signals", "error", err)
		errors.WriteError(w, h.logger, errors.InternalWrap(err, "Failed to encode chart data"), observability.GetRequestID(r.Context()))
		return
	}

	sse := datastar.NewSSE(w, r)
	for _, html := range fragments {
		if err := sse.PatchElements(html); err != nil {
			h.logger.Warn("patch elements", "error", err)
			return
		}
	}
	if err := sse.PatchSignals(signals); err != nil {
		h.logger.Warn("patch signals", "error", err)
	}
}

// HandleView streams the selected view for the requested range.
func (h *SSEHandlers) HandleView(w http.ResponseWriter, r *http.Request) {
	view, report, ok := h.evaluate(w, r)
	if !ok {
		return
	}
	h.stream(w, r, report, view)
}

// HandleRefreshAll reloads the source and streams every view.
func (h *SSEHandlers) HandleRefreshAll(w http.ResponseWriter, r *http.Request) {
	if err := h.analytics.Reload(r.Context()); err != nil {
		errors.WriteError(w, h.logger, err, observability.GetRequestID(r.Context()))
		return
	}
	_, report, ok := h.evaluate(w, r)
	if !ok {
		return
	}
	h.stream(w, r, report, templates.Views...)
}
