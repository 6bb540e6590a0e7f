package templates

//go:generate go run github.com/a-h/templ/cmd/templ@v0.3.943 generate

import (
	"context"
	"encoding/json"

	"github.com/a-h/templ"

	"sales-dashboard/internal/models"
)

// maxRawRows caps the raw table; the JSON API serves the full set.
const maxRawRows = 500

// Render returns the fragment for the selected view.
func Render(view View, report *models.Report) templ.Component {
	switch view {
	case ViewInsight:
		return InsightView(report)
	case ViewRaw:
		return RawView(report)
	default:
		return MainView(report)
	}
}

// RenderString renders c into a string, for SSE element patches.
func RenderString(ctx context.Context, c templ.Component) (string, error) {
	html, err := templ.ToGoHTML(ctx, c)
	return string(html), err
}

func rawRows(records []models.Transaction) []models.Transaction {
	if len(records) > maxRawRows {
		return records[:maxRawRows]
	}
	return records
}

// dashboardSignals is the initial Datastar signal set for the page shell.
func dashboardSignals(rng models.DateRange, view View) (string, error) {
	b, err := json.Marshal(map[string]any{
		"view":        string(view),
		"start":       formatDate(rng.Start),
		"end":         formatDate(rng.End),
		"trendData":   []any{},
		"variantData": []any{},
		"paymentData": []any{},
	})
	return string(b), err
}

func selectView(v View) string {
	return "$view = '" + string(v) + "'; @get('/sse/view')"
}

func showWhen(v View) string {
	return "$view == '" + string(v) + "'"
}
