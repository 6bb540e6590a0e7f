package templates

import "strings"

// View selects which dashboard panel is rendered.
type View string

const (
	ViewMain    View = "main"
	ViewInsight View = "insight"
	ViewRaw     View = "raw"
)

var Views = []View{ViewMain, ViewInsight, ViewRaw}

// ParseView maps a request value to a View. Unknown values fall back to
// ViewMain.
func ParseView(s string) View {
	switch View(strings.ToLower(strings.TrimSpace(s))) {
	case ViewInsight:
		return ViewInsight
	case ViewRaw:
		return ViewRaw
	default:
		return ViewMain
	}
}

// ElementID is the id of the fragment patched for this view.
func (v View) ElementID() string {
	return "view-" + string(v)
}

func (v View) Title() string {
	switch v {
	case ViewInsight:
		return "Insight Bisnis"
	case ViewRaw:
		return "Data Mentah"
	default:
		return "Dashboard Utama"
	}
}
