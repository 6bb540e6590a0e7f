package templates

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// formatRupiah renders a whole-rupiah amount with dot thousands separators,
// e.g. "Rp 1.500.000" or "-Rp 25.000".
func formatRupiah(d decimal.Decimal) string {
	digits := d.Abs().Round(0).StringFixed(0)

	var b strings.Builder
	if d.Round(0).IsNegative() {
		b.WriteString("-")
	}
	b.WriteString("Rp ")
	lead := len(digits) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(digits[:lead])
	for i := lead; i < len(digits); i += 3 {
		b.WriteByte('.')
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

func formatPct(d decimal.Decimal) string {
	return d.StringFixed(2) + "%"
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

func formatCount(n int) string {
	return strconv.Itoa(n)
}

func formatQty(n int64) string {
	return strconv.FormatInt(n, 10)
}
