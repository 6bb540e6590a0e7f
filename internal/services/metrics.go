package services

import (
	"github.com/shopspring/decimal"

	"sales-dashboard/internal/models"
)

var hundred = decimal.NewFromInt(100)

// ComputeMetrics totals the filtered set and derives margin, ROI and surplus
// against the configured baseline capital. Baseline must be positive; that is
// enforced when configuration is loaded.
func ComputeMetrics(filtered []models.Transaction, baseline decimal.Decimal) models.DerivedMetrics {
	m := models.DerivedMetrics{BaselineCost: baseline}
	for _, tx := range filtered {
		m.TotalRevenue = m.TotalRevenue.Add(tx.Revenue)
		m.TotalCost = m.TotalCost.Add(tx.Cost)
		m.TotalProfit = m.TotalProfit.Add(tx.Profit)
		m.TotalQuantity += tx.Quantity
	}

	if m.TotalRevenue.IsPositive() {
		m.ProfitMarginPct = m.TotalProfit.Div(m.TotalRevenue).Mul(hundred)
	}
	m.ROIPct = m.TotalProfit.Div(baseline).Mul(hundred)
	m.SurplusOverBaseline = m.TotalProfit.Sub(baseline)
	m.BreakEven = m.TotalProfit.GreaterThanOrEqual(baseline)
	return m
}

// BestWorstVariant picks the rows with the highest and lowest quantity. On a
// tie the first row in input order wins. Both are nil for empty input.
func BestWorstVariant(rows []models.VariantSummary) (best, worst *models.VariantSummary) {
	for i := range rows {
		if best == nil || rows[i].Quantity > best.Quantity {
			best = &rows[i]
		}
		if worst == nil || rows[i].Quantity < worst.Quantity {
			worst = &rows[i]
		}
	}
	if best != nil {
		b, w := *best, *worst
		return &b, &w
	}
	return nil, nil
}

func countInconsistent(filtered []models.Transaction) int {
	n := 0
	for _, tx := range filtered {
		if !tx.Consistent() {
			n++
		}
	}
	return n
}
