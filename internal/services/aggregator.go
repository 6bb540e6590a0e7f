package services

import (
	"slices"

	"sales-dashboard/internal/models"
)

// DailyTrendOf sums revenue, cost, profit and quantity per date, ascending by
// date. Dates without transactions are not synthesised.
func DailyTrendOf(filtered []models.Transaction) []models.DailyTrend {
	groups := make(map[int64]*models.DailyTrend)
	for _, tx := range filtered {
		day := truncateDay(tx.Date)
		key := day.Unix()
		row := groups[key]
		if row == nil {
			row = &models.DailyTrend{Date: day}
			groups[key] = row
		}
		row.Revenue = row.Revenue.Add(tx.Revenue)
		row.Cost = row.Cost.Add(tx.Cost)
		row.Profit = row.Profit.Add(tx.Profit)
		row.Quantity += tx.Quantity
	}

	result := make([]models.DailyTrend, 0, len(groups))
	for _, row := range groups {
		result = append(result, *row)
	}
	slices.SortFunc(result, func(a, b models.DailyTrend) int {
		return a.Date.Compare(b.Date)
	})
	return result
}

// GroupByVariant sums quantity and profit per variant in first-seen order.
// Keys match exactly: "Ayam" and "ayam " are different variants.
func GroupByVariant(filtered []models.Transaction) []models.VariantSummary {
	index := make(map[string]int)
	result := make([]models.VariantSummary, 0)
	for _, tx := range filtered {
		i, ok := index[tx.Variant]
		if !ok {
			i = len(result)
			index[tx.Variant] = i
			result = append(result, models.VariantSummary{Variant: tx.Variant})
		}
		result[i].Quantity += tx.Quantity
		result[i].Profit = result[i].Profit.Add(tx.Profit)
	}
	return result
}

// GroupByPaymentMethod sums quantity per payment method in first-seen order.
func GroupByPaymentMethod(filtered []models.Transaction) []models.PaymentSummary {
	index := make(map[string]int)
	result := make([]models.PaymentSummary, 0)
	for _, tx := range filtered {
		i, ok := index[tx.PaymentMethod]
		if !ok {
			i = len(result)
			index[tx.PaymentMethod] = i
			result = append(result, models.PaymentSummary{PaymentMethod: tx.PaymentMethod})
		}
		result[i].Quantity += tx.Quantity
	}
	return result
}

// SortVariantsByQuantity returns a copy ranked by quantity, highest first.
// The sort is stable so equal quantities keep aggregator order.
func SortVariantsByQuantity(rows []models.VariantSummary) []models.VariantSummary {
	ranked := slices.Clone(rows)
	slices.SortStableFunc(ranked, func(a, b models.VariantSummary) int {
		switch {
		case a.Quantity > b.Quantity:
			return -1
		case a.Quantity < b.Quantity:
			return 1
		}
		return 0
	})
	return ranked
}
