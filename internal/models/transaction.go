package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is one row of the sales table. Date is normalised to UTC midnight.
type Transaction struct {
	Date          time.Time       `json:"date"`
	Variant       string          `json:"variant"`
	PaymentMethod string          `json:"payment_method"`
	Quantity      int64           `json:"quantity"`
	Revenue       decimal.Decimal `json:"revenue"`
	Cost          decimal.Decimal `json:"cost"`
	Profit        decimal.Decimal `json:"profit"`
}

// Consistent reports whether the row honours profit = revenue - cost.
func (t Transaction) Consistent() bool {
	return t.Profit.Equal(t.Revenue.Sub(t.Cost))
}

type DailyTrend struct {
	Date     time.Time       `json:"date"`
	Revenue  decimal.Decimal `json:"revenue"`
	Cost     decimal.Decimal `json:"cost"`
	Profit   decimal.Decimal `json:"profit"`
	Quantity int64           `json:"quantity"`
}

type VariantSummary struct {
	Variant  string          `json:"variant"`
	Quantity int64           `json:"quantity"`
	Profit   decimal.Decimal `json:"profit"`
}

type PaymentSummary struct {
	PaymentMethod string `json:"payment_method"`
	Quantity      int64  `json:"quantity"`
}

type DerivedMetrics struct {
	TotalRevenue        decimal.Decimal `json:"total_revenue"`
	TotalCost           decimal.Decimal `json:"total_cost"`
	TotalProfit         decimal.Decimal `json:"total_profit"`
	TotalQuantity       int64           `json:"total_quantity"`
	ProfitMarginPct     decimal.Decimal `json:"profit_margin_pct"`
	ROIPct              decimal.Decimal `json:"roi_pct"`
	SurplusOverBaseline decimal.Decimal `json:"surplus_over_baseline"`
	BaselineCost        decimal.Decimal `json:"baseline_cost"`
	BreakEven           bool            `json:"break_even"`
}

type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Report is the read-only snapshot produced by one filter evaluation.
type Report struct {
	Range            DateRange        `json:"range"`
	RecordCount      int              `json:"record_count"`
	Records          []Transaction    `json:"-"`
	Metrics          DerivedMetrics   `json:"metrics"`
	DailyTrend       []DailyTrend     `json:"daily_trend"`
	Variants         []VariantSummary `json:"variants"`
	Payments         []PaymentSummary `json:"payments"`
	Best             *VariantSummary  `json:"best,omitempty"`
	Worst            *VariantSummary  `json:"worst,omitempty"`
	Empty            bool             `json:"empty"`
	InconsistentRows int              `json:"inconsistent_rows"`
	GeneratedAt      time.Time        `json:"generated_at"`
}
