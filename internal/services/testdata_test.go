package services

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"sales-dashboard/internal/models"
)

const salesHeader = "Tanggal,Varian,Metode Bayar,Qty,Total Revenue,Total HPP,Total Profit\n"

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func tx(date time.Time, variant, payment string, qty int64, revenue, cost, profit string) models.Transaction {
	return models.Transaction{
		Date:          date,
		Variant:       variant,
		PaymentMethod: payment,
		Quantity:      qty,
		Revenue:       dec(revenue),
		Cost:          dec(cost),
		Profit:        dec(profit),
	}
}

func sampleRecords() []models.Transaction {
	return []models.Transaction{
		tx(day(2024, 1, 3), "Ayam", "Cash", 4, "40000", "24000", "16000"),
		tx(day(2024, 1, 1), "Udang", "QRIS", 2, "24000", "14000", "10000"),
		tx(day(2024, 1, 2), "Ayam", "QRIS", 6, "60000", "36000", "24000"),
		tx(day(2024, 1, 1), "Mentai", "Cash", 3, "36000", "21000", "15000"),
		tx(day(2024, 1, 5), "Udang", "Cash", 1, "12000", "7000", "5000"),
		tx(day(2024, 1, 3), "Mentai", "Transfer", 5, "60000", "35000", "25000"),
	}
}

func createTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sales.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}
