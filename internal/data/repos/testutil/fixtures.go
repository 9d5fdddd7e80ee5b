package testutil

import (
	"testing"
	"time"

	"gorm.io/gorm"

	types "github.com/meridianerp/quotes-backend/internal/domain"
)

// SeedPrice inserts a price table entry directly, bypassing the repo layer.
func SeedPrice(tb testing.TB, tx *gorm.DB, priceTable, productType, productCode string, unitPrice int64) {
	tb.Helper()
	now := time.Now().UTC()
	entry := types.PriceTableEntry{
		PriceTable:  priceTable,
		ProductType: productType,
		ProductCode: productCode,
		UnitPrice:   unitPrice,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := tx.Create(&entry).Error; err != nil {
		tb.Fatalf("seed price %s/%s/%s: %v", priceTable, productType, productCode, err)
	}
}
