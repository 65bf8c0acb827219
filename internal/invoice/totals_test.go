package invoice

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/tmcgee/sparkinv/internal/domain"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestItemsTotal(t *testing.T) {
	items := []domain.InvoiceItem{
		{Quantity: dec("2"), UnitPrice: dec("5.00")},
		{Quantity: dec("3"), UnitPrice: dec("10.00")},
	}
	assert.True(t, ItemsTotal(items).Equal(dec("40.00")))
}

func TestItemsTotal_Empty(t *testing.T) {
	assert.True(t, ItemsTotal(nil).IsZero())
}

func TestItemsTotal_ZeroValuedFieldsContributeNothing(t *testing.T) {
	// Malformed numeric input is coerced to zero upstream; the total must
	// stay well-defined.
	items := []domain.InvoiceItem{
		{Quantity: decimal.Zero, UnitPrice: dec("99.99")},
		{Quantity: dec("4"), UnitPrice: decimal.Zero},
		{Quantity: dec("2"), UnitPrice: dec("1.50")},
	}
	assert.True(t, ItemsTotal(items).Equal(dec("3.00")))
}

func TestCompute(t *testing.T) {
	inv := &domain.Invoice{
		OriginalItems: []domain.InvoiceItem{
			{Quantity: dec("1"), UnitPrice: dec("420.00")},
		},
		AdditionalItems: []domain.InvoiceItem{
			{Quantity: dec("25"), UnitPrice: dec("1.12")},
			{Quantity: dec("6"), UnitPrice: dec("3.20")},
		},
	}

	totals := Compute(inv)
	assert.True(t, totals.Original.Equal(dec("420.00")))
	assert.True(t, totals.Additional.Equal(dec("47.20")))
	assert.True(t, totals.Grand.Equal(dec("467.20")))
}

func TestComputeIgnoresNothingStored(t *testing.T) {
	// Changing quantity must change the total on the next read; there is no
	// cached value to go stale.
	inv := &domain.Invoice{
		AdditionalItems: []domain.InvoiceItem{{Quantity: dec("2"), UnitPrice: dec("5.00")}},
	}
	assert.True(t, Compute(inv).Grand.Equal(dec("10.00")))

	inv.AdditionalItems[0].Quantity = dec("3")
	assert.True(t, Compute(inv).Grand.Equal(dec("15.00")))
}
