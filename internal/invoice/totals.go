package invoice

import (
	"github.com/shopspring/decimal"

	"github.com/tmcgee/sparkinv/internal/domain"
)

// Totals is the derived money summary of an invoice. It is computed fresh
// from quantity and unit price on every call; no stored total is ever
// trusted, so the display and any generated document always agree.
type Totals struct {
	Original   decimal.Decimal `json:"original"`
	Additional decimal.Decimal `json:"additional"`
	Grand      decimal.Decimal `json:"grand"`
}

// ItemsTotal sums quantity times unit price over the items.
func ItemsTotal(items []domain.InvoiceItem) decimal.Decimal {
	total := decimal.Zero
	for i := range items {
		total = total.Add(items[i].LineTotal())
	}
	return total
}

// Compute derives the invoice's totals from its two item collections.
func Compute(inv *domain.Invoice) Totals {
	original := ItemsTotal(inv.OriginalItems)
	additional := ItemsTotal(inv.AdditionalItems)
	return Totals{
		Original:   original,
		Additional: additional,
		Grand:      original.Add(additional),
	}
}
