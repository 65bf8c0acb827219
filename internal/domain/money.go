package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts free text from a scan or a live edit into a decimal
// amount. Currency symbols, thousands separators and surrounding noise are
// stripped. Anything that still fails to parse contributes zero rather than
// poisoning downstream totals.
func ParseAmount(raw string) decimal.Decimal {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero
	}

	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
		}
	}

	d, err := decimal.NewFromString(b.String())
	if err != nil {
		return decimal.Zero
	}
	return d
}
