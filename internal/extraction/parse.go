package extraction

import (
	"strings"
	"time"

	"github.com/tmcgee/sparkinv/internal/domain"
)

// ParseResponse parses a model response: optional "key: value" header lines
// for supplier, invoice number and date, followed by one item per line in
// format: description | quantity | unit price.
func ParseResponse(raw string) *Result {
	result := &Result{
		Success:     true,
		Lines:       make([]domain.ExtractedLine, 0),
		RawResponse: raw,
	}

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		line = strings.Trim(line, "`")
		if line == "" {
			continue
		}

		// Skip common preamble lines from chatty models
		if strings.HasPrefix(line, "Here") || strings.HasPrefix(line, "I see") || strings.HasPrefix(line, "Based on") {
			continue
		}

		if key, value, ok := headerLine(line); ok {
			switch key {
			case "supplier":
				result.SupplierName = value
			case "invoice_number", "invoice number":
				result.InvoiceNumber = value
			case "date", "invoice_date":
				result.InvoiceDate = normaliseDate(value)
			}
			continue
		}

		if item, ok := parseItemLine(line); ok {
			result.Lines = append(result.Lines, item)
		}
	}

	return result
}

// headerLine matches "key: value" where key is a known header. Item
// descriptions may legitimately contain colons, so only the known keys are
// treated as headers.
func headerLine(line string) (key, value string, ok bool) {
	idx := strings.Index(line, ":")
	if idx < 0 {
		return "", "", false
	}
	key = strings.ToLower(strings.TrimSpace(line[:idx]))
	switch key {
	case "supplier", "invoice_number", "invoice number", "date", "invoice_date":
		return key, strings.TrimSpace(line[idx+1:]), true
	}
	return "", "", false
}

func parseItemLine(line string) (domain.ExtractedLine, bool) {
	parts := strings.Split(line, "|")
	item := domain.ExtractedLine{
		Description: strings.TrimSpace(parts[0]),
	}
	if item.Description == "" {
		return domain.ExtractedLine{}, false
	}

	if len(parts) >= 2 {
		item.RawQuantity = strings.TrimSpace(parts[1])
	}
	if len(parts) >= 3 {
		item.RawUnitPrice = strings.TrimSpace(parts[2])
	}
	return item, true
}

// normaliseDate coerces the date header to YYYY-MM-DD, trying the formats
// suppliers commonly print. Unparseable dates are passed through as-is so the
// user can still see and correct them during review.
func normaliseDate(value string) string {
	if value == "" {
		return ""
	}
	formats := []string{
		"2006-01-02",
		"2006/01/02",
		"02/01/2006",
		"02-01-2006",
		"2 January 2006",
		"02 Jan 2006",
	}
	for _, format := range formats {
		if d, err := time.Parse(format, value); err == nil {
			return d.Format("2006-01-02")
		}
	}
	return value
}
