package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Material is one entry in the materials catalogue.
type Material struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Unit         string          `json:"unit"`
	Category     string          `json:"category"`
	DefaultPrice decimal.Decimal `json:"default_price"`
	CreatedAt    time.Time       `json:"created_at"`
}

// MaterialMatch is an immutable candidate proposed by the matcher for one
// extracted line. Score is a similarity confidence in [0,1]. Unit and
// Category travel with the match so a confirmed item keeps the catalogue's
// classification.
type MaterialMatch struct {
	MaterialID   int64           `json:"material_id"`
	Name         string          `json:"name"`
	Unit         string          `json:"unit,omitempty"`
	Category     string          `json:"category,omitempty"`
	Score        float64         `json:"score"`
	DefaultPrice decimal.Decimal `json:"default_price"`
}

// ExtractedLine is the raw text a scan produced for one line item. It is
// preserved unmodified on the scanned item for audit, no matter how the user
// edits the item afterwards.
type ExtractedLine struct {
	Description  string `json:"description"`
	RawQuantity  string `json:"raw_quantity,omitempty"`
	RawUnitPrice string `json:"raw_unit_price,omitempty"`
}

// ScannedItem is one reviewable line of a scan result.
type ScannedItem struct {
	ID           string          `json:"id"`
	Extracted    ExtractedLine   `json:"extracted"`
	Description  string          `json:"description"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Selected     bool            `json:"selected"`
	Match        *MaterialMatch  `json:"match,omitempty"`
	Alternatives []MaterialMatch `json:"alternatives"`
}

// LineTotal derives the item's total from its canonical fields.
func (i *ScannedItem) LineTotal() decimal.Decimal {
	return i.Quantity.Mul(i.UnitPrice)
}

// ScanResult is the outcome of one scan attempt. Exactly one result exists
// per session; it is discarded on reset or replaced by the next scan.
type ScanResult struct {
	Success       bool           `json:"success"`
	SupplierName  string         `json:"supplier_name,omitempty"`
	InvoiceNumber string         `json:"invoice_number,omitempty"`
	InvoiceDate   string         `json:"invoice_date,omitempty"`
	Items         []*ScannedItem `json:"items"`
}

// ItemSource records how an invoice item entered the invoice.
type ItemSource string

const (
	SourceQuote    ItemSource = "quote"
	SourceManual   ItemSource = "manual"
	SourceScan     ItemSource = "scan"
	SourceTemplate ItemSource = "template"
)

// InvoiceItem is a confirmed invoice line. Its total is never stored; it is
// recomputed from Quantity and UnitPrice on every read.
type InvoiceItem struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Unit        string          `json:"unit,omitempty"`
	Category    string          `json:"category,omitempty"`
	Notes       string          `json:"notes,omitempty"`
	Source      ItemSource      `json:"source"`
}

// LineTotal derives the item's total from its canonical fields.
func (i *InvoiceItem) LineTotal() decimal.Decimal {
	return i.Quantity.Mul(i.UnitPrice)
}

// Invoice holds two disjoint item collections: OriginalItems carried over
// from the source quote (adjust only) and AdditionalItems added manually,
// from templates, or from confirmed scans (fully mutable).
type Invoice struct {
	ID              string        `json:"id"`
	QuoteRef        string        `json:"quote_ref,omitempty"`
	CustomerName    string        `json:"customer_name"`
	IssueDate       string        `json:"issue_date,omitempty"`
	OriginalItems   []InvoiceItem `json:"original_items"`
	AdditionalItems []InvoiceItem `json:"additional_items"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// CompanyProfile is the business identity printed on generated documents.
type CompanyProfile struct {
	Name      string `json:"name"`
	Address   string `json:"address,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Email     string `json:"email,omitempty"`
	VATNumber string `json:"vat_number,omitempty"`
}
