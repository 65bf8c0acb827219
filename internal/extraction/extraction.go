package extraction

import (
	"context"
	"errors"
	"strings"

	"github.com/tmcgee/sparkinv/internal/domain"
)

// Prompt is the shared instruction used by all extraction backends.
const Prompt = `This is a photographed or scanned supplier invoice from an electrical wholesaler.
First output exactly three header lines:
supplier: <supplier name, or leave blank>
invoice_number: <invoice number, or leave blank>
date: <invoice date as YYYY-MM-DD, or leave blank>
Then output every line item on the invoice, one per line,
format: description | quantity | unit price
Do not output totals, VAT lines, delivery charges, or any other text.`

// MaxImageBytes is the largest accepted scan payload (20 MB).
const MaxImageBytes = 20 * 1024 * 1024

var (
	ErrNotAnImage    = errors.New("file is not an image")
	ErrImageTooLarge = errors.New("image exceeds the 20MB limit")
)

// ValidateImage rejects bad payloads before any network call is made.
func ValidateImage(data []byte, mimeType string) error {
	if !strings.HasPrefix(mimeType, "image/") {
		return ErrNotAnImage
	}
	if len(data) > MaxImageBytes {
		return ErrImageTooLarge
	}
	return nil
}

// Extractor turns an invoice image into a structured extraction result.
type Extractor interface {
	Extract(ctx context.Context, imageData []byte, mimeType string) (*Result, error)
}

// Result is the structured outcome of one extraction call. Lines preserve the
// raw model output for each item; nothing is coerced to numbers at this layer.
type Result struct {
	Success       bool
	SupplierName  string
	InvoiceNumber string
	InvoiceDate   string
	Lines         []domain.ExtractedLine
	RawResponse   string
}
