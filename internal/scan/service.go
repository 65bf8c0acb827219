package scan

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tmcgee/sparkinv/internal/domain"
	"github.com/tmcgee/sparkinv/internal/extraction"
	"github.com/tmcgee/sparkinv/internal/imageprep"
	"github.com/tmcgee/sparkinv/internal/match"
)

// candidateFinder is the subset of match.Matcher the service requires.
type candidateFinder interface {
	Candidates(ctx context.Context, description string) ([]domain.MaterialMatch, error)
}

// Service runs the capture-to-review pipeline: validate, preprocess, extract,
// match, assemble. It drives the session's state transitions as it goes.
type Service struct {
	extractor extraction.Extractor
	matcher   candidateFinder
	logger    *slog.Logger
}

func NewService(extractor extraction.Extractor, matcher candidateFinder, logger *slog.Logger) *Service {
	return &Service{
		extractor: extractor,
		matcher:   matcher,
		logger:    logger,
	}
}

// Start validates the payload and moves the session into processing.
// Validation failures happen before the session transitions and before any
// network call.
func (s *Service) Start(session *Session, imageData []byte, mimeType string) error {
	if err := extraction.ValidateImage(imageData, mimeType); err != nil {
		return err
	}
	return session.Begin()
}

// Process runs the pipeline against a session Start has moved into
// processing. Start and Process are split so the upload handler can report
// the transition before the slow work begins. Extraction or matching
// failures move the session to failed; the user must re-invoke the scan,
// nothing retries automatically.
func (s *Service) Process(ctx context.Context, session *Session, imageData []byte, mimeType string) (*domain.ScanResult, error) {
	s.logger.Info("scan started", "mime_type", mimeType, "bytes", len(imageData))

	prepped, preppedMIME := imageprep.Prepare(imageData, mimeType)

	extracted, err := s.extractor.Extract(ctx, prepped, preppedMIME)
	if err != nil {
		session.Fail(err)
		return nil, fmt.Errorf("failed to extract invoice: %w", err)
	}
	s.logger.Info("extraction complete", "lines", len(extracted.Lines), "supplier", extracted.SupplierName)

	session.MarkMatching()
	result, err := s.assemble(ctx, extracted)
	if err != nil {
		session.Fail(err)
		return nil, fmt.Errorf("failed to match items: %w", err)
	}

	session.Complete(result)
	s.logger.Info("scan ready", "items", len(result.Items))
	return result, nil
}

func (s *Service) assemble(ctx context.Context, extracted *extraction.Result) (*domain.ScanResult, error) {
	result := &domain.ScanResult{
		Success:       extracted.Success,
		SupplierName:  extracted.SupplierName,
		InvoiceNumber: extracted.InvoiceNumber,
		InvoiceDate:   extracted.InvoiceDate,
		Items:         make([]*domain.ScannedItem, 0, len(extracted.Lines)),
	}

	for _, line := range extracted.Lines {
		item := &domain.ScannedItem{
			ID:          uuid.NewString(),
			Extracted:   line,
			Description: line.Description,
			Quantity:    parseQuantity(line.RawQuantity),
			UnitPrice:   domain.ParseAmount(line.RawUnitPrice),
			Selected:    true,
		}

		candidates, err := s.matcher.Candidates(ctx, line.Description)
		if err != nil {
			return nil, err
		}
		item.Alternatives = candidates
		if len(candidates) > 0 && candidates[0].Score >= match.AutoAssignScore {
			best := candidates[0]
			item.Match = &best
			if item.UnitPrice.IsZero() {
				item.UnitPrice = best.DefaultPrice
			}
		}

		result.Items = append(result.Items, item)
	}
	return result, nil
}

// parseQuantity treats a missing quantity as one unit; malformed text still
// contributes zero.
func parseQuantity(raw string) decimal.Decimal {
	if raw == "" {
		return decimal.New(1, 0)
	}
	return domain.ParseAmount(raw)
}
