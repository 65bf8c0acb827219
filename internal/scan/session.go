package scan

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tmcgee/sparkinv/internal/domain"
)

// State is the scan session lifecycle. Transitions are strictly forward;
// starting a new scan discards any unconfirmed prior result.
type State string

const (
	StateIdle       State = "idle"
	StateProcessing State = "processing"
	StateMatching   State = "matching"
	StateReady      State = "ready"
	StateFailed     State = "failed"
)

var (
	ErrScanInProgress  = errors.New("a scan is already in progress")
	ErrNoResult        = errors.New("no scan result to review")
	ErrItemNotFound    = errors.New("scanned item not found")
	ErrUnknownMatch    = errors.New("match is not one of the item's candidates")
	ErrNothingSelected = errors.New("no items selected")
)

// Session holds at most one scan result and the review state around it. All
// mutations go through named operations; handlers never reach into the result
// directly.
type Session struct {
	mu     sync.Mutex
	state  State
	result *domain.ScanResult
	errMsg string
}

func NewSession() *Session {
	return &Session{state: StateIdle}
}

// Begin moves the session to processing, discarding any unconfirmed prior
// result. It fails only when a scan is already in flight.
func (s *Session) Begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateProcessing || s.state == StateMatching {
		return ErrScanInProgress
	}
	s.state = StateProcessing
	s.result = nil
	s.errMsg = ""
	return nil
}

// MarkMatching records that extraction finished and candidate matching is
// running.
func (s *Session) MarkMatching() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateProcessing {
		s.state = StateMatching
	}
}

// Complete stores the finished result and makes it available for review.
func (s *Session) Complete(result *domain.ScanResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateReady
	s.result = result
}

// Fail records a scan failure. The user re-invokes capture to retry; nothing
// is retried automatically.
func (s *Session) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateFailed
	s.result = nil
	s.errMsg = err.Error()
}

// Reset clears the result and returns the session to idle.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateIdle
	s.result = nil
	s.errMsg = ""
}

// ToggleItemSelection flips the selected flag on exactly one item.
func (s *Session) ToggleItemSelection(itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, err := s.findItem(itemID)
	if err != nil {
		return err
	}
	item.Selected = !item.Selected
	return nil
}

// SelectMatch assigns one of the item's candidate matches, identified by
// material ID. A nil materialID clears the match. The candidate list itself
// is never mutated.
func (s *Session) SelectMatch(itemID string, materialID *int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, err := s.findItem(itemID)
	if err != nil {
		return err
	}

	if materialID == nil {
		item.Match = nil
		return nil
	}

	for _, candidate := range item.Alternatives {
		if candidate.MaterialID == *materialID {
			chosen := candidate
			item.Match = &chosen
			// A zero price means extraction found none; fall back to the
			// catalogue default for the chosen material.
			if item.UnitPrice.IsZero() {
				item.UnitPrice = chosen.DefaultPrice
			}
			return nil
		}
	}
	return ErrUnknownMatch
}

// ItemPatch carries the editable fields of a scanned item. Nil fields are
// left unchanged.
type ItemPatch struct {
	Description *string
	Quantity    *decimal.Decimal
	UnitPrice   *decimal.Decimal
}

// UpdateItem merges the patch into one item. The extracted snapshot is never
// touched; the original OCR text stays available for audit.
func (s *Session) UpdateItem(itemID string, patch ItemPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, err := s.findItem(itemID)
	if err != nil {
		return err
	}
	if patch.Description != nil {
		item.Description = *patch.Description
	}
	if patch.Quantity != nil {
		item.Quantity = *patch.Quantity
	}
	if patch.UnitPrice != nil {
		item.UnitPrice = *patch.UnitPrice
	}
	return nil
}

// SelectAll marks every item selected.
func (s *Session) SelectAll() error {
	return s.setAll(true)
}

// DeselectAll clears every item's selected flag.
func (s *Session) DeselectAll() error {
	return s.setAll(false)
}

func (s *Session) setAll(selected bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady || s.result == nil {
		return ErrNoResult
	}
	for _, item := range s.result.Items {
		item.Selected = selected
	}
	return nil
}

// SelectedItems translates the currently selected items into invoice
// additional-item shape, in result order. Scan-only fields are dropped.
func (s *Session) SelectedItems() []domain.InvoiceItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedItemsLocked()
}

func (s *Session) selectedItemsLocked() []domain.InvoiceItem {
	if s.result == nil {
		return nil
	}
	items := make([]domain.InvoiceItem, 0)
	for _, item := range s.result.Items {
		if !item.Selected {
			continue
		}
		invItem := domain.InvoiceItem{
			ID:          uuid.NewString(),
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Category:    "material",
			Source:      domain.SourceScan,
		}
		// A matched item adopts the catalogue's name, unit, and category.
		if item.Match != nil {
			invItem.Description = item.Match.Name
			invItem.Unit = item.Match.Unit
			if item.Match.Category != "" {
				invItem.Category = item.Match.Category
			}
		}
		items = append(items, invItem)
	}
	return items
}

// SelectedTotal derives the running total over selected items from quantity
// and unit price on every call; nothing is cached.
func (s *Session) SelectedTotal() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := decimal.Zero
	if s.result == nil {
		return total
	}
	for _, item := range s.result.Items {
		if item.Selected {
			total = total.Add(item.LineTotal())
		}
	}
	return total
}

// Confirm hands back the selected items for merging into an invoice and
// resets the session. Confirming nothing is an error; the UI disables the
// action rather than treating it as a no-op.
func (s *Session) Confirm() ([]domain.InvoiceItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady || s.result == nil {
		return nil, ErrNoResult
	}
	items := s.selectedItemsLocked()
	if len(items) == 0 {
		return nil, ErrNothingSelected
	}
	s.state = StateIdle
	s.result = nil
	return items, nil
}

// View is a point-in-time copy of the session for rendering. Review opens
// only when CanReview is true; a successful scan with no items is reported
// as NoItemsFound instead.
type View struct {
	State         State              `json:"state"`
	Error         string             `json:"error,omitempty"`
	Result        *domain.ScanResult `json:"result,omitempty"`
	CanReview     bool               `json:"can_review"`
	NoItemsFound  bool               `json:"no_items_found"`
	SelectedTotal decimal.Decimal    `json:"selected_total"`
}

// Snapshot returns a deep copy of the session state; callers may not mutate
// the live result through it.
func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	view := View{
		State:         s.state,
		Error:         s.errMsg,
		SelectedTotal: decimal.Zero,
	}
	if s.result == nil {
		return view
	}

	view.Result = copyResult(s.result)
	view.CanReview = s.result.Success && len(s.result.Items) > 0
	view.NoItemsFound = s.result.Success && len(s.result.Items) == 0
	for _, item := range s.result.Items {
		if item.Selected {
			view.SelectedTotal = view.SelectedTotal.Add(item.LineTotal())
		}
	}
	return view
}

func (s *Session) findItem(itemID string) (*domain.ScannedItem, error) {
	if s.state != StateReady || s.result == nil {
		return nil, ErrNoResult
	}
	for _, item := range s.result.Items {
		if item.ID == itemID {
			return item, nil
		}
	}
	return nil, ErrItemNotFound
}

func copyResult(r *domain.ScanResult) *domain.ScanResult {
	out := *r
	out.Items = make([]*domain.ScannedItem, len(r.Items))
	for i, item := range r.Items {
		c := *item
		c.Alternatives = append([]domain.MaterialMatch(nil), item.Alternatives...)
		if item.Match != nil {
			m := *item.Match
			c.Match = &m
		}
		out.Items[i] = &c
	}
	return &out
}
