package invoice

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tmcgee/sparkinv/internal/domain"
)

var (
	ErrNoInvoice    = errors.New("no invoice open")
	ErrBusy         = errors.New("an operation is already in flight")
	ErrItemNotFound = errors.New("invoice item not found")
)

// Editor wraps the invoice currently being built: its two item collections,
// the wizard position, and the in-flight flag that disables navigation and
// duplicate submissions while a save or document-generation call is pending.
type Editor struct {
	mu      sync.Mutex
	invoice *domain.Invoice
	wizard  *Wizard
	busy    bool
}

func NewEditor() *Editor {
	return &Editor{wizard: NewWizard()}
}

// Open loads an invoice into the editor, returning the wizard to the first
// step. Refused while an operation is in flight.
func (e *Editor) Open(inv *domain.Invoice) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.busy {
		return ErrBusy
	}
	e.invoice = inv
	e.wizard.Reset()
	return nil
}

// Close drops the open invoice.
func (e *Editor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.invoice = nil
	e.wizard.Reset()
	e.busy = false
}

// Current returns a copy of the open invoice, or nil when none is open.
// Mutations go through the editor's operations, never through the copy.
func (e *Editor) Current() *domain.Invoice {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.invoice == nil {
		return nil
	}
	return copyInvoice(e.invoice)
}

// Totals derives the open invoice's totals fresh from its items.
func (e *Editor) Totals() (Totals, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.invoice == nil {
		return Totals{}, ErrNoInvoice
	}
	return Compute(e.invoice), nil
}

// AddItem appends one item to the additional collection, assigning an ID if
// the caller did not.
func (e *Editor) AddItem(item domain.InvoiceItem) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.invoice == nil {
		return ErrNoInvoice
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.Source == "" {
		item.Source = domain.SourceManual
	}
	e.invoice.AdditionalItems = append(e.invoice.AdditionalItems, item)
	return nil
}

// AppendScanItems merges confirmed scan items into the additional collection.
func (e *Editor) AppendScanItems(items []domain.InvoiceItem) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.invoice == nil {
		return ErrNoInvoice
	}
	e.invoice.AdditionalItems = append(e.invoice.AdditionalItems, items...)
	return nil
}

// ItemPatch carries the editable fields of an additional item. Nil fields
// are left unchanged.
type ItemPatch struct {
	Description *string
	Quantity    *decimal.Decimal
	UnitPrice   *decimal.Decimal
	Unit        *string
	Category    *string
	Notes       *string
}

// UpdateAdditionalItem merges the patch into one additional item.
func (e *Editor) UpdateAdditionalItem(itemID string, patch ItemPatch) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.invoice == nil {
		return ErrNoInvoice
	}
	for i := range e.invoice.AdditionalItems {
		if e.invoice.AdditionalItems[i].ID != itemID {
			continue
		}
		applyPatch(&e.invoice.AdditionalItems[i], patch)
		return nil
	}
	return ErrItemNotFound
}

// AdjustOriginalItem changes the quantity or unit price of an item carried
// over from the source quote. Original items cannot be renamed or removed.
func (e *Editor) AdjustOriginalItem(itemID string, quantity, unitPrice *decimal.Decimal) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.invoice == nil {
		return ErrNoInvoice
	}
	for i := range e.invoice.OriginalItems {
		if e.invoice.OriginalItems[i].ID != itemID {
			continue
		}
		if quantity != nil {
			e.invoice.OriginalItems[i].Quantity = *quantity
		}
		if unitPrice != nil {
			e.invoice.OriginalItems[i].UnitPrice = *unitPrice
		}
		return nil
	}
	return ErrItemNotFound
}

// RemoveAdditionalItem deletes one additional item. Original items are not
// removable.
func (e *Editor) RemoveAdditionalItem(itemID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.invoice == nil {
		return ErrNoInvoice
	}
	for i := range e.invoice.AdditionalItems {
		if e.invoice.AdditionalItems[i].ID != itemID {
			continue
		}
		e.invoice.AdditionalItems = append(e.invoice.AdditionalItems[:i], e.invoice.AdditionalItems[i+1:]...)
		return nil
	}
	return ErrItemNotFound
}

// Next advances the wizard one step, clamped at the last step. Refused while
// an operation is in flight to avoid state corruption from concurrent step
// changes.
func (e *Editor) Next() (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.busy {
		return e.wizard.Step(), ErrBusy
	}
	e.wizard.Next()
	return e.wizard.Step(), nil
}

// Previous steps the wizard back, clamped at the first step. Refused while
// an operation is in flight.
func (e *Editor) Previous() (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.busy {
		return e.wizard.Step(), ErrBusy
	}
	e.wizard.Previous()
	return e.wizard.Step(), nil
}

// Step returns the current wizard step name.
func (e *Editor) Step() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.wizard.Step()
}

// Busy reports whether a save or document-generation call is in flight.
func (e *Editor) Busy() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.busy
}

// BeginOperation marks the editor busy for the duration of a save or
// generation call. It fails if another operation is already in flight,
// preventing duplicate submissions against the same invoice.
func (e *Editor) BeginOperation() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.invoice == nil {
		return ErrNoInvoice
	}
	if e.busy {
		return ErrBusy
	}
	e.busy = true
	return nil
}

// EndOperation clears the in-flight flag. Callers defer it immediately after
// a successful BeginOperation.
func (e *Editor) EndOperation() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.busy = false
}

func applyPatch(item *domain.InvoiceItem, patch ItemPatch) {
	if patch.Description != nil {
		item.Description = *patch.Description
	}
	if patch.Quantity != nil {
		item.Quantity = *patch.Quantity
	}
	if patch.UnitPrice != nil {
		item.UnitPrice = *patch.UnitPrice
	}
	if patch.Unit != nil {
		item.Unit = *patch.Unit
	}
	if patch.Category != nil {
		item.Category = *patch.Category
	}
	if patch.Notes != nil {
		item.Notes = *patch.Notes
	}
}

func copyInvoice(inv *domain.Invoice) *domain.Invoice {
	out := *inv
	out.OriginalItems = append([]domain.InvoiceItem(nil), inv.OriginalItems...)
	out.AdditionalItems = append([]domain.InvoiceItem(nil), inv.AdditionalItems...)
	return &out
}
