package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tmcgee/sparkinv/internal/docgen"
	"github.com/tmcgee/sparkinv/internal/domain"
	"github.com/tmcgee/sparkinv/internal/invoice"
)

func (s *Server) handleListInvoices(w http.ResponseWriter, r *http.Request) {
	invoices, err := s.invoices.List(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to list invoices")
		s.logger.Error("list invoices failed", "error", err)
		return
	}
	s.writeJSON(w, http.StatusOK, invoices)
}

func (s *Server) handleCreateInvoice(w http.ResponseWriter, r *http.Request) {
	var req struct {
		QuoteRef      string               `json:"quote_ref"`
		CustomerName  string               `json:"customer_name"`
		IssueDate     string               `json:"issue_date"`
		OriginalItems []domain.InvoiceItem `json:"original_items"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.CustomerName) == "" {
		s.writeError(w, http.StatusBadRequest, "customer name required")
		return
	}

	inv := &domain.Invoice{
		ID:            uuid.NewString(),
		QuoteRef:      req.QuoteRef,
		CustomerName:  req.CustomerName,
		IssueDate:     req.IssueDate,
		OriginalItems: req.OriginalItems,
	}
	for i := range inv.OriginalItems {
		if inv.OriginalItems[i].ID == "" {
			inv.OriginalItems[i].ID = uuid.NewString()
		}
		if inv.OriginalItems[i].Source == "" {
			inv.OriginalItems[i].Source = domain.SourceQuote
		}
	}

	if err := s.invoices.Save(r.Context(), inv); err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to save invoice")
		s.logger.Error("create invoice failed", "error", err)
		return
	}
	s.writeJSON(w, http.StatusCreated, inv)
}

func (s *Server) handleGetInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := s.invoices.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to get invoice")
		s.logger.Error("get invoice failed", "invoice_id", r.PathValue("id"), "error", err)
		return
	}
	if inv == nil {
		s.writeError(w, http.StatusNotFound, "invoice not found")
		return
	}
	s.writeJSON(w, http.StatusOK, inv)
}

func (s *Server) handleDeleteInvoice(w http.ResponseWriter, r *http.Request) {
	if err := s.invoices.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, http.StatusNotFound, "invoice not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleOpenInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := s.invoices.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to get invoice")
		s.logger.Error("get invoice failed", "invoice_id", r.PathValue("id"), "error", err)
		return
	}
	if inv == nil {
		s.writeError(w, http.StatusNotFound, "invoice not found")
		return
	}

	if err := s.editor.Open(inv); err != nil {
		s.editorError(w, err)
		return
	}
	s.writeEditorView(w)
}

// editorView is the wizard state rendered to the client: the working invoice,
// its freshly derived totals, and where the user is in the flow.
type editorView struct {
	Invoice *domain.Invoice `json:"invoice"`
	Totals  invoice.Totals  `json:"totals"`
	Step    string          `json:"step"`
	Busy    bool            `json:"busy"`
}

func (s *Server) writeEditorView(w http.ResponseWriter) {
	inv := s.editor.Current()
	if inv == nil {
		s.writeError(w, http.StatusNotFound, "no invoice open")
		return
	}
	totals, err := s.editor.Totals()
	if err != nil {
		s.editorError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, editorView{
		Invoice: inv,
		Totals:  totals,
		Step:    s.editor.Step(),
		Busy:    s.editor.Busy(),
	})
}

func (s *Server) handleEditorView(w http.ResponseWriter, _ *http.Request) {
	s.writeEditorView(w)
}

// handleSaveEditor persists the working invoice. The busy flag is held for
// the duration of the write so a concurrent save or render is refused.
func (s *Server) handleSaveEditor(w http.ResponseWriter, r *http.Request) {
	if err := s.editor.BeginOperation(); err != nil {
		s.editorError(w, err)
		return
	}
	defer s.editor.EndOperation()

	inv := s.editor.Current()
	if err := s.invoices.Save(r.Context(), inv); err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to save invoice")
		s.logger.Error("save invoice failed", "invoice_id", inv.ID, "error", err)
		return
	}
	s.writeJSON(w, http.StatusOK, inv)
}

func (s *Server) handleCloseEditor(w http.ResponseWriter, _ *http.Request) {
	s.editor.Close()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddEditorItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Description string          `json:"description"`
		Quantity    decimal.Decimal `json:"quantity"`
		UnitPrice   decimal.Decimal `json:"unit_price"`
		Unit        string          `json:"unit"`
		Category    string          `json:"category"`
		Notes       string          `json:"notes"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Description) == "" {
		s.writeError(w, http.StatusBadRequest, "item description required")
		return
	}

	err := s.editor.AddItem(domain.InvoiceItem{
		Description: req.Description,
		Quantity:    req.Quantity,
		UnitPrice:   req.UnitPrice,
		Unit:        req.Unit,
		Category:    req.Category,
		Notes:       req.Notes,
	})
	if err != nil {
		s.editorError(w, err)
		return
	}
	s.writeEditorView(w)
}

func (s *Server) handleUpdateEditorItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Description *string          `json:"description"`
		Quantity    *decimal.Decimal `json:"quantity"`
		UnitPrice   *decimal.Decimal `json:"unit_price"`
		Unit        *string          `json:"unit"`
		Category    *string          `json:"category"`
		Notes       *string          `json:"notes"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	patch := invoice.ItemPatch{
		Description: req.Description,
		Quantity:    req.Quantity,
		UnitPrice:   req.UnitPrice,
		Unit:        req.Unit,
		Category:    req.Category,
		Notes:       req.Notes,
	}
	if err := s.editor.UpdateAdditionalItem(r.PathValue("id"), patch); err != nil {
		s.editorError(w, err)
		return
	}
	s.writeEditorView(w)
}

func (s *Server) handleRemoveEditorItem(w http.ResponseWriter, r *http.Request) {
	if err := s.editor.RemoveAdditionalItem(r.PathValue("id")); err != nil {
		s.editorError(w, err)
		return
	}
	s.writeEditorView(w)
}

func (s *Server) handleAdjustOriginalItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Quantity  *decimal.Decimal `json:"quantity"`
		UnitPrice *decimal.Decimal `json:"unit_price"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.editor.AdjustOriginalItem(r.PathValue("id"), req.Quantity, req.UnitPrice); err != nil {
		s.editorError(w, err)
		return
	}
	s.writeEditorView(w)
}

func (s *Server) handleEditorNext(w http.ResponseWriter, _ *http.Request) {
	step, err := s.editor.Next()
	if err != nil {
		s.editorError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"step": step})
}

func (s *Server) handleEditorPrevious(w http.ResponseWriter, _ *http.Request) {
	step, err := s.editor.Previous()
	if err != nil {
		s.editorError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"step": step})
}

// handleGenerateDocument renders the open invoice through the external
// document service. The busy flag gates the whole operation so a double
// submission cannot start a second render.
func (s *Server) handleGenerateDocument(w http.ResponseWriter, r *http.Request) {
	if s.docs == nil {
		s.writeError(w, http.StatusServiceUnavailable, docgen.ErrNotConfigured.Error())
		return
	}

	if err := s.editor.BeginOperation(); err != nil {
		s.editorError(w, err)
		return
	}
	defer s.editor.EndOperation()

	inv := s.editor.Current()
	url, err := s.docs.Generate(r.Context(), inv, s.profile)
	if err != nil {
		switch {
		case errors.Is(err, docgen.ErrNotConfigured):
			s.writeError(w, http.StatusServiceUnavailable, err.Error())
		case errors.Is(err, docgen.ErrDocumentTimeout):
			s.writeError(w, http.StatusGatewayTimeout, err.Error())
		default:
			s.writeError(w, http.StatusBadGateway, "document generation failed")
			s.logger.Error("document generation failed", "invoice_id", inv.ID, "error", err)
		}
		return
	}

	s.logger.Info("document generated", "invoice_id", inv.ID)
	s.writeJSON(w, http.StatusOK, map[string]string{"download_url": url})
}

func (s *Server) editorError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, invoice.ErrNoInvoice):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, invoice.ErrBusy):
		s.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, invoice.ErrItemNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	default:
		s.writeError(w, http.StatusInternalServerError, "editor operation failed")
		s.logger.Error("editor operation failed", "error", err)
	}
}
