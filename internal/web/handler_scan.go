package web

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/tmcgee/sparkinv/internal/extraction"
	"github.com/tmcgee/sparkinv/internal/scan"
)

// handleStartScan accepts a multipart invoice photo, archives it, and kicks
// off extraction in the background. Clients poll GET /scans/current for the
// session state while the scan runs.
func (s *Server) handleStartScan(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(extraction.MaxImageBytes); err != nil {
		s.writeError(w, http.StatusBadRequest, "failed to parse form")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "image file required")
		return
	}
	defer closeWithLog(file, "scan upload", s.logger)

	imageData, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to read file")
		s.logger.Error("read scan upload failed", "error", err)
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = http.DetectContentType(imageData)
	}

	if err := s.scanner.Start(s.session, imageData, mimeType); err != nil {
		if errors.Is(err, scan.ErrScanInProgress) {
			s.writeError(w, http.StatusConflict, err.Error())
		} else {
			s.writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	s.archiveScanImage(r.Context(), mimeType, imageData)

	// The scan outlives the upload request; the client polls for the result.
	ctx := context.WithoutCancel(r.Context())
	go func() {
		if _, err := s.scanner.Process(ctx, s.session, imageData, mimeType); err != nil {
			s.logger.Error("scan failed", "error", err)
		}
	}()

	s.writeJSON(w, http.StatusAccepted, map[string]string{"state": string(scan.StateProcessing)})
}

// archiveScanImage stores the uploaded image, replacing any previous one.
// Archiving is best effort; a storage failure never blocks the scan itself.
func (s *Server) archiveScanImage(ctx context.Context, mimeType string, imageData []byte) {
	key, err := s.scans.Save(ctx, mimeType, bytes.NewReader(imageData))
	if err != nil {
		s.logger.Error("failed to archive scan image", "error", err)
		return
	}

	s.mu.Lock()
	previous := s.scanKey
	s.scanKey = key
	s.mu.Unlock()

	if previous != "" {
		if err := s.scans.Delete(ctx, previous); err != nil {
			s.logger.Error("failed to delete previous scan image", "key", previous, "error", err)
		}
	}
}

func (s *Server) handleScanView(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.session.Snapshot())
}

func (s *Server) handleScanImage(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	key := s.scanKey
	s.mu.Unlock()
	if key == "" {
		http.NotFound(w, r)
		return
	}

	reader, mimeType, err := s.scans.Get(r.Context(), key)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer closeWithLog(reader, "scan image", s.logger)

	w.Header().Set("Content-Type", mimeType)
	if _, err := io.Copy(w, reader); err != nil {
		s.logger.Error("write scan image failed", "error", err)
	}
}

func (s *Server) handleToggleItem(w http.ResponseWriter, r *http.Request) {
	if err := s.session.ToggleItemSelection(r.PathValue("id")); err != nil {
		s.scanError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.session.Snapshot())
}

func (s *Server) handleSelectMatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MaterialID *int64 `json:"material_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.session.SelectMatch(r.PathValue("id"), req.MaterialID); err != nil {
		s.scanError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.session.Snapshot())
}

func (s *Server) handleUpdateScanItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Description *string          `json:"description"`
		Quantity    *decimal.Decimal `json:"quantity"`
		UnitPrice   *decimal.Decimal `json:"unit_price"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	patch := scan.ItemPatch{
		Description: req.Description,
		Quantity:    req.Quantity,
		UnitPrice:   req.UnitPrice,
	}
	if err := s.session.UpdateItem(r.PathValue("id"), patch); err != nil {
		s.scanError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.session.Snapshot())
}

func (s *Server) handleSelectAll(w http.ResponseWriter, _ *http.Request) {
	if err := s.session.SelectAll(); err != nil {
		s.scanError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.session.Snapshot())
}

func (s *Server) handleDeselectAll(w http.ResponseWriter, _ *http.Request) {
	if err := s.session.DeselectAll(); err != nil {
		s.scanError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.session.Snapshot())
}

func (s *Server) handleResetScan(w http.ResponseWriter, r *http.Request) {
	s.session.Reset()

	s.mu.Lock()
	key := s.scanKey
	s.scanKey = ""
	s.mu.Unlock()
	if key != "" {
		if err := s.scans.Delete(r.Context(), key); err != nil {
			s.logger.Error("failed to delete scan image", "key", key, "error", err)
		}
	}

	s.writeJSON(w, http.StatusOK, s.session.Snapshot())
}

// handleConfirmScan merges the selected items into the open invoice and
// persists it. The session is only consumed once the editor is known to be
// able to receive the items.
func (s *Server) handleConfirmScan(w http.ResponseWriter, r *http.Request) {
	if s.editor.Current() == nil {
		s.writeError(w, http.StatusConflict, "no invoice open to receive items")
		return
	}

	// Hold the busy flag before consuming the session so a busy editor
	// refuses the confirm without losing the scanned items.
	if err := s.editor.BeginOperation(); err != nil {
		s.editorError(w, err)
		return
	}
	defer s.editor.EndOperation()

	items, err := s.session.Confirm()
	if err != nil {
		s.scanError(w, err)
		return
	}

	if err := s.editor.AppendScanItems(items); err != nil {
		s.writeError(w, http.StatusConflict, err.Error())
		return
	}

	updated := s.editor.Current()
	if err := s.invoices.Save(r.Context(), updated); err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to save invoice")
		s.logger.Error("save invoice after confirm failed", "invoice_id", updated.ID, "error", err)
		return
	}

	s.mu.Lock()
	key := s.scanKey
	s.scanKey = ""
	s.mu.Unlock()
	if key != "" {
		if err := s.scans.Delete(r.Context(), key); err != nil {
			s.logger.Error("failed to delete scan image", "key", key, "error", err)
		}
	}

	s.logger.Info("scan confirmed", "invoice_id", updated.ID, "items", len(items))
	s.writeEditorView(w)
}

func (s *Server) scanError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, scan.ErrNoResult):
		s.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, scan.ErrScanInProgress):
		s.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, scan.ErrItemNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, scan.ErrUnknownMatch), errors.Is(err, scan.ErrNothingSelected):
		s.writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.writeError(w, http.StatusInternalServerError, "scan operation failed")
		s.logger.Error("scan operation failed", "error", err)
	}
}
