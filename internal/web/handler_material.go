package web

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

type materialRequest struct {
	Name         string          `json:"name"`
	Unit         string          `json:"unit"`
	Category     string          `json:"category"`
	DefaultPrice decimal.Decimal `json:"default_price"`
}

func (s *Server) handleListMaterials(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))

	var err error
	var materials any
	if query != "" {
		materials, err = s.materials.Search(r.Context(), query)
	} else {
		materials, err = s.materials.List(r.Context())
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to list materials")
		s.logger.Error("list materials failed", "error", err)
		return
	}
	s.writeJSON(w, http.StatusOK, materials)
}

func (s *Server) handleCreateMaterial(w http.ResponseWriter, r *http.Request) {
	var req materialRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		s.writeError(w, http.StatusBadRequest, "material name required")
		return
	}

	material, err := s.materials.Create(r.Context(), req.Name, req.Unit, req.Category, req.DefaultPrice)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to create material")
		s.logger.Error("create material failed", "error", err)
		return
	}
	s.writeJSON(w, http.StatusCreated, material)
}

func (s *Server) handleGetMaterial(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid material id")
		return
	}

	material, err := s.materials.GetByID(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to get material")
		s.logger.Error("get material failed", "material_id", id, "error", err)
		return
	}
	if material == nil {
		s.writeError(w, http.StatusNotFound, "material not found")
		return
	}
	s.writeJSON(w, http.StatusOK, material)
}

func (s *Server) handleUpdateMaterial(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid material id")
		return
	}

	var req materialRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		s.writeError(w, http.StatusBadRequest, "material name required")
		return
	}

	existing, err := s.materials.GetByID(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to get material")
		s.logger.Error("get material failed", "material_id", id, "error", err)
		return
	}
	if existing == nil {
		s.writeError(w, http.StatusNotFound, "material not found")
		return
	}

	if err := s.materials.Update(r.Context(), id, req.Name, req.Unit, req.Category, req.DefaultPrice); err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to update material")
		s.logger.Error("update material failed", "material_id", id, "error", err)
		return
	}

	material, err := s.materials.GetByID(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to get material")
		s.logger.Error("get material failed", "material_id", id, "error", err)
		return
	}
	s.writeJSON(w, http.StatusOK, material)
}

func (s *Server) handleDeleteMaterial(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid material id")
		return
	}

	existing, err := s.materials.GetByID(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to get material")
		s.logger.Error("get material failed", "material_id", id, "error", err)
		return
	}
	if existing == nil {
		s.writeError(w, http.StatusNotFound, "material not found")
		return
	}

	if err := s.materials.Delete(r.Context(), id); err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to delete material")
		s.logger.Error("delete material failed", "material_id", id, "error", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// parseID extracts the {id} path variable and returns it as int64.
func parseID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}
