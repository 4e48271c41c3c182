// catalog.go — справочники секций и партий.
package handlers

import (
	"net/http"

	"github.com/bigkaa/sigid/internal/domain/model"
)

type sectionRequest struct {
	NumeroSeccion int `json:"numero_seccion"`
}

type partyRequest struct {
	Nombre string `json:"nombre"`
}

func mapSections(list []*model.Section) []sectionResponse {
	items := make([]sectionResponse, len(list))
	for i, s := range list {
		items[i] = sectionResponse{ID: s.ID, NumeroSeccion: s.NumeroSeccion}
	}
	return items
}

func mapParties(list []*model.Party) []partyResponse {
	items := make([]partyResponse, len(list))
	for i, p := range list {
		items[i] = partyResponse{ID: p.ID, Nombre: p.Nombre}
	}
	return items
}

// ListSections — GET /api/v1/sections.
func (h *APIHandler) ListSections(w http.ResponseWriter, r *http.Request) {
	list, err := h.Catalog.Sections(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSections(list))
}

// CreateSection — POST /api/v1/sections.
func (h *APIHandler) CreateSection(w http.ResponseWriter, r *http.Request) {
	var req sectionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s, err := h.Catalog.CreateSection(r.Context(), req.NumeroSeccion)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sectionResponse{ID: s.ID, NumeroSeccion: s.NumeroSeccion})
}

// UpdateSection — PUT /api/v1/sections/{id}.
func (h *APIHandler) UpdateSection(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	var req sectionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s, err := h.Catalog.UpdateSection(r.Context(), id, req.NumeroSeccion)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sectionResponse{ID: s.ID, NumeroSeccion: s.NumeroSeccion})
}

// DeleteSection — DELETE /api/v1/sections/{id}.
func (h *APIHandler) DeleteSection(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	if err := h.Catalog.DeleteSection(r.Context(), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListParties — GET /api/v1/parties.
func (h *APIHandler) ListParties(w http.ResponseWriter, r *http.Request) {
	list, err := h.Catalog.Parties(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapParties(list))
}

// CreateParty — POST /api/v1/parties.
func (h *APIHandler) CreateParty(w http.ResponseWriter, r *http.Request) {
	var req partyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := h.Catalog.CreateParty(r.Context(), req.Nombre)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, partyResponse{ID: p.ID, Nombre: p.Nombre})
}

// UpdateParty — PUT /api/v1/parties/{id}.
func (h *APIHandler) UpdateParty(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	var req partyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := h.Catalog.UpdateParty(r.Context(), id, req.Nombre)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, partyResponse{ID: p.ID, Nombre: p.Nombre})
}

// DeleteParty — DELETE /api/v1/parties/{id}.
func (h *APIHandler) DeleteParty(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	if err := h.Catalog.DeleteParty(r.Context(), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
