// assignments.go — назначения промоутеров, команда супервизора и квота промоутера.
package handlers

import (
	"net/http"

	"github.com/bigkaa/sigid/internal/service"
)

type createAssignmentRequest struct {
	SupervisorID string `json:"supervisor_id"`
	PromotorID   string `json:"promotor_id"`
	SeccionID    int    `json:"seccion_id"`
	Limite       *int   `json:"limite_afiliados"`
}

type updateLimitRequest struct {
	Limite int `json:"limite_afiliados"`
}

// ListAssignments — GET /api/v1/assignments?supervisor_id=.
func (h *APIHandler) ListAssignments(w http.ResponseWriter, r *http.Request) {
	supervisorID := r.URL.Query().Get("supervisor_id")
	if !optionalUUIDs(w, &supervisorID) {
		return
	}
	list, err := h.Assignments.List(r.Context(), supervisorID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	items := make([]assignmentResponse, len(list))
	for i, a := range list {
		items[i] = mapAssignment(a)
	}
	writeJSON(w, http.StatusOK, items)
}

// CreateAssignment — POST /api/v1/assignments.
func (h *APIHandler) CreateAssignment(w http.ResponseWriter, r *http.Request) {
	var req createAssignmentRequest
	if !decodeJSON(w, r, &req) || !optionalUUIDs(w, &req.SupervisorID, &req.PromotorID) {
		return
	}
	a, err := h.Assignments.Assign(r.Context(), service.AssignRequest{
		SupervisorID: req.SupervisorID,
		PromotorID:   req.PromotorID,
		SeccionID:    req.SeccionID,
		Limite:       req.Limite,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, mapAssignment(a))
}

// AssignedPromoters — GET /api/v1/assignments/assigned-promoters.
func (h *APIHandler) AssignedPromoters(w http.ResponseWriter, r *http.Request) {
	ids, err := h.Assignments.AssignedPromoterIDs(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, ids)
}

// DeleteAssignment — DELETE /api/v1/assignments/promoters/{promotorId}.
func (h *APIHandler) DeleteAssignment(w http.ResponseWriter, r *http.Request) {
	promotorID, ok := pathUUID(w, r, "promotorId")
	if !ok {
		return
	}
	if err := h.Assignments.Unassign(r.Context(), promotorID); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SupervisorTeam — GET /api/v1/supervisor/team.
func (h *APIHandler) SupervisorTeam(w http.ResponseWriter, r *http.Request) {
	u, ok := caller(w, r)
	if !ok {
		return
	}
	team, err := h.Assignments.SupervisorTeam(r.Context(), u.ID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapTeam(team))
}

// UpdatePromoterLimit — PUT /api/v1/supervisor/team/{promotorId}/limit.
// Меняется только назначение, принадлежащее вызывающему супервизору.
func (h *APIHandler) UpdatePromoterLimit(w http.ResponseWriter, r *http.Request) {
	u, ok := caller(w, r)
	if !ok {
		return
	}
	promotorID, ok := pathUUID(w, r, "promotorId")
	if !ok {
		return
	}
	var req updateLimitRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	q, err := h.Assignments.UpdateQuota(r.Context(), u.ID, promotorID, req.Limite)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapQuota(q))
}

// PromoterQuota — GET /api/v1/promoter/quota.
func (h *APIHandler) PromoterQuota(w http.ResponseWriter, r *http.Request) {
	u, ok := caller(w, r)
	if !ok {
		return
	}
	q, err := h.Affiliates.QuotaStatus(r.Context(), u.ID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapQuota(q))
}
