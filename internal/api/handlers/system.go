// system.go — отчёты и служебные операции развёртывания.
package handlers

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	apierrors "github.com/bigkaa/sigid/internal/api/errors"
)

// ReportSummary — GET /api/v1/reports/affiliates.
func (h *APIHandler) ReportSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Reports.Summary(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapReport(summary))
}

// ReportCSV — GET /api/v1/reports/affiliates.csv. Выгрузка файлом.
func (h *APIHandler) ReportCSV(w http.ResponseWriter, r *http.Request) {
	name, data, err := h.Reports.CSV(r.Context(), h.now())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// CheckConnection — GET /api/v1/system/check-connection. Публичный.
// Недоступная база — 500 с {status:"error", message}.
func (h *APIHandler) CheckConnection(w http.ResponseWriter, r *http.Request) {
	status, ok := h.System.CheckConnection(r.Context())
	if !ok {
		writeJSON(w, http.StatusInternalServerError, status)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// InitDatabase — POST /api/v1/system/init-database.
// Требует заголовок X-Bootstrap-Token; без настроенного токена endpoint отключён.
func (h *APIHandler) InitDatabase(w http.ResponseWriter, r *http.Request) {
	if h.bootstrapToken == "" {
		apierrors.NotFound(w, "Operación no disponible.")
		return
	}
	token := strings.TrimSpace(r.Header.Get("X-Bootstrap-Token"))
	if subtle.ConstantTimeCompare([]byte(token), []byte(h.bootstrapToken)) != 1 {
		apierrors.Unauthorized(w, "Token de inicialización inválido.")
		return
	}

	res, err := h.System.InitDatabase(r.Context())
	if err != nil {
		h.logger.Error("Ошибка инициализации базы", "error", err)
		apierrors.InternalError(w, "No se pudo inicializar la base de datos.")
		return
	}
	writeJSON(w, http.StatusOK, res)
}
