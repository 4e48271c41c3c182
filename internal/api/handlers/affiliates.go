// affiliates.go — обработчики /api/v1/affiliates, credencial и OCR.
package handlers

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"

	"github.com/oapi-codegen/runtime"

	apierrors "github.com/bigkaa/sigid/internal/api/errors"
	"github.com/bigkaa/sigid/internal/domain/model"
	"github.com/bigkaa/sigid/internal/i18n"
	"github.com/bigkaa/sigid/internal/ocr"
	"github.com/bigkaa/sigid/internal/service"
	"github.com/bigkaa/sigid/internal/storage"
)

// ocrRequest — снимок credencial и текущее состояние формы.
type ocrRequest struct {
	// Imagen — data URL или base64 снимка
	Imagen     string               `json:"imagen"`
	Formulario model.AffiliateInput `json:"formulario"`
}

type ocrResponse struct {
	Campos      ocr.Fields           `json:"campos"`
	Formulario  model.AffiliateInput `json:"formulario"`
	Encontrados int                  `json:"encontrados"`
	Mensaje     string               `json:"mensaje"`
}

// ListAffiliates — GET /api/v1/affiliates?search=&limit=&offset=.
// Выборка ограничена ролью вызывающего.
func (h *APIHandler) ListAffiliates(w http.ResponseWriter, r *http.Request) {
	u, ok := caller(w, r)
	if !ok {
		return
	}
	limit, offset, ok := pageParams(w, r)
	if !ok {
		return
	}
	search := strings.TrimSpace(r.URL.Query().Get("search"))

	list, total, err := h.Affiliates.List(r.Context(), u, search, limit, offset)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newListResponse(mapAffiliates(list), total, limit, offset))
}

// RegisterAffiliate — POST /api/v1/affiliates. Только промоутер.
func (h *APIHandler) RegisterAffiliate(w http.ResponseWriter, r *http.Request) {
	u, ok := caller(w, r)
	if !ok {
		return
	}
	h.limitPhotoBody(w, r)
	var in model.AffiliateInput
	if !decodeJSON(w, r, &in) {
		return
	}
	a, err := h.Affiliates.Register(r.Context(), u, in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, mapAffiliate(a))
}

// GetAffiliate — GET /api/v1/affiliates/{id}.
func (h *APIHandler) GetAffiliate(w http.ResponseWriter, r *http.Request) {
	u, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := pathInt64(w, r, "id")
	if !ok {
		return
	}
	a, err := h.Affiliates.Get(r.Context(), u, id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapAffiliate(a))
}

// DeleteAffiliate — DELETE /api/v1/affiliates/{id}. Только администратор.
func (h *APIHandler) DeleteAffiliate(w http.ResponseWriter, r *http.Request) {
	u, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := pathInt64(w, r, "id")
	if !ok {
		return
	}
	if err := h.Affiliates.Delete(r.Context(), u, id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AffiliateCredential — GET /api/v1/affiliates/{id}/credential?lang=.
// HTML-карточка для печати; язык определяет i18n.Middleware.
func (h *APIHandler) AffiliateCredential(w http.ResponseWriter, r *http.Request) {
	u, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := pathInt64(w, r, "id")
	if !ok {
		return
	}

	lang := i18n.LangFromContext(r.Context())
	var buf bytes.Buffer
	if err := h.Credentials.Render(r.Context(), &buf, u, id, lang); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Language", lang)
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// AffiliateQR — GET /api/v1/affiliates/{id}/credential/qr.png?size=.
func (h *APIHandler) AffiliateQR(w http.ResponseWriter, r *http.Request) {
	u, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := pathInt64(w, r, "id")
	if !ok {
		return
	}
	var size *int
	if err := runtime.BindQueryParameter("form", true, false, "size", r.URL.Query(), &size); err != nil {
		apierrors.ValidationError(w, msgInvalidParam+"size")
		return
	}
	n := 0
	if size != nil {
		if *size < 64 || *size > 1024 {
			apierrors.ValidationError(w, msgInvalidParam+"size")
			return
		}
		n = *size
	}

	png, err := h.Credentials.QR(r.Context(), u, id, n)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// ScanCredential — POST /api/v1/ocr/credential.
// Неудачное распознавание — 200 с уведомлением и неизменённой формой.
func (h *APIHandler) ScanCredential(w http.ResponseWriter, r *http.Request) {
	if !h.OCR.Enabled() {
		h.writeServiceError(w, r, service.ErrOCRDisabled)
		return
	}
	h.limitPhotoBody(w, r)
	var req ocrRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var data []byte
	if strings.TrimSpace(req.Imagen) != "" {
		img, err := storage.DecodeDataURL(req.Imagen, h.photoMaxBytes)
		if err != nil {
			apierrors.ValidationError(w, "La fotografía no es válida. Use una imagen JPEG, PNG o WEBP.")
			return
		}
		data = img.Data
	}

	res, err := h.OCR.Scan(r.Context(), data, req.Formulario)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ocrResponse{
		Campos:      res.Fields,
		Formulario:  res.Form,
		Encontrados: res.Found,
		Mensaje:     res.Message,
	})
}
