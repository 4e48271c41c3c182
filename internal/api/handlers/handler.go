// Пакет handlers — HTTP-обработчики SIGID.
// handler.go — основной обработчик API: объединяет доменные обработчики
// и делегирует запросы в сервисный слой.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"

	apierrors "github.com/bigkaa/sigid/internal/api/errors"
	"github.com/bigkaa/sigid/internal/api/middleware"
	"github.com/bigkaa/sigid/internal/domain/model"
	"github.com/bigkaa/sigid/internal/service"
)

const (
	msgInvalidJSON   = "El cuerpo de la solicitud no es un JSON válido."
	msgBodyTooLarge  = "La solicitud excede el tamaño permitido."
	msgInvalidEmail  = "El correo electrónico no es válido."
	msgInvalidID     = "Identificador inválido."
	msgInvalidParam  = "Parámetro de consulta inválido: "
	msgInternalError = "Error interno del servidor. Intente más tarde."
)

// Services — сервисы, которые использует API.
// Незаданные сервисы допустимы в тестах отдельных групп маршрутов.
type Services struct {
	Users       *service.UserService
	UserSync    *service.UserSyncService
	Assignments *service.AssignmentService
	Affiliates  *service.AffiliateService
	Catalog     *service.CatalogService
	Credentials *service.CredentialService
	OCR         *service.OCRService
	Reports     *service.ReportService
	System      *service.SystemService
}

// APIHandler — основной обработчик API SIGID.
type APIHandler struct {
	health *HealthHandler
	Services
	bootstrapToken string
	photoMaxBytes  int
	now            func() time.Time
	logger         *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
// bootstrapToken — токен POST /system/init-database (пустой — endpoint отключён).
func NewAPIHandler(
	health *HealthHandler,
	services Services,
	bootstrapToken string,
	photoMaxBytes int,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		health:         health,
		Services:       services,
		bootstrapToken: bootstrapToken,
		photoMaxBytes:  photoMaxBytes,
		now:            time.Now,
		logger:         logger.With(slog.String("component", "api_handler")),
	}
}

// HealthLive — liveness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики (делегируется в HealthHandler).
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// decodeJSON разбирает тело запроса. При ошибке пишет 400 и возвращает false.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			apierrors.ValidationError(w, msgBodyTooLarge)
			return false
		}
		if errors.Is(err, openapi_types.ErrValidationEmail) {
			apierrors.ValidationError(w, msgInvalidEmail)
			return false
		}
		apierrors.ValidationError(w, msgInvalidJSON)
		return false
	}
	return true
}

// limitPhotoBody ограничивает тело запроса со снимком: data URL в base64
// длиннее исходного файла, остальные поля формы укладываются в 1 МиБ.
func (h *APIHandler) limitPhotoBody(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, int64(h.photoMaxBytes)*2+1<<20)
}

// paginationDefaults нормализует параметры пагинации.
// Возвращает корректные limit и offset.
func paginationDefaults(limit *int, offset *int) (int, int) {
	l := 100
	o := 0

	if limit != nil {
		l = *limit
		if l < 1 {
			l = 1
		}
		if l > 1000 {
			l = 1000
		}
	}

	if offset != nil {
		o = *offset
		if o < 0 {
			o = 0
		}
	}

	return l, o
}

// pageParams читает limit и offset из query. При ошибке пишет 400.
func pageParams(w http.ResponseWriter, r *http.Request) (limit, offset int, ok bool) {
	var l, o *int
	q := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, false, "limit", q, &l); err != nil {
		apierrors.ValidationError(w, msgInvalidParam+"limit")
		return 0, 0, false
	}
	if err := runtime.BindQueryParameter("form", true, false, "offset", q, &o); err != nil {
		apierrors.ValidationError(w, msgInvalidParam+"offset")
		return 0, 0, false
	}
	limit, offset = paginationDefaults(l, o)
	return limit, offset, true
}

// pathInt64 разбирает числовой параметр пути. При ошибке пишет 400.
func pathInt64(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		apierrors.ValidationError(w, msgInvalidID)
		return 0, false
	}
	return id, true
}

// pathInt — то же для int-идентификаторов справочников.
func pathInt(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	id, ok := pathInt64(w, r, name)
	return int(id), ok
}

// pathUUID читает UUID-параметр пути в каноническом виде. При ошибке пишет 400.
func pathUUID(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		apierrors.ValidationError(w, msgInvalidID)
		return "", false
	}
	return id.String(), true
}

// optionalUUIDs проверяет идентификаторы из тела или query.
// Пустые пропускаются: их отсутствие проверяет сервис. При ошибке пишет 400.
func optionalUUIDs(w http.ResponseWriter, ids ...*string) bool {
	for _, p := range ids {
		if *p == "" {
			continue
		}
		id, err := uuid.Parse(*p)
		if err != nil {
			apierrors.ValidationError(w, msgInvalidID)
			return false
		}
		*p = id.String()
	}
	return true
}

// caller возвращает профиль вызывающего. Без профиля пишет 401.
func caller(w http.ResponseWriter, r *http.Request) (*model.User, bool) {
	u := middleware.CallerFromContext(r.Context())
	if u == nil {
		apierrors.Unauthorized(w, "Sesión inválida o expirada. Inicia sesión nuevamente.")
		return nil, false
	}
	return u, true
}

// writeServiceError переводит ошибку сервиса в HTTP-ответ.
// Неизвестные ошибки логируются и скрываются за INTERNAL_ERROR.
func (h *APIHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	msg := service.Message(err)
	switch {
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrInvalidRole):
		apierrors.ValidationError(w, msg)
	case errors.Is(err, service.ErrNotFound):
		apierrors.NotFound(w, msg)
	case errors.Is(err, service.ErrConflict), errors.Is(err, service.ErrAlreadyAssigned):
		apierrors.Conflict(w, msg)
	case errors.Is(err, service.ErrUnauthorized):
		apierrors.Unauthorized(w, msg)
	case errors.Is(err, service.ErrForbidden),
		errors.Is(err, service.ErrNoAssignment),
		errors.Is(err, service.ErrAccountInactive):
		apierrors.Forbidden(w, msg)
	case errors.Is(err, service.ErrQuotaExceeded):
		apierrors.QuotaExceeded(w, msg)
	case errors.Is(err, service.ErrIDPUnavailable):
		apierrors.IDPUnavailable(w, msg)
	case errors.Is(err, service.ErrStorageUnavailable), errors.Is(err, service.ErrOCRUnavailable):
		apierrors.StorageUnavailable(w, msg)
	default:
		h.logger.Error("Ошибка обработки запроса",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, msgInternalError)
	}
}
