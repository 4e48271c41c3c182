// users.go — обработчики /api/v1/auth и /api/v1/users.
// Самостоятельная регистрация, профиль текущего пользователя и
// администрирование учётных записей.
package handlers

import (
	"net/http"
	"strings"

	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"

	apierrors "github.com/bigkaa/sigid/internal/api/errors"
	"github.com/bigkaa/sigid/internal/domain/model"
	"github.com/bigkaa/sigid/internal/service"
	"github.com/bigkaa/sigid/internal/storage"
)

const (
	msgSignUpPending = "Registro exitoso. Tu cuenta será activada por un administrador."
	msgPhotoMissing  = "Seleccione una fotografía."
)

type signUpRequest struct {
	Email    openapi_types.Email `json:"email"`
	Password string              `json:"password"`
	Nombre   string              `json:"nombre"`
}

type createUserRequest struct {
	Email    openapi_types.Email `json:"email"`
	Password string              `json:"password"`
	Nombre   string              `json:"nombre"`
	Telefono string              `json:"telefono"`
	Rol      string              `json:"rol"`
}

type updateUserRequest struct {
	Email    string  `json:"email"`
	Nombre   string  `json:"nombre"`
	Telefono *string `json:"telefono"`
	Rol      string  `json:"rol"`
	Password string  `json:"password"`
}

type assignRoleRequest struct {
	Email openapi_types.Email `json:"email"`
	Rol   string              `json:"rol"`
}

type setActiveRequest struct {
	Activo *bool `json:"activo"`
}

type resetPasswordRequest struct {
	NewPassword string `json:"newPassword"`
}

// legacyResetRequest — тело прежней функции reset-password.
type legacyResetRequest struct {
	UserID      string `json:"userId"`
	NewPassword string `json:"newPassword"`
}

// SignUp — POST /api/v1/auth/signup. Публичный.
// Профиль создаётся неактивным с ролью Promotor.
func (h *APIHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	u, err := h.Users.SignUp(r.Context(), string(req.Email), req.Password, req.Nombre)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, struct {
		User    userResponse `json:"user"`
		Message string       `json:"message"`
	}{mapUser(u), msgSignUpPending})
}

// Me — GET /api/v1/auth/me. Профиль и панель по роли.
func (h *APIHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, ok := caller(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, mapMe(u))
}

// ListUsers — GET /api/v1/users?rol=&activo=&search=&limit=&offset=.
func (h *APIHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := pageParams(w, r)
	if !ok {
		return
	}
	f := model.UserFilter{
		Rol:    r.URL.Query().Get("rol"),
		Search: strings.TrimSpace(r.URL.Query().Get("search")),
		Limit:  limit,
		Offset: offset,
	}
	if err := runtime.BindQueryParameter("form", true, false, "activo", r.URL.Query(), &f.Activo); err != nil {
		apierrors.ValidationError(w, msgInvalidParam+"activo")
		return
	}

	users, total, err := h.Users.List(r.Context(), f)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newListResponse(mapUsers(users), total, limit, offset))
}

// CreateUser — POST /api/v1/users.
func (h *APIHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	u, err := h.Users.Create(r.Context(), service.CreateUserRequest{
		Email:    string(req.Email),
		Password: req.Password,
		Nombre:   req.Nombre,
		Telefono: req.Telefono,
		Rol:      req.Rol,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, mapUser(u))
}

// GetUser — GET /api/v1/users/{id}.
func (h *APIHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	u, err := h.Users.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapUser(u))
}

// UpdateUser — PUT /api/v1/users/{id}.
func (h *APIHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req updateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	u, err := h.Users.Update(r.Context(), id, service.UpdateUserRequest{
		Email:    req.Email,
		Nombre:   req.Nombre,
		Telefono: req.Telefono,
		Rol:      req.Rol,
		Password: req.Password,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapUser(u))
}

// DeleteUser — DELETE /api/v1/users/{id}.
func (h *APIHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.Users.Delete(r.Context(), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetUserActive — PATCH /api/v1/users/{id}/active.
func (h *APIHandler) SetUserActive(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req setActiveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Activo == nil {
		apierrors.ValidationError(w, "El campo activo es requerido.")
		return
	}
	u, err := h.Users.SetActive(r.Context(), id, *req.Activo)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapUser(u))
}

// ResetUserPassword — POST /api/v1/users/{id}/reset-password.
func (h *APIHandler) ResetUserPassword(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req resetPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.resetPassword(w, r, id, req.NewPassword)
}

// ResetPasswordLegacy — POST /api/v1/reset-password с телом {userId,newPassword}.
// Права проверяет сервис: вызывающий должен быть администратором.
func (h *APIHandler) ResetPasswordLegacy(w http.ResponseWriter, r *http.Request) {
	var req legacyResetRequest
	if !decodeJSON(w, r, &req) || !optionalUUIDs(w, &req.UserID) {
		return
	}
	h.resetPassword(w, r, req.UserID, req.NewPassword)
}

func (h *APIHandler) resetPassword(w http.ResponseWriter, r *http.Request, userID, password string) {
	u, ok := caller(w, r)
	if !ok {
		return
	}
	msg, err := h.Users.ResetPassword(r.Context(), u, userID, password)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}{true, msg})
}

// AssignRole — POST /api/v1/users/assign-role.
func (h *APIHandler) AssignRole(w http.ResponseWriter, r *http.Request) {
	var req assignRoleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	u, err := h.Users.AssignRoleByEmail(r.Context(), string(req.Email), req.Rol)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapUser(u))
}

// UploadUserPhoto — PUT /api/v1/users/{id}/photo: multipart поле file
// или JSON с data URL снимка.
func (h *APIHandler) UploadUserPhoto(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	h.limitPhotoBody(w, r)

	var img *storage.Image
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		// Снимок с камеры: {"fotografia": "data:image/...;base64,..."}
		var req struct {
			Fotografia string `json:"fotografia"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		decoded, err := h.Users.DecodePhoto(req.Fotografia)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		img = decoded
	} else {
		file, _, err := r.FormFile("file")
		if err != nil {
			apierrors.ValidationError(w, msgPhotoMissing)
			return
		}
		defer file.Close()

		img, err = storage.ReadImage(file, h.photoMaxBytes)
		if err != nil {
			apierrors.ValidationError(w, "La fotografía no es válida. Use una imagen JPEG, PNG o WEBP.")
			return
		}
	}

	url, err := h.Users.UploadPhoto(r.Context(), id, img)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Fotografia string `json:"fotografia"`
	}{url})
}

// SyncUsers — POST /api/v1/users/sync. Немедленная сверка с Keycloak.
func (h *APIHandler) SyncUsers(w http.ResponseWriter, r *http.Request) {
	res, err := h.UserSync.SyncNow(r.Context())
	if err != nil {
		h.logger.Error("Ошибка синхронизации пользователей", "error", err)
		apierrors.IDPUnavailable(w, "No se pudo sincronizar con el servicio de autenticación.")
		return
	}
	writeJSON(w, http.StatusOK, syncResponse{
		TotalLocal:    res.TotalLocal,
		TotalKeycloak: res.TotalKeycloak,
		CreatedLocal:  res.CreatedLocal,
		Deactivated:   res.Deactivated,
		SyncedAt:      res.SyncedAt,
	})
}
