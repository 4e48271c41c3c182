// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import (
	"errors"

	"github.com/bigkaa/sigid/internal/keycloak"
)

var (
	// ErrNotFound — ресурс не найден.
	ErrNotFound = errors.New("ресурс не найден")
	// ErrConflict — конфликт (дублирующийся или используемый ресурс).
	ErrConflict = errors.New("конфликт — ресурс уже существует")
	// ErrInvalidRole — некорректная роль.
	ErrInvalidRole = errors.New("некорректная роль: допустимые значения — Administrador, Supervisor, Promotor")
	// ErrIDPUnavailable — Identity Provider (Keycloak) недоступен или отклонил запрос.
	ErrIDPUnavailable = errors.New("Identity Provider недоступен")
	// ErrValidation — ошибка валидации входных данных.
	ErrValidation = errors.New("ошибка валидации")
	// ErrUnauthorized — вызывающий не аутентифицирован.
	ErrUnauthorized = errors.New("не аутентифицирован")
	// ErrForbidden — недостаточно прав.
	ErrForbidden = errors.New("недостаточно прав")
	// ErrAlreadyAssigned — промоутер уже назначен супервизору.
	ErrAlreadyAssigned = errors.New("промоутер уже назначен")
	// ErrNoAssignment — у промоутера нет назначения.
	ErrNoAssignment = errors.New("промоутер не назначен супервизору")
	// ErrQuotaExceeded — квота промоутера исчерпана.
	ErrQuotaExceeded = errors.New("квота промоутера исчерпана")
	// ErrAccountInactive — учётная запись отключена.
	ErrAccountInactive = errors.New("учётная запись отключена")
	// ErrOCRUnavailable — распознавание текста отключено.
	ErrOCRUnavailable = errors.New("распознавание текста недоступно")
	// ErrStorageUnavailable — объектное хранилище недоступно.
	ErrStorageUnavailable = errors.New("хранилище недоступно")
)

// ErrOCRDisabled — движок распознавания не настроен.
var ErrOCRDisabled error = &Error{Kind: ErrOCRUnavailable, Message: msgOCRDisabled}

// Error — ошибка сервиса с сообщением для оператора.
// Kind — одна из sentinel-ошибок выше, доступна через errors.Is.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

// newError создаёт ошибку сервиса заданного вида.
func newError(kind error, msg string) error {
	return &Error{Kind: kind, Message: msg}
}

// Message возвращает сообщение для оператора.
// Для ошибок, не созданных сервисом, возвращает err.Error().
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// idpError переводит ошибку Keycloak в ошибку сервиса.
// Занятый e-mail — ErrConflict, остальное — ErrIDPUnavailable
// с сообщением провайдера.
func idpError(err error) error {
	if errors.Is(err, keycloak.ErrConflict) {
		return newError(ErrConflict, msgEmailTaken)
	}
	var apiErr *keycloak.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return newError(ErrIDPUnavailable, apiErr.Message)
	}
	return newError(ErrIDPUnavailable, msgIDPUnavailable)
}
