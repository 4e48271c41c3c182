// Пакет model — доменные модели SIGID.
package model

import "time"

// User — профиль пользователя SIGID.
// Хранится в таблице usuarios; ID совпадает с Keycloak user ID.
// Пароль в профиле не хранится, им управляет Keycloak.
type User struct {
	// ID — Keycloak user ID (sub)
	ID string
	// Email — адрес электронной почты (уникален)
	Email string
	// Nombre — отображаемое имя
	Nombre string
	// Rol — роль: Administrador, Supervisor, Promotor
	Rol string
	// Telefono — телефон (опционально)
	Telefono *string
	// Fotografia — публичный URL аватара (опционально)
	Fotografia *string
	// Activo — активен ли аккаунт. Самостоятельно зарегистрированные
	// пользователи создаются неактивными до одобрения администратором.
	Activo bool
	// CreatedAt — время создания записи
	CreatedAt time.Time
	// UpdatedAt — время последнего обновления
	UpdatedAt time.Time
}

// UserFilter — параметры выборки пользователей.
type UserFilter struct {
	// Rol — фильтр по роли (пустая строка — все)
	Rol string
	// Activo — фильтр по активности (nil — все)
	Activo *bool
	// Search — подстрока в имени или e-mail
	Search string
	Limit  int
	Offset int
}
