package model

import "time"

// SyncState — состояние синхронизации (одна строка в БД).
// Хранится в таблице sync_state (id = 1, всегда одна запись).
type SyncState struct {
	// ID — всегда 1
	ID int
	// LastUserSyncAt — время последней синхронизации пользователей с Keycloak
	LastUserSyncAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// UserSyncResult — результат синхронизации профилей с Keycloak.
type UserSyncResult struct {
	// TotalLocal — количество профилей в локальной БД
	TotalLocal int
	// TotalKeycloak — количество пользователей в realm Keycloak
	TotalKeycloak int
	// CreatedLocal — профилей создано (пользователь есть только в Keycloak)
	CreatedLocal int
	// Deactivated — профилей деактивировано (пользователь удалён из Keycloak)
	Deactivated int
	// SyncedAt — время синхронизации
	SyncedAt time.Time
}
