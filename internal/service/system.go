// system.go — проверка связи с базой и начальная инициализация.
package service

import (
	"context"
	"fmt"
	"log/slog"
)

// SchemaManager — служебные операции над базой.
// Реализуется *database.Admin.
type SchemaManager interface {
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	SeedSections(ctx context.Context) (int, error)
}

// UserSeeder создаёт начальных пользователей. Реализуется *UserService.
type UserSeeder interface {
	SeedDefaultUsers(ctx context.Context) (int, error)
}

// ConnectionStatus — результат проверки связи с базой.
type ConnectionStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// InitResult — итог инициализации базы.
type InitResult struct {
	SectionsCreated int `json:"secciones_creadas"`
	UsersCreated    int `json:"usuarios_creados"`
}

// SystemService — служебные операции развёртывания.
type SystemService struct {
	db     SchemaManager
	seeder UserSeeder
	logger *slog.Logger
}

// NewSystemService создаёт сервис служебных операций.
func NewSystemService(db SchemaManager, seeder UserSeeder, logger *slog.Logger) *SystemService {
	return &SystemService{
		db:     db,
		seeder: seeder,
		logger: logger.With(slog.String("component", "system_service")),
	}
}

// CheckConnection проверяет связь с PostgreSQL.
// Второй результат false, если база недоступна.
func (s *SystemService) CheckConnection(ctx context.Context) (ConnectionStatus, bool) {
	if err := s.db.Ping(ctx); err != nil {
		s.logger.Warn("Проверка связи с базой не прошла", slog.String("error", err.Error()))
		return ConnectionStatus{Status: "error", Message: err.Error()}, false
	}
	return ConnectionStatus{Status: "connected"}, true
}

// InitDatabase применяет миграции, создаёт секции и начальных пользователей.
// Повторный запуск ничего не дублирует.
func (s *SystemService) InitDatabase(ctx context.Context) (*InitResult, error) {
	if err := s.db.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("миграции: %w", err)
	}

	sections, err := s.db.SeedSections(ctx)
	if err != nil {
		return nil, fmt.Errorf("начальные секции: %w", err)
	}

	users, err := s.seeder.SeedDefaultUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("начальные пользователи: %w", err)
	}

	s.logger.Info("База данных инициализирована",
		slog.Int("secciones", sections),
		slog.Int("usuarios", users),
	)
	return &InitResult{SectionsCreated: sections, UsersCreated: users}, nil
}
