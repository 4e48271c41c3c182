// Пакет database — подключение к PostgreSQL через pgxpool,
// применение миграций (golang-migrate), проверка готовности
// и начальное наполнение справочников.
package database

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bigkaa/sigid/internal/config"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DefaultSections — номера избирательных секций, создаваемые при инициализации.
var DefaultSections = []int{4251, 4252, 4253}

// Connect создаёт пул подключений к PostgreSQL.
// Выполняет ping для проверки доступности.
func Connect(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга DSN: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания пула подключений: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ошибка подключения к PostgreSQL: %w", err)
	}

	logger.Info("Подключение к PostgreSQL установлено",
		slog.String("host", cfg.DBHost),
		slog.Int("port", cfg.DBPort),
		slog.String("database", cfg.DBName),
	)

	return pool, nil
}

// Migrate применяет SQL-миграции из embedded FS к базе данных.
// Использует golang-migrate с драйвером pgx5.
func Migrate(cfg *config.Config, logger *slog.Logger) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("ошибка создания источника миграций: %w", err)
	}

	// golang-migrate ожидает схему pgx5://
	dbURL := "pgx5" + cfg.DatabaseURL()[len("postgres"):]

	m, err := migrate.NewWithSourceInstance("iofs", source, dbURL)
	if err != nil {
		return fmt.Errorf("ошибка инициализации миграций: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("ошибка применения миграций: %w", err)
	}

	version, dirty, _ := m.Version()
	logger.Info("Миграции применены",
		slog.Uint64("version", uint64(version)),
		slog.Bool("dirty", dirty),
	)

	return nil
}

// SeedSections создаёт начальные избирательные секции, если их ещё нет.
// Возвращает количество реально добавленных секций.
func SeedSections(ctx context.Context, pool *pgxpool.Pool, numbers []int) (int, error) {
	inserted := 0
	for _, n := range numbers {
		tag, err := pool.Exec(ctx,
			`INSERT INTO secciones (numero_seccion) VALUES ($1) ON CONFLICT (numero_seccion) DO NOTHING`, n)
		if err != nil {
			return inserted, fmt.Errorf("ошибка добавления секции %d: %w", n, err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

// CheckConnection проверяет доступность PostgreSQL простым запросом.
func CheckConnection(ctx context.Context, pool *pgxpool.Pool) error {
	var one int
	if err := pool.QueryRow(ctx, `SELECT 1`).Scan(&one); err != nil {
		return fmt.Errorf("PostgreSQL недоступен: %w", err)
	}
	return nil
}

// ReadinessChecker — проверка готовности PostgreSQL для health endpoint.
// Реализует интерфейс handlers.ReadinessChecker.
type ReadinessChecker struct {
	pool *pgxpool.Pool
}

// NewReadinessChecker создаёт проверку готовности PostgreSQL.
func NewReadinessChecker(pool *pgxpool.Pool) *ReadinessChecker {
	return &ReadinessChecker{pool: pool}
}

// CheckReady проверяет подключение к PostgreSQL через ping.
// Возвращает статус ("ok", "fail") и сообщение.
func (c *ReadinessChecker) CheckReady() (status string, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := c.pool.Ping(ctx); err != nil {
		return "fail", fmt.Sprintf("PostgreSQL недоступен: %v", err)
	}
	return "ok", "подключение активно"
}

// Admin — служебные операции над базой: проверка связи, миграции, наполнение.
type Admin struct {
	cfg    *config.Config
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewAdmin создаёт набор служебных операций над базой.
func NewAdmin(cfg *config.Config, pool *pgxpool.Pool, logger *slog.Logger) *Admin {
	return &Admin{cfg: cfg, pool: pool, logger: logger}
}

// Ping проверяет доступность PostgreSQL.
func (a *Admin) Ping(ctx context.Context) error {
	return CheckConnection(ctx, a.pool)
}

// Migrate применяет миграции.
func (a *Admin) Migrate(_ context.Context) error {
	return Migrate(a.cfg, a.logger)
}

// SeedSections создаёт секции DefaultSections.
func (a *Admin) SeedSections(ctx context.Context) (int, error) {
	return SeedSections(ctx, a.pool, DefaultSections)
}
