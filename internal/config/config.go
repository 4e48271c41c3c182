// Пакет config — загрузка и валидация конфигурации SIGID
// из переменных окружения (и необязательного файла .env).
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Допустимые бэкенды объектного хранилища фотографий.
const (
	StorageLocal = "local"
	StorageS3    = "s3"
	StorageGCS   = "gcs"
)

// Config содержит все параметры конфигурации SIGID.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string
	// Разрешённые CORS origins панели (через запятую)
	CORSOrigins []string
	// Лимит запросов в минуту с одного IP для публичных endpoints
	PublicRateLimit int

	// --- PostgreSQL ---

	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	// Режим SSL: disable, require, verify-ca, verify-full
	DBSSLMode string

	// --- Keycloak ---

	// URL Keycloak (например, https://auth.sigid.mx)
	KeycloakURL string
	// Имя realm в Keycloak
	KeycloakRealm string
	// Client ID для доступа к Keycloak Admin API
	KeycloakClientID string
	// Client Secret для доступа к Keycloak Admin API
	KeycloakClientSecret string
	// Путь к CA-сертификату для TLS-соединений с Keycloak (опционально)
	KeycloakCACertPath string

	// --- JWT ---

	// Issuer JWT (авто-вычисляется из KeycloakURL, если не задан)
	JWTIssuer string
	// URL JWKS endpoint (авто-вычисляется из KeycloakURL, если не задан)
	JWTJWKSURL string
	// Допустимое отклонение времени при проверке JWT
	JWTLeeway time.Duration
	// Интервал обновления JWKS-ключей
	JWKSRefreshInterval time.Duration
	// Таймаут HTTP-клиента JWKS и проверки готовности Keycloak
	JWKSClientTimeout time.Duration

	// --- Маппинг групп Keycloak → ролей ---

	RoleAdminGroups      []string
	RoleSupervisorGroups []string
	RolePromoterGroups   []string

	// --- Хранилище фотографий ---

	// Бэкенд: local, s3, gcs
	StorageBackend string
	// Директория локального хранилища
	StorageLocalDir string
	// Публичный базовый URL, под которым отдаются локальные файлы
	StoragePublicURL string
	// Bucket S3/GCS
	StorageBucket string
	// Регион S3
	StorageRegion string
	// Максимальный размер загружаемой фотографии в байтах
	PhotoMaxBytes int

	// --- OCR ---

	// Включено ли распознавание текста через Google Cloud Vision
	OCREnabled bool
	// API-ключ Google Cloud Vision
	OCRAPIKey string
	// Таймаут одного запроса распознавания
	OCRTimeout time.Duration

	// --- Кэш справочников ---

	CatalogCacheSize int
	CatalogCacheTTL  time.Duration

	// --- Квоты ---

	// Лимит афилиатов промоутера по умолчанию
	DefaultAffiliateLimit int

	// --- Фоновые задачи ---

	// Интервал проверки зависимостей topologymetrics
	DephealthCheckInterval time.Duration
	// Группа в метриках topologymetrics
	DephealthGroup string
	// Пропуск проверки TLS при опросе Keycloak (самоподписанные сертификаты)
	DephealthTLSSkipVerify bool
	// Интервал синхронизации пользователей с Keycloak
	UserSyncInterval time.Duration

	// --- Начальная инициализация ---

	// Токен для POST /api/v1/system/init-database (пустой — endpoint отключён)
	BootstrapToken string
	// Пароль начальных пользователей admin@, supervisor@, promotor@
	SeedPassword string
	// Домен e-mail начальных пользователей
	SeedEmailDomain string

	// --- Graceful shutdown ---

	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
// Файл .env в рабочей директории подгружается, если существует;
// уже заданные переменные окружения он не перезаписывает.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("ошибка чтения .env: %w", err)
	}

	cfg := &Config{}
	var err error

	// --- Сервер ---

	cfg.Port, err = getEnvInt("SG_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("SG_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("SG_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	cfg.LogLevel, err = parseLogLevel(getEnvDefault("SG_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("SG_LOG_LEVEL: %w", err)
	}

	cfg.LogFormat = getEnvDefault("SG_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("SG_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	cfg.CORSOrigins = parseCSV(getEnvDefault("SG_CORS_ORIGINS", "http://localhost:5173"))

	cfg.PublicRateLimit, err = getEnvInt("SG_PUBLIC_RATE_LIMIT", 30)
	if err != nil {
		return nil, fmt.Errorf("SG_PUBLIC_RATE_LIMIT: %w", err)
	}

	// --- PostgreSQL ---

	cfg.DBHost, err = getEnvRequired("SG_DB_HOST")
	if err != nil {
		return nil, err
	}
	cfg.DBPort, err = getEnvInt("SG_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("SG_DB_PORT: %w", err)
	}
	cfg.DBName, err = getEnvRequired("SG_DB_NAME")
	if err != nil {
		return nil, err
	}
	cfg.DBUser, err = getEnvRequired("SG_DB_USER")
	if err != nil {
		return nil, err
	}
	cfg.DBPassword, err = getEnvRequired("SG_DB_PASSWORD")
	if err != nil {
		return nil, err
	}
	cfg.DBSSLMode = getEnvDefault("SG_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[cfg.DBSSLMode] {
		return nil, fmt.Errorf("SG_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}

	// --- Keycloak ---

	cfg.KeycloakURL, err = getEnvRequired("SG_KEYCLOAK_URL")
	if err != nil {
		return nil, err
	}
	cfg.KeycloakURL = strings.TrimRight(cfg.KeycloakURL, "/")
	cfg.KeycloakRealm = getEnvDefault("SG_KEYCLOAK_REALM", "sigid")
	cfg.KeycloakClientID, err = getEnvRequired("SG_KEYCLOAK_CLIENT_ID")
	if err != nil {
		return nil, err
	}
	cfg.KeycloakClientSecret, err = getEnvRequired("SG_KEYCLOAK_CLIENT_SECRET")
	if err != nil {
		return nil, err
	}
	cfg.KeycloakCACertPath = getEnvDefault("SG_KEYCLOAK_CA_CERT_PATH", "")

	// --- JWT ---

	cfg.JWTIssuer = getEnvDefault("SG_JWT_ISSUER",
		fmt.Sprintf("%s/realms/%s", cfg.KeycloakURL, cfg.KeycloakRealm))
	cfg.JWTJWKSURL = getEnvDefault("SG_JWT_JWKS_URL",
		fmt.Sprintf("%s/realms/%s/protocol/openid-connect/certs", cfg.KeycloakURL, cfg.KeycloakRealm))

	cfg.JWTLeeway, err = getEnvDuration("SG_JWT_LEEWAY", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SG_JWT_LEEWAY: %w", err)
	}
	cfg.JWKSRefreshInterval, err = getEnvDuration("SG_JWKS_REFRESH_INTERVAL", 15*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("SG_JWKS_REFRESH_INTERVAL: %w", err)
	}
	cfg.JWKSClientTimeout, err = getEnvDuration("SG_JWKS_CLIENT_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SG_JWKS_CLIENT_TIMEOUT: %w", err)
	}

	// --- Маппинг групп → ролей ---

	cfg.RoleAdminGroups = parseCSV(getEnvDefault("SG_ROLE_ADMIN_GROUPS", "sigid-administradores"))
	cfg.RoleSupervisorGroups = parseCSV(getEnvDefault("SG_ROLE_SUPERVISOR_GROUPS", "sigid-supervisores"))
	cfg.RolePromoterGroups = parseCSV(getEnvDefault("SG_ROLE_PROMOTER_GROUPS", "sigid-promotores"))

	// --- Хранилище фотографий ---

	cfg.StorageBackend = getEnvDefault("SG_STORAGE_BACKEND", StorageLocal)
	switch cfg.StorageBackend {
	case StorageLocal:
		cfg.StorageLocalDir = getEnvDefault("SG_STORAGE_LOCAL_DIR", "./data/fotos")
		cfg.StoragePublicURL = strings.TrimRight(getEnvDefault("SG_STORAGE_PUBLIC_URL", "/media"), "/")
	case StorageS3, StorageGCS:
		cfg.StorageBucket, err = getEnvRequired("SG_STORAGE_BUCKET")
		if err != nil {
			return nil, err
		}
		cfg.StorageRegion = getEnvDefault("SG_STORAGE_REGION", "us-east-1")
	default:
		return nil, fmt.Errorf("SG_STORAGE_BACKEND: недопустимое значение %q, допустимые: local, s3, gcs", cfg.StorageBackend)
	}

	cfg.PhotoMaxBytes, err = getEnvInt("SG_PHOTO_MAX_BYTES", 5<<20)
	if err != nil {
		return nil, fmt.Errorf("SG_PHOTO_MAX_BYTES: %w", err)
	}

	// --- OCR ---

	cfg.OCREnabled, err = getEnvBool("SG_OCR_ENABLED", false)
	if err != nil {
		return nil, fmt.Errorf("SG_OCR_ENABLED: %w", err)
	}
	if cfg.OCREnabled {
		cfg.OCRAPIKey, err = getEnvRequired("SG_OCR_API_KEY")
		if err != nil {
			return nil, err
		}
	}
	cfg.OCRTimeout, err = getEnvDuration("SG_OCR_TIMEOUT", 20*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SG_OCR_TIMEOUT: %w", err)
	}

	// --- Кэш ---

	cfg.CatalogCacheSize, err = getEnvInt("SG_CATALOG_CACHE_SIZE", 256)
	if err != nil {
		return nil, fmt.Errorf("SG_CATALOG_CACHE_SIZE: %w", err)
	}
	cfg.CatalogCacheTTL, err = getEnvDuration("SG_CATALOG_CACHE_TTL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("SG_CATALOG_CACHE_TTL: %w", err)
	}

	// --- Квоты ---

	cfg.DefaultAffiliateLimit, err = getEnvInt("SG_DEFAULT_AFFILIATE_LIMIT", 50)
	if err != nil {
		return nil, fmt.Errorf("SG_DEFAULT_AFFILIATE_LIMIT: %w", err)
	}
	if cfg.DefaultAffiliateLimit < 1 {
		return nil, fmt.Errorf("SG_DEFAULT_AFFILIATE_LIMIT: значение %d должно быть больше 0", cfg.DefaultAffiliateLimit)
	}

	// --- Фоновые задачи ---

	cfg.DephealthCheckInterval, err = getEnvDuration("SG_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SG_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}
	cfg.DephealthGroup = getEnvDefault("SG_DEPHEALTH_GROUP", "sigid")
	cfg.DephealthTLSSkipVerify, err = getEnvBool("SG_DEPHEALTH_TLS_SKIP_VERIFY", false)
	if err != nil {
		return nil, fmt.Errorf("SG_DEPHEALTH_TLS_SKIP_VERIFY: %w", err)
	}

	cfg.UserSyncInterval, err = getEnvDuration("SG_USER_SYNC_INTERVAL", 10*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("SG_USER_SYNC_INTERVAL: %w", err)
	}

	// --- Начальная инициализация ---

	cfg.BootstrapToken = getEnvDefault("SG_BOOTSTRAP_TOKEN", "")
	cfg.SeedPassword = getEnvDefault("SG_SEED_PASSWORD", "temporal123")
	cfg.SeedEmailDomain = getEnvDefault("SG_SEED_EMAIL_DOMAIN", "sigid.com")

	// --- Graceful shutdown ---

	cfg.ShutdownTimeout, err = getEnvDuration("SG_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SG_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL в формате key=value.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL подключения к PostgreSQL (postgres://...).
// Пароль экранируется.
func (c *Config) DatabaseURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     fmt.Sprintf("%s:%d", c.DBHost, c.DBPort),
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + c.DBSSLMode,
	}
	return u.String()
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvBool возвращает булево значение переменной окружения или значение по умолчанию.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное булево значение: %q", val)
	}
	return b, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}

// parseCSV разбирает строку, разделённую запятыми, на срез строк.
// Пробелы вокруг элементов убираются, пустые элементы игнорируются.
func parseCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
