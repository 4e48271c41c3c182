package main

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/bigkaa/sigid/internal/api/handlers"
	"github.com/bigkaa/sigid/internal/api/middleware"
	"github.com/bigkaa/sigid/internal/config"
	"github.com/bigkaa/sigid/internal/database"
	"github.com/bigkaa/sigid/internal/domain/rbac"
	"github.com/bigkaa/sigid/internal/i18n"
	"github.com/bigkaa/sigid/internal/keycloak"
	"github.com/bigkaa/sigid/internal/ocr"
	"github.com/bigkaa/sigid/internal/repository"
	"github.com/bigkaa/sigid/internal/server"
	"github.com/bigkaa/sigid/internal/service"
	"github.com/bigkaa/sigid/internal/storage"
)

// app — общие зависимости команд.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	pool     *pgxpool.Pool
	keycloak *keycloak.Client
	store    storage.ObjectStore
	users    *service.UserService
	system   *service.SystemService
}

// bootstrap загружает конфигурацию, подключается к PostgreSQL,
// создаёт клиент Keycloak, хранилище фотографий и сервис пользователей.
func bootstrap(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("загрузка конфигурации: %w", err)
	}
	logger := config.SetupLogger(cfg)

	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	var httpClientCA *http.Client
	if cfg.KeycloakCACertPath != "" {
		httpClientCA, err = buildHTTPClientWithCA(cfg.KeycloakCACertPath)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("загрузка CA-сертификата %s: %w", cfg.KeycloakCACertPath, err)
		}
		logger.Info("CA-сертификат загружен", slog.String("path", cfg.KeycloakCACertPath))
	}

	kcClient := keycloak.New(
		cfg.KeycloakURL,
		cfg.KeycloakRealm,
		cfg.KeycloakClientID,
		cfg.KeycloakClientSecret,
		httpClientCA, // nil — стандартный пул CA
		logger,
	)

	store, err := storage.New(ctx, cfg, logger)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("хранилище фотографий: %w", err)
	}

	users := service.NewUserService(
		kcClient,
		repository.NewUserRepository(pool),
		store,
		cfg.PhotoMaxBytes,
		cfg.SeedPassword, cfg.SeedEmailDomain,
		logger,
	)
	system := service.NewSystemService(database.NewAdmin(cfg, pool, logger), users, logger)

	return &app{
		cfg:      cfg,
		logger:   logger,
		pool:     pool,
		keycloak: kcClient,
		store:    store,
		users:    users,
		system:   system,
	}, nil
}

func (a *app) close() {
	a.pool.Close()
}

func (a *app) groups() rbac.GroupMapping {
	return rbac.GroupMapping{
		Admin:      a.cfg.RoleAdminGroups,
		Supervisor: a.cfg.RoleSupervisorGroups,
		Promoter:   a.cfg.RolePromoterGroups,
	}
}

// runInitDB — миграции, начальные секции и пользователи. Повторный запуск безопасен.
func runInitDB(ctx context.Context) error {
	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	res, err := a.system.InitDatabase(ctx)
	if err != nil {
		return err
	}
	a.logger.Info("Инициализация завершена",
		slog.Int("secciones", res.SectionsCreated),
		slog.Int("usuarios", res.UsersCreated),
	)
	return nil
}

// runCheckConnection проверяет PostgreSQL и Admin API Keycloak.
// Статус PostgreSQL печатается в out тем же JSON, что отдаёт API.
func runCheckConnection(ctx context.Context, out io.Writer) error {
	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	var errs []error
	status, ok := a.system.CheckConnection(ctx)
	if err := json.NewEncoder(out).Encode(status); err != nil {
		return err
	}
	if !ok {
		errs = append(errs, fmt.Errorf("PostgreSQL: %s", status.Message))
	}
	if status, msg := a.keycloak.CheckReady(); status != "ok" {
		errs = append(errs, fmt.Errorf("Keycloak: %s", msg))
	} else {
		a.logger.Info("Keycloak доступен", slog.String("realm", a.cfg.KeycloakRealm))
	}
	return errors.Join(errs...)
}

// runServe поднимает HTTP API, фоновую синхронизацию пользователей
// и мониторинг зависимостей.
func runServe(ctx context.Context) error {
	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.close()
	cfg, logger := a.cfg, a.logger

	logger.Info("SIGID запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("storage", cfg.StorageBackend),
	)

	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		return fmt.Errorf("миграции БД: %w", err)
	}

	// Репозитории
	assignRepo := repository.NewAssignmentRepository(a.pool)
	affiliateRepo := repository.NewAffiliateRepository(a.pool)
	userRepo := repository.NewUserRepository(a.pool)

	// Сервисы
	catalog := service.NewCatalogService(
		repository.NewSectionRepository(a.pool),
		repository.NewPartyRepository(a.pool),
		service.NewCatalogCache(cfg.CatalogCacheSize, cfg.CatalogCacheTTL),
		logger,
	)
	assignments := service.NewAssignmentService(
		repository.NewTxRunner(a.pool),
		repository.NewAssignmentRepository,
		assignRepo, userRepo, affiliateRepo,
		catalog,
		cfg.DefaultAffiliateLimit,
		logger,
	)
	affiliates := service.NewAffiliateService(
		affiliateRepo, assignRepo, catalog, a.store,
		cfg.PhotoMaxBytes, cfg.DefaultAffiliateLimit,
		logger,
	)

	bundle, err := i18n.Load(logger)
	if err != nil {
		return err
	}

	var recognizer ocr.Recognizer
	if cfg.OCREnabled {
		vr, err := ocr.NewVisionRecognizer(ctx, cfg.OCRAPIKey, cfg.OCRTimeout)
		if err != nil {
			return err
		}
		recognizer = vr
		logger.Info("Распознавание credencial включено")
	}

	userSync := service.NewUserSyncService(
		a.keycloak, userRepo,
		repository.NewSyncStateRepository(a.pool),
		a.groups(),
		cfg.UserSyncInterval,
		logger,
	)

	// Readiness checkers (PostgreSQL + Keycloak)
	kcChecker, err := middleware.NewKeycloakReadinessChecker(cfg.JWTJWKSURL, cfg.KeycloakCACertPath, cfg.JWKSClientTimeout)
	if err != nil {
		return fmt.Errorf("keycloak readiness checker: %w", err)
	}
	health := handlers.NewHealthHandler(database.NewReadinessChecker(a.pool), kcChecker)

	api := handlers.NewAPIHandler(health, handlers.Services{
		Users:       a.users,
		UserSync:    userSync,
		Assignments: assignments,
		Affiliates:  affiliates,
		Catalog:     catalog,
		Credentials: service.NewCredentialService(affiliates, bundle, logger),
		OCR:         service.NewOCRService(recognizer, logger),
		Reports:     service.NewReportService(repository.NewReportRepository(a.pool), logger),
		System:      a.system,
	}, cfg.BootstrapToken, cfg.PhotoMaxBytes, logger)

	jwtAuth, err := middleware.NewJWTAuth(
		cfg.JWTJWKSURL,
		cfg.KeycloakCACertPath,
		cfg.JWTIssuer,
		a.users,
		a.groups(),
		cfg.JWKSClientTimeout,
		cfg.JWKSRefreshInterval,
		cfg.JWTLeeway,
		logger,
	)
	if err != nil {
		return fmt.Errorf("JWT middleware: %w", err)
	}
	logger.Info("JWT middleware инициализирован",
		slog.String("jwks_url", cfg.JWTJWKSURL),
		slog.String("issuer", cfg.JWTIssuer),
	)

	// Фоновые задачи
	userSync.Start(ctx)
	defer userSync.Stop()

	// topologymetrics — мониторинг зависимостей (PostgreSQL + Keycloak).
	// Проверка PostgreSQL идёт через пул приложения.
	pgDB := stdlib.OpenDBFromPool(a.pool)
	defer pgDB.Close()

	if os.Getenv("SG_DEPHEALTH_GROUP") == "" {
		logger.Warn("SG_DEPHEALTH_GROUP не задана, используется значение по умолчанию",
			slog.String("default", cfg.DephealthGroup),
		)
	}
	dephealthSvc, err := service.NewDephealthService(
		"sigid",
		cfg.DephealthGroup,
		pgDB,
		cfg.DatabaseURL(),
		cfg.JWTJWKSURL,
		cfg.DephealthCheckInterval,
		cfg.DephealthTLSSkipVerify,
		logger,
	)
	if err != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", err.Error()),
		)
	} else if err := dephealthSvc.Start(ctx); err != nil {
		logger.Warn("Ошибка запуска topologymetrics", slog.String("error", err.Error()))
	} else {
		defer dephealthSvc.Stop()
	}

	var media *storage.LocalStore
	if ls, ok := a.store.(*storage.LocalStore); ok {
		media = ls
	}

	srv := server.New(cfg, logger, api, jwtAuth, media)
	if err := srv.Run(); err != nil {
		return err
	}

	logger.Info("SIGID остановлен")
	return nil
}

// buildHTTPClientWithCA создаёт HTTP-клиент с дополнительным CA-сертификатом.
func buildHTTPClientWithCA(caCertPath string) (*http.Client, error) {
	caCert, err := os.ReadFile(caCertPath)
	if err != nil {
		return nil, err
	}

	pool, err := x509.SystemCertPool()
	if err != nil {
		pool = x509.NewCertPool()
	}
	if !pool.AppendCertsFromPEM(caCert) {
		return nil, errors.New("сертификат не распознан")
	}

	return &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{RootCAs: pool},
		},
	}, nil
}
