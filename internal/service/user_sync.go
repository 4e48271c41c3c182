// user_sync.go — периодическая сверка пользователей Keycloak с локальными профилями.
//
// UserSyncService запускает фоновую горутину с ticker (SG_USER_SYNC_INTERVAL).
//
// Сверка:
//  1. Получить всех пользователей realm из Keycloak (постранично)
//  2. Получить все локальные профили
//  3. В Keycloak, но не локально → создать профиль (роль по группам, activo=false)
//  4. Локально активен, но нет в Keycloak → activo=false
//
// Prometheus-метрики:
//   - sg_user_sync_duration_seconds — длительность синхронизации
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/sigid/internal/domain/model"
	"github.com/bigkaa/sigid/internal/domain/rbac"
	"github.com/bigkaa/sigid/internal/keycloak"
	"github.com/bigkaa/sigid/internal/repository"
)

var userSyncDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "sg_user_sync_duration_seconds",
	Help:    "Длительность синхронизации пользователей с Keycloak",
	Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 0.1s … ~51s
})

// syncPageSize — размер страницы при чтении пользователей Keycloak.
const syncPageSize = 100

// maxLocalProfiles — верхняя граница выборки локальных профилей.
const maxLocalProfiles = 10000

// UserSyncService — фоновый сервис синхронизации пользователей.
type UserSyncService struct {
	idp           IdentityProvider
	users         repository.UserRepository
	syncStateRepo repository.SyncStateRepository
	groups        rbac.GroupMapping
	interval      time.Duration
	logger        *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewUserSyncService создаёт сервис синхронизации пользователей.
func NewUserSyncService(
	idp IdentityProvider,
	users repository.UserRepository,
	syncStateRepo repository.SyncStateRepository,
	groups rbac.GroupMapping,
	interval time.Duration,
	logger *slog.Logger,
) *UserSyncService {
	return &UserSyncService{
		idp:           idp,
		users:         users,
		syncStateRepo: syncStateRepo,
		groups:        groups,
		interval:      interval,
		logger:        logger.With(slog.String("component", "user_sync")),
	}
}

// Start запускает фоновую горутину с периодической синхронизацией.
func (s *UserSyncService) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)

		s.logger.Info("Периодическая синхронизация пользователей запущена",
			slog.String("interval", s.interval.String()),
		)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Info("Периодическая синхронизация пользователей остановлена")
				return
			case <-ticker.C:
				result, err := s.SyncNow(ctx)
				if err != nil {
					s.logger.Error("Ошибка периодической синхронизации пользователей",
						slog.String("error", err.Error()),
					)
					continue
				}
				s.logger.Info("Периодическая синхронизация пользователей завершена",
					slog.Int("total_local", result.TotalLocal),
					slog.Int("total_keycloak", result.TotalKeycloak),
					slog.Int("created_local", result.CreatedLocal),
					slog.Int("deactivated", result.Deactivated),
				)
			}
		}
	}()
}

// Stop останавливает фоновую горутину и ждёт завершения.
func (s *UserSyncService) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.done != nil {
		<-s.done
	}
}

// SyncNow выполняет немедленную синхронизацию.
func (s *UserSyncService) SyncNow(ctx context.Context) (*model.UserSyncResult, error) {
	startedAt := time.Now().UTC()

	kcUsers, err := s.listKeycloakUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("получение пользователей из Keycloak: %w", err)
	}

	local, err := s.users.List(ctx, model.UserFilter{Limit: maxLocalProfiles})
	if err != nil {
		return nil, fmt.Errorf("получение локальных профилей: %w", err)
	}

	kcSet := make(map[string]struct{}, len(kcUsers))
	for _, u := range kcUsers {
		kcSet[u.ID] = struct{}{}
	}
	localSet := make(map[string]struct{}, len(local))
	for _, u := range local {
		localSet[u.ID] = struct{}{}
	}

	var createdLocal, deactivated int

	for _, kc := range kcUsers {
		if _, ok := localSet[kc.ID]; ok {
			continue
		}
		if err := s.createLocal(ctx, kc); err != nil {
			s.logger.Warn("Ошибка создания профиля из Keycloak",
				slog.String("user_id", kc.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		createdLocal++
		s.logger.Info("Профиль создан из Keycloak", slog.String("user_id", kc.ID))
	}

	for _, u := range local {
		if _, ok := kcSet[u.ID]; ok || !u.Activo {
			continue
		}
		if err := s.users.SetActive(ctx, u.ID, false); err != nil {
			s.logger.Warn("Ошибка отключения профиля без учётной записи Keycloak",
				slog.String("user_id", u.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		deactivated++
		s.logger.Info("Профиль отключён: учётная запись Keycloak удалена", slog.String("user_id", u.ID))
	}

	now := time.Now().UTC()
	if err := s.syncStateRepo.UpdateUserSyncAt(ctx, now); err != nil {
		s.logger.Warn("Ошибка обновления last_user_sync_at", slog.String("error", err.Error()))
	}

	userSyncDuration.Observe(time.Since(startedAt).Seconds())

	return &model.UserSyncResult{
		TotalLocal:    len(local) + createdLocal,
		TotalKeycloak: len(kcUsers),
		CreatedLocal:  createdLocal,
		Deactivated:   deactivated,
		SyncedAt:      now,
	}, nil
}

// listKeycloakUsers читает всех пользователей realm постранично.
func (s *UserSyncService) listKeycloakUsers(ctx context.Context) ([]keycloak.KeycloakUser, error) {
	var all []keycloak.KeycloakUser
	for first := 0; ; first += syncPageSize {
		page, err := s.idp.ListUsers(ctx, "", first, syncPageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < syncPageSize {
			return all, nil
		}
	}
}

// createLocal создаёт неактивный профиль для пользователя Keycloak.
// Роль определяется по группам, по умолчанию Promotor.
func (s *UserSyncService) createLocal(ctx context.Context, kc keycloak.KeycloakUser) error {
	rol := rbac.RolePromoter
	groups, err := s.idp.GetUserGroups(ctx, kc.ID)
	if err != nil {
		s.logger.Warn("Ошибка получения групп пользователя, роль по умолчанию",
			slog.String("user_id", kc.ID),
			slog.String("error", err.Error()),
		)
	} else {
		paths := make([]string, 0, len(groups))
		for _, g := range groups {
			paths = append(paths, g.Path)
		}
		if mapped := rbac.MapGroupsToRole(paths, s.groups); mapped != "" {
			rol = mapped
		}
	}

	email := kc.Email
	if email == "" {
		email = kc.Username
	}
	return s.users.Create(ctx, &model.User{
		ID:     kc.ID,
		Email:  email,
		Nombre: kc.DisplayName(),
		Rol:    rol,
		Activo: false,
	})
}
