// affiliates.go — регистрация афилиатов, квота промоутера, выборки по ролям.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/bigkaa/sigid/internal/domain/model"
	"github.com/bigkaa/sigid/internal/domain/rbac"
	"github.com/bigkaa/sigid/internal/domain/validate"
	"github.com/bigkaa/sigid/internal/repository"
	"github.com/bigkaa/sigid/internal/storage"
)

// AffiliateService — сервис афилиатов.
type AffiliateService struct {
	affiliates    repository.AffiliateRepository
	assignments   repository.AssignmentRepository
	catalog       *CatalogService
	store         storage.ObjectStore
	photoMaxBytes int
	defaultLimit  int
	logger        *slog.Logger
}

// NewAffiliateService создаёт сервис афилиатов.
func NewAffiliateService(
	affiliates repository.AffiliateRepository,
	assignments repository.AssignmentRepository,
	catalog *CatalogService,
	store storage.ObjectStore,
	photoMaxBytes int,
	defaultLimit int,
	logger *slog.Logger,
) *AffiliateService {
	return &AffiliateService{
		affiliates:    affiliates,
		assignments:   assignments,
		catalog:       catalog,
		store:         store,
		photoMaxBytes: photoMaxBytes,
		defaultLimit:  defaultLimit,
		logger:        logger.With(slog.String("component", "affiliate_service")),
	}
}

// Register регистрирует афилиата от имени промоутера.
//
// Порядок проверок: поля формы, роль, назначение, квота, справочники,
// фотография. Квота проверяется без блокировки: два одновременных
// запроса могут оба пройти.
func (s *AffiliateService) Register(ctx context.Context, caller *model.User, in model.AffiliateInput) (*model.Affiliate, error) {
	validate.NormalizeAffiliate(&in)
	if err := validate.ValidateAffiliate(&in); err != nil {
		return nil, newError(ErrValidation, err.Error())
	}

	if caller == nil {
		return nil, ErrUnauthorized
	}
	if caller.Rol != rbac.RolePromoter {
		return nil, newError(ErrForbidden, msgOnlyPromoters)
	}

	assignment, err := s.assignments.GetByPromoter(ctx, caller.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(ErrNoAssignment, msgNoAssignment)
		}
		return nil, fmt.Errorf("получение назначения: %w", err)
	}

	registrados, err := s.affiliates.CountByPromoter(ctx, caller.ID)
	if err != nil {
		return nil, fmt.Errorf("подсчёт афилиатов: %w", err)
	}
	if !model.NewQuotaStatus(registrados, assignment.LimiteAfiliados).PuedeRegistrar {
		return nil, newError(ErrQuotaExceeded, fmt.Sprintf(msgQuotaExceeded, assignment.LimiteAfiliados))
	}

	a, err := s.buildAffiliate(ctx, caller, &in)
	if err != nil {
		return nil, err
	}

	img, err := storage.DecodeDataURL(in.Fotografia, s.photoMaxBytes)
	if err != nil {
		return nil, newError(ErrValidation, msgInvalidPhoto)
	}
	key := storage.ObjectKey(storage.PrefixAffiliates, img.Ext)
	a.Fotografia, err = s.store.Put(ctx, key, img.ContentType, img.Reader())
	if err != nil {
		s.logger.Error("Ошибка сохранения фотографии афилиата",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return nil, newError(ErrStorageUnavailable, msgStorageUnavailable)
	}

	if err := s.affiliates.Create(ctx, a); err != nil {
		s.deleteObject(ctx, key)
		if errors.Is(err, repository.ErrConflict) {
			return nil, newError(ErrConflict, msgAffiliateExists)
		}
		return nil, fmt.Errorf("создание афилиата: %w", err)
	}

	s.logger.Info("Афилиат зарегистрирован",
		slog.Int64("affiliate_id", a.ID),
		slog.String("promotor_id", caller.ID),
		slog.Int("registrados", registrados+1),
		slog.Int("limite", assignment.LimiteAfiliados),
	)

	created, err := s.affiliates.GetByID(ctx, a.ID)
	if err != nil {
		s.logger.Warn("Афилиат создан, но не перечитан", slog.String("error", err.Error()))
		return a, nil
	}
	return created, nil
}

// buildAffiliate переносит проверенную форму в модель и проверяет справочники.
func (s *AffiliateService) buildAffiliate(ctx context.Context, caller *model.User, in *model.AffiliateInput) (*model.Affiliate, error) {
	fecha, err := validate.ParseFecha(in.FechaNacimiento)
	if err != nil {
		return nil, newError(ErrValidation, err.Error())
	}
	seccionID, err := validate.ParseID(in.SeccionID, validate.MsgInvalidSeccion)
	if err != nil {
		return nil, newError(ErrValidation, err.Error())
	}
	if _, err := s.catalog.Section(ctx, seccionID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, newError(ErrValidation, validate.MsgInvalidSeccion)
		}
		return nil, err
	}

	a := &model.Affiliate{
		Nombre:          in.Nombre,
		ApellidoPaterno: in.ApellidoPaterno,
		ApellidoMaterno: in.ApellidoMaterno,
		CURP:            in.CURP,
		ClaveElector:    in.ClaveElector,
		Direccion:       in.Direccion,
		FechaNacimiento: fecha,
		SeccionID:       seccionID,
		UbicacionGPS:    in.UbicacionGPS,
		Categoria:       in.Categoria,
		PromotorID:      caller.ID,
		CreatedBy:       &caller.ID,
	}
	if in.Telefono != "" {
		tel := in.Telefono
		a.Telefono = &tel
	}
	if in.PartidoPoliticoID != "" {
		partidoID, err := validate.ParseID(in.PartidoPoliticoID, validate.MsgInvalidPartido)
		if err != nil {
			return nil, newError(ErrValidation, err.Error())
		}
		if _, err := s.catalog.Party(ctx, partidoID); err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, newError(ErrValidation, validate.MsgInvalidPartido)
			}
			return nil, err
		}
		a.PartidoPoliticoID = &partidoID
	}
	return a, nil
}

// QuotaStatus возвращает квоту промоутера. Без назначения действует
// квота по умолчанию.
func (s *AffiliateService) QuotaStatus(ctx context.Context, promotorID string) (model.QuotaStatus, error) {
	limit := s.defaultLimit
	assignment, err := s.assignments.GetByPromoter(ctx, promotorID)
	switch {
	case err == nil:
		limit = assignment.LimiteAfiliados
	case !errors.Is(err, repository.ErrNotFound):
		return model.QuotaStatus{}, fmt.Errorf("получение назначения: %w", err)
	}

	registrados, err := s.affiliates.CountByPromoter(ctx, promotorID)
	if err != nil {
		return model.QuotaStatus{}, fmt.Errorf("подсчёт афилиатов: %w", err)
	}
	return model.NewQuotaStatus(registrados, limit), nil
}

// scope возвращает ограничение выборки по роли вызывающего.
// nil — без ограничения (администратор).
func (s *AffiliateService) scope(ctx context.Context, caller *model.User) ([]string, error) {
	switch caller.Rol {
	case rbac.RoleAdmin:
		return nil, nil
	case rbac.RoleSupervisor:
		team, err := s.assignments.ListBySupervisor(ctx, caller.ID)
		if err != nil {
			return nil, fmt.Errorf("получение команды: %w", err)
		}
		ids := make([]string, 0, len(team))
		for _, a := range team {
			ids = append(ids, a.PromotorID)
		}
		return ids, nil
	default:
		return []string{caller.ID}, nil
	}
}

// List возвращает афилиатов, видимых вызывающему, и их количество.
func (s *AffiliateService) List(ctx context.Context, caller *model.User, search string, limit, offset int) ([]*model.Affiliate, int, error) {
	if caller == nil {
		return nil, 0, ErrUnauthorized
	}
	ids, err := s.scope(ctx, caller)
	if err != nil {
		return nil, 0, err
	}

	f := model.AffiliateFilter{PromotorIDs: ids, Search: search, Limit: limit, Offset: offset}
	list, err := s.affiliates.List(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("получение афилиатов: %w", err)
	}
	total, err := s.affiliates.Count(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("подсчёт афилиатов: %w", err)
	}
	return list, total, nil
}

// Get возвращает афилиата, если он виден вызывающему.
func (s *AffiliateService) Get(ctx context.Context, caller *model.User, id int64) (*model.Affiliate, error) {
	if caller == nil {
		return nil, ErrUnauthorized
	}
	a, err := s.affiliates.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(ErrNotFound, msgAffiliateNotFound)
		}
		return nil, fmt.Errorf("получение афилиата: %w", err)
	}

	ids, err := s.scope(ctx, caller)
	if err != nil {
		return nil, err
	}
	if ids != nil && !slices.Contains(ids, a.PromotorID) {
		return nil, newError(ErrNotFound, msgAffiliateNotFound)
	}
	return a, nil
}

// Delete удаляет афилиата и его фотографию. Только для администратора.
func (s *AffiliateService) Delete(ctx context.Context, caller *model.User, id int64) error {
	if caller == nil {
		return ErrUnauthorized
	}
	if caller.Rol != rbac.RoleAdmin {
		return newError(ErrForbidden, msgNotAdmin)
	}

	a, err := s.affiliates.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return newError(ErrNotFound, msgAffiliateNotFound)
		}
		return fmt.Errorf("получение афилиата: %w", err)
	}
	if err := s.affiliates.Delete(ctx, id); err != nil {
		return fmt.Errorf("удаление афилиата: %w", err)
	}
	if key, ok := s.store.KeyFromURL(a.Fotografia); ok {
		s.deleteObject(ctx, key)
	}

	s.logger.Info("Афилиат удалён",
		slog.Int64("affiliate_id", id),
		slog.String("by", caller.ID),
	)
	return nil
}

func (s *AffiliateService) deleteObject(ctx context.Context, key string) {
	if err := s.store.Delete(ctx, key); err != nil {
		s.logger.Warn("Ошибка удаления объекта из хранилища",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}
