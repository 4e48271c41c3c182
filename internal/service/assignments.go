// assignments.go — назначение промоутеров супервизорам и квоты.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/sigid/internal/domain/model"
	"github.com/bigkaa/sigid/internal/domain/rbac"
	"github.com/bigkaa/sigid/internal/domain/validate"
	"github.com/bigkaa/sigid/internal/repository"
)

// Transactor выполняет функцию в транзакции БД.
// Реализуется *repository.TxRunner.
type Transactor interface {
	RunInTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// AssignmentRepoFactory создаёт репозиторий назначений поверх соединения или транзакции.
type AssignmentRepoFactory func(db repository.DBTX) repository.AssignmentRepository

// AssignRequest — данные нового назначения.
type AssignRequest struct {
	SupervisorID string
	PromotorID   string
	SeccionID    int
	// Limite — nil означает квоту по умолчанию
	Limite *int
}

// AssignmentService — сервис назначений.
type AssignmentService struct {
	tx           Transactor
	assignRepo   AssignmentRepoFactory
	assignments  repository.AssignmentRepository
	users        repository.UserRepository
	affiliates   repository.AffiliateRepository
	catalog      *CatalogService
	defaultLimit int
	logger       *slog.Logger
}

// NewAssignmentService создаёт сервис назначений.
func NewAssignmentService(
	tx Transactor,
	assignRepo AssignmentRepoFactory,
	assignments repository.AssignmentRepository,
	users repository.UserRepository,
	affiliates repository.AffiliateRepository,
	catalog *CatalogService,
	defaultLimit int,
	logger *slog.Logger,
) *AssignmentService {
	return &AssignmentService{
		tx:           tx,
		assignRepo:   assignRepo,
		assignments:  assignments,
		users:        users,
		affiliates:   affiliates,
		catalog:      catalog,
		defaultLimit: defaultLimit,
		logger:       logger.With(slog.String("component", "assignment_service")),
	}
}

// Assign назначает промоутера супервизору в секции.
// Промоутер может иметь не более одного супервизора.
func (s *AssignmentService) Assign(ctx context.Context, req AssignRequest) (*model.Assignment, error) {
	if err := s.checkRole(ctx, req.SupervisorID, rbac.RoleSupervisor, msgSupervisorMissing, msgNotSupervisor); err != nil {
		return nil, err
	}
	if err := s.checkRole(ctx, req.PromotorID, rbac.RolePromoter, msgPromoterMissing, msgNotPromoter); err != nil {
		return nil, err
	}

	limit := s.defaultLimit
	if req.Limite != nil {
		if err := validate.ValidateQuota(*req.Limite); err != nil {
			return nil, newError(ErrValidation, err.Error())
		}
		limit = *req.Limite
	}

	if _, err := s.catalog.Section(ctx, req.SeccionID); err != nil {
		return nil, err
	}

	a := &model.Assignment{
		SupervisorID:    req.SupervisorID,
		PromotorID:      req.PromotorID,
		SeccionID:       req.SeccionID,
		LimiteAfiliados: limit,
	}

	err := s.tx.RunInTx(ctx, func(tx pgx.Tx) error {
		repo := s.assignRepo(tx)

		_, err := repo.GetByPromoter(ctx, req.PromotorID)
		if err == nil {
			return newError(ErrAlreadyAssigned, msgAlreadyAssigned)
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("проверка назначения: %w", err)
		}

		// Параллельная вставка отклоняется уникальным индексом по promotor_id
		if err := repo.Create(ctx, a); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return newError(ErrAlreadyAssigned, msgAlreadyAssigned)
			}
			return fmt.Errorf("создание назначения: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Промоутер назначен",
		slog.String("supervisor_id", req.SupervisorID),
		slog.String("promotor_id", req.PromotorID),
		slog.Int("seccion_id", req.SeccionID),
		slog.Int("limite", limit),
	)

	created, err := s.assignments.GetByPromoter(ctx, req.PromotorID)
	if err != nil {
		s.logger.Warn("Назначение создано, но не перечитано", slog.String("error", err.Error()))
		return a, nil
	}
	return created, nil
}

// checkRole проверяет, что профиль существует и имеет нужную роль.
func (s *AssignmentService) checkRole(ctx context.Context, id, role, missingMsg, wrongMsg string) error {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return newError(ErrNotFound, missingMsg)
		}
		return fmt.Errorf("получение пользователя: %w", err)
	}
	if u.Rol != role {
		return newError(ErrInvalidRole, wrongMsg)
	}
	return nil
}

// Unassign снимает назначение промоутера.
func (s *AssignmentService) Unassign(ctx context.Context, promotorID string) error {
	if err := s.assignments.DeleteByPromoter(ctx, promotorID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return newError(ErrNotFound, msgAssignmentMissing)
		}
		return fmt.Errorf("снятие назначения: %w", err)
	}
	s.logger.Info("Назначение снято", slog.String("promotor_id", promotorID))
	return nil
}

// List возвращает назначения; с непустым supervisorID — только его команды.
func (s *AssignmentService) List(ctx context.Context, supervisorID string) ([]*model.Assignment, error) {
	var (
		list []*model.Assignment
		err  error
	)
	if supervisorID != "" {
		list, err = s.assignments.ListBySupervisor(ctx, supervisorID)
	} else {
		list, err = s.assignments.List(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("получение назначений: %w", err)
	}
	return list, nil
}

// AssignedPromoterIDs возвращает ID промоутеров, у которых есть супервизор.
func (s *AssignmentService) AssignedPromoterIDs(ctx context.Context) ([]string, error) {
	ids, err := s.assignments.AssignedPromoterIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("получение назначенных промоутеров: %w", err)
	}
	return ids, nil
}

// SupervisorTeam возвращает промоутеров супервизора с квотами и афилиатами.
func (s *AssignmentService) SupervisorTeam(ctx context.Context, supervisorID string) ([]model.TeamMember, error) {
	list, err := s.assignments.ListBySupervisor(ctx, supervisorID)
	if err != nil {
		return nil, fmt.Errorf("получение команды: %w", err)
	}
	if len(list) == 0 {
		return []model.TeamMember{}, nil
	}

	ids := make([]string, 0, len(list))
	for _, a := range list {
		ids = append(ids, a.PromotorID)
	}

	counts, err := s.affiliates.CountByPromoters(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("подсчёт афилиатов команды: %w", err)
	}
	affs, err := s.affiliates.List(ctx, model.AffiliateFilter{PromotorIDs: ids})
	if err != nil {
		return nil, fmt.Errorf("получение афилиатов команды: %w", err)
	}
	byPromoter := make(map[string][]*model.Affiliate, len(ids))
	for _, a := range affs {
		byPromoter[a.PromotorID] = append(byPromoter[a.PromotorID], a)
	}

	team := make([]model.TeamMember, 0, len(list))
	for _, a := range list {
		team = append(team, model.TeamMember{
			Assignment:  *a,
			Registrados: counts[a.PromotorID],
			Afiliados:   byPromoter[a.PromotorID],
		})
	}
	return team, nil
}

// UpdateQuota меняет квоту промоутера в назначении супервизора.
// Назначение должно существовать и принадлежать этому супервизору;
// новое назначение не создаётся.
func (s *AssignmentService) UpdateQuota(ctx context.Context, supervisorID, promotorID string, limit int) (model.QuotaStatus, error) {
	if err := validate.ValidateQuota(limit); err != nil {
		return model.QuotaStatus{}, newError(ErrValidation, err.Error())
	}
	if err := s.assignments.UpdateLimit(ctx, supervisorID, promotorID, limit); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.QuotaStatus{}, newError(ErrNotFound, msgAssignmentMissing)
		}
		return model.QuotaStatus{}, fmt.Errorf("обновление квоты: %w", err)
	}

	registrados, err := s.affiliates.CountByPromoter(ctx, promotorID)
	if err != nil {
		return model.QuotaStatus{}, fmt.Errorf("подсчёт афилиатов: %w", err)
	}

	if registrados > limit {
		s.logger.Warn("Новая квота меньше числа зарегистрированных афилиатов",
			slog.String("promotor_id", promotorID),
			slog.Int("limite", limit),
			slog.Int("registrados", registrados),
		)
	}
	return model.NewQuotaStatus(registrados, limit), nil
}
