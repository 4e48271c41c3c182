package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/sigid/internal/domain/model"
)

// AssignmentRepository — интерфейс для таблицы asignaciones.
type AssignmentRepository interface {
	// Create создаёт назначение. Повторное назначение промоутера — ErrConflict.
	Create(ctx context.Context, a *model.Assignment) error
	// GetByPromoter возвращает назначение промоутера.
	GetByPromoter(ctx context.Context, promotorID string) (*model.Assignment, error)
	// ListBySupervisor возвращает назначения супервизора.
	ListBySupervisor(ctx context.Context, supervisorID string) ([]*model.Assignment, error)
	// List возвращает все назначения.
	List(ctx context.Context) ([]*model.Assignment, error)
	// AssignedPromoterIDs возвращает ID всех назначенных промоутеров.
	AssignedPromoterIDs(ctx context.Context) ([]string, error)
	// DeleteByPromoter снимает назначение промоутера.
	DeleteByPromoter(ctx context.Context, promotorID string) error
	// UpdateLimit меняет квоту промоутера в назначении данного супервизора.
	UpdateLimit(ctx context.Context, supervisorID, promotorID string, limit int) error
}

// assignmentRepo — реализация AssignmentRepository.
type assignmentRepo struct {
	db DBTX
}

// NewAssignmentRepository создаёт репозиторий назначений.
func NewAssignmentRepository(db DBTX) AssignmentRepository {
	return &assignmentRepo{db: db}
}

const assignmentSelect = `
	SELECT a.id, a.supervisor_id::text, a.promotor_id::text, a.seccion_id, a.limite_afiliados,
		a.created_at, sup.nombre, pro.nombre, pro.email, s.numero_seccion
	FROM asignaciones a
	JOIN usuarios sup ON sup.id = a.supervisor_id
	JOIN usuarios pro ON pro.id = a.promotor_id
	JOIN secciones s ON s.id = a.seccion_id`

// scanAssignment сканирует строку результата assignmentSelect.
func scanAssignment(row pgx.Row) (*model.Assignment, error) {
	a := &model.Assignment{}
	err := row.Scan(
		&a.ID, &a.SupervisorID, &a.PromotorID, &a.SeccionID, &a.LimiteAfiliados,
		&a.CreatedAt, &a.SupervisorNombre, &a.PromotorNombre, &a.PromotorEmail, &a.NumeroSeccion,
	)
	return a, err
}

func (r *assignmentRepo) Create(ctx context.Context, a *model.Assignment) error {
	query := `
		INSERT INTO asignaciones (supervisor_id, promotor_id, seccion_id, limite_afiliados)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query,
		a.SupervisorID, a.PromotorID, a.SeccionID, a.LimiteAfiliados,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: промоутер уже назначен супервизору", ErrConflict)
		}
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: пользователь или секция не найдены", ErrNotFound)
		}
		return fmt.Errorf("ошибка создания назначения: %w", err)
	}
	return nil
}

func (r *assignmentRepo) GetByPromoter(ctx context.Context, promotorID string) (*model.Assignment, error) {
	a, err := scanAssignment(r.db.QueryRow(ctx, assignmentSelect+` WHERE a.promotor_id = $1`, promotorID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения назначения: %w", err)
	}
	return a, nil
}

func (r *assignmentRepo) ListBySupervisor(ctx context.Context, supervisorID string) ([]*model.Assignment, error) {
	return r.list(ctx, assignmentSelect+` WHERE a.supervisor_id = $1 ORDER BY pro.nombre`, supervisorID)
}

func (r *assignmentRepo) List(ctx context.Context) ([]*model.Assignment, error) {
	return r.list(ctx, assignmentSelect+` ORDER BY a.created_at DESC`)
}

func (r *assignmentRepo) list(ctx context.Context, query string, args ...any) ([]*model.Assignment, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка назначений: %w", err)
	}
	defer rows.Close()

	var result []*model.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования назначения: %w", err)
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

func (r *assignmentRepo) AssignedPromoterIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT promotor_id::text FROM asignaciones`)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения назначенных промоутеров: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("ошибка сканирования назначенных промоутеров: %w", err)
	}
	return ids, nil
}

func (r *assignmentRepo) DeleteByPromoter(ctx context.Context, promotorID string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM asignaciones WHERE promotor_id = $1`, promotorID)
	if err != nil {
		return fmt.Errorf("ошибка удаления назначения: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *assignmentRepo) UpdateLimit(ctx context.Context, supervisorID, promotorID string, limit int) error {
	query := `
		UPDATE asignaciones
		SET limite_afiliados = $3
		WHERE supervisor_id = $1 AND promotor_id = $2`

	tag, err := r.db.Exec(ctx, query, supervisorID, promotorID, limit)
	if err != nil {
		return fmt.Errorf("ошибка обновления квоты: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
