package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/sigid/internal/domain/model"
)

// AffiliateRepository — интерфейс для таблицы afiliados.
type AffiliateRepository interface {
	// Create регистрирует афилиата. Заполняет ID и временные метки.
	Create(ctx context.Context, a *model.Affiliate) error
	// GetByID возвращает афилиата с данными секции, партии и промоутера.
	GetByID(ctx context.Context, id int64) (*model.Affiliate, error)
	// List возвращает афилиатов по фильтру, новые первыми.
	List(ctx context.Context, f model.AffiliateFilter) ([]*model.Affiliate, error)
	// Count возвращает количество афилиатов по фильтру.
	Count(ctx context.Context, f model.AffiliateFilter) (int, error)
	// CountByPromoter возвращает количество афилиатов промоутера.
	CountByPromoter(ctx context.Context, promotorID string) (int, error)
	// CountByPromoters возвращает количество афилиатов по каждому промоутеру.
	CountByPromoters(ctx context.Context, promotorIDs []string) (map[string]int, error)
	// Delete удаляет афилиата.
	Delete(ctx context.Context, id int64) error
}

// affiliateRepo — реализация AffiliateRepository.
type affiliateRepo struct {
	db DBTX
}

// NewAffiliateRepository создаёт репозиторий афилиатов.
func NewAffiliateRepository(db DBTX) AffiliateRepository {
	return &affiliateRepo{db: db}
}

const affiliateSelect = `
	SELECT a.id, a.nombre, a.apellido_paterno, a.apellido_materno, a.curp, a.clave_elector,
		a.direccion, a.telefono, a.fecha_nacimiento, a.seccion_id, a.ubicacion_gps,
		a.partido_politico_id, a.categoria::text, a.fotografia, a.promotor_id::text,
		a.created_by::text, a.created_at, a.updated_at,
		s.numero_seccion, p.nombre, u.nombre
	FROM afiliados a
	JOIN secciones s ON s.id = a.seccion_id
	LEFT JOIN partidos_politicos p ON p.id = a.partido_politico_id
	JOIN usuarios u ON u.id = a.promotor_id`

// scanAffiliate сканирует строку результата affiliateSelect.
func scanAffiliate(row pgx.Row) (*model.Affiliate, error) {
	a := &model.Affiliate{}
	err := row.Scan(
		&a.ID, &a.Nombre, &a.ApellidoPaterno, &a.ApellidoMaterno, &a.CURP, &a.ClaveElector,
		&a.Direccion, &a.Telefono, &a.FechaNacimiento, &a.SeccionID, &a.UbicacionGPS,
		&a.PartidoPoliticoID, &a.Categoria, &a.Fotografia, &a.PromotorID,
		&a.CreatedBy, &a.CreatedAt, &a.UpdatedAt,
		&a.NumeroSeccion, &a.PartidoNombre, &a.PromotorNombre,
	)
	return a, err
}

func (r *affiliateRepo) Create(ctx context.Context, a *model.Affiliate) error {
	query := `
		INSERT INTO afiliados (
			nombre, apellido_paterno, apellido_materno, curp, clave_elector,
			direccion, telefono, fecha_nacimiento, seccion_id, ubicacion_gps,
			partido_politico_id, categoria, fotografia, promotor_id, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12::categoria_type, $13, $14, $15)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		a.Nombre, a.ApellidoPaterno, a.ApellidoMaterno, a.CURP, a.ClaveElector,
		a.Direccion, a.Telefono, a.FechaNacimiento, a.SeccionID, a.UbicacionGPS,
		a.PartidoPoliticoID, a.Categoria, a.Fotografia, a.PromotorID, a.CreatedBy,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: афилиат с такой CURP или Clave de Elector уже зарегистрирован", ErrConflict)
		}
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: секция, партия или промоутер не найдены", ErrNotFound)
		}
		return fmt.Errorf("ошибка создания афилиата: %w", err)
	}
	return nil
}

func (r *affiliateRepo) GetByID(ctx context.Context, id int64) (*model.Affiliate, error) {
	a, err := scanAffiliate(r.db.QueryRow(ctx, affiliateSelect+` WHERE a.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения афилиата: %w", err)
	}
	return a, nil
}

// affiliateWhere строит условие WHERE по фильтру.
// Пустой, но не nil список промоутеров даёт пустую выборку.
func affiliateWhere(f model.AffiliateFilter) (string, []any) {
	var conditions []string
	var args []any
	argNum := 1

	if f.PromotorIDs != nil {
		conditions = append(conditions, fmt.Sprintf("a.promotor_id = ANY($%d::uuid[])", argNum))
		args = append(args, f.PromotorIDs)
		argNum++
	}
	if f.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			`(a.nombre ILIKE $%[1]d ESCAPE '\' OR a.apellido_paterno ILIKE $%[1]d ESCAPE '\'`+
				` OR a.apellido_materno ILIKE $%[1]d ESCAPE '\' OR a.curp ILIKE $%[1]d ESCAPE '\')`,
			argNum))
		args = append(args, containsPattern(f.Search))
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func (r *affiliateRepo) List(ctx context.Context, f model.AffiliateFilter) ([]*model.Affiliate, error) {
	where, args := affiliateWhere(f)
	query := affiliateSelect + where + ` ORDER BY a.created_at DESC, a.id DESC`
	if f.Limit > 0 {
		argNum := len(args) + 1
		query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, argNum, argNum+1)
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка афилиатов: %w", err)
	}
	defer rows.Close()

	var result []*model.Affiliate
	for rows.Next() {
		a, err := scanAffiliate(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования афилиата: %w", err)
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

func (r *affiliateRepo) Count(ctx context.Context, f model.AffiliateFilter) (int, error) {
	where, args := affiliateWhere(f)
	query := `SELECT COUNT(*) FROM afiliados a` + where

	var count int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта афилиатов: %w", err)
	}
	return count, nil
}

func (r *affiliateRepo) CountByPromoter(ctx context.Context, promotorID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM afiliados WHERE promotor_id = $1`, promotorID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчёта афилиатов промоутера: %w", err)
	}
	return count, nil
}

func (r *affiliateRepo) CountByPromoters(ctx context.Context, promotorIDs []string) (map[string]int, error) {
	result := make(map[string]int, len(promotorIDs))
	if len(promotorIDs) == 0 {
		return result, nil
	}

	query := `
		SELECT promotor_id::text, COUNT(*)
		FROM afiliados
		WHERE promotor_id = ANY($1::uuid[])
		GROUP BY promotor_id`

	rows, err := r.db.Query(ctx, query, promotorIDs)
	if err != nil {
		return nil, fmt.Errorf("ошибка подсчёта афилиатов по промоутерам: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var count int
		if err := rows.Scan(&id, &count); err != nil {
			return nil, fmt.Errorf("ошибка сканирования счётчика: %w", err)
		}
		result[id] = count
	}
	return result, rows.Err()
}

func (r *affiliateRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM afiliados WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления афилиата: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
