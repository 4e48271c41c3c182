package repository

import (
	"context"
	"fmt"

	"github.com/bigkaa/sigid/internal/domain/model"
)

// ReportRepository — агрегаты для отчётов по афилиатам.
type ReportRepository interface {
	// AffiliateCountsByPromoter возвращает число афилиатов каждого назначенного
	// промоутера по супервизорам. Супервизор без команды даёт одну строку
	// с пустым PromotorID.
	AffiliateCountsByPromoter(ctx context.Context) ([]model.PromoterCount, error)
	// TotalAffiliates возвращает общее число афилиатов.
	TotalAffiliates(ctx context.Context) (int, error)
}

type reportRepo struct {
	db DBTX
}

// NewReportRepository создаёт репозиторий отчётов.
func NewReportRepository(db DBTX) ReportRepository {
	return &reportRepo{db: db}
}

func (r *reportRepo) AffiliateCountsByPromoter(ctx context.Context) ([]model.PromoterCount, error) {
	query := `
		SELECT sup.id::text, sup.nombre,
			COALESCE(pro.id::text, ''), COALESCE(pro.nombre, ''), COUNT(af.id)
		FROM usuarios sup
		LEFT JOIN asignaciones asg ON asg.supervisor_id = sup.id
		LEFT JOIN usuarios pro ON pro.id = asg.promotor_id
		LEFT JOIN afiliados af ON af.promotor_id = asg.promotor_id
		WHERE sup.rol = 'Supervisor'
		GROUP BY sup.id, sup.nombre, pro.id, pro.nombre
		ORDER BY sup.nombre, pro.nombre NULLS LAST`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка агрегации афилиатов: %w", err)
	}
	defer rows.Close()

	var result []model.PromoterCount
	for rows.Next() {
		var c model.PromoterCount
		if err := rows.Scan(&c.SupervisorID, &c.SupervisorNombre, &c.PromotorID, &c.PromotorNombre, &c.Total); err != nil {
			return nil, fmt.Errorf("ошибка сканирования агрегата: %w", err)
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func (r *reportRepo) TotalAffiliates(ctx context.Context) (int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM afiliados`).Scan(&total); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта афилиатов: %w", err)
	}
	return total, nil
}
