package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bigkaa/sigid/internal/domain/model"
)

// mockReportRepo — агрегаты отчёта.
type mockReportRepo struct {
	total    int
	counts   []model.PromoterCount
	countErr error
}

func (m *mockReportRepo) AffiliateCountsByPromoter(_ context.Context) ([]model.PromoterCount, error) {
	return m.counts, m.countErr
}

func (m *mockReportRepo) TotalAffiliates(_ context.Context) (int, error) {
	return m.total, nil
}

// TestReportService_CSV проверяет имя файла и содержимое выгрузки.
func TestReportService_CSV(t *testing.T) {
	repo := &mockReportRepo{
		total: 3,
		counts: []model.PromoterCount{
			{SupervisorID: "s1", SupervisorNombre: "Teresa", PromotorID: "p1", PromotorNombre: "Sofía", Total: 2},
			{SupervisorID: "s1", SupervisorNombre: "Teresa", PromotorID: "p2", PromotorNombre: "Pedro", Total: 1},
		},
	}
	svc := NewReportService(repo, testLogger())

	name, data, err := svc.CSV(context.Background(), time.Date(2024, 3, 7, 15, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("CSV ошибка: %v", err)
	}
	if name != "reporte_afiliados_2024-03-07.csv" {
		t.Errorf("имя файла = %q", name)
	}
	if !strings.HasPrefix(string(data), "Reporte de Afiliados\nTotal de Afiliados:,3\n") {
		t.Errorf("начало файла:\n%s", data)
	}
	if !strings.Contains(string(data), "Teresa,Sofía,2\n") {
		t.Errorf("нет строки промоутера:\n%s", data)
	}
}

// TestReportService_SummaryError проверяет, что ошибка запроса возвращается.
func TestReportService_SummaryError(t *testing.T) {
	svc := NewReportService(&mockReportRepo{countErr: errors.New("timeout")}, testLogger())
	if _, err := svc.Summary(context.Background()); err == nil {
		t.Error("ожидалась ошибка")
	}
}
