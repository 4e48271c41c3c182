// reports.go — отчёты по афилиатам.
package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bigkaa/sigid/internal/domain/model"
	"github.com/bigkaa/sigid/internal/report"
	"github.com/bigkaa/sigid/internal/repository"
)

// ReportService — сводка афилиатов и выгрузка CSV.
type ReportService struct {
	reports repository.ReportRepository
	logger  *slog.Logger
}

// NewReportService создаёт сервис отчётов.
func NewReportService(reports repository.ReportRepository, logger *slog.Logger) *ReportService {
	return &ReportService{
		reports: reports,
		logger:  logger.With(slog.String("component", "report_service")),
	}
}

// Summary возвращает сводку: общее число афилиатов и разбивку
// супервизор → промоутеры. Оба запроса выполняются параллельно.
func (s *ReportService) Summary(ctx context.Context) (model.ReportSummary, error) {
	var (
		total  int
		counts []model.PromoterCount
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		total, err = s.reports.TotalAffiliates(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		counts, err = s.reports.AffiliateCountsByPromoter(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return model.ReportSummary{}, fmt.Errorf("агрегация отчёта: %w", err)
	}

	return report.Summarize(total, counts), nil
}

// CSV формирует отчёт и возвращает имя файла на дату now и содержимое.
// Отчёт собирается в памяти целиком, чтобы ошибка не оборвала ответ.
func (s *ReportService) CSV(ctx context.Context, now time.Time) (string, []byte, error) {
	summary, err := s.Summary(ctx)
	if err != nil {
		return "", nil, err
	}
	var buf bytes.Buffer
	if err := report.WriteCSV(&buf, summary); err != nil {
		return "", nil, err
	}
	s.logger.Info("Отчёт выгружен", slog.Int("total", summary.Total))
	return report.FileName(now), buf.Bytes(), nil
}
