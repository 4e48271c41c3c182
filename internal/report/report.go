// Пакет report — сводка афилиатов по супервизорам и выгрузка в CSV.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/bigkaa/sigid/internal/domain/model"
)

// Row — строка детализации CSV: супервизор, промоутер, число афилиатов.
type Row struct {
	Supervisor string `csv:"Supervisor"`
	Promotor   string `csv:"Promotor"`
	Total      int    `csv:"Total Afiliados"`
}

// FileName возвращает имя файла отчёта на дату.
func FileName(date time.Time) string {
	return "reporte_afiliados_" + date.Format("2006-01-02") + ".csv"
}

// Summarize группирует агрегаты по супервизорам в порядке их следования.
// Строка без промоутера учитывает супервизора с пустой командой.
func Summarize(total int, counts []model.PromoterCount) model.ReportSummary {
	summary := model.ReportSummary{Total: total, PorSupervisor: []model.SupervisorSummary{}}
	index := make(map[string]int)

	for _, c := range counts {
		i, ok := index[c.SupervisorID]
		if !ok {
			i = len(summary.PorSupervisor)
			index[c.SupervisorID] = i
			summary.PorSupervisor = append(summary.PorSupervisor, model.SupervisorSummary{
				SupervisorNombre: c.SupervisorNombre,
				Promotores:       []model.PromoterSummary{},
			})
		}
		if c.PromotorID == "" {
			continue
		}
		sup := &summary.PorSupervisor[i]
		sup.TotalAfiliados += c.Total
		sup.Promotores = append(sup.Promotores, model.PromoterSummary{
			PromotorNombre: c.PromotorNombre,
			TotalAfiliados: c.Total,
		})
	}
	return summary
}

// Rows разворачивает сводку в строки детализации.
func Rows(s model.ReportSummary) []*Row {
	var rows []*Row
	for _, sup := range s.PorSupervisor {
		for _, p := range sup.Promotores {
			rows = append(rows, &Row{
				Supervisor: sup.SupervisorNombre,
				Promotor:   p.PromotorNombre,
				Total:      p.TotalAfiliados,
			})
		}
	}
	return rows
}

// WriteCSV пишет отчёт: заголовок, итог, пустую строку и таблицу детализации.
func WriteCSV(w io.Writer, s model.ReportSummary) error {
	cw := csv.NewWriter(w)
	preamble := [][]string{
		{"Reporte de Afiliados"},
		{"Total de Afiliados:", strconv.Itoa(s.Total)},
	}
	if err := cw.WriteAll(preamble); err != nil {
		return fmt.Errorf("запись заголовка отчёта: %w", err)
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return fmt.Errorf("запись заголовка отчёта: %w", err)
	}

	rows := Rows(s)
	if len(rows) == 0 {
		if err := cw.WriteAll([][]string{{"Supervisor", "Promotor", "Total Afiliados"}}); err != nil {
			return fmt.Errorf("запись таблицы отчёта: %w", err)
		}
		return nil
	}
	if err := gocsv.MarshalCSV(rows, gocsv.NewSafeCSVWriter(cw)); err != nil {
		return fmt.Errorf("запись таблицы отчёта: %w", err)
	}
	return nil
}
