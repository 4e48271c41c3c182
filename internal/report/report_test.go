package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/bigkaa/sigid/internal/domain/model"
)

func sampleCounts() []model.PromoterCount {
	return []model.PromoterCount{
		{SupervisorID: "s1", SupervisorNombre: "Sofía", PromotorID: "p1", PromotorNombre: "Pedro", Total: 3},
		{SupervisorID: "s1", SupervisorNombre: "Sofía", PromotorID: "p2", PromotorNombre: "Paula", Total: 2},
		{SupervisorID: "s2", SupervisorNombre: "Teresa"},
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(7, sampleCounts())

	if s.Total != 7 {
		t.Errorf("Total = %d, хотели 7", s.Total)
	}
	if len(s.PorSupervisor) != 2 {
		t.Fatalf("PorSupervisor: %d, хотели 2", len(s.PorSupervisor))
	}
	sofia := s.PorSupervisor[0]
	if sofia.SupervisorNombre != "Sofía" || sofia.TotalAfiliados != 5 || len(sofia.Promotores) != 2 {
		t.Errorf("Сводка Sofía = %+v", sofia)
	}
	teresa := s.PorSupervisor[1]
	if teresa.TotalAfiliados != 0 || len(teresa.Promotores) != 0 {
		t.Errorf("Сводка Teresa = %+v", teresa)
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, Summarize(5, sampleCounts())); err != nil {
		t.Fatalf("WriteCSV() ошибка: %v", err)
	}

	want := "Reporte de Afiliados\n" +
		"Total de Afiliados:,5\n" +
		"\n" +
		"Supervisor,Promotor,Total Afiliados\n" +
		"Sofía,Pedro,3\n" +
		"Sofía,Paula,2\n"
	if got := buf.String(); got != want {
		t.Errorf("WriteCSV() =\n%s\nхотели\n%s", got, want)
	}
}

func TestWriteCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, Summarize(0, nil)); err != nil {
		t.Fatalf("WriteCSV() ошибка: %v", err)
	}

	want := "Reporte de Afiliados\nTotal de Afiliados:,0\n\nSupervisor,Promotor,Total Afiliados\n"
	if got := buf.String(); got != want {
		t.Errorf("WriteCSV() = %q, хотели %q", got, want)
	}
}

func TestWriteCSV_QuotesCommas(t *testing.T) {
	counts := []model.PromoterCount{
		{SupervisorID: "s1", SupervisorNombre: "Gómez, Ana", PromotorID: "p1", PromotorNombre: "Luis", Total: 1},
	}
	var buf bytes.Buffer
	if err := WriteCSV(&buf, Summarize(1, counts)); err != nil {
		t.Fatalf("WriteCSV() ошибка: %v", err)
	}
	if !bytes.Contains(buf.Bytes(), []byte(`"Gómez, Ana",Luis,1`)) {
		t.Errorf("Имя с запятой не экранировано:\n%s", buf.String())
	}
}

func TestFileName(t *testing.T) {
	date := time.Date(2024, 3, 9, 15, 0, 0, 0, time.UTC)
	if got := FileName(date); got != "reporte_afiliados_2024-03-09.csv" {
		t.Errorf("FileName() = %q", got)
	}
}
