package model

// PromoterCount — строка агрегата: количество афилиатов промоутера.
// Супервизор без команды имеет пустой PromotorID.
type PromoterCount struct {
	SupervisorID     string
	SupervisorNombre string
	PromotorID       string
	PromotorNombre   string
	Total            int
}

// ReportSummary — сводка по афилиатам: супервизор → промоутеры.
type ReportSummary struct {
	Total         int
	PorSupervisor []SupervisorSummary
}

// SupervisorSummary — итог по одному супервизору.
type SupervisorSummary struct {
	SupervisorNombre string
	TotalAfiliados   int
	Promotores       []PromoterSummary
}

// PromoterSummary — итог по одному промоутеру.
type PromoterSummary struct {
	PromotorNombre string
	TotalAfiliados int
}
