package model

import "time"

// DefaultAffiliateLimit — квота промоутера по умолчанию.
const DefaultAffiliateLimit = 50

// Assignment — назначение промоутера супервизору в избирательной секции.
// Хранится в таблице asignaciones; promotor_id уникален.
type Assignment struct {
	ID              int64
	SupervisorID    string
	PromotorID      string
	SeccionID       int
	LimiteAfiliados int
	CreatedAt       time.Time

	// Поля из JOIN
	SupervisorNombre string
	PromotorNombre   string
	PromotorEmail    string
	NumeroSeccion    int
}

// TeamMember — промоутер в команде супервизора с квотой и афилиатами.
type TeamMember struct {
	Assignment  Assignment
	Registrados int
	Afiliados   []*Affiliate
}
