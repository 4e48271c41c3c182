// dto.go — JSON-представления ответов API и преобразование доменных моделей.
package handlers

import (
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/bigkaa/sigid/internal/domain/model"
	"github.com/bigkaa/sigid/internal/domain/rbac"
)

type userResponse struct {
	ID         string              `json:"id"`
	Email      openapi_types.Email `json:"email"`
	Nombre     string              `json:"nombre"`
	Rol        string              `json:"rol"`
	Telefono   *string             `json:"telefono"`
	Fotografia *string             `json:"fotografia"`
	Activo     bool                `json:"activo"`
	CreatedAt  time.Time           `json:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

func mapUser(u *model.User) userResponse {
	return userResponse{
		ID:         u.ID,
		Email:      openapi_types.Email(u.Email),
		Nombre:     u.Nombre,
		Rol:        u.Rol,
		Telefono:   u.Telefono,
		Fotografia: u.Fotografia,
		Activo:     u.Activo,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

func mapUsers(list []*model.User) []userResponse {
	items := make([]userResponse, len(list))
	for i, u := range list {
		items[i] = mapUser(u)
	}
	return items
}

// meResponse — профиль текущего пользователя и панель по роли.
type meResponse struct {
	userResponse
	Panel string `json:"panel"`
}

func mapMe(u *model.User) meResponse {
	return meResponse{userResponse: mapUser(u), Panel: rbac.HomePath(u.Rol)}
}

// listResponse — страница списка.
type listResponse[T any] struct {
	Items   []T  `json:"items"`
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

func newListResponse[T any](items []T, total, limit, offset int) listResponse[T] {
	return listResponse[T]{
		Items:   items,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: offset+limit < total,
	}
}

type affiliateResponse struct {
	ID                int64              `json:"id"`
	Nombre            string             `json:"nombre"`
	ApellidoPaterno   string             `json:"apellido_paterno"`
	ApellidoMaterno   string             `json:"apellido_materno"`
	CURP              string             `json:"curp"`
	ClaveElector      string             `json:"clave_elector"`
	Direccion         string             `json:"direccion"`
	Telefono          *string            `json:"telefono"`
	FechaNacimiento   openapi_types.Date `json:"fecha_nacimiento"`
	SeccionID         int                `json:"seccion_id"`
	NumeroSeccion     int                `json:"numero_seccion"`
	UbicacionGPS      string             `json:"ubicacion_gps"`
	PartidoPoliticoID *int               `json:"partido_politico_id"`
	PartidoNombre     *string            `json:"partido_nombre"`
	Categoria         string             `json:"categoria"`
	Fotografia        string             `json:"fotografia"`
	PromotorID        string             `json:"promotor_id"`
	PromotorNombre    string             `json:"promotor_nombre,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
}

func mapAffiliate(a *model.Affiliate) affiliateResponse {
	return affiliateResponse{
		ID:                a.ID,
		Nombre:            a.Nombre,
		ApellidoPaterno:   a.ApellidoPaterno,
		ApellidoMaterno:   a.ApellidoMaterno,
		CURP:              a.CURP,
		ClaveElector:      a.ClaveElector,
		Direccion:         a.Direccion,
		Telefono:          a.Telefono,
		FechaNacimiento:   openapi_types.Date{Time: a.FechaNacimiento},
		SeccionID:         a.SeccionID,
		NumeroSeccion:     a.NumeroSeccion,
		UbicacionGPS:      a.UbicacionGPS,
		PartidoPoliticoID: a.PartidoPoliticoID,
		PartidoNombre:     a.PartidoNombre,
		Categoria:         a.Categoria,
		Fotografia:        a.Fotografia,
		PromotorID:        a.PromotorID,
		PromotorNombre:    a.PromotorNombre,
		CreatedAt:         a.CreatedAt,
	}
}

func mapAffiliates(list []*model.Affiliate) []affiliateResponse {
	items := make([]affiliateResponse, len(list))
	for i, a := range list {
		items[i] = mapAffiliate(a)
	}
	return items
}

type assignmentResponse struct {
	ID               int64     `json:"id"`
	SupervisorID     string    `json:"supervisor_id"`
	SupervisorNombre string    `json:"supervisor_nombre,omitempty"`
	PromotorID       string    `json:"promotor_id"`
	PromotorNombre   string    `json:"promotor_nombre,omitempty"`
	PromotorEmail    string    `json:"promotor_email,omitempty"`
	SeccionID        int       `json:"seccion_id"`
	NumeroSeccion    int       `json:"numero_seccion,omitempty"`
	LimiteAfiliados  int       `json:"limite_afiliados"`
	CreatedAt        time.Time `json:"created_at"`
}

func mapAssignment(a *model.Assignment) assignmentResponse {
	return assignmentResponse{
		ID:               a.ID,
		SupervisorID:     a.SupervisorID,
		SupervisorNombre: a.SupervisorNombre,
		PromotorID:       a.PromotorID,
		PromotorNombre:   a.PromotorNombre,
		PromotorEmail:    a.PromotorEmail,
		SeccionID:        a.SeccionID,
		NumeroSeccion:    a.NumeroSeccion,
		LimiteAfiliados:  a.LimiteAfiliados,
		CreatedAt:        a.CreatedAt,
	}
}

type quotaResponse struct {
	Registrados    int  `json:"registrados"`
	Limite         int  `json:"limite"`
	PuedeRegistrar bool `json:"puede_registrar"`
}

func mapQuota(q model.QuotaStatus) quotaResponse {
	return quotaResponse{
		Registrados:    q.Registrados,
		Limite:         q.Limite,
		PuedeRegistrar: q.PuedeRegistrar,
	}
}

type teamMemberResponse struct {
	assignmentResponse
	quotaResponse
	Afiliados []affiliateResponse `json:"afiliados"`
}

func mapTeam(team []model.TeamMember) []teamMemberResponse {
	items := make([]teamMemberResponse, len(team))
	for i, m := range team {
		items[i] = teamMemberResponse{
			assignmentResponse: mapAssignment(&m.Assignment),
			quotaResponse:      mapQuota(model.NewQuotaStatus(m.Registrados, m.Assignment.LimiteAfiliados)),
			Afiliados:          mapAffiliates(m.Afiliados),
		}
	}
	return items
}

type sectionResponse struct {
	ID            int `json:"id"`
	NumeroSeccion int `json:"numero_seccion"`
}

type partyResponse struct {
	ID     int    `json:"id"`
	Nombre string `json:"nombre"`
}

type reportResponse struct {
	Total         int                 `json:"total"`
	PorSupervisor []supervisorSummary `json:"por_supervisor"`
}

type supervisorSummary struct {
	SupervisorNombre string            `json:"supervisor_nombre"`
	TotalAfiliados   int               `json:"total_afiliados"`
	Promotores       []promoterSummary `json:"promotores"`
}

type promoterSummary struct {
	PromotorNombre string `json:"promotor_nombre"`
	TotalAfiliados int    `json:"total_afiliados"`
}

func mapReport(s model.ReportSummary) reportResponse {
	resp := reportResponse{Total: s.Total, PorSupervisor: make([]supervisorSummary, len(s.PorSupervisor))}
	for i, sup := range s.PorSupervisor {
		proms := make([]promoterSummary, len(sup.Promotores))
		for j, p := range sup.Promotores {
			proms[j] = promoterSummary{PromotorNombre: p.PromotorNombre, TotalAfiliados: p.TotalAfiliados}
		}
		resp.PorSupervisor[i] = supervisorSummary{
			SupervisorNombre: sup.SupervisorNombre,
			TotalAfiliados:   sup.TotalAfiliados,
			Promotores:       proms,
		}
	}
	return resp
}

type syncResponse struct {
	TotalLocal    int       `json:"total_local"`
	TotalKeycloak int       `json:"total_keycloak"`
	CreatedLocal  int       `json:"created_local"`
	Deactivated   int       `json:"deactivated"`
	SyncedAt      time.Time `json:"synced_at"`
}
