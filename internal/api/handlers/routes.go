// routes.go — таблица маршрутов API.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/sigid/internal/api/middleware"
	"github.com/bigkaa/sigid/internal/domain/rbac"
	"github.com/bigkaa/sigid/internal/i18n"
)

// Mount регистрирует все маршруты на router.
// public — middleware публичных POST (ограничение частоты), может быть nil.
// Аутентификация подключается выше, в server; здесь только проверка ролей.
func (h *APIHandler) Mount(r chi.Router, public func(http.Handler) http.Handler) {
	if public == nil {
		public = func(next http.Handler) http.Handler { return next }
	}
	admin := middleware.RequireRole(rbac.RoleAdmin)

	r.Get("/health/live", h.HealthLive)
	r.Get("/health/ready", h.HealthReady)
	r.Get("/metrics", h.GetMetrics)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/system/check-connection", h.CheckConnection)
		r.With(public).Post("/system/init-database", h.InitDatabase)

		r.With(public).Post("/auth/signup", h.SignUp)
		r.Get("/auth/me", h.Me)
		r.Post("/reset-password", h.ResetPasswordLegacy)

		r.Route("/users", func(r chi.Router) {
			r.Use(admin)
			r.Get("/", h.ListUsers)
			r.Post("/", h.CreateUser)
			r.Post("/assign-role", h.AssignRole)
			r.Post("/sync", h.SyncUsers)
			r.Get("/{id}", h.GetUser)
			r.Put("/{id}", h.UpdateUser)
			r.Delete("/{id}", h.DeleteUser)
			r.Patch("/{id}/active", h.SetUserActive)
			r.Post("/{id}/reset-password", h.ResetUserPassword)
			r.Put("/{id}/photo", h.UploadUserPhoto)
		})

		r.Route("/assignments", func(r chi.Router) {
			r.Use(admin)
			r.Get("/", h.ListAssignments)
			r.Post("/", h.CreateAssignment)
			r.Get("/assigned-promoters", h.AssignedPromoters)
			r.Delete("/promoters/{promotorId}", h.DeleteAssignment)
		})

		r.Route("/supervisor/team", func(r chi.Router) {
			r.Use(middleware.RequireRole(rbac.RoleSupervisor))
			r.Get("/", h.SupervisorTeam)
			r.Put("/{promotorId}/limit", h.UpdatePromoterLimit)
		})

		r.With(middleware.RequireRole(rbac.RolePromoter)).Get("/promoter/quota", h.PromoterQuota)
		r.With(middleware.RequireRole(rbac.RolePromoter)).Post("/ocr/credential", h.ScanCredential)

		r.Route("/affiliates", func(r chi.Router) {
			r.Get("/", h.ListAffiliates)
			r.With(middleware.RequireRole(rbac.RolePromoter)).Post("/", h.RegisterAffiliate)
			r.Get("/{id}", h.GetAffiliate)
			r.With(admin).Delete("/{id}", h.DeleteAffiliate)
			r.With(i18n.Middleware()).Get("/{id}/credential", h.AffiliateCredential)
			r.Get("/{id}/credential/qr.png", h.AffiliateQR)
		})

		r.Route("/sections", func(r chi.Router) {
			r.Get("/", h.ListSections)
			r.With(admin).Post("/", h.CreateSection)
			r.With(admin).Put("/{id}", h.UpdateSection)
			r.With(admin).Delete("/{id}", h.DeleteSection)
		})

		r.Route("/parties", func(r chi.Router) {
			r.Get("/", h.ListParties)
			r.With(admin).Post("/", h.CreateParty)
			r.With(admin).Put("/{id}", h.UpdateParty)
			r.With(admin).Delete("/{id}", h.DeleteParty)
		})

		r.Route("/reports", func(r chi.Router) {
			r.Use(admin)
			r.Get("/affiliates", h.ReportSummary)
			r.Get("/affiliates.csv", h.ReportCSV)
		})
	})
}
