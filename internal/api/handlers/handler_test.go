package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/sigid/internal/api/errors"
	"github.com/bigkaa/sigid/internal/api/middleware"
	"github.com/bigkaa/sigid/internal/domain/model"
	"github.com/bigkaa/sigid/internal/domain/rbac"
	"github.com/bigkaa/sigid/internal/repository"
	"github.com/bigkaa/sigid/internal/service"
)

const sampleCredentialText = "INSTITUTO NACIONAL ELECTORAL\n" +
	"NOMBRE JUANA\n" +
	"APELLIDO PATERNO PEREZ\n" +
	"APELLIDO MATERNO LOPEZ\n" +
	"DOMICILIO C 5 DE MAYO 12 COL CENTRO\n" +
	"CLAVE DE ELECTOR PRLPJN90010209M100\n" +
	"CURP PELJ900102MDFRPN09\n"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- Моки ---

type fakeChecker struct {
	status, message string
}

func (c fakeChecker) CheckReady() (string, string) { return c.status, c.message }

type mockSchema struct {
	pingErr    error
	migrateErr error
	sections   int
	migrated   int
}

func (m *mockSchema) Ping(context.Context) error { return m.pingErr }

func (m *mockSchema) Migrate(context.Context) error {
	m.migrated++
	return m.migrateErr
}

func (m *mockSchema) SeedSections(context.Context) (int, error) { return m.sections, nil }

type mockSeeder struct{ users int }

func (m *mockSeeder) SeedDefaultUsers(context.Context) (int, error) { return m.users, nil }

type mockReports struct {
	total  int
	counts []model.PromoterCount
	err    error
}

func (m *mockReports) AffiliateCountsByPromoter(context.Context) ([]model.PromoterCount, error) {
	return m.counts, m.err
}

func (m *mockReports) TotalAffiliates(context.Context) (int, error) { return m.total, m.err }

type mockRecognizer struct {
	text string
	err  error
}

func (m *mockRecognizer) Recognize(context.Context, []byte) (string, error) { return m.text, m.err }

type mockSections struct {
	items     []*model.Section
	createErr error
	deleteErr error
}

func (m *mockSections) List(context.Context) ([]*model.Section, error) { return m.items, nil }

func (m *mockSections) GetByID(_ context.Context, id int) (*model.Section, error) {
	for _, s := range m.items {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *mockSections) Create(_ context.Context, s *model.Section) error {
	if m.createErr != nil {
		return m.createErr
	}
	s.ID = len(m.items) + 1
	m.items = append(m.items, s)
	return nil
}

func (m *mockSections) Update(context.Context, *model.Section) error { return nil }

func (m *mockSections) Delete(context.Context, int) error { return m.deleteErr }

type mockParties struct {
	items []*model.Party
}

func (m *mockParties) List(context.Context) ([]*model.Party, error) { return m.items, nil }

func (m *mockParties) GetByID(context.Context, int) (*model.Party, error) {
	return nil, repository.ErrNotFound
}

func (m *mockParties) Create(_ context.Context, p *model.Party) error {
	p.ID = len(m.items) + 1
	m.items = append(m.items, p)
	return nil
}

func (m *mockParties) Update(context.Context, *model.Party) error { return nil }

func (m *mockParties) Delete(context.Context, int) error { return nil }

// --- Хелперы ---

func userWithRole(id, role string) *model.User {
	return &model.User{ID: id, Email: id + "@sigid.mx", Nombre: "Usuario " + id, Rol: role, Activo: true}
}

// newTestRouter монтирует маршруты и подставляет claims вызывающего
// вместо JWT-аутентификации. user == nil — анонимный запрос.
func newTestRouter(h *APIHandler, user *model.User) http.Handler {
	r := chi.NewRouter()
	if user != nil {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				claims := &middleware.AuthClaims{
					Subject:       user.ID,
					Email:         user.Email,
					EffectiveRole: user.Rol,
					Profile:       user,
				}
				next.ServeHTTP(w, req.WithContext(middleware.WithClaims(req.Context(), claims)))
			})
		})
	}
	h.Mount(r, nil)
	return r
}

func newTestHandler(services Services) *APIHandler {
	h := NewAPIHandler(
		NewHealthHandler(fakeChecker{status: "ok"}, fakeChecker{status: "ok"}),
		services, "secreto", 1<<20, testLogger(),
	)
	h.now = func() time.Time { return time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC) }
	return h
}

func doRequest(t *testing.T, handler http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("тело ошибки не JSON: %v", err)
	}
	return body.Error.Code
}

// --- Health ---

func TestHealthReady(t *testing.T) {
	tests := []struct {
		name       string
		pg, kc     ReadinessChecker
		wantCode   int
		wantStatus string
	}{
		{"всё ok", fakeChecker{status: "ok"}, fakeChecker{status: "ok"}, http.StatusOK, "ok"},
		{"keycloak degraded", fakeChecker{status: "ok"}, fakeChecker{status: "degraded"}, http.StatusOK, "degraded"},
		{"postgres fail", fakeChecker{status: "fail", message: "нет связи"}, fakeChecker{status: "ok"}, http.StatusServiceUnavailable, "fail"},
		{"checker не задан", nil, fakeChecker{status: "ok"}, http.StatusServiceUnavailable, "fail"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.pg, tt.kc)
			rec := httptest.NewRecorder()
			h.HealthReady(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

			if rec.Code != tt.wantCode {
				t.Errorf("код = %d, хотели %d", rec.Code, tt.wantCode)
			}
			var resp healthReadyResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("ответ не JSON: %v", err)
			}
			if resp.Status != tt.wantStatus {
				t.Errorf("status = %q, хотели %q", resp.Status, tt.wantStatus)
			}
			if resp.Service != serviceName {
				t.Errorf("service = %q, хотели %q", resp.Service, serviceName)
			}
		})
	}
}

func TestHealthLive(t *testing.T) {
	h := newTestHandler(Services{})
	rec := doRequest(t, newTestRouter(h, nil), http.MethodGet, "/health/live", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("код = %d, хотели 200", rec.Code)
	}
}

// --- Ошибки сервиса ---

func TestWriteServiceError(t *testing.T) {
	tests := []struct {
		err      error
		wantCode int
		wantBody string
	}{
		{fmt.Errorf("x: %w", service.ErrValidation), http.StatusBadRequest, apierrors.CodeValidationError},
		{service.ErrInvalidRole, http.StatusBadRequest, apierrors.CodeValidationError},
		{service.ErrNotFound, http.StatusNotFound, apierrors.CodeNotFound},
		{service.ErrConflict, http.StatusConflict, apierrors.CodeConflict},
		{service.ErrAlreadyAssigned, http.StatusConflict, apierrors.CodeConflict},
		{service.ErrUnauthorized, http.StatusUnauthorized, apierrors.CodeUnauthorized},
		{service.ErrForbidden, http.StatusForbidden, apierrors.CodeForbidden},
		{service.ErrNoAssignment, http.StatusForbidden, apierrors.CodeForbidden},
		{service.ErrAccountInactive, http.StatusForbidden, apierrors.CodeForbidden},
		{service.ErrQuotaExceeded, http.StatusUnprocessableEntity, apierrors.CodeQuotaExceeded},
		{fmt.Errorf("keycloak: %w", service.ErrIDPUnavailable), http.StatusBadGateway, apierrors.CodeIDPUnavailable},
		{service.ErrStorageUnavailable, http.StatusBadGateway, apierrors.CodeStorageUnavailable},
		{service.ErrOCRUnavailable, http.StatusBadGateway, apierrors.CodeStorageUnavailable},
		{errors.New("pgx: conn closed"), http.StatusInternalServerError, apierrors.CodeInternalError},
	}

	h := newTestHandler(Services{})
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.writeServiceError(rec, httptest.NewRequest(http.MethodGet, "/x", nil), tt.err)
			if rec.Code != tt.wantCode {
				t.Errorf("код = %d, хотели %d", rec.Code, tt.wantCode)
			}
			if got := errorCode(t, rec); got != tt.wantBody {
				t.Errorf("code = %q, хотели %q", got, tt.wantBody)
			}
		})
	}
}

func TestPaginationDefaults(t *testing.T) {
	intPtr := func(v int) *int { return &v }
	tests := []struct {
		name                 string
		limit, offset        *int
		wantLimit, wantOffst int
	}{
		{"по умолчанию", nil, nil, 100, 0},
		{"limit меньше 1", intPtr(0), nil, 1, 0},
		{"limit больше 1000", intPtr(5000), nil, 1000, 0},
		{"отрицательный offset", intPtr(10), intPtr(-5), 10, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, o := paginationDefaults(tt.limit, tt.offset)
			if l != tt.wantLimit || o != tt.wantOffst {
				t.Errorf("paginationDefaults = (%d, %d), хотели (%d, %d)", l, o, tt.wantLimit, tt.wantOffst)
			}
		})
	}
}

// --- Auth / профиль ---

func TestMe(t *testing.T) {
	h := newTestHandler(Services{})

	t.Run("без сессии", func(t *testing.T) {
		rec := doRequest(t, newTestRouter(h, nil), http.MethodGet, "/api/v1/auth/me", "", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("код = %d, хотели 401", rec.Code)
		}
	})

	tests := []struct {
		role      string
		wantPanel string
	}{
		{rbac.RoleAdmin, "/admin"},
		{rbac.RoleSupervisor, "/supervisor"},
		{rbac.RolePromoter, "/promotor"},
	}
	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			rec := doRequest(t, newTestRouter(h, userWithRole("u-1", tt.role)), http.MethodGet, "/api/v1/auth/me", "", nil)
			if rec.Code != http.StatusOK {
				t.Fatalf("код = %d, хотели 200", rec.Code)
			}
			var resp meResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("ответ не JSON: %v", err)
			}
			if resp.Panel != tt.wantPanel {
				t.Errorf("panel = %q, хотели %q", resp.Panel, tt.wantPanel)
			}
			if resp.Rol != tt.role {
				t.Errorf("rol = %q, хотели %q", resp.Rol, tt.role)
			}
		})
	}
}

// --- Система ---

func TestCheckConnection(t *testing.T) {
	tests := []struct {
		name     string
		pingErr  error
		wantCode int
	}{
		{"база доступна", nil, http.StatusOK},
		{"база недоступна", errors.New("connection refused"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sys := service.NewSystemService(&mockSchema{pingErr: tt.pingErr}, &mockSeeder{}, testLogger())
			h := newTestHandler(Services{System: sys})
			rec := doRequest(t, newTestRouter(h, nil), http.MethodGet, "/api/v1/system/check-connection", "", nil)
			if rec.Code != tt.wantCode {
				t.Errorf("код = %d, хотели %d", rec.Code, tt.wantCode)
			}
		})
	}
}

func TestInitDatabase(t *testing.T) {
	tests := []struct {
		name         string
		configured   string
		header       string
		migrateErr   error
		wantCode     int
		wantMigrated int
	}{
		{"endpoint отключён", "", "secreto", nil, http.StatusNotFound, 0},
		{"без токена", "secreto", "", nil, http.StatusUnauthorized, 0},
		{"неверный токен", "secreto", "otro", nil, http.StatusUnauthorized, 0},
		{"ошибка миграций", "secreto", "secreto", errors.New("dirty"), http.StatusInternalServerError, 1},
		{"успех", "secreto", "secreto", nil, http.StatusOK, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schema := &mockSchema{migrateErr: tt.migrateErr, sections: 3}
			sys := service.NewSystemService(schema, &mockSeeder{users: 3}, testLogger())
			h := newTestHandler(Services{System: sys})
			h.bootstrapToken = tt.configured

			rec := doRequest(t, newTestRouter(h, nil), http.MethodPost, "/api/v1/system/init-database", "",
				map[string]string{"X-Bootstrap-Token": tt.header})
			if rec.Code != tt.wantCode {
				t.Errorf("код = %d, хотели %d", rec.Code, tt.wantCode)
			}
			if schema.migrated != tt.wantMigrated {
				t.Errorf("миграций = %d, хотели %d", schema.migrated, tt.wantMigrated)
			}
			if tt.wantCode == http.StatusOK {
				var res service.InitResult
				if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
					t.Fatalf("ответ не JSON: %v", err)
				}
				if res.SectionsCreated != 3 || res.UsersCreated != 3 {
					t.Errorf("результат = %+v, хотели 3 секции и 3 пользователя", res)
				}
			}
		})
	}
}

// --- Справочники ---

func newCatalogHandler(sections *mockSections, parties *mockParties) *APIHandler {
	catalog := service.NewCatalogService(sections, parties, service.NewCatalogCache(16, time.Minute), testLogger())
	return newTestHandler(Services{Catalog: catalog})
}

func TestSectionsRoutes(t *testing.T) {
	tests := []struct {
		name     string
		role     string
		method   string
		path     string
		body     string
		repo     *mockSections
		wantCode int
	}{
		{"список для промоутера", rbac.RolePromoter, http.MethodGet, "/api/v1/sections", "",
			&mockSections{items: []*model.Section{{ID: 1, NumeroSeccion: 101}}}, http.StatusOK},
		{"промоутер не создаёт", rbac.RolePromoter, http.MethodPost, "/api/v1/sections", `{"numero_seccion":5}`,
			&mockSections{}, http.StatusForbidden},
		{"администратор создаёт", rbac.RoleAdmin, http.MethodPost, "/api/v1/sections", `{"numero_seccion":5}`,
			&mockSections{}, http.StatusCreated},
		{"неверный номер", rbac.RoleAdmin, http.MethodPost, "/api/v1/sections", `{"numero_seccion":0}`,
			&mockSections{}, http.StatusBadRequest},
		{"дубликат", rbac.RoleAdmin, http.MethodPost, "/api/v1/sections", `{"numero_seccion":5}`,
			&mockSections{createErr: repository.ErrConflict}, http.StatusConflict},
		{"битый JSON", rbac.RoleAdmin, http.MethodPost, "/api/v1/sections", `{`,
			&mockSections{}, http.StatusBadRequest},
		{"удаление используемой", rbac.RoleAdmin, http.MethodDelete, "/api/v1/sections/1", "",
			&mockSections{deleteErr: repository.ErrInUse}, http.StatusConflict},
		{"удаление", rbac.RoleAdmin, http.MethodDelete, "/api/v1/sections/1", "",
			&mockSections{}, http.StatusNoContent},
		{"нечисловой ID", rbac.RoleAdmin, http.MethodDelete, "/api/v1/sections/abc", "",
			&mockSections{}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newCatalogHandler(tt.repo, &mockParties{})
			rec := doRequest(t, newTestRouter(h, userWithRole("u-1", tt.role)), tt.method, tt.path, tt.body, nil)
			if rec.Code != tt.wantCode {
				t.Errorf("код = %d, хотели %d (тело: %s)", rec.Code, tt.wantCode, rec.Body.String())
			}
		})
	}
}

func TestPartiesRoutes(t *testing.T) {
	parties := &mockParties{items: []*model.Party{{ID: 1, Nombre: "Partido Azul"}}}
	h := newCatalogHandler(&mockSections{}, parties)

	rec := doRequest(t, newTestRouter(h, userWithRole("sup-1", rbac.RoleSupervisor)), http.MethodGet, "/api/v1/parties", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("код = %d, хотели 200", rec.Code)
	}
	var list []partyResponse
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("ответ не JSON: %v", err)
	}
	if len(list) != 1 || list[0].Nombre != "Partido Azul" {
		t.Errorf("список = %+v", list)
	}

	rec = doRequest(t, newTestRouter(h, userWithRole("adm-1", rbac.RoleAdmin)), http.MethodPost, "/api/v1/parties",
		`{"nombre":"Partido Verde"}`, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("создание: код = %d, хотели 201", rec.Code)
	}
}

// --- Отчёты ---

func TestReports(t *testing.T) {
	repo := &mockReports{
		total: 7,
		counts: []model.PromoterCount{
			{SupervisorID: "s1", SupervisorNombre: "Ana", PromotorID: "p1", PromotorNombre: "Luis", Total: 4},
			{SupervisorID: "s1", SupervisorNombre: "Ana", PromotorID: "p2", PromotorNombre: "Eva", Total: 3},
		},
	}
	h := newTestHandler(Services{Reports: service.NewReportService(repo, testLogger())})
	admin := newTestRouter(h, userWithRole("adm-1", rbac.RoleAdmin))

	t.Run("сводка", func(t *testing.T) {
		rec := doRequest(t, admin, http.MethodGet, "/api/v1/reports/affiliates", "", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("код = %d, хотели 200", rec.Code)
		}
		var resp reportResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("ответ не JSON: %v", err)
		}
		if resp.Total != 7 {
			t.Errorf("total = %d, хотели 7", resp.Total)
		}
		if len(resp.PorSupervisor) != 1 || len(resp.PorSupervisor[0].Promotores) != 2 {
			t.Fatalf("разбивка = %+v", resp.PorSupervisor)
		}
	})

	t.Run("CSV", func(t *testing.T) {
		rec := doRequest(t, admin, http.MethodGet, "/api/v1/reports/affiliates.csv", "", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("код = %d, хотели 200", rec.Code)
		}
		cd := rec.Header().Get("Content-Disposition")
		if !strings.Contains(cd, "reporte_afiliados_2026-03-15.csv") {
			t.Errorf("Content-Disposition = %q", cd)
		}
		if !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/csv") {
			t.Errorf("Content-Type = %q", rec.Header().Get("Content-Type"))
		}
		if !strings.Contains(rec.Body.String(), "Total Afiliados") {
			t.Errorf("нет заголовка CSV: %q", rec.Body.String())
		}
	})

	t.Run("супервизору запрещено", func(t *testing.T) {
		rec := doRequest(t, newTestRouter(h, userWithRole("sup-1", rbac.RoleSupervisor)),
			http.MethodGet, "/api/v1/reports/affiliates", "", nil)
		if rec.Code != http.StatusForbidden {
			t.Errorf("код = %d, хотели 403", rec.Code)
		}
	})

	t.Run("ошибка базы", func(t *testing.T) {
		hErr := newTestHandler(Services{Reports: service.NewReportService(&mockReports{err: errors.New("boom")}, testLogger())})
		rec := doRequest(t, newTestRouter(hErr, userWithRole("adm-1", rbac.RoleAdmin)),
			http.MethodGet, "/api/v1/reports/affiliates", "", nil)
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("код = %d, хотели 500", rec.Code)
		}
	})
}

// --- OCR ---

func TestScanCredential(t *testing.T) {
	const image = "data:image/png;base64,iVBORw0KGgo="
	promoter := userWithRole("prom-1", rbac.RolePromoter)

	tests := []struct {
		name       string
		recognizer *mockRecognizer
		body       string
		user       *model.User
		wantCode   int
		wantFound  int
	}{
		{"распознавание отключено", nil, `{"imagen":"` + image + `"}`, promoter, http.StatusBadGateway, 0},
		{"без снимка", &mockRecognizer{}, `{"imagen":""}`, promoter, http.StatusBadRequest, 0},
		{"ничего не найдено", &mockRecognizer{text: "ruido"}, `{"imagen":"` + image + `"}`, promoter, http.StatusOK, 0},
		{"ошибка движка", &mockRecognizer{err: errors.New("timeout")}, `{"imagen":"` + image + `"}`, promoter, http.StatusOK, 0},
		{"успех", &mockRecognizer{text: sampleCredentialText},
			`{"imagen":"` + image + `","formulario":{"telefono":"5512345678"}}`, promoter, http.StatusOK, 6},
		{"не промоутер", &mockRecognizer{}, `{"imagen":"` + image + `"}`,
			userWithRole("adm-1", rbac.RoleAdmin), http.StatusForbidden, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ocrSvc *service.OCRService
			if tt.recognizer == nil {
				ocrSvc = service.NewOCRService(nil, testLogger())
			} else {
				ocrSvc = service.NewOCRService(tt.recognizer, testLogger())
			}
			h := newTestHandler(Services{OCR: ocrSvc})

			rec := doRequest(t, newTestRouter(h, tt.user), http.MethodPost, "/api/v1/ocr/credential", tt.body, nil)
			if rec.Code != tt.wantCode {
				t.Fatalf("код = %d, хотели %d (тело: %s)", rec.Code, tt.wantCode, rec.Body.String())
			}
			if rec.Code != http.StatusOK {
				return
			}
			var resp ocrResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("ответ не JSON: %v", err)
			}
			if resp.Encontrados != tt.wantFound {
				t.Errorf("encontrados = %d, хотели %d", resp.Encontrados, tt.wantFound)
			}
			if resp.Mensaje == "" {
				t.Error("пустое уведомление")
			}
			if tt.wantFound > 0 {
				if resp.Formulario.Nombre != "JUANA" {
					t.Errorf("nombre = %q, хотели JUANA", resp.Formulario.Nombre)
				}
				if resp.Formulario.Telefono != "5512345678" {
					t.Errorf("telefono = %q, ручной ввод потерян", resp.Formulario.Telefono)
				}
			}
		})
	}
}

// --- Идентификаторы и размер тела ---

func TestMalformedIDs(t *testing.T) {
	admin := userWithRole("adm-1", rbac.RoleAdmin)
	supervisor := userWithRole("sup-1", rbac.RoleSupervisor)

	tests := []struct {
		name   string
		user   *model.User
		method string
		path   string
		body   string
	}{
		{"профиль", admin, http.MethodGet, "/api/v1/users/abc", ""},
		{"изменение", admin, http.MethodPut, "/api/v1/users/abc", `{"nombre":"Ana"}`},
		{"удаление", admin, http.MethodDelete, "/api/v1/users/abc", ""},
		{"активация", admin, http.MethodPatch, "/api/v1/users/abc/active", `{"activo":true}`},
		{"сброс пароля", admin, http.MethodPost, "/api/v1/users/abc/reset-password", `{"newPassword":"secreto1"}`},
		{"аватар", admin, http.MethodPut, "/api/v1/users/abc/photo", `{"fotografia":"x"}`},
		{"сброс пароля в теле", admin, http.MethodPost, "/api/v1/reset-password",
			`{"userId":"../../groups","newPassword":"secreto1"}`},
		{"фильтр назначений", admin, http.MethodGet, "/api/v1/assignments?supervisor_id=abc", ""},
		{"новое назначение", admin, http.MethodPost, "/api/v1/assignments",
			`{"supervisor_id":"abc","promotor_id":"0b0e7c1a-3f1e-4a4e-9a53-2f1c1b7f9d10","seccion_id":1}`},
		{"снятие назначения", admin, http.MethodDelete, "/api/v1/assignments/promoters/abc", ""},
		{"квота промоутера", supervisor, http.MethodPut, "/api/v1/supervisor/team/abc/limit", `{"limite_afiliados":10}`},
	}

	// Сервисы не заданы: запрос должен отклоняться до обращения к ним.
	h := newTestHandler(Services{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, newTestRouter(h, tt.user), tt.method, tt.path, tt.body, nil)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("код = %d, хотели 400 (тело: %s)", rec.Code, rec.Body.String())
			}
			if code := errorCode(t, rec); code != apierrors.CodeValidationError {
				t.Errorf("код ошибки = %q, хотели %q", code, apierrors.CodeValidationError)
			}
		})
	}
}

func TestOversizedBody(t *testing.T) {
	promoter := userWithRole("prom-1", rbac.RolePromoter)
	huge := `{"direccion":"` + strings.Repeat("a", 4<<20) + `"}`

	t.Run("регистрация афилиата", func(t *testing.T) {
		h := newTestHandler(Services{})
		rec := doRequest(t, newTestRouter(h, promoter), http.MethodPost, "/api/v1/affiliates", huge, nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("код = %d, хотели 400", rec.Code)
		}
		if code := errorCode(t, rec); code != apierrors.CodeValidationError {
			t.Errorf("код ошибки = %q", code)
		}
	})

	t.Run("распознавание credencial", func(t *testing.T) {
		h := newTestHandler(Services{OCR: service.NewOCRService(&mockRecognizer{}, testLogger())})
		body := `{"imagen":"","formulario":` + huge + `}`
		rec := doRequest(t, newTestRouter(h, promoter), http.MethodPost, "/api/v1/ocr/credential", body, nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("код = %d, хотели 400", rec.Code)
		}
	})

	t.Run("распознавание отключено, тело не читается", func(t *testing.T) {
		h := newTestHandler(Services{OCR: service.NewOCRService(nil, testLogger())})
		rec := doRequest(t, newTestRouter(h, promoter), http.MethodPost, "/api/v1/ocr/credential", huge, nil)
		if rec.Code != http.StatusBadGateway {
			t.Fatalf("код = %d, хотели 502", rec.Code)
		}
	})
}
