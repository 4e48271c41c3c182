package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/sigid/internal/domain/model"
	"github.com/bigkaa/sigid/internal/keycloak"
	"github.com/bigkaa/sigid/internal/repository"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// --- Keycloak ---

// mockIDP — in-memory Keycloak.
type mockIDP struct {
	mu        sync.Mutex
	users     map[string]keycloak.KeycloakUser
	groups    map[string][]keycloak.KeycloakGroup
	passwords map[string]string
	nextID    int

	createErr error
	resetErr  error
	deleted   []string
}

func newMockIDP() *mockIDP {
	return &mockIDP{
		users:     make(map[string]keycloak.KeycloakUser),
		groups:    make(map[string][]keycloak.KeycloakGroup),
		passwords: make(map[string]string),
	}
}

func (m *mockIDP) ListUsers(_ context.Context, _ string, first, max int) ([]keycloak.KeycloakUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.users))
	for id := range m.users {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	if first >= len(ids) {
		return nil, nil
	}
	end := min(first+max, len(ids))
	out := make([]keycloak.KeycloakUser, 0, end-first)
	for _, id := range ids[first:end] {
		out = append(out, m.users[id])
	}
	return out, nil
}

func (m *mockIDP) GetUserGroups(_ context.Context, userID string) ([]keycloak.KeycloakGroup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.groups[userID], nil
}

func (m *mockIDP) FindUserByEmail(_ context.Context, email string) (*keycloak.KeycloakUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, keycloak.ErrNotFound
}

func (m *mockIDP) CreateUser(_ context.Context, u keycloak.NewUser) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return "", m.createErr
	}
	for _, existing := range m.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return "", keycloak.ErrConflict
		}
	}
	m.nextID++
	id := fmt.Sprintf("00000000-0000-0000-0000-%012d", m.nextID)
	m.users[id] = keycloak.KeycloakUser{ID: id, Username: u.Email, Email: u.Email, FirstName: u.FirstName, Enabled: u.Enabled}
	m.passwords[id] = u.Password
	return id, nil
}

func (m *mockIDP) UpdateUser(_ context.Context, id, email, firstName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return keycloak.ErrNotFound
	}
	if email != "" {
		u.Email = email
	}
	if firstName != "" {
		u.FirstName = firstName
	}
	m.users[id] = u
	return nil
}

func (m *mockIDP) SetEnabled(_ context.Context, id string, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return keycloak.ErrNotFound
	}
	u.Enabled = enabled
	m.users[id] = u
	return nil
}

func (m *mockIDP) ResetPassword(_ context.Context, id, password string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.resetErr != nil {
		return m.resetErr
	}
	if _, ok := m.users[id]; !ok {
		return keycloak.ErrNotFound
	}
	m.passwords[id] = password
	return nil
}

func (m *mockIDP) DeleteUser(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return keycloak.ErrNotFound
	}
	delete(m.users, id)
	m.deleted = append(m.deleted, id)
	return nil
}

// --- Репозитории ---

// mockUserRepo — in-memory UserRepository.
type mockUserRepo struct {
	mu        sync.Mutex
	users     map[string]*model.User
	createErr error
	inUse     map[string]bool
}

func newMockUserRepo(users ...*model.User) *mockUserRepo {
	m := &mockUserRepo{users: make(map[string]*model.User), inUse: make(map[string]bool)}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *mockUserRepo) Create(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if _, ok := m.users[u.ID]; ok {
		return repository.ErrConflict
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *mockUserRepo) List(_ context.Context, f model.UserFilter) ([]*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.User
	for _, u := range m.users {
		if f.Rol != "" && u.Rol != f.Rol {
			continue
		}
		if f.Activo != nil && u.Activo != *f.Activo {
			continue
		}
		cp := *u
		out = append(out, &cp)
	}
	slices.SortFunc(out, func(a, b *model.User) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

func (m *mockUserRepo) Count(ctx context.Context, f model.UserFilter) (int, error) {
	list, err := m.List(ctx, f)
	return len(list), err
}

func (m *mockUserRepo) Update(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *mockUserRepo) SetActive(_ context.Context, id string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Activo = active
	return nil
}

func (m *mockUserRepo) SetPhoto(_ context.Context, id, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Fotografia = &url
	return nil
}

func (m *mockUserRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inUse[id] {
		return repository.ErrInUse
	}
	if _, ok := m.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

// mockAssignmentRepo — in-memory AssignmentRepository.
type mockAssignmentRepo struct {
	mu     sync.Mutex
	rows   map[string]*model.Assignment // по promotor_id
	nextID int64
}

func newMockAssignmentRepo(rows ...*model.Assignment) *mockAssignmentRepo {
	m := &mockAssignmentRepo{rows: make(map[string]*model.Assignment)}
	for _, a := range rows {
		m.nextID++
		a.ID = m.nextID
		m.rows[a.PromotorID] = a
	}
	return m
}

func (m *mockAssignmentRepo) Create(_ context.Context, a *model.Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[a.PromotorID]; ok {
		return repository.ErrConflict
	}
	m.nextID++
	a.ID = m.nextID
	a.CreatedAt = time.Now()
	cp := *a
	m.rows[a.PromotorID] = &cp
	return nil
}

func (m *mockAssignmentRepo) GetByPromoter(_ context.Context, promotorID string) (*model.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[promotorID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *mockAssignmentRepo) ListBySupervisor(_ context.Context, supervisorID string) ([]*model.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Assignment
	for _, a := range m.rows {
		if a.SupervisorID == supervisorID {
			cp := *a
			out = append(out, &cp)
		}
	}
	slices.SortFunc(out, func(a, b *model.Assignment) int { return strings.Compare(a.PromotorID, b.PromotorID) })
	return out, nil
}

func (m *mockAssignmentRepo) List(_ context.Context) ([]*model.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Assignment, 0, len(m.rows))
	for _, a := range m.rows {
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}

func (m *mockAssignmentRepo) AssignedPromoterIDs(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.rows))
	for id := range m.rows {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

func (m *mockAssignmentRepo) DeleteByPromoter(_ context.Context, promotorID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[promotorID]; !ok {
		return repository.ErrNotFound
	}
	delete(m.rows, promotorID)
	return nil
}

func (m *mockAssignmentRepo) UpdateLimit(_ context.Context, supervisorID, promotorID string, limit int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[promotorID]
	if !ok || a.SupervisorID != supervisorID {
		return repository.ErrNotFound
	}
	a.LimiteAfiliados = limit
	return nil
}

// mockAffiliateRepo — in-memory AffiliateRepository.
type mockAffiliateRepo struct {
	mu        sync.Mutex
	rows      []*model.Affiliate
	nextID    int64
	createErr error
}

func (m *mockAffiliateRepo) Create(_ context.Context, a *model.Affiliate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	for _, r := range m.rows {
		if r.CURP == a.CURP || r.ClaveElector == a.ClaveElector {
			return repository.ErrConflict
		}
	}
	m.nextID++
	a.ID = m.nextID
	cp := *a
	m.rows = append(m.rows, &cp)
	return nil
}

func (m *mockAffiliateRepo) GetByID(_ context.Context, id int64) (*model.Affiliate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.ID == id {
			cp := *r
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *mockAffiliateRepo) List(_ context.Context, f model.AffiliateFilter) ([]*model.Affiliate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Affiliate
	for _, r := range m.rows {
		if f.PromotorIDs != nil && !slices.Contains(f.PromotorIDs, r.PromotorID) {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(r.FullName()+" "+r.CURP), strings.ToLower(f.Search)) {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}

func (m *mockAffiliateRepo) Count(ctx context.Context, f model.AffiliateFilter) (int, error) {
	list, err := m.List(ctx, f)
	return len(list), err
}

func (m *mockAffiliateRepo) CountByPromoter(ctx context.Context, promotorID string) (int, error) {
	return m.Count(ctx, model.AffiliateFilter{PromotorIDs: []string{promotorID}})
}

func (m *mockAffiliateRepo) CountByPromoters(ctx context.Context, promotorIDs []string) (map[string]int, error) {
	out := make(map[string]int, len(promotorIDs))
	for _, id := range promotorIDs {
		n, _ := m.CountByPromoter(ctx, id)
		out[id] = n
	}
	return out, nil
}

func (m *mockAffiliateRepo) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.rows {
		if r.ID == id {
			m.rows = slices.Delete(m.rows, i, i+1)
			return nil
		}
	}
	return repository.ErrNotFound
}

// mockSectionRepo — справочник секций с подсчётом обращений.
type mockSectionRepo struct {
	mu       sync.Mutex
	sections map[int]*model.Section
	gets     int
	lists    int
}

func newMockSectionRepo(numbers ...int) *mockSectionRepo {
	m := &mockSectionRepo{sections: make(map[int]*model.Section)}
	for i, n := range numbers {
		m.sections[i+1] = &model.Section{ID: i + 1, NumeroSeccion: n}
	}
	return m
}

func (m *mockSectionRepo) List(_ context.Context) ([]*model.Section, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists++
	out := make([]*model.Section, 0, len(m.sections))
	for _, s := range m.sections {
		cp := *s
		out = append(out, &cp)
	}
	slices.SortFunc(out, func(a, b *model.Section) int { return a.NumeroSeccion - b.NumeroSeccion })
	return out, nil
}

func (m *mockSectionRepo) GetByID(_ context.Context, id int) (*model.Section, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	s, ok := m.sections[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *mockSectionRepo) Create(_ context.Context, s *model.Section) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.sections {
		if e.NumeroSeccion == s.NumeroSeccion {
			return repository.ErrConflict
		}
	}
	s.ID = len(m.sections) + 1
	cp := *s
	m.sections[s.ID] = &cp
	return nil
}

func (m *mockSectionRepo) Update(_ context.Context, s *model.Section) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sections[s.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *s
	m.sections[s.ID] = &cp
	return nil
}

func (m *mockSectionRepo) Delete(_ context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sections[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.sections, id)
	return nil
}

// mockPartyRepo — справочник партий.
type mockPartyRepo struct {
	parties map[int]*model.Party
}

func (m *mockPartyRepo) List(_ context.Context) ([]*model.Party, error) {
	out := make([]*model.Party, 0, len(m.parties))
	for _, p := range m.parties {
		out = append(out, p)
	}
	return out, nil
}

func (m *mockPartyRepo) GetByID(_ context.Context, id int) (*model.Party, error) {
	p, ok := m.parties[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return p, nil
}

func (m *mockPartyRepo) Create(_ context.Context, p *model.Party) error {
	if m.parties == nil {
		m.parties = make(map[int]*model.Party)
	}
	p.ID = len(m.parties) + 1
	m.parties[p.ID] = p
	return nil
}

func (m *mockPartyRepo) Update(_ context.Context, p *model.Party) error {
	if _, ok := m.parties[p.ID]; !ok {
		return repository.ErrNotFound
	}
	m.parties[p.ID] = p
	return nil
}

func (m *mockPartyRepo) Delete(_ context.Context, id int) error {
	if _, ok := m.parties[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.parties, id)
	return nil
}

// mockSyncStateRepo — состояние синхронизации в памяти.
type mockSyncStateRepo struct {
	mu   sync.Mutex
	last *time.Time
}

func (m *mockSyncStateRepo) Get(_ context.Context) (*model.SyncState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &model.SyncState{ID: 1, LastUserSyncAt: m.last}, nil
}

func (m *mockSyncStateRepo) UpdateUserSyncAt(_ context.Context, t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last = &t
	return nil
}

// mockTx выполняет функцию без реальной транзакции.
type mockTx struct {
	calls int
}

func (m *mockTx) RunInTx(_ context.Context, fn func(tx pgx.Tx) error) error {
	m.calls++
	return fn(nil)
}

// --- Хранилище ---

// mockStore — объектное хранилище в памяти.
type mockStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
	deleted []string
}

func newMockStore() *mockStore {
	return &mockStore{objects: make(map[string][]byte)}
}

func (m *mockStore) Put(_ context.Context, key, _ string, r io.Reader) (string, error) {
	if m.putErr != nil {
		return "", m.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return "/media/" + key, nil
}

func (m *mockStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	m.deleted = append(m.deleted, key)
	return nil
}

func (m *mockStore) KeyFromURL(publicURL string) (string, bool) {
	key, ok := strings.CutPrefix(publicURL, "/media/")
	return key, ok && key != ""
}
