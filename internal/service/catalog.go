// catalog.go — справочники избирательных секций и политических партий.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bigkaa/sigid/internal/domain/model"
	"github.com/bigkaa/sigid/internal/repository"
)

const (
	keySections = "sections"
	keyParties  = "parties"
)

// CatalogService — CRUD справочников с чтением через кэш.
// Любое изменение сбрасывает кэш.
type CatalogService struct {
	sections repository.SectionRepository
	parties  repository.PartyRepository
	cache    *CatalogCache
	logger   *slog.Logger
}

// NewCatalogService создаёт сервис справочников.
func NewCatalogService(
	sections repository.SectionRepository,
	parties repository.PartyRepository,
	cache *CatalogCache,
	logger *slog.Logger,
) *CatalogService {
	return &CatalogService{
		sections: sections,
		parties:  parties,
		cache:    cache,
		logger:   logger.With(slog.String("component", "catalog_service")),
	}
}

// --- Секции ---

// Sections возвращает секции, упорядоченные по номеру.
func (s *CatalogService) Sections(ctx context.Context) ([]*model.Section, error) {
	if v, ok := s.cache.Get(keySections); ok {
		return v.([]*model.Section), nil
	}
	list, err := s.sections.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("получение секций: %w", err)
	}
	s.cache.Set(keySections, list)
	return list, nil
}

// Section возвращает секцию по ID.
func (s *CatalogService) Section(ctx context.Context, id int) (*model.Section, error) {
	key := fmt.Sprintf("section:%d", id)
	if v, ok := s.cache.Get(key); ok {
		return v.(*model.Section), nil
	}
	sec, err := s.sections.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(ErrNotFound, msgSectionMissing)
		}
		return nil, fmt.Errorf("получение секции: %w", err)
	}
	s.cache.Set(key, sec)
	return sec, nil
}

// CreateSection создаёт секцию.
func (s *CatalogService) CreateSection(ctx context.Context, numero int) (*model.Section, error) {
	if numero <= 0 {
		return nil, newError(ErrValidation, msgInvalidNumber)
	}
	sec := &model.Section{NumeroSeccion: numero}
	if err := s.sections.Create(ctx, sec); err != nil {
		return nil, sectionError(err)
	}
	s.invalidate("section_created", sec.ID)
	return sec, nil
}

// UpdateSection меняет номер секции.
func (s *CatalogService) UpdateSection(ctx context.Context, id, numero int) (*model.Section, error) {
	if numero <= 0 {
		return nil, newError(ErrValidation, msgInvalidNumber)
	}
	sec := &model.Section{ID: id, NumeroSeccion: numero}
	if err := s.sections.Update(ctx, sec); err != nil {
		return nil, sectionError(err)
	}
	s.invalidate("section_updated", id)
	return sec, nil
}

// DeleteSection удаляет секцию, если на неё никто не ссылается.
func (s *CatalogService) DeleteSection(ctx context.Context, id int) error {
	if err := s.sections.Delete(ctx, id); err != nil {
		return sectionError(err)
	}
	s.invalidate("section_deleted", id)
	return nil
}

func sectionError(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return newError(ErrNotFound, msgSectionMissing)
	case errors.Is(err, repository.ErrConflict):
		return newError(ErrConflict, msgSectionExists)
	case errors.Is(err, repository.ErrInUse):
		return newError(ErrConflict, msgSectionInUse)
	}
	return fmt.Errorf("изменение секции: %w", err)
}

// --- Партии ---

// Parties возвращает партии, упорядоченные по названию.
func (s *CatalogService) Parties(ctx context.Context) ([]*model.Party, error) {
	if v, ok := s.cache.Get(keyParties); ok {
		return v.([]*model.Party), nil
	}
	list, err := s.parties.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("получение партий: %w", err)
	}
	s.cache.Set(keyParties, list)
	return list, nil
}

// Party возвращает партию по ID.
func (s *CatalogService) Party(ctx context.Context, id int) (*model.Party, error) {
	key := fmt.Sprintf("party:%d", id)
	if v, ok := s.cache.Get(key); ok {
		return v.(*model.Party), nil
	}
	p, err := s.parties.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(ErrNotFound, msgPartyMissing)
		}
		return nil, fmt.Errorf("получение партии: %w", err)
	}
	s.cache.Set(key, p)
	return p, nil
}

// CreateParty создаёт партию.
func (s *CatalogService) CreateParty(ctx context.Context, nombre string) (*model.Party, error) {
	nombre = strings.TrimSpace(nombre)
	if nombre == "" {
		return nil, newError(ErrValidation, msgPartyName)
	}
	p := &model.Party{Nombre: nombre}
	if err := s.parties.Create(ctx, p); err != nil {
		return nil, partyError(err)
	}
	s.invalidate("party_created", p.ID)
	return p, nil
}

// UpdateParty меняет название партии.
func (s *CatalogService) UpdateParty(ctx context.Context, id int, nombre string) (*model.Party, error) {
	nombre = strings.TrimSpace(nombre)
	if nombre == "" {
		return nil, newError(ErrValidation, msgPartyName)
	}
	p := &model.Party{ID: id, Nombre: nombre}
	if err := s.parties.Update(ctx, p); err != nil {
		return nil, partyError(err)
	}
	s.invalidate("party_updated", id)
	return p, nil
}

// DeleteParty удаляет партию.
func (s *CatalogService) DeleteParty(ctx context.Context, id int) error {
	if err := s.parties.Delete(ctx, id); err != nil {
		return partyError(err)
	}
	s.invalidate("party_deleted", id)
	return nil
}

func partyError(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return newError(ErrNotFound, msgPartyMissing)
	case errors.Is(err, repository.ErrConflict):
		return newError(ErrConflict, msgPartyExists)
	}
	return fmt.Errorf("изменение партии: %w", err)
}

func (s *CatalogService) invalidate(event string, id int) {
	s.cache.Purge()
	s.logger.Info("Справочник изменён, кэш сброшен",
		slog.String("event", event),
		slog.Int("id", id),
	)
}
