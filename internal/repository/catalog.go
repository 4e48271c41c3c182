package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/sigid/internal/domain/model"
)

// SectionRepository — интерфейс для справочника secciones.
type SectionRepository interface {
	List(ctx context.Context) ([]*model.Section, error)
	GetByID(ctx context.Context, id int) (*model.Section, error)
	Create(ctx context.Context, s *model.Section) error
	Update(ctx context.Context, s *model.Section) error
	Delete(ctx context.Context, id int) error
}

// PartyRepository — интерфейс для справочника partidos_politicos.
type PartyRepository interface {
	List(ctx context.Context) ([]*model.Party, error)
	GetByID(ctx context.Context, id int) (*model.Party, error)
	Create(ctx context.Context, p *model.Party) error
	Update(ctx context.Context, p *model.Party) error
	Delete(ctx context.Context, id int) error
}

type sectionRepo struct {
	db DBTX
}

// NewSectionRepository создаёт репозиторий секций.
func NewSectionRepository(db DBTX) SectionRepository {
	return &sectionRepo{db: db}
}

func (r *sectionRepo) List(ctx context.Context) ([]*model.Section, error) {
	rows, err := r.db.Query(ctx, `SELECT id, numero_seccion FROM secciones ORDER BY numero_seccion`)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка секций: %w", err)
	}
	defer rows.Close()

	var result []*model.Section
	for rows.Next() {
		s := &model.Section{}
		if err := rows.Scan(&s.ID, &s.NumeroSeccion); err != nil {
			return nil, fmt.Errorf("ошибка сканирования секции: %w", err)
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

func (r *sectionRepo) GetByID(ctx context.Context, id int) (*model.Section, error) {
	s := &model.Section{}
	err := r.db.QueryRow(ctx, `SELECT id, numero_seccion FROM secciones WHERE id = $1`, id).
		Scan(&s.ID, &s.NumeroSeccion)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения секции: %w", err)
	}
	return s, nil
}

func (r *sectionRepo) Create(ctx context.Context, s *model.Section) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO secciones (numero_seccion) VALUES ($1) RETURNING id`, s.NumeroSeccion,
	).Scan(&s.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: секция %d уже существует", ErrConflict, s.NumeroSeccion)
		}
		return fmt.Errorf("ошибка создания секции: %w", err)
	}
	return nil
}

func (r *sectionRepo) Update(ctx context.Context, s *model.Section) error {
	tag, err := r.db.Exec(ctx, `UPDATE secciones SET numero_seccion = $2 WHERE id = $1`, s.ID, s.NumeroSeccion)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: секция %d уже существует", ErrConflict, s.NumeroSeccion)
		}
		return fmt.Errorf("ошибка обновления секции: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *sectionRepo) Delete(ctx context.Context, id int) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM secciones WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: секция используется афилиатами или назначениями", ErrInUse)
		}
		return fmt.Errorf("ошибка удаления секции: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type partyRepo struct {
	db DBTX
}

// NewPartyRepository создаёт репозиторий политических партий.
func NewPartyRepository(db DBTX) PartyRepository {
	return &partyRepo{db: db}
}

func (r *partyRepo) List(ctx context.Context) ([]*model.Party, error) {
	rows, err := r.db.Query(ctx, `SELECT id, nombre FROM partidos_politicos ORDER BY nombre`)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка партий: %w", err)
	}
	defer rows.Close()

	var result []*model.Party
	for rows.Next() {
		p := &model.Party{}
		if err := rows.Scan(&p.ID, &p.Nombre); err != nil {
			return nil, fmt.Errorf("ошибка сканирования партии: %w", err)
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (r *partyRepo) GetByID(ctx context.Context, id int) (*model.Party, error) {
	p := &model.Party{}
	err := r.db.QueryRow(ctx, `SELECT id, nombre FROM partidos_politicos WHERE id = $1`, id).
		Scan(&p.ID, &p.Nombre)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения партии: %w", err)
	}
	return p, nil
}

func (r *partyRepo) Create(ctx context.Context, p *model.Party) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO partidos_politicos (nombre) VALUES ($1) RETURNING id`, p.Nombre,
	).Scan(&p.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: партия %q уже существует", ErrConflict, p.Nombre)
		}
		return fmt.Errorf("ошибка создания партии: %w", err)
	}
	return nil
}

func (r *partyRepo) Update(ctx context.Context, p *model.Party) error {
	tag, err := r.db.Exec(ctx, `UPDATE partidos_politicos SET nombre = $2 WHERE id = $1`, p.ID, p.Nombre)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: партия %q уже существует", ErrConflict, p.Nombre)
		}
		return fmt.Errorf("ошибка обновления партии: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete удаляет партию. У афилиатов ссылка обнуляется (ON DELETE SET NULL).
func (r *partyRepo) Delete(ctx context.Context, id int) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM partidos_politicos WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления партии: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
