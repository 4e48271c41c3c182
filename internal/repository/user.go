package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/sigid/internal/domain/model"
)

// UserRepository — интерфейс CRUD для таблицы usuarios.
type UserRepository interface {
	// Create создаёт профиль пользователя.
	Create(ctx context.Context, u *model.User) error
	// GetByID возвращает профиль по Keycloak ID.
	GetByID(ctx context.Context, id string) (*model.User, error)
	// GetByEmail возвращает профиль по e-mail (без учёта регистра).
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// List возвращает профили с фильтрацией.
	List(ctx context.Context, f model.UserFilter) ([]*model.User, error)
	// Count возвращает количество профилей по тем же фильтрам.
	Count(ctx context.Context, f model.UserFilter) (int, error)
	// Update обновляет имя, e-mail, телефон и роль.
	Update(ctx context.Context, u *model.User) error
	// SetActive включает или отключает профиль.
	SetActive(ctx context.Context, id string, active bool) error
	// SetPhoto сохраняет URL аватара.
	SetPhoto(ctx context.Context, id, url string) error
	// Delete удаляет профиль.
	Delete(ctx context.Context, id string) error
}

// userRepo — реализация UserRepository.
type userRepo struct {
	db DBTX
}

// NewUserRepository создаёт репозиторий профилей пользователей.
func NewUserRepository(db DBTX) UserRepository {
	return &userRepo{db: db}
}

const userColumns = `id::text, email, nombre, rol::text, telefono, fotografia, activo, created_at, updated_at`

// scanUser сканирует строку результата в модель User.
func scanUser(row pgx.Row) (*model.User, error) {
	u := &model.User{}
	err := row.Scan(
		&u.ID, &u.Email, &u.Nombre, &u.Rol, &u.Telefono, &u.Fotografia,
		&u.Activo, &u.CreatedAt, &u.UpdatedAt,
	)
	return u, err
}

func (r *userRepo) Create(ctx context.Context, u *model.User) error {
	query := `
		INSERT INTO usuarios (id, email, nombre, rol, telefono, fotografia, activo)
		VALUES ($1, $2, $3, $4::role_type, $5, $6, $7)
		RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		u.ID, u.Email, u.Nombre, u.Rol, u.Telefono, u.Fotografia, u.Activo,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: пользователь с таким e-mail уже существует", ErrConflict)
		}
		return fmt.Errorf("ошибка создания пользователя: %w", err)
	}
	return nil
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM usuarios WHERE id = $1`, userColumns)
	u, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения пользователя: %w", err)
	}
	return u, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM usuarios WHERE lower(email) = lower($1)`, userColumns)
	u, err := scanUser(r.db.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения пользователя по e-mail: %w", err)
	}
	return u, nil
}

// userWhere строит условие WHERE по фильтру.
func userWhere(f model.UserFilter) (string, []any) {
	var conditions []string
	var args []any
	argNum := 1

	if f.Rol != "" {
		conditions = append(conditions, fmt.Sprintf("rol = $%d::role_type", argNum))
		args = append(args, f.Rol)
		argNum++
	}
	if f.Activo != nil {
		conditions = append(conditions, fmt.Sprintf("activo = $%d", argNum))
		args = append(args, *f.Activo)
		argNum++
	}
	if f.Search != "" {
		conditions = append(conditions, fmt.Sprintf(`(nombre ILIKE $%[1]d ESCAPE '\' OR email ILIKE $%[1]d ESCAPE '\')`, argNum))
		args = append(args, containsPattern(f.Search))
	}

	if len(conditions) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

func (r *userRepo) List(ctx context.Context, f model.UserFilter) ([]*model.User, error) {
	where, args := userWhere(f)
	argNum := len(args) + 1

	query := fmt.Sprintf(`
		SELECT %s
		FROM usuarios
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, userColumns, where, argNum, argNum+1)

	args = append(args, f.Limit, f.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка пользователей: %w", err)
	}
	defer rows.Close()

	var result []*model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования пользователя: %w", err)
		}
		result = append(result, u)
	}
	return result, rows.Err()
}

func (r *userRepo) Count(ctx context.Context, f model.UserFilter) (int, error) {
	where, args := userWhere(f)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM usuarios %s`, where)

	var count int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта пользователей: %w", err)
	}
	return count, nil
}

func (r *userRepo) Update(ctx context.Context, u *model.User) error {
	query := `
		UPDATE usuarios
		SET email = $2, nombre = $3, telefono = $4, rol = $5::role_type
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.QueryRow(ctx, query, u.ID, u.Email, u.Nombre, u.Telefono, u.Rol).Scan(&u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: пользователь с таким e-mail уже существует", ErrConflict)
		}
		return fmt.Errorf("ошибка обновления пользователя: %w", err)
	}
	return nil
}

func (r *userRepo) SetActive(ctx context.Context, id string, active bool) error {
	tag, err := r.db.Exec(ctx, `UPDATE usuarios SET activo = $2 WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("ошибка изменения активности пользователя: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepo) SetPhoto(ctx context.Context, id, url string) error {
	tag, err := r.db.Exec(ctx, `UPDATE usuarios SET fotografia = $2 WHERE id = $1`, id, url)
	if err != nil {
		return fmt.Errorf("ошибка сохранения фотографии пользователя: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM usuarios WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: на пользователя ссылаются назначения или афилиаты", ErrInUse)
		}
		return fmt.Errorf("ошибка удаления пользователя: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
