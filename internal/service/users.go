// Пакет service — бизнес-логика SIGID.
// users.go — администрирование пользователей: учётная запись в Keycloak
// и локальный профиль (роль, активность, контакты, фото).
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bigkaa/sigid/internal/domain/model"
	"github.com/bigkaa/sigid/internal/domain/rbac"
	"github.com/bigkaa/sigid/internal/domain/validate"
	"github.com/bigkaa/sigid/internal/keycloak"
	"github.com/bigkaa/sigid/internal/repository"
	"github.com/bigkaa/sigid/internal/storage"
)

// IdentityProvider — операции Keycloak, которые использует сервис.
// Реализуется *keycloak.Client.
type IdentityProvider interface {
	ListUsers(ctx context.Context, query string, first, max int) ([]keycloak.KeycloakUser, error)
	GetUserGroups(ctx context.Context, userID string) ([]keycloak.KeycloakGroup, error)
	FindUserByEmail(ctx context.Context, email string) (*keycloak.KeycloakUser, error)
	CreateUser(ctx context.Context, u keycloak.NewUser) (string, error)
	UpdateUser(ctx context.Context, id, email, firstName string) error
	SetEnabled(ctx context.Context, id string, enabled bool) error
	ResetPassword(ctx context.Context, id, password string) error
	DeleteUser(ctx context.Context, id string) error
}

// CreateUserRequest — данные нового пользователя.
type CreateUserRequest struct {
	Email    string
	Password string
	Nombre   string
	Telefono string
	// Rol — пустая строка означает Promotor
	Rol string
}

// UpdateUserRequest — изменения профиля. Пустые поля не меняются.
type UpdateUserRequest struct {
	Email    string
	Nombre   string
	Telefono *string
	Rol      string
	// Password — новый пароль; пустой — без смены
	Password string
}

// seedUser — пользователь начального наполнения.
type seedUser struct {
	local  string
	nombre string
	rol    string
}

var seedUsers = []seedUser{
	{"admin", "Administrador", rbac.RoleAdmin},
	{"supervisor", "Supervisor", rbac.RoleSupervisor},
	{"promotor", "Promotor", rbac.RolePromoter},
}

// UserService — сервис управления пользователями.
type UserService struct {
	idp           IdentityProvider
	users         repository.UserRepository
	store         storage.ObjectStore
	photoMaxBytes int
	seedPassword  string
	seedDomain    string
	logger        *slog.Logger
}

// NewUserService создаёт сервис управления пользователями.
func NewUserService(
	idp IdentityProvider,
	users repository.UserRepository,
	store storage.ObjectStore,
	photoMaxBytes int,
	seedPassword, seedDomain string,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		idp:           idp,
		users:         users,
		store:         store,
		photoMaxBytes: photoMaxBytes,
		seedPassword:  seedPassword,
		seedDomain:    seedDomain,
		logger:        logger.With(slog.String("component", "user_service")),
	}
}

// List возвращает профили и их общее количество.
func (s *UserService) List(ctx context.Context, f model.UserFilter) ([]*model.User, int, error) {
	users, err := s.users.List(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("получение пользователей: %w", err)
	}
	total, err := s.users.Count(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("подсчёт пользователей: %w", err)
	}
	return users, total, nil
}

// Get возвращает профиль пользователя.
func (s *UserService) Get(ctx context.Context, id string) (*model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(ErrNotFound, msgUserNotFound)
		}
		return nil, fmt.Errorf("получение пользователя: %w", err)
	}
	return u, nil
}

// Profile возвращает профиль для аутентифицированного запроса.
func (s *UserService) Profile(ctx context.Context, id string) (*model.User, error) {
	return s.Get(ctx, id)
}

// Create создаёт учётную запись в Keycloak и локальный профиль.
// Если профиль создать не удалось, учётная запись Keycloak удаляется.
func (s *UserService) Create(ctx context.Context, req CreateUserRequest) (*model.User, error) {
	if err := validate.ValidateNewUser(req.Email, req.Password, req.Nombre); err != nil {
		return nil, newError(ErrValidation, err.Error())
	}
	rol := rbac.RolePromoter
	if req.Rol != "" {
		r, ok := rbac.ParseRole(req.Rol)
		if !ok {
			return nil, newError(ErrInvalidRole, msgInvalidRole)
		}
		rol = r
	}

	return s.createAccount(ctx, req.Email, req.Password, req.Nombre, req.Telefono, rol, true)
}

// SignUp — самостоятельная регистрация. Профиль создаётся с ролью Promotor
// и ждёт активации администратором.
func (s *UserService) SignUp(ctx context.Context, email, password, nombre string) (*model.User, error) {
	if err := validate.ValidateNewUser(email, password, nombre); err != nil {
		return nil, newError(ErrValidation, err.Error())
	}
	return s.createAccount(ctx, email, password, nombre, "", rbac.RolePromoter, false)
}

func (s *UserService) createAccount(ctx context.Context, email, password, nombre, telefono, rol string, activo bool) (*model.User, error) {
	email = strings.TrimSpace(email)
	nombre = strings.TrimSpace(nombre)

	id, err := s.idp.CreateUser(ctx, keycloak.NewUser{
		Email:     email,
		FirstName: nombre,
		Password:  password,
		Enabled:   true,
	})
	if err != nil {
		return nil, idpError(err)
	}

	u := &model.User{
		ID:     id,
		Email:  email,
		Nombre: nombre,
		Rol:    rol,
		Activo: activo,
	}
	if telefono = strings.TrimSpace(telefono); telefono != "" {
		u.Telefono = &telefono
	}

	if err := s.users.Create(ctx, u); err != nil {
		// Откат учётной записи Keycloak
		if delErr := s.idp.DeleteUser(ctx, id); delErr != nil {
			s.logger.Error("Не удалось удалить пользователя Keycloak после ошибки создания профиля",
				slog.String("user_id", id),
				slog.String("error", delErr.Error()),
			)
		}
		if errors.Is(err, repository.ErrConflict) {
			return nil, newError(ErrConflict, msgEmailTaken)
		}
		return nil, fmt.Errorf("создание профиля: %w", err)
	}

	s.logger.Info("Пользователь создан",
		slog.String("user_id", id),
		slog.String("rol", rol),
		slog.Bool("activo", activo),
	)
	return u, nil
}

// Update изменяет профиль, при необходимости роль и пароль.
func (s *UserService) Update(ctx context.Context, id string, req UpdateUserRequest) (*model.User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Rol != "" {
		rol, ok := rbac.ParseRole(req.Rol)
		if !ok {
			return nil, newError(ErrInvalidRole, msgInvalidRole)
		}
		u.Rol = rol
	}
	if req.Password != "" {
		if err := validate.ValidatePassword(req.Password); err != nil {
			return nil, newError(ErrValidation, err.Error())
		}
	}

	email := strings.TrimSpace(req.Email)
	nombre := strings.TrimSpace(req.Nombre)
	if email != "" || nombre != "" {
		if err := s.idp.UpdateUser(ctx, id, email, nombre); err != nil {
			return nil, idpError(err)
		}
	}
	if email != "" {
		u.Email = email
	}
	if nombre != "" {
		u.Nombre = nombre
	}
	if req.Telefono != nil {
		tel := strings.TrimSpace(*req.Telefono)
		if tel == "" {
			u.Telefono = nil
		} else {
			u.Telefono = &tel
		}
	}

	if err := s.users.Update(ctx, u); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, newError(ErrConflict, msgEmailTaken)
		}
		return nil, fmt.Errorf("обновление профиля: %w", err)
	}

	if req.Password != "" {
		if err := s.idp.ResetPassword(ctx, id, req.Password); err != nil {
			return nil, idpError(err)
		}
	}

	return u, nil
}

// SetActive включает или отключает пользователя в профиле и в Keycloak.
func (s *UserService) SetActive(ctx context.Context, id string, active bool) (*model.User, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if err := s.idp.SetEnabled(ctx, id, active); err != nil {
		return nil, idpError(err)
	}
	if err := s.users.SetActive(ctx, id, active); err != nil {
		return nil, fmt.Errorf("изменение активности: %w", err)
	}

	s.logger.Info("Активность пользователя изменена",
		slog.String("user_id", id),
		slog.Bool("activo", active),
	)
	return s.Get(ctx, id)
}

// ResetPassword — привилегированная смена пароля другого пользователя.
// Возвращает сообщение об успехе.
func (s *UserService) ResetPassword(ctx context.Context, caller *model.User, userID, newPassword string) (string, error) {
	if caller == nil {
		return "", ErrUnauthorized
	}
	if caller.Rol != rbac.RoleAdmin {
		return "", newError(ErrForbidden, msgNotAdmin)
	}
	if userID == "" || newPassword == "" {
		return "", newError(ErrValidation, msgResetFieldsMissing)
	}

	if err := s.idp.ResetPassword(ctx, userID, newPassword); err != nil {
		return "", idpError(err)
	}

	s.logger.Info("Пароль пользователя сброшен",
		slog.String("user_id", userID),
		slog.String("by", caller.ID),
	)
	return msgPasswordUpdated, nil
}

// UploadPhoto сохраняет аватар пользователя и возвращает его URL.
// Предыдущий аватар удаляется из хранилища.
func (s *UserService) UploadPhoto(ctx context.Context, id string, img *storage.Image) (string, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}

	key := storage.ObjectKey(storage.PrefixUsers, img.Ext)
	url, err := s.store.Put(ctx, key, img.ContentType, img.Reader())
	if err != nil {
		s.logger.Error("Ошибка сохранения фотографии", slog.String("key", key), slog.String("error", err.Error()))
		return "", newError(ErrStorageUnavailable, msgStorageUnavailable)
	}

	if err := s.users.SetPhoto(ctx, id, url); err != nil {
		s.deleteObject(ctx, key)
		return "", fmt.Errorf("сохранение URL фотографии: %w", err)
	}

	if u.Fotografia != nil {
		if oldKey, ok := s.store.KeyFromURL(*u.Fotografia); ok {
			s.deleteObject(ctx, oldKey)
		}
	}
	return url, nil
}

// DecodePhoto разбирает загруженное изображение с учётом лимита размера.
func (s *UserService) DecodePhoto(data string) (*storage.Image, error) {
	img, err := storage.DecodeDataURL(data, s.photoMaxBytes)
	if err != nil {
		return nil, newError(ErrValidation, msgInvalidPhoto)
	}
	return img, nil
}

// Delete удаляет профиль и учётную запись Keycloak.
// Пользователь с назначениями или афилиатами не удаляется.
func (s *UserService) Delete(ctx context.Context, id string) error {
	u, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrInUse) {
			return newError(ErrConflict, msgUserInUse)
		}
		return fmt.Errorf("удаление профиля: %w", err)
	}
	if err := s.idp.DeleteUser(ctx, id); err != nil && !errors.Is(err, keycloak.ErrNotFound) {
		return idpError(err)
	}
	if u.Fotografia != nil {
		if key, ok := s.store.KeyFromURL(*u.Fotografia); ok {
			s.deleteObject(ctx, key)
		}
	}

	s.logger.Info("Пользователь удалён", slog.String("user_id", id))
	return nil
}

// AssignRoleByEmail назначает роль пользователю по e-mail.
func (s *UserService) AssignRoleByEmail(ctx context.Context, email, role string) (*model.User, error) {
	rol, ok := rbac.ParseRole(role)
	if !ok {
		return nil, newError(ErrInvalidRole, msgInvalidRole)
	}
	u, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(ErrNotFound, msgUserNotFound)
		}
		return nil, fmt.Errorf("поиск пользователя по e-mail: %w", err)
	}
	u.Rol = rol
	if err := s.users.Update(ctx, u); err != nil {
		return nil, fmt.Errorf("назначение роли: %w", err)
	}

	s.logger.Info("Роль назначена", slog.String("user_id", u.ID), slog.String("rol", rol))
	return u, nil
}

// SeedDefaultUsers создаёт admin@, supervisor@ и promotor@ в домене
// начального наполнения, если их ещё нет. Возвращает число созданных.
func (s *UserService) SeedDefaultUsers(ctx context.Context) (int, error) {
	created := 0
	for _, su := range seedUsers {
		email := su.local + "@" + s.seedDomain

		if _, err := s.users.GetByEmail(ctx, email); err == nil {
			continue
		} else if !errors.Is(err, repository.ErrNotFound) {
			return created, fmt.Errorf("проверка пользователя %s: %w", email, err)
		}

		// Учётная запись могла остаться в Keycloak без профиля
		if kcUser, err := s.idp.FindUserByEmail(ctx, email); err == nil {
			u := &model.User{ID: kcUser.ID, Email: email, Nombre: su.nombre, Rol: su.rol, Activo: true}
			if err := s.users.Create(ctx, u); err != nil {
				return created, fmt.Errorf("создание профиля %s: %w", email, err)
			}
			created++
			continue
		} else if !errors.Is(err, keycloak.ErrNotFound) {
			return created, idpError(err)
		}

		if _, err := s.createAccount(ctx, email, s.seedPassword, su.nombre, "", su.rol, true); err != nil {
			return created, fmt.Errorf("создание пользователя %s: %w", email, err)
		}
		created++
	}
	return created, nil
}

func (s *UserService) deleteObject(ctx context.Context, key string) {
	if err := s.store.Delete(ctx, key); err != nil {
		s.logger.Warn("Ошибка удаления объекта из хранилища",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}
