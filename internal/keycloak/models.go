// Пакет keycloak — HTTP-клиент к Keycloak Admin REST API.
// models.go — модели данных Keycloak.
package keycloak

import "time"

// TokenResponse — ответ на запрос токена через Client Credentials flow.
type TokenResponse struct {
	AccessToken string `json:"access_token"` //nolint:gosec // G117: структура токена OAuth2
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// KeycloakUser — пользователь в Keycloak.
type KeycloakUser struct { //nolint:revive // stuttering допустим — внешний API Keycloak
	ID            string `json:"id,omitempty"`
	Username      string `json:"username,omitempty"`
	Email         string `json:"email,omitempty"`
	FirstName     string `json:"firstName,omitempty"`
	LastName      string `json:"lastName,omitempty"`
	Enabled       bool   `json:"enabled"`
	CreatedAt     int64  `json:"createdTimestamp,omitempty"`
	EmailVerified bool   `json:"emailVerified"`
}

// CreatedAtTime возвращает CreatedAt как time.Time.
// Keycloak хранит timestamp в миллисекундах.
func (u *KeycloakUser) CreatedAtTime() time.Time {
	return time.UnixMilli(u.CreatedAt)
}

// DisplayName возвращает имя и фамилию, а при их отсутствии — username.
func (u *KeycloakUser) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.Username
	}
}

// KeycloakGroup — группа в Keycloak.
type KeycloakGroup struct { //nolint:revive // stuttering допустим — внешний API Keycloak
	ID   string `json:"id"`
	Name string `json:"name"`
	Path string `json:"path"`
}

// RealmRepresentation — краткая информация о realm.
type RealmRepresentation struct {
	Realm   string `json:"realm"`
	Enabled bool   `json:"enabled"`
}

// NewUser — данные для создания пользователя.
type NewUser struct {
	Email     string
	FirstName string
	Password  string
	Enabled   bool
}

// userCreateRequest — запрос на создание пользователя в Keycloak.
type userCreateRequest struct {
	Username      string           `json:"username"`
	Email         string           `json:"email"`
	FirstName     string           `json:"firstName,omitempty"`
	Enabled       bool             `json:"enabled"`
	EmailVerified bool             `json:"emailVerified"`
	Credentials   []credentialRepr `json:"credentials,omitempty"`
}

// credentialRepr — учётные данные пользователя (пароль).
type credentialRepr struct {
	Type      string `json:"type"`
	Value     string `json:"value"`
	Temporary bool   `json:"temporary"`
}

// errorRepr — тело ошибки Keycloak. В разных версиях сообщение
// приходит в errorMessage или в error/error_description.
type errorRepr struct {
	ErrorMessage     string `json:"errorMessage"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}
