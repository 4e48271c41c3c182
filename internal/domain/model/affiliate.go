package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Категории афилиата.
const (
	CategoriaMilitante    = "Militante"
	CategoriaSimpatizante = "Simpatizante"
	CategoriaIndeciso     = "Indeciso"
	CategoriaAdversario   = "Adversario"
)

// Categorias — допустимые категории в порядке отображения.
var Categorias = []string{
	CategoriaMilitante,
	CategoriaSimpatizante,
	CategoriaIndeciso,
	CategoriaAdversario,
}

// Affiliate — зарегистрированный афилиат.
// Хранится в таблице afiliados.
type Affiliate struct {
	ID              int64
	Nombre          string
	ApellidoPaterno string
	ApellidoMaterno string
	// CURP — 18-символьный национальный идентификатор
	CURP string
	// ClaveElector — 18-символьный ключ избирателя
	ClaveElector    string
	Direccion       string
	Telefono        *string
	FechaNacimiento time.Time
	SeccionID       int
	// UbicacionGPS — координаты в формате "lat,lng"
	UbicacionGPS      string
	PartidoPoliticoID *int
	Categoria         string
	// Fotografia — публичный URL фотографии
	Fotografia string
	PromotorID string
	CreatedBy  *string
	CreatedAt  time.Time
	UpdatedAt  time.Time

	// Поля из JOIN, заполняются при чтении
	NumeroSeccion  int
	PartidoNombre  *string
	PromotorNombre string
}

// FullName возвращает имя и обе фамилии через пробел.
func (a *Affiliate) FullName() string {
	return a.Nombre + " " + a.ApellidoPaterno + " " + a.ApellidoMaterno
}

// AffiliateInput — данные формы регистрации афилиата до валидации.
// Все поля — строки в том виде, в каком их прислала форма.
type AffiliateInput struct {
	Nombre            string `json:"nombre"`
	ApellidoPaterno   string `json:"apellido_paterno"`
	ApellidoMaterno   string `json:"apellido_materno"`
	CURP              string `json:"curp"`
	ClaveElector      string `json:"clave_elector"`
	FechaNacimiento   string `json:"fecha_nacimiento"`
	Direccion         string `json:"direccion"`
	Telefono          string `json:"telefono"`
	SeccionID         string `json:"seccion_id"`
	PartidoPoliticoID string `json:"partido_politico_id"`
	Categoria         string `json:"categoria"`
	UbicacionGPS      string `json:"ubicacion_gps"`
	// Fotografia — data URL или base64 снимка
	Fotografia string `json:"fotografia"`
}

// UnmarshalJSON принимает seccion_id и partido_politico_id
// и строкой, и числом: форма присылает строку, другие клиенты — число.
func (in *AffiliateInput) UnmarshalJSON(data []byte) error {
	type plain AffiliateInput
	aux := struct {
		*plain
		SeccionID         json.RawMessage `json:"seccion_id"`
		PartidoPoliticoID json.RawMessage `json:"partido_politico_id"`
	}{plain: (*plain)(in)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	if in.SeccionID, err = idText(aux.SeccionID); err != nil {
		return fmt.Errorf("seccion_id: %w", err)
	}
	if in.PartidoPoliticoID, err = idText(aux.PartidoPoliticoID); err != nil {
		return fmt.Errorf("partido_politico_id: %w", err)
	}
	return nil
}

// idText возвращает идентификатор как строку. null и отсутствие поля — "".
func idText(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		err := json.Unmarshal(raw, &s)
		return s, err
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}

// AffiliateFilter — параметры выборки афилиатов.
type AffiliateFilter struct {
	// PromotorIDs — ограничение по промоутерам (nil — без ограничения)
	PromotorIDs []string
	// Search — подстрока в имени, фамилиях или CURP (без учёта регистра)
	Search string
	Limit  int
	Offset int
}

// QuotaStatus — состояние квоты промоутера.
type QuotaStatus struct {
	Registrados    int
	Limite         int
	PuedeRegistrar bool
}

// NewQuotaStatus вычисляет признак возможности регистрации.
func NewQuotaStatus(registrados, limite int) QuotaStatus {
	return QuotaStatus{
		Registrados:    registrados,
		Limite:         limite,
		PuedeRegistrar: registrados < limite,
	}
}
