// Пакет validate — правила проверки форм SIGID: регистрация афилиата,
// создание пользователя, квота промоутера.
// Тексты ошибок на испанском: они показываются оператору как есть.
package validate

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/bigkaa/sigid/internal/domain/model"
)

// Форматы идентификаторов.
var (
	curpRegex         = regexp.MustCompile(`^[A-Z]{4}\d{6}[HM][A-Z]{5}[0-9A-Z]\d$`)
	claveElectorRegex = regexp.MustCompile(`^[A-Z0-9]{18}$`)
)

// DateLayout — формат даты рождения в форме.
const DateLayout = "2006-01-02"

// MinPasswordLength — минимальная длина пароля Keycloak.
const MinPasswordLength = 6

// Сообщения об ошибках.
const (
	MsgMissingFields     = "Por favor complete los siguientes campos: "
	MsgPhotoRequired     = "Debe capturar una fotografía del afiliado."
	MsgGPSRequired       = "Debe permitir el acceso a la ubicación GPS."
	MsgInvalidCURP       = "El formato de la CURP no es válido."
	MsgInvalidClave      = "La Clave de Elector debe tener 18 caracteres alfanuméricos (letras y números)."
	MsgInvalidCategoria  = "La categoría no es válida."
	MsgInvalidFecha      = "La fecha de nacimiento no es válida."
	MsgInvalidSeccion    = "La sección no es válida."
	MsgInvalidPartido    = "El partido político no es válido."
	MsgInvalidGPS        = "La ubicación GPS no es válida."
	MsgUserFieldsMissing = "Por favor complete los campos requeridos (email, contraseña y nombre)."
	MsgPasswordTooShort  = "La contraseña debe tener al menos 6 caracteres."
	MsgInvalidLimit      = "El límite debe ser mayor a 0"
)

// requiredField — обязательное поле формы и его подпись.
type requiredField struct {
	label string
	value func(in *model.AffiliateInput) string
}

// requiredFields — обязательные поля в порядке следования в форме.
var requiredFields = []requiredField{
	{"Nombre", func(in *model.AffiliateInput) string { return in.Nombre }},
	{"Apellido Paterno", func(in *model.AffiliateInput) string { return in.ApellidoPaterno }},
	{"Apellido Materno", func(in *model.AffiliateInput) string { return in.ApellidoMaterno }},
	{"CURP", func(in *model.AffiliateInput) string { return in.CURP }},
	{"Clave de Elector", func(in *model.AffiliateInput) string { return in.ClaveElector }},
	{"Fecha de Nacimiento", func(in *model.AffiliateInput) string { return in.FechaNacimiento }},
	{"Dirección", func(in *model.AffiliateInput) string { return in.Direccion }},
	{"Sección", func(in *model.AffiliateInput) string { return in.SeccionID }},
	{"Categoría", func(in *model.AffiliateInput) string { return in.Categoria }},
}

// RequiredFields возвращает подписи незаполненных обязательных полей
// в порядке формы. Значение из одних пробелов считается пустым.
func RequiredFields(in *model.AffiliateInput) []string {
	var missing []string
	for _, f := range requiredFields {
		if strings.TrimSpace(f.value(in)) == "" {
			missing = append(missing, f.label)
		}
	}
	return missing
}

// NormalizeAffiliate обрезает пробелы в текстовых полях и приводит
// CURP и ключ избирателя к верхнему регистру.
// Пустая категория заменяется на Simpatizante.
func NormalizeAffiliate(in *model.AffiliateInput) {
	in.Nombre = strings.TrimSpace(in.Nombre)
	in.ApellidoPaterno = strings.TrimSpace(in.ApellidoPaterno)
	in.ApellidoMaterno = strings.TrimSpace(in.ApellidoMaterno)
	in.CURP = strings.ToUpper(strings.TrimSpace(in.CURP))
	in.ClaveElector = strings.ToUpper(strings.TrimSpace(in.ClaveElector))
	in.FechaNacimiento = strings.TrimSpace(in.FechaNacimiento)
	in.Direccion = strings.TrimSpace(in.Direccion)
	in.Telefono = strings.TrimSpace(in.Telefono)
	in.SeccionID = strings.TrimSpace(in.SeccionID)
	in.PartidoPoliticoID = strings.TrimSpace(in.PartidoPoliticoID)
	in.Categoria = strings.TrimSpace(in.Categoria)
	in.UbicacionGPS = strings.TrimSpace(in.UbicacionGPS)
	if in.Categoria == "" {
		in.Categoria = model.CategoriaSimpatizante
	}
}

// ValidateAffiliate проверяет форму регистрации.
// Порядок проверок: обязательные поля, фотография, GPS, CURP,
// ключ избирателя, категория, дата, секция, партия.
// Возвращается первая найденная ошибка.
func ValidateAffiliate(in *model.AffiliateInput) error {
	if missing := RequiredFields(in); len(missing) > 0 {
		return errors.New(MsgMissingFields + strings.Join(missing, ", "))
	}
	if strings.TrimSpace(in.Fotografia) == "" {
		return errors.New(MsgPhotoRequired)
	}
	if strings.TrimSpace(in.UbicacionGPS) == "" {
		return errors.New(MsgGPSRequired)
	}
	if !ValidCURP(in.CURP) {
		return errors.New(MsgInvalidCURP)
	}
	if !ValidClaveElector(in.ClaveElector) {
		return errors.New(MsgInvalidClave)
	}
	if !slices.Contains(model.Categorias, in.Categoria) {
		return errors.New(MsgInvalidCategoria)
	}
	if _, err := ParseFecha(in.FechaNacimiento); err != nil {
		return err
	}
	if _, err := ParseID(in.SeccionID, MsgInvalidSeccion); err != nil {
		return err
	}
	if in.PartidoPoliticoID != "" {
		if _, err := ParseID(in.PartidoPoliticoID, MsgInvalidPartido); err != nil {
			return err
		}
	}
	if _, _, err := ParseGPS(in.UbicacionGPS); err != nil {
		return err
	}
	return nil
}

// ValidCURP проверяет формат CURP (без учёта регистра).
func ValidCURP(s string) bool {
	return curpRegex.MatchString(strings.ToUpper(s))
}

// ValidClaveElector проверяет, что ключ избирателя состоит
// ровно из 18 латинских букв и цифр (без учёта регистра).
func ValidClaveElector(s string) bool {
	return claveElectorRegex.MatchString(strings.ToUpper(s))
}

// ParseFecha разбирает дату рождения YYYY-MM-DD.
// Дата из будущего отклоняется.
func ParseFecha(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil || t.After(time.Now()) {
		return time.Time{}, errors.New(MsgInvalidFecha)
	}
	return t, nil
}

// ParseID разбирает положительный целочисленный идентификатор справочника.
func ParseID(s, msg string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, errors.New(msg)
	}
	return n, nil
}

// ParseGPS разбирает координаты "lat,lng" и проверяет диапазоны.
// NaN отклоняется: с ним любое сравнение ложно.
func ParseGPS(s string) (lat, lng float64, err error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, errors.New(MsgInvalidGPS)
	}
	lat, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil || math.IsNaN(lat) || lat < -90 || lat > 90 {
		return 0, 0, errors.New(MsgInvalidGPS)
	}
	lng, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil || math.IsNaN(lng) || lng < -180 || lng > 180 {
		return 0, 0, errors.New(MsgInvalidGPS)
	}
	return lat, lng, nil
}

// FormatGPS форматирует координаты в "lat,lng".
func FormatGPS(lat, lng float64) string {
	return fmt.Sprintf("%s,%s",
		strconv.FormatFloat(lat, 'f', -1, 64),
		strconv.FormatFloat(lng, 'f', -1, 64))
}

// ValidateNewUser проверяет данные нового пользователя.
func ValidateNewUser(email, password, nombre string) error {
	if strings.TrimSpace(email) == "" || password == "" || strings.TrimSpace(nombre) == "" {
		return errors.New(MsgUserFieldsMissing)
	}
	if len(password) < MinPasswordLength {
		return errors.New(MsgPasswordTooShort)
	}
	return nil
}

// ValidatePassword проверяет новый пароль при сбросе или редактировании.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return errors.New(MsgPasswordTooShort)
	}
	return nil
}

// ValidateQuota проверяет лимит афилиатов промоутера.
func ValidateQuota(limit int) error {
	if limit <= 0 {
		return errors.New(MsgInvalidLimit)
	}
	return nil
}
