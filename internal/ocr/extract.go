// Пакет ocr — распознавание текста избирательной credencial
// и извлечение из него полей формы регистрации.
// Извлечение best-effort: результат лишь подставляется в форму,
// оператор проверяет его перед отправкой.
package ocr

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/bigkaa/sigid/internal/domain/model"
)

// Регулярные выражения извлечения полей. Значение обрывается
// на следующей метке или конце строки.
var (
	nombreRe          = regexp.MustCompile(`(?i)NOMBRES?\s*([A-ZÁÉÍÓÚÑ\s]+?)(?:\n|DOMICILIO|CLAVE|$)`)
	apellidoPaternoRe = regexp.MustCompile(`(?i)APELLIDO\s+PATERNO\s*([A-ZÁÉÍÓÚÑ\s]+?)(?:\n|APELLIDO\s+MATERNO|$)`)
	apellidoMaternoRe = regexp.MustCompile(`(?i)APELLIDO\s+MATERNO\s*([A-ZÁÉÍÓÚÑ\s]+?)(?:\n|CLAVE|DOMICILIO|$)`)
	curpRe            = regexp.MustCompile(`[A-Z]{4}\d{6}[HM][A-Z]{5}[0-9A-Z]\d`)
	claveElectorRe    = regexp.MustCompile(`(?i)CLAVE\s+DE\s+ELECTOR\s*([A-Z0-9]{18})`)
	direccionRe       = regexp.MustCompile(`(?i)DOMICILIO\s*(.+?)(?:\n|CLAVE|CURP|$)`)
)

// Fields — поля, извлечённые из текста credencial.
// Пустая строка означает, что поле не найдено.
type Fields struct {
	Nombre          string `json:"nombre"`
	ApellidoPaterno string `json:"apellido_paterno"`
	ApellidoMaterno string `json:"apellido_materno"`
	CURP            string `json:"curp"`
	ClaveElector    string `json:"clave_elector"`
	Direccion       string `json:"direccion"`
}

// Extract применяет фиксированную последовательность выражений
// к распознанному тексту.
func Extract(text string) Fields {
	text = norm.NFC.String(text)
	return Fields{
		Nombre:          submatch(nombreRe, text),
		ApellidoPaterno: submatch(apellidoPaternoRe, text),
		ApellidoMaterno: submatch(apellidoMaternoRe, text),
		CURP:            curpRe.FindString(text),
		ClaveElector:    submatch(claveElectorRe, text),
		Direccion:       submatch(direccionRe, text),
	}
}

// Count возвращает количество найденных полей.
func (f Fields) Count() int {
	n := 0
	for _, v := range f.values() {
		if v != "" {
			n++
		}
	}
	return n
}

// MergeInto подставляет найденные значения в форму.
// Непустое (после обрезки пробелов) значение заменяет значение формы,
// иначе в форме остаётся прежнее.
func (f Fields) MergeInto(form *model.AffiliateInput) {
	form.Nombre = pick(f.Nombre, form.Nombre)
	form.ApellidoPaterno = pick(f.ApellidoPaterno, form.ApellidoPaterno)
	form.ApellidoMaterno = pick(f.ApellidoMaterno, form.ApellidoMaterno)
	form.CURP = pick(f.CURP, form.CURP)
	form.ClaveElector = pick(f.ClaveElector, form.ClaveElector)
	form.Direccion = pick(f.Direccion, form.Direccion)
}

func (f Fields) values() []string {
	return []string{f.Nombre, f.ApellidoPaterno, f.ApellidoMaterno, f.CURP, f.ClaveElector, f.Direccion}
}

func submatch(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func pick(extracted, current string) string {
	if v := strings.TrimSpace(extracted); v != "" {
		return v
	}
	return current
}
