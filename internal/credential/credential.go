// Пакет credential — печатная credencial афилиата: HTML-карточка
// и QR-код с идентификаторами.
package credential

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/skip2/go-qrcode"

	"github.com/bigkaa/sigid/internal/domain/model"
)

// QRSize — размер QR-кода на карточке, пиксели.
const QRSize = 160

// Payload — содержимое QR-кода.
type Payload struct {
	ID           int64  `json:"id"`
	CURP         string `json:"curp"`
	ClaveElector string `json:"clave_elector"`
}

// NewPayload формирует содержимое QR-кода афилиата.
func NewPayload(a *model.Affiliate) Payload {
	return Payload{ID: a.ID, CURP: a.CURP, ClaveElector: a.ClaveElector}
}

// QRPNG кодирует payload в JSON и возвращает PNG QR-кода
// с высоким уровнем коррекции ошибок.
func QRPNG(p Payload, size int) ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("кодирование payload: %w", err)
	}
	png, err := qrcode.Encode(string(data), qrcode.High, size)
	if err != nil {
		return nil, fmt.Errorf("генерация QR-кода: %w", err)
	}
	return png, nil
}

// DataURI оборачивает PNG в data URI для встраивания в HTML.
func DataURI(png []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
}

// Initials возвращает заглавные первые буквы имени и отцовской фамилии.
func Initials(a *model.Affiliate) string {
	var b strings.Builder
	for _, s := range []string{a.Nombre, a.ApellidoPaterno} {
		if r, _ := utf8.DecodeRuneInString(strings.TrimSpace(s)); r != utf8.RuneError {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	return b.String()
}
