package credential

//go:generate templ generate -f card.templ

import (
	"strconv"

	"github.com/a-h/templ"

	"github.com/bigkaa/sigid/internal/domain/model"
	"github.com/bigkaa/sigid/internal/i18n"
)

// CardData — данные для рендеринга карточки (шаблон card.templ).
type CardData struct {
	Affiliate *model.Affiliate
	// QRDataURI — QR-код в виде data URI
	QRDataURI string
	Lang      string
	Bundle    *i18n.Bundle
}

// cardLine — строка «метка: значение» на карточке.
type cardLine struct {
	Label string
	Value string
}

func (d CardData) t(key string) string {
	return d.Bundle.Translate(d.Lang, key)
}

// lines — поля карточки в порядке печати.
func (d CardData) lines() []cardLine {
	a := d.Affiliate
	return []cardLine{
		{d.t("credential.curp"), a.CURP},
		{d.t("credential.clave_elector"), a.ClaveElector},
		{d.t("credential.direccion"), a.Direccion},
		{d.t("credential.fecha_nacimiento"), d.Bundle.LongDate(d.Lang, a.FechaNacimiento)},
		{d.t("credential.seccion"), strconv.Itoa(a.NumeroSeccion)},
		{d.t("credential.categoria"), d.t("category." + a.Categoria)},
	}
}

// photoURL — адрес фотографии после проверки схемы.
// Небезопасный URL заменяется заглушкой templ.
func (d CardData) photoURL() string {
	return string(templ.URL(d.Affiliate.Fotografia))
}

func (d CardData) photoAlt() string {
	return d.Bundle.Translatef(d.Lang, "credential.photo_alt", d.Affiliate.FullName())
}
