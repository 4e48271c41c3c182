package ocr

import (
	"testing"

	"github.com/bigkaa/sigid/internal/domain/model"
)

const sampleText = `INSTITUTO NACIONAL ELECTORAL
CREDENCIAL PARA VOTAR
NOMBRE JUANA
APELLIDO PATERNO PEREZ
APELLIDO MATERNO LOPEZ
DOMICILIO C 5 DE MAYO 12 COL CENTRO
CLAVE DE ELECTOR PRLPJN90010209M100
CURP PELJ900102MDFRPN09
`

func TestExtract(t *testing.T) {
	got := Extract(sampleText)
	want := Fields{
		Nombre:          "JUANA",
		ApellidoPaterno: "PEREZ",
		ApellidoMaterno: "LOPEZ",
		CURP:            "PELJ900102MDFRPN09",
		ClaveElector:    "PRLPJN90010209M100",
		Direccion:       "C 5 DE MAYO 12 COL CENTRO",
	}
	if got != want {
		t.Errorf("Extract() =\n%+v\nхотели\n%+v", got, want)
	}
	if got.Count() != 6 {
		t.Errorf("Count() = %d, хотели 6", got.Count())
	}
}

func TestExtract_Cases(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		check func(t *testing.T, f Fields)
	}{
		{
			name: "пустой текст",
			text: "",
			check: func(t *testing.T, f Fields) {
				if f.Count() != 0 {
					t.Errorf("Count() = %d, хотели 0", f.Count())
				}
			},
		},
		{
			name: "имя обрывается на метке DOMICILIO",
			text: "NOMBRES MARÍA JOSÉ DOMICILIO AV JUÁREZ 3",
			check: func(t *testing.T, f Fields) {
				if f.Nombre != "MARÍA JOSÉ" {
					t.Errorf("Nombre = %q, хотели %q", f.Nombre, "MARÍA JOSÉ")
				}
				if f.Direccion != "AV JUÁREZ 3" {
					t.Errorf("Direccion = %q, хотели %q", f.Direccion, "AV JUÁREZ 3")
				}
			},
		},
		{
			name: "разложенные диакритики нормализуются",
			text: "NOMBRE MARI\u0301A\n",
			check: func(t *testing.T, f Fields) {
				if f.Nombre != "MARÍA" {
					t.Errorf("Nombre = %q, хотели MARÍA", f.Nombre)
				}
			},
		},
		{
			name: "метки в нижнем регистре",
			text: "clave de elector prlpjn90010209m100\n",
			check: func(t *testing.T, f Fields) {
				if f.ClaveElector != "prlpjn90010209m100" {
					t.Errorf("ClaveElector = %q", f.ClaveElector)
				}
			},
		},
		{
			name: "CURP только в верхнем регистре",
			text: "curp pelj900102mdfrpn09",
			check: func(t *testing.T, f Fields) {
				if f.CURP != "" {
					t.Errorf("CURP = %q, хотели пусто", f.CURP)
				}
			},
		},
		{
			name: "короткий ключ избирателя не извлекается",
			text: "CLAVE DE ELECTOR ABC123",
			check: func(t *testing.T, f Fields) {
				if f.ClaveElector != "" {
					t.Errorf("ClaveElector = %q, хотели пусто", f.ClaveElector)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, Extract(tt.text))
		})
	}
}

func TestMergeInto(t *testing.T) {
	form := &model.AffiliateInput{
		Nombre:          "Juana",
		ApellidoPaterno: "Pérez",
		CURP:            "XXXX",
		Direccion:       "Centro",
		Telefono:        "5512345678",
	}
	Fields{
		Nombre:          "  ",
		ApellidoPaterno: "PEREZ",
		CURP:            " PELJ900102MDFRPN09 ",
	}.MergeInto(form)

	if form.Nombre != "Juana" {
		t.Errorf("Nombre = %q, пустое значение не должно заменять форму", form.Nombre)
	}
	if form.ApellidoPaterno != "PEREZ" {
		t.Errorf("ApellidoPaterno = %q, хотели PEREZ", form.ApellidoPaterno)
	}
	if form.CURP != "PELJ900102MDFRPN09" {
		t.Errorf("CURP = %q, хотели обрезанное значение", form.CURP)
	}
	if form.Direccion != "Centro" || form.Telefono != "5512345678" {
		t.Errorf("поля без извлечённых значений изменились: %+v", form)
	}
}
