package validate

import (
	"strings"
	"testing"

	"github.com/bigkaa/sigid/internal/domain/model"
)

// validInput возвращает полностью заполненную корректную форму.
func validInput() *model.AffiliateInput {
	return &model.AffiliateInput{
		Nombre:          "Juana",
		ApellidoPaterno: "Pérez",
		ApellidoMaterno: "López",
		CURP:            "PELJ900102MDFRPN09",
		ClaveElector:    "PRLPJN90010209M100",
		FechaNacimiento: "1990-01-02",
		Direccion:       "Calle 5 de Mayo 12, Centro",
		SeccionID:       "1",
		Categoria:       model.CategoriaSimpatizante,
		UbicacionGPS:    "19.4326,-99.1332",
		Fotografia:      "data:image/jpeg;base64,/9j/4AAQ",
	}
}

func TestRequiredFields(t *testing.T) {
	in := &model.AffiliateInput{
		Nombre:    "Juana",
		CURP:      "   ",
		Direccion: "Centro",
		Categoria: model.CategoriaMilitante,
	}

	got := RequiredFields(in)
	want := []string{
		"Apellido Paterno",
		"Apellido Materno",
		"CURP",
		"Clave de Elector",
		"Fecha de Nacimiento",
		"Sección",
	}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("RequiredFields() = %v, хотели %v", got, want)
	}

	if got := RequiredFields(validInput()); len(got) != 0 {
		t.Errorf("RequiredFields(корректная форма) = %v, хотели пусто", got)
	}
}

func TestValidateAffiliate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(in *model.AffiliateInput)
		wantMsg string
	}{
		{
			name:    "корректная форма",
			mutate:  func(in *model.AffiliateInput) {},
			wantMsg: "",
		},
		{
			name: "нет имени и секции",
			mutate: func(in *model.AffiliateInput) {
				in.Nombre = ""
				in.SeccionID = ""
			},
			wantMsg: "Por favor complete los siguientes campos: Nombre, Sección",
		},
		{
			name:    "нет фотографии",
			mutate:  func(in *model.AffiliateInput) { in.Fotografia = "" },
			wantMsg: MsgPhotoRequired,
		},
		{
			name:    "нет GPS",
			mutate:  func(in *model.AffiliateInput) { in.UbicacionGPS = "" },
			wantMsg: MsgGPSRequired,
		},
		{
			name:    "CURP с неверным полом",
			mutate:  func(in *model.AffiliateInput) { in.CURP = "PELJ900102XDFRPN09" },
			wantMsg: MsgInvalidCURP,
		},
		{
			name:    "CURP в нижнем регистре допустима",
			mutate:  func(in *model.AffiliateInput) { in.CURP = "pelj900102mdfrpn09" },
			wantMsg: "",
		},
		{
			name:    "короткий ключ избирателя",
			mutate:  func(in *model.AffiliateInput) { in.ClaveElector = "PRLPJN900102" },
			wantMsg: MsgInvalidClave,
		},
		{
			name:    "ключ избирателя со спецсимволом",
			mutate:  func(in *model.AffiliateInput) { in.ClaveElector = "PRLPJN90010209M10-" },
			wantMsg: MsgInvalidClave,
		},
		{
			name:    "неизвестная категория",
			mutate:  func(in *model.AffiliateInput) { in.Categoria = "Aliado" },
			wantMsg: MsgInvalidCategoria,
		},
		{
			name:    "дата в неверном формате",
			mutate:  func(in *model.AffiliateInput) { in.FechaNacimiento = "02/01/1990" },
			wantMsg: MsgInvalidFecha,
		},
		{
			name:    "секция не число",
			mutate:  func(in *model.AffiliateInput) { in.SeccionID = "cuatro" },
			wantMsg: MsgInvalidSeccion,
		},
		{
			name:    "партия не число",
			mutate:  func(in *model.AffiliateInput) { in.PartidoPoliticoID = "x" },
			wantMsg: MsgInvalidPartido,
		},
		{
			name:    "широта вне диапазона",
			mutate:  func(in *model.AffiliateInput) { in.UbicacionGPS = "91,-99.1" },
			wantMsg: MsgInvalidGPS,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(in)
			err := ValidateAffiliate(in)
			if tt.wantMsg == "" {
				if err != nil {
					t.Fatalf("ValidateAffiliate() = %v, хотели nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("ValidateAffiliate() = nil, хотели %q", tt.wantMsg)
			}
			if err.Error() != tt.wantMsg {
				t.Errorf("ValidateAffiliate() = %q, хотели %q", err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestNormalizeAffiliate(t *testing.T) {
	in := &model.AffiliateInput{
		Nombre:       "  Juana ",
		CURP:         " pelj900102mdfrpn09 ",
		ClaveElector: "prlpjn90010209m100",
	}
	NormalizeAffiliate(in)

	if in.Nombre != "Juana" {
		t.Errorf("Nombre = %q, хотели Juana", in.Nombre)
	}
	if in.CURP != "PELJ900102MDFRPN09" {
		t.Errorf("CURP = %q, хотели верхний регистр", in.CURP)
	}
	if in.ClaveElector != "PRLPJN90010209M100" {
		t.Errorf("ClaveElector = %q, хотели верхний регистр", in.ClaveElector)
	}
	if in.Categoria != model.CategoriaSimpatizante {
		t.Errorf("Categoria = %q, хотели Simpatizante по умолчанию", in.Categoria)
	}
}

func TestParseGPS(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"19.4326,-99.1332", false},
		{" 19.4326 , -99.1332 ", false},
		{"-90,180", false},
		{"19.4", true},
		{"a,b", true},
		{"19,-181", true},
		{"1,2,3", true},
		{"NaN,NaN", true},
		{"nan,0", true},
		{"0,NaN", true},
		{"Inf,0", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			_, _, err := ParseGPS(tt.in)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseGPS(%q) ошибка = %v, ожидали ошибку: %v", tt.in, err, tt.wantErr)
			}
		})
	}

	if got := FormatGPS(19.4326, -99.1332); got != "19.4326,-99.1332" {
		t.Errorf("FormatGPS() = %q", got)
	}
}

func TestValidateNewUser(t *testing.T) {
	tests := []struct {
		name                    string
		email, password, nombre string
		wantMsg                 string
	}{
		{"все поля", "ana@sigid.com", "secreto1", "Ana", ""},
		{"нет email", "", "secreto1", "Ana", MsgUserFieldsMissing},
		{"нет имени", "ana@sigid.com", "secreto1", " ", MsgUserFieldsMissing},
		{"короткий пароль", "ana@sigid.com", "123", "Ana", MsgPasswordTooShort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNewUser(tt.email, tt.password, tt.nombre)
			got := ""
			if err != nil {
				got = err.Error()
			}
			if got != tt.wantMsg {
				t.Errorf("ValidateNewUser() = %q, хотели %q", got, tt.wantMsg)
			}
		})
	}
}

func TestValidateQuota(t *testing.T) {
	if err := ValidateQuota(1); err != nil {
		t.Errorf("ValidateQuota(1) = %v, хотели nil", err)
	}
	for _, limit := range []int{0, -5} {
		err := ValidateQuota(limit)
		if err == nil || err.Error() != MsgInvalidLimit {
			t.Errorf("ValidateQuota(%d) = %v, хотели %q", limit, err, MsgInvalidLimit)
		}
	}
}
