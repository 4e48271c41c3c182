package credential

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/bigkaa/sigid/internal/domain/model"
	"github.com/bigkaa/sigid/internal/i18n"
)

func sampleAffiliate() *model.Affiliate {
	return &model.Affiliate{
		ID:              42,
		Nombre:          "maría",
		ApellidoPaterno: "Pérez",
		ApellidoMaterno: "López",
		CURP:            "PELJ900102MDFRPN09",
		ClaveElector:    "PRLPJN90010209M100",
		Direccion:       "Calle <Reforma> 10",
		FechaNacimiento: time.Date(1990, 1, 2, 0, 0, 0, 0, time.UTC),
		Categoria:       model.CategoriaMilitante,
		NumeroSeccion:   4251,
	}
}

func TestQRPNG(t *testing.T) {
	png, err := QRPNG(NewPayload(sampleAffiliate()), QRSize)
	if err != nil {
		t.Fatalf("QRPNG() ошибка: %v", err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Error("QRPNG() вернул не PNG")
	}
}

func TestPayloadJSON(t *testing.T) {
	data, err := json.Marshal(NewPayload(sampleAffiliate()))
	if err != nil {
		t.Fatalf("Marshal() ошибка: %v", err)
	}
	want := `{"id":42,"curp":"PELJ900102MDFRPN09","clave_elector":"PRLPJN90010209M100"}`
	if string(data) != want {
		t.Errorf("payload = %s, хотели %s", data, want)
	}
}

func TestInitials(t *testing.T) {
	if got := Initials(sampleAffiliate()); got != "MP" {
		t.Errorf("Initials() = %q, хотели MP", got)
	}
	if got := Initials(&model.Affiliate{Nombre: "Ángel"}); got != "Á" {
		t.Errorf("Initials() без фамилии = %q, хотели Á", got)
	}
}

func TestCard(t *testing.T) {
	bundle, err := i18n.Load(slog.New(slog.NewTextHandler(os.Stdout, nil)))
	if err != nil {
		t.Fatalf("i18n.Load() ошибка: %v", err)
	}

	tests := []struct {
		name     string
		lang     string
		photo    string
		contains []string
		excludes []string
	}{
		{
			name: "испанский без фото",
			lang: "es",
			contains: []string{
				"Credencial de Afiliado",
				"maría Pérez López",
				"2 de enero de 1990",
				"Militante",
				"4251",
				`<div class="initials">MP</div>`,
				"Calle &lt;Reforma&gt; 10",
				"data:image/png;base64,QUJD",
			},
			excludes: []string{"<Reforma>"},
		},
		{
			name:     "английский с фото",
			lang:     "en",
			photo:    "/media/afiliados/1.jpg",
			contains: []string{"Affiliate Credential", "January 2, 1990", "Member", `src="/media/afiliados/1.jpg"`},
			excludes: []string{`class="initials"`},
		},
		{
			name:     "небезопасный URL фото",
			lang:     "es",
			photo:    "javascript:alert(1)",
			excludes: []string{"javascript:"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := sampleAffiliate()
			a.Fotografia = tt.photo

			var buf bytes.Buffer
			err := Card(CardData{
				Affiliate: a,
				QRDataURI: DataURI([]byte("ABC")),
				Lang:      tt.lang,
				Bundle:    bundle,
			}).Render(context.Background(), &buf)
			if err != nil {
				t.Fatalf("Render() ошибка: %v", err)
			}

			html := buf.String()
			for _, s := range tt.contains {
				if !strings.Contains(html, s) {
					t.Errorf("HTML не содержит %q", s)
				}
			}
			for _, s := range tt.excludes {
				if strings.Contains(html, s) {
					t.Errorf("HTML содержит %q", s)
				}
			}
		})
	}
}

func TestCard_EscapesAffiliateData(t *testing.T) {
	bundle, err := i18n.Load(slog.New(slog.NewTextHandler(os.Stdout, nil)))
	if err != nil {
		t.Fatalf("i18n.Load() ошибка: %v", err)
	}
	a := sampleAffiliate()
	a.Nombre = `<script>alert("x")</script>`
	a.CURP = `" onmouseover="x`

	var buf bytes.Buffer
	if err := Card(CardData{Affiliate: a, QRDataURI: DataURI([]byte("ABC")), Lang: "es", Bundle: bundle}).
		Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render() ошибка: %v", err)
	}

	html := buf.String()
	for _, s := range []string{"<script>", `" onmouseover="`} {
		if strings.Contains(html, s) {
			t.Errorf("HTML содержит неэкранированное %q", s)
		}
	}
	if !strings.Contains(html, "&lt;script&gt;") {
		t.Error("имя не экранировано")
	}
	if strings.Count(html, `<p><span class="label">`) != 7 {
		t.Errorf("ожидалось 7 строк с метками")
	}
}
