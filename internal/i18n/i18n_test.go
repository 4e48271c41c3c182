package i18n

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestLoad(t *testing.T) {
	b, err := Load(testLogger())
	if err != nil {
		t.Fatalf("Load() ошибка: %v", err)
	}

	if got := b.Translate(LangES, "credential.seccion"); got != "Sección" {
		t.Errorf("Translate(es) = %q, хотели Sección", got)
	}
	if got := b.Translate(LangEN, "credential.seccion"); got != "Section" {
		t.Errorf("Translate(en) = %q, хотели Section", got)
	}
	if got := b.Translate(LangEN, "нет.такого"); got != "нет.такого" {
		t.Errorf("Translate() отсутствующего ключа = %q", got)
	}
}

func TestLongDate(t *testing.T) {
	b, err := Load(testLogger())
	if err != nil {
		t.Fatalf("Load() ошибка: %v", err)
	}
	date := time.Date(1990, 1, 2, 0, 0, 0, 0, time.UTC)

	if got := b.LongDate(LangES, date); got != "2 de enero de 1990" {
		t.Errorf("LongDate(es) = %q", got)
	}
	if got := b.LongDate(LangEN, date); got != "January 2, 1990" {
		t.Errorf("LongDate(en) = %q", got)
	}
}

func TestTranslate_FallbackToSpanish(t *testing.T) {
	b := NewBundle(nil)
	if err := b.LoadMessages(LangES, []byte(`{"solo.es": "sólo español"}`)); err != nil {
		t.Fatalf("LoadMessages() ошибка: %v", err)
	}
	if err := b.LoadMessages(LangEN, []byte(`{}`)); err != nil {
		t.Fatalf("LoadMessages() ошибка: %v", err)
	}
	if got := b.Translate(LangEN, "solo.es"); got != "sólo español" {
		t.Errorf("Translate(en) = %q, ожидали fallback на es", got)
	}
}

func TestMatchLanguage(t *testing.T) {
	tests := []struct {
		accept string
		want   string
	}{
		{"es-MX,es;q=0.9", "es"},
		{"en-US,en;q=0.9", "en"},
		{"fr-FR", "es"},
		{"", "es"},
	}
	for _, tt := range tests {
		t.Run(tt.accept, func(t *testing.T) {
			if got := MatchLanguage(tt.accept); got != tt.want {
				t.Errorf("MatchLanguage(%q) = %q, хотели %q", tt.accept, got, tt.want)
			}
		})
	}
}

func TestMiddleware(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		cookie string
		accept string
		want   string
	}{
		{"по умолчанию", "", "", "", "es"},
		{"Accept-Language", "", "", "en-GB", "en"},
		{"cookie важнее заголовка", "", "es", "en-GB", "es"},
		{"параметр важнее cookie", "?lang=en", "es", "", "en"},
		{"неподдерживаемый параметр", "?lang=ru", "", "", "es"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			h := Middleware()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				got = LangFromContext(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/"+tt.query, nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: LangCookieName, Value: tt.cookie})
			}
			if tt.accept != "" {
				req.Header.Set("Accept-Language", tt.accept)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)

			if got != tt.want {
				t.Errorf("язык = %q, хотели %q", got, tt.want)
			}
		})
	}
}
