package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore — хранение объектов на локальном диске.
// Файлы отдаются HTTP-обработчиком Handler под публичным префиксом.
type LocalStore struct {
	// dir — корневая директория хранения
	dir string
	// publicURL — базовый URL, под которым отдаются файлы (без trailing slash)
	publicURL string
	logger    *slog.Logger
}

// NewLocalStore создаёт локальное хранилище. Создаёт директорию, если её нет.
func NewLocalStore(dir, publicURL string, logger *slog.Logger) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию хранилища %s: %w", dir, err)
	}
	return &LocalStore{
		dir:       dir,
		publicURL: strings.TrimRight(publicURL, "/"),
		logger:    logger.With(slog.String("component", "local_store")),
	}, nil
}

// Put записывает объект на диск.
//
// Паттерн: temp файл → запись → fsync → atomic rename.
// При ошибке temp файл удаляется.
func (s *LocalStore) Put(_ context.Context, key, _ string, r io.Reader) (string, error) {
	fullPath, err := s.path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o750); err != nil {
		return "", fmt.Errorf("ошибка создания директории: %w", err)
	}
	tmpPath := fullPath + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	size, err := io.Copy(f, r)
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("ошибка записи данных: %w", err)
	}

	// fsync для гарантии записи на диск
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("ошибка fsync: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("ошибка атомарного переименования: %w", err)
	}

	s.logger.Debug("Объект сохранён",
		slog.String("key", key),
		slog.Int64("size", size),
	)

	return s.publicURL + "/" + key, nil
}

// Delete удаляет файл. Возвращает nil, если файл уже не существует.
func (s *LocalStore) Delete(_ context.Context, key string) error {
	fullPath, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("ошибка удаления файла %s: %w", key, err)
	}
	return nil
}

// KeyFromURL отрезает публичный префикс.
func (s *LocalStore) KeyFromURL(publicURL string) (string, bool) {
	key, ok := strings.CutPrefix(publicURL, s.publicURL+"/")
	if !ok || key == "" {
		return "", false
	}
	return key, true
}

// MountPath возвращает путь публичного URL, под которым монтируется Handler.
func (s *LocalStore) MountPath() string {
	u, err := url.Parse(s.publicURL)
	if err != nil || u.Path == "" {
		return "/media"
	}
	return u.Path
}

// Handler возвращает обработчик, отдающий файлы хранилища.
// Список содержимого директорий не отдаётся.
func (s *LocalStore) Handler() http.Handler {
	files := http.FileServer(http.Dir(s.dir))
	return http.StripPrefix(s.MountPath(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		files.ServeHTTP(w, r)
	}))
}

// path возвращает абсолютный путь объекта, отклоняя выход за пределы dir.
func (s *LocalStore) path(key string) (string, error) {
	if !filepath.IsLocal(key) {
		return "", fmt.Errorf("недопустимый ключ объекта: %q", key)
	}
	return filepath.Join(s.dir, key), nil
}
