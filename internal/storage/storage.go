// Пакет storage — объектное хранилище фотографий пользователей и афилиатов.
// Бэкенды: локальный диск, Amazon S3, Google Cloud Storage.
// Объект адресуется ключом вида {prefix}/{unix-ms}-{uuid8}.{ext};
// наружу отдаётся публичный URL, который сохраняется в БД.
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bigkaa/sigid/internal/config"
)

// Префиксы ключей объектов.
const (
	PrefixUsers      = "usuarios"
	PrefixAffiliates = "afiliados"
)

// ObjectStore — хранилище объектов.
type ObjectStore interface {
	// Put сохраняет объект и возвращает его публичный URL.
	Put(ctx context.Context, key, contentType string, r io.Reader) (string, error)
	// Delete удаляет объект. Отсутствие объекта не считается ошибкой.
	Delete(ctx context.Context, key string) error
	// KeyFromURL восстанавливает ключ объекта по публичному URL.
	// Второй результат false, если URL не принадлежит хранилищу.
	KeyFromURL(publicURL string) (string, bool)
}

// ObjectKey формирует ключ нового объекта: {prefix}/{unix-ms}-{uuid8}.{ext}.
func ObjectKey(prefix, ext string) string {
	return fmt.Sprintf("%s/%d-%s.%s", prefix, time.Now().UnixMilli(), uuid.New().String()[:8], ext)
}

// New создаёт хранилище по конфигурации (SG_STORAGE_BACKEND).
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (ObjectStore, error) {
	switch cfg.StorageBackend {
	case config.StorageS3:
		return NewS3Store(cfg.StorageBucket, cfg.StorageRegion)
	case config.StorageGCS:
		return NewGCSStore(ctx, cfg.StorageBucket)
	case config.StorageLocal:
		return NewLocalStore(cfg.StorageLocalDir, cfg.StoragePublicURL, logger)
	default:
		return nil, fmt.Errorf("неизвестный бэкенд хранилища: %s", cfg.StorageBackend)
	}
}
