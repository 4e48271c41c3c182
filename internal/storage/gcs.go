package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

const gcsPublicBase = "https://storage.googleapis.com/"

// GCSStore — хранение объектов в Google Cloud Storage.
// Публичность объектов задаётся политикой bucket.
type GCSStore struct {
	client *gcs.Client
	bucket string
}

// NewGCSStore создаёт клиент GCS с учётными данными по умолчанию (ADC).
func NewGCSStore(ctx context.Context, bucket string, opts ...option.ClientOption) (*GCSStore, error) {
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("создание клиента GCS: %w", err)
	}
	return &GCSStore{client: client, bucket: bucket}, nil
}

// Put загружает объект потоково.
func (s *GCSStore) Put(ctx context.Context, key, contentType string, r io.Reader) (string, error) {
	wc := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	wc.ContentType = contentType
	if _, err := io.Copy(wc, r); err != nil {
		wc.Close()
		return "", fmt.Errorf("запись %s в bucket %s: %w", key, s.bucket, err)
	}
	if err := wc.Close(); err != nil {
		return "", fmt.Errorf("завершение записи %s в bucket %s: %w", key, s.bucket, err)
	}
	return s.publicURL(key), nil
}

// Delete удаляет объект. Отсутствие объекта не считается ошибкой.
func (s *GCSStore) Delete(ctx context.Context, key string) error {
	err := s.client.Bucket(s.bucket).Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
		return fmt.Errorf("удаление %s из bucket %s: %w", key, s.bucket, err)
	}
	return nil
}

// KeyFromURL отрезает https://storage.googleapis.com/{bucket}/.
func (s *GCSStore) KeyFromURL(publicURL string) (string, bool) {
	key, ok := strings.CutPrefix(publicURL, gcsPublicBase+s.bucket+"/")
	return key, ok && key != ""
}

func (s *GCSStore) publicURL(key string) string {
	return gcsPublicBase + s.bucket + "/" + key
}
